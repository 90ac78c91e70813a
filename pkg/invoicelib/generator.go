package invoicelib

import (
	"context"
	"io"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rezonia/invoice-generator/internal/logger"
	"github.com/rezonia/invoice-generator/internal/model"
	"github.com/rezonia/invoice-generator/internal/parser/cii"
	"github.com/rezonia/invoice-generator/internal/parser/pdf"
	"github.com/rezonia/invoice-generator/internal/pdfa"
	"github.com/rezonia/invoice-generator/internal/processor"
)

// DefaultBatchConcurrency bounds GenerateBatch
const DefaultBatchConcurrency = 4

// Generator produces and inspects hybrid invoices. It is safe for
// concurrent use.
type Generator struct {
	pipeline  *processor.Pipeline
	extractor *pdf.Extractor
	reader    *cii.Reader

	producer    string
	compress    bool
	concurrency int
	log         *zap.Logger
}

// Option configures a Generator
type Option func(*Generator)

// WithProducer sets the producer recorded in generated documents
func WithProducer(name string) Option {
	return func(g *Generator) {
		g.producer = name
	}
}

// WithCompression toggles page content compression
func WithCompression(enabled bool) Option {
	return func(g *Generator) {
		g.compress = enabled
	}
}

// WithLogger sets a zap logger
func WithLogger(l *zap.Logger) Option {
	return func(g *Generator) {
		g.log = l
	}
}

// WithBatchConcurrency bounds the number of documents generated at once by GenerateBatch
func WithBatchConcurrency(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.concurrency = n
		}
	}
}

// NewGenerator creates a generator
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{
		producer:    pdfa.DefaultProducer,
		compress:    true,
		concurrency: DefaultBatchConcurrency,
	}
	for _, opt := range opts {
		opt(g)
	}

	log := logger.Nop()
	if g.log != nil {
		log = logger.Wrap(g.log)
	}

	g.pipeline = processor.NewPipeline(
		processor.WithLogger(log),
		processor.WithAssembler(pdfa.NewAssembler(
			pdfa.WithProducer(g.producer),
			pdfa.WithCompression(g.compress),
		)),
	)
	g.extractor = pdf.NewExtractor()
	g.reader = cii.NewReader()
	return g
}

// Generate produces the hybrid document for snap
func (g *Generator) Generate(ctx context.Context, snap *InvoiceSnapshot) (*Document, error) {
	return g.pipeline.Generate(ctx, snap)
}

// GenerateFrom decodes a JSON or YAML snapshot from r and generates it
func (g *Generator) GenerateFrom(ctx context.Context, r io.Reader) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, model.NewDecodeError("", "failed to read input", err)
	}
	snap, err := processor.DecodeSnapshot(data)
	if err != nil {
		return nil, err
	}
	return g.pipeline.Generate(ctx, snap)
}

// Totals computes the totals of snap
func (g *Generator) Totals(snap *InvoiceSnapshot) (*ComputedTotals, error) {
	return g.pipeline.Totals(snap)
}

// Structured returns the serialized structured record for snap
func (g *Generator) Structured(ctx context.Context, snap *InvoiceSnapshot) ([]byte, error) {
	return g.pipeline.Structured(ctx, snap)
}

// GenerateBatch generates snaps concurrently. Results are index-aligned with
// snaps; the first error cancels the remaining work.
func (g *Generator) GenerateBatch(ctx context.Context, snaps []*InvoiceSnapshot) ([]*Document, error) {
	docs := make([]*Document, len(snaps))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.concurrency)
	for i, snap := range snaps {
		i, snap := i, snap
		eg.Go(func() error {
			doc, err := g.pipeline.Generate(egCtx, snap)
			if err != nil {
				return err
			}
			docs[i] = doc
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return docs, nil
}

// Inspect validates a PDF and summarizes its embedded invoice
func (g *Generator) Inspect(ctx context.Context, r io.Reader) (*InspectionResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, model.NewDecodeError("", "failed to read input", err)
	}

	container, err := g.extractor.Extract(data)
	if err != nil {
		return nil, err
	}

	result := &InspectionResult{Container: container}
	if !container.HasStructuredRecord() {
		return result, nil
	}

	summary, err := g.reader.ParseBytes(ctx, container.StructuredXML)
	if err != nil {
		return nil, err
	}
	result.Invoice = summary
	result.Problems = summary.Check()
	return result, nil
}

var _ Inspector = (*Generator)(nil)
