// Package processor wires the calculation engine, the two projections and the
// container assembler into a single generation call.
package processor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rezonia/invoice-generator/internal/calc"
	"github.com/rezonia/invoice-generator/internal/facturx"
	"github.com/rezonia/invoice-generator/internal/layout"
	"github.com/rezonia/invoice-generator/internal/logger"
	"github.com/rezonia/invoice-generator/internal/model"
	"github.com/rezonia/invoice-generator/internal/pdfa"
)

// DocumentLanguage is declared in the container catalog
const DocumentLanguage = "fr-FR"

// Assembler packages a rendered page and a structured record
type Assembler interface {
	Assemble(page *layout.Page, inv *facturx.Invoice, meta pdfa.Metadata) ([]byte, error)
}

// Document is the result of one generation call. It is not retained.
type Document struct {
	Bytes    []byte
	Filename string
	Totals   *model.ComputedTotals
	XML      []byte
	// Text is the visual layer in reading order
	Text string
}

// Pipeline generates hybrid documents. It holds no per-call state and is
// safe for concurrent use.
type Pipeline struct {
	assembler Assembler
	log       *logger.Logger
}

// Option configures the pipeline
type Option func(*Pipeline)

// WithAssembler replaces the container assembler
func WithAssembler(a Assembler) Option {
	return func(p *Pipeline) {
		if a != nil {
			p.assembler = a
		}
	}
}

// WithLogger sets the logger
func WithLogger(l *logger.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.log = l
		}
	}
}

// NewPipeline creates a new pipeline
func NewPipeline(opts ...Option) *Pipeline {
	p := &Pipeline{
		assembler: pdfa.NewAssembler(),
		log:       logger.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.log = p.log.WithComponent("pipeline")
	return p
}

// Generate produces the hybrid document for snap. Totals are computed once
// and shared by both projections; any error aborts the call without output.
func (p *Pipeline) Generate(ctx context.Context, snap *model.InvoiceSnapshot) (*Document, error) {
	start := time.Now()
	if snap == nil {
		return nil, p.fail(model.NewInvalidAmountError("snapshot", nil, "nil snapshot"), "")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	log := p.log.With("invoice", snap.Number)

	totals, err := calc.ComputeSnapshot(snap)
	if err != nil {
		return nil, p.fail(err, snap.Number)
	}
	log.Debugw("totals computed",
		"items", len(snap.Items),
		"subtotal", totals.Subtotal.StringFixed(2),
		"tax", totals.TaxAmount.StringFixed(2),
		"total", totals.Total.StringFixed(2),
	)

	var (
		inv  *facturx.Invoice
		page *layout.Page
	)
	var g errgroup.Group
	g.Go(func() error {
		var err error
		inv, err = facturx.Map(snap, totals)
		return err
	})
	g.Go(func() error {
		var err error
		page, err = layout.Render(snap, totals)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, p.fail(err, snap.Number)
	}
	// cancellation is honoured up to the join; assembly is not interrupted
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out, err := p.assembler.Assemble(page, inv, metadataFor(snap))
	if err != nil {
		return nil, p.fail(err, snap.Number)
	}

	xmlData, err := facturx.Marshal(inv)
	if err != nil {
		return nil, p.fail(model.NewPackagingError("serialize", "cannot serialize structured record", err), snap.Number)
	}

	doc := &Document{
		Bytes:    out,
		Filename: facturx.Filename(snap.Number),
		Totals:   totals,
		XML:      xmlData,
		Text:     page.Text(),
	}
	log.Infow("document generated",
		"filename", doc.Filename,
		"bytes", len(doc.Bytes),
		"duration", time.Since(start),
	)
	return doc, nil
}

// Structured returns only the structured record for snap, serialized
func (p *Pipeline) Structured(ctx context.Context, snap *model.InvoiceSnapshot) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	totals, err := calc.ComputeSnapshot(snap)
	if err != nil {
		return nil, p.fail(err, snapshotNumber(snap))
	}
	inv, err := facturx.Map(snap, totals)
	if err != nil {
		return nil, p.fail(err, snap.Number)
	}
	data, err := facturx.Marshal(inv)
	if err != nil {
		return nil, p.fail(model.NewPackagingError("serialize", "cannot serialize structured record", err), snap.Number)
	}
	return data, nil
}

// Totals computes the totals for snap without producing a document
func (p *Pipeline) Totals(snap *model.InvoiceSnapshot) (*model.ComputedTotals, error) {
	totals, err := calc.ComputeSnapshot(snap)
	if err != nil {
		return nil, p.fail(err, snapshotNumber(snap))
	}
	return totals, nil
}

// fail logs err at a level that depends on its kind and returns it
func (p *Pipeline) fail(err error, number string) error {
	log := p.log.With("invoice", number, "kind", Kind(err))
	switch Kind(err) {
	case KindMapping, KindPackaging:
		log.Errorw("generation failed", "error", err)
	default:
		log.Warnw("generation rejected", "error", err)
	}
	return err
}

func metadataFor(snap *model.InvoiceSnapshot) pdfa.Metadata {
	subject := "Facture"
	if snap.Recipient.Name != "" {
		subject = fmt.Sprintf("Facture pour %s", snap.Recipient.Name)
	}
	return pdfa.Metadata{
		Title:    fmt.Sprintf("Facture %s", snap.Number),
		Author:   snap.Issuer.Name,
		Subject:  subject,
		Language: DocumentLanguage,
		Date:     snap.IssueDate,
	}
}

func snapshotNumber(snap *model.InvoiceSnapshot) string {
	if snap == nil {
		return ""
	}
	return snap.Number
}

// Error kinds reported at the transport boundary
const (
	KindInvalidAmount  = "invalid_amount"
	KindRenderOverflow = "render_overflow"
	KindMapping        = "mapping"
	KindPackaging      = "packaging"
	KindDecode         = "decode"
	KindUnknown        = "unknown"
)

// Kind classifies an error from the generation path
func Kind(err error) string {
	var (
		amountErr   *model.InvalidAmountError
		overflowErr *model.RenderOverflowError
		mappingErr  *model.MappingError
		packErr     *model.PackagingError
		decodeErr   *model.DecodeError
	)
	switch {
	case errors.As(err, &amountErr):
		return KindInvalidAmount
	case errors.As(err, &overflowErr):
		return KindRenderOverflow
	case errors.As(err, &mappingErr):
		return KindMapping
	case errors.As(err, &packErr):
		return KindPackaging
	case errors.As(err, &decodeErr):
		return KindDecode
	default:
		return KindUnknown
	}
}
