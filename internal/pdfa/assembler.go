// Package pdfa assembles the hybrid invoice container: a PDF/A-3 page drawn
// from a layout display list, with the structured CII record attached as
// factur-x.xml and declared in the XMP metadata.
package pdfa

import (
	"bytes"
	"time"

	"github.com/rezonia/invoice-generator/internal/facturx"
	"github.com/rezonia/invoice-generator/internal/layout"
	"github.com/rezonia/invoice-generator/internal/model"
)

// DefaultProducer is written to the document info and XMP
const DefaultProducer = "invoice-generator"

// Metadata is the descriptive information written to the document info
// dictionary and the XMP packet.
type Metadata struct {
	Title    string
	Author   string
	Subject  string
	Creator  string
	Producer string
	Language string
	// Date is used for creation and modification dates so that output is
	// reproducible for a given invoice.
	Date time.Time
}

// Assembler builds hybrid documents
type Assembler struct {
	producer string
	compress bool
}

// Option configures an Assembler
type Option func(*Assembler)

// WithProducer sets the producer name recorded in the document
func WithProducer(name string) Option {
	return func(a *Assembler) {
		a.producer = name
	}
}

// WithCompression toggles compression of page content streams
func WithCompression(enabled bool) Option {
	return func(a *Assembler) {
		a.compress = enabled
	}
}

// NewAssembler creates a new assembler
func NewAssembler(opts ...Option) *Assembler {
	a := &Assembler{
		producer: DefaultProducer,
		compress: true,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Assemble produces the complete container bytes, or a PackagingError.
// No partial output is ever returned.
func (a *Assembler) Assemble(page *layout.Page, inv *facturx.Invoice, meta Metadata) ([]byte, error) {
	if page == nil {
		return nil, model.NewPackagingError("input", "page is required", nil)
	}
	if inv == nil {
		return nil, model.NewPackagingError("input", "structured record is required", nil)
	}
	if meta.Producer == "" {
		meta.Producer = a.producer
	}
	if meta.Creator == "" {
		meta.Creator = a.producer
	}
	if meta.Date.IsZero() {
		return nil, model.NewPackagingError("input", "document date is required", nil)
	}

	xmlData, err := facturx.Marshal(inv)
	if err != nil {
		return nil, model.NewPackagingError("serialize", "cannot serialize structured record", err)
	}

	xmp, err := buildXMP(meta)
	if err != nil {
		return nil, model.NewPackagingError("metadata", "cannot build XMP metadata", err)
	}

	base, err := drawPage(page, meta, xmp, a.compress)
	if err != nil {
		return nil, model.NewPackagingError("render", "cannot draw page", err)
	}
	base, err = insertBinaryComment(upgradeHeader(base))
	if err != nil {
		return nil, model.NewPackagingError("render", "unexpected document layout", err)
	}

	out, err := appendAssociatedFile(base, xmp, attachment{
		name:         facturx.AttachmentName,
		description:  "Factur-X invoice",
		mimeSubtype:  "text#2Fxml",
		relationship: "Data",
		data:         xmlData,
		modDate:      meta.Date,
	}, meta)
	if err != nil {
		return nil, model.NewPackagingError("embed", "cannot attach structured record", err)
	}

	return out, nil
}

// upgradeHeader rewrites the version in the header line in place; the
// replacement has the same length so recorded offsets stay valid.
func upgradeHeader(pdf []byte) []byte {
	const from, to = "%PDF-1.3", "%PDF-1.7"
	if bytes.HasPrefix(pdf, []byte(from)) {
		copy(pdf, to)
	}
	return pdf
}
