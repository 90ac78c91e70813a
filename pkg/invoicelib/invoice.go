// Package invoicelib provides a public API for generating Factur-X hybrid
// invoices: a one-page PDF/A-3 document carrying an embedded EN 16931
// Cross Industry Invoice record.
//
// Example usage:
//
//	gen := invoicelib.NewGenerator()
//	doc, err := gen.Generate(ctx, snapshot)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	os.WriteFile(doc.Filename, doc.Bytes, 0o644)
package invoicelib

import (
	"github.com/rezonia/invoice-generator/internal/model"
	"github.com/rezonia/invoice-generator/internal/parser/cii"
	"github.com/rezonia/invoice-generator/internal/parser/pdf"
	"github.com/rezonia/invoice-generator/internal/processor"
)

// Re-export core types for public API
type (
	InvoiceSnapshot = model.InvoiceSnapshot
	Party           = model.Party
	Address         = model.Address
	Contact         = model.Contact
	Bank            = model.Bank
	LineItem        = model.LineItem
	ComputedTotals  = model.ComputedTotals
	TaxSubtotal     = model.TaxSubtotal
	Document        = processor.Document
)

// Re-export inspection types
type (
	Container   = pdf.Container
	Attachment  = pdf.Attachment
	Conformance = pdf.Conformance
	Summary     = cii.Summary
	SummaryTax  = cii.Tax
)

// Re-export defaults
const DefaultCurrency = model.DefaultCurrency

// DefaultTaxRate is the document tax rate applied when a snapshot has none
var DefaultTaxRate = model.DefaultTaxRate

// Re-export error types
type (
	InvalidAmountError  = model.InvalidAmountError
	RenderOverflowError = model.RenderOverflowError
	MappingError        = model.MappingError
	PackagingError      = model.PackagingError
	DecodeError         = model.DecodeError
)

// DecodeSnapshot parses a JSON or YAML snapshot
func DecodeSnapshot(data []byte) (*InvoiceSnapshot, error) {
	return processor.DecodeSnapshot(data)
}

// ErrorKind classifies an error returned by this package
func ErrorKind(err error) string {
	return processor.Kind(err)
}
