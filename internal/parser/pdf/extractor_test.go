package pdf_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/invoice-generator/internal/model"
	"github.com/rezonia/invoice-generator/internal/parser/pdf"
	"github.com/rezonia/invoice-generator/internal/processor"
)

func generated(t *testing.T) *processor.Document {
	t.Helper()
	issue := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	doc, err := processor.NewPipeline().Generate(context.Background(), &model.InvoiceSnapshot{
		Number:    "F-2025/042",
		Currency:  "EUR",
		IssueDate: issue,
		DueDate:   issue.AddDate(0, 0, 30),
		Issuer:    model.Party{Name: "Atelier Nord", Address: model.Address{City: "Lille"}},
		Recipient: model.Party{Name: "Client SA", Address: model.Address{City: "Nantes"}},
		Items: []model.LineItem{{
			Description: "Audit",
			Quantity:    decimal.NewFromInt(2),
			UnitPrice:   decimal.RequireFromString("450.50"),
			TaxRate:     model.DefaultTaxRate,
		}},
		TaxRate: model.DefaultTaxRate,
	})
	require.NoError(t, err)
	return doc
}

func TestNewExtractor(t *testing.T) {
	extractor := pdf.NewExtractor()
	require.NotNil(t, extractor)
}

func TestExtract_GeneratedDocument(t *testing.T) {
	doc := generated(t)

	c, err := pdf.NewExtractor().Extract(doc.Bytes)
	require.NoError(t, err)

	assert.Equal(t, 1, c.PageCount)
	assert.Equal(t, "1.7", c.Version)
	require.Len(t, c.Attachments, 1)
	assert.Equal(t, "factur-x.xml", c.Attachments[0].Name)
	assert.Equal(t, len(doc.XML), c.Attachments[0].Size)

	require.True(t, c.HasStructuredRecord())
	assert.Equal(t, string(doc.XML), string(c.StructuredXML))

	assert.Equal(t, "3", c.Conformance.PDFAPart)
	assert.Equal(t, "B", c.Conformance.PDFAConformance)
	assert.Equal(t, "INVOICE", c.Conformance.DocumentType)
	assert.Equal(t, "factur-x.xml", c.Conformance.DocumentFileName)
	assert.Equal(t, "EN 16931", c.Conformance.ConformanceLevel)
}

func TestExtractXML(t *testing.T) {
	doc := generated(t)

	data, err := pdf.NewExtractor().ExtractXML(doc.Bytes)
	require.NoError(t, err)
	assert.Equal(t, doc.XML, data)
}

func TestExtract_PlainPDF(t *testing.T) {
	p := gofpdf.New("P", "mm", "A4", "")
	p.AddPage()
	p.SetFont("Helvetica", "", 12)
	p.Text(20, 20, "no attachment")
	var buf bytes.Buffer
	require.NoError(t, p.Output(&buf))

	e := pdf.NewExtractor()
	c, err := e.Extract(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, 1, c.PageCount)
	assert.Empty(t, c.Attachments)
	assert.False(t, c.HasStructuredRecord())

	_, err = e.ExtractXML(buf.Bytes())
	var decodeErr *model.DecodeError
	assert.True(t, errors.As(err, &decodeErr))
}

func TestExtract_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"not a pdf", []byte("hello")},
		{"truncated", []byte("%PDF-1.7\n1 0 obj\n<<")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := pdf.NewExtractor().Extract(tt.data)
			assert.Nil(t, c)
			var decodeErr *model.DecodeError
			assert.True(t, errors.As(err, &decodeErr))
		})
	}
}
