package cii_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/invoice-generator/internal/calc"
	"github.com/rezonia/invoice-generator/internal/facturx"
	"github.com/rezonia/invoice-generator/internal/model"
	"github.com/rezonia/invoice-generator/internal/parser/cii"
)

func record(t *testing.T) []byte {
	t.Helper()
	return recordWith(t, func(*model.InvoiceSnapshot) {})
}

func recordWith(t *testing.T, edit func(*model.InvoiceSnapshot)) []byte {
	t.Helper()
	issue := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	snap := &model.InvoiceSnapshot{
		Number:       "INV-2025-001",
		Currency:     "EUR",
		IssueDate:    issue,
		DueDate:      issue.AddDate(0, 0, 30),
		PaymentTerms: "30 jours fin de mois",
		Notes:        "Merci pour votre confiance",
		Issuer: model.Party{
			Name:    "Studio Lumière",
			TaxID:   "FR12345678901",
			Address: model.Address{Street: "1 rue de Rivoli", City: "Paris", PostalCode: "75001", Country: "France"},
			Bank:    model.Bank{IBAN: "FR76 3000 6000 0112 3456 7890 189", BIC: "AGRIFRPP"},
		},
		Recipient: model.Party{
			Name:    "ACME GmbH",
			Address: model.Address{City: "Berlin", Country: "Allemagne"},
		},
		TaxRate: model.DefaultTaxRate,
		Items: []model.LineItem{
			{Description: "Conseil", Quantity: decimal.NewFromInt(10), UnitPrice: decimal.NewFromInt(100), TaxRate: model.DefaultTaxRate},
			{Description: "Frais", Quantity: decimal.RequireFromString("1.5"), UnitPrice: decimal.RequireFromString("33.33"), TaxRate: model.DefaultTaxRate},
		},
	}
	edit(snap)
	totals, err := calc.ComputeSnapshot(snap)
	require.NoError(t, err)
	inv, err := facturx.Map(snap, totals)
	require.NoError(t, err)
	data, err := facturx.Marshal(inv)
	require.NoError(t, err)
	return data
}

func TestNewReader(t *testing.T) {
	require.NotNil(t, cii.NewReader())
}

func TestCanParse(t *testing.T) {
	r := cii.NewReader()
	assert.True(t, r.CanParse(record(t)))
	assert.False(t, r.CanParse([]byte("<Invoice/>")))
}

func TestParse_Record(t *testing.T) {
	s, err := cii.NewReader().Parse(context.Background(), bytes.NewReader(record(t)))
	require.NoError(t, err)

	assert.Equal(t, facturx.GuidelineEN16931, s.Guideline)
	assert.Equal(t, "INV-2025-001", s.Number)
	assert.Equal(t, "380", s.TypeCode)
	assert.Equal(t, time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC), s.IssueDate)
	assert.Equal(t, time.Date(2025, 2, 14, 0, 0, 0, 0, time.UTC), s.DueDate)
	assert.Equal(t, "EUR", s.Currency)
	assert.Equal(t, []string{"Merci pour votre confiance"}, s.Notes)
	assert.Equal(t, "30 jours fin de mois", s.PaymentTerms)

	assert.Equal(t, "Studio Lumière", s.Seller.Name)
	assert.Equal(t, "FR12345678901", s.Seller.TaxID)
	assert.Equal(t, "VA", s.Seller.TaxScheme)
	assert.Equal(t, "FR", s.Seller.Country)
	assert.Equal(t, "ACME GmbH", s.Buyer.Name)
	assert.Equal(t, "DE", s.Buyer.Country)
	assert.Equal(t, "FR7630006000011234567890189", s.IBAN)
	assert.Equal(t, "AGRIFRPP", s.BIC)

	require.Len(t, s.Lines, 2)
	assert.Equal(t, "1", s.Lines[0].ID)
	assert.Equal(t, "Conseil", s.Lines[0].Name)
	assert.Equal(t, "C62", s.Lines[0].Unit)
	assert.Equal(t, "S", s.Lines[0].Category)
	assert.True(t, s.Lines[1].Quantity.Equal(decimal.RequireFromString("1.5")))
	assert.Equal(t, "50.00", s.Lines[1].Total.StringFixed(2))

	assert.Equal(t, "1050.00", s.Subtotal.StringFixed(2))
	assert.Equal(t, "210.00", s.TaxAmount.StringFixed(2))
	assert.Equal(t, "1260.00", s.Total.StringFixed(2))

	require.Len(t, s.Taxes, 1)
	assert.Equal(t, "S", s.Taxes[0].Category)
	assert.Equal(t, "1050.00", s.Taxes[0].Basis.StringFixed(2))
	assert.Equal(t, "210.00", s.Taxes[0].Amount.StringFixed(2))

	assert.Empty(t, s.Check())
}

func TestCheck_Discrepancies(t *testing.T) {
	data := strings.Replace(string(record(t)),
		"<ram:GrandTotalAmount>1260.00</ram:GrandTotalAmount>",
		"<ram:GrandTotalAmount>1261.00</ram:GrandTotalAmount>", 1)

	s, err := cii.NewReader().ParseBytes(context.Background(), []byte(data))
	require.NoError(t, err)

	problems := s.Check()
	assert.Equal(t, []string{
		"total is 1261.00, expected 1260.00",
		"due payable 1260.00 differs from grand total 1261.00",
	}, problems)
}

func TestCheck_MixedRates(t *testing.T) {
	data := recordWith(t, func(snap *model.InvoiceSnapshot) {
		snap.Items[1].TaxRate = decimal.RequireFromString("5.5")
	})

	s, err := cii.NewReader().ParseBytes(context.Background(), data)
	require.NoError(t, err)
	require.Len(t, s.Taxes, 2)
	assert.Equal(t, "1000.00", s.Taxes[0].Basis.StringFixed(2))
	assert.Equal(t, "50.00", s.Taxes[1].Basis.StringFixed(2))
	assert.Equal(t, "2.75", s.Taxes[1].Amount.StringFixed(2))
	assert.Empty(t, s.Check())

	// one breakdown at 20% over the whole subtotal, lines at two rates
	s.Taxes = []cii.Tax{{
		Category: "S",
		Rate:     decimal.NewFromInt(20),
		Basis:    decimal.NewFromInt(1050),
		Amount:   decimal.NewFromInt(210),
	}}
	s.TaxAmount = decimal.NewFromInt(210)
	s.Total = decimal.NewFromInt(1260)
	s.DuePayable = s.Total

	problems := s.Check()
	assert.Contains(t, problems, "tax basis at 20% is 1050.00, expected 1000.00")
	assert.Contains(t, problems, "no tax breakdown at 5.5%")
}

func TestParse_Errors(t *testing.T) {
	valid := string(record(t))

	tests := []struct {
		name  string
		data  string
		field string
	}{
		{"not xml", "not xml", "xml"},
		{"wrong root", `<?xml version="1.0"?><Invoice/>`, "root"},
		{"bad amount", strings.Replace(valid, "<ram:DuePayableAmount>1260.00<", "<ram:DuePayableAmount>abc<", 1), "due_payable"},
		{"bad line amount", strings.Replace(valid, "<ram:ChargeAmount>100.00<", "<ram:ChargeAmount>x<", 1), "lines[0].net_price"},
		{"bad date", strings.Replace(valid, ">20250115<", ">2025-01-15<", 1), "issue_date"},
		{"no root element", "", "xml"},
		{"amount out of range", strings.Replace(valid, "<ram:DuePayableAmount>1260.00<", "<ram:DuePayableAmount>1e40000000<", 1), "due_payable"},
		{"bad tax basis", strings.Replace(valid, "<ram:BasisAmount>1050.00<", "<ram:BasisAmount>?<", 1), "taxes[0].basis"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := cii.NewReader().ParseBytes(context.Background(), []byte(tt.data))
			assert.Nil(t, s)

			var decodeErr *model.DecodeError
			require.True(t, errors.As(err, &decodeErr), "got %v", err)
			assert.Equal(t, tt.field, decodeErr.Field)
		})
	}
}

func TestParse_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := cii.NewReader().ParseBytes(ctx, record(t))
	assert.ErrorIs(t, err, context.Canceled)
}
