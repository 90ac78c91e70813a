package server

import (
	money "github.com/rezonia/invoice-generator/internal/decimal"
	"github.com/rezonia/invoice-generator/internal/model"
	"github.com/rezonia/invoice-generator/internal/parser/cii"
	"github.com/rezonia/invoice-generator/internal/parser/pdf"
)

// TotalsResponse is the response for the totals endpoint.
// Amounts are fixed two-decimal strings.
type TotalsResponse struct {
	Currency  string        `json:"currency"`
	Lines     []string      `json:"lines"`
	Subtotal  string        `json:"subtotal"`
	TaxRate   string        `json:"tax_rate"`
	Taxes     []TaxResponse `json:"taxes"`
	TaxAmount string        `json:"tax_amount"`
	Total     string        `json:"total"`
}

// TaxResponse is the tax due at one rate
type TaxResponse struct {
	Rate   string `json:"rate"`
	Basis  string `json:"basis"`
	Amount string `json:"amount"`
}

// NewTotalsResponse formats totals for the API
func NewTotalsResponse(currency string, t *model.ComputedTotals) TotalsResponse {
	lines := make([]string, len(t.Lines))
	for i, l := range t.Lines {
		lines[i] = money.Fixed(l)
	}
	taxes := make([]TaxResponse, len(t.Taxes))
	for i, tax := range t.Taxes {
		taxes[i] = TaxResponse{
			Rate:   money.Fixed(tax.Rate),
			Basis:  money.Fixed(tax.Basis),
			Amount: money.Fixed(tax.Amount),
		}
	}
	return TotalsResponse{
		Currency:  currency,
		Lines:     lines,
		Subtotal:  money.Fixed(t.Subtotal),
		TaxRate:   money.Fixed(t.TaxRate),
		Taxes:     taxes,
		TaxAmount: money.Fixed(t.TaxAmount),
		Total:     money.Fixed(t.Total),
	}
}

// InspectResponse is the response for the inspect endpoint
type InspectResponse struct {
	Container *pdf.Container `json:"container"`
	Invoice   *cii.Summary   `json:"invoice,omitempty"`
	Problems  []string       `json:"problems,omitempty"`
}

// ErrorResponse is the standard error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Kind    string `json:"kind,omitempty"`
	Details string `json:"details,omitempty"`
}
