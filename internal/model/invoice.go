package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultCurrency is used when a snapshot carries no currency code
const DefaultCurrency = "EUR"

// DefaultTaxRate is the document tax rate (percent) used when none is given
var DefaultTaxRate = decimal.RequireFromString("20.00")

// InvoiceSnapshot is the frozen view of an invoice handed to the generator.
// Generation never mutates it.
type InvoiceSnapshot struct {
	Number    string    `json:"number"`
	Currency  string    `json:"currency"`
	IssueDate time.Time `json:"issue_date"`
	DueDate   time.Time `json:"due_date"`

	Issuer    Party `json:"issuer"`
	Recipient Party `json:"recipient"`

	Items   []LineItem      `json:"items"`
	TaxRate decimal.Decimal `json:"tax_rate"`

	PaymentTerms string `json:"payment_terms,omitempty"`
	Notes        string `json:"notes,omitempty"`
}

// CurrencyCode returns the snapshot currency, or DefaultCurrency when unset
func (s *InvoiceSnapshot) CurrencyCode() string {
	if s.Currency == "" {
		return DefaultCurrency
	}
	return s.Currency
}

// Party represents the issuer (seller) or recipient (buyer)
type Party struct {
	Name    string  `json:"name"`
	TaxID   string  `json:"tax_id,omitempty"`
	Address Address `json:"address"`
	Contact Contact `json:"contact,omitempty"`
	Bank    Bank    `json:"bank,omitempty"`
}

// Address is a postal address
type Address struct {
	Street     string `json:"street,omitempty"`
	City       string `json:"city,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	Country    string `json:"country,omitempty"`
}

// IsEmpty reports whether no address field is set
func (a Address) IsEmpty() bool {
	return a.Street == "" && a.City == "" && a.PostalCode == "" && a.Country == ""
}

// Contact holds the person to reach at a party
type Contact struct {
	Name  string `json:"name,omitempty"`
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
}

// IsEmpty reports whether no contact field is set
func (c Contact) IsEmpty() bool {
	return c.Name == "" && c.Phone == "" && c.Email == ""
}

// Bank holds payment account details
type Bank struct {
	IBAN string `json:"iban,omitempty"`
	BIC  string `json:"bic,omitempty"`
}

// LineItem represents a single billed line
type LineItem struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TaxRate     decimal.Decimal `json:"tax_rate"`
}

// ComputedTotals holds the amounts derived from a snapshot's items.
// Lines is index-aligned with the snapshot items. Taxes has one entry per
// distinct item rate, in order of first appearance, and TaxAmount is their sum.
type ComputedTotals struct {
	Lines     []decimal.Decimal `json:"lines"`
	Subtotal  decimal.Decimal   `json:"subtotal"`
	TaxRate   decimal.Decimal   `json:"tax_rate"`
	Taxes     []TaxSubtotal     `json:"taxes"`
	TaxAmount decimal.Decimal   `json:"tax_amount"`
	Total     decimal.Decimal   `json:"total"`
}

// TaxSubtotal is the tax due on the lines sharing one rate
type TaxSubtotal struct {
	Rate   decimal.Decimal `json:"rate"`
	Basis  decimal.Decimal `json:"basis"`
	Amount decimal.Decimal `json:"amount"`
}

// Line returns the rounded amount of item i, or zero when out of range
func (t *ComputedTotals) Line(i int) decimal.Decimal {
	if t == nil || i < 0 || i >= len(t.Lines) {
		return decimal.Zero
	}
	return t.Lines[i]
}
