// Package cii reads a Cross Industry Invoice record back into a flat summary
// and checks that its amounts add up.
package cii

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"

	"github.com/rezonia/invoice-generator/internal/calc"
	money "github.com/rezonia/invoice-generator/internal/decimal"
	"github.com/rezonia/invoice-generator/internal/model"
)

const (
	pathContext     = "rsm:ExchangedDocumentContext/ram:GuidelineSpecifiedDocumentContextParameter/ram:ID"
	pathDocument    = "rsm:ExchangedDocument"
	pathTransaction = "rsm:SupplyChainTradeTransaction"
	pathAgreement   = pathTransaction + "/ram:ApplicableHeaderTradeAgreement"
	pathSettlement  = pathTransaction + "/ram:ApplicableHeaderTradeSettlement"
	pathSummation   = pathSettlement + "/ram:SpecifiedTradeSettlementHeaderMonetarySummation"

	dateFormat102 = "20060102"
)

// Party is a seller or buyer as found in the record
type Party struct {
	Name      string `json:"name"`
	TaxID     string `json:"tax_id,omitempty"`
	TaxScheme string `json:"tax_scheme,omitempty"`
	City      string `json:"city,omitempty"`
	Country   string `json:"country,omitempty"`
}

// Line is one included trade line item
type Line struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Quantity decimal.Decimal `json:"quantity"`
	Unit     string          `json:"unit"`
	NetPrice decimal.Decimal `json:"net_price"`
	Category string          `json:"category"`
	TaxRate  decimal.Decimal `json:"tax_rate"`
	Total    decimal.Decimal `json:"total"`
}

// Tax is one header tax breakdown
type Tax struct {
	Category string          `json:"category"`
	Rate     decimal.Decimal `json:"rate"`
	Basis    decimal.Decimal `json:"basis"`
	Amount   decimal.Decimal `json:"amount"`
}

// Summary is the flat view of a record
type Summary struct {
	Guideline string    `json:"guideline"`
	Number    string    `json:"number"`
	TypeCode  string    `json:"type_code"`
	IssueDate time.Time `json:"issue_date"`
	DueDate   time.Time `json:"due_date,omitempty"`
	Currency  string    `json:"currency"`
	Notes     []string  `json:"notes,omitempty"`

	Seller Party  `json:"seller"`
	Buyer  Party  `json:"buyer"`
	Lines  []Line `json:"lines"`

	IBAN         string `json:"iban,omitempty"`
	BIC          string `json:"bic,omitempty"`
	PaymentTerms string `json:"payment_terms,omitempty"`

	Taxes      []Tax           `json:"taxes"`
	Subtotal   decimal.Decimal `json:"subtotal"`
	TaxBasis   decimal.Decimal `json:"tax_basis"`
	TaxAmount  decimal.Decimal `json:"tax_amount"`
	Total      decimal.Decimal `json:"total"`
	DuePayable decimal.Decimal `json:"due_payable"`
}

// Reader parses CII XML
type Reader struct{}

// NewReader creates a new reader
func NewReader() *Reader {
	return &Reader{}
}

// CanParse reports whether content looks like a CII record
func (r *Reader) CanParse(content []byte) bool {
	return bytes.Contains(content, []byte("CrossIndustryInvoice"))
}

// Parse reads a record from rd
func (r *Reader) Parse(ctx context.Context, rd io.Reader) (*Summary, error) {
	content, err := io.ReadAll(rd)
	if err != nil {
		return nil, model.NewDecodeError("content", "failed to read content", err)
	}
	return r.ParseBytes(ctx, content)
}

// ParseBytes reads a record from content
func (r *Reader) ParseBytes(ctx context.Context, content []byte) (*Summary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(content); err != nil {
		return nil, model.NewDecodeError("xml", "failed to parse XML", err)
	}
	root := doc.Root()
	if root == nil {
		return nil, model.NewDecodeError("xml", "no root element", nil)
	}
	if root.Tag != "CrossIndustryInvoice" {
		return nil, model.NewDecodeError("root", "not a CrossIndustryInvoice document", nil)
	}

	p := &fieldParser{root: root}
	s := &Summary{
		Guideline:    p.text(pathContext),
		Number:       p.text(pathDocument + "/ram:ID"),
		TypeCode:     p.text(pathDocument + "/ram:TypeCode"),
		IssueDate:    p.date("issue_date", pathDocument+"/ram:IssueDateTime/udt:DateTimeString"),
		DueDate:      p.date("due_date", pathSettlement+"/ram:SpecifiedTradePaymentTerms/ram:DueDateDateTime/udt:DateTimeString"),
		Currency:     p.text(pathSettlement + "/ram:InvoiceCurrencyCode"),
		Seller:       p.party(pathAgreement + "/ram:SellerTradeParty"),
		Buyer:        p.party(pathAgreement + "/ram:BuyerTradeParty"),
		IBAN:         p.text(pathSettlement + "/ram:SpecifiedTradeSettlementPaymentMeans/ram:PayeePartyCreditorFinancialAccount/ram:IBANID"),
		BIC:          p.text(pathSettlement + "/ram:SpecifiedTradeSettlementPaymentMeans/ram:PayeeSpecifiedCreditorFinancialInstitution/ram:BICID"),
		PaymentTerms: p.text(pathSettlement + "/ram:SpecifiedTradePaymentTerms/ram:Description"),
		Subtotal:     p.amount("line_total", pathSummation+"/ram:LineTotalAmount"),
		TaxBasis:     p.amount("tax_basis_total", pathSummation+"/ram:TaxBasisTotalAmount"),
		TaxAmount:    p.amount("tax_total", pathSummation+"/ram:TaxTotalAmount"),
		Total:        p.amount("grand_total", pathSummation+"/ram:GrandTotalAmount"),
		DuePayable:   p.amount("due_payable", pathSummation+"/ram:DuePayableAmount"),
	}

	for _, note := range root.FindElements(pathDocument + "/ram:IncludedNote/ram:Content") {
		s.Notes = append(s.Notes, note.Text())
	}

	for i, el := range root.FindElements(pathSettlement + "/ram:ApplicableTradeTax") {
		tp := &fieldParser{root: el, prefix: fmt.Sprintf("taxes[%d].", i)}
		s.Taxes = append(s.Taxes, Tax{
			Category: tp.text("ram:CategoryCode"),
			Rate:     tp.amount("rate", "ram:RateApplicablePercent"),
			Basis:    tp.amount("basis", "ram:BasisAmount"),
			Amount:   tp.amount("amount", "ram:CalculatedAmount"),
		})
		p.merge(tp)
	}

	for i, el := range root.FindElements(pathTransaction + "/ram:IncludedSupplyChainTradeLineItem") {
		lp := &fieldParser{root: el, prefix: fmt.Sprintf("lines[%d].", i)}
		s.Lines = append(s.Lines, Line{
			ID:       lp.text("ram:AssociatedDocumentLineDocument/ram:LineID"),
			Name:     lp.text("ram:SpecifiedTradeProduct/ram:Name"),
			NetPrice: lp.amount("net_price", "ram:SpecifiedLineTradeAgreement/ram:NetPriceProductTradePrice/ram:ChargeAmount"),
			Quantity: lp.amount("quantity", "ram:SpecifiedLineTradeDelivery/ram:BilledQuantity"),
			Unit:     lp.attr("ram:SpecifiedLineTradeDelivery/ram:BilledQuantity", "unitCode"),
			Category: lp.text("ram:SpecifiedLineTradeSettlement/ram:ApplicableTradeTax/ram:CategoryCode"),
			TaxRate:  lp.amount("tax_rate", "ram:SpecifiedLineTradeSettlement/ram:ApplicableTradeTax/ram:RateApplicablePercent"),
			Total:    lp.amount("total", "ram:SpecifiedLineTradeSettlement/ram:SpecifiedTradeSettlementLineMonetarySummation/ram:LineTotalAmount"),
		})
		p.merge(lp)
	}

	if p.err != nil {
		return nil, p.err
	}
	if s.Number == "" {
		return nil, model.NewDecodeError("number", "document ID is missing", nil)
	}
	return s, nil
}

// Check verifies the record against the amounts its lines imply: line
// totals, per-rate tax breakdowns, tax total and grand total. It also checks
// that the summation block is internally consistent.
// It returns one message per discrepancy.
func (s *Summary) Check() []string {
	items := make([]model.LineItem, len(s.Lines))
	totals := &model.ComputedTotals{
		Lines:     make([]decimal.Decimal, len(s.Lines)),
		Subtotal:  s.Subtotal,
		TaxAmount: s.TaxAmount,
		Total:     s.Total,
	}
	for i, l := range s.Lines {
		items[i] = model.LineItem{Description: l.Name, Quantity: l.Quantity, UnitPrice: l.NetPrice, TaxRate: l.TaxRate}
		totals.Lines[i] = l.Total
	}
	for _, t := range s.Taxes {
		totals.Taxes = append(totals.Taxes, model.TaxSubtotal{Rate: t.Rate, Basis: t.Basis, Amount: t.Amount})
	}

	problems := calc.Discrepancies(items, totals)
	if !s.TaxBasis.Equal(s.Subtotal) {
		problems = append(problems, fmt.Sprintf("tax basis %s differs from line total %s", money.Fixed(s.TaxBasis), money.Fixed(s.Subtotal)))
	}
	if !s.DuePayable.Equal(s.Total) {
		problems = append(problems, fmt.Sprintf("due payable %s differs from grand total %s", money.Fixed(s.DuePayable), money.Fixed(s.Total)))
	}
	return problems
}

// fieldParser looks up paths below root and keeps the first error
type fieldParser struct {
	root   *etree.Element
	prefix string
	err    error
}

func (p *fieldParser) text(path string) string {
	if el := p.root.FindElement(path); el != nil {
		return el.Text()
	}
	return ""
}

func (p *fieldParser) attr(path, name string) string {
	if el := p.root.FindElement(path); el != nil {
		return el.SelectAttrValue(name, "")
	}
	return ""
}

func (p *fieldParser) amount(field, path string) decimal.Decimal {
	s := p.text(path)
	if s == "" {
		return decimal.Zero
	}
	d, err := money.FromString(s)
	if err != nil {
		p.fail(model.NewDecodeError(p.prefix+field, fmt.Sprintf("invalid amount %q", s), err))
		return decimal.Zero
	}
	return d
}

func (p *fieldParser) date(field, path string) time.Time {
	s := p.text(path)
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(dateFormat102, s)
	if err != nil {
		p.fail(model.NewDecodeError(p.prefix+field, fmt.Sprintf("invalid date %q", s), err))
		return time.Time{}
	}
	return t
}

func (p *fieldParser) party(path string) Party {
	el := p.root.FindElement(path)
	if el == nil {
		return Party{}
	}
	sub := &fieldParser{root: el}
	return Party{
		Name:      sub.text("ram:Name"),
		TaxID:     sub.text("ram:SpecifiedTaxRegistration/ram:ID"),
		TaxScheme: sub.attr("ram:SpecifiedTaxRegistration/ram:ID", "schemeID"),
		City:      sub.text("ram:PostalTradeAddress/ram:CityName"),
		Country:   sub.text("ram:PostalTradeAddress/ram:CountryID"),
	}
}

func (p *fieldParser) merge(sub *fieldParser) {
	if sub.err != nil {
		p.fail(sub.err)
	}
}

func (p *fieldParser) fail(err error) {
	if p.err == nil {
		p.err = err
	}
}
