package layout

import (
	"math"
	"strings"
	"time"
	"unicode/utf8"

	money "github.com/rezonia/invoice-generator/internal/decimal"
	"github.com/rezonia/invoice-generator/internal/model"
)

// Font sizes
const (
	sizeIssuer = 18.0
	sizeTitle  = 16.0
	sizeNumber = 12.0
	sizeBody   = 10.0
	sizeTotal  = 12.0
)

// Vertical steps between baselines
const (
	lineStep    = 14.0
	rowHeight   = 16.0
	sectionGap  = 24.0
	titleGap    = 30.0
	tableGap    = 28.0
	footerGap   = 28.0
	totalStep   = 16.0
	grandStep   = 18.0
	paymentGap  = 30.0
	ruleSpacing = 6.0
)

// Table column anchors. Description is left aligned, the rest right aligned.
const (
	colDescription = Margin
	colQuantity    = 340.0
	colUnitPrice   = 420.0
	colTaxRate     = 465.0
	colAmount      = PageWidth - Margin
	colTotalsLabel = 360.0
)

// MaxDescription is the longest item description drawn before truncation
const MaxDescription = 35

// maxNoteLines bounds the notes block so that the footer height stays predictable
const maxNoteLines = 6

const maxNoteRunes = 90

// French labels
const (
	labelTitle       = "FACTURE"
	labelNumber      = "N° "
	labelClient      = "Client:"
	labelIssueDate   = "Date d'emission: "
	labelDueDate     = "Date d'echeance: "
	labelDescription = "Description"
	labelQuantity    = "Qte"
	labelUnitPrice   = "P.U. HT"
	labelTaxRate     = "TVA"
	labelLineTotal   = "Total HT"
	labelSubtotal    = "Total HT:"
	labelTotal       = "Total TTC:"
	labelPayment     = "Informations de paiement:"
	labelIBAN        = "IBAN: "
	labelBIC         = "BIC: "
	labelTerms       = "Conditions: "
	labelNotes       = "Notes:"
	labelTaxID       = "SIRET/TVA: "
	labelPhone       = "Tel: "
	labelEmail       = "Email: "
	dateLayout       = "02/01/2006"
)

// Render lays out snap on one page using the given totals.
// Amounts are only formatted here; they all come from totals.
func Render(snap *model.InvoiceSnapshot, totals *model.ComputedTotals) (*Page, error) {
	if snap == nil {
		return nil, model.NewInvalidAmountError("snapshot", nil, "snapshot is required")
	}
	if totals == nil {
		return nil, model.NewInvalidAmountError("totals", nil, "computed totals are required")
	}
	if len(totals.Lines) != len(snap.Items) {
		return nil, model.NewInvalidAmountError("totals.lines", len(totals.Lines), "line amounts do not match items")
	}

	r := &renderer{
		snap:     snap,
		totals:   totals,
		currency: snap.Currency,
		page:     &Page{Width: PageWidth, Height: PageHeight},
		y:        Margin,
	}
	if r.currency == "" {
		r.currency = model.DefaultCurrency
	}

	r.header()
	r.title()
	r.recipient()
	r.dates()
	r.tableHeader()

	capacity := Capacity(r.y, footerHeight(snap, totals))
	if len(snap.Items) > capacity {
		return nil, model.NewRenderOverflowError(len(snap.Items), capacity)
	}

	r.rows()
	r.totalsBlock()
	r.payment()
	r.notes()

	return r.page, nil
}

// Capacity is the number of item rows that fit between the table top and
// a footer of the given height.
func Capacity(tableTop, footer float64) int {
	bottom := PageHeight - Margin
	n := math.Floor((bottom - footer - tableTop) / rowHeight)
	if n < 0 {
		return 0
	}
	return int(n)
}

// Truncate shortens s to MaxDescription runes plus an ellipsis
func Truncate(s string) string {
	if utf8.RuneCountInString(s) <= MaxDescription {
		return s
	}
	runes := []rune(s)
	return string(runes[:MaxDescription]) + "..."
}

type renderer struct {
	snap     *model.InvoiceSnapshot
	totals   *model.ComputedTotals
	currency string
	page     *Page
	y        float64
}

func (r *renderer) text(x float64, value string, size float64, bold bool, align Align, role string) {
	r.page.Texts = append(r.page.Texts, Text{
		X: x, Y: r.y, Value: value, Size: size, Bold: bold, Align: align, Role: role,
	})
}

func (r *renderer) line(value, role string) {
	if strings.TrimSpace(value) == "" {
		return
	}
	r.y += lineStep
	r.text(Margin, value, sizeBody, false, AlignLeft, role)
}

func (r *renderer) rule(y float64) {
	r.page.Rules = append(r.page.Rules, Rule{X1: Margin, Y1: y, X2: PageWidth - Margin, Y2: y, Width: 0.5})
}

func (r *renderer) header() {
	issuer := r.snap.Issuer
	r.y += sizeIssuer
	r.text(Margin, issuer.Name, sizeIssuer, true, AlignLeft, "issuer.name")

	for _, l := range addressLines(issuer.Address) {
		r.line(l, "issuer.line")
	}
	r.line(prefixed(labelTaxID, issuer.TaxID), "issuer.line")
	r.line(prefixed(labelEmail, issuer.Contact.Email), "issuer.line")
	r.line(prefixed(labelPhone, issuer.Contact.Phone), "issuer.line")
}

func (r *renderer) title() {
	r.y += titleGap
	r.text(Margin, labelTitle, sizeTitle, true, AlignLeft, "title")
	r.text(PageWidth-Margin, labelNumber+r.snap.Number, sizeNumber, false, AlignRight, "number")
}

func (r *renderer) recipient() {
	rec := r.snap.Recipient
	r.y += tableGap
	r.text(Margin, labelClient, sizeBody, true, AlignLeft, "recipient.label")
	r.line(rec.Name, "recipient.line")
	for _, l := range addressLines(rec.Address) {
		r.line(l, "recipient.line")
	}
	r.line(prefixed(labelTaxID, rec.TaxID), "recipient.line")
}

func (r *renderer) dates() {
	r.y += sectionGap
	r.text(Margin, labelIssueDate+formatDate(r.snap.IssueDate), sizeBody, false, AlignLeft, "date.issue")
	r.y += lineStep
	r.text(Margin, labelDueDate+formatDate(r.snap.DueDate), sizeBody, false, AlignLeft, "date.due")
}

func (r *renderer) tableHeader() {
	r.y += tableGap
	r.text(colDescription, labelDescription, sizeBody, true, AlignLeft, "table.header")
	r.text(colQuantity, labelQuantity, sizeBody, true, AlignRight, "table.header")
	r.text(colUnitPrice, labelUnitPrice, sizeBody, true, AlignRight, "table.header")
	r.text(colTaxRate, labelTaxRate, sizeBody, true, AlignRight, "table.header")
	r.text(colAmount, labelLineTotal, sizeBody, true, AlignRight, "table.header")
	r.y += ruleSpacing
	r.rule(r.y)
}

func (r *renderer) rows() {
	for i, item := range r.snap.Items {
		r.y += rowHeight
		r.text(colDescription, Truncate(item.Description), sizeBody, false, AlignLeft, "item.description")
		r.text(colQuantity, money.FormatQuantity(item.Quantity), sizeBody, false, AlignRight, "item.quantity")
		r.text(colUnitPrice, money.FormatAmount(item.UnitPrice, r.currency), sizeBody, false, AlignRight, "item.unit_price")
		r.text(colTaxRate, money.FormatRate(item.TaxRate), sizeBody, false, AlignRight, "item.tax_rate")
		r.text(colAmount, money.FormatAmount(r.totals.Line(i), r.currency), sizeBody, false, AlignRight, "item.amount")
	}
	r.rule(r.y + ruleSpacing)
}

func (r *renderer) totalsBlock() {
	t := r.totals
	r.y += footerGap
	r.text(colTotalsLabel, labelSubtotal, sizeBody, false, AlignLeft, "totals.label")
	r.text(colAmount, money.FormatAmount(t.Subtotal, r.currency), sizeBody, false, AlignRight, "totals.subtotal")

	for _, tax := range taxLines(t) {
		r.y += totalStep
		r.text(colTotalsLabel, "TVA ("+money.FormatRate(tax.Rate)+"):", sizeBody, false, AlignLeft, "totals.label")
		r.text(colAmount, money.FormatAmount(tax.Amount, r.currency), sizeBody, false, AlignRight, "totals.tax")
	}

	r.y += grandStep
	r.text(colTotalsLabel, labelTotal, sizeTotal, true, AlignLeft, "totals.label")
	r.text(colAmount, money.FormatAmount(t.Total, r.currency), sizeTotal, true, AlignRight, "totals.total")
}

func (r *renderer) payment() {
	lines := paymentLines(r.snap)
	if len(lines) == 0 {
		return
	}
	r.y += paymentGap
	r.text(Margin, labelPayment, sizeBody, true, AlignLeft, "payment.label")
	for _, l := range lines {
		r.line(l, "payment.line")
	}
}

func (r *renderer) notes() {
	lines := noteLines(r.snap.Notes)
	if len(lines) == 0 {
		return
	}
	r.y += sectionGap
	r.text(Margin, labelNotes, sizeBody, true, AlignLeft, "notes.label")
	for _, l := range lines {
		r.line(l, "notes.line")
	}
}

// taxLines is one line per rate, or the document rate when totals carry no breakdown
func taxLines(t *model.ComputedTotals) []model.TaxSubtotal {
	if len(t.Taxes) > 0 {
		return t.Taxes
	}
	return []model.TaxSubtotal{{Rate: t.TaxRate, Basis: t.Subtotal, Amount: t.TaxAmount}}
}

// footerHeight is the vertical space used below the last item row
func footerHeight(snap *model.InvoiceSnapshot, totals *model.ComputedTotals) float64 {
	h := footerGap + float64(len(taxLines(totals)))*totalStep + grandStep
	if n := len(paymentLines(snap)); n > 0 {
		h += paymentGap + float64(n)*lineStep
	}
	if n := len(noteLines(snap.Notes)); n > 0 {
		h += sectionGap + float64(n)*lineStep
	}
	return h
}

func paymentLines(snap *model.InvoiceSnapshot) []string {
	var lines []string
	bank := snap.Issuer.Bank
	if bank.IBAN != "" {
		lines = append(lines, labelIBAN+bank.IBAN)
		if bank.BIC != "" {
			lines = append(lines, labelBIC+bank.BIC)
		}
	}
	if terms := strings.TrimSpace(snap.PaymentTerms); terms != "" {
		lines = append(lines, labelTerms+terms)
	}
	return lines
}

func noteLines(notes string) []string {
	var lines []string
	for _, l := range strings.Split(notes, "\n") {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		if utf8.RuneCountInString(l) > maxNoteRunes {
			l = string([]rune(l)[:maxNoteRunes]) + "..."
		}
		lines = append(lines, l)
		if len(lines) == maxNoteLines {
			break
		}
	}
	return lines
}

func addressLines(a model.Address) []string {
	cityLine := strings.TrimSpace(a.PostalCode + " " + a.City)
	return []string{a.Street, cityLine, a.Country}
}

func prefixed(label, value string) string {
	if strings.TrimSpace(value) == "" {
		return ""
	}
	return label + value
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(dateLayout)
}
