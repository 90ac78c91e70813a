package facturx

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"

	money "github.com/rezonia/invoice-generator/internal/decimal"
	"github.com/rezonia/invoice-generator/internal/model"
)

// Map builds the structured trade record for a snapshot.
// Every amount in the record is taken from totals; nothing is recomputed.
func Map(snap *model.InvoiceSnapshot, totals *model.ComputedTotals) (*Invoice, error) {
	if snap == nil {
		return nil, model.NewMappingError("snapshot", "snapshot is required", nil)
	}
	if totals == nil {
		return nil, model.NewMappingError("totals", "computed totals are required", nil)
	}
	if err := checkRequired(snap); err != nil {
		return nil, err
	}
	if len(totals.Lines) != len(snap.Items) {
		return nil, model.NewMappingError("totals.lines",
			"line amounts do not match items ("+strconv.Itoa(len(totals.Lines))+" != "+strconv.Itoa(len(snap.Items))+")", nil)
	}

	seller, err := mapParty("issuer", snap.Issuer, true)
	if err != nil {
		return nil, err
	}
	buyer, err := mapParty("recipient", snap.Recipient, false)
	if err != nil {
		return nil, err
	}

	currency := snap.Currency
	if currency == "" {
		currency = model.DefaultCurrency
	}

	inv := &Invoice{
		XmlnsRSM: NamespaceRSM,
		XmlnsQDT: NamespaceQDT,
		XmlnsRAM: NamespaceRAM,
		XmlnsUDT: NamespaceUDT,
		Context: DocumentContext{
			Guideline: IDHolder{ID: GuidelineEN16931},
		},
		Document: ExchangedDoc{
			ID:        snap.Number,
			TypeCode:  TypeCodeCommercialInvoice,
			IssueDate: formatDate(snap.IssueDate),
		},
	}

	if notes := strings.TrimSpace(snap.Notes); notes != "" {
		inv.Document.Notes = []Note{{Content: notes}}
	}

	lines := make([]LineItem, len(snap.Items))
	for i, item := range snap.Items {
		lines[i] = mapLine(i, item, totals.Lines[i])
	}

	inv.Transaction = TradeTransaction{
		Lines: lines,
		Agreement: HeaderAgreement{
			Seller: seller,
			Buyer:  buyer,
		},
		// The snapshot has no delivery date; the issue date stands in for it.
		Delivery: HeaderDelivery{
			Event: &DeliveryEvent{Occurrence: formatDate(snap.IssueDate)},
		},
		Settlement: HeaderSettlement{
			Currency:     currency,
			PaymentMeans: mapPaymentMeans(snap.Issuer.Bank),
			Taxes:        mapHeaderTaxes(totals),
			PaymentTerms: mapPaymentTerms(snap),
			Summation: Summation{
				LineTotal:     money.Fixed(totals.Subtotal),
				TaxBasisTotal: money.Fixed(totals.Subtotal),
				TaxTotal:      Amount{CurrencyID: currency, Value: money.Fixed(totals.TaxAmount)},
				GrandTotal:    money.Fixed(totals.Total),
				DuePayable:    money.Fixed(totals.Total),
			},
		},
	}

	return inv, nil
}

// mapHeaderTaxes writes one breakdown per item rate. Totals built without a
// breakdown fall back to a single entry at the document rate.
func mapHeaderTaxes(totals *model.ComputedTotals) []HeaderTax {
	breakdown := totals.Taxes
	if len(breakdown) == 0 {
		breakdown = []model.TaxSubtotal{{Rate: totals.TaxRate, Basis: totals.Subtotal, Amount: totals.TaxAmount}}
	}
	taxes := make([]HeaderTax, len(breakdown))
	for i, t := range breakdown {
		taxes[i] = HeaderTax{
			CalculatedAmount: money.Fixed(t.Amount),
			TypeCode:         TaxTypeVAT,
			BasisAmount:      money.Fixed(t.Basis),
			CategoryCode:     taxCategory(t.Rate),
			Rate:             money.Fixed(t.Rate),
		}
	}
	return taxes
}

func checkRequired(snap *model.InvoiceSnapshot) error {
	switch {
	case strings.TrimSpace(snap.Number) == "":
		return model.NewMappingError("number", "invoice number is required", nil)
	case strings.TrimSpace(snap.Issuer.Name) == "":
		return model.NewMappingError("issuer.name", "issuer name is required", nil)
	case strings.TrimSpace(snap.Recipient.Name) == "":
		return model.NewMappingError("recipient.name", "recipient name is required", nil)
	case snap.IssueDate.IsZero():
		return model.NewMappingError("issue_date", "issue date is required", nil)
	case snap.DueDate.IsZero():
		return model.NewMappingError("due_date", "due date is required", nil)
	}
	return nil
}

func mapParty(field string, p model.Party, withContact bool) (TradeParty, error) {
	country, ok := CountryCode(p.Address.Country)
	if !ok {
		return TradeParty{}, model.NewMappingError(field+".address.country",
			"unknown country "+strconv.Quote(p.Address.Country), nil)
	}

	party := TradeParty{
		Name: p.Name,
		Address: &PostalAddress{
			PostcodeCode: p.Address.PostalCode,
			LineOne:      p.Address.Street,
			CityName:     p.Address.City,
			CountryID:    country,
		},
	}

	if withContact && !p.Contact.IsEmpty() {
		contact := &TradeContact{PersonName: p.Contact.Name}
		if p.Contact.Phone != "" {
			contact.Telephone = &UniversalCommPhone{CompleteNumber: p.Contact.Phone}
		}
		if p.Contact.Email != "" {
			contact.Email = &UniversalCommURI{URIID: p.Contact.Email}
		}
		party.Contact = contact
	}

	if id := strings.TrimSpace(p.TaxID); id != "" {
		party.TaxRegistration = &TaxRegistration{ID: SchemeID{SchemeID: taxScheme(id), Value: id}}
	}

	return party, nil
}

// taxScheme is VA for identifiers carrying a country prefix (intra-EU VAT numbers),
// FC for national fiscal numbers such as a SIRET.
func taxScheme(id string) string {
	r := []rune(id)
	if len(r) >= 2 && unicode.IsLetter(r[0]) && unicode.IsLetter(r[1]) {
		return SchemeVAT
	}
	return SchemeFiscal
}

func mapLine(i int, item model.LineItem, amount decimal.Decimal) LineItem {
	return LineItem{
		Document: LineDocument{LineID: strconv.Itoa(i + 1)},
		Product:  TradeProduct{Name: item.Description},
		Agreement: LineAgreement{
			NetPrice: TradePrice{ChargeAmount: formatPrice(item.UnitPrice)},
		},
		Delivery: LineDelivery{
			BilledQuantity: Quantity{UnitCode: UnitCodePiece, Value: formatQuantity(item.Quantity)},
		},
		Settlement: LineSettlement{
			Tax: LineTax{
				TypeCode:     TaxTypeVAT,
				CategoryCode: taxCategory(item.TaxRate),
				Rate:         money.Fixed(item.TaxRate),
			},
			Summation: LineSummation{LineTotal: money.Fixed(amount)},
		},
	}
}

func mapPaymentMeans(bank model.Bank) *PaymentMeans {
	iban := strings.ReplaceAll(strings.TrimSpace(bank.IBAN), " ", "")
	if iban == "" {
		return nil
	}
	pm := &PaymentMeans{
		TypeCode: PaymentMeansSEPATransfer,
		Account:  &CreditorAccount{IBANID: iban},
	}
	if bic := strings.TrimSpace(bank.BIC); bic != "" {
		pm.Institution = &CreditorInstitut{BICID: bic}
	}
	return pm
}

// mapPaymentTerms always carries the due date; the description only when
// the snapshot has payment terms.
func mapPaymentTerms(snap *model.InvoiceSnapshot) *PaymentTerms {
	due := formatDate(snap.DueDate)
	return &PaymentTerms{
		Description: strings.TrimSpace(snap.PaymentTerms),
		DueDate:     &due,
	}
}

func taxCategory(rate decimal.Decimal) string {
	if rate.IsZero() {
		return CategoryZeroRated
	}
	return CategoryStandard
}

// formatPrice keeps up to 4 fractional digits for unit prices, at least 2
func formatPrice(d decimal.Decimal) string {
	s := d.StringFixed(4)
	for strings.HasSuffix(s, "0") && len(s)-strings.IndexByte(s, '.') > money.Scale+1 {
		s = s[:len(s)-1]
	}
	return s
}

func formatQuantity(d decimal.Decimal) string {
	return d.StringFixed(4)
}
