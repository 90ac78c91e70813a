package facturx

import "encoding/xml"

// CII namespaces
const (
	NamespaceRSM = "urn:un:unece:uncefact:data:standard:CrossIndustryInvoice:100"
	NamespaceRAM = "urn:un:unece:uncefact:data:standard:ReusableAggregateBusinessInformationEntity:100"
	NamespaceQDT = "urn:un:unece:uncefact:data:standard:QualifiedDataType:100"
	NamespaceUDT = "urn:un:unece:uncefact:data:standard:UnqualifiedDataType:100"
)

// Invoice is the rsm:CrossIndustryInvoice root.
// Element order follows the CII D16B schema sequence.
type Invoice struct {
	XMLName  xml.Name `xml:"rsm:CrossIndustryInvoice"`
	XmlnsRSM string   `xml:"xmlns:rsm,attr"`
	XmlnsQDT string   `xml:"xmlns:qdt,attr"`
	XmlnsRAM string   `xml:"xmlns:ram,attr"`
	XmlnsUDT string   `xml:"xmlns:udt,attr"`

	Context     DocumentContext  `xml:"rsm:ExchangedDocumentContext"`
	Document    ExchangedDoc     `xml:"rsm:ExchangedDocument"`
	Transaction TradeTransaction `xml:"rsm:SupplyChainTradeTransaction"`
}

// DocumentContext carries the profile guideline identifier
type DocumentContext struct {
	Guideline IDHolder `xml:"ram:GuidelineSpecifiedDocumentContextParameter"`
}

type IDHolder struct {
	ID string `xml:"ram:ID"`
}

// ExchangedDoc is the document header
type ExchangedDoc struct {
	ID        string   `xml:"ram:ID"`
	TypeCode  string   `xml:"ram:TypeCode"`
	IssueDate DateTime `xml:"ram:IssueDateTime"`
	Notes     []Note   `xml:"ram:IncludedNote,omitempty"`
}

type Note struct {
	Content string `xml:"ram:Content"`
}

// DateTime wraps a udt:DateTimeString in format 102 (yyyyMMdd)
type DateTime struct {
	Value DateString `xml:"udt:DateTimeString"`
}

type DateString struct {
	Format string `xml:"format,attr"`
	Value  string `xml:",chardata"`
}

type TradeTransaction struct {
	Lines      []LineItem       `xml:"ram:IncludedSupplyChainTradeLineItem"`
	Agreement  HeaderAgreement  `xml:"ram:ApplicableHeaderTradeAgreement"`
	Delivery   HeaderDelivery   `xml:"ram:ApplicableHeaderTradeDelivery"`
	Settlement HeaderSettlement `xml:"ram:ApplicableHeaderTradeSettlement"`
}

type LineItem struct {
	Document   LineDocument   `xml:"ram:AssociatedDocumentLineDocument"`
	Product    TradeProduct   `xml:"ram:SpecifiedTradeProduct"`
	Agreement  LineAgreement  `xml:"ram:SpecifiedLineTradeAgreement"`
	Delivery   LineDelivery   `xml:"ram:SpecifiedLineTradeDelivery"`
	Settlement LineSettlement `xml:"ram:SpecifiedLineTradeSettlement"`
}

type LineDocument struct {
	LineID string `xml:"ram:LineID"`
}

type TradeProduct struct {
	Name string `xml:"ram:Name"`
}

type LineAgreement struct {
	NetPrice TradePrice `xml:"ram:NetPriceProductTradePrice"`
}

type TradePrice struct {
	ChargeAmount string `xml:"ram:ChargeAmount"`
}

type LineDelivery struct {
	BilledQuantity Quantity `xml:"ram:BilledQuantity"`
}

type Quantity struct {
	UnitCode string `xml:"unitCode,attr"`
	Value    string `xml:",chardata"`
}

type LineSettlement struct {
	Tax       LineTax       `xml:"ram:ApplicableTradeTax"`
	Summation LineSummation `xml:"ram:SpecifiedTradeSettlementLineMonetarySummation"`
}

type LineTax struct {
	TypeCode     string `xml:"ram:TypeCode"`
	CategoryCode string `xml:"ram:CategoryCode"`
	Rate         string `xml:"ram:RateApplicablePercent"`
}

type LineSummation struct {
	LineTotal string `xml:"ram:LineTotalAmount"`
}

type HeaderAgreement struct {
	Seller TradeParty `xml:"ram:SellerTradeParty"`
	Buyer  TradeParty `xml:"ram:BuyerTradeParty"`
}

// TradeParty is a seller or buyer
type TradeParty struct {
	Name            string           `xml:"ram:Name"`
	Contact         *TradeContact    `xml:"ram:DefinedTradeContact,omitempty"`
	Address         *PostalAddress   `xml:"ram:PostalTradeAddress,omitempty"`
	TaxRegistration *TaxRegistration `xml:"ram:SpecifiedTaxRegistration,omitempty"`
}

type TradeContact struct {
	PersonName string              `xml:"ram:PersonName,omitempty"`
	Telephone  *UniversalCommPhone `xml:"ram:TelephoneUniversalCommunication,omitempty"`
	Email      *UniversalCommURI   `xml:"ram:EmailURIUniversalCommunication,omitempty"`
}

type UniversalCommPhone struct {
	CompleteNumber string `xml:"ram:CompleteNumber"`
}

type UniversalCommURI struct {
	URIID string `xml:"ram:URIID"`
}

type PostalAddress struct {
	PostcodeCode string `xml:"ram:PostcodeCode,omitempty"`
	LineOne      string `xml:"ram:LineOne,omitempty"`
	CityName     string `xml:"ram:CityName,omitempty"`
	CountryID    string `xml:"ram:CountryID"`
}

type TaxRegistration struct {
	ID SchemeID `xml:"ram:ID"`
}

type SchemeID struct {
	SchemeID string `xml:"schemeID,attr"`
	Value    string `xml:",chardata"`
}

type HeaderDelivery struct {
	Event *DeliveryEvent `xml:"ram:ActualDeliverySupplyChainEvent,omitempty"`
}

type DeliveryEvent struct {
	Occurrence DateTime `xml:"ram:OccurrenceDateTime"`
}

type HeaderSettlement struct {
	Currency     string        `xml:"ram:InvoiceCurrencyCode"`
	PaymentMeans *PaymentMeans `xml:"ram:SpecifiedTradeSettlementPaymentMeans,omitempty"`
	Taxes        []HeaderTax   `xml:"ram:ApplicableTradeTax"`
	PaymentTerms *PaymentTerms `xml:"ram:SpecifiedTradePaymentTerms,omitempty"`
	Summation    Summation     `xml:"ram:SpecifiedTradeSettlementHeaderMonetarySummation"`
}

type PaymentMeans struct {
	TypeCode    string            `xml:"ram:TypeCode"`
	Account     *CreditorAccount  `xml:"ram:PayeePartyCreditorFinancialAccount,omitempty"`
	Institution *CreditorInstitut `xml:"ram:PayeeSpecifiedCreditorFinancialInstitution,omitempty"`
}

type CreditorAccount struct {
	IBANID string `xml:"ram:IBANID"`
}

type CreditorInstitut struct {
	BICID string `xml:"ram:BICID"`
}

type HeaderTax struct {
	CalculatedAmount string `xml:"ram:CalculatedAmount"`
	TypeCode         string `xml:"ram:TypeCode"`
	BasisAmount      string `xml:"ram:BasisAmount"`
	CategoryCode     string `xml:"ram:CategoryCode"`
	Rate             string `xml:"ram:RateApplicablePercent"`
}

type PaymentTerms struct {
	Description string    `xml:"ram:Description,omitempty"`
	DueDate     *DateTime `xml:"ram:DueDateDateTime,omitempty"`
}

type Summation struct {
	LineTotal     string `xml:"ram:LineTotalAmount"`
	TaxBasisTotal string `xml:"ram:TaxBasisTotalAmount"`
	TaxTotal      Amount `xml:"ram:TaxTotalAmount"`
	GrandTotal    string `xml:"ram:GrandTotalAmount"`
	DuePayable    string `xml:"ram:DuePayableAmount"`
}

type Amount struct {
	CurrencyID string `xml:"currencyID,attr"`
	Value      string `xml:",chardata"`
}

// Marshal serializes the record as an indented XML document with declaration
func Marshal(inv *Invoice) ([]byte, error) {
	body, err := xml.MarshalIndent(inv, "", "  ")
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(xml.Header)+len(body)+1)
	out = append(out, xml.Header...)
	out = append(out, body...)
	out = append(out, '\n')
	return out, nil
}
