// Package facturx maps invoice snapshots to the Factur-X structured layer:
// a Cross Industry Invoice (CII) record at the EN 16931 (comfort) profile.
package facturx

import (
	"strings"
	"time"
	"unicode"
)

// Profile identifiers
const (
	GuidelineEN16931 = "urn:cen.eu:en16931:2017"
	ConformanceLevel = "EN 16931"
	Version          = "1.0"
	DocumentType     = "INVOICE"
	AttachmentName   = "factur-x.xml"
	FilenameSuffix   = "_Factur-X.pdf"

	// XMP extension schema for the Factur-X PDF/A-3 identification
	XMPNamespace = "urn:factur-x:pdfa:CrossIndustryDocument:invoice:1p0#"
	XMPPrefix    = "fx"
)

// Code lists used by the mapper
const (
	TypeCodeCommercialInvoice = "380"
	TaxTypeVAT                = "VAT"
	CategoryStandard          = "S"
	CategoryZeroRated         = "Z"
	UnitCodePiece             = "C62"
	PaymentMeansSEPATransfer  = "58"
	SchemeVAT                 = "VA"
	SchemeFiscal              = "FC"
	DateFormat102             = "102"
)

// Filename returns the suggested download name for an invoice number.
// Characters unsafe in a file name or a header value become '-'.
func Filename(number string) string {
	name := strings.TrimSpace(strings.Map(filenameRune, number))
	if name == "" {
		name = "invoice"
	}
	return name + FilenameSuffix
}

func filenameRune(r rune) rune {
	if unicode.IsControl(r) || strings.ContainsRune(`/\":*?<>|`, r) {
		return '-'
	}
	return r
}

func formatDate(t time.Time) DateTime {
	return DateTime{Value: DateString{Format: DateFormat102, Value: t.Format("20060102")}}
}
