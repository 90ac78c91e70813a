package pdfa

import (
	"time"

	"github.com/beevik/etree"

	"github.com/rezonia/invoice-generator/internal/facturx"
)

const (
	nsRDF           = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	nsPDFAID        = "http://www.aiim.org/pdfa/ns/id/"
	nsDC            = "http://purl.org/dc/elements/1.1/"
	nsPDF           = "http://ns.adobe.com/pdf/1.3/"
	nsXMP           = "http://ns.adobe.com/xap/1.0/"
	nsPDFAExtension = "http://www.aiim.org/pdfa/ns/extension/"
	nsPDFASchema    = "http://www.aiim.org/pdfa/ns/schema#"
	nsPDFAProperty  = "http://www.aiim.org/pdfa/ns/property#"

	xpacketID = "W5M0MpCehiHzreSzNTczkc9d"
)

// fxProperties describes the Factur-X extension schema properties
var fxProperties = []struct {
	name        string
	description string
}{
	{"DocumentFileName", "The name of the embedded XML document"},
	{"DocumentType", "The type of the hybrid document in capital letters, e.g. INVOICE or ORDER"},
	{"Version", "The actual version of the standard applying to the embedded XML document"},
	{"ConformanceLevel", "The conformance level of the embedded XML document"},
}

// buildXMP renders the XMP packet identifying the file as PDF/A-3B with a
// Factur-X attachment.
func buildXMP(meta Metadata) ([]byte, error) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xpacket", "begin=\"\ufeff\" id=\""+xpacketID+"\"")

	xmpmeta := doc.CreateElement("x:xmpmeta")
	xmpmeta.CreateAttr("xmlns:x", "adobe:ns:meta/")

	rdf := xmpmeta.CreateElement("rdf:RDF")
	rdf.CreateAttr("xmlns:rdf", nsRDF)

	id := description(rdf, "pdfaid", nsPDFAID)
	id.CreateElement("pdfaid:part").SetText("3")
	id.CreateElement("pdfaid:conformance").SetText("B")

	dc := description(rdf, "dc", nsDC)
	dc.CreateElement("dc:format").SetText("application/pdf")
	if meta.Title != "" {
		langAlt(dc.CreateElement("dc:title"), meta.Title)
	}
	if meta.Author != "" {
		dc.CreateElement("dc:creator").CreateElement("rdf:Seq").CreateElement("rdf:li").SetText(meta.Author)
	}
	if meta.Subject != "" {
		langAlt(dc.CreateElement("dc:description"), meta.Subject)
	}

	pdf := description(rdf, "pdf", nsPDF)
	pdf.CreateElement("pdf:Producer").SetText(meta.Producer)

	date := xmpDate(meta.Date)
	x := description(rdf, "xmp", nsXMP)
	x.CreateElement("xmp:CreatorTool").SetText(meta.Creator)
	x.CreateElement("xmp:CreateDate").SetText(date)
	x.CreateElement("xmp:ModifyDate").SetText(date)
	x.CreateElement("xmp:MetadataDate").SetText(date)

	extensionSchema(rdf)

	fx := description(rdf, facturx.XMPPrefix, facturx.XMPNamespace)
	fx.CreateElement("fx:DocumentType").SetText(facturx.DocumentType)
	fx.CreateElement("fx:DocumentFileName").SetText(facturx.AttachmentName)
	fx.CreateElement("fx:Version").SetText(facturx.Version)
	fx.CreateElement("fx:ConformanceLevel").SetText(facturx.ConformanceLevel)

	doc.CreateProcInst("xpacket", `end="w"`)
	doc.Indent(1)
	return doc.WriteToBytes()
}

func description(rdf *etree.Element, prefix, ns string) *etree.Element {
	d := rdf.CreateElement("rdf:Description")
	d.CreateAttr("rdf:about", "")
	d.CreateAttr("xmlns:"+prefix, ns)
	return d
}

func langAlt(parent *etree.Element, value string) {
	li := parent.CreateElement("rdf:Alt").CreateElement("rdf:li")
	li.CreateAttr("xml:lang", "x-default")
	li.SetText(value)
}

func extensionSchema(rdf *etree.Element) {
	d := rdf.CreateElement("rdf:Description")
	d.CreateAttr("rdf:about", "")
	d.CreateAttr("xmlns:pdfaExtension", nsPDFAExtension)
	d.CreateAttr("xmlns:pdfaSchema", nsPDFASchema)
	d.CreateAttr("xmlns:pdfaProperty", nsPDFAProperty)

	schema := d.CreateElement("pdfaExtension:schemas").
		CreateElement("rdf:Bag").
		CreateElement("rdf:li")
	schema.CreateAttr("rdf:parseType", "Resource")
	schema.CreateElement("pdfaSchema:schema").SetText("Factur-X PDFA Extension Schema")
	schema.CreateElement("pdfaSchema:namespaceURI").SetText(facturx.XMPNamespace)
	schema.CreateElement("pdfaSchema:prefix").SetText(facturx.XMPPrefix)

	seq := schema.CreateElement("pdfaSchema:property").CreateElement("rdf:Seq")
	for _, p := range fxProperties {
		li := seq.CreateElement("rdf:li")
		li.CreateAttr("rdf:parseType", "Resource")
		li.CreateElement("pdfaProperty:name").SetText(p.name)
		li.CreateElement("pdfaProperty:valueType").SetText("Text")
		li.CreateElement("pdfaProperty:category").SetText("external")
		li.CreateElement("pdfaProperty:description").SetText(p.description)
	}
}

func xmpDate(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
