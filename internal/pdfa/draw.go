package pdfa

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/rezonia/invoice-generator/internal/layout"
)

const fontFamily = "Go"

// drawPage renders the display list with embedded TrueType fonts and writes
// the XMP packet as an uncompressed metadata stream.
// Nothing references an external font so the file stays self-contained.
func drawPage(page *layout.Page, meta Metadata, xmp []byte, compress bool) (out []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf writer panic: %v", r)
		}
	}()

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           gofpdf.SizeType{Wd: page.Width, Ht: page.Height},
	})
	pdf.SetCompression(compress)
	pdf.SetCatalogSort(true)
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)

	pdf.AddUTF8FontFromBytes(fontFamily, "", goregular.TTF)
	pdf.AddUTF8FontFromBytes(fontFamily, "B", gobold.TTF)

	for _, field := range []struct {
		set   func(string, bool)
		value string
	}{
		{pdf.SetTitle, meta.Title},
		{pdf.SetAuthor, meta.Author},
		{pdf.SetSubject, meta.Subject},
		{pdf.SetCreator, meta.Creator},
		{pdf.SetProducer, meta.Producer},
	} {
		if field.value != "" {
			field.set(field.value, true)
		}
	}
	pdf.SetCreationDate(meta.Date)
	pdf.SetModificationDate(meta.Date)
	pdf.SetXmpMetadata(xmp)

	pdf.AddPage()
	pdf.SetTextColor(0, 0, 0)
	pdf.SetDrawColor(0, 0, 0)

	for _, t := range page.Texts {
		style := ""
		if t.Bold {
			style = "B"
		}
		pdf.SetFont(fontFamily, style, t.Size)

		x := t.X
		if t.Align == layout.AlignRight {
			x -= pdf.GetStringWidth(t.Value)
		}
		pdf.Text(x, t.Y, t.Value)
	}

	for _, r := range page.Rules {
		pdf.SetLineWidth(r.Width)
		pdf.Line(r.X1, r.Y1, r.X2, r.Y2)
	}

	if err := pdf.Error(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
