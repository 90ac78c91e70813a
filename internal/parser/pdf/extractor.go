// Package pdf reads generated invoice containers back: it validates the file,
// reports its pages and attachments and returns the embedded structured record.
package pdf

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/beevik/etree"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	pdfmodel "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/rezonia/invoice-generator/internal/facturx"
	"github.com/rezonia/invoice-generator/internal/model"
)

var disableConfigDir sync.Once

// Attachment describes one embedded file
type Attachment struct {
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Size        int        `json:"size"`
	ModTime     *time.Time `json:"mod_time,omitempty"`
}

// Conformance is what the XMP packet claims about the file
type Conformance struct {
	PDFAPart         string `json:"pdfa_part,omitempty"`
	PDFAConformance  string `json:"pdfa_conformance,omitempty"`
	DocumentType     string `json:"document_type,omitempty"`
	DocumentFileName string `json:"document_file_name,omitempty"`
	Version          string `json:"version,omitempty"`
	ConformanceLevel string `json:"conformance_level,omitempty"`
}

// Container is the report for one file
type Container struct {
	Version     string       `json:"version"`
	PageCount   int          `json:"page_count"`
	Title       string       `json:"title,omitempty"`
	Author      string       `json:"author,omitempty"`
	Producer    string       `json:"producer,omitempty"`
	Attachments []Attachment `json:"attachments"`
	Conformance Conformance  `json:"conformance"`

	// StructuredXML is the factur-x.xml attachment, nil when absent
	StructuredXML []byte `json:"-"`
}

// HasStructuredRecord reports whether the Factur-X attachment was found
func (c *Container) HasStructuredRecord() bool {
	return len(c.StructuredXML) > 0
}

// Extractor reads containers with pdfcpu
type Extractor struct{}

// NewExtractor creates a new extractor
func NewExtractor() *Extractor {
	disableConfigDir.Do(api.DisableConfigDir)
	return &Extractor{}
}

// Extract validates data and reports its content
func (e *Extractor) Extract(data []byte) (*Container, error) {
	if len(data) == 0 {
		return nil, model.NewDecodeError("pdf", "empty input", nil)
	}

	conf := pdfmodel.NewDefaultConfiguration()
	conf.ValidationMode = pdfmodel.ValidationRelaxed

	ctx, err := api.ReadAndValidate(bytes.NewReader(data), conf)
	if err != nil {
		return nil, model.NewDecodeError("pdf", "not a valid PDF", err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return nil, model.NewDecodeError("pdf", "cannot count pages", err)
	}

	c := &Container{
		Version:     ctx.VersionString(),
		PageCount:   ctx.PageCount,
		Title:       ctx.Title,
		Author:      ctx.Author,
		Producer:    ctx.Producer,
		Attachments: []Attachment{},
	}

	if conformance, err := readConformance(ctx); err == nil {
		c.Conformance = conformance
	}

	files, err := ctx.ListAttachments()
	if err != nil {
		return nil, model.NewDecodeError("pdf", "cannot list attachments", err)
	}
	if len(files) == 0 {
		return c, nil
	}

	extracted, err := ctx.ExtractAttachments(nil)
	if err != nil {
		return nil, model.NewDecodeError("pdf", "cannot extract attachments", err)
	}
	for _, a := range extracted {
		content, err := io.ReadAll(a.Reader)
		if err != nil {
			return nil, model.NewDecodeError("pdf", fmt.Sprintf("cannot read attachment %s", a.FileName), err)
		}
		c.Attachments = append(c.Attachments, Attachment{
			Name:        a.FileName,
			Description: a.Desc,
			Size:        len(content),
			ModTime:     a.ModTime,
		})
		if a.FileName == facturx.AttachmentName {
			c.StructuredXML = content
		}
	}
	sort.Slice(c.Attachments, func(i, j int) bool {
		return c.Attachments[i].Name < c.Attachments[j].Name
	})

	return c, nil
}

// ExtractXML returns the embedded Factur-X record
func (e *Extractor) ExtractXML(data []byte) ([]byte, error) {
	c, err := e.Extract(data)
	if err != nil {
		return nil, err
	}
	if !c.HasStructuredRecord() {
		return nil, model.NewDecodeError("pdf", fmt.Sprintf("no %s attachment", facturx.AttachmentName), nil)
	}
	return c.StructuredXML, nil
}

// readConformance pulls the identification entries out of the catalog XMP
func readConformance(ctx *pdfmodel.Context) (Conformance, error) {
	var c Conformance

	root, err := ctx.Catalog()
	if err != nil {
		return c, err
	}
	ref := root.IndirectRefEntry("Metadata")
	if ref == nil {
		return c, fmt.Errorf("no metadata stream")
	}
	sd, _, err := ctx.DereferenceStreamDict(*ref)
	if err != nil {
		return c, err
	}
	if sd == nil {
		return c, fmt.Errorf("metadata stream missing")
	}
	if err := sd.Decode(); err != nil {
		return c, err
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(sd.Content); err != nil {
		return c, err
	}

	c.PDFAPart = findText(doc, "pdfaid:part")
	c.PDFAConformance = findText(doc, "pdfaid:conformance")
	c.DocumentType = findText(doc, facturx.XMPPrefix+":DocumentType")
	c.DocumentFileName = findText(doc, facturx.XMPPrefix+":DocumentFileName")
	c.Version = findText(doc, facturx.XMPPrefix+":Version")
	c.ConformanceLevel = findText(doc, facturx.XMPPrefix+":ConformanceLevel")
	return c, nil
}

func findText(doc *etree.Document, tag string) string {
	if el := doc.FindElement("//" + tag); el != nil {
		return el.Text()
	}
	return ""
}
