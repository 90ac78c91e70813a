package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	money "github.com/rezonia/invoice-generator/internal/decimal"
	"github.com/rezonia/invoice-generator/internal/parser/cii"
	"github.com/rezonia/invoice-generator/internal/parser/pdf"
	"github.com/rezonia/invoice-generator/internal/server"
)

var strict bool

var inspectCmd = &cobra.Command{
	Use:   "inspect [files...]",
	Short: "Inspect generated Factur-X documents",
	Long: `Read Factur-X documents back and report what they contain.

Shows:
  - PDF version, page count and document info
  - Embedded attachments
  - PDF/A and Factur-X identification from the XMP metadata
  - The embedded invoice and any arithmetic inconsistency in it

Examples:
  invoice-generator inspect INV-2025-001_Factur-X.pdf
  invoice-generator inspect build/ --strict -f table`,
	Args: cobra.MinimumNArgs(1),
	RunE: runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)

	inspectCmd.Flags().BoolVar(&strict, "strict", false, "Fail when a document has no record or an inconsistent one")
}

// InspectResult is the report for one file
type InspectResult struct {
	File string `json:"file"`
	server.InspectResponse
	Error string `json:"error,omitempty"`
}

func runInspect(cmd *cobra.Command, args []string) error {
	files, err := collectFiles(args, isPDFFile)
	if err != nil {
		return err
	}

	if len(files) == 0 {
		return fmt.Errorf("no files found")
	}

	extractor := pdf.NewExtractor()
	reader := cii.NewReader()

	results := make([]InspectResult, 0, len(files))
	bad := 0
	for _, file := range files {
		r := inspectFile(cmd, extractor, reader, file)
		if r.Error != "" || (strict && !r.consistent()) {
			bad++
		}
		results = append(results, r)
	}

	t := &table{header: []string{"FILE", "VERSION", "PAGES", "PDF/A", "PROFILE", "INVOICE", "TOTAL", "PROBLEMS"}}
	for _, r := range results {
		if r.Error != "" {
			t.add(r.File, "", "", "", "", "", "", r.Error)
			continue
		}
		row := []string{r.File, r.Container.Version, fmt.Sprint(r.Container.PageCount), pdfaID(r.Container.Conformance),
			r.Container.Conformance.ConformanceLevel, "", "", strings.Join(r.Problems, "; ")}
		if r.Invoice != nil {
			row[5] = r.Invoice.Number
			row[6] = money.FormatAmount(r.Invoice.Total, r.Invoice.Currency)
		}
		t.add(row...)
	}

	if err := output(cmd.OutOrStdout(), results, t); err != nil {
		return err
	}
	if bad > 0 {
		return fmt.Errorf("%d of %d documents failed inspection", bad, len(files))
	}
	return nil
}

func inspectFile(cmd *cobra.Command, extractor *pdf.Extractor, reader *cii.Reader, file string) InspectResult {
	result := InspectResult{File: file}
	printVerbose("Inspecting %s\n", file)

	data, err := os.ReadFile(file)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	container, err := extractor.Extract(data)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.Container = container

	if !container.HasStructuredRecord() {
		result.Problems = []string{"no factur-x.xml attachment"}
		return result
	}

	summary, err := reader.ParseBytes(cmd.Context(), container.StructuredXML)
	if err != nil {
		result.Problems = []string{err.Error()}
		return result
	}
	result.Invoice = summary
	result.Problems = summary.Check()
	return result
}

func (r InspectResult) consistent() bool {
	return r.Invoice != nil && len(r.Problems) == 0
}

func pdfaID(c pdf.Conformance) string {
	if c.PDFAPart == "" {
		return ""
	}
	return c.PDFAPart + c.PDFAConformance
}
