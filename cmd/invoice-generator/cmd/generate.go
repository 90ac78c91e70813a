package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	money "github.com/rezonia/invoice-generator/internal/decimal"
	"github.com/rezonia/invoice-generator/internal/pdfa"
	"github.com/rezonia/invoice-generator/internal/processor"
)

var (
	outputFile  string
	outputDir   string
	writeXML    bool
	producer    string
	concurrency int
	timeout     time.Duration
)

var generateCmd = &cobra.Command{
	Use:   "generate [snapshots...]",
	Short: "Generate Factur-X documents from invoice snapshots",
	Long: `Generate one Factur-X hybrid PDF per invoice snapshot.

Supported snapshot formats:
  - JSON: .json
  - YAML: .yaml, .yml

Documents are named <invoice number>_Factur-X.pdf and written to the
output directory, unless a single snapshot is given with --output.

Examples:
  invoice-generator generate invoice.json
  invoice-generator generate invoice.yaml -o facture.pdf
  invoice-generator generate snapshots/ --out-dir build --xml
  invoice-generator generate *.json -f table`,
	Args: cobra.MinimumNArgs(1),
	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (single snapshot only)")
	generateCmd.Flags().StringVar(&outputDir, "out-dir", ".", "Output directory")
	generateCmd.Flags().BoolVar(&writeXML, "xml", false, "Also write the structured record next to each document")
	generateCmd.Flags().StringVar(&producer, "producer", pdfa.DefaultProducer, "Producer recorded in the document metadata")
	generateCmd.Flags().IntVar(&concurrency, "concurrency", 4, "Documents generated in parallel")
	generateCmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "Generation timeout per snapshot")
}

// GenerateResult is the outcome for one snapshot
type GenerateResult struct {
	Source string `json:"source"`
	Number string `json:"number,omitempty"`
	Output string `json:"output,omitempty"`
	Total  string `json:"total,omitempty"`
	Error  string `json:"error,omitempty"`
	Kind   string `json:"kind,omitempty"`
}

func runGenerate(cmd *cobra.Command, args []string) error {
	files, err := collectFiles(args, isSnapshotFile)
	if err != nil {
		return err
	}

	if len(files) == 0 {
		return fmt.Errorf("no snapshots found")
	}
	if outputFile != "" && len(files) > 1 {
		return fmt.Errorf("--output needs exactly one snapshot, got %d", len(files))
	}

	printVerbose("Found %d snapshots\n", len(files))

	log := newLogger()
	defer log.Sync()

	pipeline := processor.NewPipeline(
		processor.WithAssembler(pdfa.NewAssembler(pdfa.WithProducer(producer))),
		processor.WithLogger(log),
	)

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	results := make([]GenerateResult, len(files))
	g, ctx := errgroup.WithContext(cmd.Context())
	if concurrency > 0 {
		g.SetLimit(concurrency)
	}
	for i, file := range files {
		i, file := i, file
		g.Go(func() error {
			results[i] = generateFile(ctx, pipeline, file)
			return nil
		})
	}
	_ = g.Wait()

	t := &table{header: []string{"SOURCE", "NUMBER", "OUTPUT", "TOTAL", "ERROR"}}
	failed := 0
	for _, r := range results {
		if r.Error != "" {
			failed++
		}
		t.add(r.Source, r.Number, r.Output, r.Total, r.Error)
	}

	if err := output(cmd.OutOrStdout(), results, t); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d snapshots failed", failed, len(files))
	}
	return nil
}

func generateFile(parent context.Context, pipeline *processor.Pipeline, file string) GenerateResult {
	result := GenerateResult{Source: file}
	printVerbose("Generating from %s\n", file)

	data, err := os.ReadFile(file)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	snap, err := processor.DecodeSnapshot(data)
	if err != nil {
		result.Error = err.Error()
		result.Kind = processor.Kind(err)
		return result
	}
	result.Number = snap.Number

	ctx := parent
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(parent, timeout)
		defer cancel()
	}

	doc, err := pipeline.Generate(ctx, snap)
	if err != nil {
		result.Error = err.Error()
		result.Kind = processor.Kind(err)
		return result
	}

	target := outputFile
	if target == "" {
		target = filepath.Join(outputDir, doc.Filename)
	}
	if err := os.WriteFile(target, doc.Bytes, 0o644); err != nil {
		result.Error = err.Error()
		return result
	}
	if writeXML {
		xmlPath := strings.TrimSuffix(target, filepath.Ext(target)) + ".xml"
		if err := os.WriteFile(xmlPath, doc.XML, 0o644); err != nil {
			result.Error = err.Error()
			return result
		}
	}

	result.Output = target
	result.Total = money.FormatAmount(doc.Totals.Total, snap.CurrencyCode())
	return result
}
