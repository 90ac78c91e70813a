package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rezonia/invoice-generator/internal/logger"
)

var (
	version = "1.0.0"

	// Global flags
	verbose      bool
	outputFormat string
	logLevel     string
)

var rootCmd = &cobra.Command{
	Use:   "invoice-generator",
	Short: "Generate Factur-X hybrid invoices (PDF/A-3 + EN 16931 XML)",
	Long: `Invoice Generator turns invoice snapshots into Factur-X hybrid documents:
a one-page human-readable PDF/A-3 invoice carrying the same invoice as an
embedded EN 16931 Cross Industry Invoice XML record (factur-x.xml).

Snapshots are JSON or YAML files.

Examples:
  # Generate a document next to the snapshot
  invoice-generator generate invoice.json

  # Generate into a given file
  invoice-generator generate invoice.yaml -o out.pdf

  # Show computed totals
  invoice-generator totals invoice.json -f table

  # Check a generated document
  invoice-generator inspect INV-2025-001_Factur-X.pdf`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "format", "f", "json", "Output format (json, table)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (env: LOG_LEVEL)")

	// Load from environment variables if not set via flags
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	if logLevel == "" {
		logLevel = os.Getenv("LOG_LEVEL")
	}
	if logLevel == "" {
		logLevel = "warn"
		if verbose {
			logLevel = "debug"
		}
	}
}

// newLogger builds the command logger; it writes to stderr so that stdout
// stays machine readable.
func newLogger() *logger.Logger {
	l, err := logger.New(logger.Config{
		Level:       logLevel,
		Development: verbose,
	})
	if err != nil {
		printVerbose("logger unavailable, using defaults: %v\n", err)
		return logger.Default()
	}
	return l
}

func printVerbose(format string, args ...interface{}) {
	if verbose {
		fmt.Fprintf(os.Stderr, format, args...)
	}
}
