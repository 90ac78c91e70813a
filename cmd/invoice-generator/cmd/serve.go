package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rezonia/invoice-generator/internal/pdfa"
	"github.com/rezonia/invoice-generator/internal/server"
)

var (
	serverAddr     string
	serverDebug    bool
	serverProducer string
	readTimeout    time.Duration
	writeTimeout   time.Duration
	requestTimeout time.Duration
	maxBodyBytes   int64
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start an HTTP API server generating Factur-X documents.

The API provides endpoints for:
  - POST /api/v1/invoices/document    - Generate the hybrid PDF
  - POST /api/v1/invoices/structured  - Generate the CII XML record only
  - POST /api/v1/invoices/totals      - Compute totals
  - POST /api/v1/inspect              - Inspect a Factur-X PDF
  - GET  /health                      - Health check

Request bodies are JSON or YAML snapshots, or a PDF for inspect.

Examples:
  # Start server on default port
  invoice-generator serve

  # Start on custom port with a producer name
  invoice-generator serve --address :9000 --producer acme-billing

  # Start in debug mode
  invoice-generator serve --debug`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serverAddr, "address", ":8080", "Server listen address")
	serveCmd.Flags().BoolVar(&serverDebug, "debug", false, "Enable debug mode")
	serveCmd.Flags().StringVar(&serverProducer, "producer", pdfa.DefaultProducer, "Producer recorded in the document metadata")
	serveCmd.Flags().DurationVar(&readTimeout, "read-timeout", 30*time.Second, "HTTP read timeout")
	serveCmd.Flags().DurationVar(&writeTimeout, "write-timeout", time.Minute, "HTTP write timeout")
	serveCmd.Flags().DurationVar(&requestTimeout, "request-timeout", 30*time.Second, "Generation timeout per request")
	serveCmd.Flags().Int64Var(&maxBodyBytes, "max-body", 10<<20, "Maximum request body size in bytes")
}

func runServe(cmd *cobra.Command, args []string) error {
	log := newLogger()
	defer log.Sync()

	config := &server.Config{
		Address:        serverAddr,
		ReadTimeout:    readTimeout,
		WriteTimeout:   writeTimeout,
		RequestTimeout: requestTimeout,
		MaxBodyBytes:   maxBodyBytes,
		Producer:       serverProducer,
		Debug:          serverDebug,
		Logger:         log,
	}

	srv := server.NewServer(config)

	// Handle graceful shutdown
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(os.Stderr, "Starting server on %s\n", serverAddr)

	if err := srv.RunContext(ctx); err != nil {
		return err
	}
	fmt.Fprintln(os.Stderr, "Server stopped")
	return nil
}
