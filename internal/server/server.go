package server

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	money "github.com/rezonia/invoice-generator/internal/decimal"
	"github.com/rezonia/invoice-generator/internal/logger"
	"github.com/rezonia/invoice-generator/internal/model"
	"github.com/rezonia/invoice-generator/internal/parser/cii"
	"github.com/rezonia/invoice-generator/internal/parser/pdf"
	"github.com/rezonia/invoice-generator/internal/pdfa"
	"github.com/rezonia/invoice-generator/internal/processor"
)

// Config holds server configuration
type Config struct {
	Address        string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	RequestTimeout time.Duration
	MaxBodyBytes   int64
	Producer       string
	Debug          bool
	Logger         *logger.Logger
}

const (
	defaultRequestTimeout = 30 * time.Second
	defaultMaxBodyBytes   = 10 << 20
	shutdownTimeout       = 10 * time.Second
)

// Server represents the HTTP API server
type Server struct {
	config    *Config
	router    *gin.Engine
	pipeline  *processor.Pipeline
	extractor *pdf.Extractor
	reader    *cii.Reader
	log       *logger.Logger
}

// NewServer creates a new API server
func NewServer(config *Config) *Server {
	if !config.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = defaultRequestTimeout
	}
	if config.MaxBodyBytes <= 0 {
		config.MaxBodyBytes = defaultMaxBodyBytes
	}

	log := config.Logger
	if log == nil {
		log = logger.Nop()
	}
	log = log.WithComponent("server")

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(log))

	var assemblerOpts []pdfa.Option
	if config.Producer != "" {
		assemblerOpts = append(assemblerOpts, pdfa.WithProducer(config.Producer))
	}

	s := &Server{
		config: config,
		router: router,
		pipeline: processor.NewPipeline(
			processor.WithLogger(config.Logger),
			processor.WithAssembler(pdfa.NewAssembler(assemblerOpts...)),
		),
		extractor: pdf.NewExtractor(),
		reader:    cii.NewReader(),
		log:       log,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	v1 := s.router.Group("/api/v1")
	v1.Use(limitBody(s.config.MaxBodyBytes))
	{
		v1.POST("/invoices/document", s.handleDocument)
		v1.POST("/invoices/structured", s.handleStructured)
		v1.POST("/invoices/totals", s.handleTotals)

		v1.POST("/inspect", s.handleInspect)
	}
}

// Run starts the HTTP server
func (s *Server) Run() error {
	return s.RunContext(context.Background())
}

// RunContext serves until ctx is done, then drains in-flight requests for
// at most shutdownTimeout.
func (s *Server) RunContext(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.config.Address,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Infow("listening", "address", s.config.Address)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Infow("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Handler returns the http.Handler for use with custom servers
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleDocument(c *gin.Context) {
	snap, ok := s.readSnapshot(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.config.RequestTimeout)
	defer cancel()

	doc, err := s.pipeline.Generate(ctx, snap)
	if err != nil {
		writeError(c, err)
		return
	}

	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": doc.Filename}))
	c.Header("X-Invoice-Total", money.Fixed(doc.Totals.Total))
	c.Data(http.StatusOK, "application/pdf", doc.Bytes)
}

func (s *Server) handleStructured(c *gin.Context) {
	snap, ok := s.readSnapshot(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.config.RequestTimeout)
	defer cancel()

	data, err := s.pipeline.Structured(ctx, snap)
	if err != nil {
		writeError(c, err)
		return
	}

	c.Data(http.StatusOK, "application/xml; charset=utf-8", data)
}

func (s *Server) handleTotals(c *gin.Context) {
	snap, ok := s.readSnapshot(c)
	if !ok {
		return
	}

	totals, err := s.pipeline.Totals(snap)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, NewTotalsResponse(snap.CurrencyCode(), totals))
}

func (s *Server) handleInspect(c *gin.Context) {
	body, ok := readBody(c)
	if !ok {
		return
	}

	if processor.DetectFormat(body) != processor.FormatPDF {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "unsupported file format", Kind: processor.KindDecode})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.config.RequestTimeout)
	defer cancel()

	container, err := s.extractor.Extract(body)
	if err != nil {
		writeError(c, err)
		return
	}

	resp := InspectResponse{Container: container}
	if container.HasStructuredRecord() {
		summary, err := s.reader.ParseBytes(ctx, container.StructuredXML)
		if err != nil {
			writeError(c, err)
			return
		}
		resp.Invoice = summary
		resp.Problems = summary.Check()
	}

	c.JSON(http.StatusOK, resp)
}

// readSnapshot decodes a JSON or YAML snapshot from the request body and
// writes the error response itself when it fails.
func (s *Server) readSnapshot(c *gin.Context) (*model.InvoiceSnapshot, bool) {
	body, ok := readBody(c)
	if !ok {
		return nil, false
	}

	snap, err := processor.DecodeSnapshot(body)
	if err != nil {
		writeError(c, err)
		return nil, false
	}
	return snap, true
}

func readBody(c *gin.Context) ([]byte, bool) {
	body, err := c.GetRawData()
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{Error: "request body too large"})
			return nil, false
		}
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "failed to read request body"})
		return nil, false
	}

	if len(body) == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "empty request body"})
		return nil, false
	}
	return body, true
}

// writeError maps generation errors to status codes
func writeError(c *gin.Context, err error) {
	kind := processor.Kind(err)

	status := http.StatusInternalServerError
	switch {
	case kind == processor.KindInvalidAmount, kind == processor.KindRenderOverflow, kind == processor.KindDecode:
		status = http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	}

	_ = c.Error(err)
	c.JSON(status, ErrorResponse{
		Error:   errorMessage(kind),
		Kind:    kind,
		Details: err.Error(),
	})
}

func errorMessage(kind string) string {
	switch kind {
	case processor.KindInvalidAmount:
		return "invalid amount"
	case processor.KindRenderOverflow:
		return "too many items for a single page"
	case processor.KindMapping:
		return "cannot build structured record"
	case processor.KindPackaging:
		return "cannot package document"
	case processor.KindDecode:
		return "invalid input"
	default:
		return "internal error"
	}
}
