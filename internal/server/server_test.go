package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/invoice-generator/internal/server"
)

const snapshotJSON = `{
	"number": "INV-2025-001",
	"currency": "EUR",
	"issue_date": "2025-01-15",
	"due_date": "2025-02-14",
	"issuer": {
		"name": "Studio Lumière",
		"tax_id": "FR12345678901",
		"address": {"street": "1 rue de Rivoli", "city": "Paris", "postal_code": "75001", "country": "France"},
		"bank": {"iban": "FR7630006000011234567890189", "bic": "AGRIFRPP"}
	},
	"recipient": {"name": "ACME SARL", "address": {"city": "Lyon", "country": "FR"}},
	"tax_rate": "20.00",
	"items": [{"description": "Développement", "quantity": 10, "unit_price": "100.00"}],
	"payment_terms": "30 jours"
}`

func newTestServer() *server.Server {
	config := &server.Config{
		Address: ":8080",
		Debug:   true,
	}
	return server.NewServer(config)
}

func post(t *testing.T, srv *server.Server, path string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	require.NoError(t, err)

	assert.Equal(t, "ok", response["status"])
	assert.NotEmpty(t, response["time"])
}

func TestDocumentEndpoint(t *testing.T) {
	srv := newTestServer()

	w := post(t, srv, "/api/v1/invoices/document", []byte(snapshotJSON))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename=INV-2025-001_Factur-X.pdf`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "1200.00", w.Header().Get("X-Invoice-Total"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF-1.7")))
}

func TestStructuredEndpoint(t *testing.T) {
	srv := newTestServer()

	w := post(t, srv, "/api/v1/invoices/structured", []byte(snapshotJSON))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "application/xml")
	assert.Contains(t, w.Body.String(), "<ram:GrandTotalAmount>1200.00</ram:GrandTotalAmount>")
	assert.Contains(t, w.Body.String(), "<ram:Description>30 jours</ram:Description>")
}

func TestTotalsEndpoint(t *testing.T) {
	srv := newTestServer()

	w := post(t, srv, "/api/v1/invoices/totals", []byte(snapshotJSON))
	require.Equal(t, http.StatusOK, w.Code)

	var response server.TotalsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))

	assert.Equal(t, "EUR", response.Currency)
	assert.Equal(t, []string{"1000.00"}, response.Lines)
	assert.Equal(t, "1000.00", response.Subtotal)
	assert.Equal(t, "20.00", response.TaxRate)
	assert.Equal(t, []server.TaxResponse{{Rate: "20.00", Basis: "1000.00", Amount: "200.00"}}, response.Taxes)
	assert.Equal(t, "200.00", response.TaxAmount)
	assert.Equal(t, "1200.00", response.Total)
}

func TestDocumentEndpoint_Filename(t *testing.T) {
	tests := []struct {
		name     string
		number   string
		filename string
	}{
		{"quote and line break", `INV \"7\"\r\nX-Injected: 1`, "INV -7---X-Injected- 1_Factur-X.pdf"},
		{"non-ASCII", "FACTURE-É1", "FACTURE-É1_Factur-X.pdf"},
	}

	srv := newTestServer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := strings.Replace(snapshotJSON, `"INV-2025-001"`, `"`+tt.number+`"`, 1)
			w := post(t, srv, "/api/v1/invoices/document", []byte(body))
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())

			header := w.Header().Get("Content-Disposition")
			assert.NotContains(t, header, "\n")
			assert.Empty(t, w.Header().Get("X-Injected"))

			disposition, params, err := mime.ParseMediaType(header)
			require.NoError(t, err)
			assert.Equal(t, "attachment", disposition)
			assert.Equal(t, tt.filename, params["filename"])
		})
	}
}

func TestInspectEndpoint(t *testing.T) {
	srv := newTestServer()

	doc := post(t, srv, "/api/v1/invoices/document", []byte(snapshotJSON))
	require.Equal(t, http.StatusOK, doc.Code)

	w := post(t, srv, "/api/v1/inspect", doc.Body.Bytes())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var response server.InspectResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))

	require.NotNil(t, response.Container)
	assert.Equal(t, 1, response.Container.PageCount)
	require.Len(t, response.Container.Attachments, 1)
	assert.Equal(t, "factur-x.xml", response.Container.Attachments[0].Name)

	require.NotNil(t, response.Invoice)
	assert.Equal(t, "INV-2025-001", response.Invoice.Number)
	assert.Equal(t, "1200.00", response.Invoice.Total.StringFixed(2))
	assert.Empty(t, response.Problems)
}

func TestInspectEndpoint_NotPDF(t *testing.T) {
	srv := newTestServer()

	w := post(t, srv, "/api/v1/inspect", []byte(snapshotJSON))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEndpoints_EmptyBody(t *testing.T) {
	srv := newTestServer()

	for _, path := range []string{
		"/api/v1/invoices/document",
		"/api/v1/invoices/structured",
		"/api/v1/invoices/totals",
		"/api/v1/inspect",
	} {
		t.Run(path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, path, nil)
			w := httptest.NewRecorder()

			srv.Handler().ServeHTTP(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code)

			var response server.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
			assert.Equal(t, "empty request body", response.Error)
		})
	}
}

func TestDocumentEndpoint_Errors(t *testing.T) {
	items := make([]string, 60)
	for i := range items {
		items[i] = fmt.Sprintf(`{"description": "Ligne %d", "quantity": 1, "unit_price": "10"}`, i)
	}
	overflow := strings.Replace(snapshotJSON,
		`[{"description": "Développement", "quantity": 10, "unit_price": "100.00"}]`,
		"["+strings.Join(items, ",")+"]", 1)

	tests := []struct {
		name   string
		body   string
		status int
		kind   string
	}{
		{"malformed json", `{"number":`, http.StatusBadRequest, "decode"},
		{"unknown field", `{"numero": "1"}`, http.StatusBadRequest, "decode"},
		{"not json or yaml", `hello`, http.StatusBadRequest, "decode"},
		{"no items", strings.Replace(snapshotJSON, `"items": [{"description": "Développement", "quantity": 10, "unit_price": "100.00"}],`, `"items": [],`, 1), http.StatusBadRequest, "invalid_amount"},
		{"missing quantity", strings.Replace(snapshotJSON, `"quantity": 10, `, ``, 1), http.StatusBadRequest, "invalid_amount"},
		{"overflow", overflow, http.StatusBadRequest, "render_overflow"},
		{"missing recipient", strings.Replace(snapshotJSON, `"name": "ACME SARL"`, `"name": ""`, 1), http.StatusInternalServerError, "mapping"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer()
			w := post(t, srv, "/api/v1/invoices/document", []byte(tt.body))

			assert.Equal(t, tt.status, w.Code)

			var response server.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
			assert.Equal(t, tt.kind, response.Kind)
			assert.NotEmpty(t, response.Error)
			assert.NotEmpty(t, response.Details)
		})
	}
}

func TestDocumentEndpoint_YAML(t *testing.T) {
	srv := newTestServer()
	body := `number: Y-1
issue_date: 2025-01-15
due_date: 2025-02-14
issuer:
  name: Studio
recipient:
  name: Client
items:
  - description: Service
    quantity: 2
    unit_price: "50"
`
	w := post(t, srv, "/api/v1/invoices/totals", []byte(body))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var response server.TotalsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "120.00", response.Total)
}

func TestBodyLimit(t *testing.T) {
	srv := server.NewServer(&server.Config{MaxBodyBytes: 16})

	w := post(t, srv, "/api/v1/invoices/totals", []byte(snapshotJSON))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestRunContext_Shutdown(t *testing.T) {
	srv := server.NewServer(&server.Config{Address: "127.0.0.1:0"})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.RunContext(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
