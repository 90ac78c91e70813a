package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	money "github.com/rezonia/invoice-generator/internal/decimal"
)

// wireSnapshot is the JSON shape accepted from callers. Amounts are kept raw
// so that strings and numbers are both accepted and absence can be detected.
type wireSnapshot struct {
	Number       string          `json:"number"`
	Currency     string          `json:"currency"`
	IssueDate    string          `json:"issue_date"`
	DueDate      string          `json:"due_date"`
	Issuer       Party           `json:"issuer"`
	Recipient    Party           `json:"recipient"`
	Items        []wireItem      `json:"items"`
	TaxRate      json.RawMessage `json:"tax_rate"`
	PaymentTerms string          `json:"payment_terms"`
	Notes        string          `json:"notes"`
}

type wireItem struct {
	Description string          `json:"description"`
	Quantity    json.RawMessage `json:"quantity"`
	UnitPrice   json.RawMessage `json:"unit_price"`
	TaxRate     json.RawMessage `json:"tax_rate"`
}

// DecodeSnapshot parses a JSON invoice snapshot.
// Missing currency and tax rates fall back to DefaultCurrency and DefaultTaxRate;
// an item without a tax rate inherits the document rate.
func DecodeSnapshot(data []byte) (*InvoiceSnapshot, error) {
	var w wireSnapshot
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&w); err != nil {
		return nil, NewDecodeError("", "invalid JSON", err)
	}

	snap := &InvoiceSnapshot{
		Number:       strings.TrimSpace(w.Number),
		Currency:     strings.ToUpper(strings.TrimSpace(w.Currency)),
		Issuer:       w.Issuer,
		Recipient:    w.Recipient,
		PaymentTerms: w.PaymentTerms,
		Notes:        w.Notes,
	}
	if snap.Currency == "" {
		snap.Currency = DefaultCurrency
	}

	var err error
	if snap.IssueDate, err = parseOptionalDate("issue_date", w.IssueDate); err != nil {
		return nil, err
	}
	if snap.DueDate, err = parseOptionalDate("due_date", w.DueDate); err != nil {
		return nil, err
	}

	snap.TaxRate = DefaultTaxRate
	if !isAbsent(w.TaxRate) {
		if snap.TaxRate, err = parseAmount("tax_rate", w.TaxRate); err != nil {
			return nil, err
		}
	}

	snap.Items = make([]LineItem, 0, len(w.Items))
	for i, wi := range w.Items {
		field := fmt.Sprintf("items[%d]", i)
		item := LineItem{
			Description: wi.Description,
			TaxRate:     snap.TaxRate,
		}
		if item.Quantity, err = parseAmount(field+".quantity", wi.Quantity); err != nil {
			return nil, err
		}
		if item.UnitPrice, err = parseAmount(field+".unit_price", wi.UnitPrice); err != nil {
			return nil, err
		}
		if !isAbsent(wi.TaxRate) {
			if item.TaxRate, err = parseAmount(field+".tax_rate", wi.TaxRate); err != nil {
				return nil, err
			}
		}
		snap.Items = append(snap.Items, item)
	}

	return snap, nil
}

// DecodeSnapshotYAML parses a YAML invoice snapshot using the JSON field names
func DecodeSnapshotYAML(data []byte) (*InvoiceSnapshot, error) {
	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, NewDecodeError("", "invalid YAML", err)
	}
	if doc == nil {
		return nil, NewDecodeError("", "empty document", nil)
	}

	raw, err := json.Marshal(normalizeYAML(doc))
	if err != nil {
		return nil, NewDecodeError("", "cannot convert YAML", err)
	}
	return DecodeSnapshot(raw)
}

// normalizeYAML turns yaml-decoded values into types encoding/json accepts.
// Dates are written back in ISO form.
func normalizeYAML(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[k] = normalizeYAML(val)
		}
		return out
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = normalizeYAML(val)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, val := range t {
			out[i] = normalizeYAML(val)
		}
		return out
	case time.Time:
		return t.Format("2006-01-02")
	case float64:
		// .nan and .inf stay text so that the amount check names the field
		d, err := money.FromFloat(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return json.Number(d.String())
	default:
		return v
	}
}

func isAbsent(raw json.RawMessage) bool {
	s := strings.TrimSpace(string(raw))
	return s == "" || s == "null"
}

func parseAmount(field string, raw json.RawMessage) (decimal.Decimal, error) {
	if isAbsent(raw) {
		return decimal.Zero, NewInvalidAmountError(field, nil, "missing value")
	}

	text := strings.TrimSpace(string(raw))
	if strings.HasPrefix(text, `"`) {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return decimal.Zero, NewInvalidAmountError(field, text, "not a string")
		}
		text = strings.TrimSpace(s)
	}

	switch strings.ToLower(strings.TrimLeft(text, "+-")) {
	case "", "nan", "inf", "infinity":
		return decimal.Zero, NewInvalidAmountError(field, text, "not a finite number")
	}

	d, err := money.FromString(text)
	if err != nil {
		return decimal.Zero, NewInvalidAmountError(field, text, err.Error())
	}
	return d, nil
}

func parseOptionalDate(field, s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	t, err := parseDate(s)
	if err != nil {
		return time.Time{}, NewDecodeError(field, "unsupported date format", err)
	}
	return t, nil
}

func parseDate(s string) (time.Time, error) {
	formats := []string{
		"2006-01-02",
		"02/01/2006",
		"2006-01-02T15:04:05",
		time.RFC3339,
	}

	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("cannot parse date: %s", s)
}
