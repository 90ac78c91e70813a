package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const snapshotYAML = `number: INV-2025-007
currency: EUR
issue_date: 2025-03-01
due_date: 2025-03-31
issuer:
  name: Studio Lumière
  tax_id: FR12345678901
  address:
    street: 1 rue de Rivoli
    city: Paris
    postal_code: "75001"
    country: France
  bank:
    iban: FR7630006000011234567890189
recipient:
  name: ACME SARL
  address:
    city: Lyon
    country: FR
tax_rate: "20.00"
items:
  - description: Conseil
    quantity: 2
    unit_price: "250.00"
`

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	outputFile, outputDir, writeXML, strict = "", ".", false, false
	concurrency = 4

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func writeSnapshot(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "invoice.yaml")
	require.NoError(t, os.WriteFile(path, []byte(snapshotYAML), 0o644))
	return path
}

func TestGenerateAndInspect(t *testing.T) {
	dir := t.TempDir()
	snapshot := writeSnapshot(t, dir)

	out, err := execute(t, "generate", snapshot, "--out-dir", dir, "--xml", "-f", "json")
	require.NoError(t, err)

	var results []GenerateResult
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 1)
	assert.Equal(t, "INV-2025-007", results[0].Number)
	assert.Equal(t, "600.00 EUR", results[0].Total)
	assert.Empty(t, results[0].Error)

	pdfPath := filepath.Join(dir, "INV-2025-007_Factur-X.pdf")
	assert.Equal(t, pdfPath, results[0].Output)
	assert.FileExists(t, pdfPath)
	assert.FileExists(t, filepath.Join(dir, "INV-2025-007_Factur-X.xml"))

	out, err = execute(t, "inspect", pdfPath, "--strict", "-f", "json")
	require.NoError(t, err)

	var reports []InspectResult
	require.NoError(t, json.Unmarshal([]byte(out), &reports))
	require.Len(t, reports, 1)
	require.NotNil(t, reports[0].Invoice)
	assert.Equal(t, "INV-2025-007", reports[0].Invoice.Number)
	assert.Equal(t, "3", reports[0].Container.Conformance.PDFAPart)
	assert.Empty(t, reports[0].Problems)
}

func TestGenerate_OutputFile(t *testing.T) {
	dir := t.TempDir()
	snapshot := writeSnapshot(t, dir)
	target := filepath.Join(dir, "facture.pdf")

	out, err := execute(t, "generate", snapshot, "-o", target, "-f", "table")
	require.NoError(t, err)
	assert.Contains(t, out, "INV-2025-007")
	assert.Contains(t, out, "facture.pdf")

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-1.7")))
}

func TestGenerate_Errors(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"number": "X", "items": [{"quantity": "abc"}]}`), 0o644))

	out, err := execute(t, "generate", bad, "--out-dir", dir, "-f", "json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 1 snapshots failed")

	var results []GenerateResult
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 1)
	assert.NotEmpty(t, results[0].Error)

	_, err = execute(t, "generate", filepath.Join(dir, "missing.json"), "-f", "json")
	assert.Error(t, err)

	_, err = execute(t, "generate", writeSnapshot(t, dir), bad, "-o", "x.pdf", "-f", "json")
	assert.Error(t, err)
}

func TestTotals(t *testing.T) {
	snapshot := writeSnapshot(t, t.TempDir())

	out, err := execute(t, "totals", snapshot, "-f", "json")
	require.NoError(t, err)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "500.00", resp["subtotal"])
	assert.Equal(t, "100.00", resp["tax_amount"])
	assert.Equal(t, "600.00", resp["total"])

	out, err = execute(t, "totals", snapshot, "-f", "table")
	require.NoError(t, err)
	assert.Contains(t, out, "Conseil")
	assert.Contains(t, out, "Tax (20.00% of 500.00)")
	assert.Contains(t, out, "Total EUR")
}

func TestInspect_PlainFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.pdf")
	require.NoError(t, os.WriteFile(path, []byte("not a pdf"), 0o644))

	out, err := execute(t, "inspect", path, "-f", "json")
	require.Error(t, err)

	var reports []InspectResult
	require.NoError(t, json.Unmarshal([]byte(out), &reports))
	require.Len(t, reports, 1)
	assert.NotEmpty(t, reports[0].Error)
}

func TestUnsupportedFormat(t *testing.T) {
	snapshot := writeSnapshot(t, t.TempDir())
	_, err := execute(t, "totals", snapshot, "-f", "csv")
	assert.Error(t, err)
}
