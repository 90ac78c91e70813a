package processor

import (
	"bytes"

	"github.com/rezonia/invoice-generator/internal/model"
)

// Format represents an input format
type Format int

const (
	FormatUnknown Format = iota
	FormatJSON
	FormatYAML
	FormatPDF
	FormatXML
)

// String returns the format name
func (f Format) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatYAML:
		return "yaml"
	case FormatPDF:
		return "pdf"
	case FormatXML:
		return "xml"
	default:
		return "unknown"
	}
}

// DetectFormat guesses the format of data from its leading bytes
func DetectFormat(data []byte) Format {
	trimmed := bytes.TrimLeft(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf")), " \t\r\n")
	if len(trimmed) == 0 {
		return FormatUnknown
	}

	switch {
	case bytes.HasPrefix(trimmed, []byte("%PDF-")):
		return FormatPDF
	case trimmed[0] == '{':
		return FormatJSON
	case trimmed[0] == '<':
		return FormatXML
	case bytes.HasPrefix(trimmed, []byte("---")), looksLikeYAML(trimmed):
		return FormatYAML
	default:
		return FormatUnknown
	}
}

// looksLikeYAML reports whether the first line is a "key:" mapping entry
func looksLikeYAML(data []byte) bool {
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}
	colon := bytes.IndexByte(line, ':')
	if colon <= 0 {
		return false
	}
	for _, c := range line[:colon] {
		if !(c == '_' || c == '-' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9') {
			return false
		}
	}
	return true
}

// DecodeSnapshot decodes a JSON or YAML snapshot
func DecodeSnapshot(data []byte) (*model.InvoiceSnapshot, error) {
	switch DetectFormat(data) {
	case FormatJSON:
		return model.DecodeSnapshot(data)
	case FormatYAML:
		return model.DecodeSnapshotYAML(data)
	default:
		return nil, model.NewDecodeError("snapshot", "input is neither JSON nor YAML", nil)
	}
}
