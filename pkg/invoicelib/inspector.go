package invoicelib

import (
	"context"
	"io"
)

// Inspector reads generated documents back
type Inspector interface {
	// Inspect validates a PDF and summarizes its embedded invoice
	Inspect(ctx context.Context, r io.Reader) (*InspectionResult, error)
}

// InspectionResult is the report for one document
type InspectionResult struct {
	Container *Container
	// Invoice is nil when the document has no factur-x.xml attachment
	Invoice *Summary
	// Problems lists amount inconsistencies found in the embedded record
	Problems []string
}

// Consistent reports whether an embedded record was found and its amounts add up
func (r *InspectionResult) Consistent() bool {
	return r.Invoice != nil && len(r.Problems) == 0
}
