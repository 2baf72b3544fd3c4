// Package sequence formats allocated document numbers. Allocation itself is
// an atomic storage operation (see repository.SequenceRepository); formatting
// is a pure function applied afterwards and carries no state.
package sequence

import (
	"fmt"
	"strconv"
	"time"
)

// Series prefix per invoice type. Correctives get their own series so a
// rectification never consumes an ordinary number.
var seriesPrefix = map[string]string{
	"ordinary":   "FAC",
	"simplified": "SIM",
	"proforma":   "PRO",
	"corrective": "REC",
}

// Format renders an allocated counter value as a document number,
// e.g. Format("ordinary", 2026, 42) → "FAC-2026-000042".
func Format(invoiceType string, year int, n int64) string {
	prefix, ok := seriesPrefix[invoiceType]
	if !ok {
		prefix = "DOC"
	}
	return fmt.Sprintf("%s-%d-%06d", prefix, year, n)
}

// PeriodKey returns the numbering period for an issue date. Sequences reset
// per calendar year.
func PeriodKey(issueDate time.Time) string {
	return strconv.Itoa(issueDate.Year())
}
