package domain

import (
	"errors"
	"time"
)

// Query is a closed date interval for report lookups. From == Until is
// valid and selects a single day.
type Query struct {
	From  time.Time
	Until time.Time
}

// Validate checks the interval bounds.
func (q Query) Validate() error {
	if q.From.IsZero() || q.Until.IsZero() {
		return errors.New("report query: both bounds are required")
	}
	if q.Until.Before(q.From) {
		return errors.New("report query: from must not be after until")
	}
	return nil
}

// DetailedRecord is one itemized row of a detailed report. Historical
// rows are always finished, so DurMS holds literal milliseconds.
type DetailedRecord struct {
	ID          int64
	Description string
	ProjectID   *int64
	Start       time.Time
	End         *time.Time
	DurMS       int64
	Tags        []string
}

// DetailedReport is an assembled itemized report. TotalCount and
// TotalGrand describe Data exactly; Data holds no duplicate IDs.
type DetailedReport struct {
	TotalGrand int64 // milliseconds
	TotalCount int
	Data       []DetailedRecord
}

// SummaryGroup is one per-project bucket of a summary report.
type SummaryGroup struct {
	ProjectID *int64
	Title     string
	TimeMS    int64
}

// SummaryReport is an aggregate report, grouped by project and ordered
// by tracked time descending.
type SummaryReport struct {
	TotalGrand int64 // milliseconds
	Data       []SummaryGroup
}
