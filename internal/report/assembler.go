package report

import (
	"context"
	"log/slog"
	"time"

	"toggl-sync/internal/domain"
	"toggl-sync/internal/ports"
	"toggl-sync/internal/queue"
)

// Assembler drives report fetches through the request queue and
// normalizes the combined result. Every remote report call in the
// process goes through Queue, so no two report requests are ever in
// flight at once.
type Assembler struct {
	Log     *slog.Logger
	Reports ports.ReportsClient
	Queue   *queue.Queue
}

// FetchDetailed assembles a duplicate-free itemized report for the
// query range. Totals are computed on the deduplicated set, so
// duplicate pages from the remote cannot inflate the grand total.
func (a *Assembler) FetchDetailed(ctx context.Context, q domain.Query) (*domain.DetailedReport, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	records, err := queue.Do(ctx, a.Queue, "detailed report", func(ctx context.Context) ([]domain.DetailedRecord, error) {
		return a.Reports.DetailedReportAll(ctx, q)
	})
	if err != nil {
		return nil, err
	}
	data := dedupe(records)
	var grand int64
	for _, r := range data {
		grand += r.DurMS
	}
	if dropped := len(records) - len(data); dropped > 0 {
		a.Log.Debug("dropped duplicate report rows", slog.Int("dropped", dropped))
	}
	return &domain.DetailedReport{
		TotalGrand: grand,
		TotalCount: len(data),
		Data:       data,
	}, nil
}

// FetchSummary fetches an aggregate report for the query range. The
// server orders groups by tracked time descending; no client-side
// aggregation is needed.
func (a *Assembler) FetchSummary(ctx context.Context, q domain.Query) (*domain.SummaryReport, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	return queue.Do(ctx, a.Queue, "summary report", func(ctx context.Context) (*domain.SummaryReport, error) {
		return a.Reports.SummaryReport(ctx, q)
	})
}

// FetchDailySummary fetches the summary for today.
func (a *Assembler) FetchDailySummary(ctx context.Context) (*domain.SummaryReport, error) {
	today := time.Now().UTC().Truncate(24 * time.Hour)
	return a.FetchSummary(ctx, domain.Query{From: today, Until: today})
}

// dedupe keeps the first record seen for each ID, preserving the
// relative order of first occurrences.
func dedupe(in []domain.DetailedRecord) []domain.DetailedRecord {
	seen := make(map[int64]bool, len(in))
	out := make([]domain.DetailedRecord, 0, len(in))
	for _, r := range in {
		if seen[r.ID] {
			continue
		}
		seen[r.ID] = true
		out = append(out, r)
	}
	return out
}
