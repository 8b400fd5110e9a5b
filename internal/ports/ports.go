package ports

import (
	"context"

	"toggl-sync/internal/domain"
)

// TogglClient defines the Track API operations the sync engine
// consumes. All calls are remote and may fail.
type TogglClient interface {
	// SetAPIToken replaces the credential used for subsequent calls.
	SetAPIToken(token string)

	// Probe verifies that the configured credential can reach the API.
	Probe(ctx context.Context) error

	// CurrentTimeEntry returns the running timer, or nil when none.
	CurrentTimeEntry(ctx context.Context) (*domain.TimeEntry, error)

	StartTimeEntry(ctx context.Context, spec domain.TimeEntryStart) (*domain.TimeEntry, error)
	StopTimeEntry(ctx context.Context, id int64) (*domain.TimeEntry, error)

	ListWorkspaces(ctx context.Context) ([]domain.Workspace, error)
	ListProjects(ctx context.Context, workspaceID int64) ([]domain.Project, error)
	ListTags(ctx context.Context, workspaceID int64) ([]domain.Tag, error)
}

// ReportsClient defines the Reports API operations. DetailedReportAll
// walks every page itself; callers receive the raw combined rows,
// duplicates included.
type ReportsClient interface {
	DetailedReportAll(ctx context.Context, q domain.Query) ([]domain.DetailedRecord, error)
	SummaryReport(ctx context.Context, q domain.Query) (*domain.SummaryReport, error)
}

// Notifier receives pushed state changes. The interface is
// intentionally generic so the UI layer chooses its own delivery
// mechanism; the engine only iterates registered notifiers.
type Notifier interface {
	// OnStatusText delivers a one-line human-readable status.
	OnStatusText(text string)

	// OnTimerChanged fires on every non-Unchanged classification.
	// entry is nil when the timer stopped.
	OnTimerChanged(entry *domain.TimeEntry)

	OnSummaryUpdated(report *domain.SummaryReport)
}
