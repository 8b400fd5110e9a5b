package domain

import "time"

// TimeEntry represents one polled snapshot of a Toggl time entry, or
// the currently running timer when Stop is unset.
type TimeEntry struct {
	ID          int64
	Description string
	ProjectID   *int64
	WorkspaceID *int64
	Tags        []string
	Start       time.Time
	Stop        *time.Time
	DurationSec int64 // Negative means running in Toggl API semantics
}

// Running reports whether the entry has no stop time yet.
func (e *TimeEntry) Running() bool { return e.Stop == nil }

// ElapsedAt returns the elapsed duration of the entry at the given
// wall-clock time. Toggl encodes a running entry's duration as a
// negative offset from the Unix epoch, so the true elapsed time is
// now + DurationSec; reading it literally would yield a meaningless
// negative number. For a stopped entry DurationSec is literal seconds.
func (e *TimeEntry) ElapsedAt(now time.Time) time.Duration {
	if e.Running() {
		return time.Duration(now.Unix()+e.DurationSec) * time.Second
	}
	return time.Duration(e.DurationSec) * time.Second
}

// TimeEntryStart describes a timer to be started.
type TimeEntryStart struct {
	Description string
	ProjectID   *int64
	Tags        []string
	Billable    bool
}
