// Package reconcile holds the pure snapshot-diffing core of the sync
// engine. Nothing here touches the network or shared state, so the
// classification rules are testable without any poller running.
package reconcile

import "toggl-sync/internal/domain"

// Classify compares two successive polls of the current timer and
// reports what observably changed. Rules are evaluated in order:
// both absent is Unchanged, appearance is Started, a different ID is
// Switched regardless of other fields, the same ID with a differing
// description, project, start or tag set is Updated, disappearance is
// Stopped.
func Classify(prev, curr *domain.TimeEntry) domain.ChangeKind {
	switch {
	case curr == nil && prev == nil:
		return domain.Unchanged
	case curr != nil && prev == nil:
		return domain.Started
	case curr == nil:
		return domain.Stopped
	case curr.ID != prev.ID:
		return domain.Switched
	}
	if curr.Description != prev.Description ||
		!int64PtrEqual(curr.ProjectID, prev.ProjectID) ||
		!curr.Start.Equal(prev.Start) ||
		!tagSetsEqual(curr.Tags, prev.Tags) {
		return domain.Updated
	}
	return domain.Unchanged
}

// FilterWorkspace nulls out a fetched timer that belongs to a
// different workspace than the configured one, so foreign timers never
// leak into this client's view. A timer without a project reference is
// never filtered: project absence is not workspace mismatch.
func FilterWorkspace(curr *domain.TimeEntry, workspaceID int64) *domain.TimeEntry {
	if curr == nil {
		return nil
	}
	if curr.WorkspaceID != nil && *curr.WorkspaceID != workspaceID && curr.ProjectID != nil {
		return nil
	}
	return curr
}

func int64PtrEqual(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// tagSetsEqual compares tags order-insensitively: same cardinality and
// every tag of one present in the other.
func tagSetsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	counts := make(map[string]int, len(a))
	for _, t := range a {
		counts[t]++
	}
	for _, t := range b {
		counts[t]--
		if counts[t] < 0 {
			return false
		}
	}
	return true
}
