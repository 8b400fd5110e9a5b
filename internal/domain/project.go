package domain

import "time"

// Project is a workspace project that running timers may reference.
// The coordinator caches the configured workspace's project list so
// listeners can resolve a snapshot's ProjectID without a remote call.
type Project struct {
	ID          int64
	WorkspaceID int64
	Name        string
	Active      bool
	Private     bool
	Color       string
	ClientID    *int64
	At          time.Time // last change on the remote
}
