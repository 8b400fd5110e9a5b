package domain

import "errors"

// ApiStatus describes the process-wide availability of the remote API.
// It transitions only on explicit credential changes or connectivity
// probes, never on routine poll failures.
type ApiStatus int

const (
	StatusUntested ApiStatus = iota
	StatusNoToken
	StatusUnreachable
	StatusAvailable
)

func (s ApiStatus) String() string {
	switch s {
	case StatusNoToken:
		return "no_token"
	case StatusUnreachable:
		return "unreachable"
	case StatusAvailable:
		return "available"
	default:
		return "untested"
	}
}

// ChangeKind classifies what changed between two successive snapshots
// of the current timer. NoTimer is a display-side state projected when
// no entry is held; classification itself never returns it (two empty
// polls in a row are Unchanged).
type ChangeKind int

const (
	Unchanged ChangeKind = iota
	NoTimer
	Started
	Switched
	Updated
	Stopped
)

func (k ChangeKind) String() string {
	switch k {
	case NoTimer:
		return "no_timer"
	case Started:
		return "started"
	case Switched:
		return "switched"
	case Updated:
		return "updated"
	case Stopped:
		return "stopped"
	default:
		return "unchanged"
	}
}

var (
	// ErrNoToken indicates no API token is configured.
	ErrNoToken = errors.New("no API token configured")

	// ErrUnavailable indicates a timer operation was attempted while
	// the remote API is not in the Available state.
	ErrUnavailable = errors.New("toggl API is not available")
)
