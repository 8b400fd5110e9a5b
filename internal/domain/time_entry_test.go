package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestElapsedAtRunningEntry(t *testing.T) {
	// Toggl encodes a running entry's duration as a negative offset
	// from the Unix epoch.
	e := &TimeEntry{ID: 1, DurationSec: -1700000000}
	now := time.Unix(1700000100, 0)
	assert.Equal(t, 100*time.Second, e.ElapsedAt(now))
}

func TestElapsedAtStoppedEntry(t *testing.T) {
	stop := time.Now()
	e := &TimeEntry{ID: 1, Stop: &stop, DurationSec: 3600}
	assert.Equal(t, time.Hour, e.ElapsedAt(time.Now()))
}

func TestRunning(t *testing.T) {
	e := &TimeEntry{ID: 1}
	assert.True(t, e.Running())
	stop := time.Now()
	e.Stop = &stop
	assert.False(t, e.Running())
}

func TestQueryValidate(t *testing.T) {
	day := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	assert.NoError(t, Query{From: day, Until: day.AddDate(0, 0, 6)}.Validate())
	// A single-day interval is valid.
	assert.NoError(t, Query{From: day, Until: day}.Validate())

	assert.Error(t, Query{From: day, Until: day.AddDate(0, 0, -1)}.Validate())
	assert.Error(t, Query{Until: day}.Validate())
	assert.Error(t, Query{From: day}.Validate())
}
