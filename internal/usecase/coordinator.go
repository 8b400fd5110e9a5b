package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"toggl-sync/internal/domain"
	"toggl-sync/internal/ports"
	"toggl-sync/internal/reconcile"
	"toggl-sync/internal/report"
)

// One-line notices surfaced when timer operations are short-circuited.
// Untested gets no notice: it is a transient startup state.
const (
	noticeNoToken     = "Add a Toggl API token to start tracking."
	noticeUnreachable = "Cannot reach Toggl; check your connection and token."
	textNoTimer       = "No timer running"
)

// Coordinator owns the polling loop, the API status state machine and
// the last committed snapshot of the current timer. The snapshot has a
// single writer (the commit path); everything else only reads it.
type Coordinator struct {
	log       *slog.Logger
	client    ports.TogglClient
	assembler *report.Assembler
	workspace int64
	interval  time.Duration
	now       func() time.Time

	mu        sync.Mutex
	status    domain.ApiStatus
	current   *domain.TimeEntry
	seq       uint64 // last issued tick sequence
	committed uint64 // sequence of the last committed tick
	projects  []domain.Project
	tags      []domain.Tag
	listeners []ports.Notifier
	pollCtx   context.Context
	cancel    context.CancelFunc
}

func New(log *slog.Logger, client ports.TogglClient, assembler *report.Assembler, workspaceID int64, interval time.Duration) *Coordinator {
	return &Coordinator{
		log:       log,
		client:    client,
		assembler: assembler,
		workspace: workspaceID,
		interval:  interval,
		now:       time.Now,
		status:    domain.StatusUntested,
	}
}

// AddListener registers a notifier. Listeners are never removed;
// registration happens once at wiring time.
func (c *Coordinator) AddListener(n ports.Notifier) {
	c.mu.Lock()
	c.listeners = append(c.listeners, n)
	c.mu.Unlock()
}

// Configure applies a credential change: it stops any running poller,
// re-probes connectivity and, when the API is reachable, starts a
// fresh polling loop. Re-entrant calls never accumulate parallel
// pollers.
func (c *Coordinator) Configure(ctx context.Context, token string) {
	c.stopPolling()

	if token == "" {
		c.setStatus(domain.StatusNoToken)
		c.emitStatusText(noticeNoToken)
		return
	}
	c.client.SetAPIToken(token)

	if err := c.client.Probe(ctx); err != nil {
		c.log.Warn("connectivity probe failed", slog.String("error", err.Error()))
		c.setStatus(domain.StatusUnreachable)
		c.emitStatusText(noticeUnreachable)
		return
	}

	c.setStatus(domain.StatusAvailable)
	c.log.Info("toggl API available", slog.Int64("workspace", c.workspace))
	c.startPolling()
	go func() {
		if err := c.RefreshCaches(context.Background()); err != nil {
			c.log.Warn("cache refresh failed", slog.String("error", err.Error()))
		}
	}()
}

// Stop cancels the poller. In-flight ticks are allowed to complete but
// their results are discarded: once the poll context is cancelled the
// commit path rejects them, so the snapshot is never mutated again.
func (c *Coordinator) Stop() {
	c.stopPolling()
}

func (c *Coordinator) stopPolling() {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
		c.pollCtx = nil
	}
	c.mu.Unlock()
}

func (c *Coordinator) startPolling() {
	ctx, cancel := context.WithCancel(context.Background())
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	c.pollCtx = ctx
	c.cancel = cancel
	c.mu.Unlock()
	go c.pollLoop(ctx)
}

// pollLoop runs one reconciliation pass immediately, then repeats at
// the fixed interval. Each pass runs in its own goroutine so a slow
// fetch delays only its own effect, never the next tick.
func (c *Coordinator) pollLoop(ctx context.Context) {
	c.runTick(ctx)
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			go c.runTick(ctx)
		}
	}
}

// runTick is one reconciliation pass: fetch, filter, classify, commit.
// A fetch failure is logged and the tick skipped; it never stops
// future polling and never touches the held snapshot.
func (c *Coordinator) runTick(ctx context.Context) {
	c.mu.Lock()
	c.seq++
	seq := c.seq
	c.mu.Unlock()

	fetched, err := c.client.CurrentTimeEntry(ctx)
	if err != nil {
		c.log.Warn("poll tick failed", slog.Uint64("tick", seq), slog.String("error", err.Error()))
		return
	}
	c.commit(ctx, seq, fetched)
}

// commit applies a tick result to the shared snapshot. Out-of-order
// completions are tolerated: a result is discarded when a
// later-sequenced tick already committed, or when the poller was
// stopped while the fetch was in flight.
func (c *Coordinator) commit(ctx context.Context, seq uint64, fetched *domain.TimeEntry) {
	curr := reconcile.FilterWorkspace(fetched, c.workspace)

	c.mu.Lock()
	if ctx.Err() != nil || seq < c.committed {
		c.mu.Unlock()
		c.log.Debug("discarding stale tick result", slog.Uint64("tick", seq))
		return
	}
	kind := reconcile.Classify(c.current, curr)
	if kind != domain.Unchanged {
		c.current = curr
	}
	c.committed = seq
	listeners := append([]ports.Notifier(nil), c.listeners...)
	text := c.statusTextLocked()
	c.mu.Unlock()

	if kind != domain.Unchanged {
		c.log.Info("timer change detected", slog.String("change", kind.String()))
		for _, n := range listeners {
			n.OnTimerChanged(curr)
		}
		c.refreshSummaryAsync()
	}
	// The status text refreshes on every tick so the elapsed display
	// keeps advancing even when nothing changed structurally.
	for _, n := range listeners {
		n.OnStatusText(text)
	}
}

// refreshSummaryAsync refetches the daily summary in the background.
// Failure is logged and intentionally discarded: a summary refresh
// must never affect reconciliation state or its caller.
func (c *Coordinator) refreshSummaryAsync() {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		rep, err := c.assembler.FetchDailySummary(ctx)
		if err != nil {
			c.log.Warn("summary refresh failed", slog.String("error", err.Error()))
			return
		}
		c.mu.Lock()
		listeners := append([]ports.Notifier(nil), c.listeners...)
		c.mu.Unlock()
		for _, n := range listeners {
			n.OnSummaryUpdated(rep)
		}
	}()
}

// RunOnce performs a single probe plus reconciliation pass without
// starting the poller.
func (c *Coordinator) RunOnce(ctx context.Context) error {
	if err := c.client.Probe(ctx); err != nil {
		c.setStatus(domain.StatusUnreachable)
		return err
	}
	c.setStatus(domain.StatusAvailable)
	c.mu.Lock()
	c.seq++
	seq := c.seq
	c.mu.Unlock()
	fetched, err := c.client.CurrentTimeEntry(ctx)
	if err != nil {
		return err
	}
	c.commit(ctx, seq, fetched)
	return nil
}

// StartTimer starts a timer and immediately reconciles so the new
// entry is observable without waiting for the next tick. It fails fast
// with the status notice when the API is not available.
func (c *Coordinator) StartTimer(ctx context.Context, spec domain.TimeEntryStart) (*domain.TimeEntry, error) {
	if err := c.requireAvailable(); err != nil {
		return nil, err
	}
	entry, err := c.client.StartTimeEntry(ctx, spec)
	if err != nil {
		return nil, err
	}
	c.reconcileNow()
	return entry, nil
}

// StopTimer stops the timer with the given ID and immediately
// reconciles.
func (c *Coordinator) StopTimer(ctx context.Context, id int64) (*domain.TimeEntry, error) {
	if err := c.requireAvailable(); err != nil {
		return nil, err
	}
	entry, err := c.client.StopTimeEntry(ctx, id)
	if err != nil {
		return nil, err
	}
	c.reconcileNow()
	return entry, nil
}

func (c *Coordinator) reconcileNow() {
	c.mu.Lock()
	ctx := c.pollCtx
	c.mu.Unlock()
	if ctx == nil {
		return
	}
	go c.runTick(ctx)
}

// requireAvailable short-circuits timer-affecting operations unless
// the API is Available, surfacing the per-state notice without
// attempting network I/O.
func (c *Coordinator) requireAvailable() error {
	c.mu.Lock()
	status := c.status
	c.mu.Unlock()
	switch status {
	case domain.StatusAvailable:
		return nil
	case domain.StatusNoToken:
		c.emitStatusText(noticeNoToken)
		return domain.ErrNoToken
	case domain.StatusUnreachable:
		c.emitStatusText(noticeUnreachable)
		return fmt.Errorf("%w: unreachable", domain.ErrUnavailable)
	default:
		return domain.ErrUnavailable
	}
}

// RefreshCaches refetches the workspace's projects and tags.
func (c *Coordinator) RefreshCaches(ctx context.Context) error {
	projects, err := c.client.ListProjects(ctx, c.workspace)
	if err != nil {
		return fmt.Errorf("refresh projects: %w", err)
	}
	tags, err := c.client.ListTags(ctx, c.workspace)
	if err != nil {
		return fmt.Errorf("refresh tags: %w", err)
	}
	c.mu.Lock()
	c.projects = projects
	c.tags = tags
	c.mu.Unlock()
	c.log.Debug("caches refreshed", slog.Int("projects", len(projects)), slog.Int("tags", len(tags)))
	return nil
}

// Status returns the current API status.
func (c *Coordinator) Status() domain.ApiStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// CurrentEntry returns the last committed snapshot, or nil.
func (c *Coordinator) CurrentEntry() *domain.TimeEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// TimerState reports the display-side timer state: NoTimer when no
// entry is held, Started otherwise.
func (c *Coordinator) TimerState() domain.ChangeKind {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return domain.NoTimer
	}
	return domain.Started
}

// CachedProjects returns the last successfully fetched project list.
func (c *Coordinator) CachedProjects() []domain.Project {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.Project(nil), c.projects...)
}

// CachedTags returns the last successfully fetched tag list.
func (c *Coordinator) CachedTags() []domain.Tag {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.Tag(nil), c.tags...)
}

// StatusText returns the one-line status projection.
func (c *Coordinator) StatusText() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.statusTextLocked()
}

func (c *Coordinator) statusTextLocked() string {
	switch c.status {
	case domain.StatusNoToken:
		return noticeNoToken
	case domain.StatusUnreachable:
		return noticeUnreachable
	case domain.StatusUntested:
		return ""
	}
	e := c.current
	if e == nil {
		return textNoTimer
	}
	desc := e.Description
	if desc == "" {
		desc = "(no description)"
	}
	return fmt.Sprintf("%s %s", formatElapsed(e.ElapsedAt(c.now())), desc)
}

func (c *Coordinator) setStatus(s domain.ApiStatus) {
	c.mu.Lock()
	c.status = s
	c.mu.Unlock()
}

func (c *Coordinator) emitStatusText(text string) {
	c.mu.Lock()
	listeners := append([]ports.Notifier(nil), c.listeners...)
	c.mu.Unlock()
	for _, n := range listeners {
		n.OnStatusText(text)
	}
}

// formatElapsed renders h:mm:ss.
func formatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int64(d.Seconds())
	return fmt.Sprintf("%d:%02d:%02d", secs/3600, (secs%3600)/60, secs%60)
}
