package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"toggl-sync/internal/domain"
	"toggl-sync/internal/queue"
	"toggl-sync/internal/report"
)

const testWorkspace int64 = 42

type fakeClient struct {
	mu         sync.Mutex
	token      string
	probeErr   error
	current    *domain.TimeEntry
	currentErr error
	started    []domain.TimeEntryStart
	stopped    []int64
	projects   []domain.Project
	tags       []domain.Tag
}

func (f *fakeClient) SetAPIToken(token string) {
	f.mu.Lock()
	f.token = token
	f.mu.Unlock()
}

func (f *fakeClient) getToken() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token
}

func (f *fakeClient) Probe(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.probeErr
}

func (f *fakeClient) CurrentTimeEntry(ctx context.Context) (*domain.TimeEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current, f.currentErr
}

func (f *fakeClient) setCurrent(e *domain.TimeEntry, err error) {
	f.mu.Lock()
	f.current, f.currentErr = e, err
	f.mu.Unlock()
}

func (f *fakeClient) StartTimeEntry(ctx context.Context, spec domain.TimeEntryStart) (*domain.TimeEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = append(f.started, spec)
	return &domain.TimeEntry{ID: 900, Description: spec.Description}, nil
}

func (f *fakeClient) StopTimeEntry(ctx context.Context, id int64) (*domain.TimeEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = append(f.stopped, id)
	stop := time.Now()
	return &domain.TimeEntry{ID: id, Stop: &stop, DurationSec: 60}, nil
}

func (f *fakeClient) ListWorkspaces(ctx context.Context) ([]domain.Workspace, error) {
	return []domain.Workspace{{ID: testWorkspace, Name: "test"}}, nil
}

func (f *fakeClient) ListProjects(ctx context.Context, workspaceID int64) ([]domain.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.projects, nil
}

func (f *fakeClient) ListTags(ctx context.Context, workspaceID int64) ([]domain.Tag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tags, nil
}

type fakeReports struct{}

func (fakeReports) DetailedReportAll(ctx context.Context, q domain.Query) ([]domain.DetailedRecord, error) {
	return nil, nil
}

func (fakeReports) SummaryReport(ctx context.Context, q domain.Query) (*domain.SummaryReport, error) {
	return &domain.SummaryReport{TotalGrand: 1000}, nil
}

type recorder struct {
	mu        sync.Mutex
	texts     []string
	changes   []*domain.TimeEntry
	changeCh  chan *domain.TimeEntry
	summaryCh chan *domain.SummaryReport
}

func newRecorder() *recorder {
	return &recorder{
		changeCh:  make(chan *domain.TimeEntry, 16),
		summaryCh: make(chan *domain.SummaryReport, 16),
	}
}

func (r *recorder) OnStatusText(text string) {
	r.mu.Lock()
	r.texts = append(r.texts, text)
	r.mu.Unlock()
}

func (r *recorder) OnTimerChanged(entry *domain.TimeEntry) {
	r.mu.Lock()
	r.changes = append(r.changes, entry)
	r.mu.Unlock()
	r.changeCh <- entry
}

func (r *recorder) OnSummaryUpdated(report *domain.SummaryReport) {
	r.summaryCh <- report
}

func (r *recorder) lastText() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.texts) == 0 {
		return ""
	}
	return r.texts[len(r.texts)-1]
}

func (r *recorder) changeCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.changes)
}

func (r *recorder) textCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.texts)
}

func newTestCoordinator(t *testing.T, client *fakeClient) (*Coordinator, *recorder) {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	q := queue.New(log)
	t.Cleanup(q.Close)
	asm := &report.Assembler{Log: log, Reports: fakeReports{}, Queue: q}
	c := New(log, client, asm, testWorkspace, 50*time.Millisecond)
	t.Cleanup(c.Stop)
	rec := newRecorder()
	c.AddListener(rec)
	return c, rec
}

func runningEntry(id int64) *domain.TimeEntry {
	ws := testWorkspace
	pid := int64(7)
	return &domain.TimeEntry{
		ID:          id,
		Description: "focus block",
		ProjectID:   &pid,
		WorkspaceID: &ws,
		Start:       time.Date(2026, 8, 24, 9, 0, 0, 0, time.UTC),
		DurationSec: -1756026000,
	}
}

func waitChange(t *testing.T, rec *recorder) *domain.TimeEntry {
	t.Helper()
	select {
	case e := <-rec.changeCh:
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for timer change")
		return nil
	}
}

func TestConfigureEmptyTokenGoesNoToken(t *testing.T) {
	c, rec := newTestCoordinator(t, &fakeClient{})

	c.Configure(context.Background(), "")

	assert.Equal(t, domain.StatusNoToken, c.Status())
	assert.Equal(t, noticeNoToken, rec.lastText())
	assert.Zero(t, rec.changeCount())
}

func TestConfigureProbeFailureGoesUnreachable(t *testing.T) {
	client := &fakeClient{probeErr: errors.New("dial tcp: timeout")}
	c, rec := newTestCoordinator(t, client)

	c.Configure(context.Background(), "tok")

	assert.Equal(t, domain.StatusUnreachable, c.Status())
	assert.Equal(t, noticeUnreachable, rec.lastText())
}

func TestConfigureStartsPollingAndDetectsStart(t *testing.T) {
	client := &fakeClient{current: runningEntry(1)}
	c, rec := newTestCoordinator(t, client)

	c.Configure(context.Background(), "tok")

	got := waitChange(t, rec)
	require.NotNil(t, got)
	assert.Equal(t, int64(1), got.ID)
	assert.Equal(t, domain.StatusAvailable, c.Status())
	assert.Equal(t, "tok", client.getToken())

	// The fire-and-forget summary refresh lands eventually.
	select {
	case rep := <-rec.summaryCh:
		assert.Equal(t, int64(1000), rep.TotalGrand)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for summary update")
	}
}

func TestPollDetectsStopAfterStart(t *testing.T) {
	client := &fakeClient{current: runningEntry(1)}
	c, rec := newTestCoordinator(t, client)

	c.Configure(context.Background(), "tok")
	require.NotNil(t, waitChange(t, rec))

	client.setCurrent(nil, nil)
	got := waitChange(t, rec)
	assert.Nil(t, got)
	assert.Nil(t, c.CurrentEntry())
	assert.Equal(t, domain.NoTimer, c.TimerState())
}

func TestUnchangedTickRefreshesStatusTextOnly(t *testing.T) {
	c, rec := newTestCoordinator(t, &fakeClient{})
	c.setStatus(domain.StatusAvailable)
	ctx := context.Background()

	e := runningEntry(1)
	c.commit(ctx, 1, e)
	require.Equal(t, 1, rec.changeCount())
	textsAfterFirst := rec.textCount()

	// Same snapshot again: no structural change, but the status text
	// still refreshes so the elapsed display advances.
	c.commit(ctx, 2, runningEntry(1))
	assert.Equal(t, 1, rec.changeCount())
	assert.Greater(t, rec.textCount(), textsAfterFirst)
}

func TestUpdatedEntryCommitsNewSnapshot(t *testing.T) {
	c, rec := newTestCoordinator(t, &fakeClient{})
	c.setStatus(domain.StatusAvailable)
	ctx := context.Background()

	c.commit(ctx, 1, runningEntry(1))
	require.Equal(t, 1, rec.changeCount())

	updated := runningEntry(1)
	updated.Description = "focus block, continued"
	c.commit(ctx, 2, updated)

	assert.Equal(t, 2, rec.changeCount())
	assert.Equal(t, "focus block, continued", c.CurrentEntry().Description)
}

func TestStaleTickDiscarded(t *testing.T) {
	c, rec := newTestCoordinator(t, &fakeClient{})
	c.setStatus(domain.StatusAvailable)
	ctx := context.Background()

	// Tick 2 commits first; tick 1's slow result arrives afterwards
	// and must not overwrite the newer snapshot.
	c.commit(ctx, 2, runningEntry(2))
	require.Equal(t, 1, rec.changeCount())

	c.commit(ctx, 1, nil)

	assert.Equal(t, 1, rec.changeCount())
	require.NotNil(t, c.CurrentEntry())
	assert.Equal(t, int64(2), c.CurrentEntry().ID)
}

func TestCommitAfterStopDiscarded(t *testing.T) {
	c, rec := newTestCoordinator(t, &fakeClient{})
	c.setStatus(domain.StatusAvailable)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c.commit(ctx, 1, runningEntry(1))

	assert.Nil(t, c.CurrentEntry())
	assert.Zero(t, rec.changeCount())
}

func TestCrossWorkspaceTimerTreatedAsAbsent(t *testing.T) {
	c, rec := newTestCoordinator(t, &fakeClient{})
	c.setStatus(domain.StatusAvailable)

	foreign := runningEntry(1)
	other := testWorkspace + 1
	foreign.WorkspaceID = &other

	c.commit(context.Background(), 1, foreign)

	// Filtered to nil against a nil previous snapshot: Unchanged.
	assert.Nil(t, c.CurrentEntry())
	assert.Zero(t, rec.changeCount())
}

func TestPollFailureSkipsTickAndKeepsSnapshot(t *testing.T) {
	client := &fakeClient{current: runningEntry(1)}
	c, rec := newTestCoordinator(t, client)

	c.Configure(context.Background(), "tok")
	require.NotNil(t, waitChange(t, rec))

	client.setCurrent(nil, errors.New("connection reset"))
	time.Sleep(150 * time.Millisecond)

	// Failed ticks were skipped; the held snapshot is intact and
	// polling is still alive.
	require.NotNil(t, c.CurrentEntry())
	assert.Equal(t, int64(1), c.CurrentEntry().ID)

	client.setCurrent(nil, nil)
	assert.Nil(t, waitChange(t, rec))
}

func TestStartTimerFailsFastWithoutToken(t *testing.T) {
	client := &fakeClient{}
	c, rec := newTestCoordinator(t, client)
	c.Configure(context.Background(), "")

	_, err := c.StartTimer(context.Background(), domain.TimeEntryStart{Description: "x"})

	assert.ErrorIs(t, err, domain.ErrNoToken)
	assert.Empty(t, client.started)
	assert.Equal(t, noticeNoToken, rec.lastText())
}

func TestStartTimerFailsFastWhenUnreachable(t *testing.T) {
	client := &fakeClient{probeErr: errors.New("down")}
	c, _ := newTestCoordinator(t, client)
	c.Configure(context.Background(), "tok")

	_, err := c.StartTimer(context.Background(), domain.TimeEntryStart{Description: "x"})

	assert.ErrorIs(t, err, domain.ErrUnavailable)
	assert.Empty(t, client.started)
}

func TestStartTimerReconcilesImmediately(t *testing.T) {
	client := &fakeClient{}
	c, rec := newTestCoordinator(t, client)
	c.Configure(context.Background(), "tok")

	started := runningEntry(900)
	client.setCurrent(started, nil)
	entry, err := c.StartTimer(context.Background(), domain.TimeEntryStart{Description: "focus block"})
	require.NoError(t, err)
	assert.Equal(t, int64(900), entry.ID)

	got := waitChange(t, rec)
	require.NotNil(t, got)
	assert.Equal(t, int64(900), got.ID)
}

func TestRunOnce(t *testing.T) {
	client := &fakeClient{current: runningEntry(3)}
	c, rec := newTestCoordinator(t, client)

	require.NoError(t, c.RunOnce(context.Background()))

	assert.Equal(t, domain.StatusAvailable, c.Status())
	got := waitChange(t, rec)
	require.NotNil(t, got)
	assert.Equal(t, int64(3), got.ID)
}

func TestRunOnceProbeFailure(t *testing.T) {
	client := &fakeClient{probeErr: errors.New("down")}
	c, _ := newTestCoordinator(t, client)

	assert.Error(t, c.RunOnce(context.Background()))
	assert.Equal(t, domain.StatusUnreachable, c.Status())
}

func TestRefreshCaches(t *testing.T) {
	client := &fakeClient{
		projects: []domain.Project{{ID: 7, WorkspaceID: testWorkspace, Name: "Platform"}},
		tags:     []domain.Tag{{ID: 1, WorkspaceID: testWorkspace, Name: "deep-work"}},
	}
	c, _ := newTestCoordinator(t, client)

	require.NoError(t, c.RefreshCaches(context.Background()))

	projects := c.CachedProjects()
	require.Len(t, projects, 1)
	assert.Equal(t, "Platform", projects[0].Name)
	tags := c.CachedTags()
	require.Len(t, tags, 1)
	assert.Equal(t, "deep-work", tags[0].Name)
}

func TestStatusText(t *testing.T) {
	c, _ := newTestCoordinator(t, &fakeClient{})

	// Untested is silent.
	assert.Equal(t, "", c.StatusText())

	c.setStatus(domain.StatusNoToken)
	assert.Equal(t, noticeNoToken, c.StatusText())

	c.setStatus(domain.StatusAvailable)
	assert.Equal(t, textNoTimer, c.StatusText())

	e := runningEntry(1)
	e.DurationSec = -1756026000
	c.mu.Lock()
	c.current = e
	c.mu.Unlock()
	c.now = func() time.Time { return time.Unix(1756026100, 0) }
	assert.Equal(t, "0:01:40 focus block", c.StatusText())
}

func TestFormatElapsed(t *testing.T) {
	assert.Equal(t, "0:00:00", formatElapsed(0))
	assert.Equal(t, "0:00:59", formatElapsed(59*time.Second))
	assert.Equal(t, "1:02:03", formatElapsed(time.Hour+2*time.Minute+3*time.Second))
	assert.Equal(t, "27:00:00", formatElapsed(27*time.Hour))
	assert.Equal(t, "0:00:00", formatElapsed(-time.Second))
}
