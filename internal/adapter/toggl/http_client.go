package toggl

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"toggl-sync/internal/domain"
)

const userAgent = "toggl-sync"

// maxReportPages bounds the detailed-report walk so a remote that
// keeps reporting a higher total_count cannot spin us forever. Hitting
// the cap is logged as a warning: the result is truncated.
const maxReportPages = 200

// Client implements ports.TogglClient and ports.ReportsClient using
// the Toggl Track API v9 and the Reports API v2.
type Client struct {
	baseURL   string
	http      *http.Client
	workspace int64
	log       *slog.Logger

	mu       sync.RWMutex
	apiToken string
}

func NewClient(baseURL, apiToken string, workspaceID int64, log *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = "https://api.track.toggl.com"
	}
	return &Client{
		baseURL:   baseURL,
		apiToken:  apiToken,
		workspace: workspaceID,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: log,
	}
}

// SetAPIToken replaces the credential used for subsequent calls.
func (c *Client) SetAPIToken(token string) {
	c.mu.Lock()
	c.apiToken = token
	c.mu.Unlock()
}

// Probe verifies the credential by fetching the authenticated user.
// Toggl v9: GET /api/v9/me
func (c *Client) Probe(ctx context.Context) error {
	var me struct {
		ID int64 `json:"id"`
	}
	return c.getJSON(ctx, "/api/v9/me", nil, &me)
}

// CurrentTimeEntry fetches the running timer, mapping a null body to
// nil. Toggl v9: GET /api/v9/me/time_entries/current
func (c *Client) CurrentTimeEntry(ctx context.Context) (*domain.TimeEntry, error) {
	var raw *rawTimeEntry
	if err := c.getJSON(ctx, "/api/v9/me/time_entries/current", nil, &raw); err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}
	entry := raw.toDomain()
	return &entry, nil
}

// StartTimeEntry starts a timer in the configured workspace.
// Toggl v9: POST /api/v9/workspaces/{id}/time_entries
func (c *Client) StartTimeEntry(ctx context.Context, spec domain.TimeEntryStart) (*domain.TimeEntry, error) {
	payload := map[string]any{
		"created_with": userAgent,
		"description":  spec.Description,
		"tags":         spec.Tags,
		"billable":     spec.Billable,
		"workspace_id": c.workspace,
		"start":        time.Now().UTC().Format(time.RFC3339),
		"duration":     -1,
	}
	if spec.ProjectID != nil {
		payload["project_id"] = *spec.ProjectID
	}
	path := fmt.Sprintf("/api/v9/workspaces/%d/time_entries", c.workspace)
	var raw rawTimeEntry
	if err := c.doJSON(ctx, http.MethodPost, path, payload, &raw); err != nil {
		return nil, err
	}
	entry := raw.toDomain()
	return &entry, nil
}

// StopTimeEntry stops the timer with the given ID.
// Toggl v9: PATCH /api/v9/workspaces/{id}/time_entries/{id}/stop
func (c *Client) StopTimeEntry(ctx context.Context, id int64) (*domain.TimeEntry, error) {
	path := fmt.Sprintf("/api/v9/workspaces/%d/time_entries/%d/stop", c.workspace, id)
	var raw rawTimeEntry
	if err := c.doJSON(ctx, http.MethodPatch, path, nil, &raw); err != nil {
		return nil, err
	}
	entry := raw.toDomain()
	return &entry, nil
}

// ListWorkspaces fetches workspaces accessible to the token.
func (c *Client) ListWorkspaces(ctx context.Context) ([]domain.Workspace, error) {
	var raw []rawWorkspace
	if err := c.getJSON(ctx, "/api/v9/me/workspaces", nil, &raw); err != nil {
		return nil, err
	}
	out := make([]domain.Workspace, 0, len(raw))
	for _, w := range raw {
		out = append(out, domain.Workspace{ID: w.ID, Name: w.Name})
	}
	return out, nil
}

// ListProjects fetches the projects of a workspace.
func (c *Client) ListProjects(ctx context.Context, workspaceID int64) ([]domain.Project, error) {
	path := fmt.Sprintf("/api/v9/workspaces/%d/projects", workspaceID)
	var raw []rawProject
	if err := c.getJSON(ctx, path, nil, &raw); err != nil {
		return nil, err
	}
	out := make([]domain.Project, 0, len(raw))
	for _, p := range raw {
		var clientID *int64
		if p.ClientID != nil {
			id := *p.ClientID
			clientID = &id
		}
		out = append(out, domain.Project{
			ID:          p.ID,
			WorkspaceID: p.WorkspaceID,
			Name:        p.Name,
			Active:      p.Active,
			Private:     p.Private,
			Color:       p.Color,
			ClientID:    clientID,
			At:          p.At,
		})
	}
	return out, nil
}

// ListTags fetches the tags of a workspace.
func (c *Client) ListTags(ctx context.Context, workspaceID int64) ([]domain.Tag, error) {
	path := fmt.Sprintf("/api/v9/workspaces/%d/tags", workspaceID)
	var raw []rawTag
	if err := c.getJSON(ctx, path, nil, &raw); err != nil {
		return nil, err
	}
	out := make([]domain.Tag, 0, len(raw))
	for _, t := range raw {
		out = append(out, domain.Tag{ID: t.ID, WorkspaceID: t.WorkspaceID, Name: t.Name})
	}
	return out, nil
}

// DetailedReportAll walks every page of a detailed report and returns
// the combined rows. The endpoint is known to hand back overlapping
// pages under load, so rows are returned as-is and deduplicated by the
// caller. total_count counts unique rows, so completion is judged on
// distinct IDs fetched, never on the raw row count: a duplicate row
// must not make the walk quit early. Reports v2: GET /reports/api/v2/details
func (c *Client) DetailedReportAll(ctx context.Context, q domain.Query) ([]domain.DetailedRecord, error) {
	var out []domain.DetailedRecord
	seen := make(map[int64]struct{})
	for page := 1; ; page++ {
		if page > maxReportPages {
			c.log.Warn("detailed report page cap reached, result truncated",
				slog.Int("pages", maxReportPages),
				slog.Int("rows", len(out)),
			)
			break
		}
		params := c.reportParams(q)
		params.Set("page", strconv.Itoa(page))
		var resp rawDetailedResponse
		if err := c.getJSON(ctx, "/reports/api/v2/details", params, &resp); err != nil {
			return nil, err
		}
		for _, r := range resp.Data {
			out = append(out, r.toDomain())
			seen[r.ID] = struct{}{}
		}
		c.log.Debug("fetched report page",
			slog.Int("page", page),
			slog.Int("rows", len(resp.Data)),
			slog.Int("distinct", len(seen)),
			slog.Int("total", resp.TotalCount),
		)
		if len(resp.Data) == 0 || len(seen) >= resp.TotalCount {
			break
		}
	}
	return out, nil
}

// SummaryReport fetches a per-project summary ordered by tracked time
// descending. Reports v2: GET /reports/api/v2/summary
func (c *Client) SummaryReport(ctx context.Context, q domain.Query) (*domain.SummaryReport, error) {
	params := c.reportParams(q)
	params.Set("grouping", "projects")
	params.Set("order_field", "duration")
	params.Set("order_desc", "on")
	var resp rawSummaryResponse
	if err := c.getJSON(ctx, "/reports/api/v2/summary", params, &resp); err != nil {
		return nil, err
	}
	report := &domain.SummaryReport{Data: make([]domain.SummaryGroup, 0, len(resp.Data))}
	if resp.TotalGrand != nil {
		report.TotalGrand = *resp.TotalGrand
	}
	for _, g := range resp.Data {
		var projectID *int64
		if g.ID != nil {
			id := *g.ID
			projectID = &id
		}
		report.Data = append(report.Data, domain.SummaryGroup{
			ProjectID: projectID,
			Title:     g.Title.Project,
			TimeMS:    g.Time,
		})
	}
	return report, nil
}

func (c *Client) reportParams(q domain.Query) url.Values {
	params := url.Values{}
	params.Set("workspace_id", strconv.FormatInt(c.workspace, 10))
	params.Set("since", q.From.Format("2006-01-02"))
	params.Set("until", q.Until.Format("2006-01-02"))
	params.Set("user_agent", userAgent)
	return params
}

// getJSON performs an authenticated GET and decodes the body into out.
func (c *Client) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	if len(params) > 0 {
		path += "?" + params.Encode()
	}
	return c.doJSON(ctx, http.MethodGet, path, nil, out)
}

// doJSON performs an authenticated request with an optional JSON body.
func (c *Client) doJSON(ctx context.Context, method, path string, payload, out any) error {
	c.mu.RLock()
	token := c.apiToken
	c.mu.RUnlock()
	if token == "" {
		return errors.New("missing api token")
	}

	var body io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	// Basic auth: token:api_token
	auth := base64.StdEncoding.EncodeToString([]byte(fmt.Sprintf("%s:%s", token, "api_token")))
	req.Header.Set("Authorization", "Basic "+auth)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("toggl: unexpected status %d: %s", resp.StatusCode, string(msg))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// rawTimeEntry mirrors the JSON from Toggl v9.
type rawTimeEntry struct {
	ID          int64      `json:"id"`
	Description string     `json:"description"`
	ProjectID   *int64     `json:"project_id"`
	WorkspaceID *int64     `json:"workspace_id"`
	Tags        []string   `json:"tags"`
	Start       time.Time  `json:"start"`
	Stop        *time.Time `json:"stop"`
	Duration    int64      `json:"duration"`
}

func (r rawTimeEntry) toDomain() domain.TimeEntry {
	var stopPtr *time.Time
	if r.Stop != nil {
		stop := *r.Stop
		stopPtr = &stop
	}
	var projectPtr *int64
	if r.ProjectID != nil {
		p := *r.ProjectID
		projectPtr = &p
	}
	var wsPtr *int64
	if r.WorkspaceID != nil {
		w := *r.WorkspaceID
		wsPtr = &w
	}
	return domain.TimeEntry{
		ID:          r.ID,
		Description: r.Description,
		ProjectID:   projectPtr,
		WorkspaceID: wsPtr,
		Tags:        r.Tags,
		Start:       r.Start,
		Stop:        stopPtr,
		DurationSec: r.Duration,
	}
}

type rawProject struct {
	ID          int64     `json:"id"`
	WorkspaceID int64     `json:"workspace_id"`
	Name        string    `json:"name"`
	Active      bool      `json:"active"`
	Private     bool      `json:"is_private"`
	Color       string    `json:"color"`
	ClientID    *int64    `json:"client_id"`
	At          time.Time `json:"at"`
}

type rawWorkspace struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type rawTag struct {
	ID          int64  `json:"id"`
	WorkspaceID int64  `json:"workspace_id"`
	Name        string `json:"name"`
}

// rawDetailedRow mirrors one row of the Reports v2 details endpoint;
// dur is milliseconds there, unlike the v9 seconds convention.
type rawDetailedRow struct {
	ID          int64      `json:"id"`
	Description string     `json:"description"`
	ProjectID   *int64     `json:"pid"`
	Start       time.Time  `json:"start"`
	End         *time.Time `json:"end"`
	Dur         int64      `json:"dur"`
	Tags        []string   `json:"tags"`
}

func (r rawDetailedRow) toDomain() domain.DetailedRecord {
	var endPtr *time.Time
	if r.End != nil {
		end := *r.End
		endPtr = &end
	}
	var projectPtr *int64
	if r.ProjectID != nil {
		p := *r.ProjectID
		projectPtr = &p
	}
	return domain.DetailedRecord{
		ID:          r.ID,
		Description: r.Description,
		ProjectID:   projectPtr,
		Start:       r.Start,
		End:         endPtr,
		DurMS:       r.Dur,
		Tags:        r.Tags,
	}
}

type rawDetailedResponse struct {
	TotalGrand *int64           `json:"total_grand"`
	TotalCount int              `json:"total_count"`
	PerPage    int              `json:"per_page"`
	Data       []rawDetailedRow `json:"data"`
}

type rawSummaryResponse struct {
	TotalGrand *int64 `json:"total_grand"`
	Data       []struct {
		ID    *int64 `json:"id"`
		Title struct {
			Project string `json:"project"`
		} `json:"title"`
		Time int64 `json:"time"`
	} `json:"data"`
}
