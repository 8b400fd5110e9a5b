package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("TOGGL_API_TOKEN", "tok")
	t.Setenv("TOGGL_WORKSPACE_ID", "42")
	t.Setenv("TOGGL_BASE_URL", "")
	t.Setenv("SYNC_POLL_SECONDS", "")
	t.Setenv("HTTP_ADDR", "")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "tok", cfg.Toggl.APIToken)
	assert.Equal(t, int64(42), cfg.Toggl.WorkspaceID)
	assert.Equal(t, "https://api.track.toggl.com", cfg.Toggl.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.PollInterval())
	assert.Equal(t, ":8090", cfg.HTTP.Addr)
}

func TestLoadFromFile(t *testing.T) {
	t.Setenv("TOGGL_API_TOKEN", "")
	t.Setenv("TOGGL_WORKSPACE_ID", "")
	t.Setenv("SYNC_POLL_SECONDS", "")

	path := filepath.Join(t.TempDir(), "config.toml")
	data := `
[toggl]
api_token = "file-tok"
workspace_id = 7

[sync]
poll_interval_seconds = 30
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "file-tok", cfg.Toggl.APIToken)
	assert.Equal(t, int64(7), cfg.Toggl.WorkspaceID)
	assert.Equal(t, 30*time.Second, cfg.PollInterval())
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("TOGGL_API_TOKEN", "env-tok")
	t.Setenv("TOGGL_WORKSPACE_ID", "")
	t.Setenv("SYNC_POLL_SECONDS", "")

	path := filepath.Join(t.TempDir(), "config.toml")
	data := `
[toggl]
api_token = "file-tok"
workspace_id = 7
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "env-tok", cfg.Toggl.APIToken)
}

func TestMissingFileIsFine(t *testing.T) {
	t.Setenv("TOGGL_API_TOKEN", "tok")
	t.Setenv("TOGGL_WORKSPACE_ID", "42")
	t.Setenv("SYNC_POLL_SECONDS", "")

	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.NoError(t, err)
}

func TestWorkspaceRequired(t *testing.T) {
	t.Setenv("TOGGL_API_TOKEN", "tok")
	t.Setenv("TOGGL_WORKSPACE_ID", "")
	t.Setenv("SYNC_POLL_SECONDS", "")

	_, err := Load("")
	assert.Error(t, err)
}

func TestBadWorkspaceEnv(t *testing.T) {
	t.Setenv("TOGGL_WORKSPACE_ID", "not-a-number")

	_, err := Load("")
	assert.Error(t, err)
}

// An empty token is valid config: the coordinator surfaces it as the
// NO_TOKEN state instead of refusing to start.
func TestEmptyTokenAllowed(t *testing.T) {
	t.Setenv("TOGGL_API_TOKEN", "")
	t.Setenv("TOGGL_WORKSPACE_ID", "42")
	t.Setenv("SYNC_POLL_SECONDS", "")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Empty(t, cfg.Toggl.APIToken)
}
