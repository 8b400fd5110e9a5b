package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config holds file- and environment-driven configuration. Environment
// variables override values read from the optional TOML file.
type Config struct {
	Toggl struct {
		APIToken    string `toml:"api_token"`
		WorkspaceID int64  `toml:"workspace_id"`
		BaseURL     string `toml:"base_url"` // default: https://api.track.toggl.com
	} `toml:"toggl"`
	Sync struct {
		PollIntervalSeconds int `toml:"poll_interval_seconds"` // default: 10
	} `toml:"sync"`
	HTTP struct {
		Addr string `toml:"addr"` // default: :8090
	} `toml:"http"`
}

// PollInterval returns the poll interval as a duration.
func (c Config) PollInterval() time.Duration {
	return time.Duration(c.Sync.PollIntervalSeconds) * time.Second
}

// Load reads configuration from the TOML file at path (skipped when
// path is empty or missing), applies environment overrides and
// validates the result.
func Load(path string) (Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := toml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config file %s: %w", path, err)
			}
		case os.IsNotExist(err):
			// Missing file is fine; env vars may carry everything.
		default:
			return cfg, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	if v := os.Getenv("TOGGL_API_TOKEN"); v != "" {
		cfg.Toggl.APIToken = v
	}
	if v := os.Getenv("TOGGL_WORKSPACE_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return cfg, errors.New("TOGGL_WORKSPACE_ID must be an integer")
		}
		cfg.Toggl.WorkspaceID = id
	}
	if v := os.Getenv("TOGGL_BASE_URL"); v != "" {
		cfg.Toggl.BaseURL = v
	}
	if v := os.Getenv("SYNC_POLL_SECONDS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, errors.New("SYNC_POLL_SECONDS must be an integer")
		}
		cfg.Sync.PollIntervalSeconds = n
	}
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		cfg.HTTP.Addr = v
	}

	if cfg.Toggl.BaseURL == "" {
		cfg.Toggl.BaseURL = "https://api.track.toggl.com"
	}
	if cfg.Sync.PollIntervalSeconds == 0 {
		cfg.Sync.PollIntervalSeconds = 10
	}
	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = ":8090"
	}

	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	var problems []string
	if c.Toggl.WorkspaceID == 0 {
		problems = append(problems, "toggl workspace_id is required")
	}
	if c.Sync.PollIntervalSeconds < 1 {
		problems = append(problems, "poll_interval_seconds must be at least 1")
	}
	if len(problems) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(problems, "\n  - "))
	}
	return nil
}
