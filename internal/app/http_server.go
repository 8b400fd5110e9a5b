package app

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"toggl-sync/internal/domain"
)

// HTTPServer returns a configured http.Server exposing a read-only
// view of the sync state. Call ListenAndServe on the returned server
// in a goroutine and Shutdown it on exit.
func (a *App) HTTPServer(addr string) *http.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		type entryView struct {
			ID          int64    `json:"id"`
			Description string   `json:"description"`
			ProjectID   *int64   `json:"project_id"`
			Tags        []string `json:"tags"`
			Start       string   `json:"start"`
			ElapsedSec  int64    `json:"elapsed_sec"`
		}
		resp := map[string]any{
			"api_status":  a.coord.Status().String(),
			"timer_state": a.coord.TimerState().String(),
			"status_text": a.coord.StatusText(),
		}
		if e := a.coord.CurrentEntry(); e != nil {
			resp["entry"] = entryView{
				ID:          e.ID,
				Description: e.Description,
				ProjectID:   e.ProjectID,
				Tags:        e.Tags,
				Start:       e.Start.Format(time.RFC3339),
				ElapsedSec:  int64(e.ElapsedAt(time.Now()).Seconds()),
			}
		}
		writeJSON(w, http.StatusOK, resp)
	})

	// /report?from=...&until=... and /summary?from=...&until=...
	// accept RFC3339 or YYYY-MM-DD; default to the last 7 days.
	mux.HandleFunc("/report", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		rep, err := a.asm.FetchDetailed(r.Context(), queryFromRequest(r))
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]any{"status": "error", "error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, rep)
	})

	mux.HandleFunc("/summary", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		rep, err := a.asm.FetchSummary(r.Context(), queryFromRequest(r))
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]any{"status": "error", "error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, rep)
	})

	srv := &http.Server{Addr: addr, Handler: loggingMiddleware(a.log, mux)}
	a.log.Info("http status server configured", slog.String("addr", addr))
	return srv
}

// loggingMiddleware provides basic request logging.
func loggingMiddleware(log *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Info("http request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("remote", r.RemoteAddr),
			slog.Duration("dur", time.Since(start)),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func queryFromRequest(r *http.Request) domain.Query {
	now := time.Now().UTC()
	until := parseDateParam(r.URL.Query().Get("until"), now)
	from := parseDateParam(r.URL.Query().Get("from"), until.AddDate(0, 0, -7))
	return domain.Query{From: from, Until: until}
}

// parseDateParam parses a boundary that may be RFC3339 or YYYY-MM-DD.
// On empty or invalid input defaultVal is returned, to avoid hard
// failures on hand-typed URLs.
func parseDateParam(val string, defaultVal time.Time) time.Time {
	if val == "" {
		return defaultVal
	}
	if t, err := time.Parse(time.RFC3339, val); err == nil {
		return t
	}
	if d, err := time.Parse("2006-01-02", val); err == nil {
		return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	}
	return defaultVal
}
