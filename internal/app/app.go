package app

import (
	"context"
	"log/slog"

	tg "toggl-sync/internal/adapter/toggl"
	"toggl-sync/internal/config"
	"toggl-sync/internal/queue"
	"toggl-sync/internal/report"
	"toggl-sync/internal/usecase"
)

// App wires the adapter, request queue, assembler and coordinator.
type App struct {
	log   *slog.Logger
	cfg   config.Config
	queue *queue.Queue
	asm   *report.Assembler
	coord *usecase.Coordinator
}

func New(log *slog.Logger, cfg config.Config) *App {
	client := tg.NewClient(cfg.Toggl.BaseURL, cfg.Toggl.APIToken, cfg.Toggl.WorkspaceID, log)
	q := queue.New(log)
	asm := &report.Assembler{Log: log, Reports: client, Queue: q}
	coord := usecase.New(log, client, asm, cfg.Toggl.WorkspaceID, cfg.PollInterval())
	return &App{log: log, cfg: cfg, queue: q, asm: asm, coord: coord}
}

// Coordinator exposes the sync coordinator for listener registration
// and timer operations.
func (a *App) Coordinator() *usecase.Coordinator { return a.coord }

// Assembler exposes the report assembler for on-demand queries.
func (a *App) Assembler() *report.Assembler { return a.asm }

// Start applies the configured credential, which probes connectivity
// and starts the poller when the API is reachable.
func (a *App) Start(ctx context.Context) {
	a.coord.Configure(ctx, a.cfg.Toggl.APIToken)
}

// RunOnce performs a single reconciliation pass and returns.
func (a *App) RunOnce(ctx context.Context) error {
	return a.coord.RunOnce(ctx)
}

// Stop tears down the poller and drains the request queue.
func (a *App) Stop() {
	a.coord.Stop()
	a.queue.Close()
}
