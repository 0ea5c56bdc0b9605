package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/liquideth/vaultstat/internal/domain"
	"github.com/liquideth/vaultstat/internal/pipeline"
)

// Refresher runs one unfiltered aggregation cycle.
type Refresher interface {
	Refresh(ctx context.Context, opts pipeline.Options) (domain.PipelineResult, error)
}

// RefreshWorker periodically runs the full pipeline so the hourly snapshot
// log advances even when nobody queries the API.
type RefreshWorker struct {
	refresher Refresher
	interval  time.Duration
}

// NewRefreshWorker creates a new RefreshWorker.
func NewRefreshWorker(refresher Refresher, interval time.Duration) *RefreshWorker {
	return &RefreshWorker{refresher: refresher, interval: interval}
}

// Run starts the refresh loop. It blocks until the context is cancelled.
func (w *RefreshWorker) Run(ctx context.Context) {
	slog.Info("RefreshWorker: starting", "interval", w.interval)

	// Refresh immediately on startup
	w.refresh(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("RefreshWorker: shutting down")
			return
		case <-ticker.C:
			w.refresh(ctx)
		}
	}
}

func (w *RefreshWorker) refresh(ctx context.Context) {
	res, err := w.refresher.Refresh(ctx, pipeline.Options{})
	if err != nil {
		slog.Error("RefreshWorker: refresh failed", "error", err)
		return
	}
	slog.Info("RefreshWorker: refresh completed",
		"total", domain.FormatUSD(res.Totals.Total),
		"warnings", len(res.Warnings))
}
