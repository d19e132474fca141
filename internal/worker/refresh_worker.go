package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/skolegrid/aula-bridge/internal/service"
	"github.com/skolegrid/aula-bridge/internal/websocket"
)

// RefreshWorker keeps the platform snapshot warm on a fixed interval and
// announces each successful refresh to WebSocket subscribers. A failed
// refresh keeps the previous snapshot and retries on the next tick.
type RefreshWorker struct {
	data     *service.DataService
	hub      *websocket.Hub
	interval time.Duration
	log      zerolog.Logger
}

// NewRefreshWorker creates a new RefreshWorker.
func NewRefreshWorker(data *service.DataService, hub *websocket.Hub, interval time.Duration, log zerolog.Logger) *RefreshWorker {
	return &RefreshWorker{
		data:     data,
		hub:      hub,
		interval: interval,
		log:      log.With().Str("component", "refresh_worker").Logger(),
	}
}

// Start runs the refresh loop until ctx is cancelled. The first refresh
// happens immediately so the server comes up with data.
func (w *RefreshWorker) Start(ctx context.Context) {
	w.log.Info().Dur("interval", w.interval).Msg("RefreshWorker started")

	w.refresh(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Shutdown requested. RefreshWorker stopping.")
			return
		case <-ticker.C:
			w.refresh(ctx)
		}
	}
}

func (w *RefreshWorker) refresh(ctx context.Context) {
	if err := w.data.Refresh(ctx); err != nil {
		w.log.Error().Err(err).Msg("scheduled refresh failed, keeping previous snapshot")
		return
	}
	w.announce()
}

func (w *RefreshWorker) announce() {
	stats := w.data.SnapshotStats()
	w.hub.Broadcast(websocket.SnapshotEvent{
		Event:       websocket.EventSnapshot,
		UpdatedAt:   stats.FetchedAt.UTC().Format(time.RFC3339),
		Children:    stats.Children,
		UnreadCount: stats.Unread,
		Warnings:    stats.Warnings,
	})
}
