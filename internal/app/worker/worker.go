package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/IdiegeA21/chat-app/internal/core/contracts"
)

// OnlineSource lists the users with a live connection in this process.
type OnlineSource interface {
	OnlineUsers() []int64
}

// PresenceWorker keeps the shared presence mirror alive for every user this
// process holds a connection for.
type PresenceWorker struct {
	log      *slog.Logger
	source   OnlineSource
	store    contracts.PresenceStore
	ttl      time.Duration
	interval time.Duration
}

func NewPresenceWorker(
	log *slog.Logger,
	source OnlineSource,
	store contracts.PresenceStore,
	ttl time.Duration,
	interval time.Duration,
) contracts.AsyncWorker {
	if interval <= 0 {
		interval = ttl / 3
	}
	if interval <= 0 {
		interval = 20 * time.Second
	}
	return &PresenceWorker{
		log:      log,
		source:   source,
		store:    store,
		ttl:      ttl,
		interval: interval,
	}
}

func (w *PresenceWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	w.log.InfoContext(ctx, "worker - presence refresh - started", "interval", w.interval, "ttl", w.ttl)
	for {
		select {
		case <-ctx.Done():
			w.log.InfoContext(ctx, "worker - presence refresh - stopped")
			return nil
		case <-ticker.C:
			w.refresh(ctx)
		}
	}
}

func (w *PresenceWorker) refresh(ctx context.Context) {
	users := w.source.OnlineUsers()
	if len(users) == 0 {
		return
	}
	if err := w.store.Refresh(ctx, users, w.ttl); err != nil {
		w.log.ErrorContext(ctx, "worker - presence refresh - refresh failed", "users", len(users), "err", err)
		return
	}
	w.log.DebugContext(ctx, "worker - presence refresh - success", "users", len(users))
}
