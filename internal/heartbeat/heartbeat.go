// Package heartbeat keeps the manager marked online on the hub.
package heartbeat

import (
	"context"
	"log/slog"
	"time"

	"MultiChat/internal/lib/sl"
)

const DefaultInterval = 2 * time.Minute

type Pinger interface {
	Heartbeat(ctx context.Context) error
}

// Run pings immediately and then every interval until ctx is done. Failed
// pings are logged and skipped.
func Run(ctx context.Context, p Pinger, interval time.Duration, log *slog.Logger) {
	if interval <= 0 {
		interval = DefaultInterval
	}
	log = log.With(sl.Module("heartbeat"))

	ping := func() {
		if err := p.Heartbeat(ctx); err != nil && ctx.Err() == nil {
			log.Debug("heartbeat failed", sl.Err(err))
		}
	}

	ping()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ping()
		}
	}
}
