package pages

import (
	"context"
	"log/slog"
	"time"
)

// RunTTLWorker periodically sweeps for idle pages and tears them down,
// deleting the remote agents they created. It blocks until ctx is done.
func RunTTLWorker(ctx context.Context, r *Registry, ttl, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	slog.Info("TTL worker started", "interval", interval, "ttl", ttl)

	for {
		select {
		case <-ticker.C:
			if n := r.Expire(context.WithoutCancel(ctx), ttl); n > 0 {
				slog.Info("TTL worker cleanup completed", "expired", n, "open", r.Len())
			}
		case <-ctx.Done():
			slog.Info("TTL worker shutting down", "reason", ctx.Err())
			return nil
		}
	}
}
