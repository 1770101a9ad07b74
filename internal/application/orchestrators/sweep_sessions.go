package orchestrators

import (
	"context"
	"log/slog"
	"time"
)

// ExpiredSessionRemover deletes sessions past their end.
type ExpiredSessionRemover interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// ExecuteSweepSessions removes ended local sessions.
// POST: Returns the number of sessions removed
func ExecuteSweepSessions(ctx context.Context, store ExpiredSessionRemover, now time.Time) (int64, error) {
	n, err := store.DeleteExpired(ctx, now)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		slog.Info("auth_event", "event", "sessions_swept", "count", n)
	}
	return n, nil
}

// StartSessionSweeper periodically removes ended sessions until stopCh is closed.
func StartSessionSweeper(store ExpiredSessionRemover, interval time.Duration, stopCh <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case t := <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				if _, err := ExecuteSweepSessions(ctx, store, t); err != nil {
					slog.Error("session_sweep_failed", "error", err.Error())
				}
				cancel()
			case <-stopCh:
				return
			}
		}
	}()
}
