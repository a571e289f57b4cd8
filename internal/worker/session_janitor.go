package worker

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Evictor drops idle sessions and reports how many went.
type Evictor interface {
	Evict(idle time.Duration) int
}

// StartSessionJanitor evicts idle sessions every interval until ctx is done.
// The returned channel closes when the janitor has stopped.
func StartSessionJanitor(ctx context.Context, sessions Evictor, idle, interval time.Duration, logger *zap.Logger) <-chan struct{} {
	done := make(chan struct{})
	if interval <= 0 {
		interval = time.Minute
	}
	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := sessions.Evict(idle); n > 0 {
					logger.Debug("session janitor pass", zap.Int("evicted", n))
				}
			}
		}
	}()
	return done
}
