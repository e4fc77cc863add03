package booking

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper periodically marks confirmed bookings whose end time has passed as
// completed.
type Sweeper struct {
	service  Service
	interval time.Duration
	now      func() time.Time
}

func NewSweeper(service Service, interval time.Duration) *Sweeper {
	return &Sweeper{service: service, interval: interval, now: time.Now}
}

// Run blocks until ctx is cancelled. A non-positive interval disables the sweeper.
func (s *Sweeper) Run(ctx context.Context) {
	if s.interval <= 0 {
		slog.Info("booking completion sweeper disabled")
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	slog.Info("booking completion sweeper started", "interval", s.interval)
	for {
		select {
		case <-ctx.Done():
			slog.Info("booking completion sweeper stopped")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	if _, err := s.service.CompleteElapsed(ctx, s.now()); err != nil && ctx.Err() == nil {
		slog.ErrorContext(ctx, "failed to complete elapsed bookings", "error", err)
	}
}
