package progress

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultRetention     = time.Hour
	DefaultSweepInterval = 5 * time.Minute
)

// Sweeper periodically expires runs older than Retention
type Sweeper struct {
	Store     Store
	Retention time.Duration
	Interval  time.Duration
	Logger    *zap.Logger
	Now       func() time.Time
}

// NewSweeper creates a Sweeper; zero durations fall back to the defaults
func NewSweeper(store Store, retention, interval time.Duration, logger *zap.Logger) *Sweeper {
	if retention <= 0 {
		retention = DefaultRetention
	}
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Sweeper{Store: store, Retention: retention, Interval: interval, Logger: logger, Now: time.Now}
}

// SweepOnce expires every run with no activity within the retention window
func (s *Sweeper) SweepOnce(ctx context.Context) {
	cutoff := s.Now().Add(-s.Retention)
	n, err := s.Store.Expire(ctx, cutoff)
	if err != nil {
		s.Logger.Error("Progress sweep failed", zap.Error(err))
		return
	}
	if n > 0 {
		s.Logger.Info("Progress sweep expired runs", zap.Int("runs", n), zap.Time("cutoff", cutoff))
	}
}

// Run sweeps once, then every Interval until ctx is done. Call from a goroutine.
func (s *Sweeper) Run(ctx context.Context) error {
	s.SweepOnce(ctx)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.SweepOnce(ctx)
		}
	}
}
