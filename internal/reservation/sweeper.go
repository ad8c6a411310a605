package reservation

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper periodically reclaims expired, never-finalized reservations. It is
// the only path that changes reservation state without caller action.
type Sweeper struct {
	manager  *Manager
	interval time.Duration
	batch    int
	logger   *slog.Logger
}

// NewSweeper builds a sweeper over the manager. Zero interval/batch select
// 30s and 100.
func NewSweeper(m *Manager, interval time.Duration, batch int, logger *slog.Logger) *Sweeper {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if batch <= 0 {
		batch = 100
	}
	return &Sweeper{manager: m, interval: interval, batch: batch, logger: logger}
}

// Run blocks, sweeping once per interval until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			reclaimed, err := s.manager.ExpireStale(ctx, time.Now().UTC(), s.batch)
			if err != nil {
				s.logger.Error("reservation sweep failed", "error", err)
				continue
			}
			if reclaimed > 0 {
				s.logger.Info("reservation sweep reclaimed holds", "count", reclaimed)
			}
		}
	}
}
