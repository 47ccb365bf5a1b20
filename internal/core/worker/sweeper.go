package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/vietddude/dexcache/internal/infra/storage"
	"github.com/vietddude/dexcache/internal/metrics"
)

// Sweeper periodically deletes expired store records. Reads already treat
// expired records as absent; sweeping only reclaims space.
type Sweeper struct {
	interval time.Duration
	store    storage.RecordSweeper
	now      func() time.Time
	log      *slog.Logger
}

// NewSweeper creates a Sweeper; an interval <= 0 disables it.
func NewSweeper(interval time.Duration, store storage.RecordSweeper) *Sweeper {
	return &Sweeper{
		interval: interval,
		store:    store,
		now:      time.Now,
		log:      slog.Default().With("component", "sweeper"),
	}
}

// Start runs the sweep loop until ctx is done.
func (s *Sweeper) Start(ctx context.Context) {
	if s.interval <= 0 {
		return // Sweeping disabled
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// Initial sweep
	s.sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	n, err := s.store.DeleteExpired(ctx, s.now())
	if err != nil {
		metrics.BackendErrorsTotal.WithLabelValues("store", "sweep").Inc()
		s.log.Error("Failed to sweep expired records", "error", err)
		return
	}
	if n > 0 {
		metrics.StoreRecordsSwept.Add(float64(n))
		s.log.Info("Swept expired records", "count", n)
	}
}
