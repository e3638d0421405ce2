package scheduler

import (
	"context"
	"time"

	"github.com/MrSnakeDoc/bookmarker/internal/logger"
)

// Flusher persists the database image.
type Flusher interface {
	Flush(ctx context.Context) error
}

// Snapshotter flushes a non-durable database on an interval, bounding what
// a crash can lose to one interval of writes.
type Snapshotter struct {
	db       Flusher
	logger   logger.Logger
	interval time.Duration
	stopCh   chan struct{}
}

func NewSnapshotter(db Flusher, log logger.Logger, interval time.Duration) *Snapshotter {
	return &Snapshotter{
		db:       db,
		logger:   log,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

func (s *Snapshotter) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				start := time.Now()
				if err := s.db.Flush(ctx); err != nil {
					s.logger.Error("database snapshot failed", logger.Error(err))
					continue
				}
				s.logger.Debug("database snapshot saved", logger.Duration("took", time.Since(start)))
			case <-s.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (s *Snapshotter) Stop() {
	close(s.stopCh)
}
