package scheduler

import (
	"context"
	"time"

	"github.com/MrSnakeDoc/bookmarker/internal/logger"
)

// SyncFirer fires every pending background sync tag.
type SyncFirer interface {
	FireAll(ctx context.Context) error
}

// BackgroundSync retries pending sync tags on an interval and on demand.
type BackgroundSync struct {
	syncs         SyncFirer
	logger        logger.Logger
	interval      time.Duration
	stopCh        chan struct{}
	manualTrigger <-chan struct{}
}

func NewBackgroundSync(syncs SyncFirer, log logger.Logger, interval time.Duration, manualTrigger <-chan struct{}) *BackgroundSync {
	return &BackgroundSync{
		syncs:         syncs,
		logger:        log,
		interval:      interval,
		stopCh:        make(chan struct{}),
		manualTrigger: manualTrigger,
	}
}

func (bs *BackgroundSync) Start(ctx context.Context) {
	ticker := time.NewTicker(bs.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				bs.fire(ctx)
			case <-bs.manualTrigger:
				bs.fire(ctx)
			case <-bs.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (bs *BackgroundSync) Stop() {
	close(bs.stopCh)
}

func (bs *BackgroundSync) fire(ctx context.Context) {
	if err := bs.syncs.FireAll(ctx); err != nil {
		bs.logger.Warn("pending sync tags failed, will retry", logger.Error(err))
	}
}
