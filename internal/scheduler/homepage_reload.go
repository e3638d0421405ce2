package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/MrSnakeDoc/bookmarker/internal/logger"
	"github.com/MrSnakeDoc/bookmarker/internal/sources/homepage"
	"github.com/MrSnakeDoc/bookmarker/internal/transfer"
)

// Importer applies an import document.
type Importer interface {
	Import(ctx context.Context, doc *transfer.Document, mode transfer.Mode) (transfer.Summary, error)
}

// HomepageReloader periodically merges the Homepage configuration into the
// bookmark store.
type HomepageReloader struct {
	source        *homepage.Source
	importer      Importer
	logger        logger.Logger
	interval      time.Duration
	stopCh        chan struct{}
	manualTrigger <-chan struct{}
}

// NewHomepageReloader creates a new homepage reloader
func NewHomepageReloader(
	source *homepage.Source,
	importer Importer,
	log logger.Logger,
	interval time.Duration,
	manualTrigger <-chan struct{},
) *HomepageReloader {
	return &HomepageReloader{
		source:        source,
		importer:      importer,
		logger:        log,
		interval:      interval,
		stopCh:        make(chan struct{}),
		manualTrigger: manualTrigger,
	}
}

// Start imports once, then on every tick and manual trigger.
func (hr *HomepageReloader) Start(ctx context.Context) error {
	// Load immediately on start
	if err := hr.Reload(ctx); err != nil {
		return fmt.Errorf("initial homepage import failed: %w", err)
	}

	ticker := time.NewTicker(hr.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := hr.Reload(ctx); err != nil {
					hr.logger.Error("failed to import homepage bookmarks",
						logger.Error(err))
				}
			case <-hr.manualTrigger:
				hr.logger.Info("manual homepage import triggered")
				if err := hr.Reload(ctx); err != nil {
					hr.logger.Error("failed to import homepage bookmarks",
						logger.Error(err))
				}
			case <-hr.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the reloader
func (hr *HomepageReloader) Stop() {
	close(hr.stopCh)
}

// Reload reads the Homepage files and merges them. Merging is idempotent,
// so an unchanged file writes nothing.
func (hr *HomepageReloader) Reload(ctx context.Context) error {
	hr.logger.Info("reloading bookmarks from homepage")

	doc, err := hr.source.Document()
	if err != nil {
		return fmt.Errorf("failed to load homepage config: %w", err)
	}

	sum, err := hr.importer.Import(ctx, doc, transfer.ModeMerge)
	if err != nil {
		return fmt.Errorf("failed to merge homepage bookmarks: %w", err)
	}

	hr.logger.Info("homepage bookmarks merged",
		logger.Int("seen", len(doc.Bookmarks)),
		logger.Int("created", sum.BookmarksCreated),
		logger.Int("updated", sum.BookmarksUpdated),
		logger.Int("categories_created", sum.CategoriesCreated))
	return nil
}
