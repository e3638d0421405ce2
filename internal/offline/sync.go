package offline

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/MrSnakeDoc/bookmarker/internal/apperr"
	"github.com/MrSnakeDoc/bookmarker/internal/logger"
)

// TagSyncBookmarks is the tag whose hook persists the bookmark store.
const TagSyncBookmarks = "sync-bookmarks"

// SyncHook does the work of one sync tag.
type SyncHook func(ctx context.Context) error

// SyncManager keeps registered sync tags until their hook succeeds.
type SyncManager struct {
	notify Notifier
	log    logger.Logger

	mu      sync.Mutex
	hooks   map[string]SyncHook
	pending map[string]struct{}
}

func NewSyncManager(notify Notifier, log logger.Logger) *SyncManager {
	return &SyncManager{
		notify:  notify,
		log:     log,
		hooks:   make(map[string]SyncHook),
		pending: make(map[string]struct{}),
	}
}

// Handle sets the hook run for tag.
func (m *SyncManager) Handle(tag string, hook SyncHook) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hooks[tag] = hook
}

// Register marks tag as pending. Registering twice is a no-op.
func (m *SyncManager) Register(tag string) {
	if tag == "" {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending[tag] = struct{}{}
}

// Pending lists the tags waiting to be fired, sorted.
func (m *SyncManager) Pending() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	tags := make([]string, 0, len(m.pending))
	for tag := range m.pending {
		tags = append(tags, tag)
	}
	slices.Sort(tags)
	return tags
}

// Fire runs the hook of a pending tag. On success the tag is cleared and
// pages get a synced message; on failure it stays pending for the next try.
// Firing a tag that is not pending does nothing.
func (m *SyncManager) Fire(ctx context.Context, tag string) error {
	m.mu.Lock()
	_, ok := m.pending[tag]
	hook := m.hooks[tag]
	m.mu.Unlock()
	if !ok {
		return nil
	}

	if hook != nil {
		if err := hook(ctx); err != nil {
			m.log.Warn("background sync failed", logger.String("tag", tag), logger.Error(err))
			return apperr.Wrap(apperr.KindStorage, fmt.Sprintf("sync %q", tag), err)
		}
	}

	m.mu.Lock()
	delete(m.pending, tag)
	m.mu.Unlock()

	m.log.Info("🔁 Background sync done", logger.String("tag", tag))
	if m.notify != nil {
		m.notify.Publish(Message{Type: MsgSynced, Tag: tag})
	}
	return nil
}

// FireAll fires every pending tag and returns the first error.
func (m *SyncManager) FireAll(ctx context.Context) error {
	var first error
	for _, tag := range m.Pending() {
		if err := m.Fire(ctx, tag); err != nil && first == nil {
			first = err
		}
	}
	return first
}
