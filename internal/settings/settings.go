// Package settings keeps the user preferences: defaults merged with whatever
// was last saved.
package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/MrSnakeDoc/bookmarker/internal/apperr"
	"github.com/MrSnakeDoc/bookmarker/internal/domain"
	"github.com/MrSnakeDoc/bookmarker/internal/logger"
)

// Key names the stored settings document.
const Key = "bookmarker-settings"

type Settings struct {
	Theme               string `json:"theme"`     // system, light, dark
	ViewMode            string `json:"viewMode"`  // grid, list
	SortOrder           string `json:"sortOrder"` // newest, oldest, alphabetical
	EnableNotifications bool   `json:"enableNotifications"`
	AutoFetchMetadata   bool   `json:"autoFetchMetadata"`
}

// Defaults are used for every field never saved.
func Defaults() Settings {
	return Settings{
		Theme:               "system",
		ViewMode:            "grid",
		SortOrder:           "newest",
		EnableNotifications: true,
		AutoFetchMetadata:   true,
	}
}

// Validate rejects unknown enum values.
func (s Settings) Validate() error {
	if !oneOf(s.Theme, "system", "light", "dark") {
		return apperr.Newf(apperr.KindValidation, "unknown theme %q", s.Theme)
	}
	if !oneOf(s.ViewMode, "grid", "list") {
		return apperr.Newf(apperr.KindValidation, "unknown view mode %q", s.ViewMode)
	}
	if !oneOf(s.SortOrder, "newest", "oldest", "alphabetical") {
		return apperr.Newf(apperr.KindValidation, "unknown sort order %q", s.SortOrder)
	}
	return nil
}

func oneOf(v string, allowed ...string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

// Sort maps the sort preference onto listing filters.
func (s Settings) Sort() (domain.SortField, domain.SortOrder) {
	switch s.SortOrder {
	case "oldest":
		return domain.SortByCreatedAt, domain.Ascending
	case "alphabetical":
		return domain.SortByTitle, domain.Ascending
	default:
		return domain.SortByCreatedAt, domain.Descending
	}
}

// Store persists the raw settings document. Load returns nil, nil when
// nothing was saved yet.
type Store interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, data []byte) error
}

// Manager serves the current settings and saves every update.
type Manager struct {
	store Store
	log   logger.Logger

	mu       sync.RWMutex
	current  Settings
	onChange []func(Settings)
}

func NewManager(store Store, log logger.Logger) *Manager {
	return &Manager{store: store, log: log, current: Defaults()}
}

// Load reads the stored document over the defaults. A corrupt document is
// logged and ignored.
func (m *Manager) Load(ctx context.Context) error {
	data, err := m.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	s := Defaults()
	if len(data) > 0 {
		if err := json.Unmarshal(data, &s); err != nil {
			m.log.Warn("ignoring unreadable settings", logger.Error(err))
			s = Defaults()
		} else if err := s.Validate(); err != nil {
			m.log.Warn("ignoring invalid settings", logger.Error(err))
			s = Defaults()
		}
	}

	m.mu.Lock()
	m.current = s
	m.mu.Unlock()
	return nil
}

func (m *Manager) Get() Settings {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Update merges a partial JSON document into the current settings,
// validates the result and saves it.
func (m *Manager) Update(ctx context.Context, patch []byte) (Settings, error) {
	m.mu.Lock()
	next := m.current
	if err := json.Unmarshal(patch, &next); err != nil {
		m.mu.Unlock()
		return Settings{}, apperr.Wrap(apperr.KindValidation, "malformed settings", err)
	}
	if err := next.Validate(); err != nil {
		m.mu.Unlock()
		return Settings{}, err
	}

	data, err := json.Marshal(next)
	if err != nil {
		m.mu.Unlock()
		return Settings{}, fmt.Errorf("encode settings: %w", err)
	}
	if err := m.store.Save(ctx, data); err != nil {
		m.mu.Unlock()
		return Settings{}, fmt.Errorf("save settings: %w", err)
	}
	m.current = next
	hooks := append([]func(Settings){}, m.onChange...)
	m.mu.Unlock()

	for _, fn := range hooks {
		fn(next)
	}
	return next, nil
}

// OnChange registers fn to run after every successful update.
func (m *Manager) OnChange(fn func(Settings)) {
	m.mu.Lock()
	m.onChange = append(m.onChange, fn)
	m.mu.Unlock()
}

// AutoFetchMetadata reports whether page titles may be fetched.
func (m *Manager) AutoFetchMetadata() bool {
	return m.Get().AutoFetchMetadata
}
