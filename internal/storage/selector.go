package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Selection records the backend chosen for the session. The choice is made
// once by Select and never changes afterwards.
type Selection struct {
	once   sync.Once
	mu     sync.RWMutex
	tag    string
	engine *Engine
	err    error
}

// Tag returns the active backend tag, or "" before a successful Select.
func (s *Selection) Tag() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tag
}

// Engine returns the engine opened by Select, nil before success.
func (s *Selection) Engine() *Engine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

// Select tries each backend in order and keeps the first that opens. Every
// later call returns the outcome of the first one.
func (s *Selection) Select(ctx context.Context, dbName string, backends ...Backend) (*Engine, error) {
	s.once.Do(func() {
		engine, err := open(ctx, dbName, backends)
		s.mu.Lock()
		defer s.mu.Unlock()
		if err != nil {
			s.err = err
			return
		}
		s.engine = engine
		s.tag = engine.Tag()
	})

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine, s.err
}

func open(ctx context.Context, dbName string, backends []Backend) (*Engine, error) {
	if len(backends) == 0 {
		return nil, errors.New("no storage backend available")
	}

	var errs []error
	for _, b := range backends {
		vol, err := b.Open(ctx, dbName)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", b.Tag(), err))
			continue
		}
		engine, err := Open(ctx, vol)
		if err != nil {
			if vol.release != nil {
				_ = vol.release()
			}
			errs = append(errs, fmt.Errorf("%s: %w", b.Tag(), err))
			continue
		}
		return engine, nil
	}
	return nil, fmt.Errorf("all storage backends failed: %w", errors.Join(errs...))
}
