// Package redis keeps the durable state of a bookmarker instance in Redis:
// serialized database images, offline response caches and user settings.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/bookmarker/internal/offline"
	"github.com/MrSnakeDoc/bookmarker/internal/storage"
)

// Store handles Redis operations for every persisted concern.
type Store struct {
	client *redis.Client
}

// NewStore creates a new Redis store
func NewStore(client *redis.Client) *Store {
	return &Store{
		client: client,
	}
}

// Ping reports whether Redis answers.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// ─────────────────────────────────────────────────────────────────
// Database images
// ─────────────────────────────────────────────────────────────────

// LoadImage implements storage.ImageStore. The key is chosen by the
// storage backend.
func (s *Store) LoadImage(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, storage.ErrImageNotFound
		}
		return nil, fmt.Errorf("failed to load database image: %w", err)
	}
	return data, nil
}

// SaveImage implements storage.ImageStore. Images never expire.
func (s *Store) SaveImage(ctx context.Context, key string, image []byte) error {
	if err := s.client.Set(ctx, key, image, 0).Err(); err != nil {
		return fmt.Errorf("failed to save database image: %w", err)
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────
// Settings
// ─────────────────────────────────────────────────────────────────

// SettingsStore adapts the store to settings.Store.
type SettingsStore struct {
	s *Store
}

func (s *Store) Settings() *SettingsStore { return &SettingsStore{s: s} }

func (ss *SettingsStore) Load(ctx context.Context) ([]byte, error) {
	data, err := ss.s.client.Get(ctx, SettingsKey()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	return data, nil
}

func (ss *SettingsStore) Save(ctx context.Context, data []byte) error {
	if err := ss.s.client.Set(ctx, SettingsKey(), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────
// Offline caches
// ─────────────────────────────────────────────────────────────────

// CacheStorage implements offline.CacheStorage with one hash per cache,
// keyed by request URL, plus a sorted set of cache names scored by creation
// order.
type CacheStorage struct {
	s *Store
}

func (s *Store) Caches() *CacheStorage { return &CacheStorage{s: s} }

type cache struct {
	s    *Store
	name string
}

// Open registers the cache name; NX keeps the original creation rank.
func (c *CacheStorage) Open(ctx context.Context, name string) (offline.Cache, error) {
	seq, err := c.s.client.Incr(ctx, CacheSeqKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to open cache %s: %w", name, err)
	}
	if err := c.s.client.ZAddNX(ctx, CacheNamesKey(), redis.Z{Score: float64(seq), Member: name}).Err(); err != nil {
		return nil, fmt.Errorf("failed to open cache %s: %w", name, err)
	}
	return &cache{s: c.s, name: name}, nil
}

func (c *CacheStorage) Keys(ctx context.Context) ([]string, error) {
	names, err := c.s.client.ZRange(ctx, CacheNamesKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list caches: %w", err)
	}
	return names, nil
}

func (c *CacheStorage) Delete(ctx context.Context, name string) (bool, error) {
	pipe := c.s.client.TxPipeline()
	removed := pipe.ZRem(ctx, CacheNamesKey(), name)
	pipe.Del(ctx, CacheKey(name))
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("failed to delete cache %s: %w", name, err)
	}
	return removed.Val() > 0, nil
}

func (c *CacheStorage) Match(ctx context.Context, key string) (*offline.Entry, error) {
	names, err := c.Keys(ctx)
	if err != nil {
		return nil, err
	}
	for _, name := range names {
		e, err := (&cache{s: c.s, name: name}).Match(ctx, key)
		if err != nil || e != nil {
			return e, err
		}
	}
	return nil, nil
}

func (c *cache) Match(ctx context.Context, key string) (*offline.Entry, error) {
	data, err := c.s.client.HGet(ctx, CacheKey(c.name), key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil // Cache miss
		}
		return nil, fmt.Errorf("failed to read cache %s: %w", c.name, err)
	}

	var e offline.Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cache entry: %w", err)
	}
	return &e, nil
}

func (c *cache) Put(ctx context.Context, key string, e *offline.Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}
	if err := c.s.client.HSet(ctx, CacheKey(c.name), key, data).Err(); err != nil {
		return fmt.Errorf("failed to write cache %s: %w", c.name, err)
	}
	return nil
}
