package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"
)

// Backend tags reported by Selection.Tag.
const (
	TagFilesystem = "filesystem"
	TagKeyValue   = "keyvalue"
)

// ErrImageNotFound is returned by an ImageStore holding no image for a key.
var ErrImageNotFound = errors.New("database image not found")

// Backend is a durability medium for the database file.
type Backend interface {
	Tag() string
	Open(ctx context.Context, dbName string) (*Volume, error)
}

// ImageStore persists whole serialized databases under a key.
type ImageStore interface {
	LoadImage(ctx context.Context, key string) ([]byte, error)
	SaveImage(ctx context.Context, key string, image []byte) error
}

// Volume is an opened backend: the SQLite DSN to connect to plus the
// backend specific durability hooks.
type Volume struct {
	Tag  string
	Path string
	DSN  string

	// persist stores a serialized image. nil when the file itself is durable.
	persist func(ctx context.Context, image []byte) error
	// release frees backend resources once the database is closed.
	release func() error
}

// Durable reports whether the database file itself survives the session.
// Non-durable volumes must be serialized to their store before closing.
func (v *Volume) Durable() bool { return v.persist == nil }

func dsn(path string, pragmas ...string) string {
	q := url.Values{}
	for _, p := range pragmas {
		q.Add("_pragma", p)
	}
	return "file:" + path + "?" + q.Encode()
}

// ─────────────────────────────
// Filesystem
// ─────────────────────────────

// FilesystemBackend keeps the database as a file under Dir.
type FilesystemBackend struct {
	Dir      string
	Disabled bool // forces the selector onto the next backend
}

func (b *FilesystemBackend) Tag() string { return TagFilesystem }

func (b *FilesystemBackend) Open(_ context.Context, dbName string) (*Volume, error) {
	if b.Disabled {
		return nil, errors.New("filesystem backend disabled")
	}
	if b.Dir == "" {
		return nil, errors.New("no data directory configured")
	}
	if err := os.MkdirAll(b.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	probe, err := os.CreateTemp(b.Dir, ".probe-*")
	if err != nil {
		return nil, fmt.Errorf("data directory not writable: %w", err)
	}
	_ = probe.Close()
	_ = os.Remove(probe.Name())

	path := filepath.Join(b.Dir, dbName)
	return &Volume{
		Tag:     TagFilesystem,
		Path:    path,
		DSN:     dsn(path, "foreign_keys(1)", "journal_mode(WAL)", "busy_timeout(5000)"),
		release: func() error { return nil },
	}, nil
}

// ─────────────────────────────
// Key-value emulation
// ─────────────────────────────

// KeyValueBackend runs the database on a private scratch file restored from,
// and serialized back to, an ImageStore.
type KeyValueBackend struct {
	Store      ImageStore
	ScratchDir string // defaults to os.TempDir()
}

func (b *KeyValueBackend) Tag() string { return TagKeyValue }

// ImageKey is the key a database image is stored under.
func ImageKey(dbName string) string { return "bookmarker:db:" + dbName }

func (b *KeyValueBackend) Open(ctx context.Context, dbName string) (*Volume, error) {
	if b.Store == nil {
		return nil, errors.New("no key-value store configured")
	}
	key := ImageKey(dbName)

	image, err := b.Store.LoadImage(ctx, key)
	if err != nil && !errors.Is(err, ErrImageNotFound) {
		return nil, fmt.Errorf("failed to load database image: %w", err)
	}

	dir, err := os.MkdirTemp(b.ScratchDir, "bookmarker-kv-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch directory: %w", err)
	}
	path := filepath.Join(dir, dbName)
	if len(image) > 0 {
		if err := os.WriteFile(path, image, 0o600); err != nil {
			_ = os.RemoveAll(dir)
			return nil, fmt.Errorf("failed to restore database image: %w", err)
		}
	}

	store := b.Store
	return &Volume{
		Tag:  TagKeyValue,
		Path: path,
		DSN:  dsn(path, "foreign_keys(1)", "journal_mode(DELETE)"),
		persist: func(ctx context.Context, image []byte) error {
			return store.SaveImage(ctx, key, image)
		},
		release: func() error { return os.RemoveAll(dir) },
	}, nil
}

// MemoryImageStore is an in-process ImageStore. It does not outlive the
// process and only backs tests.
type MemoryImageStore struct {
	mu     sync.RWMutex
	images map[string][]byte
}

func NewMemoryImageStore() *MemoryImageStore {
	return &MemoryImageStore{images: make(map[string][]byte)}
}

func (s *MemoryImageStore) LoadImage(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	img, ok := s.images[key]
	if !ok {
		return nil, ErrImageNotFound
	}
	return append([]byte(nil), img...), nil
}

func (s *MemoryImageStore) SaveImage(_ context.Context, key string, image []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.images[key] = append([]byte(nil), image...)
	return nil
}
