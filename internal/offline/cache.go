package offline

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/MrSnakeDoc/bookmarker/internal/utils"
)

// HeaderCache marks responses served from a cache.
const HeaderCache = "X-Bookmarker-Cache"

// Entry is a stored response.
type Entry struct {
	URL      string      `json:"url"`
	Status   int         `json:"status"`
	Header   http.Header `json:"header"`
	Body     []byte      `json:"body"`
	StoredAt int64       `json:"stored_at"`
}

// OK reports a 2xx status. Only those are stored.
func (e *Entry) OK() bool { return e.Status >= 200 && e.Status < 300 }

// Response rebuilds an *http.Response answering req.
func (e *Entry) Response(req *http.Request) *http.Response {
	h := e.Header.Clone()
	if h == nil {
		h = http.Header{}
	}
	return &http.Response{
		Status:        fmt.Sprintf("%d %s", e.Status, http.StatusText(e.Status)),
		StatusCode:    e.Status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        h,
		Body:          io.NopCloser(bytes.NewReader(e.Body)),
		ContentLength: int64(len(e.Body)),
		Request:       req,
	}
}

// readEntry drains resp into an Entry and closes its body.
func readEntry(key string, resp *http.Response) (*Entry, error) {
	defer utils.Close(resp.Body)
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	h := resp.Header.Clone()
	h.Del("Content-Length")
	return &Entry{
		URL:      key,
		Status:   resp.StatusCode,
		Header:   h,
		Body:     body,
		StoredAt: time.Now().UnixMilli(),
	}, nil
}

// Key is the cache key of a request URL: the absolute URL without fragment.
func Key(u *url.URL) string {
	k := *u
	k.Fragment = ""
	k.RawFragment = ""
	return k.String()
}

// Cache is one named response cache.
type Cache interface {
	// Match returns nil, nil on a miss.
	Match(ctx context.Context, key string) (*Entry, error)
	Put(ctx context.Context, key string, e *Entry) error
}

// CacheStorage holds the named caches of an origin.
type CacheStorage interface {
	// Open returns the named cache, creating it when needed.
	Open(ctx context.Context, name string) (Cache, error)
	// Keys lists cache names in creation order.
	Keys(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, name string) (bool, error)
	// Match searches every cache in Keys order.
	Match(ctx context.Context, key string) (*Entry, error)
}

// ─────────────────────────────────────────────────────────────────
// In-memory storage
// ─────────────────────────────────────────────────────────────────

// MemoryStorage keeps caches in process memory. It is lost on restart and
// serves as the storage when Redis is not configured.
type MemoryStorage struct {
	mu     sync.RWMutex
	order  []string
	caches map[string]map[string]*Entry // cache name -> key -> entry
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{caches: make(map[string]map[string]*Entry)}
}

type memoryCache struct {
	s    *MemoryStorage
	name string
}

func (s *MemoryStorage) ensure(name string) map[string]*Entry {
	c, ok := s.caches[name]
	if !ok {
		c = make(map[string]*Entry)
		s.caches[name] = c
		s.order = append(s.order, name)
	}
	return c
}

func (s *MemoryStorage) Open(_ context.Context, name string) (Cache, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensure(name)
	return &memoryCache{s: s, name: name}, nil
}

func (s *MemoryStorage) Keys(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]string(nil), s.order...), nil
}

func (s *MemoryStorage) Delete(_ context.Context, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.caches[name]; !ok {
		return false, nil
	}
	delete(s.caches, name)
	for i, n := range s.order {
		if n == name {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true, nil
}

func (s *MemoryStorage) Match(_ context.Context, key string) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, name := range s.order {
		if e, ok := s.caches[name][key]; ok {
			return e, nil
		}
	}
	return nil, nil
}

func (c *memoryCache) Match(_ context.Context, key string) (*Entry, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()

	return c.s.caches[c.name][key], nil
}

// Put overwrites; the last writer wins.
func (c *memoryCache) Put(_ context.Context, key string, e *Entry) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	c.s.ensure(c.name)[key] = e
	return nil
}
