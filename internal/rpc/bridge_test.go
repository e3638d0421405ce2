package rpc

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/MrSnakeDoc/bookmarker/internal/apperr"
	"github.com/MrSnakeDoc/bookmarker/internal/logger"
	"github.com/MrSnakeDoc/bookmarker/internal/storage"
)

func TestBridgeResolvesOutOfOrder(t *testing.T) {
	requests := make(chan Request)
	responses := make(chan Response)
	b := NewBridge(requests, responses, Options{Timeout: 5 * time.Second})

	// Collect both requests, then answer the second one first.
	go func() {
		first := <-requests
		second := <-requests
		responses <- Response{ID: second.ID, Type: TypeQueryResult, Rows: []storage.Row{{"sql": second.SQL}}}
		responses <- Response{ID: first.ID, Type: TypeQueryResult, Rows: []storage.Row{{"sql": first.SQL}}}
		close(responses)
	}()

	var wg sync.WaitGroup
	results := make(map[string]string)
	var mu sync.Mutex
	for _, sql := range []string{"SELECT 'a'", "SELECT 'b'"} {
		wg.Add(1)
		go func(sql string) {
			defer wg.Done()
			rows, err := b.Execute(context.Background(), sql)
			if err != nil {
				t.Errorf("Execute(%q) error: %v", sql, err)
				return
			}
			mu.Lock()
			results[sql] = rows[0]["sql"].(string)
			mu.Unlock()
		}(sql)
	}
	wg.Wait()

	for sql, got := range results {
		if got != sql {
			t.Errorf("call %q resolved with response for %q", sql, got)
		}
	}
	if len(results) != 2 {
		t.Errorf("resolved %d calls, want 2", len(results))
	}
}

func TestBridgeErrorResponse(t *testing.T) {
	requests := make(chan Request)
	responses := make(chan Response)
	b := NewBridge(requests, responses, Options{})

	go func() {
		req := <-requests
		responses <- Response{ID: req.ID, Type: TypeError, Error: "no such table: nope"}
	}()

	_, err := b.Execute(context.Background(), "SELECT * FROM nope")
	if !apperr.Is(err, apperr.KindStorage) {
		t.Fatalf("Execute() error kind = %q, want storage (%v)", apperr.KindOf(err), err)
	}
	if !strings.Contains(err.Error(), "no such table: nope") {
		t.Errorf("error message lost: %v", err)
	}
}

func TestBridgeTimeoutReleasesPending(t *testing.T) {
	requests := make(chan Request, 1)
	responses := make(chan Response)
	b := NewBridge(requests, responses, Options{Timeout: 50 * time.Millisecond})

	_, err := b.Execute(context.Background(), "SELECT 1")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Execute() error = %v, want deadline exceeded", err)
	}
	if n := b.Pending(); n != 0 {
		t.Errorf("Pending() = %d after timeout, want 0", n)
	}
}

func TestBridgeClosedWorker(t *testing.T) {
	requests := make(chan Request)
	responses := make(chan Response)
	close(responses)
	b := NewBridge(requests, responses, Options{})

	<-b.done
	if _, err := b.Execute(context.Background(), "SELECT 1"); !errors.Is(err, ErrBridgeClosed) {
		t.Errorf("Execute() error = %v, want ErrBridgeClosed", err)
	}
}

func startWorker(t *testing.T, backends ...storage.Backend) *Bridge {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return Start(ctx, NewWorker(logger.Nop(), backends...), Options{Timeout: 5 * time.Second})
}

func TestWorkerLifecycle(t *testing.T) {
	ctx := context.Background()
	b := startWorker(t, &storage.FilesystemBackend{Dir: t.TempDir()})

	if _, err := b.InitializeDatabase(ctx, "early.db"); err == nil {
		t.Fatal("initializeDatabase before initialize should fail")
	}
	if _, err := b.Execute(ctx, "SELECT 1"); err == nil ||
		!strings.Contains(err.Error(), "database not initialized") {
		t.Fatalf("execute before dbInitialized error = %v", err)
	}

	if err := b.Initialize(ctx); err != nil {
		t.Fatalf("Initialize() error: %v", err)
	}
	tag, err := b.InitializeDatabase(ctx, "bookmarker.db")
	if err != nil {
		t.Fatalf("InitializeDatabase() error: %v", err)
	}
	if tag != storage.TagFilesystem {
		t.Errorf("backend = %q, want %q", tag, storage.TagFilesystem)
	}

	rows, err := b.Execute(ctx,
		"INSERT INTO categories (name, color, created_at) VALUES (?, ?, ?) RETURNING id, name",
		"Dev", "#4285f4", int64(1))
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if len(rows) != 1 || rows[0]["name"] != "Dev" {
		t.Errorf("Execute() rows = %v", rows)
	}

	if _, err := b.Execute(ctx, "INSERT INTO categories (name, created_at) VALUES ('Dev', 2)"); !apperr.Is(err, apperr.KindStorage) {
		t.Errorf("unique violation error = %v, want storage kind", err)
	}

	if err := b.Close(ctx); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if _, err := b.Execute(ctx, "SELECT 1"); err == nil {
		t.Error("execute after close should fail")
	}
}

func TestCloseWithKeyValueBackendPersistsImage(t *testing.T) {
	ctx := context.Background()
	images := storage.NewMemoryImageStore()
	b := startWorker(t,
		&storage.FilesystemBackend{Disabled: true},
		&storage.KeyValueBackend{Store: images, ScratchDir: t.TempDir()})

	if err := b.Initialize(ctx); err != nil {
		t.Fatal(err)
	}
	tag, err := b.InitializeDatabase(ctx, "kv.db")
	if err != nil {
		t.Fatal(err)
	}
	if tag != storage.TagKeyValue {
		t.Fatalf("backend = %q, want %q", tag, storage.TagKeyValue)
	}
	if _, err := images.LoadImage(ctx, storage.ImageKey("kv.db")); !errors.Is(err, storage.ErrImageNotFound) {
		t.Fatalf("image stored before close: %v", err)
	}

	if _, err := b.Execute(ctx,
		"INSERT INTO categories (name, created_at) VALUES ('Reading', 1)"); err != nil {
		t.Fatal(err)
	}
	if err := b.Close(ctx); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	image, err := images.LoadImage(ctx, storage.ImageKey("kv.db"))
	if err != nil {
		t.Fatalf("image not persisted before closed: %v", err)
	}
	if len(image) == 0 {
		t.Error("persisted image is empty")
	}
}

// flakyImageStore fails saves while fail is set.
type flakyImageStore struct {
	*storage.MemoryImageStore
	mu   sync.Mutex
	fail bool
}

func (s *flakyImageStore) setFail(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = fail
}

func (s *flakyImageStore) SaveImage(ctx context.Context, key string, image []byte) error {
	s.mu.Lock()
	fail := s.fail
	s.mu.Unlock()
	if fail {
		return errors.New("store unavailable")
	}
	return s.MemoryImageStore.SaveImage(ctx, key, image)
}

func TestFailedCloseReleasesEngine(t *testing.T) {
	ctx := context.Background()
	images := &flakyImageStore{MemoryImageStore: storage.NewMemoryImageStore(), fail: true}
	b := startWorker(t,
		&storage.FilesystemBackend{Disabled: true},
		&storage.KeyValueBackend{Store: images, ScratchDir: t.TempDir()})

	if err := b.Initialize(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := b.InitializeDatabase(ctx, "kv.db"); err != nil {
		t.Fatal(err)
	}
	if err := b.Close(ctx); err == nil {
		t.Fatal("Close() should report the failed flush")
	}
	if _, err := b.Execute(ctx, "SELECT 1"); err == nil ||
		!strings.Contains(err.Error(), "database not initialized") {
		t.Fatalf("execute after failed close error = %v", err)
	}

	images.setFail(false)
	if _, err := b.InitializeDatabase(ctx, "other.db"); err != nil {
		t.Fatalf("InitializeDatabase() after failed close: %v", err)
	}
	if _, err := b.Execute(ctx, "SELECT 1"); err != nil {
		t.Errorf("Execute() on the reopened database: %v", err)
	}
}
