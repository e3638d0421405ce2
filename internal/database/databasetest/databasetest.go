// Package databasetest starts a real storage worker for tests.
package databasetest

import (
	"context"
	"testing"
	"time"

	"github.com/MrSnakeDoc/bookmarker/internal/database"
	"github.com/MrSnakeDoc/bookmarker/internal/logger"
	"github.com/MrSnakeDoc/bookmarker/internal/rpc"
	"github.com/MrSnakeDoc/bookmarker/internal/storage"
)

// Open returns an initialized Service backed by a SQLite file in a temp dir.
// Everything is torn down when the test ends.
func Open(t testing.TB) *database.Service {
	t.Helper()
	return OpenWith(t, &storage.FilesystemBackend{Dir: t.TempDir()})
}

// OpenWith is Open with explicit backends.
func OpenWith(t testing.TB, backends ...storage.Backend) *database.Service {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	bridge := rpc.Start(ctx, rpc.NewWorker(logger.Nop(), backends...), rpc.Options{Timeout: 10 * time.Second})
	svc := database.New(bridge, "bookmarker-test.db", logger.Nop())
	if err := svc.Init(ctx); err != nil {
		cancel()
		t.Fatalf("database init: %v", err)
	}

	t.Cleanup(func() {
		_ = svc.Close(context.Background())
		cancel()
	})
	return svc
}
