// Package repository is the typed bookmark and category API used by the HTTP
// layer, import/export and share ingestion. It validates input and fills
// defaults before any statement reaches storage.
package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/MrSnakeDoc/bookmarker/internal/logger"
	"github.com/MrSnakeDoc/bookmarker/internal/storage"
)

// DB is the subset of database.Service the repositories need.
type DB interface {
	Rows(ctx context.Context, sql string, params ...any) ([]storage.Row, error)
	Row(ctx context.Context, sql string, params ...any) (storage.Row, error)
	Scalar(ctx context.Context, sql string, params ...any) (any, error)
	Run(ctx context.Context, sql string, params ...any) error
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Clock returns the current time. Overridable in tests.
type Clock func() time.Time

func (c Clock) millis() int64 {
	if c == nil {
		return time.Now().UnixMilli()
	}
	return c().UnixMilli()
}

// maxLinkRows bounds the tuples of one multi-row insert, keeping well under
// SQLite's bound variable limit.
const maxLinkRows = 400

// ─────────────────────────────
// Row decoding
// ─────────────────────────────

func asInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	case string:
		i, _ := strconv.ParseInt(n, 10, 64)
		return i
	default:
		return 0
	}
}

func asString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	case nil:
		return ""
	default:
		return fmt.Sprint(s)
	}
}

func asNullInt64(v any) *int64 {
	if v == nil {
		return nil
	}
	n := asInt64(v)
	return &n
}

func decodeJSON[T any](v any) ([]T, error) {
	raw := asString(v)
	if raw == "" {
		return []T{}, nil
	}
	out := make([]T, 0)
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// placeholders returns "?, ?, ?" for n parameters.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// Repository bundles the repositories sharing one database.
type Repository struct {
	Bookmarks  *BookmarkRepository
	Categories *CategoryRepository
}

func New(db DB, log logger.Logger) *Repository {
	return &Repository{
		Bookmarks:  NewBookmarkRepository(db, log),
		Categories: NewCategoryRepository(db, log),
	}
}
