// Package storage owns the embedded SQLite database: schema, full-text index
// maintenance, statement execution and the durability backends.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// Row is a result row keyed by column name.
type Row map[string]any

// Result reports the effect of a statement run without result rows.
type Result struct {
	RowsAffected int64
	LastInsertID int64
}

// Engine executes SQL on a single connection. It is not safe for concurrent
// use: callers funnel every statement through one goroutine.
type Engine struct {
	db   *sql.DB
	conn *sql.Conn
	vol  *Volume
}

// Open connects to the volume, verifies FTS5 support and applies the schema.
func Open(ctx context.Context, vol *Volume) (*Engine, error) {
	db, err := sql.Open("sqlite", vol.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	conn, err := db.Conn(ctx)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}

	e := &Engine{db: db, conn: conn, vol: vol}
	if err := e.prepare(ctx); err != nil {
		_ = e.closeConn()
		return nil, err
	}
	return e, nil
}

func (e *Engine) prepare(ctx context.Context) error {
	if _, err := e.conn.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	var fts5 bool
	if err := e.conn.QueryRowContext(ctx,
		"SELECT COUNT(*) > 0 FROM pragma_compile_options WHERE compile_options = 'ENABLE_FTS5'").Scan(&fts5); err != nil {
		return fmt.Errorf("failed to verify FTS5: %w", err)
	}
	if !fts5 {
		return errors.New("FTS5 is not enabled in this SQLite build")
	}

	return migrate(ctx, e.conn)
}

// Tag is the backend the engine runs on.
func (e *Engine) Tag() string { return e.vol.Tag }

// Execute runs a statement and returns its rows. Statements that produce no
// rows return an empty slice.
func (e *Engine) Execute(ctx context.Context, query string, params ...any) ([]Row, error) {
	if !returnsRows(query) {
		if _, err := e.Run(ctx, query, params...); err != nil {
			return nil, err
		}
		return []Row{}, nil
	}

	rows, err := e.conn.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	out := make([]Row, 0)
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(Row, len(cols))
		for i, col := range cols {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
				continue
			}
			row[col] = values[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// Run executes a statement that produces no rows.
func (e *Engine) Run(ctx context.Context, query string, params ...any) (Result, error) {
	res, err := e.conn.ExecContext(ctx, query, params...)
	if err != nil {
		return Result{}, err
	}
	var r Result
	r.RowsAffected, _ = res.RowsAffected()
	r.LastInsertID, _ = res.LastInsertId()
	return r, nil
}

// Serialize returns a consistent copy of the whole database file.
func (e *Engine) Serialize(ctx context.Context) ([]byte, error) {
	dir, err := os.MkdirTemp("", "bookmarker-image-*")
	if err != nil {
		return nil, err
	}
	defer func() { _ = os.RemoveAll(dir) }()

	target := filepath.Join(dir, "image.db")
	if _, err := e.conn.ExecContext(ctx, "VACUUM INTO ?", target); err != nil {
		return nil, fmt.Errorf("failed to serialize database: %w", err)
	}
	return os.ReadFile(target)
}

// Flush persists the database image when the backend is not durable by itself.
func (e *Engine) Flush(ctx context.Context) error {
	if e.vol.Durable() {
		return nil
	}
	image, err := e.Serialize(ctx)
	if err != nil {
		return err
	}
	if err := e.vol.persist(ctx, image); err != nil {
		return fmt.Errorf("failed to persist database image: %w", err)
	}
	return nil
}

// Close flushes non-durable backends, then releases the connection and the volume.
// The flush completes before Close returns.
func (e *Engine) Close(ctx context.Context) error {
	flushErr := e.Flush(ctx)
	return errors.Join(flushErr, e.closeConn())
}

func (e *Engine) closeConn() error {
	var errs []error
	if e.conn != nil {
		errs = append(errs, e.conn.Close())
	}
	errs = append(errs, e.db.Close())
	if e.vol.release != nil {
		errs = append(errs, e.vol.release())
	}
	return errors.Join(errs...)
}

// returnsRows reports whether a statement yields a result set.
func returnsRows(query string) bool {
	q := strings.ToUpper(strings.TrimSpace(query))
	for _, prefix := range []string{"SELECT", "WITH", "PRAGMA", "VALUES", "EXPLAIN"} {
		if strings.HasPrefix(q, prefix) {
			return true
		}
	}
	return strings.Contains(q, "RETURNING")
}
