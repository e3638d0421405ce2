package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

type migration struct {
	version     int
	description string
	statements  []string
}

// migrations are applied in order, each in its own transaction.
var migrations = []migration{
	{
		version:     1,
		description: "bookmarks, categories and full-text index",
		statements: []string{
			`CREATE TABLE IF NOT EXISTS bookmarks (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				url TEXT NOT NULL,
				title TEXT NOT NULL,
				description TEXT,
				favicon TEXT,
				created_at INTEGER NOT NULL,
				updated_at INTEGER NOT NULL,
				last_visited INTEGER,
				visit_count INTEGER NOT NULL DEFAULT 0
			)`,
			`CREATE TABLE IF NOT EXISTS categories (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				name TEXT NOT NULL UNIQUE,
				color TEXT,
				created_at INTEGER NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS bookmark_categories (
				bookmark_id INTEGER NOT NULL,
				category_id INTEGER NOT NULL,
				PRIMARY KEY (bookmark_id, category_id),
				FOREIGN KEY (bookmark_id) REFERENCES bookmarks(id) ON DELETE CASCADE,
				FOREIGN KEY (category_id) REFERENCES categories(id) ON DELETE CASCADE
			)`,
			`CREATE INDEX IF NOT EXISTS idx_bookmarks_url ON bookmarks(url)`,
			`CREATE INDEX IF NOT EXISTS idx_bookmarks_created_at ON bookmarks(created_at)`,
			`CREATE INDEX IF NOT EXISTS idx_bookmarks_updated_at ON bookmarks(updated_at)`,
			`CREATE INDEX IF NOT EXISTS idx_bookmark_categories_category ON bookmark_categories(category_id)`,
			`CREATE VIRTUAL TABLE IF NOT EXISTS bookmark_fts USING fts5(
				title,
				description,
				url,
				content='bookmarks',
				content_rowid='id'
			)`,
			// Every bookmark write keeps bookmark_fts in lockstep. An update is
			// a delete of the old tokens followed by an insert of the new ones.
			`CREATE TRIGGER IF NOT EXISTS bookmarks_ai AFTER INSERT ON bookmarks BEGIN
				INSERT INTO bookmark_fts(rowid, title, description, url)
				VALUES (new.id, new.title, new.description, new.url);
			END`,
			`CREATE TRIGGER IF NOT EXISTS bookmarks_ad AFTER DELETE ON bookmarks BEGIN
				INSERT INTO bookmark_fts(bookmark_fts, rowid, title, description, url)
				VALUES ('delete', old.id, old.title, old.description, old.url);
			END`,
			`CREATE TRIGGER IF NOT EXISTS bookmarks_au AFTER UPDATE ON bookmarks BEGIN
				INSERT INTO bookmark_fts(bookmark_fts, rowid, title, description, url)
				VALUES ('delete', old.id, old.title, old.description, old.url);
				INSERT INTO bookmark_fts(rowid, title, description, url)
				VALUES (new.id, new.title, new.description, new.url);
			END`,
		},
	},
}

// migrate creates schema_migrations and applies every pending migration.
func migrate(ctx context.Context, conn *sql.Conn) error {
	if _, err := conn.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY CHECK(version > 0),
			applied_at INTEGER NOT NULL,
			description TEXT NOT NULL
		)`); err != nil {
		return fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	var current int
	if err := conn.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&current); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		if err := applyMigration(ctx, conn, m); err != nil {
			return fmt.Errorf("failed to apply migration V%d: %w", m.version, err)
		}
	}
	return nil
}

func applyMigration(ctx context.Context, conn *sql.Conn, m migration) error {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range m.statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO schema_migrations (version, applied_at, description) VALUES (?, ?, ?)",
		m.version, time.Now().UnixMilli(), m.description); err != nil {
		return err
	}
	return tx.Commit()
}
