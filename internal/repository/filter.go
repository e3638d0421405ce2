package repository

import (
	"context"
	"strings"
	"unicode"

	"github.com/MrSnakeDoc/bookmarker/internal/apperr"
	"github.com/MrSnakeDoc/bookmarker/internal/domain"
)

var sortExpressions = map[domain.SortField]string{
	domain.SortByTitle:      "LOWER(b.title)",
	domain.SortByURL:        "LOWER(b.url)",
	domain.SortByCreatedAt:  "b.created_at",
	domain.SortByUpdatedAt:  "b.updated_at",
	domain.SortByVisitCount: "b.visit_count",
}

// FilterBookmarks intersects the category scope, the full-text query and the
// created_at range, then sorts. Equal sort keys keep insertion order.
func (r *BookmarkRepository) FilterBookmarks(ctx context.Context, f domain.Filters) ([]domain.Bookmark, error) {
	scope, categoryID, err := f.CategoryScope()
	if err != nil {
		return nil, apperr.New(apperr.KindValidation, err.Error())
	}
	sortBy, err := domain.ParseSortField(string(f.SortBy))
	if err != nil {
		return nil, apperr.New(apperr.KindValidation, err.Error())
	}
	order, err := domain.ParseSortOrder(string(f.SortOrder))
	if err != nil {
		return nil, apperr.New(apperr.KindValidation, err.Error())
	}

	var where []string
	var params []any

	switch {
	case scope == domain.ScopeUncategorized:
		where = append(where, "NOT EXISTS (SELECT 1 FROM bookmark_categories bc WHERE bc.bookmark_id = b.id)")
	case scope == "":
		where = append(where, "EXISTS (SELECT 1 FROM bookmark_categories bc WHERE bc.bookmark_id = b.id AND bc.category_id = ?)")
		params = append(params, categoryID)
	}

	if match := ftsQuery(f.Query); match != "" {
		where = append(where, "b.id IN (SELECT rowid FROM bookmark_fts WHERE bookmark_fts MATCH ?)")
		params = append(params, match)
	}
	if f.DateFrom > 0 {
		where = append(where, "b.created_at >= ?")
		params = append(params, f.DateFrom)
	}
	if f.DateTo > 0 {
		where = append(where, "b.created_at <= ?")
		params = append(params, f.DateTo)
	}

	query := selectBookmarks
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY " + sortExpressions[sortBy] + " " + strings.ToUpper(string(order)) + ", b.id ASC"

	return r.list(ctx, query, params...)
}

// SearchBookmarks ranks bookmarks whose title, description or url contain
// words starting with each query token. An empty query returns everything.
func (r *BookmarkRepository) SearchBookmarks(ctx context.Context, query string) ([]domain.Bookmark, error) {
	match := ftsQuery(query)
	if match == "" {
		return r.GetAllBookmarks(ctx)
	}
	return r.list(ctx, "SELECT "+bookmarkColumns+`
		FROM bookmarks b
		JOIN bookmark_fts ON bookmark_fts.rowid = b.id
		WHERE bookmark_fts MATCH ?
		ORDER BY bookmark_fts.rank`, match)
}

// ftsQuery turns free text into an FTS5 prefix query: every whitespace
// separated token is quoted and suffixed with *. Quoting keeps FTS5 operators
// and punctuation in user input from being parsed as syntax. Control
// characters separate tokens, SQLite cannot bind a NUL inside a string.
func ftsQuery(q string) string {
	fields := strings.FieldsFunc(q, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsControl(r)
	})
	if len(fields) == 0 {
		return ""
	}
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		terms = append(terms, `"`+strings.ReplaceAll(f, `"`, `""`)+`"*`)
	}
	return strings.Join(terms, " ")
}
