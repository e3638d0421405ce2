package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/MrSnakeDoc/bookmarker/internal/apperr"
	"github.com/MrSnakeDoc/bookmarker/internal/domain"
	"github.com/MrSnakeDoc/bookmarker/internal/logger"
	"github.com/MrSnakeDoc/bookmarker/internal/storage"
)

// TitleFetcher looks up a page title for a URL. An empty title means unknown.
type TitleFetcher interface {
	FetchTitle(ctx context.Context, url string) (string, error)
}

// TitleFetcherFunc adapts a function to TitleFetcher.
type TitleFetcherFunc func(ctx context.Context, url string) (string, error)

func (f TitleFetcherFunc) FetchTitle(ctx context.Context, url string) (string, error) {
	return f(ctx, url)
}

const bookmarkColumns = `
	b.id, b.url, b.title, b.description, b.favicon,
	b.created_at, b.updated_at, b.last_visited, b.visit_count,
	COALESCE((
		SELECT json_group_array(json_object('id', c.id, 'name', c.name, 'color', c.color))
		FROM bookmark_categories bc
		JOIN categories c ON c.id = bc.category_id
		WHERE bc.bookmark_id = b.id
	), '[]') AS categories_json`

const selectBookmarks = "SELECT " + bookmarkColumns + " FROM bookmarks b"

// BookmarkRepository stores bookmarks and their category links.
type BookmarkRepository struct {
	db     DB
	log    logger.Logger
	clock  Clock
	titles TitleFetcher
}

func NewBookmarkRepository(db DB, log logger.Logger) *BookmarkRepository {
	return &BookmarkRepository{db: db, log: log}
}

// WithClock replaces the time source.
func (r *BookmarkRepository) WithClock(c Clock) *BookmarkRepository {
	r.clock = c
	return r
}

// WithTitleFetcher enables page title lookup for bookmarks added without a title.
func (r *BookmarkRepository) WithTitleFetcher(f TitleFetcher) *BookmarkRepository {
	r.titles = f
	return r
}

func bookmarkFromRow(row storage.Row) (domain.Bookmark, error) {
	cats, err := decodeJSON[domain.CategoryRef](row["categories_json"])
	if err != nil {
		return domain.Bookmark{}, fmt.Errorf("decode categories of bookmark %v: %w", row["id"], err)
	}
	return domain.Bookmark{
		ID:          asInt64(row["id"]),
		URL:         asString(row["url"]),
		Title:       asString(row["title"]),
		Description: asString(row["description"]),
		Favicon:     asString(row["favicon"]),
		CreatedAt:   asInt64(row["created_at"]),
		UpdatedAt:   asInt64(row["updated_at"]),
		LastVisited: asNullInt64(row["last_visited"]),
		VisitCount:  asInt64(row["visit_count"]),
		Categories:  cats,
	}, nil
}

func (r *BookmarkRepository) list(ctx context.Context, sql string, params ...any) ([]domain.Bookmark, error) {
	rows, err := r.db.Rows(ctx, sql, params...)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Bookmark, 0, len(rows))
	for _, row := range rows {
		b, err := bookmarkFromRow(row)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindStorage, "read bookmark", err)
		}
		out = append(out, b)
	}
	return out, nil
}

func (r *BookmarkRepository) one(ctx context.Context, sql string, params ...any) (*domain.Bookmark, error) {
	list, err := r.list(ctx, sql, params...)
	if err != nil || len(list) == 0 {
		return nil, err
	}
	return &list[0], nil
}

// GetAllBookmarks returns every bookmark, most recently updated first.
func (r *BookmarkRepository) GetAllBookmarks(ctx context.Context) ([]domain.Bookmark, error) {
	return r.list(ctx, selectBookmarks+" ORDER BY b.updated_at DESC, b.id ASC")
}

// GetBookmark returns the bookmark or nil when it does not exist.
func (r *BookmarkRepository) GetBookmark(ctx context.Context, id int64) (*domain.Bookmark, error) {
	return r.one(ctx, selectBookmarks+" WHERE b.id = ?", id)
}

// GetBookmarkByURL returns the oldest bookmark with that exact url, or nil.
func (r *BookmarkRepository) GetBookmarkByURL(ctx context.Context, url string) (*domain.Bookmark, error) {
	return r.one(ctx, selectBookmarks+" WHERE b.url = ? ORDER BY b.id ASC LIMIT 1", url)
}

// GetBookmarksByCategory accepts "all", "uncategorized" or a numeric category id.
func (r *BookmarkRepository) GetBookmarksByCategory(ctx context.Context, categoryID string) ([]domain.Bookmark, error) {
	return r.FilterBookmarks(ctx, domain.Filters{CategoryID: categoryID})
}

// GetUncategorizedBookmarks returns bookmarks without any category.
func (r *BookmarkRepository) GetUncategorizedBookmarks(ctx context.Context) ([]domain.Bookmark, error) {
	return r.FilterBookmarks(ctx, domain.Filters{CategoryID: domain.ScopeUncategorized})
}

func (r *BookmarkRepository) defaultTitle(ctx context.Context, rawURL, host string) string {
	if r.titles != nil {
		title, err := r.titles.FetchTitle(ctx, rawURL)
		if err != nil {
			r.log.Debug("title lookup failed, using hostname",
				logger.String("url", rawURL), logger.Error(err))
		}
		if t := strings.TrimSpace(title); t != "" {
			return t
		}
	}
	return host
}

// AddBookmark validates and completes the input, then inserts the bookmark and
// its category links in one transaction.
func (r *BookmarkRepository) AddBookmark(ctx context.Context, in domain.BookmarkInput, categoryIDs []int64) (*domain.Bookmark, error) {
	u, err := domain.ParseBookmarkURL(in.URL)
	if err != nil {
		return nil, apperr.New(apperr.KindValidation, "bookmark "+err.Error())
	}

	url := strings.TrimSpace(in.URL)
	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = r.defaultTitle(ctx, url, domain.DisplayHost(u))
	}
	favicon := strings.TrimSpace(in.Favicon)
	if favicon == "" {
		favicon = domain.FaviconURL(u)
	}

	now := r.clock.millis()
	var id int64
	err = r.db.WithTransaction(ctx, func(ctx context.Context) error {
		row, err := r.db.Row(ctx, `
			INSERT INTO bookmarks (url, title, description, favicon, created_at, updated_at, visit_count)
			VALUES (?, ?, ?, ?, ?, ?, 0)
			RETURNING id`,
			url, title, in.Description, favicon, now, now)
		if err != nil {
			return err
		}
		id = asInt64(row["id"])
		return linkCategories(ctx, r.db, id, categoryIDs)
	})
	if err != nil {
		return nil, fmt.Errorf("add bookmark: %w", err)
	}

	r.log.Debug("bookmark added", logger.Int64("id", id), logger.String("url", url))
	return r.GetBookmark(ctx, id)
}

// UpdateBookmark applies the non-nil fields of patch and always bumps
// updated_at. A nil categoryIDs leaves links alone; a non-nil slice, even
// empty, replaces them. Returns nil when the bookmark does not exist.
func (r *BookmarkRepository) UpdateBookmark(ctx context.Context, id int64, patch domain.BookmarkPatch, categoryIDs []int64) (*domain.Bookmark, error) {
	sets := []string{"updated_at = ?"}
	params := []any{r.clock.millis()}

	if patch.URL != nil {
		if _, err := domain.ParseBookmarkURL(*patch.URL); err != nil {
			return nil, apperr.New(apperr.KindValidation, "bookmark "+err.Error())
		}
		sets = append(sets, "url = ?")
		params = append(params, strings.TrimSpace(*patch.URL))
	}
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return nil, apperr.New(apperr.KindValidation, "bookmark title cannot be empty")
		}
		sets = append(sets, "title = ?")
		params = append(params, title)
	}
	if patch.Description != nil {
		sets = append(sets, "description = ?")
		params = append(params, *patch.Description)
	}
	if patch.Favicon != nil {
		sets = append(sets, "favicon = ?")
		params = append(params, *patch.Favicon)
	}
	params = append(params, id)

	found := false
	err := r.db.WithTransaction(ctx, func(ctx context.Context) error {
		row, err := r.db.Row(ctx,
			"UPDATE bookmarks SET "+strings.Join(sets, ", ")+" WHERE id = ? RETURNING id", params...)
		if err != nil || row == nil {
			return err
		}
		found = true

		if categoryIDs == nil {
			return nil
		}
		if err := r.db.Run(ctx, "DELETE FROM bookmark_categories WHERE bookmark_id = ?", id); err != nil {
			return err
		}
		return linkCategories(ctx, r.db, id, categoryIDs)
	})
	if err != nil {
		return nil, fmt.Errorf("update bookmark %d: %w", id, err)
	}
	if !found {
		return nil, nil
	}
	return r.GetBookmark(ctx, id)
}

// DeleteBookmark reports whether a bookmark was removed. Links and the
// full-text entry go with it.
func (r *BookmarkRepository) DeleteBookmark(ctx context.Context, id int64) (bool, error) {
	rows, err := r.db.Rows(ctx, "DELETE FROM bookmarks WHERE id = ? RETURNING id", id)
	if err != nil {
		return false, fmt.Errorf("delete bookmark %d: %w", id, err)
	}
	return len(rows) > 0, nil
}

// RecordVisit counts one visit. Returns nil, without writing, when the
// bookmark does not exist.
func (r *BookmarkRepository) RecordVisit(ctx context.Context, id int64) (*domain.Bookmark, error) {
	now := r.clock.millis()
	row, err := r.db.Row(ctx, `
		UPDATE bookmarks
		SET visit_count = visit_count + 1, last_visited = ?, updated_at = ?
		WHERE id = ?
		RETURNING id`, now, now, id)
	if err != nil {
		return nil, fmt.Errorf("record visit %d: %w", id, err)
	}
	if row == nil {
		return nil, nil
	}
	return r.GetBookmark(ctx, id)
}

// linkCategories inserts (bookmarkID, categoryID) pairs with parameterized
// multi-row inserts. Unknown category ids are a validation error.
func linkCategories(ctx context.Context, db DB, bookmarkID int64, categoryIDs []int64) error {
	ids := uniqueIDs(categoryIDs)
	if len(ids) == 0 {
		return nil
	}

	for start := 0; start < len(ids); start += maxLinkRows {
		chunk := ids[start:min(start+maxLinkRows, len(ids))]

		params := make([]any, 0, len(chunk))
		for _, id := range chunk {
			params = append(params, id)
		}
		known, err := db.Scalar(ctx,
			"SELECT COUNT(*) FROM categories WHERE id IN ("+placeholders(len(chunk))+")", params...)
		if err != nil {
			return err
		}
		if asInt64(known) != int64(len(chunk)) {
			return apperr.Newf(apperr.KindValidation, "unknown category id in %v", chunk)
		}

		tuples := make([]string, 0, len(chunk))
		params = make([]any, 0, 2*len(chunk))
		for _, id := range chunk {
			tuples = append(tuples, "(?, ?)")
			params = append(params, bookmarkID, id)
		}
		if err := db.Run(ctx,
			"INSERT INTO bookmark_categories (bookmark_id, category_id) VALUES "+strings.Join(tuples, ", "),
			params...); err != nil {
			return err
		}
	}
	return nil
}

// DeleteAllBookmarks removes every bookmark, with their links and index entries.
func (r *BookmarkRepository) DeleteAllBookmarks(ctx context.Context) error {
	if err := r.db.Run(ctx, "DELETE FROM bookmarks"); err != nil {
		return fmt.Errorf("delete all bookmarks: %w", err)
	}
	return nil
}
