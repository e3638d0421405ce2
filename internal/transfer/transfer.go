package transfer

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/MrSnakeDoc/bookmarker/internal/apperr"
	"github.com/MrSnakeDoc/bookmarker/internal/domain"
	"github.com/MrSnakeDoc/bookmarker/internal/logger"
	"github.com/MrSnakeDoc/bookmarker/internal/repository"
)

// Mode selects how an import treats existing data.
type Mode string

const (
	// ModeMerge matches categories by name and bookmarks by url, updating in
	// place or inserting.
	ModeMerge Mode = "merge"
	// ModeReplace deletes every bookmark and category, then merges.
	ModeReplace Mode = "replace"
)

// ParseMode validates a mode name. Empty yields merge.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case "":
		return ModeMerge, nil
	case ModeMerge, ModeReplace:
		return m, nil
	default:
		return "", apperr.Newf(apperr.KindValidation, "unknown import mode %q", s)
	}
}

// Transactor runs fn in a single storage transaction.
type Transactor interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Summary counts what an import did.
type Summary struct {
	CategoriesCreated int `json:"categories_created"`
	CategoriesMatched int `json:"categories_matched"`
	BookmarksCreated  int `json:"bookmarks_created"`
	BookmarksUpdated  int `json:"bookmarks_updated"`
	BookmarksSkipped  int `json:"bookmarks_unchanged"`
}

// Service moves documents in and out of the repositories.
type Service struct {
	tx   Transactor
	repo *repository.Repository
	log  logger.Logger
	now  func() time.Time
}

func NewService(tx Transactor, repo *repository.Repository, log logger.Logger) *Service {
	return &Service{tx: tx, repo: repo, log: log, now: time.Now}
}

// Export snapshots every bookmark and category.
func (s *Service) Export(ctx context.Context) (*Document, error) {
	bookmarks, err := s.repo.Bookmarks.GetAllBookmarks(ctx)
	if err != nil {
		return nil, fmt.Errorf("export bookmarks: %w", err)
	}
	categories, err := s.repo.Categories.GetAllCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("export categories: %w", err)
	}

	doc := &Document{
		Version:    FormatVersion,
		Timestamp:  s.now().UnixMilli(),
		Bookmarks:  make([]BookmarkRecord, 0, len(bookmarks)),
		Categories: make([]CategoryRecord, 0, len(categories)),
	}
	for _, b := range bookmarks {
		doc.Bookmarks = append(doc.Bookmarks, BookmarkRecord{
			ID:          b.ID,
			URL:         b.URL,
			Title:       b.Title,
			Description: b.Description,
			Favicon:     b.Favicon,
			CreatedAt:   b.CreatedAt,
			UpdatedAt:   b.UpdatedAt,
			Categories:  b.CategoryIDs(),
		})
	}
	for _, c := range categories {
		doc.Categories = append(doc.Categories, CategoryRecord{ID: c.ID, Name: c.Name, Color: c.Color})
	}
	return doc, nil
}

// Import validates doc and applies it in one transaction: either everything
// lands or nothing changes.
func (s *Service) Import(ctx context.Context, doc *Document, mode Mode) (Summary, error) {
	if err := doc.Validate(); err != nil {
		return Summary{}, err
	}

	var sum Summary
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		sum = Summary{}
		if mode == ModeReplace {
			if err := s.repo.Bookmarks.DeleteAllBookmarks(ctx); err != nil {
				return err
			}
			if err := s.repo.Categories.DeleteAllCategories(ctx); err != nil {
				return err
			}
		}

		idMap, err := s.importCategories(ctx, doc.Categories, &sum)
		if err != nil {
			return err
		}
		return s.importBookmarks(ctx, doc.Bookmarks, idMap, &sum)
	})
	if err != nil {
		return Summary{}, fmt.Errorf("import (%s): %w", mode, err)
	}

	s.log.Info("📥 Import completed",
		logger.String("mode", string(mode)),
		logger.Int("categories_created", sum.CategoriesCreated),
		logger.Int("bookmarks_created", sum.BookmarksCreated),
		logger.Int("bookmarks_updated", sum.BookmarksUpdated))
	return sum, nil
}

// importCategories returns document category id -> stored category id.
func (s *Service) importCategories(ctx context.Context, records []CategoryRecord, sum *Summary) (map[int64]int64, error) {
	idMap := make(map[int64]int64, len(records))
	for _, rec := range records {
		existing, err := s.repo.Categories.GetCategoryByName(ctx, rec.Name)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			idMap[rec.ID] = existing.ID
			sum.CategoriesMatched++
			continue
		}

		color := strings.TrimSpace(rec.Color)
		if !repository.ValidColor(color) {
			color = ""
		}
		created, err := s.repo.Categories.AddCategory(ctx, domain.CategoryInput{Name: rec.Name, Color: color})
		if err != nil {
			return nil, err
		}
		idMap[rec.ID] = created.ID
		sum.CategoriesCreated++
	}
	return idMap, nil
}

func (s *Service) importBookmarks(ctx context.Context, records []BookmarkRecord, idMap map[int64]int64, sum *Summary) error {
	for _, rec := range records {
		categoryIDs := make([]int64, 0, len(rec.Categories))
		for _, old := range rec.Categories {
			if id, ok := idMap[old]; ok {
				categoryIDs = append(categoryIDs, id)
			}
		}

		existing, err := s.repo.Bookmarks.GetBookmarkByURL(ctx, strings.TrimSpace(rec.URL))
		if err != nil {
			return err
		}

		if existing == nil {
			if _, err := s.repo.Bookmarks.AddBookmark(ctx, domain.BookmarkInput{
				URL:         rec.URL,
				Title:       rec.Title,
				Description: rec.Description,
				Favicon:     rec.Favicon,
			}, categoryIDs); err != nil {
				return err
			}
			sum.BookmarksCreated++
			continue
		}

		if unchanged(existing, rec, categoryIDs) {
			sum.BookmarksSkipped++
			continue
		}
		title, description := rec.Title, rec.Description
		patch := domain.BookmarkPatch{Title: &title, Description: &description}
		if rec.Favicon != "" {
			patch.Favicon = &rec.Favicon
		}
		if _, err := s.repo.Bookmarks.UpdateBookmark(ctx, existing.ID, patch, categoryIDs); err != nil {
			return err
		}
		sum.BookmarksUpdated++
	}
	return nil
}

// unchanged reports whether applying rec would leave b as it is. An empty
// favicon keeps the stored one.
func unchanged(b *domain.Bookmark, rec BookmarkRecord, categoryIDs []int64) bool {
	if b.Title != strings.TrimSpace(rec.Title) || b.Description != rec.Description {
		return false
	}
	if rec.Favicon != "" && b.Favicon != rec.Favicon {
		return false
	}
	have := slices.Sorted(slices.Values(b.CategoryIDs()))
	want := slices.Compact(slices.Sorted(slices.Values(categoryIDs)))
	return slices.Equal(have, want)
}
