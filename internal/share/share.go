// Package share turns shared links into bookmarks and bookmarks into share
// payloads.
package share

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/MrSnakeDoc/bookmarker/internal/apperr"
	"github.com/MrSnakeDoc/bookmarker/internal/domain"
	"github.com/MrSnakeDoc/bookmarker/internal/logger"
)

// DefaultText is sent when a bookmark has no description.
const DefaultText = "Check out this bookmark"

var urlInText = regexp.MustCompile(`https?://[^\s]+`)

// Bookmarks is the subset of the bookmark repository sharing needs.
type Bookmarks interface {
	GetBookmark(ctx context.Context, id int64) (*domain.Bookmark, error)
	GetBookmarkByURL(ctx context.Context, url string) (*domain.Bookmark, error)
	AddBookmark(ctx context.Context, in domain.BookmarkInput, categoryIDs []int64) (*domain.Bookmark, error)
}

// Payload is what a share sheet receives.
type Payload struct {
	Title string `json:"title"`
	Text  string `json:"text"`
	URL   string `json:"url"`
}

type Service struct {
	bookmarks Bookmarks
	log       logger.Logger
}

func NewService(bookmarks Bookmarks, log logger.Logger) *Service {
	return &Service{bookmarks: bookmarks, log: log}
}

// ExtractURL returns the first http(s) link in text, or "".
func ExtractURL(text string) string {
	return urlInText.FindString(text)
}

// Ingest stores a shared link. The url parameter wins over a link found in
// text. An already stored url is returned as is with created=false.
func (s *Service) Ingest(ctx context.Context, title, text, rawURL string) (b *domain.Bookmark, created bool, err error) {
	target := strings.TrimSpace(rawURL)
	if target == "" {
		target = ExtractURL(text)
	}
	if target == "" {
		return nil, false, apperr.New(apperr.KindValidation, "shared content contains no link")
	}
	u, err := domain.ParseBookmarkURL(target)
	if err != nil {
		return nil, false, apperr.New(apperr.KindValidation, "shared "+err.Error())
	}

	existing, err := s.bookmarks.GetBookmarkByURL(ctx, target)
	if err != nil {
		return nil, false, fmt.Errorf("lookup shared url: %w", err)
	}
	if existing != nil {
		s.log.Debug("shared bookmark already exists", logger.Int64("id", existing.ID))
		return existing, false, nil
	}

	if strings.TrimSpace(title) == "" {
		title = domain.DisplayHost(u)
	}
	b, err = s.bookmarks.AddBookmark(ctx, domain.BookmarkInput{
		URL:         target,
		Title:       title,
		Description: strings.TrimSpace(text),
	}, nil)
	if err != nil {
		return nil, false, err
	}
	s.log.Info("🔗 Shared bookmark added", logger.Int64("id", b.ID), logger.String("url", target))
	return b, true, nil
}

// Payload builds the share sheet content for a stored bookmark.
func (s *Service) Payload(ctx context.Context, id int64) (*Payload, error) {
	b, err := s.bookmarks.GetBookmark(ctx, id)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, apperr.Newf(apperr.KindNotFound, "bookmark %d not found", id)
	}
	text := b.Description
	if text == "" {
		text = DefaultText
	}
	return &Payload{Title: b.Title, Text: text, URL: b.URL}, nil
}
