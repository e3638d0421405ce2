// Package homepage reads the YAML configuration of a Homepage dashboard
// (https://gethomepage.dev) as a bookmark import.
package homepage

import (
	"errors"
	"fmt"

	"github.com/MrSnakeDoc/bookmarker/internal/transfer"
)

// ErrNoSource is returned when neither file is configured.
var ErrNoSource = errors.New("no homepage file configured")

// Source combines bookmarks.yaml and services.yaml into one document.
// Either path may be empty.
type Source struct {
	bookmarks *Loader[BookmarksConfig]
	services  *Loader[ServicesConfig]
}

func NewSource(bookmarksPath, servicesPath string) *Source {
	s := &Source{}
	if bookmarksPath != "" {
		s.bookmarks = NewBookmarkLoader(bookmarksPath)
	}
	if servicesPath != "" {
		s.services = NewServiceLoader(servicesPath)
	}
	return s
}

func (s *Source) Enabled() bool { return s.bookmarks != nil || s.services != nil }

// Document loads every configured file. Bookmarks come first, so a URL
// listed in both keeps its bookmarks.yaml entry.
func (s *Source) Document() (*transfer.Document, error) {
	if !s.Enabled() {
		return nil, ErrNoSource
	}

	b := newDocumentBuilder()
	if s.bookmarks != nil {
		config, err := s.bookmarks.Load()
		if err != nil {
			return nil, err
		}
		NewBookmarkMapper().mapInto(b, config)
	}
	if s.services != nil {
		config, err := s.services.Load()
		if err != nil {
			return nil, err
		}
		NewServiceMapper().mapInto(b, config)
	}

	if len(b.doc.Bookmarks) == 0 {
		return nil, fmt.Errorf("no valid bookmarks found in homepage config")
	}
	return b.doc, nil
}
