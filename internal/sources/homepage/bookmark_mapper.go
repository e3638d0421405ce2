package homepage

import (
	"fmt"

	"github.com/MrSnakeDoc/bookmarker/internal/domain"
	"github.com/MrSnakeDoc/bookmarker/internal/transfer"
)

// BookmarkMapper converts Homepage bookmark config to an import document
type BookmarkMapper struct{}

// NewBookmarkMapper creates a new bookmark mapper
func NewBookmarkMapper() *BookmarkMapper {
	return &BookmarkMapper{}
}

// MapBookmarks turns every Homepage group into a category and every entry
// with a usable href into a bookmark titled after its name.
func (m *BookmarkMapper) MapBookmarks(config BookmarksConfig) (*transfer.Document, error) {
	b := newDocumentBuilder()
	m.mapInto(b, config)
	if len(b.doc.Bookmarks) == 0 {
		return nil, fmt.Errorf("no valid bookmarks found in config")
	}
	return b.doc, nil
}

func (m *BookmarkMapper) mapInto(b *documentBuilder, config BookmarksConfig) {
	for _, category := range config {
		for _, groupName := range sortedKeys(category) {
			for _, bookmarkMap := range category[groupName] {
				for _, bookmarkName := range sortedKeys(bookmarkMap) {
					entryList := bookmarkMap[bookmarkName]
					// Each bookmark has a list with a single entry
					if len(entryList) == 0 {
						continue
					}
					entry := entryList[0]
					if _, err := domain.ParseBookmarkURL(entry.Href); err != nil {
						continue
					}
					b.add(groupName, transfer.BookmarkRecord{
						URL:         entry.Href,
						Title:       bookmarkName,
						Description: entry.Description,
						Favicon:     favicon(entry.Icon),
					})
				}
			}
		}
	}
}
