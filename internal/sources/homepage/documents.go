package homepage

import (
	"sort"
	"strings"

	"github.com/MrSnakeDoc/bookmarker/internal/transfer"
)

// documentBuilder accumulates categories by name and bookmarks by URL into
// an import document. The first occurrence of a URL wins.
type documentBuilder struct {
	doc        *transfer.Document
	categories map[string]int64
	urls       map[string]int
}

func newDocumentBuilder() *documentBuilder {
	return &documentBuilder{
		doc: &transfer.Document{
			Version:    transfer.FormatVersion,
			Bookmarks:  []transfer.BookmarkRecord{},
			Categories: []transfer.CategoryRecord{},
		},
		categories: map[string]int64{},
		urls:       map[string]int{},
	}
}

func (b *documentBuilder) category(name string) int64 {
	name = strings.TrimSpace(name)
	if id, ok := b.categories[name]; ok {
		return id
	}
	id := int64(len(b.doc.Categories) + 1)
	b.categories[name] = id
	b.doc.Categories = append(b.doc.Categories, transfer.CategoryRecord{ID: id, Name: name})
	return id
}

func (b *documentBuilder) add(group string, rec transfer.BookmarkRecord) {
	if _, seen := b.urls[rec.URL]; seen {
		return
	}
	if strings.TrimSpace(group) != "" {
		rec.Categories = []int64{b.category(group)}
	}
	rec.ID = int64(len(b.doc.Bookmarks) + 1)
	b.urls[rec.URL] = len(b.doc.Bookmarks)
	b.doc.Bookmarks = append(b.doc.Bookmarks, rec)
}

// favicon keeps icons given as absolute URLs; Homepage icon names are not.
func favicon(icon string) string {
	if strings.HasPrefix(icon, "http://") || strings.HasPrefix(icon, "https://") {
		return icon
	}
	return ""
}

// sortedKeys gives map iteration a stable order.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
