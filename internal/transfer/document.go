// Package transfer imports and exports the whole bookmark store as a JSON
// document.
package transfer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/MrSnakeDoc/bookmarker/internal/apperr"
)

// FormatVersion is written to every export.
const FormatVersion = "1.0"

// Document is the import/export file.
type Document struct {
	Version    string           `json:"version"`
	Timestamp  int64            `json:"timestamp"`
	Bookmarks  []BookmarkRecord `json:"bookmarks"`
	Categories []CategoryRecord `json:"categories"`
}

// BookmarkRecord references categories by their id inside the same document.
type BookmarkRecord struct {
	ID          int64   `json:"id"`
	URL         string  `json:"url"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Favicon     string  `json:"favicon"`
	CreatedAt   int64   `json:"created_at"`
	UpdatedAt   int64   `json:"updated_at"`
	Categories  []int64 `json:"categories"`
}

type CategoryRecord struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// Decode reads and validates a document. Any structural problem rejects the
// whole file with an import format error.
func Decode(r io.Reader) (*Document, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindImportFormat, "read import file", err)
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		return nil, apperr.Wrap(apperr.KindImportFormat, "import file is not a JSON object", err)
	}
	for _, key := range []string{"bookmarks", "categories"} {
		if !isArray(top[key]) {
			return nil, apperr.Newf(apperr.KindImportFormat, "%q must be an array", key)
		}
	}

	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, apperr.Wrap(apperr.KindImportFormat, "malformed import file", err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

func isArray(msg json.RawMessage) bool {
	trimmed := bytes.TrimSpace(msg)
	return len(trimmed) > 0 && trimmed[0] == '['
}

// Validate checks the required fields of every record.
func (d *Document) Validate() error {
	if d.Bookmarks == nil || d.Categories == nil {
		return apperr.New(apperr.KindImportFormat, "bookmarks and categories must be arrays")
	}
	for i, b := range d.Bookmarks {
		if strings.TrimSpace(b.URL) == "" || strings.TrimSpace(b.Title) == "" {
			return apperr.Newf(apperr.KindImportFormat, "bookmark %d is missing url or title", i)
		}
	}
	for i, c := range d.Categories {
		if strings.TrimSpace(c.Name) == "" {
			return apperr.Newf(apperr.KindImportFormat, "category %d is missing a name", i)
		}
	}
	return nil
}

// Encode writes the document as indented JSON.
func (d *Document) Encode(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(d); err != nil {
		return fmt.Errorf("encode export: %w", err)
	}
	return nil
}
