package domain

// Bookmark is a saved URL as stored by the storage engine.
// Timestamps are epoch milliseconds.
type Bookmark struct {
	// ─────────────────────────────
	// Identity
	// ─────────────────────────────

	// ID is generated by the storage engine on insert.
	ID int64 `json:"id"`

	// URL is the bookmarked address. Required.
	URL string `json:"url"`

	// ─────────────────────────────
	// Description
	// ─────────────────────────────

	// Title is never empty once stored. When the caller omits it,
	// it is derived from the page or the hostname.
	Title string `json:"title"`

	Description string `json:"description"`

	// Favicon defaults to a favicon lookup URL for the bookmark host.
	Favicon string `json:"favicon"`

	// ─────────────────────────────
	// Metadata
	// ─────────────────────────────

	CreatedAt int64 `json:"created_at"`

	// UpdatedAt is refreshed on every mutating write.
	UpdatedAt int64 `json:"updated_at"`

	// ─────────────────────────────
	// Usage
	// ─────────────────────────────

	// LastVisited is nil until the first recorded visit.
	LastVisited *int64 `json:"last_visited"`

	// VisitCount only grows, one per recorded visit.
	VisitCount int64 `json:"visit_count"`

	// ─────────────────────────────
	// Associations (read model)
	// ─────────────────────────────

	Categories []CategoryRef `json:"categories"`
}

// CategoryIDs returns the ids of the categories attached to the bookmark.
func (b *Bookmark) CategoryIDs() []int64 {
	ids := make([]int64, 0, len(b.Categories))
	for _, c := range b.Categories {
		ids = append(ids, c.ID)
	}
	return ids
}

// BookmarkInput holds the fields accepted when creating a bookmark.
type BookmarkInput struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Favicon     string `json:"favicon"`
}

// BookmarkPatch is a partial update: nil fields are left unchanged.
type BookmarkPatch struct {
	URL         *string `json:"url,omitempty"`
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Favicon     *string `json:"favicon,omitempty"`
}
