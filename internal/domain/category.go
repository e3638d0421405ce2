package domain

// Category groups bookmarks. Names are unique across categories.
type Category struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Color     string `json:"color"`
	CreatedAt int64  `json:"created_at"`

	// Count is the number of associated bookmarks. Derived, never stored.
	Count int64 `json:"count"`
}

// CategoryRef is the compact form of a category embedded in a Bookmark.
type CategoryRef struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

type CategoryInput struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

type CategoryPatch struct {
	Name  *string `json:"name,omitempty"`
	Color *string `json:"color,omitempty"`
}

// CategoryPalette is the fixed set of colors a new category picks from
// when none is given.
var CategoryPalette = []string{
	"#4285f4", "#34a853", "#fbbc05", "#ea4335",
	"#673ab7", "#3f51b5", "#2196f3", "#009688",
	"#4caf50", "#ff9800", "#ff5722", "#795548",
	"#607d8b",
}
