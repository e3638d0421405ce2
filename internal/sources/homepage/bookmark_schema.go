package homepage

// BookmarkEntry is the property list under a bookmark name. Homepage wraps it
// in a one-element sequence.
type BookmarkEntry struct {
	Href        string `yaml:"href"`
	Icon        string `yaml:"icon,omitempty"`
	Abbr        string `yaml:"abbr,omitempty"`
	Description string `yaml:"description,omitempty"`
}

// BookmarkCategory maps a group name to a sequence of one-key maps from
// bookmark name to its entry list.
type BookmarkCategory map[string][]map[string][]BookmarkEntry

// BookmarksConfig is the root of a Homepage bookmarks.yaml.
type BookmarksConfig []BookmarkCategory
