package domain

import (
	"fmt"
	"strconv"
)

// Category scopes understood by Filters.CategoryID besides a numeric id.
const (
	ScopeAll           = "all"
	ScopeUncategorized = "uncategorized"
)

// SortField names a bookmark column filterBookmarks can order by.
type SortField string

const (
	SortByTitle      SortField = "title"
	SortByURL        SortField = "url"
	SortByCreatedAt  SortField = "created_at"
	SortByUpdatedAt  SortField = "updated_at"
	SortByVisitCount SortField = "visit_count"
)

// SortOrder is asc or desc.
type SortOrder string

const (
	Ascending  SortOrder = "asc"
	Descending SortOrder = "desc"
)

// Filters composes the criteria of a bookmark listing.
// Zero values mean "no constraint" and the default ordering (updated_at desc).
type Filters struct {
	CategoryID string // "", "all", "uncategorized" or a numeric id
	Query      string
	DateFrom   int64 // inclusive, epoch millis, 0 = unbounded
	DateTo     int64 // inclusive, epoch millis, 0 = unbounded
	SortBy     SortField
	SortOrder  SortOrder
}

// ParseSortField validates a sort field name. Empty yields updated_at.
func ParseSortField(s string) (SortField, error) {
	switch f := SortField(s); f {
	case "":
		return SortByUpdatedAt, nil
	case SortByTitle, SortByURL, SortByCreatedAt, SortByUpdatedAt, SortByVisitCount:
		return f, nil
	default:
		return "", fmt.Errorf("unknown sort field %q", s)
	}
}

// ParseSortOrder validates a sort order. Empty yields desc.
func ParseSortOrder(s string) (SortOrder, error) {
	switch o := SortOrder(s); o {
	case "":
		return Descending, nil
	case Ascending, Descending:
		return o, nil
	default:
		return "", fmt.Errorf("unknown sort order %q", s)
	}
}

// CategoryScope resolves Filters.CategoryID. It returns the scope name for
// "all" (also used for empty) and "uncategorized", or the parsed numeric id.
func (f Filters) CategoryScope() (scope string, id int64, err error) {
	switch f.CategoryID {
	case "", ScopeAll:
		return ScopeAll, 0, nil
	case ScopeUncategorized:
		return ScopeUncategorized, 0, nil
	}
	id, err = strconv.ParseInt(f.CategoryID, 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("invalid category id %q", f.CategoryID)
	}
	return "", id, nil
}
