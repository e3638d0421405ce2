package repository

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/MrSnakeDoc/bookmarker/internal/apperr"
	"github.com/MrSnakeDoc/bookmarker/internal/database/databasetest"
	"github.com/MrSnakeDoc/bookmarker/internal/domain"
	"github.com/MrSnakeDoc/bookmarker/internal/logger"
)

// fakeClock advances one second per reading so every write gets a distinct time.
type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time {
	c.now = c.now.Add(time.Second)
	return c.now
}

func newRepo(t *testing.T) (*Repository, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.UnixMilli(1_700_000_000_000)}
	repo := New(databasetest.Open(t), logger.Nop())
	repo.Bookmarks.WithClock(clock.Now)
	repo.Categories.WithClock(clock.Now)
	return repo, clock
}

func strptr(s string) *string { return &s }

func ids(list []domain.Bookmark) []int64 {
	out := make([]int64, 0, len(list))
	for _, b := range list {
		out = append(out, b.ID)
	}
	return out
}

func mustAdd(t *testing.T, r *BookmarkRepository, in domain.BookmarkInput, cats ...int64) *domain.Bookmark {
	t.Helper()
	b, err := r.AddBookmark(context.Background(), in, cats)
	if err != nil {
		t.Fatalf("AddBookmark(%q): %v", in.URL, err)
	}
	return b
}

func mustCategory(t *testing.T, r *CategoryRepository, name string) *domain.Category {
	t.Helper()
	c, err := r.AddCategory(context.Background(), domain.CategoryInput{Name: name})
	if err != nil {
		t.Fatalf("AddCategory(%q): %v", name, err)
	}
	return c
}

func TestAddThenGetBookmark(t *testing.T) {
	ctx := context.Background()
	repo, _ := newRepo(t)

	added := mustAdd(t, repo.Bookmarks, domain.BookmarkInput{
		URL:         "https://example.com/docs",
		Title:       "Example docs",
		Description: "Reference",
		Favicon:     "https://example.com/favicon.ico",
	})

	got, err := repo.Bookmarks.GetBookmark(ctx, added.ID)
	if err != nil {
		t.Fatal(err)
	}
	want := domain.Bookmark{
		ID:          added.ID,
		URL:         "https://example.com/docs",
		Title:       "Example docs",
		Description: "Reference",
		Favicon:     "https://example.com/favicon.ico",
		CreatedAt:   added.CreatedAt,
		UpdatedAt:   added.CreatedAt,
		VisitCount:  0,
		Categories:  []domain.CategoryRef{},
	}
	if !reflect.DeepEqual(*got, want) {
		t.Errorf("GetBookmark() = %+v\nwant %+v", *got, want)
	}
	if added.ID == 0 || added.CreatedAt == 0 {
		t.Errorf("generated fields missing: %+v", added)
	}
}

func TestAddBookmarkDefaults(t *testing.T) {
	repo, _ := newRepo(t)

	b := mustAdd(t, repo.Bookmarks, domain.BookmarkInput{URL: "https://www.example.com/page"})
	if b.Title != "example.com" {
		t.Errorf("default title = %q, want example.com", b.Title)
	}
	if b.Favicon != "https://www.google.com/s2/favicons?domain=www.example.com" {
		t.Errorf("default favicon = %q", b.Favicon)
	}

	repo.Bookmarks.WithTitleFetcher(TitleFetcherFunc(func(context.Context, string) (string, error) {
		return "  Fetched Title ", nil
	}))
	b = mustAdd(t, repo.Bookmarks, domain.BookmarkInput{URL: "https://go.dev"})
	if b.Title != "Fetched Title" {
		t.Errorf("fetched title = %q, want Fetched Title", b.Title)
	}
}

func TestAddBookmarkValidation(t *testing.T) {
	ctx := context.Background()
	repo, _ := newRepo(t)

	tests := []struct {
		name string
		in   domain.BookmarkInput
		cats []int64
	}{
		{name: "missing url", in: domain.BookmarkInput{Title: "No url"}},
		{name: "malformed url", in: domain.BookmarkInput{URL: "not a url"}},
		{name: "unsupported scheme", in: domain.BookmarkInput{URL: "javascript:alert(1)"}},
		{name: "unknown category", in: domain.BookmarkInput{URL: "https://a.example"}, cats: []int64{999}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := repo.Bookmarks.AddBookmark(ctx, tt.in, tt.cats)
			if !apperr.Is(err, apperr.KindValidation) {
				t.Errorf("AddBookmark() error = %v, want validation", err)
			}
		})
	}

	all, err := repo.Bookmarks.GetAllBookmarks(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 0 {
		t.Errorf("rejected adds left %d bookmarks behind", len(all))
	}
}

func TestEmptyUpdateOnlyBumpsUpdatedAt(t *testing.T) {
	ctx := context.Background()
	repo, _ := newRepo(t)

	dev := mustCategory(t, repo.Categories, "Dev")
	before := mustAdd(t, repo.Bookmarks, domain.BookmarkInput{URL: "https://go.dev", Title: "Go"}, dev.ID)
	if _, err := repo.Bookmarks.RecordVisit(ctx, before.ID); err != nil {
		t.Fatal(err)
	}
	before, _ = repo.Bookmarks.GetBookmark(ctx, before.ID)

	after, err := repo.Bookmarks.UpdateBookmark(ctx, before.ID, domain.BookmarkPatch{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if after.UpdatedAt <= before.UpdatedAt {
		t.Errorf("updated_at = %d, want > %d", after.UpdatedAt, before.UpdatedAt)
	}
	after.UpdatedAt = before.UpdatedAt
	if !reflect.DeepEqual(*after, *before) {
		t.Errorf("empty update changed fields:\n got %+v\nwant %+v", *after, *before)
	}
}

func TestUpdateBookmark(t *testing.T) {
	ctx := context.Background()
	repo, _ := newRepo(t)

	dev := mustCategory(t, repo.Categories, "Dev")
	docs := mustCategory(t, repo.Categories, "Docs")
	b := mustAdd(t, repo.Bookmarks, domain.BookmarkInput{URL: "https://go.dev", Title: "Go"}, dev.ID)

	t.Run("fields and nil categories", func(t *testing.T) {
		got, err := repo.Bookmarks.UpdateBookmark(ctx, b.ID, domain.BookmarkPatch{Title: strptr("Go website")}, nil)
		if err != nil {
			t.Fatal(err)
		}
		if got.Title != "Go website" || got.URL != "https://go.dev" {
			t.Errorf("UpdateBookmark() = %+v", got)
		}
		if !reflect.DeepEqual(got.CategoryIDs(), []int64{dev.ID}) {
			t.Errorf("categories = %v, want [%d]", got.CategoryIDs(), dev.ID)
		}
	})

	t.Run("replace categories", func(t *testing.T) {
		got, err := repo.Bookmarks.UpdateBookmark(ctx, b.ID, domain.BookmarkPatch{}, []int64{docs.ID, docs.ID})
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(got.CategoryIDs(), []int64{docs.ID}) {
			t.Errorf("categories = %v, want [%d]", got.CategoryIDs(), docs.ID)
		}
	})

	t.Run("empty slice clears", func(t *testing.T) {
		got, err := repo.Bookmarks.UpdateBookmark(ctx, b.ID, domain.BookmarkPatch{}, []int64{})
		if err != nil {
			t.Fatal(err)
		}
		if len(got.Categories) != 0 {
			t.Errorf("categories = %v, want none", got.CategoryIDs())
		}
	})

	t.Run("validation", func(t *testing.T) {
		_, err := repo.Bookmarks.UpdateBookmark(ctx, b.ID, domain.BookmarkPatch{Title: strptr("  ")}, nil)
		if !apperr.Is(err, apperr.KindValidation) {
			t.Errorf("empty title error = %v, want validation", err)
		}
		_, err = repo.Bookmarks.UpdateBookmark(ctx, b.ID, domain.BookmarkPatch{URL: strptr("mailto:x@y")}, nil)
		if !apperr.Is(err, apperr.KindValidation) {
			t.Errorf("bad url error = %v, want validation", err)
		}
	})

	t.Run("failed link rolls back field update", func(t *testing.T) {
		_, err := repo.Bookmarks.UpdateBookmark(ctx, b.ID, domain.BookmarkPatch{Title: strptr("Changed")}, []int64{12345})
		if !apperr.Is(err, apperr.KindValidation) {
			t.Fatalf("unknown category error = %v, want validation", err)
		}
		got, _ := repo.Bookmarks.GetBookmark(ctx, b.ID)
		if got.Title != "Go website" {
			t.Errorf("title = %q after failed update, want unchanged", got.Title)
		}
	})

	t.Run("missing", func(t *testing.T) {
		got, err := repo.Bookmarks.UpdateBookmark(ctx, 9999, domain.BookmarkPatch{Title: strptr("x")}, []int64{dev.ID})
		if err != nil || got != nil {
			t.Errorf("UpdateBookmark(missing) = %v, %v; want nil, nil", got, err)
		}
	})
}

func TestDeleteBookmarkCascades(t *testing.T) {
	ctx := context.Background()
	repo, _ := newRepo(t)

	dev := mustCategory(t, repo.Categories, "Dev")
	b := mustAdd(t, repo.Bookmarks, domain.BookmarkInput{URL: "https://zig.example", Title: "Ziglang manual"}, dev.ID)

	ok, err := repo.Bookmarks.DeleteBookmark(ctx, b.ID)
	if err != nil || !ok {
		t.Fatalf("DeleteBookmark() = %v, %v; want true", ok, err)
	}

	hits, err := repo.Bookmarks.SearchBookmarks(ctx, "ziglang")
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 0 {
		t.Errorf("search after delete = %v, want none", ids(hits))
	}
	cat, _ := repo.Categories.GetCategory(ctx, dev.ID)
	if cat.Count != 0 {
		t.Errorf("category count = %d after delete, want 0", cat.Count)
	}

	ok, err = repo.Bookmarks.DeleteBookmark(ctx, b.ID)
	if err != nil || ok {
		t.Errorf("second DeleteBookmark() = %v, %v; want false, nil", ok, err)
	}
}

func TestRecordVisitIsMonotonic(t *testing.T) {
	ctx := context.Background()
	repo, clock := newRepo(t)

	b := mustAdd(t, repo.Bookmarks, domain.BookmarkInput{URL: "https://visits.example"})
	const n = 3
	var last *domain.Bookmark
	for i := 0; i < n; i++ {
		var err error
		if last, err = repo.Bookmarks.RecordVisit(ctx, b.ID); err != nil {
			t.Fatal(err)
		}
	}
	if last.VisitCount != n {
		t.Errorf("visit_count = %d, want %d", last.VisitCount, n)
	}
	if last.LastVisited == nil || *last.LastVisited != clock.now.UnixMilli() {
		t.Errorf("last_visited = %v, want %d", last.LastVisited, clock.now.UnixMilli())
	}

	missing, err := repo.Bookmarks.RecordVisit(ctx, 4242)
	if err != nil || missing != nil {
		t.Errorf("RecordVisit(missing) = %v, %v; want nil, nil", missing, err)
	}
	all, _ := repo.Bookmarks.GetAllBookmarks(ctx)
	if len(all) != 1 {
		t.Errorf("RecordVisit(missing) created rows: %d bookmarks", len(all))
	}
}

func TestUncategorizedScenario(t *testing.T) {
	ctx := context.Background()
	repo, _ := newRepo(t)

	b := mustAdd(t, repo.Bookmarks, domain.BookmarkInput{URL: "https://example.com", Title: "Example"})

	uncategorized := func() []int64 {
		list, err := repo.Bookmarks.FilterBookmarks(ctx, domain.Filters{CategoryID: "uncategorized"})
		if err != nil {
			t.Fatal(err)
		}
		return ids(list)
	}

	if got := uncategorized(); !reflect.DeepEqual(got, []int64{b.ID}) {
		t.Fatalf("uncategorized = %v, want [%d]", got, b.ID)
	}

	dev := mustCategory(t, repo.Categories, "Dev")
	if _, err := repo.Bookmarks.UpdateBookmark(ctx, b.ID, domain.BookmarkPatch{}, []int64{dev.ID}); err != nil {
		t.Fatal(err)
	}
	if got := uncategorized(); len(got) != 0 {
		t.Errorf("uncategorized after attach = %v, want none", got)
	}
	inDev, err := repo.Bookmarks.GetBookmarksByCategory(ctx, "1")
	if err != nil {
		t.Fatal(err)
	}
	if dev.ID != 1 || !reflect.DeepEqual(ids(inDev), []int64{b.ID}) {
		t.Errorf("category %d = %v, want [%d]", dev.ID, ids(inDev), b.ID)
	}

	// Deleting the only category makes the bookmark uncategorized again.
	if ok, err := repo.Categories.DeleteCategory(ctx, dev.ID); err != nil || !ok {
		t.Fatalf("DeleteCategory() = %v, %v", ok, err)
	}
	if got := uncategorized(); !reflect.DeepEqual(got, []int64{b.ID}) {
		t.Errorf("uncategorized after category delete = %v, want [%d]", got, b.ID)
	}
}

func TestFilterBookmarks(t *testing.T) {
	ctx := context.Background()
	repo, _ := newRepo(t)

	dev := mustCategory(t, repo.Categories, "Dev")
	a := mustAdd(t, repo.Bookmarks, domain.BookmarkInput{URL: "https://b.example", Title: "beta tools"}, dev.ID)
	b := mustAdd(t, repo.Bookmarks, domain.BookmarkInput{URL: "https://a.example", Title: "Alpha tools"})
	c := mustAdd(t, repo.Bookmarks, domain.BookmarkInput{URL: "https://c.example", Title: "gamma recipes"}, dev.ID)
	for i := 0; i < 2; i++ {
		if _, err := repo.Bookmarks.RecordVisit(ctx, c.ID); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := repo.Bookmarks.RecordVisit(ctx, a.ID); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		filters domain.Filters
		want    []int64
	}{
		{name: "default updated_at desc", filters: domain.Filters{}, want: []int64{a.ID, c.ID, b.ID}},
		{name: "title asc case-insensitive", filters: domain.Filters{SortBy: domain.SortByTitle, SortOrder: domain.Ascending}, want: []int64{b.ID, a.ID, c.ID}},
		{name: "url desc", filters: domain.Filters{SortBy: domain.SortByURL}, want: []int64{c.ID, a.ID, b.ID}},
		{name: "visit_count desc", filters: domain.Filters{SortBy: domain.SortByVisitCount}, want: []int64{c.ID, a.ID, b.ID}},
		{name: "created_at asc", filters: domain.Filters{SortBy: domain.SortByCreatedAt, SortOrder: domain.Ascending}, want: []int64{a.ID, b.ID, c.ID}},
		{name: "category and query", filters: domain.Filters{CategoryID: "1", Query: "tool", SortBy: domain.SortByCreatedAt}, want: []int64{a.ID}},
		{name: "query only", filters: domain.Filters{Query: "tools", SortBy: domain.SortByTitle, SortOrder: domain.Ascending}, want: []int64{b.ID, a.ID}},
		{name: "date range inclusive", filters: domain.Filters{DateFrom: b.CreatedAt, DateTo: c.CreatedAt, SortBy: domain.SortByCreatedAt, SortOrder: domain.Ascending}, want: []int64{b.ID, c.ID}},
		{name: "all scope", filters: domain.Filters{CategoryID: "all", DateTo: a.CreatedAt}, want: []int64{a.ID}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.Bookmarks.FilterBookmarks(ctx, tt.filters)
			if err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(ids(got), tt.want) {
				t.Errorf("FilterBookmarks() = %v, want %v", ids(got), tt.want)
			}
		})
	}

	if _, err := repo.Bookmarks.FilterBookmarks(ctx, domain.Filters{SortBy: "rank"}); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("unknown sort field error = %v, want validation", err)
	}
	if _, err := repo.Bookmarks.FilterBookmarks(ctx, domain.Filters{CategoryID: "dev"}); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("bad category id error = %v, want validation", err)
	}
}

func TestSearchBookmarks(t *testing.T) {
	ctx := context.Background()
	repo, _ := newRepo(t)

	golang := mustAdd(t, repo.Bookmarks, domain.BookmarkInput{URL: "https://go.dev", Title: "Golang home", Description: "The Go programming language"})
	mustAdd(t, repo.Bookmarks, domain.BookmarkInput{URL: "https://rust-lang.org", Title: "Rust home"})

	tests := []struct {
		query string
		want  int
	}{
		{query: "", want: 2},
		{query: "   ", want: 2},
		{query: "gol", want: 1},
		{query: "home", want: 2},
		{query: "programming lang", want: 1},
		{query: `"unbalanced`, want: 0},
		{query: "rust-lang", want: 1},
		{query: "go\x00lang", want: 1},
		{query: "\x00\x1b", want: 2},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got, err := repo.Bookmarks.SearchBookmarks(ctx, tt.query)
			if err != nil {
				t.Fatalf("SearchBookmarks(%q) error: %v", tt.query, err)
			}
			if len(got) != tt.want {
				t.Errorf("SearchBookmarks(%q) = %v, want %d results", tt.query, ids(got), tt.want)
			}
		})
	}

	got, _ := repo.Bookmarks.SearchBookmarks(ctx, "programming")
	if len(got) != 1 || got[0].ID != golang.ID {
		t.Errorf("description search = %v, want [%d]", ids(got), golang.ID)
	}
}

func TestFTSQuery(t *testing.T) {
	tests := map[string]string{
		"":            "",
		"go":          `"go"*`,
		" go  dev ":   `"go"* "dev"*`,
		`say "hi"`:    `"say"* """hi"""*`,
		"a OR b NEAR": `"a"* "OR"* "b"* "NEAR"*`,
	}
	for in, want := range tests {
		if got := ftsQuery(in); got != want {
			t.Errorf("ftsQuery(%q) = %q, want %q", in, got, want)
		}
	}
}
