package homepage

import (
	"errors"
	"reflect"
	"testing"

	"github.com/MrSnakeDoc/bookmarker/internal/transfer"
)

func TestMapServices(t *testing.T) {
	config := ServicesConfig{
		{
			"Infrastructure": []map[string]ServiceProps{
				{
					"AdGuard Home": {
						Icon:        "adguard-home.svg",
						Href:        "https://adguard.domain.ext",
						Description: "Network-wide ads blocking",
					},
				},
				{
					"Traefik": {
						Icon:        "https://cdn.example/traefik.png",
						Href:        "https://traefik.domain.ext",
						Description: "Cloud Native Application Proxy",
					},
				},
			},
		},
	}

	doc, err := NewServiceMapper().MapServices(config)
	if err != nil {
		t.Fatalf("MapServices() error = %v", err)
	}

	want := &transfer.Document{
		Version:    transfer.FormatVersion,
		Categories: []transfer.CategoryRecord{{ID: 1, Name: "Infrastructure"}},
		Bookmarks: []transfer.BookmarkRecord{
			{ID: 1, URL: "https://adguard.domain.ext", Title: "AdGuard Home", Description: "Network-wide ads blocking", Categories: []int64{1}},
			{ID: 2, URL: "https://traefik.domain.ext", Title: "Traefik", Description: "Cloud Native Application Proxy", Favicon: "https://cdn.example/traefik.png", Categories: []int64{1}},
		},
	}
	if !reflect.DeepEqual(doc, want) {
		t.Errorf("MapServices() = %+v, want %+v", doc, want)
	}
	if err := doc.Validate(); err != nil {
		t.Errorf("mapped document does not validate: %v", err)
	}
}

func TestMapServicesSkipsInvalid(t *testing.T) {
	tests := []struct {
		name   string
		config ServicesConfig
	}{
		{"empty config", ServicesConfig{}},
		{"invalid url", ServicesConfig{{
			"Test": []map[string]ServiceProps{{"Invalid Service": {Href: "not-a-valid-url"}}},
		}}},
		{"no href", ServicesConfig{{
			"Test": []map[string]ServiceProps{{"Widget only": {Description: "no link"}}},
		}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := NewServiceMapper().MapServices(tt.config)
			if err == nil {
				t.Error("MapServices() should return error when no valid services found")
			}
			if doc != nil {
				t.Errorf("MapServices() should return nil, got %+v", doc)
			}
		})
	}
}

func TestMapBookmarksGroupsBecomeCategories(t *testing.T) {
	config := BookmarksConfig{
		{"Developer": {
			{"Github": {{Abbr: "GH", Href: "https://github.com/"}}},
			{"Go": {{Href: "https://go.dev/"}}},
		}},
		{"Social": {
			{"Reddit": {{Icon: "reddit.png", Href: "https://reddit.com/"}}},
			{"Empty": {}},
		}},
		{"Developer": {
			{"Github again": {{Href: "https://github.com/"}}},
		}},
	}

	doc, err := NewBookmarkMapper().MapBookmarks(config)
	if err != nil {
		t.Fatalf("MapBookmarks() error = %v", err)
	}

	wantCategories := []transfer.CategoryRecord{{ID: 1, Name: "Developer"}, {ID: 2, Name: "Social"}}
	if !reflect.DeepEqual(doc.Categories, wantCategories) {
		t.Errorf("categories = %+v, want %+v", doc.Categories, wantCategories)
	}
	if len(doc.Bookmarks) != 3 {
		t.Fatalf("bookmarks = %+v, want 3 (duplicate url dropped)", doc.Bookmarks)
	}
	reddit := doc.Bookmarks[2]
	if reddit.Title != "Reddit" || reddit.Favicon != "" || !reflect.DeepEqual(reddit.Categories, []int64{2}) {
		t.Errorf("reddit = %+v", reddit)
	}
}

func TestSourceDocument(t *testing.T) {
	bookmarks := writeFile(t, "bookmarks.yaml", `---
- Developer:
    - Github:
        - href: https://github.com/
`)
	services := writeFile(t, "services.yaml", `---
- Developer:
    - Gitea:
        href: https://git.domain.ext
        description: Self-hosted git
    - Github mirror:
        href: https://github.com/
        description: should not override
`)

	doc, err := NewSource(bookmarks, services).Document()
	if err != nil {
		t.Fatal(err)
	}
	if len(doc.Categories) != 1 || len(doc.Bookmarks) != 2 {
		t.Fatalf("got %d categories, %d bookmarks", len(doc.Categories), len(doc.Bookmarks))
	}
	if doc.Bookmarks[0].Title != "Github" || doc.Bookmarks[1].Title != "Gitea" {
		t.Errorf("bookmarks = %+v", doc.Bookmarks)
	}

	if _, err := NewSource("", "").Document(); !errors.Is(err, ErrNoSource) {
		t.Errorf("err = %v, want ErrNoSource", err)
	}
}
