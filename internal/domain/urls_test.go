package domain

import "testing"

func TestParseBookmarkURL(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		host    string
		wantErr bool
	}{
		{name: "https", raw: "https://example.com/a?b=c", host: "example.com"},
		{name: "http with www", raw: "http://www.golang.org", host: "golang.org"},
		{name: "trims spaces", raw: "  https://go.dev  ", host: "go.dev"},
		{name: "empty", raw: "", wantErr: true},
		{name: "relative", raw: "/index.html", wantErr: true},
		{name: "ftp", raw: "ftp://files.example.com", wantErr: true},
		{name: "no host", raw: "https://", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := ParseBookmarkURL(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseBookmarkURL(%q) expected error", tt.raw)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseBookmarkURL(%q) unexpected error: %v", tt.raw, err)
			}
			if got := DisplayHost(u); got != tt.host {
				t.Errorf("DisplayHost() = %q, want %q", got, tt.host)
			}
		})
	}
}

func TestFaviconURL(t *testing.T) {
	u, err := ParseBookmarkURL("https://www.example.com/page")
	if err != nil {
		t.Fatal(err)
	}
	want := "https://www.google.com/s2/favicons?domain=www.example.com"
	if got := FaviconURL(u); got != want {
		t.Errorf("FaviconURL() = %q, want %q", got, want)
	}
}

func TestCategoryScope(t *testing.T) {
	tests := []struct {
		in        string
		wantScope string
		wantID    int64
		wantErr   bool
	}{
		{in: "", wantScope: ScopeAll},
		{in: "all", wantScope: ScopeAll},
		{in: "uncategorized", wantScope: ScopeUncategorized},
		{in: "12", wantID: 12},
		{in: "dev", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			scope, id, err := Filters{CategoryID: tt.in}.CategoryScope()
			if tt.wantErr != (err != nil) {
				t.Fatalf("CategoryScope() err = %v, wantErr %v", err, tt.wantErr)
			}
			if scope != tt.wantScope || id != tt.wantID {
				t.Errorf("CategoryScope() = (%q, %d), want (%q, %d)", scope, id, tt.wantScope, tt.wantID)
			}
		})
	}
}

func TestParseSort(t *testing.T) {
	if f, _ := ParseSortField(""); f != SortByUpdatedAt {
		t.Errorf("default sort field = %q, want updated_at", f)
	}
	if o, _ := ParseSortOrder(""); o != Descending {
		t.Errorf("default sort order = %q, want desc", o)
	}
	if _, err := ParseSortField("rank"); err == nil {
		t.Error("ParseSortField(rank) expected error")
	}
	if _, err := ParseSortOrder("up"); err == nil {
		t.Error("ParseSortOrder(up) expected error")
	}
}
