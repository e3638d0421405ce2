package homepage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to create test YAML file: %v", err)
	}
	return path
}

func TestServiceLoaderLoad(t *testing.T) {
	yamlPath := writeFile(t, "services.yaml", `---
- Infrastructure:
    - AdGuard Home:
        icon: adguard-home.svg
        href: https://adguard.domain.ext
        description: Network-wide ads & trackers blocking DNS server
`)

	config, err := NewServiceLoader(yamlPath).Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(config) == 0 {
		t.Fatal("Load() returned empty config")
	}
	props := config[0]["Infrastructure"][0]["AdGuard Home"]
	if props.Href != "https://adguard.domain.ext" {
		t.Errorf("href = %q", props.Href)
	}
}

func TestServiceLoaderLoadWithTemplateVariables(t *testing.T) {
	yamlPath := writeFile(t, "services.yaml", `---
- Infrastructure:
    - AdGuard Home:
        icon: adguard-home.svg
        href: {{HOMEPAGE_VAR_ADGUARD_URL}}
        description: Test
`)

	config, err := NewServiceLoader(yamlPath).Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(config) == 0 {
		t.Fatal("Load() returned empty config")
	}
}

func TestBookmarkLoaderLoad(t *testing.T) {
	yamlPath := writeFile(t, "bookmarks.yaml", `---
- Developer:
    - Github:
        - abbr: GH
          href: https://github.com/
- Social:
    - Reddit:
        - icon: reddit.png
          href: https://reddit.com/
`)

	config, err := NewBookmarkLoader(yamlPath).Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(config) != 2 {
		t.Fatalf("Load() returned %d groups, want 2", len(config))
	}
	if got := config[0]["Developer"][0]["Github"][0].Abbr; got != "GH" {
		t.Errorf("abbr = %q, want GH", got)
	}
}

func TestLoadFileNotFound(t *testing.T) {
	if _, err := NewServiceLoader("/nonexistent/path/services.yaml").Load(); err == nil {
		t.Error("ServiceLoader.Load() with non-existent file should return error")
	}
	if _, err := NewBookmarkLoader("/nonexistent/path/bookmarks.yaml").Load(); err == nil {
		t.Error("BookmarkLoader.Load() with non-existent file should return error")
	}
}

func TestTemplateVariablesAreBlanked(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "single variable", input: "url: {{HOMEPAGE_VAR_URL}}", expected: `url: ""`},
		{name: "two variables", input: "a: {{X}}\nb: {{Y}}", expected: "a: \"\"\nb: \"\""},
		{name: "no variables", input: "plain text", expected: "plain text"},
		{name: "single braces untouched", input: "{not: a var}", expected: "{not: a var}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := string(templateVariable.ReplaceAll([]byte(tt.input), []byte(`""`))); got != tt.expected {
				t.Errorf("got %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestLoaderReportsPathOnParseError(t *testing.T) {
	path := writeFile(t, "bookmarks.yaml", "- Developer: [unclosed")
	l := NewBookmarkLoader(path)
	_, err := l.Load()
	if err == nil {
		t.Fatal("Load() on malformed yaml should fail")
	}
	if !strings.Contains(err.Error(), l.Path()) {
		t.Errorf("error %q does not name %s", err, l.Path())
	}
}
