package homepage

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// templateVariable matches {{HOMEPAGE_VAR_...}} placeholders. Homepage
// resolves them itself and they never hold anything a bookmark needs.
var templateVariable = regexp.MustCompile(`\{\{[^}]+\}\}`)

// Loader decodes one Homepage YAML file into T. The file is read on every
// Load so edits are picked up by the next reload tick.
type Loader[T any] struct {
	path string
	kind string
}

func NewServiceLoader(path string) *Loader[ServicesConfig] {
	return &Loader[ServicesConfig]{path: path, kind: "services"}
}

func NewBookmarkLoader(path string) *Loader[BookmarksConfig] {
	return &Loader[BookmarksConfig]{path: path, kind: "bookmarks"}
}

func (l *Loader[T]) Path() string { return l.path }

func (l *Loader[T]) Load() (T, error) {
	var out T
	data, err := os.ReadFile(l.path)
	if err != nil {
		return out, fmt.Errorf("failed to read %s file: %w", l.kind, err)
	}
	data = templateVariable.ReplaceAll(data, []byte(`""`))
	if err := yaml.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("failed to parse %s yaml %s: %w", l.kind, l.path, err)
	}
	return out, nil
}
