package offline

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Manifest lists what the controller precaches and how it classifies hosts.
type Manifest struct {
	Version          string   `yaml:"version"`
	Static           []string `yaml:"static"`     // same-origin paths
	Fonts            []string `yaml:"fonts"`      // absolute font stylesheet URLs
	FontHosts        []string `yaml:"font_hosts"` // cache-first into the fonts cache
	CDNHosts         []string `yaml:"cdn_hosts"`  // cache-first into the dynamic cache
	OfflinePage      string   `yaml:"offline_page"`
	ImagePlaceholder string   `yaml:"image_placeholder"`
}

// CacheNames are the four versioned caches a controller owns.
type CacheNames struct {
	Static  string
	Dynamic string
	Fonts   string
	API     string
}

func (n CacheNames) All() []string {
	return []string{n.Static, n.Dynamic, n.Fonts, n.API}
}

func (m *Manifest) CacheNames() CacheNames {
	return CacheNames{
		Static:  "bookmarker-static-" + m.Version,
		Dynamic: "bookmarker-dynamic-" + m.Version,
		Fonts:   "bookmarker-fonts-" + m.Version,
		API:     "bookmarker-api-" + m.Version,
	}
}

// DefaultManifest is the application shell of the bundled web UI.
func DefaultManifest() *Manifest {
	return &Manifest{
		Version: "v1",
		Static: []string{
			"/",
			"/index.html",
			"/css/variables.css",
			"/css/main.css",
			"/css/components.css",
			"/js/app.js",
			"/js/controllers/bookmark-controller.js",
			"/js/controllers/bookmark-form-controller.js",
			"/js/controllers/category-form-controller.js",
			"/js/controllers/search-controller.js",
			"/js/controllers/share-controller.js",
			"/js/controllers/import-export-controller.js",
			"/js/models/database-service.js",
			"/js/models/bookmark-repository.js",
			"/js/models/category-repository.js",
			"/js/utils/modal-manager.js",
			"/js/utils/toast-manager.js",
			"/js/utils/network-manager.js",
			"/js/utils/router.js",
			"/js/utils/settings-manager.js",
			"/manifest.json",
			"/icons/icon-72x72.png",
			"/icons/icon-96x96.png",
			"/icons/icon-128x128.png",
			"/icons/icon-144x144.png",
			"/icons/icon-152x152.png",
			"/icons/icon-192x192.png",
			"/icons/icon-384x384.png",
			"/icons/icon-512x512.png",
			"/offline.html",
		},
		Fonts: []string{
			"https://fonts.googleapis.com/css2?family=Inter:wght@400;500;600;700&display=swap",
			"https://fonts.googleapis.com/icon?family=Material+Icons",
		},
		FontHosts:        []string{"fonts.googleapis.com", "fonts.gstatic.com"},
		CDNHosts:         []string{"cdnjs.cloudflare.com"},
		OfflinePage:      "/offline.html",
		ImagePlaceholder: "/icons/placeholder.png",
	}
}

// LoadManifest reads a YAML manifest. Fields left out keep their default.
// An empty path yields the defaults.
func LoadManifest(path string) (*Manifest, error) {
	m := DefaultManifest()
	if path == "" {
		return m, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read cache manifest: %w", err)
	}
	if err := yaml.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("failed to parse cache manifest: %w", err)
	}
	if m.Version == "" {
		return nil, fmt.Errorf("cache manifest %s has an empty version", path)
	}
	return m, nil
}
