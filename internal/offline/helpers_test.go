package offline

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/MrSnakeDoc/bookmarker/internal/logger"
)

const origin = "https://app.test"

type fakeResponse struct {
	status int
	body   string
}

// fakeNetwork answers from a fixed route table and can be switched off.
type fakeNetwork struct {
	mu     sync.Mutex
	down   bool
	routes map[string]fakeResponse
	hits   map[string]int
}

func newFakeNetwork() *fakeNetwork {
	return &fakeNetwork{routes: map[string]fakeResponse{}, hits: map[string]int{}}
}

func (f *fakeNetwork) set(target string, status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes[target] = fakeResponse{status: status, body: body}
}

func (f *fakeNetwork) setDown(down bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.down = down
}

func (f *fakeNetwork) hitCount(target string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[target]
}

func (f *fakeNetwork) RoundTrip(req *http.Request) (*http.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := Key(req.URL)
	f.hits[key]++
	if f.down {
		return nil, errors.New("network is unreachable")
	}
	r, ok := f.routes[key]
	if !ok {
		r = fakeResponse{status: http.StatusNotFound, body: "not found"}
	}
	return &http.Response{
		StatusCode: r.status,
		Header:     http.Header{"Content-Type": []string{"text/plain"}},
		Body:       io.NopCloser(strings.NewReader(r.body)),
		Request:    req,
	}, nil
}

type recorder struct {
	mu   sync.Mutex
	msgs []Message
}

func (r *recorder) Publish(msg Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.msgs))
	for _, m := range r.msgs {
		out = append(out, m.Type)
	}
	return out
}

func testManifest(version string) *Manifest {
	return &Manifest{
		Version:          version,
		Static:           []string{"/", "/index.html", "/app.js", "/offline.html", "/icons/placeholder.png"},
		Fonts:            []string{"https://fonts.googleapis.com/css2?family=Inter"},
		FontHosts:        []string{"fonts.googleapis.com", "fonts.gstatic.com"},
		CDNHosts:         []string{"cdnjs.cloudflare.com"},
		OfflinePage:      "/offline.html",
		ImagePlaceholder: "/icons/placeholder.png",
	}
}

// serveManifest makes every manifest URL answer 200 with a recognizable body.
func serveManifest(net *fakeNetwork, m *Manifest) {
	for _, p := range m.Static {
		net.set(origin+p, http.StatusOK, "static "+p)
	}
	for _, u := range m.Fonts {
		net.set(u, http.StatusOK, "font css")
	}
}

func newController(t *testing.T, net *fakeNetwork, caches CacheStorage, m *Manifest, status *NetworkStatus) *Controller {
	t.Helper()
	u, err := url.Parse(origin)
	if err != nil {
		t.Fatal(err)
	}
	return NewController(Options{
		Manifest:  m,
		Origin:    u,
		Caches:    caches,
		Transport: net,
		Status:    status,
		Logger:    logger.Nop(),
	})
}

// activeController installs and activates a controller over a served manifest.
func activeController(t *testing.T) (*Controller, *fakeNetwork, *MemoryStorage) {
	t.Helper()
	net := newFakeNetwork()
	m := testManifest("v1")
	serveManifest(net, m)
	caches := NewMemoryStorage()
	c := newController(t, net, caches, m, nil)

	ctx := context.Background()
	if err := c.Install(ctx); err != nil {
		t.Fatalf("Install: %v", err)
	}
	if err := c.Activate(ctx); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	return c, net, caches
}

func get(t *testing.T, rt http.RoundTripper, target string, header ...string) (*http.Response, string, error) {
	t.Helper()
	return do(t, rt, http.MethodGet, target, header...)
}

func do(t *testing.T, rt http.RoundTripper, method, target string, header ...string) (*http.Response, string, error) {
	t.Helper()
	req, err := http.NewRequest(method, target, nil)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	resp, err := rt.RoundTrip(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp, string(body), nil
}
