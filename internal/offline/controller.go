// Package offline is the caching proxy between the UI and the network: it
// precaches the application shell, routes every request through a caching
// strategy and keeps serving when the network is gone.
package offline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MrSnakeDoc/bookmarker/internal/apperr"
	"github.com/MrSnakeDoc/bookmarker/internal/logger"
)

// State is the lifecycle position of a Controller.
type State string

const (
	StateParsed     State = "parsed"
	StateInstalling State = "installing"
	StateInstalled  State = "installed" // waiting
	StateActivating State = "activating"
	StateActivated  State = "activated"
	StateRedundant  State = "redundant"
)

var transitions = map[State][]State{
	StateParsed:     {StateInstalling},
	StateInstalling: {StateInstalled, StateRedundant},
	StateInstalled:  {StateActivating, StateRedundant},
	StateActivating: {StateActivated, StateRedundant},
	StateActivated:  {StateRedundant},
}

// ErrIllegalTransition is returned when a lifecycle step is out of order.
var ErrIllegalTransition = errors.New("illegal controller state transition")

const (
	DefaultFetchTimeout = 10 * time.Second
	precacheConcurrency = 8
)

var imagePath = regexp.MustCompile(`\.(jpg|jpeg|png|gif|svg)$`)

type Options struct {
	Manifest     *Manifest
	Origin       *url.URL // the application shell origin
	Caches       CacheStorage
	Transport    http.RoundTripper // the network; http.DefaultTransport when nil
	FetchTimeout time.Duration
	Status       *NetworkStatus
	Logger       logger.Logger
}

// Controller is one version of the offline cache. It implements
// http.RoundTripper once activated.
type Controller struct {
	manifest *Manifest
	names    CacheNames
	origin   *url.URL
	caches   CacheStorage
	network  http.RoundTripper
	timeout  time.Duration
	status   *NetworkStatus
	log      logger.Logger

	mu    sync.RWMutex
	state State
}

func NewController(opts Options) *Controller {
	if opts.Manifest == nil {
		opts.Manifest = DefaultManifest()
	}
	if opts.Transport == nil {
		opts.Transport = http.DefaultTransport
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = DefaultFetchTimeout
	}
	if opts.Status == nil {
		opts.Status = NewNetworkStatus(nil)
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	return &Controller{
		manifest: opts.Manifest,
		names:    opts.Manifest.CacheNames(),
		origin:   opts.Origin,
		caches:   opts.Caches,
		network:  opts.Transport,
		timeout:  opts.FetchTimeout,
		status:   opts.Status,
		log:      opts.Logger.With(logger.String("cache_version", opts.Manifest.Version)),
		state:    StateParsed,
	}
}

func (c *Controller) Version() string        { return c.manifest.Version }
func (c *Controller) CacheNames() CacheNames { return c.names }
func (c *Controller) Storage() CacheStorage  { return c.caches }

func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Controller) transition(to State) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !slices.Contains(transitions[c.state], to) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, c.state, to)
	}
	c.state = to
	return nil
}

// retire marks the controller redundant from any live state.
func (c *Controller) retire() {
	c.mu.Lock()
	c.state = StateRedundant
	c.mu.Unlock()
}

// ─────────────────────────────────────────────────────────────────
// Lifecycle
// ─────────────────────────────────────────────────────────────────

type precached struct {
	cache string
	key   string
	entry *Entry
}

// Install fetches the whole manifest concurrently. Only when every response
// is a 2xx are they written to the static and fonts caches; any failure
// leaves the caches untouched and the controller redundant.
func (c *Controller) Install(ctx context.Context) error {
	if err := c.transition(StateInstalling); err != nil {
		return err
	}
	c.log.Info("📦 Installing offline cache",
		logger.Int("static", len(c.manifest.Static)), logger.Int("fonts", len(c.manifest.Fonts)))

	type target struct{ cache, url string }
	targets := make([]target, 0, len(c.manifest.Static)+len(c.manifest.Fonts))
	for _, p := range c.manifest.Static {
		targets = append(targets, target{c.names.Static, c.resolve(p)})
	}
	for _, u := range c.manifest.Fonts {
		targets = append(targets, target{c.names.Fonts, u})
	}

	results := make([]precached, len(targets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(precacheConcurrency)
	for i, t := range targets {
		g.Go(func() error {
			req, err := http.NewRequestWithContext(gctx, http.MethodGet, t.url, nil)
			if err != nil {
				return err
			}
			e, err := c.fetch(req)
			if err != nil {
				return err
			}
			if !e.OK() {
				return fmt.Errorf("precache %s: status %d", t.url, e.Status)
			}
			results[i] = precached{cache: t.cache, key: Key(req.URL), entry: e}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		c.retire()
		c.log.Error("❌ Offline cache install failed", logger.Error(err))
		return fmt.Errorf("install %s: %w", c.manifest.Version, err)
	}

	for _, r := range results {
		if err := c.put(ctx, r.cache, r.key, r.entry); err != nil {
			c.retire()
			return fmt.Errorf("install %s: %w", c.manifest.Version, err)
		}
	}
	if err := c.transition(StateInstalled); err != nil {
		return err
	}
	c.log.Info("✅ Offline cache installed", logger.Int("entries", len(results)))
	return nil
}

// Activate deletes every cache this version does not own.
func (c *Controller) Activate(ctx context.Context) error {
	if err := c.transition(StateActivating); err != nil {
		return err
	}
	keys, err := c.caches.Keys(ctx)
	if err != nil {
		c.retire()
		return fmt.Errorf("list caches: %w", err)
	}
	keep := c.names.All()
	for _, name := range keys {
		if slices.Contains(keep, name) {
			continue
		}
		if _, err := c.caches.Delete(ctx, name); err != nil {
			c.retire()
			return fmt.Errorf("delete cache %s: %w", name, err)
		}
		c.log.Info("🧹 Removed stale cache", logger.String("cache", name))
	}
	if err := c.transition(StateActivated); err != nil {
		return err
	}
	c.log.Info("✅ Offline cache activated")
	return nil
}

// ─────────────────────────────────────────────────────────────────
// Fetch routing
// ─────────────────────────────────────────────────────────────────

// RoundTrip answers req through the caching strategy of its route. Before
// activation every request goes straight to the network.
func (c *Controller) RoundTrip(req *http.Request) (*http.Response, error) {
	if c.State() != StateActivated {
		return c.passthrough(req)
	}

	switch {
	case c.sameOrigin(req.URL):
		if isNavigation(req) {
			return c.navigate(req)
		}
		return c.local(req)
	case req.Method != http.MethodGet:
		return c.passthrough(req)
	case hostIn(req.URL, c.manifest.FontHosts):
		return c.cacheFirst(req, c.names.Fonts)
	case hostIn(req.URL, c.manifest.CDNHosts):
		return c.cacheFirst(req, c.names.Dynamic)
	default:
		return c.networkFirst(req, c.names.API)
	}
}

// navigate is network first. A failed network falls back to the cached page,
// then the offline page.
func (c *Controller) navigate(req *http.Request) (*http.Response, error) {
	e, err := c.fetch(req)
	if err == nil {
		c.store(req, c.names.Dynamic, e)
		return e.Response(req), nil
	}

	if hit := c.match(req, Key(req.URL)); hit != nil {
		return hit, nil
	}
	if c.manifest.OfflinePage != "" {
		if hit := c.match(req, c.resolve(c.manifest.OfflinePage)); hit != nil {
			return hit, nil
		}
	}
	return nil, networkError(req, err)
}

// local is cache first across every cache, then network into dynamic.
func (c *Controller) local(req *http.Request) (*http.Response, error) {
	if req.Method == http.MethodGet {
		if hit := c.match(req, Key(req.URL)); hit != nil {
			return hit, nil
		}
	}

	e, err := c.fetch(req)
	if err == nil {
		if req.Method == http.MethodGet {
			c.store(req, c.names.Dynamic, e)
		}
		return e.Response(req), nil
	}

	if req.Method == http.MethodGet && imagePath.MatchString(req.URL.Path) && c.manifest.ImagePlaceholder != "" {
		if hit := c.match(req, c.resolve(c.manifest.ImagePlaceholder)); hit != nil {
			return hit, nil
		}
	}
	return nil, networkError(req, err)
}

func (c *Controller) cacheFirst(req *http.Request, cache string) (*http.Response, error) {
	if hit := c.match(req, Key(req.URL)); hit != nil {
		return hit, nil
	}
	e, err := c.fetch(req)
	if err != nil {
		return nil, networkError(req, err)
	}
	c.store(req, cache, e)
	return e.Response(req), nil
}

func (c *Controller) networkFirst(req *http.Request, cache string) (*http.Response, error) {
	e, err := c.fetch(req)
	if err == nil {
		c.store(req, cache, e)
		return e.Response(req), nil
	}
	if hit := c.match(req, Key(req.URL)); hit != nil {
		return hit, nil
	}
	return nil, networkError(req, err)
}

func (c *Controller) passthrough(req *http.Request) (*http.Response, error) {
	e, err := c.fetch(req)
	if err != nil {
		return nil, networkError(req, err)
	}
	return e.Response(req), nil
}

// fetch performs req on the network with the fetch timeout and buffers the
// whole body.
func (c *Controller) fetch(req *http.Request) (*Entry, error) {
	ctx, cancel := context.WithTimeout(req.Context(), c.timeout)
	defer cancel()

	out := req.Clone(ctx)
	if req.Body != nil && req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, err
		}
		out.Body = body
	}
	out.RequestURI = ""

	resp, err := c.network.RoundTrip(out)
	if err == nil {
		var e *Entry
		e, err = readEntry(Key(req.URL), resp)
		if err == nil {
			c.status.Observe(nil)
			return e, nil
		}
	}
	// A caller that gave up says nothing about the network.
	if req.Context().Err() == nil {
		c.status.Observe(err)
	}
	return nil, err
}

// match returns a cached response or nil. Storage errors count as misses.
func (c *Controller) match(req *http.Request, key string) *http.Response {
	e, err := c.caches.Match(req.Context(), key)
	if err != nil {
		c.log.Warn("cache lookup failed", logger.String("key", key), logger.Error(err))
		return nil
	}
	if e == nil {
		return nil
	}
	resp := e.Response(req)
	resp.Header.Set(HeaderCache, "hit")
	return resp
}

// store keeps successful responses only. Failures are logged, the response
// is still served.
func (c *Controller) store(req *http.Request, cache string, e *Entry) {
	if !e.OK() {
		return
	}
	if err := c.put(req.Context(), cache, Key(req.URL), e); err != nil {
		c.log.Warn("cache write failed", logger.String("cache", cache), logger.Error(err))
	}
}

func (c *Controller) put(ctx context.Context, cache, key string, e *Entry) error {
	cc, err := c.caches.Open(ctx, cache)
	if err != nil {
		return err
	}
	return cc.Put(ctx, key, e)
}

func (c *Controller) resolve(path string) string {
	if c.origin == nil {
		return path
	}
	ref, err := url.Parse(path)
	if err != nil {
		return path
	}
	return Key(c.origin.ResolveReference(ref))
}

func (c *Controller) sameOrigin(u *url.URL) bool {
	return c.origin != nil && strings.EqualFold(u.Scheme, c.origin.Scheme) && strings.EqualFold(u.Host, c.origin.Host)
}

func isNavigation(req *http.Request) bool {
	if req.Method != http.MethodGet {
		return false
	}
	return req.Header.Get("Sec-Fetch-Mode") == "navigate" ||
		strings.Contains(req.Header.Get("Accept"), "text/html")
}

func hostIn(u *url.URL, hosts []string) bool {
	h := strings.ToLower(u.Hostname())
	for _, host := range hosts {
		if h == host || strings.HasSuffix(h, "."+host) {
			return true
		}
	}
	return false
}

func networkError(req *http.Request, err error) error {
	return apperr.Wrap(apperr.KindNetwork, req.Method+" "+Key(req.URL)+" unavailable", err)
}
