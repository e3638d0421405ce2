package mw

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/MrSnakeDoc/bookmarker/internal/utils"
)

// RateLimitConfig sizes the per-client token buckets of the API.
type RateLimitConfig struct {
	Burst             int
	RefillPerIPPerMin int
	MaxEntries        int           // sweep early once this many clients are tracked
	SweepInterval     time.Duration // default 1m
	IdleTTL           time.Duration // default 15m
	TrustProxy        bool          // resolve the client from proxy headers
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type clients struct {
	cfg       RateLimitConfig
	every     rate.Limit
	mu        sync.Mutex
	byIP      map[string]*client
	lastSweep time.Time
}

func newClients(cfg RateLimitConfig) *clients {
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = time.Minute
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 15 * time.Minute
	}
	cfg.Burst = max(cfg.Burst, 1)
	cfg.RefillPerIPPerMin = max(cfg.RefillPerIPPerMin, 1)
	return &clients{
		cfg:       cfg,
		every:     rate.Every(time.Minute / time.Duration(cfg.RefillPerIPPerMin)),
		byIP:      make(map[string]*client, 256),
		lastSweep: time.Now(),
	}
}

func (c *clients) get(ip string, now time.Time) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()

	if now.Sub(c.lastSweep) >= c.cfg.SweepInterval ||
		(c.cfg.MaxEntries > 0 && len(c.byIP) >= c.cfg.MaxEntries) {
		for k, v := range c.byIP {
			if now.Sub(v.lastSeen) > c.cfg.IdleTTL {
				delete(c.byIP, k)
			}
		}
		c.lastSweep = now
	}

	cl := c.byIP[ip]
	if cl == nil {
		cl = &client{limiter: rate.NewLimiter(c.every, c.cfg.Burst)}
		c.byIP[ip] = cl
	}
	cl.lastSeen = now
	return cl.limiter
}

// RateLimit throttles each client IP with a token bucket. Throttled requests
// get 429 with Retry-After and never reach the handler.
func RateLimit(cfg RateLimitConfig) func(http.Handler) http.Handler {
	c := newClients(cfg)
	limit := strconv.Itoa(c.cfg.Burst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			now := time.Now()
			lim := c.get(utils.ClientIP(r, c.cfg.TrustProxy), now)

			w.Header().Set("X-RateLimit-Limit", limit)
			if !lim.AllowN(now, 1) {
				retry := math.Ceil((1 - lim.TokensAt(now)) / float64(c.every))
				w.Header().Set("Retry-After", strconv.Itoa(max(int(retry), 1)))
				w.Header().Set("X-RateLimit-Remaining", "0")
				reject(w, r, http.StatusTooManyRequests, "rate_limited")
				return
			}
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(max(int(lim.TokensAt(now)), 0)))
			next.ServeHTTP(w, r)
		})
	}
}
