package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MrSnakeDoc/bookmarker/internal/httpserver/deps"
	"github.com/MrSnakeDoc/bookmarker/internal/httpserver/mw"
)

type (
	Registrar  func(r chi.Router, d deps.Deps)
	Middleware = func(http.Handler) http.Handler
)

type entry struct {
	reg Registrar
	mws []Middleware
	api bool
}

var registry []entry

// Register a registrar with optional per-route middlewares.
func Register(reg Registrar, mws ...Middleware) {
	registry = append(registry, entry{reg: reg, mws: mws})
}

// RegisterAPI registers routes behind the shared API stack
// (host check, rate limit, request timeout).
func RegisterAPI(reg Registrar, mws ...Middleware) {
	registry = append(registry, entry{reg: reg, mws: mws, api: true})
}

// Called once from server.New()
func RegisterAll(r chi.Router, d deps.Deps) {
	api := r.With(apiStack(d)...)
	for _, e := range registry {
		target := r
		if e.api {
			target = api
		}
		if len(e.mws) == 0 {
			e.reg(target, d)
			continue
		}
		sub := target.With(e.mws...) // apply per-route middlewares
		e.reg(sub, d)
	}
}

// apiStack is built once so every API route shares the same rate limiter.
func apiStack(d deps.Deps) []Middleware {
	stack := []Middleware{mw.EnforceHost(d.AllowedHosts, d.Logger)}
	if d.RateLimitBurst > 0 {
		stack = append(stack, mw.RateLimit(mw.RateLimitConfig{
			Burst:             d.RateLimitBurst,
			RefillPerIPPerMin: d.RateLimitPerMin,
			MaxEntries:        10000,
			TrustProxy:        d.TrustProxy,
		}))
	}
	if d.RequestTimeout > 0 {
		stack = append(stack, middleware.Timeout(d.RequestTimeout))
	}
	return stack
}
