package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/bookmarker/internal/httpserver/deps"
	"github.com/MrSnakeDoc/bookmarker/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/bookmarker/internal/httpserver/mw"
)

func init() { Register(registerJobs) }

// registerJobs mounts the manual triggers. They mutate state, so they sit
// behind both the CIDR list and the host check.
func registerJobs(r chi.Router, d deps.Deps) {
	jobs := r.With(
		mw.AllowOnlyCIDRS(d.AllowedCIDRS, d.TrustProxy, d.Logger),
		mw.EnforceHost(d.AllowedHosts, d.Logger),
	)
	jobs.Post("/reload", handlers.Reload(d))
	jobs.Post("/flush", handlers.Flush(d))
}
