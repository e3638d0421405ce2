package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/bookmarker/internal/httpserver/deps"
	"github.com/MrSnakeDoc/bookmarker/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/bookmarker/internal/httpserver/mw"
)

func init() { Register(registerWorker) }

// registerWorker mounts the worker endpoints. The event stream is long lived
// and stays out of the API timeout.
func registerWorker(r chi.Router, d deps.Deps) {
	r = r.With(mw.EnforceHost(d.AllowedHosts, d.Logger))
	r.Get("/sw/events", handlers.Events(d))
	r.Post("/sw/message", handlers.Message(d))
	r.Post("/sw/sync", handlers.Sync(d))
}
