package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/bookmarker/internal/httpserver/deps"
	"github.com/MrSnakeDoc/bookmarker/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/bookmarker/internal/httpserver/mw"
)

func init() { Register(registerOffline) }

// registerOffline serves everything else from the application shell origin.
func registerOffline(r chi.Router, d deps.Deps) {
	if d.Origin == nil {
		return
	}
	r.With(mw.EnforceHost(d.AllowedHosts, d.Logger)).Handle("/*", handlers.Offline(d))
}
