package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/bookmarker/internal/httpserver/deps"
	"github.com/MrSnakeDoc/bookmarker/internal/httpserver/handlers"
)

func init() { RegisterAPI(registerShare) }

func registerShare(r chi.Router, d deps.Deps) {
	r.Get("/api/share", handlers.ShareTarget(d))
	r.Post("/api/share", handlers.ShareTarget(d))
}
