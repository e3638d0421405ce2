package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/bookmarker/internal/httpserver/deps"
	"github.com/MrSnakeDoc/bookmarker/internal/httpserver/handlers"
)

func init() { RegisterAPI(registerBookmarks) }

func registerBookmarks(r chi.Router, d deps.Deps) {
	r.Route("/api/bookmarks", func(r chi.Router) {
		r.Get("/", handlers.ListBookmarks(d))
		r.Post("/", handlers.CreateBookmark(d))
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", handlers.GetBookmark(d))
			r.Patch("/", handlers.UpdateBookmark(d))
			r.Delete("/", handlers.DeleteBookmark(d))
			r.Post("/visit", handlers.VisitBookmark(d))
			r.Get("/share", handlers.SharePayload(d))
		})
	})
	r.Get("/api/search", handlers.SearchBookmarks(d))
}
