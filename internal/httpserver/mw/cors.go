package mw

import (
	"net/http"

	"github.com/rs/cors"

	"github.com/MrSnakeDoc/bookmarker/internal/logger"
)

// CORS lets the listed origins call the API from another origin.
// If origins is empty, it acts as a passthrough (same-origin only).
func CORS(origins []string, log logger.Logger) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		log.Debug("CORS: no origins configured, passthrough mode")
		return func(next http.Handler) http.Handler { return next }
	}

	log.Debugf("CORS: initialized with origins=%v", origins)

	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut,
			http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Bookmarker-Cache", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           300,
	})
	return c.Handler
}
