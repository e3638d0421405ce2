package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/bookmarker/internal/httpserver/deps"
)

type readyzResponse struct {
	Ready   bool   `json:"ready"`
	Backend string `json:"backend,omitempty"`
}

// Readyz reports ready once storage is initialized, with the backend it
// settled on.
func Readyz(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if d.DB == nil || !d.DB.Initialized() {
			writeJSON(w, http.StatusServiceUnavailable, readyzResponse{Ready: false})
			return
		}
		writeJSON(w, http.StatusOK, readyzResponse{Ready: true, Backend: d.DB.Backend()})
	}
}
