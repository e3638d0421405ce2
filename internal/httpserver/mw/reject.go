package mw

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
)

// reject answers with the same JSON envelope as the API handlers.
func reject(w http.ResponseWriter, r *http.Request, status int, kind string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(struct {
		Error     string `json:"error"`
		Kind      string `json:"kind"`
		RequestID string `json:"request_id,omitempty"`
	}{
		Error:     http.StatusText(status),
		Kind:      kind,
		RequestID: middleware.GetReqID(r.Context()),
	})
}
