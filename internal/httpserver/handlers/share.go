package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/bookmarker/internal/domain"
	"github.com/MrSnakeDoc/bookmarker/internal/httpserver/deps"
)

type shareResponse struct {
	Bookmark *domain.Bookmark `json:"bookmark"`
	Created  bool             `json:"created"`
}

// ShareTarget receives title, text and url from a share sheet, as query
// parameters or form fields.
func ShareTarget(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, created, err := d.Share.Ingest(r.Context(),
			r.FormValue("title"), r.FormValue("text"), r.FormValue("url"))
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		status := http.StatusOK
		if created {
			status = http.StatusCreated
		}
		writeJSON(w, status, shareResponse{Bookmark: b, Created: created})
	}
}

func SharePayload(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r)
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		p, err := d.Share.Payload(r.Context(), id)
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}
