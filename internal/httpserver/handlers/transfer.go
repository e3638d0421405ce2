package handlers

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/MrSnakeDoc/bookmarker/internal/apperr"
	"github.com/MrSnakeDoc/bookmarker/internal/httpserver/deps"
	"github.com/MrSnakeDoc/bookmarker/internal/transfer"
	"github.com/MrSnakeDoc/bookmarker/internal/utils"
)

const maxImportBytes = 32 << 20

type importResponse struct {
	Mode    transfer.Mode    `json:"mode"`
	Summary transfer.Summary `json:"summary"`
}

// Export streams the whole store as a downloadable document.
func Export(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doc, err := d.Transfer.Export(r.Context())
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		name := fmt.Sprintf("bookmarks-export-%s.json", d.Now().Format("2006-01-02"))
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
		w.Header().Set("Cache-Control", "no-store")
		if err := doc.Encode(w); err != nil {
			d.Logger.Debugf("failed to write export: %v", err)
		}
	}
}

// Import applies the uploaded document with ?mode=merge|replace. The document
// is either the raw JSON body or the "file" field of a multipart form.
func Import(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mode, err := transfer.ParseMode(r.URL.Query().Get("mode"))
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}

		body, err := importBody(w, r)
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		defer utils.Close(body)

		doc, err := transfer.Decode(body)
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		summary, err := d.Transfer.Import(r.Context(), doc, mode)
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, importResponse{Mode: mode, Summary: summary})
	}
}

func importBody(w http.ResponseWriter, r *http.Request) (io.ReadCloser, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImportBytes)
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		return r.Body, nil
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		return nil, apperr.Wrap(apperr.KindImportFormat, "missing import file", err)
	}
	return file, nil
}
