package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MrSnakeDoc/bookmarker/internal/apperr"
	"github.com/MrSnakeDoc/bookmarker/internal/logger"
)

// maxBodyBytes caps JSON request bodies. Imports get their own limit.
const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error     string `json:"error"`
	Kind      string `json:"kind,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// StatusOf maps an error kind to the HTTP status returned for it.
func StatusOf(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindValidation, apperr.KindImportFormat:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindNotInitialized:
		return http.StatusServiceUnavailable
	case apperr.KindNetwork:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError answers with the status of err's kind. Server side failures are
// logged and their details withheld.
func writeError(w http.ResponseWriter, r *http.Request, log logger.Logger, err error) {
	status := StatusOf(err)
	resp := errorResponse{
		Error:     err.Error(),
		Kind:      string(apperr.KindOf(err)),
		RequestID: middleware.GetReqID(r.Context()),
	}
	if status >= http.StatusInternalServerError {
		log.Error("request failed",
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.String("request_id", resp.RequestID),
			logger.Error(err))
		if status == http.StatusInternalServerError {
			resp.Error = http.StatusText(status)
		}
	}
	writeJSON(w, status, resp)
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.New(apperr.KindValidation, "request body is empty")
		}
		return apperr.Wrap(apperr.KindValidation, "invalid JSON body", err)
	}
	return nil
}

func idParam(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Newf(apperr.KindValidation, "invalid id %q", raw)
	}
	return id, nil
}

func notFound(what string, id int64) error {
	return apperr.Newf(apperr.KindNotFound, "%s %d not found", what, id)
}
