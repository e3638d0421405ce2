package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/MrSnakeDoc/bookmarker/internal/apperr"
	"github.com/MrSnakeDoc/bookmarker/internal/httpserver/deps"
	"github.com/MrSnakeDoc/bookmarker/internal/logger"
)

type triggerResponse struct {
	Triggered bool   `json:"triggered"`
	Job       string `json:"job"`
}

// Reload queues a Homepage import. The trigger channel holds one request, so
// a second call while one is queued gets 429.
func Reload(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if d.ReloadTrigger == nil {
			writeError(w, r, d.Logger, apperr.New(apperr.KindNotFound, "homepage import is not configured"))
			return
		}
		trigger(w, r, d, d.ReloadTrigger, "homepage-import")
	}
}

func trigger(w http.ResponseWriter, r *http.Request, d deps.Deps, ch chan<- struct{}, job string) {
	select {
	case ch <- struct{}{}:
		d.Logger.Info("job triggered",
			logger.String("job", job),
			logger.String("request_id", middleware.GetReqID(r.Context())))
		writeJSON(w, http.StatusAccepted, triggerResponse{Triggered: true, Job: job})
	default:
		d.Logger.Warn("job already queued", logger.String("job", job))
		writeJSON(w, http.StatusTooManyRequests, triggerResponse{Triggered: false, Job: job})
	}
}

type flushResponse struct {
	Flushed bool   `json:"flushed"`
	Backend string `json:"backend"`
}

// Flush persists the database image now instead of waiting for the next
// snapshot. A no-op on the filesystem backend.
func Flush(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := d.DB.Flush(r.Context()); err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, flushResponse{Flushed: true, Backend: d.DB.Backend()})
	}
}
