package handlers

import (
	"net/http"
	"strings"

	"github.com/MrSnakeDoc/bookmarker/internal/httpserver/deps"
	"github.com/MrSnakeDoc/bookmarker/internal/offline"
)

type acceptedResponse struct {
	Status string `json:"status"`
	Action string `json:"action,omitempty"`
	Tag    string `json:"tag,omitempty"`
}

// Events subscribes the page to worker messages (server-sent events).
func Events(d deps.Deps) http.HandlerFunc {
	return d.Events.ServeHTTP
}

// Message applies a page to worker control message such as
// {"action":"skipWaiting"}.
func Message(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var msg offline.ControlMessage
		if err := decodeBody(r, &msg); err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		if err := d.Registration.HandleMessage(r.Context(), msg); err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusAccepted, acceptedResponse{Status: "ok", Action: msg.Action, Tag: msg.Tag})
	}
}

// Sync fires the sync tag given as ?tag= right away. Without a tag it wakes
// the background sync loop to fire every pending tag.
func Sync(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tag := strings.TrimSpace(r.URL.Query().Get("tag"))
		if tag != "" {
			msg := offline.ControlMessage{Action: offline.ActionSync, Tag: tag}
			if err := d.Registration.HandleMessage(r.Context(), msg); err != nil {
				writeError(w, r, d.Logger, err)
				return
			}
			writeJSON(w, http.StatusOK, acceptedResponse{Status: "synced", Tag: tag})
			return
		}

		trigger(w, r, d, d.SyncTrigger, "background-sync")
	}
}
