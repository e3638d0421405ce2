package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/bookmarker/internal/httpserver/deps"
)

type healthzResponse struct {
	Status        string  `json:"status"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	Version       string  `json:"version,omitempty"`
	Commit        string  `json:"commit,omitempty"`
	BuildDate     string  `json:"build_date,omitempty"`
	GoVersion     string  `json:"go_version,omitempty"`
	Storage       string  `json:"storage,omitempty"`
	OfflineCache  string  `json:"offline_cache,omitempty"`
}

// Healthz is the liveness probe. It never fails once the process serves HTTP;
// the storage backend and active cache version are informational.
func Healthz(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthzResponse{
			Status:        "ok",
			Version:       d.Version,
			Commit:        d.Commit,
			BuildDate:     d.BuildDate,
			GoVersion:     d.GoVersion,
			UptimeSeconds: d.Now().Sub(d.StartTime).Seconds(),
		}
		if d.DB != nil {
			resp.Storage = d.DB.Backend()
		}
		if d.Registration != nil {
			if active := d.Registration.Active(); active != nil {
				resp.OfflineCache = active.Version()
			}
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
