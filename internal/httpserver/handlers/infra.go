package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/bookmarker/internal/httpserver/deps"
	"github.com/MrSnakeDoc/bookmarker/internal/storage"
)

type componentStatus struct {
	OK      bool     `json:"ok"`
	Mode    string   `json:"mode,omitempty"`
	State   string   `json:"state,omitempty"`
	Version string   `json:"version,omitempty"`
	Waiting string   `json:"waiting,omitempty"`
	Caches  []string `json:"caches,omitempty"`
	Pending []string `json:"pending,omitempty"`
	Impact  string   `json:"impact,omitempty"`
	Error   string   `json:"error,omitempty"`
}

type infraResponse struct {
	Mode       string                     `json:"mode"`
	Components map[string]componentStatus `json:"components"`
}

func Infra(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		components := map[string]componentStatus{
			"storage": checkStorage(d),
			"redis":   checkRedis(ctx, d),
			"offline": checkOffline(ctx, d),
			"sync":    checkSync(d),
		}

		writeJSON(w, http.StatusOK, infraResponse{
			Mode:       determineMode(components),
			Components: components,
		})
	}
}

func determineMode(components map[string]componentStatus) string {
	if st := components["storage"]; !st.OK {
		return "critical" // nothing can be read or written
	}
	if redis, exists := components["redis"]; exists && !redis.OK && redis.Mode != "disabled" {
		return "degraded"
	}
	if off := components["offline"]; !off.OK {
		return "degraded" // served straight from the network
	}
	return "operational"
}

func checkStorage(d deps.Deps) componentStatus {
	if d.DB == nil || !d.DB.Initialized() {
		return componentStatus{OK: false, Error: "not initialized"}
	}
	mode := d.DB.Backend()
	impact := "durable"
	if mode != storage.TagFilesystem {
		impact = "snapshot-interval-loss-window"
	}
	return componentStatus{OK: true, Mode: mode, Impact: impact}
}

func checkRedis(ctx context.Context, d deps.Deps) componentStatus {
	if d.RedisClient == nil {
		return componentStatus{
			OK:     true,
			Mode:   "disabled",
			Impact: "in-memory-cache-storage",
		}
	}

	if err := d.RedisClient.Ping(ctx).Err(); err != nil {
		return componentStatus{
			OK:     false,
			Mode:   "degraded",
			Impact: "cache-and-settings-unavailable",
			Error:  "timeout",
		}
	}

	return componentStatus{OK: true, Mode: "optimal"}
}

func checkOffline(ctx context.Context, d deps.Deps) componentStatus {
	if d.Registration == nil {
		return componentStatus{OK: false, Error: "no registration"}
	}
	active := d.Registration.Active()
	if active == nil {
		return componentStatus{OK: false, State: "none", Impact: "network-only"}
	}

	st := componentStatus{
		OK:      true,
		Mode:    d.CacheStore,
		State:   string(active.State()),
		Version: active.Version(),
	}
	if waiting := d.Registration.Waiting(); waiting != nil {
		st.Waiting = waiting.Version()
	}
	if caches, err := active.Storage().Keys(ctx); err != nil {
		st.Error = err.Error()
	} else {
		st.Caches = caches
	}
	return st
}

func checkSync(d deps.Deps) componentStatus {
	if d.Registration == nil || d.Registration.Sync() == nil {
		return componentStatus{OK: true, Mode: "disabled"}
	}
	return componentStatus{OK: true, Pending: d.Registration.Sync().Pending()}
}
