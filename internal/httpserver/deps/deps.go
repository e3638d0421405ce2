package deps

import (
	"net/url"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/bookmarker/internal/database"
	"github.com/MrSnakeDoc/bookmarker/internal/logger"
	"github.com/MrSnakeDoc/bookmarker/internal/offline"
	"github.com/MrSnakeDoc/bookmarker/internal/repository"
	"github.com/MrSnakeDoc/bookmarker/internal/settings"
	"github.com/MrSnakeDoc/bookmarker/internal/share"
	"github.com/MrSnakeDoc/bookmarker/internal/transfer"
)

type Deps struct {
	Logger          logger.Logger
	StartTime       time.Time
	Version         string
	Commit          string
	BuildDate       string
	GoVersion       string
	TimeNow         func() time.Time // for testing, defaults to time.Now
	AllowedHosts    []string         // Host headers allowed to access the server
	AllowedCIDRS    []string         // IPs allowed to access the admin endpoints
	TrustProxy      bool             // true if running behind a trusted reverse proxy (e.g., cloudflared)
	CORSOrigins     []string         // origins allowed to call the API cross-origin
	RequestTimeout  time.Duration    // per-request timeout of the API routes
	RateLimitBurst  int              // API token bucket size per client IP (0 = no limit)
	RateLimitPerMin int              // API token refill per client IP per minute

	DB           *database.Service      // storage service (readiness, backend tag)
	Repo         *repository.Repository // bookmarks and categories
	Transfer     *transfer.Service      // import / export
	Share        *share.Service         // share target
	Settings     *settings.Manager      // user preferences
	Events       *offline.Events        // worker to page message stream
	Registration *offline.Registration  // offline cache in front of Origin
	Origin       *url.URL               // application shell origin
	RedisClient  *redis.Client          // nil when Redis is not configured
	CacheStore   string                 // "redis" or "memory"

	ReloadTrigger chan struct{} // manual Homepage import (nil if import disabled)
	SyncTrigger   chan struct{} // manual background sync
}

// Now returns TimeNow() or time.Now() when unset.
func (d Deps) Now() time.Time {
	if d.TimeNow != nil {
		return d.TimeNow()
	}
	return time.Now()
}
