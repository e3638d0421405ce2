package config

import (
	"fmt"
	"log"
	"net/netip"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	ListenPort      string        // ex: ":8080"
	ShutdownTimeout time.Duration // ex: 5s
	RequestTimeout  time.Duration // per-request timeout of the API routes

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	// Storage
	DataDir           string        // directory holding the database file
	DBName            string        // database file name (ex: bookmarks.db)
	DisableFilesystem bool          // skip the filesystem backend and use the key-value emulation (requires Redis)
	ScratchDir        string        // scratch directory of the key-value emulation (default: os temp dir)
	RPCTimeout        time.Duration // per-call storage timeout (default: 30s)
	InitTimeout       time.Duration // total time allowed to initialize storage (default: 1m)
	InitRetries       int           // extra storage handshake attempts (default: 5)
	SnapshotInterval  time.Duration // key-value image flush interval (default: 5m)

	// Offline cache
	OriginURL    *url.URL      // application shell origin proxied behind the offline cache
	CacheVersion string        // overrides the manifest version when set
	ManifestFile string        // optional YAML cache manifest
	FetchTimeout time.Duration // network timeout of the offline cache (default: 10s)
	SyncInterval time.Duration // background sync interval (default: 15m)
	SettingsDir  string        // settings file directory when Redis is not configured

	// Homepage import
	BookmarkFile   string        // Homepage bookmarks.yaml (optional)
	ServiceFile    string        // Homepage services.yaml (optional)
	ReloadInterval time.Duration // interval to re-import Homepage files (default: 24h)

	// Redis (optional, empty address = in-process fallbacks)
	RedisAddr             string        // ex: "localhost:6379"
	RedisUser             string        // optional
	RedisPassword         string        // optional
	RedisPasswordRequired bool          // true => require password, false => allow empty password
	RedisDB               int           // Redis DB number
	RedisDT               time.Duration // Redis dial timeout (ex: 5s)
	RedisRT               time.Duration // Redis read timeout (ex: 3s)
	RedisWT               time.Duration // Redis write timeout (ex: 3s)
	RedisMaxWait          time.Duration // max wait between retries (ex: 10s)
	RedisPingTimeout      time.Duration // timeout for each ping attempt (ex: 5s)
	RedisPoolSize         int           // Redis connection pool size
	RedisConnectTimeout   time.Duration // Total time to retry connecting (ex: 30s)
	RedisRetryInterval    time.Duration // Initial wait between retries (ex: 2s, grows exponentially)
	RedisWarnThreshold    int           // warn after this many attempts

	AllowedHosts    []string // optional, restrict access to specific Host headers
	AllowedCIDRS    []string // optional, restrict admin endpoints to specific IPs (e.g. "1.2.3.4, 10.0.0.0/8")
	TrustProxy      bool     // true => trust X-Forwarded-For headers (e.g. cloudflared)
	CORSOrigins     []string // origins allowed to call the API cross-origin
	RateLimitBurst  int      // API token bucket size per client IP
	RateLimitPerMin int      // API token refill per client IP per minute
}

// RedisEnabled reports whether a Redis address was configured.
func (c *Config) RedisEnabled() bool { return c.RedisAddr != "" }

func Load() *Config {
	dataDir := getenv("BOOKMARKER_DATA_DIR", "/app/data")

	cfg := &Config{
		// Server settings
		ListenPort:      getenv("BOOKMARKER_LISTEN_PORT", ":8080"),
		ShutdownTimeout: mustDuration("BOOKMARKER_SHUTDOWN_TIMEOUT", 5*time.Second),
		RequestTimeout:  mustDuration("BOOKMARKER_REQUEST_TIMEOUT", 30*time.Second),

		// Logging
		LogLevel:  getenv("BOOKMARKER_LOG_LEVEL", "info"),
		PrettyLog: mustBool("BOOKMARKER_PRETTY_LOG", true),

		// Storage
		DataDir:           dataDir,
		DBName:            getenv("BOOKMARKER_DB_NAME", "bookmarks.db"),
		DisableFilesystem: mustBool("BOOKMARKER_DISABLE_FILESYSTEM", false),
		ScratchDir:        getenv("BOOKMARKER_SCRATCH_DIR", ""),
		RPCTimeout:        mustDuration("BOOKMARKER_RPC_TIMEOUT", 30*time.Second),
		InitTimeout:       mustDuration("BOOKMARKER_INIT_TIMEOUT", time.Minute),
		InitRetries:       getenvInt("BOOKMARKER_INIT_RETRIES", 5),
		SnapshotInterval:  mustDuration("BOOKMARKER_SNAPSHOT_INTERVAL", 5*time.Minute),

		// Offline cache
		OriginURL:    mustURL("BOOKMARKER_ORIGIN_URL"),
		CacheVersion: getenv("BOOKMARKER_CACHE_VERSION", ""),
		ManifestFile: getenv("BOOKMARKER_MANIFEST_FILE", ""),
		FetchTimeout: mustDuration("BOOKMARKER_FETCH_TIMEOUT", 10*time.Second),
		SyncInterval: mustDuration("BOOKMARKER_SYNC_INTERVAL", 15*time.Minute),
		SettingsDir:  getenv("BOOKMARKER_SETTINGS_DIR", dataDir),

		// Homepage import
		BookmarkFile:   getenv("BOOKMARKER_BOOKMARK_FILE", ""), // Optional, empty = import disabled
		ServiceFile:    getenv("BOOKMARKER_SERVICE_FILE", ""),
		ReloadInterval: mustDuration("BOOKMARKER_RELOAD_SOURCE_INTERVAL", 24*time.Hour),

		// Redis settings
		RedisAddr:             getenv("BOOKMARKER_REDIS_ADDR", ""),
		RedisUser:             getenv("BOOKMARKER_REDIS_USERNAME", "default"),
		RedisPasswordRequired: mustBool("BOOKMARKER_REDIS_PASSWORD_REQUIRED", false),
		RedisPassword:         getenv("BOOKMARKER_REDIS_PASSWORD", ""),
		RedisDB:               getenvInt("BOOKMARKER_REDIS_DB", 0),
		RedisDT:               mustDuration("BOOKMARKER_REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisRT:               mustDuration("BOOKMARKER_REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWT:               mustDuration("BOOKMARKER_REDIS_WRITE_TIMEOUT", 3*time.Second),
		RedisMaxWait:          mustDuration("BOOKMARKER_REDIS_MAX_WAIT", 10*time.Second),
		RedisPingTimeout:      mustDuration("BOOKMARKER_REDIS_PING_TIMEOUT", 5*time.Second),
		RedisPoolSize:         getenvInt("BOOKMARKER_REDIS_POOL_SIZE", 10),
		RedisConnectTimeout:   mustDuration("BOOKMARKER_REDIS_CONNECT_TIMEOUT", 30*time.Second),
		RedisRetryInterval:    mustDuration("BOOKMARKER_REDIS_RETRY_INTERVAL", 2*time.Second),
		RedisWarnThreshold:    getenvInt("BOOKMARKER_REDIS_WARN_THRESHOLD", 3),

		// Access restrictions
		AllowedHosts:    splitAndTrim(getenv("BOOKMARKER_ALLOWED_HOSTS", "")),
		AllowedCIDRS:    mustCIDRs("BOOKMARKER_ALLOWED_CIDRS"),
		TrustProxy:      mustBool("BOOKMARKER_TRUST_PROXY", true),
		CORSOrigins:     splitAndTrim(getenv("BOOKMARKER_CORS_ORIGINS", "")),
		RateLimitBurst:  getenvInt("BOOKMARKER_RATE_LIMIT_BURST", 60),
		RateLimitPerMin: getenvInt("BOOKMARKER_RATE_LIMIT_PER_MIN", 120),
	}

	if !filepath.IsAbs(cfg.DataDir) {
		abs, err := filepath.Abs(cfg.DataDir)
		if err != nil {
			panic(fmt.Sprintf("❌ FATAL: Invalid BOOKMARKER_DATA_DIR %q: %v", cfg.DataDir, err))
		}
		cfg.DataDir = abs
	}

	// Validate Redis password configuration
	if cfg.RedisEnabled() && cfg.RedisPasswordRequired && cfg.RedisPassword == "" {
		panic("❌ FATAL: BOOKMARKER_REDIS_PASSWORD is required when BOOKMARKER_REDIS_PASSWORD_REQUIRED=true")
	}

	// Log config only in debug mode with redacted sensitive fields
	if cfg.LogLevel == "debug" {
		cfgCopy := *cfg
		cfgCopy.RedisPassword = "***REDACTED***"
		if cfg.RedisUser != "" {
			cfgCopy.RedisUser = "***REDACTED***"
		}
		log.Printf("[DEBUG] cfg: %+v\n", cfgCopy)
	}

	return cfg
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func requireEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		panic(fmt.Sprintf("❌ FATAL: Required environment variable %s is not set", key))
	}
	return v
}

// mustURL reads a required absolute http(s) URL.
func mustURL(key string) *url.URL {
	v := requireEnv(key)
	u, err := url.Parse(v)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		panic(fmt.Sprintf("❌ FATAL: Invalid URL value for %s: %s", key, v))
	}
	return u
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

// mustCIDRs reads a list of IPs and CIDRs. A typo here would silently open
// the admin endpoints, so every entry must parse.
func mustCIDRs(key string) []string {
	entries := splitAndTrim(os.Getenv(key))
	for _, e := range entries {
		if _, err := netip.ParsePrefix(e); err == nil {
			continue
		}
		if _, err := netip.ParseAddr(e); err == nil {
			continue
		}
		panic(fmt.Sprintf("❌ FATAL: Invalid IP or CIDR in %s: %q", key, e))
	}
	return entries
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		trimmed := strings.TrimSpace(part)
		// Remove surrounding quotes if present
		trimmed = strings.Trim(trimmed, `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
