package redis

const (
	// KeyPrefixCache is the prefix for offline response caches
	KeyPrefixCache = "bookmarker:cache:"
	// KeyCacheNames is the sorted set of cache names
	KeyCacheNames = "bookmarker:caches"
	// KeyCacheSeq orders cache creation
	KeyCacheSeq = "bookmarker:caches:seq"
	// KeySettings holds the settings document
	KeySettings = "bookmarker:settings"
)

// CacheKey returns the Redis key of a named cache
func CacheKey(name string) string {
	return KeyPrefixCache + name
}

func CacheNamesKey() string { return KeyCacheNames }
func CacheSeqKey() string   { return KeyCacheSeq }
func SettingsKey() string   { return KeySettings }
