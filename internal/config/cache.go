package config

import (
    "os"
    "time"
)

// CacheConfig defines settings for the active-profile cache.  When Enabled is
// false or no Redis client is configured, handlers skip the cache and read
// straight from the database.  TTL defines the lifetime of a cached active
// profile; entries are also dropped explicitly when the profile is deleted or
// the owner logs out, so the TTL is only a backstop.  Prefix namespaces the
// keys inside Redis.
type CacheConfig struct {
    Enabled bool
    TTL     time.Duration
    Prefix  string
}

// LoadCacheConfig reads environment variables to build a CacheConfig.  Defaults
// are used when variables are not set.
func LoadCacheConfig() CacheConfig {
    return CacheConfig{
        Enabled: getenv("CACHE_ENABLED", "true") == "true",
        TTL:     parseDur(getenv("CACHE_TTL", "15m")),
        Prefix:  getenv("CACHE_PREFIX", "active_profile"),
    }
}

// Helper functions reused from redis.go and ratelimit.go
func getenv(key, def string) string {
    if v := os.Getenv(key); v != "" {
        return v
    }
    return def
}

func parseDur(s string) time.Duration {
    d, err := time.ParseDuration(s)
    if err != nil {
        return time.Second
    }
    return d
}
