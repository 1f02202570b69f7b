// Package cache stores each user's active profile in Redis so the hot read
// path (every playback or catalogue request needs the active credentials)
// does not hit MySQL. Entries are written on activation, dropped on delete
// and logout, and expire on their own after the configured TTL.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/ebulku/xtream-player/internal/config"
	"github.com/ebulku/xtream-player/internal/model"
)

// ErrMiss is returned when no cached active profile exists for a user.
var ErrMiss = errors.New("cache miss")

// ProfileCache wraps a Redis client. A nil client or disabled config turns
// every method into a no-op returning ErrMiss, so callers degrade to the
// database without special cases.
type ProfileCache struct {
	rdb *redis.Client
	cfg config.CacheConfig
}

func NewProfileCache(rdb *redis.Client, cfg config.CacheConfig) *ProfileCache {
	return &ProfileCache{rdb: rdb, cfg: cfg}
}

func (c *ProfileCache) enabled() bool { return c != nil && c.rdb != nil && c.cfg.Enabled }

func (c *ProfileCache) key(userID uint64) string {
	return fmt.Sprintf("%s:%d", c.cfg.Prefix, userID)
}

// SetActive caches the given profile as the user's active one.
func (c *ProfileCache) SetActive(ctx context.Context, p model.Profile) error {
	if !c.enabled() {
		return nil
	}
	// The stored value includes the password; it never leaves the server
	// because handler responses serialize model.Profile with the password
	// field suppressed.
	payload, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, c.key(p.UserID), payload, c.cfg.TTL).Err()
}

// GetActive returns the cached active profile or ErrMiss.
func (c *ProfileCache) GetActive(ctx context.Context, userID uint64) (model.Profile, error) {
	if !c.enabled() {
		return model.Profile{}, ErrMiss
	}
	bs, err := c.rdb.Get(ctx, c.key(userID)).Bytes()
	if err == redis.Nil {
		return model.Profile{}, ErrMiss
	}
	if err != nil {
		return model.Profile{}, err
	}
	var p model.Profile
	if err := json.Unmarshal(bs, &p); err != nil {
		// A corrupt entry is treated as a miss; the next activation rewrites it.
		return model.Profile{}, ErrMiss
	}
	return p, nil
}

// Invalidate drops the user's cached active profile.
func (c *ProfileCache) Invalidate(ctx context.Context, userID uint64) error {
	if !c.enabled() {
		return nil
	}
	return c.rdb.Del(ctx, c.key(userID)).Err()
}
