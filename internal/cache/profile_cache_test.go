package cache

import (
	"context"
	"errors"
	"testing"

	"github.com/ebulku/xtream-player/internal/config"
	"github.com/ebulku/xtream-player/internal/model"
)

// Without a Redis client every operation must degrade to a no-op so callers
// can fall through to the database unconditionally.
func TestNilClientDegradesToMiss(t *testing.T) {
	c := NewProfileCache(nil, config.CacheConfig{Enabled: true, Prefix: "active_profile"})
	ctx := context.Background()

	if err := c.SetActive(ctx, model.Profile{ID: 1, UserID: 2}); err != nil {
		t.Fatalf("SetActive on nil client returned error: %v", err)
	}
	if _, err := c.GetActive(ctx, 2); !errors.Is(err, ErrMiss) {
		t.Fatalf("expected ErrMiss, got %v", err)
	}
	if err := c.Invalidate(ctx, 2); err != nil {
		t.Fatalf("Invalidate on nil client returned error: %v", err)
	}
}

func TestKeyUsesPrefixAndUserID(t *testing.T) {
	c := NewProfileCache(nil, config.CacheConfig{Enabled: true, Prefix: "active_profile"})
	if got := c.key(42); got != "active_profile:42" {
		t.Fatalf("key = %q", got)
	}
}
