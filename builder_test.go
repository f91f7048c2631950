package sessionstore

import (
	"context"
	"testing"
	"time"

	"github.com/przemekbroda/sessionstore/metadata"
	"github.com/przemekbroda/sessionstore/rediscache"
	"github.com/przemekbroda/sessionstore/ticket"
)

func TestBuildRequiresCollaborators(t *testing.T) {
	_, rdb := newRedisTest(t)
	repo := metadata.NewMemoryRepository()
	dir := newStubDirectory()

	if _, err := New().WithRepository(repo).WithUserDirectory(dir).Build(); err == nil {
		t.Fatal("expected an error without a cache")
	}
	if _, err := New().WithRedis(rdb).WithUserDirectory(dir).Build(); err == nil {
		t.Fatal("expected an error without a repository")
	}
	if _, err := New().WithRedis(rdb).WithRepository(repo).Build(); err == nil {
		t.Fatal("expected an error without a user directory")
	}
}

func TestBuildRejectsInvalidConfig(t *testing.T) {
	_, rdb := newRedisTest(t)

	cfg := DefaultConfig()
	cfg.Sweeper.Interval = time.Millisecond

	_, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithRepository(metadata.NewMemoryRepository()).
		WithUserDirectory(newStubDirectory()).
		Build()
	if err == nil {
		t.Fatal("expected a config validation error")
	}
}

func TestBuilderIsSingleUse(t *testing.T) {
	_, rdb := newRedisTest(t)

	b := New().
		WithRedis(rdb).
		WithRepository(metadata.NewMemoryRepository()).
		WithUserDirectory(newStubDirectory())

	mgr, err := b.Build()
	if err != nil {
		t.Fatalf("first build: %v", err)
	}
	t.Cleanup(mgr.Close)

	if _, err := b.Build(); err == nil {
		t.Fatal("expected an error on second build")
	}
}

// countingCache verifies WithCache takes precedence over WithRedis.
type countingCache struct {
	ticket.Cache
	sets int
}

func (c *countingCache) Set(ctx context.Context, key string, payload []byte, expiresAt time.Time) error {
	c.sets++
	return c.Cache.Set(ctx, key, payload, expiresAt)
}

func TestBuildPrefersExplicitCache(t *testing.T) {
	mr, rdb := newRedisTest(t)
	_, rdb2 := newRedisTest(t)
	cache := &countingCache{Cache: rediscache.New(rdb2)}

	mgr, err := New().
		WithRedis(rdb).
		WithCache(cache).
		WithRepository(metadata.NewMemoryRepository()).
		WithUserDirectory(newStubDirectory()).
		Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	t.Cleanup(mgr.Close)

	expires := time.Now().Add(time.Hour)
	if _, err := mgr.StoreTicket(context.Background(), aliceTicket(&expires)); err != nil {
		t.Fatalf("store: %v", err)
	}
	if cache.sets != 1 {
		t.Fatalf("explicit cache not used, sets=%d", cache.sets)
	}
	if len(mr.Keys()) != 0 {
		t.Fatal("ticket written through the redis client despite an explicit cache")
	}
}
