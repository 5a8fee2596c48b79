package cache

import (
	"testing"
	"time"
)

func TestRuntimeCacheGetPut(t *testing.T) {
	c := NewRuntimeCache()
	c.Put("k", 42, time.Minute)

	v, ok := c.Get("k")
	if !ok {
		t.Fatalf("expected hit")
	}
	if v.(int) != 42 {
		t.Fatalf("unexpected value %v", v)
	}

	if _, ok := c.Get("missing"); ok {
		t.Fatalf("expected miss")
	}
}

func TestRuntimeCacheExpiry(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	c := NewRuntimeCache()
	c.now = func() time.Time { return now }

	c.Put("k", "v", 300*time.Second)

	now = now.Add(299 * time.Second)
	if _, ok := c.Get("k"); !ok {
		t.Fatalf("expected hit before expiry")
	}

	now = now.Add(2 * time.Second)
	if _, ok := c.Get("k"); ok {
		t.Fatalf("expected miss after expiry")
	}
}

func TestRuntimeCachePutPurgesExpired(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	c := NewRuntimeCache()
	c.now = func() time.Time { return now }

	c.Put("old1", 1, time.Second)
	c.Put("old2", 2, time.Second)
	c.Put("fresh", 3, time.Hour)

	now = now.Add(10 * time.Second)
	c.Put("new", 4, time.Minute)

	if got := c.Len(); got != 2 {
		t.Fatalf("expected purge to leave 2 entries, got %d", got)
	}
}

func TestRuntimeCacheDefaultTTL(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	c := NewRuntimeCache()
	c.now = func() time.Time { return now }

	c.Put("k", "v", 0)

	now = now.Add(DefaultTTL - time.Second)
	if _, ok := c.Get("k"); !ok {
		t.Fatalf("expected hit inside default ttl")
	}
	now = now.Add(2 * time.Second)
	if _, ok := c.Get("k"); ok {
		t.Fatalf("expected miss past default ttl")
	}
}
