package cache

import (
	"fmt"
	"sync"
	"time"
)

// DefaultTTL is the expiry applied to memoized price series and batch
// results when the caller does not override it.
const DefaultTTL = 300 * time.Second

type entry struct {
	v   any
	exp time.Time
}

// RuntimeCache is an in-process, time-expiring memo store for derived
// results. One mutex serializes the purge+mutate sequence and reads take
// the same lock, which is cheap under a bounded worker pool.
type RuntimeCache struct {
	mu  sync.Mutex
	m   map[string]entry
	now func() time.Time
}

func NewRuntimeCache() *RuntimeCache {
	return &RuntimeCache{m: make(map[string]entry), now: time.Now}
}

// Get returns the value for key, treating expired entries as absent.
func (c *RuntimeCache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.m[key]
	if !ok {
		return nil, false
	}
	if c.now().After(e.exp) {
		delete(c.m, key)
		return nil, false
	}
	return e.v, true
}

// Put purges all expired entries, then stores value under key with the
// given ttl. The amortized purge keeps the map bounded without a
// background goroutine.
func (c *RuntimeCache) Put(key string, v any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for k, e := range c.m {
		if now.After(e.exp) {
			delete(c.m, k)
		}
	}
	c.m[key] = entry{v: v, exp: now.Add(ttl)}
}

// Len reports the number of stored entries, expired or not.
func (c *RuntimeCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.m)
}

// PriceKey is the memo key for a single-instrument price series request.
func PriceKey(instrument string, start, end time.Time) string {
	return fmt.Sprintf("%s_%d_%d", instrument, start.Unix(), end.Unix())
}

// BatchKey is the memo key for a batch price-change request; distinct
// sessions memoize separately.
func BatchKey(start, end time.Time, session string) string {
	return fmt.Sprintf("batch_%d_%d_%s", start.Unix(), end.Unix(), session)
}
