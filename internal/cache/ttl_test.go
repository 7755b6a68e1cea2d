package cache

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestSetAndGet(t *testing.T) {
	clock := newFakeClock()
	c := NewTTL[string]("test", RepositoryTTL, WithClock(clock.Now))

	c.Set("key", "value")

	got, ok := c.Get("key")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if got != "value" {
		t.Errorf("expected value 'value', got '%s'", got)
	}

	stats := c.GetStats()
	assert.Equal(t, uint64(1), stats.HitCount)
	assert.Equal(t, 1, stats.TotalEntries)
}

func TestGetNonExistent(t *testing.T) {
	c := NewTTL[int]("test", time.Minute)

	if _, ok := c.Get("missing"); ok {
		t.Error("expected miss for unknown key")
	}
	assert.Equal(t, uint64(1), c.GetStats().MissCount)
}

func TestExpiredEntryIsEvicted(t *testing.T) {
	clock := newFakeClock()
	c := NewTTL[string]("test", 5*time.Minute, WithClock(clock.Now))
	c.Set("key", "value")

	clock.Advance(5*time.Minute - time.Second)
	_, ok := c.Get("key")
	assert.True(t, ok, "entry younger than TTL is valid")

	clock.Advance(time.Second)
	_, ok = c.Get("key")
	assert.False(t, ok, "entry exactly TTL old is stale")
	assert.Equal(t, 0, c.Len(), "stale entry is evicted on read")

	stats := c.GetStats()
	assert.Equal(t, uint64(1), stats.EvictedCount)
	assert.Equal(t, uint64(1), stats.MissCount)
}

func TestSetRefreshesTimestamp(t *testing.T) {
	clock := newFakeClock()
	c := NewTTL[string]("test", time.Minute, WithClock(clock.Now))
	c.Set("key", "v1")

	clock.Advance(50 * time.Second)
	c.Set("key", "v2")
	clock.Advance(50 * time.Second)

	got, ok := c.Get("key")
	assert.True(t, ok)
	assert.Equal(t, "v2", got)
}

func TestClear(t *testing.T) {
	c := NewTTL[string]("test", time.Minute)
	c.Set("a", "1")
	c.Set("b", "2")

	c.Clear()

	assert.Equal(t, 0, c.Len())
	_, ok := c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, uint64(1), c.GetStats().ClearCount)
}

func TestConcurrentAccess(t *testing.T) {
	c := NewTTL[int]("test", time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := string(rune('a' + i%5))
			c.Set(key, i)
			c.Get(key)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 5, c.Len())
}

func TestExpiryProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ttl := time.Duration(rapid.IntRange(1, 3600).Draw(t, "ttlSeconds")) * time.Second
		age := time.Duration(rapid.IntRange(0, 7200).Draw(t, "ageSeconds")) * time.Second

		clock := newFakeClock()
		c := NewTTL[string]("prop", ttl, WithClock(clock.Now))
		c.Set("k", "v")
		clock.Advance(age)

		_, ok := c.Get("k")
		if ok != (age < ttl) {
			t.Fatalf("ttl=%s age=%s: hit=%v", ttl, age, ok)
		}
	})
}
