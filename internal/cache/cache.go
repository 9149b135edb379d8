// Package cache is an in-process TTL cache sitting in front of read-heavy
// content queries.
//
// Entries expire three ways: lazily on Get, eagerly through a per-entry
// timer scheduled by Set, and through the periodic sweep started by
// StartSweeper. All three removals are idempotent and a timer belonging to
// a replaced entry never removes its successor.
package cache

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/thisdougb/sitedb/internal/config"
)

const (
	DefaultTTL           = 5 * time.Minute
	DefaultSweepInterval = time.Minute
)

// Stats is a snapshot of the cache counters.
type Stats struct {
	Hits    uint64  `json:"hits"`
	Misses  uint64  `json:"misses"`
	Sets    uint64  `json:"sets"`
	Deletes uint64  `json:"deletes"`
	HitRate float64 `json:"hitRate"` // percent
}

type entry struct {
	value   interface{}
	created time.Time
	ttl     time.Duration

	mu      sync.Mutex
	timer   clockwork.Timer
	stopped bool
}

func (e *entry) expired(now time.Time) bool {
	return now.Sub(e.created) > e.ttl
}

// Options configure a Cache. Zero values select the defaults.
type Options struct {
	DefaultTTL time.Duration
	Clock      clockwork.Clock
}

// Cache maps case-sensitive string keys to values with a per-entry TTL.
type Cache struct {
	entries    *xsync.MapOf[string, *entry]
	defaultTTL time.Duration
	clock      clockwork.Clock

	hits, misses, sets, deletes atomic.Uint64

	sweepMu     sync.Mutex
	sweepCancel context.CancelFunc
	sweepDone   chan struct{}
}

// New creates an empty cache. Call Close to release its timers.
func New(opts Options) *Cache {
	if opts.DefaultTTL <= 0 {
		opts.DefaultTTL = DefaultTTL
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	return &Cache{
		entries:    xsync.NewMapOf[string, *entry](),
		defaultTTL: opts.DefaultTTL,
		clock:      opts.Clock,
	}
}

// Set stores value under key, replacing any existing entry and its TTL clock.
// A ttl <= 0 selects the default TTL.
func (c *Cache) Set(key string, value interface{}, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	e := &entry{
		value:   value,
		created: c.clock.Now(),
		ttl:     ttl,
	}

	if old, loaded := c.entries.LoadAndStore(key, e); loaded {
		old.stopTimer()
	}
	c.sets.Add(1)

	// armed after the store so the callback always finds e in the map
	e.arm(c.clock, func() {
		c.removeIf(key, e, false)
	})
}

// Get returns the value for key if it is present and unexpired.
func (c *Cache) Get(key string) (interface{}, bool) {
	e, ok := c.entries.Load(key)
	if !ok {
		c.misses.Add(1)
		return nil, false
	}

	if e.expired(c.clock.Now()) {
		c.removeIf(key, e, true)
		c.misses.Add(1)
		return nil, false
	}

	c.hits.Add(1)
	return e.value, true
}

// Has reports whether key holds an unexpired value. It does not touch the
// hit/miss counters.
func (c *Cache) Has(key string) bool {
	e, ok := c.entries.Load(key)
	return ok && !e.expired(c.clock.Now())
}

// Delete removes key and reports whether an entry was removed.
func (c *Cache) Delete(key string) bool {
	e, ok := c.entries.LoadAndDelete(key)
	if !ok {
		return false
	}
	e.stopTimer()
	c.deletes.Add(1)
	return true
}

// Clear removes every entry. Each removed entry counts as a delete.
func (c *Cache) Clear() {
	c.entries.Range(func(key string, _ *entry) bool {
		c.Delete(key)
		return true
	})
}

// Cleanup removes all expired entries and returns how many were removed.
func (c *Cache) Cleanup() int {
	now := c.clock.Now()

	var removed int
	c.entries.Range(func(key string, e *entry) bool {
		if e.expired(now) && c.removeIf(key, e, true) {
			removed++
		}
		return true
	})
	return removed
}

// Size returns the number of entries held, expired or not.
func (c *Cache) Size() int {
	return c.entries.Size()
}

// Stats returns a copy of the counters.
func (c *Cache) Stats() Stats {
	s := Stats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Sets:    c.sets.Load(),
		Deletes: c.deletes.Load(),
	}
	if total := s.Hits + s.Misses; total > 0 {
		s.HitRate = float64(s.Hits) / float64(total) * 100
	}
	return s
}

// StartSweeper runs Cleanup every interval until Close. Calling it again
// replaces the running sweeper.
func (c *Cache) StartSweeper(interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}

	c.sweepMu.Lock()
	defer c.sweepMu.Unlock()

	c.stopSweeperLocked()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	ticker := c.clock.NewTicker(interval)

	c.sweepCancel = cancel
	c.sweepDone = done

	go func() {
		defer close(done)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.Chan():
				if n := c.Cleanup(); n > 0 {
					config.LogInfo(ctx, fmt.Sprintf("cache sweep removed %d expired entries", n))
				}
			}
		}
	}()
}

// Close stops the sweeper and every pending expiry timer. Entries stay
// readable and still expire lazily.
func (c *Cache) Close() {
	c.sweepMu.Lock()
	c.stopSweeperLocked()
	c.sweepMu.Unlock()

	c.entries.Range(func(_ string, e *entry) bool {
		e.stopTimer()
		return true
	})
}

func (c *Cache) stopSweeperLocked() {
	if c.sweepCancel == nil {
		return
	}
	c.sweepCancel()
	<-c.sweepDone
	c.sweepCancel = nil
	c.sweepDone = nil
}

// removeIf deletes key only while it still maps to e. The expiry callback
// passes stop=false since its own timer has already fired.
func (c *Cache) removeIf(key string, e *entry, stop bool) bool {
	var removed bool
	c.entries.Compute(key, func(current *entry, loaded bool) (*entry, bool) {
		if !loaded {
			return current, true
		}
		if current != e {
			return current, false
		}
		removed = true
		return current, true
	})

	if removed {
		if stop {
			e.stopTimer()
		}
		c.deletes.Add(1)
	}
	return removed
}

func (e *entry) arm(clock clockwork.Clock, fn func()) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stopped {
		return
	}
	e.timer = clock.AfterFunc(e.ttl, fn)
}

func (e *entry) stopTimer() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.stopped = true
	if e.timer != nil {
		e.timer.Stop()
	}
}
