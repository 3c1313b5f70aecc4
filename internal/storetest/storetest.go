// Package storetest provides a conformance suite for hsts.Store
// implementations.
package storetest

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/lestrrat-go/hsts"
	"github.com/stretchr/testify/require"
)

// Clock is a hsts.Clock whose time is moved explicitly.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock(now time.Time) *Clock {
	return &Clock{now: now}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set moves the clock to t.
func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Factory creates a fresh, empty store that reads time from clock.
type Factory func(t *testing.T, clock hsts.Clock) hsts.Store

// Run exercises the hsts.Store contract against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	epoch := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("Get after Set", func(t *testing.T) {
		clock := NewClock(epoch)
		store := newStore(t, clock)

		policy := hsts.Policy{MaxAge: 60, IncludeSubDomains: true}
		require.NoError(t, store.Set("example.com", policy))

		got, ok, err := store.Get("example.com")
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, policy, got)
	})

	t.Run("Get of unknown domain", func(t *testing.T) {
		store := newStore(t, NewClock(epoch))

		got, ok, err := store.Get("example.com")
		require.NoError(t, err)
		require.False(t, ok)
		require.Equal(t, hsts.Policy{}, got)
	})

	t.Run("Domains are matched exactly", func(t *testing.T) {
		store := newStore(t, NewClock(epoch))
		require.NoError(t, store.Set("example.com", hsts.Policy{MaxAge: 60}))

		for _, domain := range []string{"www.example.com", "Example.com", "com", ""} {
			_, ok, err := store.Get(domain)
			require.NoError(t, err)
			require.False(t, ok, "domain %q", domain)
		}
	})

	t.Run("Expired records are evicted", func(t *testing.T) {
		clock := NewClock(epoch)
		store := newStore(t, clock)
		require.NoError(t, store.Set("example.com", hsts.Policy{MaxAge: 60}))

		clock.Advance(59 * time.Second)
		_, ok, err := store.Get("example.com")
		require.NoError(t, err)
		require.True(t, ok, "record is live before max-age elapses")

		clock.Advance(time.Second)
		_, ok, err = store.Get("example.com")
		require.NoError(t, err)
		require.False(t, ok, "record is gone once max-age elapses")

		// the record must have been deleted, not merely hidden
		clock.Set(epoch)
		_, ok, err = store.Get("example.com")
		require.NoError(t, err)
		require.False(t, ok, "eviction is permanent")
	})

	t.Run("Set replaces the previous record", func(t *testing.T) {
		clock := NewClock(epoch)
		store := newStore(t, clock)
		require.NoError(t, store.Set("example.com", hsts.Policy{MaxAge: 3600, IncludeSubDomains: true}))
		require.NoError(t, store.Set("example.com", hsts.Policy{MaxAge: 60}))

		got, ok, err := store.Get("example.com")
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, hsts.Policy{MaxAge: 60}, got, "includeSubDomains must not be merged")

		clock.Advance(2 * time.Minute)
		_, ok, err = store.Get("example.com")
		require.NoError(t, err)
		require.False(t, ok, "expiry follows the latest Set")
	})

	t.Run("Set refreshes an expired record", func(t *testing.T) {
		clock := NewClock(epoch)
		store := newStore(t, clock)
		require.NoError(t, store.Set("example.com", hsts.Policy{MaxAge: 1}))
		clock.Advance(time.Hour)
		require.NoError(t, store.Set("example.com", hsts.Policy{MaxAge: 60}))

		_, ok, err := store.Get("example.com")
		require.NoError(t, err)
		require.True(t, ok)
	})

	t.Run("Delete", func(t *testing.T) {
		store := newStore(t, NewClock(epoch))
		require.NoError(t, store.Set("example.com", hsts.Policy{MaxAge: 60}))
		require.NoError(t, store.Set("example.org", hsts.Policy{MaxAge: 60}))

		require.NoError(t, store.Delete("example.com"))
		_, ok, err := store.Get("example.com")
		require.NoError(t, err)
		require.False(t, ok)

		_, ok, err = store.Get("example.org")
		require.NoError(t, err)
		require.True(t, ok, "other records are untouched")

		require.NoError(t, store.Delete("example.com"), "Delete is idempotent")
		require.NoError(t, store.Delete("never-seen.example"))
	})

	t.Run("Eviction does not drop concurrent writes", func(t *testing.T) {
		clock := NewClock(epoch)
		store := newStore(t, clock)

		const domains = 4
		const readers = 4
		stale := hsts.Policy{MaxAge: 1}
		fresh := hsts.Policy{MaxAge: 3600, IncludeSubDomains: true}

		names := make([]string, domains)
		for i := range names {
			names[i] = fmt.Sprintf("host%d.example.com", i)
			require.NoError(t, store.Set(names[i], stale))
		}
		// every seeded record is now expired, so readers evict while
		// writers replace
		clock.Advance(time.Hour)

		var wg sync.WaitGroup
		errs := make(chan error, domains*(readers+1))
		for _, domain := range names {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for range 10 {
					if err := store.Set(domain, fresh); err != nil {
						errs <- err
						return
					}
				}
			}()
			for range readers {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for range 20 {
						policy, ok, err := store.Get(domain)
						if err != nil {
							errs <- err
							return
						}
						if ok && policy != fresh {
							errs <- fmt.Errorf("stale record for %q was returned: %+v", domain, policy)
							return
						}
					}
				}()
			}
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		for _, domain := range names {
			policy, ok, err := store.Get(domain)
			require.NoError(t, err)
			require.True(t, ok, "last write to %q must survive eviction", domain)
			require.Equal(t, fresh, policy)
		}
	})

	t.Run("Concurrent access", func(t *testing.T) {
		clock := NewClock(epoch)
		store := newStore(t, clock)

		const workers = 8
		var wg sync.WaitGroup
		errs := make(chan error, workers*3)
		for i := range workers {
			domain := fmt.Sprintf("host%d.example.com", i%2)
			wg.Add(3)
			go func() {
				defer wg.Done()
				for range 20 {
					if err := store.Set(domain, hsts.Policy{MaxAge: 60}); err != nil {
						errs <- err
						return
					}
				}
			}()
			go func() {
				defer wg.Done()
				for range 20 {
					if _, _, err := store.Get(domain); err != nil {
						errs <- err
						return
					}
				}
			}()
			go func() {
				defer wg.Done()
				for range 20 {
					if err := store.Delete(domain); err != nil {
						errs <- err
						return
					}
				}
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		require.NoError(t, store.Set("host0.example.com", hsts.Policy{MaxAge: 60}))
		_, ok, err := store.Get("host0.example.com")
		require.NoError(t, err)
		require.True(t, ok)
	})
}
