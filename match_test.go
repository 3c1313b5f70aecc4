package hsts_test

import (
	"errors"
	"slices"
	"testing"

	"github.com/lestrrat-go/hsts"
	"github.com/stretchr/testify/require"
)

func TestSuperdomains(t *testing.T) {
	t.Parallel()

	require.Equal(t,
		[]string{"b.c.example.com", "c.example.com", "example.com", "com"},
		slices.Collect(hsts.Superdomains("a.b.c.example.com")))
	require.Equal(t, []string{"com"}, slices.Collect(hsts.Superdomains("example.com")))
	require.Empty(t, slices.Collect(hsts.Superdomains("localhost")))
	require.Empty(t, slices.Collect(hsts.Superdomains("")))

	// stops as soon as the consumer does
	var first string
	for domain := range hsts.Superdomains("a.b.example.com") {
		first = domain
		break
	}
	require.Equal(t, "b.example.com", first)
}

func TestIsIPLiteral(t *testing.T) {
	t.Parallel()

	for _, host := range []string{"127.0.0.1", "10.1.2.3", "::1", "2001:db8::68", "fe80::1%eth0", "::ffff:192.0.2.1"} {
		require.True(t, hsts.IsIPLiteral(host), "host %q", host)
	}
	for _, host := range []string{"example.com", "localhost", "[::1]", "127.0.0.1.example.com", "1.2.3", ""} {
		require.False(t, hsts.IsIPLiteral(host), "host %q", host)
	}
}

// recordingStore remembers the domains it was asked about.
type recordingStore struct {
	*hsts.MemoryStore
	lookups []string
}

func (s *recordingStore) Get(domain string) (hsts.Policy, bool, error) {
	s.lookups = append(s.lookups, domain)
	return s.MemoryStore.Get(domain)
}

func TestIsKnownHost(t *testing.T) {
	t.Parallel()

	t.Run("Exact match without includeSubDomains", func(t *testing.T) {
		t.Parallel()
		store := hsts.NewMemoryStore()
		require.NoError(t, store.Set("example.com", hsts.Policy{MaxAge: 60}))

		known, err := hsts.IsKnownHost(store, "example.com")
		require.NoError(t, err)
		require.True(t, known)

		known, err = hsts.IsKnownHost(store, "foo.example.com")
		require.NoError(t, err)
		require.False(t, known)
	})

	t.Run("Subdomain propagation", func(t *testing.T) {
		t.Parallel()
		store := hsts.NewMemoryStore()
		require.NoError(t, store.Set("example.com", hsts.Policy{MaxAge: 60, IncludeSubDomains: true}))

		for _, host := range []string{"example.com", "foo.example.com", "foo.bar.example.com"} {
			known, err := hsts.IsKnownHost(store, host)
			require.NoError(t, err)
			require.True(t, known, "host %q", host)
		}
		for _, host := range []string{"com", "example.org", "fooexample.com", "example.com.evil.net"} {
			known, err := hsts.IsKnownHost(store, host)
			require.NoError(t, err)
			require.False(t, known, "host %q", host)
		}
	})

	t.Run("Nearer ancestor without includeSubDomains does not mask a farther one", func(t *testing.T) {
		t.Parallel()
		store := hsts.NewMemoryStore()
		require.NoError(t, store.Set("bar.example.com", hsts.Policy{MaxAge: 60}))
		require.NoError(t, store.Set("example.com", hsts.Policy{MaxAge: 60, IncludeSubDomains: true}))

		known, err := hsts.IsKnownHost(store, "foo.bar.example.com")
		require.NoError(t, err)
		require.True(t, known)
	})

	t.Run("Single-label host", func(t *testing.T) {
		t.Parallel()
		store := hsts.NewMemoryStore()
		known, err := hsts.IsKnownHost(store, "localhost")
		require.NoError(t, err)
		require.False(t, known)

		require.NoError(t, store.Set("localhost", hsts.Policy{MaxAge: 60}))
		known, err = hsts.IsKnownHost(store, "localhost")
		require.NoError(t, err)
		require.True(t, known)
	})

	t.Run("Lookup short-circuits on the first match", func(t *testing.T) {
		t.Parallel()
		store := &recordingStore{MemoryStore: hsts.NewMemoryStore()}
		require.NoError(t, store.Set("c.example.com", hsts.Policy{MaxAge: 60, IncludeSubDomains: true}))

		known, err := hsts.IsKnownHost(store, "a.b.c.example.com")
		require.NoError(t, err)
		require.True(t, known)
		require.Equal(t, []string{"a.b.c.example.com", "b.c.example.com", "c.example.com"}, store.lookups)
	})

	t.Run("Store errors are propagated", func(t *testing.T) {
		t.Parallel()
		storeErr := errors.New("boom")
		_, err := hsts.IsKnownHost(brokenStore{err: storeErr}, "www.example.com")
		require.ErrorIs(t, err, storeErr)
	})
}

type brokenStore struct {
	err error
}

func (s brokenStore) Set(string, hsts.Policy) error         { return s.err }
func (s brokenStore) Get(string) (hsts.Policy, bool, error) { return hsts.Policy{}, false, s.err }
func (s brokenStore) Delete(string) error                   { return s.err }
