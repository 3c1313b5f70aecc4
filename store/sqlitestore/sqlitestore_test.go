package sqlitestore_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/lestrrat-go/hsts"
	"github.com/lestrrat-go/hsts/internal/storetest"
	"github.com/lestrrat-go/hsts/store/sqlitestore"
	"github.com/stretchr/testify/require"
)

func TestStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T, clock hsts.Clock) hsts.Store {
		s, err := sqlitestore.Open(":memory:", hsts.WithClock(clock))
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestPersistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hsts.db")
	clock := hsts.FixedClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

	s, err := sqlitestore.Open(path, hsts.WithClock(clock))
	require.NoError(t, err)
	require.NoError(t, s.Set("example.com", hsts.Policy{MaxAge: 60}))
	require.NoError(t, s.Close())

	s, err = sqlitestore.Open(path, hsts.WithClock(clock))
	require.NoError(t, err)
	defer s.Close()

	policy, ok, err := s.Get("example.com")
	require.NoError(t, err)
	require.True(t, ok, "record survives reopening the database")
	require.Equal(t, hsts.Policy{MaxAge: 60}, policy)
}

func TestClosedDatabase(t *testing.T) {
	s, err := sqlitestore.Open(":memory:")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, _, err = s.Get("example.com")
	require.Error(t, err, "storage failures are reported, not swallowed")
	require.Error(t, s.Set("example.com", hsts.Policy{MaxAge: 60}))
	require.Error(t, s.Delete("example.com"))
}
