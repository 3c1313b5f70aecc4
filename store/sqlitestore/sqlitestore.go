// Package sqlitestore implements a persistent hsts.Store on top of SQLite.
package sqlitestore

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lestrrat-go/hsts"
	"github.com/lestrrat-go/hsts/internal/record"
	_ "github.com/mattn/go-sqlite3"
)

// Kind is the store kind conventionally used to register this store.
const Kind = "sqlite"

const schema = `CREATE TABLE IF NOT EXISTS hsts_policies (
	domain             TEXT PRIMARY KEY,
	expires_at         INTEGER NOT NULL,
	max_age            INTEGER NOT NULL,
	include_subdomains INTEGER NOT NULL
)`

// Store is an hsts.Store backed by a SQLite database.
type Store struct {
	db    *sql.DB
	clock hsts.Clock
}

// Open opens (or creates) the SQLite database at path. The special path
// ":memory:" opens a private in-memory database.
func Open(path string, options ...hsts.StoreOption) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: failed to open %q: %w", path, err)
	}
	// a single connection serializes all operations, and keeps ":memory:"
	// databases from being split across connections
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlitestore: failed to create schema: %w", err)
	}

	return &Store{
		db:    db,
		clock: hsts.ClockFromOptions(options...),
	}, nil
}

// Factory returns an hsts.StoreFactory that opens a Store at path.
func Factory(path string, options ...hsts.StoreOption) hsts.StoreFactory {
	return func() (hsts.Store, error) {
		return Open(path, options...)
	}
}

func (s *Store) Set(domain string, policy hsts.Policy) error {
	rec := record.New(s.clock.Now(), policy)
	_, err := s.db.Exec(`INSERT INTO hsts_policies (domain, expires_at, max_age, include_subdomains) VALUES (?, ?, ?, ?)
		ON CONFLICT(domain) DO UPDATE SET expires_at = excluded.expires_at, max_age = excluded.max_age, include_subdomains = excluded.include_subdomains`,
		domain, rec.ExpiresAt, rec.MaxAge, rec.IncludeSubDomains)
	if err != nil {
		return fmt.Errorf("sqlitestore: failed to set %q: %w", domain, err)
	}
	return nil
}

func (s *Store) Get(domain string) (hsts.Policy, bool, error) {
	var rec record.Record
	err := s.db.QueryRow(`SELECT expires_at, max_age, include_subdomains FROM hsts_policies WHERE domain = ?`, domain).
		Scan(&rec.ExpiresAt, &rec.MaxAge, &rec.IncludeSubDomains)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return hsts.Policy{}, false, nil
		}
		return hsts.Policy{}, false, fmt.Errorf("sqlitestore: failed to get %q: %w", domain, err)
	}

	now := s.clock.Now()
	if rec.Expired(now) {
		// only delete what is still expired, so that a record refreshed in
		// the meantime survives
		if _, err := s.db.Exec(`DELETE FROM hsts_policies WHERE domain = ? AND expires_at <= ?`, domain, now.UnixMicro()); err != nil {
			return hsts.Policy{}, false, fmt.Errorf("sqlitestore: failed to evict %q: %w", domain, err)
		}
		return hsts.Policy{}, false, nil
	}
	return rec.Policy(), true, nil
}

func (s *Store) Delete(domain string) error {
	if _, err := s.db.Exec(`DELETE FROM hsts_policies WHERE domain = ?`, domain); err != nil {
		return fmt.Errorf("sqlitestore: failed to delete %q: %w", domain, err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
