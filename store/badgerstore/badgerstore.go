// Package badgerstore implements a persistent hsts.Store on top of
// BadgerDB.
//
// Liveness is decided against the configured hsts.Clock, and expired
// records are deleted by the Get that observes them. When the clock is
// hsts.SystemClock, records are also written with a badger TTL matching
// their expiry so that badger can garbage collect them. Badger TTLs follow
// wall-clock time, so they are not used with any other clock.
package badgerstore

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
	"github.com/lestrrat-go/hsts"
	"github.com/lestrrat-go/hsts/internal/record"
	"github.com/lestrrat-go/option"
)

// Kind is the store kind conventionally used to register this store.
const Kind = "badger"

const keyPrefix = "hsts/"

// maxConflictRetries bounds the number of times a transaction is retried
// after losing a conflict against a concurrent writer.
const maxConflictRetries = 64

type Option = option.Interface

type identLogger struct{}

func (identLogger) String() string { return "WithLogger" }

// WithLogger routes badger's internal logging to logger. By default badger
// logging is discarded.
func WithLogger(logger *slog.Logger) Option {
	return option.New(identLogger{}, logger)
}

// Store is an hsts.Store backed by a badger database.
type Store struct {
	db    *badger.DB
	clock hsts.Clock
	owned bool
}

// Open opens (or creates) a badger database in dir. An empty dir opens an
// in-memory database. Options may include hsts.WithClock.
func Open(dir string, options ...Option) (*Store, error) {
	var logger *slog.Logger
	var storeOptions []hsts.StoreOption
	for _, opt := range options {
		switch opt.Ident() {
		case identLogger{}:
			logger = opt.Value().(*slog.Logger)
		default:
			if so, ok := opt.(hsts.StoreOption); ok {
				storeOptions = append(storeOptions, so)
			}
		}
	}

	opts := badger.DefaultOptions(dir)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	if logger != nil {
		opts = opts.WithLogger(slogAdapter{logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badgerstore: failed to open database: %w", err)
	}

	s := New(db, storeOptions...)
	s.owned = true
	return s, nil
}

// New wraps an already open database. The database is not closed by
// Close.
func New(db *badger.DB, options ...hsts.StoreOption) *Store {
	return &Store{
		db:    db,
		clock: hsts.ClockFromOptions(options...),
	}
}

// Factory returns an hsts.StoreFactory that opens a Store in dir.
func Factory(dir string, options ...Option) hsts.StoreFactory {
	return func() (hsts.Store, error) {
		return Open(dir, options...)
	}
}

func key(domain string) []byte {
	return []byte(keyPrefix + domain)
}

func (s *Store) Set(domain string, policy hsts.Policy) error {
	now := s.clock.Now()
	rec := record.New(now, policy)
	data, err := record.Marshal(rec)
	if err != nil {
		return fmt.Errorf("badgerstore: failed to set %q: %w", domain, err)
	}

	entry := badger.NewEntry(key(domain), data)
	if _, wallClock := s.clock.(hsts.SystemClock); wallClock {
		if ttl := rec.Expiry().Sub(now); ttl > 0 {
			entry = entry.WithTTL(ttl)
		}
	}

	if err := s.update(func(txn *badger.Txn) error {
		return txn.SetEntry(entry)
	}); err != nil {
		return fmt.Errorf("badgerstore: failed to set %q: %w", domain, err)
	}
	return nil
}

func (s *Store) Get(domain string) (hsts.Policy, bool, error) {
	var policy hsts.Policy
	var found bool
	err := s.update(func(txn *badger.Txn) error {
		found = false

		item, err := txn.Get(key(domain))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return err
		}

		var rec record.Record
		if err := item.Value(func(val []byte) error {
			var err error
			rec, err = record.Unmarshal(val)
			return err
		}); err != nil {
			return err
		}

		if rec.Expired(s.clock.Now()) {
			return txn.Delete(key(domain))
		}
		policy, found = rec.Policy(), true
		return nil
	})
	if err != nil {
		return hsts.Policy{}, false, fmt.Errorf("badgerstore: failed to get %q: %w", domain, err)
	}
	return policy, found, nil
}

func (s *Store) Delete(domain string) error {
	if err := s.update(func(txn *badger.Txn) error {
		return txn.Delete(key(domain))
	}); err != nil {
		return fmt.Errorf("badgerstore: failed to delete %q: %w", domain, err)
	}
	return nil
}

// Close closes the database if it was opened by Open.
func (s *Store) Close() error {
	if !s.owned {
		return nil
	}
	return s.db.Close()
}

// update runs fn in a read-write transaction, retrying when the
// transaction conflicts with a concurrent one.
func (s *Store) update(fn func(txn *badger.Txn) error) error {
	var err error
	for range maxConflictRetries {
		err = s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return err
}

type slogAdapter struct {
	logger *slog.Logger
}

func (a slogAdapter) Errorf(format string, args ...any) {
	a.logger.Error(fmt.Sprintf(format, args...))
}

func (a slogAdapter) Warningf(format string, args ...any) {
	a.logger.Warn(fmt.Sprintf(format, args...))
}

func (a slogAdapter) Infof(format string, args ...any) {
	a.logger.Info(fmt.Sprintf(format, args...))
}

func (a slogAdapter) Debugf(format string, args ...any) {
	a.logger.Debug(fmt.Sprintf(format, args...))
}
