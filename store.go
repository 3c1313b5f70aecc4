package hsts

import (
	"slices"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
)

// Store associates domains with expiring HSTS policies.
//
// Implementations must be safe for concurrent use. Get must never report
// a record whose expiry is at or before the current time; such records are
// deleted as a side effect of the Get that observes them. Errors are
// reserved for failures of the underlying storage medium: absence and
// expiry are both reported as (Policy{}, false, nil).
type Store interface {
	// Set records policy for domain, expiring policy.MaxAge seconds from
	// now. Any existing record for domain is replaced.
	Set(domain string, policy Policy) error
	// Get returns the live policy recorded for domain.
	Get(domain string) (Policy, bool, error)
	// Delete removes the record for domain, if any.
	Delete(domain string) error
}

type memoryEntry struct {
	expiresAt time.Time
	policy    Policy
}

// MemoryStore is an in-memory Store. Its contents do not survive the
// process.
type MemoryStore struct {
	clock   Clock
	entries *xsync.MapOf[string, memoryEntry]
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore(options ...StoreOption) *MemoryStore {
	return &MemoryStore{
		clock:   ClockFromOptions(options...),
		entries: xsync.NewMapOf[string, memoryEntry](),
	}
}

func (s *MemoryStore) Set(domain string, policy Policy) error {
	s.entries.Store(domain, memoryEntry{
		expiresAt: ExpiresAt(s.clock.Now(), policy.MaxAge),
		policy:    policy,
	})
	return nil
}

func (s *MemoryStore) Get(domain string) (Policy, bool, error) {
	var policy Policy
	var found bool
	// the expiry check and the eviction happen atomically for the key, so
	// a concurrent Set is never lost to the eviction of a stale record
	s.entries.Compute(domain, func(entry memoryEntry, loaded bool) (memoryEntry, bool) {
		if !loaded || !entry.expiresAt.After(s.clock.Now()) {
			return entry, true
		}
		policy, found = entry.policy, true
		return entry, false
	})
	return policy, found, nil
}

func (s *MemoryStore) Delete(domain string) error {
	s.entries.Delete(domain)
	return nil
}

// Len returns the number of records held, including expired records that
// have not been observed yet.
func (s *MemoryStore) Len() int {
	return s.entries.Size()
}

// MemoryStoreKind is the registered kind of MemoryStore, and the kind used
// when no store is configured.
const MemoryStoreKind = "memory"

// StoreFactory creates a new Store instance.
type StoreFactory func() (Store, error)

var registry = xsync.NewMapOf[string, StoreFactory]()

func init() {
	RegisterStore(MemoryStoreKind, func() (Store, error) {
		return NewMemoryStore(), nil
	})
}

// RegisterStore makes a store kind available by name, so that it can be
// selected with a string. Registering an existing kind replaces it.
// RegisterStore panics if factory is nil.
func RegisterStore(kind string, factory StoreFactory) {
	if factory == nil {
		panic("hsts: RegisterStore factory is nil")
	}
	registry.Store(kind, factory)
}

// LookupStore returns the factory registered for kind.
func LookupStore(kind string) (StoreFactory, bool) {
	return registry.Load(kind)
}

// StoreKinds returns the sorted list of registered store kinds.
func StoreKinds() []string {
	kinds := make([]string, 0, registry.Size())
	registry.Range(func(kind string, _ StoreFactory) bool {
		kinds = append(kinds, kind)
		return true
	})
	slices.Sort(kinds)
	return kinds
}
