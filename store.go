package netfetch

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/ambiyansyah-risyal/netfetch/internal/inflight"
)

// DefaultCapacity is the entry count above which CachedFetch runs a cleanup
// pass before serving.
const DefaultCapacity = 100

// Entry is a cached result and the time it was stored.
type Entry struct {
	Value     json.RawMessage `json:"value"`
	Timestamp time.Time       `json:"timestamp"`
}

// Age returns how long ago the entry was stored.
func (e *Entry) Age(now time.Time) time.Duration {
	return now.Sub(e.Timestamp)
}

// Fresh reports whether the entry is younger than window.
func (e *Entry) Fresh(now time.Time, window time.Duration) bool {
	return e.Age(now) < window
}

// EntryBackend holds cached entries. Implementations must be safe for
// concurrent use. Stale entries stay until Cleanup, Delete, Clear or an
// overwriting Set.
type EntryBackend interface {
	Get(key string) (*Entry, bool)
	Set(key string, entry *Entry)
	Delete(key string)
	Len() int
	// Cleanup removes entries older than maxAge and returns how many went.
	Cleanup(maxAge time.Duration, now time.Time) int
	Clear()
}

// PendingCall is the shared handle of an in-flight underlying call.
type PendingCall = inflight.Call[json.RawMessage]

// Store is the cache plus the registry of in-flight calls. One Store is
// normally created at startup and shared by every Fetcher that should see
// the same cache.
type Store struct {
	mu       sync.Mutex
	backend  EntryBackend
	pending  map[string]*PendingCall
	capacity int
	clock    Clock
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithBackend replaces the in-memory entry backend.
func WithBackend(backend EntryBackend) StoreOption {
	return func(s *Store) {
		s.backend = backend
	}
}

// WithStoreCapacity sets the entry count that triggers a cleanup pass.
func WithStoreCapacity(n int) StoreOption {
	return func(s *Store) {
		s.capacity = n
	}
}

// WithStoreClock sets the clock Cleanup measures age against.
func WithStoreClock(clock Clock) StoreOption {
	return func(s *Store) {
		s.clock = clock
	}
}

// NewStore returns an empty Store backed by memory unless configured
// otherwise.
func NewStore(options ...StoreOption) *Store {
	s := &Store{
		pending:  make(map[string]*PendingCall),
		capacity: DefaultCapacity,
		clock:    SystemClock{},
	}
	for _, option := range options {
		option(s)
	}
	if s.backend == nil {
		s.backend = NewMemoryBackend()
	}
	if s.capacity <= 0 {
		s.capacity = DefaultCapacity
	}
	if s.clock == nil {
		s.clock = SystemClock{}
	}
	return s
}

// Get returns the entry stored under key, fresh or not.
func (s *Store) Get(key string) (*Entry, bool) {
	return s.backend.Get(key)
}

// Set stores value under key with the given timestamp, replacing any
// existing entry.
func (s *Store) Set(key string, value json.RawMessage, timestamp time.Time) {
	s.backend.Set(key, &Entry{Value: value, Timestamp: timestamp})
}

// Has reports whether an entry exists for key.
func (s *Store) Has(key string) bool {
	_, ok := s.backend.Get(key)
	return ok
}

// Delete removes the entry for key.
func (s *Store) Delete(key string) {
	s.backend.Delete(key)
}

// Len returns the number of cached entries.
func (s *Store) Len() int {
	return s.backend.Len()
}

// Capacity returns the cleanup trigger bound.
func (s *Store) Capacity() int {
	return s.capacity
}

// Cleanup removes every entry whose age exceeds maxAge.
func (s *Store) Cleanup(maxAge time.Duration) int {
	return s.backend.Cleanup(maxAge, s.clock.Now())
}

// RegisterPending records call as the in-flight call for key unless one is
// already registered. It returns the registered call and whether it is the
// one passed in. Either way the returned call gains a waiter.
func (s *Store) RegisterPending(key string, call *PendingCall) (*PendingCall, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.registerLocked(key, call)
}

// acquire is the lookup-then-register step of a cached fetch done under one
// lock. Unless forceRefresh is set, an entry fresh for window at now is
// returned and nothing is registered. Otherwise it behaves like
// RegisterPending.
func (s *Store) acquire(key string, call *PendingCall, now time.Time, window time.Duration, forceRefresh bool) (*Entry, *PendingCall, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !forceRefresh {
		if entry, ok := s.backend.Get(key); ok && entry.Fresh(now, window) {
			return entry, nil, false
		}
	}

	registered, owner := s.registerLocked(key, call)
	return nil, registered, owner
}

func (s *Store) registerLocked(key string, call *PendingCall) (*PendingCall, bool) {
	if existing, ok := s.pending[key]; ok {
		existing.Join()
		return existing, false
	}

	call.Join()
	s.pending[key] = call
	return call, true
}

// GetPending returns the in-flight call for key, if any.
func (s *Store) GetPending(key string) (*PendingCall, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	call, ok := s.pending[key]
	return call, ok
}

// ClearPending forgets the in-flight call for key. Waiters already attached
// still receive its result, but it no longer writes the cache.
func (s *Store) ClearPending(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.pending, key)
}

// PendingLen returns the number of in-flight calls.
func (s *Store) PendingLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.pending)
}

// Reset empties both the cache and the in-flight registry.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.backend.Clear()
	s.pending = make(map[string]*PendingCall)
}

// release settles the pending slot for key. When entry is non-nil it is
// written in the same critical section that removes the slot, so no caller
// can see the slot gone without the entry present. A call that is no
// longer registered (after ClearPending or Reset) writes nothing.
func (s *Store) release(key string, call *PendingCall, entry *Entry) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending[key] != call {
		return false
	}
	if entry != nil {
		s.backend.Set(key, entry)
	}
	delete(s.pending, key)
	return true
}
