// Package registry provides a generic keyed-entity store with last-seen
// tracking and a TTL-filtered view of the active entities. It is the shared
// pattern behind the vessel, pager, and scan-result registries.
package registry

import (
	"sync"
	"time"
)

type Clock interface {
	Now() time.Time
}

type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time {
	return f()
}

var WallClock = ClockFunc(time.Now)

// Entry wraps a stored entity with its bookkeeping fields.
type Entry[T any] struct {
	Value    T
	LastSeen time.Time
	Messages int
}

// Store is a keyed-entity store. Entities are created on first sight and
// updated in place afterwards, they are never deleted. All accessors return
// copies, so concurrent readers always observe a consistent snapshot.
type Store[T any] struct {
	clock   Clock
	mutex   sync.RWMutex
	entries map[string]*Entry[T]
}

func NewStore[T any](clock Clock) *Store[T] {
	if clock == nil {
		clock = WallClock
	}
	return &Store[T]{
		clock:   clock,
		entries: make(map[string]*Entry[T]),
	}
}

// Upsert creates the entry for the given key if it does not exist yet and
// applies the update function to the stored value. The message counter and
// the last-seen timestamp are bumped on every call.
func (s *Store[T]) Upsert(key string, update func(value *T, created bool)) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	entry, ok := s.entries[key]
	if !ok {
		entry = &Entry[T]{}
		s.entries[key] = entry
	}
	entry.LastSeen = s.clock.Now()
	entry.Messages++

	if update != nil {
		update(&entry.Value, !ok)
	}
}

// Get returns a copy of the entry stored for the given key.
func (s *Store[T]) Get(key string) (Entry[T], bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	entry, ok := s.entries[key]
	if !ok {
		return Entry[T]{}, false
	}
	return *entry, true
}

// Len returns the total number of entries, regardless of their age.
func (s *Store[T]) Len() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return len(s.entries)
}

// All returns a copy of all entries.
func (s *Store[T]) All() []Entry[T] {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	result := make([]Entry[T], 0, len(s.entries))
	for _, entry := range s.entries {
		result = append(result, *entry)
	}
	return result
}

// Active returns a copy of all entries whose last-seen age is below maxAge.
// The filter is pure, it does not mutate the store.
func (s *Store[T]) Active(maxAge time.Duration) []Entry[T] {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	now := s.clock.Now()
	result := make([]Entry[T], 0, len(s.entries))
	for _, entry := range s.entries {
		if now.Sub(entry.LastSeen) < maxAge {
			result = append(result, *entry)
		}
	}
	return result
}
