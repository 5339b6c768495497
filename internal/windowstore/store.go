// Package windowstore holds the per-backend table of window records.
//
// The store has no protocol knowledge. Every operation on an unknown key is
// a no-op, because trailing property events may legitimately arrive after a
// window has already been torn down.
package windowstore

import (
	"sort"

	"github.com/1broseidon/dockwin/internal/platform"
)

// Record is the mutable state kept for one window. Key is the backend's
// native identity; Window.ID is the identity exposed outside the backend.
type Record[K comparable] struct {
	platform.Window

	Key K

	// Initialized becomes true once the backend's end-of-burst marker arrived.
	// Nothing is published for a record before that.
	Initialized bool

	// RestoreAfterShowDesktop is only meaningful during a show-desktop cycle.
	RestoreAfterShowDesktop bool
}

// Snapshot returns a copy of the public view of the record.
func (r *Record[K]) Snapshot() platform.Window {
	return r.Window
}

// Store is a table of records keyed by K.
type Store[K comparable] struct {
	records   map[K]*Record[K]
	nextOrder uint64
}

// New creates an empty store.
func New[K comparable]() *Store[K] {
	return &Store[K]{records: make(map[K]*Record[K])}
}

// Create inserts a fresh record for key and assigns the next mapping order.
// A live record with the same key is replaced: the compositor reusing an
// identity means a new, unrelated window.
func (s *Store[K]) Create(key K) *Record[K] {
	s.nextOrder++
	rec := &Record[K]{Key: key}
	rec.MappingOrder = s.nextOrder
	s.records[key] = rec
	return rec
}

// Get returns the record for key.
func (s *Store[K]) Get(key K) (*Record[K], bool) {
	rec, ok := s.records[key]
	return rec, ok
}

// Update applies fn to the record for key. It reports whether the key was known.
func (s *Store[K]) Update(key K, fn func(*Record[K])) bool {
	rec, ok := s.records[key]
	if !ok {
		return false
	}
	fn(rec)
	return true
}

// Remove deletes the record for key and returns it.
func (s *Store[K]) Remove(key K) (*Record[K], bool) {
	rec, ok := s.records[key]
	if !ok {
		return nil, false
	}
	delete(s.records, key)
	return rec, true
}

// All returns every record ordered by mapping order.
func (s *Store[K]) All() []*Record[K] {
	out := make([]*Record[K], 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].MappingOrder < out[j].MappingOrder
	})
	return out
}

// Len returns the number of live records.
func (s *Store[K]) Len() int {
	return len(s.records)
}
