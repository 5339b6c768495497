// Package desktops keeps the ordered table of virtual desktops.
package desktops

import "github.com/1broseidon/dockwin/internal/platform"

type entry[H any] struct {
	id     string
	number int
	name   string
	handle H
}

// Store is an ordered list of desktops plus the current desktop pointer.
// H is the backend-native handle used to send requests for a desktop.
type Store[H any] struct {
	entries []*entry[H]
	current string
}

// New creates an empty store.
func New[H any]() *Store[H] {
	return &Store[H]{}
}

// Created inserts a desktop at position (clamped to the valid range) and
// renumbers. A known id is moved to the new position.
func (s *Store[H]) Created(id string, position int, handle H) {
	name := ""
	if i := s.index(id); i >= 0 {
		name = s.entries[i].name
		s.entries = append(s.entries[:i], s.entries[i+1:]...)
	}

	if position < 0 {
		position = 0
	}
	if position > len(s.entries) {
		position = len(s.entries)
	}

	e := &entry[H]{id: id, name: name, handle: handle}
	s.entries = append(s.entries, nil)
	copy(s.entries[position+1:], s.entries[position:])
	s.entries[position] = e
	s.renumber()
}

// Removed erases a desktop and renumbers. It reports whether id was known.
// The current pointer is left alone: the compositor announces the next
// current desktop itself.
func (s *Store[H]) Removed(id string) (H, bool) {
	var zero H
	i := s.index(id)
	if i < 0 {
		return zero, false
	}
	h := s.entries[i].handle
	s.entries = append(s.entries[:i], s.entries[i+1:]...)
	s.renumber()
	return h, true
}

// NameChanged stores a new name and reports whether it differs.
func (s *Store[H]) NameChanged(id, name string) bool {
	i := s.index(id)
	if i < 0 || s.entries[i].name == name {
		return false
	}
	s.entries[i].name = name
	return true
}

// Activated moves the current pointer and reports whether it changed.
// Duplicate activations of the current desktop return false.
func (s *Store[H]) Activated(id string) bool {
	if id == s.current {
		return false
	}
	s.current = id
	return true
}

// Current returns the id of the current desktop ("" when unknown).
func (s *Store[H]) Current() string {
	return s.current
}

// Handle returns the native handle for id.
func (s *Store[H]) Handle(id string) (H, bool) {
	var zero H
	i := s.index(id)
	if i < 0 {
		return zero, false
	}
	return s.entries[i].handle, true
}

// All returns the desktops in store order.
func (s *Store[H]) All() []platform.Desktop {
	out := make([]platform.Desktop, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, platform.Desktop{ID: e.id, Number: e.number, Name: e.name})
	}
	return out
}

// Len returns the number of desktops.
func (s *Store[H]) Len() int {
	return len(s.entries)
}

func (s *Store[H]) index(id string) int {
	for i, e := range s.entries {
		if e.id == id {
			return i
		}
	}
	return -1
}

func (s *Store[H]) renumber() {
	for i, e := range s.entries {
		e.number = i + 1
	}
}
