// Package handle provides generation-checked handles into an owning registry.
//
// A Handle stays cheap to copy and compare, and a handle to a removed entry is
// detected on lookup instead of silently aliasing whatever reuses the slot.
package handle

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// ErrCapacity is returned by Insert when the registry is full.
var ErrCapacity = errors.New("registry capacity reached")

// Handle addresses one entry of a Registry[T]. The zero value is never valid.
type Handle[T any] struct {
	index      uint32
	generation uint32
}

// IsZero reports whether h is the zero handle.
func (h Handle[T]) IsZero() bool {
	return h.generation == 0
}

// Index is the slot index, stable for the lifetime of the entry.
func (h Handle[T]) Index() int {
	return int(h.index)
}

func (h Handle[T]) String() string {
	if h.IsZero() {
		return "handle(none)"
	}
	return fmt.Sprintf("handle(%d@%d)", h.index, h.generation)
}

type slot[T any] struct {
	value      T
	generation uint32
	live       bool
}

// Registry owns values of type T and hands out Handles to them. Removed slots
// go on a free list and are reused with a bumped generation.
//
// A Registry is not safe for concurrent use.
type Registry[T any] struct {
	slots    []slot[T]
	free     []uint32
	live     int
	capacity int
}

// NewRegistry creates a registry holding at most capacity live entries.
// A capacity of 0 means unlimited.
func NewRegistry[T any](capacity int) *Registry[T] {
	return &Registry[T]{capacity: capacity}
}

func (r *Registry[T]) Insert(value T) (Handle[T], error) {
	if r.capacity > 0 && r.live >= r.capacity {
		return Handle[T]{}, errors.Wrapf(ErrCapacity, "limit %d", r.capacity)
	}

	var index uint32
	if n := len(r.free); n > 0 {
		index = r.free[n-1]
		r.free = r.free[:n-1]
	} else {
		index = uint32(len(r.slots))
		r.slots = append(r.slots, slot[T]{})
	}

	s := &r.slots[index]
	s.generation++
	if s.generation == 0 {
		// wrapped; zero is reserved for the invalid handle
		s.generation = 1
	}
	s.value = value
	s.live = true
	r.live++

	return Handle[T]{index: index, generation: s.generation}, nil
}

func (r *Registry[T]) lookup(h Handle[T]) *slot[T] {
	if h.IsZero() || int(h.index) >= len(r.slots) {
		return nil
	}
	s := &r.slots[h.index]
	if !s.live || s.generation != h.generation {
		return nil
	}
	return s
}

// Get returns the value for h, or false if h is stale or was never issued.
func (r *Registry[T]) Get(h Handle[T]) (T, bool) {
	s := r.lookup(h)
	if s == nil {
		var zero T
		return zero, false
	}
	return s.value, true
}

// Contains reports whether h refers to a live entry.
func (r *Registry[T]) Contains(h Handle[T]) bool {
	return r.lookup(h) != nil
}

// Set replaces the value for a live handle.
func (r *Registry[T]) Set(h Handle[T], value T) bool {
	s := r.lookup(h)
	if s == nil {
		return false
	}
	s.value = value
	return true
}

// Remove releases the entry for h and returns its value. Later lookups with h
// fail even after the slot is reused.
func (r *Registry[T]) Remove(h Handle[T]) (T, bool) {
	s := r.lookup(h)
	if s == nil {
		var zero T
		return zero, false
	}

	value := s.value
	var zero T
	s.value = zero
	s.live = false
	r.live--
	r.free = append(r.free, h.index)
	return value, true
}

func (r *Registry[T]) Len() int {
	return r.live
}

func (r *Registry[T]) Capacity() int {
	return r.capacity
}

// Each calls fn for every live entry in slot order until fn returns false.
func (r *Registry[T]) Each(fn func(Handle[T], T) bool) {
	for i := range r.slots {
		s := &r.slots[i]
		if !s.live {
			continue
		}
		if !fn(Handle[T]{index: uint32(i), generation: s.generation}, s.value) {
			return
		}
	}
}

// Clear removes every entry. Outstanding handles become stale.
func (r *Registry[T]) Clear() {
	for i := range r.slots {
		s := &r.slots[i]
		if !s.live {
			continue
		}
		var zero T
		s.value = zero
		s.live = false
		r.free = append(r.free, uint32(i))
	}
	r.live = 0
}
