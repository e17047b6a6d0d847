// Package entity provides the integer handles used for every player and card
// in a game. Handles are arena indices: they identify, they never own.
package entity

import "strconv"

// ID is an arena index. The zero value is the null handle.
type ID uint32

// None is the null handle.
const None ID = 0

// Valid reports whether the handle refers to an arena slot.
func (id ID) Valid() bool {
	return id != None
}

func (id ID) String() string {
	if id == None {
		return "none"
	}
	return "#" + strconv.FormatUint(uint64(id), 10)
}

// Set is an unordered set of handles.
type Set map[ID]struct{}

// NewSet builds a set from the given handles.
func NewSet(ids ...ID) Set {
	s := make(Set, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Add inserts id into the set.
func (s Set) Add(id ID) {
	s[id] = struct{}{}
}

// Has reports whether id is a member.
func (s Set) Has(id ID) bool {
	_, ok := s[id]
	return ok
}

// Remove deletes id from the set.
func (s Set) Remove(id ID) {
	delete(s, id)
}

// Allocator hands out handles in increasing order starting at 1.
type Allocator struct {
	next ID
}

// NewAllocator returns an allocator whose first handle is 1.
func NewAllocator() *Allocator {
	return &Allocator{next: 1}
}

// Next returns a fresh handle.
func (a *Allocator) Next() ID {
	id := a.next
	a.next++
	return id
}

// Reserve makes sure future handles are greater than id. Used after restore.
func (a *Allocator) Reserve(id ID) {
	if id >= a.next {
		a.next = id + 1
	}
}
