package rules

import (
	"errors"
	"fmt"

	"github.com/magefree/mage-commander/internal/game/entity"
)

// ErrStackEmpty is returned when resolving or inspecting an empty stack.
var ErrStackEmpty = errors.New("stack empty")

// ErrNotTopOfStack is returned when resolution targets anything but the top item.
var ErrNotTopOfStack = errors.New("item is not on top of the stack")

// ErrStackItemNotFound is returned when an item id is not on the stack.
var ErrStackItemNotFound = errors.New("stack item not found")

// StackItemKind describes the type of object on the stack.
type StackItemKind string

const (
	// StackItemKindSpell represents a spell cast by a player.
	StackItemKindSpell StackItemKind = "SPELL"
	// StackItemKindActivated represents an activated ability.
	StackItemKindActivated StackItemKind = "ACTIVATED"
	// StackItemKindTriggered represents a triggered ability.
	StackItemKindTriggered StackItemKind = "TRIGGERED"
)

// CounterReason tags why an item left the stack without resolving.
type CounterReason string

const (
	CounterReasonCounterSpell   CounterReason = "COUNTER_SPELL"
	CounterReasonInvalidTargets CounterReason = "INVALID_TARGETS"
	CounterReasonRulesBased     CounterReason = "RULES_BASED"
)

// StackItem represents a single pending effect on the stack. Card is the
// spell card for spells and entity.None for abilities.
type StackItem struct {
	ID          string
	Controller  entity.ID
	Kind        StackItemKind
	Card        entity.ID
	SourceID    entity.ID
	Description string
}

// GameStack is the last-in-first-out list of pending effects.
type GameStack struct {
	items     []StackItem
	resolving bool
}

// NewGameStack creates an empty stack.
func NewGameStack() *GameStack {
	return &GameStack{
		items: make([]StackItem, 0, 16),
	}
}

// Push adds an item to the top of the stack.
func (gs *GameStack) Push(item StackItem) {
	gs.items = append(gs.items, item)
}

// Peek returns the top item without removing it.
func (gs *GameStack) Peek() (StackItem, bool) {
	if len(gs.items) == 0 {
		return StackItem{}, false
	}
	return gs.items[len(gs.items)-1], true
}

// BeginResolve pops the top item and marks the stack as resolving until
// EndResolve is called.
func (gs *GameStack) BeginResolve() (StackItem, error) {
	if len(gs.items) == 0 {
		return StackItem{}, ErrStackEmpty
	}
	idx := len(gs.items) - 1
	item := gs.items[idx]
	gs.items = gs.items[:idx]
	gs.resolving = true
	return item, nil
}

// EndResolve clears the resolving flag.
func (gs *GameStack) EndResolve() {
	gs.resolving = false
}

// Resolve pops the most recently pushed item.
func (gs *GameStack) Resolve() (StackItem, error) {
	item, err := gs.BeginResolve()
	if err != nil {
		return StackItem{}, err
	}
	gs.EndResolve()
	return item, nil
}

// ResolveItem resolves id only if it is the top item.
func (gs *GameStack) ResolveItem(id string) (StackItem, error) {
	top, ok := gs.Peek()
	if !ok {
		return StackItem{}, ErrStackEmpty
	}
	if top.ID != id {
		return StackItem{}, fmt.Errorf("resolve %s: %w", id, ErrNotTopOfStack)
	}
	return gs.Resolve()
}

// Resolving reports whether an item is being resolved.
func (gs *GameStack) Resolving() bool {
	return gs.resolving
}

// Counter removes an item from anywhere in the stack without resolving it.
func (gs *GameStack) Counter(id string) (StackItem, error) {
	item, ok := gs.Remove(id)
	if !ok {
		return StackItem{}, fmt.Errorf("counter %s: %w", id, ErrStackItemNotFound)
	}
	return item, nil
}

// Remove deletes an item from anywhere in the stack by ID.
func (gs *GameStack) Remove(id string) (StackItem, bool) {
	for idx := len(gs.items) - 1; idx >= 0; idx-- {
		if gs.items[idx].ID == id {
			item := gs.items[idx]
			gs.items = append(gs.items[:idx], gs.items[idx+1:]...)
			return item, true
		}
	}
	return StackItem{}, false
}

// RemoveControlledBy removes every item controlled by player and returns them
// topmost first.
func (gs *GameStack) RemoveControlledBy(player entity.ID) []StackItem {
	var removed []StackItem
	kept := gs.items[:0]
	for _, item := range gs.items {
		if item.Controller == player {
			removed = append(removed, item)
			continue
		}
		kept = append(kept, item)
	}
	gs.items = kept
	for i, j := 0, len(removed)-1; i < j; i, j = i+1, j-1 {
		removed[i], removed[j] = removed[j], removed[i]
	}
	return removed
}

// Find returns the item with the given ID.
func (gs *GameStack) Find(id string) (StackItem, bool) {
	for _, item := range gs.items {
		if item.ID == id {
			return item, true
		}
	}
	return StackItem{}, false
}

// List returns a copy of all stack items (topmost last).
func (gs *GameStack) List() []StackItem {
	cpy := make([]StackItem, len(gs.items))
	copy(cpy, gs.items)
	return cpy
}

// Len returns the number of items on the stack.
func (gs *GameStack) Len() int {
	return len(gs.items)
}

// IsEmpty returns whether the stack is empty.
func (gs *GameStack) IsEmpty() bool {
	return len(gs.items) == 0
}
