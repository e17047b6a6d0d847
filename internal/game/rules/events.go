package rules

import (
	"sort"
	"sync"

	"github.com/magefree/mage-commander/internal/game/entity"
)

// EventType indicates the category of a rules notification.
type EventType string

const (
	// Turn structure
	EventTurnStart EventType = "TURN_START"
	EventTurnEnd   EventType = "TURN_END"
	EventNextPhase EventType = "NEXT_PHASE"

	// Priority and stack
	EventPriorityChanged   EventType = "PRIORITY_CHANGED"
	EventStackItemAdded    EventType = "STACK_ITEM_ADDED"
	EventStackItemResolved EventType = "STACK_ITEM_RESOLVED"
	EventEffectCountered   EventType = "EFFECT_COUNTERED"

	// Zones
	EventZoneChange           EventType = "ZONE_CHANGE"
	EventEntersTheBattlefield EventType = "ENTERS_THE_BATTLEFIELD"
	EventCommanderZoneChoice  EventType = "COMMANDER_ZONE_CHOICE"

	// Combat
	EventAttackerDeclared EventType = "ATTACKER_DECLARED"
	EventBlockerDeclared  EventType = "BLOCKER_DECLARED"
	EventCombatDamage     EventType = "COMBAT_DAMAGE"
	EventRulesViolation   EventType = "RULES_VIOLATION"

	// Players
	EventPlayerEliminated EventType = "PLAYER_ELIMINATED"
	EventGameOver         EventType = "GAME_OVER"

	// Politics
	EventBecomesMonarch EventType = "BECOMES_MONARCH"
	EventMonarchDraw    EventType = "MONARCH_DRAW"
	EventTookInitiative EventType = "TOOK_INITIATIVE"
	EventVoteStarted    EventType = "VOTE_STARTED"
	EventVoteCompleted  EventType = "VOTE_COMPLETED"
	EventDealChanged    EventType = "DEAL_CHANGED"
)

// Event is the envelope published on the EventBus for every outbound
// notification. Payload carries the typed notification value.
type Event struct {
	Type    EventType
	Turn    int
	Step    TurnStep
	Player  entity.ID
	Payload any
}

// Listener defines a callback that reacts to incoming events.
type Listener func(Event)

// TypedListener defines a callback that reacts to a specific event type.
type TypedListener struct {
	Handle    int
	EventType EventType
	Callback  func(Event)
}

// EventBus provides a synchronous publish/subscribe implementation with type
// filtering. Listeners run in subscription order.
type EventBus struct {
	mu             sync.RWMutex
	listeners      map[int]Listener
	typedListeners map[EventType][]TypedListener
	nextHandle     int
}

// NewEventBus constructs a fresh event bus instance.
func NewEventBus() *EventBus {
	return &EventBus{
		listeners:      make(map[int]Listener),
		typedListeners: make(map[EventType][]TypedListener),
	}
}

// Subscribe registers a listener for all events and returns a handle.
func (bus *EventBus) Subscribe(listener Listener) int {
	if listener == nil {
		return -1
	}
	bus.mu.Lock()
	defer bus.mu.Unlock()
	handle := bus.nextHandle
	bus.nextHandle++
	bus.listeners[handle] = listener
	return handle
}

// SubscribeTyped registers a listener for a specific event type.
func (bus *EventBus) SubscribeTyped(eventType EventType, callback func(Event)) int {
	if callback == nil {
		return -1
	}
	bus.mu.Lock()
	defer bus.mu.Unlock()
	handle := bus.nextHandle
	bus.nextHandle++
	bus.typedListeners[eventType] = append(bus.typedListeners[eventType], TypedListener{
		Handle:    handle,
		EventType: eventType,
		Callback:  callback,
	})
	return handle
}

// Unsubscribe removes the listener identified by the provided handle.
func (bus *EventBus) Unsubscribe(handle int) {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	delete(bus.listeners, handle)
	for eventType, listeners := range bus.typedListeners {
		for i := len(listeners) - 1; i >= 0; i-- {
			if listeners[i].Handle == handle {
				bus.typedListeners[eventType] = append(listeners[:i], listeners[i+1:]...)
				break
			}
		}
	}
}

// Publish delivers the event to all registered listeners synchronously.
func (bus *EventBus) Publish(event Event) {
	bus.mu.RLock()
	handles := make([]int, 0, len(bus.listeners))
	for h := range bus.listeners {
		handles = append(handles, h)
	}
	sort.Ints(handles)
	all := make([]Listener, 0, len(handles))
	for _, h := range handles {
		all = append(all, bus.listeners[h])
	}
	typed := append([]TypedListener(nil), bus.typedListeners[event.Type]...)
	bus.mu.RUnlock()

	for _, listener := range all {
		listener(event)
	}
	for _, listener := range typed {
		listener.Callback(event)
	}
}
