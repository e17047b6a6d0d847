package rules

import (
	"testing"
)

func TestEventBusSubscribeTyped(t *testing.T) {
	bus := NewEventBus()

	resolvedCount := 0
	damageCount := 0

	handle1 := bus.SubscribeTyped(EventStackItemResolved, func(e Event) {
		resolvedCount++
	})
	bus.SubscribeTyped(EventCombatDamage, func(e Event) {
		damageCount++
	})

	bus.Publish(Event{Type: EventStackItemResolved})
	if resolvedCount != 1 || damageCount != 0 {
		t.Fatalf("expected 1/0, got %d/%d", resolvedCount, damageCount)
	}

	bus.Publish(Event{Type: EventCombatDamage, Payload: 3})
	if resolvedCount != 1 || damageCount != 1 {
		t.Fatalf("expected 1/1, got %d/%d", resolvedCount, damageCount)
	}

	bus.Unsubscribe(handle1)
	bus.Publish(Event{Type: EventStackItemResolved})
	if resolvedCount != 1 {
		t.Fatalf("expected resolved count still 1 after unsubscribe, got %d", resolvedCount)
	}
}

func TestEventBusSubscribeAllInOrder(t *testing.T) {
	bus := NewEventBus()

	var order []int
	bus.Subscribe(func(Event) { order = append(order, 1) })
	bus.Subscribe(func(Event) { order = append(order, 2) })
	bus.Subscribe(func(Event) { order = append(order, 3) })

	bus.Publish(Event{Type: EventNextPhase})
	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Fatalf("expected listeners in subscription order, got %v", order)
	}
}

func TestEventBusIgnoresNilListeners(t *testing.T) {
	bus := NewEventBus()
	if h := bus.Subscribe(nil); h != -1 {
		t.Fatalf("expected -1 handle for nil listener, got %d", h)
	}
	if h := bus.SubscribeTyped(EventTurnStart, nil); h != -1 {
		t.Fatalf("expected -1 handle for nil typed listener, got %d", h)
	}
	bus.Publish(Event{Type: EventTurnStart})
}

func TestEventBusListenerMaySubscribe(t *testing.T) {
	bus := NewEventBus()
	calls := 0
	bus.Subscribe(func(Event) {
		calls++
		if calls == 1 {
			bus.Subscribe(func(Event) {})
		}
	})
	bus.Publish(Event{Type: EventTurnEnd})
	if calls != 1 {
		t.Fatalf("expected one call, got %d", calls)
	}
}
