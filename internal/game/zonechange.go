package game

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/magefree/mage-commander/internal/game/cards"
	"github.com/magefree/mage-commander/internal/game/commander"
	"github.com/magefree/mage-commander/internal/game/entity"
	"github.com/magefree/mage-commander/internal/game/mana"
	"github.com/magefree/mage-commander/internal/game/rules"
	"github.com/magefree/mage-commander/internal/game/zones"
	"go.uber.org/zap"
)

// processZoneChanges applies zone-change intents in arrival order. A move
// to the stack is a cast.
func (sc *SimulationContext) processZoneChanges() {
	for _, ev := range sc.Inbox.ZoneChanges.Drain() {
		if sc.over {
			return
		}
		var err error
		if ev.DestinationZone == zones.Stack {
			err = sc.cast(ev)
		} else {
			err = sc.applyZoneChange(ev)
		}
		if err != nil {
			sc.ignored("zone_change", ev.Owner, err)
		}
	}
}

func (sc *SimulationContext) canCast(player entity.ID, def cards.Card) bool {
	ts := sc.turns.Current()
	if !ts.AllowsActions() || def.Types.Has(cards.TypeLand) {
		return false
	}
	if def.HasInstantTiming() {
		return true
	}
	return player == sc.turns.ActivePlayer() && ts.AllowsSorcerySpeed() && sc.stack.IsEmpty()
}

// cast puts a card from its owner's hand or the command zone on the stack.
// Casting from the command zone adds the commander tax.
func (sc *SimulationContext) cast(ev ZoneChangeEvent) error {
	def, ok := sc.cards[ev.Card]
	if !ok {
		return fmt.Errorf("cast %s: %w", ev.Card, ErrUnknownCard)
	}
	if !sc.priority.HasPriority(ev.Owner) {
		return fmt.Errorf("cast %s: %w", def.Name, ErrNotPriorityHolder)
	}
	if owner, ok := sc.zones.CardOwner(ev.Card); !ok || owner != ev.Owner {
		return fmt.Errorf("cast %s owned by %s as %s: %w", def.Name, owner, ev.Owner, zones.ErrWrongOwner)
	}
	fromCommand := ev.SourceZone == zones.Command
	if ev.SourceZone != zones.Hand && !(fromCommand && sc.commanders.IsCommander(ev.Card)) {
		return fmt.Errorf("cast %s from %s: %w", def.Name, ev.SourceZone, ErrCannotCastFrom)
	}
	if !sc.canCast(ev.Owner, def) {
		return fmt.Errorf("cast %s in %s: %w", def.Name, sc.turns.Current(), ErrWrongTiming)
	}

	description := def.Name
	if fromCommand {
		if base, err := mana.ParseCost(def.ManaCost); err == nil {
			description = fmt.Sprintf("%s for %s", def.Name, sc.commanders.EffectiveCost(ev.Card, base))
		}
	}
	if err := sc.moveCard(ev.Card, ev.Owner, ev.SourceZone, zones.Stack, false); err != nil {
		return err
	}
	if fromCommand {
		if _, err := sc.commanders.RecordCast(ev.Card); err != nil {
			return err
		}
	}

	sc.pushStackItem(rules.StackItem{
		ID:          uuid.New().String(),
		Controller:  ev.Owner,
		Kind:        rules.StackItemKindSpell,
		Card:        ev.Card,
		SourceID:    ev.Card,
		Description: description,
	})
	return nil
}

func (sc *SimulationContext) pushStackItem(item rules.StackItem) {
	sc.stack.Push(item)
	publish(sc, &sc.Outbox.StackItemAdded, rules.EventStackItemAdded, item.Controller, StackItemAddedEvent{Item: item})
	sc.priority.ResetAfterStackAction(sc.turns.PlayersInGame(), sc.turns.ActivePlayer())
}

// applyZoneChange moves a card on behalf of an external effect. Leaving the
// stack this way removes the card's stack item.
func (sc *SimulationContext) applyZoneChange(ev ZoneChangeEvent) error {
	if _, ok := sc.cards[ev.Card]; !ok {
		return fmt.Errorf("move %s: %w", ev.Card, ErrUnknownCard)
	}
	owner, ok := sc.zones.CardOwner(ev.Card)
	if !ok {
		return fmt.Errorf("move %s: %w", ev.Card, zones.ErrCardNotInZone)
	}
	if ev.Owner.Valid() && ev.Owner != owner {
		return fmt.Errorf("move %s owned by %s as %s: %w", ev.Card, owner, ev.Owner, zones.ErrWrongOwner)
	}
	if err := sc.moveCard(ev.Card, owner, ev.SourceZone, ev.DestinationZone, true); err != nil {
		return err
	}
	if ev.SourceZone == zones.Stack {
		sc.removeStackItemsFor(ev.Card)
	}
	return nil
}

func (sc *SimulationContext) removeStackItemsFor(card entity.ID) {
	for _, item := range sc.stack.List() {
		if item.Card == card {
			sc.stack.Remove(item.ID)
		}
	}
	sc.priority.SetStackEmpty(sc.stack.IsEmpty())
}

// moveCard is the single path for zone changes. It keeps combat, politics
// and commander bookkeeping in step with the zone manager, and offers the
// command-zone replacement when a commander lands in a zone that allows it.
func (sc *SimulationContext) moveCard(card, owner entity.ID, from, to zones.Zone, offerReplacement bool) error {
	if err := sc.zones.MoveCard(card, owner, from, to); err != nil {
		return err
	}
	if from == to {
		return nil
	}
	if from == zones.Battlefield {
		sc.combat.Remove(card)
		sc.politics.ForgetCreature(card)
	}
	sc.commanders.SetLocation(card, to)

	publish(sc, &sc.Outbox.ZoneChanges, rules.EventZoneChange, owner, ZoneChangeEvent{
		Card:            card,
		Owner:           owner,
		SourceZone:      from,
		DestinationZone: to,
		WasVisible:      from.Public(),
		IsVisible:       to.Public(),
	})
	if to == zones.Battlefield {
		publish(sc, &sc.Outbox.EntersBattlefield, rules.EventEntersTheBattlefield, owner, EntersBattlefieldEvent{
			Permanent: card,
			Owner:     owner,
		})
	}
	sc.logger.Debug("moved card",
		zap.Uint32("card", uint32(card)),
		zap.Stringer("source_zone", from),
		zap.Stringer("target_zone", to),
	)

	if offerReplacement && sc.commanders.IsCommander(card) && commander.OffersReplacement(to) {
		if _, err := sc.commanders.BeginChoice(card, from, to, sc.clock+sc.settings.CommanderChoiceTimeout); err == nil {
			publish(sc, &sc.Outbox.CommanderChoice, rules.EventCommanderZoneChoice, owner, CommanderZoneChoiceEvent{
				Commander:          card,
				Owner:              owner,
				CurrentZone:        to,
				CanGoToCommandZone: true,
			})
		}
	}
	return nil
}

// processCommanderChoices applies owners' answers, then sends every
// commander whose decision timed out to the command zone.
func (sc *SimulationContext) processCommanderChoices() {
	for _, ev := range sc.Inbox.CommanderChoice.Drain() {
		choice, err := sc.commanders.ResolveChoice(ev.Commander, ev.Owner, ev.MoveToCommandZone)
		if err != nil {
			sc.ignored("commander_zone_choice", ev.Owner, err)
			continue
		}
		sc.finishChoice(choice, ev.MoveToCommandZone)
	}
	for _, expired := range sc.commanders.Expired(sc.clock) {
		choice, err := sc.commanders.ResolveChoice(expired.Commander, expired.Owner, true)
		if err != nil {
			continue
		}
		sc.logger.Debug("commander zone choice timed out",
			zap.Uint32("commander", uint32(choice.Commander)),
		)
		sc.finishChoice(choice, true)
	}
}

func (sc *SimulationContext) finishChoice(choice commander.PendingChoice, toCommandZone bool) {
	if !toCommandZone {
		return
	}
	if err := sc.moveCard(choice.Commander, choice.Owner, choice.Destination, zones.Command, false); err != nil {
		// The card moved on before the owner answered.
		if z, ok := sc.zones.CardZone(choice.Commander); ok {
			sc.commanders.SetLocation(choice.Commander, z)
		}
		sc.logger.Warn("commander left the zone before its choice resolved",
			zap.Uint32("commander", uint32(choice.Commander)),
			zap.Error(err),
		)
	}
}

// resolveSpell puts a resolving permanent spell onto the battlefield and
// anything else into its owner's graveyard.
func (sc *SimulationContext) resolveSpell(item rules.StackItem) {
	def := sc.cards[item.Card]
	owner, ok := sc.zones.CardOwner(item.Card)
	if !ok {
		return
	}
	dest := zones.Graveyard
	if def.IsPermanent() {
		dest = zones.Battlefield
	}
	if err := sc.moveCard(item.Card, owner, zones.Stack, dest, true); err != nil {
		sc.logger.Warn("resolving spell was not on the stack",
			zap.String("item_id", item.ID),
			zap.Error(err),
		)
	}
}

// processStackIntents handles ability activations and counters.
func (sc *SimulationContext) processStackIntents() {
	for _, ev := range sc.Inbox.Activations.Drain() {
		if err := sc.activate(ev); err != nil {
			sc.ignored("activate_ability", ev.Player, err)
		}
	}
	for _, ev := range sc.Inbox.Counters.Drain() {
		if err := sc.counter(ev); err != nil {
			sc.ignored("counter_item", ev.Player, err)
		}
	}
}

func (sc *SimulationContext) activate(ev ActivateAbilityEvent) error {
	if !sc.priority.HasPriority(ev.Player) {
		return ErrNotPriorityHolder
	}
	if !sc.turns.Current().AllowsActions() {
		return ErrWrongStep
	}
	perm, ok := sc.zones.Permanent(ev.Source)
	if !ok {
		return fmt.Errorf("activate %s: %w", ev.Source, zones.ErrNotOnBattlefield)
	}
	if perm.Controller != ev.Player {
		return fmt.Errorf("activate %s: %w", ev.Source, ErrNotController)
	}
	description := ev.Description
	if description == "" {
		description = sc.cards[ev.Source].Name + " ability"
	}
	sc.pushStackItem(rules.StackItem{
		ID:          uuid.New().String(),
		Controller:  ev.Player,
		Kind:        rules.StackItemKindActivated,
		SourceID:    ev.Source,
		Description: description,
	})
	return nil
}

// counter removes a stack item without resolving it. A countered spell card
// goes to its owner's graveyard.
func (sc *SimulationContext) counter(ev CounterItemEvent) error {
	if !sc.inGame(ev.Player) {
		return ErrNotInGame
	}
	item, err := sc.stack.Counter(ev.ItemID)
	if err != nil {
		return err
	}
	reason := ev.Reason
	if reason == "" {
		reason = rules.CounterReasonCounterSpell
	}
	if item.Card.Valid() {
		if owner, ok := sc.zones.CardOwner(item.Card); ok {
			if err := sc.moveCard(item.Card, owner, zones.Stack, zones.Graveyard, true); err != nil {
				sc.logger.Warn("countered spell was not on the stack", zap.Error(err))
			}
		}
	}
	publish(sc, &sc.Outbox.Countered, rules.EventEffectCountered, ev.Player, EffectCounteredEvent{Item: item, Reason: reason})
	sc.priority.ResetAfterResolution(sc.turns.PlayersInGame(), sc.turns.ActivePlayer(), sc.stack.IsEmpty())
	return nil
}
