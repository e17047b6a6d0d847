package game

import (
	"fmt"
	"sort"
	"time"

	"github.com/magefree/mage-commander/internal/game/cards"
	"github.com/magefree/mage-commander/internal/game/commander"
	"github.com/magefree/mage-commander/internal/game/entity"
	"github.com/magefree/mage-commander/internal/game/rules"
	"github.com/magefree/mage-commander/internal/game/zones"
	"go.uber.org/zap"
)

const snapshotVersion = 1

// noIndex marks an absent player or card reference in a snapshot.
const noIndex = -1

// Snapshot is the persisted form of a game. Players are referenced by their
// position in Players and cards by their position in Cards, so a snapshot
// carries no arena handles.
type Snapshot struct {
	Version        int
	GameID         string
	Clock          time.Duration
	Turn           int
	Step           rules.Step
	ActivePlayer   int
	PriorityPlayer int
	TurnOrder      []int

	Players     []PlayerSnapshot
	Cards       []CardSnapshot
	Battlefield []PermanentSnapshot
	Stack       []int
	Exile       []int
	Command     []int
	StackItems  []StackItemSnapshot
	Commanders  []CommanderSnapshot

	Monarch    int
	Initiative int
	Goads      []EffectSnapshot
	Vows       []EffectSnapshot

	Over   bool
	Winner int
}

type PlayerSnapshot struct {
	Name              string
	Life              int
	Eliminated        bool
	EliminationReason string
	Library           []int
	Hand              []int
	Graveyard         []int
}

// CardSnapshot is one arena slot. A nil Definition restores as a
// placeholder card.
type CardSnapshot struct {
	Owner      int
	Definition *cards.Card
}

type PermanentSnapshot struct {
	Card          int
	Controller    int
	Tapped        bool
	SummoningSick bool
	EnteredTurn   int
	Damage        int
}

type StackItemSnapshot struct {
	ID          string
	Controller  int
	Kind        rules.StackItemKind
	Card        int
	Source      int
	Description string
}

type CommanderSnapshot struct {
	Card    int
	Casts   int
	Damage  []CommanderDamageSnapshot
	Pending *PendingChoiceSnapshot
}

type CommanderDamageSnapshot struct {
	Player int
	Total  int
}

type PendingChoiceSnapshot struct {
	Source      zones.Zone
	Destination zones.Zone
	Deadline    time.Duration
}

type EffectSnapshot struct {
	Creature    int
	Source      int
	Duration    int
	CreatedTurn int
}

// indexer maps arena handles to snapshot positions.
type indexer struct {
	players map[entity.ID]int
	cards   map[entity.ID]int
}

func (ix indexer) player(id entity.ID) int {
	if i, ok := ix.players[id]; ok {
		return i
	}
	return noIndex
}

func (ix indexer) card(id entity.ID) int {
	if i, ok := ix.cards[id]; ok {
		return i
	}
	return noIndex
}

func (ix indexer) cardList(ids []entity.ID) []int {
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		out = append(out, ix.card(id))
	}
	return out
}

// Snapshot captures the game state.
func (sc *SimulationContext) Snapshot() *Snapshot {
	ix := indexer{players: make(map[entity.ID]int), cards: make(map[entity.ID]int)}
	for i, p := range sc.seating {
		ix.players[p] = i
	}
	handles := sortedCardHandles(sc.cards)
	for i, id := range handles {
		ix.cards[id] = i
	}

	snap := &Snapshot{
		Version:        snapshotVersion,
		GameID:         sc.ID,
		Clock:          sc.clock,
		Turn:           sc.turns.TurnNumber(),
		Step:           sc.turns.CurrentStep(),
		ActivePlayer:   ix.player(sc.turns.ActivePlayer()),
		PriorityPlayer: ix.player(sc.priority.PriorityPlayer()),
		Monarch:        noIndex,
		Initiative:     noIndex,
		Over:           sc.over,
		Winner:         ix.player(sc.winner),
	}
	for _, p := range sc.turns.TurnOrder() {
		snap.TurnOrder = append(snap.TurnOrder, ix.player(p))
	}

	for _, id := range sc.seating {
		p := sc.players[id]
		snap.Players = append(snap.Players, PlayerSnapshot{
			Name:              p.Name,
			Life:              p.Life,
			Eliminated:        p.Eliminated,
			EliminationReason: p.EliminationReason,
			Library:           ix.cardList(sc.zones.Cards(zones.Library, id)),
			Hand:              ix.cardList(sc.zones.Cards(zones.Hand, id)),
			Graveyard:         ix.cardList(sc.zones.Cards(zones.Graveyard, id)),
		})
	}
	for _, id := range handles {
		def := sc.cards[id]
		owner, _ := sc.zones.CardOwner(id)
		snap.Cards = append(snap.Cards, CardSnapshot{Owner: ix.player(owner), Definition: &def})
	}

	for _, card := range sc.zones.Cards(zones.Battlefield, entity.None) {
		perm, ok := sc.zones.Permanent(card)
		if !ok {
			continue
		}
		snap.Battlefield = append(snap.Battlefield, PermanentSnapshot{
			Card:          ix.card(card),
			Controller:    ix.player(perm.Controller),
			Tapped:        perm.Tapped,
			SummoningSick: perm.SummoningSick,
			EnteredTurn:   perm.EnteredTurn,
			Damage:        perm.Damage,
		})
	}
	snap.Stack = ix.cardList(sc.zones.Cards(zones.Stack, entity.None))
	snap.Exile = ix.cardList(sc.zones.Cards(zones.Exile, entity.None))
	snap.Command = ix.cardList(sc.zones.Cards(zones.Command, entity.None))

	for _, item := range sc.stack.List() {
		snap.StackItems = append(snap.StackItems, StackItemSnapshot{
			ID:          item.ID,
			Controller:  ix.player(item.Controller),
			Kind:        item.Kind,
			Card:        ix.card(item.Card),
			Source:      ix.card(item.SourceID),
			Description: item.Description,
		})
	}

	for _, c := range sc.commanders.All() {
		cs := CommanderSnapshot{Card: ix.card(c.Card), Casts: sc.commanders.CastCount(c.Card)}
		for _, d := range c.DamageDealt() {
			cs.Damage = append(cs.Damage, CommanderDamageSnapshot{Player: ix.player(d.Player), Total: d.Total})
		}
		if p, ok := sc.commanders.Pending(c.Card); ok {
			cs.Pending = &PendingChoiceSnapshot{Source: p.Source, Destination: p.Destination, Deadline: p.Deadline}
		}
		snap.Commanders = append(snap.Commanders, cs)
	}

	if m, ok := sc.politics.Monarch(); ok {
		snap.Monarch = ix.player(m)
	}
	if p, ok := sc.politics.Initiative(); ok {
		snap.Initiative = ix.player(p)
	}
	for _, creature := range sc.politics.GoadedCreatures() {
		for _, e := range sc.politics.Goads(creature) {
			snap.Goads = append(snap.Goads, EffectSnapshot{ix.card(creature), ix.player(e.Source), e.Duration, e.CreatedTurn})
		}
	}
	for _, creature := range sc.politics.VowedCreatures() {
		for _, e := range sc.politics.Vows(creature) {
			snap.Vows = append(snap.Vows, EffectSnapshot{ix.card(creature), ix.player(e.Source), e.Duration, e.CreatedTurn})
		}
	}
	return snap
}

func sortedCardHandles(m map[entity.ID]cards.Card) []entity.ID {
	out := make([]entity.ID, 0, len(m))
	for id := range m {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// RestoreReport lists every fallback applied while restoring a snapshot.
type RestoreReport struct {
	Fallbacks []string
}

func (r *RestoreReport) add(format string, args ...any) {
	r.Fallbacks = append(r.Fallbacks, fmt.Sprintf(format, args...))
}

// Clean reports whether the snapshot restored without fallbacks.
func (r RestoreReport) Clean() bool {
	return len(r.Fallbacks) == 0
}

// restorer carries the index→handle tables while a snapshot is rebuilt.
type restorer struct {
	sc      *SimulationContext
	snap    *Snapshot
	report  *RestoreReport
	players []entity.ID
	cards   []entity.ID
	owners  []entity.ID
}

func (r *restorer) player(i int) (entity.ID, bool) {
	if i < 0 || i >= len(r.players) {
		return entity.None, false
	}
	return r.players[i], true
}

func (r *restorer) card(i int) (entity.ID, bool) {
	if i < 0 || i >= len(r.cards) {
		return entity.None, false
	}
	return r.cards[i], true
}

// place puts card index i into zone. Per-player zones use the owner of the
// zone; shared zones use the card's recorded owner.
func (r *restorer) place(i int, zone zones.Zone, zoneOwner entity.ID) (entity.ID, bool) {
	card, ok := r.card(i)
	if !ok {
		r.report.add("%s: card index %d out of range, dropped", zone, i)
		return entity.None, false
	}
	owner := zoneOwner
	if !zone.PerPlayer() {
		owner = r.owners[i]
	}
	if !owner.Valid() {
		r.report.add("%s: card %d has no owner, dropped", zone, i)
		return entity.None, false
	}
	if err := r.sc.zones.Place(card, owner, zone); err != nil {
		r.report.add("%s: card %d: %v, dropped", zone, i, err)
		return entity.None, false
	}
	return card, true
}

// Restore rebuilds a game from a snapshot. It never fails: every
// inconsistency is repaired with a fallback and listed in the report.
func Restore(snap *Snapshot, settings Settings, logger *zap.Logger) (*SimulationContext, RestoreReport) {
	var report RestoreReport
	if snap == nil {
		snap = &Snapshot{}
		report.add("nil snapshot")
	}
	sc := newContext(snap.GameID, settings, logger)
	sc.clock = snap.Clock
	r := &restorer{sc: sc, snap: snap, report: &report}

	if len(snap.Players) == 0 {
		report.add("snapshot has no players, game restored as over")
		sc.zones = zones.NewManager(nil)
		sc.turns = rules.NewTurnManager(nil)
		sc.priority.Initialize(nil, entity.None)
		sc.over = true
		sc.logRestore(report)
		return sc, report
	}

	var eliminated []entity.ID
	for _, ps := range snap.Players {
		id := sc.handles.Next()
		name := ps.Name
		if name == "" {
			name = id.String()
		}
		sc.players[id] = &Player{
			ID:                id,
			Name:              name,
			Life:              ps.Life,
			Eliminated:        ps.Eliminated,
			EliminationReason: ps.EliminationReason,
		}
		sc.seating = append(sc.seating, id)
		if ps.Eliminated {
			eliminated = append(eliminated, id)
		}
	}
	r.players = sc.seating
	sc.zones = zones.NewManager(sc.seating)

	for i, cs := range snap.Cards {
		def := cards.Placeholder()
		if cs.Definition != nil {
			def = *cs.Definition
		} else {
			report.add("card %d: missing definition, placeholder used", i)
		}
		r.cards = append(r.cards, sc.newCard(def))
		owner, ok := r.player(cs.Owner)
		if !ok {
			report.add("card %d: owner index %d out of range", i, cs.Owner)
		}
		r.owners = append(r.owners, owner)
	}

	r.restoreZones()
	r.restoreTurn(eliminated)
	r.restoreCommanders()
	r.restoreStack()
	r.restorePolitics()
	r.restorePriority()

	if sc.turns.Current().IsCombat() {
		sc.combat.Begin()
		sc.syncRestrictions()
	}
	sc.over = snap.Over
	if winner, ok := r.player(snap.Winner); ok {
		sc.winner = winner
	}
	if err := sc.zones.Validate(); err != nil {
		report.add("zone index inconsistent: %v", err)
	}
	sc.logRestore(report)
	return sc, report
}

func (r *restorer) restoreZones() {
	sc, snap := r.sc, r.snap
	for pi, ps := range snap.Players {
		owner := r.players[pi]
		for _, i := range ps.Library {
			r.place(i, zones.Library, owner)
		}
		for _, i := range ps.Hand {
			r.place(i, zones.Hand, owner)
		}
		for _, i := range ps.Graveyard {
			r.place(i, zones.Graveyard, owner)
		}
	}
	for _, i := range snap.Command {
		r.place(i, zones.Command, entity.None)
	}
	for _, i := range snap.Exile {
		r.place(i, zones.Exile, entity.None)
	}
	for _, i := range snap.Stack {
		r.place(i, zones.Stack, entity.None)
	}
	for _, ps := range snap.Battlefield {
		card, ok := r.place(ps.Card, zones.Battlefield, entity.None)
		if !ok {
			continue
		}
		controller, ok := r.player(ps.Controller)
		if !ok {
			controller = r.owners[ps.Card]
			r.report.add("permanent %d: controller index %d out of range, owner used", ps.Card, ps.Controller)
		}
		_ = sc.zones.RestorePermanent(zones.Permanent{
			Card:          card,
			Controller:    controller,
			Tapped:        ps.Tapped,
			SummoningSick: ps.SummoningSick,
			EnteredTurn:   ps.EnteredTurn,
			Damage:        ps.Damage,
		})
	}
}

func (r *restorer) restoreTurn(eliminated []entity.ID) {
	snap, report := r.snap, r.report
	seen := entity.NewSet()
	var order []entity.ID
	for _, i := range snap.TurnOrder {
		p, ok := r.player(i)
		if !ok || seen.Has(p) {
			report.add("turn order: index %d invalid or duplicate, dropped", i)
			continue
		}
		seen.Add(p)
		order = append(order, p)
	}
	if len(order) == 0 {
		report.add("turn order empty, derived from players")
		order = append(order, r.players...)
	}

	active, ok := r.player(snap.ActivePlayer)
	if !ok {
		report.add("active player index %d out of range, using 0", snap.ActivePlayer)
		active = r.players[0]
	}
	turn := snap.Turn
	if turn < 1 {
		report.add("turn number %d, using 1", turn)
		turn = 1
	}
	current, ok := rules.TurnStepFor(snap.Step)
	if !ok {
		report.add("unknown step %d, using untap", int(snap.Step))
		current = rules.FirstStep()
	}
	r.sc.turns = rules.RestoreTurnManager(order, active, turn, current, eliminated)
	r.sc.zones.SetTurn(turn)
}

func (r *restorer) restoreCommanders() {
	sc := r.sc
	for _, cs := range r.snap.Commanders {
		card, ok := r.card(cs.Card)
		if !ok {
			r.report.add("commander: card index %d out of range, dropped", cs.Card)
			continue
		}
		owner := r.owners[cs.Card]
		if _, err := sc.commanders.Register(owner, card, sc.cards[card]); err != nil {
			r.report.add("commander %d: %v, dropped", cs.Card, err)
			continue
		}
		var damage []commander.DamageEntry
		for _, d := range cs.Damage {
			if p, ok := r.player(d.Player); ok {
				damage = append(damage, commander.DamageEntry{Player: p, Total: d.Total})
			}
		}
		loc := commander.InCommandZone
		if z, ok := sc.zones.CardZone(card); ok {
			loc = commander.LocationOf(z)
		}
		_ = sc.commanders.Restore(card, loc, cs.Casts, damage)
		if cs.Pending != nil {
			_, _ = sc.commanders.BeginChoice(card, cs.Pending.Source, cs.Pending.Destination, cs.Pending.Deadline)
		}
	}
}

func (r *restorer) restoreStack() {
	for _, is := range r.snap.StackItems {
		controller, ok := r.player(is.Controller)
		if !ok {
			r.report.add("stack item %s: controller index %d out of range, dropped", is.ID, is.Controller)
			continue
		}
		card, _ := r.card(is.Card)
		if card.Valid() {
			if z, ok := r.sc.zones.CardZone(card); !ok || z != zones.Stack {
				r.report.add("stack item %s: card %d is not on the stack", is.ID, is.Card)
				card = entity.None
			}
		}
		source, _ := r.card(is.Source)
		r.sc.stack.Push(rules.StackItem{
			ID:          is.ID,
			Controller:  controller,
			Kind:        is.Kind,
			Card:        card,
			SourceID:    source,
			Description: is.Description,
		})
	}
}

func (r *restorer) restorePolitics() {
	pol := r.sc.politics
	if m, ok := r.player(r.snap.Monarch); ok {
		pol.SetMonarch(m)
	}
	if p, ok := r.player(r.snap.Initiative); ok {
		pol.TakeInitiative(p)
	}
	restore := func(kind string, effects []EffectSnapshot, apply func(creature, source entity.ID, duration, turn int)) {
		for _, e := range effects {
			creature, okc := r.card(e.Creature)
			source, oks := r.player(e.Source)
			if !okc || !oks {
				r.report.add("%s on card %d from player %d: index out of range, dropped", kind, e.Creature, e.Source)
				continue
			}
			apply(creature, source, e.Duration, e.CreatedTurn)
		}
	}
	restore("goad", r.snap.Goads, pol.Goad)
	restore("vow", r.snap.Vows, pol.Vow)
}

func (r *restorer) restorePriority() {
	sc := r.sc
	sc.priority.Initialize(sc.turns.PlayersInGame(), sc.turns.ActivePlayer())
	sc.priority.SetStackEmpty(sc.stack.IsEmpty())
	holder, ok := r.player(r.snap.PriorityPlayer)
	if !ok {
		r.report.add("priority player index %d out of range, using 0", r.snap.PriorityPlayer)
		holder = r.players[0]
	}
	for i := 0; i < len(r.players) && sc.priority.PriorityPlayer() != holder; i++ {
		sc.priority.PassPriority()
	}
	if sc.priority.PriorityPlayer() != holder {
		r.report.add("priority holder %d is not in the rotation", r.snap.PriorityPlayer)
		sc.priority.Initialize(sc.turns.PlayersInGame(), sc.turns.ActivePlayer())
		sc.priority.SetStackEmpty(sc.stack.IsEmpty())
	}
}

func (sc *SimulationContext) logRestore(report RestoreReport) {
	for _, f := range report.Fallbacks {
		sc.logger.Warn("restore fallback", zap.String("detail", f))
	}
	sc.logger.Info("game restored",
		zap.Int("players", len(sc.seating)),
		zap.Int("cards", len(sc.cards)),
		zap.Int("fallbacks", len(report.Fallbacks)),
	)
}
