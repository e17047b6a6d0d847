package game

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrNoTurnSnapshot is returned by Rollback when the requested turn was not
// kept.
var ErrNoTurnSnapshot = errors.New("no snapshot for turn")

// SnapshotSink persists encoded snapshots. storage.SnapshotStore satisfies it.
type SnapshotSink interface {
	Save(ctx context.Context, gameID string, turn int, data []byte) error
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithSnapshotSink persists a snapshot of every game at each turn start.
func WithSnapshotSink(sink SnapshotSink) EngineOption {
	return func(e *Engine) { e.sink = sink }
}

// WithReplayRecorder records one replay frame per turn start.
func WithReplayRecorder(rr *ReplayRecorder) EngineOption {
	return func(e *Engine) { e.replays = rr }
}

// WithRollbackTurns sets how many turn-start snapshots are kept per game for
// Rollback. Zero disables rollback.
func WithRollbackTurns(n int) EngineOption {
	return func(e *Engine) { e.rollbackTurnsMax = n }
}

type engineGame struct {
	mu       sync.Mutex
	sc       *SimulationContext
	finished bool
}

// Engine runs many games on one fixed-rate clock. Each game is only ever
// touched by one goroutine at a time.
type Engine struct {
	logger   *zap.Logger
	settings Settings

	mu    sync.RWMutex
	games map[string]*engineGame

	sink    SnapshotSink
	replays *ReplayRecorder

	// gameID -> turn -> encoded snapshot taken at that turn's start
	turnSnapshots    map[string]map[int][]byte
	rollbackTurnsMax int
}

// NewEngine creates an engine with no games.
func NewEngine(settings Settings, logger *zap.Logger, opts ...EngineOption) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{
		logger:           logger,
		settings:         settings,
		games:            make(map[string]*engineGame),
		turnSnapshots:    make(map[string]map[int][]byte),
		rollbackTurnsMax: 4,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Settings returns the engine's rules settings.
func (e *Engine) Settings() Settings {
	return e.settings
}

func (e *Engine) add(sc *SimulationContext) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.games[sc.ID]; exists {
		return fmt.Errorf("game %s: %w", sc.ID, ErrGameExists)
	}
	e.games[sc.ID] = &engineGame{sc: sc}
	return nil
}

func (e *Engine) game(gameID string) (*engineGame, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	g, ok := e.games[gameID]
	if !ok {
		return nil, fmt.Errorf("game %s: %w", gameID, ErrGameNotFound)
	}
	return g, nil
}

// StartGame creates a game and records its turn-1 snapshot.
func (e *Engine) StartGame(ctx context.Context, setup GameSetup) (string, error) {
	if setup.ID != "" {
		if _, err := e.game(setup.ID); err == nil {
			return "", fmt.Errorf("game %s: %w", setup.ID, ErrGameExists)
		}
	}
	sc, err := NewSimulationContext(setup, e.settings, e.logger)
	if err != nil {
		return "", err
	}
	if err := e.add(sc); err != nil {
		return "", err
	}
	e.turnStarted(ctx, sc)
	return sc.ID, nil
}

// RestoreGame adds a game rebuilt from a snapshot.
func (e *Engine) RestoreGame(snap *Snapshot) (string, RestoreReport, error) {
	sc, report := Restore(snap, e.settings, e.logger)
	if err := e.add(sc); err != nil {
		return "", report, err
	}
	return sc.ID, report, nil
}

// Submit queues an intent for the game's next tick.
func (e *Engine) Submit(gameID string, intent any) error {
	g, err := e.game(gameID)
	if err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.sc.Inbox.Submit(intent)
}

// Drain returns and clears the game's notifications.
func (e *Engine) Drain(gameID string) (Notifications, error) {
	g, err := e.game(gameID)
	if err != nil {
		return Notifications{}, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.sc.Outbox.Drain(), nil
}

// View runs fn with exclusive access to the game's state. fn must not keep
// the context.
func (e *Engine) View(gameID string, fn func(sc *SimulationContext)) error {
	g, err := e.game(gameID)
	if err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	fn(g.sc)
	return nil
}

// Snapshot captures the game's current state.
func (e *Engine) Snapshot(gameID string) (*Snapshot, error) {
	var snap *Snapshot
	err := e.View(gameID, func(sc *SimulationContext) { snap = sc.Snapshot() })
	return snap, err
}

// Games returns the ids of every game, sorted.
func (e *Engine) Games() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	ids := make([]string, 0, len(e.games))
	for id := range e.games {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Tick runs one pipeline pass for every game in game-id order.
func (e *Engine) Tick(ctx context.Context) {
	for _, id := range e.Games() {
		g, err := e.game(id)
		if err != nil {
			continue
		}
		g.mu.Lock()
		g.sc.Tick()
		if g.sc.turnStarted {
			e.turnStarted(ctx, g.sc)
		}
		if over, _ := g.sc.Over(); over && !g.finished {
			g.finished = true
			e.finish(id)
		}
		g.mu.Unlock()
	}
}

// Run ticks every game at the configured tick rate until ctx is done.
func (e *Engine) Run(ctx context.Context) error {
	rate := e.settings.TickRate
	if rate <= 0 {
		rate = DefaultSettings().TickRate
	}
	ticker := time.NewTicker(rate)
	defer ticker.Stop()

	e.logger.Info("engine running", zap.Duration("tick_rate", rate))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			e.Tick(ctx)
		}
	}
}

// turnStarted encodes a turn-start snapshot and hands it to the replay
// recorder, the rollback window and the sink. Failures are logged.
func (e *Engine) turnStarted(ctx context.Context, sc *SimulationContext) {
	if e.sink == nil && e.replays == nil && e.rollbackTurnsMax <= 0 {
		return
	}
	turn := sc.Turn()
	data, err := EncodeSnapshot(sc.Snapshot())
	if err != nil {
		e.logger.Error("failed to encode turn snapshot", zap.String("game_id", sc.ID), zap.Error(err))
		return
	}
	if e.replays != nil {
		e.replays.Record(sc.ID, turn, data)
	}
	e.keepTurnSnapshot(sc.ID, turn, data)
	if e.sink != nil {
		if err := e.sink.Save(ctx, sc.ID, turn, data); err != nil {
			e.logger.Warn("failed to persist snapshot",
				zap.String("game_id", sc.ID),
				zap.Int("turn", turn),
				zap.Error(err),
			)
		}
	}
}

func (e *Engine) keepTurnSnapshot(gameID string, turn int, data []byte) {
	if e.rollbackTurnsMax <= 0 {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	turns, ok := e.turnSnapshots[gameID]
	if !ok {
		turns = make(map[int][]byte)
		e.turnSnapshots[gameID] = turns
	}
	turns[turn] = data
	for t := range turns {
		if t <= turn-e.rollbackTurnsMax {
			delete(turns, t)
		}
	}
}

// Rollback replaces the game with the snapshot taken at the start of turn.
// Queued intents and undrained notifications are discarded.
func (e *Engine) Rollback(gameID string, turn int) (RestoreReport, error) {
	g, err := e.game(gameID)
	if err != nil {
		return RestoreReport{}, err
	}
	e.mu.RLock()
	data, ok := e.turnSnapshots[gameID][turn]
	e.mu.RUnlock()
	if !ok {
		return RestoreReport{}, fmt.Errorf("game %s turn %d: %w", gameID, turn, ErrNoTurnSnapshot)
	}
	snap, err := DecodeSnapshot(data)
	if err != nil {
		return RestoreReport{}, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	sc, report := Restore(snap, e.settings, e.logger)
	g.sc = sc
	g.finished = false
	e.logger.Info("game rolled back", zap.String("game_id", gameID), zap.Int("turn", turn))
	return report, nil
}

// EndGame removes a game and finishes its replay.
func (e *Engine) EndGame(gameID string) error {
	e.mu.Lock()
	g, ok := e.games[gameID]
	delete(e.games, gameID)
	delete(e.turnSnapshots, gameID)
	e.mu.Unlock()
	if !ok {
		return fmt.Errorf("game %s: %w", gameID, ErrGameNotFound)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.finished {
		g.finished = true
		e.finish(gameID)
	}
	return nil
}

func (e *Engine) finish(gameID string) {
	if e.replays == nil {
		return
	}
	if err := e.replays.Finish(gameID); err != nil {
		e.logger.Warn("failed to finish replay", zap.String("game_id", gameID), zap.Error(err))
	}
}
