package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/magefree/mage-commander/internal/config"
	"github.com/magefree/mage-commander/internal/game"
	"github.com/magefree/mage-commander/internal/game/watchers"
	"github.com/magefree/mage-commander/internal/storage"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	configPath = flag.String("config", "config/config.yaml", "path to configuration file")
	maxTurns   = flag.Int("max-turns", -1, "stop after this many turns (overrides simulator.max_turns)")
	seed       = flag.Int64("seed", 0, "random seed (overrides engine.seed)")
	resume     = flag.String("resume", "", "resume a saved game by id instead of starting a new one")
	version    = "dev" // set via ldflags during build
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *maxTurns >= 0 {
		cfg.Simulator.MaxTurns = *maxTurns
	}
	if *seed != 0 {
		cfg.Engine.Seed = *seed
	}

	logger, err := initLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting commander simulator",
		zap.String("version", version),
		zap.String("config", *configPath),
		zap.Strings("players", cfg.Simulator.Players),
		zap.Int64("seed", cfg.Engine.Seed),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *resume, logger); err != nil {
		logger.Error("simulation failed", zap.Error(err))
		os.Exit(1)
	}
}

func settingsFrom(e config.EngineConfig) game.Settings {
	return game.Settings{
		TickRate:                 e.TickRate,
		ResponseTimeout:          e.ResponseTimeout,
		VoteTimeout:              e.VoteTimeout,
		CommanderChoiceTimeout:   e.CommanderChoiceTimeout,
		StartingLife:             e.StartingLife,
		CommanderDamageThreshold: e.CommanderDamageThreshold,
		CommanderTaxIncrement:    e.CommanderTaxIncrement,
		Seed:                     e.Seed,
	}
}

func run(ctx context.Context, cfg *config.Config, resumeID string, logger *zap.Logger) error {
	settings := settingsFrom(cfg.Engine)
	rng := rand.New(rand.NewSource(settings.Seed))

	var opts []game.EngineOption
	var store storage.SnapshotStore
	if cfg.Database.DSN != "" {
		pgStore, pool, err := storage.Connect(ctx, cfg.Database.DSN, cfg.Database.MaxConns, logger)
		if err != nil {
			return err
		}
		store = pgStore
		defer pool.Close()
		stats := pool.Stat()
		logger.Info("database connection pool initialized",
			zap.Int32("total_conns", stats.TotalConns()),
			zap.Int32("max_conns", stats.MaxConns()),
		)
		opts = append(opts, game.WithSnapshotSink(store))
	}
	if cfg.Replay.Directory != "" {
		opts = append(opts, game.WithReplayRecorder(game.NewReplayRecorder(logger, cfg.Replay.Directory)))
		logger.Info("replay recording enabled", zap.String("directory", cfg.Replay.Directory))
	}
	engine := game.NewEngine(settings, logger, opts...)

	var gameID string
	if resumeID != "" {
		id, err := resumeGame(ctx, engine, store, cfg.Replay.Directory, resumeID, logger)
		if err != nil {
			return err
		}
		gameID = id
	} else {
		cardPool, skipped, err := loadPool(cfg.Simulator.CardPool, rng)
		if err != nil {
			return err
		}
		logger.Info("card pool loaded", zap.Int("cards", len(cardPool)), zap.Int("skipped", skipped))

		gameID, err = engine.StartGame(ctx, buildSetup(cfg.Simulator.Players, cardPool, rng))
		if err != nil {
			return fmt.Errorf("failed to start game: %w", err)
		}
		logger.Info("game started", zap.String("game_id", gameID))
	}

	stats := newGameStats()
	if err := engine.View(gameID, stats.attach); err != nil {
		return err
	}

	players := newBots(rng)
	ticker := time.NewTicker(settings.TickRate)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("shutting down", zap.String("game_id", gameID))
			return engine.EndGame(gameID)
		case <-ticker.C:
		}

		var intents []any
		done := false
		err := engine.View(gameID, func(sc *game.SimulationContext) {
			over, _ := sc.Over()
			limit := cfg.Simulator.MaxTurns > 0 && sc.Turn() > cfg.Simulator.MaxTurns
			if over || limit {
				done = true
				report(logger, sc, stats)
				return
			}
			intents = players.decide(sc)
		})
		if err != nil {
			return err
		}
		if done {
			return engine.EndGame(gameID)
		}
		for _, intent := range intents {
			if err := engine.Submit(gameID, intent); err != nil {
				return err
			}
		}

		engine.Tick(ctx)

		notes, err := engine.Drain(gameID)
		if err != nil {
			return err
		}
		logNotifications(logger, notes)
		for _, intent := range players.react(notes) {
			if err := engine.Submit(gameID, intent); err != nil {
				return err
			}
		}
	}
}

func logNotifications(logger *zap.Logger, notes game.Notifications) {
	for _, ts := range notes.TurnStart {
		logger.Info("turn", zap.Int("turn", ts.Turn), zap.Uint32("active_player", uint32(ts.ActivePlayer)))
	}
	for _, d := range notes.CombatDamage {
		logger.Debug("combat damage",
			zap.Uint32("source", uint32(d.Source)),
			zap.Uint32("target", uint32(d.Target)),
			zap.Int("damage", d.Damage),
			zap.Bool("commander", d.SourceIsCommander),
		)
	}
	for _, v := range notes.Violations {
		logger.Info("rules violation", zap.String("rule", v.Rule), zap.String("detail", v.Detail))
	}
	for _, e := range notes.Eliminations {
		logger.Info("player eliminated", zap.Uint32("player", uint32(e.Player)), zap.String("reason", e.Reason))
	}
}

// gameStats are the watchers behind the end-of-game report.
type gameStats struct {
	spells *watchers.SpellsCastWatcher
	died   *watchers.CreaturesDiedWatcher
	damage *watchers.CombatDamageWatcher
}

func newGameStats() *gameStats {
	return &gameStats{
		spells: watchers.NewSpellsCastWatcher(watchers.ScopeGame),
		damage: watchers.NewCombatDamageWatcher(watchers.ScopeGame),
	}
}

func (s *gameStats) attach(sc *game.SimulationContext) {
	s.died = watchers.NewCreaturesDiedWatcher(watchers.ScopeGame, sc.Card)
	watchers.Attach(sc.Bus(), s.spells, s.died, s.damage)
}

func report(logger *zap.Logger, sc *game.SimulationContext, stats *gameStats) {
	over, winner := sc.Over()
	fields := []zap.Field{zap.Bool("over", over), zap.Int("turn", sc.Turn())}
	if p, ok := sc.Player(winner); ok {
		fields = append(fields, zap.String("winner", p.Name))
	}
	logger.Info("simulation finished", fields...)
	for _, id := range sc.Seating() {
		p, _ := sc.Player(id)
		logger.Info("player summary",
			zap.String("name", p.Name),
			zap.Int("life", p.Life),
			zap.String("eliminated", p.EliminationReason),
			zap.Int("spells_cast", stats.spells.Count(id)),
			zap.Int("creatures_died", stats.died.AmountByOwner(id)),
			zap.Int("combat_damage", stats.damage.DealtBy(id)),
			zap.Int("commander_damage", stats.damage.CommanderDamageBy(id)),
		)
	}
}

// initLogger initializes the zap logger based on configuration
func initLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
