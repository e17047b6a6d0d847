// Package config loads simulator configuration from a YAML file and MAGE_
// environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full simulator configuration.
type Config struct {
	Logging   LoggingConfig   `mapstructure:"logging"`
	Engine    EngineConfig    `mapstructure:"engine"`
	Simulator SimulatorConfig `mapstructure:"simulator"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Replay    ReplayConfig    `mapstructure:"replay"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// EngineConfig holds the rules-engine knobs.
type EngineConfig struct {
	TickRate                 time.Duration `mapstructure:"tick_rate"`
	ResponseTimeout          time.Duration `mapstructure:"response_timeout"`
	VoteTimeout              time.Duration `mapstructure:"vote_timeout"`
	CommanderChoiceTimeout   time.Duration `mapstructure:"commander_choice_timeout"`
	StartingLife             int           `mapstructure:"starting_life"`
	CommanderDamageThreshold int           `mapstructure:"commander_damage_threshold"`
	CommanderTaxIncrement    int           `mapstructure:"commander_tax_increment"`
	Seed                     int64         `mapstructure:"seed"`
}

type SimulatorConfig struct {
	Players  []string `mapstructure:"players"`
	MaxTurns int      `mapstructure:"max_turns"`
	CardPool string   `mapstructure:"card_pool"`
}

// DatabaseConfig enables snapshot persistence when DSN is set.
type DatabaseConfig struct {
	DSN      string `mapstructure:"dsn"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// ReplayConfig enables replay files when Directory is set.
type ReplayConfig struct {
	Directory string `mapstructure:"directory"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("engine.tick_rate", 50*time.Millisecond)
	v.SetDefault("engine.response_timeout", 30*time.Second)
	v.SetDefault("engine.vote_timeout", 60*time.Second)
	v.SetDefault("engine.commander_choice_timeout", 30*time.Second)
	v.SetDefault("engine.starting_life", 40)
	v.SetDefault("engine.commander_damage_threshold", 21)
	v.SetDefault("engine.commander_tax_increment", 2)
	v.SetDefault("engine.seed", 1)

	v.SetDefault("simulator.players", []string{"alice", "bob", "carol", "dave"})
	v.SetDefault("simulator.max_turns", 20)
	v.SetDefault("simulator.card_pool", "")

	v.SetDefault("database.dsn", "")
	v.SetDefault("database.max_conns", 4)

	v.SetDefault("replay.directory", "")
}

// Load reads the configuration at path. A missing file is not an error:
// defaults and environment overrides still apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("MAGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the engine cannot run with.
func (c *Config) Validate() error {
	e := c.Engine
	switch {
	case e.TickRate <= 0:
		return fmt.Errorf("engine.tick_rate must be positive, got %s", e.TickRate)
	case e.StartingLife <= 0:
		return fmt.Errorf("engine.starting_life must be positive, got %d", e.StartingLife)
	case e.CommanderDamageThreshold <= 0:
		return fmt.Errorf("engine.commander_damage_threshold must be positive, got %d", e.CommanderDamageThreshold)
	case e.CommanderTaxIncrement < 0:
		return fmt.Errorf("engine.commander_tax_increment must not be negative, got %d", e.CommanderTaxIncrement)
	case e.ResponseTimeout < 0 || e.VoteTimeout < 0 || e.CommanderChoiceTimeout < 0:
		return errors.New("engine timeouts must not be negative")
	case len(c.Simulator.Players) < 2:
		return fmt.Errorf("simulator.players needs at least 2 names, got %d", len(c.Simulator.Players))
	case c.Simulator.MaxTurns < 0:
		return fmt.Errorf("simulator.max_turns must not be negative, got %d", c.Simulator.MaxTurns)
	}
	return nil
}
