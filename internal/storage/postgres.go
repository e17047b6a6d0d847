package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const schema = `
CREATE TABLE IF NOT EXISTS game_snapshots (
	game_id    TEXT        NOT NULL,
	turn       INTEGER     NOT NULL,
	data       BYTEA       NOT NULL,
	saved_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (game_id, turn)
)`

const saveSQL = `
INSERT INTO game_snapshots (game_id, turn, data)
VALUES ($1, $2, $3)
ON CONFLICT (game_id, turn) DO UPDATE SET data = EXCLUDED.data, saved_at = now()`

const latestSQL = `
SELECT game_id, turn, data, saved_at
FROM game_snapshots
WHERE game_id = $1
ORDER BY turn DESC
LIMIT 1`

// pgxQuerier is the subset of *pgxpool.Pool the store uses.
type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore keeps snapshots in the game_snapshots table.
type PostgresStore struct {
	db     pgxQuerier
	logger *zap.Logger
}

// NewPostgresStore wraps an open pool.
func NewPostgresStore(pool *pgxpool.Pool, logger *zap.Logger) *PostgresStore {
	return newPostgresStore(pool, logger)
}

func newPostgresStore(db pgxQuerier, logger *zap.Logger) *PostgresStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PostgresStore{db: db, logger: logger}
}

// Connect opens a pool for dsn, checks it and creates the snapshot table.
// The caller closes the returned pool.
func Connect(ctx context.Context, dsn string, maxConns int32, logger *zap.Logger) (*PostgresStore, *pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse database DSN: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to ping database: %w", err)
	}
	store := NewPostgresStore(pool, logger)
	if err := store.Migrate(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return store, pool, nil
}

// Migrate creates the snapshot table if it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create snapshot table: %w", err)
	}
	return nil
}

func (s *PostgresStore) Save(ctx context.Context, gameID string, turn int, data []byte) error {
	tag, err := s.db.Exec(ctx, saveSQL, gameID, turn, data)
	if err != nil {
		return fmt.Errorf("failed to save snapshot for game %s turn %d: %w", gameID, turn, err)
	}
	s.logger.Debug("snapshot saved",
		zap.String("game_id", gameID),
		zap.Int("turn", turn),
		zap.Int("bytes", len(data)),
		zap.Int64("rows", tag.RowsAffected()),
	)
	return nil
}

func (s *PostgresStore) Latest(ctx context.Context, gameID string) (Record, error) {
	var rec Record
	err := s.db.QueryRow(ctx, latestSQL, gameID).Scan(&rec.GameID, &rec.Turn, &rec.Data, &rec.SavedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, fmt.Errorf("game %s: %w", gameID, ErrNotFound)
	}
	if err != nil {
		return Record{}, fmt.Errorf("failed to load snapshot for game %s: %w", gameID, err)
	}
	return rec, nil
}
