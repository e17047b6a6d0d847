// Package storage persists encoded game snapshots.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a game has no stored snapshot.
var ErrNotFound = errors.New("snapshot not found")

// Record is one stored snapshot.
type Record struct {
	GameID  string
	Turn    int
	Data    []byte
	SavedAt time.Time
}

// SnapshotStore saves turn-start snapshots and returns the most recent one
// per game. Saving the same game and turn twice replaces the first record.
type SnapshotStore interface {
	Save(ctx context.Context, gameID string, turn int, data []byte) error
	Latest(ctx context.Context, gameID string) (Record, error)
}
