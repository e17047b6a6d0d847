package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/magefree/mage-commander/internal/game"
	"github.com/magefree/mage-commander/internal/storage"
	"go.uber.org/zap"
)

var errNoSavedGame = errors.New("no saved position")

// latestSnapshot loads the newest saved position of gameID: from the
// snapshot store when one is configured, otherwise from the last frame of
// the game's replay file.
func latestSnapshot(ctx context.Context, store storage.SnapshotStore, replayDir, gameID string) (*game.Snapshot, error) {
	if store != nil {
		rec, err := store.Latest(ctx, gameID)
		if err != nil {
			return nil, fmt.Errorf("failed to load snapshot of %s: %w", gameID, err)
		}
		return game.DecodeSnapshot(rec.Data)
	}
	if replayDir == "" {
		return nil, fmt.Errorf("resume %s: %w (no database or replay directory configured)", gameID, errNoSavedGame)
	}
	replay, err := game.LoadReplayFromFile(replayDir, gameID)
	if err != nil {
		return nil, err
	}
	if replay.Size() == 0 {
		return nil, fmt.Errorf("resume %s: %w", gameID, errNoSavedGame)
	}
	return replay.StateAt(replay.Size() - 1)
}

// resumeGame restores gameID into engine and checks that the restored game
// reproduces the saved position.
func resumeGame(ctx context.Context, engine *game.Engine, store storage.SnapshotStore, replayDir, gameID string, logger *zap.Logger) (string, error) {
	snap, err := latestSnapshot(ctx, store, replayDir, gameID)
	if err != nil {
		return "", err
	}
	saved := snap.Checksum()

	id, report, err := engine.RestoreGame(snap)
	if err != nil {
		return "", fmt.Errorf("failed to restore game: %w", err)
	}
	if !report.Clean() {
		logger.Warn("restored game with fallbacks",
			zap.String("game_id", id),
			zap.Strings("fallbacks", report.Fallbacks),
		)
	}

	restored, err := engine.Snapshot(id)
	if err != nil {
		return "", err
	}
	if !restored.VerifyChecksum(saved) {
		logger.Warn("restored position differs from saved snapshot",
			zap.String("game_id", id),
			zap.String("saved_checksum", saved),
			zap.String("restored_checksum", restored.Checksum()),
		)
	}
	logger.Info("game resumed",
		zap.String("game_id", id),
		zap.Int("turn", snap.Turn),
		zap.String("checksum", saved),
	)
	return id, nil
}
