package game

import (
	"compress/gzip"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
)

const replayVersion = 1

// ReplayFrame is one encoded snapshot, taken at the start of Turn.
type ReplayFrame struct {
	Turn int
	Data []byte
}

// Replay is a recorded game: one frame per turn start, played back with a
// cursor.
type Replay struct {
	GameID string

	mu     sync.RWMutex
	frames []ReplayFrame
	cursor int
}

func NewReplay(gameID string) *Replay {
	return &Replay{GameID: gameID}
}

// Record appends a frame.
func (r *Replay) Record(turn int, data []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, ReplayFrame{Turn: turn, Data: data})
}

// Start rewinds the cursor.
func (r *Replay) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cursor = 0
}

// Next returns the frame at the cursor and advances it.
func (r *Replay) Next() (ReplayFrame, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cursor >= len(r.frames) {
		return ReplayFrame{}, false
	}
	f := r.frames[r.cursor]
	r.cursor++
	return f, true
}

// Previous moves the cursor back one frame and returns that frame.
func (r *Replay) Previous() (ReplayFrame, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cursor == 0 {
		return ReplayFrame{}, false
	}
	r.cursor--
	return r.frames[r.cursor], true
}

// Skip moves the cursor by count frames, clamped to the recording.
func (r *Replay) Skip(count int) (ReplayFrame, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.frames) == 0 {
		return ReplayFrame{}, false
	}
	idx := r.cursor + count
	if idx >= len(r.frames) {
		idx = len(r.frames) - 1
	}
	if idx < 0 {
		idx = 0
	}
	r.cursor = idx
	return r.frames[idx], true
}

// Size returns the number of recorded frames.
func (r *Replay) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.frames)
}

// StateAt decodes the frame at index.
func (r *Replay) StateAt(index int) (*Snapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if index < 0 || index >= len(r.frames) {
		return nil, fmt.Errorf("replay %s: frame %d out of range", r.GameID, index)
	}
	return DecodeSnapshot(r.frames[index].Data)
}

func replayPath(directory, gameID string) string {
	return filepath.Join(directory, gameID+".replay")
}

type replayHeader struct {
	GameID     string
	Saved      time.Time
	Version    int
	FrameCount int
}

// SaveToFile writes the replay to <directory>/<game id>.replay as gzipped
// gob: a header followed by every frame.
func (r *Replay) SaveToFile(directory string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if err := os.MkdirAll(directory, 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	file, err := os.Create(replayPath(directory, r.GameID))
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	zw := gzip.NewWriter(file)
	enc := gob.NewEncoder(zw)
	header := replayHeader{GameID: r.GameID, Saved: time.Now(), Version: replayVersion, FrameCount: len(r.frames)}
	if err := enc.Encode(&header); err != nil {
		return fmt.Errorf("failed to encode header: %w", err)
	}
	for i := range r.frames {
		if err := enc.Encode(&r.frames[i]); err != nil {
			return fmt.Errorf("failed to encode frame %d: %w", i, err)
		}
	}
	return zw.Close()
}

// LoadReplayFromFile reads a replay written by SaveToFile.
func LoadReplayFromFile(directory, gameID string) (*Replay, error) {
	file, err := os.Open(replayPath(directory, gameID))
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	zr, err := gzip.NewReader(file)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer zr.Close()

	dec := gob.NewDecoder(zr)
	var header replayHeader
	if err := dec.Decode(&header); err != nil {
		return nil, fmt.Errorf("failed to decode header: %w", err)
	}
	if header.Version != replayVersion {
		return nil, fmt.Errorf("unsupported replay version: %d", header.Version)
	}

	replay := NewReplay(header.GameID)
	for i := 0; i < header.FrameCount; i++ {
		var f ReplayFrame
		if err := dec.Decode(&f); err != nil {
			return nil, fmt.Errorf("failed to decode frame %d: %w", i, err)
		}
		replay.frames = append(replay.frames, f)
	}
	return replay, nil
}

// ReplayRecorder keeps one replay per game and writes finished replays to
// disk. An empty directory keeps replays in memory only.
type ReplayRecorder struct {
	logger  *zap.Logger
	mu      sync.RWMutex
	replays map[string]*Replay
	saveDir string
}

func NewReplayRecorder(logger *zap.Logger, saveDir string) *ReplayRecorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReplayRecorder{
		logger:  logger,
		replays: make(map[string]*Replay),
		saveDir: saveDir,
	}
}

// Record appends a frame to the game's replay, creating it on first use.
func (rr *ReplayRecorder) Record(gameID string, turn int, data []byte) {
	rr.mu.Lock()
	replay, ok := rr.replays[gameID]
	if !ok {
		replay = NewReplay(gameID)
		rr.replays[gameID] = replay
	}
	rr.mu.Unlock()

	replay.Record(turn, data)
	rr.logger.Debug("recorded replay frame",
		zap.String("game_id", gameID),
		zap.Int("turn", turn),
		zap.Int("frames", replay.Size()),
	)
}

// Replay returns the in-memory replay of a game.
func (rr *ReplayRecorder) Replay(gameID string) (*Replay, bool) {
	rr.mu.RLock()
	defer rr.mu.RUnlock()
	r, ok := rr.replays[gameID]
	return r, ok
}

// Finish writes the game's replay to disk, if a directory is configured, and
// drops it from memory.
func (rr *ReplayRecorder) Finish(gameID string) error {
	rr.mu.Lock()
	replay, ok := rr.replays[gameID]
	delete(rr.replays, gameID)
	rr.mu.Unlock()

	if !ok || rr.saveDir == "" {
		return nil
	}
	if err := replay.SaveToFile(rr.saveDir); err != nil {
		return fmt.Errorf("failed to save replay: %w", err)
	}
	rr.logger.Info("saved replay to disk",
		zap.String("game_id", gameID),
		zap.Int("frames", replay.Size()),
		zap.String("directory", rr.saveDir),
	)
	return nil
}
