package storage

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryStore keeps snapshots in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]map[int]Record
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]map[int]Record),
		now:     time.Now,
	}
}

func (s *MemoryStore) Save(_ context.Context, gameID string, turn int, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	turns, ok := s.records[gameID]
	if !ok {
		turns = make(map[int]Record)
		s.records[gameID] = turns
	}
	turns[turn] = Record{
		GameID:  gameID,
		Turn:    turn,
		Data:    append([]byte(nil), data...),
		SavedAt: s.now(),
	}
	return nil
}

func (s *MemoryStore) Latest(_ context.Context, gameID string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest Record
	found := false
	for turn, rec := range s.records[gameID] {
		if !found || turn > latest.Turn {
			latest = rec
			found = true
		}
	}
	if !found {
		return Record{}, fmt.Errorf("game %s: %w", gameID, ErrNotFound)
	}
	return latest, nil
}

// Turns returns how many snapshots are stored for a game.
func (s *MemoryStore) Turns(gameID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records[gameID])
}
