package game

import (
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
)

// EncodeSnapshot serializes a snapshot as gzip-compressed gob.
func EncodeSnapshot(snap *Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if err := gob.NewEncoder(zw).Encode(snap); err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to compress snapshot: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeSnapshot reverses EncodeSnapshot.
func DecodeSnapshot(data []byte) (*Snapshot, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer zr.Close()
	return decodeSnapshot(zr)
}

func decodeSnapshot(r io.Reader) (*Snapshot, error) {
	var snap Snapshot
	if err := gob.NewDecoder(r).Decode(&snap); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	if snap.Version != snapshotVersion {
		return nil, fmt.Errorf("unsupported snapshot version: %d", snap.Version)
	}
	return &snap, nil
}

// Checksum is the hex SHA-256 of the snapshot's canonical text form. The
// simulation clock is excluded, so two games in the same position at
// different times hash alike.
func (s *Snapshot) Checksum() string {
	sum := sha256.Sum256([]byte(s.canonical()))
	return hex.EncodeToString(sum[:])
}

// VerifyChecksum reports whether s hashes to expected.
func (s *Snapshot) VerifyChecksum(expected string) bool {
	return s.Checksum() == expected
}

func joinInts(v []int) string {
	parts := make([]string, len(v))
	for i, n := range v {
		parts[i] = fmt.Sprint(n)
	}
	return strings.Join(parts, ",")
}

// canonical writes every field in slice order. Slices in a snapshot are
// already ordered by position, so no sorting is needed.
func (s *Snapshot) canonical() string {
	var b strings.Builder
	fmt.Fprintf(&b, "GAME:%s|%d|%d|%d|%d|%t|%d\n", s.GameID, s.Turn, s.Step, s.ActivePlayer, s.PriorityPlayer, s.Over, s.Winner)
	fmt.Fprintf(&b, "ORDER:%s\n", joinInts(s.TurnOrder))
	for i, p := range s.Players {
		fmt.Fprintf(&b, "PLAYER:%d|%s|%d|%t|%s\n", i, p.Name, p.Life, p.Eliminated, p.EliminationReason)
		fmt.Fprintf(&b, "  LIBRARY:%s\n  HAND:%s\n  GRAVEYARD:%s\n", joinInts(p.Library), joinInts(p.Hand), joinInts(p.Graveyard))
	}
	for i, c := range s.Cards {
		if c.Definition == nil {
			fmt.Fprintf(&b, "CARD:%d|%d|-\n", i, c.Owner)
			continue
		}
		d := c.Definition
		fmt.Fprintf(&b, "CARD:%d|%d|%s|%s|%d|%d|%d|%d\n", i, c.Owner, d.Name, d.ManaCost, d.Types, d.Keywords, d.Power, d.Toughness)
	}
	for _, p := range s.Battlefield {
		fmt.Fprintf(&b, "PERMANENT:%d|%d|%t|%t|%d|%d\n", p.Card, p.Controller, p.Tapped, p.SummoningSick, p.EnteredTurn, p.Damage)
	}
	fmt.Fprintf(&b, "STACK_ZONE:%s\nEXILE:%s\nCOMMAND:%s\n", joinInts(s.Stack), joinInts(s.Exile), joinInts(s.Command))
	for i, it := range s.StackItems {
		fmt.Fprintf(&b, "STACK:%d|%s|%d|%s|%d|%d|%s\n", i, it.ID, it.Controller, it.Kind, it.Card, it.Source, it.Description)
	}
	for _, c := range s.Commanders {
		fmt.Fprintf(&b, "COMMANDER:%d|%d\n", c.Card, c.Casts)
		for _, d := range c.Damage {
			fmt.Fprintf(&b, "  DAMAGE:%d=%d\n", d.Player, d.Total)
		}
		if c.Pending != nil {
			fmt.Fprintf(&b, "  PENDING:%d>%d@%d\n", c.Pending.Source, c.Pending.Destination, c.Pending.Deadline)
		}
	}
	fmt.Fprintf(&b, "MONARCH:%d\nINITIATIVE:%d\n", s.Monarch, s.Initiative)
	for _, e := range s.Goads {
		fmt.Fprintf(&b, "GOAD:%d|%d|%d|%d\n", e.Creature, e.Source, e.Duration, e.CreatedTurn)
	}
	for _, e := range s.Vows {
		fmt.Fprintf(&b, "VOW:%d|%d|%d|%d\n", e.Creature, e.Source, e.Duration, e.CreatedTurn)
	}
	return b.String()
}
