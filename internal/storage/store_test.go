package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var (
	_ SnapshotStore = (*MemoryStore)(nil)
	_ SnapshotStore = (*PostgresStore)(nil)
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	_, err := s.Latest(ctx, "g1")
	assert.ErrorIs(t, err, ErrNotFound)

	data := []byte("turn-2")
	require.NoError(t, s.Save(ctx, "g1", 2, data))
	require.NoError(t, s.Save(ctx, "g1", 1, []byte("turn-1")))
	require.NoError(t, s.Save(ctx, "g2", 5, []byte("other")))
	data[0] = 'X'

	rec, err := s.Latest(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, Record{GameID: "g1", Turn: 2, Data: []byte("turn-2"), SavedAt: fixed}, rec)

	require.NoError(t, s.Save(ctx, "g1", 2, []byte("again")))
	rec, _ = s.Latest(ctx, "g1")
	assert.Equal(t, []byte("again"), rec.Data)
	assert.Equal(t, 2, s.Turns("g1"))
}

type execCall struct {
	sql  string
	args []any
}

type fakeRow struct {
	rec Record
	err error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*dest[0].(*string) = r.rec.GameID
	*dest[1].(*int) = r.rec.Turn
	*dest[2].(*[]byte) = r.rec.Data
	*dest[3].(*time.Time) = r.rec.SavedAt
	return nil
}

type fakeDB struct {
	execs   []execCall
	queries []execCall
	execErr error
	row     fakeRow
}

func (db *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	db.execs = append(db.execs, execCall{sql, args})
	if db.execErr != nil {
		return pgconn.CommandTag{}, db.execErr
	}
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (db *fakeDB) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	db.queries = append(db.queries, execCall{sql, args})
	return db.row
}

func TestPostgresStoreSave(t *testing.T) {
	db := &fakeDB{}
	s := newPostgresStore(db, zaptest.NewLogger(t))
	ctx := context.Background()

	require.NoError(t, s.Migrate(ctx))
	require.NoError(t, s.Save(ctx, "g1", 3, []byte{1, 2}))
	require.Len(t, db.execs, 2)
	assert.Contains(t, db.execs[0].sql, "CREATE TABLE IF NOT EXISTS game_snapshots")
	assert.Contains(t, db.execs[1].sql, "ON CONFLICT (game_id, turn) DO UPDATE")
	assert.Equal(t, []any{"g1", 3, []byte{1, 2}}, db.execs[1].args)

	db.execErr = errors.New("connection reset")
	err := s.Save(ctx, "g1", 4, nil)
	assert.ErrorContains(t, err, "turn 4")
	assert.ErrorContains(t, err, "connection reset")
}

func TestPostgresStoreLatest(t *testing.T) {
	saved := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	db := &fakeDB{row: fakeRow{rec: Record{GameID: "g1", Turn: 7, Data: []byte("x"), SavedAt: saved}}}
	s := newPostgresStore(db, nil)
	ctx := context.Background()

	rec, err := s.Latest(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, 7, rec.Turn)
	assert.Equal(t, saved, rec.SavedAt)
	require.Len(t, db.queries, 1)
	assert.Contains(t, db.queries[0].sql, "ORDER BY turn DESC")
	assert.Equal(t, []any{"g1"}, db.queries[0].args)

	db.row = fakeRow{err: pgx.ErrNoRows}
	_, err = s.Latest(ctx, "g2")
	assert.ErrorIs(t, err, ErrNotFound)

	db.row = fakeRow{err: errors.New("boom")}
	_, err = s.Latest(ctx, "g2")
	assert.ErrorContains(t, err, "boom")
	assert.NotErrorIs(t, err, ErrNotFound)
}
