package aggregator

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/quran-search/internal/analytics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type execCall struct {
	query string
	args  []any
}

type fakeDB struct {
	execs []execCall
	err   error
}

func (f *fakeDB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	f.execs = append(f.execs, execCall{query: query, args: args})
	return nil, f.err
}

func (f *fakeDB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	panic("not used")
}

func (f *fakeDB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	panic("not used")
}

func TestSaveSnapshot(t *testing.T) {
	db := &fakeDB{}
	store := NewStore(db)

	stats := analytics.AggregatedStats{TotalSearches: 7, ZeroResultCount: 2}
	require.NoError(t, store.SaveSnapshot(context.Background(), stats))

	require.Len(t, db.execs, 1)
	assert.Contains(t, db.execs[0].query, "INSERT INTO search_analytics_snapshots")
	require.Len(t, db.execs[0].args, 2)

	var saved analytics.AggregatedStats
	require.NoError(t, json.Unmarshal(db.execs[0].args[0].([]byte), &saved))
	assert.Equal(t, int64(7), saved.TotalSearches)
	assert.Equal(t, int64(2), saved.ZeroResultCount)
}

func TestSaveSnapshotError(t *testing.T) {
	dbErr := errors.New("connection refused")
	store := NewStore(&fakeDB{err: dbErr})

	err := store.SaveSnapshot(context.Background(), analytics.AggregatedStats{})
	assert.ErrorIs(t, err, dbErr)
}

func TestEnsureSchema(t *testing.T) {
	db := &fakeDB{}
	require.NoError(t, NewStore(db).EnsureSchema(context.Background()))
	require.Len(t, db.execs, 1)
	assert.Equal(t, Schema, db.execs[0].query)
}
