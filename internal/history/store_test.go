package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapsparql/internal/testutil"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	store := NewStore(testutil.NewTestLogger(t))
	require.NoError(t, store.Open(filepath.Join(t.TempDir(), "history.db")))
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStore_OpenCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "history.db")
	store := NewStore(nil)
	require.NoError(t, store.Open(path))
	defer func() { _ = store.Close() }()

	version, err := store.MigrationVersion()
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)
}

func TestStore_ClosedStore(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()

	_, err := store.StartRun(ctx, "dbpedia", "SELECT * WHERE {}")
	assert.Error(t, err)
	_, err = store.ListRuns(ctx, "", 10)
	assert.Error(t, err)
	assert.NoError(t, store.Close())
}

func TestStore_RunLifecycle(t *testing.T) {
	tests := []struct {
		name        string
		errMsg      string
		bytes       int
		wantStatus  Status
		wantErrText string
	}{
		{name: "succeeded", bytes: 128, wantStatus: StatusSucceeded},
		{name: "failed", errMsg: "HTTP Error 400 Bad Request", wantStatus: StatusFailed, wantErrText: "HTTP Error 400 Bad Request"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := setupTestStore(t)
			ctx := context.Background()

			run, err := store.StartRun(ctx, "dbpedia", "SELECT ?s WHERE { ?s ?p ?o }")
			require.NoError(t, err)
			assert.NotEmpty(t, run.ID)
			assert.Equal(t, StatusRunning, run.Status)

			got, err := store.GetRun(ctx, run.ID)
			require.NoError(t, err)
			assert.Equal(t, StatusRunning, got.Status)
			assert.Nil(t, got.CompletedAt)

			require.NoError(t, store.CompleteRun(ctx, run.ID, tt.errMsg, tt.bytes, 1500*time.Millisecond))

			got, err = store.GetRun(ctx, run.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, got.Status)
			assert.Equal(t, tt.wantErrText, got.Error)
			assert.Equal(t, tt.bytes, got.ResultBytes)
			assert.Equal(t, 1500*time.Millisecond, got.Duration)
			assert.Equal(t, "dbpedia", got.Endpoint)
			assert.Equal(t, "SELECT ?s WHERE { ?s ?p ?o }", got.Query)
			require.NotNil(t, got.CompletedAt)
			assert.False(t, got.CompletedAt.Before(got.StartedAt))
		})
	}
}

func TestStore_GetRunNotFound(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.GetRun(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	err = store.CompleteRun(context.Background(), "missing", "", 0, 0)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_ListRuns(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	var ids []string
	for _, endpoint := range []string{"dbpedia", "wikidata", "dbpedia"} {
		run, err := store.StartRun(ctx, endpoint, "ASK {}")
		require.NoError(t, err)
		ids = append(ids, run.ID)
	}

	t.Run("newest first", func(t *testing.T) {
		runs, err := store.ListRuns(ctx, "", 0)
		require.NoError(t, err)
		require.Len(t, runs, 3)
		assert.Equal(t, ids[2], runs[0].ID)
		assert.Equal(t, ids[0], runs[2].ID)
	})

	t.Run("limit", func(t *testing.T) {
		runs, err := store.ListRuns(ctx, "", 2)
		require.NoError(t, err)
		assert.Len(t, runs, 2)
	})

	t.Run("filter by endpoint", func(t *testing.T) {
		runs, err := store.ListRuns(ctx, "wikidata", 0)
		require.NoError(t, err)
		require.Len(t, runs, 1)
		assert.Equal(t, ids[1], runs[0].ID)
	})
}

func TestStore_Prune(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	for range 5 {
		_, err := store.StartRun(ctx, "dbpedia", "ASK {}")
		require.NoError(t, err)
	}

	removed, err := store.Prune(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), removed)

	runs, err := store.ListRuns(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestStore_FindRun(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	run, err := store.StartRun(ctx, "dbpedia", "ASK {}")
	require.NoError(t, err)

	for _, id := range []string{"abc-1", "abc-2"} {
		_, err := store.db.ExecContext(ctx,
			`INSERT INTO runs (id, endpoint, query, status, started_at) VALUES (?, 'wikidata', 'ASK {}', 'running', 0)`, id)
		require.NoError(t, err)
	}

	t.Run("full id", func(t *testing.T) {
		got, err := store.FindRun(ctx, run.ID)
		require.NoError(t, err)
		assert.Equal(t, run.ID, got.ID)
	})

	t.Run("unique prefix", func(t *testing.T) {
		got, err := store.FindRun(ctx, run.ID[:8])
		require.NoError(t, err)
		assert.Equal(t, run.ID, got.ID)
		assert.Equal(t, "dbpedia", got.Endpoint)
	})

	t.Run("ambiguous prefix", func(t *testing.T) {
		_, err := store.FindRun(ctx, "abc-")
		assert.ErrorIs(t, err, ErrAmbiguousID)
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := store.FindRun(ctx, "zzz")
		assert.ErrorIs(t, err, ErrNotFound)

		_, err = store.FindRun(ctx, "")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}
