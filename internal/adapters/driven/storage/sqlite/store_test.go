package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/stevedore/internal/core/domain"
)

// setupTestStore creates a temporary SQLite store for testing.
func setupTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	require.NotNil(t, store)
	t.Cleanup(func() {
		assert.NoError(t, store.Close())
	})
	return store
}

func testReport(id string, started time.Time, errs ...domain.RunError) domain.RunReport {
	return domain.RunReport{
		ID:               id,
		Target:           "/data/emails",
		Index:            "emails",
		StartedAt:        started,
		FinishedAt:       started.Add(90 * time.Second),
		Progress:         250,
		RecordsBuilt:     248,
		RecordsCommitted: 150,
		ErrorCount:       len(errs),
		Errors:           errs,
	}
}

// ==================== Store Creation and Initialization Tests ====================

func TestNewStore_ErrorHandling(t *testing.T) {
	// Test with invalid path (should fail to create directory)
	_, err := NewStore("/invalid\x00path")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "creating data directory")
}

func TestNewStore_Success(t *testing.T) {
	tempDir := t.TempDir()

	store, err := NewStore(tempDir)
	require.NoError(t, err)
	defer store.Close()

	dbPath := filepath.Join(tempDir, "runs.db")
	assert.Equal(t, dbPath, store.Path())
	assert.FileExists(t, dbPath)
	assert.NoError(t, store.db.Ping())
}

func TestNewStore_DirectoryCreation(t *testing.T) {
	nestedDir := filepath.Join(t.TempDir(), "nested", "path", "to", "db")
	store, err := NewStore(nestedDir)
	require.NoError(t, err)
	defer store.Close()

	assert.DirExists(t, nestedDir)
}

func TestNewStore_Migrations(t *testing.T) {
	store := setupTestStore(t)

	var version int
	require.NoError(t, store.db.QueryRow("SELECT MAX(version) FROM schema_migrations").Scan(&version))
	assert.Equal(t, 1, version)

	for _, table := range []string{"runs", "run_errors"} {
		var name string
		err := store.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
	}
}

func TestNewStore_ReopenSkipsApplied(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.RunStore().Save(context.Background(),
		testReport("run-1", time.Now().UTC())))
	require.NoError(t, store.Close())

	store, err = NewStore(dir)
	require.NoError(t, err)
	defer store.Close()

	var count int
	require.NoError(t, store.db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count))
	assert.Equal(t, 1, count)

	_, err = store.RunStore().Get(context.Background(), "run-1")
	assert.NoError(t, err)
}

// ==================== Run Store Tests ====================

func TestRunStore_SaveAndGet(t *testing.T) {
	ctx := context.Background()
	runs := setupTestStore(t).RunStore()

	started := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	report := testReport("run-1", started,
		domain.RunError{Ref: "/data/emails/a.pst!12.eml", Reason: "document could not be parsed"},
		domain.RunError{Ref: "/data/emails/b.eml", Reason: "document too large"},
	)
	require.NoError(t, runs.Save(ctx, report))

	got, err := runs.Get(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "/data/emails", got.Target)
	assert.Equal(t, "emails", got.Index)
	assert.True(t, started.Equal(got.StartedAt))
	assert.True(t, report.FinishedAt.Equal(got.FinishedAt))
	assert.Equal(t, 250, got.Progress)
	assert.Equal(t, 248, got.RecordsBuilt)
	assert.Equal(t, 150, got.RecordsCommitted)
	assert.Equal(t, 2, got.ErrorCount)
	assert.Equal(t, report.Errors, got.Errors, "error order is preserved")
	assert.True(t, got.Failed())
}

func TestRunStore_SaveReplaces(t *testing.T) {
	ctx := context.Background()
	runs := setupTestStore(t).RunStore()

	report := testReport("run-1", time.Now().UTC(), domain.RunError{Ref: "a", Reason: "x"})
	require.NoError(t, runs.Save(ctx, report))

	report.Errors = nil
	report.ErrorCount = 0
	report.RecordsCommitted = 248
	require.NoError(t, runs.Save(ctx, report))

	got, err := runs.Get(ctx, "run-1")
	require.NoError(t, err)
	assert.Empty(t, got.Errors)
	assert.Equal(t, 248, got.RecordsCommitted)
	assert.False(t, got.Failed())
}

func TestRunStore_GetNotFound(t *testing.T) {
	_, err := setupTestStore(t).RunStore().Get(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRunStore_List(t *testing.T) {
	ctx := context.Background()
	runs := setupTestStore(t).RunStore()

	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	for i, id := range []string{"old", "middle", "new"} {
		errs := make([]domain.RunError, i)
		for j := range errs {
			errs[j] = domain.RunError{Ref: id, Reason: "r"}
		}
		require.NoError(t, runs.Save(ctx, testReport(id, base.Add(time.Duration(i)*time.Hour), errs...)))
	}

	all, err := runs.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "new", all[0].ID)
	assert.Equal(t, "old", all[2].ID)
	assert.Equal(t, 2, all[0].ErrorCount)
	assert.Nil(t, all[0].Errors, "list omits error logs")

	limited, err := runs.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, "middle", limited[1].ID)
}

func TestRunStore_ListEmpty(t *testing.T) {
	runs, err := setupTestStore(t).RunStore().List(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestRunStore_CountWithoutLog(t *testing.T) {
	ctx := context.Background()
	runs := setupTestStore(t).RunStore()

	report := testReport("run-1", time.Now().UTC())
	report.ErrorCount = 7
	require.NoError(t, runs.Save(ctx, report))

	got, err := runs.Get(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, 7, got.ErrorCount)
	assert.Empty(t, got.Errors)
}
