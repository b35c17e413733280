package repository_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/Olprog59/ehs-access/internal/domain"
	"github.com/Olprog59/ehs-access/internal/ports"
	"github.com/Olprog59/ehs-access/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

// setupTestDB creates an in-memory SQLite database for testing
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	// Each pooled connection would get its own in-memory database.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(repository.SessionTableSQLite)
	require.NoError(t, err)
	return db
}

func TestSQLiteSessionStore_LoadEmpty(t *testing.T) {
	store := repository.NewSQLiteSessionStore(setupTestDB(t))

	rec, err := store.Load(context.Background())
	assert.Nil(t, rec)
	assert.True(t, errors.Is(err, ports.ErrNotFound), "expected ErrNotFound, got %v", err)
	assert.ErrorIs(t, err, repository.ErrNoRecord)
}

func TestSQLiteSessionStore_SaveLoadReplace(t *testing.T) {
	ctx := context.Background()
	store := repository.NewSQLiteSessionStore(setupTestDB(t))

	first := &domain.SessionRecord{Token: "token-one"}
	require.NoError(t, store.Save(ctx, first))
	assert.False(t, first.CreatedAt.IsZero())

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "token-one", loaded.Token)

	time.Sleep(5 * time.Millisecond)
	second := &domain.SessionRecord{Token: "token-two"}
	require.NoError(t, store.Save(ctx, second))

	loaded, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "token-two", loaded.Token, "second save must replace the single row")
	assert.WithinDuration(t, first.CreatedAt, loaded.CreatedAt, time.Second)
	assert.False(t, loaded.UpdatedAt.Before(loaded.CreatedAt))
}

func TestSQLiteSessionStore_Clear(t *testing.T) {
	ctx := context.Background()
	store := repository.NewSQLiteSessionStore(setupTestDB(t))

	require.NoError(t, store.Save(ctx, &domain.SessionRecord{Token: "abc"}))
	require.NoError(t, store.Clear(ctx))

	_, err := store.Load(ctx)
	assert.ErrorIs(t, err, ports.ErrNotFound)

	// Clearing an empty store is not an error.
	assert.NoError(t, store.Clear(ctx))
}

func TestSQLiteSessionStore_SaveNil(t *testing.T) {
	store := repository.NewSQLiteSessionStore(setupTestDB(t))
	assert.Error(t, store.Save(context.Background(), nil))
}

func TestAdapter_FallsBackToSQLite(t *testing.T) {
	db := setupTestDB(t)
	for _, driver := range []string{"sqlite", "SQLite3", "", "unknown"} {
		store := repository.NewAdapter(db, driver).SessionStore()
		require.NotNil(t, store)
		require.NoError(t, store.Save(context.Background(), &domain.SessionRecord{Token: driver + "x"}))
	}
}
