package mysql

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/Olprog59/ehs-access/internal/domain"
	"github.com/Olprog59/ehs-access/internal/ports"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionStore_SaveUsesUpsert(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO session_state .* ON DUPLICATE KEY UPDATE token = VALUES\(token\)`).
		WithArgs("signed-token", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 2))

	require.NoError(t, NewSessionStore(db).Save(context.Background(), &domain.SessionRecord{Token: "signed-token"}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionStore_DuplicateEntry(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO session_state`).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

	err = NewSessionStore(db).Save(context.Background(), &domain.SessionRecord{Token: "t"})
	assert.ErrorIs(t, err, ErrDup)
}

func TestSessionStore_LoadAndClear(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now().UTC().Truncate(time.Microsecond)
	mock.ExpectQuery(`SELECT token, created_at, updated_at`).
		WillReturnRows(sqlmock.NewRows([]string{"token", "created_at", "updated_at"}).AddRow("stored", now, now))
	mock.ExpectExec(`DELETE FROM session_state`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT token`).
		WillReturnRows(sqlmock.NewRows([]string{"token", "created_at", "updated_at"}))

	store := NewSessionStore(db)
	ctx := context.Background()

	rec, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "stored", rec.Token)

	require.NoError(t, store.Clear(ctx))

	_, err = store.Load(ctx)
	assert.True(t, errors.Is(err, ports.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}
