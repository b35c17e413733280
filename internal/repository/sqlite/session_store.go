package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Olprog59/ehs-access/internal/domain"
	"github.com/Olprog59/ehs-access/internal/ports"
)

var _ ports.SessionStore = (*sessionStore)(nil)

// sessionStore implements SessionStore on the single-row session_state table
type sessionStore struct {
	db ports.DBTX
}

// NewSessionStore creates session store / Crée le store de session
func NewSessionStore(db *sql.DB) ports.SessionStore {
	return &sessionStore{db: db}
}

// Save upserts the session row / Insère ou met à jour la ligne de session
func (s *sessionStore) Save(ctx context.Context, rec *domain.SessionRecord) error {
	if rec == nil {
		return errors.New("the session record is null")
	}
	rec.Touch(time.Now().UTC())

	const query = `
    INSERT INTO session_state (id, token, created_at, updated_at)
    VALUES (1, ?, ?, ?)
    ON CONFLICT(id) DO UPDATE SET token = excluded.token, updated_at = excluded.updated_at
    `
	_, err := s.db.ExecContext(ctx, query, rec.Token, rec.CreatedAt, rec.UpdatedAt)
	return handleError(err)
}

// Load reads the session row / Lit la ligne de session
func (s *sessionStore) Load(ctx context.Context) (*domain.SessionRecord, error) {
	const query = `
    SELECT token, created_at, updated_at
    FROM session_state
    WHERE id = 1
    `
	var rec domain.SessionRecord
	err := s.db.QueryRowContext(ctx, query).Scan(&rec.Token, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return nil, handleError(err)
	}
	return &rec, nil
}

// Clear deletes the session row / Supprime la ligne de session
func (s *sessionStore) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM session_state WHERE id = 1`)
	return handleError(err)
}
