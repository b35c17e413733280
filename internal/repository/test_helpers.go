package repository

import (
	"database/sql"

	"github.com/Olprog59/ehs-access/internal/ports"
	"github.com/Olprog59/ehs-access/internal/repository/sqlite"
)

// SessionTableSQLite is the SQLite schema used by in-memory test databases / Schéma SQLite pour les tests
const SessionTableSQLite = `
CREATE TABLE IF NOT EXISTS session_state (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	token TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);`

// NewSQLiteSessionStore creates SQLite session store for tests / Crée un store de session SQLite pour les tests
func NewSQLiteSessionStore(database *sql.DB) ports.SessionStore {
	return sqlite.NewSessionStore(database)
}
