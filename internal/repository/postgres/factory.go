package postgres

import (
	"database/sql"

	"github.com/Olprog59/ehs-access/internal/ports"
)

// Factory implements DatabaseFactory for PostgreSQL / Implémente DatabaseFactory
type Factory struct{}

// NewSessionStore creates session store / Crée le store de session
func (f *Factory) NewSessionStore(db *sql.DB) ports.SessionStore {
	return NewSessionStore(db)
}
