package repository

import (
	"database/sql"

	"github.com/Olprog59/ehs-access/internal/ports"
)

// DatabaseFactory must be implemented by each database package / Doit être implémenté par chaque package de BD
// Adding a store here forces every driver package (sqlite, mysql, postgres) to provide it.
// Ajouter un store ici oblige chaque package de BD à le fournir.
type DatabaseFactory interface {
	// NewSessionStore creates the persisted session store / Crée le store de session persistée
	NewSessionStore(db *sql.DB) ports.SessionStore
}
