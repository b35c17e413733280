package repository

import (
	"database/sql"
	"strings"

	"github.com/Olprog59/ehs-access/internal/ports"
	"github.com/Olprog59/ehs-access/internal/repository/mysql"
	"github.com/Olprog59/ehs-access/internal/repository/postgres"
	"github.com/Olprog59/ehs-access/internal/repository/sqlite"
)

// Compile-time checks that every driver factory satisfies DatabaseFactory
// Vérifications à la compilation pour chaque factory de driver
var (
	_ DatabaseFactory = (*sqlite.Factory)(nil)
	_ DatabaseFactory = (*mysql.Factory)(nil)
	_ DatabaseFactory = (*postgres.Factory)(nil)
)

// factoryRegistry maps driver names to factories / Associe les noms de drivers aux factories
var factoryRegistry = map[string]DatabaseFactory{
	"sqlite":     &sqlite.Factory{},
	"sqlite3":    &sqlite.Factory{},
	"mysql":      &mysql.Factory{},
	"postgres":   &postgres.Factory{},
	"postgresql": &postgres.Factory{},
}

// Adapter adapts database connection to stores / Adapte la connexion BD vers les stores
type Adapter struct {
	db      *sql.DB
	factory DatabaseFactory
}

// NewAdapter creates repository adapter / Crée l'adapteur de repositories
// Unknown or empty driver names fall back to SQLite.
func NewAdapter(db *sql.DB, driver string) *Adapter {
	factory := factoryRegistry[strings.ToLower(driver)]
	if factory == nil {
		factory = &sqlite.Factory{}
	}

	return &Adapter{
		db:      db,
		factory: factory,
	}
}

// SessionStore returns the driver's session store / Retourne le store de session du driver
func (a *Adapter) SessionStore() ports.SessionStore {
	return a.factory.NewSessionStore(a.db)
}
