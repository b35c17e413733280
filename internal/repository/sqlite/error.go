package sqlite

import (
	"database/sql"
	"errors"
	"log/slog"

	"github.com/Olprog59/ehs-access/internal/repository/db"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	ErrDup      = db.ErrDuplicate                  // Duplicate unique key / Clé unique dupliquée
	ErrNoRecord = db.ErrNoRecord                   // Re-export from db package
	ErrBusy     = errors.New("database is busy")   // Database busy / Base de données occupée
	ErrLocked   = errors.New("database is locked") // Database locked / Base de données verrouillée
)

// handleError translates DB errors to typed errors / Traduit les erreurs DB en erreurs typées
func handleError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNoRecord
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		switch code {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return ErrDup
		case sqlite3.SQLITE_BUSY:
			slog.Warn("sqlite busy", "error", liteErr.Error())
			return ErrBusy
		case sqlite3.SQLITE_LOCKED:
			slog.Warn("sqlite locked", "error", liteErr.Error())
			return ErrLocked
		}
		slog.Debug("unmapped sqlite error", "code", code, "error", liteErr.Error())
	}
	return err
}
