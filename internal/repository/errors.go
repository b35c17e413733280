package repository

import (
	"github.com/Olprog59/ehs-access/internal/repository/db"
	"github.com/Olprog59/ehs-access/internal/repository/sqlite"
)

// Re-export common errors for convenience
var (
	ErrNoRecord  = db.ErrNoRecord
	ErrDuplicate = db.ErrDuplicate

	// SQLite-specific errors from sqlite package
	ErrBusy   = sqlite.ErrBusy
	ErrLocked = sqlite.ErrLocked
)
