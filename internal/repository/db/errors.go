package db

import (
	"errors"

	"github.com/Olprog59/ehs-access/internal/ports"
)

// Common database errors
var (
	// ErrNoRecord aliases ports.ErrNotFound so services can match either
	ErrNoRecord  = ports.ErrNotFound
	ErrDuplicate = errors.New("record already exists")
)
