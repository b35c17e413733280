package ports

import (
	"context"
	"errors"

	"github.com/Olprog59/ehs-access/internal/domain"
)

// ErrNotFound returned when no session is stored / Retourné quand aucune session n'est stockée
var ErrNotFound = errors.New("not found")

// SessionStore persists the signed session across restarts / Persiste la session signée entre redémarrages
// The store holds at most one record.
type SessionStore interface {
	// Save writes or replaces the stored session / Écrit ou remplace la session stockée
	Save(ctx context.Context, rec *domain.SessionRecord) error
	// Load returns the stored session or ErrNotFound / Retourne la session stockée ou ErrNotFound
	Load(ctx context.Context) (*domain.SessionRecord, error)
	// Clear removes the stored session / Supprime la session stockée
	Clear(ctx context.Context) error
}
