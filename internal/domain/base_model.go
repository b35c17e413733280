package domain

import "time"

// BaseModel provides common timestamps for stored records / Fournit les horodatages communs
type BaseModel struct {
	CreatedAt time.Time // Record creation time / Heure de création de l'enregistrement
	UpdatedAt time.Time // Record last update time / Heure de dernière mise à jour
}

// Touch sets UpdatedAt, and CreatedAt on first save / Met à jour les horodatages
func (bm *BaseModel) Touch(now time.Time) {
	if bm.CreatedAt.IsZero() {
		bm.CreatedAt = now
	}
	bm.UpdatedAt = now
}
