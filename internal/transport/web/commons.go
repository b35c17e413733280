package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/Olprog59/ehs-access/internal/app"
	"github.com/Olprog59/ehs-access/internal/dto"
)

// maxBodyBytes caps JSON request bodies / Taille maximale des corps JSON
const maxBodyBytes = 1 << 20

// Handler is a container for application dependencies that are required by HTTP handlers.
// It gives handlers access to the session and access services and to configuration.
type Handler struct {
	container *app.Container
}

// NewHandler creates and returns a new Handler instance.
func NewHandler(container *app.Container) *Handler {
	return &Handler{container: container}
}

// ErrorResponse sends a standardized JSON error body {"error": message} with the given status.
func ErrorResponse(w http.ResponseWriter, message string, code int) {
	writeJSON(w, code, map[string]any{
		"error": message,
	})
}

// jsonResponse sends data as a 200 JSON response.
func jsonResponse(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, data)
}

// writeJSON sends data with an explicit status / Envoie data avec un statut explicite
func writeJSON(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// limitRequestBody wraps a request body with MaxBytesReader to limit its size.
// Reads past maxBytes fail, so decodeJSON reports an oversized body as a bad request.
func limitRequestBody(w http.ResponseWriter, r *http.Request, maxBytes int64) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
}

// decodeJSON reads a size-limited JSON body into dst and validates it.
// It writes the 400 response itself and returns false on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	limitRequestBody(w, r, maxBodyBytes)

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			ErrorResponse(w, "Request body too large", http.StatusRequestEntityTooLarge)
			return false
		}
		ErrorResponse(w, "Invalid request body", http.StatusBadRequest)
		return false
	}

	if err := dto.Validate(dst); err != nil {
		var verr *dto.ValidationError
		if errors.As(err, &verr) {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"error":  "Validation failed",
				"fields": verr.Fields,
			})
			return false
		}
		ErrorResponse(w, "Invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}
