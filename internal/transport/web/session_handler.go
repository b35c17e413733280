package web

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/Olprog59/ehs-access/internal/dto"
	"github.com/Olprog59/ehs-access/internal/service"
)

// Login signs the process-wide session in / Connecte la session du processus
//
// The call blocks for auth.login_delay. Wrong or empty credentials answer 401
// with "Invalid credentials"; a logout that lands during the delay answers 409.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	err := h.container.SessionSvc.Login(r.Context(), req.Email, req.Password)
	switch {
	case err == nil:
		jsonResponse(w, h.container.SessionSvc.State())

	case errors.Is(err, service.ErrInvalidCredentials):
		ErrorResponse(w, service.InvalidCredentialsMessage, http.StatusUnauthorized)

	case errors.Is(err, service.ErrLoginSuperseded):
		ErrorResponse(w, "Login was superseded by another session change", http.StatusConflict)

	case r.Context().Err() != nil:
		// Client went away or the request timed out; the session is already anonymous.
		slog.Info("login aborted", "request_id", GetRequestID(r.Context()), "error", err)

	default:
		slog.Error("login failed", "request_id", GetRequestID(r.Context()), "error", err)
		ErrorResponse(w, "Internal server error", http.StatusInternalServerError)
	}
}

// Logout clears the session / Efface la session
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.container.SessionSvc.Logout(r.Context())
	jsonResponse(w, h.container.SessionSvc.State())
}

// Session returns the current AuthState / Retourne l'état d'authentification
func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, h.container.SessionSvc.State())
}

// LoginPage describes the public login view, or sends signed-in users to the dashboard
func (h *Handler) LoginPage(w http.ResponseWriter, r *http.Request) {
	state := h.container.SessionSvc.State()
	if state.IsAuthenticated {
		http.Redirect(w, r, dashboardPath, http.StatusSeeOther)
		return
	}
	jsonResponse(w, dto.NewLoginPage(state))
}

// Roles lists the role names for the role switcher / Liste les rôles
func (h *Handler) Roles(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, dto.RoleNames())
}

// SwitchRole changes the signed-in role / Change le rôle connecté
// Unknown role names never reach the service: validation rejects them with 400.
func (h *Handler) SwitchRole(w http.ResponseWriter, r *http.Request) {
	var req dto.SwitchRoleRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.container.SessionSvc.SwitchRole(r.Context(), req.RoleValue()); err != nil {
		if errors.Is(err, service.ErrNotAuthenticated) {
			writeJSON(w, http.StatusUnauthorized, dto.UnauthenticatedResponse{
				Error:    "Authentication required",
				Redirect: loginPath,
			})
			return
		}
		slog.Error("role switch failed", "request_id", GetRequestID(r.Context()), "error", err)
		ErrorResponse(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	jsonResponse(w, h.container.SessionSvc.State())
}
