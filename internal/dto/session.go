package dto

import "github.com/Olprog59/ehs-access/internal/domain"

// LoginRequest is the login form / Formulaire de connexion
// Any value is accepted here, including empty or very long fields; the session
// service answers "Invalid credentials" itself. Size is bounded by the request body limit.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SwitchRoleRequest selects a new role by display name / Sélectionne un nouveau rôle par son nom
type SwitchRoleRequest struct {
	Role string `json:"role" validate:"required,ehs_role"`
}

// RoleValue returns the parsed role; call after Validate / Retourne le rôle analysé
func (r SwitchRoleRequest) RoleValue() domain.Role {
	role, _ := domain.ParseRole(r.Role)
	return role
}

// LoginPageResponse describes the public login view / Décrit la page de connexion publique
type LoginPageResponse struct {
	Path    string           `json:"path"`
	Fields  []string         `json:"fields"`
	Session domain.AuthState `json:"session"`
}

// NewLoginPage builds the login descriptor / Construit le descripteur de connexion
func NewLoginPage(state domain.AuthState) LoginPageResponse {
	return LoginPageResponse{
		Path:    "/login",
		Fields:  []string{"email", "password"},
		Session: state,
	}
}

// UnauthenticatedResponse is the 401 body of guarded API routes
type UnauthenticatedResponse struct {
	Error    string `json:"error"`
	Redirect string `json:"redirect"`
}

// LoadingResponse is the 503 body while the session is loading
type LoadingResponse struct {
	Status string `json:"status"`
}

// RoleNames lists the role display names in canonical order / Liste les noms de rôles
func RoleNames() []string {
	roles := domain.AllRoles()
	names := make([]string, 0, len(roles))
	for _, r := range roles {
		names = append(names, r.String())
	}
	return names
}
