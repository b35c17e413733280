package web

import (
	"net/http"

	"github.com/Olprog59/ehs-access/internal/domain"
	"github.com/Olprog59/ehs-access/internal/dto"
)

// CheckAccess answers GET /api/access?module=&permission= / Répond à une vérification d'accès
// Unknown names are denied, never rejected.
func (h *Handler) CheckAccess(w http.ResponseWriter, r *http.Request) {
	module := r.URL.Query().Get("module")
	permission := r.URL.Query().Get("permission")

	allowed := false
	if role, ok := h.container.SessionSvc.CurrentRole(); ok {
		allowed = h.container.AccessSvc.Check(role, module, permission)
	}

	jsonResponse(w, dto.AccessCheckResponse{
		Module:     module,
		Permission: permission,
		Allowed:    allowed,
	})
}

// ModuleAccess returns the current role's cell for one module
func (h *Handler) ModuleAccess(w http.ResponseWriter, r *http.Request) {
	module, _ := domain.ParseModule(r.PathValue("module"))
	jsonResponse(w, h.container.SessionSvc.GetModuleAccess(module))
}

// Navigation returns the sidebar entries visible to the current role / Retourne le menu latéral
func (h *Handler) Navigation(w http.ResponseWriter, r *http.Request) {
	items := []dto.NavItem{}
	if role, ok := h.container.SessionSvc.CurrentRole(); ok {
		items = dto.NavigationToDTO(h.container.AccessSvc.Navigation(role))
	}
	jsonResponse(w, items)
}

// Matrix returns every role's row / Retourne la matrice complète
func (h *Handler) Matrix(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, h.container.AccessSvc.Matrix())
}

// ModulePage builds the handler of one module page / Construit le gestionnaire d'une page de module
func (h *Handler) ModulePage(module domain.Module) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jsonResponse(w, dto.ModulePageToDTO(module, h.container.SessionSvc.GetModuleAccess(module)))
	}
}

// Fallback redirects unknown pages / Redirige les pages inconnues
// A module path with a trailing slash goes to its canonical path, anything else to the dashboard.
func (h *Handler) Fallback(w http.ResponseWriter, r *http.Request) {
	target := dashboardPath
	if module, ok := domain.ModuleByPath(r.URL.Path); ok {
		target = module.Path()
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// APINotFound answers unknown /api/ routes with JSON instead of a redirect
func (h *Handler) APINotFound(w http.ResponseWriter, r *http.Request) {
	ErrorResponse(w, "Not found", http.StatusNotFound)
}
