package service

import (
	"fmt"
	"log/slog"

	"github.com/Olprog59/ehs-access/internal/domain"
)

// MatrixSource supplies permission cells / Fournit les cellules de permission
type MatrixSource interface {
	Access(role domain.Role, module domain.Module) (domain.ModuleAccess, bool)
}

// AccessMetricsRecorder records access decisions / Enregistre les décisions d'accès
type AccessMetricsRecorder interface {
	RecordAccessCheck(module, action string, allowed bool)
	RecordAccessLookupMiss(reason string)
}

// Lookup miss reasons, used as metric labels
const (
	missUnknownRole   = "unknown_role"
	missUnknownModule = "unknown_module"
	missUnknownAction = "unknown_action"
	missMissingCell   = "missing_cell"
	missPanic         = "panic"
)

// RoleAccess is one role's row of the matrix / Ligne de la matrice pour un rôle
type RoleAccess struct {
	Role    domain.Role           `json:"role"`
	Modules []domain.ModuleAccess `json:"modules"`
}

// AccessService evaluates the permission matrix. It fails soft: unknown inputs
// and lookup panics deny access instead of returning an error.
// AccessService évalue la matrice. Les entrées inconnues refusent l'accès.
type AccessService struct {
	matrix  MatrixSource
	metrics AccessMetricsRecorder
}

// NewAccessService creates access service; nil matrix means DefaultMatrix / Crée le service d'accès
func NewAccessService(matrix MatrixSource, metrics AccessMetricsRecorder) *AccessService {
	if matrix == nil {
		matrix = domain.DefaultMatrix
	}
	if metrics == nil {
		metrics = noopAccessMetrics{}
	}
	return &AccessService{matrix: matrix, metrics: metrics}
}

// GetModuleAccess returns the stored cell, or an all-false cell / Retourne la cellule ou un refus total
func (s *AccessService) GetModuleAccess(role domain.Role, module domain.Module) (cell domain.ModuleAccess) {
	defer s.recoverLookup("GetModuleAccess", role, module, func() { cell = domain.NoAccess(module) })

	if !role.IsValid() {
		s.miss(missUnknownRole, "role", role.String(), "module", module.String())
		return domain.NoAccess(module)
	}
	if !module.IsValid() {
		s.miss(missUnknownModule, "role", role.String(), "module", module.String())
		return domain.NoAccess(module)
	}

	cell, ok := s.matrix.Access(role, module)
	if !ok {
		s.miss(missMissingCell, "role", role.String(), "module", module.String())
		return domain.NoAccess(module)
	}
	return cell
}

// HasAccess reports whether role may perform action on module / Indique si le rôle peut agir sur le module
func (s *AccessService) HasAccess(role domain.Role, module domain.Module, action domain.Action) (allowed bool) {
	defer s.recoverLookup("HasAccess", role, module, func() { allowed = false })

	switch action {
	case domain.ActionView, domain.ActionEdit, domain.ActionDelete, domain.ActionCreate:
	default:
		s.miss(missUnknownAction, "role", role.String(), "module", module.String(), "action", action.String())
		return false
	}

	allowed = s.GetModuleAccess(role, module).Allows(action)
	if role.IsValid() && module.IsValid() {
		s.metrics.RecordAccessCheck(module.String(), action.String(), allowed)
	}
	return allowed
}

// Check is the string-keyed entry point used by HTTP handlers.
// Module names accept sidebar labels such as "JHA (Job Hazard Analyses)".
func (s *AccessService) Check(role domain.Role, moduleName, actionName string) bool {
	module, ok := domain.ParseModule(moduleName)
	if !ok {
		s.miss(missUnknownModule, "role", role.String(), "module", moduleName)
		return false
	}
	action, ok := domain.ParseAction(actionName)
	if !ok {
		s.miss(missUnknownAction, "role", role.String(), "module", module.String(), "action", actionName)
		return false
	}
	return s.HasAccess(role, module, action)
}

// Navigation returns the sidebar entries the role may view / Retourne les entrées de menu visibles
func (s *AccessService) Navigation(role domain.Role) []domain.ModuleConfig {
	items := make([]domain.ModuleConfig, 0, len(domain.AllModules()))
	for _, m := range domain.AllModules() {
		cfg := m.Config()
		if !cfg.InSidebar {
			continue
		}
		if s.GetModuleAccess(role, m).CanView {
			items = append(items, cfg)
		}
	}
	return items
}

// Matrix returns every role's row in canonical order / Retourne toutes les lignes dans l'ordre canonique
func (s *AccessService) Matrix() []RoleAccess {
	rows := make([]RoleAccess, 0, len(domain.AllRoles()))
	for _, r := range domain.AllRoles() {
		row := RoleAccess{Role: r, Modules: make([]domain.ModuleAccess, 0, len(domain.AllModules()))}
		for _, m := range domain.AllModules() {
			row.Modules = append(row.Modules, s.GetModuleAccess(r, m))
		}
		rows = append(rows, row)
	}
	return rows
}

func (s *AccessService) miss(reason string, args ...any) {
	s.metrics.RecordAccessLookupMiss(reason)
	slog.Warn("access lookup fell back to no access", append([]any{"reason", reason}, args...)...)
}

// recoverLookup turns a panic in the matrix source into a denial
func (s *AccessService) recoverLookup(op string, role domain.Role, module domain.Module, deny func()) {
	if r := recover(); r != nil {
		deny()
		s.metrics.RecordAccessLookupMiss(missPanic)
		slog.Warn("access lookup panicked",
			"op", op,
			"role", role.String(),
			"module", module.String(),
			"panic", fmt.Sprint(r),
		)
	}
}

type noopAccessMetrics struct{}

func (noopAccessMetrics) RecordAccessCheck(string, string, bool) {}
func (noopAccessMetrics) RecordAccessLookupMiss(string)          {}
