package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Action is an operation a role may perform on a module / Opération qu'un rôle peut effectuer sur un module
type Action uint8

const (
	ActionUnknown Action = iota
	ActionView
	ActionEdit
	ActionDelete
	ActionCreate
)

var actionNames = [...]string{
	ActionUnknown: "",
	ActionView:    "view",
	ActionEdit:    "edit",
	ActionDelete:  "delete",
	ActionCreate:  "create",
}

// String returns action name / Retourne le nom de l'action
func (a Action) String() string {
	if int(a) >= len(actionNames) || a == ActionUnknown {
		return fmt.Sprintf("Action(%d)", uint8(a))
	}
	return actionNames[a]
}

// ParseAction maps "view", "edit", "delete" or "create" to an Action / Associe un nom à une Action
func ParseAction(name string) (Action, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i := 1; i < len(actionNames); i++ {
		if actionNames[i] == name {
			return Action(i), true
		}
	}
	return ActionUnknown, false
}

// AllActions returns the four actions / Retourne les quatre actions
func AllActions() []Action {
	return []Action{ActionView, ActionEdit, ActionDelete, ActionCreate}
}

// ModuleAccess is the set of allowed actions for one role on one module / Actions autorisées pour un rôle sur un module
type ModuleAccess struct {
	Module    Module `json:"module"`
	CanView   bool   `json:"canView"`
	CanEdit   bool   `json:"canEdit"`
	CanDelete bool   `json:"canDelete"`
	CanCreate bool   `json:"canCreate"`
}

// Allows reports whether the cell grants action / Indique si la cellule autorise l'action
func (a ModuleAccess) Allows(action Action) bool {
	switch action {
	case ActionView:
		return a.CanView
	case ActionEdit:
		return a.CanEdit
	case ActionDelete:
		return a.CanDelete
	case ActionCreate:
		return a.CanCreate
	default:
		return false
	}
}

// NoAccess returns an all-false cell for module / Retourne une cellule sans aucun droit
func NoAccess(module Module) ModuleAccess {
	return ModuleAccess{Module: module}
}

// Common grant shapes used by the default table
var (
	grantNone = ModuleAccess{}
	grantView = ModuleAccess{CanView: true}
	grantSelf = ModuleAccess{CanView: true, CanEdit: true}
	grantWork = ModuleAccess{CanView: true, CanEdit: true, CanCreate: true}
	grantFull = ModuleAccess{CanView: true, CanEdit: true, CanDelete: true, CanCreate: true}
)

// MatrixTable is the source form of a permission matrix / Forme source d'une matrice de permissions
type MatrixTable map[Role]map[Module]ModuleAccess

// ErrIncompleteMatrix is returned when a (role, module) cell is missing / Retournée quand une cellule manque
var ErrIncompleteMatrix = errors.New("permission matrix is incomplete")

// Matrix is a total, immutable role x module permission table / Table de permissions totale et immuable
type Matrix struct {
	cells [numRoles][numModules]ModuleAccess
}

// NewMatrix builds a matrix and fails if any cell is missing / Construit la matrice, échoue si une cellule manque
func NewMatrix(table MatrixTable) (*Matrix, error) {
	var missing []string
	for role := range table {
		if !role.IsValid() {
			return nil, fmt.Errorf("permission matrix: unknown role %s", role)
		}
	}

	m := &Matrix{}
	for _, role := range AllRoles() {
		row := table[role]
		for mod := range row {
			if !mod.IsValid() {
				return nil, fmt.Errorf("permission matrix: unknown module %s for role %s", mod, role)
			}
		}
		for _, mod := range AllModules() {
			cell, ok := row[mod]
			if !ok {
				missing = append(missing, role.String()+"/"+mod.String())
				continue
			}
			cell.Module = mod
			m.cells[role][mod] = cell
		}
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing %s", ErrIncompleteMatrix, strings.Join(missing, ", "))
	}
	return m, nil
}

// MustMatrix is like NewMatrix but panics on error / Comme NewMatrix mais panique en cas d'erreur
func MustMatrix(table MatrixTable) *Matrix {
	m, err := NewMatrix(table)
	if err != nil {
		panic(err)
	}
	return m
}

// Access returns the cell for role and module; ok is false for unknown keys / Retourne la cellule
func (m *Matrix) Access(role Role, module Module) (ModuleAccess, bool) {
	if !role.IsValid() || !module.IsValid() {
		return NoAccess(module), false
	}
	return m.cells[role][module], true
}

// Allows reports whether role may perform action on module / Indique si le rôle peut effectuer l'action
func (m *Matrix) Allows(role Role, module Module, action Action) bool {
	cell, ok := m.Access(role, module)
	return ok && cell.Allows(action)
}

// DefaultMatrix is the built-in EHS permission matrix / Matrice de permissions EHS intégrée
var DefaultMatrix = MustMatrix(DefaultMatrixTable())

// DefaultMatrixTable returns the built-in role x module grants / Retourne les droits intégrés
func DefaultMatrixTable() MatrixTable {
	// Area and site managers share the same grants.
	manager := map[Module]ModuleAccess{
		ModuleDashboard:           grantView,
		ModuleEmployees:           grantView,
		ModuleIncidentReporting:   grantWork,
		ModuleDocuments:           grantView,
		ModuleToolboxTalks:        grantWork,
		ModuleTraining:            grantView,
		ModuleNotifications:       grantView,
		ModuleAccount:             grantSelf,
		ModuleJHA:                 grantWork,
		ModuleSupport:             grantView,
		ModuleEquipmentInspection: grantWork,
		ModuleSiteAssessment:      grantWork,
		ModuleMessaging:           grantView,
	}

	return MatrixTable{
		RoleGMGAdmin: {
			ModuleDashboard:           grantFull,
			ModuleEmployees:           grantFull,
			ModuleIncidentReporting:   grantFull,
			ModuleDocuments:           grantFull,
			ModuleToolboxTalks:        grantFull,
			ModuleTraining:            grantFull,
			ModuleNotifications:       grantFull,
			ModuleAccount:             grantSelf,
			ModuleJHA:                 grantFull,
			ModuleSupport:             grantFull,
			ModuleEquipmentInspection: grantFull,
			ModuleSiteAssessment:      grantFull,
			ModuleMessaging:           grantFull,
		},
		RoleComplianceCoordinator: {
			ModuleDashboard:           grantView,
			ModuleEmployees:           grantWork,
			ModuleIncidentReporting:   grantWork,
			ModuleDocuments:           grantWork,
			ModuleToolboxTalks:        grantWork,
			ModuleTraining:            grantWork,
			ModuleNotifications:       grantView,
			ModuleAccount:             grantSelf,
			ModuleJHA:                 grantWork,
			ModuleSupport:             grantView,
			ModuleEquipmentInspection: grantWork,
			ModuleSiteAssessment:      grantWork,
			ModuleMessaging:           grantView,
		},
		RoleAreaManager: manager,
		RoleSiteManager: manager,
		RoleFieldTech: {
			ModuleDashboard:           grantView,
			ModuleEmployees:           grantNone,
			ModuleIncidentReporting:   grantWork,
			ModuleDocuments:           grantView,
			ModuleToolboxTalks:        grantView,
			ModuleTraining:            grantView,
			ModuleNotifications:       grantView,
			ModuleAccount:             grantSelf,
			ModuleJHA:                 grantView,
			ModuleSupport:             grantView,
			ModuleEquipmentInspection: grantWork,
			ModuleSiteAssessment:      grantWork,
			ModuleMessaging:           grantView,
		},
		RoleClient:  readOnlyRow(grantNone),
		RoleAuditor: readOnlyRow(grantView),
	}
}

// readOnlyRow grants view everywhere, self-service on Account, and employees as given
func readOnlyRow(employees ModuleAccess) map[Module]ModuleAccess {
	row := make(map[Module]ModuleAccess, numModules-1)
	for _, mod := range AllModules() {
		row[mod] = grantView
	}
	row[ModuleAccount] = grantSelf
	row[ModuleEmployees] = employees
	return row
}
