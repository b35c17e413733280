package domain

import (
	"fmt"
	"strings"
)

// Role identifies one of the seven dashboard roles / Identifie l'un des sept rôles du tableau de bord
type Role uint8

const (
	RoleUnknown               Role = iota // Not one of the seven roles / Aucun des sept rôles
	RoleGMGAdmin                          // Full platform administration / Administration complète
	RoleComplianceCoordinator             // Compliance programs, no deletes / Conformité, sans suppression
	RoleAreaManager                       // Area-level operations / Opérations au niveau zone
	RoleSiteManager                       // Site-level operations / Opérations au niveau site
	RoleFieldTech                         // Employee (Field Tech) / Employé terrain
	RoleClient                            // External client, read-only / Client externe, lecture seule
	RoleAuditor                           // Read-only auditor / Auditeur en lecture seule

	numRoles = int(RoleAuditor) + 1
)

var roleNames = [numRoles]string{
	RoleUnknown:               "",
	RoleGMGAdmin:              "GMG Admin",
	RoleComplianceCoordinator: "Compliance Coordinator",
	RoleAreaManager:           "Area Manager",
	RoleSiteManager:           "Site Manager",
	RoleFieldTech:             "Employee (Field Tech)",
	RoleClient:                "Client",
	RoleAuditor:               "Auditor",
}

// IsValid checks if role is one of the seven known roles / Vérifie si le rôle est connu
func (r Role) IsValid() bool {
	return r > RoleUnknown && int(r) < numRoles
}

// String returns the display name / Retourne le nom affiché
func (r Role) String() string {
	if !r.IsValid() {
		return fmt.Sprintf("Role(%d)", uint8(r))
	}
	return roleNames[r]
}

// MarshalText encodes role as its display name / Encode le rôle par son nom affiché
func (r Role) MarshalText() ([]byte, error) {
	if !r.IsValid() {
		return []byte(""), nil
	}
	return []byte(roleNames[r]), nil
}

// UnmarshalText decodes display name, rejecting unknown roles / Décode le nom, rejette les rôles inconnus
func (r *Role) UnmarshalText(text []byte) error {
	parsed, ok := ParseRole(string(text))
	if !ok {
		return fmt.Errorf("unknown role %q", string(text))
	}
	*r = parsed
	return nil
}

// ParseRole maps a display name to a Role / Associe un nom affiché à un Role
func ParseRole(name string) (Role, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return RoleUnknown, false
	}
	for i := 1; i < numRoles; i++ {
		if roleNames[i] == name {
			return Role(i), true
		}
	}
	return RoleUnknown, false
}

// AllRoles returns the roles in canonical order / Retourne les rôles dans l'ordre canonique
func AllRoles() []Role {
	roles := make([]Role, 0, numRoles-1)
	for i := 1; i < numRoles; i++ {
		roles = append(roles, Role(i))
	}
	return roles
}
