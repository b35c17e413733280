package domain

import (
	"fmt"
	"strings"
)

// Module identifies a dashboard functional area / Identifie une zone fonctionnelle du tableau de bord
type Module uint8

const (
	ModuleUnknown Module = iota
	ModuleDashboard
	ModuleEmployees
	ModuleIncidentReporting
	ModuleDocuments
	ModuleToolboxTalks
	ModuleTraining
	ModuleNotifications
	ModuleAccount
	ModuleJHA
	ModuleSupport
	ModuleEquipmentInspection
	ModuleSiteAssessment
	ModuleMessaging

	numModules = int(ModuleMessaging) + 1
)

// ModuleConfig describes a module page / Décrit la page d'un module
type ModuleConfig struct {
	Name          string `json:"name"`
	Label         string `json:"label"`
	Path          string `json:"path"`
	Description   string `json:"description"`
	IsImplemented bool   `json:"isImplemented"`
	InSidebar     bool   `json:"-"`
}

var moduleConfigs = [numModules]ModuleConfig{
	ModuleDashboard: {
		Name: "Dashboard", Path: "/dashboard",
		Description: "Safety KPIs and recent activity overview",
		IsImplemented: true, InSidebar: true,
	},
	ModuleEmployees: {
		Name: "Employees", Path: "/employees",
		Description: "Workforce directory and assignments",
		IsImplemented: true, InSidebar: true,
	},
	ModuleIncidentReporting: {
		Name: "Incident Reporting", Path: "/incident-reporting",
		Description: "Report and track safety incidents",
		IsImplemented: true, InSidebar: true,
	},
	ModuleDocuments: {
		Name: "Documents", Path: "/documents",
		Description: "Policies, procedures and records",
		IsImplemented: true, InSidebar: true,
	},
	ModuleToolboxTalks: {
		Name: "Toolbox Talks", Path: "/toolbox-talks",
		Description: "Short safety briefings and attendance",
		IsImplemented: true, InSidebar: true,
	},
	ModuleTraining: {
		Name: "Training & Certification", Path: "/training",
		Description: "Courses, certifications and expiry tracking",
		IsImplemented: true, InSidebar: true,
	},
	ModuleNotifications: {
		Name: "Notifications", Path: "/notifications",
		Description: "Alerts and reminders",
		IsImplemented: true, InSidebar: true,
	},
	ModuleAccount: {
		Name: "Account", Path: "/account",
		Description: "Profile and preferences",
		IsImplemented: true,
	},
	ModuleJHA: {
		Name: "JHA", Label: "JHA (Job Hazard Analyses)", Path: "/jha",
		Description: "Job hazard analyses and controls",
		IsImplemented: true, InSidebar: true,
	},
	ModuleSupport: {
		Name: "Support", Path: "/support",
		Description: "Help desk tickets",
		IsImplemented: true, InSidebar: true,
	},
	ModuleEquipmentInspection: {
		Name: "Equipment Inspection", Path: "/equipment-inspection",
		Description: "Equipment checklists and inspection history",
		IsImplemented: true, InSidebar: true,
	},
	ModuleSiteAssessment: {
		Name: "Site Assessment", Path: "/site-assessment",
		Description: "Site audits and findings",
		IsImplemented: true, InSidebar: true,
	},
	ModuleMessaging: {
		Name: "Messaging", Path: "/messaging",
		Description: "Team conversations",
		IsImplemented: true, InSidebar: true,
	},
}

// IsValid checks if module is one of the thirteen known modules / Vérifie si le module est connu
func (m Module) IsValid() bool {
	return m > ModuleUnknown && int(m) < numModules
}

// String returns the canonical module name / Retourne le nom canonique du module
func (m Module) String() string {
	if !m.IsValid() {
		return fmt.Sprintf("Module(%d)", uint8(m))
	}
	return moduleConfigs[m].Name
}

// Config returns the page descriptor; zero value for unknown modules / Retourne le descripteur de page
func (m Module) Config() ModuleConfig {
	if !m.IsValid() {
		return ModuleConfig{}
	}
	cfg := moduleConfigs[m]
	if cfg.Label == "" {
		cfg.Label = cfg.Name
	}
	return cfg
}

// Path returns the route path / Retourne le chemin de la route
func (m Module) Path() string {
	return m.Config().Path
}

// MarshalText encodes module as its canonical name / Encode le module par son nom canonique
func (m Module) MarshalText() ([]byte, error) {
	if !m.IsValid() {
		return []byte(""), nil
	}
	return []byte(moduleConfigs[m].Name), nil
}

// UnmarshalText decodes a module name; empty text is the unknown module / Décode le nom du module
func (m *Module) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*m = ModuleUnknown
		return nil
	}
	parsed, ok := ParseModule(string(text))
	if !ok {
		return fmt.Errorf("unknown module %q", string(text))
	}
	*m = parsed
	return nil
}

// ParseModule maps a module name or sidebar label to a Module / Associe un nom ou libellé à un Module
// "JHA (Job Hazard Analyses)" resolves to ModuleJHA.
func ParseModule(name string) (Module, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return ModuleUnknown, false
	}
	for i := 1; i < numModules; i++ {
		cfg := moduleConfigs[i]
		if cfg.Name == name || (cfg.Label != "" && cfg.Label == name) {
			return Module(i), true
		}
	}
	return ModuleUnknown, false
}

// ModuleByPath finds the module served at path / Trouve le module servi sur le chemin
func ModuleByPath(path string) (Module, bool) {
	path = strings.TrimSuffix(path, "/")
	for i := 1; i < numModules; i++ {
		if moduleConfigs[i].Path == path {
			return Module(i), true
		}
	}
	return ModuleUnknown, false
}

// AllModules returns modules in canonical order / Retourne les modules dans l'ordre canonique
func AllModules() []Module {
	mods := make([]Module, 0, numModules-1)
	for i := 1; i < numModules; i++ {
		mods = append(mods, Module(i))
	}
	return mods
}
