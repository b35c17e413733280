package dto

import "github.com/Olprog59/ehs-access/internal/domain"

// AccessCheckResponse answers a single permission check
type AccessCheckResponse struct {
	Module     string `json:"module"`
	Permission string `json:"permission"`
	Allowed    bool   `json:"allowed"`
}

// NavItem is one sidebar entry / Entrée du menu latéral
type NavItem struct {
	Name          string `json:"name"`
	Label         string `json:"label"`
	Path          string `json:"path"`
	IsImplemented bool   `json:"isImplemented"`
}

// NavigationToDTO converts module configs to sidebar entries / Convertit les configs en entrées de menu
func NavigationToDTO(modules []domain.ModuleConfig) []NavItem {
	items := make([]NavItem, 0, len(modules))
	for _, m := range modules {
		items = append(items, NavItem{
			Name:          m.Name,
			Label:         m.Label,
			Path:          m.Path,
			IsImplemented: m.IsImplemented,
		})
	}
	return items
}

// ModulePageResponse describes a module page for the current role / Décrit une page de module
type ModulePageResponse struct {
	Module        string              `json:"module"`
	Label         string              `json:"label"`
	Path          string              `json:"path"`
	Description   string              `json:"description"`
	IsImplemented bool                `json:"isImplemented"`
	Access        domain.ModuleAccess `json:"access"`
}

// ModulePageToDTO builds the page descriptor / Construit le descripteur de page
func ModulePageToDTO(module domain.Module, access domain.ModuleAccess) ModulePageResponse {
	cfg := module.Config()
	return ModulePageResponse{
		Module:        cfg.Name,
		Label:         cfg.Label,
		Path:          cfg.Path,
		Description:   cfg.Description,
		IsImplemented: cfg.IsImplemented,
		Access:        access,
	}
}
