package domain

import "slices"

// Roles recognised by the service.
const (
	RoleUser       = "user"
	RoleAdmin      = "admin"
	RoleSuperAdmin = "super_admin"
	RoleSystem     = "system"
)

// Principal is an authenticated caller.
type Principal struct {
	UserID string   `json:"user_id"`
	Roles  []string `json:"roles"`
}

// HasRole reports whether the principal holds role.
func (p *Principal) HasRole(role string) bool {
	return p != nil && slices.Contains(p.Roles, role)
}

// IsAdmin reports whether the principal may moderate other users' content.
func (p *Principal) IsAdmin() bool {
	return p.HasRole(RoleAdmin) || p.HasRole(RoleSuperAdmin) || p.HasRole(RoleSystem)
}

// SystemPrincipal acts on behalf of the service itself, e.g. when cascading
// an account removal.
func SystemPrincipal() *Principal {
	return &Principal{UserID: "system", Roles: []string{RoleSystem}}
}

// UserStats is the per-user review counter.
type UserStats struct {
	UserID     string `json:"user_id"`
	NumReviews int    `json:"num_reviews"`
}
