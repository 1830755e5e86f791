package services

import (
	"eventops/models"
)

// RoleAuthorizer grants administrator capability by role name.
type RoleAuthorizer struct {
	adminRoles map[string]bool
}

func NewRoleAuthorizer(adminRoles ...string) *RoleAuthorizer {
	if len(adminRoles) == 0 {
		adminRoles = []string{models.RoleAdmin, models.RoleSuperAdmin}
	}
	roles := make(map[string]bool, len(adminRoles))
	for _, r := range adminRoles {
		roles[r] = true
	}
	return &RoleAuthorizer{adminRoles: roles}
}

func (ra *RoleAuthorizer) IsAdministrator(identity models.Identity) bool {
	return identity.UserID != "" && ra.adminRoles[identity.Role]
}
