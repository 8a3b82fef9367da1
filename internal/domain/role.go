package domain

import (
	"fmt"
	"strings"
)

// Authority names a single permission carried in tokens.
const (
	AuthorityUserRead   = "user:read"
	AuthorityUserCreate = "user:create"
	AuthorityUserUpdate = "user:update"
	AuthorityUserDelete = "user:delete"
)

// Role groups authorities under a named level.
type Role string

const (
	RoleUser       Role = "ROLE_USER"
	RoleHR         Role = "ROLE_HR"
	RoleManager    Role = "ROLE_MANAGER"
	RoleAdmin      Role = "ROLE_ADMIN"
	RoleSuperAdmin Role = "ROLE_SUPER_ADMIN"
)

var roleAuthorities = map[Role][]string{
	RoleUser:       {AuthorityUserRead},
	RoleHR:         {AuthorityUserRead, AuthorityUserUpdate},
	RoleManager:    {AuthorityUserRead, AuthorityUserUpdate},
	RoleAdmin:      {AuthorityUserRead, AuthorityUserCreate, AuthorityUserUpdate},
	RoleSuperAdmin: {AuthorityUserRead, AuthorityUserCreate, AuthorityUserUpdate, AuthorityUserDelete},
}

// Authorities returns a fresh copy of the role's authority list.
func (r Role) Authorities() []string {
	return append([]string(nil), roleAuthorities[r]...)
}

// ParseRole resolves a role name, ignoring case.
func ParseRole(name string) (Role, error) {
	role := Role(strings.ToUpper(strings.TrimSpace(name)))
	if _, ok := roleAuthorities[role]; !ok {
		return "", fmt.Errorf("unknown role %q", name)
	}
	return role, nil
}
