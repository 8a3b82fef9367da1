package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	role, err := ParseRole("role_super_admin")
	require.NoError(t, err)
	assert.Equal(t, RoleSuperAdmin, role)

	_, err = ParseRole("ROLE_GOD")
	assert.Error(t, err)
}

func TestRoleAuthorities_ReturnsCopy(t *testing.T) {
	auths := RoleAdmin.Authorities()
	auths[0] = "tampered"

	assert.Equal(t, []string{AuthorityUserRead, AuthorityUserCreate, AuthorityUserUpdate}, RoleAdmin.Authorities())
	assert.Contains(t, RoleSuperAdmin.Authorities(), AuthorityUserDelete)
	assert.NotContains(t, RoleUser.Authorities(), AuthorityUserDelete)
}
