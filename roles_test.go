package identity_test

import (
	"testing"

	identity "github.com/goliatone/go-identity"
	"github.com/stretchr/testify/assert"
)

func TestTeamRole_IsValid(t *testing.T) {
	assert.True(t, identity.RoleAdmin.IsValid())
	assert.True(t, identity.RoleEditor.IsValid())
	assert.True(t, identity.RoleMember.IsValid())
	assert.False(t, identity.TeamRole("OWNER").IsValid())
	assert.False(t, identity.TeamRole("").IsValid())
}

func TestTeamRole_In(t *testing.T) {
	assert.True(t, identity.RoleEditor.In(identity.RoleAdmin, identity.RoleEditor))
	assert.False(t, identity.RoleMember.In(identity.RoleAdmin, identity.RoleEditor))
	assert.False(t, identity.RoleMember.In())
}

func TestParseTeamRole(t *testing.T) {
	tests := []struct {
		input string
		want  identity.TeamRole
		ok    bool
	}{
		{"ADMIN", identity.RoleAdmin, true},
		{"admin", identity.RoleAdmin, true},
		{" editor ", identity.RoleEditor, true},
		{"Member", identity.RoleMember, true},
		{"owner", identity.TeamRole("OWNER"), false},
		{"", identity.TeamRole(""), false},
	}

	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			got, ok := identity.ParseTeamRole(tc.input)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.ok, ok)
		})
	}
}
