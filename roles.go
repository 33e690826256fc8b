package identity

import "strings"

// TeamRole is the member's role within a team. The set is closed:
// authorization is a set-membership check over these three values.
type TeamRole string

const (
	// RoleAdmin is the team owner seat. Exactly one per team, created
	// with the team, immutable afterwards.
	RoleAdmin TeamRole = "ADMIN"
	// RoleEditor can view and edit team resources.
	RoleEditor TeamRole = "EDITOR"
	// RoleMember can view team resources.
	RoleMember TeamRole = "MEMBER"
)

// IsValid checks if the role is one of the predefined valid roles
func (r TeamRole) IsValid() bool {
	switch r {
	case RoleAdmin, RoleEditor, RoleMember:
		return true
	default:
		return false
	}
}

// In reports whether the role belongs to the given required set.
func (r TeamRole) In(roles ...TeamRole) bool {
	for _, candidate := range roles {
		if r == candidate {
			return true
		}
	}
	return false
}

// AllTeamRoles returns the closed role set.
func AllTeamRoles() []TeamRole {
	return []TeamRole{RoleAdmin, RoleEditor, RoleMember}
}

// ParseTeamRole safely parses a string into a TeamRole.
func ParseTeamRole(roleStr string) (TeamRole, bool) {
	role := TeamRole(strings.ToUpper(strings.TrimSpace(roleStr)))
	return role, role.IsValid()
}
