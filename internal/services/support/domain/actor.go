package domain

import "strings"

// Role classifies an authenticated actor.
type Role string

const (
	RoleUser              Role = "USER"
	RoleSupportSpecialist Role = "SUPPORT_SPECIALIST"
	RoleAdmin             Role = "ADMIN"
)

// ParseRole maps a raw claim value to a known role.
func ParseRole(value string) (Role, bool) {
	switch Role(strings.ToUpper(strings.TrimSpace(value))) {
	case RoleUser:
		return RoleUser, true
	case RoleSupportSpecialist:
		return RoleSupportSpecialist, true
	case RoleAdmin:
		return RoleAdmin, true
	default:
		return "", false
	}
}

// Actor is the per-request identity resolved from an access token.
// It is never persisted.
type Actor struct {
	ID   string
	Role Role
}

// isSupportStaff reports whether the actor can act on arbitrary users.
func (a Actor) isSupportStaff() bool {
	return a.Role == RoleSupportSpecialist || a.Role == RoleAdmin
}
