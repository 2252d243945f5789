package model

import "strings"

// Role is the combat role a member plays.
type Role string

const (
	RoleNone   Role = ""
	RoleDPS    Role = "DPS"
	RoleHealer Role = "Healer"
	RoleTank   Role = "Tank"
)

// ParseRole normalizes a role string case-insensitively.
// Anything unrecognized maps to RoleNone instead of failing.
func ParseRole(s string) Role {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "dps":
		return RoleDPS
	case "healer":
		return RoleHealer
	case "tank":
		return RoleTank
	default:
		return RoleNone
	}
}

func (r Role) IsValid() bool {
	return r == RoleDPS || r == RoleHealer || r == RoleTank
}

// APIName is the lowercase form used by the remote service.
func (r Role) APIName() string {
	return strings.ToLower(string(r))
}

// Rank orders roles for display: Tank, Healer, DPS, then unranked.
func (r Role) Rank() int {
	switch r {
	case RoleTank:
		return 1
	case RoleHealer:
		return 2
	case RoleDPS:
		return 3
	default:
		return 99
	}
}

func (r *Role) UnmarshalText(text []byte) error {
	*r = ParseRole(string(text))
	return nil
}
