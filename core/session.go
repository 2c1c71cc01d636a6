package core

import "strings"

// Role is the capability a session was granted.
type Role string

const (
	RoleGuest Role = "guest"
	RoleAdmin Role = "admin"
)

// ParseRole maps user input to a Role. Unknown values report false.
func ParseRole(raw string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(raw))) {
	case RoleGuest:
		return RoleGuest, true
	case RoleAdmin:
		return RoleAdmin, true
	}
	return "", false
}

// CanEdit reports whether the role may change slides.
func (r Role) CanEdit() bool {
	return r == RoleAdmin
}
