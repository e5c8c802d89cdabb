package domain

import "fmt"

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleUser, RoleAdmin:
		return Role(s), nil
	case "ROLE_USER":
		return RoleUser, nil
	case "ROLE_ADMIN":
		return RoleAdmin, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// Actor is the already-authenticated identity behind an engine call.
type Actor struct {
	ID   int64
	Role Role
}

func (a Actor) IsPrivileged() bool {
	return a.Role == RoleAdmin
}

func (a Actor) CanOwnSpots() bool {
	return a.Role == RoleUser
}
