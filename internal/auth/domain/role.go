package domain

import "fmt"

// Role is the closed set of authorisation levels.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

func (r Role) String() string { return string(r) }

// ParseRole accepts the stored role names. The "ROLE_" prefix used by older
// rows is tolerated.
func ParseRole(s string) (Role, error) {
	switch s {
	case "USER", "ROLE_USER":
		return RoleUser, nil
	case "ADMIN", "ROLE_ADMIN":
		return RoleAdmin, nil
	default:
		return "", fmt.Errorf("domain: unknown role %q", s)
	}
}
