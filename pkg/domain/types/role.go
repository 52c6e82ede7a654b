package types

import "github.com/m-mizutani/goerr/v2"

// Role is the authorization role carried by a principal
type Role string

const (
	RoleAdmin     Role = "ADMIN"
	RoleAnalyst   Role = "ANALYST"
	RoleExecutive Role = "EXECUTIVE"
)

// IsValid checks if the role is valid
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleAnalyst, RoleExecutive:
		return true
	default:
		return false
	}
}

// String returns the string representation of the role
func (r Role) String() string {
	return string(r)
}

// ParseRole parses a string into a Role
func ParseRole(s string) (Role, error) {
	role := Role(s)
	if !role.IsValid() {
		return "", goerr.Wrap(ErrInvalidValue, "invalid role", goerr.V("role", s))
	}
	return role, nil
}
