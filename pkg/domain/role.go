package domain

import dErrors "sipro/pkg/domain-errors"

// Role is the closed set of user roles.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleOperator Role = "operator"
	RoleUser     Role = "user"
	RoleReadonly Role = "readonly"
)

// ParseRole validates a role string against the closed enumeration.
func ParseRole(raw string) (Role, error) {
	switch Role(raw) {
	case RoleAdmin, RoleOperator, RoleUser, RoleReadonly:
		return Role(raw), nil
	}
	return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown role %q", raw)
}

// Privileged reports whether the role sees all protocols regardless of
// sector membership.
func (r Role) Privileged() bool {
	return r == RoleAdmin || r == RoleOperator
}
