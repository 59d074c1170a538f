package domain

import "github.com/google/uuid"

// Role is the coarse permission group of a user.
type Role string

const (
	RoleTraveler Role = "traveler"
	RoleGuide    Role = "guide"
	RoleAdmin    Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleTraveler || r == RoleGuide || r == RoleAdmin
}

// Actor is the authenticated user on whose behalf a service call runs.
type Actor struct {
	UserID uuid.UUID
	Role   Role
}

// IsAdmin reports whether the actor bypasses ownership checks.
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}
