package auth

import (
	"ngo-portal-backend/internal/apperr"
	"ngo-portal-backend/internal/models"
)

// Decision is the outcome of the edit-access gate.
type Decision int

const (
	Allowed Decision = iota
	Unauthenticated
	Forbidden
)

func (d Decision) String() string {
	switch d {
	case Allowed:
		return "allowed"
	case Unauthenticated:
		return "unauthenticated"
	case Forbidden:
		return "forbidden"
	}
	return "unknown"
}

// CanEdit reports whether role may mutate financial or operational records.
func CanEdit(role models.Role) bool {
	return role == models.RoleAdmin || role == models.RoleProjectManager
}

// Decide runs the edit-access gate. It has no side effects.
func Decide(id *Identity) Decision {
	if id == nil {
		return Unauthenticated
	}
	if !CanEdit(id.Role) {
		return Forbidden
	}
	return Allowed
}

// Authorize is Decide expressed as an error from the apperr taxonomy.
func Authorize(id *Identity) error {
	switch Decide(id) {
	case Unauthenticated:
		return apperr.ErrUnauthenticated
	case Forbidden:
		return apperr.ErrForbidden
	}
	return nil
}
