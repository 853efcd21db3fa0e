package auth

import (
	"errors"
	"testing"

	"ngo-portal-backend/internal/apperr"
	"ngo-portal-backend/internal/models"
)

func TestDecideCoversEveryRole(t *testing.T) {
	want := map[models.Role]Decision{
		models.RoleAdmin:          Allowed,
		models.RoleProjectManager: Allowed,
		models.RoleBeneficiary:    Forbidden,
		models.RoleDonor:          Forbidden,
	}
	for _, role := range models.Roles {
		d, ok := want[role]
		if !ok {
			t.Fatalf("role %q has no expected decision", role)
		}
		if got := Decide(&Identity{UserID: "u", Role: role}); got != d {
			t.Errorf("Decide(%s) = %s, want %s", role, got, d)
		}
	}
	if got := Decide(nil); got != Unauthenticated {
		t.Errorf("Decide(nil) = %s", got)
	}
	if got := Decide(&Identity{UserID: "u", Role: "superuser"}); got != Forbidden {
		t.Errorf("unknown role decision = %s", got)
	}
}

func TestAuthorizeErrors(t *testing.T) {
	if err := Authorize(nil); !errors.Is(err, apperr.ErrUnauthenticated) {
		t.Errorf("nil identity: %v", err)
	}
	if err := Authorize(&Identity{Role: models.RoleDonor}); !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("donor: %v", err)
	}
	if err := Authorize(&Identity{Role: models.RoleProjectManager}); err != nil {
		t.Errorf("project manager: %v", err)
	}
}

func TestNormalizeRole(t *testing.T) {
	manager := &models.Profile{Role: models.RoleProjectManager}
	donor := &models.Profile{Role: models.RoleDonor}
	broken := &models.Profile{Role: "owner"}

	tests := []struct {
		name    string
		profile *models.Profile
		legacy  models.LegacyRole
		want    models.Role
	}{
		{"legacy admin", nil, models.LegacyRoleAdmin, models.RoleAdmin},
		{"legacy manager", nil, models.LegacyRoleManager, models.RoleProjectManager},
		{"legacy user", nil, models.LegacyRoleUser, models.RoleBeneficiary},
		{"legacy empty", nil, "", models.RoleBeneficiary},
		{"profile wins over legacy admin", donor, models.LegacyRoleAdmin, models.RoleDonor},
		{"profile wins over legacy user", manager, models.LegacyRoleUser, models.RoleProjectManager},
		{"invalid profile falls back", broken, models.LegacyRoleManager, models.RoleProjectManager},
	}
	for _, tt := range tests {
		if got := NormalizeRole(tt.profile, tt.legacy); got != tt.want {
			t.Errorf("%s: got %s, want %s", tt.name, got, tt.want)
		}
	}
}
