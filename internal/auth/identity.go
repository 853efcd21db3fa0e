package auth

import (
	"context"
	"errors"

	"ngo-portal-backend/internal/apperr"
	"ngo-portal-backend/internal/models"

	"gorm.io/gorm"
)

// Identity is a resolved caller. Role is always canonical.
type Identity struct {
	UserID string      `json:"id"`
	Email  string      `json:"email"`
	Name   string      `json:"name"`
	Role   models.Role `json:"role"`
}

// MapLegacyRole maps the three-value users.role onto the canonical set.
// "user" cannot tell beneficiaries from donors and becomes beneficiary.
func MapLegacyRole(r models.LegacyRole) models.Role {
	switch r {
	case models.LegacyRoleAdmin:
		return models.RoleAdmin
	case models.LegacyRoleManager:
		return models.RoleProjectManager
	default:
		return models.RoleBeneficiary
	}
}

// NormalizeRole picks the profile role when one exists and is valid,
// otherwise falls back to the legacy mapping.
func NormalizeRole(profile *models.Profile, legacy models.LegacyRole) models.Role {
	if profile != nil && profile.Role.Valid() {
		return profile.Role
	}
	return MapLegacyRole(legacy)
}

// ResolveIdentity loads the user behind a verified session. Unknown or
// deactivated users resolve to nil without error.
func ResolveIdentity(ctx context.Context, db *gorm.DB, userID string) (*Identity, error) {
	var user models.User
	err := db.WithContext(ctx).First(&user, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Store("loading user", err)
	}
	if !user.IsActive {
		return nil, nil
	}

	var profile *models.Profile
	var p models.Profile
	err = db.WithContext(ctx).Where("user_id = ?", user.ID).Limit(1).Find(&p).Error
	if err != nil {
		return nil, apperr.Store("loading profile", err)
	}
	if p.ID != "" {
		profile = &p
	}

	return &Identity{
		UserID: user.ID,
		Email:  user.Email,
		Name:   user.FullName(),
		Role:   NormalizeRole(profile, user.Role),
	}, nil
}
