package admin

import (
	"ngo-portal-backend/internal/apperr"
	"ngo-portal-backend/internal/auth"
	"ngo-portal-backend/internal/database"
	"ngo-portal-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

// UserResponse is the directory view of a user. Role is canonical; the
// legacy column is never exposed.
type UserResponse struct {
	ID         string      `json:"id"`
	FirstName  string      `json:"firstName"`
	LastName   string      `json:"lastName"`
	Email      string      `json:"email"`
	Role       models.Role `json:"role"`
	Department string      `json:"department,omitempty"`
	IsActive   bool        `json:"isActive"`
}

// GET /api/users?role=project_manager
//
// Used by the UI to pick task assignees and project managers.
func ListUsersHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		roleFilter := models.Role(c.Query("role"))
		if roleFilter != "" && !roleFilter.Valid() {
			return apperr.Invalid("role", "is not a valid role")
		}

		db := database.DB.WithContext(c.UserContext())

		var users []models.User
		if err := db.Order("first_name, last_name").Find(&users).Error; err != nil {
			return apperr.Store("listing users", err)
		}

		var profiles []models.Profile
		if err := db.Find(&profiles).Error; err != nil {
			return apperr.Store("listing profiles", err)
		}
		byUser := make(map[string]*models.Profile, len(profiles))
		for i := range profiles {
			byUser[profiles[i].UserID] = &profiles[i]
		}

		res := make([]UserResponse, 0, len(users))
		for _, u := range users {
			role := auth.NormalizeRole(byUser[u.ID], u.Role)
			if roleFilter != "" && role != roleFilter {
				continue
			}
			res = append(res, UserResponse{
				ID:         u.ID,
				FirstName:  u.FirstName,
				LastName:   u.LastName,
				Email:      u.Email,
				Role:       role,
				Department: u.Department,
				IsActive:   u.IsActive,
			})
		}

		return c.JSON(fiber.Map{"users": res})
	}
}
