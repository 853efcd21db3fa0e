package auth

import (
	"github.com/gofiber/fiber/v2"
)

// GET /api/auth/me
func MeHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := CurrentIdentity(c)
		if id == nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"user": nil})
		}
		return c.JSON(fiber.Map{
			"user":    id,
			"canEdit": CanEdit(id.Role),
		})
	}
}
