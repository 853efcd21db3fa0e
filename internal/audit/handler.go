package audit

import (
	"ngo-portal-backend/internal/apperr"
	"ngo-portal-backend/internal/database"
	"ngo-portal-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

const maxListLimit = 500

// GET /api/audit-logs?entityType=expenditure&entityId=...&actorUserId=...&limit=100
func ListAuditLogsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbq := database.DB.WithContext(c.UserContext()).Model(&models.AuditLog{})

		if v := c.Query("entityType"); v != "" {
			dbq = dbq.Where("entity_type = ?", v)
		}
		if v := c.Query("entityId"); v != "" {
			dbq = dbq.Where("entity_id = ?", v)
		}
		if v := c.Query("actorUserId"); v != "" {
			dbq = dbq.Where("actor_user_id = ?", v)
		}

		limit := c.QueryInt("limit", 100)
		if limit <= 0 || limit > maxListLimit {
			return apperr.Invalid("limit", "must be between 1 and 500")
		}

		var logs []models.AuditLog
		if err := dbq.Order("created_at DESC, id DESC").Limit(limit).Find(&logs).Error; err != nil {
			return apperr.Store("listing audit logs", err)
		}
		return c.JSON(fiber.Map{"auditLogs": logs})
	}
}
