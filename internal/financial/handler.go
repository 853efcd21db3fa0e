package financial

import (
	"ngo-portal-backend/internal/apperr"
	"ngo-portal-backend/internal/database"
	"ngo-portal-backend/internal/ledger"
	"ngo-portal-backend/internal/performance"

	"github.com/gofiber/fiber/v2"
)

// -----------------------------------
// GET /api/financials
// ?projectId=...
// -----------------------------------
//
// Physical vs. financial performance per project plus portfolio totals.
// An unknown projectId is a 404 rather than an empty report.
func PerformanceHandler(policy performance.Policy) fiber.Handler {
	return func(c *fiber.Ctx) error {
		projectID := c.Query("projectId")

		snap, err := ledger.LoadSnapshot(c.UserContext(), database.DB, projectID)
		if err != nil {
			return err
		}
		if projectID != "" && len(snap.Projects) == 0 {
			return apperr.NotFound("project")
		}

		report := performance.Aggregate(snap.Scope(projectID), policy)
		return c.JSON(report)
	}
}
