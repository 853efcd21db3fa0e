package grants

import (
	"ngo-portal-backend/internal/apperr"
	"ngo-portal-backend/internal/database"
	"ngo-portal-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

// PipelineSummary is the funding pipeline at a glance.
type PipelineSummary struct {
	Total          int                           `json:"total"`
	ByStatus       map[models.ProposalStatus]int `json:"byStatus"`
	TotalRequested int64                         `json:"totalRequested"`
	// ApprovedAmount counts approved proposals at their approved amount,
	// or at the requested amount when none was recorded.
	ApprovedAmount int64 `json:"approvedAmount"`
}

func Pipeline(proposals []models.Proposal) PipelineSummary {
	s := PipelineSummary{ByStatus: map[models.ProposalStatus]int{
		models.ProposalStatusDraft:       0,
		models.ProposalStatusSubmitted:   0,
		models.ProposalStatusUnderReview: 0,
		models.ProposalStatusApproved:    0,
		models.ProposalStatusRejected:    0,
	}}
	for _, p := range proposals {
		s.Total++
		s.ByStatus[p.Status]++
		s.TotalRequested += p.AmountRequested
		if p.Status != models.ProposalStatusApproved {
			continue
		}
		if p.AmountApproved != nil {
			s.ApprovedAmount += *p.AmountApproved
		} else {
			s.ApprovedAmount += p.AmountRequested
		}
	}
	return s
}

// GET /api/proposals/pipeline?donorId=...
func PipelineHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbq := database.DB.WithContext(c.UserContext()).
			Select("status", "amount_requested", "amount_approved")
		if v := c.Query("donorId"); v != "" {
			dbq = dbq.Where("donor_id = ?", v)
		}
		var proposals []models.Proposal
		if err := dbq.Find(&proposals).Error; err != nil {
			return apperr.Store("loading proposals", err)
		}
		return c.JSON(Pipeline(proposals))
	}
}
