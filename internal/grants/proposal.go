package grants

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"ngo-portal-backend/internal/apperr"
	"ngo-portal-backend/internal/audit"
	"ngo-portal-backend/internal/auth"
	"ngo-portal-backend/internal/database"
	"ngo-portal-backend/internal/input"
	"ngo-portal-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// ProposalRequest is shared by create and update. On update, omitted
// fields keep their stored value.
type ProposalRequest struct {
	Title           *string         `json:"title"`
	DonorID         *string         `json:"donorId"`
	ProjectID       *string         `json:"projectId"`
	Status          *string         `json:"status"`
	AmountRequested json.RawMessage `json:"amountRequested"`
	AmountApproved  json.RawMessage `json:"amountApproved"`
	Currency        *string         `json:"currency"`
	SubmissionDate  *string         `json:"submissionDate"`
	DecisionDate    *string         `json:"decisionDate"`
	Description     *string         `json:"description"`
	Notes           *string         `json:"notes"`
}

func (r ProposalRequest) apply(tx *gorm.DB, p *models.Proposal, creating bool) error {
	if r.Title != nil {
		p.Title = strings.TrimSpace(*r.Title)
	}
	if p.Title == "" {
		return apperr.Invalid("title", "is required")
	}

	if creating || len(r.AmountRequested) > 0 {
		v, err := input.Amount("amountRequested", r.AmountRequested)
		if err != nil {
			return err
		}
		p.AmountRequested = v
	}
	if len(r.AmountApproved) > 0 {
		v, err := input.OptionalAmount("amountApproved", r.AmountApproved)
		if err != nil {
			return err
		}
		p.AmountApproved = v
	}

	if r.Status != nil {
		p.Status = models.ProposalStatus(*r.Status)
	}
	if p.Status == "" {
		p.Status = models.ProposalStatusDraft
	}
	if !p.Status.Valid() {
		return apperr.Invalid("status", "is not a valid proposal status")
	}

	if r.Currency != nil {
		p.Currency = strings.ToUpper(strings.TrimSpace(*r.Currency))
	}
	if p.Currency == "" {
		p.Currency = "USD"
	}
	if len(p.Currency) != 3 {
		return apperr.Invalid("currency", "must be a three-letter code")
	}

	var err error
	if r.SubmissionDate != nil {
		if p.SubmissionDate, err = input.OptionalDate("submissionDate", r.SubmissionDate); err != nil {
			return err
		}
	}
	if r.DecisionDate != nil {
		if p.DecisionDate, err = input.OptionalDate("decisionDate", r.DecisionDate); err != nil {
			return err
		}
	}
	if r.Description != nil {
		p.Description = strings.TrimSpace(*r.Description)
	}
	if r.Notes != nil {
		p.Notes = strings.TrimSpace(*r.Notes)
	}

	if r.DonorID != nil {
		p.DonorID = input.OptionalID(r.DonorID)
		if p.DonorID != nil {
			if err := exists(tx, &models.Donor{}, *p.DonorID, "donorId", "donor"); err != nil {
				return err
			}
		}
	}
	if r.ProjectID != nil {
		p.ProjectID = input.OptionalID(r.ProjectID)
		if p.ProjectID != nil {
			if err := exists(tx, &models.Project{}, *p.ProjectID, "projectId", "project"); err != nil {
				return err
			}
		}
	}
	return nil
}

// POST /api/proposals
func CreateProposalHandler(rec *audit.Recorder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := auth.EditorIdentity(c)
		if err != nil {
			return err
		}

		var body ProposalRequest
		if err := parseBody(c, &body); err != nil {
			return err
		}

		var p models.Proposal
		err = rec.Mutate(c.UserContext(), database.DB, audit.FiberActor(c, id.UserID), func(tx *gorm.DB) (audit.Entry, error) {
			p.CreatedBy = id.UserID
			if err := body.apply(tx, &p, true); err != nil {
				return audit.Entry{}, err
			}
			if err := tx.Create(&p).Error; err != nil {
				return audit.Entry{}, apperr.Store("creating proposal", err)
			}
			return audit.Entry{
				Action:     models.AuditActionCreate,
				EntityType: EntityProposal,
				EntityID:   p.ID,
				Changes:    audit.CreateChanges(p),
			}, nil
		})
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"proposal": p})
	}
}

// GET /api/proposals?status=...&donorId=...&projectId=...
func ListProposalsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbq := database.DB.WithContext(c.UserContext()).Model(&models.Proposal{})
		if v := c.Query("status"); v != "" {
			dbq = dbq.Where("status = ?", v)
		}
		if v := c.Query("donorId"); v != "" {
			dbq = dbq.Where("donor_id = ?", v)
		}
		if v := c.Query("projectId"); v != "" {
			dbq = dbq.Where("project_id = ?", v)
		}
		var proposals []models.Proposal
		if err := dbq.Order("created_at DESC").Find(&proposals).Error; err != nil {
			return apperr.Store("listing proposals", err)
		}
		return c.JSON(fiber.Map{"proposals": proposals})
	}
}

// PUT /api/proposals/:id
func UpdateProposalHandler(rec *audit.Recorder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := auth.EditorIdentity(c)
		if err != nil {
			return err
		}

		var body ProposalRequest
		if err := parseBody(c, &body); err != nil {
			return err
		}

		var updated models.Proposal
		err = rec.Mutate(c.UserContext(), database.DB, audit.FiberActor(c, id.UserID), func(tx *gorm.DB) (audit.Entry, error) {
			before, err := loadProposal(tx, c.Params("id"))
			if err != nil {
				return audit.Entry{}, err
			}
			after := before
			if err := body.apply(tx, &after, false); err != nil {
				return audit.Entry{}, err
			}
			after.UpdatedAt = time.Now()
			if err := tx.Select("*").Omit("created_at", "created_by").Updates(&after).Error; err != nil {
				return audit.Entry{}, apperr.Store("updating proposal", err)
			}
			updated = after
			return audit.Entry{
				Action:     models.AuditActionUpdate,
				EntityType: EntityProposal,
				EntityID:   before.ID,
				Changes:    audit.UpdateChanges(before, after),
			}, nil
		})
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"proposal": updated})
	}
}

// DELETE /api/proposals/:id
func DeleteProposalHandler(rec *audit.Recorder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := auth.EditorIdentity(c)
		if err != nil {
			return err
		}

		err = rec.Mutate(c.UserContext(), database.DB, audit.FiberActor(c, id.UserID), func(tx *gorm.DB) (audit.Entry, error) {
			before, err := loadProposal(tx, c.Params("id"))
			if err != nil {
				return audit.Entry{}, err
			}
			if err := tx.Delete(&models.Proposal{}, "id = ?", before.ID).Error; err != nil {
				return audit.Entry{}, apperr.Store("deleting proposal", err)
			}
			return audit.Entry{
				Action:     models.AuditActionDelete,
				EntityType: EntityProposal,
				EntityID:   before.ID,
				Changes:    audit.DeleteChanges(before),
			}, nil
		})
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"success": true})
	}
}

func loadProposal(tx *gorm.DB, proposalID string) (models.Proposal, error) {
	var p models.Proposal
	err := tx.First(&p, "id = ?", proposalID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return p, apperr.NotFound("proposal")
	}
	if err != nil {
		return p, apperr.Store("loading proposal", err)
	}
	return p, nil
}

func exists(tx *gorm.DB, model any, id, field, entity string) error {
	var n int64
	if err := tx.Model(model).Where("id = ?", id).Count(&n).Error; err != nil {
		return apperr.Store("loading "+entity, err)
	}
	if n == 0 {
		return apperr.Invalid(field, "does not reference an existing "+entity)
	}
	return nil
}
