// Package grants manages donors and the funding proposals sent to them.
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

const (
	EntityDonor    = "donor"
	EntityProposal = "proposal"
)

var donorTypes = map[string]bool{
	"individual":   true,
	"foundation":   true,
	"corporate":    true,
	"government":   true,
	"multilateral": true,
	"other":        true,
}

// DonorRequest is shared by create and update. On update, omitted fields
// keep their stored value.
type DonorRequest struct {
	Name             *string         `json:"name"`
	Type             *string         `json:"type"`
	ContactPerson    *string         `json:"contactPerson"`
	Email            *string         `json:"email"`
	Phone            *string         `json:"phone"`
	Address          *string         `json:"address"`
	Website          *string         `json:"website"`
	FocusAreas       *string         `json:"focusAreas"`
	AverageGrantSize json.RawMessage `json:"averageGrantSize"`
	Notes            *string         `json:"notes"`
}

// apply copies the present fields onto d and validates the result.
func (r DonorRequest) apply(d *models.Donor) error {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	set(&d.Name, r.Name)
	set(&d.Type, r.Type)
	set(&d.ContactPerson, r.ContactPerson)
	set(&d.Email, r.Email)
	set(&d.Phone, r.Phone)
	set(&d.Address, r.Address)
	set(&d.Website, r.Website)
	set(&d.FocusAreas, r.FocusAreas)
	set(&d.Notes, r.Notes)

	if d.Name == "" {
		return apperr.Invalid("name", "is required")
	}
	if d.Type == "" {
		return apperr.Invalid("type", "is required")
	}
	if !donorTypes[d.Type] {
		return apperr.Invalid("type", "is not a valid donor type")
	}
	if d.Email != "" && !strings.Contains(d.Email, "@") {
		return apperr.Invalid("email", "must be an email address")
	}
	if len(r.AverageGrantSize) > 0 {
		v, err := input.OptionalAmount("averageGrantSize", r.AverageGrantSize)
		if err != nil {
			return err
		}
		d.AverageGrantSize = v
	}
	return nil
}

func parseBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return apperr.Invalid("body", "must be valid JSON")
	}
	return nil
}

// POST /api/donors
func CreateDonorHandler(rec *audit.Recorder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := auth.EditorIdentity(c)
		if err != nil {
			return err
		}

		var body DonorRequest
		if err := parseBody(c, &body); err != nil {
			return err
		}
		var d models.Donor
		if err := body.apply(&d); err != nil {
			return err
		}

		err = rec.Mutate(c.UserContext(), database.DB, audit.FiberActor(c, id.UserID), func(tx *gorm.DB) (audit.Entry, error) {
			if err := tx.Create(&d).Error; err != nil {
				return audit.Entry{}, apperr.Store("creating donor", err)
			}
			return audit.Entry{
				Action:     models.AuditActionCreate,
				EntityType: EntityDonor,
				EntityID:   d.ID,
				Changes:    audit.CreateChanges(d),
			}, nil
		})
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"donor": d})
	}
}

// GET /api/donors
func ListDonorsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbq := database.DB.WithContext(c.UserContext()).Model(&models.Donor{})
		if v := c.Query("type"); v != "" {
			dbq = dbq.Where("type = ?", v)
		}
		var donors []models.Donor
		if err := dbq.Order("name").Find(&donors).Error; err != nil {
			return apperr.Store("listing donors", err)
		}
		return c.JSON(fiber.Map{"donors": donors})
	}
}

// GET /api/donors/:id
func GetDonorHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		db := database.DB.WithContext(c.UserContext())
		d, err := loadDonor(db, c.Params("id"))
		if err != nil {
			return err
		}
		var proposals []models.Proposal
		if err := db.Where("donor_id = ?", d.ID).Order("created_at DESC").Find(&proposals).Error; err != nil {
			return apperr.Store("listing donor proposals", err)
		}
		return c.JSON(fiber.Map{"donor": d, "proposals": proposals})
	}
}

// PUT /api/donors/:id
func UpdateDonorHandler(rec *audit.Recorder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := auth.EditorIdentity(c)
		if err != nil {
			return err
		}

		var body DonorRequest
		if err := parseBody(c, &body); err != nil {
			return err
		}

		var updated models.Donor
		err = rec.Mutate(c.UserContext(), database.DB, audit.FiberActor(c, id.UserID), func(tx *gorm.DB) (audit.Entry, error) {
			before, err := loadDonor(tx, c.Params("id"))
			if err != nil {
				return audit.Entry{}, err
			}
			after := before
			if err := body.apply(&after); err != nil {
				return audit.Entry{}, err
			}
			after.UpdatedAt = time.Now()
			if err := tx.Select("*").Omit("created_at").Updates(&after).Error; err != nil {
				return audit.Entry{}, apperr.Store("updating donor", err)
			}
			updated = after
			return audit.Entry{
				Action:     models.AuditActionUpdate,
				EntityType: EntityDonor,
				EntityID:   before.ID,
				Changes:    audit.UpdateChanges(before, after),
			}, nil
		})
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"donor": updated})
	}
}

// DELETE /api/donors/:id
func DeleteDonorHandler(rec *audit.Recorder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := auth.EditorIdentity(c)
		if err != nil {
			return err
		}

		err = rec.Mutate(c.UserContext(), database.DB, audit.FiberActor(c, id.UserID), func(tx *gorm.DB) (audit.Entry, error) {
			before, err := loadDonor(tx, c.Params("id"))
			if err != nil {
				return audit.Entry{}, err
			}
			if err := tx.Delete(&models.Donor{}, "id = ?", before.ID).Error; err != nil {
				return audit.Entry{}, apperr.Store("deleting donor", err)
			}
			return audit.Entry{
				Action:     models.AuditActionDelete,
				EntityType: EntityDonor,
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

func loadDonor(tx *gorm.DB, donorID string) (models.Donor, error) {
	var d models.Donor
	err := tx.First(&d, "id = ?", donorID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return d, apperr.NotFound("donor")
	}
	if err != nil {
		return d, apperr.Store("loading donor", err)
	}
	return d, nil
}
