package ledger

import (
	"encoding/json"

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
	EntityBudgetAllocation = "budget_allocation"
	EntityExpenditure      = "expenditure"
	EntityDisbursementLog  = "disbursement_log"
	EntityProject          = "project"
)

type CreateBudgetAllocationRequest struct {
	ProjectID     string          `json:"projectId"`
	ActivityName  string          `json:"activityName"`
	PlannedAmount json.RawMessage `json:"plannedAmount"`
	Notes         string          `json:"notes"`
}

type CreateExpenditureRequest struct {
	ProjectID          string          `json:"projectId"`
	BudgetAllocationID *string         `json:"budgetAllocationId"`
	TaskID             *string         `json:"taskId"`
	DonorID            *string         `json:"donorId"`
	ActivityName       string          `json:"activityName"`
	Amount             json.RawMessage `json:"amount"`
	ExpenditureDate    string          `json:"expenditureDate"` // "2025-03-01"
	Description        string          `json:"description"`
}

type CreateDisbursementRequest struct {
	ProjectID          string          `json:"projectId"`
	DonorID            *string         `json:"donorId"`
	BudgetAllocationID *string         `json:"budgetAllocationId"`
	ExpenditureID      *string         `json:"expenditureId"`
	ActivityName       string          `json:"activityName"`
	Amount             json.RawMessage `json:"amount"`
	DisbursedAt        string          `json:"disbursedAt"`
	Reference          string          `json:"reference"`
	Notes              string          `json:"notes"`
}

func parseBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return apperr.Invalid("body", "must be valid JSON")
	}
	return nil
}

// -------------------------
// Budget allocations
// -------------------------

// POST /api/budgets
func CreateBudgetAllocationHandler(rec *audit.Recorder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := auth.EditorIdentity(c)
		if err != nil {
			return err
		}

		var body CreateBudgetAllocationRequest
		if err := parseBody(c, &body); err != nil {
			return err
		}
		in := BudgetAllocationInput{Notes: body.Notes, CreatedBy: id.UserID}
		if in.ProjectID, err = input.Required("projectId", body.ProjectID); err != nil {
			return err
		}
		if in.ActivityName, err = input.Required("activityName", body.ActivityName); err != nil {
			return err
		}
		if in.PlannedAmount, err = input.Amount("plannedAmount", body.PlannedAmount); err != nil {
			return err
		}

		var created *models.BudgetAllocation
		err = rec.Mutate(c.UserContext(), database.DB, audit.FiberActor(c, id.UserID), func(tx *gorm.DB) (audit.Entry, error) {
			row, err := CreateBudgetAllocation(tx, in)
			if err != nil {
				return audit.Entry{}, err
			}
			created = row
			return audit.Entry{
				Action:     models.AuditActionCreate,
				EntityType: EntityBudgetAllocation,
				EntityID:   row.ID,
				Changes:    audit.CreateChanges(row),
			}, nil
		})
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"budgetAllocation": created})
	}
}

// GET /api/budgets?projectId=...
func ListBudgetAllocationsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbq := database.DB.WithContext(c.UserContext()).Model(&models.BudgetAllocation{})
		if v := c.Query("projectId"); v != "" {
			dbq = dbq.Where("project_id = ?", v)
		}
		var rows []models.BudgetAllocation
		if err := dbq.Order("created_at DESC").Find(&rows).Error; err != nil {
			return apperr.Store("listing budget allocations", err)
		}
		return c.JSON(fiber.Map{"budgetAllocations": rows})
	}
}

// -------------------------
// Expenditures
// -------------------------

// POST /api/expenditures
func CreateExpenditureHandler(rec *audit.Recorder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := auth.EditorIdentity(c)
		if err != nil {
			return err
		}

		var body CreateExpenditureRequest
		if err := parseBody(c, &body); err != nil {
			return err
		}
		in := ExpenditureInput{
			BudgetAllocationID: input.OptionalID(body.BudgetAllocationID),
			TaskID:             input.OptionalID(body.TaskID),
			DonorID:            input.OptionalID(body.DonorID),
			ActivityName:       body.ActivityName,
			Description:        body.Description,
			CreatedBy:          id.UserID,
		}
		if in.ProjectID, err = input.Required("projectId", body.ProjectID); err != nil {
			return err
		}
		if in.Amount, err = input.Amount("amount", body.Amount); err != nil {
			return err
		}
		if in.ExpenditureDate, err = input.Date("expenditureDate", body.ExpenditureDate); err != nil {
			return err
		}

		var created *models.Expenditure
		err = rec.Mutate(c.UserContext(), database.DB, audit.FiberActor(c, id.UserID), func(tx *gorm.DB) (audit.Entry, error) {
			row, err := CreateExpenditure(tx, in)
			if err != nil {
				return audit.Entry{}, err
			}
			created = row
			return audit.Entry{
				Action:     models.AuditActionCreate,
				EntityType: EntityExpenditure,
				EntityID:   row.ID,
				Changes:    audit.CreateChanges(row),
			}, nil
		})
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"expenditure": created})
	}
}

// GET /api/expenditures?projectId=...&budgetAllocationId=...&donorId=...
func ListExpendituresHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbq := database.DB.WithContext(c.UserContext()).Model(&models.Expenditure{})
		if v := c.Query("projectId"); v != "" {
			dbq = dbq.Where("project_id = ?", v)
		}
		if v := c.Query("budgetAllocationId"); v != "" {
			dbq = dbq.Where("budget_allocation_id = ?", v)
		}
		if v := c.Query("donorId"); v != "" {
			dbq = dbq.Where("donor_id = ?", v)
		}
		var rows []models.Expenditure
		if err := dbq.Order("expenditure_date DESC, created_at DESC").Find(&rows).Error; err != nil {
			return apperr.Store("listing expenditures", err)
		}
		return c.JSON(fiber.Map{"expenditures": rows})
	}
}

// -------------------------
// Disbursements
// -------------------------

// POST /api/disbursements
func CreateDisbursementHandler(rec *audit.Recorder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := auth.EditorIdentity(c)
		if err != nil {
			return err
		}

		var body CreateDisbursementRequest
		if err := parseBody(c, &body); err != nil {
			return err
		}
		in := DisbursementInput{
			DonorID:            input.OptionalID(body.DonorID),
			BudgetAllocationID: input.OptionalID(body.BudgetAllocationID),
			ExpenditureID:      input.OptionalID(body.ExpenditureID),
			Reference:          body.Reference,
			Notes:              body.Notes,
			CreatedBy:          id.UserID,
		}
		if in.ProjectID, err = input.Required("projectId", body.ProjectID); err != nil {
			return err
		}
		if in.ActivityName, err = input.Required("activityName", body.ActivityName); err != nil {
			return err
		}
		if in.Amount, err = input.Amount("amount", body.Amount); err != nil {
			return err
		}
		if in.DisbursedAt, err = input.Date("disbursedAt", body.DisbursedAt); err != nil {
			return err
		}

		var created *models.DisbursementLog
		err = rec.Mutate(c.UserContext(), database.DB, audit.FiberActor(c, id.UserID), func(tx *gorm.DB) (audit.Entry, error) {
			row, err := CreateDisbursement(tx, in)
			if err != nil {
				return audit.Entry{}, err
			}
			created = row
			return audit.Entry{
				Action:     models.AuditActionCreate,
				EntityType: EntityDisbursementLog,
				EntityID:   row.ID,
				Changes:    audit.CreateChanges(row),
			}, nil
		})
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"disbursement": created})
	}
}

// GET /api/disbursements?projectId=...&donorId=...
func ListDisbursementsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbq := database.DB.WithContext(c.UserContext()).Model(&models.DisbursementLog{})
		if v := c.Query("projectId"); v != "" {
			dbq = dbq.Where("project_id = ?", v)
		}
		if v := c.Query("donorId"); v != "" {
			dbq = dbq.Where("donor_id = ?", v)
		}
		var rows []models.DisbursementLog
		if err := dbq.Order("disbursed_at DESC, created_at DESC").Find(&rows).Error; err != nil {
			return apperr.Store("listing disbursements", err)
		}
		return c.JSON(fiber.Map{"disbursements": rows})
	}
}

// -------------------------
// Reconciliation
// -------------------------

// GET /api/admin/reconcile
func ReconcileHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		drifts, err := Reconcile(c.UserContext(), database.DB)
		if err != nil {
			return err
		}
		if drifts == nil {
			drifts = []Drift{}
		}
		return c.JSON(fiber.Map{"drifts": drifts})
	}
}
