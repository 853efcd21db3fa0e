package project

import (
	"encoding/json"
	"errors"
	"fmt"
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
	EntityProject   = "project"
	EntityTask      = "task"
	EntityMilestone = "milestone"
)

type CreateProjectRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Status      string          `json:"status"`
	TotalBudget json.RawMessage `json:"totalBudget"`
	StartDate   *string         `json:"startDate"`
	EndDate     *string         `json:"endDate"`
	ManagerID   *string         `json:"managerId"`
}

// UpdateProjectRequest only touches the fields that are present. The
// cached spent budget is not writable here.
type UpdateProjectRequest struct {
	Name        *string         `json:"name"`
	Description *string         `json:"description"`
	Status      *string         `json:"status"`
	TotalBudget json.RawMessage `json:"totalBudget"`
	StartDate   *string         `json:"startDate"`
	EndDate     *string         `json:"endDate"`
	ManagerID   *string         `json:"managerId"`
}

type CreateTaskRequest struct {
	ProjectID   string  `json:"projectId"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Status      string  `json:"status"`
	AssigneeID  *string `json:"assigneeId"`
	DueDate     *string `json:"dueDate"`
}

// UpdateTaskRequest only touches the fields that are present.
type UpdateTaskRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
	AssigneeID  *string `json:"assigneeId"`
	DueDate     *string `json:"dueDate"`
}

type UpdateMilestoneRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
	DueDate     *string `json:"dueDate"`
	Order       *int    `json:"order"`
}

type CreateMilestoneRequest struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Status      string  `json:"status"`
	DueDate     *string `json:"dueDate"`
	Order       int     `json:"order"`
}

func parseBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return apperr.Invalid("body", "must be valid JSON")
	}
	return nil
}

// -------------------------
// Projects
// -------------------------

// POST /api/projects
func CreateProjectHandler(rec *audit.Recorder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := auth.EditorIdentity(c)
		if err != nil {
			return err
		}

		var body CreateProjectRequest
		if err := parseBody(c, &body); err != nil {
			return err
		}

		p := models.Project{
			Description: strings.TrimSpace(body.Description),
			Status:      models.ProjectStatusPlanning,
			ManagerID:   input.OptionalID(body.ManagerID),
		}
		if p.Name, err = input.Required("name", body.Name); err != nil {
			return err
		}
		if body.Status != "" {
			p.Status = models.ProjectStatus(body.Status)
			if !p.Status.Valid() {
				return apperr.Invalid("status", "is not a valid project status")
			}
		}
		if p.TotalBudget, err = input.Budget("totalBudget", body.TotalBudget); err != nil {
			return err
		}
		if p.StartDate, err = input.OptionalDate("startDate", body.StartDate); err != nil {
			return err
		}
		if p.EndDate, err = input.OptionalDate("endDate", body.EndDate); err != nil {
			return err
		}
		if p.StartDate != nil && p.EndDate != nil && p.EndDate.Before(*p.StartDate) {
			return apperr.Invalid("endDate", "must not be before startDate")
		}

		err = rec.Mutate(c.UserContext(), database.DB, audit.FiberActor(c, id.UserID), func(tx *gorm.DB) (audit.Entry, error) {
			if err := tx.Create(&p).Error; err != nil {
				return audit.Entry{}, apperr.Store("creating project", err)
			}
			return audit.Entry{
				Action:     models.AuditActionCreate,
				EntityType: EntityProject,
				EntityID:   p.ID,
				Changes:    audit.CreateChanges(p),
			}, nil
		})
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"project": p})
	}
}

// GET /api/projects
func ListProjectsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var projects []models.Project
		err := database.DB.WithContext(c.UserContext()).
			Preload("Tasks").
			Order("created_at DESC").
			Find(&projects).Error
		if err != nil {
			return apperr.Store("listing projects", err)
		}
		return c.JSON(fiber.Map{"projects": projects})
	}
}

// GET /api/projects/:id
func GetProjectHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var p models.Project
		err := database.DB.WithContext(c.UserContext()).
			Preload("Tasks", func(tx *gorm.DB) *gorm.DB { return tx.Order("created_at") }).
			Preload("Milestones", func(tx *gorm.DB) *gorm.DB { return tx.Order("sort_order, created_at") }).
			First(&p, "id = ?", c.Params("id")).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("project")
		}
		if err != nil {
			return apperr.Store("loading project", err)
		}
		return c.JSON(fiber.Map{"project": p})
	}
}


// PUT /api/projects/:id
func UpdateProjectHandler(rec *audit.Recorder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := auth.EditorIdentity(c)
		if err != nil {
			return err
		}

		var body UpdateProjectRequest
		if err := parseBody(c, &body); err != nil {
			return err
		}
		if body.Name != nil {
			if _, err := input.Required("name", *body.Name); err != nil {
				return err
			}
		}
		if body.Status != nil && !models.ProjectStatus(*body.Status).Valid() {
			return apperr.Invalid("status", "is not a valid project status")
		}
		var totalBudget int64
		if len(body.TotalBudget) > 0 {
			if totalBudget, err = input.Budget("totalBudget", body.TotalBudget); err != nil {
				return err
			}
		}
		startDate, err := input.OptionalDate("startDate", body.StartDate)
		if err != nil {
			return err
		}
		endDate, err := input.OptionalDate("endDate", body.EndDate)
		if err != nil {
			return err
		}

		var updated models.Project
		err = rec.Mutate(c.UserContext(), database.DB, audit.FiberActor(c, id.UserID), func(tx *gorm.DB) (audit.Entry, error) {
			before, err := loadProject(tx, c.Params("id"))
			if err != nil {
				return audit.Entry{}, err
			}

			after := before
			if body.Name != nil {
				after.Name = strings.TrimSpace(*body.Name)
			}
			if body.Description != nil {
				after.Description = strings.TrimSpace(*body.Description)
			}
			if body.Status != nil {
				after.Status = models.ProjectStatus(*body.Status)
			}
			if len(body.TotalBudget) > 0 {
				after.TotalBudget = totalBudget
			}
			if body.StartDate != nil {
				after.StartDate = startDate
			}
			if body.EndDate != nil {
				after.EndDate = endDate
			}
			if body.ManagerID != nil {
				after.ManagerID = input.OptionalID(body.ManagerID)
			}
			if after.StartDate != nil && after.EndDate != nil && after.EndDate.Before(*after.StartDate) {
				return audit.Entry{}, apperr.Invalid("endDate", "must not be before startDate")
			}
			after.UpdatedAt = time.Now()

			err = tx.Model(&models.Project{}).Where("id = ?", before.ID).Updates(map[string]any{
				"name":         after.Name,
				"description":  after.Description,
				"status":       after.Status,
				"total_budget": after.TotalBudget,
				"start_date":   after.StartDate,
				"end_date":     after.EndDate,
				"manager_id":   after.ManagerID,
				"updated_at":   after.UpdatedAt,
			}).Error
			if err != nil {
				return audit.Entry{}, apperr.Store("updating project", err)
			}
			updated = after
			return audit.Entry{
				Action:     models.AuditActionUpdate,
				EntityType: EntityProject,
				EntityID:   before.ID,
				Changes:    audit.UpdateChanges(before, after),
			}, nil
		})
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"project": updated})
	}
}

// DELETE /api/projects/:id
//
// Tasks and milestones go with the project. A project that already has
// ledger entries cannot be deleted.
func DeleteProjectHandler(rec *audit.Recorder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := auth.EditorIdentity(c)
		if err != nil {
			return err
		}

		err = rec.Mutate(c.UserContext(), database.DB, audit.FiberActor(c, id.UserID), func(tx *gorm.DB) (audit.Entry, error) {
			before, err := loadProject(tx, c.Params("id"))
			if err != nil {
				return audit.Entry{}, err
			}

			for _, m := range []any{&models.BudgetAllocation{}, &models.Expenditure{}, &models.DisbursementLog{}} {
				var n int64
				if err := tx.Model(m).Where("project_id = ?", before.ID).Count(&n).Error; err != nil {
					return audit.Entry{}, apperr.Store("checking ledger entries", err)
				}
				if n > 0 {
					return audit.Entry{}, fmt.Errorf("project has ledger entries: %w", apperr.ErrConflict)
				}
			}

			var docs int64
			if err := tx.Model(&models.ProjectDocument{}).Where("project_id = ?", before.ID).Count(&docs).Error; err != nil {
				return audit.Entry{}, apperr.Store("checking documents", err)
			}
			if docs > 0 {
				return audit.Entry{}, fmt.Errorf("project has documents: %w", apperr.ErrConflict)
			}

			steps := []struct {
				op  string
				run func() error
			}{
				{"deleting tasks", func() error { return tx.Where("project_id = ?", before.ID).Delete(&models.Task{}).Error }},
				{"deleting milestones", func() error { return tx.Where("project_id = ?", before.ID).Delete(&models.Milestone{}).Error }},
				{"detaching proposals", func() error {
					return tx.Model(&models.Proposal{}).Where("project_id = ?", before.ID).Update("project_id", nil).Error
				}},
				{"deleting project", func() error { return tx.Delete(&models.Project{}, "id = ?", before.ID).Error }},
			}
			for _, s := range steps {
				if err := s.run(); err != nil {
					return audit.Entry{}, apperr.Store(s.op, err)
				}
			}

			return audit.Entry{
				Action:     models.AuditActionDelete,
				EntityType: EntityProject,
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

// -------------------------
// Tasks
// -------------------------

// POST /api/tasks
func CreateTaskHandler(rec *audit.Recorder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := auth.EditorIdentity(c)
		if err != nil {
			return err
		}

		var body CreateTaskRequest
		if err := parseBody(c, &body); err != nil {
			return err
		}

		task := models.Task{
			Description: strings.TrimSpace(body.Description),
			Status:      models.TaskStatusPending,
			AssigneeID:  input.OptionalID(body.AssigneeID),
		}
		if task.ProjectID, err = input.Required("projectId", body.ProjectID); err != nil {
			return err
		}
		if task.Title, err = input.Required("title", body.Title); err != nil {
			return err
		}
		if body.Status != "" {
			task.Status = models.TaskStatus(body.Status)
			if !task.Status.Valid() {
				return apperr.Invalid("status", "must be pending, in_progress or completed")
			}
		}
		if task.DueDate, err = input.OptionalDate("dueDate", body.DueDate); err != nil {
			return err
		}

		err = rec.Mutate(c.UserContext(), database.DB, audit.FiberActor(c, id.UserID), func(tx *gorm.DB) (audit.Entry, error) {
			if err := projectExists(tx, task.ProjectID); err != nil {
				return audit.Entry{}, err
			}
			if err := tx.Create(&task).Error; err != nil {
				return audit.Entry{}, apperr.Store("creating task", err)
			}
			return audit.Entry{
				Action:     models.AuditActionCreate,
				EntityType: EntityTask,
				EntityID:   task.ID,
				Changes:    audit.CreateChanges(task),
			}, nil
		})
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"task": task})
	}
}

// PUT /api/tasks/:id
func UpdateTaskHandler(rec *audit.Recorder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := auth.EditorIdentity(c)
		if err != nil {
			return err
		}

		var body UpdateTaskRequest
		if err := parseBody(c, &body); err != nil {
			return err
		}
		if body.Title != nil {
			if _, err := input.Required("title", *body.Title); err != nil {
				return err
			}
		}
		if body.Status != nil && !models.TaskStatus(*body.Status).Valid() {
			return apperr.Invalid("status", "must be pending, in_progress or completed")
		}
		dueDate, err := input.OptionalDate("dueDate", body.DueDate)
		if err != nil {
			return err
		}

		var updated models.Task
		err = rec.Mutate(c.UserContext(), database.DB, audit.FiberActor(c, id.UserID), func(tx *gorm.DB) (audit.Entry, error) {
			before, err := loadTask(tx, c.Params("id"))
			if err != nil {
				return audit.Entry{}, err
			}

			after := before
			if body.Title != nil {
				after.Title = strings.TrimSpace(*body.Title)
			}
			if body.Description != nil {
				after.Description = strings.TrimSpace(*body.Description)
			}
			if body.Status != nil {
				after.Status = models.TaskStatus(*body.Status)
			}
			if body.AssigneeID != nil {
				after.AssigneeID = input.OptionalID(body.AssigneeID)
			}
			if body.DueDate != nil {
				after.DueDate = dueDate
			}
			after.UpdatedAt = time.Now()

			err = tx.Model(&models.Task{}).Where("id = ?", before.ID).Updates(map[string]any{
				"title":       after.Title,
				"description": after.Description,
				"status":      after.Status,
				"assignee_id": after.AssigneeID,
				"due_date":    after.DueDate,
				"updated_at":  after.UpdatedAt,
			}).Error
			if err != nil {
				return audit.Entry{}, apperr.Store("updating task", err)
			}
			updated = after
			return audit.Entry{
				Action:     models.AuditActionUpdate,
				EntityType: EntityTask,
				EntityID:   before.ID,
				Changes:    audit.UpdateChanges(before, after),
			}, nil
		})
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"task": updated})
	}
}

// DELETE /api/tasks/:id
func DeleteTaskHandler(rec *audit.Recorder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := auth.EditorIdentity(c)
		if err != nil {
			return err
		}

		err = rec.Mutate(c.UserContext(), database.DB, audit.FiberActor(c, id.UserID), func(tx *gorm.DB) (audit.Entry, error) {
			before, err := loadTask(tx, c.Params("id"))
			if err != nil {
				return audit.Entry{}, err
			}
			if err := tx.Delete(&models.Task{}, "id = ?", before.ID).Error; err != nil {
				return audit.Entry{}, apperr.Store("deleting task", err)
			}
			return audit.Entry{
				Action:     models.AuditActionDelete,
				EntityType: EntityTask,
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

// GET /api/tasks?projectId=...
func ListTasksHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbq := database.DB.WithContext(c.UserContext()).Model(&models.Task{})
		if v := c.Query("projectId"); v != "" {
			dbq = dbq.Where("project_id = ?", v)
		}
		if v := c.Query("status"); v != "" {
			dbq = dbq.Where("status = ?", v)
		}
		var tasks []models.Task
		if err := dbq.Order("created_at DESC").Find(&tasks).Error; err != nil {
			return apperr.Store("listing tasks", err)
		}
		return c.JSON(fiber.Map{"tasks": tasks})
	}
}

// -------------------------
// Milestones
// -------------------------

// POST /api/projects/:id/milestones
func CreateMilestoneHandler(rec *audit.Recorder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := auth.EditorIdentity(c)
		if err != nil {
			return err
		}

		var body CreateMilestoneRequest
		if err := parseBody(c, &body); err != nil {
			return err
		}

		m := models.Milestone{
			ProjectID:   c.Params("id"),
			Description: strings.TrimSpace(body.Description),
			Status:      models.MilestoneStatusPending,
			Order:       body.Order,
		}
		if m.Title, err = input.Required("title", body.Title); err != nil {
			return err
		}
		if body.Status != "" {
			m.Status = models.MilestoneStatus(body.Status)
			if !m.Status.Valid() {
				return apperr.Invalid("status", "is not a valid milestone status")
			}
		}
		if m.DueDate, err = input.OptionalDate("dueDate", body.DueDate); err != nil {
			return err
		}
		if m.Status == models.MilestoneStatusCompleted {
			now := time.Now()
			m.CompletedAt = &now
		}

		err = rec.Mutate(c.UserContext(), database.DB, audit.FiberActor(c, id.UserID), func(tx *gorm.DB) (audit.Entry, error) {
			if err := projectExists(tx, m.ProjectID); err != nil {
				if errors.Is(err, apperr.ErrInvalidInput) {
					return audit.Entry{}, apperr.NotFound("project")
				}
				return audit.Entry{}, err
			}
			if err := tx.Create(&m).Error; err != nil {
				return audit.Entry{}, apperr.Store("creating milestone", err)
			}
			return audit.Entry{
				Action:     models.AuditActionCreate,
				EntityType: EntityMilestone,
				EntityID:   m.ID,
				Changes:    audit.CreateChanges(m),
			}, nil
		})
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"milestone": m})
	}
}

// GET /api/projects/:id/milestones
func ListMilestonesHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var milestones []models.Milestone
		err := database.DB.WithContext(c.UserContext()).
			Where("project_id = ?", c.Params("id")).
			Order("sort_order, created_at").
			Find(&milestones).Error
		if err != nil {
			return apperr.Store("listing milestones", err)
		}
		return c.JSON(fiber.Map{"milestones": milestones})
	}
}


// PUT /api/milestones/:milestoneId
func UpdateMilestoneHandler(rec *audit.Recorder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := auth.EditorIdentity(c)
		if err != nil {
			return err
		}

		var body UpdateMilestoneRequest
		if err := parseBody(c, &body); err != nil {
			return err
		}
		if body.Title != nil {
			if _, err := input.Required("title", *body.Title); err != nil {
				return err
			}
		}
		if body.Status != nil && !models.MilestoneStatus(*body.Status).Valid() {
			return apperr.Invalid("status", "is not a valid milestone status")
		}
		dueDate, err := input.OptionalDate("dueDate", body.DueDate)
		if err != nil {
			return err
		}

		var updated models.Milestone
		err = rec.Mutate(c.UserContext(), database.DB, audit.FiberActor(c, id.UserID), func(tx *gorm.DB) (audit.Entry, error) {
			before, err := loadMilestone(tx, c.Params("milestoneId"))
			if err != nil {
				return audit.Entry{}, err
			}

			after := before
			if body.Title != nil {
				after.Title = strings.TrimSpace(*body.Title)
			}
			if body.Description != nil {
				after.Description = strings.TrimSpace(*body.Description)
			}
			if body.Status != nil {
				after.Status = models.MilestoneStatus(*body.Status)
			}
			if body.DueDate != nil {
				after.DueDate = dueDate
			}
			if body.Order != nil {
				after.Order = *body.Order
			}
			now := time.Now()
			switch {
			case after.Status == models.MilestoneStatusCompleted && after.CompletedAt == nil:
				after.CompletedAt = &now
			case after.Status != models.MilestoneStatusCompleted:
				after.CompletedAt = nil
			}
			after.UpdatedAt = now

			err = tx.Model(&models.Milestone{}).Where("id = ?", before.ID).Updates(map[string]any{
				"title":        after.Title,
				"description":  after.Description,
				"status":       after.Status,
				"due_date":     after.DueDate,
				"completed_at": after.CompletedAt,
				"sort_order":   after.Order,
				"updated_at":   after.UpdatedAt,
			}).Error
			if err != nil {
				return audit.Entry{}, apperr.Store("updating milestone", err)
			}
			updated = after
			return audit.Entry{
				Action:     models.AuditActionUpdate,
				EntityType: EntityMilestone,
				EntityID:   before.ID,
				Changes:    audit.UpdateChanges(before, after),
			}, nil
		})
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"milestone": updated})
	}
}

// DELETE /api/milestones/:milestoneId
func DeleteMilestoneHandler(rec *audit.Recorder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := auth.EditorIdentity(c)
		if err != nil {
			return err
		}

		err = rec.Mutate(c.UserContext(), database.DB, audit.FiberActor(c, id.UserID), func(tx *gorm.DB) (audit.Entry, error) {
			before, err := loadMilestone(tx, c.Params("milestoneId"))
			if err != nil {
				return audit.Entry{}, err
			}
			if err := tx.Delete(&models.Milestone{}, "id = ?", before.ID).Error; err != nil {
				return audit.Entry{}, apperr.Store("deleting milestone", err)
			}
			return audit.Entry{
				Action:     models.AuditActionDelete,
				EntityType: EntityMilestone,
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

// -------------------------
// Helpers
// -------------------------

func projectExists(tx *gorm.DB, projectID string) error {
	var n int64
	if err := tx.Model(&models.Project{}).Where("id = ?", projectID).Count(&n).Error; err != nil {
		return apperr.Store("loading project", err)
	}
	if n == 0 {
		return apperr.Invalid("projectId", "does not reference an existing project")
	}
	return nil
}

func loadTask(tx *gorm.DB, taskID string) (models.Task, error) {
	var t models.Task
	err := tx.First(&t, "id = ?", taskID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return t, apperr.NotFound("task")
	}
	if err != nil {
		return t, apperr.Store("loading task", err)
	}
	return t, nil
}

func loadProject(tx *gorm.DB, projectID string) (models.Project, error) {
	var p models.Project
	err := tx.First(&p, "id = ?", projectID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return p, apperr.NotFound("project")
	}
	if err != nil {
		return p, apperr.Store("loading project", err)
	}
	return p, nil
}

func loadMilestone(tx *gorm.DB, milestoneID string) (models.Milestone, error) {
	var m models.Milestone
	err := tx.First(&m, "id = ?", milestoneID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return m, apperr.NotFound("milestone")
	}
	if err != nil {
		return m, apperr.Store("loading milestone", err)
	}
	return m, nil
}
