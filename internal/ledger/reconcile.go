package ledger

import (
	"context"
	"errors"

	"ngo-portal-backend/internal/apperr"
	"ngo-portal-backend/internal/audit"
	"ngo-portal-backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Drift is a project whose cached spend disagrees with its expenditures.
type Drift struct {
	ProjectID   string `json:"projectId"`
	ProjectName string `json:"projectName"`
	Recorded    int64  `json:"recorded"`
	Actual      int64  `json:"actual"`
}

func (d Drift) Delta() int64 { return d.Recorded - d.Actual }

// Reconcile recomputes every project's spend from its expenditure rows
// and returns the projects where projects.spent_budget has drifted.
func Reconcile(ctx context.Context, db *gorm.DB) ([]Drift, error) {
	db = db.WithContext(ctx)

	var projects []models.Project
	if err := db.Select("id", "name", "spent_budget").Order("name, id").Find(&projects).Error; err != nil {
		return nil, apperr.Store("loading projects", err)
	}

	var sums []amountRow
	err := db.Model(&models.Expenditure{}).
		Select("project_id, COALESCE(SUM(amount), 0) AS amount").
		Group("project_id").
		Scan(&sums).Error
	if err != nil {
		return nil, apperr.Store("summing expenditures", err)
	}
	actual := make(map[string]int64, len(sums))
	for _, s := range sums {
		actual[s.ProjectID] = s.Amount
	}

	var drifts []Drift
	for _, p := range projects {
		if p.SpentBudget != actual[p.ID] {
			drifts = append(drifts, Drift{
				ProjectID:   p.ID,
				ProjectName: p.Name,
				Recorded:    p.SpentBudget,
				Actual:      actual[p.ID],
			})
		}
	}
	return drifts, nil
}

// RepairSpent rewrites one project's cached spend from its expenditure
// rows inside tx and returns the values before and after. The project row
// stays locked until tx ends, so an expenditure committed meanwhile either
// lands in the sum or increments on top of the repaired value.
func RepairSpent(tx *gorm.DB, projectID string) (before, after int64, err error) {
	var p models.Project
	err = forUpdate(tx).Select("id", "spent_budget").First(&p, "id = ?", projectID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, 0, apperr.NotFound("project")
	}
	if err != nil {
		return 0, 0, apperr.Store("loading project", err)
	}

	err = tx.Model(&models.Expenditure{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("project_id = ?", projectID).
		Scan(&after).Error
	if err != nil {
		return 0, 0, apperr.Store("summing expenditures", err)
	}

	err = tx.Model(&models.Project{}).
		Where("id = ?", projectID).
		UpdateColumn("spent_budget", after).Error
	if err != nil {
		return 0, 0, apperr.Store("repairing project spend", err)
	}
	return p.SpentBudget, after, nil
}

// Repair rewrites one project's cached spend through the recorder, so the
// correction is audited as an update on the project.
func Repair(ctx context.Context, db *gorm.DB, rec *audit.Recorder, actor audit.Actor, projectID string) error {
	return rec.Mutate(ctx, db, actor, func(tx *gorm.DB) (audit.Entry, error) {
		before, after, err := RepairSpent(tx, projectID)
		if err != nil {
			return audit.Entry{}, err
		}
		return audit.Entry{
			Action:     models.AuditActionUpdate,
			EntityType: EntityProject,
			EntityID:   projectID,
			Changes: audit.UpdateChanges(
				map[string]int64{"spentBudget": before},
				map[string]int64{"spentBudget": after},
			),
		}, nil
	})
}

// forUpdate adds a row lock to the next read. SQLite has no row locks and
// serializes writers on its own.
func forUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}
