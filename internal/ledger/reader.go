// Package ledger owns budget allocations, expenditures and disbursements:
// their mutation paths, the read projections the performance fold
// consumes, and reconciliation of the cached project spend.
package ledger

import (
	"context"

	"ngo-portal-backend/internal/apperr"
	"ngo-portal-backend/internal/models"
	"ngo-portal-backend/internal/performance"

	"gorm.io/gorm"
)

type amountRow struct {
	ProjectID string
	Amount    int64
}

// LoadSnapshot reads the four record families the performance fold needs.
// A non-empty projectID restricts every family to that project.
func LoadSnapshot(ctx context.Context, db *gorm.DB, projectID string) (performance.Snapshot, error) {
	db = db.WithContext(ctx)
	var snap performance.Snapshot

	pq := db.Model(&models.Project{}).
		Select("id", "name", "total_budget", "created_at").
		Preload("Tasks", func(tx *gorm.DB) *gorm.DB {
			return tx.Select("id", "project_id", "status")
		}).
		Order("created_at DESC, id")
	if projectID != "" {
		pq = pq.Where("id = ?", projectID)
	}
	var projects []models.Project
	if err := pq.Find(&projects).Error; err != nil {
		return snap, apperr.Store("loading projects", err)
	}
	for _, p := range projects {
		fp := performance.Project{ID: p.ID, Name: p.Name, TotalBudget: p.TotalBudget}
		for _, t := range p.Tasks {
			fp.Tasks = append(fp.Tasks, performance.Task{ID: t.ID, Status: t.Status})
		}
		snap.Projects = append(snap.Projects, fp)
	}

	var err error
	if snap.Allocations, err = loadAmounts(db, &models.BudgetAllocation{}, "planned_amount", projectID); err != nil {
		return snap, apperr.Store("loading budget allocations", err)
	}
	if snap.Expenditures, err = loadAmounts(db, &models.Expenditure{}, "amount", projectID); err != nil {
		return snap, apperr.Store("loading expenditures", err)
	}
	if snap.Disbursements, err = loadAmounts(db, &models.DisbursementLog{}, "amount", projectID); err != nil {
		return snap, apperr.Store("loading disbursements", err)
	}
	return snap, nil
}

func loadAmounts(db *gorm.DB, model any, column, projectID string) ([]performance.Amount, error) {
	q := db.Model(model).Select("project_id, " + column + " AS amount")
	if projectID != "" {
		q = q.Where("project_id = ?", projectID)
	}
	var rows []amountRow
	if err := q.Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]performance.Amount, 0, len(rows))
	for _, r := range rows {
		out = append(out, performance.Amount{ProjectID: r.ProjectID, Amount: r.Amount})
	}
	return out, nil
}
