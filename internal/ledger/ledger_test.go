package ledger

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"ngo-portal-backend/internal/apperr"
	"ngo-portal-backend/internal/audit"
	"ngo-portal-backend/internal/models"
	"ngo-portal-backend/internal/testutil"

	"gorm.io/gorm"
)

func recorder() *audit.Recorder {
	return audit.NewRecorder(audit.ModeAtomic, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func spent(t *testing.T, db *gorm.DB, projectID string) int64 {
	t.Helper()
	var p models.Project
	if err := db.Select("spent_budget").First(&p, "id = ?", projectID).Error; err != nil {
		t.Fatal(err)
	}
	return p.SpentBudget
}

func TestConcurrentExpendituresDoNotLoseUpdates(t *testing.T) {
	db := testutil.OpenDB(t)
	p := testutil.Project(t, db, "Wells", 10000)
	rec := recorder()

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- rec.Mutate(context.Background(), db, audit.Actor{UserID: "u1"}, func(tx *gorm.DB) (audit.Entry, error) {
				row, err := CreateExpenditure(tx, ExpenditureInput{
					ProjectID:       p.ID,
					Amount:          1000,
					ExpenditureDate: time.Now(),
					CreatedBy:       "u1",
				})
				if err != nil {
					return audit.Entry{}, err
				}
				return audit.Entry{
					Action:     models.AuditActionCreate,
					EntityType: EntityExpenditure,
					EntityID:   row.ID,
					Changes:    audit.CreateChanges(row),
				}, nil
			})
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("expenditure: %v", err)
		}
	}

	if got := spent(t, db, p.ID); got != 2000 {
		t.Fatalf("spent_budget = %d, want 2000", got)
	}
	if n := testutil.AuditCount(t, db, EntityExpenditure); n != 2 {
		t.Fatalf("audit rows = %d, want 2", n)
	}
}

func TestCreateExpenditureRejectsUnknownProject(t *testing.T) {
	db := testutil.OpenDB(t)
	_, err := CreateExpenditure(db, ExpenditureInput{ProjectID: "missing", Amount: 5, ExpenditureDate: time.Now()})
	var fe *apperr.FieldError
	if !errors.As(err, &fe) || fe.Field != "projectId" {
		t.Fatalf("err = %v, want projectId FieldError", err)
	}
}

func TestCreateExpenditureChecksReferences(t *testing.T) {
	db := testutil.OpenDB(t)
	a := testutil.Project(t, db, "A", 0)
	b := testutil.Project(t, db, "B", 0)
	taskOnB := testutil.Task(t, db, b.ID, models.TaskStatusPending)
	alloc, err := CreateBudgetAllocation(db, BudgetAllocationInput{ProjectID: b.ID, ActivityName: "Pumps", PlannedAmount: 100, CreatedBy: "u"})
	if err != nil {
		t.Fatal(err)
	}
	missing := "nope"

	tests := []struct {
		name  string
		in    ExpenditureInput
		field string
	}{
		{"allocation on other project", ExpenditureInput{BudgetAllocationID: &alloc.ID}, "budgetAllocationId"},
		{"task on other project", ExpenditureInput{TaskID: &taskOnB.ID}, "taskId"},
		{"unknown donor", ExpenditureInput{DonorID: &missing}, "donorId"},
	}
	for _, tt := range tests {
		tt.in.ProjectID = a.ID
		tt.in.Amount = 10
		tt.in.ExpenditureDate = time.Now()
		_, err := CreateExpenditure(db, tt.in)
		var fe *apperr.FieldError
		if !errors.As(err, &fe) || fe.Field != tt.field {
			t.Errorf("%s: err = %v, want FieldError on %s", tt.name, err, tt.field)
		}
	}
	if got := spent(t, db, a.ID); got != 0 {
		t.Errorf("rejected expenditures moved spent_budget to %d", got)
	}
}

func TestDisbursementLeavesSpendAlone(t *testing.T) {
	db := testutil.OpenDB(t)
	p := testutil.Project(t, db, "Clinic", 5000)
	if _, err := CreateDisbursement(db, DisbursementInput{
		ProjectID: p.ID, ActivityName: "Tranche 1", Amount: 3000, DisbursedAt: time.Now(), CreatedBy: "u",
	}); err != nil {
		t.Fatal(err)
	}
	if got := spent(t, db, p.ID); got != 0 {
		t.Fatalf("spent_budget = %d after disbursement", got)
	}
}

func TestLoadSnapshot(t *testing.T) {
	db := testutil.OpenDB(t)
	older := testutil.Project(t, db, "Older", 1000)
	newer := testutil.Project(t, db, "Newer", 2000)
	db.Model(&models.Project{}).Where("id = ?", older.ID).Update("created_at", time.Now().Add(-time.Hour))

	testutil.Task(t, db, older.ID, models.TaskStatusCompleted)
	testutil.Task(t, db, older.ID, models.TaskStatusPending)
	if _, err := CreateBudgetAllocation(db, BudgetAllocationInput{ProjectID: newer.ID, ActivityName: "x", PlannedAmount: 800, CreatedBy: "u"}); err != nil {
		t.Fatal(err)
	}
	if _, err := CreateExpenditure(db, ExpenditureInput{ProjectID: older.ID, Amount: 250, ExpenditureDate: time.Now(), CreatedBy: "u"}); err != nil {
		t.Fatal(err)
	}

	snap, err := LoadSnapshot(context.Background(), db, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(snap.Projects) != 2 || snap.Projects[0].ID != newer.ID {
		t.Fatalf("projects = %+v, want newest first", snap.Projects)
	}
	if len(snap.Projects[1].Tasks) != 2 {
		t.Errorf("older project has %d tasks", len(snap.Projects[1].Tasks))
	}
	if len(snap.Allocations) != 1 || snap.Allocations[0].Amount != 800 {
		t.Errorf("allocations = %+v", snap.Allocations)
	}
	if len(snap.Expenditures) != 1 || snap.Expenditures[0].Amount != 250 {
		t.Errorf("expenditures = %+v", snap.Expenditures)
	}

	scoped, err := LoadSnapshot(context.Background(), db, older.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(scoped.Projects) != 1 || len(scoped.Allocations) != 0 || len(scoped.Expenditures) != 1 {
		t.Errorf("scoped snapshot = %+v", scoped)
	}
}

func TestLoadSnapshotStoreFailure(t *testing.T) {
	db := testutil.OpenDB(t)
	if err := db.Migrator().DropTable(&models.Expenditure{}); err != nil {
		t.Fatal(err)
	}
	_, err := LoadSnapshot(context.Background(), db, "")
	if !errors.Is(err, apperr.ErrDataUnavailable) {
		t.Fatalf("err = %v, want ErrDataUnavailable", err)
	}
}

func TestReconcileAndRepair(t *testing.T) {
	db := testutil.OpenDB(t)
	ok := testutil.Project(t, db, "Fine", 0)
	bad := testutil.Project(t, db, "Drifted", 0)
	for _, id := range []string{ok.ID, bad.ID} {
		if _, err := CreateExpenditure(db, ExpenditureInput{ProjectID: id, Amount: 700, ExpenditureDate: time.Now(), CreatedBy: "u"}); err != nil {
			t.Fatal(err)
		}
	}
	db.Model(&models.Project{}).Where("id = ?", bad.ID).UpdateColumn("spent_budget", 9999)

	drifts, err := Reconcile(context.Background(), db)
	if err != nil {
		t.Fatal(err)
	}
	if len(drifts) != 1 || drifts[0].ProjectID != bad.ID || drifts[0].Recorded != 9999 || drifts[0].Actual != 700 {
		t.Fatalf("drifts = %+v", drifts)
	}

	if err := Repair(context.Background(), db, recorder(), audit.Actor{UserID: "ops"}, bad.ID); err != nil {
		t.Fatalf("Repair: %v", err)
	}
	if got := spent(t, db, bad.ID); got != 700 {
		t.Fatalf("spent_budget after repair = %d", got)
	}
	if n := testutil.AuditCount(t, db, EntityProject); n != 1 {
		t.Fatalf("repair audit rows = %d, want 1", n)
	}

	drifts, err = Reconcile(context.Background(), db)
	if err != nil || len(drifts) != 0 {
		t.Fatalf("after repair: drifts = %+v, err = %v", drifts, err)
	}
}

func TestRepairUnknownProject(t *testing.T) {
	db := testutil.OpenDB(t)
	err := Repair(context.Background(), db, recorder(), audit.Actor{UserID: "ops"}, "missing")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
