package performance

import (
	"math"
	"testing"

	"ngo-portal-backend/internal/models"
)

func tasks(completed, total int) []Task {
	out := make([]Task, 0, total)
	for i := 0; i < total; i++ {
		status := models.TaskStatusPending
		if i < completed {
			status = models.TaskStatusCompleted
		}
		out = append(out, Task{Status: status})
	}
	return out
}

func single(t *testing.T, s Snapshot) Row {
	t.Helper()
	r := Aggregate(s, DefaultPolicy())
	if len(r.Comparison) != 1 {
		t.Fatalf("got %d rows, want 1", len(r.Comparison))
	}
	return r.Comparison[0]
}

func TestPercent(t *testing.T) {
	tests := []struct {
		num, den, want int64
	}{
		{0, 0, 0},
		{5, 0, 0},
		{5, -3, 0},
		{0, 10, 0},
		{1, 3, 33},
		{2, 3, 67},
		{1, 8, 13},  // 12.5 rounds up
		{1, 200, 1}, // 0.5 rounds up
		{1, 201, 0},
		{150000, 100000, 150},
		{1, 1, 100},
		{math.MaxInt64 / 2, math.MaxInt64, 50},
		{math.MaxInt64, math.MaxInt64 / 100, 10000},
		{math.MaxInt64, 1, math.MaxInt64},
		{math.MaxInt64, 99, math.MaxInt64},
		{math.MinInt64, 1, math.MinInt64},
	}
	for _, tt := range tests {
		if got := Percent(tt.num, tt.den); got != tt.want {
			t.Errorf("Percent(%d, %d) = %d, want %d", tt.num, tt.den, got, tt.want)
		}
	}
}

func TestZeroTaskProject(t *testing.T) {
	row := single(t, Snapshot{Projects: []Project{{ID: "p", TotalBudget: 100}}})
	if row.TotalTasks != 0 || row.PhysicalPerformance != 0 {
		t.Fatalf("row = %+v", row)
	}
}

func TestZeroBudgetProject(t *testing.T) {
	row := single(t, Snapshot{
		Projects:     []Project{{ID: "p"}},
		Expenditures: []Amount{{ProjectID: "p", Amount: 500}},
	})
	if row.PlannedBudget != 0 || row.FinancialPerformance != 0 {
		t.Fatalf("row = %+v", row)
	}
	if row.SpentAmount != 500 {
		t.Fatalf("SpentAmount = %d, want 500", row.SpentAmount)
	}
}

func TestBudgetFallbackToTotalBudget(t *testing.T) {
	row := single(t, Snapshot{
		Projects:     []Project{{ID: "p", TotalBudget: 500000}},
		Expenditures: []Amount{{ProjectID: "p", Amount: 250000}},
	})
	if row.PlannedBudget != 500000 {
		t.Errorf("PlannedBudget = %d, want 500000", row.PlannedBudget)
	}
	if row.FinancialPerformance != 50 {
		t.Errorf("FinancialPerformance = %d, want 50", row.FinancialPerformance)
	}
}

func TestAllocationsOverrideTotalBudget(t *testing.T) {
	row := single(t, Snapshot{
		Projects: []Project{{ID: "p", TotalBudget: 999999}},
		Allocations: []Amount{
			{ProjectID: "p", Amount: 60000},
			{ProjectID: "p", Amount: 40000},
		},
		Expenditures: []Amount{{ProjectID: "p", Amount: 25000}},
	})
	if row.PlannedBudget != 100000 || row.FinancialPerformance != 25 {
		t.Fatalf("row = %+v", row)
	}
}

func TestOverspendIsNotCapped(t *testing.T) {
	row := single(t, Snapshot{
		Projects:     []Project{{ID: "p", TotalBudget: 100000}},
		Expenditures: []Amount{{ProjectID: "p", Amount: 150000}},
	})
	if row.FinancialPerformance != 150 {
		t.Fatalf("FinancialPerformance = %d, want 150", row.FinancialPerformance)
	}
}

func TestDisbursementsAreTrackedSeparately(t *testing.T) {
	row := single(t, Snapshot{
		Projects:      []Project{{ID: "p", TotalBudget: 1000}},
		Disbursements: []Amount{{ProjectID: "p", Amount: 700}, {ProjectID: "p", Amount: 100}},
	})
	if row.DisbursedAmount != 800 || row.SpentAmount != 0 || row.FinancialPerformance != 0 {
		t.Fatalf("row = %+v", row)
	}
}

func TestStatusClassificationBoundaries(t *testing.T) {
	tests := []struct {
		name      string
		spent     int64
		wantVar   int64
		wantState Status
	}{
		{"at upper bound", 65, 15, StatusOverspendingRisk},
		{"just inside", 64, 14, StatusAligned},
		{"at lower bound", 35, -15, StatusUnderSpending},
		{"just inside low", 36, -14, StatusAligned},
		{"far over", 150, 100, StatusOverspendingRisk},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Ten tasks, five completed: physical performance 50.
			row := single(t, Snapshot{
				Projects:     []Project{{ID: "p", TotalBudget: 100, Tasks: tasks(5, 10)}},
				Expenditures: []Amount{{ProjectID: "p", Amount: tt.spent}},
			})
			if row.PhysicalPerformance != 50 {
				t.Fatalf("PhysicalPerformance = %d, want 50", row.PhysicalPerformance)
			}
			if row.Variance != tt.wantVar {
				t.Errorf("Variance = %d, want %d", row.Variance, tt.wantVar)
			}
			if row.Status != tt.wantState {
				t.Errorf("Status = %s, want %s", row.Status, tt.wantState)
			}
		})
	}
}

func TestPolicyThresholdIsConfigurable(t *testing.T) {
	p := Policy{VarianceThreshold: 30}
	if got := p.Classify(15); got != StatusAligned {
		t.Errorf("Classify(15) = %s with threshold 30", got)
	}
	if got := p.Classify(-30); got != StatusUnderSpending {
		t.Errorf("Classify(-30) = %s with threshold 30", got)
	}
}

func TestTotalsSumThenDivide(t *testing.T) {
	r := Aggregate(Snapshot{
		Projects: []Project{
			{ID: "a", TotalBudget: 100, Tasks: tasks(1, 1)},
			{ID: "b", TotalBudget: 900, Tasks: tasks(0, 9)},
		},
		Expenditures: []Amount{
			{ProjectID: "a", Amount: 100},
		},
	}, DefaultPolicy())

	if r.Comparison[0].PhysicalPerformance != 100 || r.Comparison[1].PhysicalPerformance != 0 {
		t.Fatalf("rows = %+v", r.Comparison)
	}
	if r.Totals.PhysicalPerformance != 10 {
		t.Errorf("Totals.PhysicalPerformance = %d, want 10", r.Totals.PhysicalPerformance)
	}
	// 100 of 1000 spent, although project a alone is at 100%.
	if r.Totals.FinancialPerformance != 10 {
		t.Errorf("Totals.FinancialPerformance = %d, want 10", r.Totals.FinancialPerformance)
	}
	if r.Totals.TotalTasks != 10 || r.Totals.CompletedTasks != 1 || r.Totals.PlannedBudget != 1000 {
		t.Errorf("Totals = %+v", r.Totals)
	}
}

func TestScopeToOneProject(t *testing.T) {
	s := Snapshot{
		Projects: []Project{
			{ID: "a", Name: "Water", TotalBudget: 1000, Tasks: tasks(1, 2)},
			{ID: "b", Name: "Schools", TotalBudget: 5000},
		},
		Allocations:   []Amount{{ProjectID: "b", Amount: 4000}},
		Expenditures:  []Amount{{ProjectID: "a", Amount: 300}, {ProjectID: "b", Amount: 2000}},
		Disbursements: []Amount{{ProjectID: "a", Amount: 50}},
	}

	r := Aggregate(s.Scope("a"), DefaultPolicy())
	if len(r.Comparison) != 1 || r.Comparison[0].ProjectID != "a" {
		t.Fatalf("Comparison = %+v", r.Comparison)
	}
	row := r.Comparison[0]
	if r.Totals.PlannedBudget != row.PlannedBudget ||
		r.Totals.SpentAmount != row.SpentAmount ||
		r.Totals.DisbursedAmount != row.DisbursedAmount ||
		r.Totals.FinancialPerformance != row.FinancialPerformance ||
		r.Totals.PhysicalPerformance != row.PhysicalPerformance {
		t.Errorf("Totals %+v do not match row %+v", r.Totals, row)
	}
	if row.SpentAmount != 300 || row.PlannedBudget != 1000 || row.DisbursedAmount != 50 {
		t.Errorf("row = %+v", row)
	}
}

func TestScopeEmptyKeepsEverything(t *testing.T) {
	s := Snapshot{Projects: []Project{{ID: "a"}, {ID: "b"}}}
	if got := len(s.Scope("").Projects); got != 2 {
		t.Fatalf("Scope(\"\") kept %d projects", got)
	}
}

func TestEmptySnapshot(t *testing.T) {
	r := Aggregate(Snapshot{}, DefaultPolicy())
	if r.Comparison == nil || len(r.Comparison) != 0 {
		t.Fatalf("Comparison = %#v, want empty non-nil slice", r.Comparison)
	}
	if r.Totals != (Totals{}) {
		t.Fatalf("Totals = %+v, want zero", r.Totals)
	}
}

func TestRowsKeepProjectOrder(t *testing.T) {
	r := Aggregate(Snapshot{Projects: []Project{{ID: "z"}, {ID: "a"}, {ID: "m"}}}, DefaultPolicy())
	for i, id := range []string{"z", "a", "m"} {
		if r.Comparison[i].ProjectID != id {
			t.Fatalf("row %d = %s, want %s", i, r.Comparison[i].ProjectID, id)
		}
	}
}

func TestAmountSumsSaturate(t *testing.T) {
	r := Aggregate(Snapshot{
		Projects: []Project{{ID: "a", TotalBudget: 1}, {ID: "b", TotalBudget: 1}},
		Expenditures: []Amount{
			{ProjectID: "a", Amount: math.MaxInt64},
			{ProjectID: "a", Amount: math.MaxInt64},
			{ProjectID: "b", Amount: 10},
		},
	}, DefaultPolicy())

	row := r.Comparison[0]
	if row.SpentAmount != math.MaxInt64 || row.FinancialPerformance != math.MaxInt64 {
		t.Errorf("row = %+v", row)
	}
	if r.Totals.SpentAmount != math.MaxInt64 || r.Totals.FinancialPerformance <= 0 {
		t.Errorf("Totals = %+v", r.Totals)
	}
	if row.Status != StatusOverspendingRisk {
		t.Errorf("Status = %s", row.Status)
	}
}
