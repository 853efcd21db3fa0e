// Package performance reconciles budgets, expenditures, disbursements and
// task completion into physical vs. financial performance figures.
//
// Everything here is pure arithmetic over an already-loaded Snapshot; the
// package does no I/O and cannot fail.
package performance

import (
	"math"
	"math/big"

	"ngo-portal-backend/internal/models"
)

// DefaultVarianceThreshold is the percentage-point gap between financial
// and physical performance at which a project is flagged.
const DefaultVarianceThreshold int64 = 15

type Status string

const (
	StatusAligned          Status = "aligned"
	StatusOverspendingRisk Status = "overspending_risk"
	StatusUnderSpending    Status = "under_spending"
)

// Policy holds the tunable classification rules.
type Policy struct {
	VarianceThreshold int64
}

func DefaultPolicy() Policy {
	return Policy{VarianceThreshold: DefaultVarianceThreshold}
}

// Classify maps a variance onto a status. Both bounds are inclusive and
// the overspending check runs first.
func (p Policy) Classify(variance int64) Status {
	switch {
	case variance >= p.VarianceThreshold:
		return StatusOverspendingRisk
	case variance <= -p.VarianceThreshold:
		return StatusUnderSpending
	default:
		return StatusAligned
	}
}

type Task struct {
	ID     string
	Status models.TaskStatus
}

type Project struct {
	ID          string
	Name        string
	TotalBudget int64
	Tasks       []Task
}

// Amount is one ledger row reduced to what the fold needs.
type Amount struct {
	ProjectID string
	Amount    int64
}

// Snapshot is the input of Aggregate. Row order only matters for
// Projects, which fixes the order of the output rows.
type Snapshot struct {
	Projects      []Project
	Allocations   []Amount
	Expenditures  []Amount
	Disbursements []Amount
}

// Scope keeps only the rows belonging to projectID. An empty id returns
// the snapshot unchanged.
func (s Snapshot) Scope(projectID string) Snapshot {
	if projectID == "" {
		return s
	}
	out := Snapshot{
		Allocations:   scopeAmounts(s.Allocations, projectID),
		Expenditures:  scopeAmounts(s.Expenditures, projectID),
		Disbursements: scopeAmounts(s.Disbursements, projectID),
	}
	for _, p := range s.Projects {
		if p.ID == projectID {
			out.Projects = append(out.Projects, p)
		}
	}
	return out
}

func scopeAmounts(rows []Amount, projectID string) []Amount {
	var out []Amount
	for _, r := range rows {
		if r.ProjectID == projectID {
			out = append(out, r)
		}
	}
	return out
}

type Row struct {
	ProjectID            string `json:"projectId"`
	ProjectName          string `json:"projectName"`
	PlannedBudget        int64  `json:"plannedBudget"`
	SpentAmount          int64  `json:"spentAmount"`
	DisbursedAmount      int64  `json:"disbursedAmount"`
	TotalTasks           int64  `json:"totalTasks"`
	CompletedTasks       int64  `json:"completedTasks"`
	PhysicalPerformance  int64  `json:"physicalPerformance"`
	FinancialPerformance int64  `json:"financialPerformance"`
	Variance             int64  `json:"variance"`
	Status               Status `json:"status"`
}

type Totals struct {
	PlannedBudget        int64 `json:"plannedBudget"`
	SpentAmount          int64 `json:"spentAmount"`
	DisbursedAmount      int64 `json:"disbursedAmount"`
	TotalTasks           int64 `json:"totalTasks"`
	CompletedTasks       int64 `json:"completedTasks"`
	PhysicalPerformance  int64 `json:"physicalPerformance"`
	FinancialPerformance int64 `json:"financialPerformance"`
}

type Report struct {
	Comparison []Row  `json:"comparison"`
	Totals     Totals `json:"totals"`
}

// Aggregate folds a snapshot into one Row per project plus portfolio
// Totals. Totals percentages are recomputed from the summed numerators
// and denominators, never averaged across rows. Amount sums saturate at
// math.MaxInt64 instead of wrapping.
func Aggregate(s Snapshot, p Policy) Report {
	planned := sumByProject(s.Allocations)
	spent := sumByProject(s.Expenditures)
	disbursed := sumByProject(s.Disbursements)

	report := Report{Comparison: make([]Row, 0, len(s.Projects))}
	for _, project := range s.Projects {
		row := Row{
			ProjectID:       project.ID,
			ProjectName:     project.Name,
			SpentAmount:     spent[project.ID],
			DisbursedAmount: disbursed[project.ID],
			TotalTasks:      int64(len(project.Tasks)),
		}
		for _, t := range project.Tasks {
			if t.Status == models.TaskStatusCompleted {
				row.CompletedTasks++
			}
		}

		row.PlannedBudget = planned[project.ID]
		if row.PlannedBudget == 0 {
			// Projects that pre-date itemized budgeting.
			row.PlannedBudget = project.TotalBudget
		}

		row.PhysicalPerformance = Percent(row.CompletedTasks, row.TotalTasks)
		row.FinancialPerformance = Percent(row.SpentAmount, row.PlannedBudget)
		row.Variance = addSat(row.FinancialPerformance, -row.PhysicalPerformance)
		row.Status = p.Classify(row.Variance)

		report.Comparison = append(report.Comparison, row)

		t := &report.Totals
		t.PlannedBudget = addSat(t.PlannedBudget, row.PlannedBudget)
		t.SpentAmount = addSat(t.SpentAmount, row.SpentAmount)
		t.DisbursedAmount = addSat(t.DisbursedAmount, row.DisbursedAmount)
		t.TotalTasks += row.TotalTasks
		t.CompletedTasks += row.CompletedTasks
	}

	report.Totals.PhysicalPerformance = Percent(report.Totals.CompletedTasks, report.Totals.TotalTasks)
	report.Totals.FinancialPerformance = Percent(report.Totals.SpentAmount, report.Totals.PlannedBudget)
	return report
}

func sumByProject(rows []Amount) map[string]int64 {
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.ProjectID] = addSat(out[r.ProjectID], r.Amount)
	}
	return out
}

// Percent returns round(100*num/den) with halves rounded up, or 0 when
// den <= 0. The result is not capped at 100 but saturates at the int64
// bounds.
func Percent(num, den int64) int64 {
	if den <= 0 {
		return 0
	}
	// floor((200*num + den) / (2*den)) is round-half-up of 100*num/den.
	if num >= 0 && num <= (math.MaxInt64-den)/200 && den <= math.MaxInt64/2 {
		return (200*num + den) / (2 * den)
	}
	n := new(big.Int).Mul(big.NewInt(num), big.NewInt(200))
	n.Add(n, big.NewInt(den))
	d := new(big.Int).Mul(big.NewInt(den), big.NewInt(2))
	// Div is Euclidean, which equals floor for a positive divisor.
	q := new(big.Int).Div(n, d)
	switch {
	case q.IsInt64():
		return q.Int64()
	case q.Sign() > 0:
		return math.MaxInt64
	default:
		return math.MinInt64
	}
}

// addSat adds two amounts, saturating at the int64 bounds.
func addSat(a, b int64) int64 {
	s := a + b
	switch {
	case a > 0 && b > 0 && s < 0:
		return math.MaxInt64
	case a < 0 && b < 0 && s >= 0:
		return math.MinInt64
	}
	return s
}
