package main

import (
	"fmt"

	"ngo-portal-backend/internal/apperr"
	"ngo-portal-backend/internal/database"
	"ngo-portal-backend/internal/ledger"
	"ngo-portal-backend/internal/performance"
	"ngo-portal-backend/internal/termui"

	"github.com/spf13/cobra"
)

var flagProject string

var performanceCmd = &cobra.Command{
	Use:   "performance",
	Short: "Physical vs. financial performance per project",
	RunE:  runPerformance,
}

func init() {
	performanceCmd.Flags().StringVarP(&flagProject, "project", "p", "", "Limit to one project id")
	rootCmd.AddCommand(performanceCmd)
}

func runPerformance(cmd *cobra.Command, _ []string) error {
	snap, err := ledger.LoadSnapshot(cmd.Context(), database.DB, flagProject)
	if err != nil {
		return err
	}
	if flagProject != "" && len(snap.Projects) == 0 {
		return apperr.NotFound("project")
	}
	report := performance.Aggregate(snap.Scope(flagProject), performance.Policy{VarianceThreshold: cfg.VarianceThreshold})

	out := cmd.OutOrStdout()
	fmt.Fprintln(out)
	fmt.Fprintln(out, termui.Title(fmt.Sprintf("PERFORMANCE  threshold ±%d", cfg.VarianceThreshold)))
	fmt.Fprintln(out)
	if len(report.Comparison) == 0 {
		fmt.Fprintln(out, "  No projects found.")
		return nil
	}

	rows := make([][]string, 0, len(report.Comparison)+2)
	for _, r := range report.Comparison {
		rows = append(rows, []string{
			r.ProjectName,
			termui.Amount(r.PlannedBudget),
			termui.Amount(r.SpentAmount),
			termui.Amount(r.DisbursedAmount),
			fmt.Sprintf("%d/%d", r.CompletedTasks, r.TotalTasks),
			termui.Percent(r.PhysicalPerformance),
			termui.Percent(r.FinancialPerformance),
			termui.Signed(r.Variance),
			termui.Status(string(r.Status)),
		})
	}
	t := report.Totals
	rows = append(rows, []string{"---"}, []string{
		"Total",
		termui.Amount(t.PlannedBudget),
		termui.Amount(t.SpentAmount),
		termui.Amount(t.DisbursedAmount),
		fmt.Sprintf("%d/%d", t.CompletedTasks, t.TotalTasks),
		termui.Percent(t.PhysicalPerformance),
		termui.Percent(t.FinancialPerformance),
		"", "",
	})

	fmt.Fprint(out, termui.Table{
		Headers: []string{"Project", "Planned", "Spent", "Disbursed", "Tasks", "Physical", "Financial", "Var", "Status"},
		Rows:    rows,
	}.Render())
	return nil
}
