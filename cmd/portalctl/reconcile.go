package main

import (
	"errors"
	"fmt"

	"ngo-portal-backend/internal/apperr"
	"ngo-portal-backend/internal/audit"
	"ngo-portal-backend/internal/auth"
	"ngo-portal-backend/internal/database"
	"ngo-portal-backend/internal/ledger"
	"ngo-portal-backend/internal/termui"

	"github.com/spf13/cobra"
)

// errDrift makes `reconcile` without --fix exit 2 when drift exists.
var errDrift = errors.New("spent budget drift detected")

var (
	flagFix   bool
	flagActor string
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Compare cached project spend with the expenditure ledger",
	Long: "Recomputes each project's spend from its expenditures and lists projects whose\n" +
		"cached spent budget disagrees. With --fix the cache is rewritten and each\n" +
		"correction is audited under --actor, who must hold an edit role.",
	RunE: runReconcile,
}

func init() {
	reconcileCmd.Flags().BoolVar(&flagFix, "fix", false, "Rewrite drifted projects from their expenditures")
	reconcileCmd.Flags().StringVar(&flagActor, "actor", "", "User id recorded on repair audit entries")
	rootCmd.AddCommand(reconcileCmd)
}

func runReconcile(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	// The gate runs before the ledger is read.
	var actor audit.Actor
	if flagFix {
		if flagActor == "" {
			return apperr.Invalid("actor", "is required with --fix")
		}
		id, err := auth.ResolveIdentity(ctx, database.DB, flagActor)
		if err != nil {
			return err
		}
		if err := auth.Authorize(id); err != nil {
			return err
		}
		actor = audit.Actor{UserID: id.UserID, Request: &audit.Metadata{Method: "CLI", Path: "portalctl reconcile --fix"}}
	}

	drifts, err := ledger.Reconcile(ctx, database.DB)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out)
	if len(drifts) == 0 {
		fmt.Fprintln(out, "  "+termui.OK("All projects reconcile."))
		return nil
	}

	rows := make([][]string, 0, len(drifts))
	for _, d := range drifts {
		rows = append(rows, []string{
			d.ProjectName,
			d.ProjectID,
			termui.Amount(d.Recorded),
			termui.Amount(d.Actual),
			termui.Warn(termui.Signed(d.Delta())),
		})
	}
	fmt.Fprint(out, termui.Table{
		Headers: []string{"Project", "ID", "Recorded", "Actual", "Delta"},
		Rows:    rows,
	}.Render())

	if !flagFix {
		return errDrift
	}

	rec := audit.NewRecorder(audit.Mode(cfg.AuditMode), log)
	for _, d := range drifts {
		if err := ledger.Repair(ctx, database.DB, rec, actor, d.ProjectID); err != nil {
			return fmt.Errorf("repairing %s: %w", d.ProjectID, err)
		}
		log.Info("repaired project spend", "project_id", d.ProjectID, "from", d.Recorded, "to", d.Actual)
	}
	fmt.Fprintf(out, "\n  %s\n", termui.OK(fmt.Sprintf("Repaired %d project(s).", len(drifts))))
	return nil
}
