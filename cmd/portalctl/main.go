// Command portalctl gives operators the performance report and the
// spent-budget reconciliation without going through HTTP.
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"ngo-portal-backend/internal/apperr"
	"ngo-portal-backend/internal/config"
	"ngo-portal-backend/internal/database"
	"ngo-portal-backend/internal/logging"

	"github.com/spf13/cobra"
)

var (
	flagDSN   string
	flagQuiet bool

	cfg *config.Config
	log *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:           "portalctl",
	Short:         "NGO portal operator tools",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		var err error
		if cfg, err = config.Load(); err != nil {
			return err
		}
		if flagDSN != "" {
			cfg.DatabaseDSN = flagDSN
		}
		level := cfg.LogLevel
		if flagQuiet {
			level = "error"
		}
		log = logging.New(os.Stderr, level, "text")
		return database.Init(cfg.DatabaseDSN, log)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDSN, "dsn", "", "Database DSN (overrides DATABASE_DSN)")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Only log errors")
}

func main() {
	err := rootCmd.Execute()
	if err == nil {
		return
	}
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(exitCode(err))
}

// exitCode is apperr.ExitCode plus 2 for reported drift.
func exitCode(err error) int {
	if errors.Is(err, errDrift) {
		return 2
	}
	return apperr.ExitCode(err)
}
