package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sellerscope/sellerscope/internal/config"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run one staleness policy sweep and exit",
	Long: "Re-evaluates stored snapshots against the demand-driven freshness " +
		"policy and enqueues refreshes for the stale ones, then exits.",
	RunE: runSweep,
}

func init() {
	rootCmd.AddCommand(sweepCmd)
}

func runSweep(cobraCmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	deps, err := buildDeps(cobraCmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer deps.Close()

	n, err := deps.Engine.RunPolicySweep(cobraCmd.Context())
	if err != nil {
		return fmt.Errorf("running sweep: %w", err)
	}

	deps.Logger.Info("sweep complete", "enqueued", n)
	return nil
}
