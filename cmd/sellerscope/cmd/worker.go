package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sellerscope/sellerscope/internal/config"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run one refresh cycle and exit",
	Long: "Claims one batch of pending refresh requests, fetches listings " +
		"from the provider, writes snapshots, and exits. Useful for " +
		"debugging and one-off runs; the serve command runs cycles on a schedule.",
	RunE: runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cobraCmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	deps, err := buildDeps(cobraCmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer deps.Close()

	n, err := deps.Engine.RunCycle(cobraCmd.Context())
	if err != nil {
		return fmt.Errorf("running cycle: %w", err)
	}

	deps.Logger.Info("cycle complete", "processed", n)
	return nil
}
