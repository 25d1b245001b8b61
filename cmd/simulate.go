// File: cmd/simulate.go
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/anchorpoint/api/schemas"
	"github.com/xkilldash9x/anchorpoint/internal/engine"
	"github.com/xkilldash9x/anchorpoint/internal/observability"
	"github.com/xkilldash9x/anchorpoint/internal/position/memdom"
)

// newSimulateCmd creates the `simulate` command, which evaluates the
// placements listed in a snapshot fixture.
func newSimulateCmd() *cobra.Command {
	simulateCmd := &cobra.Command{
		Use:   "simulate FIXTURE",
		Short: "Evaluates every placement in a YAML or JSON layout fixture",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}
			logger := observability.GetLogger()

			snap, err := memdom.LoadFile(args[0])
			if err != nil {
				return err
			}
			if len(snap.Placements) == 0 {
				return fmt.Errorf("fixture '%s' lists no placements", args[0])
			}

			eng, err := engine.New(cfg, logger)
			if err != nil {
				return err
			}
			results, err := eng.EvaluateSnapshot(ctx, snap)
			if err != nil {
				return fmt.Errorf("simulation of '%s' failed: %w", args[0], err)
			}

			logger.Info("Simulation complete",
				zap.String("fixture", args[0]),
				zap.Int("placements", len(results)),
				zap.Int("concurrency", cfg.Simulate().Concurrency),
			)
			return printResults(cmd.OutOrStdout(), cfg.Output(), schemas.EvaluateResponse{URL: snap.URL, Results: results})
		},
	}

	simulateCmd.Flags().Int("concurrency", 0, "maximum placements evaluated at once (default from config)")
	simulateCmd.Flags().Bool("append-to-body", false, "place every target relative to the document")
	bindFlag(simulateCmd.Flags(), "concurrency", "simulate.concurrency")
	bindFlag(simulateCmd.Flags(), "append-to-body", "position.append_to_body")
	return simulateCmd
}
