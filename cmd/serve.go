// File: cmd/serve.go
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/xkilldash9x/anchorpoint/internal/api"
	"github.com/xkilldash9x/anchorpoint/internal/engine"
	"github.com/xkilldash9x/anchorpoint/internal/observability"
)

// newServeCmd creates the `serve` command, which exposes the placement
// engine over HTTP.
func newServeCmd() *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serves the placement API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}
			logger := observability.GetLogger()
			eng, err := engine.New(cfg, logger)
			if err != nil {
				return err
			}
			return api.NewServer(eng, cfg, logger).Run(ctx)
		},
	}
	serveCmd.Flags().String("addr", "", "listen address (default from config)")
	bindFlag(serveCmd.Flags(), "addr", "server.addr")
	return serveCmd
}
