// File: cmd/store.go
package cmd

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/anchorpoint/api/schemas"
	"github.com/xkilldash9x/anchorpoint/internal/config"
	"github.com/xkilldash9x/anchorpoint/internal/observability"
	"github.com/xkilldash9x/anchorpoint/internal/store"
)

// captureStore persists captures for `browse --store` and serves them to
// `replay --run`.
type captureStore interface {
	PersistRecord(ctx context.Context, rec schemas.RecordedSnapshot) error
	LoadRun(ctx context.Context, runID string) ([]schemas.RecordedSnapshot, error)
	Migrate(ctx context.Context) error
}

// openStore connects to PostgreSQL and returns the store with a cleanup
// function that closes the pool. Replaced in tests.
var openStore = func(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (captureStore, func(), error) {
	if cfg.URL == "" {
		return nil, nil, fmt.Errorf("database URL is not configured (ANCHORPOINT_DATABASE_URL)")
	}

	pool, err := pgxpool.New(ctx, cfg.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s, err := store.New(ctx, pool, logger)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to initialize store: %w", err)
	}

	cleanup := func() {
		pool.Close()
		logger.Debug("Database connection pool closed.")
	}
	return s, cleanup, nil
}

// newMigrateCmd creates the `migrate` command, which prepares the capture
// store tables.
func newMigrateCmd() *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Creates the PostgreSQL tables used by browse --store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}
			logger := observability.GetLogger()

			s, cleanup, err := openStore(ctx, cfg.Database(), logger)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := s.Migrate(ctx); err != nil {
				return err
			}
			logger.Info("Capture store schema is up to date.")
			return nil
		},
	}
	migrateCmd.Flags().String("database-url", "", "PostgreSQL connection URL (default from config)")
	bindFlag(migrateCmd.Flags(), "database-url", "database.url")
	return migrateCmd
}
