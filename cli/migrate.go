package cli

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newMigrateCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create tables or indexes for the configured store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := bootstrap(*configPath)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			st, err := openStore(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close(context.Background()) }()

			if err := st.Migrate(cmd.Context()); err != nil {
				return err
			}
			logger.Info("Migration complete", zap.String("store", cfg.Store.Driver))
			return nil
		},
	}
}
