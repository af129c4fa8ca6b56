// Package cli holds the civicbridge command line: serve runs the HTTP API and
// migrate prepares the configured store.
package cli

import (
	"context"
	"fmt"

	"civicbridge-be/config"
	"civicbridge-be/store"
	"civicbridge-be/store/memory"
	"civicbridge-be/store/mongostore"
	"civicbridge-be/store/sqlstore"
	"civicbridge-be/utils"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Version is set at build time with -ldflags.
var Version = "dev"

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "civicbridge",
		Short:         "CivicBridge civic issue reporting API",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       Version,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")

	root.AddCommand(
		newServeCommand(&configPath),
		newMigrateCommand(&configPath),
	)
	return root
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}

func bootstrap(configPath string) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	logger, err := utils.NewLogger(cfg.Logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return cfg, logger, nil
}

// openStore connects the backend selected by store.driver.
func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (store.Store, error) {
	switch cfg.Store.Driver {
	case config.DriverMemory:
		logger.Warn("Using in-memory store, data is lost on exit")
		return memory.New(), nil
	case config.DriverMongo:
		client, err := config.ConnectMongo(ctx, cfg.Mongo, logger)
		if err != nil {
			return nil, err
		}
		return mongostore.New(client, cfg.Mongo.Database, cfg.Mongo.Transactions, logger), nil
	case config.DriverSQLite, config.DriverPostgres:
		return sqlstore.Open(ctx, cfg.Store.Driver, cfg.Store.DSN, logger)
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
}
