package cli

import (
	"context"
	"path/filepath"
	"testing"

	"civicbridge-be/config"
	"civicbridge-be/store/memory"
	"civicbridge-be/store/sqlstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRootCommand_Subcommands(t *testing.T) {
	root := NewRootCommand()
	names := make([]string, 0)
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"serve", "migrate"}, names)
	assert.NotNil(t, root.PersistentFlags().Lookup("config"))
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()

	st, err := openStore(ctx, &config.Config{Store: config.StoreConfig{Driver: config.DriverMemory}}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &memory.Store{}, st)

	dsn := filepath.Join(t.TempDir(), "civic.db")
	st, err = openStore(ctx, &config.Config{Store: config.StoreConfig{Driver: config.DriverSQLite, DSN: dsn}}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &sqlstore.Store{}, st)
	require.NoError(t, st.Close(ctx))

	_, err = openStore(ctx, &config.Config{Store: config.StoreConfig{Driver: "cassandra"}}, zap.NewNop())
	assert.Error(t, err)
}

func TestMigrateCommand_SQLite(t *testing.T) {
	t.Setenv("STORE_DRIVER", config.DriverSQLite)
	t.Setenv("DATABASE_URL", filepath.Join(t.TempDir(), "civic.db"))
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("LOG_LEVEL", "error")

	root := NewRootCommand()
	root.SetArgs([]string{"migrate"})
	require.NoError(t, root.ExecuteContext(context.Background()))
}

func TestMigrateCommand_InvalidConfig(t *testing.T) {
	t.Setenv("STORE_DRIVER", config.DriverMemory)
	t.Setenv("JWT_SECRET", "")

	root := NewRootCommand()
	root.SetArgs([]string{"migrate"})
	err := root.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "jwt_secret")
}
