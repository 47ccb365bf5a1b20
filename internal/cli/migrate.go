package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/vietddude/dexcache/internal/core/config"
	"github.com/vietddude/dexcache/internal/infra/storage/postgres"
	"github.com/vietddude/dexcache/internal/infra/storage/sqlite"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the embedded schema migrations to the configured store",
	Run:   runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	ctx := context.Background()

	var version int64
	switch cfg.Store.Backend {
	case config.BackendPostgres:
		db, err := postgres.NewDB(ctx, cfg.Database)
		if err != nil {
			slog.Error("Failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer func() {
			_ = db.Close()
		}()
		if err := db.Migrate(ctx); err != nil {
			slog.Error("Failed to migrate", "error", err)
			os.Exit(1)
		}
		version, err = db.SchemaVersion(ctx)
		if err != nil {
			slog.Error("Failed to read schema version", "error", err)
			os.Exit(1)
		}

	case config.BackendSQLite:
		// Open applies migrations.
		db, err := sqlite.Open(ctx, cfg.SQLite)
		if err != nil {
			slog.Error("Failed to open sqlite", "error", err)
			os.Exit(1)
		}
		defer func() {
			_ = db.Close()
		}()
		version, err = db.SchemaVersion(ctx)
		if err != nil {
			slog.Error("Failed to read schema version", "error", err)
			os.Exit(1)
		}

	default:
		fmt.Printf("Store backend %q has no schema\n", cfg.Store.Backend)
		return
	}

	fmt.Printf("Schema for %s is at version %d\n", cfg.Store.Backend, version)
}
