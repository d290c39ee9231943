package cmd

import (
	"github.com/itemwatch/itemwatch/internal/contract"
	"github.com/itemwatch/itemwatch/internal/iostore"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// migrateCmd runs database migrations for the result store.
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database schema migrations (upgrades/downgrades).",
	Long: `Manage database schema versions for the result store.

Migrations allow:
- Upgrading to new schema versions when itemwatch is updated
- Safely modifying database structure without data loss
- Rolling back schema changes if needed

By default, migrates to the latest version. Use --target-version for
specific versions.

Examples:
  # Migrate to latest version (default)
  itemwatch migrate

  # Migrate to specific version
  itemwatch migrate --target-version 1

  # Rollback to initial state
  itemwatch migrate --target-version 0`,
	PreRunE: migrateSetup,
	Run: func(_ *cobra.Command, _ []string) {
		targetVersion := viper.GetInt("target-version")
		if err := iostore.Migrate(cfg.Backend, cfg.DBConnect, targetVersion); err != nil {
			contract.LogFatal("Failed to run migrations", err)
		}
	},
}
