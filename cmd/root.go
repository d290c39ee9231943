package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/itemwatch/itemwatch/internal/contract"
	"github.com/itemwatch/itemwatch/internal/iostore"
	"github.com/itemwatch/itemwatch/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// All linker flags will be set by goreleaser infra at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCtx is the root context for all operations.
var rootCtx = context.Background()

// cfg will hold the validated, final configuration.
var cfg = &contract.Config{}

// input holds the raw, unvalidated configuration from all sources (file, env, flags).
// Viper will unmarshal into this struct.
var input = &contract.ConfigRawInput{}

// store is the persistence layer opened during shared setup.
var store *iostore.Store

// rootCmd is the command-line entrypoint for all other commands.
var rootCmd = &cobra.Command{
	Use:                "itemwatch",
	Short:              "Monitor assessment item health from response data.",
	Long:               `Itemwatch computes classical and IRT item statistics over a response window and flags drift, overexposure and subgroup gaps.`,
	Version:            version,
	SilenceErrors:      true,
	SilenceUsage:       true,
	DisableSuggestions: true,
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	// Check if a specific config file is provided
	if configFile := viper.GetString("config"); configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		// Set config file name and paths
		viper.SetConfigName(".itemwatch") // Name of config file (without extension)
		viper.SetConfigType("yaml")       // We'll use YAML format
		viper.AddConfigPath(".")          // Look in the current directory
		viper.AddConfigPath("$HOME")      // Look in the home directory
	}

	// Set environment variable prefix
	viper.SetEnvPrefix("ITEMWATCH")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // Read in environment variables that match

	// Set defaults in Viper
	viper.SetDefault("tenant", "")
	viper.SetDefault("window-days", schema.DefaultWindowDays)
	viper.SetDefault("workers", contract.DefaultWorkers)
	viper.SetDefault("backend", schema.SQLiteBackend)
	viper.SetDefault("db-connect", "")
	viper.SetDefault("output", schema.TextOut)
	viper.SetDefault("output-file", "")
	viper.SetDefault("limit", contract.DefaultResultLimit)
	viper.SetDefault("color", "yes")
	viper.SetDefault("format", schema.ParquetExport)
}

// loadConfigFile handles config file loading logic common to all setup functions.
func loadConfigFile() error {
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			// Config file was found but another error was produced
			return fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found, which is fine; we'll use defaults/env/flags.
	}
	return nil
}

// sharedSetup unmarshals config, runs validation and opens the store.
func sharedSetup(_ *cobra.Command, _ []string) error {
	// 1. Read config file. This merges defaults, file, env, and flags.
	if err := loadConfigFile(); err != nil {
		return err
	}

	// 2. Unmarshal all resolved values from Viper into our raw input struct.
	if err := viper.Unmarshal(input); err != nil {
		return fmt.Errorf("unable to unmarshal config: %w", err)
	}

	// 3. Run all validation and complex parsing.
	// This function now populates the global 'cfg' from 'input'.
	if err := contract.ProcessAndValidate(cfg, input, time.Now()); err != nil {
		return err
	}
	cfg.SoftwareVersion = version

	// 4. Open the persistence layer with validated config.
	var err error
	store, err = iostore.NewStore(cfg.Backend, cfg.DBConnect)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}

	return nil
}

// migrateSetup loads minimal configuration needed for migrate operations.
// It does NOT open the store or create tables, allowing migrations to run
// on a fresh database.
func migrateSetup(_ *cobra.Command, _ []string) error {
	if err := loadConfigFile(); err != nil {
		return err
	}

	backend := schema.DatabaseBackend(strings.ToLower(viper.GetString("backend")))
	if _, ok := schema.ValidDatabaseBackends[backend]; !ok {
		return fmt.Errorf("invalid backend '%s'. must be sqlite, postgresql, mysql", viper.GetString("backend"))
	}
	connStr := viper.GetString("db-connect")
	if err := contract.ValidateDatabaseConnectionString(backend, connStr); err != nil {
		return err
	}

	// For SQLite backend with empty connection string, use default path
	if backend == schema.SQLiteBackend && connStr == "" {
		connStr = contract.GetDBFilePath()
	}

	cfg.Backend = backend
	cfg.DBConnect = connStr
	return nil
}

// Execute runs the root command.
func Execute() error {
	err := rootCmd.Execute()
	if store != nil {
		_ = store.Close()
	}
	return err
}
