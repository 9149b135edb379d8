package main

import (
	"context"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/thisdougb/sitedb"
	"github.com/thisdougb/sitedb/internal/config"
)

var (
	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "sitedb",
		Short: "database operations for the game server website",
		Long: `sitedb manages the SQLite database behind the game server website:
index and pragma tuning, backups, and the admin monitoring endpoints.

Settings come from flags, SITEDB_* environment variables, or a .env file.`,
		PersistentPreRunE: loadConfig,
		SilenceUsage:      true,
	}

	cfg config.Config
)

func init() {
	cobra.OnInitialize(initViper)

	RootCmd.PersistentFlags().String("db-path", "", "SQLite database file (SITEDB_DB_PATH)")
	RootCmd.PersistentFlags().String("backup-dir", "", "backup directory (SITEDB_BACKUP_DIR)")
	RootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error (SITEDB_LOG_LEVEL)")
	RootCmd.PersistentFlags().String("log-format", "", "log format: text, color, json (SITEDB_LOG_FORMAT)")

	RootCmd.AddCommand(serveCmd, initCmd, backupCmd, indexesCmd, monitorCmd)
}

// initViper reads .env files and SITEDB_ environment variables.
func initViper() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	viper.SetEnvPrefix("sitedb")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

// loadConfig layers explicitly set flags over the environment defaults.
func loadConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	cfg = config.Load()
	if v := viper.GetString("db-path"); v != "" {
		cfg.DBPath = v
	}
	if v := viper.GetString("backup-dir"); v != "" {
		cfg.BackupDir = v
	}
	if v := viper.GetString("log-level"); v != "" {
		cfg.LogLevel = v
	}
	if v := viper.GetString("log-format"); v != "" {
		cfg.LogFormat = v
	}
	if v := viper.GetString("listen"); v != "" {
		cfg.Listen = v
	}

	config.InitLog(cfg.LogLevel, cfg.LogFormat)
	return nil
}

// withSite opens the database for the duration of fn.
func withSite(cmd *cobra.Command, fn func(ctx context.Context, site *sitedb.Site) error) error {
	site, err := sitedb.NewWithConfig(cfg)
	if err != nil {
		return err
	}
	defer site.Close()

	ctx := config.SetContextCorrelationId(cmd.Context(), cmd.Name())
	return fn(ctx, site)
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
