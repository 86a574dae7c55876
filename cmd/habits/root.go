package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/compoundhabits/habits/config"
)

var (
	configPath string
	dbPath     string
)

var rootCmd = &cobra.Command{
	Use:           "habits",
	Short:         "habits serves the habit tracker API",
	Long:          "habits is a multi-user habit tracker: log entries, then review heatmaps and daily series over HTTP.",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveCmd.RunE(cmd, args)
	},
}

// Execute runs the CLI and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath, "Path to the JSON config file")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database path (overrides config)")
}

func loadConfig() (config.AppConfig, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.AppConfig{}, err
	}
	if dbPath != "" {
		cfg.DBDriver = "sqlite"
		cfg.SQLitePath = dbPath
	}
	return cfg, nil
}
