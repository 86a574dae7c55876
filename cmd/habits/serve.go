package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/compoundhabits/habits/config"
	"github.com/compoundhabits/habits/migrations"
	"github.com/compoundhabits/habits/routes"
	"github.com/compoundhabits/habits/utils"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run pending migrations and start the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := utils.InitLogger(cfg); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		defer func() { _ = utils.Logger.Sync() }()

		db, err := config.OpenDatabase(cfg)
		if err != nil {
			return err
		}
		if sqlDB, err := db.DB(); err == nil {
			defer sqlDB.Close()
		}

		applied, err := migrations.Up(context.Background(), db)
		if err != nil {
			return err
		}
		if len(applied) > 0 {
			utils.Sugar.Infow("applied migrations", "versions", applied)
		}

		rc := utils.NewRedis(cfg)
		if rc != nil {
			defer rc.Close()
		} else {
			utils.Sugar.Info("redis disabled, using in-process state and no heatmap cache")
		}

		r := routes.SetupRouter(routes.Deps{Config: cfg, DB: db, Redis: rc})

		utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
		if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
			return fmt.Errorf("server stopped with error: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
