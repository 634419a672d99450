package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/aatumaykin/ghbackup/internal/app"
	"github.com/aatumaykin/ghbackup/internal/logger"
	"github.com/aatumaykin/ghbackup/internal/version"
	"github.com/spf13/cobra"
)

func newServeCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the dashboard and the backup scheduler (main command)",
		Long: `Start ghbackup with the specified configuration.
This opens the database, restores the backup schedule, starts the worker pool
and serves the web dashboard until SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}
			log, err := newLogger(cfg)
			if err != nil {
				return err
			}

			log.Info(version.FormatStartupMessage(),
				logger.Field{Key: "config", Value: flags.configPath},
				logger.Field{Key: "database", Value: cfg.Database.Path})

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := app.New(cfg, log).Run(ctx); err != nil {
				log.Error("application stopped with error", err)
				return err
			}
			return nil
		},
	}
}
