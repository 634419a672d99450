package main

import (
	"fmt"

	"github.com/aatumaykin/ghbackup/internal/config"
	"github.com/aatumaykin/ghbackup/internal/logger"
	"github.com/spf13/cobra"
)

const (
	defaultConfigPath = "./config.toml"
	defaultEnvFile    = "./.env"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	envFile    string
	logLevel   string
}

// newRootCmd builds the command tree. A fresh tree per call keeps flag state out of tests.
func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:   "ghbackup",
		Short: "ghbackup - self-hosted GitHub repository backups",
		Long: `ghbackup keeps zip archives of your GitHub repositories.
It runs a web dashboard with a cron scheduler, and offers the same
operations from the command line.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return config.LoadEnvOptional(flags.envFile)
		},
	}

	root.PersistentFlags().StringVarP(&flags.configPath, "config", "c", defaultConfigPath, "path to config file")
	root.PersistentFlags().StringVar(&flags.envFile, "env-file", defaultEnvFile, "optional .env file loaded before the config")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "override logging.level (debug, info, warn, error)")

	root.AddCommand(
		newVersionCmd(),
		newConfigCmd(flags),
		newCronCmd(flags),
		newServeCmd(flags),
		newBackupCmd(flags),
		newReposCmd(flags),
		newStatusCmd(flags),
		newPurgeCmd(flags),
	)
	return root
}

// loadConfig loads and validates the config file. A missing file yields the defaults.
func (f *globalFlags) loadConfig() (*config.Config, error) {
	cfg, err := config.LoadOrDefault(f.configPath)
	if err != nil {
		return nil, err
	}
	if f.logLevel != "" {
		cfg.Logging.Level = f.logLevel
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("invalid configuration: %w", joinErrors(errs))
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*logger.Logger, error) {
	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.SetDefault(log)
	return log, nil
}
