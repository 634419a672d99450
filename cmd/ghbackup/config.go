package main

import (
	"errors"
	"fmt"

	"github.com/aatumaykin/ghbackup/internal/config"
	"github.com/spf13/cobra"
)

func newConfigCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long:  `Validate ghbackup configuration.`,
	}
	cmd.AddCommand(newConfigValidateCmd(flags))
	return cmd
}

func newConfigValidateCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [config-file]",
		Short: "Validate configuration file",
		Long:  `Load the configuration file and report every validation error.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := flags.configPath
			if len(args) > 0 {
				path = args[0]
			}

			cfg, err := config.Load(path)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			errs := cfg.Validate()
			if len(errs) > 0 {
				fmt.Fprintf(out, "❌ %s: %d error(s)\n", path, len(errs))
				for _, e := range errs {
					fmt.Fprintf(out, "  - %v\n", e)
				}
				return fmt.Errorf("configuration is invalid")
			}

			fmt.Fprintf(out, "✅ %s is valid\n", path)
			fmt.Fprintf(out, "  listen:   %s\n", cfg.Server.Listen)
			fmt.Fprintf(out, "  database: %s\n", cfg.Database.Path)
			fmt.Fprintf(out, "  backups:  %s (keep %d)\n", cfg.Backup.DefaultPath, cfg.Backup.DefaultMaxBackups)
			if cfg.GitHub.Token != "" {
				fmt.Fprintf(out, "  token:    %s\n", config.MaskSecret(cfg.GitHub.Token))
			}
			return nil
		},
	}
}

func joinErrors(errs []error) error {
	return errors.Join(errs...)
}
