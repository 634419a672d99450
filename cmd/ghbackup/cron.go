package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aatumaykin/ghbackup/internal/config"
	"github.com/aatumaykin/ghbackup/internal/cron"
	"github.com/spf13/cobra"
)

func newCronCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cron",
		Short: "Check cron expressions",
		Long: `Validate five-field cron expressions the same way the dashboard does,
and preview upcoming run times.`,
	}
	cmd.AddCommand(newCronValidateCmd(flags), newCronNextCmd(flags))
	return cmd
}

// cronExpression joins args so that both quoted and unquoted expressions work.
func cronExpression(args []string) string {
	return strings.Join(args, " ")
}

// cronConfig reads the config only for schedule options; a broken file falls back to defaults.
func cronConfig(flags *globalFlags) *config.Config {
	cfg, err := config.LoadOrDefault(flags.configPath)
	if err != nil {
		return config.Default()
	}
	return cfg
}

func newCronValidateCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <expression>",
		Short: "Validate a cron expression",
		Example: `  ghbackup cron validate "0 2 * * *"
  ghbackup cron validate '*/15 * * * *'`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			verdict := cronConfig(flags).CronValidator().Validate(cronExpression(args))
			if !verdict.Valid {
				fmt.Fprintf(cmd.OutOrStdout(), "❌ %s\n", verdict.Reason)
				return errors.New(verdict.Reason)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✅ %s\n", verdict.Reason)
			return nil
		},
	}
}

func newCronNextCmd(flags *globalFlags) *cobra.Command {
	var count int

	cmd := &cobra.Command{
		Use:   "next <expression>",
		Short: "Show the next run times of a cron expression",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := cronConfig(flags)
			expression := cronExpression(args)

			if verdict := cfg.CronValidator().Validate(expression); !verdict.Valid {
				return errors.New(verdict.Reason)
			}
			loc, err := cfg.Location()
			if err != nil {
				return err
			}

			runs, err := cron.NextRuns(expression, time.Now().In(loc), count)
			if err != nil {
				return err
			}
			for _, r := range runs {
				fmt.Fprintln(cmd.OutOrStdout(), r.Format("Mon 2006-01-02 15:04 MST"))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 5, "number of run times to show")
	return cmd
}
