package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aatumaykin/ghbackup/internal/backup"
	"github.com/spf13/cobra"
)

func newBackupCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Run backups",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Back up every enabled repository now",
		Long: `Back up every enabled repository using the configuration stored in the
database, then apply retention. Runs in the foreground; Ctrl+C cancels the run.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := openServices(flags)
			if err != nil {
				return err
			}
			defer svc.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runBackup(ctx, cmd, svc.backups)
		},
	})
	return cmd
}

func runBackup(ctx context.Context, cmd *cobra.Command, svc *backup.Service) error {
	summary, err := svc.BackupAll(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Backed up %d/%d repositories (%s) in %s\n",
		summary.Succeeded, summary.Total, backup.FormatSize(summary.Bytes), summary.Duration.Round(time.Second))
	for _, f := range summary.Failures {
		fmt.Fprintf(out, "  ❌ %s\n", f)
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d repositories failed", summary.Failed)
	}
	return nil
}
