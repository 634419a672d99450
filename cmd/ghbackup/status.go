package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/aatumaykin/ghbackup/internal/backup"
	"github.com/aatumaykin/ghbackup/internal/dashboard"
	"github.com/aatumaykin/ghbackup/internal/storage"
	"github.com/spf13/cobra"
)

func newStatusCmd(flags *globalFlags) *cobra.Command {
	var (
		watch bool
		limit int
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show running and recent backup jobs",
		Long: `Show running and recent backup jobs.
With --watch the table is reprinted on the dashboard refresh interval
until no job is running any more.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := openServices(flags)
			if err != nil {
				return err
			}
			defer svc.Close()

			page := &terminalPage{store: svc.store, out: cmd.OutOrStdout(), limit: limit}
			if err := page.Reload(cmd.Context()); err != nil {
				return err
			}
			if !watch {
				return nil
			}

			poller := &dashboard.Poller{
				Policy: dashboard.RefreshPolicy{
					Interval:      svc.cfg.UI.RefreshInterval(),
					IdleThreshold: svc.cfg.UI.IdleThreshold(),
				},
				Tracker: dashboard.NewIdleTracker(nil),
				Page:    page,
				View:    dashboard.ViewDashboard,
			}
			err = poller.Run(cmd.Context())
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "refresh until running jobs finish")
	cmd.Flags().IntVarP(&limit, "limit", "l", 10, "number of recent jobs to show")
	return cmd
}

// terminalPage renders job status to a terminal; it is always visible.
type terminalPage struct {
	store *storage.Store
	out   io.Writer
	limit int
}

func (p *terminalPage) Visible() bool { return true }

func (p *terminalPage) Running(ctx context.Context) (bool, error) {
	n, err := p.store.Jobs.CountRunning(ctx)
	return n > 0, err
}

func (p *terminalPage) Reload(ctx context.Context) error {
	running, err := p.store.Jobs.CountRunning(ctx)
	if err != nil {
		return err
	}
	jobs, err := p.store.Jobs.Recent(ctx, p.limit)
	if err != nil {
		return err
	}

	fmt.Fprintf(p.out, "Running jobs: %d\n", running)
	if last, err := p.store.Settings.GetTime(ctx, storage.SettingLastRun); err == nil {
		fmt.Fprintf(p.out, "Last run: %s\n", last.Local().Format("2006-01-02 15:04:05"))
	}
	w := tabwriter.NewWriter(p.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tREPOSITORY\tSTATUS\tSTARTED\tSIZE\tERROR")
	for _, j := range jobs {
		name := j.RepositoryName
		if name == "" {
			name = "(deleted)"
		}
		size := "-"
		if j.FileSize > 0 {
			size = backup.FormatSize(j.FileSize)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
			j.ID, name, j.Status, j.StartedAt.Local().Format("2006-01-02 15:04:05"), size, j.ErrorMessage)
	}
	return w.Flush()
}
