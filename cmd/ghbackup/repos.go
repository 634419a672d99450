package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func newReposCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repos",
		Short: "Manage tracked repositories",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "sync",
		Short: "Import repositories visible to the configured token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := openServices(flags)
			if err != nil {
				return err
			}
			defer svc.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
			defer cancel()

			added, err := svc.backups.SyncRepositories(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Successfully synced %d new repositories.\n", added)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List tracked repositories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := openServices(flags)
			if err != nil {
				return err
			}
			defer svc.Close()

			repos, err := svc.store.Repos.List(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tREPOSITORY\tBACKUP\tLAST BACKUP")
			for _, r := range repos {
				state := "disabled"
				if r.Enabled {
					state = "enabled"
				}
				last := "never"
				if r.LastBackup != nil {
					last = r.LastBackup.Local().Format("2006-01-02 15:04")
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", r.ID, r.FullName, state, last)
			}
			return w.Flush()
		},
	})
	return cmd
}
