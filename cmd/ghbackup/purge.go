package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func newPurgeCmd(flags *globalFlags) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete every record and archive",
		Long: `Permanently delete the configuration, repositories, jobs and settings,
and every archive in the backup directory.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("refusing to purge without --yes")
			}

			svc, err := openServices(flags)
			if err != nil {
				return err
			}
			defer svc.Close()

			path, err := svc.backups.Purge(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "All system data has been permanently purged (%s).\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the purge")
	return cmd
}
