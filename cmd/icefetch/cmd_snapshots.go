package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/icefetch/icefetch/internal/backup"
)

var cmdSnapshots = &cobra.Command{
	Use:   "snapshots",
	Short: "List devices and their snapshots",
	Long: `
The "snapshots" command lists the devices with backups in the account and the
snapshots recorded for each of them.

EXIT STATUS
===========

Exit status is 0 if the command was successful.
Exit status is 1 if there was any error.
`,
	DisableAutoGenTag: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSnapshots(cmd.Context(), globalOptions)
	},
}

func init() {
	cmdRoot.AddCommand(cmdSnapshots)
}

func runSnapshots(ctx context.Context, gopts GlobalOptions) error {
	client, err := newClient(gopts)
	if err != nil {
		return err
	}

	d := backup.NewDownloader(client, client, client, nil)
	list, err := d.Snapshots(ctx)
	if err != nil {
		return err
	}

	if len(list) == 0 {
		Printf("no backups found\n")
		return nil
	}

	for _, ds := range list {
		Printf("device %v (%v)\n", ds.Device.ID, ds.Device.Name)
		for _, sn := range ds.Snapshots {
			Printf("  %-12v %v\n", sn.ID, sn.Timestamp().UTC().Format(TimeFormat))
		}
		Printf("\n")
	}

	return nil
}
