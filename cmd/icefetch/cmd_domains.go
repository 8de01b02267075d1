package main

import (
	"context"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/icefetch/icefetch/internal/backup"
)

var cmdDomains = &cobra.Command{
	Use:   "domains",
	Short: "List the domains of each snapshot",
	Long: `
The "domains" command prints the asset domains of each snapshot together with
the file count and cumulative size per domain. Use it to find suitable values
for the download command's --domain filter.

EXIT STATUS
===========

Exit status is 0 if the command was successful.
Exit status is 1 if there was any error.
`,
	DisableAutoGenTag: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDomains(cmd.Context(), domainsOptions, globalOptions)
	},
}

// DomainsOptions collects all options for the domains command.
type DomainsOptions struct {
	Device   string
	Snapshot string
}

var domainsOptions DomainsOptions

func init() {
	cmdRoot.AddCommand(cmdDomains)

	flags := cmdDomains.Flags()
	flags.StringVar(&domainsOptions.Device, "device", "", "only list snapshots of the device with this ID")
	flags.StringVar(&domainsOptions.Snapshot, "snapshot", "", "only list the snapshot with this ID")
}

func runDomains(ctx context.Context, opts DomainsOptions, gopts GlobalOptions) error {
	client, err := newClient(gopts)
	if err != nil {
		return err
	}

	d := backup.NewDownloader(client, client, client, nil)
	list, err := d.Snapshots(ctx)
	if err != nil {
		return err
	}
	list = selectSnapshots(list, opts.Device, opts.Snapshot)

	if len(list) == 0 {
		Printf("no backups found\n")
		return nil
	}

	for _, ds := range list {
		for _, sn := range ds.Snapshots {
			Printf("device %v (%v), snapshot %v\n", ds.Device.ID, ds.Device.Name, sn.ID)

			infos, err := d.Domains(ctx, sn)
			if err != nil {
				return err
			}

			for _, info := range infos {
				Printf("  %-40v %8d %10v\n", info.Domain, info.Files, humanize.Bytes(uint64(info.Bytes)))
			}
			Printf("\n")
		}
	}

	return nil
}

// selectSnapshots reduces list to the device and snapshot the user asked for.
// Empty selectors keep everything.
func selectSnapshots(list []backup.DeviceSnapshots, deviceID, snapshotID string) []backup.DeviceSnapshots {
	var out []backup.DeviceSnapshots
	for _, ds := range list {
		if deviceID != "" && string(ds.Device.ID) != deviceID {
			continue
		}

		snapshots := ds.Snapshots
		if snapshotID != "" {
			snapshots = nil
			for _, sn := range ds.Snapshots {
				if string(sn.ID) == snapshotID {
					snapshots = append(snapshots, sn)
				}
			}
		}
		if len(snapshots) == 0 {
			continue
		}

		out = append(out, backup.DeviceSnapshots{Device: ds.Device, Snapshots: snapshots})
	}
	return out
}
