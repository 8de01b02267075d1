package main

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/icefetch/icefetch/internal/backup"
	"github.com/icefetch/icefetch/internal/chunk/disk"
	"github.com/icefetch/icefetch/internal/cloud"
	"github.com/icefetch/icefetch/internal/errors"

	"github.com/minio/sha256-simd"
)

var cmdDownload = &cobra.Command{
	Use:   "download [flags]",
	Short: "Download snapshot contents",
	Long: `
The "download" command retrieves the files of the selected snapshots into the
target directory. Files are placed below <device ID>/<snapshot date>, their
raw content is kept in a checksum-addressed chunk store next to them.

The asset list is split into batches of --threshold cumulative bytes which are
fetched concurrently by --workers workers.

EXIT STATUS
===========

Exit status is 0 if the command was successful.
Exit status is 1 if there was any error.
`,
	DisableAutoGenTag: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDownload(cmd.Context(), downloadOptions, globalOptions)
	},
}

// DownloadOptions collects all options for the download command.
type DownloadOptions struct {
	Target     string
	ChunkDir   string
	Device     string
	Snapshot   string
	Domain     string
	Extensions []string
	Threshold  string
	Workers    uint
}

var downloadOptions DownloadOptions

func init() {
	cmdRoot.AddCommand(cmdDownload)

	flags := cmdDownload.Flags()
	flags.StringVarP(&downloadOptions.Target, "target", "t", "", "directory to download files to")
	flags.StringVar(&downloadOptions.ChunkDir, "chunk-dir", "", "directory for the chunk store (default: <target>/chunks)")
	flags.StringVar(&downloadOptions.Device, "device", "", "only download snapshots of the device with this ID")
	flags.StringVar(&downloadOptions.Snapshot, "snapshot", "", "only download the snapshot with this ID")
	flags.StringVar(&downloadOptions.Domain, "domain", "", "only download domains containing this substring")
	flags.StringSliceVar(&downloadOptions.Extensions, "ext", nil, "only download files with these extensions")
	flags.StringVar(&downloadOptions.Threshold, "threshold", "32M", "cumulative batch size")
	flags.UintVar(&downloadOptions.Workers, "workers", backup.DefaultWorkers, "number of concurrent batch downloads")
}

func runDownload(ctx context.Context, opts DownloadOptions, gopts GlobalOptions) error {
	if opts.Target == "" {
		return errors.Fatal("Please specify a target directory (-t)")
	}

	threshold, err := humanize.ParseBytes(opts.Threshold)
	if err != nil {
		return errors.Fatalf("invalid threshold %q: %v", opts.Threshold, err)
	}

	client, err := newClient(gopts)
	if err != nil {
		return err
	}

	chunkDir := opts.ChunkDir
	if chunkDir == "" {
		chunkDir = filepath.Join(opts.Target, "chunks")
	}
	store, err := disk.NewStore(chunkDir, sha256.New)
	if err != nil {
		return err
	}

	trans := cloud.NewTransfer(client, store, opts.Target)

	d := backup.NewDownloader(client, client, client, trans)
	d.Threshold = int64(threshold)
	d.Workers = opts.Workers

	list, err := d.Snapshots(ctx)
	if err != nil {
		return err
	}
	list = selectSnapshots(list, opts.Device, opts.Snapshot)

	if len(list) == 0 {
		Printf("no backups found\n")
		return nil
	}

	groupFilter := newGroupFilter(opts.Domain)
	assetFilter := newAssetFilter(opts.Extensions)

	for _, ds := range list {
		for _, sn := range ds.Snapshots {
			Verbosef("downloading snapshot %v of device %v to %v\n",
				sn.ID, ds.Device.ID, filepath.Join(opts.Target, backup.SnapshotSubPath(ds.Device, sn)))

			if err := d.Download(ctx, ds.Device, sn, groupFilter, assetFilter); err != nil {
				return err
			}
		}
	}

	Verbosef("done\n")
	return nil
}

func newGroupFilter(domain string) backup.GroupFilter {
	if domain == "" {
		return nil
	}
	return func(g backup.AssetGroup) bool {
		return strings.Contains(g.Domain, domain)
	}
}

func newAssetFilter(extensions []string) backup.AssetFilter {
	if len(extensions) == 0 {
		return nil
	}
	return func(a backup.Asset) bool {
		name := strings.ToLower(a.Name)
		for _, ext := range extensions {
			if strings.HasSuffix(name, "."+strings.ToLower(strings.TrimPrefix(ext, "."))) {
				return true
			}
		}
		return false
	}
}
