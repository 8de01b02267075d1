package backup

import (
	"context"
	"path"
	"sort"
	"strings"

	"github.com/icefetch/icefetch/internal/debug"
)

// Session enumerates the account's backup structure. Failures are I/O errors
// from the transport and propagate unchanged. Session re-authorization is the
// implementation's concern, not the downloader's.
type Session interface {
	// Devices returns the devices with backups in the account. An account
	// without backups yields an empty slice, not an error.
	Devices(ctx context.Context) ([]Device, error)

	// Snapshots returns the snapshots recorded for a device, in enumeration
	// order.
	Snapshots(ctx context.Context, device Device) ([]Snapshot, error)
}

// Lister retrieves a snapshot's asset manifest, grouped by domain.
type Lister interface {
	ListAssetGroups(ctx context.Context, snapshot Snapshot) ([]AssetGroup, error)
}

// Fetcher resolves asset IDs to full asset records.
type Fetcher interface {
	FetchAssets(ctx context.Context, ids []AssetID) ([]Asset, error)
}

// Transferrer downloads the given assets' bytes into persistent storage and
// materializes them under subpath. Implementations may be called from
// multiple batch tasks concurrently.
type Transferrer interface {
	Transfer(ctx context.Context, assets []Asset, subpath string) error
}

// GroupFilter selects the asset groups (domains) to download.
type GroupFilter func(AssetGroup) bool

// AssetFilter selects individual assets after their details are known.
type AssetFilter func(Asset) bool

// Downloader retrieves snapshot contents. It batches a snapshot's asset list
// by size and fetches the batches concurrently.
type Downloader struct {
	session Session
	lister  Lister
	fetcher Fetcher
	trans   Transferrer

	// Threshold is the cumulative asset size at which a batch is closed.
	Threshold int64
	// Workers bounds the number of concurrently fetched batches.
	Workers uint
}

// NewDownloader constructs a Downloader with the default batch threshold and
// parallelism.
func NewDownloader(session Session, lister Lister, fetcher Fetcher, trans Transferrer) *Downloader {
	return &Downloader{
		session:   session,
		lister:    lister,
		fetcher:   fetcher,
		trans:     trans,
		Threshold: DefaultBatchSize,
		Workers:   DefaultWorkers,
	}
}

// Snapshots enumerates all devices and their snapshots.
func (d *Downloader) Snapshots(ctx context.Context) ([]DeviceSnapshots, error) {
	devices, err := d.session.Devices(ctx)
	if err != nil {
		return nil, err
	}
	debug.Log("device count: %d", len(devices))

	list := make([]DeviceSnapshots, 0, len(devices))
	for _, device := range devices {
		snapshots, err := d.session.Snapshots(ctx, device)
		if err != nil {
			return nil, err
		}
		debug.Log("device %v: %d snapshots", device.ID, len(snapshots))
		list = append(list, DeviceSnapshots{Device: device, Snapshots: snapshots})
	}

	return list, nil
}

// DownloadAll downloads every (device, snapshot) pair in list.
func (d *Downloader) DownloadAll(ctx context.Context, list []DeviceSnapshots, groupFilter GroupFilter, assetFilter AssetFilter) error {
	for _, ds := range list {
		for _, snapshot := range ds.Snapshots {
			if err := d.Download(ctx, ds.Device, snapshot, groupFilter, assetFilter); err != nil {
				return err
			}
		}
	}
	return nil
}

// Download retrieves one snapshot: the asset manifest is filtered by
// groupFilter, flattened, batched by size and handed to the dispatcher. Each
// batch task fetches the asset details, applies assetFilter and transfers the
// surviving assets into the snapshot's sub-path.
func (d *Downloader) Download(ctx context.Context, device Device, snapshot Snapshot, groupFilter GroupFilter, assetFilter AssetFilter) error {
	groups, err := d.lister.ListAssetGroups(ctx, snapshot)
	if err != nil {
		return err
	}
	debug.Log("asset group count: %d", len(groups))

	var ids []AssetID
	for _, group := range groups {
		if groupFilter != nil && !groupFilter(group) {
			continue
		}
		ids = append(ids, group.NonEmpty()...)
	}
	debug.Log("filtered asset count: %d", len(ids))

	subpath := SnapshotSubPath(device, snapshot)
	debug.Log("snapshot sub-path: %v", subpath)

	batches := Batch(ids, d.Threshold)

	return Dispatch(ctx, batches, d.Workers, func(ctx context.Context, batch []AssetID) error {
		return d.downloadBatch(ctx, batch, assetFilter, subpath)
	})
}

func (d *Downloader) downloadBatch(ctx context.Context, batch []AssetID, assetFilter AssetFilter, subpath string) error {
	assets, err := d.fetcher.FetchAssets(ctx, batch)
	if err != nil {
		return err
	}

	if assetFilter != nil {
		filtered := assets[:0]
		for _, asset := range assets {
			if assetFilter(asset) {
				filtered = append(filtered, asset)
			}
		}
		assets = filtered
	}
	debug.Log("batch: %d assets after filtering", len(assets))

	return d.trans.Transfer(ctx, assets, subpath)
}

// DomainInfo summarizes one asset group of a snapshot.
type DomainInfo struct {
	Domain string
	Files  int
	Bytes  int64
}

// Domains returns the snapshot's asset groups as sorted summaries.
func (d *Downloader) Domains(ctx context.Context, snapshot Snapshot) ([]DomainInfo, error) {
	groups, err := d.lister.ListAssetGroups(ctx, snapshot)
	if err != nil {
		return nil, err
	}

	infos := make([]DomainInfo, 0, len(groups))
	for _, group := range groups {
		infos = append(infos, DomainInfo{
			Domain: group.Domain,
			Files:  len(group.Assets),
			Bytes:  group.Bytes(),
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Domain < infos[j].Domain })

	return infos, nil
}

// SnapshotSubPath is the deterministic output location for a snapshot's
// files: the upper-case device ID joined with the snapshot timestamp's UTC
// date in basic ISO form (yyyymmdd).
func SnapshotSubPath(device Device, snapshot Snapshot) string {
	if !device.HasSnapshot(snapshot.ID) {
		debug.Log("snapshot %v not found in device %v", snapshot.ID, device.ID)
	}

	date := snapshot.Timestamp().UTC().Format("20060102")
	return path.Join(strings.ToUpper(string(device.ID)), date)
}
