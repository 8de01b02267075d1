package backup_test

import (
	"context"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/icefetch/icefetch/internal/backup"
	"github.com/icefetch/icefetch/internal/errors"
	"github.com/icefetch/icefetch/internal/mock"
	rtest "github.com/icefetch/icefetch/internal/test"

	"github.com/google/go-cmp/cmp"
)

var testDevice = backup.Device{
	ID:          backup.DeviceID("8e14c3de09f1b5a4"),
	Name:        "test device",
	SnapshotIDs: []backup.SnapshotID{"snap1"},
}

var testSnapshot = backup.Snapshot{
	ID:       "snap1",
	Modified: time.Date(2016, 4, 2, 11, 30, 0, 0, time.UTC),
}

func testGroups() []backup.AssetGroup {
	return []backup.AssetGroup{
		{
			Domain: "HomeDomain",
			Assets: []backup.AssetID{{ID: "h1", Size: 10}, {ID: "h2", Size: 0}, {ID: "h3", Size: 30}},
		},
		{
			Domain: "CameraRollDomain",
			Assets: []backup.AssetID{{ID: "c1", Size: 25}, {ID: "c2", Size: 5}},
		},
		{
			Domain: "MediaDomain",
			Assets: nil,
		},
	}
}

func testDownloader(lister backup.Lister, fetcher backup.Fetcher, trans backup.Transferrer) *backup.Downloader {
	d := backup.NewDownloader(nil, lister, fetcher, trans)
	d.Threshold = 30
	d.Workers = 2
	return d
}

func TestDownload(t *testing.T) {
	lister := &mock.Lister{
		ListAssetGroupsFn: func(ctx context.Context, snapshot backup.Snapshot) ([]backup.AssetGroup, error) {
			rtest.Equals(t, testSnapshot.ID, snapshot.ID)
			return testGroups(), nil
		},
	}
	fetcher := &mock.Fetcher{
		FetchAssetsFn: func(ctx context.Context, ids []backup.AssetID) ([]backup.Asset, error) {
			assets := make([]backup.Asset, len(ids))
			for i, id := range ids {
				assets[i] = backup.Asset{ID: id, Domain: "d", Name: id.ID}
			}
			return assets, nil
		},
	}

	var mu sync.Mutex
	var transferred []string
	var subpaths []string
	trans := &mock.Transferrer{
		TransferFn: func(ctx context.Context, assets []backup.Asset, subpath string) error {
			mu.Lock()
			defer mu.Unlock()
			for _, asset := range assets {
				transferred = append(transferred, asset.ID.ID)
			}
			subpaths = append(subpaths, subpath)
			return nil
		},
	}

	d := testDownloader(lister, fetcher, trans)
	rtest.OK(t, d.Download(context.TODO(), testDevice, testSnapshot, nil, nil))

	// zero-size h2 is dropped when flattening, everything else arrives once
	sort.Strings(transferred)
	rtest.Equals(t, []string{"c1", "c2", "h1", "h3"}, transferred)

	for _, subpath := range subpaths {
		rtest.Equals(t, "8E14C3DE09F1B5A4/20160402", subpath)
	}
}

func TestDownloadFilters(t *testing.T) {
	lister := &mock.Lister{
		ListAssetGroupsFn: func(ctx context.Context, snapshot backup.Snapshot) ([]backup.AssetGroup, error) {
			return testGroups(), nil
		},
	}
	fetcher := &mock.Fetcher{
		FetchAssetsFn: func(ctx context.Context, ids []backup.AssetID) ([]backup.Asset, error) {
			assets := make([]backup.Asset, len(ids))
			for i, id := range ids {
				assets[i] = backup.Asset{ID: id, Domain: "HomeDomain", Name: id.ID + ".jpg"}
			}
			return assets, nil
		},
	}

	var mu sync.Mutex
	var transferred []string
	trans := &mock.Transferrer{
		TransferFn: func(ctx context.Context, assets []backup.Asset, subpath string) error {
			mu.Lock()
			defer mu.Unlock()
			for _, asset := range assets {
				transferred = append(transferred, asset.ID.ID)
			}
			return nil
		},
	}

	groupFilter := func(g backup.AssetGroup) bool { return g.Domain == "HomeDomain" }
	assetFilter := func(a backup.Asset) bool { return a.ID.ID != "h3" }

	d := testDownloader(lister, fetcher, trans)
	rtest.OK(t, d.Download(context.TODO(), testDevice, testSnapshot, groupFilter, assetFilter))

	sort.Strings(transferred)
	rtest.Equals(t, []string{"h1"}, transferred)
}

func TestDownloadListError(t *testing.T) {
	errList := errors.New("listing failed")
	lister := &mock.Lister{
		ListAssetGroupsFn: func(ctx context.Context, snapshot backup.Snapshot) ([]backup.AssetGroup, error) {
			return nil, errList
		},
	}

	d := testDownloader(lister, &mock.Fetcher{}, &mock.Transferrer{})
	err := d.Download(context.TODO(), testDevice, testSnapshot, nil, nil)
	rtest.Assert(t, errors.Is(err, errList), "expected %v, got %v", errList, err)
}

func TestDownloadTransferError(t *testing.T) {
	errTransfer := errors.New("transfer failed")

	lister := &mock.Lister{
		ListAssetGroupsFn: func(ctx context.Context, snapshot backup.Snapshot) ([]backup.AssetGroup, error) {
			return testGroups(), nil
		},
	}
	fetcher := &mock.Fetcher{
		FetchAssetsFn: func(ctx context.Context, ids []backup.AssetID) ([]backup.Asset, error) {
			assets := make([]backup.Asset, len(ids))
			for i, id := range ids {
				assets[i] = backup.Asset{ID: id}
			}
			return assets, nil
		},
	}
	trans := &mock.Transferrer{
		TransferFn: func(ctx context.Context, assets []backup.Asset, subpath string) error {
			return errTransfer
		},
	}

	d := testDownloader(lister, fetcher, trans)
	err := d.Download(context.TODO(), testDevice, testSnapshot, nil, nil)
	rtest.Assert(t, errors.Is(err, errTransfer), "expected %v, got %v", errTransfer, err)
}

func TestSnapshots(t *testing.T) {
	session := &mock.Session{
		DevicesFn: func(ctx context.Context) ([]backup.Device, error) {
			return []backup.Device{testDevice}, nil
		},
		SnapshotsFn: func(ctx context.Context, device backup.Device) ([]backup.Snapshot, error) {
			rtest.Equals(t, testDevice.ID, device.ID)
			return []backup.Snapshot{testSnapshot}, nil
		},
	}

	d := backup.NewDownloader(session, nil, nil, nil)
	list, err := d.Snapshots(context.TODO())
	rtest.OK(t, err)

	rtest.Equals(t, 1, len(list))
	rtest.Equals(t, testDevice.ID, list[0].Device.ID)
	rtest.Equals(t, []backup.Snapshot{testSnapshot}, list[0].Snapshots)
}

func TestDomains(t *testing.T) {
	lister := &mock.Lister{
		ListAssetGroupsFn: func(ctx context.Context, snapshot backup.Snapshot) ([]backup.AssetGroup, error) {
			return testGroups(), nil
		},
	}

	d := backup.NewDownloader(nil, lister, nil, nil)
	infos, err := d.Domains(context.TODO(), testSnapshot)
	rtest.OK(t, err)

	want := []backup.DomainInfo{
		{Domain: "CameraRollDomain", Files: 2, Bytes: 30},
		{Domain: "HomeDomain", Files: 3, Bytes: 40},
		{Domain: "MediaDomain", Files: 0, Bytes: 0},
	}
	if diff := cmp.Diff(want, infos); diff != "" {
		t.Fatalf("wrong domain list (-want +got):\n%s", diff)
	}
}

func TestSnapshotSubPath(t *testing.T) {
	date := time.Date(2015, 12, 31, 23, 59, 59, 0, time.UTC)

	tests := []struct {
		snapshot backup.Snapshot
		want     string
	}{
		{
			// explicit snapshot date wins
			snapshot: backup.Snapshot{ID: "snap1", Date: &date, Modified: testSnapshot.Modified},
			want:     "8E14C3DE09F1B5A4/20151231",
		},
		{
			// fall back to the modification time
			snapshot: testSnapshot,
			want:     "8E14C3DE09F1B5A4/20160402",
		},
	}

	for _, test := range tests {
		got := backup.SnapshotSubPath(testDevice, test.snapshot)
		rtest.Equals(t, test.want, got)

		rtest.Assert(t, got == strings.ToUpper(got), "sub-path %q is not upper case", got)
	}
}
