package main

import (
	"testing"

	"github.com/icefetch/icefetch/internal/backup"
	rtest "github.com/icefetch/icefetch/internal/test"
)

func TestGroupFilter(t *testing.T) {
	rtest.Assert(t, newGroupFilter("") == nil, "empty selector must not filter")

	f := newGroupFilter("Camera")
	rtest.Assert(t, f(backup.AssetGroup{Domain: "CameraRollDomain"}), "matching domain rejected")
	rtest.Assert(t, !f(backup.AssetGroup{Domain: "HomeDomain"}), "non-matching domain accepted")
}

func TestAssetFilter(t *testing.T) {
	rtest.Assert(t, newAssetFilter(nil) == nil, "empty selector must not filter")

	f := newAssetFilter([]string{"jpg", ".PNG"})
	rtest.Assert(t, f(backup.Asset{Name: "Media/IMG_0001.JPG"}), "matching extension rejected")
	rtest.Assert(t, f(backup.Asset{Name: "Media/IMG_0002.png"}), "matching extension rejected")
	rtest.Assert(t, !f(backup.Asset{Name: "Library/notes.db"}), "non-matching extension accepted")
}

func TestSelectSnapshots(t *testing.T) {
	list := []backup.DeviceSnapshots{
		{
			Device:    backup.Device{ID: "dev1"},
			Snapshots: []backup.Snapshot{{ID: "s1"}, {ID: "s2"}},
		},
		{
			Device:    backup.Device{ID: "dev2"},
			Snapshots: []backup.Snapshot{{ID: "s3"}},
		},
	}

	got := selectSnapshots(list, "", "")
	rtest.Equals(t, 2, len(got))

	got = selectSnapshots(list, "dev1", "")
	rtest.Equals(t, 1, len(got))
	rtest.Equals(t, backup.DeviceID("dev1"), got[0].Device.ID)
	rtest.Equals(t, 2, len(got[0].Snapshots))

	got = selectSnapshots(list, "", "s2")
	rtest.Equals(t, 1, len(got))
	rtest.Equals(t, backup.SnapshotID("s2"), got[0].Snapshots[0].ID)

	got = selectSnapshots(list, "dev2", "s1")
	rtest.Equals(t, 0, len(got))
}
