package backup

import (
	"fmt"
	"time"
)

// SnapshotID identifies one snapshot of a device.
type SnapshotID string

func (id SnapshotID) String() string {
	return string(id)
}

// Snapshot is the state of one device's backup at a point in time.
type Snapshot struct {
	ID SnapshotID
	// Date is the explicit snapshot date. Not all snapshots carry one.
	Date *time.Time
	// Modified is the snapshot record's modification time, used when Date
	// is absent.
	Modified time.Time
}

// Timestamp returns the snapshot's date, falling back to the modification
// time when no explicit date is recorded.
func (sn Snapshot) Timestamp() time.Time {
	if sn.Date != nil {
		return *sn.Date
	}
	return sn.Modified
}

func (sn Snapshot) String() string {
	return fmt.Sprintf("<Snapshot %s %s>", sn.ID, sn.Timestamp().UTC().Format(time.RFC3339))
}

// DeviceSnapshots pairs a device with its snapshots, in enumeration order.
type DeviceSnapshots struct {
	Device    Device
	Snapshots []Snapshot
}
