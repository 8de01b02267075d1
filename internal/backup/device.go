package backup

import "fmt"

// DeviceID is the hex-encoded hardware hash identifying a device.
type DeviceID string

func (id DeviceID) String() string {
	return string(id)
}

// Str returns a shortened form for logs.
func (id DeviceID) Str() string {
	if len(id) <= 8 {
		return string(id)
	}
	return string(id[:8])
}

// Device is one device with backups in the account.
type Device struct {
	ID          DeviceID
	Name        string
	SnapshotIDs []SnapshotID
}

// HasSnapshot reports whether id is one of the device's snapshots.
func (d Device) HasSnapshot(id SnapshotID) bool {
	for _, sid := range d.SnapshotIDs {
		if sid == id {
			return true
		}
	}
	return false
}

func (d Device) String() string {
	return fmt.Sprintf("<Device %s %q, %d snapshots>", d.ID.Str(), d.Name, len(d.SnapshotIDs))
}
