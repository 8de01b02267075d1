// Package backup holds the snapshot download machinery: the domain model for
// devices, snapshots and assets, the size-bounded batcher, the bounded
// parallel dispatcher and the downloader that ties them to the cloud
// collaborators.
package backup

import "fmt"

// AssetID is an opaque reference to one backed-up file awaiting retrieval.
// Size is the file's content length in bytes and is used only as the
// batching weight.
type AssetID struct {
	ID   string
	Size int64
}

func (id AssetID) String() string {
	return fmt.Sprintf("<AssetID %s %d>", id.ID, id.Size)
}

// Asset is the full record for one backed-up file, as returned by the
// per-item detail fetch.
type Asset struct {
	ID     AssetID
	Domain string
	// Name is the file's path relative to its domain.
	Name string
	// Digest is the declared checksum of the file content.
	Digest []byte
}

func (a Asset) String() string {
	return fmt.Sprintf("<Asset %s %s/%s>", a.ID.ID, a.Domain, a.Name)
}

// AssetGroup is one domain's worth of asset references within a snapshot.
type AssetGroup struct {
	Domain string
	Assets []AssetID
}

// NonEmpty returns the group's asset IDs without zero-length entries.
// TODO handle empty assets at some point
func (g AssetGroup) NonEmpty() []AssetID {
	ids := make([]AssetID, 0, len(g.Assets))
	for _, id := range g.Assets {
		if id.Size > 0 {
			ids = append(ids, id)
		}
	}
	return ids
}

// Bytes returns the cumulative size of all assets in the group.
func (g AssetGroup) Bytes() int64 {
	var sum int64
	for _, id := range g.Assets {
		sum += id.Size
	}
	return sum
}
