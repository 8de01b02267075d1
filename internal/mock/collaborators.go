// Package mock provides stub implementations of the backup collaborator
// interfaces for tests.
package mock

import (
	"context"

	"github.com/icefetch/icefetch/internal/backup"
	"github.com/icefetch/icefetch/internal/errors"
)

// Session implements backup.Session.
type Session struct {
	DevicesFn   func(ctx context.Context) ([]backup.Device, error)
	SnapshotsFn func(ctx context.Context, device backup.Device) ([]backup.Snapshot, error)
}

func (m *Session) Devices(ctx context.Context) ([]backup.Device, error) {
	if m.DevicesFn == nil {
		return nil, errors.New("not implemented")
	}
	return m.DevicesFn(ctx)
}

func (m *Session) Snapshots(ctx context.Context, device backup.Device) ([]backup.Snapshot, error) {
	if m.SnapshotsFn == nil {
		return nil, errors.New("not implemented")
	}
	return m.SnapshotsFn(ctx, device)
}

// Lister implements backup.Lister.
type Lister struct {
	ListAssetGroupsFn func(ctx context.Context, snapshot backup.Snapshot) ([]backup.AssetGroup, error)
}

func (m *Lister) ListAssetGroups(ctx context.Context, snapshot backup.Snapshot) ([]backup.AssetGroup, error) {
	if m.ListAssetGroupsFn == nil {
		return nil, errors.New("not implemented")
	}
	return m.ListAssetGroupsFn(ctx, snapshot)
}

// Fetcher implements backup.Fetcher.
type Fetcher struct {
	FetchAssetsFn func(ctx context.Context, ids []backup.AssetID) ([]backup.Asset, error)
}

func (m *Fetcher) FetchAssets(ctx context.Context, ids []backup.AssetID) ([]backup.Asset, error) {
	if m.FetchAssetsFn == nil {
		return nil, errors.New("not implemented")
	}
	return m.FetchAssetsFn(ctx, ids)
}

// Transferrer implements backup.Transferrer.
type Transferrer struct {
	TransferFn func(ctx context.Context, assets []backup.Asset, subpath string) error
}

func (m *Transferrer) Transfer(ctx context.Context, assets []backup.Asset, subpath string) error {
	if m.TransferFn == nil {
		return errors.New("not implemented")
	}
	return m.TransferFn(ctx, assets, subpath)
}
