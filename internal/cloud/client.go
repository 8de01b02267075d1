// Package cloud talks to the backup service's HTTP API. It implements the
// collaborator interfaces the downloader consumes: device and snapshot
// enumeration, asset manifests, asset detail lookup and content retrieval.
//
// Requests are retried with exponential backoff. That is this client's own
// policy, the download machinery itself never retries.
package cloud

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/icefetch/icefetch/internal/backup"
	"github.com/icefetch/icefetch/internal/debug"
	"github.com/icefetch/icefetch/internal/errors"

	"github.com/cenkalti/backoff/v4"
)

// Client is a backup service API client. It is safe for concurrent use.
type Client struct {
	base *url.URL
	http *http.Client

	// MaxRetries bounds the retry attempts per request.
	MaxRetries uint64
	// RetryDelay is the initial backoff interval.
	RetryDelay time.Duration
}

// ensure statically that *Client provides the downloader's collaborators.
var (
	_ backup.Session = &Client{}
	_ backup.Lister  = &Client{}
	_ backup.Fetcher = &Client{}
)

// NewClient returns a client for the service at baseURL.
func NewClient(baseURL string) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, errors.Wrap(err, "url.Parse")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errors.Errorf("invalid service URL %q", baseURL)
	}

	return &Client{
		base:       u,
		http:       http.DefaultClient,
		MaxRetries: 3,
		RetryDelay: 500 * time.Millisecond,
	}, nil
}

func (c *Client) url(parts ...string) string {
	return c.base.JoinPath(parts...).String()
}

func (c *Client) newBackoff(ctx context.Context) backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.RetryDelay
	return backoff.WithContext(backoff.WithMaxRetries(bo, c.MaxRetries), ctx)
}

// do runs one request against the API and decodes the JSON response into v.
// Server-side errors are retried, client-side errors are not.
func (c *Client) do(ctx context.Context, method, url string, body []byte, v interface{}) error {
	op := func() error {
		var rd io.Reader
		if body != nil {
			rd = bytes.NewReader(body)
		}

		req, err := http.NewRequestWithContext(ctx, method, url, rd)
		if err != nil {
			return backoff.Permanent(errors.Wrap(err, "NewRequest"))
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		res, err := c.http.Do(req)
		if err != nil {
			return errors.WithStack(err)
		}
		defer func() {
			_, _ = io.Copy(io.Discard, res.Body)
			_ = res.Body.Close()
		}()

		if err := responseError(res); err != nil {
			return err
		}

		if v == nil {
			return nil
		}
		return errors.Wrap(json.NewDecoder(res.Body).Decode(v), "Decode")
	}

	return backoff.Retry(op, c.newBackoff(ctx))
}

func responseError(res *http.Response) error {
	if res.StatusCode >= 200 && res.StatusCode < 300 {
		return nil
	}

	err := errors.Errorf("server returned %v for %v", res.Status, res.Request.URL)
	if res.StatusCode >= 500 {
		// worth another attempt
		return err
	}
	return backoff.Permanent(err)
}

func (c *Client) getJSON(ctx context.Context, v interface{}, parts ...string) error {
	return c.do(ctx, http.MethodGet, c.url(parts...), nil, v)
}

type deviceRecord struct {
	DeviceID    string   `json:"deviceID"`
	Name        string   `json:"name"`
	SnapshotIDs []string `json:"snapshotIDs"`
}

// Devices returns the devices with backups in the account.
func (c *Client) Devices(ctx context.Context) ([]backup.Device, error) {
	var records []deviceRecord
	if err := c.getJSON(ctx, &records, "devices"); err != nil {
		return nil, err
	}
	debug.Log("%d devices", len(records))

	devices := make([]backup.Device, len(records))
	for i, rec := range records {
		ids := make([]backup.SnapshotID, len(rec.SnapshotIDs))
		for j, id := range rec.SnapshotIDs {
			ids[j] = backup.SnapshotID(id)
		}
		devices[i] = backup.Device{
			ID:          backup.DeviceID(rec.DeviceID),
			Name:        rec.Name,
			SnapshotIDs: ids,
		}
	}
	return devices, nil
}

type snapshotRecord struct {
	SnapshotID string     `json:"snapshotID"`
	Date       *time.Time `json:"date,omitempty"`
	Modified   time.Time  `json:"modified"`
}

// Snapshots returns the snapshots recorded for device.
func (c *Client) Snapshots(ctx context.Context, device backup.Device) ([]backup.Snapshot, error) {
	var records []snapshotRecord
	if err := c.getJSON(ctx, &records, "devices", string(device.ID), "snapshots"); err != nil {
		return nil, err
	}
	debug.Log("device %v: %d snapshots", device.ID, len(records))

	snapshots := make([]backup.Snapshot, len(records))
	for i, rec := range records {
		snapshots[i] = backup.Snapshot{
			ID:       backup.SnapshotID(rec.SnapshotID),
			Date:     rec.Date,
			Modified: rec.Modified,
		}
	}
	return snapshots, nil
}

type assetIDRecord struct {
	AssetID string `json:"assetID"`
	Size    int64  `json:"size"`
}

type groupRecord struct {
	Domain string          `json:"domain"`
	Assets []assetIDRecord `json:"assets"`
}

// ListAssetGroups returns the snapshot's asset manifest, grouped by domain.
func (c *Client) ListAssetGroups(ctx context.Context, snapshot backup.Snapshot) ([]backup.AssetGroup, error) {
	var records []groupRecord
	if err := c.getJSON(ctx, &records, "snapshots", string(snapshot.ID), "manifest"); err != nil {
		return nil, err
	}

	groups := make([]backup.AssetGroup, len(records))
	for i, rec := range records {
		ids := make([]backup.AssetID, len(rec.Assets))
		for j, a := range rec.Assets {
			ids[j] = backup.AssetID{ID: a.AssetID, Size: a.Size}
		}
		groups[i] = backup.AssetGroup{Domain: rec.Domain, Assets: ids}
	}
	return groups, nil
}

type assetRecord struct {
	AssetID string `json:"assetID"`
	Size    int64  `json:"size"`
	Domain  string `json:"domain"`
	Name    string `json:"name"`
	Digest  string `json:"digest"`
}

// FetchAssets resolves asset IDs to full asset records.
func (c *Client) FetchAssets(ctx context.Context, ids []backup.AssetID) ([]backup.Asset, error) {
	req := struct {
		AssetIDs []string `json:"assetIDs"`
	}{
		AssetIDs: make([]string, len(ids)),
	}
	for i, id := range ids {
		req.AssetIDs[i] = id.ID
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Wrap(err, "Marshal")
	}

	var records []assetRecord
	if err := c.do(ctx, http.MethodPost, c.url("assets"), body, &records); err != nil {
		return nil, err
	}

	assets := make([]backup.Asset, len(records))
	for i, rec := range records {
		digest, err := hex.DecodeString(rec.Digest)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid digest for asset %v", rec.AssetID)
		}
		assets[i] = backup.Asset{
			ID:     backup.AssetID{ID: rec.AssetID, Size: rec.Size},
			Domain: rec.Domain,
			Name:   rec.Name,
			Digest: digest,
		}
	}
	return assets, nil
}

// Content streams one asset's bytes. The caller must close the returned
// reader. Content is not retried: the caller decides what a broken stream
// means for the batch it belongs to.
func (c *Client) Content(ctx context.Context, assetID string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url("assets", assetID, "content"), nil)
	if err != nil {
		return nil, errors.Wrap(err, "NewRequest")
	}

	res, err := c.http.Do(req)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, res.Body)
		_ = res.Body.Close()
		return nil, errors.Errorf("server returned %v for asset %v", res.Status, assetID)
	}

	return res.Body, nil
}
