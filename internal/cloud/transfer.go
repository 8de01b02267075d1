package cloud

import (
	"context"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/icefetch/icefetch/internal/backup"
	"github.com/icefetch/icefetch/internal/chunk"
	"github.com/icefetch/icefetch/internal/chunk/cache"
	"github.com/icefetch/icefetch/internal/chunk/disk"
	"github.com/icefetch/icefetch/internal/debug"
	"github.com/icefetch/icefetch/internal/errors"
)

const (
	// payload cache capacity
	cacheSize = 32 << 20
	// payloads up to this size go through the cache
	maxCachedBlob = 1 << 20
)

// Transfer downloads asset contents into a chunk store and materializes the
// files below a target directory. It implements backup.Transferrer and may be
// called from several batch tasks at once.
type Transfer struct {
	client *Client
	store  *disk.Store
	cache  *cache.Cache
	target string
}

var _ backup.Transferrer = &Transfer{}

// NewTransfer returns a Transfer writing files below target, keeping chunks
// in store.
func NewTransfer(client *Client, store *disk.Store, target string) *Transfer {
	return &Transfer{
		client: client,
		store:  store,
		cache:  cache.New(cacheSize),
		target: target,
	}
}

// Transfer retrieves the given assets and writes them below
// target/subpath/domain/name. Content already present in the chunk store is
// not downloaded again.
func (t *Transfer) Transfer(ctx context.Context, assets []backup.Asset, subpath string) error {
	for _, asset := range assets {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := t.transferAsset(ctx, asset, subpath); err != nil {
			return err
		}
	}
	return nil
}

func (t *Transfer) transferAsset(ctx context.Context, asset backup.Asset, subpath string) error {
	out, err := t.targetPath(asset, subpath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(out), 0700); err != nil {
		return errors.WithStack(err)
	}

	key := string(asset.Digest)
	if blob, ok := t.cache.Get(key); ok {
		debug.Log("cache hit for %v", asset)
		return errors.WithStack(os.WriteFile(out, blob, 0600))
	}

	ck, ok := t.store.Chunk(asset.Digest)
	if !ok {
		ck, err = t.fetchChunk(ctx, asset)
		if err != nil {
			return err
		}
	} else {
		debug.Log("chunk for %v already stored", asset)
	}

	if asset.ID.Size <= maxCachedBlob {
		blob, err := readChunk(ck)
		if err != nil {
			return err
		}
		t.cache.Add(key, blob)
		return errors.WithStack(os.WriteFile(out, blob, 0600))
	}

	return writeChunk(ck, out)
}

func (t *Transfer) fetchChunk(ctx context.Context, asset backup.Asset) (chunk.Chunk, error) {
	rd, err := t.client.Content(ctx, asset.ID.ID)
	if err != nil {
		return nil, err
	}

	ck, err := t.store.Save(asset.Digest, rd)
	cerr := rd.Close()
	if err != nil {
		return nil, err
	}
	return ck, errors.WithStack(cerr)
}

func readChunk(ck chunk.Chunk) ([]byte, error) {
	rd, err := ck.Reader()
	if err != nil {
		return nil, err
	}

	blob, err := io.ReadAll(rd)
	cerr := rd.Close()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return blob, errors.WithStack(cerr)
}

func writeChunk(ck chunk.Chunk, out string) error {
	f, err := os.Create(out)
	if err != nil {
		return errors.WithStack(err)
	}

	n, err := ck.CopyTo(f)
	cerr := f.Close()
	if err != nil {
		return err
	}
	debug.Log("wrote %v bytes to %v", n, out)
	return errors.WithStack(cerr)
}

// targetPath maps an asset to its output file. Domain and name are treated as
// untrusted: both are confined below the target directory.
func (t *Transfer) targetPath(asset backup.Asset, subpath string) (string, error) {
	if asset.Name == "" {
		return "", errors.Errorf("asset %v has no name", asset.ID.ID)
	}

	domain := path.Clean("/" + asset.Domain)
	name := path.Clean("/" + asset.Name)

	rel := filepath.FromSlash(path.Join(subpath, domain, name))
	return filepath.Join(t.target, rel), nil
}
