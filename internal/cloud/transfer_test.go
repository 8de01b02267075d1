package cloud_test

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/icefetch/icefetch/internal/backup"
	"github.com/icefetch/icefetch/internal/chunk/disk"
	"github.com/icefetch/icefetch/internal/cloud"
	rtest "github.com/icefetch/icefetch/internal/test"

	"github.com/minio/sha256-simd"
)

func testAsset(id, domain, name string, data []byte) backup.Asset {
	digest := sha256.Sum256(data)
	return backup.Asset{
		ID:     backup.AssetID{ID: id, Size: int64(len(data))},
		Domain: domain,
		Name:   name,
		Digest: digest[:],
	}
}

func newTestTransfer(t testing.TB, contents map[string][]byte, requests *int32) (*cloud.Transfer, string) {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /assets/{id}/content", func(w http.ResponseWriter, r *http.Request) {
		if requests != nil {
			atomic.AddInt32(requests, 1)
		}
		data, ok := contents[r.PathValue("id")]
		if !ok {
			http.Error(w, "no such asset", http.StatusNotFound)
			return
		}
		_, _ = w.Write(data)
	})

	client := newTestClient(t, mux)

	store, err := disk.NewStore(filepath.Join(rtest.TempDir(t), "chunks"), sha256.New)
	rtest.OK(t, err)

	target := rtest.TempDir(t)
	return cloud.NewTransfer(client, store, target), target
}

func TestTransfer(t *testing.T) {
	data := rtest.Random(3, 4096)
	trans, target := newTestTransfer(t, map[string][]byte{"a1": data}, nil)

	asset := testAsset("a1", "HomeDomain", "Library/notes.db", data)
	rtest.OK(t, trans.Transfer(context.TODO(), []backup.Asset{asset}, "DEV/20160402"))

	got, err := os.ReadFile(filepath.Join(target, "DEV", "20160402", "HomeDomain", "Library", "notes.db"))
	rtest.OK(t, err)
	rtest.Equals(t, data, got)
}

func TestTransferDeduplicates(t *testing.T) {
	data := rtest.Random(5, 1024)
	var requests int32
	trans, target := newTestTransfer(t, map[string][]byte{"a1": data, "a2": data}, &requests)

	// two assets with identical content: the second must be served from the
	// store, not fetched again
	assets := []backup.Asset{
		testAsset("a1", "HomeDomain", "one.txt", data),
		testAsset("a2", "HomeDomain", "two.txt", data),
	}
	rtest.OK(t, trans.Transfer(context.TODO(), assets, "DEV/20160402"))

	rtest.Equals(t, int32(1), atomic.LoadInt32(&requests))

	for _, name := range []string{"one.txt", "two.txt"} {
		got, err := os.ReadFile(filepath.Join(target, "DEV", "20160402", "HomeDomain", name))
		rtest.OK(t, err)
		rtest.Equals(t, data, got)
	}
}

func TestTransferMissingAsset(t *testing.T) {
	trans, _ := newTestTransfer(t, nil, nil)

	asset := testAsset("gone", "HomeDomain", "gone.txt", []byte("gone"))
	err := trans.Transfer(context.TODO(), []backup.Asset{asset}, "DEV/20160402")
	rtest.Assert(t, err != nil, "expected error for missing content")
}

func TestTransferRejectsCorruptPayload(t *testing.T) {
	data := rtest.Random(9, 512)
	trans, target := newTestTransfer(t, map[string][]byte{"a1": []byte("tampered")}, nil)

	// declared digest is for data, but the server sends something else
	asset := testAsset("a1", "HomeDomain", "file.txt", data)
	err := trans.Transfer(context.TODO(), []backup.Asset{asset}, "DEV/20160402")
	rtest.Assert(t, err != nil, "expected digest mismatch error")

	_, err = os.Stat(filepath.Join(target, "DEV", "20160402", "HomeDomain", "file.txt"))
	rtest.Assert(t, os.IsNotExist(err), "corrupt payload was materialized")
}

func TestTransferConfinesPaths(t *testing.T) {
	data := []byte("escape attempt")
	trans, target := newTestTransfer(t, map[string][]byte{"a1": data}, nil)

	asset := testAsset("a1", "HomeDomain", "../../../../escape.txt", data)
	rtest.OK(t, trans.Transfer(context.TODO(), []backup.Asset{asset}, "DEV/20160402"))

	// the file must end up below the target directory
	_, err := os.Stat(filepath.Join(target, "DEV", "20160402", "HomeDomain", "escape.txt"))
	rtest.OK(t, err)
}
