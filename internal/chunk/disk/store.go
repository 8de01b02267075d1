package disk

import (
	"bytes"
	"encoding/hex"
	"hash"
	"io"
	"os"
	"path/filepath"
	"syscall"

	"github.com/icefetch/icefetch/internal/chunk"
	"github.com/icefetch/icefetch/internal/debug"
	"github.com/icefetch/icefetch/internal/errors"

	"github.com/cenkalti/backoff/v4"
)

// Store keeps chunks as files in a directory, one file per checksum. Writes
// go through a temporary file and are renamed into place, so a chunk file is
// either absent or complete. Saving a checksum that is already present is a
// no-op.
type Store struct {
	base string

	// hasher, if set, returns the hash function matching the store's
	// checksums. Save then verifies the payload against the declared
	// checksum before committing it.
	hasher func() hash.Hash
}

// NewStore opens or creates a chunk store in the directory base. hasher may
// be nil, in which case payloads are stored unverified.
func NewStore(base string, hasher func() hash.Hash) (*Store, error) {
	if base == "" {
		return nil, errors.New("chunk store: no base directory")
	}

	if err := os.MkdirAll(base, 0700); err != nil {
		return nil, errors.WithStack(err)
	}

	debug.Log("open chunk store at %v", base)
	return &Store{base: base, hasher: hasher}, nil
}

// Base returns the store's directory.
func (s *Store) Base() string {
	return s.base
}

func (s *Store) filename(checksum []byte) string {
	return filepath.Join(s.base, hex.EncodeToString(checksum))
}

// Chunk returns the stored chunk for checksum, if present.
func (s *Store) Chunk(checksum []byte) (chunk.Chunk, bool) {
	if len(checksum) == 0 {
		return nil, false
	}

	fn := s.filename(checksum)
	fi, err := os.Stat(fn)
	if err != nil || fi.IsDir() {
		return nil, false
	}

	c, err := NewChunk(fn, checksum)
	if err != nil {
		return nil, false
	}
	return c, true
}

// Save stores the bytes from rd under checksum and returns the resulting
// chunk. If the checksum is already present the payload is not read and the
// existing chunk is returned. With a hasher configured, a payload whose
// digest does not match checksum is rejected and nothing is committed.
func (s *Store) Save(checksum []byte, rd io.Reader) (c chunk.Chunk, err error) {
	if len(checksum) == 0 {
		return nil, errors.New("chunk store: empty checksum")
	}

	if existing, ok := s.Chunk(checksum); ok {
		debug.Log("chunk %v already stored", chunk.FormatChecksum(checksum))
		return existing, nil
	}

	defer func() {
		// mark non-retriable errors as such
		if errors.Is(err, syscall.ENOSPC) || os.IsPermission(err) {
			err = backoff.Permanent(err)
		}
	}()

	f, err := os.CreateTemp(s.base, "chunk-tmp-")
	if err != nil {
		return nil, errors.WithStack(err)
	}
	tmpname := f.Name()

	var h hash.Hash
	var w io.Writer = f
	if s.hasher != nil {
		h = s.hasher()
		w = io.MultiWriter(f, h)
	}

	n, err := io.Copy(w, rd)
	if err == nil {
		err = f.Sync()
	}
	cerr := f.Close()
	if err == nil {
		err = cerr
	}
	if err == nil && h != nil && !bytes.Equal(h.Sum(nil), checksum) {
		err = errors.Errorf("chunk store: digest mismatch for %v", chunk.FormatChecksum(checksum))
	}
	if err != nil {
		_ = os.Remove(tmpname)
		return nil, errors.WithStack(err)
	}

	fn := s.filename(checksum)
	if err := os.Rename(tmpname, fn); err != nil {
		_ = os.Remove(tmpname)
		return nil, errors.WithStack(err)
	}

	debug.Log("stored chunk %v (%v bytes)", chunk.FormatChecksum(checksum), n)
	return NewChunk(fn, checksum)
}
