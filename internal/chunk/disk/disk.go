// Package disk implements file-backed chunks and the store that produces
// them.
package disk

import (
	"fmt"
	"io"
	"os"

	"github.com/icefetch/icefetch/internal/chunk"
	"github.com/icefetch/icefetch/internal/debug"
	"github.com/icefetch/icefetch/internal/errors"
)

// Chunk is a chunk whose bytes live in a file. The checksum is fixed at
// construction. The chunk does not own the file's lifecycle, deletion and
// retention are the store's responsibility.
type Chunk struct {
	checksum []byte
	path     string
}

// ensure statically that *Chunk implements chunk.Chunk.
var _ chunk.Chunk = &Chunk{}

// NewChunk returns a chunk backed by the file at path. The checksum is copied
// in, never aliased. It may be empty, but not nil.
func NewChunk(path string, checksum []byte) (*Chunk, error) {
	if path == "" {
		return nil, errors.New("disk chunk: no backing path")
	}
	if checksum == nil {
		return nil, errors.New("disk chunk: no checksum")
	}

	c := &Chunk{
		checksum: make([]byte, len(checksum)),
		path:     path,
	}
	copy(c.checksum, checksum)

	return c, nil
}

// Checksum returns an independent copy of the chunk's checksum.
func (c *Chunk) Checksum() []byte {
	checksum := make([]byte, len(c.checksum))
	copy(checksum, c.checksum)
	return checksum
}

// Path returns the backing file's location.
func (c *Chunk) Path() string {
	return c.path
}

// Reader opens the backing file and returns it. Every call returns a fresh,
// independently positioned stream, so concurrent readers need no
// coordination.
func (c *Chunk) Reader() (io.ReadCloser, error) {
	f, err := os.Open(c.path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return f, nil
}

// CopyTo streams the file's content to w and returns the number of bytes
// written. The read handle is opened and closed within the call, no handle is
// retained between calls.
func (c *Chunk) CopyTo(w io.Writer) (int64, error) {
	f, err := os.Open(c.path)
	if err != nil {
		return 0, errors.WithStack(err)
	}

	n, err := io.Copy(w, f)
	debug.Log("copied %v bytes of chunk %v", n, chunk.FormatChecksum(c.checksum))
	if err != nil {
		_ = f.Close()
		return n, errors.WithStack(err)
	}

	return n, errors.WithStack(f.Close())
}

func (c *Chunk) String() string {
	return fmt.Sprintf("<Chunk %s at %s>", chunk.FormatChecksum(c.checksum), c.path)
}
