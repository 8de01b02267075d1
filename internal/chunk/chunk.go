// Package chunk defines the unit of retrieved backup content: an immutable
// blob of bytes identified by its checksum. The checksum is treated as an
// opaque byte sequence, identity never depends on the backing storage.
package chunk

import (
	"bytes"
	"encoding/hex"
	"io"
)

// Chunk is an immutable, checksum-addressed unit of binary content. A Chunk
// may be read by any number of goroutines concurrently, read operations do
// not share state.
type Chunk interface {
	// Checksum returns an independent copy of the chunk's checksum. Callers
	// may modify the returned slice freely.
	Checksum() []byte

	// Reader returns a fresh, independently positioned stream over the full
	// content. The caller is responsible for closing it.
	Reader() (io.ReadCloser, error)

	// CopyTo streams the full content to w and returns the number of bytes
	// written. Each call opens and closes its own handle on the backing
	// storage.
	CopyTo(w io.Writer) (int64, error)
}

// Key returns the identity key for c, derived solely from its checksum bytes.
// Two chunks with the same key are interchangeable regardless of how they are
// stored.
func Key(c Chunk) string {
	return string(c.Checksum())
}

// Equal reports whether a and b refer to the same content, comparing checksum
// bytes only.
func Equal(a, b Chunk) bool {
	return bytes.Equal(a.Checksum(), b.Checksum())
}

// FormatChecksum renders a checksum for logs and error messages.
func FormatChecksum(checksum []byte) string {
	return hex.EncodeToString(checksum)
}
