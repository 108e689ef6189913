// Package blob stores file content addressed by its SHA-256 hash. Metadata
// rows keep the hash; the blob store only ever sees bytes.
package blob

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound indicates no content exists for the given hash.
var ErrNotFound = errors.New("blob: content not found")

// ReadSeekCloser combines the reader capabilities needed for HTTP range
// serving with Close.
type ReadSeekCloser interface {
	io.ReadSeeker
	io.Closer
}

// Store persists and retrieves content blobs by hash.
type Store interface {
	// Save streams r to storage, hashing while writing, and returns the
	// lowercase hex SHA-256 digest and the byte count. Partially written
	// content is removed on failure.
	Save(ctx context.Context, r io.Reader) (hash string, size int64, err error)

	// Open returns a seekable reader over the content for hash.
	Open(ctx context.Context, hash string) (ReadSeekCloser, error)

	// Remove deletes the content for hash. Removing absent content is not
	// an error.
	Remove(ctx context.Context, hash string) error
}
