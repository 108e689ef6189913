package blob

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// FSStore keeps blobs on the local filesystem, sharded by the first two hex
// characters of the hash to keep directory fan-out bounded.
type FSStore struct {
	basePath string
	log      *logrus.Entry
}

func NewFSStore(basePath string) (*FSStore, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create blob directory: %w", err)
	}
	return &FSStore{
		basePath: basePath,
		log:      logrus.WithField("component", "blobstore"),
	}, nil
}

func (s *FSStore) pathFor(hash string) string {
	return filepath.Join(s.basePath, hash[:2], hash)
}

// Save writes r to a temp file while hashing, then renames it into place.
// Identical content lands on the same path, so duplicate saves are no-ops.
func (s *FSStore) Save(ctx context.Context, r io.Reader) (string, int64, error) {
	if err := ctx.Err(); err != nil {
		return "", 0, err
	}

	tmpPath := filepath.Join(s.basePath, "tmp-"+uuid.NewString())
	tmp, err := os.Create(tmpPath)
	if err != nil {
		return "", 0, fmt.Errorf("create temp blob: %w", err)
	}

	hasher := sha256.New()
	size, err := io.Copy(io.MultiWriter(tmp, hasher), r)
	if err != nil {
		tmp.Close()
		if rmErr := os.Remove(tmpPath); rmErr != nil {
			s.log.WithError(rmErr).Warn("failed to clean up partial blob")
		}
		return "", 0, fmt.Errorf("write blob: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return "", 0, fmt.Errorf("close blob: %w", err)
	}

	hash := hex.EncodeToString(hasher.Sum(nil))
	final := s.pathFor(hash)
	if err := os.MkdirAll(filepath.Dir(final), 0o755); err != nil {
		os.Remove(tmpPath)
		return "", 0, fmt.Errorf("create blob shard: %w", err)
	}
	if err := os.Rename(tmpPath, final); err != nil {
		os.Remove(tmpPath)
		return "", 0, fmt.Errorf("finalize blob: %w", err)
	}
	return hash, size, nil
}

func (s *FSStore) Open(ctx context.Context, hash string) (ReadSeekCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(hash) < 2 {
		return nil, ErrNotFound
	}
	f, err := os.Open(s.pathFor(hash))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("open blob: %w", err)
	}
	return f, nil
}

func (s *FSStore) Remove(ctx context.Context, hash string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(hash) < 2 {
		return nil
	}
	if err := os.Remove(s.pathFor(hash)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove blob: %w", err)
	}
	return nil
}
