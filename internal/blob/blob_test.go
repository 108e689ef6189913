package blob

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stores(t *testing.T) map[string]Store {
	t.Helper()
	fs, err := NewFSStore(t.TempDir())
	require.NoError(t, err)
	return map[string]Store{"fs": fs, "memory": NewMemoryStore()}
}

func TestSaveReturnsContentHash(t *testing.T) {
	content := "hello memoria"
	sum := sha256.Sum256([]byte(content))
	want := hex.EncodeToString(sum[:])

	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			hash, size, err := s.Save(context.Background(), strings.NewReader(content))
			require.NoError(t, err)
			assert.Equal(t, want, hash)
			assert.Equal(t, int64(len(content)), size)
		})
	}
}

func TestOpenRoundTripsAndSeeks(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			hash, _, err := s.Save(context.Background(), strings.NewReader("0123456789"))
			require.NoError(t, err)

			r, err := s.Open(context.Background(), hash)
			require.NoError(t, err)
			defer r.Close()

			_, err = r.Seek(5, io.SeekStart)
			require.NoError(t, err)
			rest, err := io.ReadAll(r)
			require.NoError(t, err)
			assert.Equal(t, "56789", string(rest))
		})
	}
}

func TestOpenUnknownHash(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.Open(context.Background(), "deadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeef")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestRemoveIsIdempotent(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			hash, _, err := s.Save(context.Background(), strings.NewReader("bytes"))
			require.NoError(t, err)
			require.NoError(t, s.Remove(context.Background(), hash))
			require.NoError(t, s.Remove(context.Background(), hash))

			_, err = s.Open(context.Background(), hash)
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}
