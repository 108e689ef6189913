package dav

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Feuerhamster/memoria/internal/store"
)

// quoteETag wraps a raw hash in the double quotes the wire format requires.
func quoteETag(hash string) string {
	return `"` + hash + `"`
}

// fileETag derives the wire ETag from a file's content hash.
func fileETag(f *store.FileResource) string {
	return quoteETag(f.FileHash)
}

// calendarETag derives the wire ETag from entry metadata only. Sequence and
// last-modified change on every successful mutation, so convergent edits
// still produce distinct tags.
func calendarETag(id uuid.UUID, sequence int, lastModified time.Time) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s-%d-%d", id, sequence, lastModified.UTC().UnixNano())))
	return quoteETag(hex.EncodeToString(sum[:]))
}

// checkIfMatch evaluates the If-Match header for mutating verbs. Returns
// false when the header is present and matches neither "*" nor the current
// ETag; callers respond 412.
func checkIfMatch(r *http.Request, currentETag string) bool {
	header := strings.TrimSpace(r.Header.Get("If-Match"))
	if header == "" {
		return true
	}
	if header == "*" {
		return true
	}
	for _, candidate := range splitETagList(header) {
		if candidate == currentETag {
			return true
		}
	}
	return false
}

// checkIfNoneMatch evaluates If-None-Match for GET. Returns true when the
// client's cached copy is still current; callers respond 304.
func checkIfNoneMatch(r *http.Request, currentETag string) bool {
	header := strings.TrimSpace(r.Header.Get("If-None-Match"))
	if header == "" {
		return false
	}
	if header == "*" {
		return true
	}
	for _, candidate := range splitETagList(header) {
		if candidate == currentETag {
			return true
		}
	}
	return false
}

func splitETagList(header string) []string {
	parts := strings.Split(header, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		// Weak validators compare equal to their strong form here; content
		// hashes make byte-equality the only meaningful comparison.
		p = strings.TrimSpace(p)
		p = strings.TrimPrefix(p, "W/")
		if p != "" {
			tags = append(tags, p)
		}
	}
	return tags
}
