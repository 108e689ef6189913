package dav

import (
	"errors"
	"net/http"

	"github.com/Feuerhamster/memoria/internal/auth"
	"github.com/Feuerhamster/memoria/internal/blob"
	"github.com/Feuerhamster/memoria/internal/store"
)

// Get streams file content with range support.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	target, ok := parseWebDAVPath(r.URL.Path, webdavPrefix)
	if !ok || target.Depth() != 4 {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	_, file, err := h.resolveFile(r.Context(), target)
	if err != nil {
		h.respondResolveError(w, err)
		return
	}

	etag := fileETag(file)
	if checkIfNoneMatch(r, etag) {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}

	caller := auth.CallerFromContext(r.Context())
	readable, err := h.checker.CanAccessFile(r.Context(), file, store.IntentRead, caller)
	if err != nil {
		h.internalError(w, "access check failed", err)
		return
	}
	if !readable {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	content, err := h.blobs.Open(r.Context(), file.FileHash)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			// Metadata without bytes means the stores diverged.
			h.log.WithField("file_id", file.ID).Error("blob missing for file")
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		h.internalError(w, "failed to open content", err)
		return
	}
	defer content.Close()

	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", file.ContentType)
	http.ServeContent(w, r, file.FileName, file.UploadedAt, content)
}

func (h *Handler) respondResolveError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, errUnknownPolicyFolder):
		http.Error(w, "unknown policy folder", http.StatusBadRequest)
	default:
		h.internalError(w, "failed to resolve resource", err)
	}
}
