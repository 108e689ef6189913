package dav

import (
	"net/http"

	"github.com/Feuerhamster/memoria/internal/auth"
	"github.com/Feuerhamster/memoria/internal/store"
)

// Delete removes a resource and its content. 204 on success.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
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

	caller := auth.CallerFromContext(r.Context())
	writable, err := h.checker.CanAccessFile(r.Context(), file, store.IntentWrite, caller)
	if err != nil {
		h.internalError(w, "access check failed", err)
		return
	}
	if !writable {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	if !checkIfMatch(r, fileETag(file)) {
		http.Error(w, "precondition failed", http.StatusPreconditionFailed)
		return
	}
	if !h.locks.ValidateAccess(file.ID, caller.UserID, parseIfLockToken(r)) {
		http.Error(w, "resource is locked", http.StatusLocked)
		return
	}

	if err := h.deleteFile(r, file); err != nil {
		h.internalError(w, "failed to delete resource", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) deleteFile(r *http.Request, file *store.FileResource) error {
	if err := h.store.Files.Delete(r.Context(), file.ID); err != nil {
		return err
	}
	h.removeUnreferencedContent(r, file.FileHash)
	return nil
}

// removeUnreferencedContent drops content bytes once no metadata row points
// at them anymore. Blobs are content-addressed and shared across rows.
func (h *Handler) removeUnreferencedContent(r *http.Request, hash string) {
	refs, err := h.store.Files.CountByHash(r.Context(), hash)
	if err != nil {
		h.log.WithError(err).Warn("failed to count content references")
		return
	}
	if refs > 0 {
		return
	}
	if err := h.blobs.Remove(r.Context(), hash); err != nil {
		h.log.WithError(err).Warn("failed to remove unreferenced content")
	}
}
