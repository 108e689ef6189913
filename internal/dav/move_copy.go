package dav

import (
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/Feuerhamster/memoria/internal/auth"
	"github.com/Feuerhamster/memoria/internal/store"
)

// Move relocates a resource to a new triple. The owner id is preserved;
// only space, policy, and name change.
func (h *Handler) Move(w http.ResponseWriter, r *http.Request) {
	src, dst, ok := h.resolveMoveCopy(w, r, store.IntentWrite)
	if !ok {
		return
	}

	replaced, ok := h.clearDestination(w, r, dst)
	if !ok {
		return
	}

	file := *src.file
	file.SpaceID = dst.entity.SpaceID
	file.AccessPolicy = dst.policy
	file.FileName = dst.fileName
	file.UploadedAt = time.Now().UTC()
	if err := h.store.Files.Update(r.Context(), file); err != nil {
		h.internalError(w, "failed to move resource", err)
		return
	}

	writeMoveCopyStatus(w, replaced)
}

// Copy duplicates a resource at the destination triple. Content is shared
// by hash, so no bytes are moved.
func (h *Handler) Copy(w http.ResponseWriter, r *http.Request) {
	src, dst, ok := h.resolveMoveCopy(w, r, store.IntentRead)
	if !ok {
		return
	}

	replaced, ok := h.clearDestination(w, r, dst)
	if !ok {
		return
	}

	caller := auth.CallerFromContext(r.Context())
	file := store.FileResource{
		ID:           uuid.New(),
		OwnerUserID:  caller.UserID,
		SpaceID:      dst.entity.SpaceID,
		FileName:     dst.fileName,
		FileHash:     src.file.FileHash,
		ContentType:  src.file.ContentType,
		SizeBytes:    src.file.SizeBytes,
		AccessPolicy: dst.policy,
		UploadedAt:   time.Now().UTC(),
	}
	if err := h.store.Files.Insert(r.Context(), file); err != nil {
		h.internalError(w, "failed to copy resource", err)
		return
	}

	writeMoveCopyStatus(w, replaced)
}

type moveCopySource struct {
	entity *EntityContext
	file   *store.FileResource
}

type moveCopyDestination struct {
	entity   *EntityContext
	policy   store.AccessPolicy
	fileName string
}

// resolveMoveCopy resolves the source and destination triples and runs the
// shared access checks. On failure it has already written the response.
func (h *Handler) resolveMoveCopy(w http.ResponseWriter, r *http.Request, sourceIntent store.AccessIntent) (moveCopySource, moveCopyDestination, bool) {
	var (
		src moveCopySource
		dst moveCopyDestination
	)

	target, ok := parseWebDAVPath(r.URL.Path, webdavPrefix)
	if !ok || target.Depth() != 4 {
		http.Error(w, "not found", http.StatusNotFound)
		return src, dst, false
	}

	entity, file, err := h.resolveFile(r.Context(), target)
	if err != nil {
		h.respondResolveError(w, err)
		return src, dst, false
	}
	src = moveCopySource{entity: entity, file: file}

	caller := auth.CallerFromContext(r.Context())
	allowed, err := h.checker.CanAccessFile(r.Context(), file, sourceIntent, caller)
	if err != nil {
		h.internalError(w, "access check failed", err)
		return src, dst, false
	}
	if !allowed {
		http.Error(w, "forbidden", http.StatusForbidden)
		return src, dst, false
	}

	destTarget, ok := parseDestinationHeader(r.Header.Get("Destination"))
	if !ok {
		http.Error(w, "invalid destination", http.StatusBadRequest)
		return src, dst, false
	}

	destEntity, err := h.resolveEntity(r.Context(), destTarget.Scope, destTarget.Entity)
	if err != nil {
		h.respondResolveError(w, err)
		return src, dst, false
	}
	destPolicy, err := mapPolicyFolder(destTarget.Folder, destEntity.IsSpace())
	if err != nil {
		http.Error(w, "unknown policy folder", http.StatusBadRequest)
		return src, dst, false
	}
	dst = moveCopyDestination{entity: destEntity, policy: destPolicy, fileName: destTarget.FileName}

	canWrite, err := h.canCreateIn(r.Context(), destEntity, caller)
	if err != nil {
		h.internalError(w, "access check failed", err)
		return src, dst, false
	}
	if !canWrite {
		http.Error(w, "forbidden", http.StatusForbidden)
		return src, dst, false
	}
	return src, dst, true
}

// clearDestination removes an existing destination resource, honouring the
// Overwrite header. Returns whether a resource was replaced.
func (h *Handler) clearDestination(w http.ResponseWriter, r *http.Request, dst moveCopyDestination) (bool, bool) {
	existing, err := h.store.Files.Find(r.Context(), dst.entity.OwnerID, dst.entity.SpaceID, dst.policy, dst.fileName)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, true
		}
		h.internalError(w, "failed to resolve destination", err)
		return false, false
	}

	if r.Header.Get("Overwrite") == "F" {
		http.Error(w, "destination exists", http.StatusPreconditionFailed)
		return false, false
	}
	if err := h.deleteFile(r, existing); err != nil {
		h.internalError(w, "failed to replace destination", err)
		return false, false
	}
	return true, true
}

func writeMoveCopyStatus(w http.ResponseWriter, replaced bool) {
	if replaced {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

// parseDestinationHeader extracts the target triple from a Destination
// header, which may be an absolute URL or an absolute path.
func parseDestinationHeader(header string) (webdavPath, bool) {
	if header == "" {
		return webdavPath{}, false
	}
	u, err := url.Parse(header)
	if err != nil {
		return webdavPath{}, false
	}
	target, ok := parseWebDAVPath(u.Path, webdavPrefix)
	if !ok || target.Depth() != 4 {
		return webdavPath{}, false
	}
	return target, true
}
