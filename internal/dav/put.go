package dav

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/Feuerhamster/memoria/internal/access"
	"github.com/Feuerhamster/memoria/internal/auth"
	"github.com/Feuerhamster/memoria/internal/store"
)

// Put replaces an existing resource in place or creates a new one at the
// target triple. 201 on create, 204 on update.
func (h *Handler) Put(w http.ResponseWriter, r *http.Request) {
	target, ok := parseWebDAVPath(r.URL.Path, webdavPrefix)
	if !ok || target.Depth() != 4 {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	entity, err := h.resolveEntity(r.Context(), target.Scope, target.Entity)
	if err != nil {
		h.respondResolveError(w, err)
		return
	}
	policy, err := mapPolicyFolder(target.Folder, entity.IsSpace())
	if err != nil {
		http.Error(w, "unknown policy folder", http.StatusBadRequest)
		return
	}

	caller := auth.CallerFromContext(r.Context())
	existing, err := h.store.Files.Find(r.Context(), entity.OwnerID, entity.SpaceID, policy, target.FileName)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		h.internalError(w, "failed to resolve resource", err)
		return
	}

	if existing != nil {
		h.updateFile(w, r, existing, caller)
		return
	}
	h.createFile(w, r, entity, policy, target.FileName, caller)
}

func (h *Handler) updateFile(w http.ResponseWriter, r *http.Request, file *store.FileResource, caller access.Caller) {
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

	oldHash := file.FileHash
	hash, size, err := h.saveBody(w, r)
	if err != nil {
		return
	}

	file.FileHash = hash
	file.SizeBytes = size
	file.ContentType = requestContentType(r)
	file.UploadedAt = time.Now().UTC()
	if err := h.store.Files.Update(r.Context(), *file); err != nil {
		h.internalError(w, "failed to update resource", err)
		return
	}
	if oldHash != hash {
		h.removeUnreferencedContent(r, oldHash)
	}

	w.Header().Set("ETag", fileETag(file))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) createFile(w http.ResponseWriter, r *http.Request, entity *EntityContext, policy store.AccessPolicy, fileName string, caller access.Caller) {
	allowed, err := h.canCreateIn(r.Context(), entity, caller)
	if err != nil {
		h.internalError(w, "access check failed", err)
		return
	}
	if !allowed {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	hash, size, err := h.saveBody(w, r)
	if err != nil {
		return
	}

	file := store.FileResource{
		ID:           uuid.New(),
		OwnerUserID:  caller.UserID,
		SpaceID:      entity.SpaceID,
		FileName:     fileName,
		FileHash:     hash,
		ContentType:  requestContentType(r),
		SizeBytes:    size,
		AccessPolicy: policy,
		UploadedAt:   time.Now().UTC(),
	}
	if err := h.store.Files.Insert(r.Context(), file); err != nil {
		if rmErr := h.blobs.Remove(r.Context(), hash); rmErr != nil {
			h.log.WithError(rmErr).Warn("failed to remove orphaned content")
		}
		h.internalError(w, "failed to create resource", err)
		return
	}

	w.Header().Set("ETag", fileETag(&file))
	w.WriteHeader(http.StatusCreated)
}

// saveBody streams the request body into the blob store, rejecting bodies
// over the DAV size limit with 413 before any resource is touched. On error
// the response has already been written.
func (h *Handler) saveBody(w http.ResponseWriter, r *http.Request) (hash string, size int64, err error) {
	hash, size, err = h.blobs.Save(r.Context(), http.MaxBytesReader(w, r.Body, maxDAVBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
			return "", 0, err
		}
		h.internalError(w, "failed to store content", err)
		return "", 0, err
	}
	return hash, size, nil
}

// canCreateIn gates resource creation: the user root belongs to its owner,
// space folders to space members.
func (h *Handler) canCreateIn(ctx context.Context, entity *EntityContext, caller access.Caller) (bool, error) {
	if !caller.IsAuthenticated {
		return false, nil
	}
	if entity.IsSpace() {
		return h.checker.IsSpaceMember(ctx, *entity.SpaceID, caller.UserID)
	}
	return entity.OwnerID == caller.UserID, nil
}

func requestContentType(r *http.Request) string {
	if ct := r.Header.Get("Content-Type"); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
