package dav

import (
	"encoding/xml"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Feuerhamster/memoria/internal/auth"
	"github.com/Feuerhamster/memoria/internal/locks"
	"github.com/Feuerhamster/memoria/internal/store"
)

// Lock acquires or refreshes a WebDAV lock on a file. A request carrying a
// known token in the If header and no body refreshes that lock instead of
// creating a new one.
func (h *Handler) Lock(w http.ResponseWriter, r *http.Request) {
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

	timeout := parseLockTimeout(r.Header.Get("Timeout"))

	body, err := readDAVBody(r)
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	if len(strings.TrimSpace(string(body))) == 0 {
		if token := parseIfLockToken(r); token != "" {
			h.refreshLock(w, file, token, timeout)
			return
		}
		http.Error(w, "missing lock body", http.StatusBadRequest)
		return
	}

	var req lockRequest
	if err := safeUnmarshalXML(body, &req); err != nil {
		http.Error(w, "malformed lock body", http.StatusBadRequest)
		return
	}

	scope := locks.ScopeExclusive
	if req.Scope.Shared != nil {
		scope = locks.ScopeShared
	}
	ownerInfo := ""
	if req.Owner != nil {
		ownerInfo = strings.TrimSpace(req.Owner.Text)
	}
	depth := strings.TrimSpace(r.Header.Get("Depth"))
	if depth == "" {
		depth = "0"
	}

	lock, err := h.locks.Create(file.ID, caller.UserID, ownerInfo, scope, depth, timeout)
	if err != nil {
		http.Error(w, "resource is locked", http.StatusLocked)
		return
	}

	w.Header().Set("Lock-Token", "<"+lock.Token+">")
	writeLockResponse(w, http.StatusOK, lock)
}

func (h *Handler) refreshLock(w http.ResponseWriter, file *store.FileResource, token string, timeout *time.Duration) {
	lock, ok := h.locks.GetByToken(token)
	if !ok || lock.FileID != file.ID {
		http.Error(w, "lock token does not match resource", http.StatusConflict)
		return
	}
	refreshed, err := h.locks.Refresh(token, timeout)
	if err != nil {
		http.Error(w, "lock token does not match resource", http.StatusConflict)
		return
	}
	writeLockResponse(w, http.StatusOK, refreshed)
}

// Unlock releases a lock. The caller must own it or hold write access.
func (h *Handler) Unlock(w http.ResponseWriter, r *http.Request) {
	target, ok := parseWebDAVPath(r.URL.Path, webdavPrefix)
	if !ok || target.Depth() != 4 {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	token := parseLockTokenHeader(r.Header.Get("Lock-Token"))
	if token == "" {
		http.Error(w, "missing lock token", http.StatusBadRequest)
		return
	}

	_, file, err := h.resolveFile(r.Context(), target)
	if err != nil {
		h.respondResolveError(w, err)
		return
	}

	caller := auth.CallerFromContext(r.Context())
	lock, found := h.locks.GetByToken(token)
	ownsLock := found && lock.OwnerUserID == caller.UserID
	if !ownsLock {
		writable, err := h.checker.CanAccessFile(r.Context(), file, store.IntentWrite, caller)
		if err != nil {
			h.internalError(w, "access check failed", err)
			return
		}
		if !writable {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
	}

	if err := h.locks.Remove(file.ID, token); err != nil {
		http.Error(w, "lock token does not match resource", http.StatusConflict)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeLockResponse(w http.ResponseWriter, status int, lock *locks.Lock) {
	payload := lockResponse{
		XmlnsD:        "DAV:",
		LockDiscovery: lockDiscovery{Active: []activeLock{activeLockEl(lock, time.Now())}},
	}
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, xml.Header)
	_ = xml.NewEncoder(w).Encode(payload)
}

// parseLockTimeout reads the Timeout header (RFC 4918 Section 10.7). The
// header lists preferences; the first usable entry wins. nil means no
// automatic expiry.
func parseLockTimeout(header string) *time.Duration {
	for _, part := range strings.Split(header, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if strings.EqualFold(part, "Infinite") {
			return nil
		}
		if rest, found := strings.CutPrefix(part, "Second-"); found {
			seconds, err := strconv.ParseInt(rest, 10, 64)
			if err != nil {
				continue
			}
			d := time.Duration(seconds) * time.Second
			return &d
		}
	}
	return nil
}

// parseIfLockToken extracts the first lock token from an If header of the
// form "(<opaquelocktoken:...>)".
func parseIfLockToken(r *http.Request) string {
	header := r.Header.Get("If")
	start := strings.Index(header, "<")
	if start == -1 {
		return ""
	}
	end := strings.Index(header[start:], ">")
	if end == -1 {
		return ""
	}
	token := header[start+1 : start+end]
	if !strings.HasPrefix(token, "opaquelocktoken:") {
		return ""
	}
	return token
}

// parseLockTokenHeader strips the angle brackets from a Lock-Token header.
func parseLockTokenHeader(header string) string {
	token := strings.TrimSpace(header)
	token = strings.TrimPrefix(token, "<")
	token = strings.TrimSuffix(token, ">")
	if !strings.HasPrefix(token, "opaquelocktoken:") {
		return ""
	}
	return token
}
