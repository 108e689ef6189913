package dav

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/Feuerhamster/memoria/internal/access"
	"github.com/Feuerhamster/memoria/internal/auth"
	"github.com/Feuerhamster/memoria/internal/store"
)

var errReadForbidden = errors.New("read access denied")

// Propfind enumerates the virtual tree: root collections, entity roots,
// policy folders, and files. Depth infinity is rejected; the tree is shallow
// enough that clients never need it.
func (h *Handler) Propfind(w http.ResponseWriter, r *http.Request) {
	depth := strings.TrimSpace(r.Header.Get("Depth"))
	if depth == "" {
		depth = "1"
	}
	if strings.EqualFold(depth, "infinity") {
		http.Error(w, "depth infinity is not supported", http.StatusForbidden)
		return
	}
	if depth != "0" && depth != "1" {
		http.Error(w, "invalid depth", http.StatusBadRequest)
		return
	}

	if _, err := parsePropfindBody(r); err != nil {
		http.Error(w, "malformed propfind body", http.StatusBadRequest)
		return
	}

	target, ok := parseWebDAVPath(r.URL.Path, webdavPrefix)
	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	caller := auth.CallerFromContext(r.Context())
	responses, err := h.buildPropfindResponses(r.Context(), target, depth == "1", caller)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			http.Error(w, "not found", http.StatusNotFound)
		case errors.Is(err, errUnknownPolicyFolder):
			http.Error(w, "unknown policy folder", http.StatusBadRequest)
		case errors.Is(err, errReadForbidden):
			http.Error(w, "forbidden", http.StatusForbidden)
		default:
			h.internalError(w, "propfind failed", err)
		}
		return
	}

	writeMultiStatus(w, webdavMultistatus(responses))
}

// parsePropfindBody decodes an optional PROPFIND body. An empty body means
// allprop; responses carry the full property set either way, so the decoded
// request only gates well-formedness.
func parsePropfindBody(r *http.Request) (*propfindRequest, error) {
	body, err := readDAVBody(r)
	if err != nil {
		return nil, err
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return &propfindRequest{AllProp: &struct{}{}}, nil
	}
	var req propfindRequest
	if err := safeUnmarshalXML(body, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

func (h *Handler) buildPropfindResponses(ctx context.Context, target webdavPath, listChildren bool, caller access.Caller) ([]response, error) {
	switch target.Depth() {
	case 0:
		return h.propfindRoot(listChildren)
	case 1:
		return h.propfindScope(ctx, target.Scope, listChildren, caller)
	case 2:
		return h.propfindEntity(ctx, target, listChildren, caller)
	case 3:
		return h.propfindPolicyFolder(ctx, target, listChildren, caller)
	default:
		return h.propfindFile(ctx, target, caller)
	}
}

func (h *Handler) propfindRoot(listChildren bool) ([]response, error) {
	responses := []response{collectionResponse(webdavPrefix+"/", "Memoria", zeroTime)}
	if listChildren {
		responses = append(responses,
			collectionResponse(buildHref(webdavPrefix, scopeUsers)+"/", "Users", zeroTime),
			collectionResponse(buildHref(webdavPrefix, scopeSpaces)+"/", "Spaces", zeroTime),
		)
	}
	return responses, nil
}

func (h *Handler) propfindScope(ctx context.Context, scope string, listChildren bool, caller access.Caller) ([]response, error) {
	switch scope {
	case scopeUsers:
		responses := []response{collectionResponse(buildHref(webdavPrefix, scopeUsers)+"/", "Users", zeroTime)}
		if !listChildren {
			return responses, nil
		}
		users, err := h.store.Users.List(ctx)
		if err != nil {
			return nil, err
		}
		for i := range users {
			u := &users[i]
			responses = append(responses, collectionResponse(
				buildHref(webdavPrefix, scopeUsers, u.Username)+"/", u.Username, u.RegisteredAt))
		}
		return responses, nil

	case scopeSpaces:
		responses := []response{collectionResponse(buildHref(webdavPrefix, scopeSpaces)+"/", "Spaces", zeroTime)}
		if !listChildren {
			return responses, nil
		}
		spaces, err := h.visibleSpaces(ctx, caller)
		if err != nil {
			return nil, err
		}
		for i := range spaces {
			s := &spaces[i]
			responses = append(responses, collectionResponse(
				buildHref(webdavPrefix, scopeSpaces, s.Name)+"/", s.Name, s.CreatedAt))
		}
		return responses, nil
	}
	return nil, store.ErrNotFound
}

// visibleSpaces lists spaces the caller may see at the tree root: open
// spaces for everyone, plus owned/member spaces for authenticated callers.
func (h *Handler) visibleSpaces(ctx context.Context, caller access.Caller) ([]store.Space, error) {
	maxPolicy := store.PolicyShared
	if caller.IsAuthenticated {
		maxPolicy = store.PolicyMembers
	}
	open, err := h.store.Spaces.ListOpenSpaces(ctx, maxPolicy)
	if err != nil {
		return nil, err
	}
	if !caller.IsAuthenticated {
		return open, nil
	}

	member, err := h.store.Spaces.ListMemberSpaces(ctx, caller.UserID)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(open))
	for i := range open {
		seen[open[i].Name] = true
	}
	for i := range member {
		if !seen[member[i].Name] {
			open = append(open, member[i])
		}
	}
	return open, nil
}

func (h *Handler) propfindEntity(ctx context.Context, target webdavPath, listChildren bool, caller access.Caller) ([]response, error) {
	entity, err := h.resolveEntity(ctx, target.Scope, target.Entity)
	if err != nil {
		return nil, err
	}

	selfHref := buildHref(webdavPrefix, target.Scope, entity.Name) + "/"
	responses := []response{collectionResponse(selfHref, entity.Name, entity.CreatedAt)}
	if !listChildren {
		return responses, nil
	}

	memberVisible, err := h.memberFoldersVisible(ctx, entity, caller)
	if err != nil {
		return nil, err
	}
	for _, folder := range policyFolders() {
		if memberScopedFolder(folder) && !memberVisible {
			continue
		}
		responses = append(responses, collectionResponse(
			buildHref(webdavPrefix, target.Scope, entity.Name, folder)+"/", folder, entity.CreatedAt))
	}
	return responses, nil
}

// memberFoldersVisible hides the members and private folders from callers
// who could never read anything inside them.
func (h *Handler) memberFoldersVisible(ctx context.Context, entity *EntityContext, caller access.Caller) (bool, error) {
	if !caller.IsAuthenticated {
		return false, nil
	}
	if entity.OwnerID == caller.UserID {
		return true, nil
	}
	if entity.IsSpace() {
		return h.checker.IsSpaceMember(ctx, *entity.SpaceID, caller.UserID)
	}
	return false, nil
}

func (h *Handler) propfindPolicyFolder(ctx context.Context, target webdavPath, listChildren bool, caller access.Caller) ([]response, error) {
	entity, err := h.resolveEntity(ctx, target.Scope, target.Entity)
	if err != nil {
		return nil, err
	}
	policy, err := mapPolicyFolder(target.Folder, entity.IsSpace())
	if err != nil {
		return nil, err
	}

	selfHref := buildHref(webdavPrefix, target.Scope, entity.Name, target.Folder) + "/"
	responses := []response{collectionResponse(selfHref, target.Folder, entity.CreatedAt)}
	if !listChildren {
		return responses, nil
	}

	files, err := h.store.Files.ListByPolicy(ctx, entity.OwnerID, entity.SpaceID, policy)
	if err != nil {
		return nil, err
	}
	for i := range files {
		f := &files[i]
		readable, err := h.checker.CanAccessFile(ctx, f, store.IntentRead, caller)
		if err != nil {
			return nil, err
		}
		if !readable {
			continue
		}
		href := buildHref(webdavPrefix, target.Scope, entity.Name, target.Folder, f.FileName)
		responses = append(responses, fileResponse(href, f, h.locks.ForFile(f.ID)))
	}
	return responses, nil
}

func (h *Handler) propfindFile(ctx context.Context, target webdavPath, caller access.Caller) ([]response, error) {
	entity, file, err := h.resolveFile(ctx, target)
	if err != nil {
		return nil, err
	}
	readable, err := h.checker.CanAccessFile(ctx, file, store.IntentRead, caller)
	if err != nil {
		return nil, err
	}
	if !readable {
		return nil, errReadForbidden
	}
	href := buildHref(webdavPrefix, target.Scope, entity.Name, target.Folder, file.FileName)
	return []response{fileResponse(href, file, h.locks.ForFile(file.ID))}, nil
}
