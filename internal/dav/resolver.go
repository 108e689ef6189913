package dav

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Feuerhamster/memoria/internal/store"
)

// Entity scopes at the top of the virtual tree.
const (
	scopeUsers  = "users"
	scopeSpaces = "spaces"
)

// EntityContext is the resolved identity behind one path segment. It scopes
// every descendant segment of the request and is never persisted.
type EntityContext struct {
	OwnerID   uuid.UUID
	SpaceID   *uuid.UUID
	Name      string
	CreatedAt time.Time
}

// IsSpace reports whether the context addresses a space rather than a
// user root.
func (c *EntityContext) IsSpace() bool {
	return c.SpaceID != nil
}

// resolveEntity looks up the user or space behind a path segment. Returns
// store.ErrNotFound for unknown scopes and names; callers respond 404.
func (h *Handler) resolveEntity(ctx context.Context, scope, name string) (*EntityContext, error) {
	switch scope {
	case scopeUsers:
		user, err := h.store.Users.GetByUsername(ctx, name)
		if err != nil {
			return nil, err
		}
		return &EntityContext{
			OwnerID:   user.ID,
			Name:      user.Username,
			CreatedAt: user.RegisteredAt,
		}, nil

	case scopeSpaces:
		space, err := h.store.Spaces.GetByName(ctx, name)
		if err != nil {
			return nil, err
		}
		spaceID := space.ID
		return &EntityContext{
			OwnerID:   space.OwnerUserID,
			SpaceID:   &spaceID,
			Name:      space.Name,
			CreatedAt: space.CreatedAt,
		}, nil
	}
	return nil, store.ErrNotFound
}

// mapPolicyFolder converts a protocol-visible folder name into the internal
// access policy. "members" is member-scoped everywhere; "private" aliases it
// inside a space (private space folders are still scoped to members) and
// means owner-only on a user root. Unknown names yield
// errUnknownPolicyFolder (400).
func mapPolicyFolder(folder string, isSpace bool) (store.AccessPolicy, error) {
	switch folder {
	case "public":
		return store.PolicyPublic, nil
	case "shared":
		return store.PolicyShared, nil
	case "members":
		return store.PolicyMembers, nil
	case "private":
		if isSpace {
			return store.PolicyMembers, nil
		}
		return store.PolicyPrivate, nil
	}
	return 0, errUnknownPolicyFolder
}

// policyFolders lists the folder names exposed under an entity, in listing
// order. All four folders exist in every context; visibility is the
// caller's concern.
func policyFolders() []string {
	return []string{"public", "shared", "members", "private"}
}

// memberScopedFolder reports whether a folder is hidden from callers outside
// the owning entity.
func memberScopedFolder(folder string) bool {
	return folder == "members" || folder == "private"
}

// resolveFile resolves a full file path to its entity context and metadata
// row.
func (h *Handler) resolveFile(ctx context.Context, target webdavPath) (*EntityContext, *store.FileResource, error) {
	entity, err := h.resolveEntity(ctx, target.Scope, target.Entity)
	if err != nil {
		return nil, nil, err
	}
	policy, err := mapPolicyFolder(target.Folder, entity.IsSpace())
	if err != nil {
		return nil, nil, err
	}
	file, err := h.store.Files.Find(ctx, entity.OwnerID, entity.SpaceID, policy, target.FileName)
	if err != nil {
		return nil, nil, err
	}
	return entity, file, nil
}
