// Package access implements the resource access-policy decision.
//
// Policies form a strictness ladder (Public < Shared < Members < Private);
// the checker combines the policy with the caller's identity, resource
// ownership, and space membership.
package access

import (
	"context"

	"github.com/google/uuid"

	"github.com/Feuerhamster/memoria/internal/store"
)

// Caller is the authenticated (or anonymous) principal of one request.
// Handlers derive it once from the request and pass it explicitly.
type Caller struct {
	UserID          uuid.UUID
	IsAuthenticated bool
}

// Anonymous is the caller for requests without credentials.
var Anonymous = Caller{}

// Checker answers access-policy questions using space membership data.
type Checker struct {
	spaces store.SpaceRepository
}

func NewChecker(spaces store.SpaceRepository) *Checker {
	return &Checker{spaces: spaces}
}

// CanAccess reports whether the caller may perform intent against a resource
// guarded by policy. ownerID identifies the resource owner; spaceID is set
// when the resource belongs to a space.
//
// Reads on Public resources are open to everyone, including anonymous
// callers. Every other combination requires authentication. Writes by
// non-owners are only possible inside a space the caller is a member of.
func (c *Checker) CanAccess(ctx context.Context, policy store.AccessPolicy, intent store.AccessIntent, ownerID uuid.UUID, caller Caller, spaceID *uuid.UUID) (bool, error) {
	if intent == store.IntentRead && policy == store.PolicyPublic {
		return true, nil
	}

	if !caller.IsAuthenticated {
		return false, nil
	}

	isOwner := ownerID == caller.UserID

	switch intent {
	case store.IntentRead:
		switch policy {
		case store.PolicyShared:
			return true, nil
		case store.PolicyMembers:
			if isOwner {
				return true, nil
			}
			if spaceID == nil {
				return false, nil
			}
			return c.spaces.IsMember(ctx, *spaceID, caller.UserID)
		case store.PolicyPrivate:
			return isOwner, nil
		}
		return false, nil

	case store.IntentWrite:
		if isOwner {
			return true, nil
		}
		if policy == store.PolicyPrivate || spaceID == nil {
			return false, nil
		}
		return c.spaces.IsMember(ctx, *spaceID, caller.UserID)
	}

	return false, nil
}

// CanAccessFile is a convenience wrapper over CanAccess for file rows.
func (c *Checker) CanAccessFile(ctx context.Context, f *store.FileResource, intent store.AccessIntent, caller Caller) (bool, error) {
	return c.CanAccess(ctx, f.AccessPolicy, intent, f.OwnerUserID, caller, f.SpaceID)
}

// CanAccessEntry is a convenience wrapper over CanAccess for calendar rows.
func (c *Checker) CanAccessEntry(ctx context.Context, e *store.CalendarEntry, intent store.AccessIntent, caller Caller) (bool, error) {
	spaceID := e.SpaceID
	return c.CanAccess(ctx, e.AccessPolicy, intent, e.OwnerUserID, caller, &spaceID)
}

// IsSpaceMember reports whether the user owns or is a member of the space.
func (c *Checker) IsSpaceMember(ctx context.Context, spaceID, userID uuid.UUID) (bool, error) {
	return c.spaces.IsMember(ctx, spaceID, userID)
}
