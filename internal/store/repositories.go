package store

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	List(ctx context.Context) ([]User, error)
}

// SpaceRepository handles spaces and membership.
type SpaceRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Space, error)
	GetByName(ctx context.Context, name string) (*Space, error)
	// ListMemberSpaces returns spaces the user owns or is a member of.
	ListMemberSpaces(ctx context.Context, userID uuid.UUID) ([]Space, error)
	// ListOpenSpaces returns spaces whose visibility is strictly more open
	// than maxPolicy (e.g. maxPolicy = PolicyMembers lists public and shared
	// spaces).
	ListOpenSpaces(ctx context.Context, maxPolicy AccessPolicy) ([]Space, error)
	IsMember(ctx context.Context, spaceID, userID uuid.UUID) (bool, error)
}

// FileRepository handles file metadata rows. Content bytes are the blob
// store's concern.
type FileRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*FileResource, error)
	// Find resolves the virtual-tree triple. spaceID nil means a user-root
	// file owned by ownerID.
	Find(ctx context.Context, ownerID uuid.UUID, spaceID *uuid.UUID, policy AccessPolicy, fileName string) (*FileResource, error)
	// ListByPolicy lists all files in one policy folder without access
	// filtering; callers filter per-file.
	ListByPolicy(ctx context.Context, ownerID uuid.UUID, spaceID *uuid.UUID, policy AccessPolicy) ([]FileResource, error)
	// CountByHash reports how many live rows reference a content hash.
	// Content blobs are shared between rows, so callers must not remove
	// bytes that are still referenced.
	CountByHash(ctx context.Context, hash string) (int, error)
	Insert(ctx context.Context, f FileResource) error
	// Update rewrites all mutable columns (name, space, policy, hash, size,
	// content type, uploaded-at) for an existing row.
	Update(ctx context.Context, f FileResource) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// CalendarRepository handles calendar entries.
type CalendarRepository interface {
	Get(ctx context.Context, spaceID, id uuid.UUID) (*CalendarEntry, error)
	ListBySpace(ctx context.Context, spaceID uuid.UUID) ([]CalendarEntry, error)
	ListByIDs(ctx context.Context, spaceID uuid.UUID, ids []uuid.UUID) ([]CalendarEntry, error)
	// MaxLastModified returns the newest LastModified in the space, or the
	// zero time when the space has no entries. Feeds the collection CTag.
	MaxLastModified(ctx context.Context, spaceID uuid.UUID) (time.Time, error)
	Insert(ctx context.Context, e CalendarEntry) error
	Update(ctx context.Context, e CalendarEntry) error
	Delete(ctx context.Context, spaceID, id uuid.UUID) error
}

// AppTokenRepository handles Basic Auth token storage.
type AppTokenRepository interface {
	FindValidByUser(ctx context.Context, userID uuid.UUID) ([]AppToken, error)
}
