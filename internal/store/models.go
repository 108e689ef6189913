package store

import (
	"time"

	"github.com/google/uuid"
)

// AccessPolicy is the four-value visibility scale attached to every file and
// calendar entry. The numeric order matters: comparisons like
// policy <= Shared express "at least as open as shared".
type AccessPolicy int

const (
	// PolicyPublic is readable by everyone, including anonymous callers.
	PolicyPublic AccessPolicy = iota
	// PolicyShared is readable by any authenticated user.
	PolicyShared
	// PolicyMembers is restricted to members of the owning space.
	PolicyMembers
	// PolicyPrivate is restricted to the resource owner.
	PolicyPrivate
)

func (p AccessPolicy) String() string {
	switch p {
	case PolicyPublic:
		return "public"
	case PolicyShared:
		return "shared"
	case PolicyMembers:
		return "members"
	case PolicyPrivate:
		return "private"
	default:
		return "unknown"
	}
}

// AccessIntent distinguishes read from write authorization checks.
type AccessIntent int

const (
	IntentRead AccessIntent = iota
	IntentWrite
)

// User is a registered account. Usernames double as WebDAV path segments.
type User struct {
	ID           uuid.UUID
	Username     string
	Nickname     string
	RegisteredAt time.Time
}

// Space is a group-owned container. Each space is one WebDAV entity folder
// and one CalDAV calendar collection.
type Space struct {
	ID          uuid.UUID
	Name        string
	Description string
	Color       *string
	OwnerUserID uuid.UUID
	Visibility  AccessPolicy
	CreatedAt   time.Time
}

// FileResource is file metadata; content bytes live in the blob store keyed
// by FileHash. The triple (owner-or-space, AccessPolicy, FileName) addresses a file
// uniquely in the virtual tree.
type FileResource struct {
	ID           uuid.UUID
	OwnerUserID  uuid.UUID
	SpaceID      *uuid.UUID
	FileName     string
	FileHash     string
	ContentType  string
	SizeBytes    int64
	AccessPolicy AccessPolicy
	UploadedAt   time.Time
}

// CalendarEntry is a single (possibly recurring) event inside a space
// calendar. Sequence increments on every successful mutation and feeds both
// the iCalendar SEQUENCE property and the wire ETag.
type CalendarEntry struct {
	ID           uuid.UUID
	OwnerUserID  uuid.UUID
	SpaceID      uuid.UUID
	AccessPolicy AccessPolicy

	Summary     string
	Description string
	Location    string

	StartDate time.Time
	EndDate   time.Time
	IsAllDay  bool

	// Recurrence models FREQ/INTERVAL/COUNT/UNTIL only. Frequency is nil for
	// one-off events. Interval is nil when 1.
	RecurrenceFrequency *string
	RecurrenceInterval  *int
	RecurrenceCount     *int
	RecurrenceUntil     *time.Time

	Sequence     int
	CreatedAt    time.Time
	LastModified time.Time
}

// Recurring reports whether the entry carries a recurrence rule.
func (e *CalendarEntry) Recurring() bool { return e.RecurrenceFrequency != nil }

// AppToken is a per-client Basic Auth credential for DAV access. Only the
// bcrypt hash of the token is stored.
type AppToken struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Label     string
	TokenHash string
	CreatedAt time.Time
	ExpiresAt *time.Time
	RevokedAt *time.Time
}

// Valid reports whether the token may still authenticate at the given time.
func (t *AppToken) Valid(now time.Time) bool {
	if t.RevokedAt != nil {
		return false
	}
	if t.ExpiresAt != nil && t.ExpiresAt.Before(now) {
		return false
	}
	return true
}
