// Package locks implements in-memory WebDAV locks. Locks live in a
// process-local cache, expire passively, and are lost on restart.
package locks

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	cache "github.com/pmylund/go-cache"

	"github.com/Feuerhamster/memoria/internal/metrics"
)

var (
	// ErrLocked indicates the target already carries a conflicting lock.
	ErrLocked = errors.New("locks: resource is locked")
	// ErrTokenMismatch indicates the token is unknown or belongs to a
	// different resource.
	ErrTokenMismatch = errors.New("locks: token does not match resource")
)

// Scope is the WebDAV lock scope.
type Scope int

const (
	ScopeExclusive Scope = iota
	ScopeShared
)

func (s Scope) String() string {
	if s == ScopeShared {
		return "shared"
	}
	return "exclusive"
}

const (
	// MaxTimeout caps client-requested lock lifetimes.
	MaxTimeout = 24 * time.Hour
	// DefaultTimeout applies when a client sends an unusable timeout value.
	DefaultTimeout = 3 * time.Hour

	tokenPrefix = "opaquelocktoken:"
)

// Lock is one active WebDAV lock.
type Lock struct {
	Token       string
	FileID      uuid.UUID
	OwnerUserID uuid.UUID
	OwnerInfo   string
	Scope       Scope
	Type        string
	Depth       string
	CreatedAt   time.Time
	ExpiresAt   *time.Time
}

// TimeoutSeconds returns the remaining lifetime in whole seconds, or -1 for
// locks without expiry.
func (l *Lock) TimeoutSeconds(now time.Time) int64 {
	if l.ExpiresAt == nil {
		return -1
	}
	remaining := l.ExpiresAt.Sub(now)
	if remaining < 0 {
		return 0
	}
	return int64(remaining / time.Second)
}

// Manager holds all locks of the process. Entries are stored once under
// their token (with the lock's own expiry) and indexed again under the
// target file id; the file index is pruned lazily against the token store.
type Manager struct {
	mu      sync.Mutex
	byToken *cache.Cache
	byFile  *cache.Cache

	now func() time.Time
}

func NewManager() *Manager {
	return &Manager{
		byToken: cache.New(cache.NoExpiration, 10*time.Minute),
		byFile:  cache.New(cache.NoExpiration, 0),
		now:     time.Now,
	}
}

// Create allocates a new lock on fileID. It fails with ErrLocked when an
// exclusive lock is already active on the file, or when any lock is active
// and the requested scope is exclusive. timeout nil means no automatic
// expiry; other values are clamped to [0, MaxTimeout], negative values fall
// back to DefaultTimeout.
func (m *Manager) Create(fileID, ownerUserID uuid.UUID, ownerInfo string, scope Scope, depth string, timeout *time.Duration) (*Lock, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	active := m.activeLocked(fileID)
	for _, l := range active {
		if l.Scope == ScopeExclusive || scope == ScopeExclusive {
			return nil, ErrLocked
		}
	}

	now := m.now()
	lock := &Lock{
		Token:       tokenPrefix + uuid.NewString(),
		FileID:      fileID,
		OwnerUserID: ownerUserID,
		OwnerInfo:   ownerInfo,
		Scope:       scope,
		Type:        "write",
		Depth:       depth,
		CreatedAt:   now,
	}
	ttl := clampTimeout(timeout)
	if ttl != cache.NoExpiration {
		expires := now.Add(ttl)
		lock.ExpiresAt = &expires
	}

	m.byToken.Set(lock.Token, lock, ttl)
	tokens := append(m.fileTokensLocked(fileID), lock.Token)
	m.byFile.Set(fileID.String(), tokens, cache.NoExpiration)

	m.publishCount()
	return copyLock(lock), nil
}

// Refresh extends an active lock's lifetime and returns the updated lock.
// The stored entry is replaced with an updated copy; locks handed out
// earlier are never written to.
func (m *Manager) Refresh(token string, timeout *time.Duration) (*Lock, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.byToken.Get(token)
	if !ok {
		return nil, ErrTokenMismatch
	}
	updated := *v.(*Lock)

	ttl := clampTimeout(timeout)
	if ttl == cache.NoExpiration {
		updated.ExpiresAt = nil
	} else {
		expires := m.now().Add(ttl)
		updated.ExpiresAt = &expires
	}
	m.byToken.Set(token, &updated, ttl)
	return copyLock(&updated), nil
}

// Remove releases the lock identified by token on fileID. ErrTokenMismatch
// when the token is unknown, expired, or held against another file.
func (m *Manager) Remove(fileID uuid.UUID, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.byToken.Get(token)
	if !ok {
		return ErrTokenMismatch
	}
	lock := v.(*Lock)
	if lock.FileID != fileID {
		return ErrTokenMismatch
	}

	m.byToken.Delete(token)
	m.pruneFileLocked(fileID)
	m.publishCount()
	return nil
}

// GetByToken returns the active lock for token.
func (m *Manager) GetByToken(token string) (*Lock, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.byToken.Get(token)
	if !ok {
		return nil, false
	}
	return copyLock(v.(*Lock)), true
}

// ForFile returns all active locks on fileID.
func (m *Manager) ForFile(fileID uuid.UUID) []*Lock {
	m.mu.Lock()
	defer m.mu.Unlock()
	active := m.activeLocked(fileID)
	out := make([]*Lock, len(active))
	for i, l := range active {
		out[i] = copyLock(l)
	}
	return out
}

// ValidateAccess reports whether userID may mutate fileID given the supplied
// lock token. It passes when no locks are active, when the caller owns any
// active lock, or when the supplied token matches an active lock on the file.
func (m *Manager) ValidateAccess(fileID, userID uuid.UUID, suppliedToken string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	active := m.activeLocked(fileID)
	if len(active) == 0 {
		return true
	}
	for _, l := range active {
		if l.OwnerUserID == userID {
			return true
		}
		if suppliedToken != "" && l.Token == suppliedToken {
			return true
		}
	}
	return false
}

// Count returns the number of active locks.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byToken.ItemCount()
}

// activeLocked resolves the file index against the token store, pruning
// tokens whose locks have expired. Caller holds mu.
func (m *Manager) activeLocked(fileID uuid.UUID) []*Lock {
	tokens := m.fileTokensLocked(fileID)
	var (
		alive []string
		locks []*Lock
	)
	for _, token := range tokens {
		if v, ok := m.byToken.Get(token); ok {
			alive = append(alive, token)
			locks = append(locks, v.(*Lock))
		}
	}
	if len(alive) != len(tokens) {
		if len(alive) == 0 {
			m.byFile.Delete(fileID.String())
		} else {
			m.byFile.Set(fileID.String(), alive, cache.NoExpiration)
		}
	}
	return locks
}

// copyLock returns a caller-owned snapshot detached from the cached entry.
func copyLock(l *Lock) *Lock {
	cp := *l
	if l.ExpiresAt != nil {
		expires := *l.ExpiresAt
		cp.ExpiresAt = &expires
	}
	return &cp
}

func (m *Manager) fileTokensLocked(fileID uuid.UUID) []string {
	if v, ok := m.byFile.Get(fileID.String()); ok {
		return v.([]string)
	}
	return nil
}

func (m *Manager) pruneFileLocked(fileID uuid.UUID) {
	m.activeLocked(fileID)
}

func (m *Manager) publishCount() {
	metrics.SetActiveLocks(m.byToken.ItemCount())
}

func clampTimeout(timeout *time.Duration) time.Duration {
	if timeout == nil {
		return cache.NoExpiration
	}
	// Zero would collide with the cache's default-expiration sentinel, and a
	// zero-length lock is useless anyway.
	d := *timeout
	if d <= 0 {
		return DefaultTimeout
	}
	if d > MaxTimeout {
		return MaxTimeout
	}
	return d
}
