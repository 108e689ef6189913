package locks

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExclusiveLockBlocksSecondLock(t *testing.T) {
	m := NewManager()
	fileID := uuid.New()

	held, err := m.Create(fileID, uuid.New(), "client a", ScopeExclusive, "0", nil)
	require.NoError(t, err)
	require.NotNil(t, held)

	_, err = m.Create(fileID, uuid.New(), "client b", ScopeExclusive, "0", nil)
	assert.ErrorIs(t, err, ErrLocked)

	_, err = m.Create(fileID, uuid.New(), "client b", ScopeShared, "0", nil)
	assert.ErrorIs(t, err, ErrLocked)
}

func TestSharedLocksCoexistButBlockExclusive(t *testing.T) {
	m := NewManager()
	fileID := uuid.New()

	_, err := m.Create(fileID, uuid.New(), "", ScopeShared, "0", nil)
	require.NoError(t, err)
	_, err = m.Create(fileID, uuid.New(), "", ScopeShared, "0", nil)
	require.NoError(t, err)

	_, err = m.Create(fileID, uuid.New(), "", ScopeExclusive, "0", nil)
	assert.ErrorIs(t, err, ErrLocked)
}

func TestUnlockThenRelockSucceeds(t *testing.T) {
	m := NewManager()
	fileID := uuid.New()

	held, err := m.Create(fileID, uuid.New(), "", ScopeExclusive, "0", nil)
	require.NoError(t, err)
	require.NoError(t, m.Remove(fileID, held.Token))

	_, err = m.Create(fileID, uuid.New(), "", ScopeExclusive, "0", nil)
	assert.NoError(t, err)
}

func TestRemoveRejectsForeignToken(t *testing.T) {
	m := NewManager()
	fileA, fileB := uuid.New(), uuid.New()

	held, err := m.Create(fileA, uuid.New(), "", ScopeExclusive, "0", nil)
	require.NoError(t, err)

	assert.ErrorIs(t, m.Remove(fileB, held.Token), ErrTokenMismatch)
	assert.ErrorIs(t, m.Remove(fileA, "opaquelocktoken:"+uuid.NewString()), ErrTokenMismatch)
}

func TestExpiredLockNoLongerBlocks(t *testing.T) {
	m := NewManager()
	fileID := uuid.New()

	timeout := 10 * time.Millisecond
	_, err := m.Create(fileID, uuid.New(), "", ScopeExclusive, "0", &timeout)
	require.NoError(t, err)

	time.Sleep(30 * time.Millisecond)

	assert.Empty(t, m.ForFile(fileID))
	_, err = m.Create(fileID, uuid.New(), "", ScopeExclusive, "0", nil)
	assert.NoError(t, err)
}

func TestValidateAccess(t *testing.T) {
	m := NewManager()
	fileID := uuid.New()
	owner := uuid.New()
	stranger := uuid.New()

	assert.True(t, m.ValidateAccess(fileID, stranger, ""), "unlocked file is open")

	held, err := m.Create(fileID, owner, "", ScopeExclusive, "0", nil)
	require.NoError(t, err)

	assert.True(t, m.ValidateAccess(fileID, owner, ""), "lock owner passes without token")
	assert.True(t, m.ValidateAccess(fileID, stranger, held.Token), "matching token passes")
	assert.False(t, m.ValidateAccess(fileID, stranger, ""), "stranger without token fails")
	assert.False(t, m.ValidateAccess(fileID, stranger, "opaquelocktoken:"+uuid.NewString()), "wrong token fails")
}

func TestRefreshExtendsLifetime(t *testing.T) {
	m := NewManager()
	fileID := uuid.New()

	short := 50 * time.Millisecond
	held, err := m.Create(fileID, uuid.New(), "", ScopeExclusive, "0", &short)
	require.NoError(t, err)

	long := time.Hour
	refreshed, err := m.Refresh(held.Token, &long)
	require.NoError(t, err)
	require.NotNil(t, refreshed.ExpiresAt)
	assert.Greater(t, refreshed.TimeoutSeconds(time.Now()), int64(3000))
}

func TestHandedOutLocksAreSnapshots(t *testing.T) {
	m := NewManager()
	fileID := uuid.New()

	short := time.Minute
	held, err := m.Create(fileID, uuid.New(), "", ScopeExclusive, "0", &short)
	require.NoError(t, err)
	require.NotNil(t, held.ExpiresAt)
	before := *held.ExpiresAt

	long := time.Hour
	refreshed, err := m.Refresh(held.Token, &long)
	require.NoError(t, err)

	// The earlier snapshot must not observe the refresh.
	assert.Equal(t, before, *held.ExpiresAt)
	assert.True(t, refreshed.ExpiresAt.After(before))

	// Getter results are detached from the stored entry.
	active := m.ForFile(fileID)
	require.Len(t, active, 1)
	*active[0].ExpiresAt = time.Time{}
	stored, ok := m.GetByToken(held.Token)
	require.True(t, ok)
	assert.True(t, stored.ExpiresAt.After(before))
}

func TestTimeoutClamp(t *testing.T) {
	m := NewManager()

	over := 48 * time.Hour
	held, err := m.Create(uuid.New(), uuid.New(), "", ScopeExclusive, "0", &over)
	require.NoError(t, err)
	require.NotNil(t, held.ExpiresAt)
	assert.LessOrEqual(t, held.TimeoutSeconds(time.Now()), int64(MaxTimeout/time.Second))

	infinite, err := m.Create(uuid.New(), uuid.New(), "", ScopeExclusive, "0", nil)
	require.NoError(t, err)
	assert.Nil(t, infinite.ExpiresAt)
	assert.Equal(t, int64(-1), infinite.TimeoutSeconds(time.Now()))
}
