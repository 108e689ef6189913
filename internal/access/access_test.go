package access

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Feuerhamster/memoria/internal/store"
)

type fakeSpaces struct {
	store.SpaceRepository
	members map[uuid.UUID][]uuid.UUID
}

func (f *fakeSpaces) IsMember(_ context.Context, spaceID, userID uuid.UUID) (bool, error) {
	for _, id := range f.members[spaceID] {
		if id == userID {
			return true, nil
		}
	}
	return false, nil
}

func TestPublicReadIsOpenToAnonymous(t *testing.T) {
	c := NewChecker(&fakeSpaces{})
	ok, err := c.CanAccess(context.Background(), store.PolicyPublic, store.IntentRead, uuid.New(), Anonymous, nil)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAnonymousDeniedEverythingElse(t *testing.T) {
	c := NewChecker(&fakeSpaces{})
	owner := uuid.New()
	for _, policy := range []store.AccessPolicy{store.PolicyShared, store.PolicyMembers, store.PolicyPrivate} {
		ok, err := c.CanAccess(context.Background(), policy, store.IntentRead, owner, Anonymous, nil)
		require.NoError(t, err)
		assert.False(t, ok, "read %s", policy)
	}
	ok, err := c.CanAccess(context.Background(), store.PolicyPublic, store.IntentWrite, owner, Anonymous, nil)
	require.NoError(t, err)
	assert.False(t, ok, "anonymous write")
}

func TestSharedReadRequiresOnlyAuthentication(t *testing.T) {
	c := NewChecker(&fakeSpaces{})
	caller := Caller{UserID: uuid.New(), IsAuthenticated: true}
	ok, err := c.CanAccess(context.Background(), store.PolicyShared, store.IntentRead, uuid.New(), caller, nil)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMembersReadScopedToSpaceMembership(t *testing.T) {
	spaceID := uuid.New()
	member := Caller{UserID: uuid.New(), IsAuthenticated: true}
	outsider := Caller{UserID: uuid.New(), IsAuthenticated: true}
	c := NewChecker(&fakeSpaces{members: map[uuid.UUID][]uuid.UUID{spaceID: {member.UserID}}})

	ok, err := c.CanAccess(context.Background(), store.PolicyMembers, store.IntentRead, uuid.New(), member, &spaceID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.CanAccess(context.Background(), store.PolicyMembers, store.IntentRead, uuid.New(), outsider, &spaceID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOwnerAlwaysReadsAndWrites(t *testing.T) {
	c := NewChecker(&fakeSpaces{})
	owner := Caller{UserID: uuid.New(), IsAuthenticated: true}

	ok, err := c.CanAccess(context.Background(), store.PolicyPrivate, store.IntentRead, owner.UserID, owner, nil)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.CanAccess(context.Background(), store.PolicyPrivate, store.IntentWrite, owner.UserID, owner, nil)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestNonOwnerWriteRequiresSpaceMembership(t *testing.T) {
	spaceID := uuid.New()
	member := Caller{UserID: uuid.New(), IsAuthenticated: true}
	outsider := Caller{UserID: uuid.New(), IsAuthenticated: true}
	c := NewChecker(&fakeSpaces{members: map[uuid.UUID][]uuid.UUID{spaceID: {member.UserID}}})
	owner := uuid.New()

	for _, policy := range []store.AccessPolicy{store.PolicyPublic, store.PolicyShared, store.PolicyMembers} {
		ok, err := c.CanAccess(context.Background(), policy, store.IntentWrite, owner, member, &spaceID)
		require.NoError(t, err)
		assert.True(t, ok, "member write %s", policy)

		ok, err = c.CanAccess(context.Background(), policy, store.IntentWrite, owner, outsider, &spaceID)
		require.NoError(t, err)
		assert.False(t, ok, "outsider write %s", policy)
	}
}

func TestPrivateWriteIsOwnerOnlyEvenForMembers(t *testing.T) {
	spaceID := uuid.New()
	member := Caller{UserID: uuid.New(), IsAuthenticated: true}
	c := NewChecker(&fakeSpaces{members: map[uuid.UUID][]uuid.UUID{spaceID: {member.UserID}}})

	ok, err := c.CanAccess(context.Background(), store.PolicyPrivate, store.IntentWrite, uuid.New(), member, &spaceID)
	require.NoError(t, err)
	assert.False(t, ok)
}
