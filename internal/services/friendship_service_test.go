package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cheers-go/internal/apptypes"
	"cheers-go/internal/models"
)

func friendNames(infos []models.UserBasicInfo) []string {
	names := make([]string, 0, len(infos))
	for _, f := range infos {
		names = append(names, f.Username)
	}
	return names
}

func TestAddFriend_IsSymmetric(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice, bob := env.addUser(t, "alice"), env.addUser(t, "bob")

	require.NoError(t, env.Friends.AddFriend(ctx, alice.ID, bob.ID))

	fa, err := env.Friends.ListFriends(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"bob"}, friendNames(fa))

	fb, err := env.Friends.ListFriends(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, friendNames(fb))

	events := env.publisher.ofType(apptypes.ActivityFriendAdded)
	require.Len(t, events, 1)
	assert.Equal(t, bob.ID, events[0].RecipientID)
}

func TestAddFriend_Twice_IsNoop(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice, bob := env.addUser(t, "alice"), env.addUser(t, "bob")

	require.NoError(t, env.Friends.AddFriend(ctx, alice.ID, bob.ID))
	require.NoError(t, env.Friends.AddFriend(ctx, alice.ID, bob.ID))
	require.NoError(t, env.Friends.AddFriend(ctx, bob.ID, alice.ID))

	fa, err := env.Friends.ListFriends(ctx, alice.ID)
	require.NoError(t, err)
	assert.Len(t, fa, 1)
	assert.Len(t, env.publisher.ofType(apptypes.ActivityFriendAdded), 1)
}

func TestAddFriend_Self(t *testing.T) {
	env := newTestEnv(t)
	alice := env.addUser(t, "alice")

	err := env.Friends.AddFriend(context.Background(), alice.ID, alice.ID)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestAddFriend_UnknownTarget(t *testing.T) {
	env := newTestEnv(t)
	alice := env.addUser(t, "alice")

	err := env.Friends.AddFriend(context.Background(), alice.ID, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRemoveFriend_Idempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice, bob := env.addUser(t, "alice"), env.addUser(t, "bob")
	require.NoError(t, env.Friends.AddFriend(ctx, alice.ID, bob.ID))

	require.NoError(t, env.Friends.RemoveFriend(ctx, alice.ID, bob.ID))
	require.NoError(t, env.Friends.RemoveFriend(ctx, alice.ID, bob.ID))

	fa, err := env.Friends.ListFriends(ctx, alice.ID)
	require.NoError(t, err)
	assert.Empty(t, fa)
	fb, err := env.Friends.ListFriends(ctx, bob.ID)
	require.NoError(t, err)
	assert.Empty(t, fb)
}

func TestListFriends_UnknownUser(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.Friends.ListFriends(context.Background(), 42)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListFriends_EmptyIsNotNil(t *testing.T) {
	env := newTestEnv(t)
	alice := env.addUser(t, "alice")
	fa, err := env.Friends.ListFriends(context.Background(), alice.ID)
	require.NoError(t, err)
	assert.NotNil(t, fa)
	assert.Empty(t, fa)
}
