package services

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cheers-go/internal/apptypes"
)

func TestToggleCheer_AliceBobScenario(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice, bob := env.addUser(t, "alice"), env.addUser(t, "bob")
	review := env.addReview(t, alice.ID, "Pale Ale Delight")
	assert.Equal(t, 0, review.Cheers)
	assert.Equal(t, 4.5, review.Rating)

	updated, cheered, err := env.Cheers.ToggleCheer(ctx, review.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, cheered)
	assert.Equal(t, 1, updated.Cheers)

	has, err := env.Cheers.HasCheered(ctx, review.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, has)

	cheerers, err := env.Cheers.ListCheerers(ctx, review.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"bob"}, friendNames(cheerers))

	events := env.publisher.ofType(apptypes.ActivityReviewCheered)
	require.Len(t, events, 1)
	assert.Equal(t, alice.ID, events[0].RecipientID)
	assert.Equal(t, bob.ID, events[0].ActorID)

	updated, cheered, err = env.Cheers.ToggleCheer(ctx, review.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, cheered)
	assert.Equal(t, 0, updated.Cheers)

	has, err = env.Cheers.HasCheered(ctx, review.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, has)
	assert.Len(t, env.publisher.ofType(apptypes.ActivityReviewCheered), 1)
}

func TestToggleCheer_CountMatchesCheerers(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.addUser(t, "owner")
	review := env.addReview(t, owner.ID, "Stout")

	const n = 12
	ids := make([]uint, n)
	for i := range ids {
		ids[i] = env.addUser(t, fmt.Sprintf("fan%02d", i)).ID
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id uint) {
			defer wg.Done()
			_, _, err := env.Cheers.ToggleCheer(ctx, review.ID, id)
			assert.NoError(t, err)
		}(id)
	}
	wg.Wait()

	// 一半用户取消
	for _, id := range ids[:n/2] {
		_, cheered, err := env.Cheers.ToggleCheer(ctx, review.ID, id)
		require.NoError(t, err)
		assert.False(t, cheered)
	}

	got, err := env.Reviews.Get(ctx, review.ID)
	require.NoError(t, err)
	cheerers, err := env.Cheers.ListCheerers(ctx, review.ID)
	require.NoError(t, err)
	assert.Equal(t, n/2, got.Cheers)
	assert.Len(t, cheerers, got.Cheers)
}

func TestToggleCheer_MissingReview(t *testing.T) {
	env := newTestEnv(t)
	bob := env.addUser(t, "bob")

	_, _, err := env.Cheers.ToggleCheer(context.Background(), 404, bob.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = env.Cheers.ListCheerers(context.Background(), 404)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestToggleCheer_SurvivesClientCancel(t *testing.T) {
	env := newTestEnv(t)
	alice, bob := env.addUser(t, "alice"), env.addUser(t, "bob")
	review := env.addReview(t, alice.ID, "Lager")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	updated, cheered, err := env.Cheers.ToggleCheer(ctx, review.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, cheered)
	assert.Equal(t, 1, updated.Cheers)
}

func TestToggleCheer_OwnCheerNotAnnounced(t *testing.T) {
	env := newTestEnv(t)
	alice := env.addUser(t, "alice")
	review := env.addReview(t, alice.ID, "Porter")

	_, cheered, err := env.Cheers.ToggleCheer(context.Background(), review.ID, alice.ID)
	require.NoError(t, err)
	assert.True(t, cheered)

	events := env.publisher.ofType(apptypes.ActivityReviewCheered)
	require.Len(t, events, 1)
	assert.False(t, events[0].Notifies())
}
