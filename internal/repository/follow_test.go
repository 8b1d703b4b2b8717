package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsamuels456/unboundedfigures/internal/models"
)

func TestFollowRepository_Toggle(t *testing.T) {
	db := setupSQLite(t)
	repo := NewFollowRepository(db)
	ctx := context.Background()

	a := createUser(t, db, "alice")
	b := createUser(t, db, "bob")
	c := createUser(t, db, "carol")

	// carol already follows bob, and bob follows alice.
	require.NoError(t, db.Create(&models.Follow{FollowerID: c.ID, FollowingID: b.ID}).Error)
	require.NoError(t, db.Create(&models.Follow{FollowerID: b.ID, FollowingID: a.ID}).Error)

	state, err := repo.Toggle(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, &models.FollowState{IsFollowing: true, Followers: 2, Following: 1}, state)

	following, err := repo.IsFollowing(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.True(t, following)

	state, err = repo.Toggle(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, &models.FollowState{IsFollowing: false, Followers: 1, Following: 1}, state)

	followers, followingCount, err := repo.Counts(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), followers)
	assert.Equal(t, int64(0), followingCount)
}

func TestFollowRepository_IsFollowingShortCircuits(t *testing.T) {
	repo := NewFollowRepository(setupSQLite(t))
	ctx := context.Background()

	ok, err := repo.IsFollowing(ctx, 0, 3)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repo.IsFollowing(ctx, 3, 3)
	require.NoError(t, err)
	assert.False(t, ok)
}
