package service

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsamuels456/unboundedfigures/internal/models"
)

func TestIdentityService_EnsureLocalUser(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("returns existing row", func(t *testing.T) {
		t.Parallel()
		repo := noopUserRepo()
		repo.getByAuthIDFn = func(_ context.Context, authID string) (*models.User, error) {
			return &models.User{ID: 4, AuthID: &authID, Username: "emmy"}, nil
		}
		repo.createFn = func(_ context.Context, _ *models.User) error {
			t.Fatal("create must not be called for an existing user")
			return nil
		}

		user, created, err := NewIdentityService(repo).EnsureLocalUser(ctx, EnsureLocalUserInput{Subject: "user_2abcdef123"})
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, "emmy", user.Username)
	})

	t.Run("creates with derived username and email display name", func(t *testing.T) {
		t.Parallel()
		repo := noopUserRepo()
		var saved *models.User
		repo.createFn = func(_ context.Context, u *models.User) error {
			u.ID = 11
			saved = u
			return nil
		}

		user, created, err := NewIdentityService(repo).EnsureLocalUser(ctx, EnsureLocalUserInput{Subject: "user_2abcdef123", Email: "ada@example.com"})
		require.NoError(t, err)
		assert.True(t, created)
		assert.Equal(t, "figure_user_2ab", user.Username)
		assert.Equal(t, "ada@example.com", user.DisplayName)
		assert.Equal(t, models.RoleFigure, user.Role)
		require.NotNil(t, saved.AuthID)
		assert.Equal(t, "user_2abcdef123", *saved.AuthID)
	})

	t.Run("display name falls back to username", func(t *testing.T) {
		t.Parallel()
		user, _, err := NewIdentityService(noopUserRepo()).EnsureLocalUser(ctx, EnsureLocalUserInput{Subject: "abc"})
		require.NoError(t, err)
		assert.Equal(t, "figure_abc", user.Username)
		assert.Equal(t, "figure_abc", user.DisplayName)
	})

	t.Run("concurrent duplicate surfaces as conflict", func(t *testing.T) {
		t.Parallel()
		repo := noopUserRepo()
		repo.createFn = func(_ context.Context, _ *models.User) error {
			return models.NewConflictError("User already exists")
		}
		_, _, err := NewIdentityService(repo).EnsureLocalUser(ctx, EnsureLocalUserInput{Subject: "user_2abcdef123"})
		require.Error(t, err)
		assert.Equal(t, http.StatusConflict, models.StatusFor(err))
		assert.Equal(t, "User already exists", err.Error())
	})

	t.Run("lookup failure is not masked", func(t *testing.T) {
		t.Parallel()
		repo := noopUserRepo()
		repo.getByAuthIDFn = func(_ context.Context, _ string) (*models.User, error) {
			return nil, models.NewInternalError(assert.AnError)
		}
		_, _, err := NewIdentityService(repo).EnsureLocalUser(ctx, EnsureLocalUserInput{Subject: "s"})
		assert.Equal(t, http.StatusInternalServerError, models.StatusFor(err))
	})
}

func TestIdentityService_LocalUserNotProvisioned(t *testing.T) {
	t.Parallel()
	_, err := NewIdentityService(noopUserRepo()).LocalUser(context.Background(), "user_unknown")
	require.Error(t, err)

	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.CodeNotProvisioned, appErr.Code)
	assert.Equal(t, http.StatusConflict, models.StatusFor(err))
}
