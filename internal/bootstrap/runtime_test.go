package bootstrap

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsamuels456/unboundedfigures/internal/config"
	"github.com/tsamuels456/unboundedfigures/internal/models"
	"github.com/tsamuels456/unboundedfigures/internal/testutil"
)

func TestEnsureDevFounder(t *testing.T) {
	ctx := context.Background()

	t.Run("No-op outside development", func(t *testing.T) {
		db := testutil.OpenSQLite(t)
		cfg := &config.Config{Env: "production", DevAuthBypass: true, DevSeedAuthID: "dev-subject"}
		require.NoError(t, ensureDevFounder(ctx, cfg, db))

		var n int64
		require.NoError(t, db.Model(&models.User{}).Count(&n).Error)
		assert.Zero(t, n)
	})

	t.Run("Requires subject", func(t *testing.T) {
		db := testutil.OpenSQLite(t)
		cfg := &config.Config{Env: "development", DevAuthBypass: true}
		assert.Error(t, ensureDevFounder(ctx, cfg, db))
	})

	t.Run("Links founder once", func(t *testing.T) {
		db := testutil.OpenSQLite(t)
		cfg := &config.Config{Env: "development", DevAuthBypass: true, DevSeedAuthID: "dev-subject"}
		require.NoError(t, ensureDevFounder(ctx, cfg, db))
		require.NoError(t, ensureDevFounder(ctx, cfg, db))

		var users []models.User
		require.NoError(t, db.Find(&users).Error)
		require.Len(t, users, 1)
		require.NotNil(t, users[0].AuthID)
		assert.Equal(t, "dev-subject", *users[0].AuthID)
		assert.Equal(t, "founderFigure", users[0].Username)
	})

	t.Run("Keeps an existing row for the subject", func(t *testing.T) {
		db := testutil.OpenSQLite(t)
		subject := "dev-subject"
		require.NoError(t, db.Create(&models.User{AuthID: &subject, Username: "figure_dev-subj", Role: models.RoleFigure}).Error)

		cfg := &config.Config{Env: "development", DevAuthBypass: true, DevSeedAuthID: subject}
		require.NoError(t, ensureDevFounder(ctx, cfg, db))

		var n int64
		require.NoError(t, db.Model(&models.User{}).Count(&n).Error)
		assert.EqualValues(t, 1, n)
	})
}
