// Package bootstrap connects the process-wide dependencies the API server runs on.
package bootstrap

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/tsamuels456/unboundedfigures/internal/cache"
	"github.com/tsamuels456/unboundedfigures/internal/config"
	"github.com/tsamuels456/unboundedfigures/internal/database"
	"github.com/tsamuels456/unboundedfigures/internal/observability"
	"github.com/tsamuels456/unboundedfigures/internal/repository"
	"github.com/tsamuels456/unboundedfigures/internal/seed"
	"github.com/tsamuels456/unboundedfigures/internal/storage"
)

// Options control runtime initialization behavior.
type Options struct {
	// EnsureDevFounder links DEV_SEED_AUTH_ID to the founder figure in development.
	EnsureDevFounder bool
}

// Runtime is everything InitRuntime connected.
type Runtime struct {
	DB      *gorm.DB
	Redis   *redis.Client
	Avatars storage.AvatarStore
}

// InitRuntime connects to DB, Redis and the avatar store. Redis is optional:
// an unreachable instance leaves Runtime.Redis nil.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*Runtime, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)

	store, err := storage.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("avatar store: %w", err)
	}

	if opts.EnsureDevFounder {
		if err := ensureDevFounder(ctx, cfg, db); err != nil {
			return nil, fmt.Errorf("failed to bootstrap development founder: %w", err)
		}
	}

	return &Runtime{DB: db, Redis: cache.GetClient(), Avatars: store}, nil
}

// ensureDevFounder makes the dev-bypass subject resolve to a local user without
// calling /api/me/ensure first. It is a no-op outside development.
func ensureDevFounder(ctx context.Context, cfg *config.Config, db *gorm.DB) error {
	if cfg == nil || db == nil {
		return nil
	}
	if !strings.EqualFold(cfg.Env, "development") || !cfg.DevAuthBypass {
		return nil
	}
	subject := strings.TrimSpace(cfg.DevSeedAuthID)
	if subject == "" {
		return fmt.Errorf("DEV_SEED_AUTH_ID must be set when DEV_AUTH_BYPASS is enabled")
	}

	// A subject that already ensured its own row keeps it.
	if _, err := repository.NewUserRepository(db).GetByAuthID(ctx, subject); err == nil {
		return nil
	}

	s, err := seed.NewSeeder(db, seed.Options{FounderAuthID: subject})
	if err != nil {
		return err
	}
	founder, err := s.Founder(ctx)
	if err != nil {
		return err
	}
	if founder.AuthID == nil || *founder.AuthID != subject {
		observability.L().Warn("founder is linked to a different subject",
			zap.Uint("user_id", founder.ID),
			zap.String("dev_subject", subject),
		)
		return nil
	}

	observability.L().Info("development founder ensured", zap.Uint("user_id", founder.ID), zap.String("username", founder.Username))
	return nil
}
