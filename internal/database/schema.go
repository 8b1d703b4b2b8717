package database

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/tsamuels456/unboundedfigures/internal/config"
	"github.com/tsamuels456/unboundedfigures/internal/observability"
)

// Schema modes selected by DB_SCHEMA_MODE.
const (
	SchemaModeHybrid = "hybrid"
	SchemaModeSQL    = "sql"
	SchemaModeAuto   = "auto"
)

// SchemaStatus describes what ApplySchema would do against the current database.
type SchemaStatus struct {
	Mode               string
	Environment        string
	WillRunSQL         bool
	WillRunAutoMigrate bool
	AppliedVersions    []int
	PendingMigrations  []Migration
}

// schemaPlan is what ApplySchema will do for one DB_SCHEMA_MODE and APP_ENV.
type schemaPlan struct {
	mode string
	sql  bool
	auto bool
}

// AutoMigrate is never implicit where data matters.
func protectedEnv(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "production", "prod", "staging", "stage":
		return true
	}
	return false
}

// planSchema resolves the mode. hybrid runs SQL migrations everywhere and AutoMigrate
// only outside protected environments; auto in a protected one needs an explicit opt-in.
func planSchema(cfg *config.Config) (schemaPlan, error) {
	p := schemaPlan{mode: strings.ToLower(strings.TrimSpace(cfg.DBSchemaMode))}
	if p.mode == "" {
		p.mode = SchemaModeHybrid
	}
	protected := protectedEnv(cfg.Env)

	switch p.mode {
	case SchemaModeSQL:
		p.sql = true
	case SchemaModeHybrid:
		p.sql, p.auto = true, !protected
	case SchemaModeAuto:
		if protected && !cfg.DBAutoMigrateAllowDestructive {
			return p, fmt.Errorf("refusing DB_SCHEMA_MODE=auto in %q without DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE=true", cfg.Env)
		}
		p.auto = true
	default:
		return p, fmt.Errorf("unsupported DB_SCHEMA_MODE %q", p.mode)
	}
	return p, nil
}

// AutoMigrate creates or alters tables for every model in PersistentModels.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(PersistentModels()...)
}

// ApplySchema brings the database to the shape this build expects.
func ApplySchema(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
	p, err := planSchema(cfg)
	if err != nil {
		return err
	}
	log := observability.L().With(zap.String("mode", p.mode), zap.String("env", cfg.Env))

	if p.sql {
		if err := RunMigrations(ctx, db); err != nil {
			return fmt.Errorf("run sql migrations: %w", err)
		}
	}
	if !p.auto {
		return nil
	}
	if protectedEnv(cfg.Env) {
		log.Warn("automigrate enabled in a protected environment; review schema diffs first")
	}
	log.Info("running gorm automigrate", zap.Int("models", len(PersistentModels())))
	if err := AutoMigrate(db.WithContext(ctx)); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return nil
}

// GetSchemaStatus reports the schema policy and pending SQL migrations.
func GetSchemaStatus(ctx context.Context, db *gorm.DB, cfg *config.Config) (*SchemaStatus, error) {
	p, err := planSchema(cfg)
	if err != nil {
		return nil, err
	}

	status := &SchemaStatus{
		Mode:               p.mode,
		Environment:        cfg.Env,
		WillRunSQL:         p.sql,
		WillRunAutoMigrate: p.auto,
	}
	if !p.sql {
		return status, nil
	}

	store := NewMigrationStore(db)
	applied, err := store.GetAppliedMigrations(ctx)
	if err != nil {
		return nil, err
	}
	status.AppliedVersions = applied

	pending, err := plan(ctx, store, GetMigrations())
	if err != nil {
		return nil, err
	}
	status.PendingMigrations = pending

	return status, nil
}
