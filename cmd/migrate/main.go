// Command migrate applies, inspects and rolls back the SQL schema.
//
//	migrate up               apply pending SQL migrations
//	migrate auto             run GORM AutoMigrate (refused in production without opt-in)
//	migrate status           show the schema policy and pending migrations
//	migrate history          list applied migrations with their checksums
//	migrate down <version>   roll back one applied migration
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/tsamuels456/unboundedfigures/internal/config"
	"github.com/tsamuels456/unboundedfigures/internal/database"
	"github.com/tsamuels456/unboundedfigures/internal/observability"
)

var errUsage = errors.New("usage: migrate [-timeout d] <up|auto|status|history|down> [version]")

type command func(ctx context.Context, db *gorm.DB, cfg *config.Config, args []string) error

var commands = map[string]command{
	"up":      up,
	"auto":    auto,
	"status":  status,
	"history": history,
	"down":    down,
}

func main() {
	timeout := flag.Duration("timeout", 5*time.Minute, "abort schema work after this long")
	flag.Parse()

	if err := run(*timeout, flag.Args()); err != nil {
		log.Fatal(err)
	}
}

func run(timeout time.Duration, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	cmd, ok := commands[strings.ToLower(strings.TrimSpace(args[0]))]
	if !ok {
		return errUsage
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := observability.InitLogger(observability.LogConfig{Level: cfg.LogLevel, Development: !cfg.IsProduction()}); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer observability.Sync()

	db, err := database.ConnectWithOptions(cfg, database.ConnectOptions{ApplySchema: false})
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer func() { _ = database.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return cmd(ctx, db, cfg, args[1:])
}

func up(ctx context.Context, db *gorm.DB, _ *config.Config, _ []string) error {
	if err := database.RunMigrations(ctx, db); err != nil {
		return fmt.Errorf("migrate up: %w", err)
	}
	observability.L().Info("sql migrations applied")
	return nil
}

func auto(ctx context.Context, db *gorm.DB, cfg *config.Config, _ []string) error {
	cfg.DBSchemaMode = database.SchemaModeAuto
	if err := database.ApplySchema(ctx, db, cfg); err != nil {
		return fmt.Errorf("migrate auto: %w", err)
	}
	observability.L().Info("automigrate finished")
	return nil
}

func status(ctx context.Context, db *gorm.DB, cfg *config.Config, _ []string) error {
	st, err := database.GetSchemaStatus(ctx, db, cfg)
	if err != nil {
		return fmt.Errorf("migrate status: %w", err)
	}
	log := observability.L()
	log.Info("schema status",
		zap.String("mode", st.Mode),
		zap.String("env", st.Environment),
		zap.Bool("run_sql", st.WillRunSQL),
		zap.Bool("run_auto", st.WillRunAutoMigrate),
		zap.Int("applied", len(st.AppliedVersions)),
		zap.Int("pending", len(st.PendingMigrations)),
	)
	for _, m := range st.PendingMigrations {
		log.Info("pending", zap.String("migration", m.String()))
	}
	return nil
}

func history(ctx context.Context, db *gorm.DB, _ *config.Config, _ []string) error {
	logs, err := database.NewMigrationStore(db).Applied(ctx)
	if err != nil {
		return fmt.Errorf("migrate history: %w", err)
	}
	for _, l := range logs {
		checksum := l.Checksum
		if len(checksum) > 12 {
			checksum = checksum[:12]
		}
		fmt.Printf("%06d  %-40s  %s  %s\n", l.Version, l.Name, l.AppliedAt.UTC().Format(time.RFC3339), checksum)
	}
	return nil
}

func down(ctx context.Context, db *gorm.DB, _ *config.Config, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	version, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid version %q: %w", args[0], err)
	}
	if err := database.RollbackMigration(ctx, db, version); err != nil {
		return fmt.Errorf("migrate down: %w", err)
	}
	observability.L().Info("rolled back", zap.Int("version", version))
	return nil
}
