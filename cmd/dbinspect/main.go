// Command dbinspect prints schema details for a development database and can wipe it.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/tsamuels456/unboundedfigures/internal/config"
	"github.com/tsamuels456/unboundedfigures/internal/database"
	"github.com/tsamuels456/unboundedfigures/internal/observability"
)

var errUsage = errors.New("usage: dbinspect <counts|columns <table>|constraints [table]|reset -yes>")

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	yes := flag.Bool("yes", false, "Confirm reset")
	timeout := flag.Duration("timeout", time.Minute, "Abort after this long")
	flag.Parse()
	if flag.NArg() < 1 {
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
	logger := observability.L()

	db, err := database.ConnectWithOptions(cfg, database.ConnectOptions{ApplySchema: false})
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer func() { _ = database.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	switch strings.ToLower(flag.Arg(0)) {
	case "counts":
		counts, err := rowCounts(ctx, db)
		if err != nil {
			return err
		}
		for _, c := range counts {
			logger.Info("table", zap.String("name", c.Table), zap.Int64("rows", c.Rows))
		}
	case "columns":
		if flag.NArg() < 2 {
			return errUsage
		}
		var columns []struct {
			ColumnName string
			DataType   string
		}
		if err := db.WithContext(ctx).Raw(
			"SELECT column_name, data_type FROM information_schema.columns WHERE table_name = ? ORDER BY ordinal_position",
			flag.Arg(1),
		).Scan(&columns).Error; err != nil {
			return fmt.Errorf("list columns: %w", err)
		}
		for _, c := range columns {
			logger.Info("column", zap.String("name", c.ColumnName), zap.String("type", c.DataType))
		}
	case "constraints":
		var result []struct {
			Relname string
			Conname string
			Def     string
		}
		q := db.WithContext(ctx).Table("pg_constraint c").
			Select("r.relname, c.conname, pg_get_constraintdef(c.oid) AS def").
			Joins("JOIN pg_class r ON c.conrelid = r.oid").
			Joins("JOIN pg_namespace n ON n.oid = r.relnamespace").
			Where("n.nspname = ?", "public")
		if flag.NArg() > 1 {
			q = q.Where("r.relname = ?", flag.Arg(1))
		}
		if err := q.Order("r.relname, c.conname").Scan(&result).Error; err != nil {
			return fmt.Errorf("list constraints: %w", err)
		}
		for _, r := range result {
			logger.Info("constraint", zap.String("table", r.Relname), zap.String("name", r.Conname), zap.String("def", r.Def))
		}
	case "reset":
		if err := checkReset(cfg, *yes); err != nil {
			return err
		}
		if err := db.WithContext(ctx).Exec("DROP SCHEMA public CASCADE; CREATE SCHEMA public;").Error; err != nil {
			return fmt.Errorf("drop schema: %w", err)
		}
		if err := db.WithContext(ctx).Exec("GRANT ALL ON SCHEMA public TO public;").Error; err != nil {
			return fmt.Errorf("grant schema permissions: %w", err)
		}
		logger.Warn("database reset", zap.String("db", cfg.DBName))
	default:
		return errUsage
	}
	return nil
}

// tableCount is the row count of one schema-managed table.
type tableCount struct {
	Table string
	Rows  int64
}

func rowCounts(ctx context.Context, db *gorm.DB) ([]tableCount, error) {
	out := make([]tableCount, 0, len(database.PersistentModels()))
	for _, m := range database.PersistentModels() {
		stmt := &gorm.Statement{DB: db}
		if err := stmt.Parse(m); err != nil {
			return nil, fmt.Errorf("parse model: %w", err)
		}
		var n int64
		if err := db.WithContext(ctx).Model(m).Count(&n).Error; err != nil {
			return nil, fmt.Errorf("count %s: %w", stmt.Schema.Table, err)
		}
		out = append(out, tableCount{Table: stmt.Schema.Table, Rows: n})
	}
	return out, nil
}

func checkReset(cfg *config.Config, confirmed bool) error {
	if cfg.IsProduction() {
		return errors.New("refusing to reset a production database")
	}
	if !confirmed {
		return errors.New("reset drops every table; pass -yes to confirm")
	}
	return nil
}
