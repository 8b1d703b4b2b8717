package database

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/tsamuels456/unboundedfigures/internal/observability"
)

// MigrationLog is one applied migration. Checksum is the sha256 of the up script
// at apply time; rows written before checksums existed have it empty.
type MigrationLog struct {
	Version   int       `gorm:"primaryKey;autoIncrement:false"`
	Name      string    `gorm:"size:255"`
	Checksum  string    `gorm:"size:64"`
	AppliedAt time.Time `gorm:"autoCreateTime"`
}

func (MigrationLog) TableName() string {
	return "migration_logs"
}

// MigrationStore reads and writes migration_logs.
type MigrationStore struct {
	db *gorm.DB
}

func NewMigrationStore(db *gorm.DB) *MigrationStore {
	return &MigrationStore{db: db}
}

// Applied returns the log ordered by version. A missing table reads as empty.
func (s *MigrationStore) Applied(ctx context.Context) ([]MigrationLog, error) {
	var logs []MigrationLog
	if !s.db.Migrator().HasTable(&MigrationLog{}) {
		return logs, nil
	}
	if err := s.db.WithContext(ctx).Order("version ASC").Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("read migration_logs: %w", err)
	}
	return logs, nil
}

// GetAppliedMigrations returns applied versions in ascending order.
func (s *MigrationStore) GetAppliedMigrations(ctx context.Context) ([]int, error) {
	logs, err := s.Applied(ctx)
	if err != nil {
		return nil, err
	}
	versions := make([]int, 0, len(logs))
	for _, l := range logs {
		versions = append(versions, l.Version)
	}
	return versions, nil
}

// apply runs m.UpScript and records it in one transaction.
func (s *MigrationStore) apply(ctx context.Context, m Migration) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(m.UpScript).Error; err != nil {
			return fmt.Errorf("apply %s: %w", m.String(), err)
		}
		if err := tx.Create(&MigrationLog{Version: m.Version, Name: m.Name, Checksum: m.Checksum()}).Error; err != nil {
			return fmt.Errorf("record %s: %w", m.String(), err)
		}
		return nil
	})
}

// revert runs m.DownScript and drops its log row in one transaction.
func (s *MigrationStore) revert(ctx context.Context, m Migration) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(m.DownScript).Error; err != nil {
			return fmt.Errorf("roll back %s: %w", m.String(), err)
		}
		return tx.Where("version = ?", m.Version).Delete(&MigrationLog{}).Error
	})
}

// RunMigrations applies every embedded migration that is not yet in migration_logs.
func RunMigrations(ctx context.Context, db *gorm.DB) error {
	return runMigrations(ctx, db, migrations)
}

func runMigrations(ctx context.Context, db *gorm.DB, registered []Migration) error {
	if err := db.WithContext(ctx).AutoMigrate(&MigrationLog{}); err != nil {
		return fmt.Errorf("ensure migration_logs: %w", err)
	}

	store := NewMigrationStore(db)
	pending, err := plan(ctx, store, registered)
	if err != nil {
		return err
	}

	log := observability.L()
	for _, m := range pending {
		start := time.Now()
		if err := store.apply(ctx, m); err != nil {
			return err
		}
		log.Info("migration applied", zap.String("migration", m.String()), zap.Duration("took", time.Since(start)))
	}
	if len(pending) == 0 {
		log.Debug("schema up to date", zap.Int("registered", len(registered)))
	}
	return nil
}

// plan checks the log against registered and returns what still has to run.
func plan(ctx context.Context, store *MigrationStore, registered []Migration) ([]Migration, error) {
	logs, err := store.Applied(ctx)
	if err != nil {
		return nil, err
	}

	versions := make([]int, 0, len(logs))
	for _, l := range logs {
		versions = append(versions, l.Version)
	}
	if err := validateAppliedVersions(versions, registered); err != nil {
		return nil, err
	}
	if err := validateChecksums(logs, registered); err != nil {
		return nil, err
	}

	done := make(map[int]bool, len(logs))
	for _, l := range logs {
		done[l.Version] = true
	}
	var pending []Migration
	for _, m := range registered {
		if !done[m.Version] {
			pending = append(pending, m)
		}
	}
	return pending, nil
}

// validateAppliedVersions rejects a database migrated by code this build does not have.
func validateAppliedVersions(applied []int, registered []Migration) error {
	known := make(map[int]bool, len(registered))
	for _, m := range registered {
		known[m.Version] = true
	}

	var unknown []int
	for _, v := range applied {
		if !known[v] {
			unknown = append(unknown, v)
		}
	}
	if len(unknown) == 0 {
		return nil
	}

	sort.Ints(unknown)
	names := make([]string, len(unknown))
	for i, v := range unknown {
		names[i] = fmt.Sprintf("%06d", v)
	}
	return fmt.Errorf("migration_logs has versions this build does not know: %s (drop the development database to rebuild)",
		strings.Join(names, ", "))
}

// validateChecksums rejects applied migrations whose script was edited afterwards.
func validateChecksums(logs []MigrationLog, registered []Migration) error {
	byVersion := make(map[int]Migration, len(registered))
	for _, m := range registered {
		byVersion[m.Version] = m
	}

	var edited []string
	for _, l := range logs {
		m, ok := byVersion[l.Version]
		if !ok || l.Checksum == "" {
			continue
		}
		if l.Checksum != m.Checksum() {
			edited = append(edited, m.String())
		}
	}
	if len(edited) == 0 {
		return nil
	}
	return fmt.Errorf("applied migrations were edited after they ran: %s (add a new migration instead)",
		strings.Join(edited, ", "))
}

// RollbackMigration reverts one applied migration by version.
func RollbackMigration(ctx context.Context, db *gorm.DB, version int) error {
	return rollback(ctx, db, migrations, version)
}

func rollback(ctx context.Context, db *gorm.DB, registered []Migration, version int) error {
	var target *Migration
	for i := range registered {
		if registered[i].Version == version {
			target = &registered[i]
			break
		}
	}
	if target == nil {
		return fmt.Errorf("migration version %d not found", version)
	}

	store := NewMigrationStore(db)
	applied, err := store.GetAppliedMigrations(ctx)
	if err != nil {
		return err
	}
	if !containsVersion(applied, version) {
		return fmt.Errorf("migration %s has not been applied", target.String())
	}

	if err := store.revert(ctx, *target); err != nil {
		return err
	}
	observability.L().Info("migration rolled back", zap.String("migration", target.String()))
	return nil
}

func containsVersion(versions []int, v int) bool {
	for _, x := range versions {
		if x == v {
			return true
		}
	}
	return false
}
