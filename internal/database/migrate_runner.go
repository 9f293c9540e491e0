package database

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"atomvideo/internal/middleware"

	"gorm.io/gorm"
)

// MigrationLog represents a record of an applied migration in the database.
type MigrationLog struct {
	Version   int       `gorm:"primaryKey;autoIncrement:false"`
	Name      string    `gorm:"size:255;not null"`
	AppliedAt time.Time `gorm:"autoCreateTime"`
}

// TableName returns the database table name for MigrationLog.
func (MigrationLog) TableName() string {
	return "migration_logs"
}

// MigrationState pairs a migration with whether it has been applied.
type MigrationState struct {
	Version int
	Name    string
	Applied bool
}

// Migrator applies versioned SQL migrations and records them in migration_logs.
type Migrator struct {
	db         *gorm.DB
	migrations []Migration
}

// NewMigrator returns a Migrator over the given migration set.
func NewMigrator(db *gorm.DB, migrations []Migration) *Migrator {
	return &Migrator{db: db, migrations: migrations}
}

func (m *Migrator) applied(ctx context.Context) (map[int]bool, error) {
	if err := m.db.WithContext(ctx).AutoMigrate(&MigrationLog{}); err != nil {
		return nil, fmt.Errorf("failed to ensure migration logs table: %w", err)
	}

	var versions []int
	if err := m.db.WithContext(ctx).Model(&MigrationLog{}).Order("version ASC").Pluck("version", &versions).Error; err != nil {
		return nil, fmt.Errorf("failed to get applied migrations: %w", err)
	}

	known := make(map[int]struct{}, len(m.migrations))
	for _, mg := range m.migrations {
		known[mg.Version] = struct{}{}
	}
	var unknown []string
	set := make(map[int]bool, len(versions))
	for _, v := range versions {
		set[v] = true
		if _, ok := known[v]; !ok {
			unknown = append(unknown, fmt.Sprintf("%06d", v))
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, fmt.Errorf("database has migrations unknown to this binary: %s", strings.Join(unknown, ", "))
	}
	return set, nil
}

// Up applies every pending migration in version order and returns how many ran.
func (m *Migrator) Up(ctx context.Context) (int, error) {
	done, err := m.applied(ctx)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, mg := range m.migrations {
		if done[mg.Version] {
			continue
		}
		middleware.Logger.Info("Applying migration", slog.Int("version", mg.Version), slog.String("name", mg.Name))
		err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Exec(mg.UpScript).Error; err != nil {
				return fmt.Errorf("failed to apply migration %d (%s): %w", mg.Version, mg.Name, err)
			}
			return tx.Create(&MigrationLog{Version: mg.Version, Name: mg.Name}).Error
		})
		if err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

// Down rolls back the most recent steps applied migrations.
func (m *Migrator) Down(ctx context.Context, steps int) (int, error) {
	done, err := m.applied(ctx)
	if err != nil {
		return 0, err
	}

	count := 0
	for i := len(m.migrations) - 1; i >= 0 && count < steps; i-- {
		mg := m.migrations[i]
		if !done[mg.Version] {
			continue
		}
		err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Exec(mg.DownScript).Error; err != nil {
				return fmt.Errorf("failed to roll back migration %d (%s): %w", mg.Version, mg.Name, err)
			}
			return tx.Where("version = ?", mg.Version).Delete(&MigrationLog{}).Error
		})
		if err != nil {
			return count, err
		}
		middleware.Logger.Info("Migration rolled back", slog.Int("version", mg.Version))
		count++
	}
	return count, nil
}

// Status lists every known migration and whether it is applied.
func (m *Migrator) Status(ctx context.Context) ([]MigrationState, error) {
	done, err := m.applied(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]MigrationState, 0, len(m.migrations))
	for _, mg := range m.migrations {
		out = append(out, MigrationState{Version: mg.Version, Name: mg.Name, Applied: done[mg.Version]})
	}
	return out, nil
}
