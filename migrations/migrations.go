// Package migrations owns the database schema. Each migration is applied once,
// inside its own transaction, and recorded in schema_migrations.
package migrations

import (
	"context"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"
)

// Migration is a single schema step.
type Migration struct {
	Version int
	Name    string
	Up      func(tx *gorm.DB) error
}

// SchemaMigration records an applied migration.
type SchemaMigration struct {
	Version   int       `gorm:"primaryKey;autoIncrement:false"`
	Name      string    `gorm:"size:128;not null"`
	AppliedAt time.Time `gorm:"not null"`
}

// TableName keeps the bookkeeping table name stable regardless of naming strategy.
func (SchemaMigration) TableName() string { return "schema_migrations" }

// State describes one migration for status reporting.
type State struct {
	Version   int
	Name      string
	Applied   bool
	AppliedAt time.Time
}

// Schema snapshots. They are frozen copies of the models at the version that
// introduced them and must not follow later model changes.

type userV1 struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	Provider  string `gorm:"size:32;not null;uniqueIndex:idx_users_provider_subject"`
	Subject   string `gorm:"size:255;not null;uniqueIndex:idx_users_provider_subject"`
	Email     string `gorm:"size:255"`
	Name      string `gorm:"size:255"`
	AvatarURL string `gorm:"size:512"`
	CreatedAt time.Time
}

func (userV1) TableName() string { return "users" }

type habitV1 struct {
	ID           uint    `gorm:"primaryKey;autoIncrement"`
	UserID       uint    `gorm:"index;not null"`
	Name         string  `gorm:"size:255;not null"`
	Unit         *string `gorm:"size:64"`
	DefaultValue float64 `gorm:"not null;default:1"`
	CreatedAt    time.Time
}

func (habitV1) TableName() string { return "habits" }

type entryV1 struct {
	ID        uint    `gorm:"primaryKey;autoIncrement"`
	HabitID   uint    `gorm:"not null"`
	Habit     habitV1 `gorm:"foreignKey:HabitID;constraint:OnDelete:CASCADE;"`
	Value     float64 `gorm:"not null"`
	Date      string  `gorm:"column:date;size:10;not null"`
	Timestamp int64   `gorm:"column:timestamp;not null"`
}

func (entryV1) TableName() string { return "entries" }

// All returns the ordered list of known migrations.
func All() []Migration {
	return []Migration{
		{Version: 1, Name: "create_users", Up: func(tx *gorm.DB) error {
			return tx.Migrator().CreateTable(&userV1{})
		}},
		{Version: 2, Name: "create_habits", Up: func(tx *gorm.DB) error {
			return tx.Migrator().CreateTable(&habitV1{})
		}},
		{Version: 3, Name: "create_entries", Up: func(tx *gorm.DB) error {
			return tx.Migrator().CreateTable(&entryV1{})
		}},
		{Version: 4, Name: "index_entries_by_habit", Up: func(tx *gorm.DB) error {
			if err := tx.Exec("CREATE INDEX idx_entries_habit_date ON entries (habit_id, date)").Error; err != nil {
				return err
			}
			return tx.Exec("CREATE INDEX idx_entries_habit_timestamp ON entries (habit_id, timestamp)").Error
		}},
	}
}

// Up applies every pending migration and returns the versions it applied.
func Up(ctx context.Context, db *gorm.DB) ([]int, error) {
	return apply(ctx, db, All())
}

// Status reports applied and pending migrations in version order.
func Status(ctx context.Context, db *gorm.DB) ([]State, error) {
	applied, err := appliedVersions(ctx, db)
	if err != nil {
		return nil, err
	}
	var states []State
	for _, m := range sorted(All()) {
		st := State{Version: m.Version, Name: m.Name}
		if rec, ok := applied[m.Version]; ok {
			st.Applied = true
			st.AppliedAt = rec.AppliedAt
		}
		states = append(states, st)
	}
	return states, nil
}

func apply(ctx context.Context, db *gorm.DB, list []Migration) ([]int, error) {
	if err := validate(list); err != nil {
		return nil, err
	}
	applied, err := appliedVersions(ctx, db)
	if err != nil {
		return nil, err
	}

	var done []int
	for _, m := range sorted(list) {
		if _, ok := applied[m.Version]; ok {
			continue
		}
		m := m
		err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := m.Up(tx); err != nil {
				return err
			}
			return tx.Create(&SchemaMigration{Version: m.Version, Name: m.Name, AppliedAt: time.Now()}).Error
		})
		if err != nil {
			return done, fmt.Errorf("migration %03d_%s: %w", m.Version, m.Name, err)
		}
		done = append(done, m.Version)
	}
	return done, nil
}

func appliedVersions(ctx context.Context, db *gorm.DB) (map[int]SchemaMigration, error) {
	db = db.WithContext(ctx)
	if !db.Migrator().HasTable(&SchemaMigration{}) {
		if err := db.Migrator().CreateTable(&SchemaMigration{}); err != nil {
			return nil, fmt.Errorf("create schema_migrations: %w", err)
		}
	}
	var rows []SchemaMigration
	if err := db.Order("version").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("read schema_migrations: %w", err)
	}
	out := make(map[int]SchemaMigration, len(rows))
	for _, r := range rows {
		out[r.Version] = r
	}
	return out, nil
}

func validate(list []Migration) error {
	seen := make(map[int]string, len(list))
	for _, m := range list {
		if m.Version < 1 {
			return fmt.Errorf("migration %q: version must be at least 1", m.Name)
		}
		if other, dup := seen[m.Version]; dup {
			return fmt.Errorf("duplicate migration version %d (%s, %s)", m.Version, other, m.Name)
		}
		if m.Up == nil {
			return fmt.Errorf("migration %d has no Up step", m.Version)
		}
		seen[m.Version] = m.Name
	}
	return nil
}

func sorted(list []Migration) []Migration {
	out := append([]Migration(nil), list...)
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out
}
