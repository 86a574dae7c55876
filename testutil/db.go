// Package testutil provides fixtures shared by package tests.
package testutil

import (
	"context"
	"testing"

	"gorm.io/gorm"

	"github.com/compoundhabits/habits/config"
	"github.com/compoundhabits/habits/migrations"
)

// NewDB returns a migrated, private in-memory SQLite database closed at test end.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := config.OpenDatabase(config.AppConfig{
		DBDriver:   "sqlite",
		SQLitePath: config.MemorySQLite,
		LogLevel:   "silent",
	})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	if _, err := migrations.Up(context.Background(), db); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}
	return db
}
