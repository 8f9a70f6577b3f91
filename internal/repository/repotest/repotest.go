// Package repotest opens throwaway SQLite databases for tests.
package repotest

import (
	"path/filepath"
	"testing"

	"github.com/timmy/ipv4-deal-os/internal/config"
	"github.com/timmy/ipv4-deal-os/internal/repository"
	"gorm.io/gorm"
)

// NewDB returns a migrated SQLite database living in t.TempDir().
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := repository.InitDB(&config.DatabaseConfig{
		Driver:      "sqlite",
		Path:        filepath.Join(t.TempDir(), "dealos.db"),
		AutoMigrate: true,
		LogLevel:    "silent",
	})
	if err != nil {
		t.Fatalf("init test db: %v", err)
	}

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}
