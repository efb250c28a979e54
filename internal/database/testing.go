package database

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/axellelanca/linkstats/internal/config"
	"gorm.io/gorm"
)

var memSeq atomic.Int64

// OpenTest opens a migrated in-memory SQLite database private to the test.
// A single connection is kept open so that concurrent queries see the same data.
func OpenTest(t testing.TB) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	var cfg config.Config
	cfg.Database.Driver = "sqlite"
	cfg.Database.Name = fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, memSeq.Add(1))
	cfg.Log.GormLevel = "silent"

	db, err := Open(cfg)
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get test database: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := Migrate(db); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}
	return db
}
