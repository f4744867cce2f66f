// Package testutil provides shared helpers for package tests.
package testutil

import (
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/expenseflow/expenseflow/pkg/database"
)

// NewTestDB opens a sqlite database in a temp directory with all
// migrations applied. A file-backed database (not :memory:) is used so
// tests exercising concurrent transactions behave like production.
func NewTestDB(t *testing.T) *database.DB {
	t.Helper()

	logger := zap.NewNop()
	db, err := database.New(database.Config{
		Path:         filepath.Join(t.TempDir(), "test.db"),
		MaxOpenConns: 5,
		MaxIdleConns: 2,
	}, logger)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := database.NewMigrator(db, logger).RunMigrations(); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	return db
}
