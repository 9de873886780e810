package persistence

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/qcdash/backend/internal/infrastructure/persistence/models"
	"github.com/qcdash/backend/migrations"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB opens an in-memory SQLite database with the full schema
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db := openSQLite(t, "file::memory:")
	require.NoError(t, db.AutoMigrate(models.AllModels()...))
	return db
}

// setupMigratedTestDB opens an in-memory SQLite database with foreign keys
// enforced and the shipped up migrations applied, so constraint behaviour
// matches PostgreSQL.
func setupMigratedTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db := openSQLite(t, "file::memory:?_foreign_keys=on")

	ups, err := fs.Glob(migrations.FS, "*.up.sql")
	require.NoError(t, err)
	require.NotEmpty(t, ups)
	for _, name := range ups {
		raw, err := fs.ReadFile(migrations.FS, name)
		require.NoError(t, err)
		// SQLite only accepts constant defaults without parentheses
		schema := strings.ReplaceAll(string(raw), "DEFAULT NOW()", "DEFAULT CURRENT_TIMESTAMP")
		require.NoError(t, db.Exec(schema).Error, name)
	}
	return db
}

func openSQLite(t *testing.T, dsn string) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// a single connection keeps every query on the same in-memory database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}
