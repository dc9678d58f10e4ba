package testutil

import (
	"fmt"
	"testing"

	"spellbreak/config"
	"spellbreak/internal/db"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// SetupSQLite opens a private in-memory sqlite database and migrates it.
// Every call gets its own database, closed when the test ends.
func SetupSQLite(t *testing.T) *gorm.DB {
	t.Helper()

	cfg := &config.DatabaseConfig{
		Driver:   config.DriverSQLite,
		Path:     fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
		LogLevel: "silent",
	}

	gdb, err := db.InitDB(cfg)
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))

	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return gdb
}
