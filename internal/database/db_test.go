package database

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/taskhub/internal/models"
)

func TestOpenSQLiteMemory(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.Exec("SELECT 1").Error)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(Config{Driver: "oracle"})
	require.Error(t, err)
}

func TestAutoMigrateAndSeedStatuses(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, AutoMigrateAndSeed(db))

	var statuses []models.NotificationStatus
	require.NoError(t, db.Order("sort_order ASC").Find(&statuses).Error)
	require.Len(t, statuses, 4)
	require.Equal(t, models.StatusPending, statuses[0].Code)
	require.Equal(t, models.StatusFailed, statuses[3].Code)

	version, err := GetSystemSetting(context.Background(), db, StatusSeedVersionSetting)
	require.NoError(t, err)
	require.Equal(t, models.StatusSeedVersion, version)
}

func TestSeedDataIsIdempotentAndRefreshesOnVersionChange(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, AutoMigrateAndSeed(db))

	require.NoError(t, db.Model(&models.NotificationStatus{}).Where("code = ?", models.StatusSent).Update("name", "Delivered").Error)

	// Same version: local edits survive.
	require.NoError(t, SeedData(db))
	var sent models.NotificationStatus
	require.NoError(t, db.Where("code = ?", models.StatusSent).First(&sent).Error)
	require.Equal(t, "Delivered", sent.Name)

	// Older recorded version: rows are refreshed from the seed set.
	require.NoError(t, UpsertSystemSetting(context.Background(), db, StatusSeedVersionSetting, "0"))
	require.NoError(t, SeedData(db))
	require.NoError(t, db.Where("code = ?", models.StatusSent).First(&sent).Error)
	require.Equal(t, "Sent", sent.Name)

	var count int64
	require.NoError(t, db.Model(&models.NotificationStatus{}).Count(&count).Error)
	require.Equal(t, int64(4), count)
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := Open(Config{Driver: "sqlite", DSN: fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1", name)})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}
