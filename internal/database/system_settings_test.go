package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/taskhub/internal/models"
)

func TestGetAndUpsertSystemSetting(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.AutoMigrate(&models.SystemSetting{}))

	value, err := GetSystemSetting(context.Background(), db, "missing")
	require.NoError(t, err)
	require.Equal(t, "", value)

	require.NoError(t, UpsertSystemSetting(context.Background(), db, "sample", "value1"))

	retrieved, err := GetSystemSetting(context.Background(), db, "sample")
	require.NoError(t, err)
	require.Equal(t, "value1", retrieved)

	require.NoError(t, UpsertSystemSetting(context.Background(), db, "sample", "value2"))

	retrieved, err = GetSystemSetting(context.Background(), db, "sample")
	require.NoError(t, err)
	require.Equal(t, "value2", retrieved)

	require.Error(t, UpsertSystemSetting(context.Background(), db, " ", "value"))
}

func TestGetSystemSettingBeforeMigration(t *testing.T) {
	db := openTestDB(t)

	value, err := GetSystemSetting(context.Background(), db, StatusSeedVersionSetting)
	require.NoError(t, err)
	require.Empty(t, value)
}
