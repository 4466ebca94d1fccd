package database

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/charlesng35/taskhub/internal/models"
)

// StatusSeedVersionSetting records which version of the status seed rows is applied.
const StatusSeedVersionSetting = "notifications.status_seed_version"

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.SystemSetting{},
		&models.NotificationStatus{},
		&models.Notification{},
		&models.NotificationRead{},
	)
}

// SeedData inserts the notification status rows. Existing rows are refreshed when the
// recorded seed version differs from models.StatusSeedVersion; ids and codes never change.
func SeedData(db *gorm.DB) error {
	ctx := context.Background()

	applied, err := GetSystemSetting(ctx, db, StatusSeedVersionSetting)
	if err != nil {
		return err
	}
	refresh := applied != models.StatusSeedVersion

	return db.Transaction(func(tx *gorm.DB) error {
		for _, status := range models.StatusSeeds() {
			query := tx.Where(models.NotificationStatus{ID: status.ID}).Attrs(status)
			if refresh {
				query = query.Assign(map[string]any{
					"code":       status.Code,
					"name":       status.Name,
					"color":      status.Color,
					"bg_color":   status.BgColor,
					"sort_order": status.SortOrder,
					"terminal":   status.Terminal,
				})
			}
			if err := query.FirstOrCreate(&models.NotificationStatus{}).Error; err != nil {
				return fmt.Errorf("seed status %q: %w", status.Code, err)
			}
		}

		if refresh {
			return UpsertSystemSetting(ctx, tx, StatusSeedVersionSetting, models.StatusSeedVersion)
		}
		return nil
	})
}
