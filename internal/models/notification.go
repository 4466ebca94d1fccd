package models

import (
	"time"

	"gorm.io/datatypes"
)

// Notification is a classified event addressed to a user or, through GroupCode, to every
// member of a fan-out group. Records are never deleted; only the status and the read-by
// set change after creation.
type Notification struct {
	BaseModel

	UserID    string `gorm:"type:varchar(64);index" json:"user_id"`
	GroupCode string `gorm:"type:varchar(64);index" json:"group_code,omitempty"`

	Summary string `gorm:"type:varchar(255);not null" json:"summary"`
	Details string `gorm:"type:text" json:"details,omitempty"`

	MainCategoryCode string `gorm:"type:varchar(64);index" json:"main_category_code"`
	SubCategoryCode  string `gorm:"type:varchar(64);index" json:"sub_category_code,omitempty"`

	StatusID uint                `gorm:"not null;index" json:"status_id"`
	Status   *NotificationStatus `gorm:"foreignKey:StatusID" json:"status,omitempty"`

	// SortOrder is the creation time in microseconds; (SortOrder, ID) orders the feed.
	SortOrder int64 `gorm:"not null;index:idx_notifications_feed,priority:1" json:"sort_order"`

	ExpiresAt       *time.Time `gorm:"index" json:"expires_at,omitempty"`
	ScheduledSendAt *time.Time `gorm:"index" json:"scheduled_send_at,omitempty"`

	ImageURL  string         `gorm:"type:text" json:"image_url,omitempty"`
	ActionURL string         `gorm:"type:text" json:"action_url,omitempty"`
	Metadata  datatypes.JSON `json:"metadata,omitempty"`

	Reads []NotificationRead `gorm:"foreignKey:NotificationID" json:"-"`
}

// NotificationRead records that a recipient has read a notification. Rows are only ever inserted.
type NotificationRead struct {
	NotificationID string    `gorm:"primaryKey;type:varchar(36)" json:"notification_id"`
	UserID         string    `gorm:"primaryKey;type:varchar(64);index" json:"user_id"`
	ReadAt         time.Time `gorm:"not null" json:"read_at"`
}
