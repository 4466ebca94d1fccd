package models

import "time"

// Status codes of the seeded notification lifecycle. Other packages resolve statuses by
// these codes, never by numeric id.
const (
	StatusPending = "pending"
	StatusSent    = "sent"
	StatusRead    = "read"
	StatusFailed  = "failed"
)

// StatusSeedVersion is bumped whenever StatusSeeds changes.
const StatusSeedVersion = "1"

// NotificationStatus is a seeded lifecycle state.
type NotificationStatus struct {
	ID        uint      `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Code      string    `gorm:"type:varchar(32);uniqueIndex;not null" json:"code"`
	Name      string    `gorm:"type:varchar(64);not null" json:"name"`
	Color     string    `gorm:"type:varchar(16)" json:"color"`
	BgColor   string    `gorm:"type:varchar(16)" json:"bgcolor"`
	SortOrder int       `gorm:"not null;default:0" json:"sort_order"`
	Terminal  bool      `gorm:"not null;default:false" json:"terminal"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StatusSeeds returns the fixed status rows.
func StatusSeeds() []NotificationStatus {
	return []NotificationStatus{
		{ID: 1, Code: StatusPending, Name: "Pending", Color: "#8a6d3b", BgColor: "#fcf8e3", SortOrder: 10},
		{ID: 2, Code: StatusSent, Name: "Sent", Color: "#31708f", BgColor: "#d9edf7", SortOrder: 20},
		{ID: 3, Code: StatusRead, Name: "Read", Color: "#3c763d", BgColor: "#dff0d8", SortOrder: 30, Terminal: true},
		{ID: 4, Code: StatusFailed, Name: "Failed", Color: "#a94442", BgColor: "#f2dede", SortOrder: 40, Terminal: true},
	}
}
