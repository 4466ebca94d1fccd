package notifications

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/charlesng35/taskhub/internal/models"
)

// transitions lists the allowed forward moves. Read and Failed are terminal.
var transitions = map[string]map[string]struct{}{
	models.StatusPending: {
		models.StatusSent:   {},
		models.StatusRead:   {},
		models.StatusFailed: {},
	},
	models.StatusSent: {
		models.StatusRead:   {},
		models.StatusFailed: {},
	},
}

// CanTransition reports whether a record may move from one status code to another.
// Moving to the same status is not a transition.
func CanTransition(from, to string) bool {
	from = normalizeStatusCode(from)
	to = normalizeStatusCode(to)
	if from == to {
		return false
	}
	_, ok := transitions[from][to]
	return ok
}

// IsTerminal reports whether no transition leaves the status.
func IsTerminal(code string) bool {
	return len(transitions[normalizeStatusCode(code)]) == 0
}

// StatusRegistry resolves seeded status rows by code and id.
type StatusRegistry struct {
	ordered []models.NotificationStatus
	byCode  map[string]models.NotificationStatus
	byID    map[uint]models.NotificationStatus
}

// NewStatusRegistry indexes rows. Every lifecycle code must be present.
func NewStatusRegistry(rows []models.NotificationStatus) (*StatusRegistry, error) {
	reg := &StatusRegistry{
		ordered: make([]models.NotificationStatus, 0, len(rows)),
		byCode:  make(map[string]models.NotificationStatus, len(rows)),
		byID:    make(map[uint]models.NotificationStatus, len(rows)),
	}
	for _, row := range rows {
		code := normalizeStatusCode(row.Code)
		if _, dup := reg.byCode[code]; dup {
			return nil, fmt.Errorf("notification statuses: duplicate code %q", row.Code)
		}
		reg.ordered = append(reg.ordered, row)
		reg.byCode[code] = row
		reg.byID[row.ID] = row
	}

	for _, code := range []string{models.StatusPending, models.StatusSent, models.StatusRead, models.StatusFailed} {
		if _, ok := reg.byCode[code]; !ok {
			return nil, fmt.Errorf("notification statuses: missing seeded status %q", code)
		}
	}
	return reg, nil
}

// LoadStatusRegistry reads the seeded statuses from db.
func LoadStatusRegistry(ctx context.Context, db *gorm.DB) (*StatusRegistry, error) {
	if db == nil {
		return nil, errors.New("notification statuses: db is required")
	}
	var rows []models.NotificationStatus
	if err := db.WithContext(ctx).Order("sort_order ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("notification statuses: load: %w", err)
	}
	return NewStatusRegistry(rows)
}

// ByCode returns the status with the given code, case-insensitively.
func (r *StatusRegistry) ByCode(code string) (models.NotificationStatus, bool) {
	status, ok := r.byCode[normalizeStatusCode(code)]
	return status, ok
}

// ByID returns the status with the given id.
func (r *StatusRegistry) ByID(id uint) (models.NotificationStatus, bool) {
	status, ok := r.byID[id]
	return status, ok
}

// MustID returns the id of a seeded lifecycle code.
func (r *StatusRegistry) MustID(code string) uint {
	status, ok := r.ByCode(code)
	if !ok {
		panic(fmt.Sprintf("notification statuses: unknown code %q", code))
	}
	return status.ID
}

// All returns the statuses in display order.
func (r *StatusRegistry) All() []models.NotificationStatus {
	out := make([]models.NotificationStatus, len(r.ordered))
	copy(out, r.ordered)
	return out
}

func normalizeStatusCode(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}
