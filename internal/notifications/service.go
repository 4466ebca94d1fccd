package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/charlesng35/taskhub/internal/catalog"
	"github.com/charlesng35/taskhub/internal/models"
	"github.com/charlesng35/taskhub/internal/pagination"
	"github.com/charlesng35/taskhub/internal/realtime"
	apperrors "github.com/charlesng35/taskhub/pkg/errors"
	"github.com/charlesng35/taskhub/pkg/logger"
	"github.com/charlesng35/taskhub/pkg/metrics"
)

const maxTransitionAttempts = 5

var feedColumns = pagination.Columns{
	SortOrder: "notifications.sort_order",
	ID:        "notifications.id",
}

// Publisher pushes notification events to connected clients. *realtime.Hub satisfies it.
type Publisher interface {
	NotifyUser(ctx context.Context, userID, event string, data any) error
	NotifyGroup(ctx context.Context, groupCode, event string, data any) error
}

// Recipient identifies the caller of a feed operation: their user id and the fan-out
// groups they belong to.
type Recipient struct {
	UserID string
	Groups []string
}

// StatusDTO is the display form of a status row.
type StatusDTO struct {
	Code    string `json:"code"`
	Name    string `json:"name"`
	Color   string `json:"color"`
	BgColor string `json:"bgcolor"`
}

// NotificationDTO represents the API-friendly notification payload. IsRead is computed
// for the requesting recipient only.
type NotificationDTO struct {
	ID               string         `json:"id"`
	UserID           string         `json:"user_id,omitempty"`
	GroupCode        string         `json:"group_code,omitempty"`
	Summary          string         `json:"summary"`
	Details          string         `json:"details,omitempty"`
	MainCategoryCode string         `json:"main_category_code"`
	SubCategoryCode  string         `json:"sub_category_code,omitempty"`
	Status           StatusDTO      `json:"status"`
	IsRead           bool           `json:"is_read"`
	ReadAt           *time.Time     `json:"read_at,omitempty"`
	SortOrder        int64          `json:"sort_order"`
	ImageURL         string         `json:"image_url,omitempty"`
	ActionURL        string         `json:"action_url,omitempty"`
	Metadata         map[string]any `json:"metadata,omitempty"`
	ExpiresAt        *time.Time     `json:"expires_at,omitempty"`
	ScheduledSendAt  *time.Time     `json:"scheduled_send_at,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// CreateInput defines attributes required to persist a notification. One of UserID or
// GroupCode addresses it.
type CreateInput struct {
	UserID          string         `json:"user_id"`
	GroupCode       string         `json:"group_code"`
	Summary         string         `json:"summary" validate:"required,max=255"`
	Details         string         `json:"details"`
	MainCategory    string         `json:"main_category" validate:"omitempty,catalog_code"`
	SubCategory     string         `json:"sub_category" validate:"omitempty,catalog_code"`
	ExpiresAt       *time.Time     `json:"expires_at"`
	ScheduledSendAt *time.Time     `json:"scheduled_send_at"`
	ImageURL        string         `json:"image_url" validate:"omitempty,url"`
	ActionURL       string         `json:"action_url"`
	Metadata        map[string]any `json:"metadata"`
}

// ListFilter narrows a feed page.
type ListFilter struct {
	UnreadOnly  bool
	Category    string
	SubCategory string
	Status      string
	From        *time.Time
	To          *time.Time
}

// TransitionResult reports the outcome of a status change. Applied is false when the move
// is not allowed or the record already had the target status; Status is then the
// authoritative current status.
type TransitionResult struct {
	ID      string `json:"id"`
	From    string `json:"from"`
	Status  string `json:"status"`
	Applied bool   `json:"applied"`
}

// EventPayload represents data sent to realtime consumers.
type EventPayload struct {
	Notification   *NotificationDTO `json:"notification,omitempty"`
	NotificationID string           `json:"notification_id,omitempty"`
	Status         string           `json:"status,omitempty"`
}

// Service manages notification records, their lifecycle and per-recipient read state.
type Service struct {
	db        *gorm.DB
	catalog   *catalog.Provider
	statuses  *StatusRegistry
	publisher Publisher
	now       func() time.Time
	log       *zap.Logger

	lastSortOrder atomic.Int64
}

// Option customises a Service.
type Option func(*Service)

// WithPublisher pushes lifecycle events through publisher.
func WithPublisher(publisher Publisher) Option {
	return func(s *Service) {
		s.publisher = publisher
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService constructs a Service. The status table must already be seeded.
func NewService(ctx context.Context, db *gorm.DB, provider *catalog.Provider, opts ...Option) (*Service, error) {
	if db == nil {
		return nil, errors.New("notification service: db is required")
	}
	statuses, err := LoadStatusRegistry(ensureContext(ctx), db)
	if err != nil {
		return nil, err
	}

	svc := &Service{
		db:       db,
		catalog:  provider,
		statuses: statuses,
		now:      time.Now,
		log:      logger.WithModule("notifications"),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Statuses returns the status registry.
func (s *Service) Statuses() *StatusRegistry {
	return s.statuses
}

// Create classifies and persists a notification with status Pending. Notifications that
// are not scheduled for later are delivered immediately.
func (s *Service) Create(ctx context.Context, input CreateInput) (*NotificationDTO, error) {
	ctx = ensureContext(ctx)

	userID := strings.TrimSpace(input.UserID)
	groupCode := normalizeGroup(input.GroupCode)
	if userID == "" && groupCode == "" {
		return nil, apperrors.NewBadRequest("user_id or group_code is required")
	}
	summary := strings.TrimSpace(input.Summary)
	if summary == "" {
		return nil, apperrors.NewBadRequest("summary is required")
	}

	classification, err := s.catalog.Classify(input.MainCategory, input.SubCategory)
	if err != nil {
		return nil, apperrors.ErrUnknownCategory.WithInternal(err)
	}

	now := s.now().UTC()
	notification := models.Notification{
		UserID:           userID,
		GroupCode:        groupCode,
		Summary:          summary,
		Details:          strings.TrimSpace(input.Details),
		MainCategoryCode: classification.MainCategoryCode,
		SubCategoryCode:  classification.SubCategoryCode,
		StatusID:         s.statuses.MustID(models.StatusPending),
		SortOrder:        s.nextSortOrder(now),
		ExpiresAt:        utcPtr(input.ExpiresAt),
		ScheduledSendAt:  utcPtr(input.ScheduledSendAt),
		ImageURL:         strings.TrimSpace(input.ImageURL),
		ActionURL:        strings.TrimSpace(input.ActionURL),
	}

	if input.Metadata != nil {
		data, err := json.Marshal(input.Metadata)
		if err != nil {
			return nil, fmt.Errorf("notification service: marshal metadata: %w", err)
		}
		notification.Metadata = datatypes.JSON(data)
	}

	if err := s.db.WithContext(ctx).Create(&notification).Error; err != nil {
		return nil, fmt.Errorf("notification service: create notification: %w", err)
	}
	metrics.NotificationsCreated.WithLabelValues(labelOrNone(notification.MainCategoryCode)).Inc()

	if notification.ScheduledSendAt == nil || !notification.ScheduledSendAt.After(now) {
		if _, err := s.Deliver(ctx, notification.ID); err != nil {
			return nil, err
		}
		if err := s.db.WithContext(ctx).First(&notification, "id = ?", notification.ID).Error; err != nil {
			return nil, fmt.Errorf("notification service: reload notification: %w", err)
		}
	}

	dto := s.mapNotification(notification, nil)
	return &dto, nil
}

// Deliver advances a Pending notification to Sent and then pushes it to its recipients, so
// concurrent callers push at most once. A push that fails to reach the relay moves the
// record on to Failed. Non-pending records are left alone.
func (s *Service) Deliver(ctx context.Context, id string) (TransitionResult, error) {
	ctx = ensureContext(ctx)

	result, err := s.Transition(ctx, id, models.StatusSent)
	if err != nil || !result.Applied {
		return result, err
	}

	notification, err := s.load(ctx, id)
	if err != nil {
		return result, err
	}
	dto := s.mapNotification(*notification, nil)
	if err := s.publish(ctx, notification, realtime.EventNotificationCreated, &EventPayload{Notification: &dto}); err != nil {
		s.log.Warn("notification delivery failed", zap.String("id", id), zap.Error(err))
		return s.Transition(ctx, id, models.StatusFailed)
	}
	return result, nil
}

// Transition moves a notification to the status with code toCode using compare-and-set on
// the current status, re-reading and re-evaluating when a concurrent writer wins. A
// scheduled notification leaving Pending takes a fresh sort order, so it enters the feed
// ahead of every cursor issued while it was hidden.
func (s *Service) Transition(ctx context.Context, id, toCode string) (TransitionResult, error) {
	ctx = ensureContext(ctx)

	target, ok := s.statuses.ByCode(toCode)
	if !ok {
		return TransitionResult{}, apperrors.ErrUnknownStatus
	}

	var notification *models.Notification
	for attempt := 0; attempt < maxTransitionAttempts; attempt++ {
		var err error
		notification, err = s.load(ctx, id)
		if err != nil {
			return TransitionResult{}, err
		}

		from := s.statusCode(notification.StatusID)
		if !CanTransition(from, target.Code) {
			metrics.StatusTransitions.WithLabelValues(target.Code, "rejected").Inc()
			return TransitionResult{ID: id, From: from, Status: from}, nil
		}

		now := s.now().UTC()
		updates := map[string]any{
			"status_id":  target.ID,
			"updated_at": now,
		}
		var sortOrder int64
		if from == models.StatusPending && notification.ScheduledSendAt != nil {
			sortOrder = s.nextSortOrder(now)
			updates["sort_order"] = sortOrder
		}

		result := s.db.WithContext(ctx).
			Model(&models.Notification{}).
			Where("id = ? AND status_id = ?", id, notification.StatusID).
			Updates(updates)
		if result.Error != nil {
			return TransitionResult{}, fmt.Errorf("notification service: update status: %w", result.Error)
		}
		if result.RowsAffected == 1 {
			metrics.StatusTransitions.WithLabelValues(target.Code, "applied").Inc()
			notification.StatusID = target.ID
			if sortOrder != 0 {
				notification.SortOrder = sortOrder
			}
			if target.Code != models.StatusSent {
				s.publishStatus(ctx, notification, target.Code)
			}
			return TransitionResult{ID: id, From: from, Status: target.Code, Applied: true}, nil
		}
	}

	current := s.statusCode(notification.StatusID)
	metrics.StatusTransitions.WithLabelValues(target.Code, "rejected").Inc()
	return TransitionResult{ID: id, From: current, Status: current}, nil
}

// Get returns a notification visible to recipient. Scheduled notifications stay hidden
// until they leave Pending.
func (s *Service) Get(ctx context.Context, recipient Recipient, id string) (*NotificationDTO, error) {
	ctx = ensureContext(ctx)
	if strings.TrimSpace(recipient.UserID) == "" {
		return nil, apperrors.ErrUnauthorized
	}

	var notification models.Notification
	if err := s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Scopes(visibleTo(recipient), s.released()).
		Where("notifications.id = ?", id).
		First(&notification).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("notification service: load notification: %w", err)
	}

	reads, err := s.readsFor(ctx, recipient.UserID, []string{notification.ID})
	if err != nil {
		return nil, err
	}
	dto := s.mapNotification(notification, reads)
	return &dto, nil
}

// List returns one keyset page of the recipient's feed, newest first unless the request
// is ascending. Scheduled notifications are hidden until they are dispatched or expired.
func (s *Service) List(ctx context.Context, recipient Recipient, filter ListFilter, req pagination.Request) (pagination.Page[NotificationDTO], error) {
	ctx = ensureContext(ctx)
	if strings.TrimSpace(recipient.UserID) == "" {
		return pagination.Page[NotificationDTO]{}, apperrors.ErrUnauthorized
	}

	query := s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Scopes(visibleTo(recipient), s.released())

	if filter.UnreadOnly {
		query = query.Where(
			"NOT EXISTS (SELECT 1 FROM notification_reads r WHERE r.notification_id = notifications.id AND r.user_id = ?)",
			recipient.UserID,
		)
	}
	if code := strings.TrimSpace(filter.Category); code != "" {
		query = query.Where("UPPER(notifications.main_category_code) = ?", strings.ToUpper(code))
	}
	if code := strings.TrimSpace(filter.SubCategory); code != "" {
		query = query.Where("UPPER(notifications.sub_category_code) = ?", strings.ToUpper(code))
	}
	if code := strings.TrimSpace(filter.Status); code != "" {
		status, ok := s.statuses.ByCode(code)
		if !ok {
			return pagination.Page[NotificationDTO]{}, apperrors.ErrUnknownStatus
		}
		query = query.Where("notifications.status_id = ?", status.ID)
	}
	if filter.From != nil {
		query = query.Where("notifications.created_at >= ?", filter.From.UTC())
	}
	if filter.To != nil {
		query = query.Where("notifications.created_at < ?", filter.To.UTC())
	}

	page, err := pagination.Query(ctx, query, req, pagination.QueryOptions{
		Columns:  feedColumns,
		Resolver: s.resolveSortOrder,
	}, notificationKey)
	if err != nil {
		return pagination.Page[NotificationDTO]{}, fmt.Errorf("notification service: list notifications: %w", err)
	}

	ids := make([]string, 0, len(page.Data))
	for _, row := range page.Data {
		ids = append(ids, row.ID)
	}
	reads, err := s.readsFor(ctx, recipient.UserID, ids)
	if err != nil {
		return pagination.Page[NotificationDTO]{}, err
	}

	return pagination.Map(page, func(row models.Notification) NotificationDTO {
		return s.mapNotification(row, reads)
	}), nil
}

// MarkRead adds the recipient to the read-by set. A notification addressed to the
// recipient directly also moves to Read; group notifications keep their status.
func (s *Service) MarkRead(ctx context.Context, recipient Recipient, id string) (*NotificationDTO, error) {
	ctx = ensureContext(ctx)

	dto, err := s.Get(ctx, recipient, id)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	if err := s.insertReads(ctx, recipient.UserID, []string{dto.ID}, now); err != nil {
		return nil, err
	}

	if dto.UserID == strings.TrimSpace(recipient.UserID) {
		if _, err := s.Transition(ctx, dto.ID, models.StatusRead); err != nil {
			return nil, err
		}
	}

	updated, err := s.Get(ctx, recipient, id)
	if err != nil {
		return nil, err
	}
	s.notifyUser(ctx, recipient.UserID, realtime.EventNotificationRead, &EventPayload{
		Notification:   updated,
		NotificationID: updated.ID,
	})
	return updated, nil
}

// MarkAllRead marks every delivered notification visible to the recipient as read and
// returns how many were newly marked.
func (s *Service) MarkAllRead(ctx context.Context, recipient Recipient) (int, error) {
	ctx = ensureContext(ctx)
	userID := strings.TrimSpace(recipient.UserID)
	if userID == "" {
		return 0, apperrors.ErrUnauthorized
	}

	now := s.now().UTC()
	var rows []models.Notification
	if err := s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Select("notifications.id", "notifications.user_id").
		Scopes(visibleTo(recipient), s.released()).
		Where("NOT EXISTS (SELECT 1 FROM notification_reads r WHERE r.notification_id = notifications.id AND r.user_id = ?)", userID).
		Find(&rows).Error; err != nil {
		return 0, fmt.Errorf("notification service: list unread: %w", err)
	}
	if len(rows) == 0 {
		return 0, nil
	}

	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	if err := s.insertReads(ctx, userID, ids, now); err != nil {
		return 0, err
	}

	for _, row := range rows {
		if row.UserID != userID {
			continue
		}
		if _, err := s.Transition(ctx, row.ID, models.StatusRead); err != nil {
			return 0, err
		}
	}

	s.notifyUser(ctx, userID, realtime.EventNotificationReadAll, nil)
	return len(rows), nil
}

// DispatchDue delivers up to limit Pending notifications whose scheduled send time has
// passed and that have not expired.
func (s *Service) DispatchDue(ctx context.Context, limit int) (int, error) {
	ctx = ensureContext(ctx)
	now := s.now().UTC()

	var ids []string
	if err := s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("status_id = ?", s.statuses.MustID(models.StatusPending)).
		Where("scheduled_send_at IS NOT NULL AND scheduled_send_at <= ?", now).
		Where("(expires_at IS NULL OR expires_at > ?)", now).
		Order("scheduled_send_at ASC").
		Limit(batchLimit(limit)).
		Pluck("id", &ids).Error; err != nil {
		return 0, fmt.Errorf("notification service: list due: %w", err)
	}

	dispatched := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return dispatched, err
		}
		result, err := s.Deliver(ctx, id)
		if err != nil {
			return dispatched, err
		}
		if result.Applied {
			dispatched++
		}
	}
	return dispatched, nil
}

// ExpirePending moves up to limit Pending notifications past their expiry to Failed.
func (s *Service) ExpirePending(ctx context.Context, limit int) (int, error) {
	ctx = ensureContext(ctx)
	now := s.now().UTC()

	var ids []string
	if err := s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("status_id = ?", s.statuses.MustID(models.StatusPending)).
		Where("expires_at IS NOT NULL AND expires_at <= ?", now).
		Order("expires_at ASC").
		Limit(batchLimit(limit)).
		Pluck("id", &ids).Error; err != nil {
		return 0, fmt.Errorf("notification service: list expired: %w", err)
	}

	expired := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return expired, err
		}
		result, err := s.Transition(ctx, id, models.StatusFailed)
		if err != nil {
			return expired, err
		}
		if result.Applied {
			expired++
		}
	}
	return expired, nil
}

func (s *Service) load(ctx context.Context, id string) (*models.Notification, error) {
	var notification models.Notification
	if err := s.db.WithContext(ctx).First(&notification, "id = ?", strings.TrimSpace(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("notification service: load notification: %w", err)
	}
	return &notification, nil
}

func (s *Service) resolveSortOrder(ctx context.Context, id string) (int64, bool, error) {
	var sortOrders []int64
	if err := s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ?", id).
		Limit(1).
		Pluck("sort_order", &sortOrders).Error; err != nil {
		return 0, false, err
	}
	if len(sortOrders) == 0 {
		return 0, false, nil
	}
	return sortOrders[0], true, nil
}

func (s *Service) readsFor(ctx context.Context, userID string, ids []string) (map[string]time.Time, error) {
	reads := make(map[string]time.Time, len(ids))
	if len(ids) == 0 {
		return reads, nil
	}
	var rows []models.NotificationRead
	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND notification_id IN ?", strings.TrimSpace(userID), ids).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("notification service: load reads: %w", err)
	}
	for _, row := range rows {
		reads[row.NotificationID] = row.ReadAt
	}
	return reads, nil
}

func (s *Service) insertReads(ctx context.Context, userID string, ids []string, at time.Time) error {
	rows := make([]models.NotificationRead, 0, len(ids))
	for _, id := range ids {
		rows = append(rows, models.NotificationRead{NotificationID: id, UserID: strings.TrimSpace(userID), ReadAt: at})
	}
	if err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rows).Error; err != nil {
		return fmt.Errorf("notification service: record read: %w", err)
	}
	return nil
}

// nextSortOrder returns the creation time in microseconds, bumped so values issued by
// this process strictly increase.
func (s *Service) nextSortOrder(now time.Time) int64 {
	candidate := now.UnixMicro()
	for {
		last := s.lastSortOrder.Load()
		next := candidate
		if next <= last {
			next = last + 1
		}
		if s.lastSortOrder.CompareAndSwap(last, next) {
			return next
		}
	}
}

func (s *Service) publish(ctx context.Context, notification *models.Notification, event string, payload *EventPayload) error {
	if s.publisher == nil {
		return nil
	}
	if notification.GroupCode != "" {
		if err := s.publisher.NotifyGroup(ctx, notification.GroupCode, event, payload); err != nil {
			return err
		}
	}
	if notification.UserID != "" {
		return s.publisher.NotifyUser(ctx, notification.UserID, event, payload)
	}
	return nil
}

func (s *Service) publishStatus(ctx context.Context, notification *models.Notification, code string) {
	payload := &EventPayload{NotificationID: notification.ID, Status: code}
	if err := s.publish(ctx, notification, realtime.EventNotificationUpdated, payload); err != nil {
		s.log.Warn("status event not relayed", zap.String("id", notification.ID), zap.Error(err))
	}
}

func (s *Service) notifyUser(ctx context.Context, userID, event string, payload *EventPayload) {
	if s.publisher == nil {
		return
	}
	var data any
	if payload != nil {
		data = payload
	}
	if err := s.publisher.NotifyUser(ctx, userID, event, data); err != nil {
		s.log.Warn("read event not relayed", zap.String("user_id", userID), zap.Error(err))
	}
}

func (s *Service) statusCode(id uint) string {
	if status, ok := s.statuses.ByID(id); ok {
		return status.Code
	}
	return ""
}

func (s *Service) statusDTO(id uint) StatusDTO {
	status, ok := s.statuses.ByID(id)
	if !ok {
		return StatusDTO{}
	}
	return StatusDTO{Code: status.Code, Name: status.Name, Color: status.Color, BgColor: status.BgColor}
}

func (s *Service) mapNotification(row models.Notification, reads map[string]time.Time) NotificationDTO {
	dto := NotificationDTO{
		ID:               row.ID,
		UserID:           row.UserID,
		GroupCode:        row.GroupCode,
		Summary:          row.Summary,
		Details:          row.Details,
		MainCategoryCode: row.MainCategoryCode,
		SubCategoryCode:  row.SubCategoryCode,
		Status:           s.statusDTO(row.StatusID),
		SortOrder:        row.SortOrder,
		ImageURL:         row.ImageURL,
		ActionURL:        row.ActionURL,
		Metadata:         decodeJSON(row.Metadata),
		ExpiresAt:        row.ExpiresAt,
		ScheduledSendAt:  row.ScheduledSendAt,
		CreatedAt:        row.CreatedAt,
		UpdatedAt:        row.UpdatedAt,
	}
	if readAt, ok := reads[row.ID]; ok {
		at := readAt
		dto.IsRead = true
		dto.ReadAt = &at
	}
	return dto
}

func notificationKey(row models.Notification) pagination.Key {
	return pagination.Key{SortOrder: row.SortOrder, ID: row.ID}
}

func visibleTo(recipient Recipient) func(*gorm.DB) *gorm.DB {
	userID := strings.TrimSpace(recipient.UserID)
	groups := make([]string, 0, len(recipient.Groups))
	for _, group := range recipient.Groups {
		if group = normalizeGroup(group); group != "" {
			groups = append(groups, group)
		}
	}
	return func(db *gorm.DB) *gorm.DB {
		if len(groups) == 0 {
			return db.Where("notifications.user_id = ?", userID)
		}
		return db.Where("(notifications.user_id = ? OR notifications.group_code IN ?)", userID, groups)
	}
}

// released hides scheduled notifications that are still waiting for the sweeper.
func (s *Service) released() func(*gorm.DB) *gorm.DB {
	pending := s.statuses.MustID(models.StatusPending)
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("(notifications.scheduled_send_at IS NULL OR notifications.status_id <> ?)", pending)
	}
}

func decodeJSON(data datatypes.JSON) map[string]any {
	if len(data) == 0 {
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil
	}
	return out
}

func normalizeGroup(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil || t.IsZero() {
		return nil
	}
	utc := t.UTC()
	return &utc
}

func labelOrNone(value string) string {
	if value == "" {
		return "none"
	}
	return value
}

func batchLimit(limit int) int {
	if limit <= 0 {
		return 100
	}
	return limit
}

func ensureContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
