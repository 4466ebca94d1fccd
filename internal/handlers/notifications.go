package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/taskhub/internal/notifications"
	"github.com/charlesng35/taskhub/internal/pagination"
	"github.com/charlesng35/taskhub/pkg/errors"
	"github.com/charlesng35/taskhub/pkg/response"
)

// NotificationHandler exposes HTTP endpoints for notifications.
type NotificationHandler struct {
	service         *notifications.Service
	defaultPageSize int
}

// NewNotificationHandler constructs a notification handler. defaultPageSize applies when a
// request omits pageSize.
func NewNotificationHandler(service *notifications.Service, defaultPageSize int) *NotificationHandler {
	if defaultPageSize <= 0 || defaultPageSize > pagination.MaxPageSize {
		defaultPageSize = pagination.DefaultPageSize
	}
	return &NotificationHandler{service: service, defaultPageSize: defaultPageSize}
}

// List returns one keyset page of the caller's feed.
func (h *NotificationHandler) List(c *gin.Context) {
	who, ok := recipient(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	from, err := parseTimeQuery(c, "from")
	if err != nil {
		response.Error(c, err)
		return
	}
	to, err := parseTimeQuery(c, "to")
	if err != nil {
		response.Error(c, err)
		return
	}

	filter := notifications.ListFilter{
		UnreadOnly:  parseBoolQuery(c, "unread"),
		Category:    c.Query("category"),
		SubCategory: c.Query("sub_category"),
		Status:      c.Query("status"),
		From:        from,
		To:          to,
	}
	req := pagination.Request{
		Cursor:          optionalString(c, "cursor"),
		CursorSortOrder: parseInt64Query(c, "cursor_sort_order"),
		PageSize:        parseIntQuery(c, "pageSize", h.defaultPageSize),
		Ascending:       parseBoolQuery(c, "ascending"),
		IncludeTotal:    parseBoolQuery(c, "include_total"),
	}

	page, err := h.service.List(requestContext(c), who, filter, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Page(c, response.CursorPage{
		Data:                page.Data,
		NextCursor:          page.NextCursor,
		NextCursorSortOrder: page.NextCursorSortOrder,
		HasNextPage:         page.HasNextPage,
		Total:               page.Total,
	})
}

// Get returns one notification visible to the caller.
func (h *NotificationHandler) Get(c *gin.Context) {
	who, ok := recipient(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	dto, err := h.service.Get(requestContext(c), who, strings.TrimSpace(c.Param("id")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, dto)
}

// MarkRead records that the caller read a notification.
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	who, ok := recipient(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	dto, err := h.service.MarkRead(requestContext(c), who, strings.TrimSpace(c.Param("id")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, dto)
}

// MarkAllRead marks every notification visible to the caller read.
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	who, ok := recipient(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	count, err := h.service.MarkAllRead(requestContext(c), who)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"updated": count})
}

// Create lets internal producers classify and store a notification.
func (h *NotificationHandler) Create(c *gin.Context) {
	var payload notifications.CreateInput
	if !bindAndValidate(c, &payload) {
		return
	}

	dto, err := h.service.Create(requestContext(c), payload)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, dto)
}

// UpdateStatus applies a status transition. A disallowed move answers 200 with applied=false.
func (h *NotificationHandler) UpdateStatus(c *gin.Context) {
	var payload struct {
		Status string `json:"status" validate:"required"`
	}
	if !bindAndValidate(c, &payload) {
		return
	}

	result, err := h.service.Transition(requestContext(c), strings.TrimSpace(c.Param("id")), payload.Status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, result)
}

// Statuses lists the seeded status rows.
func (h *NotificationHandler) Statuses(c *gin.Context) {
	response.Success(c, http.StatusOK, h.service.Statuses().All())
}
