package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/taskhub/internal/realtime"
	"github.com/charlesng35/taskhub/pkg/errors"
	"github.com/charlesng35/taskhub/pkg/response"
)

// RealtimeHandler upgrades authenticated requests into realtime websocket sessions.
type RealtimeHandler struct {
	hub *realtime.Hub
}

// NewRealtimeHandler constructs a realtime handler.
func NewRealtimeHandler(hub *realtime.Hub) *RealtimeHandler {
	return &RealtimeHandler{hub: hub}
}

// Stream joins the caller's sessions to their user group and fan-out groups. Without an
// authenticated identity no group is joined.
func (h *RealtimeHandler) Stream(c *gin.Context) {
	if h.hub == nil {
		response.Error(c, errors.ErrServiceUnavailable)
		return
	}
	who, ok := recipient(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}
	h.hub.Serve(who.UserID, who.Groups, c.Writer, c.Request)
}
