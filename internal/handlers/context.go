package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/taskhub/internal/middleware"
	"github.com/charlesng35/taskhub/internal/notifications"
)

// requestContext safely returns the request context with a background fallback for tests.
func requestContext(c *gin.Context) context.Context {
	if c == nil {
		return context.Background()
	}
	if req := c.Request; req != nil {
		return req.Context()
	}
	return context.Background()
}

// recipient builds the feed identity from values set by the auth middleware.
func recipient(c *gin.Context) (notifications.Recipient, bool) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		return notifications.Recipient{}, false
	}
	return notifications.Recipient{UserID: userID, Groups: middleware.UserGroups(c)}, true
}
