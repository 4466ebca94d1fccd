package api

import (
	"github.com/gin-gonic/gin"

	iauth "github.com/charlesng35/taskhub/internal/auth"
	"github.com/charlesng35/taskhub/internal/handlers"
	"github.com/charlesng35/taskhub/internal/middleware"
)

func registerNotificationRoutes(api *gin.RouterGroup, handler *handlers.NotificationHandler) {
	group := api.Group("/notifications")
	{
		group.GET("", handler.List)
		group.GET("/statuses", handler.Statuses)
		group.POST("/read-all", handler.MarkAllRead)

		group.GET("/:id", handler.Get)
		group.POST("/:id/read", handler.MarkRead)
	}

	// producer endpoints
	internal := group.Group("", middleware.RequireRole(iauth.RoleService))
	{
		internal.POST("", handler.Create)
		internal.PATCH("/:id/status", handler.UpdateStatus)
	}
}

func registerCatalogRoutes(api *gin.RouterGroup, handler *handlers.CatalogHandler) {
	group := api.Group("/catalog")
	{
		group.GET("/categories", handler.Categories)
		group.GET("/categories/:code", handler.Category)
		group.GET("/subcategories/:code", handler.SubCategory)
		group.GET("/status", handler.Status)
	}
}

func registerRealtimeRoutes(ws *gin.RouterGroup, handler *handlers.RealtimeHandler) {
	ws.GET("", handler.Stream)
}
