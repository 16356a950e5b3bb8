package api

import (
	"github.com/gin-gonic/gin"

	"github.com/aryan-mod/suraksha-setu/internal/handlers"
)

func registerNotificationRoutes(api *gin.RouterGroup, deps Dependencies) {
	handler := handlers.NewNotificationHandler(deps.Notifications, deps.Worker, deps.Hub)

	notifications := api.Group("/notifications")
	{
		notifications.POST("", handler.Create)
		notifications.GET("", handler.List)
		notifications.POST("/:id/ack", handler.Acknowledge)
		notifications.GET("/stream", handler.Stream)
	}
}
