package api

import (
	"github.com/gin-gonic/gin"

	"github.com/aryan-mod/suraksha-setu/internal/handlers"
)

func registerSubscriptionRoutes(api *gin.RouterGroup, deps Dependencies) {
	handler := handlers.NewSubscriptionHandler(deps.Subscriptions)

	subscriptions := api.Group("/subscriptions")
	{
		subscriptions.POST("", handler.Register)
		subscriptions.GET("", handler.List)
		subscriptions.DELETE("/:id", handler.Remove)
	}
}
