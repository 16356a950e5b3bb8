package api

import (
	"github.com/gin-gonic/gin"

	"github.com/aryan-mod/suraksha-setu/internal/handlers"
)

func registerSyncRoutes(api *gin.RouterGroup, deps Dependencies) {
	handler := handlers.NewSyncHandler(deps.Worker)

	api.POST("/sync", handler.Trigger)
}
