package api

import (
	"github.com/gin-gonic/gin"

	"github.com/aryan-mod/suraksha-setu/internal/handlers"
)

func registerLocationRoutes(api *gin.RouterGroup, deps Dependencies) {
	handler := handlers.NewLocationHandler(deps.Locations, deps.Worker)

	api.POST("/locations", handler.Report)
	api.GET("/safe-zones", handler.SafeZones)
}
