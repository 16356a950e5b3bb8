package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/aryan-mod/suraksha-setu/internal/handlers"
	"github.com/aryan-mod/suraksha-setu/internal/middleware"
	"github.com/aryan-mod/suraksha-setu/internal/realtime"
	"github.com/aryan-mod/suraksha-setu/internal/services"
	"github.com/aryan-mod/suraksha-setu/internal/worker"
)

// Dependencies carries everything the router needs. DB may be nil: the
// services run in demo mode and the API stays up without infrastructure.
type Dependencies struct {
	DB            *gorm.DB
	Hub           *realtime.Hub
	Worker        *worker.Worker
	Notifications *services.NotificationService
	Locations     *services.LocationService
	Subscriptions *services.SubscriptionService
	Limiter       *middleware.Limiter
	CachePolicies map[string]middleware.CachePolicy
}

// NewRouter builds the Gin engine, wires middleware and registers routes.
func NewRouter(deps Dependencies) (*gin.Engine, error) {
	if deps.Notifications == nil {
		return nil, fmt.Errorf("notification service must be provided")
	}
	if deps.Locations == nil {
		return nil, fmt.Errorf("location service must be provided")
	}
	if deps.Subscriptions == nil {
		return nil, fmt.Errorf("subscription service must be provided")
	}
	if deps.Worker == nil {
		return nil, fmt.Errorf("worker must be provided")
	}
	if deps.Hub == nil {
		deps.Hub = realtime.NewHub()
	}
	if deps.CachePolicies == nil {
		deps.CachePolicies = middleware.DefaultCachePolicies()
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CacheControl(deps.CachePolicies))
	r.Use(middleware.RateLimit(deps.Limiter))

	r.GET("/health", handlers.NewHealthHandler(deps.DB).Check)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	registerNotificationRoutes(api, deps)
	registerLocationRoutes(api, deps)
	registerSubscriptionRoutes(api, deps)
	registerSyncRoutes(api, deps)

	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}
