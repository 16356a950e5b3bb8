package main

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/aryan-mod/suraksha-setu/internal/api"
	"github.com/aryan-mod/suraksha-setu/internal/app"
	"github.com/aryan-mod/suraksha-setu/internal/app/maintenance"
	"github.com/aryan-mod/suraksha-setu/internal/cache"
	"github.com/aryan-mod/suraksha-setu/internal/database"
	"github.com/aryan-mod/suraksha-setu/internal/handlers"
	"github.com/aryan-mod/suraksha-setu/internal/middleware"
	"github.com/aryan-mod/suraksha-setu/internal/push"
	"github.com/aryan-mod/suraksha-setu/internal/query"
	"github.com/aryan-mod/suraksha-setu/internal/realtime"
	"github.com/aryan-mod/suraksha-setu/internal/replay"
	"github.com/aryan-mod/suraksha-setu/internal/services"
	"github.com/aryan-mod/suraksha-setu/internal/worker"
)

// application holds everything the run loop needs to serve and shut down.
type application struct {
	db      *gorm.DB
	router  *gin.Engine
	worker  *worker.Worker
	cleaner *maintenance.Cleaner
}

func buildApplication(cfg *app.Config, log *zap.Logger) (*application, error) {
	var db *gorm.DB
	switch {
	case cfg.Database.Demo:
		log.Info("demo mode: running without a database")
	case cfg.Database.CredentialsMissing():
		log.Warn("database credentials missing, degrading to demo mode",
			zap.String("driver", cfg.DatabaseSettings().Driver))
	default:
		opened, err := database.Open(cfg.DatabaseSettings())
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		if err := database.AutoMigrateAndSeed(opened); err != nil {
			return nil, fmt.Errorf("migrate database: %w", err)
		}
		db = opened
	}

	hub := realtime.NewHub()
	notifications := services.NewNotificationService(db, hub)
	locations := services.NewLocationService(db, query.NewWrapper())
	subscriptions := services.NewSubscriptionService(db)

	var transport push.Transport
	switch cfg.Push.Transport {
	case "http":
		transport = push.NewHTTPTransport(cfg.Push.Timeout)
	default:
		transport = push.NewLogTransport()
	}
	dispatcher, err := push.NewDispatcher(subscriptions, transport)
	if err != nil {
		return nil, fmt.Errorf("build dispatcher: %w", err)
	}

	var queue *replay.Queue
	if db != nil {
		queue, err = replay.NewQueue(db, replay.WithMaxAttempts(cfg.Sync.MaxAttempts))
		if err != nil {
			return nil, fmt.Errorf("build replay queue: %w", err)
		}
	}

	namespaces := cfg.CacheNamespaces()
	var (
		store      cache.Store
		cacheSweep *cache.DatabaseStore
	)
	if cfg.Cache.Persistent && db != nil {
		persistent := cache.NewDatabaseStore(db, namespaces)
		store = persistent
		cacheSweep = persistent
	} else {
		store = cache.NewMemoryStore(namespaces)
	}

	engine := cache.NewEngine(store, handlers.SafeZonesOrigin(locations), namespaces,
		cache.WithNetworkTimeout(cfg.Cache.NetworkTimeout))

	w, err := worker.New(worker.Config{
		Engine:     engine,
		Queue:      queue,
		Dispatcher: dispatcher,
	})
	if err != nil {
		return nil, fmt.Errorf("build worker: %w", err)
	}

	var limiter *middleware.Limiter
	if cfg.RateLimit.Enabled {
		limiter = middleware.NewLimiter(cfg.RateLimit.Limit, cfg.RateLimit.Window)
	}

	var cleaner *maintenance.Cleaner
	if cfg.Maintenance.Enabled {
		cleaner = maintenance.NewCleaner(notifications, cacheSweep, limiter,
			maintenance.WithNotificationSchedule(cfg.Maintenance.NotificationSchedule),
			maintenance.WithCacheSchedule(cfg.Maintenance.CacheSchedule),
			maintenance.WithLimiterSchedule(cfg.Maintenance.LimiterSchedule),
		)
	}

	router, err := api.NewRouter(api.Dependencies{
		DB:            db,
		Hub:           hub,
		Worker:        w,
		Notifications: notifications,
		Locations:     locations,
		Subscriptions: subscriptions,
		Limiter:       limiter,
	})
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	return &application{
		db:      db,
		router:  router,
		worker:  w,
		cleaner: cleaner,
	}, nil
}
