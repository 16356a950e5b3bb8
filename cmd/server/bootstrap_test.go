package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/aryan-mod/suraksha-setu/internal/app"
	"github.com/aryan-mod/suraksha-setu/pkg/logger"
)

func testConfig(t *testing.T) *app.Config {
	t.Helper()
	cfg, err := app.LoadConfig(t.TempDir())
	require.NoError(t, err)

	// In-memory sqlite keeps the test self-contained.
	cfg.Database.Path = ""
	cfg.Database.DSN = ""
	return cfg
}

func TestBuildApplicationDemoMode(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cfg := testConfig(t)
	cfg.Database.Demo = true

	application, err := buildApplication(cfg, logger.WithModule("test"))
	require.NoError(t, err)
	require.Nil(t, application.db)

	application.worker.Start()
	t.Cleanup(application.worker.Stop)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/health", nil)
	application.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "demo")

	// Fallback data keeps the safe-zone listing alive without a database.
	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodGet, "/api/safe-zones", nil)
	application.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "fallback")
}

func TestBuildApplicationMissingCredentialsDegrades(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cfg := testConfig(t)
	cfg.Database.Postgres.Enabled = true
	cfg.Database.Postgres.Host = "db.internal"

	application, err := buildApplication(cfg, logger.WithModule("test"))
	require.NoError(t, err)
	require.Nil(t, application.db)

	application.worker.Start()
	t.Cleanup(application.worker.Stop)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/health", nil)
	application.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "demo")
}

func TestBuildApplicationWithDatabase(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cfg := testConfig(t)

	application, err := buildApplication(cfg, logger.WithModule("test"))
	require.NoError(t, err)
	require.NotNil(t, application.db)
	require.NotNil(t, application.cleaner)
	t.Cleanup(func() { closeDatabase(application.db, logger.WithModule("test")) })

	application.worker.Start()
	t.Cleanup(application.worker.Stop)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/safe-zones", nil)
	application.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "live")
}
