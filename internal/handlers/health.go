package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/aryan-mod/suraksha-setu/pkg/response"
)

// HealthHandler reports service liveness and database reachability.
type HealthHandler struct {
	db *gorm.DB
}

// NewHealthHandler constructs a health handler.
func NewHealthHandler(db *gorm.DB) *HealthHandler {
	return &HealthHandler{db: db}
}

// Check returns the service health. In demo mode (no database) the
// service is still healthy; the database section says so explicitly.
func (h *HealthHandler) Check(c *gin.Context) {
	database := gin.H{"mode": "demo"}

	if h.db != nil {
		database = gin.H{"mode": "connected"}
		if sqlDB, err := h.db.DB(); err != nil {
			database["mode"] = "error"
			database["error"] = err.Error()
		} else if err := sqlDB.PingContext(c.Request.Context()); err != nil {
			database["mode"] = "unreachable"
			database["error"] = err.Error()
		}
	}

	response.Success(c, http.StatusOK, gin.H{
		"status":   "ok",
		"database": database,
	})
}
