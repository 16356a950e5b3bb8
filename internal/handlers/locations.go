package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aryan-mod/suraksha-setu/internal/cache"
	"github.com/aryan-mod/suraksha-setu/internal/services"
	"github.com/aryan-mod/suraksha-setu/internal/worker"
	apperrors "github.com/aryan-mod/suraksha-setu/pkg/errors"
	"github.com/aryan-mod/suraksha-setu/pkg/logger"
	"github.com/aryan-mod/suraksha-setu/pkg/response"
	apivalidator "github.com/aryan-mod/suraksha-setu/pkg/validator"
)

// SafeZonesCacheKey is the cache key the safe-zone listing is served
// under. The worker's origin fetch resolves it back to the registry.
const SafeZonesCacheKey = "/api/safe-zones"

// LocationHandler exposes HTTP endpoints for position reports and the
// safe-zone registry.
type LocationHandler struct {
	service *services.LocationService
	worker  *worker.Worker
	log     *zap.Logger
}

// NewLocationHandler constructs a location handler.
func NewLocationHandler(service *services.LocationService, w *worker.Worker) *LocationHandler {
	return &LocationHandler{
		service: service,
		worker:  w,
		log:     logger.WithModule("handlers.locations"),
	}
}

type reportLocationRequest struct {
	UserID    string   `json:"user_id"`
	Latitude  *float64 `json:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude" validate:"required,gte=-180,lte=180"`
	Accuracy  float64  `json:"accuracy" validate:"omitempty,gte=0"`
	Source    string   `json:"source" validate:"omitempty,oneof=gps network manual"`
}

// Report stores a position update and returns the safe zones within reach.
func (h *LocationHandler) Report(c *gin.Context) {
	var req reportLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperrors.NewBadRequest("invalid request body"))
		return
	}
	if err := apivalidator.ValidateStruct(req); err != nil {
		response.Error(c, apperrors.NewBadRequest(err.Error()))
		return
	}

	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		userID = currentUser(c)
	}

	report, err := h.service.ReportLocation(c.Request.Context(), services.ReportLocationInput{
		UserID:    userID,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		Accuracy:  req.Accuracy,
		Source:    req.Source,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, report)
}

// SafeZones serves the registry, preferring the worker's cache tier so
// repeated reads stay off the database. On any cache-path error the
// registry is read directly, which still degrades to fallback data.
func (h *LocationHandler) SafeZones(c *gin.Context) {
	if h.worker != nil {
		payload, err := h.worker.Fetch(c.Request.Context(), cache.NamespaceAPI, SafeZonesCacheKey)
		if err == nil && len(payload) > 0 {
			c.Data(http.StatusOK, "application/json; charset=utf-8", payload)
			return
		}
		if err != nil {
			h.log.Warn("cache path failed, reading registry directly", zap.Error(err))
		}
	}

	result, err := h.service.ListSafeZones(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, SafeZonesPayload(result))
}

// SafeZonesPayload is the response body shape for the safe-zone listing.
// Shared with the worker's cache origin so cached and direct responses
// stay identical.
func SafeZonesPayload(result services.SafeZoneListing) gin.H {
	return gin.H{
		"zones":  result.Data,
		"source": result.Source,
	}
}

// SafeZonesOrigin resolves the safe-zone cache key back to the registry.
// The payload is the fully rendered response envelope, so cache hits
// bypass the handler entirely.
func SafeZonesOrigin(locations *services.LocationService) cache.FetchFunc {
	return func(ctx context.Context, key string) ([]byte, error) {
		if key != SafeZonesCacheKey {
			return nil, fmt.Errorf("no origin for cache key %q", key)
		}
		result, err := locations.ListSafeZones(ctx)
		if err != nil {
			return nil, err
		}
		return json.Marshal(response.Response{
			Success: true,
			Data:    SafeZonesPayload(result),
		})
	}
}
