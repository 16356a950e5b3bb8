package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aryan-mod/suraksha-setu/internal/realtime"
	"github.com/aryan-mod/suraksha-setu/internal/services"
	"github.com/aryan-mod/suraksha-setu/internal/worker"
	apperrors "github.com/aryan-mod/suraksha-setu/pkg/errors"
	"github.com/aryan-mod/suraksha-setu/pkg/logger"
	"github.com/aryan-mod/suraksha-setu/pkg/response"
	apivalidator "github.com/aryan-mod/suraksha-setu/pkg/validator"
)

// NotificationHandler exposes HTTP endpoints for safety notifications.
type NotificationHandler struct {
	service *services.NotificationService
	worker  *worker.Worker
	hub     *realtime.Hub
	log     *zap.Logger
}

// NewNotificationHandler constructs a notification handler.
func NewNotificationHandler(service *services.NotificationService, w *worker.Worker, hub *realtime.Hub) *NotificationHandler {
	return &NotificationHandler{
		service: service,
		worker:  w,
		hub:     hub,
		log:     logger.WithModule("handlers.notifications"),
	}
}

type createNotificationRequest struct {
	UserID         string         `json:"user_id"`
	Type           string         `json:"type" validate:"omitempty,max=64"`
	Title          string         `json:"title" validate:"required,max=255"`
	Message        string         `json:"message"`
	Priority       string         `json:"priority" validate:"omitempty,oneof=low medium high critical"`
	Location       string         `json:"location" validate:"omitempty,max=255"`
	Latitude       *float64       `json:"latitude" validate:"omitempty,gte=-90,lte=90"`
	Longitude      *float64       `json:"longitude" validate:"omitempty,gte=-180,lte=180"`
	ActionRequired bool           `json:"action_required"`
	Metadata       map[string]any `json:"metadata"`
	ExpiresAt      *time.Time     `json:"expires_at"`
	TTLSeconds     int            `json:"ttl_seconds" validate:"omitempty,gte=0"`
}

// Create ingests a notification, stores it, streams it to connected
// devices and pushes it to the user's registered subscriptions.
func (h *NotificationHandler) Create(c *gin.Context) {
	var req createNotificationRequest
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
	if userID == "" {
		response.Error(c, apperrors.NewBadRequest("user id is required"))
		return
	}

	dto, err := h.service.Create(c.Request.Context(), services.CreateNotificationInput{
		UserID:         userID,
		Type:           req.Type,
		Title:          req.Title,
		Message:        req.Message,
		Priority:       req.Priority,
		Location:       req.Location,
		Latitude:       req.Latitude,
		Longitude:      req.Longitude,
		ActionRequired: req.ActionRequired,
		Metadata:       req.Metadata,
		ExpiresAt:      req.ExpiresAt,
		ExpiresIn:      time.Duration(req.TTLSeconds) * time.Second,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	body := gin.H{"notification": dto}
	if h.worker != nil {
		payload, marshalErr := json.Marshal(dto)
		if marshalErr == nil {
			outcome, pushErr := h.worker.Push(c.Request.Context(), worker.PushInput{
				NotificationID: dto.ID,
				UserID:         userID,
				Payload:        payload,
			})
			if pushErr != nil {
				// The notification is stored and streaming; push is best effort.
				h.log.Warn("push dispatch failed",
					zap.String("notification_id", dto.ID),
					zap.Error(pushErr),
				)
			} else {
				body["push"] = outcome
			}
		}
	}

	response.Success(c, http.StatusCreated, body)
}

// List returns the caller's pending notifications, newest first.
func (h *NotificationHandler) List(c *gin.Context) {
	userID := currentUser(c)
	if userID == "" {
		response.Error(c, apperrors.NewBadRequest("user id is required"))
		return
	}

	items, err := h.service.ListForUser(c.Request.Context(), services.ListNotificationsInput{
		UserID: userID,
		Limit:  parseIntQuery(c, "limit", services.DefaultListLimit),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, items, &response.Meta{Total: len(items)})
}

// Acknowledge marks a notification handled.
func (h *NotificationHandler) Acknowledge(c *gin.Context) {
	userID := currentUser(c)
	if userID == "" {
		response.Error(c, apperrors.NewBadRequest("user id is required"))
		return
	}

	id := strings.TrimSpace(c.Param("id"))
	dto, err := h.service.Acknowledge(c.Request.Context(), userID, id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, dto)
}

// Stream upgrades to a WebSocket and delivers notification events live.
func (h *NotificationHandler) Stream(c *gin.Context) {
	userID := currentUser(c)
	if userID == "" {
		response.Error(c, apperrors.NewBadRequest("user id is required"))
		return
	}

	h.hub.Serve(userID, c.Writer, c.Request)
}
