package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/aryan-mod/suraksha-setu/internal/services"
	apperrors "github.com/aryan-mod/suraksha-setu/pkg/errors"
	"github.com/aryan-mod/suraksha-setu/pkg/response"
	apivalidator "github.com/aryan-mod/suraksha-setu/pkg/validator"
)

// SubscriptionHandler exposes HTTP endpoints for push subscription management.
type SubscriptionHandler struct {
	service *services.SubscriptionService
}

// NewSubscriptionHandler constructs a subscription handler.
func NewSubscriptionHandler(service *services.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{service: service}
}

type registerSubscriptionRequest struct {
	UserID string `json:"user_id"`
	Handle string `json:"handle" validate:"required"`
}

// Register stores a push subscription handle for the caller.
func (h *SubscriptionHandler) Register(c *gin.Context) {
	var req registerSubscriptionRequest
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

	sub, err := h.service.Register(c.Request.Context(), userID, req.Handle)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, sub)
}

// List returns the caller's registered subscriptions.
func (h *SubscriptionHandler) List(c *gin.Context) {
	userID := currentUser(c)
	if userID == "" {
		response.Error(c, apperrors.NewBadRequest("user id is required"))
		return
	}

	subs, err := h.service.ListForUser(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, subs)
}

// Remove deletes a subscription, typically when a device unregisters.
func (h *SubscriptionHandler) Remove(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))

	if _, err := h.service.Get(c.Request.Context(), id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.Error(c, apperrors.ErrNotFound)
			return
		}
		response.Error(c, err)
		return
	}

	if err := h.service.Remove(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"removed": true})
}
