package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aryan-mod/suraksha-setu/internal/worker"
	apperrors "github.com/aryan-mod/suraksha-setu/pkg/errors"
	"github.com/aryan-mod/suraksha-setu/pkg/response"
	apivalidator "github.com/aryan-mod/suraksha-setu/pkg/validator"
)

// SyncHandler exposes the connectivity-restoration trigger. Clients fire
// it when they come back online so queued notifications replay.
type SyncHandler struct {
	worker *worker.Worker
}

// NewSyncHandler constructs a sync handler.
func NewSyncHandler(w *worker.Worker) *SyncHandler {
	return &SyncHandler{worker: w}
}

type syncRequest struct {
	Tag string `json:"tag" validate:"required"`
}

// Trigger drains the replay queue for a recognised sync tag.
func (h *SyncHandler) Trigger(c *gin.Context) {
	var req syncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperrors.NewBadRequest("invalid request body"))
		return
	}
	if err := apivalidator.ValidateStruct(req); err != nil {
		response.Error(c, apperrors.NewBadRequest(err.Error()))
		return
	}

	result, err := h.worker.Sync(c.Request.Context(), req.Tag)
	if err != nil {
		if errors.Is(err, worker.ErrUnknownTag) {
			response.Error(c, apperrors.NewBadRequest(fmt.Sprintf("unsupported sync tag %q", req.Tag)))
			return
		}
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"drain": result})
}
