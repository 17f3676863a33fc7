package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourlocalmaccas/School-Website/internal/dto"
	"github.com/yourlocalmaccas/School-Website/internal/models"
	"github.com/yourlocalmaccas/School-Website/pkg/response"
)

type systemStatusService interface {
	Status(ctx context.Context) (*models.RegistrationWindow, error)
	Update(ctx context.Context, req dto.UpdateSystemStatusRequest) (*models.RegistrationWindow, error)
}

// SystemStatusHandler exposes the registration window.
type SystemStatusHandler struct {
	service systemStatusService
}

// NewSystemStatusHandler constructs the handler.
func NewSystemStatusHandler(svc systemStatusService) *SystemStatusHandler {
	return &SystemStatusHandler{service: svc}
}

// Get godoc
// @Summary Registration window status
// @Tags System
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /system-status [get]
func (h *SystemStatusHandler) Get(c *gin.Context) {
	status, err := h.service.Status(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status, nil)
}

// Update godoc
// @Summary Open, close or schedule registration
// @Description open_at takes an RFC 3339 timestamp; an empty string clears the schedule.
// @Tags System
// @Accept json
// @Produce json
// @Param payload body dto.UpdateSystemStatusRequest true "Window"
// @Success 200 {object} response.Envelope
// @Router /system-status [put]
func (h *SystemStatusHandler) Update(c *gin.Context) {
	var req dto.UpdateSystemStatusRequest
	if !bindJSON(c, &req) {
		return
	}
	status, err := h.service.Update(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status, nil)
}
