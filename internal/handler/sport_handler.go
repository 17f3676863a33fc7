package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourlocalmaccas/School-Website/internal/dto"
	"github.com/yourlocalmaccas/School-Website/internal/middleware"
	"github.com/yourlocalmaccas/School-Website/internal/models"
	"github.com/yourlocalmaccas/School-Website/pkg/response"
)

type sportService interface {
	List(ctx context.Context, termID string) ([]models.SportAvailability, bool, error)
	Get(ctx context.Context, id string) (*models.SportAvailability, error)
	Create(ctx context.Context, req dto.CreateSportRequest) (*models.SportAvailability, error)
	Registrations(ctx context.Context, id string) ([]models.StudentRow, error)
}

type capacityService interface {
	UpdateCapacity(ctx context.Context, sportID string, capacity int) (*models.SportAvailability, error)
	MarkFull(ctx context.Context, sportID string) (*models.SportAvailability, error)
	DeleteSport(ctx context.Context, sportID string) error
}

// SportHandler exposes sport listing and capacity management.
type SportHandler struct {
	sports    sportService
	admission capacityService
}

// NewSportHandler constructs a sport handler.
func NewSportHandler(sports sportService, admission capacityService) *SportHandler {
	return &SportHandler{sports: sports, admission: admission}
}

// List godoc
// @Summary List sports with live availability
// @Description Defaults to the active term when term_id is omitted.
// @Tags Sports
// @Produce json
// @Param term_id query string false "Term ID"
// @Success 200 {object} response.Envelope
// @Router /sports [get]
func (h *SportHandler) List(c *gin.Context) {
	sports, cacheHit, err := h.sports.List(c.Request.Context(), c.Query("term_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	if len(sports) > 0 {
		middleware.SetTermID(c, sports[0].TermID)
	}
	response.JSON(c, http.StatusOK, sports, nil, middleware.ExtractMeta(c))
}

// Get godoc
// @Summary Get sport
// @Tags Sports
// @Produce json
// @Param id path string true "Sport ID"
// @Success 200 {object} response.Envelope
// @Router /sports/{id} [get]
func (h *SportHandler) Get(c *gin.Context) {
	sport, err := h.sports.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sport, nil)
}

// Create godoc
// @Summary Create sport
// @Tags Sports
// @Accept json
// @Produce json
// @Param payload body dto.CreateSportRequest true "Sport payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /sports [post]
func (h *SportHandler) Create(c *gin.Context) {
	var req dto.CreateSportRequest
	if !bindJSON(c, &req) {
		return
	}
	sport, err := h.sports.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, sport)
}

// UpdateCapacity godoc
// @Summary Change a sport's capacity
// @Description Lowering capacity below the registered count keeps every student and blocks new admissions.
// @Tags Sports
// @Accept json
// @Produce json
// @Param id path string true "Sport ID"
// @Param payload body dto.UpdateCapacityRequest true "Capacity payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /sports/{id}/capacity [put]
func (h *SportHandler) UpdateCapacity(c *gin.Context) {
	var req dto.UpdateCapacityRequest
	if !bindJSON(c, &req) {
		return
	}
	sport, err := h.admission.UpdateCapacity(c.Request.Context(), c.Param("id"), *req.Capacity)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sport, nil)
}

// MarkFull godoc
// @Summary Close a sport at its current registration count
// @Tags Sports
// @Produce json
// @Param id path string true "Sport ID"
// @Success 200 {object} response.Envelope
// @Router /sports/{id}/mark-full [post]
func (h *SportHandler) MarkFull(c *gin.Context) {
	sport, err := h.admission.MarkFull(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sport, nil)
}

// Delete godoc
// @Summary Delete sport
// @Description Registered students are released and keep their records.
// @Tags Sports
// @Param id path string true "Sport ID"
// @Success 204
// @Router /sports/{id} [delete]
func (h *SportHandler) Delete(c *gin.Context) {
	if err := h.admission.DeleteSport(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Registrations godoc
// @Summary List students registered for a sport
// @Tags Sports
// @Produce json
// @Param id path string true "Sport ID"
// @Success 200 {object} response.Envelope
// @Router /sports/{id}/registrations [get]
func (h *SportHandler) Registrations(c *gin.Context) {
	students, err := h.sports.Registrations(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, nil)
}
