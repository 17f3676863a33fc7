package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yourlocalmaccas/School-Website/internal/dto"
	"github.com/yourlocalmaccas/School-Website/internal/models"
	appErrors "github.com/yourlocalmaccas/School-Website/pkg/errors"
	"github.com/yourlocalmaccas/School-Website/pkg/response"
)

type studentService interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.StudentRow, error)
	Waitlist(ctx context.Context, termID string) ([]models.StudentRow, error)
	Get(ctx context.Context, id string) (*models.StudentRow, error)
	Delete(ctx context.Context, id string) error
	RequestPurge(ctx context.Context, termID string) (*dto.PurgeConfirmationResponse, error)
	PurgeTerm(ctx context.Context, req dto.PurgeStudentsRequest) (*dto.PurgeStudentsResponse, error)
}

type assignmentService interface {
	Register(ctx context.Context, studentID, sportID string) (models.AdmissionOutcome, error)
	AssignWaitlist(ctx context.Context, studentID string) (*models.Student, error)
}

type registerStudentRequest struct {
	SportID string `json:"sport_id" binding:"required"`
}

type purgeConfirmationRequest struct {
	TermID string `json:"term_id" binding:"required"`
}

// StudentHandler exposes admin student endpoints.
type StudentHandler struct {
	students  studentService
	admission assignmentService
}

// NewStudentHandler constructs a student handler.
func NewStudentHandler(students studentService, admission assignmentService) *StudentHandler {
	return &StudentHandler{students: students, admission: admission}
}

// List godoc
// @Summary List students
// @Description Sorted by last name. Defaults to the active term.
// @Tags Students
// @Produce json
// @Param term_id query string false "Term ID"
// @Param year query string false "Year level"
// @Param sport_id query string false "Sport ID"
// @Param waitlisted query bool false "Waitlist flag"
// @Success 200 {object} response.Envelope
// @Router /students [get]
func (h *StudentHandler) List(c *gin.Context) {
	filter := models.StudentFilter{
		TermID:  c.Query("term_id"),
		Year:    c.Query("year"),
		SportID: c.Query("sport_id"),
	}
	if raw := c.Query("waitlisted"); raw != "" {
		val, err := strconv.ParseBool(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "waitlisted must be a boolean"))
			return
		}
		filter.Waitlisted = &val
	}
	students, err := h.students.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, nil)
}

// Waitlist godoc
// @Summary List waitlisted students
// @Tags Students
// @Produce json
// @Param term_id query string false "Term ID"
// @Success 200 {object} response.Envelope
// @Router /students/waitlist [get]
func (h *StudentHandler) Waitlist(c *gin.Context) {
	students, err := h.students.Waitlist(c.Request.Context(), c.Query("term_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, nil)
}

// Get godoc
// @Summary Get student
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id} [get]
func (h *StudentHandler) Get(c *gin.Context) {
	student, err := h.students.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// Delete godoc
// @Summary Delete student
// @Description Frees the student's seat. Deleting is the only way to unregister.
// @Tags Students
// @Param id path string true "Student ID"
// @Success 204
// @Router /students/{id} [delete]
func (h *StudentHandler) Delete(c *gin.Context) {
	if err := h.students.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Register godoc
// @Summary Admit a student to a sport
// @Description Fails with SPORT_FULL when no seat is left and ALREADY_ASSIGNED when the student holds a sport.
// @Tags Students
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body registerStudentRequest true "Sport"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /students/{id}/register [post]
func (h *StudentHandler) Register(c *gin.Context) {
	var req registerStudentRequest
	if !bindJSON(c, &req) {
		return
	}
	outcome, err := h.admission.Register(c.Request.Context(), c.Param("id"), req.SportID)
	if err != nil {
		response.Error(c, err, outcomeMeta(outcome))
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"outcome": outcome}, nil)
}

// AssignWaitlist godoc
// @Summary Move a student without a sport to the waitlist
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/waitlist [post]
func (h *StudentHandler) AssignWaitlist(c *gin.Context) {
	student, err := h.admission.AssignWaitlist(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// RequestPurge godoc
// @Summary Start deleting every student of a term
// @Description Returns a code the operator must type back together with the token.
// @Tags Students
// @Accept json
// @Produce json
// @Param payload body purgeConfirmationRequest true "Term"
// @Success 200 {object} response.Envelope
// @Router /students/purge/confirmation [post]
func (h *StudentHandler) RequestPurge(c *gin.Context) {
	var req purgeConfirmationRequest
	if !bindJSON(c, &req) {
		return
	}
	challenge, err := h.students.RequestPurge(c.Request.Context(), req.TermID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, challenge, nil)
}

// Purge godoc
// @Summary Delete every student of a term
// @Tags Students
// @Accept json
// @Produce json
// @Param payload body dto.PurgeStudentsRequest true "Confirmation"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /students/purge [post]
func (h *StudentHandler) Purge(c *gin.Context) {
	var req dto.PurgeStudentsRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.students.PurgeTerm(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

func outcomeMeta(outcome models.AdmissionOutcome) map[string]interface{} {
	if outcome == "" {
		return nil
	}
	return map[string]interface{}{"outcome": outcome}
}
