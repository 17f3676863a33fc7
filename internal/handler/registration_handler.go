package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourlocalmaccas/School-Website/internal/dto"
	"github.com/yourlocalmaccas/School-Website/internal/models"
	"github.com/yourlocalmaccas/School-Website/pkg/response"
)

type enrollmentService interface {
	Enroll(ctx context.Context, req dto.EnrollRequest) (*dto.AdmissionResult, error)
	JoinWaitlist(ctx context.Context, req dto.WaitlistRequest) (*models.Student, error)
}

type emailVerifier interface {
	VerifyEmail(ctx context.Context, req dto.VerifyEmailRequest) (*dto.VerifyEmailResponse, error)
}

// RegistrationHandler serves the public registration form.
type RegistrationHandler struct {
	admission enrollmentService
	emails    emailVerifier
}

// NewRegistrationHandler constructs the handler.
func NewRegistrationHandler(admission enrollmentService, emails emailVerifier) *RegistrationHandler {
	return &RegistrationHandler{admission: admission, emails: emails}
}

// Enroll godoc
// @Summary Register for a sport
// @Description Creates the student in the active term and takes a seat. A full sport stores nothing.
// @Tags Registrations
// @Accept json
// @Produce json
// @Param payload body dto.EnrollRequest true "Registration"
// @Success 201 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /registrations [post]
func (h *RegistrationHandler) Enroll(c *gin.Context) {
	var req dto.EnrollRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.admission.Enroll(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// JoinWaitlist godoc
// @Summary Join the waitlist
// @Tags Registrations
// @Accept json
// @Produce json
// @Param payload body dto.WaitlistRequest true "Student details"
// @Success 201 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /registrations/waitlist [post]
func (h *RegistrationHandler) JoinWaitlist(c *gin.Context) {
	var req dto.WaitlistRequest
	if !bindJSON(c, &req) {
		return
	}
	student, err := h.admission.JoinWaitlist(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, student)
}

// VerifyEmail godoc
// @Summary Check whether an email can still register
// @Tags Registrations
// @Accept json
// @Produce json
// @Param payload body dto.VerifyEmailRequest true "Email"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /verify-email [post]
func (h *RegistrationHandler) VerifyEmail(c *gin.Context) {
	var req dto.VerifyEmailRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.emails.VerifyEmail(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
