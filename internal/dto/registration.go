package dto

import "github.com/yourlocalmaccas/School-Website/internal/models"

// StudentDetails are the contact fields collected by the public form.
type StudentDetails struct {
	Name  string `json:"name" validate:"required,max=120"`
	Email string `json:"email" validate:"required,email,max=254"`
	Phone string `json:"phone" validate:"required,max=32"`
	Year  string `json:"year" validate:"required,oneof=7 8 9 10"`
}

// EnrollRequest creates a student in the active term and admits them to a sport.
type EnrollRequest struct {
	StudentDetails
	SportID string `json:"sport_id" validate:"required,uuid"`
}

// WaitlistRequest creates a waitlisted student in the active term.
type WaitlistRequest struct {
	StudentDetails
}

// AdmissionResult reports the outcome of a registration attempt.
type AdmissionResult struct {
	Outcome models.AdmissionOutcome   `json:"outcome"`
	Student *models.Student           `json:"student,omitempty"`
	Sport   *models.SportAvailability `json:"sport,omitempty"`
}

// VerifyEmailRequest checks whether an email may still register.
type VerifyEmailRequest struct {
	Email string `json:"email"`
}

// VerifyEmailResponse is returned when the email is available.
type VerifyEmailResponse struct {
	Email     string `json:"email"`
	Available bool   `json:"available"`
}
