package dto

import "time"

// PurgeConfirmationResponse is the first phase of deleting every student in a term.
type PurgeConfirmationResponse struct {
	TermID    string    `json:"term_id"`
	Code      string    `json:"code"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// PurgeStudentsRequest confirms the purge with the issued token and typed code.
type PurgeStudentsRequest struct {
	TermID string `json:"term_id" validate:"required,uuid"`
	Token  string `json:"token" validate:"required"`
	Code   string `json:"code" validate:"required"`
}

// PurgeStudentsResponse reports how many students were removed.
type PurgeStudentsResponse struct {
	TermID  string `json:"term_id"`
	Deleted int64  `json:"deleted"`
}
