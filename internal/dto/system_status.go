package dto

// UpdateSystemStatusRequest changes the registration window. OpenAt is an
// RFC 3339 timestamp; an empty string clears the schedule and nil leaves it unchanged.
type UpdateSystemStatusRequest struct {
	IsOpen *bool   `json:"is_open"`
	OpenAt *string `json:"open_at"`
}
