package dto

// CreateTermRequest creates a registration term.
type CreateTermRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Year     int    `json:"year" validate:"required,gte=2000,lte=2100"`
	Activate bool   `json:"activate"`
}
