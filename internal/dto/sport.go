package dto

// CreateSportRequest adds a sport to a term.
type CreateSportRequest struct {
	TermID      string  `json:"term_id" validate:"required,uuid"`
	Name        string  `json:"name" validate:"required,max=100"`
	Description *string `json:"description" validate:"omitempty,max=500"`
	Capacity    int     `json:"capacity" validate:"required,gte=1"`
}

// UpdateCapacityRequest replaces a sport's capacity. Values below one are
// rejected by the admission service rather than by binding, so the response
// carries INVALID_CAPACITY instead of a generic validation error.
type UpdateCapacityRequest struct {
	Capacity *int `json:"capacity" binding:"required"`
}
