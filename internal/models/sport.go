package models

import "time"

// Sport is an activity with a seat limit inside a term.
type Sport struct {
	ID          string    `db:"id" json:"id"`
	TermID      string    `db:"term_id" json:"term_id"`
	Name        string    `db:"name" json:"name"`
	Description *string   `db:"description" json:"description,omitempty"`
	Capacity    int       `db:"capacity" json:"capacity"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// SportAvailability is a sport together with its live registration count.
type SportAvailability struct {
	Sport
	CurrentCount int  `db:"current_count" json:"current_count"`
	Remaining    int  `db:"-" json:"remaining"`
	IsFull       bool `db:"-" json:"is_full"`
}

// Fill derives Remaining and IsFull from Capacity and CurrentCount.
func (s *SportAvailability) Fill() {
	s.Remaining = s.Capacity - s.CurrentCount
	if s.Remaining < 0 {
		s.Remaining = 0
	}
	s.IsFull = s.CurrentCount >= s.Capacity
}
