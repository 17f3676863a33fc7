package models

import (
	"strings"
	"time"
)

// Student is a registration submitted for a term. SportID is set once the
// student has been admitted; Waitlisted students never carry a sport.
type Student struct {
	ID           string     `db:"id" json:"id"`
	TermID       string     `db:"term_id" json:"term_id"`
	Name         string     `db:"name" json:"name"`
	Email        string     `db:"email" json:"email"`
	Phone        string     `db:"phone" json:"phone"`
	Year         string     `db:"year" json:"year"`
	SportID      *string    `db:"sport_id" json:"sport_id,omitempty"`
	Waitlisted   bool       `db:"waitlisted" json:"waitlisted"`
	RegisteredAt *time.Time `db:"registered_at" json:"registered_at,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// LastName returns the final whitespace separated token of Name.
func (s Student) LastName() string {
	fields := strings.Fields(s.Name)
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}

// StudentRow is a student joined with the name of its sport.
type StudentRow struct {
	Student
	SportName *string `db:"sport_name" json:"sport_name,omitempty"`
}

// StudentFilter narrows student listings.
type StudentFilter struct {
	TermID     string
	Year       string
	SportID    string
	Waitlisted *bool
}
