package models

import "time"

// ConfigurationType defines supported types for configuration values.
type ConfigurationType string

const (
	ConfigurationTypeString    ConfigurationType = "STRING"
	ConfigurationTypeBoolean   ConfigurationType = "BOOLEAN"
	ConfigurationTypeTimestamp ConfigurationType = "TIMESTAMP"
)

// Configuration keys owned by the registration window.
const (
	ConfigRegistrationOpen   = "registration_open"
	ConfigRegistrationOpenAt = "registration_open_at"
)

// Configuration represents a persisted configuration entry.
type Configuration struct {
	Key         string            `db:"key" json:"key"`
	Value       string            `db:"value" json:"value"`
	Type        ConfigurationType `db:"type" json:"type"`
	Description *string           `db:"description" json:"description,omitempty"`
	UpdatedAt   time.Time         `db:"updated_at" json:"updated_at"`
}

// RegistrationWindow is the effective open/closed state for public registration.
type RegistrationWindow struct {
	IsOpen   bool       `json:"is_open"`
	Manual   bool       `json:"manual_open"`
	OpenAt   *time.Time `json:"open_at,omitempty"`
	Resolved time.Time  `json:"resolved_at"`
}
