package service

import "github.com/google/uuid"

// isUUID guards queries against uuid columns; malformed ids are reported as
// not found instead of surfacing a driver cast error.
func isUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
