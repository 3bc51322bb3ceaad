package store

import "errors"

var (
	// ErrNotFound is returned when the addressed row does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a write would violate a uniqueness rule.
	ErrConflict = errors.New("record already exists")
)

// DeviceSpec is the payload of a device registration job.
type DeviceSpec struct {
	IMEI string
	Info string
	Note string
}
