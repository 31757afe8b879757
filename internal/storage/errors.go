package storage

import "errors"

// Sentinel error kinds per the propagation policy in SPEC_FULL.md section 7.
var (
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrStorageCorrupt     = errors.New("storage corrupt")
	ErrMigrationFailed    = errors.New("schema migration failed")
	ErrNotFound           = errors.New("not found")
)
