package jobs

import "errors"

var (
	// ErrDuplicateJob indicates a Create call reused an existing identifier.
	ErrDuplicateJob = errors.New("job id already exists")
	// ErrNotFound indicates the referenced job is unknown to the registry.
	ErrNotFound = errors.New("job not found")
	// ErrInvalidTransition indicates a status update that violates the
	// one-directional lifecycle ordering.
	ErrInvalidTransition = errors.New("invalid status transition")
)
