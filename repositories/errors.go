package repositories

import "errors"

var (
	// ErrNotFound is returned when a record addressed by its unique value
	// does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrVersionMismatch is returned when an update's expected version no
	// longer matches the stored version. The caller lost the race and must
	// re-read before retrying.
	ErrVersionMismatch = errors.New("record version mismatch")

	// ErrDuplicate is returned when an insert collides with an existing
	// unique value. It covers the window between a caller's existence check
	// and its insert.
	ErrDuplicate = errors.New("record already exists")
)
