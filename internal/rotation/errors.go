package rotation

import "errors"

var (
	// ErrNotFound means a referenced task, member, or group does not exist
	// or belongs to a different group than the operation targets.
	ErrNotFound = errors.New("not found")

	// ErrInvalidState means the rotation state is unusable: empty rotation
	// list, pointer out of bounds, or no active members left to skip to.
	ErrInvalidState = errors.New("invalid rotation state")

	// ErrConflict means a concurrent mutation was detected (task version
	// mismatch) or a uniqueness constraint was violated.
	ErrConflict = errors.New("conflict")
)
