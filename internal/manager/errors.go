package manager

import (
	"errors"

	"github.com/fentz26/tracker/internal/schedule"
)

// Sentinel errors for tracker operations.
var (
	ErrNotFound           = errors.New("not found")
	ErrSchedulingConflict = schedule.ErrConflict
	ErrInvalidInput       = errors.New("invalid input")
	ErrMalformedInput     = errors.New("malformed input")
	ErrIDCollision        = errors.New("id already in use")
)
