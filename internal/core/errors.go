package core

import (
	"errors"

	"github.com/valter-silva-au/projectcolab/internal/storage"
)

// Sentinel errors returned by core services. Callers match them with
// errors.Is.
var (
	ErrNotFound     = storage.ErrNotFound
	ErrInvalidInput = errors.New("invalid input")
	ErrParentCycle  = errors.New("parent chain would form a cycle")
	ErrCrossProject = errors.New("parent belongs to a different project")
)
