package services

import (
	"fmt"

	"example.com/backstage/services/laundry/internal/repositories"

	"github.com/pkg/errors"
)

// Service errors. Handlers map them onto HTTP status codes.
var (
	ErrNotFound          = repositories.ErrNotFound
	ErrValidation        = errors.New("validation failed")
	ErrSlotFull          = errors.New("time slot is full or inactive")
	ErrRequestNotPending = errors.New("scheduling request is not pending")
	ErrRouteStarted      = errors.New("route has already been started")
	ErrOrderOnRoute      = errors.New("order is already on a route")
	ErrForbidden         = errors.New("forbidden")
)

// ValidationError describes invalid input. It matches ErrValidation under errors.Is.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Is reports whether target is ErrValidation
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func invalid(format string, args ...interface{}) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}
