package domain

import (
	"errors"
	"fmt"
)

// Store errors. Repositories translate driver errors into these so callers
// never depend on gorm.
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrRoleNotFound       = errors.New("role not found")
	ErrPermissionNotFound = errors.New("permission not found")
	ErrSessionNotFound    = errors.New("session not found")

	ErrDuplicateEmail      = errors.New("user already exists")
	ErrDuplicateRole       = errors.New("role already exists")
	ErrDuplicatePermission = errors.New("permission already exists")
	ErrDuplicateSession    = errors.New("session token already exists")
)

// Validation errors
var (
	ErrValidation        = errors.New("validation failed")
	ErrInvalidRole       = errors.New("role does not exist")
	ErrInvalidPermission = errors.New("permission does not exist")
)

// ErrHasDependents is matched by every DependentsError
var ErrHasDependents = errors.New("entity has dependents")

// DependentsError reports a delete blocked by rows that still reference the
// entity.
type DependentsError struct {
	Resource  string
	Dependent string
	Count     int64
}

func (e *DependentsError) Error() string {
	return fmt.Sprintf("cannot delete %s: %d %s still reference it", e.Resource, e.Count, e.Dependent)
}

func (e *DependentsError) Is(target error) bool {
	return target == ErrHasDependents
}

// ValidationError wraps ErrValidation with a field-specific message
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func NewValidationError(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}
