package storage

import (
	"errors"
	"fmt"
)

// Sentinel errors for the service-facing taxonomy. Services and callers
// match with errors.Is; backends wrap them with operation context.
var (
	// ErrNotFound indicates a referenced ID does not exist
	ErrNotFound = errors.New("not found")

	// ErrValidation indicates a logical precondition violation: inactive
	// target, self-dependency, cycle, missing link on remove, positioning
	// conflict
	ErrValidation = errors.New("validation failed")

	// ErrCycle indicates a dependency or parent cycle would be created
	ErrCycle = fmt.Errorf("%w: cycle detected", ErrValidation)

	// ErrNothingToUndo is returned when the history has no undoable action
	ErrNothingToUndo = errors.New("nothing to undo")

	// ErrNothingToRedo is returned when no undone action remains to replay
	ErrNothingToRedo = errors.New("nothing to redo")
)

// NotFoundf wraps ErrNotFound with detail.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrNotFound)
}

// Validationf wraps ErrValidation with detail.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrValidation)
}

// IsNotFound checks if an error is or wraps ErrNotFound
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation checks if an error is or wraps ErrValidation
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}
