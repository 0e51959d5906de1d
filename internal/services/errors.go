// Package services defines the business logic for habits, days and the
// completion summary. This file centralizes the service-level error values
// and types so that callers can branch on them with errors.Is / errors.As.
//
// Translation into HTTP status codes is performed by the handlers package.
package services

import (
	"errors"
	"fmt"
)

var (
	// ErrHabitNotFound is returned when a toggle targets a habit id that
	// does not exist.
	ErrHabitNotFound = errors.New("habit not found")

	// ErrToggleConflict is returned when a concurrent toggle of the same
	// habit on the same day won the race. The caller may simply retry.
	ErrToggleConflict = errors.New("concurrent toggle for the same habit and day")
)

// ValidationError reports malformed or missing input. Field names the
// offending input (e.g. "weekDays[0]") and Reason the violated constraint.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Reason
	}
	return fmt.Sprintf("validation failed: %s %s", e.Field, e.Reason)
}

// StorageError wraps a persistence failure. Op names the operation that
// failed; Err is the underlying gorm/driver error.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return "storage: " + e.Op + ": " + e.Err.Error() }

func (e *StorageError) Unwrap() error { return e.Err }

// storageErr wraps err unless it is nil or already a service-level error.
func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var ve *ValidationError
	var se *StorageError
	if errors.As(err, &ve) || errors.As(err, &se) ||
		errors.Is(err, ErrHabitNotFound) || errors.Is(err, ErrToggleConflict) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}
