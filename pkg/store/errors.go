package store

import (
	"errors"
	"fmt"
)

var (
	// ErrFormNotFound reports an operation on a form ID with no live instance.
	ErrFormNotFound = errors.New("store: form not found")
	// ErrInvalidConfig reports a Config that cannot be registered.
	ErrInvalidConfig = errors.New("store: invalid form config")
)

// NotFoundError carries the missing form ID. It matches ErrFormNotFound under
// errors.Is.
type NotFoundError struct {
	FormID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("store: can't find form with id %q", e.FormID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrFormNotFound
}

func notFound(formID string) error {
	return &NotFoundError{FormID: formID}
}
