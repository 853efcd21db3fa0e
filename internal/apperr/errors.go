// Package apperr holds the error taxonomy shared by handlers, services
// and the operator CLI, and maps it onto HTTP responses and exit codes.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthenticated means no identity could be resolved for the caller.
	ErrUnauthenticated = errors.New("please sign in")
	// ErrForbidden means the caller is known but their role may not mutate.
	ErrForbidden = errors.New("insufficient permissions")

	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	// ErrConflict means the request is valid but the stored state forbids it.
	ErrConflict = errors.New("conflict")

	// ErrDataUnavailable marks any failure to read or write the store.
	ErrDataUnavailable = errors.New("data unavailable")
	// ErrAuditWritePartial marks a committed mutation whose audit row could
	// not be written.
	ErrAuditWritePartial = errors.New("audit write failed after mutation committed")
)

// FieldError is an input validation failure on a single request field.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string { return e.Field + " " + e.Reason }

func (e *FieldError) Unwrap() error { return ErrInvalidInput }

// Invalid reports a field-level validation failure.
func Invalid(field, reason string) error {
	return &FieldError{Field: field, Reason: reason}
}

// StoreError wraps a driver or ORM error with the operation that failed.
// It matches both ErrDataUnavailable and the underlying error.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return e.Op + ": " + e.Err.Error() }

func (e *StoreError) Unwrap() []error { return []error{ErrDataUnavailable, e.Err} }

// Store wraps err as a DataUnavailable failure. Errors that already carry a
// taxonomy meaning pass through unchanged.
func Store(op string, err error) error {
	if err == nil {
		return nil
	}
	if Classified(err) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}

// NotFound reports a missing entity, e.g. NotFound("project").
func NotFound(entity string) error {
	return fmt.Errorf("%s %w", entity, ErrNotFound)
}

// Classified reports whether err already belongs to the taxonomy.
func Classified(err error) bool {
	for _, target := range []error{
		ErrUnauthenticated, ErrForbidden, ErrInvalidInput,
		ErrNotFound, ErrConflict, ErrDataUnavailable, ErrAuditWritePartial,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
