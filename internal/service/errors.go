// Package service implements the transactional mutation core and the
// authorization gate. It is the only layer that translates low-level
// store failures into the stable domain error taxonomy below; callers
// branch on these sentinels with errors.Is and never see store codes.
package service

import (
	"errors"
	"fmt"

	"github.com/johnamet/faithvibe/internal/store"
)

// Domain error taxonomy. Conflict, Unavailable and RateLimited are safe
// to retry with backoff; the rest are terminal for the attempted call.
var (
	// ErrValidation is returned when the input fails schema validation.
	ErrValidation = errors.New("validation failed")

	// ErrPermissionDenied is returned when the caller lacks the role an
	// operation requires, or is not authenticated at all.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrNotFound is returned when a referenced entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrCapacityExceeded is returned when a registration would push an
	// event past its declared capacity.
	ErrCapacityExceeded = errors.New("event is at full capacity")

	// ErrConflict is returned when a transaction lost a race with a
	// concurrent writer, or a uniqueness rule was violated.
	ErrConflict = errors.New("conflict")

	// ErrUnavailable is returned on transient store failures, including
	// transaction timeouts. Nothing was committed.
	ErrUnavailable = errors.New("service unavailable")

	// ErrRateLimited is returned when the store sheds load.
	ErrRateLimited = errors.New("rate limited")
)

// isDomain reports whether err already carries a taxonomy sentinel.
func isDomain(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrPermissionDenied) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrCapacityExceeded) ||
		errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrUnavailable) ||
		errors.Is(err, ErrRateLimited)
}

// Translate maps store-level errors onto the domain taxonomy on behalf
// of callers that read the store directly, such as the repository-backed
// list endpoints.
func Translate(err error) error {
	return translate(err)
}

// translate maps store-level errors onto the domain taxonomy. Errors
// that already carry a domain sentinel pass through untouched, so a
// capacity failure raised inside a transaction body is never re-labelled
// by the surrounding conflict handling.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case isDomain(err):
		return err
	case errors.Is(err, store.ErrNotExist):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case errors.Is(err, store.ErrTxConflict), errors.Is(err, store.ErrDuplicate):
		return fmt.Errorf("%w: %v", ErrConflict, err)
	case errors.Is(err, store.ErrExhausted):
		return fmt.Errorf("%w: %v", ErrRateLimited, err)
	case errors.Is(err, store.ErrUnavailable):
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	default:
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
}

// validationErr wraps a validator failure in the taxonomy.
func validationErr(err error) error {
	return fmt.Errorf("%w: %v", ErrValidation, err)
}
