package services

import (
	"errors"
	"fmt"
	"net/http"
)

// Domain error kinds. Every service operation returns one of these (or a
// StoreError wrapping the underlying database failure) so callers can
// distinguish user mistakes from store faults without parsing messages.
var (
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrAuth              = errors.New("authentication failed")
	ErrStore             = errors.New("store failure")
)

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func notFoundError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

func conflictError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}

func insufficientStockError(model string, requested, available int) error {
	return fmt.Errorf("%w: requested %d units of %q but only %d in stock",
		ErrInsufficientStock, requested, model, available)
}

func authError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrAuth, fmt.Sprintf(format, args...))
}

// storeError wraps a database failure. The enclosing transaction has
// already been rolled back when this is returned.
func storeError(err error) error {
	return fmt.Errorf("%w: %v", ErrStore, err)
}

// statusForError maps a domain error to the HTTP status the handlers
// report it with.
func statusForError(err error) int {
	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrInsufficientStock):
		return http.StatusConflict
	case errors.Is(err, ErrAuth):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
