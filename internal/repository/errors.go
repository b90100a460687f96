// Package repository implements data access over the SQL store. Error types
// defined here are shared across repositories so handlers can translate
// failures into the right HTTP responses.
package repository

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a lookup matches no row. Handlers translate
// it into a 404 (identity lookups) or a generic 401 (credential lookups).
var ErrNotFound = errors.New("not found")

// ValidationError marks client input that was rejected before touching the
// database: unknown projection fields, disallowed sort columns, or filter
// values that do not parse. Handlers translate it into a 400 with the
// message intact.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func validationf(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}
