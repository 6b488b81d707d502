package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"katalog/internal/repositories"
)

// Conflict codes returned to API clients.
const (
	CodeUnitChangeForbidden     = "UNIT_CHANGE_FORBIDDEN_WHEN_STOCK"
	CodeUnitInUse               = "UNIT_IN_USE"
	CodeUnitStepLocked          = "UNIT_STEP_LOCKED"
	CodeUnitReplaceIncompatible = "UNIT_REPLACE_INCOMPATIBLE"
	CodeSlugConflict            = "SLUG_CONFLICT"
	CodeSKUConflict             = "SKU_CONFLICT"
)

// ErrNotFound is returned when an addressed product or unit does not exist.
var ErrNotFound = repositories.ErrNotFound

// ValidationError carries field-scoped messages for a rejected payload.
type ValidationError struct {
	Fields map[string][]string
}

func NewValidationError() *ValidationError {
	return &ValidationError{Fields: map[string][]string{}}
}

// Add appends a message for field.
func (e *ValidationError) Add(field, message string) {
	e.Fields[field] = append(e.Fields[field], message)
}

// Has reports whether field already has a message.
func (e *ValidationError) Has(field string) bool {
	return len(e.Fields[field]) > 0
}

// Empty reports whether no messages were collected.
func (e *ValidationError) Empty() bool {
	return len(e.Fields) == 0
}

// OrNil returns e when it holds messages and nil otherwise.
func (e *ValidationError) OrNil() error {
	if e.Empty() {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Fields))
	for f := range e.Fields {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return "validation failed: " + strings.Join(fields, ", ")
}

// ConflictError reports a state conflict that the caller cannot fix by
// correcting the payload alone.
type ConflictError struct {
	Code    string
	Field   string
	Message string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsConflict reports whether err is a ConflictError with the given code.
func IsConflict(err error, code string) bool {
	var ce *ConflictError
	return errors.As(err, &ce) && ce.Code == code
}
