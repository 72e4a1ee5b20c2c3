package domain

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrProductNotFound = errors.New("product not found")
)

// ValidationError carries field-level validation failures keyed by JSON field
// name. FormErrors holds failures that belong to no single field.
type ValidationError struct {
	FormErrors  []string            `json:"formErrors"`
	FieldErrors map[string][]string `json:"fieldErrors"`
}

// NewValidationError returns an empty ValidationError ready to collect failures
func NewValidationError() *ValidationError {
	return &ValidationError{
		FormErrors:  []string{},
		FieldErrors: map[string][]string{},
	}
}

// AddField records a message against a field
func (e *ValidationError) AddField(field, message string) {
	e.FieldErrors[field] = append(e.FieldErrors[field], message)
}

// AddForm records a message that is not tied to a field
func (e *ValidationError) AddForm(message string) {
	e.FormErrors = append(e.FormErrors, message)
}

// HasErrors reports whether any failure was recorded
func (e *ValidationError) HasErrors() bool {
	return len(e.FormErrors) > 0 || len(e.FieldErrors) > 0
}

// HasField reports whether the field already failed
func (e *ValidationError) HasField(field string) bool {
	_, ok := e.FieldErrors[field]
	return ok
}

func (e *ValidationError) Error() string {
	parts := append([]string{}, e.FormErrors...)
	fields := make([]string, 0, len(e.FieldErrors))
	for field := range e.FieldErrors {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	for _, field := range fields {
		parts = append(parts, field+": "+strings.Join(e.FieldErrors[field], ", "))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}
