// Package apperrors is the error taxonomy every service translates into at its
// boundary. Raw storage errors never leave a service; handlers map these types
// onto HTTP statuses in one place.
package apperrors

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// NotFoundError covers both truly absent ids and ids that belong to another
// organization. The two are indistinguishable on purpose: a cross-tenant probe
// must not learn that a record exists.
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found", e.Resource)
}

// NotFound builds a NotFoundError for the given resource name.
func NotFound(resource string) error {
	return &NotFoundError{Resource: resource}
}

// ValidationError is a field-level input rejection. Never retried.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validation builds a ValidationError for one field.
func Validation(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// CycleError rejects a hierarchy mutation that would create a loop.
type CycleError struct {
	Message string
}

func (e *CycleError) Error() string {
	return e.Message
}

// ConfigurationError signals a missing setup precondition (e.g. no
// headquarters country). Fatal to the call; the fix is human action, not retry.
type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string {
	return e.Message
}

// ConflictError is a uniqueness violation (duplicate junction link) or a
// RESTRICT rule (entity still linked elsewhere).
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

// CancelledError reports a traversal aborted by the caller's context. Partial
// results are never returned in its place.
type CancelledError struct {
	Operation string
}

func (e *CancelledError) Error() string {
	return fmt.Sprintf("%s cancelled", e.Operation)
}

// HTTPStatus maps a taxonomy error to its response status.
func HTTPStatus(err error) int {
	var nf *NotFoundError
	var ve *ValidationError
	var ce *CycleError
	var cfg *ConfigurationError
	var cf *ConflictError
	var cl *CancelledError
	switch {
	case errors.As(err, &nf):
		return fiber.StatusNotFound
	case errors.As(err, &ve), errors.As(err, &ce):
		return fiber.StatusBadRequest
	case errors.As(err, &cfg):
		return fiber.StatusPreconditionFailed
	case errors.As(err, &cf):
		return fiber.StatusConflict
	case errors.As(err, &cl):
		return fiber.StatusRequestTimeout
	}
	return fiber.StatusInternalServerError
}

// Details returns the field-level payload for validation errors, empty
// otherwise. Used by the error handler to fill the response details object.
func Details(err error) map[string]interface{} {
	var ve *ValidationError
	if errors.As(err, &ve) && ve.Field != "" {
		return map[string]interface{}{"field": ve.Field, "message": ve.Message}
	}
	return map[string]interface{}{}
}

// Translate converts storage-layer errors into the taxonomy at a service
// boundary. resource names the entity for not-found messages.
func Translate(err error, resource string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return NotFound(resource)
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || isDuplicateMessage(err) {
		return &ConflictError{Message: fmt.Sprintf("%s already exists", resource)}
	}
	return err
}

// isDuplicateMessage catches drivers that surface unique violations as plain
// errors (sqlite in tests, postgres 23505 text through the pooler).
func isDuplicateMessage(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "unique failed")
}
