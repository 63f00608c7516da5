// Package services orchestrates the create, read, replace, patch and delete
// operations on provenance records.
package services

import (
	"errors"
	"fmt"

	"github.com/ebrains-prov/provenance-api/pkg/auth"
	"github.com/ebrains-prov/provenance-api/pkg/kg"
	"github.com/ebrains-prov/provenance-api/pkg/mapping"
)

// Business Logic Errors - These indicate client errors (4xx responses).
var (
	// Validation Errors (400 Bad Request).
	ErrInvalidRequest = errors.New("invalid request")
	ErrRecordExists   = errors.New("record already exists")
	ErrIDMismatch     = errors.New("record identifier mismatch")

	// Authorization Errors (403 Forbidden).
	ErrForbidden = errors.New("forbidden")

	// Lookup Errors (404 Not Found).
	ErrRecordNotFound = errors.New("record not found")
)

const forbiddenMessage = "You can only %s provenance records in your private space " +
	"or in collab spaces for which you are an administrator."

// ServiceError wraps service-level errors with additional context.
type ServiceError struct {
	Op      string // Operation name
	Code    string // Error code for API responses
	Message string // Human-readable message
	Err     error  // Underlying error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsValidationError checks if an error is a validation error that should return HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrIDMismatch) ||
		errors.Is(err, kg.ErrStrictValidation) ||
		errors.Is(err, auth.ErrInvalidCollab) ||
		mapping.IsClientError(err)
}

// IsConflictError checks if an error reports a record that already exists.
// The API answers these with HTTP 400 as well.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrRecordExists)
}

// IsForbidden checks if an error is an authorization failure that should return HTTP 403.
func IsForbidden(err error) bool {
	return errors.Is(err, ErrForbidden)
}

// IsNotFound checks if an error should return HTTP 404.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrRecordNotFound)
}

// IsUnauthorized checks if the caller's token was rejected (HTTP 401).
func IsUnauthorized(err error) bool {
	return errors.Is(err, auth.ErrUnauthorized)
}

// NewValidationError creates a new validation error with context.
func NewValidationError(op, code, message string, err error) *ServiceError {
	return &ServiceError{
		Op:      op,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func notFound(op, label, id string, err error) *ServiceError {
	return &ServiceError{
		Op:      op,
		Code:    "not_found",
		Message: fmt.Sprintf("no record of a %s with identifier %s", label, id),
		Err:     errors.Join(ErrRecordNotFound, err),
	}
}

func forbidden(op, verb string) *ServiceError {
	return &ServiceError{
		Op:      op,
		Code:    "forbidden",
		Message: fmt.Sprintf(forbiddenMessage, verb),
		Err:     ErrForbidden,
	}
}

func exists(op, label, id string) *ServiceError {
	return &ServiceError{
		Op:   op,
		Code: "already_exists",
		Message: fmt.Sprintf("A %s with id %s already exists. "+
			"The POST endpoint cannot be used to modify an existing %s record.", label, id, label),
		Err: ErrRecordExists,
	}
}

// mappingError wraps a mapper failure. Client-side mapping errors keep their
// field-scoped message.
func mappingError(op string, err error) error {
	if mapping.IsClientError(err) || errors.Is(err, kg.ErrStrictValidation) {
		return NewValidationError(op, "invalid_record", err.Error(), err)
	}

	return fmt.Errorf("%s: %w", op, err)
}
