package kg

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates no instance exists with the given identifier, or
	// the caller cannot see it at the requested scope.
	ErrNotFound = errors.New("instance not found")

	// ErrUnresolvedLink indicates a proxy link was read without being resolved.
	ErrUnresolvedLink = errors.New("link has not been resolved")

	// ErrStrictValidation indicates a node is missing a required property.
	ErrStrictValidation = errors.New("required property missing")

	// ErrUnexpectedType indicates a document or link carries a type this
	// package does not model.
	ErrUnexpectedType = errors.New("unexpected instance type")

	// ErrUpstream indicates the graph service answered with an error.
	ErrUpstream = errors.New("knowledge graph request failed")
)

// InstanceError wraps instance-related errors with additional context.
type InstanceError struct {
	Op  string // Operation being performed (e.g., "Get", "Save", "Delete")
	ID  string // Instance IRI or UUID if known
	Err error
}

func (e *InstanceError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}

	return fmt.Sprintf("%s operation failed for instance %s: %v", e.Op, e.ID, e.Err)
}

func (e *InstanceError) Unwrap() error {
	return e.Err
}

func (e *InstanceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsNotFound checks if an error indicates an instance was not found.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsUnexpectedType checks if an error reports an unmodelled instance type.
func IsUnexpectedType(err error) bool {
	return errors.Is(err, ErrUnexpectedType)
}
