package mapping

import (
	"errors"
	"fmt"
)

var (
	ErrNoSuchUnit            = errors.New("no such unit")
	ErrUnsupportedRepository = errors.New("repository format not supported")
	ErrUnknownContentType    = errors.New("unknown content type")
	ErrUnknownHardware       = errors.New("unknown hardware system")
	ErrUnknownHashAlgorithm  = errors.New("unknown hash algorithm")
	ErrUnknownStatus         = errors.New("unknown status")
	ErrUnknownStageType      = errors.New("unknown stage type")
	ErrInputNotAllowed       = errors.New("input type not allowed for this kind of computation")
	ErrKindMismatch          = errors.New("record type does not match the endpoint")
	ErrORCIDConflict         = errors.New("ORCID belongs to a person with other names")
	ErrNoSuchReference       = errors.New("referenced instance does not exist")

	// ErrUnexpectedInput reports a graph instance of a type the mapper does
	// not handle. It indicates inconsistent stored data, not a bad request.
	ErrUnexpectedInput = errors.New("unexpected object type")
)

// FieldError ties a mapping error to the field that caused it.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

func (e *FieldError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

func fieldError(field string, err error) error {
	if err == nil {
		return nil
	}

	return &FieldError{Field: field, Err: err}
}

// IsClientError reports whether err was caused by the submitted record
// rather than by stored data or an upstream failure.
func IsClientError(err error) bool {
	for _, target := range []error{
		ErrNoSuchUnit,
		ErrUnsupportedRepository,
		ErrUnknownContentType,
		ErrUnknownHardware,
		ErrUnknownHashAlgorithm,
		ErrUnknownStatus,
		ErrUnknownStageType,
		ErrInputNotAllowed,
		ErrKindMismatch,
		ErrORCIDConflict,
		ErrNoSuchReference,
	} {
		if errors.Is(err, target) {
			return true
		}
	}

	return false
}
