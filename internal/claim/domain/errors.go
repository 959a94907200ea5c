package domain

import "errors"

var (
	ErrValidation          = errors.New("validation_error")
	ErrNotFound            = errors.New("not_found")
	ErrInvalidCategory     = errors.New("invalid_category")
	ErrMissingPrerequisite = errors.New("missing_prerequisite")
	ErrConflict            = errors.New("conflict")
	ErrExternalCapability  = errors.New("external_capability_error")
	ErrInvalidTransition   = errors.New("invalid_transition")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrForbidden           = errors.New("forbidden")
)

// FieldError is a ValidationError naming the offending field.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return e.Field + ": " + e.Reason
}

func (e *FieldError) Unwrap() error {
	return ErrValidation
}

func Invalid(field, reason string) error {
	return &FieldError{Field: field, Reason: reason}
}

// ValidationErrors collects every failing field of one request.
type ValidationErrors []*FieldError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ErrValidation.Error()
	}
	msg := v[0].Error()
	if len(v) > 1 {
		msg += " (and more)"
	}
	return msg
}

func (v ValidationErrors) Unwrap() error {
	return ErrValidation
}

func (v *ValidationErrors) Add(field, reason string) {
	*v = append(*v, &FieldError{Field: field, Reason: reason})
}

// Err returns nil when no field failed.
func (v ValidationErrors) Err() error {
	if len(v) == 0 {
		return nil
	}
	return v
}
