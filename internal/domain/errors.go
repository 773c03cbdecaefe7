package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Callers map these with errors.Is.
var (
	ErrValidation      = errors.New("validation failed")
	ErrConflict        = errors.New("conflict")
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("forbidden")
	ErrInvalidWorkflow = errors.New("invalid workflow definition")
)

// StageCodesError is an error of a given kind that names the offending stages.
type StageCodesError struct {
	Kind  error
	Codes []StageCode
	Msg   string
}

func (e *StageCodesError) Error() string {
	return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Msg, JoinCodes(e.Codes))
}

func (e *StageCodesError) Unwrap() error { return e.Kind }

func NewStageCodesError(kind error, msg string, codes []StageCode) *StageCodesError {
	return &StageCodesError{Kind: kind, Codes: SortedCodes(codes), Msg: msg}
}

// NotFoundf builds an ErrNotFound-wrapping error.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrNotFound)
}

// Conflictf builds an ErrConflict-wrapping error.
func Conflictf(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrConflict)
}

// Forbiddenf builds an ErrForbidden-wrapping error.
func Forbiddenf(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrForbidden)
}

// Validationf builds an ErrValidation-wrapping error.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrValidation)
}
