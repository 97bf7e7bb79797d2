package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrFileRequired        = errors.New("debes seleccionar un archivo")
	ErrDocumentLocked      = errors.New("document is approved and can no longer be replaced")
	ErrInvalidTransition   = errors.New("invalid review transition")
	ErrObservationRequired = errors.New("rejection requires an observation")
	ErrRequirementTaken    = errors.New("requirement already has a document for this applicant")
)

// ValidationError lists the fields that failed a required-field or format check.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid fields: %s", strings.Join(e.Fields, ", "))
}

// IsValidation reports whether err is a validation failure the caller can fix.
func IsValidation(err error) bool {
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return true
	}
	return errors.Is(err, ErrFileRequired) || errors.Is(err, ErrObservationRequired)
}
