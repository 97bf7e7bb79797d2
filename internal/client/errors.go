package client

import (
	"errors"
	"fmt"

	"gdoc/internal/domain"
)

type Reason string

const (
	ReasonTransport  Reason = "transport"
	ReasonStatus     Reason = "status"
	ReasonValidation Reason = "validation"
	ReasonDecode     Reason = "decode"
)

// Error is the only error type the client returns.
type Error struct {
	Reason  Reason
	Status  int
	Message string
	Fields  []string
	Err     error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("gdoc api %s (%d): %s", e.Reason, e.Status, e.Message)
	}
	return fmt.Sprintf("gdoc api %s: %s", e.Reason, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ReasonOf returns the reason of a client error, or "" for any other error.
func ReasonOf(err error) Reason {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Reason
	}
	return ""
}

// missingFile is returned before any request when an upload has no file.
func missingFile() *Error {
	return &Error{Reason: ReasonValidation, Message: domain.ErrFileRequired.Error(), Fields: []string{"archivo"}, Err: domain.ErrFileRequired}
}
