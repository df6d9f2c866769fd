package domain

import (
	"errors"
	"fmt"
)

// ErrMalformedDocument marks feeds that are not well-formed XML.
var ErrMalformedDocument = errors.New("malformed document")

// ParseError wraps the decoder failure for a malformed feed.
type ParseError struct {
	Err error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Err == nil {
		return ErrMalformedDocument.Error()
	}
	return fmt.Sprintf("%s: %v", ErrMalformedDocument, e.Err)
}

// Unwrap exposes the decoder error.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match ErrMalformedDocument.
func (e *ParseError) Is(target error) bool {
	return target == ErrMalformedDocument
}
