package services

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRequest is returned before any data access for malformed requests.
	ErrInvalidRequest = errors.New("invalid recommendation request")

	ErrUnknownMode    = errors.New("unknown recommendation mode")
	ErrUnknownVariant = errors.New("unknown experiment variant")
	ErrInvalidLimit   = errors.New("limit out of range")
)

// invalidRequest wraps cause so that both ErrInvalidRequest and cause match errors.Is.
func invalidRequest(cause error, detail string) error {
	return fmt.Errorf("%w: %w: %s", ErrInvalidRequest, cause, detail)
}
