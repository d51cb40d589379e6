// Package publoaderrors contains the error types shared by the load generator.
//
// Setup code returns ErrInvalidArgument (wrapped with errors.WithStack) for configuration that
// cannot be used; callers treat it as fatal. Per-request failures are reported with ErrRejected and
// are never fatal.
package publoaderrors

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrInvalidArgument is returned for an unusable configuration value.
// Message is optional and is omitted from the error message if not provided.
type ErrInvalidArgument struct {
	Name    string      // Name of the option, e.g., "poolSize"
	Value   interface{} // The invalid value that was provided
	Message string      // Optional explanation, e.g., "must be positive"
}

func (err *ErrInvalidArgument) Error() string {
	if err.Message == "" {
		return fmt.Sprintf("value %v is invalid for option %q", err.Value, err.Name)
	}
	return fmt.Sprintf("value %v is invalid for option %q; %s", err.Value, err.Name, err.Message)
}

// ErrRejected means the endpoint answered, but not with a status counted as accepted.
type ErrRejected struct {
	StatusCode int
	// First bytes of the response body, if any.
	Body string
}

func (err *ErrRejected) Error() string {
	if err.Body == "" {
		return fmt.Sprintf("publish rejected with status %d", err.StatusCode)
	}
	return fmt.Sprintf("publish rejected with status %d: %s", err.StatusCode, err.Body)
}

// IsInvalidArgument reports whether any error in err's chain is an ErrInvalidArgument.
func IsInvalidArgument(err error) bool {
	var e *ErrInvalidArgument
	return errors.As(err, &e)
}

// StatusCodeFromError returns the status code carried by an ErrRejected in err's chain, or 0.
func StatusCodeFromError(err error) int {
	var e *ErrRejected
	if errors.As(err, &e) {
		return e.StatusCode
	}
	return 0
}
