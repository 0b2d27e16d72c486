package store

import (
	"errors"
	"fmt"
)

// StoreUnavailableError: the record store could not be reached or answered
// with a server error. The write may or may not have landed.
type StoreUnavailableError struct {
	StatusCode int
	Err        error
}

func (e *StoreUnavailableError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("record store unavailable (http %d): %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("record store unavailable: %v", e.Err)
}

func (e *StoreUnavailableError) Unwrap() error { return e.Err }

// StoreRejectedError: the record store understood the request and refused it.
// Detail carries the server's message verbatim for user display.
type StoreRejectedError struct {
	StatusCode int
	Detail     string
}

func (e *StoreRejectedError) Error() string {
	return fmt.Sprintf("record store rejected request (http %d): %s", e.StatusCode, e.Detail)
}

func IsNotFound(err error) bool {
	var rejected *StoreRejectedError
	return errors.As(err, &rejected) && rejected.StatusCode == 404
}
