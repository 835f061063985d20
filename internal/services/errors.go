package services

import (
	"errors"
	"fmt"
)

// ErrDocumentNotFound reports that the original document is absent from the
// intake area.
var ErrDocumentNotFound = errors.New("document not found")

// PermanentError marks a failure the bus must not retry: unsupported input,
// a missing original object, anything redelivery cannot fix. Entry points
// acknowledge these instead of propagating them.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string {
	return fmt.Sprintf("permanent failure: %v", e.Err)
}

func (e *PermanentError) Unwrap() error {
	return e.Err
}

// Permanent wraps err as a PermanentError.
func Permanent(err error) error {
	return &PermanentError{Err: err}
}

// IsPermanent reports whether err is a failure redelivery cannot fix.
func IsPermanent(err error) bool {
	var perm *PermanentError
	return errors.As(err, &perm)
}
