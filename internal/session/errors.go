package session

import (
	"errors"
	"fmt"
)

// Error kinds returned by coordinator operations. Handlers match with
// errors.Is and deliver the message only to the offending connection.
var (
	ErrValidation      = errors.New("validation error")
	ErrConflict        = errors.New("conflict")
	ErrDuplicateAnswer = errors.New("duplicate answer")
	ErrNotFound        = errors.New("not found")
)

func fail(kind error, msg string) error {
	return fmt.Errorf("%w: %s", kind, msg)
}
