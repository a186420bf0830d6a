package auth

import (
	"errors"
	"fmt"
)

var ErrInvalidUsername = errors.New("invalid username")

// PermanentError marks a job failure that must not be retried, such as a job
// referencing a user that no longer exists locally.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string {
	return fmt.Sprintf("permanent: %v", e.Err)
}

func (e *PermanentError) Unwrap() error {
	return e.Err
}

func Permanent(err error) error {
	return &PermanentError{Err: err}
}

func IsPermanent(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}
