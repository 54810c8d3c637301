package bot

import "errors"

// TransientError marks a publish failure expected to clear on its own, such
// as rate limiting or momentary service trouble. The publisher retries these
// with a fixed wait; every other error escalates to the supervisor.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return e.Err.Error() }

func (e *TransientError) Unwrap() error { return e.Err }

// Transient wraps err so that IsTransient reports true for it. Returns nil
// for a nil err.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

// IsTransient reports whether err is, or wraps, a TransientError.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
