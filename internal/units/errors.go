package units

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyServiceName = errors.New("service name is required")
	ErrInvalidAction    = errors.New("invalid action")
)

// ValidationError reports which precondition a request failed.
// It wraps one of the sentinel errors above.
type ValidationError struct {
	Field  string
	Value  string
	Reason error
}

func (e *ValidationError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("%s: %v %q", e.Field, e.Reason, e.Value)
	}
	return fmt.Sprintf("%s: %v", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return e.Reason }

// IsValidation reports whether err is a request validation failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
