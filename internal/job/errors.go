package job

import (
	"errors"
	"fmt"
)

// TerminalError stops a job for good: the bus must not redeliver it.
// Everything else is retryable by default, so transient failures lean toward
// redelivery rather than silent loss.
type TerminalError struct {
	Reason string
	Cause  error
}

func (e *TerminalError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Cause)
	}
	return e.Reason
}

func (e *TerminalError) Unwrap() error { return e.Cause }

// Terminal wraps cause into a TerminalError. cause may be nil.
func Terminal(reason string, cause error) error {
	return &TerminalError{Reason: reason, Cause: cause}
}

func IsTerminal(err error) bool {
	var te *TerminalError
	return errors.As(err, &te)
}
