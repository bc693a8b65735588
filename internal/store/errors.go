package store

import (
	"errors"
	"fmt"
)

// CorruptionError reports a structural read failure in the database. Callers
// treat it as fatal for a whole run: membership deltas computed from a
// corrupt snapshot cannot be trusted.
type CorruptionError struct {
	Op  string
	Err error
}

func (e *CorruptionError) Error() string {
	return fmt.Sprintf("store corruption during %s: %v", e.Op, e.Err)
}

func (e *CorruptionError) Unwrap() error {
	return e.Err
}

// IsCorruption reports whether err carries a CorruptionError.
func IsCorruption(err error) bool {
	var ce *CorruptionError
	return errors.As(err, &ce)
}

func corrupt(op string, err error) error {
	return &CorruptionError{Op: op, Err: err}
}
