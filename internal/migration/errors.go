package migration

import (
	"errors"
	"fmt"

	"dualbase/internal/dbtarget"
)

// ErrNothingToRevert is the cause when revert is asked for a target with no
// executed units.
var ErrNothingToRevert = errors.New("no executed migrations to revert")

// MigrationError wraps an apply/revert/generate failure with the target and
// unit it happened on.
type MigrationError struct {
	Target dbtarget.Target
	Op     string
	Name   string
	Err    error
}

func (e *MigrationError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("migration %s on %s: %v", e.Op, e.Target, e.Err)
	}
	return fmt.Sprintf("migration %s %s on %s: %v", e.Op, e.Name, e.Target, e.Err)
}

func (e *MigrationError) Unwrap() error { return e.Err }
