package entity

import (
	"errors"
	"fmt"

	"dualbase/internal/dbtarget"
)

var (
	// ErrNotFound is returned by Remove when the record is already gone.
	ErrNotFound = errors.New("entity not found")
	// ErrStaleRecord marks an update against a record that no longer exists.
	ErrStaleRecord = errors.New("stale record")
)

// PersistenceError wraps a failed write against a live connection with the
// target, operation and entity kind it happened in.
type PersistenceError struct {
	Target dbtarget.Target
	Op     string
	Kind   string
	Err    error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s %s on %s: %v", e.Op, e.Kind, e.Target, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
