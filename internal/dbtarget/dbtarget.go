// Package dbtarget defines the logical database targets the scaffold
// dispatches on.
package dbtarget

import "fmt"

// Target selects one of the two backing stores.
type Target string

const (
	PostgreSQL Target = "postgresql"
	MongoDB    Target = "mongodb"
)

// All returns every supported target in stable order.
func All() []Target {
	return []Target{PostgreSQL, MongoDB}
}

// UnsupportedTargetError reports a target value outside the enumeration.
// Values are case-sensitive and no aliases are recognized.
type UnsupportedTargetError struct {
	Value string
}

func (e *UnsupportedTargetError) Error() string {
	return fmt.Sprintf("unsupported database target %q", e.Value)
}

// Parse validates a raw target value.
func Parse(raw string) (Target, error) {
	switch Target(raw) {
	case PostgreSQL:
		return PostgreSQL, nil
	case MongoDB:
		return MongoDB, nil
	default:
		return "", &UnsupportedTargetError{Value: raw}
	}
}

// Valid reports whether t is one of the supported targets.
func (t Target) Valid() bool {
	_, err := Parse(string(t))
	return err == nil
}
