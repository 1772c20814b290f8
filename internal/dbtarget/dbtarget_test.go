package dbtarget_test

import (
	"errors"
	"testing"

	"dualbase/internal/dbtarget"
)

func TestParse(t *testing.T) {
	t.Parallel()

	t.Run("accepts both supported targets", func(t *testing.T) {
		t.Parallel()

		for _, raw := range []string{"postgresql", "mongodb"} {
			target, err := dbtarget.Parse(raw)
			if err != nil {
				t.Fatalf("unexpected error for %q: %v", raw, err)
			}
			if string(target) != raw {
				t.Errorf("expected %q, got %q", raw, target)
			}
		}
	})

	t.Run("rejects aliases and casing variants", func(t *testing.T) {
		t.Parallel()

		for _, raw := range []string{"", "postgres", "pg", "PostgreSQL", "MONGODB", "mongo", "mysql"} {
			_, err := dbtarget.Parse(raw)
			if err == nil {
				t.Fatalf("expected error for %q", raw)
			}
			var unsupported *dbtarget.UnsupportedTargetError
			if !errors.As(err, &unsupported) {
				t.Fatalf("expected UnsupportedTargetError for %q, got %T", raw, err)
			}
			if unsupported.Value != raw {
				t.Errorf("expected error to carry %q, got %q", raw, unsupported.Value)
			}
		}
	})
}

func TestAll(t *testing.T) {
	t.Parallel()

	targets := dbtarget.All()
	if len(targets) != 2 {
		t.Fatalf("expected 2 targets, got %d", len(targets))
	}
	if targets[0] != dbtarget.PostgreSQL || targets[1] != dbtarget.MongoDB {
		t.Errorf("unexpected target order: %v", targets)
	}
	for _, target := range targets {
		if !target.Valid() {
			t.Errorf("expected %q to be valid", target)
		}
	}
}
