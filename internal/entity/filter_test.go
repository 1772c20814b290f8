package entity

import (
	"testing"

	"dualbase/internal/model"
)

func TestWhereClause(t *testing.T) {
	t.Parallel()

	t.Run("empty filter yields empty fragment", func(t *testing.T) {
		t.Parallel()

		where, args := whereClause(nil)
		if where != "" || len(args) != 0 {
			t.Errorf("expected empty clause, got %q with %v", where, args)
		}
	})

	t.Run("columns render in deterministic order", func(t *testing.T) {
		t.Parallel()

		where, args := whereClause(Filter{"name": "Acme", "email": "a@b.c"})
		if where != " WHERE email = $1 AND name = $2" {
			t.Errorf("unexpected clause %q", where)
		}
		if len(args) != 2 || args[0] != "a@b.c" || args[1] != "Acme" {
			t.Errorf("unexpected args %v", args)
		}
	})
}

func TestOrderLimitClause(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		opts Options
		want string
	}{
		{"empty", Options{}, ""},
		{"order ascending", Options{OrderBy: "created_at"}, " ORDER BY created_at"},
		{"order descending", Options{OrderBy: "name", Descending: true}, " ORDER BY name DESC"},
		{"pagination", Options{Offset: 20, Limit: 10}, " LIMIT 10 OFFSET 20"},
		{"combined", Options{OrderBy: "email", Limit: 5, Offset: 5}, " ORDER BY email LIMIT 5 OFFSET 5"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			if got := orderLimitClause(tc.opts); got != tc.want {
				t.Errorf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestValidateFilter(t *testing.T) {
	t.Parallel()

	if err := validateFilter(model.KindUsers, Filter{"email": "a@b.c"}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := validateFilter(model.KindUsers, Filter{"role": "admin"}); err == nil {
		t.Error("expected unknown column to be rejected")
	}
	if err := validateOptions(model.KindUsers, Options{OrderBy: "role"}); err == nil {
		t.Error("expected unknown order column to be rejected")
	}
	if err := validateOptions(model.KindUsers, Options{Offset: -1}); err == nil {
		t.Error("expected negative offset to be rejected")
	}
}
