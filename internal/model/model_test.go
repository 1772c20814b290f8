package model_test

import (
	"errors"
	"testing"

	"dualbase/internal/model"
)

func TestKindByName(t *testing.T) {
	t.Parallel()

	t.Run("resolves every kind", func(t *testing.T) {
		t.Parallel()

		for _, name := range []string{"users", "tenants", "organizations"} {
			kind, ok := model.KindByName(name)
			if !ok {
				t.Fatalf("expected kind %q to resolve", name)
			}
			if kind.Name != name {
				t.Errorf("expected %q, got %q", name, kind.Name)
			}
		}
	})

	t.Run("rejects unknown names", func(t *testing.T) {
		t.Parallel()

		if _, ok := model.KindByName("projects"); ok {
			t.Error("expected projects to be unknown")
		}
	})
}

func TestKindHasColumn(t *testing.T) {
	t.Parallel()

	if !model.KindUsers.HasColumn("email") {
		t.Error("expected users kind to expose email")
	}
	if model.KindTenants.HasColumn("email") {
		t.Error("expected tenants kind to reject email")
	}
	if model.KindUsers.HasColumn("password; DROP TABLE users") {
		t.Error("expected arbitrary column names to be rejected")
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	t.Run("user requires email name and tenant", func(t *testing.T) {
		t.Parallel()

		u := &model.User{}
		if err := u.Validate(); !errors.Is(err, model.ErrEmailEmpty) {
			t.Errorf("expected ErrEmailEmpty, got %v", err)
		}
		u.Email = "alice@example.com"
		if err := u.Validate(); !errors.Is(err, model.ErrNameEmpty) {
			t.Errorf("expected ErrNameEmpty, got %v", err)
		}
		u.Name = "Alice"
		if err := u.Validate(); !errors.Is(err, model.ErrTenantIDEmpty) {
			t.Errorf("expected ErrTenantIDEmpty, got %v", err)
		}
		u.TenantID = "t-1"
		if err := u.Validate(); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("tenant requires name and slug", func(t *testing.T) {
		t.Parallel()

		tn := &model.Tenant{Name: "Acme"}
		if err := tn.Validate(); !errors.Is(err, model.ErrSlugEmpty) {
			t.Errorf("expected ErrSlugEmpty, got %v", err)
		}
		tn.Slug = "acme"
		if err := tn.Validate(); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})
}
