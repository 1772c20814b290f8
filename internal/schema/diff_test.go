package schema_test

import (
	"strings"
	"testing"

	"dualbase/internal/schema"
)

func live(tables ...schema.Table) schema.Schema {
	s := schema.Schema{Tables: map[string]schema.Table{}}
	for _, t := range tables {
		s.Tables[t.Name] = t
	}
	return s
}

func table(name string, cols ...schema.Column) schema.Table {
	t := schema.Table{Name: name, Columns: map[string]schema.Column{}, PrimaryKey: []string{"id"}}
	for _, c := range cols {
		t.Columns[c.Name] = c
	}
	return t
}

func TestCompare(t *testing.T) {
	t.Parallel()

	t.Run("identical schemas have no changes", func(t *testing.T) {
		t.Parallel()

		desired := schema.Desired()
		d := schema.Compare(desired, desired)
		if d.HasChanges() {
			t.Errorf("expected no changes, got %+v", d)
		}
	})

	t.Run("empty live schema misses every table", func(t *testing.T) {
		t.Parallel()

		d := schema.Compare(schema.Desired(), live())
		if len(d.MissingTables) != 3 {
			t.Fatalf("expected 3 missing tables, got %v", d.MissingTables)
		}
		// difference preserves sorted order
		if d.MissingTables[0] != "organizations" || d.MissingTables[2] != "users" {
			t.Errorf("unexpected order: %v", d.MissingTables)
		}
	})

	t.Run("missing column is reported per table", func(t *testing.T) {
		t.Parallel()

		desired := schema.Desired()
		partial := desired.Tables["users"]
		stripped := table("users")
		for name, col := range partial.Columns {
			if name == "email" {
				continue
			}
			stripped.Columns[name] = col
		}

		liveSchema := live(stripped, desired.Tables["tenants"], desired.Tables["organizations"])
		d := schema.Compare(desired, liveSchema)
		if len(d.MissingTables) != 0 {
			t.Fatalf("expected no missing tables, got %v", d.MissingTables)
		}
		td, ok := d.Tables["users"]
		if !ok {
			t.Fatal("expected a users table diff")
		}
		if len(td.MissingColumns) != 1 || td.MissingColumns[0] != "email" {
			t.Errorf("unexpected missing columns: %v", td.MissingColumns)
		}
	})

	t.Run("changed column type is detected", func(t *testing.T) {
		t.Parallel()

		desired := live(table("users", schema.Column{Name: "id", DataType: "text"}))
		altered := live(table("users", schema.Column{Name: "id", DataType: "integer"}))
		d := schema.Compare(desired, altered)
		td := d.Tables["users"]
		if len(td.Changed) != 1 || td.Changed[0].Name != "id" {
			t.Errorf("expected id change, got %+v", td.Changed)
		}
	})
}

func TestStatements(t *testing.T) {
	t.Parallel()

	t.Run("missing table renders create and drop", func(t *testing.T) {
		t.Parallel()

		desired := schema.Desired()
		d := schema.Compare(desired, live(desired.Tables["users"], desired.Tables["organizations"]))

		up := schema.UpStatements(desired, d)
		if len(up) != 1 || !strings.HasPrefix(up[0], "CREATE TABLE tenants") {
			t.Fatalf("unexpected up statements: %v", up)
		}
		if !strings.Contains(up[0], "PRIMARY KEY (id)") {
			t.Errorf("expected primary key clause, got %s", up[0])
		}

		down := schema.DownStatements(d)
		if len(down) != 1 || down[0] != "DROP TABLE tenants;" {
			t.Errorf("unexpected down statements: %v", down)
		}
	})

	t.Run("missing column renders add and drop", func(t *testing.T) {
		t.Parallel()

		desired := live(table("users",
			schema.Column{Name: "id", DataType: "text"},
			schema.Column{Name: "email", DataType: "text"},
		))
		liveSchema := live(table("users", schema.Column{Name: "id", DataType: "text"}))
		d := schema.Compare(desired, liveSchema)

		up := schema.UpStatements(desired, d)
		if len(up) != 1 || up[0] != "ALTER TABLE users ADD COLUMN email text NOT NULL;" {
			t.Fatalf("unexpected up statements: %v", up)
		}
		down := schema.DownStatements(d)
		if len(down) != 1 || down[0] != "ALTER TABLE users DROP COLUMN email;" {
			t.Errorf("unexpected down statements: %v", down)
		}
	})

	t.Run("no changes renders nothing", func(t *testing.T) {
		t.Parallel()

		desired := schema.Desired()
		d := schema.Compare(desired, desired)
		if stmts := schema.UpStatements(desired, d); len(stmts) != 0 {
			t.Errorf("expected no statements, got %v", stmts)
		}
	})
}
