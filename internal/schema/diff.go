package schema

import (
	"fmt"
	"strings"
)

// Diff describes what the live schema is missing relative to the desired
// one, and what it carries that the desired one does not.
type Diff struct {
	MissingTables []string
	ExtraTables   []string
	Tables        map[string]TableDiff
}

// TableDiff captures per-table column differences.
type TableDiff struct {
	MissingColumns []string
	ExtraColumns   []string
	Changed        []ColumnChange
}

// ColumnChange marks a column present in both with different attributes.
type ColumnChange struct {
	Name    string
	Desired Column
	Live    Column
}

// Compare builds a diff of live against desired.
func Compare(desired, live Schema) Diff {
	d := Diff{Tables: map[string]TableDiff{}}

	d.MissingTables = difference(sortedKeys(desired.Tables), sortedKeys(live.Tables))
	d.ExtraTables = difference(sortedKeys(live.Tables), sortedKeys(desired.Tables))

	for _, name := range sortedKeys(desired.Tables) {
		want := desired.Tables[name]
		have, ok := live.Tables[name]
		if !ok {
			continue
		}

		td := TableDiff{
			MissingColumns: difference(sortedKeys(want.Columns), sortedKeys(have.Columns)),
			ExtraColumns:   difference(sortedKeys(have.Columns), sortedKeys(want.Columns)),
		}
		for _, col := range sortedKeys(want.Columns) {
			liveCol, ok := have.Columns[col]
			if !ok {
				continue
			}
			wantCol := want.Columns[col]
			if !strings.EqualFold(wantCol.DataType, liveCol.DataType) || wantCol.Nullable != liveCol.Nullable {
				td.Changed = append(td.Changed, ColumnChange{Name: col, Desired: wantCol, Live: liveCol})
			}
		}
		if len(td.MissingColumns) > 0 || len(td.ExtraColumns) > 0 || len(td.Changed) > 0 {
			d.Tables[name] = td
		}
	}
	return d
}

// HasChanges reports whether the diff requires any DDL.
func (d Diff) HasChanges() bool {
	return len(d.MissingTables) > 0 || len(d.Tables) > 0
}

// UpStatements renders the DDL that brings the live schema up to the
// desired one. Extra tables and columns are left alone; this layer only
// ever adds.
func UpStatements(desired Schema, d Diff) []string {
	var stmts []string
	for _, name := range d.MissingTables {
		stmts = append(stmts, createTable(desired.Tables[name]))
	}
	for _, name := range sortedKeys(d.Tables) {
		td := d.Tables[name]
		for _, col := range td.MissingColumns {
			c := desired.Tables[name].Columns[col]
			stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s%s;", name, c.Name, c.DataType, notNull(c)))
		}
	}
	return stmts
}

// DownStatements renders the reverse of UpStatements.
func DownStatements(d Diff) []string {
	var stmts []string
	for _, name := range sortedKeys(d.Tables) {
		td := d.Tables[name]
		for _, col := range td.MissingColumns {
			stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s;", name, col))
		}
	}
	for i := len(d.MissingTables) - 1; i >= 0; i-- {
		stmts = append(stmts, fmt.Sprintf("DROP TABLE %s;", d.MissingTables[i]))
	}
	return stmts
}

func createTable(t Table) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE %s (\n", t.Name)
	cols := sortedKeys(t.Columns)
	for i, name := range cols {
		c := t.Columns[name]
		fmt.Fprintf(&b, "  %s %s%s", c.Name, c.DataType, notNull(c))
		if i < len(cols)-1 || len(t.PrimaryKey) > 0 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	if len(t.PrimaryKey) > 0 {
		fmt.Fprintf(&b, "  PRIMARY KEY (%s)\n", strings.Join(t.PrimaryKey, ", "))
	}
	b.WriteString(");")
	return b.String()
}

func notNull(c Column) string {
	if c.Nullable {
		return ""
	}
	return " NOT NULL"
}

func difference(a, b []string) []string {
	set := make(map[string]bool, len(b))
	for _, s := range b {
		set[s] = true
	}
	var out []string
	for _, s := range a {
		if !set[s] {
			out = append(out, s)
		}
	}
	return out
}
