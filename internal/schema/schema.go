// Package schema declares the desired relational layout, introspects the
// live one, and renders DDL for the differences.
package schema

import "sort"

// Column describes a table column.
type Column struct {
	Name     string
	DataType string
	Nullable bool
}

// Table describes a table and its columns.
type Table struct {
	Name       string
	Columns    map[string]Column
	PrimaryKey []string
}

// Schema holds the structure of one database.
type Schema struct {
	Tables map[string]Table
}

// Desired returns the relational layout the entity kinds expect.
func Desired() Schema {
	text := func(name string) Column { return Column{Name: name, DataType: "text"} }
	ts := func(name string) Column { return Column{Name: name, DataType: "timestamptz"} }

	table := func(name string, cols ...Column) Table {
		t := Table{Name: name, Columns: make(map[string]Column, len(cols)), PrimaryKey: []string{"id"}}
		for _, c := range cols {
			t.Columns[c.Name] = c
		}
		return t
	}

	return Schema{Tables: map[string]Table{
		"users": table("users",
			text("id"), text("tenant_id"), text("email"), text("name"),
			ts("created_at"), ts("updated_at"),
		),
		"tenants": table("tenants",
			text("id"), text("name"), text("slug"), text("plan"),
			ts("created_at"), ts("updated_at"),
		),
		"organizations": table("organizations",
			text("id"), text("tenant_id"), text("name"), text("domain"),
			ts("created_at"), ts("updated_at"),
		),
	}}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
