package schema

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

type columnRow struct {
	TableName  string `db:"table_name"`
	ColumnName string `db:"column_name"`
	DataType   string `db:"data_type"`
	IsNullable string `db:"is_nullable"`
}

// Introspect reads the live layout of the public schema from
// information_schema. Internal bookkeeping tables are excluded so they
// never show up as drift.
func Introspect(ctx context.Context, db *sqlx.DB, exclude ...string) (Schema, error) {
	var rows []columnRow
	err := db.SelectContext(ctx, &rows, `
SELECT c.table_name, c.column_name, c.data_type, c.is_nullable
FROM information_schema.columns c
JOIN information_schema.tables t
  ON t.table_schema = c.table_schema AND t.table_name = c.table_name
WHERE c.table_schema = 'public' AND t.table_type = 'BASE TABLE'
ORDER BY c.table_name, c.ordinal_position
`)
	if err != nil {
		return Schema{}, fmt.Errorf("introspect schema: %w", err)
	}

	excluded := make(map[string]bool, len(exclude))
	for _, name := range exclude {
		excluded[name] = true
	}

	s := Schema{Tables: map[string]Table{}}
	for _, row := range rows {
		if excluded[row.TableName] {
			continue
		}
		table, ok := s.Tables[row.TableName]
		if !ok {
			table = Table{Name: row.TableName, Columns: map[string]Column{}}
		}
		table.Columns[row.ColumnName] = Column{
			Name:     row.ColumnName,
			DataType: normalizeType(row.DataType),
			Nullable: row.IsNullable == "YES",
		}
		s.Tables[row.TableName] = table
	}
	return s, nil
}

// normalizeType maps information_schema names onto the short forms used in
// the desired layout.
func normalizeType(dataType string) string {
	switch dataType {
	case "timestamp with time zone":
		return "timestamptz"
	case "character varying":
		return "text"
	default:
		return dataType
	}
}
