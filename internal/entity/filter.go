package entity

import (
	"fmt"
	"sort"
	"strings"

	"dualbase/internal/model"
)

// Filter matches records by column equality. Keys use the kind's logical
// column names on both backends.
type Filter map[string]any

// Options control pagination and ordering for Find.
type Options struct {
	Offset     int
	Limit      int
	OrderBy    string
	Descending bool
}

func validateFilter(kind model.Kind, filter Filter) error {
	for col := range filter {
		if !kind.HasColumn(col) {
			return fmt.Errorf("unknown column %q for kind %s", col, kind.Name)
		}
	}
	return nil
}

func validateOptions(kind model.Kind, opts Options) error {
	if opts.OrderBy != "" && !kind.HasColumn(opts.OrderBy) {
		return fmt.Errorf("unknown order column %q for kind %s", opts.OrderBy, kind.Name)
	}
	if opts.Offset < 0 || opts.Limit < 0 {
		return fmt.Errorf("negative offset or limit")
	}
	return nil
}

// whereClause renders a deterministic WHERE fragment with positional
// arguments. An empty filter yields an empty fragment.
func whereClause(filter Filter) (string, []any) {
	if len(filter) == 0 {
		return "", nil
	}
	cols := make([]string, 0, len(filter))
	for col := range filter {
		cols = append(cols, col)
	}
	sort.Strings(cols)

	conds := make([]string, 0, len(cols))
	args := make([]any, 0, len(cols))
	for i, col := range cols {
		conds = append(conds, fmt.Sprintf("%s = $%d", col, i+1))
		args = append(args, filter[col])
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func orderLimitClause(opts Options) string {
	var b strings.Builder
	if opts.OrderBy != "" {
		b.WriteString(" ORDER BY ")
		b.WriteString(opts.OrderBy)
		if opts.Descending {
			b.WriteString(" DESC")
		}
	}
	if opts.Limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", opts.Limit)
	}
	if opts.Offset > 0 {
		fmt.Fprintf(&b, " OFFSET %d", opts.Offset)
	}
	return b.String()
}
