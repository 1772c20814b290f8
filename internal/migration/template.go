package migration

import (
	"fmt"
	"strconv"
	"strings"

	"dualbase/internal/dbtarget"
)

const (
	upMarker   = "-- +migrate Up"
	downMarker = "-- +migrate Down"
)

// PascalCase normalizes a raw migration name: separators are dropped and
// each segment is capitalized, yielding a grammar-conforming name.
func PascalCase(name string) string {
	var b strings.Builder
	upperNext := true
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z':
			if upperNext {
				b.WriteRune(r - 'a' + 'A')
			} else {
				b.WriteRune(r)
			}
			upperNext = false
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r)
			upperNext = false
		case r >= '0' && r <= '9':
			b.WriteRune(r)
			upperNext = false
		default:
			// separator: underscore, dash, space, anything else
			upperNext = true
		}
	}
	return b.String()
}

// Template renders a blank unit body for manual authoring. The embedded
// class name is the PascalCase name followed by the numeric timestamp.
func Template(name string, timestamp int64, target dbtarget.Target) string {
	className := PascalCase(name) + strconv.FormatInt(timestamp, 10)
	if target == dbtarget.MongoDB {
		return fmt.Sprintf(`{
  "name": %q,
  "up": [],
  "down": []
}
`, className)
	}
	return fmt.Sprintf(`-- Migration %s
%s
-- forward statements

%s
-- rollback statements
`, className, upMarker, downMarker)
}

// renderSQLUnit renders a generated relational unit from DDL statements.
func renderSQLUnit(name string, timestamp int64, up, down []string) string {
	className := PascalCase(name) + strconv.FormatInt(timestamp, 10)
	var b strings.Builder
	fmt.Fprintf(&b, "-- Migration %s\n%s\n", className, upMarker)
	for _, stmt := range up {
		b.WriteString(stmt)
		b.WriteString("\n")
	}
	b.WriteString("\n" + downMarker + "\n")
	for _, stmt := range down {
		b.WriteString(stmt)
		b.WriteString("\n")
	}
	return b.String()
}

// renderCommandUnit renders a generated document-store unit. Commands are
// single-key documents, so plain JSON keeps key order intact.
func renderCommandUnit(name string, timestamp int64, up, down []command) string {
	className := PascalCase(name) + strconv.FormatInt(timestamp, 10)
	var b strings.Builder
	b.WriteString("{\n")
	fmt.Fprintf(&b, "  \"name\": %q,\n", className)
	writeCommands(&b, "up", up)
	b.WriteString(",\n")
	writeCommands(&b, "down", down)
	b.WriteString("\n}\n")
	return b.String()
}

// command is one single-key document-store command, e.g. {create: users}.
type command struct {
	Verb  string
	Value string
}

func writeCommands(b *strings.Builder, field string, cmds []command) {
	fmt.Fprintf(b, "  %q: [", field)
	for i, cmd := range cmds {
		if i > 0 {
			b.WriteString(",")
		}
		fmt.Fprintf(b, "\n    { %q: %q }", cmd.Verb, cmd.Value)
	}
	if len(cmds) > 0 {
		b.WriteString("\n  ")
	}
	b.WriteString("]")
}
