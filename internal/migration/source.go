package migration

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.mongodb.org/mongo-driver/bson"

	"dualbase/internal/dbtarget"
)

// Unit is one on-disk migration, identified by its timestamp and name.
type Unit struct {
	Timestamp int64
	Name      string
	FileName  string
	Path      string
}

// Key is the canonical identity recorded in status and history stores.
func (u Unit) Key() string {
	return fmt.Sprintf("%013d-%s", u.Timestamp, u.Name)
}

// LoadUnits reads the units for one target from dir, ordered by timestamp.
// Files that do not match the unit grammar or the target's extension are
// ignored. A missing directory means no units.
func LoadUnits(dir string, target dbtarget.Target) ([]Unit, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read migrations dir %s: %w", dir, err)
	}

	var units []Unit
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		parsed, ok := ParseFilename(entry.Name())
		if !ok || parsed.Ext != Extension(target) {
			continue
		}
		units = append(units, Unit{
			Timestamp: parsed.Timestamp,
			Name:      parsed.Name,
			FileName:  entry.Name(),
			Path:      filepath.Join(dir, entry.Name()),
		})
	}

	sort.Slice(units, func(i, j int) bool {
		if units[i].Timestamp != units[j].Timestamp {
			return units[i].Timestamp < units[j].Timestamp
		}
		return units[i].Name < units[j].Name
	})
	return units, nil
}

// SQLUnit is a parsed relational unit: one script per direction.
type SQLUnit struct {
	Up   string
	Down string
}

// ParseSQLUnit splits a unit body on the up/down section markers.
func ParseSQLUnit(content string) (SQLUnit, error) {
	upIdx := strings.Index(content, upMarker)
	if upIdx < 0 {
		return SQLUnit{}, fmt.Errorf("missing %q section", upMarker)
	}
	rest := content[upIdx+len(upMarker):]

	downIdx := strings.Index(rest, downMarker)
	if downIdx < 0 {
		return SQLUnit{Up: strings.TrimSpace(rest)}, nil
	}
	return SQLUnit{
		Up:   strings.TrimSpace(rest[:downIdx]),
		Down: strings.TrimSpace(rest[downIdx+len(downMarker):]),
	}, nil
}

// CommandUnit is a parsed document-store unit: ordered command documents
// per direction.
type CommandUnit struct {
	Up   []bson.D `bson:"up"`
	Down []bson.D `bson:"down"`
}

// ParseCommandUnit decodes a JSON unit body. Extended JSON keeps each
// command's key order, which the server requires.
func ParseCommandUnit(content []byte) (CommandUnit, error) {
	var unit CommandUnit
	if err := bson.UnmarshalExtJSON(content, true, &unit); err != nil {
		return CommandUnit{}, fmt.Errorf("parse command unit: %w", err)
	}
	return unit, nil
}
