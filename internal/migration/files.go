package migration

import (
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strconv"

	"dualbase/internal/dbtarget"
)

// Canonical unit filename grammar: a 13-digit millisecond timestamp, a
// dash, and an alphanumeric name starting with a letter.
var (
	fileNameRe      = regexp.MustCompile(`^(\d{13})-([A-Za-z][A-Za-z0-9]*)\.(sql|json)$`)
	migrationNameRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9]*$`)
)

// ParsedName is the structured form of a valid unit filename.
type ParsedName struct {
	Timestamp int64
	Name      string
	Ext       string
}

// ValidateFilename reports whether fileName matches the unit grammar.
func ValidateFilename(fileName string) bool {
	return fileNameRe.MatchString(fileName)
}

// ParseFilename parses a unit filename. Malformed input is reported via
// the boolean, never as an error.
func ParseFilename(fileName string) (ParsedName, bool) {
	m := fileNameRe.FindStringSubmatch(fileName)
	if m == nil {
		return ParsedName{}, false
	}
	ts, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return ParsedName{}, false
	}
	return ParsedName{Timestamp: ts, Name: m[2], Ext: m[3]}, true
}

// ValidateName reports whether name alone satisfies the grammar.
func ValidateName(name string) bool {
	return migrationNameRe.MatchString(name)
}

// FormatFilename renders the canonical filename for a unit.
func FormatFilename(name string, timestamp int64, target dbtarget.Target) string {
	return fmt.Sprintf("%013d-%s.%s", timestamp, name, Extension(target))
}

// Extension returns the unit file extension for a target.
func Extension(target dbtarget.Target) string {
	if target == dbtarget.MongoDB {
		return "json"
	}
	return "sql"
}

// Files bundles the filesystem helpers so skipped writes can be logged.
type Files struct {
	logger *slog.Logger
}

func NewFiles(logger *slog.Logger) *Files {
	return &Files{logger: logger}
}

// CreateDirectories creates path recursively; an existing directory is not
// an error.
func (f *Files) CreateDirectories(path string) error {
	return os.MkdirAll(path, 0o755)
}

// CreateFile writes content to path. When overwrite is false and the file
// exists, the write is skipped and logged, not failed.
func (f *Files) CreateFile(path, content string, overwrite bool) error {
	if !overwrite && f.FileExists(path) {
		f.logger.Info("file exists, skipping write", "path", path)
		return nil
	}
	return os.WriteFile(path, []byte(content), 0o644)
}

// FileExists reports whether path exists; I/O errors count as absent.
func (f *Files) FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
