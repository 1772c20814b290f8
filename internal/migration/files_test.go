package migration

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"dualbase/internal/dbtarget"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestValidateFilename(t *testing.T) {
	t.Parallel()

	valid := []string{
		"1717171717171-AddUsers.sql",
		"1717171717171-AddUsers.json",
		"0000000000000-X.sql",
		"1717171717171-A1B2.json",
	}
	for _, name := range valid {
		if !ValidateFilename(name) {
			t.Errorf("ValidateFilename(%q) = false, want true", name)
		}
	}

	invalid := []string{
		"171717171717-AddUsers.sql",    // 12-digit timestamp
		"17171717171712-AddUsers.sql",  // 14-digit timestamp
		"1717171717171-1AddUsers.sql",  // name starts with digit
		"1717171717171-Add_Users.sql",  // underscore in name
		"1717171717171-AddUsers.ts",    // wrong extension
		"1717171717171AddUsers.sql",    // missing dash
		"1717171717171-.sql",           // empty name
		"1717171717171-AddUsers.sql.gz",
	}
	for _, name := range invalid {
		if ValidateFilename(name) {
			t.Errorf("ValidateFilename(%q) = true, want false", name)
		}
	}
}

func TestParseFilename(t *testing.T) {
	t.Parallel()

	parsed, ok := ParseFilename("1717171717171-AddUsers.json")
	if !ok {
		t.Fatal("expected valid filename to parse")
	}
	if parsed.Timestamp != 1717171717171 {
		t.Errorf("timestamp = %d, want 1717171717171", parsed.Timestamp)
	}
	if parsed.Name != "AddUsers" {
		t.Errorf("name = %q, want AddUsers", parsed.Name)
	}
	if parsed.Ext != "json" {
		t.Errorf("ext = %q, want json", parsed.Ext)
	}

	if _, ok := ParseFilename("12-Foo.sql"); ok {
		t.Error("short timestamp should not parse")
	}
}

func TestFormatFilename(t *testing.T) {
	t.Parallel()

	got := FormatFilename("AddUsers", 1717171717171, dbtarget.PostgreSQL)
	if got != "1717171717171-AddUsers.sql" {
		t.Errorf("FormatFilename = %q", got)
	}
	// Short timestamps are zero-padded to 13 digits so the round trip
	// through the grammar still holds.
	got = FormatFilename("Init", 42, dbtarget.MongoDB)
	if got != "0000000000042-Init.json" {
		t.Errorf("FormatFilename = %q", got)
	}
	if !ValidateFilename(got) {
		t.Errorf("formatted name %q does not validate", got)
	}
}

func TestFilesCreateFile(t *testing.T) {
	t.Parallel()

	files := NewFiles(testLogger())
	dir := t.TempDir()
	path := filepath.Join(dir, "unit.sql")

	if err := files.CreateFile(path, "first", false); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := files.CreateFile(path, "second", false); err != nil {
		t.Fatalf("create without overwrite: %v", err)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(content) != "first" {
		t.Errorf("content = %q, want original preserved", content)
	}

	if err := files.CreateFile(path, "second", true); err != nil {
		t.Fatalf("create with overwrite: %v", err)
	}
	content, _ = os.ReadFile(path)
	if string(content) != "second" {
		t.Errorf("content = %q, want overwritten", content)
	}
}

func TestFilesCreateDirectories(t *testing.T) {
	t.Parallel()

	files := NewFiles(testLogger())
	dir := filepath.Join(t.TempDir(), "a", "b", "c")

	if err := files.CreateDirectories(dir); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := files.CreateDirectories(dir); err != nil {
		t.Fatalf("create on existing dir: %v", err)
	}
	if !files.FileExists(dir) {
		t.Error("directory should exist")
	}
	if files.FileExists(filepath.Join(dir, "missing")) {
		t.Error("missing path reported as existing")
	}
}
