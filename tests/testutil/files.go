package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteFile creates a file with arbitrary content.
// Returns the full path to the created file.
func WriteFile(t *testing.T, dir, filename, content string) string {
	t.Helper()

	path := filepath.Join(dir, filename)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write file %s: %v", path, err)
	}
	return path
}

// ReadFile reads the content of a file and returns it as a string.
func ReadFile(t *testing.T, path string) string {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read file %s: %v", path, err)
	}
	return string(data)
}

// FileExists checks if a file exists.
func FileExists(t *testing.T, path string) bool {
	t.Helper()

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false
		}
		t.Fatalf("error checking file %s: %v", path, err)
	}
	return !info.IsDir()
}

// Backups returns the backups of the table in dir.
func Backups(t *testing.T, dir string) []string {
	t.Helper()

	matches, err := filepath.Glob(TablePath(dir) + ".backup_*")
	if err != nil {
		t.Fatalf("failed to list backups: %v", err)
	}
	return matches
}
