package testutil

import (
	"strings"
	"testing"
)

// AssertExitCode verifies the command exit code.
func AssertExitCode(t *testing.T, result Result, expected int) {
	t.Helper()

	if result.ExitCode != expected {
		t.Fatalf("expected exit code %d, got %d\nstdout: %s\nstderr: %s",
			expected, result.ExitCode, result.Stdout, result.Stderr)
	}
}

// AssertContains verifies stdout contains the expected string.
func AssertContains(t *testing.T, result Result, expected string) {
	t.Helper()

	if !strings.Contains(result.Stdout, expected) {
		t.Fatalf("expected stdout to contain %q, got:\n%s", expected, result.Stdout)
	}
}

// AssertStderrContains verifies stderr contains the expected string.
func AssertStderrContains(t *testing.T, result Result, expected string) {
	t.Helper()

	if !strings.Contains(result.Stderr, expected) {
		t.Fatalf("expected stderr to contain %q, got:\n%s", expected, result.Stderr)
	}
}

// AssertCell verifies one cell of a mob using the CLI.
func AssertCell(t *testing.T, dir, vnum, column, expected string) {
	t.Helper()

	mob := ShowMob(t, dir, vnum)
	if got := GetField(mob, column); got != expected {
		t.Fatalf("expected %s of %s to be %q, got %q", column, vnum, expected, got)
	}
}

// AssertMobNotExists verifies show fails for vnum.
func AssertMobNotExists(t *testing.T, dir, vnum string) {
	t.Helper()

	result := RunInDir(t, dir, "show", vnum, "--json")
	if result.ExitCode == 0 {
		t.Fatalf("expected mob %s to not exist, but show succeeded", vnum)
	}
}

// AssertTableUnchanged verifies the table file still holds want.
func AssertTableUnchanged(t *testing.T, dir, want string) {
	t.Helper()

	if got := ReadFile(t, TablePath(dir)); got != want {
		t.Fatalf("expected %s to be unchanged", TablePath(dir))
	}
}
