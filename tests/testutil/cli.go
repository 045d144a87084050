// Package testutil provides helpers for end-to-end tests that run the
// mobproto binary against a table in a temporary directory.
package testutil

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"
)

// Result holds the output of a mobproto command execution.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// mobprotoBinary returns the path to the mobproto binary: ./mobproto in
// the project root, or mobproto on PATH. It returns "" if neither exists.
func mobprotoBinary() string {
	if _, filename, _, ok := runtime.Caller(0); ok {
		projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(filename)))
		binary := filepath.Join(projectRoot, "mobproto")
		if _, err := os.Stat(binary); err == nil {
			return binary
		}
	}
	if path, err := exec.LookPath("mobproto"); err == nil {
		return path
	}
	return ""
}

// RequireBinary skips the test when no mobproto binary is available.
// Build one with: go build -o mobproto ./cmd/mobproto
func RequireBinary(t *testing.T) string {
	t.Helper()
	binary := mobprotoBinary()
	if binary == "" {
		t.Skip("mobproto binary not found; run go build -o mobproto ./cmd/mobproto")
	}
	return binary
}

// RunInDir executes mobproto in dir with a clean environment: no global
// config, no MOBPROTO_FILE, and the actor set to "tester".
func RunInDir(t *testing.T, dir string, args ...string) Result {
	t.Helper()

	cmd := exec.Command(RequireBinary(t), args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"XDG_CONFIG_HOME="+filepath.Join(dir, ".config"),
		"MOBPROTO_FILE=",
		"MOBPROTO_ACTOR=tester",
	)

	err := cmd.Run()
	exitCode := 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			t.Fatalf("failed to run mobproto: %v", err)
		}
	}

	return Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: exitCode,
	}
}

// MustSucceedInDir calls RunInDir and fails if exit code != 0.
func MustSucceedInDir(t *testing.T, dir string, args ...string) Result {
	t.Helper()

	result := RunInDir(t, dir, args...)
	if result.ExitCode != 0 {
		t.Fatalf("expected mobproto %v to succeed, but got exit code %d\nstdout: %s\nstderr: %s",
			args, result.ExitCode, result.Stdout, result.Stderr)
	}
	return result
}

// MustFailInDir calls RunInDir and fails if exit code == 0.
func MustFailInDir(t *testing.T, dir string, args ...string) Result {
	t.Helper()

	result := RunInDir(t, dir, args...)
	if result.ExitCode == 0 {
		t.Fatalf("expected mobproto %v to fail, but it succeeded\nstdout: %s\nstderr: %s",
			args, result.Stdout, result.Stderr)
	}
	return result
}
