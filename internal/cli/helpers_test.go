package cli

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/user/mobproto/internal/model"
)

// setupTestEnv moves into a fresh directory, isolates config and
// environment, and captures exit codes instead of exiting.
func setupTestEnv(t *testing.T) (tempDir string, cleanup func()) {
	t.Helper()
	tempDir = t.TempDir()
	origDir, _ := os.Getwd()
	os.Chdir(tempDir)

	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tempDir, ".config"))
	t.Setenv("MOBPROTO_FILE", "")
	t.Setenv("MOBPROTO_ACTOR", "tester")

	origExitFunc := ExitFunc
	ExitFunc = func(code int) {
		ExitCode = code
	}
	ExitCode = 0
	resetFlags()

	cleanup = func() {
		resetFlags()
		os.Chdir(origDir)
		ExitFunc = origExitFunc
		ExitCode = 0
	}
	return tempDir, cleanup
}

// resetFlags resets global command flags for test isolation
func resetFlags() {
	// Global flags
	jsonOutput = false
	fileFlag = ""
	actorName = ""
	configPath = ""
	quiet = false
	verbose = false
	// query
	querySearch = ""
	queryWhere = nil
	queryColumns = ""
	queryLimit = 0
	querySort = ""
	querySQL = ""
	// mass-edit
	massColumn = ""
	massMultiply = 1
	massAdd = 0
	massSet = ""
	massOps = nil
	massVNUMs = nil
	massWhere = nil
	massSearch = ""
	massSelectSQL = ""
	massAllVisible = false
	massForce = false
	// others
	showColumns = ""
	setForce = false
	importForce = false
	importAllowEmpty = false
	historyLimit = 0
	undoSteps = 1
	redoSteps = 1
	restoreBackupYes = false
	validateCSV = false

	// cobra consults Changed for flag groups and mass-edit operations
	clearChanged(rootCmd)
}

func clearChanged(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) { f.Changed = false })
	cmd.PersistentFlags().VisitAll(func(f *pflag.Flag) { f.Changed = false })
	for _, c := range cmd.Commands() {
		clearChanged(c)
	}
}

func mobLine(vnum, name, level, exp string) string {
	s := model.MobProto()
	fields := s.NewRecord().Fields()
	fields[0] = vnum
	fields[1] = name
	fields[s.Columns.Index("LEVEL")] = level
	fields[s.Columns.Index("EXP")] = exp
	return strings.Join(fields, "\t")
}

func sampleTable() string {
	return strings.Join(model.MobProto().Columns.Names(), "\t") + "\n" +
		mobLine("101", "Wild Dog", "1", "100") + "\n" +
		mobLine("102", "Wolf", "5", "200") + "\n" +
		mobLine("103", "Alpha Wolf", "10", "300") + "\n" +
		mobLine("691", "Chief Orc", "40", "9000") + "\n"
}

// setupTestTable creates a test environment with mob_proto.txt in it.
func setupTestTable(t *testing.T) (tempDir string, cleanup func()) {
	t.Helper()
	tempDir, cleanup = setupTestEnv(t)
	require.NoError(t, os.WriteFile(filepath.Join(tempDir, "mob_proto.txt"), []byte(sampleTable()), 0o644))
	return tempDir, cleanup
}

// run executes the root command with args after resetting flags, and
// returns what it wrote to stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags()
	ExitCode = 0

	oldStdout := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	done := make(chan string)
	go func() {
		data, _ := io.ReadAll(r)
		done <- string(data)
	}()

	rootCmd.SetArgs(args)
	execErr := rootCmd.Execute()

	w.Close()
	os.Stdout = oldStdout
	return <-done, execErr
}

// mustRun is run that fails the test on an error or non-zero exit code.
func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := run(t, args...)
	require.NoError(t, err)
	require.Equal(t, 0, ExitCode, "exit code for %v\noutput: %s", args, out)
	return out
}

func readTable(t *testing.T, dir string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, "mob_proto.txt"))
	require.NoError(t, err)
	return string(data)
}

func parseJSONObject(t *testing.T, output string) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(output), &out), "output: %s", output)
	return out
}

func parseJSONArray(t *testing.T, output string) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(output), &out), "output: %s", output)
	return out
}

// cell returns the value of column in the table row for vnum.
func cell(t *testing.T, vnum int64, column string) string {
	t.Helper()
	out := mustRun(t, "show", strconv.FormatInt(vnum, 10), "--json", "--columns", column)
	obj := parseJSONObject(t, out)
	switch v := obj[column].(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatInt(int64(v), 10)
	default:
		t.Fatalf("unexpected %T for %s", v, column)
		return ""
	}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func readFileString(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}
