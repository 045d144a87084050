package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRestoreBackupCommand(t *testing.T) {
	t.Run("restores a named backup", func(t *testing.T) {
		dir, cleanup := setupTestTable(t)
		defer cleanup()
		original := readTable(t, dir)

		mustRun(t, "set", "101", "EXP=150")
		backups, _ := filepath.Glob(filepath.Join(dir, "mob_proto.txt.backup_*"))
		require.Len(t, backups, 1)

		out := mustRun(t, "restore-backup", backups[0], "--yes")
		assert.Contains(t, out, "Restored")
		assert.Equal(t, original, readTable(t, dir))

		// the replaced content was backed up too
		after, _ := filepath.Glob(filepath.Join(dir, "mob_proto.txt.backup_*"))
		assert.Len(t, after, 2)
	})

	t.Run("clears undo history", func(t *testing.T) {
		dir, cleanup := setupTestTable(t)
		defer cleanup()

		mustRun(t, "set", "101", "EXP=150")
		backups, _ := filepath.Glob(filepath.Join(dir, "mob_proto.txt.backup_*"))
		require.Len(t, backups, 1)
		mustRun(t, "restore-backup", backups[0], "--yes")

		assert.Contains(t, mustRun(t, "history"), "No history.")
	})

	t.Run("JSON output", func(t *testing.T) {
		_, cleanup := setupTestTable(t)
		defer cleanup()

		mustRun(t, "set", "101", "EXP=150")
		obj := parseJSONObject(t, mustRun(t, "restore-backup", "--json"))
		assert.Contains(t, obj["restored"], "mob_proto.txt.backup_")
		assert.NotEmpty(t, obj["backup"])
		assert.Equal(t, "100", cell(t, 101, "EXP"))
	})
}

func TestRestoreBackupCommand_MustNot(t *testing.T) {
	t.Run("no backups", func(t *testing.T) {
		_, cleanup := setupTestTable(t)
		defer cleanup()

		run(t, "restore-backup", "--yes")
		assert.Equal(t, exitFailure, ExitCode)
	})

	t.Run("missing backup file", func(t *testing.T) {
		_, cleanup := setupTestTable(t)
		defer cleanup()

		out, _ := run(t, "restore-backup", "mob_proto.txt.backup_20000101_000000", "--json")
		assert.Equal(t, exitFailure, ExitCode)
		assert.Equal(t, ErrCodeIO, parseJSONObject(t, out)["code"])
	})

	t.Run("malformed backup is not installed", func(t *testing.T) {
		dir, cleanup := setupTestTable(t)
		defer cleanup()
		before := readTable(t, dir)
		bad := writeFile(t, dir, "mob_proto.txt.backup_20000101_000000", "garbage\n")

		run(t, "restore-backup", bad, "--yes")
		assert.Equal(t, exitFormat, ExitCode)
		assert.Equal(t, before, readTable(t, dir))
	})
}
