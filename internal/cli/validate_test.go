package cli

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateCommand(t *testing.T) {
	t.Run("clean file", func(t *testing.T) {
		_, cleanup := setupTestTable(t)
		defer cleanup()

		assert.Contains(t, mustRun(t, "validate"), "4 mob(s), no problems found")
		obj := parseJSONObject(t, mustRun(t, "validate", "--json"))
		assert.Equal(t, true, obj["valid"])
	})

	t.Run("explicit path and csv", func(t *testing.T) {
		dir, cleanup := setupTestTable(t)
		defer cleanup()

		mustRun(t, "export", "mobs.csv")
		mustRun(t, "validate", "--csv", "mobs.csv")
		writeFile(t, dir, "other.txt", sampleTable())
		mustRun(t, "validate", "other.txt")
	})
}

func TestValidateCommand_MustNot(t *testing.T) {
	t.Run("out of range values", func(t *testing.T) {
		dir, cleanup := setupTestEnv(t)
		defer cleanup()
		table := sampleTable() + mobLine("104", "Giant", "300", "1") + "\n"
		writeFile(t, dir, "mob_proto.txt", table)

		out, _ := run(t, "validate", "--json")
		assert.Equal(t, exitValidation, ExitCode)
		obj := parseJSONObject(t, out)
		details := obj["details"].(map[string]interface{})
		issues, ok := details["issues"].([]interface{})
		require.True(t, ok)
		require.Len(t, issues, 1)
		issue := issues[0].(map[string]interface{})
		assert.Equal(t, float64(104), issue["vnum"])
		assert.Equal(t, "LEVEL", issue["column"])
	})

	t.Run("malformed lines", func(t *testing.T) {
		dir, cleanup := setupTestEnv(t)
		defer cleanup()
		table := sampleTable() +
			strings.Replace(mobLine("105", "Broken", "1", "1"), "\t", "", 1) + "\n" +
			mobLine("101", "Dup", "1", "1") + "\n"
		writeFile(t, dir, "mob_proto.txt", table)

		out, _ := run(t, "validate", "--json")
		assert.Equal(t, exitFormat, ExitCode)
		obj := parseJSONObject(t, out)
		details := obj["details"].(map[string]interface{})
		assert.Len(t, details["issues"], 2)
	})
}

func TestFixNamesCommand(t *testing.T) {
	t.Run("converts windows-1252", func(t *testing.T) {
		dir, cleanup := setupTestTable(t)
		defer cleanup()
		// "Wölfin" in windows-1252
		path := writeFile(t, dir, "mob_names.txt", "VNUM\tLOCALE_NAME\n102\tW\xf6lfin\n")

		out := mustRun(t, "fix-names")
		assert.Contains(t, out, "Converted 1 line(s)")
		assert.Contains(t, out, "Backup:")

		data := readFileString(t, path)
		assert.Contains(t, data, "Wölfin")
		assert.Contains(t, mustRun(t, "fix-names", path), "already UTF-8")
	})
}
