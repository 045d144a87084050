package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/user/mobproto/internal/model"
)

// TableFile is the table name used by SetupTable.
const TableFile = "mob_proto.txt"

// Mob describes the cells of one sample row; every other column keeps
// its default.
type Mob struct {
	VNUM  string
	Name  string
	Cells map[string]string
}

// MobLine renders m as one tab-separated table line.
func MobLine(m Mob) string {
	schema := model.MobProto()
	fields := schema.NewRecord().Fields()
	fields[0] = m.VNUM
	fields[1] = m.Name
	for col, v := range m.Cells {
		fields[schema.Columns.Index(col)] = v
	}
	return strings.Join(fields, "\t")
}

// TableText renders a table file with a header line and one line per mob.
func TableText(mobs ...Mob) string {
	var b strings.Builder
	b.WriteString(strings.Join(model.MobProto().Columns.Names(), "\t"))
	b.WriteString("\n")
	for _, m := range mobs {
		b.WriteString(MobLine(m))
		b.WriteString("\n")
	}
	return b.String()
}

// SampleMobs is a small table used by most workflow tests.
var SampleMobs = []Mob{
	{VNUM: "101", Name: "Wild Dog", Cells: map[string]string{"LEVEL": "1", "EXP": "100", "MAX_HP": "50"}},
	{VNUM: "102", Name: "Wolf", Cells: map[string]string{"LEVEL": "5", "EXP": "200", "MAX_HP": "120"}},
	{VNUM: "103", Name: "Alpha Wolf", Cells: map[string]string{"LEVEL": "10", "EXP": "300", "MAX_HP": "300", "RANK": "S_PAWN"}},
	{VNUM: "691", Name: "Chief Orc", Cells: map[string]string{"LEVEL": "40", "EXP": "9000", "MAX_HP": "8000", "RANK": "BOSS"}},
}

// SetupTable creates a temporary directory holding mob_proto.txt with
// the given mobs (SampleMobs if none). Returns the directory.
func SetupTable(t *testing.T, mobs ...Mob) string {
	t.Helper()
	if len(mobs) == 0 {
		mobs = SampleMobs
	}
	dir := TempDir(t)
	WriteFile(t, dir, TableFile, TableText(mobs...))
	return dir
}

// TempDir creates a temporary directory that is cleaned up after the test.
func TempDir(t *testing.T) string {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "mobproto-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() {
		os.RemoveAll(tmpDir)
	})
	return tmpDir
}

// TablePath returns the path of the table in dir.
func TablePath(dir string) string {
	return filepath.Join(dir, TableFile)
}
