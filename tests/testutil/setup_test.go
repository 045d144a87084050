package testutil

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/mobproto/internal/model"
)

func TestMobLine(t *testing.T) {
	line := MobLine(Mob{VNUM: "7", Name: "Rat", Cells: map[string]string{"EXP": "3"}})
	fields := strings.Split(line, "\t")
	require.Len(t, fields, model.MobProto().Len())
	assert.Equal(t, "7", fields[0])
	assert.Equal(t, "Rat", fields[1])
	assert.Equal(t, "3", fields[model.MobProto().Columns.Index("EXP")])
}

func TestSetupTable(t *testing.T) {
	dir := SetupTable(t)
	text := ReadFile(t, TablePath(dir))
	lines := strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	assert.Len(t, lines, len(SampleMobs)+1)
	assert.True(t, strings.HasPrefix(lines[0], "VNUM\tNAME\t"))
	assert.Empty(t, Backups(t, dir))
}

func TestGetField(t *testing.T) {
	obj := map[string]interface{}{"a": "x", "b": float64(12), "c": 1.5, "d": nil}
	assert.Equal(t, "x", GetField(obj, "a"))
	assert.Equal(t, "12", GetField(obj, "b"))
	assert.Equal(t, "1.5", GetField(obj, "c"))
	assert.Equal(t, "", GetField(obj, "d"))
	assert.Equal(t, "", GetField(obj, "missing"))
}
