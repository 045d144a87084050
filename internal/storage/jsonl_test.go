package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJournal(t *testing.T) {
	table := filepath.Join(t.TempDir(), "mob_proto.txt")
	j := NewJournal(table)
	assert.Equal(t, table+JournalSuffix, j.Path())

	t.Run("read missing journal", func(t *testing.T) {
		entries, err := j.ReadAll()
		require.NoError(t, err)
		assert.Empty(t, entries)
		assert.False(t, j.Exists())
	})

	now := time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)
	do := JournalEntry{
		Op: JournalDo, Time: now, Actor: "alice", Desc: "set EXP of 101",
		Edits:     []JournalEdit{{VNUM: 101, Column: "EXP", Old: "100", New: "150"}},
		HashAfter: "abc",
	}
	undo := JournalEntry{Op: JournalUndo, Time: now, HashAfter: "def"}

	t.Run("append and read back", func(t *testing.T) {
		require.NoError(t, j.Append(do))
		require.NoError(t, j.Append(undo))

		entries, err := j.ReadAll()
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, do, entries[0])
		assert.Equal(t, undo, entries[1])
	})

	t.Run("write all replaces", func(t *testing.T) {
		require.NoError(t, j.WriteAll([]JournalEntry{do}))
		entries, err := j.ReadAll()
		require.NoError(t, err)
		assert.Len(t, entries, 1)
	})

	t.Run("torn last line is skipped", func(t *testing.T) {
		require.NoError(t, j.WriteAll([]JournalEntry{do}))
		f, err := os.OpenFile(j.Path(), os.O_APPEND|os.O_WRONLY, 0o644)
		require.NoError(t, err)
		_, err = f.WriteString(`{"op":"undo","ti`)
		require.NoError(t, err)
		require.NoError(t, f.Close())

		entries, err := j.ReadAll()
		require.NoError(t, err)
		assert.Equal(t, []JournalEntry{do}, entries)
	})

	t.Run("corrupt line before the end", func(t *testing.T) {
		require.NoError(t, os.WriteFile(j.Path(), []byte("{not json}\n{\"op\":\"undo\"}\n"), 0o644))
		_, err := j.ReadAll()
		assert.ErrorContains(t, err, "line 1")
	})

	t.Run("remove", func(t *testing.T) {
		require.NoError(t, j.Remove())
		assert.False(t, j.Exists())
		require.NoError(t, j.Remove(), "removing twice is fine")
	})
}
