package document

import (
	"errors"
	"fmt"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/mobproto/internal/model"
)

// mob builds a record with the given VNUM, NAME and EXP; other columns
// keep their defaults.
func mob(t *testing.T, vnum int64, name string, exp int64) *model.Record {
	t.Helper()
	s := model.MobProto()
	r := s.NewRecord()
	var err error
	r, err = r.WithValue(s.KeyIndex(), model.Int(vnum))
	require.NoError(t, err)
	r, err = r.WithValue(s.Columns.Index("NAME"), model.Text(name))
	require.NoError(t, err)
	r, err = r.WithValue(s.Columns.Index("EXP"), model.Int(exp))
	require.NoError(t, err)
	return r
}

func testDoc(t *testing.T, opts ...Option) *Document {
	t.Helper()
	d, err := FromRecords(model.MobProto(), []*model.Record{
		mob(t, 101, "Wild Dog", 100),
		mob(t, 102, "Wolf", 200),
		mob(t, 103, "Alpha Wolf", 300),
	}, opts...)
	require.NoError(t, err)
	return d
}

func exp(t *testing.T, d *Document, vnum int64) string {
	t.Helper()
	r, err := d.Get(vnum)
	require.NoError(t, err)
	return r.Text("EXP")
}

func TestFromRecords(t *testing.T) {
	t.Run("rejects duplicate VNUMs", func(t *testing.T) {
		_, err := FromRecords(model.MobProto(), []*model.Record{mob(t, 1, "a", 0), mob(t, 1, "b", 0)})
		assert.ErrorIs(t, err, model.ErrDuplicateVNUM)
	})

	t.Run("starts clean", func(t *testing.T) {
		d := testDoc(t)
		assert.Equal(t, 3, d.Len())
		assert.False(t, d.Dirty())
	})
}

func TestGet(t *testing.T) {
	d := testDoc(t)

	t.Run("returns a copy", func(t *testing.T) {
		r1, err := d.Get(101)
		require.NoError(t, err)
		r2, err := d.Get(101)
		require.NoError(t, err)
		assert.NotSame(t, r1, r2)
		assert.True(t, r1.Equal(r2))
		assert.Equal(t, "Wild Dog", r1.Text("NAME"))
	})

	t.Run("unknown VNUM", func(t *testing.T) {
		_, err := d.Get(999)
		assert.ErrorIs(t, err, model.ErrRecordNotFound)
	})
}

func TestFilter(t *testing.T) {
	d := testDoc(t)

	t.Run("nil predicate yields every row in order", func(t *testing.T) {
		var got []int64
		for r := range d.Filter(nil) {
			got = append(got, r.VNUM())
		}
		assert.Equal(t, []int64{101, 102, 103}, got)
	})

	t.Run("sequence is restartable and sees edits", func(t *testing.T) {
		view := d.Filter(Search("wolf"))
		first := slices.Collect(view)
		require.Len(t, first, 2)

		require.NoError(t, d.SetCell(101, "NAME", "Wolf Pup"))
		second := slices.Collect(view)
		assert.Len(t, second, 3)
		require.NoError(t, d.Undo())
	})

	t.Run("stops early", func(t *testing.T) {
		n := 0
		for range d.Filter(nil) {
			n++
			break
		}
		assert.Equal(t, 1, n)
	})
}

func TestSetCell(t *testing.T) {
	t.Run("stores a valid value", func(t *testing.T) {
		d := testDoc(t)
		require.NoError(t, d.SetCell(101, "exp", "150"))
		assert.Equal(t, "150", exp(t, d, 101))
		assert.True(t, d.Dirty())
	})

	t.Run("non-numeric into numeric column leaves document unchanged", func(t *testing.T) {
		d := testDoc(t)
		before := d.Snapshot()

		err := d.SetCell(101, "EXP", "lots")
		var verr *model.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, int64(101), verr.VNUM)
		assert.Equal(t, "EXP", verr.Column)
		assert.Empty(t, cmp.Diff(before, d.Snapshot()))
		assert.False(t, d.Dirty())
	})

	t.Run("out of range", func(t *testing.T) {
		d := testDoc(t)
		var verr *model.ValidationError
		assert.ErrorAs(t, d.SetCell(101, "LEVEL", "-1"), &verr)
	})

	t.Run("unknown column", func(t *testing.T) {
		d := testDoc(t)
		assert.ErrorIs(t, d.SetCell(101, "NOPE", "1"), model.ErrColumnNotFound)
	})

	t.Run("unknown VNUM", func(t *testing.T) {
		d := testDoc(t)
		assert.ErrorIs(t, d.SetCell(999, "EXP", "1"), model.ErrRecordNotFound)
	})

	t.Run("same value is not a change", func(t *testing.T) {
		d := testDoc(t)
		require.NoError(t, d.SetCell(101, "EXP", "100"))
		assert.Equal(t, 0, d.History().Len())
	})

	t.Run("changing the key keeps VNUMs unique", func(t *testing.T) {
		d := testDoc(t)
		var verr *model.ValidationError
		assert.ErrorAs(t, d.SetCell(101, "VNUM", "102"), &verr)

		require.NoError(t, d.SetCell(101, "VNUM", "201"))
		_, err := d.Get(101)
		assert.ErrorIs(t, err, model.ErrRecordNotFound)
		r, err := d.Get(201)
		require.NoError(t, err)
		assert.Equal(t, "Wild Dog", r.Text("NAME"))

		require.NoError(t, d.Undo())
		_, err = d.Get(101)
		assert.NoError(t, err)
	})

	t.Run("blank key rejected", func(t *testing.T) {
		d := testDoc(t)
		assert.Error(t, d.SetCell(101, "VNUM", ""))
	})
}

func TestUndoRedo(t *testing.T) {
	t.Run("nothing to undo or redo", func(t *testing.T) {
		d := testDoc(t)
		assert.ErrorIs(t, d.Undo(), model.ErrNoOpAvailable)
		assert.ErrorIs(t, d.Redo(), model.ErrNoOpAvailable)
	})

	t.Run("undo all and redo all reproduce snapshots", func(t *testing.T) {
		d := testDoc(t)
		snaps := [][][]string{d.Snapshot()}
		for i := 1; i <= DefaultHistoryLimit; i++ {
			vnum := int64(101 + i%3)
			require.NoError(t, d.SetCell(vnum, "EXP", fmt.Sprint(1000+i)))
			snaps = append(snaps, d.Snapshot())
		}

		for i := DefaultHistoryLimit - 1; i >= 0; i-- {
			require.NoError(t, d.Undo())
			require.Empty(t, cmp.Diff(snaps[i], d.Snapshot()), "after undo to %d", i)
		}
		assert.ErrorIs(t, d.Undo(), model.ErrNothingToUndo)
		assert.False(t, d.Dirty())

		for i := 1; i <= DefaultHistoryLimit; i++ {
			require.NoError(t, d.Redo())
			require.Empty(t, cmp.Diff(snaps[i], d.Snapshot()), "after redo to %d", i)
		}
		assert.ErrorIs(t, d.Redo(), model.ErrNothingToRedo)
	})

	t.Run("the 51st edit evicts the oldest", func(t *testing.T) {
		d := testDoc(t)
		for i := 1; i <= DefaultHistoryLimit+1; i++ {
			require.NoError(t, d.SetCell(101, "EXP", fmt.Sprint(i)))
		}
		assert.Equal(t, DefaultHistoryLimit, d.History().Len())
		assert.Equal(t, 1, d.History().Dropped())

		for i := 0; i < DefaultHistoryLimit; i++ {
			require.NoError(t, d.Undo())
		}
		assert.ErrorIs(t, d.Undo(), model.ErrNothingToUndo)
		assert.Equal(t, "1", exp(t, d, 101), "first edit can no longer be undone")
		assert.True(t, d.Dirty(), "saved state fell off the history")
	})

	t.Run("new edit discards redo tail", func(t *testing.T) {
		d := testDoc(t)
		require.NoError(t, d.SetCell(101, "EXP", "1"))
		require.NoError(t, d.SetCell(101, "EXP", "2"))
		require.NoError(t, d.Undo())
		require.NoError(t, d.SetCell(101, "EXP", "3"))
		assert.ErrorIs(t, d.Redo(), model.ErrNothingToRedo)
		assert.Equal(t, 2, d.History().Len())
	})

	t.Run("custom limit", func(t *testing.T) {
		d := testDoc(t, WithHistoryLimit(2))
		for i := 1; i <= 3; i++ {
			require.NoError(t, d.SetCell(101, "EXP", fmt.Sprint(i)))
		}
		assert.Equal(t, 2, d.History().Len())
	})
}

func TestDirty(t *testing.T) {
	d := testDoc(t)
	require.NoError(t, d.SetCell(101, "EXP", "1"))
	d.MarkSaved()
	assert.False(t, d.Dirty())

	require.NoError(t, d.Undo())
	assert.True(t, d.Dirty())
	require.NoError(t, d.Redo())
	assert.False(t, d.Dirty())

	require.NoError(t, d.Undo())
	require.NoError(t, d.SetCell(101, "EXP", "2"))
	require.NoError(t, d.Undo())
	assert.True(t, d.Dirty(), "saved state was on the discarded redo tail")
}

func TestReplace(t *testing.T) {
	d := testDoc(t)
	before := d.Snapshot()

	require.NoError(t, d.Replace([]*model.Record{mob(t, 7, "Imported", 5)}, "import x.csv"))
	assert.Equal(t, 1, d.Len())
	_, err := d.Get(7)
	assert.NoError(t, err)

	require.NoError(t, d.Undo())
	assert.Empty(t, cmp.Diff(before, d.Snapshot()))

	t.Run("rejects duplicates without change", func(t *testing.T) {
		err := d.Replace([]*model.Record{mob(t, 7, "a", 0), mob(t, 7, "b", 0)}, "bad")
		assert.ErrorIs(t, err, model.ErrDuplicateVNUM)
		assert.Empty(t, cmp.Diff(before, d.Snapshot()))
	})
}

func TestHistoryEntries(t *testing.T) {
	d := testDoc(t)
	require.NoError(t, d.SetCell(101, "EXP", "1"))
	require.NoError(t, d.SetCell(102, "NAME", "Grey Wolf"))
	require.NoError(t, d.Undo())

	entries := d.History().Entries()
	require.Len(t, entries, 2)
	assert.True(t, entries[0].Applied)
	assert.False(t, entries[1].Applied)
	assert.Contains(t, entries[1].Description, "NAME")

	last, ok := d.History().LastCommand()
	require.True(t, ok)
	assert.Contains(t, last.Description(), "EXP")
}

func TestCommandOutOfSync(t *testing.T) {
	d := testDoc(t)
	cmd := &CellEdits{Desc: "stale", Changes: []CellChange{
		{VNUM: 101, Column: 2, Old: model.Text("nope"), New: model.Text("x")},
	}}
	err := d.Execute(cmd)
	assert.Error(t, err)
	assert.False(t, errors.Is(err, model.ErrNoOpAvailable))
	assert.Equal(t, 0, d.History().Len())
}

func TestCommandFollowsVNUM(t *testing.T) {
	t.Run("applies to the mob not the position", func(t *testing.T) {
		// same mobs, different order
		d, err := FromRecords(model.MobProto(), []*model.Record{
			mob(t, 103, "Alpha Wolf", 200),
			mob(t, 101, "Wild Dog", 200),
		})
		require.NoError(t, err)
		expIdx := model.MobProto().Columns.Index("EXP")
		d.History().Restore([]Command{&CellEdits{Desc: "set EXP of 103", Changes: []CellChange{
			{VNUM: 103, Column: expIdx, Old: model.Int(100), New: model.Int(200)},
		}}}, 1)

		require.NoError(t, d.Undo())
		assert.Equal(t, "100", exp(t, d, 103))
		assert.Equal(t, "200", exp(t, d, 101))
	})

	t.Run("undo of a renumbering finds the new VNUM", func(t *testing.T) {
		d := testDoc(t)
		require.NoError(t, d.SetCell(101, "VNUM", "150"))
		require.NoError(t, d.SetCell(150, "EXP", "999"))

		require.NoError(t, d.Undo())
		require.NoError(t, d.Undo())
		assert.Equal(t, "100", exp(t, d, 101))
		_, err := d.Get(150)
		assert.ErrorIs(t, err, model.ErrRecordNotFound)

		require.NoError(t, d.Redo())
		require.NoError(t, d.Redo())
		assert.Equal(t, "999", exp(t, d, 150))
	})

	t.Run("missing mob fails without changes", func(t *testing.T) {
		d := testDoc(t)
		expIdx := model.MobProto().Columns.Index("EXP")
		err := d.Execute(&CellEdits{Desc: "two", Changes: []CellChange{
			{VNUM: 101, Column: expIdx, Old: model.Int(100), New: model.Int(1)},
			{VNUM: 999, Column: expIdx, Old: model.Int(0), New: model.Int(1)},
		}})
		assert.ErrorIs(t, err, model.ErrRecordNotFound)
		assert.Equal(t, "100", exp(t, d, 101))
	})
}
