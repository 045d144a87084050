package document

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/mobproto/internal/model"
)

func TestBulkEdit(t *testing.T) {
	t.Run("multiply selected rows only", func(t *testing.T) {
		d := testDoc(t)
		n, err := d.BulkEdit(Selection{VNUMs: []int64{101, 102}}, "EXP", Multiply(2))
		require.NoError(t, err)
		assert.Equal(t, 2, n)
		assert.Equal(t, "200", exp(t, d, 101))
		assert.Equal(t, "400", exp(t, d, 102))
		assert.Equal(t, "300", exp(t, d, 103))

		require.NoError(t, d.Undo())
		assert.Equal(t, "100", exp(t, d, 101))
		assert.Equal(t, "200", exp(t, d, 102))
	})

	t.Run("integer results truncate toward zero", func(t *testing.T) {
		d := testDoc(t)
		_, err := d.BulkEdit(Selection{VNUMs: []int64{101, 102}}, "EXP", Multiply(1.25))
		require.NoError(t, err)
		assert.Equal(t, "125", exp(t, d, 101))
		assert.Equal(t, "250", exp(t, d, 102))

		_, err = d.BulkEdit(Selection{VNUMs: []int64{101}}, "EXP", Multiply(0.5))
		require.NoError(t, err)
		assert.Equal(t, "62", exp(t, d, 101))
	})

	t.Run("add", func(t *testing.T) {
		d := testDoc(t)
		_, err := d.BulkEdit(Selection{VNUMs: []int64{103}}, "EXP", Add(-50))
		require.NoError(t, err)
		assert.Equal(t, "250", exp(t, d, 103))
	})

	t.Run("set", func(t *testing.T) {
		d := testDoc(t)
		n, err := d.BulkEdit(Selection{WhenEmpty: ApplyToView}, "RANK", Set("BOSS"))
		require.NoError(t, err)
		assert.Equal(t, 3, n)
		r, err := d.Get(102)
		require.NoError(t, err)
		assert.Equal(t, "BOSS", r.Text("RANK"))
	})

	t.Run("empty selection is rejected by default", func(t *testing.T) {
		d := testDoc(t)
		_, err := d.BulkEdit(Selection{}, "EXP", Multiply(2))
		assert.ErrorIs(t, err, model.ErrEmptySelection)
	})

	t.Run("empty selection applies to view when asked", func(t *testing.T) {
		d := testDoc(t)
		n, err := d.BulkEdit(Selection{WhenEmpty: ApplyToView, View: Search("wolf")}, "EXP", Add(1))
		require.NoError(t, err)
		assert.Equal(t, 2, n)
		assert.Equal(t, "100", exp(t, d, 101))
		assert.Equal(t, "201", exp(t, d, 102))
	})

	t.Run("out of range result changes nothing", func(t *testing.T) {
		d := testDoc(t)
		before := d.Snapshot()
		_, err := d.BulkEdit(Selection{VNUMs: []int64{101, 102}}, "EXP", Add(-150))
		var verr *model.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, int64(101), verr.VNUM)
		assert.Empty(t, cmp.Diff(before, d.Snapshot()))
		assert.Equal(t, 0, d.History().Len())
	})

	t.Run("numeric operation on text column", func(t *testing.T) {
		d := testDoc(t)
		var verr *model.ValidationError
		_, err := d.BulkEdit(Selection{VNUMs: []int64{101}}, "NAME", Multiply(2))
		assert.ErrorAs(t, err, &verr)
	})

	t.Run("unknown VNUM fails the whole edit", func(t *testing.T) {
		d := testDoc(t)
		_, err := d.BulkEdit(Selection{VNUMs: []int64{101, 999}}, "EXP", Multiply(2))
		assert.ErrorIs(t, err, model.ErrRecordNotFound)
		assert.Equal(t, "100", exp(t, d, 101))
	})

	t.Run("no change pushes nothing", func(t *testing.T) {
		d := testDoc(t)
		n, err := d.BulkEdit(Selection{VNUMs: []int64{101}}, "EXP", Multiply(1))
		require.NoError(t, err)
		assert.Equal(t, 0, n)
		assert.Equal(t, 0, d.History().Len())
	})

	t.Run("blank cells count as zero", func(t *testing.T) {
		d := testDoc(t)
		require.NoError(t, d.SetCell(101, "EXP", ""))
		n, err := d.BulkEdit(Selection{VNUMs: []int64{101}}, "EXP", Add(5))
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		assert.Equal(t, "5", exp(t, d, 101))
	})

	t.Run("blank cells stay blank when the result is zero", func(t *testing.T) {
		d := testDoc(t)
		require.NoError(t, d.SetCell(101, "EXP", ""))
		pushed := d.History().Len()

		n, err := d.BulkEdit(Selection{VNUMs: []int64{101, 102}}, "EXP", Multiply(3))
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		assert.Equal(t, "", exp(t, d, 101))
		assert.Equal(t, "600", exp(t, d, 102))

		n, err = d.BulkEdit(Selection{VNUMs: []int64{101}}, "EXP", Add(0))
		require.NoError(t, err)
		assert.Equal(t, 0, n)
		assert.Equal(t, pushed+1, d.History().Len())
	})

	t.Run("shifting VNUMs keeps them unique", func(t *testing.T) {
		d := testDoc(t)
		n, err := d.BulkEdit(Selection{WhenEmpty: ApplyToView}, "VNUM", Add(1))
		require.NoError(t, err)
		assert.Equal(t, 3, n)
		r, err := d.Get(104)
		require.NoError(t, err)
		assert.Equal(t, "Alpha Wolf", r.Text("NAME"))
		r, err = d.Get(102)
		require.NoError(t, err)
		assert.Equal(t, "Wild Dog", r.Text("NAME"))

		require.NoError(t, d.Undo())
		r, err = d.Get(101)
		require.NoError(t, err)
		assert.Equal(t, "Wild Dog", r.Text("NAME"))
	})

	t.Run("setting one VNUM on many rows is rejected", func(t *testing.T) {
		d := testDoc(t)
		_, err := d.BulkEdit(Selection{VNUMs: []int64{101, 102}}, "VNUM", Set("500"))
		assert.ErrorIs(t, err, model.ErrDuplicateVNUM)
		_, err = d.Get(101)
		assert.NoError(t, err)
	})
}

func TestBulkEditColumns(t *testing.T) {
	gold := func(t *testing.T, d *Document, vnum int64) string {
		t.Helper()
		r, err := d.Get(vnum)
		require.NoError(t, err)
		return r.Text("GOLD_MAX")
	}

	t.Run("every column in one undo step", func(t *testing.T) {
		d := testDoc(t)
		n, err := d.BulkEditColumns(Selection{VNUMs: []int64{101, 102}}, []ColumnEdit{
			{Column: "EXP", Op: Multiply(2)},
			{Column: "gold_max", Op: Add(100)},
			{Column: "FOLDER", Op: Set("dog")},
		})
		require.NoError(t, err)
		assert.Equal(t, 6, n)
		assert.Equal(t, 1, d.History().Len())
		assert.Equal(t, "400", exp(t, d, 102))
		assert.Equal(t, "100", gold(t, d, 101))

		last, ok := d.History().LastCommand()
		require.True(t, ok)
		assert.Equal(t, `EXP multiply by 2, GOLD_MAX add 100, FOLDER set to "dog" (6 cells)`, last.Description())

		require.NoError(t, d.Undo())
		assert.Equal(t, "100", exp(t, d, 101))
		assert.Equal(t, "200", exp(t, d, 102))
		assert.Equal(t, "0", gold(t, d, 101))
		r, err := d.Get(102)
		require.NoError(t, err)
		assert.Equal(t, "", r.Text("FOLDER"))
	})

	t.Run("edits of one column compose", func(t *testing.T) {
		d := testDoc(t)
		n, err := d.BulkEditColumns(Selection{VNUMs: []int64{101}}, []ColumnEdit{
			{Column: "EXP", Op: Multiply(2)},
			{Column: "EXP", Op: Add(-50)},
		})
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		assert.Equal(t, "150", exp(t, d, 101))
	})

	t.Run("one bad result rejects every column", func(t *testing.T) {
		d := testDoc(t)
		before := d.Snapshot()
		_, err := d.BulkEditColumns(Selection{WhenEmpty: ApplyToView}, []ColumnEdit{
			{Column: "EXP", Op: Add(1)},
			{Column: "LEVEL", Op: Set("500")},
		})
		var verr *model.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Empty(t, cmp.Diff(before, d.Snapshot()))
		assert.Equal(t, 0, d.History().Len())
	})

	t.Run("renumbering with other columns undoes cleanly", func(t *testing.T) {
		d := testDoc(t)
		_, err := d.BulkEditColumns(Selection{VNUMs: []int64{103}}, []ColumnEdit{
			{Column: "VNUM", Op: Add(900)},
			{Column: "EXP", Op: Add(1)},
		})
		require.NoError(t, err)
		assert.Equal(t, "301", exp(t, d, 1003))

		require.NoError(t, d.Undo())
		assert.Equal(t, "300", exp(t, d, 103))
		require.NoError(t, d.Redo())
		assert.Equal(t, "301", exp(t, d, 1003))
	})

	t.Run("unknown column", func(t *testing.T) {
		d := testDoc(t)
		_, err := d.BulkEditColumns(Selection{VNUMs: []int64{101}}, []ColumnEdit{{Column: "HEIGHT", Op: Add(1)}})
		assert.ErrorIs(t, err, model.ErrColumnNotFound)
	})

	t.Run("no edits", func(t *testing.T) {
		d := testDoc(t)
		_, err := d.BulkEditColumns(Selection{VNUMs: []int64{101}}, nil)
		assert.ErrorIs(t, err, model.ErrInvalidOperator)
	})
}

func TestParseColumnEdit(t *testing.T) {
	tests := []struct {
		in   string
		want ColumnEdit
	}{
		{"EXP*=2", ColumnEdit{Column: "EXP", Op: Multiply(2)}},
		{"GOLD_MAX+=100", ColumnEdit{Column: "GOLD_MAX", Op: Add(100)}},
		{"DEF-=5", ColumnEdit{Column: "DEF", Op: Add(-5)}},
		{"FOLDER=wolf pack", ColumnEdit{Column: "FOLDER", Op: Set("wolf pack")}},
		{"FOLDER=", ColumnEdit{Column: "FOLDER", Op: Set("")}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseColumnEdit(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, bad := range []string{"EXP", "=5", "*=2", "EXP*=two"} {
		t.Run("rejects "+bad, func(t *testing.T) {
			_, err := ParseColumnEdit(bad)
			assert.ErrorIs(t, err, model.ErrInvalidOperator)
		})
	}
}
