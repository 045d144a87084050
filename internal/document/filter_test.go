package document

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/mobproto/internal/model"
)

func TestParseWhere(t *testing.T) {
	tests := []struct {
		clause string
		want   Condition
	}{
		{"LEVEL=10", Condition{Field: "LEVEL", Operator: "=", Value: "10"}},
		{"LEVEL != 10", Condition{Field: "LEVEL", Operator: "!=", Value: "10"}},
		{"EXP>=100", Condition{Field: "EXP", Operator: ">=", Value: "100"}},
		{"EXP<>5", Condition{Field: "EXP", Operator: "<>", Value: "5"}},
		{`NAME LIKE "%wolf%"`, Condition{Field: "NAME", Operator: "LIKE", Value: "%wolf%"}},
		{"NAME = 'Wild Dog'", Condition{Field: "NAME", Operator: "=", Value: "Wild Dog"}},
		{"FOLDER is empty", Condition{Field: "FOLDER", Operator: "IS EMPTY"}},
		{"FOLDER IS NOT EMPTY", Condition{Field: "FOLDER", Operator: "IS NOT EMPTY"}},
	}
	for _, tt := range tests {
		t.Run(tt.clause, func(t *testing.T) {
			got, err := ParseWhere(tt.clause)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("invalid", func(t *testing.T) {
		_, err := ParseWhere("LEVEL")
		assert.ErrorIs(t, err, model.ErrInvalidOperator)
	})
}

func vnums(d *Document, p Predicate) []int64 {
	var out []int64
	for r := range d.Filter(p) {
		out = append(out, r.VNUM())
	}
	return out
}

func TestWhere(t *testing.T) {
	d := testDoc(t)
	s := d.Schema()

	tests := []struct {
		name    string
		clauses []string
		want    []int64
	}{
		{"numeric greater", []string{"EXP>150"}, []int64{102, 103}},
		{"numeric compares as number", []string{"EXP<1000"}, []int64{101, 102, 103}},
		{"equals", []string{"EXP=200"}, []int64{102}},
		{"not equals", []string{"EXP!=200"}, []int64{101, 103}},
		{"text ignores case", []string{"NAME=wolf"}, []int64{102}},
		{"like", []string{"NAME LIKE %wolf"}, []int64{102, 103}},
		{"like single char", []string{"NAME LIKE W_lf"}, []int64{102}},
		{"combined", []string{"NAME LIKE %wolf%", "EXP>250"}, []int64{103}},
		{"is empty", []string{"FOLDER IS EMPTY"}, []int64{101, 102, 103}},
		{"is not empty", []string{"NAME IS NOT EMPTY"}, []int64{101, 102, 103}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Where(s, tt.clauses...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, vnums(d, p))
		})
	}

	t.Run("unknown column", func(t *testing.T) {
		_, err := Where(s, "NOPE=1")
		assert.ErrorIs(t, err, model.ErrColumnNotFound)
	})
}

func TestSearch(t *testing.T) {
	d := testDoc(t)

	assert.Equal(t, []int64{102, 103}, vnums(d, Search("WOLF")))
	assert.Equal(t, []int64{103}, vnums(d, Search("103")))
	assert.Len(t, slices.Collect(d.Filter(Search(""))), 3)
	assert.Equal(t, []int64{101, 103}, vnums(d, ByVNUM(103, 101)))
	assert.Equal(t, []int64{103}, vnums(d, And(Search("wolf"), ByVNUM(101, 103))))
}
