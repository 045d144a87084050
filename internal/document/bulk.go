package document

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/user/mobproto/internal/model"
)

// OpKind identifies a bulk operation.
type OpKind int

const (
	OpMultiply OpKind = iota
	OpAdd
	OpSet
)

// Operation is a transformation applied to one column of many rows.
type Operation struct {
	Kind   OpKind
	Factor float64 // Multiply, Add
	Text   string  // Set
}

// Multiply scales numeric cells by k.
func Multiply(k float64) Operation { return Operation{Kind: OpMultiply, Factor: k} }

// Add adds k to numeric cells.
func Add(k float64) Operation { return Operation{Kind: OpAdd, Factor: k} }

// Set stores text in every cell.
func Set(text string) Operation { return Operation{Kind: OpSet, Text: text} }

func (o Operation) String() string {
	k := strconv.FormatFloat(o.Factor, 'g', -1, 64)
	switch o.Kind {
	case OpMultiply:
		return "multiply by " + k
	case OpAdd:
		return "add " + k
	default:
		return fmt.Sprintf("set to %q", o.Text)
	}
}

// apply computes the new value of one cell.
func (o Operation) apply(col *model.Column, old model.Value) (model.Value, error) {
	if o.Kind == OpSet {
		return col.Parse(o.Text)
	}
	if col.Kind == model.KindText {
		return nil, &model.ValidationError{Column: col.Name, Reason: "column is not numeric"}
	}
	n := model.Number(old)
	if o.Kind == OpMultiply {
		n *= o.Factor
	} else {
		n += o.Factor
	}
	v, err := model.FromNumber(col.Kind, n)
	if err != nil {
		return nil, &model.ValidationError{Column: col.Name, Value: old.String(), Reason: err.Error()}
	}
	if err := col.Check(v); err != nil {
		return nil, err
	}
	return v, nil
}

// EmptyPolicy decides what an empty selection means.
type EmptyPolicy int

const (
	// RejectEmpty fails with model.ErrEmptySelection.
	RejectEmpty EmptyPolicy = iota
	// ApplyToView applies the edit to every row matching Selection.View.
	ApplyToView
)

// Selection names the rows a bulk edit touches.
type Selection struct {
	VNUMs     []int64
	WhenEmpty EmptyPolicy
	View      Predicate // used with ApplyToView; nil means every row
}

// selectRows resolves the selection to row positions.
func (d *Document) selectRows(sel Selection) ([]int, error) {
	if len(sel.VNUMs) == 0 {
		if sel.WhenEmpty != ApplyToView {
			return nil, model.ErrEmptySelection
		}
		var out []int
		for i, r := range d.rows {
			if sel.View == nil || sel.View(r) {
				out = append(out, i)
			}
		}
		return out, nil
	}
	seen := make(map[int]bool, len(sel.VNUMs))
	out := make([]int, 0, len(sel.VNUMs))
	for _, v := range sel.VNUMs {
		i, ok := d.index[v]
		if !ok {
			return nil, fmt.Errorf("%w: VNUM %d", model.ErrRecordNotFound, v)
		}
		if !seen[i] {
			seen[i] = true
			out = append(out, i)
		}
	}
	return out, nil
}

// ColumnEdit is one operation on one column of a bulk edit.
type ColumnEdit struct {
	Column string
	Op     Operation
}

func (e ColumnEdit) String() string {
	return e.Column + " " + e.Op.String()
}

// ParseColumnEdit parses the short form of a column edit: COL*=K
// multiplies, COL+=K and COL-=K add, and COL=TEXT sets.
func ParseColumnEdit(s string) (ColumnEdit, error) {
	lhs, rhs, ok := strings.Cut(s, "=")
	if !ok || lhs == "" {
		return ColumnEdit{}, fmt.Errorf("%w: %q (expected COL*=K, COL+=K, COL-=K or COL=VALUE)", model.ErrInvalidOperator, s)
	}
	kind, sign := OpSet, 1.0
	switch lhs[len(lhs)-1] {
	case '*':
		kind = OpMultiply
	case '+':
		kind = OpAdd
	case '-':
		kind, sign = OpAdd, -1
	}
	if kind == OpSet {
		return ColumnEdit{Column: strings.TrimSpace(lhs), Op: Set(rhs)}, nil
	}
	column := strings.TrimSpace(lhs[:len(lhs)-1])
	k, err := strconv.ParseFloat(strings.TrimSpace(rhs), 64)
	if err != nil || column == "" {
		return ColumnEdit{}, fmt.Errorf("%w: %q", model.ErrInvalidOperator, s)
	}
	if kind == OpMultiply {
		return ColumnEdit{Column: column, Op: Multiply(k)}, nil
	}
	return ColumnEdit{Column: column, Op: Add(sign * k)}, nil
}

// BulkEdit applies op to column in every selected row and returns the
// number of rows whose value changed. Either every row is updated or
// none is. Numeric results on integer columns are truncated toward zero
// and blank cells count as 0; a blank cell whose result is 0 stays blank.
func (d *Document) BulkEdit(sel Selection, column string, op Operation) (int, error) {
	return d.BulkEditColumns(sel, []ColumnEdit{{Column: column, Op: op}})
}

// BulkEditColumns applies every edit, in order, to each selected row as
// a single undoable step and returns the number of cells changed. Edits
// naming the same column compose. Nothing changes if any result is
// rejected.
func (d *Document) BulkEditColumns(sel Selection, edits []ColumnEdit) (int, error) {
	if len(edits) == 0 {
		return 0, fmt.Errorf("%w: no edits given", model.ErrInvalidOperator)
	}
	cols := make([]*model.Column, len(edits))
	named := make([]ColumnEdit, len(edits))
	for i, e := range edits {
		col, err := d.schema.Column(e.Column)
		if err != nil {
			return 0, err
		}
		cols[i] = col
		named[i] = ColumnEdit{Column: col.Name, Op: e.Op}
	}
	rows, err := d.selectRows(sel)
	if err != nil {
		return 0, err
	}

	// touched lists each column once, in the order first edited.
	var touched []*model.Column
	setOnly := make(map[int]bool)
	for i, col := range cols {
		if _, seen := setOnly[col.Ordinal]; !seen {
			touched = append(touched, col)
			setOnly[col.Ordinal] = false
		}
		if edits[i].Op.Kind == OpSet {
			setOnly[col.Ordinal] = true
		}
	}

	var changes []CellChange
	for _, i := range rows {
		r := d.rows[i]
		vals := make(map[int]model.Value, len(touched))
		for j, e := range edits {
			cur, ok := vals[cols[j].Ordinal]
			if !ok {
				cur = r.Value(cols[j].Ordinal)
			}
			v, err := e.Op.apply(cols[j], cur)
			if err != nil {
				return 0, withVNUM(err, r.VNUM())
			}
			vals[cols[j].Ordinal] = v
		}
		for _, col := range touched {
			old, v := r.Value(col.Ordinal), vals[col.Ordinal]
			if old == v || (!setOnly[col.Ordinal] && model.Number(old) == model.Number(v)) {
				continue
			}
			changes = append(changes, CellChange{VNUM: r.VNUM(), Column: col.Ordinal, Old: old, New: v})
		}
	}
	if len(changes) == 0 {
		return 0, nil
	}

	cmd := &CellEdits{Desc: bulkDescription(named, len(changes)), Changes: changes}
	if err := d.Execute(cmd); err != nil {
		return 0, fmt.Errorf("bulk edit: %w", err)
	}
	return len(changes), nil
}

func bulkDescription(edits []ColumnEdit, cells int) string {
	if len(edits) == 1 {
		return fmt.Sprintf("%s %s (%d rows)", edits[0].Column, edits[0].Op, cells)
	}
	parts := make([]string, len(edits))
	for i, e := range edits {
		parts[i] = e.String()
	}
	return fmt.Sprintf("%s (%d cells)", strings.Join(parts, ", "), cells)
}
