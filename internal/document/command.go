package document

import (
	"fmt"

	"github.com/user/mobproto/internal/model"
)

// Command is a reversible change to a Document. Apply and Revert are
// all-or-nothing: on error the document is left as it was.
type Command interface {
	Description() string
	Apply(d *Document) error
	Revert(d *Document) error
}

// CellChange is one cell going from Old to New. Rows are found by VNUM,
// never by position, so a change stays attached to its mob when the
// file is reordered.
type CellChange struct {
	VNUM   int64 // VNUM of the row before the change
	Column int   // column ordinal
	Old    model.Value
	New    model.Value
}

// CellEdits changes one or more cells. Used for single edits and bulk edits.
type CellEdits struct {
	Desc    string
	Changes []CellChange
}

func (c *CellEdits) Description() string { return c.Desc }

func (c *CellEdits) Apply(d *Document) error {
	return applyChanges(d, c.Changes, true)
}

func (c *CellEdits) Revert(d *Document) error {
	return applyChanges(d, c.Changes, false)
}

// resolveRows finds the row each change targets. Going forward that is
// the row holding ch.VNUM; going back it is the row holding the VNUM
// the command gave it.
func resolveRows(d *Document, changes []CellChange, forward bool) ([]int, error) {
	keyIdx := d.schema.KeyIndex()
	renamed := make(map[int64]int64)
	if !forward {
		for _, ch := range changes {
			if ch.Column != keyIdx {
				continue
			}
			if n, ok := ch.New.(model.IntValue); ok {
				renamed[ch.VNUM] = n.N
			}
		}
	}
	rows := make([]int, len(changes))
	for i, ch := range changes {
		vnum := ch.VNUM
		if n, ok := renamed[vnum]; ok {
			vnum = n
		}
		row, ok := d.index[vnum]
		if !ok {
			return nil, fmt.Errorf("%w: VNUM %d", model.ErrRecordNotFound, vnum)
		}
		rows[i] = row
	}
	return rows, nil
}

// applyChanges checks every change against the current document before
// writing any of them.
func applyChanges(d *Document, changes []CellChange, forward bool) error {
	rows, err := resolveRows(d, changes, forward)
	if err != nil {
		return err
	}
	keyIdx := d.schema.KeyIndex()
	keyTouched := false
	newKeys := make(map[int]int64)

	for i, ch := range changes {
		row := rows[i]
		from, to := ch.Old, ch.New
		if !forward {
			from, to = ch.New, ch.Old
		}
		if ch.Column < 0 || ch.Column >= d.schema.Len() {
			return fmt.Errorf("column %d out of range", ch.Column)
		}
		col := d.schema.Columns[ch.Column]
		if cur := d.rows[row].Value(ch.Column); cur != from {
			return fmt.Errorf("VNUM %d %s is %q, expected %q", d.rows[row].VNUM(), col.Name, cur.String(), from.String())
		}
		if to.Kind() != col.Kind {
			return &model.ValidationError{VNUM: ch.VNUM, Column: col.Name, Value: to.String(),
				Reason: fmt.Sprintf("expected %s, got %s", col.Kind, to.Kind())}
		}
		if ch.Column == keyIdx {
			if to.Blank() {
				return &model.ValidationError{VNUM: ch.VNUM, Column: col.Name, Reason: "key may not be blank"}
			}
			keyTouched = true
			newKeys[row] = to.(model.IntValue).N
		}
	}

	if keyTouched {
		seen := make(map[int64]bool, len(d.rows))
		for i, r := range d.rows {
			k := r.VNUM()
			if nk, ok := newKeys[i]; ok {
				k = nk
			}
			if seen[k] {
				return fmt.Errorf("%w: %d", model.ErrDuplicateVNUM, k)
			}
			seen[k] = true
		}
	}

	for i, ch := range changes {
		to := ch.New
		if !forward {
			to = ch.Old
		}
		if err := d.setValue(rows[i], ch.Column, to); err != nil {
			// unreachable: kinds and keys were checked above
			return err
		}
	}
	if keyTouched {
		d.reindex()
	}
	return nil
}

// ReplaceRows swaps the whole table, e.g. for an import.
type ReplaceRows struct {
	Desc   string
	Before []*model.Record
	After  []*model.Record
}

func (c *ReplaceRows) Description() string { return c.Desc }

func (c *ReplaceRows) Apply(d *Document) error {
	return d.load(c.After)
}

func (c *ReplaceRows) Revert(d *Document) error {
	return d.load(c.Before)
}
