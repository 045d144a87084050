// Package document holds the in-memory mob table: an ordered sequence of
// records keyed by VNUM, mutated only through undoable commands.
package document

import (
	"fmt"
	"iter"

	"github.com/user/mobproto/internal/model"
)

// DefaultHistoryLimit is the number of commands kept for undo.
const DefaultHistoryLimit = 50

// Format records how the source file was laid out so that saving an
// unmodified document reproduces it byte for byte.
type Format struct {
	HasHeader bool
	// Header is the header line as read; empty means the canonical names.
	Header          string
	BOM             bool
	CRLF            bool
	TrailingNewline bool
	// Encoding is the detected source encoding ("utf-8" or "euc-kr").
	// Documents are always written as UTF-8.
	Encoding string
	// Blanks are the empty or whitespace-only lines of the source, in
	// file order.
	Blanks []BlankLine
}

// BlankLine is a line holding no row. Before counts the header and row
// lines that precede it.
type BlankLine struct {
	Before int
	Text   string
}

// DefaultFormat is used for documents not read from a file.
func DefaultFormat() Format {
	return Format{HasHeader: true, TrailingNewline: true, Encoding: "utf-8"}
}

// Document is an ordered table of records with unique VNUMs.
type Document struct {
	schema  *model.Schema
	rows    []*model.Record
	index   map[int64]int // VNUM -> row position
	format  Format
	history *History
}

// Option configures a Document.
type Option func(*Document)

// WithHistoryLimit sets the undo capacity. Values below 1 keep the default.
func WithHistoryLimit(n int) Option {
	return func(d *Document) {
		if n > 0 {
			d.history = NewHistory(n)
		}
	}
}

// WithFormat sets the file layout metadata.
func WithFormat(f Format) Option {
	return func(d *Document) {
		d.format = f
	}
}

// New creates an empty document.
func New(schema *model.Schema, opts ...Option) *Document {
	d := &Document{
		schema:  schema,
		index:   make(map[int64]int),
		format:  DefaultFormat(),
		history: NewHistory(DefaultHistoryLimit),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// FromRecords creates a document holding records in the given order.
// Records must share the document schema and have unique VNUMs.
func FromRecords(schema *model.Schema, records []*model.Record, opts ...Option) (*Document, error) {
	d := New(schema, opts...)
	if err := d.load(records); err != nil {
		return nil, err
	}
	return d, nil
}

// load replaces the rows without touching history.
func (d *Document) load(records []*model.Record) error {
	index, err := buildIndex(d.schema, records)
	if err != nil {
		return err
	}
	rows := make([]*model.Record, len(records))
	for i, r := range records {
		rows[i] = r.Clone()
	}
	d.rows = rows
	d.index = index
	return nil
}

func buildIndex(schema *model.Schema, records []*model.Record) (map[int64]int, error) {
	index := make(map[int64]int, len(records))
	for i, r := range records {
		if r.Schema() != schema {
			return nil, fmt.Errorf("record %d uses a different schema", i)
		}
		if prev, ok := index[r.VNUM()]; ok {
			return nil, fmt.Errorf("%w: %d (rows %d and %d)", model.ErrDuplicateVNUM, r.VNUM(), prev+1, i+1)
		}
		index[r.VNUM()] = i
	}
	return index, nil
}

// Schema returns the document schema.
func (d *Document) Schema() *model.Schema {
	return d.schema
}

// Format returns the file layout metadata.
func (d *Document) Format() Format {
	return d.format
}

// Len returns the number of records.
func (d *Document) Len() int {
	return len(d.rows)
}

// Get returns a copy of the record with the given VNUM.
func (d *Document) Get(vnum int64) (*model.Record, error) {
	i, ok := d.index[vnum]
	if !ok {
		return nil, fmt.Errorf("%w: VNUM %d", model.ErrRecordNotFound, vnum)
	}
	return d.rows[i].Clone(), nil
}

// Filter returns a read-only view of the records matching pred, in
// document order. A nil pred matches everything. The sequence may be
// ranged over any number of times; each pass reads the live document.
func (d *Document) Filter(pred Predicate) iter.Seq[*model.Record] {
	return func(yield func(*model.Record) bool) {
		for _, r := range d.rows {
			if pred != nil && !pred(r) {
				continue
			}
			if !yield(r.Clone()) {
				return
			}
		}
	}
}

// Records returns every record in document order.
func (d *Document) Records() iter.Seq[*model.Record] {
	return d.Filter(nil)
}

// Snapshot returns the text of every cell, row by row.
func (d *Document) Snapshot() [][]string {
	out := make([][]string, len(d.rows))
	for i, r := range d.rows {
		out[i] = r.Fields()
	}
	return out
}

// SetCell parses text for column and stores it in the record with the
// given VNUM. On failure the document is unchanged.
func (d *Document) SetCell(vnum int64, column, text string) error {
	col, err := d.schema.Column(column)
	if err != nil {
		return err
	}
	row, ok := d.index[vnum]
	if !ok {
		return fmt.Errorf("%w: VNUM %d", model.ErrRecordNotFound, vnum)
	}
	v, err := col.Parse(text)
	if err != nil {
		return withVNUM(err, vnum)
	}
	old := d.rows[row].Value(col.Ordinal)
	if old == v {
		return nil
	}
	if col.Ordinal == d.schema.KeyIndex() {
		if v.Blank() {
			return &model.ValidationError{VNUM: vnum, Column: col.Name, Reason: "key may not be blank"}
		}
		n := v.(model.IntValue).N
		if _, taken := d.index[n]; taken && n != vnum {
			return &model.ValidationError{VNUM: vnum, Column: col.Name, Value: text,
				Reason: model.ErrDuplicateVNUM.Error()}
		}
	}
	cmd := &CellEdits{
		Desc:    fmt.Sprintf("set %s of %d to %q", col.Name, vnum, v.String()),
		Changes: []CellChange{{VNUM: vnum, Column: col.Ordinal, Old: old, New: v}},
	}
	return d.Execute(cmd)
}

// Replace swaps every record for records as a single undoable step.
func (d *Document) Replace(records []*model.Record, desc string) error {
	if _, err := buildIndex(d.schema, records); err != nil {
		return err
	}
	before := make([]*model.Record, len(d.rows))
	copy(before, d.rows)
	after := make([]*model.Record, len(records))
	for i, r := range records {
		after[i] = r.Clone()
	}
	return d.Execute(&ReplaceRows{Desc: desc, Before: before, After: after})
}

// Execute applies cmd and records it in the history.
func (d *Document) Execute(cmd Command) error {
	if err := cmd.Apply(d); err != nil {
		return err
	}
	d.history.Push(cmd)
	return nil
}

// Undo reverts the most recent command.
func (d *Document) Undo() error {
	cmd, ok := d.history.peekUndo()
	if !ok {
		return model.ErrNothingToUndo
	}
	if err := cmd.Revert(d); err != nil {
		return fmt.Errorf("undo %s: %w", cmd.Description(), err)
	}
	d.history.pos--
	return nil
}

// Redo re-applies the most recently undone command.
func (d *Document) Redo() error {
	cmd, ok := d.history.peekRedo()
	if !ok {
		return model.ErrNothingToRedo
	}
	if err := cmd.Apply(d); err != nil {
		return fmt.Errorf("redo %s: %w", cmd.Description(), err)
	}
	d.history.pos++
	return nil
}

// History returns the command log.
func (d *Document) History() *History {
	return d.history
}

// Dirty reports whether the document differs from the last saved state.
func (d *Document) Dirty() bool {
	return d.history.Dirty()
}

// MarkSaved records the current state as the saved one.
func (d *Document) MarkSaved() {
	d.history.MarkSaved()
}

// setValue stores v at row/column. The VNUM index is not updated;
// callers touching the key column call reindex afterwards.
func (d *Document) setValue(row, column int, v model.Value) error {
	r, err := d.rows[row].WithValue(column, v)
	if err != nil {
		return err
	}
	d.rows[row] = r
	return nil
}

func (d *Document) reindex() {
	index := make(map[int64]int, len(d.rows))
	for i, r := range d.rows {
		index[r.VNUM()] = i
	}
	d.index = index
}

func withVNUM(err error, vnum int64) error {
	if verr, ok := err.(*model.ValidationError); ok {
		c := *verr
		c.VNUM = vnum
		return &c
	}
	return err
}
