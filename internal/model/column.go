package model

import (
	"fmt"
	"strings"
)

// Column describes one column of the table: its position, value kind,
// default and optional numeric range.
type Column struct {
	Name    string
	Ordinal int
	Kind    Kind
	Default Value
	// Min and Max bound numeric values when HasRange is set.
	Min      float64
	Max      float64
	HasRange bool
}

// Check validates v against the column's kind and range.
// Blank numeric cells are always accepted.
func (c *Column) Check(v Value) error {
	if v.Kind() != c.Kind {
		return &ValidationError{Column: c.Name, Value: v.String(),
			Reason: fmt.Sprintf("expected %s, got %s", c.Kind, v.Kind())}
	}
	if !c.HasRange || c.Kind == KindText || v.Blank() {
		return nil
	}
	n := Number(v)
	if n < c.Min || n > c.Max {
		return &ValidationError{Column: c.Name, Value: v.String(),
			Reason: fmt.Sprintf("out of range [%g, %g]", c.Min, c.Max)}
	}
	return nil
}

// Parse converts text into a validated value for this column.
func (c *Column) Parse(s string) (Value, error) {
	v, err := ParseValue(c.Kind, s)
	if err != nil {
		return nil, &ValidationError{Column: c.Name, Value: s, Reason: err.Error()}
	}
	if err := c.Check(v); err != nil {
		return nil, err
	}
	return v, nil
}

// ColumnList provides case-insensitive column operations.
type ColumnList []Column

// Find returns the column with the given name (case-insensitive).
// Returns nil if not found.
func (cl ColumnList) Find(name string) *Column {
	i := cl.Index(name)
	if i < 0 {
		return nil
	}
	return &cl[i]
}

// Exists returns true if a column with the given name exists (case-insensitive).
func (cl ColumnList) Exists(name string) bool {
	return cl.Find(name) != nil
}

// Index returns the index of the column with the given name (case-insensitive).
// Returns -1 if not found.
func (cl ColumnList) Index(name string) int {
	for i := range cl {
		if strings.EqualFold(cl[i].Name, name) {
			return i
		}
	}
	return -1
}

// Names returns all column names.
func (cl ColumnList) Names() []string {
	names := make([]string, len(cl))
	for i, c := range cl {
		names[i] = c.Name
	}
	return names
}
