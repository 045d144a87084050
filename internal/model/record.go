package model

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Record represents a single row of the mob table: one value per schema column.
type Record struct {
	schema *Schema
	values []Value
}

// ParseRecord parses one row of text fields in schema order.
// Fields are checked for kind only; ranges apply to edits, not to loaded data.
func ParseRecord(s *Schema, fields []string) (*Record, error) {
	if len(fields) != s.Len() {
		return nil, fmt.Errorf("expected %d columns, got %d", s.Len(), len(fields))
	}
	vals := make([]Value, len(fields))
	for i, f := range fields {
		v, err := ParseValue(s.Columns[i].Kind, f)
		if err != nil {
			return nil, &ValidationError{Column: s.Columns[i].Name, Value: f, Reason: err.Error()}
		}
		vals[i] = v
	}
	if vals[s.keyIdx].Blank() {
		return nil, &ValidationError{Column: s.Key, Reason: "key may not be blank"}
	}
	return &Record{schema: s, values: vals}, nil
}

// Schema returns the record's schema.
func (r *Record) Schema() *Schema {
	return r.schema
}

// VNUM returns the record's key.
func (r *Record) VNUM() int64 {
	return r.values[r.schema.keyIdx].(IntValue).N
}

// Value returns the value at column ordinal i.
func (r *Record) Value(i int) Value {
	return r.values[i]
}

// GetField returns the value of a column, using case-insensitive matching.
func (r *Record) GetField(name string) (Value, bool) {
	i := r.schema.Columns.Index(name)
	if i < 0 {
		return nil, false
	}
	return r.values[i], true
}

// Text returns the textual form of a column, or "" if the column is unknown.
func (r *Record) Text(name string) string {
	v, ok := r.GetField(name)
	if !ok {
		return ""
	}
	return v.String()
}

// Fields returns the textual form of every column in schema order.
func (r *Record) Fields() []string {
	out := make([]string, len(r.values))
	for i, v := range r.values {
		out[i] = v.String()
	}
	return out
}

// Values returns a copy of the record's values in schema order.
func (r *Record) Values() []Value {
	out := make([]Value, len(r.values))
	copy(out, r.values)
	return out
}

// Clone returns an independent copy.
func (r *Record) Clone() *Record {
	return &Record{schema: r.schema, values: r.Values()}
}

// Equal reports whether both records hold the same values.
func (r *Record) Equal(o *Record) bool {
	if len(r.values) != len(o.values) {
		return false
	}
	for i := range r.values {
		if r.values[i] != o.values[i] {
			return false
		}
	}
	return true
}

// WithValue returns a copy of r with column i replaced by v.
// The value must match the column kind; range checks are the caller's job.
func (r *Record) WithValue(i int, v Value) (*Record, error) {
	col := &r.schema.Columns[i]
	if v.Kind() != col.Kind {
		return nil, &ValidationError{Column: col.Name, Value: v.String(),
			Reason: fmt.Sprintf("expected %s, got %s", col.Kind, v.Kind())}
	}
	if i == r.schema.keyIdx && v.Blank() {
		return nil, &ValidationError{Column: r.schema.Key, Reason: "key may not be blank"}
	}
	c := r.Clone()
	c.values[i] = v
	return c, nil
}

// CalculateHash computes a deterministic hash of the record's fields.
// Returns the first 12 characters of the hex-encoded SHA-256 hash.
func (r *Record) CalculateHash() string {
	return CalculateHash([]byte(strings.Join(r.Fields(), "\t")))
}

// CalculateHash returns the first 12 hex characters of the SHA-256 of data.
func CalculateHash(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])[:12]
}
