// Package model provides the core data types for the mob table:
// typed values, columns, the fixed schema, records and error types.
package model

import (
	"errors"
	"fmt"
	"strings"
)

// Error types for table operations
var (
	ErrRecordNotFound  = errors.New("record not found")
	ErrColumnNotFound  = errors.New("column not found")
	ErrDuplicateVNUM   = errors.New("duplicate VNUM")
	ErrEmptySelection  = errors.New("empty selection")
	ErrNoOpAvailable   = errors.New("nothing to do")
	ErrNothingToUndo   = fmt.Errorf("%w: nothing to undo", ErrNoOpAvailable)
	ErrNothingToRedo   = fmt.Errorf("%w: nothing to redo", ErrNoOpAvailable)
	ErrInvalidOperator = errors.New("invalid operator")
)

// ValidationError reports a cell value or bulk operation that was rejected.
// The document is unchanged when one is returned.
type ValidationError struct {
	VNUM   int64 // 0 when not tied to a row
	Column string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	b.WriteString("invalid value")
	if e.Column != "" {
		fmt.Fprintf(&b, " for %s", e.Column)
	}
	if e.VNUM != 0 {
		fmt.Fprintf(&b, " (VNUM %d)", e.VNUM)
	}
	if e.Value != "" {
		fmt.Fprintf(&b, " %q", e.Value)
	}
	if e.Reason != "" {
		b.WriteString(": ")
		b.WriteString(e.Reason)
	}
	return b.String()
}

// Issue is a single problem found while reading an input file.
type Issue struct {
	Line   int    // 1-based line number; 0 for notes about the whole file
	Column string // empty for whole-line problems
	Msg    string
}

func (i Issue) String() string {
	if i.Line == 0 {
		return i.Msg
	}
	if i.Column != "" {
		return fmt.Sprintf("line %d, column %s: %s", i.Line, i.Column, i.Msg)
	}
	return fmt.Sprintf("line %d: %s", i.Line, i.Msg)
}

// FormatError reports every malformed line of an input file at once.
type FormatError struct {
	Source string
	Issues []Issue
}

func (e *FormatError) Error() string {
	var b strings.Builder
	src := e.Source
	if src == "" {
		src = "input"
	}
	fmt.Fprintf(&b, "%s: %d problem(s)", src, len(e.Issues))
	for _, is := range e.Issues {
		b.WriteString("\n  ")
		b.WriteString(is.String())
	}
	return b.String()
}

// Lines returns the distinct line numbers that have issues, in order.
func (e *FormatError) Lines() []int {
	var out []int
	seen := make(map[int]bool)
	for _, is := range e.Issues {
		if is.Line > 0 && !seen[is.Line] {
			seen[is.Line] = true
			out = append(out, is.Line)
		}
	}
	return out
}

// IOError wraps a file system failure with the operation and path.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}
