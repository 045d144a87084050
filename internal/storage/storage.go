// Package storage reads and writes mob tables: the tab-separated
// mob_proto.txt format, CSV interchange, backups, the undo journal and
// the SQLite query cache.
package storage

import (
	"fmt"

	"github.com/user/mobproto/internal/model"
)

// maxIssues bounds how many problems a single load reports.
const maxIssues = 200

// rowParser validates rows the same way for every input format and
// collects problems instead of stopping at the first one.
type rowParser struct {
	schema *model.Schema
	source string
	issues []model.Issue
	seen   map[int64]int // VNUM -> line of first occurrence
	more   int           // issues dropped past maxIssues
}

func newRowParser(s *model.Schema, source string) *rowParser {
	return &rowParser{schema: s, source: source, seen: make(map[int64]int)}
}

func (p *rowParser) addIssue(line int, column, format string, args ...any) {
	if len(p.issues) >= maxIssues {
		p.more++
		return
	}
	p.issues = append(p.issues, model.Issue{Line: line, Column: column, Msg: fmt.Sprintf(format, args...)})
}

// parse validates fields, which must already be in schema order.
// It returns nil when the row has problems.
func (p *rowParser) parse(line int, fields []string) *model.Record {
	if len(fields) != p.schema.Len() {
		p.addIssue(line, "", "expected %d columns, got %d", p.schema.Len(), len(fields))
		return nil
	}
	ok := true
	for i, f := range fields {
		col := p.schema.Columns[i]
		if _, err := model.ParseValue(col.Kind, f); err != nil {
			p.addIssue(line, col.Name, "%v", err)
			ok = false
		}
	}
	if !ok {
		return nil
	}
	r, err := model.ParseRecord(p.schema, fields)
	if err != nil {
		p.addIssue(line, p.schema.Key, "%v", err)
		return nil
	}
	if first, dup := p.seen[r.VNUM()]; dup {
		p.addIssue(line, p.schema.Key, "duplicate VNUM %d (first on line %d)", r.VNUM(), first)
		return nil
	}
	p.seen[r.VNUM()] = line
	return r
}

// err returns the collected problems, or nil.
func (p *rowParser) err() error {
	if len(p.issues) == 0 {
		return nil
	}
	issues := p.issues
	if p.more > 0 {
		issues = append(issues, model.Issue{Msg: fmt.Sprintf("... and %d more", p.more)})
	}
	return &model.FormatError{Source: p.source, Issues: issues}
}
