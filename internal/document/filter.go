package document

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/user/mobproto/internal/model"
)

// Predicate selects records.
type Predicate func(*model.Record) bool

// And matches records accepted by every non-nil predicate.
func And(preds ...Predicate) Predicate {
	return func(r *model.Record) bool {
		for _, p := range preds {
			if p != nil && !p(r) {
				return false
			}
		}
		return true
	}
}

// ByVNUM matches the given VNUMs.
func ByVNUM(vnums ...int64) Predicate {
	set := make(map[int64]bool, len(vnums))
	for _, v := range vnums {
		set[v] = true
	}
	return func(r *model.Record) bool { return set[r.VNUM()] }
}

// Search matches records whose VNUM or NAME contains term,
// ignoring case. An empty term matches everything.
func Search(term string) Predicate {
	return SearchColumns(term, model.KeyColumn, "NAME")
}

// SearchColumns is Search over an explicit column list.
func SearchColumns(term string, columns ...string) Predicate {
	needle := strings.ToLower(strings.TrimSpace(term))
	return func(r *model.Record) bool {
		if needle == "" {
			return true
		}
		for _, c := range columns {
			if strings.Contains(strings.ToLower(r.Text(c)), needle) {
				return true
			}
		}
		return false
	}
}

// Condition is a single column comparison.
type Condition struct {
	Field    string // column name
	Operator string // =, !=, <>, <, >, <=, >=, LIKE, IS EMPTY, IS NOT EMPTY
	Value    string
}

var (
	likeRe  = regexp.MustCompile(`(?i)^(\S+)\s+LIKE\s+(.+)$`)
	emptyRe = regexp.MustCompile(`(?i)^(\S+)\s+IS\s+(NOT\s+)?EMPTY$`)
)

// ParseWhere parses clauses such as "LEVEL>=10", "NAME LIKE %dog%"
// or "FOLDER IS EMPTY".
func ParseWhere(clause string) (Condition, error) {
	clause = strings.TrimSpace(clause)

	if m := emptyRe.FindStringSubmatch(clause); m != nil {
		op := "IS EMPTY"
		if m[2] != "" {
			op = "IS NOT EMPTY"
		}
		return Condition{Field: m[1], Operator: op}, nil
	}
	if m := likeRe.FindStringSubmatch(clause); m != nil {
		return Condition{Field: m[1], Operator: "LIKE", Value: stripQuotes(m[2])}, nil
	}

	// order matters: two-character operators first
	for _, op := range []string{"!=", ">=", "<=", "<>", ">", "<", "="} {
		if idx := strings.Index(clause, op); idx > 0 {
			return Condition{
				Field:    strings.TrimSpace(clause[:idx]),
				Operator: op,
				Value:    stripQuotes(clause[idx+len(op):]),
			}, nil
		}
	}
	return Condition{}, fmt.Errorf("%w: %q (expected field=value, field>value, field LIKE pattern or field IS EMPTY)",
		model.ErrInvalidOperator, clause)
}

func stripQuotes(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

// Compile resolves the condition against schema. Numeric columns compare
// numerically when the operand is a number; everything else compares
// text without regard to case.
func (c Condition) Compile(schema *model.Schema) (Predicate, error) {
	col, err := schema.Column(c.Field)
	if err != nil {
		return nil, err
	}
	i := col.Ordinal

	switch c.Operator {
	case "IS EMPTY":
		return func(r *model.Record) bool { return r.Value(i).String() == "" }, nil
	case "IS NOT EMPTY":
		return func(r *model.Record) bool { return r.Value(i).String() != "" }, nil
	case "LIKE":
		re, err := likePattern(c.Value)
		if err != nil {
			return nil, err
		}
		return func(r *model.Record) bool { return re.MatchString(r.Value(i).String()) }, nil
	}

	cmp, ok := comparators[c.Operator]
	if !ok {
		return nil, fmt.Errorf("%w: %q", model.ErrInvalidOperator, c.Operator)
	}
	if col.Kind != model.KindText {
		if want, err := strconv.ParseFloat(strings.TrimSpace(c.Value), 64); err == nil {
			return func(r *model.Record) bool {
				got := model.Number(r.Value(i))
				switch {
				case got < want:
					return cmp(-1)
				case got > want:
					return cmp(1)
				}
				return cmp(0)
			}, nil
		}
	}
	want := strings.ToLower(c.Value)
	return func(r *model.Record) bool {
		return cmp(strings.Compare(strings.ToLower(r.Value(i).String()), want))
	}, nil
}

var comparators = map[string]func(int) bool{
	"=":  func(c int) bool { return c == 0 },
	"!=": func(c int) bool { return c != 0 },
	"<>": func(c int) bool { return c != 0 },
	"<":  func(c int) bool { return c < 0 },
	">":  func(c int) bool { return c > 0 },
	"<=": func(c int) bool { return c <= 0 },
	">=": func(c int) bool { return c >= 0 },
}

func likePattern(p string) (*regexp.Regexp, error) {
	var b strings.Builder
	b.WriteString("(?is)^")
	for _, r := range p {
		switch r {
		case '%':
			b.WriteString(".*")
		case '_':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	return regexp.Compile(b.String())
}

// Where parses and compiles every clause, combining them with And.
func Where(schema *model.Schema, clauses ...string) (Predicate, error) {
	preds := make([]Predicate, 0, len(clauses))
	for _, cl := range clauses {
		c, err := ParseWhere(cl)
		if err != nil {
			return nil, err
		}
		p, err := c.Compile(schema)
		if err != nil {
			return nil, err
		}
		preds = append(preds, p)
	}
	return And(preds...), nil
}
