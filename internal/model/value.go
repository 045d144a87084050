package model

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind is the value type of a column.
type Kind int

const (
	KindInt Kind = iota
	KindReal
	KindText
)

// String returns the lowercase kind name used in messages and the SQL cache.
func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindReal:
		return "real"
	case KindText:
		return "text"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Value is a single typed cell. The set of implementations is closed:
// IntValue, RealValue and TextValue.
//
// Every value keeps the exact text it was parsed from in Raw, so an
// untouched cell is written back byte for byte.
type Value interface {
	Kind() Kind
	String() string
	// Blank reports whether the cell is empty in the file.
	Blank() bool
	isValue()
}

// IntValue is an integer cell.
type IntValue struct {
	N   int64
	Raw string
}

// RealValue is a floating point cell.
type RealValue struct {
	F   float64
	Raw string
}

// TextValue is a free text cell.
type TextValue struct {
	S string
}

func (IntValue) Kind() Kind  { return KindInt }
func (RealValue) Kind() Kind { return KindReal }
func (TextValue) Kind() Kind { return KindText }

func (v IntValue) String() string  { return v.Raw }
func (v RealValue) String() string { return v.Raw }
func (v TextValue) String() string { return v.S }

func (v IntValue) Blank() bool  { return v.Raw == "" }
func (v RealValue) Blank() bool { return v.Raw == "" }
func (v TextValue) Blank() bool { return v.S == "" }

func (IntValue) isValue()  {}
func (RealValue) isValue() {}
func (TextValue) isValue() {}

// Int returns a canonical integer value.
func Int(n int64) IntValue {
	return IntValue{N: n, Raw: strconv.FormatInt(n, 10)}
}

// Real returns a canonical real value using the shortest representation.
func Real(f float64) RealValue {
	return RealValue{F: f, Raw: strconv.FormatFloat(f, 'f', -1, 64)}
}

// Text returns a text value.
func Text(s string) TextValue {
	return TextValue{S: s}
}

// Number returns the numeric payload of v. Blank cells and text are 0.
func Number(v Value) float64 {
	switch x := v.(type) {
	case IntValue:
		return float64(x.N)
	case RealValue:
		return x.F
	default:
		return 0
	}
}

// ParseValue parses s as a value of kind k, keeping s verbatim.
// Empty strings produce a blank value of the requested kind.
func ParseValue(k Kind, s string) (Value, error) {
	switch k {
	case KindInt:
		if s == "" {
			return IntValue{}, nil
		}
		n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not an integer", s)
		}
		return IntValue{N: n, Raw: s}, nil
	case KindReal:
		if s == "" {
			return RealValue{}, nil
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("%q is not a number", s)
		}
		return RealValue{F: f, Raw: s}, nil
	case KindText:
		if strings.ContainsAny(s, "\t\r\n") {
			return nil, fmt.Errorf("text may not contain tabs or line breaks")
		}
		return TextValue{S: s}, nil
	default:
		return nil, fmt.Errorf("unknown column kind %d", int(k))
	}
}

// FromNumber converts a computed number into a value of kind k.
// Integer results are truncated toward zero.
func FromNumber(k Kind, f float64) (Value, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("result is not a finite number")
	}
	switch k {
	case KindInt:
		t := math.Trunc(f)
		if t >= math.MaxInt64 || t < math.MinInt64 {
			return nil, fmt.Errorf("result %g overflows an integer", f)
		}
		return Int(int64(t)), nil
	case KindReal:
		return Real(f), nil
	default:
		return nil, fmt.Errorf("text columns do not hold numbers")
	}
}
