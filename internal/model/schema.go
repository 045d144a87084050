package model

import (
	"fmt"
	"math"
	"strings"
)

// KeyColumn is the primary key column of the mob table.
const KeyColumn = "VNUM"

// Schema is a fixed, ordered set of columns with one integer key column.
type Schema struct {
	Columns ColumnList
	Key     string
	keyIdx  int
}

// NewSchema builds a schema from cols, assigning ordinals in order.
// The key column must exist and hold integers, and names must be unique
// (case-insensitive).
func NewSchema(key string, cols ...Column) (*Schema, error) {
	if len(cols) == 0 {
		return nil, fmt.Errorf("schema needs at least one column")
	}
	seen := make(map[string]bool, len(cols))
	list := make(ColumnList, len(cols))
	for i, c := range cols {
		lower := strings.ToLower(c.Name)
		if c.Name == "" || strings.ContainsAny(c.Name, "\t,\r\n\"") {
			return nil, fmt.Errorf("invalid column name %q", c.Name)
		}
		if seen[lower] {
			return nil, fmt.Errorf("duplicate column %q", c.Name)
		}
		seen[lower] = true
		c.Ordinal = i
		if c.Default == nil {
			c.Default = zeroValue(c.Kind)
		}
		list[i] = c
	}
	s := &Schema{Columns: list, Key: key, keyIdx: list.Index(key)}
	if s.keyIdx < 0 {
		return nil, fmt.Errorf("%w: key column %q", ErrColumnNotFound, key)
	}
	if list[s.keyIdx].Kind != KindInt {
		return nil, fmt.Errorf("key column %q must be an integer column", key)
	}
	return s, nil
}

// MustSchema is like NewSchema but panics on error. For static schemas.
func MustSchema(key string, cols ...Column) *Schema {
	s, err := NewSchema(key, cols...)
	if err != nil {
		panic(err)
	}
	return s
}

// Len returns the number of columns.
func (s *Schema) Len() int {
	return len(s.Columns)
}

// KeyIndex returns the ordinal of the key column.
func (s *Schema) KeyIndex() int {
	return s.keyIdx
}

// Column returns the column with the given name (case-insensitive).
func (s *Schema) Column(name string) (*Column, error) {
	col := s.Columns.Find(name)
	if col == nil {
		return nil, fmt.Errorf("%w: %s", ErrColumnNotFound, name)
	}
	return col, nil
}

// NewRecord returns a record filled with column defaults.
func (s *Schema) NewRecord() *Record {
	vals := make([]Value, len(s.Columns))
	for i, c := range s.Columns {
		vals[i] = c.Default
	}
	return &Record{schema: s, values: vals}
}

func zeroValue(k Kind) Value {
	switch k {
	case KindInt:
		return Int(0)
	case KindReal:
		return Real(0)
	default:
		return Text("")
	}
}

// Integer widths used by the game server's mob table.
const (
	maxByte  = math.MaxUint8
	maxWord  = math.MaxUint16
	maxDword = math.MaxUint32
)

func textCol(name, def string) Column {
	return Column{Name: name, Kind: KindText, Default: Text(def)}
}

func intCol(name string, lo, hi float64) Column {
	return Column{Name: name, Kind: KindInt, Default: Int(0), Min: lo, Max: hi, HasRange: true}
}

func byteCol(name string) Column  { return intCol(name, 0, maxByte) }
func wordCol(name string) Column  { return intCol(name, 0, maxWord) }
func dwordCol(name string) Column { return intCol(name, 0, maxDword) }
func charCol(name string) Column  { return intCol(name, math.MinInt8, math.MaxInt8) }

var mobProto = MustSchema(KeyColumn,
	intCol(KeyColumn, 1, maxDword),
	textCol("NAME", ""),
	textCol("RANK", "PAWN"),
	textCol("TYPE", "MONSTER"),
	textCol("BATTLE_TYPE", "MELEE"),
	byteCol("LEVEL"),
	textCol("SIZE", "SMALL"),
	textCol("AI_FLAG", ""),
	textCol("RACE_FLAG", ""),
	textCol("IMMUNE_FLAG", ""),
	byteCol("EMPIRE"),
	textCol("FOLDER", ""),
	byteCol("ON_CLICK"),
	byteCol("ST"),
	byteCol("DX"),
	byteCol("HT"),
	byteCol("IQ"),
	dwordCol("DAMAGE_MIN"),
	dwordCol("DAMAGE_MAX"),
	dwordCol("MAX_HP"),
	byteCol("REGEN_CYCLE"),
	byteCol("REGEN_PERCENT"),
	dwordCol("GOLD_MIN"),
	dwordCol("GOLD_MAX"),
	dwordCol("EXP"),
	wordCol("DEF"),
	wordCol("ATTACK_SPEED"),
	wordCol("MOVE_SPEED"),
	byteCol("AGGRESSIVE_HP_PCT"),
	wordCol("AGGRESSIVE_SIGHT"),
	wordCol("ATTACK_RANGE"),
	dwordCol("DROP_ITEM"),
	dwordCol("RESURRECTION_VNUM"),
	charCol("ENCHANT_CURSE"),
	charCol("ENCHANT_SLOW"),
	charCol("ENCHANT_POISON"),
	charCol("ENCHANT_STUN"),
	charCol("ENCHANT_CRITICAL"),
	charCol("ENCHANT_PENETRATE"),
	charCol("RESIST_SWORD"),
	charCol("RESIST_TWOHAND"),
	charCol("RESIST_DAGGER"),
	charCol("RESIST_BELL"),
	charCol("RESIST_FAN"),
	charCol("RESIST_BOW"),
	charCol("RESIST_FIRE"),
	charCol("RESIST_ELECT"),
	charCol("RESIST_MAGIC"),
	charCol("RESIST_WIND"),
	charCol("RESIST_POISON"),
	Column{Name: "DAM_MULTIPLY", Kind: KindReal, Default: Real(1), Min: 0, Max: 1000, HasRange: true},
	dwordCol("SUMMON"),
	dwordCol("DRAIN_SP"),
	dwordCol("POLYMORPH_ITEM"),
	byteCol("SKILL_LEVEL0"),
	dwordCol("SKILL_VNUM0"),
	byteCol("SKILL_LEVEL1"),
	dwordCol("SKILL_VNUM1"),
	byteCol("SKILL_LEVEL2"),
	dwordCol("SKILL_VNUM2"),
	byteCol("SKILL_LEVEL3"),
	dwordCol("SKILL_VNUM3"),
	byteCol("SKILL_LEVEL4"),
	dwordCol("SKILL_VNUM4"),
	byteCol("SP_BERSERK"),
	byteCol("SP_STONESKIN"),
	byteCol("SP_GODSPEED"),
)

// MobProto returns the 67-column mob_proto.txt schema shared with the game server.
// Columns must never be reordered or retyped.
func MobProto() *Schema {
	return mobProto
}
