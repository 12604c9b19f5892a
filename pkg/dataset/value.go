package dataset

import (
	"math"
	"strconv"
	"strings"
)

type Kind uint8

const (
	KindEmpty Kind = iota
	KindString
	KindInt
	KindFloat
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	default:
		return "empty"
	}
}

// Value is a single cell. Only the field matching Kind is meaningful.
type Value struct {
	Kind  Kind
	Str   string
	Int   int64
	Float float64
}

func Empty() Value { return Value{} }

func String(s string) Value { return Value{Kind: KindString, Str: s} }

func Int(i int64) Value { return Value{Kind: KindInt, Int: i} }

func Float(f float64) Value { return Value{Kind: KindFloat, Float: f} }

// Parse coerces raw cell text: "" is empty, integer text is Int, other finite
// numeric text is Float, anything else is kept verbatim as String.
func Parse(text string) Value {
	if text == "" {
		return Empty()
	}
	s := strings.TrimSpace(text)
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return Int(i)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return Float(f)
	}
	return String(text)
}

func (v Value) IsEmpty() bool { return v.Kind == KindEmpty }

func (v Value) IsNumeric() bool { return v.Kind == KindInt || v.Kind == KindFloat }

// Key is the canonical form used for dictionary lookups. Integral floats share
// the key of the equal integer, so 3.0 and 3 both match "3".
func (v Value) Key() string {
	if v.Kind == KindFloat && v.Float == math.Trunc(v.Float) && math.Abs(v.Float) < 1<<53 {
		return strconv.FormatInt(int64(v.Float), 10)
	}
	return v.String()
}

// String renders the value the way it is written to CSV.
func (v Value) String() string {
	switch v.Kind {
	case KindString:
		return v.Str
	case KindInt:
		return strconv.FormatInt(v.Int, 10)
	case KindFloat:
		return strconv.FormatFloat(v.Float, 'f', -1, 64)
	default:
		return ""
	}
}

// Interface returns the typed Go value for spreadsheet writers.
func (v Value) Interface() any {
	switch v.Kind {
	case KindString:
		return v.Str
	case KindInt:
		return v.Int
	case KindFloat:
		return v.Float
	default:
		return nil
	}
}

// AsFloat reports the numeric value of v, if any.
func (v Value) AsFloat() (float64, bool) {
	switch v.Kind {
	case KindInt:
		return float64(v.Int), true
	case KindFloat:
		return v.Float, true
	default:
		return 0, false
	}
}
