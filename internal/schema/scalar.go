package schema

import (
	"math"
	"strconv"
)

// ScalarKind tags the variant held by a Scalar.
type ScalarKind uint8

const (
	KindNull ScalarKind = iota
	KindBool
	KindInt
	KindFloat
	KindString
)

func (k ScalarKind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	default:
		return "unknown"
	}
}

// Scalar is a typed cell value. Only the field matching Kind is meaningful.
type Scalar struct {
	Kind ScalarKind
	B    bool
	I    int64
	F    float64
	S    string
}

// Constructors.
func NullScalar() Scalar           { return Scalar{} }
func BoolScalar(b bool) Scalar     { return Scalar{Kind: KindBool, B: b} }
func IntScalar(i int64) Scalar     { return Scalar{Kind: KindInt, I: i} }
func FloatScalar(f float64) Scalar { return Scalar{Kind: KindFloat, F: f} }
func StringScalar(s string) Scalar { return Scalar{Kind: KindString, S: s} }

func (s Scalar) IsNull() bool    { return s.Kind == KindNull }
func (s Scalar) IsNumeric() bool { return s.Kind == KindInt || s.Kind == KindFloat }

// Equal is structural equality. Floats compare bit-for-bit, so NaN equals an
// identical NaN and 0.0 differs from -0.0.
func (s Scalar) Equal(o Scalar) bool {
	if s.Kind != o.Kind {
		return false
	}
	switch s.Kind {
	case KindNull:
		return true
	case KindBool:
		return s.B == o.B
	case KindInt:
		return s.I == o.I
	case KindFloat:
		return math.Float64bits(s.F) == math.Float64bits(o.F)
	default:
		return s.S == o.S
	}
}

// Any returns the Go value for the scalar: nil, bool, int64, float64 or string.
func (s Scalar) Any() any {
	switch s.Kind {
	case KindBool:
		return s.B
	case KindInt:
		return s.I
	case KindFloat:
		return s.F
	case KindString:
		return s.S
	default:
		return nil
	}
}

func (s Scalar) String() string {
	switch s.Kind {
	case KindNull:
		return "null"
	case KindBool:
		return strconv.FormatBool(s.B)
	case KindInt:
		return strconv.FormatInt(s.I, 10)
	case KindFloat:
		return strconv.FormatFloat(s.F, 'g', -1, 64)
	default:
		return s.S
	}
}
