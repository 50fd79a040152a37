// Package schema normalizes raw fields into typed scalars and infers one
// column type per column from the observed values.
package schema

import (
	"strconv"

	"dataingest/pkg/records"

	"github.com/cockroachdb/errors"
)

// ColumnType is the inferred semantic type of a column.
type ColumnType int

const (
	// String is the zero value: an unknown or empty column is a string column.
	String ColumnType = iota
	Integer
	Float
	Boolean
)

func (t ColumnType) String() string {
	switch t {
	case Integer:
		return "integer"
	case Float:
		return "float"
	case Boolean:
		return "boolean"
	default:
		return "string"
	}
}

// ParseColumnType is the inverse of ColumnType.String.
func ParseColumnType(s string) (ColumnType, error) {
	switch s {
	case "integer":
		return Integer, nil
	case "float":
		return Float, nil
	case "boolean":
		return Boolean, nil
	case "string":
		return String, nil
	default:
		return String, errors.Newf("unknown column type %q", s)
	}
}

func (t ColumnType) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *ColumnType) UnmarshalText(b []byte) error {
	v, err := ParseColumnType(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// columnVote accumulates the unanimity flags for one column.
type columnVote struct {
	seen    bool
	allBool bool
	allInt  bool
	allNum  bool
}

func newColumnVote() columnVote {
	return columnVote{allBool: true, allInt: true, allNum: true}
}

func (v *columnVote) add(s Scalar) {
	if s.IsNull() {
		return
	}
	v.seen = true
	if s.Kind != KindBool {
		v.allBool = false
	}
	if s.Kind != KindInt {
		v.allInt = false
	}
	if !s.IsNumeric() {
		v.allNum = false
	}
}

func (v columnVote) decide() ColumnType {
	switch {
	case !v.seen:
		return String
	case v.allBool:
		return Boolean
	case v.allInt:
		return Integer
	case v.allNum:
		return Float
	default:
		return String
	}
}

// InferColumn applies the unanimity rule to one column's normalized values.
//
// Precedence: no non-null values → String; all bool → Boolean; all int →
// Integer; all numeric (int and float mixed) → Float; otherwise String. A
// single non-conforming value anywhere forces String.
func InferColumn(vals []Scalar) ColumnType {
	v := newColumnVote()
	for _, s := range vals {
		v.add(s)
	}
	return v.decide()
}

// InferRaw is InferColumn over raw strings.
func InferRaw(vals []string) ColumnType {
	v := newColumnVote()
	for _, s := range vals {
		v.add(Normalize(s))
	}
	return v.decide()
}

// Infer assigns one ColumnType per header column in a single pass over rows.
func Infer(h records.Header, rows []records.RawRow) []ColumnType {
	votes := make([]columnVote, len(h))
	for i := range votes {
		votes[i] = newColumnVote()
	}
	for _, r := range rows {
		for i := 0; i < r.Len() && i < len(votes); i++ {
			votes[i].add(NormalizeRaw(r.At(i)))
		}
	}
	out := make([]ColumnType, len(h))
	for i := range votes {
		out[i] = votes[i].decide()
	}
	return out
}

// Cast coerces a normalized scalar to the column type it belongs to. Integers
// widen to floats in Float columns; every non-null value in a String column
// becomes its textual form. Null stays null.
func Cast(s Scalar, t ColumnType) Scalar {
	if s.IsNull() {
		return s
	}
	switch t {
	case Float:
		if s.Kind == KindInt {
			return FloatScalar(float64(s.I))
		}
	case String:
		if s.Kind != KindString {
			return StringScalar(s.String())
		}
	}
	return s
}

// CastRaw normalizes a raw field and coerces it to t. For String columns the
// original text is kept verbatim ("1.50" stays "1.50", not "1.5").
func CastRaw(r records.Raw, t ColumnType) Scalar {
	s := NormalizeRaw(r)
	if t == String && !s.IsNull() {
		return StringScalar(r.S)
	}
	return Cast(s, t)
}

// FormatScalar renders a scalar as plain text; null is empty.
func FormatScalar(s Scalar) string {
	if s.Kind == KindFloat {
		return strconv.FormatFloat(s.F, 'f', -1, 64)
	}
	if s.IsNull() {
		return ""
	}
	return s.String()
}
