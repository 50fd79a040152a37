package schema

import (
	"strconv"

	"dataingest/pkg/records"
)

// Normalize converts one raw field string into a typed scalar.
//
// Rules, in order:
//   - "", "null", "NULL" → null
//   - "true", "TRUE", "false", "FALSE" → bool
//   - a signed base-10 literal → int when it round-trips through int64
//     parsing, otherwise float
//   - anything else → string
//
// Matching is case-sensitive and performs no trimming. Normalize is total: it
// never fails, the worst case is a string scalar.
func Normalize(raw string) Scalar {
	switch raw {
	case "", "null", "NULL":
		return NullScalar()
	case "true", "TRUE":
		return BoolScalar(true)
	case "false", "FALSE":
		return BoolScalar(false)
	}

	if !isDecimalLiteral(raw) {
		return StringScalar(raw)
	}
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return IntScalar(i)
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		// Out of float64 range.
		return StringScalar(raw)
	}
	return FloatScalar(f)
}

// NormalizeRaw normalizes a parser field; a null field stays null.
func NormalizeRaw(r records.Raw) Scalar {
	if !r.Valid {
		return NullScalar()
	}
	return Normalize(r.S)
}

// NormalizeRow normalizes every field of row in column order.
func NormalizeRow(row records.RawRow) []Scalar {
	out := make([]Scalar, row.Len())
	for i := range out {
		out[i] = NormalizeRaw(row.At(i))
	}
	return out
}

// isDecimalLiteral accepts [+-]? digits [. digits] [(e|E) [+-]? digits] with
// at least one mantissa digit. strconv alone is too lenient here: it takes
// "Inf", "NaN", hex floats and underscores.
func isDecimalLiteral(s string) bool {
	i, n := 0, len(s)
	if i < n && (s[i] == '+' || s[i] == '-') {
		i++
	}
	digits := 0
	for i < n && isDigit(s[i]) {
		i++
		digits++
	}
	if i < n && s[i] == '.' {
		i++
		for i < n && isDigit(s[i]) {
			i++
			digits++
		}
	}
	if digits == 0 {
		return false
	}
	if i < n && (s[i] == 'e' || s[i] == 'E') {
		i++
		if i < n && (s[i] == '+' || s[i] == '-') {
			i++
		}
		exp := 0
		for i < n && isDigit(s[i]) {
			i++
			exp++
		}
		if exp == 0 {
			return false
		}
	}
	return i == n
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
