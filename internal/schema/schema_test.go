package schema

import (
	"math"
	"testing"

	"dataingest/pkg/records"
)

//
// Normalize
//

// TestNormalize verifies raw string → scalar conversion.
//
// Edge cases validated:
//   - null/bool tokens are case-sensitive (only lower and upper forms)
//   - integers must round-trip through int64; overflow degrades to float
//   - Inf/NaN/hex/underscored literals stay strings
//   - whitespace is not trimmed
func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want Scalar
	}{
		{"empty", "", NullScalar()},
		{"null lower", "null", NullScalar()},
		{"null upper", "NULL", NullScalar()},
		{"null mixed stays string", "Null", StringScalar("Null")},
		{"true", "true", BoolScalar(true)},
		{"TRUE", "TRUE", BoolScalar(true)},
		{"false", "false", BoolScalar(false)},
		{"FALSE", "FALSE", BoolScalar(false)},
		{"True stays string", "True", StringScalar("True")},
		{"int", "42", IntScalar(42)},
		{"signed int", "-7", IntScalar(-7)},
		{"plus int", "+7", IntScalar(7)},
		{"float", "2.5", FloatScalar(2.5)},
		{"float trailing zero", "2.0", FloatScalar(2)},
		{"leading dot", ".5", FloatScalar(0.5)},
		{"exponent", "1e3", FloatScalar(1000)},
		{"int overflow", "9223372036854775808", FloatScalar(9223372036854775808)},
		{"inf", "Inf", StringScalar("Inf")},
		{"nan", "NaN", StringScalar("NaN")},
		{"hex", "0x10", StringScalar("0x10")},
		{"underscore", "1_000", StringScalar("1_000")},
		{"bare sign", "-", StringScalar("-")},
		{"bare dot", ".", StringScalar(".")},
		{"dangling exponent", "1e", StringScalar("1e")},
		{"padded", " 5", StringScalar(" 5")},
		{"text", "hello", StringScalar("hello")},
		{"huge exponent", "1e400", StringScalar("1e400")},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Normalize(tt.in); !got.Equal(tt.want) {
				t.Fatalf("Normalize(%q) = %v (%v), want %v (%v)", tt.in, got, got.Kind, tt.want, tt.want.Kind)
			}
		})
	}
}

func TestScalarEqual_FloatBits(t *testing.T) {
	t.Parallel()

	nan := FloatScalar(math.NaN())
	if !nan.Equal(FloatScalar(math.NaN())) {
		t.Fatalf("NaN != NaN under bitwise equality")
	}
	if FloatScalar(0).Equal(FloatScalar(math.Copysign(0, -1))) {
		t.Fatalf("0.0 == -0.0 under bitwise equality")
	}
	if IntScalar(1).Equal(FloatScalar(1)) {
		t.Fatalf("int 1 equal to float 1")
	}
}

//
// InferRaw / Infer
//

// TestInferRaw verifies the whole-column unanimity rule.
func TestInferRaw(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   []string
		want ColumnType
	}{
		{"one string poisons numbers", []string{"1", "2", "x"}, String},
		{"all integers", []string{"1", "2", "3"}, Integer},
		{"mixed int float", []string{"1", "2.5", "3"}, Float},
		{"booleans", []string{"true", "false"}, Boolean},
		{"empty column", nil, String},
		{"all null", []string{"", "null", "NULL"}, String},
		{"nulls ignored", []string{"", "1", "null"}, Integer},
		{"bool and int", []string{"true", "1"}, String},
		{"zero one are integers", []string{"0", "1"}, Integer},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := InferRaw(tt.in); got != tt.want {
				t.Fatalf("InferRaw(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestInfer_PerColumn(t *testing.T) {
	t.Parallel()

	h := records.Header{"id", "price", "active", "name", "empty"}
	rows := []records.RawRow{
		records.FromStrings(h, []string{"1", "9.99", "true", "a", ""}),
		records.FromStrings(h, []string{"2", "10", "FALSE", "b"}),
		records.FromStrings(h, []string{"3", "", "", "7", "null"}),
	}

	got := Infer(h, rows)
	want := []ColumnType{Integer, Float, Boolean, String, String}
	if len(got) != len(want) {
		t.Fatalf("Infer len=%d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("column %q: got %v, want %v", h[i], got[i], want[i])
		}
	}
}

func TestCastRaw(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  records.Raw
		typ  ColumnType
		want Scalar
	}{
		{"int widens in float column", records.Str("3"), Float, FloatScalar(3)},
		{"string column keeps text", records.Str("1.50"), String, StringScalar("1.50")},
		{"null stays null", records.Null, Integer, NullScalar()},
		{"null token stays null in string column", records.Str("null"), String, NullScalar()},
		{"bool passthrough", records.Str("TRUE"), Boolean, BoolScalar(true)},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := CastRaw(tt.raw, tt.typ); !got.Equal(tt.want) {
				t.Fatalf("CastRaw(%v,%v) = %v, want %v", tt.raw, tt.typ, got, tt.want)
			}
		})
	}
}

func TestColumnTypeText(t *testing.T) {
	t.Parallel()

	for _, ct := range []ColumnType{String, Integer, Float, Boolean} {
		b, err := ct.MarshalText()
		if err != nil {
			t.Fatalf("MarshalText(%v) err=%v", ct, err)
		}
		var back ColumnType
		if err := back.UnmarshalText(b); err != nil || back != ct {
			t.Fatalf("UnmarshalText(%q) = (%v,%v), want %v", b, back, err, ct)
		}
	}
	if _, err := ParseColumnType("date"); err == nil {
		t.Fatalf("ParseColumnType(date) err=nil")
	}
}
