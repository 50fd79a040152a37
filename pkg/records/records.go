// Package records defines the positional row model shared by every parser.
//
// A RawRow is an ordered sequence of (column, raw string) pairs. All rows of
// one parsed file share the same Header, so the column set and order are
// identical across rows by construction.
package records

import (
	"fmt"
	"strconv"
	"strings"
)

// Header is the ordered list of column names for one parsed file.
type Header []string

// Index returns the position of name in h, or -1.
func (h Header) Index(name string) int {
	for i, c := range h {
		if c == name {
			return i
		}
	}
	return -1
}

// Equal reports whether h and o name the same columns in the same order.
func (h Header) Equal(o Header) bool {
	if len(h) != len(o) {
		return false
	}
	for i := range h {
		if h[i] != o[i] {
			return false
		}
	}
	return true
}

// Raw is one field as read from the source. Valid is false for a null field
// (padding for short rows, a missing JSON key, a JSON null).
type Raw struct {
	S     string
	Valid bool
}

// Str returns a present raw field.
func Str(s string) Raw { return Raw{S: s, Valid: true} }

// Null is the absent raw field.
var Null = Raw{}

// String renders the field for diagnostics; null renders as <null>.
func (r Raw) String() string {
	if !r.Valid {
		return "<null>"
	}
	return strconv.Quote(r.S)
}

// RawRow is one parsed record. It is immutable once built.
type RawRow struct {
	header Header
	vals   []Raw
}

// NewRawRow zips vals positionally against h.
//
// Rows shorter than the header are padded with Null; values beyond the header
// length are dropped. Neither case is an error.
func NewRawRow(h Header, vals []Raw) RawRow {
	out := make([]Raw, len(h))
	copy(out, vals)
	return RawRow{header: h, vals: out}
}

// FromStrings is NewRawRow for tokenizer output where every field is present.
func FromStrings(h Header, fields []string) RawRow {
	out := make([]Raw, len(h))
	for i := 0; i < len(h) && i < len(fields); i++ {
		out[i] = Str(fields[i])
	}
	return RawRow{header: h, vals: out}
}

// Header returns the row's column names.
func (r RawRow) Header() Header { return r.header }

// Len returns the number of fields (always len(Header())).
func (r RawRow) Len() int { return len(r.vals) }

// At returns the i-th field.
func (r RawRow) At(i int) Raw { return r.vals[i] }

// Get returns the field for column name.
func (r RawRow) Get(name string) (Raw, bool) {
	i := r.header.Index(name)
	if i < 0 {
		return Null, false
	}
	return r.vals[i], true
}

// Values returns a copy of the fields in column order.
func (r RawRow) Values() []Raw {
	out := make([]Raw, len(r.vals))
	copy(out, r.vals)
	return out
}

// Equal compares two rows by header and raw field content.
func (r RawRow) Equal(o RawRow) bool {
	if !r.header.Equal(o.header) || len(r.vals) != len(o.vals) {
		return false
	}
	for i := range r.vals {
		if r.vals[i] != o.vals[i] {
			return false
		}
	}
	return true
}

func (r RawRow) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, c := range r.header {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s: %s", c, r.vals[i])
	}
	b.WriteByte('}')
	return b.String()
}

// Table is the output of a record parser: the header plus rows aligned to it.
type Table struct {
	Header Header
	Rows   []RawRow
}
