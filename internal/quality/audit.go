// Package quality computes the data-quality summary of a parsed table.
//
// All counts are taken over normalized scalars: a cell is missing when it
// normalizes to null, and two rows are duplicates when their normalized
// scalar sequences are structurally equal.
package quality

import (
	"encoding/binary"
	"math"

	"dataingest/internal/schema"
	"dataingest/pkg/records"

	"github.com/cespare/xxhash/v2"
	"github.com/goccy/go-json"
)

// DistinctCap bounds the per-column distinct-value set.
const DistinctCap = 10000

// Report is the quality summary of one dataset.
type Report struct {
	MissingValueCount    int             `json:"missingValueCount"`
	DuplicateRowCount    int             `json:"duplicateRowCount"`
	EstimatedMemoryBytes int64           `json:"estimatedMemoryBytes"`
	Columns              []ColumnProfile `json:"columns,omitempty"`
}

// ColumnProfile describes one column.
type ColumnProfile struct {
	Name  string `json:"name"`
	Nulls int    `json:"nulls"`
	// Distinct counts distinct non-null values up to DistinctCap.
	Distinct int `json:"distinct"`
	// DistinctCapped is set when the column had more than DistinctCap
	// distinct values; Distinct is then a lower bound.
	DistinctCapped bool `json:"distinctCapped,omitempty"`
}

// Audit computes the report for the rows of one table.
func Audit(h records.Header, rows []records.RawRow) Report {
	rep := Report{Columns: make([]ColumnProfile, len(h))}
	distinct := make([]map[string]struct{}, len(h))
	for i, name := range h {
		rep.Columns[i].Name = name
		distinct[i] = map[string]struct{}{}
	}

	norm := make([][]schema.Scalar, len(rows))
	for r, row := range rows {
		vals := schema.NormalizeRow(row)
		norm[r] = vals
		for c, v := range vals {
			if c >= len(h) {
				break
			}
			if v.IsNull() {
				rep.MissingValueCount++
				rep.Columns[c].Nulls++
				continue
			}
			col := &rep.Columns[c]
			if col.DistinctCapped {
				continue
			}
			key := string(appendKey(nil, v))
			if _, ok := distinct[c][key]; ok {
				continue
			}
			if len(distinct[c]) >= DistinctCap {
				col.DistinctCapped = true
				continue
			}
			distinct[c][key] = struct{}{}
			col.Distinct = len(distinct[c])
		}
	}

	rep.DuplicateRowCount = countDuplicates(norm)
	rep.EstimatedMemoryBytes = EstimateBytes(h, norm)
	return rep
}

// countDuplicates counts rows equal to an earlier row. Rows are bucketed by an
// xxhash fingerprint and confirmed with Scalar.Equal, so a hash collision
// never produces a false duplicate.
func countDuplicates(rows [][]schema.Scalar) int {
	seen := make(map[uint64][]int, len(rows))
	dups := 0
	var buf []byte
	for i, row := range rows {
		buf = buf[:0]
		for _, v := range row {
			buf = appendKey(buf, v)
		}
		fp := xxhash.Sum64(buf)

		isDup := false
		for _, j := range seen[fp] {
			if rowsEqual(rows[j], row) {
				isDup = true
				break
			}
		}
		if isDup {
			dups++
			continue
		}
		seen[fp] = append(seen[fp], i)
	}
	return dups
}

func rowsEqual(a, b []schema.Scalar) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

// appendKey appends an unambiguous encoding of v: a kind byte followed by a
// fixed-width payload, or a length-prefixed string.
func appendKey(dst []byte, v schema.Scalar) []byte {
	dst = append(dst, byte(v.Kind))
	switch v.Kind {
	case schema.KindBool:
		if v.B {
			return append(dst, 1)
		}
		return append(dst, 0)
	case schema.KindInt:
		return binary.LittleEndian.AppendUint64(dst, uint64(v.I))
	case schema.KindFloat:
		return binary.LittleEndian.AppendUint64(dst, math.Float64bits(v.F))
	case schema.KindString:
		dst = binary.AppendUvarint(dst, uint64(len(v.S)))
		return append(dst, v.S...)
	default:
		return dst
	}
}

// EstimateBytes returns the length of the rows serialized as a JSON array of
// objects keyed by column name. It is a sizing hint only.
func EstimateBytes(h records.Header, rows [][]schema.Scalar) int64 {
	if len(rows) == 0 {
		return 2 // []
	}
	keyLen := make([]int64, len(h))
	for i, name := range h {
		keyLen[i] = jsonLen(name) + 1 // "name":
	}

	total := int64(2) + int64(len(rows)-1) // brackets + commas between rows
	for _, row := range rows {
		total += 2 // {}
		if n := len(row); n > 1 {
			total += int64(n - 1)
		}
		for c, v := range row {
			if c < len(keyLen) {
				total += keyLen[c]
			}
			total += jsonLen(v.Any())
		}
	}
	return total
}

func jsonLen(v any) int64 {
	b, err := json.Marshal(v)
	if err != nil {
		return 0
	}
	return int64(len(b))
}
