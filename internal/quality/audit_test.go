package quality

import (
	"fmt"
	"testing"

	"dataingest/internal/schema"
	"dataingest/pkg/records"
)

func table(h records.Header, rows ...[]string) []records.RawRow {
	out := make([]records.RawRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, records.FromStrings(h, r))
	}
	return out
}

// TestAudit_Missing verifies missing values are counted after normalization.
//
// Edge cases validated:
//   - "" and "null" both count; "5" does not
//   - padded cells of short rows count
//   - "None" and " " stay strings
func TestAudit_Missing(t *testing.T) {
	t.Parallel()

	h := records.Header{"v"}
	rep := Audit(h, table(h, []string{""}, []string{"null"}, []string{"5"}))
	if rep.MissingValueCount != 2 {
		t.Fatalf("missing = %d, want 2", rep.MissingValueCount)
	}
	if rep.Columns[0].Nulls != 2 || rep.Columns[0].Distinct != 1 {
		t.Fatalf("profile = %+v", rep.Columns[0])
	}

	h2 := records.Header{"a", "b", "c"}
	rep = Audit(h2, table(h2, []string{"1"}, []string{"None", " ", "NULL"}))
	if rep.MissingValueCount != 3 {
		t.Fatalf("missing with padding = %d, want 3", rep.MissingValueCount)
	}
}

// TestAudit_Duplicates verifies duplicates are detected on normalized tuples.
func TestAudit_Duplicates(t *testing.T) {
	t.Parallel()

	h := records.Header{"a", "b"}
	tests := []struct {
		name string
		rows [][]string
		want int
	}{
		{"one repeated row", [][]string{{"1", "x"}, {"1", "x"}, {"2", "y"}}, 1},
		{"triplicate", [][]string{{"1", "x"}, {"1", "x"}, {"1", "x"}}, 2},
		{"null spellings collapse", [][]string{{"", "x"}, {"null", "x"}, {"NULL", "x"}}, 2},
		{"int vs float differ", [][]string{{"1", "x"}, {"1.0", "x"}}, 0},
		{"case matters", [][]string{{"a", "x"}, {"A", "x"}}, 0},
		{"boolean spellings collapse", [][]string{{"true", "x"}, {"TRUE", "x"}}, 1},
		{"float spellings collapse", [][]string{{"1.50", "x"}, {"1.5", "x"}}, 1},
		{"field boundary", [][]string{{"ab", "c"}, {"a", "bc"}}, 0},
		{"empty", nil, 0},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rep := Audit(h, table(h, tt.rows...))
			if rep.DuplicateRowCount != tt.want {
				t.Fatalf("duplicates = %d, want %d", rep.DuplicateRowCount, tt.want)
			}
		})
	}
}

func TestCountDuplicates_CollisionSafe(t *testing.T) {
	t.Parallel()

	// Rows of different length never compare equal even with a shared prefix.
	rows := [][]schema.Scalar{
		{schema.IntScalar(1)},
		{schema.IntScalar(1), schema.NullScalar()},
		{schema.IntScalar(1)},
	}
	if got := countDuplicates(rows); got != 1 {
		t.Fatalf("countDuplicates = %d, want 1", got)
	}
}

// TestEstimateBytes verifies the estimate equals the compact JSON length of
// the rows as objects.
func TestEstimateBytes(t *testing.T) {
	t.Parallel()

	h := records.Header{"id", "name", "ok"}
	rows := [][]schema.Scalar{
		{schema.IntScalar(1), schema.StringScalar(`a"b`), schema.BoolScalar(true)},
		{schema.IntScalar(22), schema.NullScalar(), schema.BoolScalar(false)},
	}
	want := `[{"id":1,"name":"a\"b","ok":true},{"id":22,"name":null,"ok":false}]`
	if got := EstimateBytes(h, rows); got != int64(len(want)) {
		t.Fatalf("EstimateBytes = %d, want %d", got, len(want))
	}
	if got := EstimateBytes(h, nil); got != 2 {
		t.Fatalf("EstimateBytes(empty) = %d, want 2", got)
	}
}

func TestAudit_DistinctCap(t *testing.T) {
	t.Parallel()

	h := records.Header{"id", "const"}
	rows := make([][]string, 0, DistinctCap+5)
	for i := 0; i < DistinctCap+5; i++ {
		rows = append(rows, []string{fmt.Sprint(i), "k"})
	}
	rep := Audit(h, table(h, rows...))

	id := rep.Columns[0]
	if !id.DistinctCapped || id.Distinct != DistinctCap {
		t.Fatalf("id profile = %+v", id)
	}
	if c := rep.Columns[1]; c.DistinctCapped || c.Distinct != 1 {
		t.Fatalf("const profile = %+v", c)
	}
	if rep.DuplicateRowCount != 0 {
		t.Fatalf("duplicates = %d", rep.DuplicateRowCount)
	}
}
