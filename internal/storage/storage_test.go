package storage

import (
	"context"
	"strings"
	"testing"
)

type fakeRepo struct{ closed int }

func (f *fakeRepo) Close()                                       { f.closed++ }
func (f *fakeRepo) EnsureTable(context.Context, TableSpec) error { return nil }
func (f *fakeRepo) InsertRows(context.Context, string, []string, [][]any) (int64, error) {
	return 0, nil
}

func TestRegisterAndNew(t *testing.T) {
	repo := &fakeRepo{}
	var got Config
	Register("fake-test", func(_ context.Context, cfg Config) (Repository, error) {
		got = cfg
		return repo, nil
	})

	r, err := New(context.Background(), Config{Kind: " FAKE-test ", DSN: "x"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if r != repo || got.DSN != "x" {
		t.Fatalf("factory not used: r=%v cfg=%+v", r, got)
	}

	found := false
	for _, k := range Kinds() {
		if k == "fake-test" {
			found = true
		}
	}
	if !found {
		t.Fatalf("Kinds() missing fake-test: %v", Kinds())
	}

	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on duplicate Register")
		}
	}()
	Register("fake-test", func(context.Context, Config) (Repository, error) { return nil, nil })
}

func TestNew_Errors(t *testing.T) {
	t.Parallel()

	if _, err := New(context.Background(), Config{}); err == nil {
		t.Fatalf("expected error for empty kind")
	}
	_, err := New(context.Background(), Config{Kind: "oracle"})
	if err == nil || !strings.Contains(err.Error(), "oracle") {
		t.Fatalf("expected unsupported kind error, got %v", err)
	}
}

func TestTableSpec_Validate(t *testing.T) {
	t.Parallel()

	ok := TableSpec{Name: "t", Columns: []ColumnSpec{{Name: "a", Type: TypeInteger}, {Name: "b", Type: TypeString}}}
	tests := []struct {
		name    string
		spec    TableSpec
		wantErr bool
	}{
		{"valid", ok, false},
		{"no name", TableSpec{Columns: ok.Columns}, true},
		{"no columns", TableSpec{Name: "t"}, true},
		{"empty column", TableSpec{Name: "t", Columns: []ColumnSpec{{Name: " ", Type: TypeString}}}, true},
		{"duplicate column", TableSpec{Name: "t", Columns: []ColumnSpec{{Name: "a", Type: TypeString}, {Name: "A", Type: TypeString}}}, true},
		{"bad type", TableSpec{Name: "t", Columns: []ColumnSpec{{Name: "a", Type: "date"}}}, true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.spec.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() err=%v wantErr=%v", err, tt.wantErr)
			}
		})
	}

	if got := ok.ColumnNames(); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("ColumnNames() = %v", got)
	}
}

func TestChunks(t *testing.T) {
	t.Parallel()

	rows := make([][]any, 7)
	for i := range rows {
		rows[i] = []any{i, i, i}
	}

	tests := []struct {
		name      string
		maxParams int
		want      []int
	}{
		{"fits", 100, []int{7}},
		{"two per chunk", 6, []int{2, 2, 2, 1}},
		{"less than a row", 2, []int{1, 1, 1, 1, 1, 1, 1}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Chunks(rows, 3, tt.maxParams)
			if len(got) != len(tt.want) {
				t.Fatalf("chunks=%d want %d", len(got), len(tt.want))
			}
			for i, c := range got {
				if len(c) != tt.want[i] {
					t.Fatalf("chunk %d has %d rows, want %d", i, len(c), tt.want[i])
				}
			}
		})
	}

	if Chunks(nil, 3, 10) != nil {
		t.Fatalf("expected nil for no rows")
	}
}

func TestCheckRows(t *testing.T) {
	t.Parallel()

	if err := CheckRows([]string{"a", "b"}, [][]any{{1, 2}, {3, nil}}); err != nil {
		t.Fatalf("CheckRows: %v", err)
	}
	if err := CheckRows([]string{"a", "b"}, [][]any{{1, 2}, {3}}); err == nil {
		t.Fatalf("expected width error")
	}
}
