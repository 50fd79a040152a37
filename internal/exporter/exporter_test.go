package exporter

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"dataingest/internal/ingest"
	"dataingest/internal/storage"
	_ "dataingest/internal/storage/sqlite"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ingestOne(t *testing.T, name, body string) *ingest.Dataset {
	t.Helper()
	in, err := ingest.New()
	require.NoError(t, err)
	in.Submit(ingest.FromBytes(ingest.SourceFile{Name: name}, []byte(body)))
	_, err = in.Run(context.Background())
	require.NoError(t, err)
	ds, ok := in.Batch().Selected()
	require.True(t, ok, "dataset not ingested: %+v", in.Slots())
	return ds
}

func TestTableSpec(t *testing.T) {
	t.Parallel()

	ds := ingestOne(t, "a.csv", "id,price,ok,name\n1,2.5,true,x\n2,3,false,\n")
	spec := TableSpec(ds, "t")

	assert.Equal(t, "t", spec.Name)
	assert.Equal(t, []storage.ColumnSpec{
		{Name: "id", Type: storage.TypeInteger, Nullable: false},
		{Name: "price", Type: storage.TypeFloat, Nullable: false},
		{Name: "ok", Type: storage.TypeBoolean, Nullable: false},
		{Name: "name", Type: storage.TypeString, Nullable: true},
	}, spec.Columns)
}

func TestRows_Typed(t *testing.T) {
	t.Parallel()

	ds := ingestOne(t, "a.json", `[{"id":1,"price":2,"tag":"x"},{"id":2,"price":2.5}]`)
	assert.Equal(t, [][]any{
		{int64(1), float64(2), "x"},
		{int64(2), 2.5, nil},
	}, Rows(ds))
}

func TestTableName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want string
	}{
		{"Sales Q1.csv", "sales_q1"},
		{"/tmp/data/people.json", "people"},
		{"2024-report.csv", "t_2024_report"},
		{"---.csv", "dataset"},
		{"über daten.tsv", "über_daten"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TableName(tt.in), tt.in)
	}
}

// TestExport_SQLite loads a dataset into a file-backed SQLite database and
// reads it back through database/sql.
func TestExport_SQLite(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "out.db")
	repo, err := storage.New(ctx, storage.Config{Kind: "sqlite", DSN: dsn})
	require.NoError(t, err)
	defer repo.Close()

	ds := ingestOne(t, "Sales Q1.csv", "id,amount,paid\n1,10.5,true\n2,,false\n3,7,true\n")
	res, err := Export(ctx, repo, ds, Options{}, nil)
	require.NoError(t, err)
	assert.Equal(t, Result{Table: "sales_q1", Rows: 3}, res)

	// Replace keeps the row count stable across re-exports.
	res, err = Export(ctx, repo, ds, Options{Replace: true}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(3), res.Rows)

	db, err := sql.Open("sqlite", dsn)
	require.NoError(t, err)
	defer db.Close()

	var (
		count int
		total float64
		paid  int64
		nulls int
	)
	require.NoError(t, db.QueryRowContext(ctx,
		`SELECT COUNT(*), SUM(amount), SUM(paid), SUM(amount IS NULL) FROM sales_q1`,
	).Scan(&count, &total, &paid, &nulls))
	assert.Equal(t, 3, count)
	assert.InDelta(t, 17.5, total, 1e-9)
	assert.Equal(t, int64(2), paid)
	assert.Equal(t, 1, nulls)
}

func TestExport_Errors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo, err := storage.New(ctx, storage.Config{Kind: "sqlite", DSN: ":memory:"})
	require.NoError(t, err)
	defer repo.Close()

	_, err = Export(ctx, repo, nil, Options{}, nil)
	assert.Error(t, err)

	ds := ingestOne(t, "empty.json", `[]`)
	_, err = Export(ctx, repo, ds, Options{Table: "empty"}, nil)
	assert.Error(t, err, "a dataset without columns has no table shape")
}
