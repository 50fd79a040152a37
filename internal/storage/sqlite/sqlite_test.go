package sqlite

import (
	"context"
	"strings"
	"testing"

	"dataingest/internal/storage"
)

func openMemory(t *testing.T) *Repo {
	t.Helper()
	r, err := New(context.Background(), storage.Config{Kind: "sqlite", DSN: ":memory:"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(r.Close)
	return r.(*Repo)
}

func TestBuildCreateTableSQL(t *testing.T) {
	t.Parallel()

	ddl, err := buildCreateTableSQL(storage.TableSpec{
		Name: `we"ird`,
		Columns: []storage.ColumnSpec{
			{Name: "id", Type: storage.TypeInteger},
			{Name: "price", Type: storage.TypeFloat, Nullable: true},
			{Name: "ok", Type: storage.TypeBoolean, Nullable: true},
			{Name: "name", Type: storage.TypeString, Nullable: true},
		},
	})
	if err != nil {
		t.Fatalf("buildCreateTableSQL: %v", err)
	}
	for _, want := range []string{
		`CREATE TABLE IF NOT EXISTS "we""ird"`,
		`"id" INTEGER NOT NULL`,
		`"price" REAL,`,
		`"ok" INTEGER,`,
		`"name" TEXT`,
	} {
		if !strings.Contains(ddl, want) {
			t.Fatalf("ddl missing %q:\n%s", want, ddl)
		}
	}

	if _, err := buildCreateTableSQL(storage.TableSpec{Name: "x"}); err == nil {
		t.Fatalf("expected error for table without columns")
	}
}

func TestBuildInsertSQL(t *testing.T) {
	t.Parallel()

	q, args := buildInsertSQL("t", []string{"a", "b"}, [][]any{{int64(1), true}, {nil, false}})
	if q != `INSERT INTO "t" ("a", "b") VALUES (?,?), (?,?)` {
		t.Fatalf("unexpected sql: %s", q)
	}
	want := []any{int64(1), int64(1), nil, int64(0)}
	if len(args) != len(want) {
		t.Fatalf("args=%v", args)
	}
	for i := range want {
		if args[i] != want[i] {
			t.Fatalf("arg %d = %#v, want %#v", i, args[i], want[i])
		}
	}
}

// TestRoundTrip writes typed rows to an in-memory database and reads them back.
func TestRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	r := openMemory(t)
	spec := storage.TableSpec{
		Name: "people",
		Columns: []storage.ColumnSpec{
			{Name: "id", Type: storage.TypeInteger},
			{Name: "score", Type: storage.TypeFloat, Nullable: true},
			{Name: "active", Type: storage.TypeBoolean, Nullable: true},
			{Name: "name", Type: storage.TypeString, Nullable: true},
		},
	}
	if err := r.EnsureTable(ctx, spec); err != nil {
		t.Fatalf("EnsureTable: %v", err)
	}
	// Idempotent.
	if err := r.EnsureTable(ctx, spec); err != nil {
		t.Fatalf("EnsureTable again: %v", err)
	}

	n, err := r.InsertRows(ctx, "people", spec.ColumnNames(), [][]any{
		{int64(1), 2.5, true, "ann"},
		{int64(2), nil, false, nil},
	})
	if err != nil {
		t.Fatalf("InsertRows: %v", err)
	}
	if n != 2 {
		t.Fatalf("inserted %d rows, want 2", n)
	}

	var (
		sum    int64
		nulls  int
		active int64
	)
	row := r.db.QueryRowContext(ctx, `SELECT SUM(id), SUM(score IS NULL) + SUM(name IS NULL), SUM(active) FROM people`)
	if err := row.Scan(&sum, &nulls, &active); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if sum != 3 || nulls != 2 || active != 1 {
		t.Fatalf("sum=%d nulls=%d active=%d", sum, nulls, active)
	}

	spec.Replace = true
	if err := r.EnsureTable(ctx, spec); err != nil {
		t.Fatalf("EnsureTable replace: %v", err)
	}
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM people`).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("replace kept %d rows", count)
	}
}

func TestInsertRows_Errors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	r := openMemory(t)

	if n, err := r.InsertRows(ctx, "nope", []string{"a"}, nil); err != nil || n != 0 {
		t.Fatalf("empty insert: n=%d err=%v", n, err)
	}
	if _, err := r.InsertRows(ctx, "nope", []string{"a", "b"}, [][]any{{1}}); err == nil {
		t.Fatalf("expected width error")
	}
	if _, err := r.InsertRows(ctx, "nope", []string{"a"}, [][]any{{1}}); err == nil {
		t.Fatalf("expected error for missing table")
	}
}

func TestRegistered(t *testing.T) {
	t.Parallel()

	r, err := storage.New(context.Background(), storage.Config{Kind: "sqlite"})
	if err != nil {
		t.Fatalf("storage.New: %v", err)
	}
	r.Close()
}
