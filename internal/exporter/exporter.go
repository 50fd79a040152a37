// Package exporter writes a completed Dataset into a storage backend.
package exporter

import (
	"context"
	"path/filepath"
	"strings"
	"unicode"

	"dataingest/internal/ingest"
	"dataingest/internal/schema"
	"dataingest/internal/storage"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// Options controls one export.
type Options struct {
	// Table is the destination. Empty derives a name from the source file.
	Table string
	// Replace drops an existing table first.
	Replace bool
}

// Result reports what was written.
type Result struct {
	Table string
	Rows  int64
}

// TableSpec maps the dataset's columns to backend-neutral column specs.
// A column is nullable when it holds at least one null.
func TableSpec(ds *ingest.Dataset, table string) storage.TableSpec {
	header := ds.Header()
	types := ds.Types()
	prof := ds.Quality().Columns

	spec := storage.TableSpec{Name: table, Columns: make([]storage.ColumnSpec, len(header))}
	for i, name := range header {
		nullable := true
		if i < len(prof) {
			nullable = prof[i].Nulls > 0 || ds.Len() == 0
		}
		spec.Columns[i] = storage.ColumnSpec{Name: name, Type: columnType(types[i]), Nullable: nullable}
	}
	return spec
}

// Rows returns every row as typed values in header order.
func Rows(ds *ingest.Dataset) [][]any {
	header := ds.Header()
	out := make([][]any, ds.Len())
	for r := range out {
		out[r] = make([]any, len(header))
	}
	for c, name := range header {
		col, err := ds.Column(name)
		if err != nil {
			// Header names always resolve.
			continue
		}
		for r, v := range col {
			out[r][c] = v.Any()
		}
	}
	return out
}

// Export creates the table and loads the dataset into it.
func Export(ctx context.Context, repo storage.Repository, ds *ingest.Dataset, opt Options, log *zap.Logger) (Result, error) {
	if ds == nil {
		return Result{}, errors.New("exporter: no dataset")
	}
	if log == nil {
		log = zap.NewNop()
	}

	table := strings.TrimSpace(opt.Table)
	if table == "" {
		table = TableName(ds.Source().Name)
	}
	spec := TableSpec(ds, table)
	spec.Replace = opt.Replace

	if err := repo.EnsureTable(ctx, spec); err != nil {
		return Result{}, errors.Wrapf(err, "exporter: ensure table %s", table)
	}
	n, err := repo.InsertRows(ctx, table, spec.ColumnNames(), Rows(ds))
	if err != nil {
		return Result{}, errors.Wrapf(err, "exporter: load %s", table)
	}

	log.Info("dataset exported",
		zap.String("file", ds.Source().Name),
		zap.String("table", table),
		zap.Int64("rows", n),
		zap.Int("columns", len(spec.Columns)),
	)
	return Result{Table: table, Rows: n}, nil
}

// TableName derives a SQL-friendly table name from a file name:
// "Sales Q1.csv" -> "sales_q1".
func TableName(file string) string {
	base := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
	var b strings.Builder
	underscore := false
	for _, r := range strings.ToLower(base) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			underscore = false
			continue
		}
		if !underscore && b.Len() > 0 {
			b.WriteByte('_')
			underscore = true
		}
	}
	name := strings.TrimRight(b.String(), "_")
	if name == "" {
		return "dataset"
	}
	if unicode.IsDigit(rune(name[0])) {
		name = "t_" + name
	}
	return name
}

func columnType(t schema.ColumnType) storage.ColumnType {
	switch t {
	case schema.Integer:
		return storage.TypeInteger
	case schema.Float:
		return storage.TypeFloat
	case schema.Boolean:
		return storage.TypeBoolean
	default:
		return storage.TypeString
	}
}
