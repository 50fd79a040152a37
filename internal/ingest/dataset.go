package ingest

import (
	"time"

	"dataingest/internal/ingesterr"
	"dataingest/internal/parser"
	"dataingest/internal/quality"
	"dataingest/internal/schema"
	"dataingest/pkg/records"

	"github.com/cockroachdb/errors"
)

// SourceFile describes where a Dataset came from.
type SourceFile struct {
	Name         string    `json:"name"`
	ByteSize     int64     `json:"byteSize"`
	MIMEHint     string    `json:"mimeHint,omitempty"`
	LastModified time.Time `json:"lastModified"`
}

// Dataset is one file's parsed, typed table plus its quality summary.
//
// A Dataset is built once by the Ingestor and never mutated. Every row shares
// the dataset header, so all rows have the same columns in the same order.
type Dataset struct {
	source  SourceFile
	kind    parser.Kind
	header  records.Header
	rows    []records.RawRow
	types   []schema.ColumnType
	quality quality.Report
}

func newDataset(src SourceFile, kind parser.Kind, tbl records.Table) *Dataset {
	return &Dataset{
		source:  src,
		kind:    kind,
		header:  tbl.Header,
		rows:    tbl.Rows,
		types:   schema.Infer(tbl.Header, tbl.Rows),
		quality: quality.Audit(tbl.Header, tbl.Rows),
	}
}

func (d *Dataset) Source() SourceFile      { return d.source }
func (d *Dataset) Kind() parser.Kind       { return d.kind }
func (d *Dataset) Quality() quality.Report { return d.quality }
func (d *Dataset) Len() int                { return len(d.rows) }

// Header returns a copy of the column names in source order.
func (d *Dataset) Header() records.Header {
	return append(records.Header(nil), d.header...)
}

// Rows returns the rows. The slice is a copy; RawRow values are immutable.
func (d *Dataset) Rows() []records.RawRow {
	return append([]records.RawRow(nil), d.rows...)
}

// Types returns the column types in header order.
func (d *Dataset) Types() []schema.ColumnType {
	return append([]schema.ColumnType(nil), d.types...)
}

// ColumnTypes maps column name to its inferred type.
func (d *Dataset) ColumnTypes() map[string]schema.ColumnType {
	out := make(map[string]schema.ColumnType, len(d.header))
	for i, c := range d.header {
		out[c] = d.types[i]
	}
	return out
}

// ColumnType returns the type of column name.
func (d *Dataset) ColumnType(name string) (schema.ColumnType, bool) {
	i := d.header.Index(name)
	if i < 0 {
		return schema.String, false
	}
	return d.types[i], true
}

// Cell returns the value at (row, column) coerced to the column type.
func (d *Dataset) Cell(row int, column string) (schema.Scalar, error) {
	if row < 0 || row >= len(d.rows) {
		return schema.Scalar{}, errors.Newf("row %d out of range [0,%d)", row, len(d.rows))
	}
	i := d.header.Index(column)
	if i < 0 {
		return schema.Scalar{}, errors.Newf("unknown column %q", column)
	}
	return schema.CastRaw(d.rows[row].At(i), d.types[i]), nil
}

// Column returns every value of column name coerced to the column type.
func (d *Dataset) Column(name string) ([]schema.Scalar, error) {
	i := d.header.Index(name)
	if i < 0 {
		return nil, errors.Newf("unknown column %q", name)
	}
	out := make([]schema.Scalar, len(d.rows))
	for r, row := range d.rows {
		out[r] = schema.CastRaw(row.At(i), d.types[i])
	}
	return out, nil
}

// Records returns the rows as maps of column name to typed Go value (nil,
// bool, int64, float64 or string), for presentation code.
func (d *Dataset) Records() []map[string]any {
	out := make([]map[string]any, len(d.rows))
	for r, row := range d.rows {
		m := make(map[string]any, len(d.header))
		for i, c := range d.header {
			m[c] = schema.CastRaw(row.At(i), d.types[i]).Any()
		}
		out[r] = m
	}
	return out
}

// SameContent reports whether d and o hold structurally equal rows and
// column types. Source metadata is not compared.
func (d *Dataset) SameContent(o *Dataset) bool {
	if !d.header.Equal(o.header) || len(d.rows) != len(o.rows) || len(d.types) != len(o.types) {
		return false
	}
	for i := range d.types {
		if d.types[i] != o.types[i] {
			return false
		}
	}
	for i := range d.rows {
		if !d.rows[i].Equal(o.rows[i]) {
			return false
		}
	}
	return true
}

// errNoDataset builds the error for a missing slot or dataset.
func errNoDataset(format string, args ...any) error {
	return errors.Mark(errors.Newf(format, args...), ingesterr.ErrNoDataset)
}
