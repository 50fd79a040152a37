package storage

import (
	"strings"

	"github.com/cockroachdb/errors"
)

// ColumnType is the backend-neutral column type.
type ColumnType string

const (
	TypeInteger ColumnType = "integer"
	TypeFloat   ColumnType = "float"
	TypeBoolean ColumnType = "boolean"
	TypeString  ColumnType = "string"
)

type TableSpec struct {
	Name    string       `json:"name"`
	Columns []ColumnSpec `json:"columns"`
	// Replace drops an existing table of the same name before creating it.
	Replace bool `json:"replace,omitempty"`
}

type ColumnSpec struct {
	Name     string     `json:"name"`
	Type     ColumnType `json:"type"`
	Nullable bool       `json:"nullable"`
}

// ColumnNames returns the column names in order.
func (t TableSpec) ColumnNames() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}

// Validate checks the table definition before any DDL is issued.
func (t TableSpec) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return errors.New("storage: table name is empty")
	}
	if len(t.Columns) == 0 {
		return errors.Newf("storage: table %s has no columns", t.Name)
	}
	seen := make(map[string]bool, len(t.Columns))
	for _, c := range t.Columns {
		if strings.TrimSpace(c.Name) == "" {
			return errors.Newf("storage: table %s has an empty column name", t.Name)
		}
		k := strings.ToLower(c.Name)
		if seen[k] {
			return errors.Newf("storage: table %s: duplicate column %q", t.Name, c.Name)
		}
		seen[k] = true
		switch c.Type {
		case TypeInteger, TypeFloat, TypeBoolean, TypeString:
		default:
			return errors.Newf("storage: table %s: column %s has unknown type %q", t.Name, c.Name, c.Type)
		}
	}
	return nil
}

// Chunks splits rows so that no chunk binds more than maxParams values.
// Every chunk holds at least one row.
func Chunks(rows [][]any, columns, maxParams int) [][][]any {
	if len(rows) == 0 {
		return nil
	}
	per := 1
	if columns > 0 && maxParams > columns {
		per = maxParams / columns
	}
	out := make([][][]any, 0, (len(rows)+per-1)/per)
	for start := 0; start < len(rows); start += per {
		end := start + per
		if end > len(rows) {
			end = len(rows)
		}
		out = append(out, rows[start:end])
	}
	return out
}

// CheckRows reports the first row whose width differs from the column count.
func CheckRows(columns []string, rows [][]any) error {
	for i, r := range rows {
		if len(r) != len(columns) {
			return errors.Newf("storage: row %d has %d values for %d columns", i, len(r), len(columns))
		}
	}
	return nil
}
