package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"dataingest/internal/storage"
)

/*
Repo implements storage.Repository for Postgres.

Rows are loaded with COPY FROM STDIN through pgx; table names may be
schema-qualified ("staging.people").
*/
type Repo struct {
	pool *pgxpool.Pool
}

func init() {
	storage.Register("postgres", New)
}

// New opens a pool and checks connectivity.
func New(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, errors.Wrap(err, "postgres: connect")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "postgres: ping")
	}
	return &Repo{pool: pool}, nil
}

// Close closes the connection pool.
func (r *Repo) Close() {
	r.pool.Close()
}

// EnsureTable creates the schema (when qualified) and the table in one
// transaction.
func (r *Repo) EnsureTable(ctx context.Context, t storage.TableSpec) error {
	schemaSQL, dropSQL, createSQL, err := buildCreateSQL(t)
	if err != nil {
		return err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "postgres: begin")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, q := range []string{schemaSQL, dropSQL, createSQL} {
		if q == "" {
			continue
		}
		if _, err := tx.Exec(ctx, q); err != nil {
			return errors.Wrapf(err, "postgres: ensure table %s", t.Name)
		}
	}
	return errors.Wrap(tx.Commit(ctx), "postgres: commit")
}

// InsertRows bulk loads rows with CopyFrom.
func (r *Repo) InsertRows(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if err := storage.CheckRows(columns, rows); err != nil {
		return 0, err
	}
	n, err := r.pool.CopyFrom(ctx, tableIdentifier(table), columns, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, errors.Wrapf(err, "postgres: copy into %s", table)
	}
	return n, nil
}

func pgIdent(id string) string {
	return pgx.Identifier{id}.Sanitize()
}

// tableIdentifier splits "schema.table" into a pgx identifier.
func tableIdentifier(name string) pgx.Identifier {
	parts := strings.Split(name, ".")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return pgx.Identifier(parts)
}

func pgType(t storage.ColumnType) string {
	switch t {
	case storage.TypeInteger:
		return "BIGINT"
	case storage.TypeFloat:
		return "DOUBLE PRECISION"
	case storage.TypeBoolean:
		return "BOOLEAN"
	default:
		return "TEXT"
	}
}

// buildCreateSQL returns the statements EnsureTable runs. schemaSQL and
// dropSQL may be empty.
func buildCreateSQL(t storage.TableSpec) (schemaSQL, dropSQL, createSQL string, err error) {
	if err := t.Validate(); err != nil {
		return "", "", "", err
	}

	id := tableIdentifier(t.Name)
	if len(id) > 1 {
		schemaSQL = fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s;", pgIdent(id[0]))
	}
	if t.Replace {
		dropSQL = fmt.Sprintf("DROP TABLE IF EXISTS %s;", id.Sanitize())
	}

	cols := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		def := pgIdent(c.Name) + " " + pgType(c.Type)
		if !c.Nullable {
			def += " NOT NULL"
		}
		cols = append(cols, def)
	}
	createSQL = fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n  %s\n);", id.Sanitize(), strings.Join(cols, ",\n  "))
	return schemaSQL, dropSQL, createSQL, nil
}
