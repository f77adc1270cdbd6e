// Package postgres implements database.DB for PostgreSQL over
// information_schema and pg_catalog, backed by pgxpool.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/koustreak/modelerd/internal/database"
	"github.com/koustreak/modelerd/internal/errs"
)

// Driver is a PostgreSQL implementation of database.DB backed by pgxpool.
// It is safe for concurrent use by multiple goroutines.
type Driver struct {
	pool         *pgxpool.Pool
	schema       string
	queryTimeout time.Duration
}

var _ database.DB = (*Driver)(nil)

// New connects to PostgreSQL using the provided Config and returns a Driver.
// It calls Ping to validate the connection before returning.
func New(ctx context.Context, cfg *database.Config) (*Driver, error) {
	poolCfg, err := poolConfig(cfg)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConnectionFailed, "failed to create connection pool", err)
	}

	schema := cfg.Schema
	if schema == "" {
		schema = database.DefaultSchema
	}
	d := &Driver{pool: pool, schema: schema, queryTimeout: cfg.QueryTimeout}

	if err := d.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return d, nil
}

// --- database.DB implementation ---

// Ping verifies the database is reachable by acquiring and releasing a connection.
func (d *Driver) Ping(ctx context.Context) error {
	if err := d.pool.Ping(ctx); err != nil {
		return mapError(err, "ping failed")
	}
	return nil
}

// Close drains the connection pool. Call when the application shuts down.
func (d *Driver) Close() {
	d.pool.Close()
}

// ListTables returns all base tables in the configured schema.
func (d *Driver) ListTables(ctx context.Context) ([]string, error) {
	const q = `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = $1
		  AND table_type   = 'BASE TABLE'
		ORDER BY table_name`

	return d.fetchStringList(ctx, q, "failed to list tables", d.schema)
}

// TableExists reports whether a base table with the given name exists in
// the configured schema.
func (d *Driver) TableExists(ctx context.Context, table string) (bool, error) {
	const q = `
		SELECT 1
		FROM information_schema.tables
		WHERE table_schema = $1
		  AND table_type   = 'BASE TABLE'
		  AND table_name   = $2`

	ctx, cancel := database.QueryContext(ctx, d.queryTimeout)
	defer cancel()

	var exists int
	err := d.pool.QueryRow(ctx, q, d.schema, table).Scan(&exists)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, mapError(err, "failed to check table existence")
	}
	return true, nil
}

// Columns returns the columns of table in ordinal order, with the primary
// key flag set.
func (d *Driver) Columns(ctx context.Context, table string) ([]database.Column, error) {
	columns, err := d.fetchColumns(ctx, table)
	if err != nil {
		return nil, err
	}
	if len(columns) == 0 {
		return nil, errs.Newf(errs.ErrKindNotFound, "table %q not found in schema %q", table, d.schema)
	}

	pks, err := d.fetchConstraintColumns(ctx, table, "PRIMARY KEY")
	if err != nil {
		return nil, err
	}

	pkSet := toSet(pks)
	for i := range columns {
		columns[i].IsPrimary = pkSet[columns[i].Name]
	}
	return columns, nil
}

// PrimaryKey returns the first primary key column of table.
func (d *Driver) PrimaryKey(ctx context.Context, table string) (string, error) {
	pks, err := d.fetchConstraintColumns(ctx, table, "PRIMARY KEY")
	if err != nil {
		return "", err
	}
	if len(pks) == 0 {
		return "", nil
	}
	return pks[0], nil
}

// fetchColumns reads pg_attribute rather than information_schema.columns so
// the type keeps its modifiers: character varying(255), numeric(10,2).
func (d *Driver) fetchColumns(ctx context.Context, table string) ([]database.Column, error) {
	const q = `
		SELECT a.attname,
		       pg_catalog.format_type(a.atttypid, a.atttypmod),
		       NOT a.attnotnull
		FROM pg_catalog.pg_attribute a
		JOIN pg_catalog.pg_class c     ON c.oid = a.attrelid
		JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
		WHERE n.nspname = $1
		  AND c.relname = $2
		  AND c.relkind IN ('r', 'p')
		  AND a.attnum > 0
		  AND NOT a.attisdropped
		ORDER BY a.attnum`

	ctx, cancel := database.QueryContext(ctx, d.queryTimeout)
	defer cancel()

	rows, err := d.pool.Query(ctx, q, d.schema, table)
	if err != nil {
		return nil, mapError(err, "failed to fetch columns")
	}
	defer rows.Close()

	var cols []database.Column
	for rows.Next() {
		var c database.Column
		if err := rows.Scan(&c.Name, &c.DataType, &c.Nullable); err != nil {
			return nil, mapError(err, "failed to scan column info")
		}
		cols = append(cols, c)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "error iterating columns")
	}
	return cols, nil
}

func (d *Driver) fetchConstraintColumns(ctx context.Context, table, constraintType string) ([]string, error) {
	const q = `
		SELECT kcu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
		  ON tc.constraint_name = kcu.constraint_name
		 AND tc.table_schema    = kcu.table_schema
		WHERE tc.constraint_type = $1
		  AND tc.table_schema    = $2
		  AND tc.table_name      = $3
		ORDER BY kcu.ordinal_position`

	msg := fmt.Sprintf("failed to fetch %s columns", constraintType)
	return d.fetchStringList(ctx, q, msg, constraintType, d.schema, table)
}

// fetchStringList is a helper for queries that return a single text column.
func (d *Driver) fetchStringList(ctx context.Context, q, errMsg string, args ...any) ([]string, error) {
	ctx, cancel := database.QueryContext(ctx, d.queryTimeout)
	defer cancel()

	rows, err := d.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, mapError(err, errMsg)
	}
	defer rows.Close()

	var list []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, mapError(err, errMsg)
		}
		list = append(list, s)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, errMsg)
	}
	return list, nil
}

// --- error mapping ---

// mapError translates pgx / pgconn native errors into *errs.Error.
func mapError(err error, msg string) *errs.Error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errs.Wrap(errs.ErrKindTimeout, msg, err)
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return errs.Wrap(errs.ErrKindNotFound, msg, err)
	}

	// Postgres server-side error (SQLSTATE codes)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return errs.Wrap(classifySQLState(pgErr.Code), fmt.Sprintf("%s: %s", msg, pgErr.Message), err)
	}

	// Fallthrough: connection-level errors (TLS, network, auth)
	return errs.Wrap(errs.ErrKindConnectionFailed, msg, err)
}

// classifySQLState maps a SQLSTATE code to an ErrKind.
// Full list: https://www.postgresql.org/docs/current/errcodes-appendix.html
func classifySQLState(code string) errs.ErrKind {
	switch {
	case len(code) >= 2 && code[:2] == "08": // connection exception
		return errs.ErrKindConnectionFailed
	case len(code) >= 2 && code[:2] == "28": // invalid authorization
		return errs.ErrKindPermissionDenied
	case code == "42501": // insufficient_privilege
		return errs.ErrKindPermissionDenied
	case code == "42P01": // undefined_table
		return errs.ErrKindNotFound
	case code == "57014": // query_canceled
		return errs.ErrKindTimeout
	default:
		return errs.ErrKindQueryFailed
	}
}

// --- helpers ---

func toSet(ss []string) map[string]bool {
	m := make(map[string]bool, len(ss))
	for _, s := range ss {
		m[s] = true
	}
	return m
}
