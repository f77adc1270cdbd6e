// Package mysql implements database.DB for MySQL over information_schema,
// backed by database/sql and go-sql-driver/mysql.
package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/koustreak/modelerd/internal/database"
	"github.com/koustreak/modelerd/internal/errs"
)

// Driver is a MySQL implementation of database.DB backed by database/sql.
// It is safe for concurrent use by multiple goroutines.
type Driver struct {
	db           *sql.DB
	queryTimeout time.Duration
}

var _ database.DB = (*Driver)(nil)

// New opens a MySQL connection pool using the provided Config and returns a Driver.
// It calls Ping to validate the connection before returning.
func New(ctx context.Context, cfg *database.Config) (*Driver, error) {
	if _, err := mysql.ParseDSN(cfg.DSN); err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "invalid DSN", err)
	}

	db, err := sql.Open("mysql", cfg.DSN)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConnectionFailed, "invalid DSN", err)
	}
	configurePool(db, cfg)

	d := NewWithDB(db, cfg.QueryTimeout)

	timeout := cfg.ConnectTimeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := d.Ping(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return d, nil
}

// NewWithDB wraps an already-open *sql.DB. The Driver takes ownership and
// closes db on Close. Each query is bounded by queryTimeout when positive.
func NewWithDB(db *sql.DB, queryTimeout time.Duration) *Driver {
	return &Driver{db: db, queryTimeout: queryTimeout}
}

// --- database.DB implementation ---

func (d *Driver) Ping(ctx context.Context) error {
	if err := d.db.PingContext(ctx); err != nil {
		return mapError(err, "ping failed")
	}
	return nil
}

func (d *Driver) Close() {
	_ = d.db.Close()
}

func (d *Driver) ListTables(ctx context.Context) ([]string, error) {
	const q = `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = DATABASE()
		  AND table_type   = 'BASE TABLE'
		ORDER BY table_name`

	ctx, cancel := database.QueryContext(ctx, d.queryTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx, q)
	if err != nil {
		return nil, mapQueryError(ctx, err, "failed to list tables")
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, mapError(err, "failed to scan table name")
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, mapQueryError(ctx, err, "error iterating tables")
	}
	return tables, nil
}

func (d *Driver) TableExists(ctx context.Context, table string) (bool, error) {
	const q = `
		SELECT 1
		FROM information_schema.tables
		WHERE table_schema = DATABASE()
		  AND table_type   = 'BASE TABLE'
		  AND table_name   = ?`

	ctx, cancel := database.QueryContext(ctx, d.queryTimeout)
	defer cancel()

	var exists int
	err := d.db.QueryRowContext(ctx, q, table).Scan(&exists)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, mapQueryError(ctx, err, "failed to check table existence")
	}
	return true, nil
}

// Columns returns the columns of table in ordinal order. column_type keeps
// length and sign (varchar(255), bigint unsigned). MySQL reports key
// membership per column, so no constraint join is needed.
func (d *Driver) Columns(ctx context.Context, table string) ([]database.Column, error) {
	const q = `
		SELECT column_name,
		       column_type,
		       is_nullable = 'YES',
		       column_key
		FROM information_schema.columns
		WHERE table_schema = DATABASE()
		  AND table_name   = ?
		ORDER BY ordinal_position`

	ctx, cancel := database.QueryContext(ctx, d.queryTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx, q, table)
	if err != nil {
		return nil, mapQueryError(ctx, err, "failed to fetch columns")
	}
	defer rows.Close()

	var cols []database.Column
	for rows.Next() {
		var c database.Column
		var columnKey string
		if err := rows.Scan(&c.Name, &c.DataType, &c.Nullable, &columnKey); err != nil {
			return nil, mapError(err, "failed to scan column info")
		}
		c.IsPrimary = columnKey == "PRI"
		cols = append(cols, c)
	}
	if err := rows.Err(); err != nil {
		return nil, mapQueryError(ctx, err, "error iterating columns")
	}
	if len(cols) == 0 {
		return nil, errs.Newf(errs.ErrKindNotFound, "table %q not found", table)
	}
	return cols, nil
}

func (d *Driver) PrimaryKey(ctx context.Context, table string) (string, error) {
	const q = `
		SELECT column_name
		FROM information_schema.columns
		WHERE table_schema = DATABASE()
		  AND table_name   = ?
		  AND column_key   = 'PRI'
		ORDER BY ordinal_position
		LIMIT 1`

	ctx, cancel := database.QueryContext(ctx, d.queryTimeout)
	defer cancel()

	var name string
	err := d.db.QueryRowContext(ctx, q, table).Scan(&name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", mapQueryError(ctx, err, "failed to fetch primary key")
	}
	return name, nil
}

// --- error mapping ---

// mapQueryError is mapError for a query run under ctx. A query cut short by
// the ctx deadline is a timeout whatever the driver reports.
func mapQueryError(ctx context.Context, err error, msg string) *errs.Error {
	if ctx.Err() != nil {
		return errs.Wrap(errs.ErrKindTimeout, msg, err)
	}
	return mapError(err, msg)
}

// mapError translates go-sql-driver/mysql errors into *errs.Error.
func mapError(err error, msg string) *errs.Error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errs.Wrap(errs.ErrKindTimeout, msg, err)
	}

	if errors.Is(err, sql.ErrNoRows) {
		return errs.Wrap(errs.ErrKindNotFound, msg, err)
	}

	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return errs.Wrap(
			classifyMySQLCode(mysqlErr.Number),
			fmt.Sprintf("%s: %s", msg, mysqlErr.Message),
			err,
		)
	}

	return errs.Wrap(errs.ErrKindConnectionFailed, msg, err)
}

// classifyMySQLCode maps MySQL error numbers to ErrKind.
// Full list: https://dev.mysql.com/doc/mysql-errors/8.0/en/server-error-reference.html
func classifyMySQLCode(code uint16) errs.ErrKind {
	switch code {
	case 1044, 1045, 1142, 1143: // access denied
		return errs.ErrKindPermissionDenied
	case 1040, 1049, 1203: // too many connections, unknown database
		return errs.ErrKindConnectionFailed
	case 1146: // no such table
		return errs.ErrKindNotFound
	case 3024: // max_execution_time exceeded
		return errs.ErrKindTimeout
	default:
		return errs.ErrKindQueryFailed
	}
}
