// Package database is the schema-introspection contract used by the ERD
// core. Layers above this package talk only to DB; they never import the
// postgres or mysql packages directly.
package database

import "context"

// DB is the read-only catalog view of a live database.
type DB interface {
	// Ping verifies the database is reachable.
	Ping(ctx context.Context) error

	// Close releases all resources held by the connection pool.
	Close()

	// ListTables returns all user-defined base tables, sorted by name.
	ListTables(ctx context.Context) ([]string, error)

	// TableExists reports whether a base table with the given name exists.
	TableExists(ctx context.Context, table string) (bool, error)

	// Columns returns the columns of table in ordinal order. A missing
	// table yields an ErrKindNotFound error.
	Columns(ctx context.Context, table string) ([]Column, error)

	// PrimaryKey returns the first primary key column of table, or "" when
	// the table has none.
	PrimaryKey(ctx context.Context, table string) (string, error)
}
