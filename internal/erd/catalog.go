package erd

import (
	"context"
	"slices"

	"github.com/koustreak/modelerd/internal/database"
	"github.com/koustreak/modelerd/internal/errs"
	"github.com/koustreak/modelerd/internal/metadata"
)

// Catalog is an Introspector backed by declared metadata instead of a live
// database: every concrete model's table exists with its declared columns,
// plus any extra tables (typically join tables).
type Catalog struct {
	tables map[string][]database.Column
}

var _ Introspector = (*Catalog)(nil)

// NewCatalog builds a catalog from models and extra table declarations.
// When a table is declared twice the first declaration wins.
func NewCatalog(models []*metadata.Model, extra []metadata.Table) *Catalog {
	c := &Catalog{tables: make(map[string][]database.Column)}
	for _, m := range metadata.ConcreteModels(models) {
		if m.Table == "" {
			continue
		}
		c.add(m.Table, m.Columns, primaryKeyOf(m))
	}
	for _, t := range extra {
		c.add(t.Name, t.Columns, "")
	}
	return c
}

func (c *Catalog) add(table string, cols []metadata.Column, pk string) {
	if _, ok := c.tables[table]; ok {
		return
	}
	out := make([]database.Column, 0, len(cols))
	for _, col := range cols {
		out = append(out, database.Column{
			Name:      col.Name,
			DataType:  col.SQLType,
			Nullable:  col.Nullable,
			IsPrimary: col.Name == pk,
		})
	}
	c.tables[table] = out
}

// TableExists reports whether table was declared.
func (c *Catalog) TableExists(_ context.Context, table string) (bool, error) {
	_, ok := c.tables[table]
	return ok, nil
}

// Columns returns the declared columns of table.
func (c *Catalog) Columns(_ context.Context, table string) ([]database.Column, error) {
	cols, ok := c.tables[table]
	if !ok {
		return nil, errs.Newf(errs.ErrKindNotFound, "table %q is not declared", table)
	}
	return slices.Clone(cols), nil
}
