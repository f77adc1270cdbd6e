package erd

import (
	"context"
	"fmt"

	"github.com/koustreak/modelerd/internal/errs"
	"github.com/koustreak/modelerd/internal/metadata"
)

// Resolver finds the target table of an association.
type Resolver struct {
	byName  map[string]*metadata.Model
	byTable map[string]*metadata.Model
}

// NewResolver indexes models by class name and table. Abstract models are
// skipped; the first model mapping a table owns it.
func NewResolver(models []*metadata.Model) *Resolver {
	r := &Resolver{
		byName:  make(map[string]*metadata.Model, len(models)),
		byTable: make(map[string]*metadata.Model, len(models)),
	}
	for _, m := range metadata.ConcreteModels(models) {
		r.byName[m.Name] = m
		if _, taken := r.byTable[m.Table]; !taken && m.Table != "" {
			r.byTable[m.Table] = m
		}
	}
	return r
}

// Model looks a model up by class name.
func (r *Resolver) Model(name string) (*metadata.Model, bool) {
	m, ok := r.byName[name]
	return m, ok
}

// Resolve returns the table and primary key targeted by assoc, declared on
// owner. It tries, in order: the explicit table name, the explicit class
// name, the class implied by the association name, those classes inside the
// owner's namespace, and finally a bare table whose name follows convention.
// Failures carry ErrKindUnresolvableTargetModel.
func (r *Resolver) Resolve(ctx context.Context, bc *BuildContext, owner *metadata.Model, assoc *metadata.Association) (TableRef, error) {
	if assoc.TableName != "" {
		if m, ok := r.byTable[assoc.TableName]; ok {
			return r.modelRef(ctx, bc, m)
		}
	}

	for _, name := range r.classCandidates(owner, assoc) {
		if m, ok := r.byName[name]; ok {
			return r.modelRef(ctx, bc, m)
		}
	}

	for _, table := range tableCandidates(assoc) {
		ok, err := bc.TableExists(ctx, table)
		if err != nil {
			return TableRef{}, errs.Wrap(errs.ErrKindUnresolvableTargetModel,
				fmt.Sprintf("cannot check table %s", table), err)
		}
		if ok {
			return TableRef{TableName: table, PrimaryKey: metadata.DefaultPrimaryKey}, nil
		}
	}

	return TableRef{}, errs.New(errs.ErrKindUnresolvableTargetModel, "target model does not exist")
}

func (r *Resolver) modelRef(ctx context.Context, bc *BuildContext, m *metadata.Model) (TableRef, error) {
	ok, err := bc.TableExists(ctx, m.Table)
	if err != nil {
		return TableRef{}, errs.Wrap(errs.ErrKindUnresolvableTargetModel,
			fmt.Sprintf("cannot check table %s", m.Table), err)
	}
	if !ok {
		return TableRef{}, errs.Newf(errs.ErrKindUnresolvableTargetModel, "table %s does not exist", m.Table)
	}
	return TableRef{TableName: m.Table, PrimaryKey: primaryKeyOf(m)}, nil
}

func (r *Resolver) classCandidates(owner *metadata.Model, assoc *metadata.Association) []string {
	var names []string
	if assoc.ClassName != "" {
		names = append(names, assoc.ClassName)
	}
	if assoc.Name != "" {
		names = append(names, metadata.Classify(assoc.Name))
	}

	if owner != nil {
		if ns := metadata.Namespace(owner.Name); ns != "" {
			for _, n := range names {
				if metadata.Namespace(n) == "" {
					names = append(names, ns+metadata.NamespaceSeparator+n)
				}
			}
		}
	}
	return dedupe(names)
}

func tableCandidates(assoc *metadata.Association) []string {
	var tables []string
	if assoc.TableName != "" {
		tables = append(tables, assoc.TableName)
	}
	if assoc.ClassName != "" {
		tables = append(tables, metadata.Tableize(assoc.ClassName))
	}
	if assoc.Name != "" {
		tables = append(tables, metadata.Tableize(assoc.Name))
	}
	return dedupe(tables)
}

func primaryKeyOf(m *metadata.Model) string {
	if m.PrimaryKey != "" {
		return m.PrimaryKey
	}
	return metadata.DefaultPrimaryKey
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := in[:0]
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
