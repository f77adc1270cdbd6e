package erd

import (
	"context"
	"errors"

	"github.com/koustreak/modelerd/internal/errs"
	"github.com/koustreak/modelerd/internal/metadata"
)

// Builder turns one regular association into relationships. Builders never
// log or record diagnostics themselves; a failure is returned in the Outcome.
type Builder interface {
	Build(ctx context.Context, bc *BuildContext, model *metadata.Model, assoc *metadata.Association) Outcome
}

// DefaultBuilders returns the builder for each association kind.
func DefaultBuilders(resolver *Resolver) map[metadata.Kind]Builder {
	return map[metadata.Kind]Builder{
		metadata.BelongsTo:  &BelongsToBuilder{resolver: resolver},
		metadata.HasMany:    &HasManyBuilder{resolver: resolver},
		metadata.HasOne:     &HasOneBuilder{resolver: resolver},
		metadata.ManyToMany: &ManyToManyBuilder{resolver: resolver},
	}
}

// BelongsToBuilder draws source → target with the key on the source table.
type BelongsToBuilder struct {
	resolver *Resolver
}

func (b *BelongsToBuilder) Build(ctx context.Context, bc *BuildContext, model *metadata.Model, assoc *metadata.Association) Outcome {
	fk, failure := foreignKey(model, assoc)
	if failure != nil {
		return fail(failure)
	}

	target, err := b.resolver.Resolve(ctx, bc, model, assoc)
	if err != nil {
		return fail(asError(err, errs.ErrKindUnresolvableTargetModel))
	}
	if !claimOneToOne(bc, model, assoc, target) {
		return succeed()
	}

	return succeed(NewRelationship(Relationship{
		FromTable:  model.Table,
		ToTable:    target.TableName,
		ForeignKey: fk,
		Type:       SymbolFor(metadata.BelongsTo),
		FKTable:    model.Table,
		FKColumn:   fk,
		PKTable:    target.TableName,
		PKColumn:   target.PrimaryKey,
	}))
}

// HasManyBuilder draws target → source: the edge starts at the "many" side,
// which holds the key.
type HasManyBuilder struct {
	resolver *Resolver
}

func (b *HasManyBuilder) Build(ctx context.Context, bc *BuildContext, model *metadata.Model, assoc *metadata.Association) Outcome {
	fk, failure := foreignKey(model, assoc)
	if failure != nil {
		return fail(failure)
	}

	target, err := b.resolver.Resolve(ctx, bc, model, assoc)
	if err != nil {
		return fail(asError(err, errs.ErrKindUnresolvableTargetModel))
	}

	return succeed(NewRelationship(Relationship{
		FromTable:  target.TableName,
		ToTable:    model.Table,
		ForeignKey: fk,
		Type:       SymbolManyToOne,
		FKTable:    target.TableName,
		FKColumn:   fk,
		PKTable:    model.Table,
		PKColumn:   primaryKeyOf(model),
	}))
}

// HasOneBuilder draws source → target with the key on the target table.
type HasOneBuilder struct {
	resolver *Resolver
}

func (b *HasOneBuilder) Build(ctx context.Context, bc *BuildContext, model *metadata.Model, assoc *metadata.Association) Outcome {
	fk, failure := foreignKey(model, assoc)
	if failure != nil {
		return fail(failure)
	}

	target, err := b.resolver.Resolve(ctx, bc, model, assoc)
	if err != nil {
		return fail(asError(err, errs.ErrKindUnresolvableTargetModel))
	}
	if !claimOneToOne(bc, model, assoc, target) {
		return succeed()
	}

	return succeed(NewRelationship(Relationship{
		FromTable:  model.Table,
		ToTable:    target.TableName,
		ForeignKey: fk,
		Type:       SymbolFor(metadata.HasOne),
		FKTable:    target.TableName,
		FKColumn:   fk,
		PKTable:    model.Table,
		PKColumn:   primaryKeyOf(model),
	}))
}

// ManyToManyBuilder draws two edges out of the join table, one to each side.
// Either both are emitted or neither.
type ManyToManyBuilder struct {
	resolver *Resolver
}

func (b *ManyToManyBuilder) Build(ctx context.Context, bc *BuildContext, model *metadata.Model, assoc *metadata.Association) Outcome {
	if assoc.Through {
		return fail(errs.New(errs.ErrKindUnresolvableForeignKey, "through associations not supported"))
	}

	target, err := b.resolver.Resolve(ctx, bc, model, assoc)
	if err != nil {
		return fail(asError(err, errs.ErrKindUnresolvableTargetModel))
	}

	join := assoc.JoinTableFor(model.Table, target.TableName)
	exists, err := bc.TableExists(ctx, join)
	if err != nil {
		return fail(errs.Wrap(errs.ErrKindMissingJoinTable, "join table "+join+" is missing", err))
	}
	if !exists {
		return fail(errs.New(errs.ErrKindMissingJoinTable, "join table "+join+" is missing"))
	}

	ownerFK, err := assoc.ForeignKeyFor(model)
	if err != nil {
		return fail(errs.Wrap(errs.ErrKindUnresolvableForeignKey, "could not determine foreign keys", err))
	}
	targetFK, err := assoc.AssociationForeignKeyFor()
	if err != nil {
		return fail(errs.Wrap(errs.ErrKindUnresolvableForeignKey, "could not determine foreign keys", err))
	}

	return succeed(
		NewRelationship(Relationship{
			FromTable:  join,
			ToTable:    model.Table,
			ForeignKey: ownerFK,
			Type:       SymbolManyToOne,
			PKColumn:   primaryKeyOf(model),
		}),
		NewRelationship(Relationship{
			FromTable:  join,
			ToTable:    target.TableName,
			ForeignKey: targetFK,
			Type:       SymbolManyToOne,
			PKColumn:   target.PrimaryKey,
		}),
	)
}

// foreignKey applies the checks shared by the single-key builders.
func foreignKey(model *metadata.Model, assoc *metadata.Association) (string, *errs.Error) {
	if assoc.Through {
		return "", errs.New(errs.ErrKindUnresolvableForeignKey, "through associations not supported")
	}
	fk, err := assoc.ForeignKeyFor(model)
	if err != nil {
		return "", errs.Wrap(errs.ErrKindUnresolvableForeignKey, "cannot determine foreign key", err)
	}
	return fk, nil
}

// claimOneToOne reports whether a has_one / belongs_to edge between model
// and target should be emitted. Polymorphic associations are never deduped.
func claimOneToOne(bc *BuildContext, model *metadata.Model, assoc *metadata.Association, target TableRef) bool {
	if assoc.Kind != metadata.HasOne && assoc.Kind != metadata.BelongsTo {
		return true
	}
	if assoc.Polymorphic {
		return true
	}
	return bc.ClaimOneToOne(model.Table, target.TableName)
}

func asError(err error, fallback errs.ErrKind) *errs.Error {
	var e *errs.Error
	if errors.As(err, &e) {
		return e
	}
	return errs.Wrap(fallback, "unexpected resolution error", err)
}
