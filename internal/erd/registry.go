package erd

import (
	"context"

	"github.com/koustreak/modelerd/internal/logger"
	"github.com/koustreak/modelerd/internal/metadata"
)

// Registry runs the builders over a collector's associations and
// concatenates their output. It does not dedupe by Key; consumers do.
type Registry struct {
	collector   *Collector
	polymorphic *PolymorphicResolver
	builders    map[metadata.Kind]Builder
	log         *logger.Logger
}

// NewRegistry wires the default builders for the collector's models.
func NewRegistry(collector *Collector, resolver *Resolver, log *logger.Logger) *Registry {
	if log == nil {
		log = logger.Nop()
	}
	return &Registry{
		collector:   collector,
		polymorphic: NewPolymorphicResolver(collector.PolymorphicRegistry()),
		builders:    DefaultBuilders(resolver),
		log:         log,
	}
}

// BuildAll expands polymorphic associations first, then runs the per-kind
// builders over regular ones. Each failure becomes one invalid-association
// record on the collector; the build always continues.
func (r *Registry) BuildAll(ctx context.Context, in Introspector) []*Relationship {
	bc := NewBuildContext(in)
	var rels []*Relationship

	for _, ref := range r.collector.PolymorphicAssociations() {
		symbol := SymbolFor(ref.Association.Kind)
		rels = append(rels, r.polymorphic.Resolve(ref.Association.Name, ref.Model.Table, symbol)...)
	}

	for _, ref := range r.collector.RegularAssociations() {
		rels = append(rels, r.Build(ctx, bc, ref.Model, ref.Association)...)
	}
	return rels
}

// Build dispatches one regular association to its builder. Unknown kinds
// produce nothing.
func (r *Registry) Build(ctx context.Context, bc *BuildContext, model *metadata.Model, assoc *metadata.Association) []*Relationship {
	builder, ok := r.builders[assoc.Kind]
	if !ok {
		r.log.With().Str("model", model.Name).Str("association", assoc.Name).Str("kind", assoc.Kind.String()).Logger().
			Debug("no builder for association kind")
		return nil
	}

	out := builder.Build(ctx, bc, model, assoc)
	if out.Failed() {
		ia := r.collector.RegisterInvalidAssociation(model, assoc, out.Failure)
		r.log.With().
			Str("model", ia.Model).
			Str("association", ia.Association).
			Str("kind", ia.Kind.String()).
			Logger().
			Warnf("could not create relationship for %s: %s", ia.Label(), ia.Reason)
		return nil
	}
	return out.Relationships
}
