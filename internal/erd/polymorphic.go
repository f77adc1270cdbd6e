package erd

import (
	"github.com/koustreak/modelerd/internal/metadata"
)

// PolymorphicRegistry maps an interface name to the models that declared
// themselves implementers with `as: <interface>`.
type PolymorphicRegistry struct {
	targets map[string][]*metadata.Model
}

// NewPolymorphicRegistry returns an empty registry.
func NewPolymorphicRegistry() *PolymorphicRegistry {
	return &PolymorphicRegistry{targets: make(map[string][]*metadata.Model)}
}

// Register appends model to the implementers of iface, ignoring repeats.
func (p *PolymorphicRegistry) Register(iface string, model *metadata.Model) {
	for _, m := range p.targets[iface] {
		if m == model {
			return
		}
	}
	p.targets[iface] = append(p.targets[iface], model)
}

// TargetsFor returns the implementers of iface in registration order.
func (p *PolymorphicRegistry) TargetsFor(iface string) []*metadata.Model {
	return p.targets[iface]
}

// Reset forgets every registration.
func (p *PolymorphicRegistry) Reset() {
	p.targets = make(map[string][]*metadata.Model)
}

// PolymorphicResolver expands a polymorphic association into one edge per
// implementer.
type PolymorphicResolver struct {
	registry *PolymorphicRegistry
}

// NewPolymorphicResolver reads implementers from registry.
func NewPolymorphicResolver(registry *PolymorphicRegistry) *PolymorphicResolver {
	return &PolymorphicResolver{registry: registry}
}

// Resolve returns one relationship from fromTable to each implementer of
// iface. An unknown interface yields no relationships.
func (pr *PolymorphicResolver) Resolve(iface, fromTable, symbol string) []*Relationship {
	targets := pr.registry.TargetsFor(iface)
	if len(targets) == 0 {
		return nil
	}

	fk := iface + "_id"
	rels := make([]*Relationship, 0, len(targets))
	for _, target := range targets {
		rels = append(rels, NewRelationship(Relationship{
			FromTable:     fromTable,
			ToTable:       target.Table,
			ForeignKey:    fk,
			Type:          symbol,
			FKTable:       fromTable,
			FKColumn:      fk,
			PKTable:       target.Table,
			PKColumn:      metadata.DefaultPrimaryKey,
			IsPolymorphic: true,
			ExtraLabel:    "polymorphic",
		}))
	}
	return rels
}
