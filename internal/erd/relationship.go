// Package erd turns model and association metadata into an entity
// relationship graph: tables with annotated columns, foreign-key edges
// between them, and a diagnostics log of every association that could not
// be drawn.
//
// A build runs in two passes. The Collector gathers table schemas and
// partitions associations; the Registry runs the per-kind builders and the
// polymorphic resolver; the Collector then backfills FK annotations from the
// finished edge list. Generator wires the passes together.
package erd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/koustreak/modelerd/internal/metadata"
)

// Diagram symbols for each association kind.
const (
	SymbolOneToMany = "||--o{"
	SymbolOneToOne  = "||--||"
	SymbolManyToOne = "}o--||"
	SymbolDefault   = "--"
)

// SymbolFor maps an association kind to its relationship symbol.
func SymbolFor(kind metadata.Kind) string {
	switch kind {
	case metadata.HasMany:
		return SymbolOneToMany
	case metadata.HasOne:
		return SymbolOneToOne
	case metadata.BelongsTo:
		return SymbolManyToOne
	default:
		return SymbolDefault
	}
}

const keySeparator = "::"

// Relationship is one foreign-key edge between two tables.
type Relationship struct {
	FromTable     string `json:"from_table"`
	ToTable       string `json:"to_table"`
	ForeignKey    string `json:"foreign_key"`
	Type          string `json:"relationship_type"`
	Label         string `json:"label"`
	FKTable       string `json:"fk_table"`
	FKColumn      string `json:"fk_column"`
	PKTable       string `json:"pk_table"`
	PKColumn      string `json:"pk_column"`
	IsPolymorphic bool   `json:"is_polymorphic"`
	ExtraLabel    string `json:"extra_label,omitempty"`
}

// NewRelationship fills unset fields of r and derives its label.
// FKTable defaults to FromTable, FKColumn to ForeignKey, PKTable to ToTable
// and PKColumn to "id".
func NewRelationship(r Relationship) *Relationship {
	if r.FKTable == "" {
		r.FKTable = r.FromTable
	}
	if r.FKColumn == "" {
		r.FKColumn = r.ForeignKey
	}
	if r.PKTable == "" {
		r.PKTable = r.ToTable
	}
	if r.PKColumn == "" {
		r.PKColumn = metadata.DefaultPrimaryKey
	}
	if r.Label == "" {
		r.Label = fmt.Sprintf("%s.%s FK → %s.%s PK", r.FKTable, r.FKColumn, r.PKTable, r.PKColumn)
		if r.ExtraLabel != "" {
			r.Label += " (" + r.ExtraLabel + ")"
		}
	}
	return &r
}

// Key is the order-independent identity used to drop duplicate edges.
func (r *Relationship) Key() string {
	return sortedKey(r.FromTable, r.ToTable, r.ForeignKey)
}

// OneToOneKey identifies a one-to-one edge between two tables regardless of
// which side declared it.
func OneToOneKey(a, b string) string {
	return sortedKey(a, b, "1:1")
}

func sortedKey(parts ...string) string {
	sort.Strings(parts)
	return strings.Join(parts, keySeparator)
}

// UniqueRelationships drops every relationship whose Key was already seen,
// keeping the first.
func UniqueRelationships(rels []*Relationship) []*Relationship {
	seen := make(map[string]struct{}, len(rels))
	out := make([]*Relationship, 0, len(rels))
	for _, r := range rels {
		k := r.Key()
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, r)
	}
	return out
}
