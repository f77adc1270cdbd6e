package erd

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/koustreak/modelerd/internal/errs"
	"github.com/koustreak/modelerd/internal/logger"
	"github.com/koustreak/modelerd/internal/metadata"
)

// PrimaryKeyer is implemented by introspectors that can report a table's
// primary key. The generator uses it for models that do not declare one.
type PrimaryKeyer interface {
	PrimaryKey(ctx context.Context, table string) (string, error)
}

// manifestLoader is implemented by sources that also declare bare tables.
type manifestLoader interface {
	Manifest(ctx context.Context) (*metadata.Manifest, error)
}

// Result is the output of one build.
type Result struct {
	BuildID       string            `json:"build_id"`
	GeneratedAt   time.Time         `json:"generated_at"`
	Tables        *TableSchema      `json:"tables"`
	Relationships []*Relationship   `json:"relationships"`
	Diagnostics   Diagnostics       `json:"diagnostics"`
	Models        []*metadata.Model `json:"-"`
}

// Diagnostics explains what a build skipped and how it partitioned
// associations. Associations are listed by "Model#association" label.
type Diagnostics struct {
	InvalidAssociations     []InvalidAssociation `json:"invalid_associations"`
	PolymorphicAssociations []string             `json:"polymorphic_associations"`
	RegularAssociations     []string             `json:"regular_associations"`
	ModelsWithoutTables     []string             `json:"models_without_tables"`
}

// UniqueRelationships returns the relationships deduplicated by Key.
func (r *Result) UniqueRelationships() []*Relationship {
	return UniqueRelationships(r.Relationships)
}

// Generator runs full builds. It holds no per-build state, so concurrent
// Build calls are safe as long as the source and introspector are.
type Generator struct {
	source       metadata.Source
	introspector Introspector
	log          *logger.Logger
}

// NewGenerator returns a generator reading models from source. A nil
// introspector makes every build answer schema questions from the loaded
// metadata through a Catalog.
func NewGenerator(source metadata.Source, in Introspector, log *logger.Logger) *Generator {
	if log == nil {
		log = logger.Nop()
	}
	return &Generator{source: source, introspector: in, log: log}
}

// Build loads metadata and produces tables, relationships and diagnostics.
// The only error is ErrKindMetadataSourceUnavailable; every per-association
// problem ends up in Diagnostics instead.
func (g *Generator) Build(ctx context.Context) (*Result, error) {
	start := time.Now()
	buildID := uuid.NewString()
	log := g.logFor(ctx).With().Str("build_id", buildID).Logger()

	models, tables, err := g.load(ctx)
	if err != nil {
		if !errs.IsMetadataSourceUnavailable(err) {
			err = errs.Wrap(errs.ErrKindMetadataSourceUnavailable, "cannot load model metadata", err)
		}
		log.ErrorWith("build failed", err, nil)
		return nil, err
	}

	in := g.introspector
	if in == nil {
		in = NewCatalog(models, tables)
	}
	models = g.withPrimaryKeys(ctx, log, in, models)

	collector := NewCollector(in, log).Collect(ctx, models)
	registry := NewRegistry(collector, NewResolver(models), log)
	rels := registry.BuildAll(ctx, in)
	collector.BackfillForeignKeys(rels)

	res := &Result{
		BuildID:       buildID,
		GeneratedAt:   start.UTC(),
		Tables:        collector.Tables(),
		Relationships: nonNil(rels),
		Models:        collector.Models(),
		Diagnostics: Diagnostics{
			InvalidAssociations:     nonNil(collector.InvalidAssociations()),
			PolymorphicAssociations: labels(collector.PolymorphicAssociations()),
			RegularAssociations:     labels(collector.RegularAssociations()),
			ModelsWithoutTables:     nonNil(collector.ModelsWithoutTables()),
		},
	}

	log.InfoWith("build complete", map[string]any{
		"models":               len(res.Models),
		"tables":               res.Tables.Len(),
		"relationships":        len(rels),
		"invalid_associations": len(res.Diagnostics.InvalidAssociations),
		"duration_ms":          time.Since(start).Milliseconds(),
	})
	return res, nil
}

// logFor prefers a logger carried by ctx, such as a request-scoped one.
func (g *Generator) logFor(ctx context.Context) *logger.Logger {
	if zerolog.Ctx(ctx).GetLevel() != zerolog.Disabled {
		return logger.FromContext(ctx)
	}
	return g.log
}

func (g *Generator) load(ctx context.Context) ([]*metadata.Model, []metadata.Table, error) {
	if ml, ok := g.source.(manifestLoader); ok {
		m, err := ml.Manifest(ctx)
		if err != nil {
			return nil, nil, err
		}
		return m.Models, m.Tables, nil
	}
	models, err := g.source.Models(ctx)
	return models, nil, err
}

// withPrimaryKeys fills missing primary keys from the introspector. Models
// are copied so the source's values are never mutated.
func (g *Generator) withPrimaryKeys(ctx context.Context, log *logger.Logger, in Introspector, models []*metadata.Model) []*metadata.Model {
	pker, ok := in.(PrimaryKeyer)
	if !ok {
		return models
	}

	out := make([]*metadata.Model, len(models))
	for i, m := range models {
		out[i] = m
		if m == nil || m.Abstract || m.PrimaryKey != "" || m.Table == "" {
			continue
		}
		pk, err := pker.PrimaryKey(ctx, m.Table)
		if err != nil {
			log.With().Str("model", m.Name).Err(err).Logger().Debug("primary key lookup failed")
			continue
		}
		if pk != "" {
			cp := *m
			cp.PrimaryKey = pk
			out[i] = &cp
		}
	}
	return out
}

func labels(refs []AssociationRef) []string {
	out := make([]string, 0, len(refs))
	for _, r := range refs {
		out = append(out, r.Model.Name+"#"+r.Association.Name)
	}
	return out
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
