package erd

import (
	"context"

	"github.com/koustreak/modelerd/internal/database"
	"github.com/koustreak/modelerd/internal/errs"
	"github.com/koustreak/modelerd/internal/logger"
	"github.com/koustreak/modelerd/internal/metadata"
)

// AssociationRef pairs an association with the model declaring it.
type AssociationRef struct {
	Model       *metadata.Model
	Association *metadata.Association
}

// ModelData is what the collector recorded about one eligible model.
type ModelData struct {
	Model        *metadata.Model
	Associations []*metadata.Association
}

// Collector gathers table schemas and association partitions for a build,
// keeps the invalid-association log, and backfills FK annotations once all
// relationships are known.
type Collector struct {
	introspector Introspector
	log          *logger.Logger

	tables              *TableSchema
	polymorphic         *PolymorphicRegistry
	models              []*metadata.Model
	modelData           map[string]*ModelData
	polymorphicAssocs   []AssociationRef
	regularAssocs       []AssociationRef
	modelsWithoutTables []string
	invalid             []InvalidAssociation
}

// NewCollector returns an empty collector reading schema from in.
func NewCollector(in Introspector, log *logger.Logger) *Collector {
	if log == nil {
		log = logger.Nop()
	}
	return &Collector{
		introspector: in,
		log:          log,
		tables:       NewTableSchema(),
		polymorphic:  NewPolymorphicRegistry(),
		modelData:    make(map[string]*ModelData),
	}
}

// Collect runs the collection pass over models. Abstract models and
// inheritance subclasses are skipped; base models without an existing table
// are listed in ModelsWithoutTables.
func (c *Collector) Collect(ctx context.Context, models []*metadata.Model) *Collector {
	for _, model := range metadata.ConcreteModels(models) {
		if !model.IsBaseModel() {
			continue
		}
		if !c.hasTable(ctx, model) {
			c.modelsWithoutTables = append(c.modelsWithoutTables, model.Name)
			continue
		}

		data := &ModelData{Model: model}
		for _, assoc := range model.Associations {
			if assoc.As != "" {
				c.polymorphic.Register(assoc.As, model)
			}
			ref := AssociationRef{Model: model, Association: assoc}
			if assoc.Polymorphic {
				c.polymorphicAssocs = append(c.polymorphicAssocs, ref)
			} else {
				c.regularAssocs = append(c.regularAssocs, ref)
			}
			data.Associations = append(data.Associations, assoc)
		}
		c.models = append(c.models, model)
		c.modelData[model.Name] = data

		c.collectTable(ctx, model)
	}
	return c
}

func (c *Collector) hasTable(ctx context.Context, model *metadata.Model) bool {
	if model.Table == "" {
		return false
	}
	ok, err := c.introspector.TableExists(ctx, model.Table)
	if err != nil {
		c.log.With().Str("model", model.Name).Str("table", model.Table).Err(err).Logger().
			Warn("cannot check table existence, skipping model")
		return false
	}
	return ok
}

// collectTable records the columns of model's table unless another model
// already did.
func (c *Collector) collectTable(ctx context.Context, model *metadata.Model) {
	if c.tables.Has(model.Table) {
		return
	}
	pk := primaryKeyOf(model)

	var cols []*ColumnInfo
	if len(model.Columns) > 0 {
		for _, col := range model.Columns {
			semantic := col.Type
			if semantic == "" {
				semantic = database.SemanticType(col.SQLType)
			}
			cols = append(cols, newColumnInfo(col.Name, col.SQLType, semantic, col.Nullable, pk))
		}
	} else {
		dbCols, err := c.introspector.Columns(ctx, model.Table)
		if err != nil {
			c.log.With().Str("model", model.Name).Str("table", model.Table).Err(err).Logger().
				Warn("cannot list columns, table will be empty")
		}
		for _, col := range dbCols {
			cols = append(cols, newColumnInfo(col.Name, col.DataType, col.SemanticType(), col.Nullable, pk))
		}
	}
	c.tables.Set(model.Table, cols)
}

func newColumnInfo(name, rawType, semantic string, nullable bool, pk string) *ColumnInfo {
	col := &ColumnInfo{
		Name:         name,
		Annotations:  []string{},
		RawType:      rawType,
		SemanticType: semantic,
		Nullable:     nullable,
	}
	if name == pk {
		col.Annotate(AnnotationPK)
	}
	return col
}

// BackfillForeignKeys annotates every column named as a relationship's
// fk_column on its fk_table with FK. It returns the number of columns that
// gained the annotation, so a second run with the same input returns 0.
func (c *Collector) BackfillForeignKeys(rels []*Relationship) int {
	fkColumns := make(map[string]map[string]struct{})
	for _, r := range rels {
		if fkColumns[r.FKTable] == nil {
			fkColumns[r.FKTable] = make(map[string]struct{})
		}
		fkColumns[r.FKTable][r.FKColumn] = struct{}{}
	}

	changed := 0
	for table, names := range fkColumns {
		for _, col := range c.tables.Columns(table) {
			if _, ok := names[col.Name]; ok && col.Annotate(AnnotationFK) {
				changed++
			}
		}
	}
	return changed
}

// RegisterInvalidAssociation appends a record for assoc on model. The kind
// comes from err when it is an *errs.Error.
func (c *Collector) RegisterInvalidAssociation(model *metadata.Model, assoc *metadata.Association, err error) InvalidAssociation {
	ia := InvalidAssociation{
		Model:       model.Name,
		Association: assoc.Name,
		Kind:        errs.KindOf(err),
		Reason:      reasonOf(err),
	}
	c.invalid = append(c.invalid, ia)
	return ia
}

// InvalidAssociations returns the invalid-association log in order.
func (c *Collector) InvalidAssociations() []InvalidAssociation {
	return c.invalid
}

// PolymorphicTargetsFor returns the implementers of iface.
func (c *Collector) PolymorphicTargetsFor(iface string) []*metadata.Model {
	return c.polymorphic.TargetsFor(iface)
}

// ResetPolymorphicTargets clears interface registrations.
func (c *Collector) ResetPolymorphicTargets() {
	c.polymorphic.Reset()
}

// PolymorphicRegistry exposes the interface registry for the resolver.
func (c *Collector) PolymorphicRegistry() *PolymorphicRegistry {
	return c.polymorphic
}

// ModelData returns what was collected for the named model.
func (c *Collector) ModelData(name string) (*ModelData, bool) {
	d, ok := c.modelData[name]
	return d, ok
}

// Models returns the eligible models in collection order.
func (c *Collector) Models() []*metadata.Model { return c.models }

// Tables returns the collected table schema.
func (c *Collector) Tables() *TableSchema { return c.tables }

// PolymorphicAssociations returns associations flagged polymorphic.
func (c *Collector) PolymorphicAssociations() []AssociationRef { return c.polymorphicAssocs }

// RegularAssociations returns all other associations.
func (c *Collector) RegularAssociations() []AssociationRef { return c.regularAssocs }

// ModelsWithoutTables lists base models whose table is missing.
func (c *Collector) ModelsWithoutTables() []string { return c.modelsWithoutTables }
