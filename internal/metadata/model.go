// Package metadata describes mapped ORM models the way the ERD core consumes
// them: models with a backing table, ordered columns, and declared
// associations. A Source enumerates models; the manifest source reads them
// from YAML.
package metadata

import (
	"sort"
	"strings"

	"github.com/koustreak/modelerd/internal/errs"
)

// DefaultPrimaryKey is the conventional primary key column.
const DefaultPrimaryKey = "id"

// Column describes one mapped column.
type Column struct {
	Name     string `yaml:"name" json:"name" validate:"required"`
	SQLType  string `yaml:"sql_type" json:"sql_type"` // raw storage type, e.g. "varchar(255)"
	Type     string `yaml:"type" json:"type"`         // semantic type, e.g. "string"
	Nullable bool   `yaml:"nullable" json:"nullable"`
}

// Model identifies a mapped entity.
type Model struct {
	Name       string `yaml:"name" json:"name" validate:"required"`
	Table      string `yaml:"table" json:"table"`
	PrimaryKey string `yaml:"primary_key" json:"primary_key"`

	// BaseClass names the root of a single-table-inheritance hierarchy.
	// Empty or equal to Name for base models.
	BaseClass string `yaml:"base_class,omitempty" json:"base_class,omitempty"`
	Abstract  bool   `yaml:"abstract,omitempty" json:"abstract,omitempty"`

	Columns      []Column       `yaml:"columns" json:"columns" validate:"dive"`
	Associations []*Association `yaml:"associations" json:"associations" validate:"dive,required"`
}

// IsBaseModel reports whether m is the root of its inheritance hierarchy.
func (m *Model) IsBaseModel() bool {
	return m.BaseClass == "" || m.BaseClass == m.Name
}

// Association is a fixed-shape association descriptor.
type Association struct {
	Kind Kind   `yaml:"kind" json:"kind"`
	Name string `yaml:"name" json:"name" validate:"required"`

	ClassName             string `yaml:"class_name,omitempty" json:"class_name,omitempty"`
	TableName             string `yaml:"table_name,omitempty" json:"table_name,omitempty"`
	ForeignKey            string `yaml:"foreign_key,omitempty" json:"foreign_key,omitempty"`
	AssociationForeignKey string `yaml:"association_foreign_key,omitempty" json:"association_foreign_key,omitempty"`
	JoinTable             string `yaml:"join_table,omitempty" json:"join_table,omitempty"`

	// As names the polymorphic interface the owner implements.
	As string `yaml:"as,omitempty" json:"as,omitempty"`
	// Polymorphic marks an association whose target is any implementer of
	// the interface named after the association.
	Polymorphic bool `yaml:"polymorphic,omitempty" json:"polymorphic,omitempty"`
	// Through marks a derived association with no direct foreign key.
	Through bool `yaml:"through,omitempty" json:"through,omitempty"`
}

// ClassNameGuess returns the explicit class name or the one implied by the
// association name.
func (a *Association) ClassNameGuess() string {
	if a.ClassName != "" {
		return a.ClassName
	}
	return Classify(a.Name)
}

// ForeignKeyFor returns the foreign key column of a, as declared on owner.
// For many-to-many associations this is the owner-side join column.
func (a *Association) ForeignKeyFor(owner *Model) (string, error) {
	if a.Through {
		return "", errs.Newf(errs.ErrKindUnresolvableForeignKey,
			"%s is a through association and has no direct foreign key", a.Name)
	}
	if a.ForeignKey != "" {
		return a.ForeignKey, nil
	}

	switch a.Kind {
	case BelongsTo:
		if a.Name == "" {
			return "", errs.New(errs.ErrKindUnresolvableForeignKey, "belongs_to association has no name")
		}
		return Underscore(a.Name) + "_id", nil
	case HasMany, HasOne, ManyToMany:
		if a.As != "" && a.Kind != ManyToMany {
			return a.As + "_id", nil
		}
		if owner == nil || owner.Name == "" {
			return "", errs.Newf(errs.ErrKindUnresolvableForeignKey,
				"cannot derive foreign key for %s without an owner model", a.Name)
		}
		return ForeignKeyName(owner.Name), nil
	default:
		return "", errs.Newf(errs.ErrKindUnresolvableForeignKey,
			"unsupported association kind %q", a.Kind)
	}
}

// AssociationForeignKeyFor returns the associated-side join column of a
// many-to-many association.
func (a *Association) AssociationForeignKeyFor() (string, error) {
	if a.AssociationForeignKey != "" {
		return a.AssociationForeignKey, nil
	}
	if a.Kind != ManyToMany {
		return "", errs.Newf(errs.ErrKindUnresolvableForeignKey,
			"%s is not a many-to-many association", a.Name)
	}
	if a.ClassName == "" && a.Name == "" {
		return "", errs.New(errs.ErrKindUnresolvableForeignKey,
			"association has neither a name nor a class name")
	}
	return ForeignKeyName(a.ClassNameGuess()), nil
}

// JoinTableFor returns the join table of a many-to-many association. Without
// an explicit name, the two table names are sorted and joined with "_".
func (a *Association) JoinTableFor(ownerTable, targetTable string) string {
	if a.JoinTable != "" {
		return a.JoinTable
	}
	names := []string{ownerTable, targetTable}
	sort.Strings(names)
	return strings.Join(names, "_")
}

// ConcreteModels drops abstract models, keeping order.
func ConcreteModels(models []*Model) []*Model {
	out := make([]*Model, 0, len(models))
	for _, m := range models {
		if m != nil && !m.Abstract {
			out = append(out, m)
		}
	}
	return out
}
