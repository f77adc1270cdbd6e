package erd

import (
	"context"
	"errors"

	"github.com/koustreak/modelerd/internal/database"
	"github.com/koustreak/modelerd/internal/errs"
)

// Introspector answers the two schema questions the core asks. database.DB
// drivers satisfy it, as does Catalog.
type Introspector interface {
	TableExists(ctx context.Context, table string) (bool, error)
	Columns(ctx context.Context, table string) ([]database.Column, error)
}

// BuildContext holds the mutable state of one build: the one-to-one dedup
// set and the table existence cache. It is not safe for concurrent use.
type BuildContext struct {
	introspector Introspector
	oneToOne     map[string]struct{}
	tables       map[string]bool
}

// NewBuildContext returns a fresh context backed by in.
func NewBuildContext(in Introspector) *BuildContext {
	return &BuildContext{
		introspector: in,
		oneToOne:     make(map[string]struct{}),
		tables:       make(map[string]bool),
	}
}

// TableExists asks the introspector once per table and caches the answer.
// Errors are not cached.
func (bc *BuildContext) TableExists(ctx context.Context, table string) (bool, error) {
	if ok, cached := bc.tables[table]; cached {
		return ok, nil
	}
	ok, err := bc.introspector.TableExists(ctx, table)
	if err != nil {
		return false, err
	}
	bc.tables[table] = ok
	return ok, nil
}

// ClaimOneToOne records the one-to-one edge between a and b. It returns
// false when the pair was already claimed by an earlier association.
func (bc *BuildContext) ClaimOneToOne(a, b string) bool {
	key := OneToOneKey(a, b)
	if _, seen := bc.oneToOne[key]; seen {
		return false
	}
	bc.oneToOne[key] = struct{}{}
	return true
}

// Outcome is the result of building one association: either relationships
// (possibly none) or a failure.
type Outcome struct {
	Relationships []*Relationship
	Failure       *errs.Error
}

func succeed(rels ...*Relationship) Outcome {
	return Outcome{Relationships: rels}
}

func fail(err *errs.Error) Outcome {
	return Outcome{Failure: err}
}

// Failed reports whether the association could not be built.
func (o Outcome) Failed() bool {
	return o.Failure != nil
}

// InvalidAssociation records an association that produced no relationship
// and why.
type InvalidAssociation struct {
	Model       string       `json:"model"`
	Association string       `json:"association"`
	Kind        errs.ErrKind `json:"kind"`
	Reason      string       `json:"reason"`
}

// Label is "Model#association".
func (ia InvalidAssociation) Label() string {
	return ia.Model + "#" + ia.Association
}

// reasonOf flattens an error chain into a message without kind prefixes.
func reasonOf(err error) string {
	var e *errs.Error
	if !errors.As(err, &e) {
		return err.Error()
	}
	if e.Cause != nil {
		return e.Message + ": " + reasonOf(e.Cause)
	}
	return e.Message
}
