package mermaid

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/modelerd/internal/erd"
	"github.com/koustreak/modelerd/internal/metadata"
)

func blogSchema() (*erd.TableSchema, []*erd.Relationship) {
	tables := erd.NewTableSchema()
	tables.Set("users", []*erd.ColumnInfo{
		{Name: "id", Annotations: []string{"PK"}, RawType: "bigint", SemanticType: "integer"},
		{Name: "email", Annotations: []string{}, RawType: "varchar(255)", SemanticType: "string"},
	})
	tables.Set("posts", []*erd.ColumnInfo{
		{Name: "id", Annotations: []string{"PK"}, SemanticType: "integer"},
		{Name: "user_id", Annotations: []string{"FK"}, SemanticType: "integer"},
		{Name: "state", Annotations: []string{}, SemanticType: "user-defined"},
	})

	rels := []*erd.Relationship{
		erd.NewRelationship(erd.Relationship{FromTable: "posts", ToTable: "users", ForeignKey: "user_id", Type: erd.SymbolManyToOne}),
		erd.NewRelationship(erd.Relationship{FromTable: "users", ToTable: "posts", ForeignKey: "user_id", Type: erd.SymbolOneToMany}),
	}
	return tables, rels
}

func TestEmit(t *testing.T) {
	tables, rels := blogSchema()
	var sb strings.Builder
	require.NoError(t, Emit(&sb, tables, rels))

	want := `erDiagram
    users {
        integer id PK
        string email
    }
    posts {
        integer id PK
        integer user_id FK
        user_defined state
    }

    posts }o--|| users : "posts.user_id FK → users.id PK"
`
	assert.Equal(t, want, sb.String())
}

func TestEmit_MultipleAnnotations(t *testing.T) {
	tables := erd.NewTableSchema()
	tables.Set("profiles", []*erd.ColumnInfo{
		{Name: "user_id", Annotations: []string{"PK", "FK"}, SemanticType: "integer"},
	})

	var sb strings.Builder
	require.NoError(t, Emit(&sb, tables, nil))
	assert.Contains(t, sb.String(), "        integer user_id PK, FK\n")
}

func TestEmit_Empty(t *testing.T) {
	var sb strings.Builder
	require.NoError(t, Emit(&sb, erd.NewTableSchema(), nil))
	assert.Equal(t, "erDiagram\n\n", sb.String())
}

type brokenWriter struct{}

func (brokenWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestEmit_WriteError(t *testing.T) {
	tables, rels := blogSchema()
	err := Emit(brokenWriter{}, tables, rels)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestRender(t *testing.T) {
	user := &metadata.Model{Name: "User", Table: "users",
		Columns:      []metadata.Column{{Name: "id", SQLType: "bigint"}},
		Associations: []*metadata.Association{{Kind: metadata.HasMany, Name: "posts"}},
	}
	post := &metadata.Model{Name: "Post", Table: "posts",
		Columns: []metadata.Column{{Name: "id", SQLType: "bigint"}, {Name: "user_id", SQLType: "bigint"}},
	}

	res, err := erd.NewGenerator(metadata.StaticSource{user, post}, nil, nil).Build(context.Background())
	require.NoError(t, err)

	out := Render(res)
	assert.True(t, strings.HasPrefix(out, "erDiagram\n"))
	assert.Contains(t, out, "        integer user_id FK\n")
	assert.Contains(t, out, `    posts }o--|| users : "posts.user_id FK → users.id PK"`)
}
