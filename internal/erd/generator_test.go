package erd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/modelerd/internal/errs"
	"github.com/koustreak/modelerd/internal/logger"
	"github.com/koustreak/modelerd/internal/metadata"
)

func blogIntrospector() *fakeIntrospector {
	return newFake("users", "posts", "photos", "comments", "profiles", "authors", "books", "authors_books")
}

func TestGenerator_Build(t *testing.T) {
	res, err := NewGenerator(metadata.StaticSource(blogModels()), blogIntrospector(), nil).Build(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, res.BuildID)
	assert.Equal(t, []string{"users", "posts", "photos", "comments", "profiles", "authors", "books"}, res.Tables.Names())
	assert.Empty(t, res.Diagnostics.InvalidAssociations)
	assert.Equal(t, []string{"Comment#commentable"}, res.Diagnostics.PolymorphicAssociations)

	// Polymorphic edges come first.
	require.GreaterOrEqual(t, len(res.Relationships), 2)
	assert.True(t, res.Relationships[0].IsPolymorphic)
	assert.Equal(t, "posts", res.Relationships[0].ToTable)
	assert.Equal(t, "photos", res.Relationships[1].ToTable)

	keys := make(map[string]int)
	for _, r := range res.Relationships {
		keys[r.Key()]++
	}
	assert.Equal(t, 2, keys["posts::user_id::users"], "belongs_to and has_many both emit the edge")
	assert.Equal(t, 1, keys["profiles::user_id::users"], "one-to-one pair emits once")
	assert.Equal(t, 1, keys["author_id::authors::authors_books"])
	assert.Equal(t, 1, keys["authors_books::book_id::books"])

	// has_many ... as: commentable repeats the polymorphic edges.
	assert.Equal(t, 2, keys["commentable_id::comments::posts"])
	assert.Len(t, res.Relationships, 9)
	assert.Len(t, res.UniqueRelationships(), 6)

	userID, ok := res.Tables.Column("posts", "user_id")
	require.True(t, ok)
	assert.True(t, userID.HasAnnotation(AnnotationFK))

	id, ok := res.Tables.Column("users", "id")
	require.True(t, ok)
	assert.True(t, id.HasAnnotation(AnnotationPK))
	assert.False(t, id.HasAnnotation(AnnotationFK))

	commentable, _ := res.Tables.Column("comments", "commentable_id")
	assert.True(t, commentable.HasAnnotation(AnnotationFK))
}

func TestGenerator_BuildsAreIndependent(t *testing.T) {
	gen := NewGenerator(metadata.StaticSource(blogModels()), blogIntrospector(), nil)

	first, err := gen.Build(context.Background())
	require.NoError(t, err)
	second, err := gen.Build(context.Background())
	require.NoError(t, err)

	assert.NotEqual(t, first.BuildID, second.BuildID)
	assert.Equal(t, len(first.Relationships), len(second.Relationships), "one-to-one state does not leak")
}

func TestGenerator_Diagnostics(t *testing.T) {
	author := model("Author", "authors", habtm("books"),
		&metadata.Association{Kind: metadata.HasMany, Name: "tags", Through: true},
		&metadata.Association{Kind: metadata.KindUnknown, Name: "attachments"})
	models := []*metadata.Model{author, model("Book", "books"), model("Orphan", "orphans")}

	res, err := NewGenerator(metadata.StaticSource(models), newFake("authors", "books"), nil).Build(context.Background())
	require.NoError(t, err)

	assert.Empty(t, res.Relationships)
	require.Len(t, res.Diagnostics.InvalidAssociations, 2)
	assert.Equal(t, "Author#books", res.Diagnostics.InvalidAssociations[0].Label())
	assert.Contains(t, res.Diagnostics.InvalidAssociations[0].Reason, "authors_books")
	assert.Equal(t, "through associations not supported", res.Diagnostics.InvalidAssociations[1].Reason)
	assert.Equal(t, []string{"Orphan"}, res.Diagnostics.ModelsWithoutTables)
	assert.Equal(t, []string{"Author#books", "Author#tags", "Author#attachments"}, res.Diagnostics.RegularAssociations)
}

type failingSource struct{ err error }

func (f failingSource) Models(context.Context) ([]*metadata.Model, error) { return nil, f.err }

func TestGenerator_MetadataFailureIsFatal(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(&logger.Config{Level: "error", Format: "json", Output: &buf})

	_, err := NewGenerator(failingSource{err: errors.New("boot failed")}, newFake(), log).Build(context.Background())
	require.Error(t, err)
	assert.True(t, errs.IsMetadataSourceUnavailable(err))
	assert.Contains(t, buf.String(), `"build failed"`)
}

func TestGenerator_CatalogFromManifest(t *testing.T) {
	manifest := `
models:
  - name: Author
    columns:
      - {name: id, sql_type: bigint}
    associations:
      - {kind: has_and_belongs_to_many, name: books}
  - name: Book
    columns:
      - {name: id, sql_type: bigint}
tables:
  - name: authors_books
    columns:
      - {name: author_id, sql_type: bigint}
      - {name: book_id, sql_type: bigint}
`
	path := filepath.Join(t.TempDir(), "models.yaml")
	require.NoError(t, os.WriteFile(path, []byte(manifest), 0o600))

	res, err := NewGenerator(metadata.NewManifestSource(path), nil, nil).Build(context.Background())
	require.NoError(t, err)

	require.Len(t, res.Relationships, 2)
	assert.Empty(t, res.Diagnostics.InvalidAssociations)
	assert.False(t, res.Tables.Has("authors_books"), "bare tables are not collected as model tables")
}

func TestGenerator_FillsPrimaryKeys(t *testing.T) {
	fake := newFake("users", "posts")
	fake.primaryKeys["users"] = "uuid"
	user := model("User", "users", hasMany("posts"))
	models := []*metadata.Model{user, model("Post", "posts")}

	res, err := NewGenerator(metadata.StaticSource(models), pkIntrospector{fake}, nil).Build(context.Background())
	require.NoError(t, err)

	require.Len(t, res.Relationships, 1)
	assert.Equal(t, "uuid", res.Relationships[0].PKColumn)
	assert.Empty(t, user.PrimaryKey, "source models are not mutated")
}

func TestResult_JSON(t *testing.T) {
	res, err := NewGenerator(metadata.StaticSource(blogModels()), blogIntrospector(), nil).Build(context.Background())
	require.NoError(t, err)

	data, err := json.Marshal(res)
	require.NoError(t, err)

	var decoded struct {
		BuildID       string                     `json:"build_id"`
		Tables        map[string][]ColumnInfo    `json:"tables"`
		Relationships []Relationship             `json:"relationships"`
		Diagnostics   map[string]json.RawMessage `json:"diagnostics"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, res.BuildID, decoded.BuildID)
	assert.Len(t, decoded.Tables, res.Tables.Len())
	assert.Len(t, decoded.Relationships, len(res.Relationships))
	assert.Contains(t, decoded.Diagnostics, "models_without_tables")
}

func TestResult_JSON_EmptyCollections(t *testing.T) {
	tests := []struct {
		name   string
		models []*metadata.Model
		in     *fakeIntrospector
	}{
		{"no models", nil, newFake()},
		{"models without associations", []*metadata.Model{model("User", "users")}, newFake("users")},
		{"only invalid associations", []*metadata.Model{model("User", "users", hasMany("ghosts"))}, newFake("users")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := NewGenerator(metadata.StaticSource(tt.models), tt.in, nil).Build(context.Background())
			require.NoError(t, err)
			assert.NotNil(t, res.Relationships)

			data, err := json.Marshal(res)
			require.NoError(t, err)
			assert.Contains(t, string(data), `"relationships":[]`)
			assert.Contains(t, string(data), `"models_without_tables":[]`)
			assert.Contains(t, string(data), `"polymorphic_associations":[]`)
		})
	}
}

func TestGenerator_PrefersContextLogger(t *testing.T) {
	var buf bytes.Buffer
	reqLog := logger.New(&logger.Config{Level: "info", Output: &buf}).With().Str("request_id", "r-1").Logger()
	ctx := reqLog.WithContext(context.Background())

	_, err := NewGenerator(metadata.StaticSource(blogModels()), blogIntrospector(), nil).Build(ctx)
	require.NoError(t, err)

	assert.Contains(t, buf.String(), `"request_id":"r-1"`)
	assert.Contains(t, buf.String(), `"message":"build complete"`)
}
