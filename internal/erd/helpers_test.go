package erd

import (
	"context"

	"github.com/koustreak/modelerd/internal/database"
	"github.com/koustreak/modelerd/internal/errs"
	"github.com/koustreak/modelerd/internal/metadata"
)

// fakeIntrospector answers from an in-memory table map and counts calls.
type fakeIntrospector struct {
	tables      map[string][]database.Column
	existsErr   map[string]error
	columnsErr  map[string]error
	primaryKeys map[string]string
	existsCalls map[string]int
}

func newFake(tables ...string) *fakeIntrospector {
	f := &fakeIntrospector{
		tables:      make(map[string][]database.Column),
		existsErr:   make(map[string]error),
		columnsErr:  make(map[string]error),
		primaryKeys: make(map[string]string),
		existsCalls: make(map[string]int),
	}
	for _, t := range tables {
		f.tables[t] = nil
	}
	return f
}

func (f *fakeIntrospector) withColumns(table string, cols ...database.Column) *fakeIntrospector {
	f.tables[table] = cols
	return f
}

func (f *fakeIntrospector) TableExists(_ context.Context, table string) (bool, error) {
	f.existsCalls[table]++
	if err := f.existsErr[table]; err != nil {
		return false, err
	}
	_, ok := f.tables[table]
	return ok, nil
}

func (f *fakeIntrospector) Columns(_ context.Context, table string) ([]database.Column, error) {
	if err := f.columnsErr[table]; err != nil {
		return nil, err
	}
	cols, ok := f.tables[table]
	if !ok {
		return nil, errs.Newf(errs.ErrKindNotFound, "table %q not found", table)
	}
	return cols, nil
}

// pkIntrospector adds primary key lookups to the fake.
type pkIntrospector struct {
	*fakeIntrospector
}

func (p pkIntrospector) PrimaryKey(_ context.Context, table string) (string, error) {
	return p.primaryKeys[table], nil
}

func col(name, sqlType string) metadata.Column {
	return metadata.Column{Name: name, SQLType: sqlType}
}

func model(name, table string, assocs ...*metadata.Association) *metadata.Model {
	return &metadata.Model{Name: name, Table: table, Associations: assocs}
}

func belongsTo(name string) *metadata.Association {
	return &metadata.Association{Kind: metadata.BelongsTo, Name: name}
}

func hasMany(name string) *metadata.Association {
	return &metadata.Association{Kind: metadata.HasMany, Name: name}
}

func hasOne(name string) *metadata.Association {
	return &metadata.Association{Kind: metadata.HasOne, Name: name}
}

func habtm(name string) *metadata.Association {
	return &metadata.Association{Kind: metadata.ManyToMany, Name: name}
}

// blogModels is a small app: users write posts, posts and photos take
// comments, users have one profile, authors and books are many-to-many.
func blogModels() []*metadata.Model {
	user := model("User", "users", hasMany("posts"), hasOne("profile"))
	user.Columns = []metadata.Column{col("id", "bigint"), col("email", "varchar(255)")}

	post := model("Post", "posts", belongsTo("user"),
		&metadata.Association{Kind: metadata.HasMany, Name: "comments", As: "commentable"})
	post.Columns = []metadata.Column{col("id", "bigint"), col("user_id", "bigint"), col("title", "varchar(255)")}

	photo := model("Photo", "photos",
		&metadata.Association{Kind: metadata.HasMany, Name: "comments", As: "commentable"})
	photo.Columns = []metadata.Column{col("id", "bigint")}

	comment := model("Comment", "comments",
		&metadata.Association{Kind: metadata.BelongsTo, Name: "commentable", Polymorphic: true})
	comment.Columns = []metadata.Column{col("id", "bigint"), col("commentable_id", "bigint"), col("commentable_type", "varchar")}

	profile := model("Profile", "profiles", belongsTo("user"))
	profile.Columns = []metadata.Column{col("id", "bigint"), col("user_id", "bigint")}

	author := model("Author", "authors", habtm("books"))
	author.Columns = []metadata.Column{col("id", "bigint")}
	book := model("Book", "books")
	book.Columns = []metadata.Column{col("id", "bigint")}

	return []*metadata.Model{
		{Name: "ApplicationRecord", Abstract: true},
		user, post, photo, comment, profile, author, book,
	}
}
