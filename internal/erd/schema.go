package erd

import (
	"bytes"
	"encoding/json"
	"slices"
)

// Column annotations.
const (
	AnnotationPK = "PK"
	AnnotationFK = "FK"
)

// ColumnInfo is one column of a collected table.
type ColumnInfo struct {
	Name         string   `json:"name"`
	Annotations  []string `json:"annotations"`
	RawType      string   `json:"raw_type"`
	SemanticType string   `json:"semantic_type"`
	Nullable     bool     `json:"nullable"`
}

// HasAnnotation reports whether c carries annotation a.
func (c *ColumnInfo) HasAnnotation(a string) bool {
	return slices.Contains(c.Annotations, a)
}

// Annotate appends a unless already present. It reports whether c changed.
func (c *ColumnInfo) Annotate(a string) bool {
	if c.HasAnnotation(a) {
		return false
	}
	c.Annotations = append(c.Annotations, a)
	return true
}

// TableSchema maps table names to their ordered columns, in the order
// tables were first collected. A table is set at most once.
type TableSchema struct {
	order   []string
	columns map[string][]*ColumnInfo
}

// NewTableSchema returns an empty schema.
func NewTableSchema() *TableSchema {
	return &TableSchema{columns: make(map[string][]*ColumnInfo)}
}

// Has reports whether table was already collected.
func (s *TableSchema) Has(table string) bool {
	_, ok := s.columns[table]
	return ok
}

// Set records the columns of table. The first call for a table wins; later
// calls return false and leave the schema untouched.
func (s *TableSchema) Set(table string, cols []*ColumnInfo) bool {
	if s.Has(table) {
		return false
	}
	if cols == nil {
		cols = []*ColumnInfo{}
	}
	s.order = append(s.order, table)
	s.columns[table] = cols
	return true
}

// Columns returns the columns of table, or nil if it was never collected.
func (s *TableSchema) Columns(table string) []*ColumnInfo {
	return s.columns[table]
}

// Column returns the named column of table.
func (s *TableSchema) Column(table, name string) (*ColumnInfo, bool) {
	for _, c := range s.columns[table] {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// Names returns table names in collection order.
func (s *TableSchema) Names() []string {
	return slices.Clone(s.order)
}

// Len returns the number of collected tables.
func (s *TableSchema) Len() int {
	return len(s.order)
}

// MarshalJSON encodes the schema as an object whose keys keep collection
// order.
func (s *TableSchema) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, table := range s.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(table)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(s.columns[table])
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// TableRef is the resolved target of an association: the table and its
// primary key column.
type TableRef struct {
	TableName  string
	PrimaryKey string
}
