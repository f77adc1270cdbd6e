package database

import "strings"

// Column describes a single column as reported by information_schema.
type Column struct {
	Name      string
	DataType  string // full storage type: varchar(255), bigint unsigned, numeric(10,2), ...
	Nullable  bool
	IsPrimary bool
}

// SemanticType is the engine-neutral type of the column.
func (c Column) SemanticType() string {
	return SemanticType(c.DataType)
}

// SemanticType maps an engine data type to the short type names used in
// diagrams: integer, decimal, float, string, text, boolean, date, datetime,
// time, json, uuid, binary. Unrecognised types are returned lower-cased.
func SemanticType(dataType string) string {
	t := strings.ToLower(strings.TrimSpace(dataType))
	if i := strings.IndexByte(t, '('); i >= 0 {
		t = strings.TrimSpace(t[:i])
	}
	t = strings.TrimSuffix(t, " unsigned")

	switch t {
	case "integer", "int", "int2", "int4", "int8", "smallint", "bigint",
		"tinyint", "mediumint", "serial", "bigserial", "smallserial":
		return "integer"
	case "numeric", "decimal":
		return "decimal"
	case "real", "double precision", "double", "float", "float4", "float8":
		return "float"
	case "character varying", "varchar", "character", "char", "citext", "enum":
		return "string"
	case "text", "tinytext", "mediumtext", "longtext":
		return "text"
	case "boolean", "bool", "bit":
		return "boolean"
	case "date":
		return "date"
	case "timestamp", "timestamp without time zone", "timestamp with time zone",
		"timestamptz", "datetime":
		return "datetime"
	case "time", "time without time zone", "time with time zone", "timetz":
		return "time"
	case "json", "jsonb":
		return "json"
	case "uuid":
		return "uuid"
	case "bytea", "blob", "tinyblob", "mediumblob", "longblob", "binary", "varbinary":
		return "binary"
	}
	if t == "" {
		return "unknown"
	}
	return t
}
