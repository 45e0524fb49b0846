// Package schema holds the resolved schema graph: tables, columns, indices
// and foreign keys, cross-referenced by NewDatabase.
package schema

import "strings"

// NoSchemaName is the name reported by NoSchema.
const NoSchemaName = "<none>"

// Schema identifies a namespace within a catalog. The zero value is NoSchema.
type Schema struct {
	name string
}

// NoSchema is used for tables whose catalog has no namespace concept.
var NoSchema = Schema{}

// NewSchema returns the schema with the given name, or NoSchema when the name
// is blank.
func NewSchema(name string) Schema {
	name = strings.TrimSpace(name)
	if name == "" || name == NoSchemaName {
		return NoSchema
	}
	return Schema{name: name}
}

// Name returns the schema name, never blank.
func (s Schema) Name() string {
	if s.name == "" {
		return NoSchemaName
	}
	return s.name
}

// IsNone reports whether s is NoSchema.
func (s Schema) IsNone() bool {
	return s.name == ""
}

func (s Schema) String() string {
	return s.Name()
}
