package formatter

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/tordrt/schemagraph/internal/schema"
)

// YAMLFormatter writes a plain snapshot of the resolved graph as YAML
type YAMLFormatter struct {
	writer io.Writer
}

// NewYAMLFormatter creates a new YAML formatter
func NewYAMLFormatter(w io.Writer) *YAMLFormatter {
	return &YAMLFormatter{writer: w}
}

// Snapshot is the serialized form of a Database
type Snapshot struct {
	MultipleSchemas bool            `yaml:"multiple_schemas"`
	Tables          []TableSnapshot `yaml:"tables"`
}

// TableSnapshot is the serialized form of a Table
type TableSnapshot struct {
	Name         string           `yaml:"name"`
	Schema       string           `yaml:"schema,omitempty"`
	Description  string           `yaml:"description,omitempty"`
	JoinTable    bool             `yaml:"join_table,omitempty"`
	PrimaryKey   []string         `yaml:"primary_key,omitempty"`
	Columns      []ColumnSnapshot `yaml:"columns"`
	ImportedKeys []KeySnapshot    `yaml:"imported_keys,omitempty"`
	ExportedKeys []KeySnapshot    `yaml:"exported_keys,omitempty"`
	Indexes      []IndexSnapshot  `yaml:"indexes,omitempty"`
}

// ColumnSnapshot is the serialized form of a Column
type ColumnSnapshot struct {
	Name          string             `yaml:"name"`
	Type          string             `yaml:"type"`
	TypeCode      int                `yaml:"type_code"`
	LogicalType   schema.LogicalType `yaml:"logical_type"`
	GoType        schema.GoType      `yaml:"go_type"`
	Size          int                `yaml:"size,omitempty"`
	Scale         int                `yaml:"scale,omitempty"`
	PrimaryKey    bool               `yaml:"primary_key,omitempty"`
	Required      bool               `yaml:"required,omitempty"`
	Unique        bool               `yaml:"unique,omitempty"`
	AutoIncrement bool               `yaml:"auto_increment,omitempty"`
	Default       *string            `yaml:"default,omitempty"`
	Description   string             `yaml:"description,omitempty"`
}

// KeySnapshot is the serialized form of a ForeignKey
type KeySnapshot struct {
	Name        string              `yaml:"name"`
	Table       string              `yaml:"table"`
	Schema      string              `yaml:"schema,omitempty"`
	Sequence    int                 `yaml:"sequence"`
	Resolved    bool                `yaml:"resolved"`
	OnUpdate    schema.Action       `yaml:"on_update"`
	OnDelete    schema.Action       `yaml:"on_delete"`
	Cardinality string              `yaml:"cardinality"`
	References  []ReferenceSnapshot `yaml:"references"`
}

// ReferenceSnapshot is the serialized form of a Reference
type ReferenceSnapshot struct {
	Sequence   int    `yaml:"sequence"`
	Local      string `yaml:"local"`
	Foreign    string `yaml:"foreign"`
	Insertable bool   `yaml:"insertable"`
}

// IndexSnapshot is the serialized form of an Index
type IndexSnapshot struct {
	Name    string   `yaml:"name"`
	Unique  bool     `yaml:"unique"`
	Columns []string `yaml:"columns"`
}

// Format writes the snapshot as a single YAML document
func (f *YAMLFormatter) Format(d *schema.Database) error {
	enc := yaml.NewEncoder(f.writer)
	enc.SetIndent(2)
	if err := enc.Encode(NewSnapshot(d)); err != nil {
		return fmt.Errorf("failed to encode yaml: %w", err)
	}
	return enc.Close()
}

// NewSnapshot copies the resolved graph into plain values
func NewSnapshot(d *schema.Database) *Snapshot {
	s := &Snapshot{MultipleSchemas: d.MultipleSchemas()}
	for _, t := range d.Tables() {
		s.Tables = append(s.Tables, tableSnapshot(t))
	}
	return s
}

func tableSnapshot(t *schema.Table) TableSnapshot {
	ts := TableSnapshot{
		Name:        t.Name,
		Description: t.Description,
		JoinTable:   t.IsJoinTable(),
	}
	if !t.Schema.IsNone() {
		ts.Schema = t.Schema.Name()
	}

	for _, c := range t.PrimaryKeyColumns() {
		ts.PrimaryKey = append(ts.PrimaryKey, c.Name)
	}

	for _, c := range t.Columns() {
		ts.Columns = append(ts.Columns, ColumnSnapshot{
			Name:          c.Name,
			Type:          c.TypeName,
			TypeCode:      c.TypeCode,
			LogicalType:   c.LogicalType(),
			GoType:        c.GoType(),
			Size:          c.Size,
			Scale:         c.Scale,
			PrimaryKey:    c.PrimaryKey,
			Required:      c.Required,
			Unique:        c.Unique,
			AutoIncrement: c.AutoIncrement,
			Default:       c.DefaultValue,
			Description:   c.Description,
		})
	}

	for _, fk := range t.ImportedKeys() {
		ts.ImportedKeys = append(ts.ImportedKeys, keySnapshot(fk, importedCardinality(t, fk)))
	}
	for _, fk := range t.ExportedKeys() {
		ts.ExportedKeys = append(ts.ExportedKeys, keySnapshot(fk, exportedCardinality(fk)))
	}

	for _, idx := range t.Indexes() {
		ts.Indexes = append(ts.Indexes, IndexSnapshot{
			Name:    idx.Name,
			Unique:  idx.Unique,
			Columns: idx.ColumnNames(),
		})
	}

	return ts
}

func keySnapshot(fk *schema.ForeignKey, cardinality string) KeySnapshot {
	ks := KeySnapshot{
		Name:        fk.Name,
		Table:       fk.ForeignTableName,
		Schema:      fk.ForeignSchemaName,
		Sequence:    fk.KeySequence,
		Resolved:    fk.Resolved(),
		OnUpdate:    fk.OnUpdate,
		OnDelete:    fk.OnDelete,
		Cardinality: cardinality,
	}
	for _, r := range fk.References {
		ks.References = append(ks.References, ReferenceSnapshot{
			Sequence:   r.SequenceValue,
			Local:      r.LocalColumnName,
			Foreign:    r.ForeignColumnName,
			Insertable: r.InsertableOrUpdatable,
		})
	}
	return ks
}
