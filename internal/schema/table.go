package schema

// Table represents a database table
type Table struct {
	Name        string
	Schema      Schema
	Description string

	columns       []*Column
	columnsByName map[string]*Column
	primaryKey    []string
	indexes       []*Index
	importedKeys  []*ForeignKey
	exportedKeys  []*ForeignKey
	joinTable     bool
}

// NewTable creates an empty table.
func NewTable(s Schema, name string) *Table {
	return &Table{
		Name:          name,
		Schema:        s,
		columnsByName: make(map[string]*Column),
	}
}

// QualifiedName returns schema.name, or just the name for NoSchema.
func (t *Table) QualifiedName() string {
	if t.Schema.IsNone() {
		return t.Name
	}
	return t.Schema.Name() + "." + t.Name
}

// AddColumn appends c. It reports false and leaves the table unchanged when a
// column with the same name already exists.
func (t *Table) AddColumn(c *Column) bool {
	if _, ok := t.columnsByName[c.Name]; ok {
		return false
	}
	t.columns = append(t.columns, c)
	t.columnsByName[c.Name] = c
	return true
}

// Columns returns the columns in catalog order.
func (t *Table) Columns() []*Column {
	return t.columns
}

// Column finds a column by name.
func (t *Table) Column(name string) *Column {
	return t.columnsByName[name]
}

// MarkPrimaryKey flags the named columns as primary key members, in key
// order. Unknown names are ignored.
func (t *Table) MarkPrimaryKey(names ...string) {
	for _, name := range names {
		c := t.Column(name)
		if c == nil || c.PrimaryKey {
			continue
		}
		c.PrimaryKey = true
		t.primaryKey = append(t.primaryKey, name)
	}
}

// PrimaryKeyColumns returns the primary key columns in key order.
func (t *Table) PrimaryKeyColumns() []*Column {
	cols := make([]*Column, 0, len(t.primaryKey))
	for _, name := range t.primaryKey {
		cols = append(cols, t.columnsByName[name])
	}
	return cols
}

// AddIndex appends an index.
func (t *Table) AddIndex(idx *Index) {
	t.indexes = append(t.indexes, idx)
}

// Indexes returns the table's indices.
func (t *Table) Indexes() []*Index {
	return t.indexes
}

// AddImportedKey appends a key for which this table is the child.
func (t *Table) AddImportedKey(fk *ForeignKey) {
	t.importedKeys = append(t.importedKeys, fk)
}

// ImportedKeys returns the keys for which this table is the child.
func (t *Table) ImportedKeys() []*ForeignKey {
	return t.importedKeys
}

// AddExportedKey appends a key for which this table is the parent. The key's
// foreign table is the child table.
func (t *Table) AddExportedKey(fk *ForeignKey) {
	t.exportedKeys = append(t.exportedKeys, fk)
}

// ExportedKeys returns the keys for which this table is the parent.
func (t *Table) ExportedKeys() []*ForeignKey {
	return t.exportedKeys
}

// ImportedKeyByLocalColumn returns the first imported key that uses the
// named column locally.
func (t *Table) ImportedKeyByLocalColumn(name string) *ForeignKey {
	for _, fk := range t.importedKeys {
		for _, r := range fk.References {
			if r.LocalColumnName == name {
				return fk
			}
		}
	}
	return nil
}

// ImportedKeyCounts counts imported keys per foreign table name.
func (t *Table) ImportedKeyCounts() map[string]int {
	return countByForeignTable(t.importedKeys)
}

// ExportedKeyCounts counts exported keys per foreign (child) table name.
func (t *Table) ExportedKeyCounts() map[string]int {
	return countByForeignTable(t.exportedKeys)
}

func countByForeignTable(keys []*ForeignKey) map[string]int {
	counts := make(map[string]int)
	for _, fk := range keys {
		counts[fk.ForeignTableName]++
	}
	return counts
}

// IsJoinTable reports whether the table was classified as a many-to-many
// join table.
func (t *Table) IsJoinTable() bool {
	return t.joinTable
}

// Equal compares tables by name.
func (t *Table) Equal(o *Table) bool {
	if t == nil || o == nil {
		return t == o
	}
	return t.Name == o.Name
}

func (t *Table) propagateUniqueIndexes() {
	for _, idx := range t.indexes {
		if !idx.Unique {
			continue
		}
		for _, ic := range idx.Columns {
			if c := t.Column(ic.Name); c != nil {
				c.Unique = true
			}
		}
	}
}

// detectJoinTable applies the many-to-many shape test: two columns, both in
// the primary key, two imported keys, and every column used by one of them.
func (t *Table) detectJoinTable() {
	t.joinTable = false
	if len(t.columns) != 2 || len(t.importedKeys) != 2 {
		return
	}

	pk := 0
	for _, c := range t.columns {
		if c.PrimaryKey {
			pk++
		}
		if t.ImportedKeyByLocalColumn(c.Name) == nil {
			return
		}
	}
	t.joinTable = pk == 2
}
