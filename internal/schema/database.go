package schema

// Database is the root of a resolved schema graph. It is built once by
// NewDatabase and is read-only afterwards, so it can be shared between
// goroutines.
type Database struct {
	tables          []*Table
	multipleSchemas bool
}

// NewDatabase takes ownership of tables and resolves every relationship
// between them. Keys pointing outside the set stay unresolved.
func NewDatabase(tables []*Table) *Database {
	d := &Database{tables: tables}
	d.resolve()
	return d
}

// Tables returns the tables in the order they were supplied.
func (d *Database) Tables() []*Table {
	return d.tables
}

// MultipleSchemas reports whether the tables span more than one schema.
func (d *Database) MultipleSchemas() bool {
	return d.multipleSchemas
}

// FindTable looks a table up by name. The schema is only compared when
// schemaName is neither blank nor NoSchemaName.
func (d *Database) FindTable(name, schemaName string) *Table {
	matchSchema := schemaName != "" && schemaName != NoSchemaName
	for _, t := range d.tables {
		if t.Name != name {
			continue
		}
		if matchSchema && t.Schema.Name() != schemaName {
			continue
		}
		return t
	}
	return nil
}

// Equal compares databases by their set of table names.
func (d *Database) Equal(o *Database) bool {
	if d == nil || o == nil {
		return d == o
	}
	if len(d.tables) != len(o.tables) {
		return false
	}
	names := make(map[string]int, len(d.tables))
	for _, t := range d.tables {
		names[t.Name]++
	}
	for _, t := range o.tables {
		if names[t.Name] == 0 {
			return false
		}
		names[t.Name]--
	}
	return true
}

// resolve links keys and columns and computes derived flags. Running it
// again over a resolved graph changes nothing.
func (d *Database) resolve() {
	for _, t := range d.tables {
		d.resolveImportedKeys(t)
		d.resolveExportedKeys(t)
		t.propagateUniqueIndexes()
		t.detectJoinTable()
	}

	schemas := make(map[Schema]struct{})
	for _, t := range d.tables {
		schemas[t.Schema] = struct{}{}
	}
	d.multipleSchemas = len(schemas) > 1
}

type tableKey struct {
	schema Schema
	name   string
}

// resolveImportedKeys links t's imported keys to their parent tables and
// columns. Local columns shared by several references, or used by a
// self-referencing key, are flagged so their references are not written
// independently.
func (d *Database) resolveImportedKeys(t *Table) {
	sequences := make(map[tableKey]int)
	uses := make(map[string]int)
	selfReferencing := make(map[string]bool)

	for _, fk := range t.importedKeys {
		target := d.linkKey(fk, sequences)
		self := fk.ForeignTableName == t.Name

		for _, r := range fk.References {
			if r.LocalColumn == nil {
				r.LocalColumn = t.Column(r.LocalColumnName)
			}
			if r.ForeignColumn == nil && target != nil {
				r.ForeignColumn = target.Column(r.ForeignColumnName)
			}
			uses[r.LocalColumnName]++
			if self {
				selfReferencing[r.LocalColumnName] = true
			}
		}
	}

	for _, fk := range t.importedKeys {
		for _, r := range fk.References {
			if uses[r.LocalColumnName] > 1 || selfReferencing[r.LocalColumnName] {
				r.InsertableOrUpdatable = false
			}
		}
	}
}

// resolveExportedKeys links t's exported keys to their child tables. Local
// columns belong to t, foreign columns to the child.
func (d *Database) resolveExportedKeys(t *Table) {
	sequences := make(map[tableKey]int)

	for _, fk := range t.exportedKeys {
		target := d.linkKey(fk, sequences)
		for _, r := range fk.References {
			if r.LocalColumn == nil {
				r.LocalColumn = t.Column(r.LocalColumnName)
			}
			if r.ForeignColumn == nil && target != nil {
				r.ForeignColumn = target.Column(r.ForeignColumnName)
			}
		}
	}
}

// linkKey resolves fk's foreign table and assigns its key sequence among the
// keys already seen for the same foreign table. Sequences are recounted on
// every pass.
func (d *Database) linkKey(fk *ForeignKey, sequences map[tableKey]int) *Table {
	target := fk.ForeignTable
	if target == nil {
		target = d.FindTable(fk.ForeignTableName, fk.ForeignSchemaName)
	}
	if target == nil {
		return nil
	}
	fk.ForeignTable = target

	k := tableKey{schema: target.Schema, name: target.Name}
	fk.KeySequence = sequences[k]
	sequences[k]++
	return target
}
