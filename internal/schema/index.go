package schema

import "sort"

// IndexColumn is a column reference inside an index.
type IndexColumn struct {
	Name            string
	OrdinalPosition int
}

// Index represents a database index
type Index struct {
	Name    string
	Unique  bool
	Columns []IndexColumn
}

// NewIndex creates an empty index.
func NewIndex(name string, unique bool) *Index {
	return &Index{Name: name, Unique: unique}
}

// AddColumn adds a column, keeping columns ordered by ordinal position.
func (i *Index) AddColumn(name string, ordinal int) {
	i.Columns = append(i.Columns, IndexColumn{Name: name, OrdinalPosition: ordinal})
	sort.SliceStable(i.Columns, func(a, b int) bool {
		return i.Columns[a].OrdinalPosition < i.Columns[b].OrdinalPosition
	})
}

// ColumnNames returns the covered column names in index order.
func (i *Index) ColumnNames() []string {
	names := make([]string, len(i.Columns))
	for n, c := range i.Columns {
		names[n] = c.Name
	}
	return names
}
