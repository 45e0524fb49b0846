package db

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/tordrt/schemagraph/internal/schema"
	"github.com/tordrt/schemagraph/internal/sqltype"
)

// Introspector walks a catalog table by table and builds a resolved
// schema.Database from the raw rows.
type Introspector struct {
	catalog Catalog
	logger  *zap.Logger
}

// NewIntrospector creates a new introspector. A nil logger discards output.
func NewIntrospector(catalog Catalog, logger *zap.Logger) *Introspector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Introspector{
		catalog: catalog,
		logger:  logger,
	}
}

// Introspect reads every table passing f and resolves the result.
// It returns ErrNoTables when nothing matched.
func (i *Introspector) Introspect(ctx context.Context, f Filter) (*schema.Database, error) {
	tables, err := i.ExtractTables(ctx, f)
	if err != nil {
		return nil, err
	}
	if len(tables) == 0 {
		return nil, ErrNoTables
	}

	database := schema.NewDatabase(tables)
	i.logger.Info("schema resolved",
		zap.Int("tables", len(tables)),
		zap.Bool("multiple_schemas", database.MultipleSchemas()))
	return database, nil
}

// ExtractTables reads the raw, unresolved tables passing f.
func (i *Introspector) ExtractTables(ctx context.Context, f Filter) ([]*schema.Table, error) {
	rows, err := i.catalog.Tables(ctx, f)
	if err != nil {
		return nil, &CatalogError{Op: "tables", Err: err}
	}

	var tables []*schema.Table
	for _, row := range rows {
		if !f.Match(row.Name) {
			i.logger.Debug("skipping table", zap.String("table", row.Name))
			continue
		}

		table, err := i.extractTable(ctx, row)
		if err != nil {
			return nil, err
		}
		tables = append(tables, table)
	}

	return tables, nil
}

// extractTable extracts all information for a single table
func (i *Introspector) extractTable(ctx context.Context, row TableRow) (*schema.Table, error) {
	i.logger.Debug("introspecting table",
		zap.String("schema", row.Schema),
		zap.String("table", row.Name))

	table := schema.NewTable(schema.NewSchema(row.Schema), row.Name)
	table.Description = row.Remarks

	// Extract columns
	columns, err := i.catalog.Columns(ctx, row)
	if err != nil {
		return nil, &CatalogError{Op: "columns", Table: row.Name, Err: err}
	}
	for _, c := range columns {
		if !table.AddColumn(newColumn(c)) {
			i.logger.Warn("duplicate column ignored",
				zap.String("table", row.Name),
				zap.String("column", c.Name))
		}
	}

	// Extract primary key
	pk, err := i.catalog.PrimaryKeys(ctx, row)
	if err != nil {
		return nil, &CatalogError{Op: "primary key", Table: row.Name, Err: err}
	}
	table.MarkPrimaryKey(primaryKeyNames(pk)...)

	// Extract imported keys
	imported, err := i.catalog.ImportedKeys(ctx, row)
	if err != nil {
		return nil, &CatalogError{Op: "imported keys", Table: row.Name, Err: err}
	}
	for _, fk := range groupKeys(imported, true) {
		table.AddImportedKey(fk)
	}

	// Extract exported keys
	exported, err := i.catalog.ExportedKeys(ctx, row)
	if err != nil {
		return nil, &CatalogError{Op: "exported keys", Table: row.Name, Err: err}
	}
	for _, fk := range groupKeys(exported, false) {
		table.AddExportedKey(fk)
	}

	// Extract indexes; an unreadable index list counts as empty
	indexes, err := i.catalog.Indexes(ctx, row)
	if err != nil {
		i.logger.Warn("failed to read indexes, assuming none",
			zap.String("table", row.Name),
			zap.Error(err))
		indexes = nil
	}
	for _, idx := range groupIndexes(indexes) {
		table.AddIndex(idx)
	}

	return table, nil
}

func newColumn(row ColumnRow) *schema.Column {
	c := schema.NewColumn(row.Name, row.DataType, row.TypeName, row.Size, row.DecimalDigits)
	c.Description = row.Remarks
	c.DefaultValue = row.Default
	c.Required = row.Nullable == sqltype.ColumnNoNulls
	c.AutoIncrement = row.AutoIncrement
	return c
}

// primaryKeyNames orders primary key rows by key sequence.
func primaryKeyNames(rows []PrimaryKeyRow) []string {
	names := make([]string, len(rows))
	placed := make([]bool, len(rows))
	var rest []string
	for _, r := range rows {
		pos := r.KeySeq - 1
		if pos < 0 || pos >= len(rows) || placed[pos] {
			rest = append(rest, r.ColumnName)
			continue
		}
		names[pos] = r.ColumnName
		placed[pos] = true
	}

	ordered := make([]string, 0, len(rows))
	for pos, name := range names {
		if placed[pos] {
			ordered = append(ordered, name)
		}
	}
	return append(ordered, rest...)
}

type keyGroup struct {
	name, schema, table string
}

// groupKeys folds per-column key rows into foreign keys, keeping the order in
// which constraints first appear. Imported rows point at the parent table,
// exported rows at the child.
func groupKeys(rows []KeyRow, imported bool) []*schema.ForeignKey {
	grouped := make(map[keyGroup]*schema.ForeignKey)
	var order []keyGroup

	for _, r := range rows {
		otherSchema, otherTable, local, foreign := r.PKSchema, r.PKTable, r.FKColumn, r.PKColumn
		if !imported {
			otherSchema, otherTable, local, foreign = r.FKSchema, r.FKTable, r.PKColumn, r.FKColumn
		}

		name := r.FKName
		if name == "" {
			name = fmt.Sprintf("fk_%s_%s", r.FKTable, r.PKTable)
		}

		k := keyGroup{name: name, schema: otherSchema, table: otherTable}
		fk, exists := grouped[k]
		if !exists {
			fk = schema.NewForeignKey(name, otherSchema, otherTable)
			fk.OnUpdate = schema.ActionFromRule(r.UpdateRule)
			fk.OnDelete = schema.ActionFromRule(r.DeleteRule)
			grouped[k] = fk
			order = append(order, k)
		}

		seq := r.KeySeq - 1
		if seq < 0 {
			seq = len(fk.References)
		}
		fk.AddReference(schema.NewReference(seq, local, foreign))
	}

	keys := make([]*schema.ForeignKey, 0, len(order))
	for _, k := range order {
		keys = append(keys, grouped[k])
	}
	return keys
}

// groupIndexes folds per-column index rows into indexes. Statistic rows and
// rows without a column (expression indexes) are skipped.
func groupIndexes(rows []IndexRow) []*schema.Index {
	grouped := make(map[string]*schema.Index)
	var order []string

	for _, r := range rows {
		if r.Type == sqltype.IndexStatistic || r.IndexName == "" || r.ColumnName == "" {
			continue
		}

		idx, exists := grouped[r.IndexName]
		if !exists {
			idx = schema.NewIndex(r.IndexName, !r.NonUnique)
			grouped[r.IndexName] = idx
			order = append(order, r.IndexName)
		}
		idx.AddColumn(r.ColumnName, r.OrdinalPosition)
	}

	indexes := make([]*schema.Index, 0, len(order))
	for _, name := range order {
		indexes = append(indexes, grouped[name])
	}
	return indexes
}
