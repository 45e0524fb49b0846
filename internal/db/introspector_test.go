package db

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/tordrt/schemagraph/internal/schema"
	"github.com/tordrt/schemagraph/internal/sqltype"
)

// fakeCatalog serves canned rows keyed by table name.
type fakeCatalog struct {
	tables    []TableRow
	columns   map[string][]ColumnRow
	pks       map[string][]PrimaryKeyRow
	imported  map[string][]KeyRow
	exported  map[string][]KeyRow
	indexes   map[string][]IndexRow
	failOn    map[string]string // table -> op
	requested []string
	closed    bool
}

var errBoom = errors.New("boom")

func (f *fakeCatalog) fail(op string, t TableRow) error {
	if f.failOn[t.Name] == op {
		return errBoom
	}
	return nil
}

func (f *fakeCatalog) Tables(_ context.Context, _ Filter) ([]TableRow, error) {
	if f.failOn[""] == "tables" {
		return nil, errBoom
	}
	return f.tables, nil
}

func (f *fakeCatalog) Columns(_ context.Context, t TableRow) ([]ColumnRow, error) {
	f.requested = append(f.requested, t.Name)
	return f.columns[t.Name], f.fail("columns", t)
}

func (f *fakeCatalog) PrimaryKeys(_ context.Context, t TableRow) ([]PrimaryKeyRow, error) {
	return f.pks[t.Name], f.fail("pk", t)
}

func (f *fakeCatalog) ImportedKeys(_ context.Context, t TableRow) ([]KeyRow, error) {
	return f.imported[t.Name], f.fail("imported", t)
}

func (f *fakeCatalog) ExportedKeys(_ context.Context, t TableRow) ([]KeyRow, error) {
	return f.exported[t.Name], f.fail("exported", t)
}

func (f *fakeCatalog) Indexes(_ context.Context, t TableRow) ([]IndexRow, error) {
	if err := f.fail("indexes", t); err != nil {
		return nil, err
	}
	return f.indexes[t.Name], nil
}

func (f *fakeCatalog) Close(_ context.Context) error {
	f.closed = true
	return nil
}

func intCol(name string, nullable int) ColumnRow {
	return ColumnRow{Name: name, DataType: sqltype.Integer, TypeName: "integer", Size: 10, Nullable: nullable}
}

// orderCatalog describes ORDER(ID), PRODUCT(ID) and ORDER_ITEM(ORDER_ID, PRODUCT_ID).
func orderCatalog() *fakeCatalog {
	itemKeys := []KeyRow{
		{PKTable: "ORDER", PKColumn: "ID", FKTable: "ORDER_ITEM", FKColumn: "ORDER_ID", KeySeq: 1,
			UpdateRule: sqltype.RuleNoAction, DeleteRule: sqltype.RuleCascade, FKName: "FK_ITEM_ORDER"},
		{PKTable: "PRODUCT", PKColumn: "ID", FKTable: "ORDER_ITEM", FKColumn: "PRODUCT_ID", KeySeq: 1,
			UpdateRule: sqltype.RuleRestrict, DeleteRule: sqltype.RuleSetNull, FKName: "FK_ITEM_PRODUCT"},
	}

	return &fakeCatalog{
		tables: []TableRow{{Name: "ORDER"}, {Name: "PRODUCT"}, {Name: "ORDER_ITEM"}},
		columns: map[string][]ColumnRow{
			"ORDER":      {intCol("ID", sqltype.ColumnNoNulls)},
			"PRODUCT":    {intCol("ID", sqltype.ColumnNoNulls)},
			"ORDER_ITEM": {intCol("ORDER_ID", sqltype.ColumnNoNulls), intCol("PRODUCT_ID", sqltype.ColumnNoNulls)},
		},
		pks: map[string][]PrimaryKeyRow{
			"ORDER":      {{ColumnName: "ID", KeySeq: 1}},
			"PRODUCT":    {{ColumnName: "ID", KeySeq: 1}},
			"ORDER_ITEM": {{ColumnName: "PRODUCT_ID", KeySeq: 2}, {ColumnName: "ORDER_ID", KeySeq: 1}},
		},
		imported: map[string][]KeyRow{"ORDER_ITEM": itemKeys},
		exported: map[string][]KeyRow{
			"ORDER":   {itemKeys[0]},
			"PRODUCT": {itemKeys[1]},
		},
		indexes: map[string][]IndexRow{},
	}
}

func TestIntrospectOrderItems(t *testing.T) {
	cat := orderCatalog()
	d, err := NewIntrospector(cat, nil).Introspect(context.Background(), Filter{})
	require.NoError(t, err)
	require.Len(t, d.Tables(), 3)

	item := d.FindTable("ORDER_ITEM", "")
	require.NotNil(t, item)
	assert.True(t, item.IsJoinTable())
	assert.Equal(t, []string{"ORDER_ID", "PRODUCT_ID"}, columnNames(item.PrimaryKeyColumns()))

	keys := item.ImportedKeys()
	require.Len(t, keys, 2)
	assert.Equal(t, "FK_ITEM_ORDER", keys[0].Name)
	assert.Equal(t, schema.ActionCascade, keys[0].OnDelete)
	assert.Equal(t, schema.ActionNone, keys[0].OnUpdate)
	assert.Equal(t, schema.ActionRestrict, keys[1].OnUpdate)
	assert.Equal(t, schema.ActionSetNull, keys[1].OnDelete)
	for _, fk := range keys {
		assert.True(t, fk.Resolved())
		assert.Equal(t, 0, fk.KeySequence)
	}

	order := d.FindTable("ORDER", "")
	require.Len(t, order.ExportedKeys(), 1)
	exported := order.ExportedKeys()[0]
	assert.Equal(t, "ORDER_ITEM", exported.ForeignTableName)
	assert.Equal(t, []string{"ID"}, exported.LocalColumnNames())
	assert.Equal(t, []string{"ORDER_ID"}, exported.ForeignColumnNames())
	assert.Same(t, item, exported.ForeignTable)

	assert.True(t, item.Column("ORDER_ID").Required)
	assert.False(t, d.MultipleSchemas())
}

func columnNames(cols []*schema.Column) []string {
	var names []string
	for _, c := range cols {
		names = append(names, c.Name)
	}
	return names
}

func TestIntrospectGroupsCompositeKeys(t *testing.T) {
	cat := &fakeCatalog{
		tables: []TableRow{{Name: "SHIPMENT"}},
		columns: map[string][]ColumnRow{
			"SHIPMENT": {intCol("ORDER_ID", sqltype.ColumnNullable), intCol("LINE_NO", sqltype.ColumnNullable)},
		},
		imported: map[string][]KeyRow{
			"SHIPMENT": {
				{PKTable: "ORDER_LINE", PKColumn: "LINE_NO", FKTable: "SHIPMENT", FKColumn: "LINE_NO", KeySeq: 2, FKName: "FK_LINE"},
				{PKTable: "ORDER_LINE", PKColumn: "ORDER_ID", FKTable: "SHIPMENT", FKColumn: "ORDER_ID", KeySeq: 1, FKName: "FK_LINE"},
			},
		},
	}

	d, err := NewIntrospector(cat, nil).Introspect(context.Background(), Filter{})
	require.NoError(t, err)

	keys := d.FindTable("SHIPMENT", "").ImportedKeys()
	require.Len(t, keys, 1)
	fk := keys[0]
	assert.True(t, fk.Composite())
	assert.Equal(t, []string{"ORDER_ID", "LINE_NO"}, fk.LocalColumnNames())
	assert.False(t, fk.Resolved(), "ORDER_LINE was not introspected")
	assert.Nil(t, fk.ForeignTable)
}

func TestIntrospectSkipsDenylistedAndExcludedTables(t *testing.T) {
	cat := orderCatalog()
	cat.tables = append(cat.tables, TableRow{Name: "BIN$abc==$0"})

	d, err := NewIntrospector(cat, nil).Introspect(context.Background(), Filter{ExcludeTables: []string{"PRODUCT"}})
	require.NoError(t, err)

	assert.Equal(t, []string{"ORDER", "ORDER_ITEM"}, cat.requested)
	require.Len(t, d.Tables(), 2)

	// PRODUCT was excluded, so the key to it dangles
	item := d.FindTable("ORDER_ITEM", "")
	fk := item.ImportedKeyByLocalColumn("PRODUCT_ID")
	require.NotNil(t, fk)
	assert.False(t, fk.Resolved())
}

func TestIntrospectIndexes(t *testing.T) {
	cat := &fakeCatalog{
		tables: []TableRow{{Name: "USERS"}},
		columns: map[string][]ColumnRow{
			"USERS": {
				intCol("ID", sqltype.ColumnNoNulls),
				{Name: "EMAIL", DataType: sqltype.VarChar, TypeName: "varchar(255)", Size: 255, Nullable: sqltype.ColumnNoNulls},
				{Name: "NAME", DataType: sqltype.VarChar, TypeName: "varchar(100)", Size: 100, Nullable: sqltype.ColumnNullable},
			},
		},
		indexes: map[string][]IndexRow{
			"USERS": {
				{Type: sqltype.IndexStatistic},
				{NonUnique: true, IndexName: "IDX_NAME_EMAIL", Type: sqltype.IndexOther, OrdinalPosition: 2, ColumnName: "EMAIL"},
				{NonUnique: false, IndexName: "UQ_EMAIL", Type: sqltype.IndexOther, OrdinalPosition: 1, ColumnName: "EMAIL"},
				{NonUnique: true, IndexName: "IDX_NAME_EMAIL", Type: sqltype.IndexOther, OrdinalPosition: 1, ColumnName: "NAME"},
				{NonUnique: true, IndexName: "IDX_EXPR", Type: sqltype.IndexOther, OrdinalPosition: 1, ColumnName: ""},
			},
		},
	}

	d, err := NewIntrospector(cat, nil).Introspect(context.Background(), Filter{})
	require.NoError(t, err)

	users := d.FindTable("USERS", "")
	indexes := users.Indexes()
	require.Len(t, indexes, 2)
	assert.Equal(t, "IDX_NAME_EMAIL", indexes[0].Name)
	assert.Equal(t, []string{"NAME", "EMAIL"}, indexes[0].ColumnNames())
	assert.False(t, indexes[0].Unique)
	assert.Equal(t, "UQ_EMAIL", indexes[1].Name)
	assert.True(t, indexes[1].Unique)

	assert.True(t, users.Column("EMAIL").Unique)
	assert.False(t, users.Column("NAME").Unique)
	assert.False(t, users.Column("NAME").Required)
}

func TestIntrospectIndexFailureDegrades(t *testing.T) {
	cat := orderCatalog()
	cat.failOn = map[string]string{"PRODUCT": "indexes"}

	core, logs := observer.New(zap.WarnLevel)
	d, err := NewIntrospector(cat, zap.New(core)).Introspect(context.Background(), Filter{})
	require.NoError(t, err)

	assert.Empty(t, d.FindTable("PRODUCT", "").Indexes())
	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "PRODUCT", entry.ContextMap()["table"])
}

func TestIntrospectFatalFailures(t *testing.T) {
	ops := []struct {
		op   string
		want string
	}{
		{"columns", "columns"},
		{"pk", "primary key"},
		{"imported", "imported keys"},
		{"exported", "exported keys"},
	}

	for _, tt := range ops {
		t.Run(tt.op, func(t *testing.T) {
			cat := orderCatalog()
			cat.failOn = map[string]string{"ORDER_ITEM": tt.op}

			_, err := NewIntrospector(cat, nil).Introspect(context.Background(), Filter{})
			require.Error(t, err)
			assert.ErrorIs(t, err, errBoom)

			var catErr *CatalogError
			require.ErrorAs(t, err, &catErr)
			assert.Equal(t, tt.want, catErr.Op)
			assert.Equal(t, "ORDER_ITEM", catErr.Table)
		})
	}

	t.Run("tables", func(t *testing.T) {
		cat := orderCatalog()
		cat.failOn = map[string]string{"": "tables"}

		_, err := NewIntrospector(cat, nil).Introspect(context.Background(), Filter{})
		var catErr *CatalogError
		require.ErrorAs(t, err, &catErr)
		assert.Equal(t, "failed to read tables: boom", err.Error())
	})
}

func TestIntrospectNoTables(t *testing.T) {
	cat := &fakeCatalog{tables: []TableRow{{Name: "BIN$gone"}}}

	_, err := NewIntrospector(cat, nil).Introspect(context.Background(), Filter{})
	assert.ErrorIs(t, err, ErrNoTables)
}

func TestGroupKeysExportedOrientation(t *testing.T) {
	rows := []KeyRow{
		{PKSchema: "sales", PKTable: "ORDER", PKColumn: "ID", FKSchema: "sales", FKTable: "INVOICE", FKColumn: "ORDER_ID", KeySeq: 1, FKName: "FK_INV"},
		{PKSchema: "sales", PKTable: "ORDER", PKColumn: "ID", FKSchema: "sales", FKTable: "ORDER_ITEM", FKColumn: "ORDER_ID", KeySeq: 1, FKName: "FK_ITEM"},
	}

	keys := groupKeys(rows, false)
	require.Len(t, keys, 2)
	assert.Equal(t, "INVOICE", keys[0].ForeignTableName)
	assert.Equal(t, "sales", keys[0].ForeignSchemaName)
	assert.Equal(t, []string{"ID"}, keys[0].LocalColumnNames())
	assert.Equal(t, []string{"ORDER_ID"}, keys[0].ForeignColumnNames())
	assert.Equal(t, "ORDER_ITEM", keys[1].ForeignTableName)
}

func TestGroupKeysUnnamed(t *testing.T) {
	rows := []KeyRow{
		{PKTable: "A", PKColumn: "ID", FKTable: "B", FKColumn: "A_ID"},
		{PKTable: "A", PKColumn: "CODE", FKTable: "B", FKColumn: "A_CODE"},
	}

	keys := groupKeys(rows, true)
	require.Len(t, keys, 1)
	assert.Equal(t, "fk_B_A", keys[0].Name)
	assert.Equal(t, []string{"A_ID", "A_CODE"}, keys[0].LocalColumnNames())
}

func TestPrimaryKeyNames(t *testing.T) {
	tests := []struct {
		name string
		rows []PrimaryKeyRow
		want []string
	}{
		{"empty", nil, []string{}},
		{"ordered", []PrimaryKeyRow{{ColumnName: "A", KeySeq: 1}, {ColumnName: "B", KeySeq: 2}}, []string{"A", "B"}},
		{"reversed", []PrimaryKeyRow{{ColumnName: "B", KeySeq: 2}, {ColumnName: "A", KeySeq: 1}}, []string{"A", "B"}},
		{"no sequence", []PrimaryKeyRow{{ColumnName: "X"}, {ColumnName: "Y"}}, []string{"X", "Y"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, primaryKeyNames(tt.rows))
		})
	}
}
