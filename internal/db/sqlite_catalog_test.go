package db

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	_ "github.com/mattn/go-sqlite3"

	"github.com/tordrt/schemagraph/internal/sqltype"
)

const sqliteShopDDL = `
	CREATE TABLE users (
		id INTEGER PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		region TEXT
	);
	CREATE INDEX idx_users_email_region ON users(lower(email), region);

	CREATE TABLE products (
		sku TEXT NOT NULL,
		warehouse INTEGER NOT NULL,
		name TEXT NOT NULL,
		category TEXT,
		PRIMARY KEY (sku, warehouse)
	);
	CREATE INDEX idx_category ON products(category);

	CREATE TABLE orders (
		id INTEGER PRIMARY KEY,
		user_id INTEGER NOT NULL,
		total DECIMAL(10,2) DEFAULT 0,
		FOREIGN KEY (User_ID) REFERENCES Users(ID) ON DELETE CASCADE
	);

	CREATE TABLE order_items (
		order_id INTEGER NOT NULL REFERENCES ORDERS,
		sku TEXT NOT NULL,
		warehouse INTEGER NOT NULL,
		quantity INTEGER NOT NULL DEFAULT 1,
		PRIMARY KEY (order_id, sku, warehouse),
		FOREIGN KEY (sku, warehouse) REFERENCES products ON UPDATE SET NULL
	);
`

func openShopCatalog(t *testing.T) *SQLiteCatalog {
	t.Helper()

	conn, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "shop.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	_, err = conn.Exec(sqliteShopDDL)
	require.NoError(t, err)
	return NewSQLiteCatalog(conn)
}

func keysByColumn(rows []KeyRow) map[string]KeyRow {
	m := make(map[string]KeyRow, len(rows))
	for _, r := range rows {
		m[r.FKTable+"."+r.FKColumn] = r
	}
	return m
}

func TestSQLiteCatalogTables(t *testing.T) {
	c := openShopCatalog(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		pattern string
		want    []string
	}{
		{"all", "", []string{"order_items", "orders", "products", "users"}},
		{"prefix", "order%", []string{"order_items", "orders"}},
		{"unescaped underscore", "order_%", []string{"order_items", "orders"}},
		{"escaped underscore", `order\_%`, []string{"order_items"}},
		{"case-insensitive", "USERS", []string{"users"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := c.Tables(ctx, Filter{TablePattern: tt.pattern})
			require.NoError(t, err)

			var got []string
			for _, r := range rows {
				assert.Empty(t, r.Schema)
				got = append(got, r.Name)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSQLiteCatalogColumns(t *testing.T) {
	c := openShopCatalog(t)

	rows, err := c.Columns(context.Background(), TableRow{Name: "orders"})
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "id", rows[0].Name)
	assert.True(t, rows[0].AutoIncrement)

	assert.Equal(t, "user_id", rows[1].Name)
	assert.Equal(t, sqltype.ColumnNoNulls, rows[1].Nullable)
	assert.False(t, rows[1].AutoIncrement)

	assert.Equal(t, "total", rows[2].Name)
	assert.Equal(t, sqltype.Numeric, rows[2].DataType)
	assert.Equal(t, 10, rows[2].Size)
	assert.Equal(t, 2, rows[2].DecimalDigits)
	assert.Equal(t, sqltype.ColumnNullable, rows[2].Nullable)
	require.NotNil(t, rows[2].Default)
	assert.Equal(t, "0", *rows[2].Default)

	// Composite keys never alias the rowid
	rows, err = c.Columns(context.Background(), TableRow{Name: "order_items"})
	require.NoError(t, err)
	assert.False(t, rows[0].AutoIncrement)
}

func TestSQLiteCatalogPrimaryKeys(t *testing.T) {
	c := openShopCatalog(t)

	rows, err := c.PrimaryKeys(context.Background(), TableRow{Name: "order_items"})
	require.NoError(t, err)
	assert.Equal(t, []PrimaryKeyRow{
		{ColumnName: "order_id", KeySeq: 1},
		{ColumnName: "sku", KeySeq: 2},
		{ColumnName: "warehouse", KeySeq: 3},
	}, rows)
}

func TestSQLiteCatalogImportedKeysUseDeclaredNames(t *testing.T) {
	c := openShopCatalog(t)

	rows, err := c.ImportedKeys(context.Background(), TableRow{Name: "orders"})
	require.NoError(t, err)
	require.Len(t, rows, 1)

	assert.Equal(t, KeyRow{
		PKTable:    "users",
		PKColumn:   "id",
		FKTable:    "orders",
		FKColumn:   "user_id",
		KeySeq:     1,
		UpdateRule: sqltype.RuleNoAction,
		DeleteRule: sqltype.RuleCascade,
		FKName:     "fk_orders_0",
	}, rows[0])
}

func TestSQLiteCatalogImportedKeysWithoutColumnList(t *testing.T) {
	c := openShopCatalog(t)

	rows, err := c.ImportedKeys(context.Background(), TableRow{Name: "order_items"})
	require.NoError(t, err)
	require.Len(t, rows, 3)

	byColumn := keysByColumn(rows)

	toOrder := byColumn["order_items.order_id"]
	assert.Equal(t, "orders", toOrder.PKTable)
	assert.Equal(t, "id", toOrder.PKColumn)
	assert.Equal(t, 1, toOrder.KeySeq)

	sku := byColumn["order_items.sku"]
	warehouse := byColumn["order_items.warehouse"]
	assert.Equal(t, "products", sku.PKTable)
	assert.Equal(t, "sku", sku.PKColumn)
	assert.Equal(t, 1, sku.KeySeq)
	assert.Equal(t, "warehouse", warehouse.PKColumn)
	assert.Equal(t, 2, warehouse.KeySeq)
	assert.Equal(t, sku.FKName, warehouse.FKName)
	assert.NotEqual(t, toOrder.FKName, sku.FKName)
	assert.Equal(t, sqltype.RuleSetNull, sku.UpdateRule)
}

func TestSQLiteCatalogExportedKeys(t *testing.T) {
	c := openShopCatalog(t)
	ctx := context.Background()

	rows, err := c.ExportedKeys(ctx, TableRow{Name: "users"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "orders", rows[0].FKTable)
	assert.Equal(t, "users", rows[0].PKTable)
	assert.Equal(t, "id", rows[0].PKColumn)

	rows, err = c.ExportedKeys(ctx, TableRow{Name: "products"})
	require.NoError(t, err)
	assert.Len(t, rows, 2)
	for _, r := range rows {
		assert.Equal(t, "order_items", r.FKTable)
	}

	rows, err = c.ExportedKeys(ctx, TableRow{Name: "order_items"})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestSQLiteCatalogIndexes(t *testing.T) {
	c := openShopCatalog(t)
	ctx := context.Background()

	rows, err := c.Indexes(ctx, TableRow{Name: "products"})
	require.NoError(t, err)
	require.Len(t, rows, 1, "primary key index is skipped")
	assert.Equal(t, IndexRow{
		NonUnique:       true,
		IndexName:       "idx_category",
		Type:            sqltype.IndexOther,
		OrdinalPosition: 1,
		ColumnName:      "category",
	}, rows[0])

	rows, err = c.Indexes(ctx, TableRow{Name: "users"})
	require.NoError(t, err)

	byIndex := make(map[string][]IndexRow)
	for _, r := range rows {
		byIndex[r.IndexName] = append(byIndex[r.IndexName], r)
	}
	require.Len(t, byIndex, 2)

	expr := byIndex["idx_users_email_region"]
	require.Len(t, expr, 2)
	assert.Empty(t, expr[0].ColumnName, "expression parts have no column")
	assert.Equal(t, "region", expr[1].ColumnName)
	assert.Equal(t, 2, expr[1].OrdinalPosition)

	for name, parts := range byIndex {
		if name == "idx_users_email_region" {
			continue
		}
		require.Len(t, parts, 1)
		assert.False(t, parts[0].NonUnique)
		assert.Equal(t, "email", parts[0].ColumnName)
	}
}

func TestSQLiteCatalogIntrospect(t *testing.T) {
	c := openShopCatalog(t)

	d, err := NewIntrospector(c, zap.NewNop()).Introspect(context.Background(), Filter{})
	require.NoError(t, err)
	require.Len(t, d.Tables(), 4)

	users := d.FindTable("users", "")
	orders := d.FindTable("orders", "")
	items := d.FindTable("order_items", "")
	products := d.FindTable("products", "")
	require.NotNil(t, users)
	require.NotNil(t, orders)
	require.NotNil(t, items)
	require.NotNil(t, products)

	fk := orders.ImportedKeyByLocalColumn("user_id")
	require.NotNil(t, fk)
	assert.True(t, fk.Resolved())
	assert.Same(t, users, fk.ForeignTable)
	assert.Equal(t, "users", fk.ForeignTableName)
	require.Len(t, fk.References, 1)
	assert.True(t, fk.References[0].Resolved())
	assert.Same(t, users.Column("id"), fk.References[0].ForeignColumn)

	require.Len(t, users.ExportedKeys(), 1)
	assert.True(t, users.ExportedKeys()[0].Resolved())
	assert.Same(t, orders, users.ExportedKeys()[0].ForeignTable)

	composite := items.ImportedKeyByLocalColumn("warehouse")
	require.NotNil(t, composite)
	assert.True(t, composite.Composite())
	assert.Same(t, products, composite.ForeignTable)
	assert.Equal(t, []string{"sku", "warehouse"}, composite.LocalColumnNames())
	assert.Equal(t, []string{"sku", "warehouse"}, composite.ForeignColumnNames())
	for _, r := range composite.References {
		assert.True(t, r.Resolved())
	}

	assert.True(t, users.Column("email").Unique)
	assert.False(t, users.Column("region").Unique)
	assert.False(t, products.Column("category").Unique)
	assert.False(t, items.IsJoinTable())

	for _, idx := range users.Indexes() {
		assert.NotContains(t, idx.ColumnNames(), "")
	}
}
