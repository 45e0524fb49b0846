//go:build integration
// +build integration

package integration

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/tordrt/schemagraph/internal/db"
	"github.com/tordrt/schemagraph/internal/schema"
)

// shopTables are the tables every seeded test database carries
var shopTables = []string{"users", "products", "orders", "order_items"}

// introspect runs the full pipeline against an open catalog
func introspect(t *testing.T, c db.Catalog, f db.Filter) *schema.Database {
	t.Helper()

	d, err := db.NewIntrospector(c, nil).Introspect(context.Background(), f)
	if err != nil {
		t.Fatalf("Failed to introspect schema: %v", err)
	}
	return d
}

// verifyTablesExist checks that exactly the expected tables are present
func verifyTablesExist(t *testing.T, d *schema.Database, expectedTables []string) {
	t.Helper()

	if len(d.Tables()) != len(expectedTables) {
		t.Errorf("Expected %d tables, got %d", len(expectedTables), len(d.Tables()))
	}

	for _, tableName := range expectedTables {
		if findTable(d, tableName) == nil {
			t.Errorf("Expected table %s not found in schema", tableName)
		}
	}
}

// verifyColumns checks that expected columns exist in a table
func verifyColumns(t *testing.T, table *schema.Table, expectedColumns []string) {
	t.Helper()

	for _, colName := range expectedColumns {
		if table.Column(colName) == nil {
			t.Errorf("Expected column %s not found in %s table", colName, table.Name)
		}
	}
}

// verifyPrimaryKey checks that a table has the expected primary key
func verifyPrimaryKey(t *testing.T, table *schema.Table, expectedPK []string) {
	t.Helper()

	pk := table.PrimaryKeyColumns()
	names := make([]string, len(pk))
	for i, c := range pk {
		names[i] = c.Name
	}

	if len(names) != len(expectedPK) {
		t.Errorf("Expected primary key %v, got %v", expectedPK, names)
		return
	}
	for i := range expectedPK {
		if names[i] != expectedPK[i] {
			t.Errorf("Expected primary key %v, got %v", expectedPK, names)
			return
		}
	}
}

// verifyUniqueConstraint checks that a column is marked unique
func verifyUniqueConstraint(t *testing.T, d *schema.Database, tableName, columnName string) {
	t.Helper()

	table := mustFindTable(t, d, tableName)
	col := table.Column(columnName)
	if col == nil {
		t.Errorf("Column %s not found in table %s", columnName, tableName)
		return
	}
	if !col.Unique {
		t.Errorf("Expected %s column to have unique constraint", columnName)
	}
}

// verifyForeignKey checks that a resolved key links both tables: the child's
// imported key points at the parent and the parent exports it back
func verifyForeignKey(t *testing.T, d *schema.Database, tableName, sourceColumn, targetTable string) {
	t.Helper()

	child := mustFindTable(t, d, tableName)
	fk := child.ImportedKeyByLocalColumn(sourceColumn)
	if fk == nil || fk.ForeignTableName != targetTable {
		t.Errorf("Expected foreign key relationship from %s.%s to %s not found", tableName, sourceColumn, targetTable)
		return
	}
	if !fk.Resolved() {
		t.Errorf("Expected foreign key %s to be resolved", fk.Name)
		return
	}
	for _, ref := range fk.References {
		if !ref.Resolved() {
			t.Errorf("Expected reference %s of %s to be resolved", ref.LocalColumnName, fk.Name)
		}
	}

	parent := mustFindTable(t, d, targetTable)
	for _, exported := range parent.ExportedKeys() {
		if exported.ForeignTableName == tableName {
			return
		}
	}
	t.Errorf("Expected %s to export a key to %s", targetTable, tableName)
}

// verifyIndex checks that an index exists with the expected columns
func verifyIndex(t *testing.T, d *schema.Database, tableName, indexName string, expectedColumns []string) {
	t.Helper()

	table := mustFindTable(t, d, tableName)
	for _, idx := range table.Indexes() {
		if idx.Name != indexName {
			continue
		}
		cols := idx.ColumnNames()
		if len(cols) != len(expectedColumns) {
			t.Errorf("Expected index %s on %v, got %v", indexName, expectedColumns, cols)
			return
		}
		for i, col := range expectedColumns {
			if cols[i] != col {
				t.Errorf("Expected index %s on %v, got %v", indexName, expectedColumns, cols)
				return
			}
		}
		return
	}

	t.Errorf("Expected index %s on %s table not found", indexName, tableName)
}

// findTable looks a table up by name in any schema
func findTable(d *schema.Database, tableName string) *schema.Table {
	for _, table := range d.Tables() {
		if table.Name == tableName {
			return table
		}
	}
	return nil
}

func mustFindTable(t *testing.T, d *schema.Database, tableName string) *schema.Table {
	t.Helper()

	table := findTable(d, tableName)
	if table == nil {
		t.Fatalf("Table %s not found", tableName)
	}
	return table
}

const sqliteShopDDL = `
CREATE TABLE users (
	id INTEGER PRIMARY KEY,
	username TEXT NOT NULL UNIQUE,
	email TEXT NOT NULL,
	status TEXT DEFAULT 'active',
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE products (
	id INTEGER PRIMARY KEY,
	name TEXT NOT NULL,
	category TEXT,
	price DECIMAL(10,2) NOT NULL
);
CREATE INDEX idx_category ON products(category);
CREATE TABLE orders (
	id INTEGER PRIMARY KEY,
	user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	total DECIMAL(10,2)
);
CREATE TABLE order_items (
	order_id INTEGER NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
	product_id INTEGER NOT NULL REFERENCES products,
	quantity INTEGER NOT NULL DEFAULT 1,
	PRIMARY KEY (order_id, product_id)
);
`

// createSQLiteShop writes the shop fixture to a fresh database file and
// returns its path
func createSQLiteShop(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "shop.db")
	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("Failed to create SQLite database: %v", err)
	}
	defer conn.Close()

	if _, err := conn.Exec(sqliteShopDDL); err != nil {
		t.Fatalf("Failed to seed SQLite database: %v", err)
	}
	return path
}
