//go:build integration
// +build integration

package integration

import (
	"context"
	"os"
	"testing"

	"github.com/tordrt/schemagraph/internal/db"
	"github.com/tordrt/schemagraph/internal/schema"
)

func openSQLite(t *testing.T) *db.SQLiteCatalog {
	t.Helper()

	// Use environment variable if set, otherwise seed a fresh database
	dbPath := os.Getenv("SQLITE_TEST_PATH")
	if dbPath == "" {
		dbPath = createSQLiteShop(t)
	}

	catalog, err := db.OpenSQLiteCatalog(context.Background(), dbPath)
	if err != nil {
		t.Fatalf("Failed to connect to SQLite: %v", err)
	}
	t.Cleanup(func() { _ = catalog.Close(context.Background()) })
	return catalog
}

func TestSQLiteIntrospection(t *testing.T) {
	d := introspect(t, openSQLite(t), db.Filter{})

	verifyTablesExist(t, d, shopTables)
	if d.MultipleSchemas() {
		t.Error("SQLite tables should share a single schema")
	}

	// Verify users table structure
	table := mustFindTable(t, d, "users")
	if !table.Schema.IsNone() {
		t.Errorf("Expected no schema, got %s", table.Schema)
	}
	verifyPrimaryKey(t, table, []string{"id"})
	verifyColumns(t, table, []string{"id", "username", "email", "status", "created_at"})
	if !table.Column("id").AutoIncrement {
		t.Error("Expected INTEGER PRIMARY KEY to be auto-increment")
	}

	verifyUniqueConstraint(t, d, "users", "username")
	verifyForeignKey(t, d, "orders", "user_id", "users")
	verifyIndex(t, d, "products", "idx_category", []string{"category"})

	orders := mustFindTable(t, d, "orders")
	if fk := orders.ImportedKeyByLocalColumn("user_id"); fk != nil && fk.OnDelete != schema.ActionCascade {
		t.Errorf("Expected ON DELETE CASCADE, got %s", fk.OnDelete)
	}
}

func TestSQLiteImplicitReferenceTargetsPrimaryKey(t *testing.T) {
	d := introspect(t, openSQLite(t), db.Filter{})

	// order_items.product_id REFERENCES products without a column list
	verifyForeignKey(t, d, "order_items", "product_id", "products")
	fk := mustFindTable(t, d, "order_items").ImportedKeyByLocalColumn("product_id")
	if fk != nil && fk.References[0].ForeignColumnName != "id" {
		t.Errorf("Expected reference to products.id, got %s", fk.References[0].ForeignColumnName)
	}
}

func TestSQLiteCompositePrimaryKey(t *testing.T) {
	d := introspect(t, openSQLite(t), db.Filter{})

	items := mustFindTable(t, d, "order_items")
	verifyPrimaryKey(t, items, []string{"order_id", "product_id"})

	// quantity is not part of any key, so this is not a join table
	if items.IsJoinTable() {
		t.Error("Expected order_items not to be a join table")
	}
}

func TestSQLiteSpecificTables(t *testing.T) {
	d := introspect(t, openSQLite(t), db.Filter{Tables: []string{"users", "orders"}})

	verifyTablesExist(t, d, []string{"users", "orders"})

	// The key to users resolves; order_items was never read
	verifyForeignKey(t, d, "orders", "user_id", "users")
	for _, fk := range mustFindTable(t, d, "orders").ExportedKeys() {
		if fk.Resolved() {
			t.Errorf("Expected key %s to %s to stay unresolved", fk.Name, fk.ForeignTableName)
		}
	}
}

func TestSQLiteTablePattern(t *testing.T) {
	d := introspect(t, openSQLite(t), db.Filter{TablePattern: "order%"})

	verifyTablesExist(t, d, []string{"orders", "order_items"})
}
