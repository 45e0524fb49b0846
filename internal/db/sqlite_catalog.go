package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/tordrt/schemagraph/internal/sqltype"
)

// SQLiteCatalog reads catalog metadata from SQLite PRAGMAs. SQLite has no
// schemas, so every table is reported with a blank schema.
type SQLiteCatalog struct {
	db *sql.DB
}

// NewSQLiteCatalog creates a catalog over an open database handle
func NewSQLiteCatalog(db *sql.DB) *SQLiteCatalog {
	return &SQLiteCatalog{db: db}
}

// OpenSQLiteCatalog opens the database file and returns a catalog over it
func OpenSQLiteCatalog(ctx context.Context, path string) (*SQLiteCatalog, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test the connection
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return NewSQLiteCatalog(db), nil
}

// Close closes the underlying connection
func (c *SQLiteCatalog) Close(_ context.Context) error {
	return c.db.Close()
}

// Tables lists user tables. The schema filter is ignored.
func (c *SQLiteCatalog) Tables(ctx context.Context, f Filter) ([]TableRow, error) {
	query := `
		SELECT name
		FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%' AND name LIKE ? ESCAPE '\'
		ORDER BY name
	`

	rows, err := c.db.QueryContext(ctx, query, f.Pattern())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tables []TableRow
	for rows.Next() {
		var t TableRow
		if err := rows.Scan(&t.Name); err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}

	return tables, rows.Err()
}

// quoteIdent quotes an identifier for use in a PRAGMA
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

type sqliteColumn struct {
	name     string
	declared string
	notNull  bool
	dflt     sql.NullString
	pk       int
}

func (c *SQLiteCatalog) tableInfo(ctx context.Context, table string) ([]sqliteColumn, error) {
	query := fmt.Sprintf("PRAGMA table_info(%s)", quoteIdent(table))

	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []sqliteColumn
	for rows.Next() {
		var cid, notNull int
		var col sqliteColumn
		if err := rows.Scan(&cid, &col.name, &col.declared, &notNull, &col.dflt, &col.pk); err != nil {
			return nil, err
		}
		col.notNull = notNull != 0
		columns = append(columns, col)
	}

	return columns, rows.Err()
}

// Columns lists the table's columns in declaration order
func (c *SQLiteCatalog) Columns(ctx context.Context, t TableRow) ([]ColumnRow, error) {
	info, err := c.tableInfo(ctx, t.Name)
	if err != nil {
		return nil, err
	}

	pkCount := 0
	for _, col := range info {
		if col.pk > 0 {
			pkCount++
		}
	}

	columns := make([]ColumnRow, 0, len(info))
	for _, col := range info {
		_, size, scale := sqltype.ParseDeclared(col.declared)
		row := ColumnRow{
			Name:          col.name,
			DataType:      sqltype.FromSQLite(col.declared),
			TypeName:      col.declared,
			Size:          size,
			DecimalDigits: scale,
			Nullable:      sqltype.ColumnNullable,
		}
		if col.notNull {
			row.Nullable = sqltype.ColumnNoNulls
		}
		if col.dflt.Valid {
			row.Default = &col.dflt.String
		}

		// A lone INTEGER PRIMARY KEY aliases the rowid
		row.AutoIncrement = pkCount == 1 && col.pk == 1 && strings.EqualFold(strings.TrimSpace(col.declared), "integer")

		columns = append(columns, row)
	}

	return columns, nil
}

// PrimaryKeys lists the table's primary key columns
func (c *SQLiteCatalog) PrimaryKeys(ctx context.Context, t TableRow) ([]PrimaryKeyRow, error) {
	info, err := c.tableInfo(ctx, t.Name)
	if err != nil {
		return nil, err
	}

	var pk []PrimaryKeyRow
	for _, col := range info {
		if col.pk > 0 {
			pk = append(pk, PrimaryKeyRow{ColumnName: col.name, KeySeq: col.pk})
		}
	}

	return pk, nil
}

// ImportedKeys lists the foreign key columns declared on the table
func (c *SQLiteCatalog) ImportedKeys(ctx context.Context, t TableRow) ([]KeyRow, error) {
	return c.foreignKeyList(ctx, t.Name)
}

// ExportedKeys scans every table's foreign keys for references to the table
func (c *SQLiteCatalog) ExportedKeys(ctx context.Context, t TableRow) ([]KeyRow, error) {
	tables, err := c.Tables(ctx, Filter{})
	if err != nil {
		return nil, err
	}

	var keys []KeyRow
	for _, other := range tables {
		imported, err := c.foreignKeyList(ctx, other.Name)
		if err != nil {
			return nil, err
		}
		for _, r := range imported {
			if strings.EqualFold(r.PKTable, t.Name) {
				keys = append(keys, r)
			}
		}
	}

	return keys, nil
}

func (c *SQLiteCatalog) foreignKeyList(ctx context.Context, table string) ([]KeyRow, error) {
	query := fmt.Sprintf("PRAGMA foreign_key_list(%s)", quoteIdent(table))

	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}

	var keys []KeyRow
	for rows.Next() {
		var id, seq int
		var targetTable, fromCol, onUpdate, onDelete, match string
		var toCol sql.NullString

		if err := rows.Scan(&id, &seq, &targetTable, &fromCol, &toCol, &onUpdate, &onDelete, &match); err != nil {
			rows.Close()
			return nil, err
		}

		keys = append(keys, KeyRow{
			PKTable:    targetTable,
			PKColumn:   toCol.String,
			FKTable:    table,
			FKColumn:   fromCol,
			KeySeq:     seq + 1,
			UpdateRule: sqltype.RuleFromString(onUpdate),
			DeleteRule: sqltype.RuleFromString(onDelete),
			FKName:     fmt.Sprintf("fk_%s_%d", table, id),
		})
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, err
	}

	if len(keys) == 0 {
		return nil, nil
	}
	if err := c.canonicalizeNames(ctx, table, keys); err != nil {
		return nil, err
	}
	return keys, nil
}

// canonicalizeNames rewrites the column and table names of keys declared on
// table to the spelling they were declared with, since a FOREIGN KEY or
// REFERENCES clause may use any case. A clause without a column list targets
// the parent's primary key. Keys to a missing parent keep the clause's names.
func (c *SQLiteCatalog) canonicalizeNames(ctx context.Context, table string, keys []KeyRow) error {
	child, err := c.tableInfo(ctx, table)
	if err != nil {
		return err
	}
	parents := make(map[string][]sqliteColumn)

	for i := range keys {
		k := &keys[i]
		for _, col := range child {
			if strings.EqualFold(col.name, k.FKColumn) {
				k.FKColumn = col.name
				break
			}
		}

		name, err := c.tableName(ctx, k.PKTable)
		if err != nil {
			return err
		}
		if name == "" {
			continue
		}
		k.PKTable = name

		info, ok := parents[name]
		if !ok {
			if info, err = c.tableInfo(ctx, name); err != nil {
				return err
			}
			parents[name] = info
		}

		for _, col := range info {
			if (k.PKColumn == "" && col.pk == k.KeySeq) || (k.PKColumn != "" && strings.EqualFold(col.name, k.PKColumn)) {
				k.PKColumn = col.name
				break
			}
		}
	}

	return nil
}

// tableName returns the declared name of the table matching name in any
// case, or "" when there is none.
func (c *SQLiteCatalog) tableName(ctx context.Context, name string) (string, error) {
	var declared string
	err := c.db.QueryRowContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ? COLLATE NOCASE`, name).Scan(&declared)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return declared, err
}

// Indexes lists index columns, excluding the primary key index
func (c *SQLiteCatalog) Indexes(ctx context.Context, t TableRow) ([]IndexRow, error) {
	query := fmt.Sprintf("PRAGMA index_list(%s)", quoteIdent(t.Name))

	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}

	type indexEntry struct {
		name   string
		unique bool
	}
	var entries []indexEntry
	for rows.Next() {
		var seq, unique, partial int
		var name, origin string

		if err := rows.Scan(&seq, &name, &unique, &origin, &partial); err != nil {
			rows.Close()
			return nil, err
		}

		// Skip the implicit primary key index
		if origin == "pk" {
			continue
		}
		entries = append(entries, indexEntry{name: name, unique: unique == 1})
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, err
	}

	var indexes []IndexRow
	for _, e := range entries {
		cols, err := c.indexInfo(ctx, e.name)
		if err != nil {
			return nil, err
		}
		for _, r := range cols {
			r.NonUnique = !e.unique
			r.IndexName = e.name
			r.Type = sqltype.IndexOther
			indexes = append(indexes, r)
		}
	}

	return indexes, nil
}

func (c *SQLiteCatalog) indexInfo(ctx context.Context, index string) ([]IndexRow, error) {
	query := fmt.Sprintf("PRAGMA index_info(%s)", quoteIdent(index))

	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []IndexRow
	for rows.Next() {
		var seqno, cid int
		var colName sql.NullString

		if err := rows.Scan(&seqno, &cid, &colName); err != nil {
			return nil, err
		}

		// colName is NULL for expression key parts
		cols = append(cols, IndexRow{OrdinalPosition: seqno + 1, ColumnName: colName.String})
	}

	return cols, rows.Err()
}
