package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/tordrt/schemagraph/internal/sqltype"
)

// MySQLCatalog reads catalog metadata from MySQL's information_schema
type MySQLCatalog struct {
	db *sql.DB
}

// NewMySQLCatalog creates a catalog over an open database handle
func NewMySQLCatalog(db *sql.DB) *MySQLCatalog {
	return &MySQLCatalog{db: db}
}

// OpenMySQLCatalog connects to MySQL and returns a catalog over the connection
func OpenMySQLCatalog(ctx context.Context, dsn string) (*MySQLCatalog, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test the connection
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return NewMySQLCatalog(db), nil
}

// ParseDatabaseName extracts the database name from a MySQL DSN
func ParseDatabaseName(dsn string) (string, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("failed to parse MySQL DSN: %w", err)
	}
	if cfg.DBName == "" {
		return "", fmt.Errorf("database name not found in connection string")
	}
	return cfg.DBName, nil
}

// Close closes the underlying connection
func (c *MySQLCatalog) Close(_ context.Context) error {
	return c.db.Close()
}

// Tables lists base tables. A blank schema means the connection's database.
func (c *MySQLCatalog) Tables(ctx context.Context, f Filter) ([]TableRow, error) {
	query := `
		SELECT table_schema, table_name, COALESCE(table_comment, '')
		FROM information_schema.tables
		WHERE table_schema = COALESCE(NULLIF(?, ''), DATABASE())
			AND table_type = 'BASE TABLE'
			AND table_name LIKE ?
		ORDER BY table_name
	`

	rows, err := c.db.QueryContext(ctx, query, f.Schema, f.Pattern())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tables []TableRow
	for rows.Next() {
		var t TableRow
		if err := rows.Scan(&t.Schema, &t.Name, &t.Remarks); err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}

	return tables, rows.Err()
}

// Columns lists the table's columns in ordinal order
func (c *MySQLCatalog) Columns(ctx context.Context, t TableRow) ([]ColumnRow, error) {
	query := `
		SELECT
			c.column_name,
			c.data_type,
			c.column_type,
			c.character_maximum_length,
			c.numeric_precision,
			c.numeric_scale,
			c.datetime_precision,
			c.is_nullable,
			c.column_default,
			COALESCE(c.column_comment, ''),
			c.extra
		FROM information_schema.columns c
		WHERE c.table_schema = ? AND c.table_name = ?
		ORDER BY c.ordinal_position
	`

	rows, err := c.db.QueryContext(ctx, query, t.Schema, t.Name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []ColumnRow
	for rows.Next() {
		var col ColumnRow
		var dataType, columnType, nullable, extra string
		var charMaxLength, precision, scale, datetimePrecision sql.NullInt64
		var defaultVal sql.NullString

		if err := rows.Scan(&col.Name, &dataType, &columnType, &charMaxLength, &precision, &scale,
			&datetimePrecision, &nullable, &defaultVal, &col.Remarks, &extra); err != nil {
			return nil, err
		}

		col.DataType = sqltype.FromMySQL(dataType)
		col.TypeName = columnType
		col.Size = firstValid(charMaxLength, precision, datetimePrecision)
		col.DecimalDigits = firstValid(scale)

		// tinyint(1) is MySQL's boolean; the display width is the only hint
		if dataType == "tinyint" {
			if _, width, _ := sqltype.ParseDeclared(columnType); width > 0 {
				col.Size = width
			}
		}

		col.Nullable = nullability(nullable)
		if defaultVal.Valid {
			col.Default = &defaultVal.String
		}
		col.AutoIncrement = strings.Contains(strings.ToLower(extra), "auto_increment")

		columns = append(columns, col)
	}

	return columns, rows.Err()
}

// PrimaryKeys lists the table's primary key columns
func (c *MySQLCatalog) PrimaryKeys(ctx context.Context, t TableRow) ([]PrimaryKeyRow, error) {
	query := `
		SELECT column_name, ordinal_position, constraint_name
		FROM information_schema.key_column_usage
		WHERE table_schema = ?
			AND table_name = ?
			AND constraint_name = 'PRIMARY'
		ORDER BY ordinal_position
	`

	rows, err := c.db.QueryContext(ctx, query, t.Schema, t.Name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pk []PrimaryKeyRow
	for rows.Next() {
		var r PrimaryKeyRow
		if err := rows.Scan(&r.ColumnName, &r.KeySeq, &r.Name); err != nil {
			return nil, err
		}
		pk = append(pk, r)
	}

	return pk, rows.Err()
}

const mysqlKeyQuery = `
	SELECT
		kcu.referenced_table_schema,
		kcu.referenced_table_name,
		kcu.referenced_column_name,
		kcu.table_schema,
		kcu.table_name,
		kcu.column_name,
		kcu.ordinal_position,
		rc.update_rule,
		rc.delete_rule,
		kcu.constraint_name,
		rc.unique_constraint_name
	FROM information_schema.key_column_usage kcu
	JOIN information_schema.referential_constraints rc
		ON rc.constraint_schema = kcu.constraint_schema
		AND rc.constraint_name = kcu.constraint_name
		AND rc.table_name = kcu.table_name
	WHERE kcu.referenced_table_name IS NOT NULL
`

// ImportedKeys lists the foreign key columns declared on the table
func (c *MySQLCatalog) ImportedKeys(ctx context.Context, t TableRow) ([]KeyRow, error) {
	query := mysqlKeyQuery + `
		AND kcu.table_schema = ? AND kcu.table_name = ?
		ORDER BY kcu.referenced_table_name, kcu.constraint_name, kcu.ordinal_position
	`
	return c.keys(ctx, query, t)
}

// ExportedKeys lists the foreign key columns in other tables that point at the table
func (c *MySQLCatalog) ExportedKeys(ctx context.Context, t TableRow) ([]KeyRow, error) {
	query := mysqlKeyQuery + `
		AND kcu.referenced_table_schema = ? AND kcu.referenced_table_name = ?
		ORDER BY kcu.table_name, kcu.constraint_name, kcu.ordinal_position
	`
	return c.keys(ctx, query, t)
}

func (c *MySQLCatalog) keys(ctx context.Context, query string, t TableRow) ([]KeyRow, error) {
	rows, err := c.db.QueryContext(ctx, query, t.Schema, t.Name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []KeyRow
	for rows.Next() {
		var r KeyRow
		var updateRule, deleteRule string
		var pkName sql.NullString
		if err := rows.Scan(&r.PKSchema, &r.PKTable, &r.PKColumn, &r.FKSchema, &r.FKTable, &r.FKColumn,
			&r.KeySeq, &updateRule, &deleteRule, &r.FKName, &pkName); err != nil {
			return nil, err
		}
		r.UpdateRule = sqltype.RuleFromString(updateRule)
		r.DeleteRule = sqltype.RuleFromString(deleteRule)
		r.PKName = pkName.String
		keys = append(keys, r)
	}

	return keys, rows.Err()
}

// Indexes lists index columns, excluding the primary key
func (c *MySQLCatalog) Indexes(ctx context.Context, t TableRow) ([]IndexRow, error) {
	query := `
		SELECT
			s.non_unique,
			s.index_name,
			s.index_type,
			s.seq_in_index,
			s.column_name
		FROM information_schema.statistics s
		WHERE s.table_schema = ?
			AND s.table_name = ?
			AND s.index_name != 'PRIMARY'
		ORDER BY s.index_name, s.seq_in_index
	`

	rows, err := c.db.QueryContext(ctx, query, t.Schema, t.Name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var indexes []IndexRow
	for rows.Next() {
		var r IndexRow
		var nonUnique int
		var indexType string
		var columnName sql.NullString

		if err := rows.Scan(&nonUnique, &r.IndexName, &indexType, &r.OrdinalPosition, &columnName); err != nil {
			return nil, err
		}

		r.NonUnique = nonUnique != 0
		r.ColumnName = columnName.String // NULL for functional key parts
		if strings.EqualFold(indexType, "HASH") {
			r.Type = sqltype.IndexHashed
		} else {
			r.Type = sqltype.IndexOther
		}
		indexes = append(indexes, r)
	}

	return indexes, rows.Err()
}

// firstValid returns the first valid value, or 0
func firstValid(values ...sql.NullInt64) int {
	for _, v := range values {
		if v.Valid {
			return int(v.Int64)
		}
	}
	return 0
}
