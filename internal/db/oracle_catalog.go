package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/sijms/go-ora/v2"

	"github.com/tordrt/schemagraph/internal/sqltype"
)

// OracleCatalog reads catalog metadata from Oracle's ALL_* dictionary views.
// Dropped tables stay visible there under BIN$ names until the recycle bin
// is purged; Filter.Match skips them.
type OracleCatalog struct {
	db *sql.DB
}

// NewOracleCatalog creates a catalog over an open database handle
func NewOracleCatalog(db *sql.DB) *OracleCatalog {
	return &OracleCatalog{db: db}
}

// OpenOracleCatalog connects to Oracle through an oracle:// URL and returns a catalog over the connection
func OpenOracleCatalog(ctx context.Context, connString string) (*OracleCatalog, error) {
	db, err := sql.Open("oracle", connString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	// Test the connection
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return NewOracleCatalog(db), nil
}

// Close closes the underlying connection
func (c *OracleCatalog) Close(_ context.Context) error {
	return c.db.Close()
}

// Tables lists tables owned by the schema. A blank schema means the
// session's current schema.
func (c *OracleCatalog) Tables(ctx context.Context, f Filter) ([]TableRow, error) {
	query := `
		SELECT t.OWNER, t.TABLE_NAME, c.COMMENTS
		FROM ALL_TABLES t
		LEFT JOIN ALL_TAB_COMMENTS c ON c.OWNER = t.OWNER AND c.TABLE_NAME = t.TABLE_NAME
		WHERE t.OWNER = NVL(:1, SYS_CONTEXT('USERENV', 'CURRENT_SCHEMA'))
		  AND t.TABLE_NAME LIKE :2 ESCAPE '\'
		ORDER BY t.TABLE_NAME`

	rows, err := c.db.QueryContext(ctx, query, f.Schema, f.Pattern())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tables []TableRow
	for rows.Next() {
		var t TableRow
		var comments sql.NullString
		if err := rows.Scan(&t.Schema, &t.Name, &comments); err != nil {
			return nil, err
		}
		t.Remarks = comments.String
		tables = append(tables, t)
	}

	return tables, rows.Err()
}

// Columns lists the table's columns in COLUMN_ID order
func (c *OracleCatalog) Columns(ctx context.Context, t TableRow) ([]ColumnRow, error) {
	query := `
		SELECT c.COLUMN_NAME, c.DATA_TYPE, c.CHAR_LENGTH, c.DATA_PRECISION, c.DATA_SCALE, c.DATA_LENGTH,
			c.NULLABLE, c.DATA_DEFAULT, cc.COMMENTS
		FROM ALL_TAB_COLUMNS c
		LEFT JOIN ALL_COL_COMMENTS cc
			ON cc.OWNER = c.OWNER AND cc.TABLE_NAME = c.TABLE_NAME AND cc.COLUMN_NAME = c.COLUMN_NAME
		WHERE c.OWNER = :1 AND c.TABLE_NAME = :2
		ORDER BY c.COLUMN_ID`

	rows, err := c.db.QueryContext(ctx, query, t.Schema, t.Name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []ColumnRow
	for rows.Next() {
		var col ColumnRow
		var dataType, nullable string
		var charLength, precision, scale, dataLength sql.NullInt64
		var defaultVal, comments sql.NullString

		if err := rows.Scan(&col.Name, &dataType, &charLength, &precision, &scale, &dataLength,
			&nullable, &defaultVal, &comments); err != nil {
			return nil, err
		}

		col.DataType = sqltype.FromOracle(dataType)
		col.TypeName = dataType
		if charLength.Valid && charLength.Int64 > 0 {
			col.Size = int(charLength.Int64)
		} else {
			col.Size = firstValid(precision, dataLength)
		}
		col.DecimalDigits = firstValid(scale)
		col.Nullable = nullability(nullable)
		if defaultVal.Valid {
			col.Default = &defaultVal.String
		}
		col.Remarks = comments.String

		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	identity := c.identityColumns(ctx, t)
	for i := range columns {
		columns[i].AutoIncrement = identity[columns[i].Name]
	}

	return columns, nil
}

// identityColumns returns the table's identity columns. IDENTITY_COLUMN does
// not exist before 12c, so a failed query means none.
func (c *OracleCatalog) identityColumns(ctx context.Context, t TableRow) map[string]bool {
	query := `
		SELECT COLUMN_NAME
		FROM ALL_TAB_COLUMNS
		WHERE OWNER = :1 AND TABLE_NAME = :2 AND IDENTITY_COLUMN = 'YES'`

	identity := make(map[string]bool)
	rows, err := c.db.QueryContext(ctx, query, t.Schema, t.Name)
	if err != nil {
		return identity
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return identity
		}
		identity[name] = true
	}
	return identity
}

// PrimaryKeys lists the table's primary key columns
func (c *OracleCatalog) PrimaryKeys(ctx context.Context, t TableRow) ([]PrimaryKeyRow, error) {
	query := `
		SELECT cc.COLUMN_NAME, cc.POSITION, c.CONSTRAINT_NAME
		FROM ALL_CONSTRAINTS c
		JOIN ALL_CONS_COLUMNS cc ON c.CONSTRAINT_NAME = cc.CONSTRAINT_NAME AND c.OWNER = cc.OWNER
		WHERE c.OWNER = :1
		  AND c.TABLE_NAME = :2
		  AND c.CONSTRAINT_TYPE = 'P'
		ORDER BY cc.POSITION`

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

const oracleKeyQuery = `
	SELECT rc.OWNER, rc.TABLE_NAME, rcc.COLUMN_NAME,
		c.OWNER, c.TABLE_NAME, cc.COLUMN_NAME,
		cc.POSITION, c.DELETE_RULE, c.CONSTRAINT_NAME, rc.CONSTRAINT_NAME
	FROM ALL_CONSTRAINTS c
	JOIN ALL_CONS_COLUMNS cc ON c.CONSTRAINT_NAME = cc.CONSTRAINT_NAME AND c.OWNER = cc.OWNER
	JOIN ALL_CONSTRAINTS rc ON c.R_CONSTRAINT_NAME = rc.CONSTRAINT_NAME AND c.R_OWNER = rc.OWNER
	JOIN ALL_CONS_COLUMNS rcc ON rc.CONSTRAINT_NAME = rcc.CONSTRAINT_NAME AND rc.OWNER = rcc.OWNER
		AND cc.POSITION = rcc.POSITION
	WHERE c.CONSTRAINT_TYPE = 'R'`

// ImportedKeys lists the foreign key columns declared on the table
func (c *OracleCatalog) ImportedKeys(ctx context.Context, t TableRow) ([]KeyRow, error) {
	query := oracleKeyQuery + `
	  AND c.OWNER = :1 AND c.TABLE_NAME = :2
	ORDER BY rc.TABLE_NAME, c.CONSTRAINT_NAME, cc.POSITION`
	return c.keys(ctx, query, t)
}

// ExportedKeys lists the foreign key columns in other tables that point at the table
func (c *OracleCatalog) ExportedKeys(ctx context.Context, t TableRow) ([]KeyRow, error) {
	query := oracleKeyQuery + `
	  AND rc.OWNER = :1 AND rc.TABLE_NAME = :2
	ORDER BY c.TABLE_NAME, c.CONSTRAINT_NAME, cc.POSITION`
	return c.keys(ctx, query, t)
}

// keys reads key rows. Oracle has no ON UPDATE clause, so the update rule
// is always NO ACTION.
func (c *OracleCatalog) keys(ctx context.Context, query string, t TableRow) ([]KeyRow, error) {
	rows, err := c.db.QueryContext(ctx, query, t.Schema, t.Name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []KeyRow
	for rows.Next() {
		var r KeyRow
		var deleteRule sql.NullString
		if err := rows.Scan(&r.PKSchema, &r.PKTable, &r.PKColumn, &r.FKSchema, &r.FKTable, &r.FKColumn,
			&r.KeySeq, &deleteRule, &r.FKName, &r.PKName); err != nil {
			return nil, err
		}
		r.UpdateRule = sqltype.RuleNoAction
		r.DeleteRule = sqltype.RuleFromString(deleteRule.String)
		keys = append(keys, r)
	}

	return keys, rows.Err()
}

// Indexes lists index columns, excluding the index backing the primary key
func (c *OracleCatalog) Indexes(ctx context.Context, t TableRow) ([]IndexRow, error) {
	query := `
		SELECT i.UNIQUENESS, i.INDEX_NAME, i.INDEX_TYPE, ic.COLUMN_POSITION, ic.COLUMN_NAME
		FROM ALL_INDEXES i
		JOIN ALL_IND_COLUMNS ic ON i.INDEX_NAME = ic.INDEX_NAME AND i.OWNER = ic.INDEX_OWNER
		WHERE i.TABLE_OWNER = :1
		  AND i.TABLE_NAME = :2
		  AND NOT EXISTS (
			SELECT 1 FROM ALL_CONSTRAINTS pc
			WHERE pc.OWNER = i.TABLE_OWNER
			  AND pc.INDEX_NAME = i.INDEX_NAME
			  AND pc.CONSTRAINT_TYPE = 'P'
		  )
		ORDER BY i.INDEX_NAME, ic.COLUMN_POSITION`

	rows, err := c.db.QueryContext(ctx, query, t.Schema, t.Name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var indexes []IndexRow
	for rows.Next() {
		var r IndexRow
		var uniqueness, indexType string
		if err := rows.Scan(&uniqueness, &r.IndexName, &indexType, &r.OrdinalPosition, &r.ColumnName); err != nil {
			return nil, err
		}

		r.NonUnique = uniqueness != "UNIQUE"
		if indexType == "CLUSTER" {
			r.Type = sqltype.IndexClustered
		} else {
			r.Type = sqltype.IndexOther
		}
		indexes = append(indexes, r)
	}

	return indexes, rows.Err()
}
