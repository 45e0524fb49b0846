package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/tordrt/schemagraph/internal/sqltype"
)

const varcharType = "varchar"

// PostgresCatalog reads catalog metadata from PostgreSQL
type PostgresCatalog struct {
	conn *pgx.Conn
}

// NewPostgresCatalog creates a catalog over an open connection
func NewPostgresCatalog(conn *pgx.Conn) *PostgresCatalog {
	return &PostgresCatalog{conn: conn}
}

// OpenPostgresCatalog connects to PostgreSQL and returns a catalog over the connection
func OpenPostgresCatalog(ctx context.Context, connString string) (*PostgresCatalog, error) {
	conn, err := pgx.Connect(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test the connection
	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close(ctx)
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return NewPostgresCatalog(conn), nil
}

// Close closes the database connection
func (c *PostgresCatalog) Close(ctx context.Context) error {
	return c.conn.Close(ctx)
}

// Tables lists base tables. A blank schema means current_schema().
func (c *PostgresCatalog) Tables(ctx context.Context, f Filter) ([]TableRow, error) {
	query := `
		SELECT
			t.table_schema,
			t.table_name,
			COALESCE(obj_description(format('%I.%I', t.table_schema, t.table_name)::regclass, 'pg_class'), '')
		FROM information_schema.tables t
		WHERE t.table_schema = COALESCE(NULLIF($1::text, ''), current_schema())
			AND t.table_type = 'BASE TABLE'
			AND t.table_name LIKE $2
		ORDER BY t.table_name
	`

	rows, err := c.conn.Query(ctx, query, f.Schema, f.Pattern())
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

// normalizePostgresType maps verbose SQL type names to commonly-used PostgreSQL equivalents
func normalizePostgresType(dataType, udtName string, charMaxLength *int) string {
	switch dataType {
	case "timestamp with time zone":
		return "timestamptz"
	case "timestamp without time zone":
		return "timestamp"
	case "time with time zone":
		return "timetz"
	case "time without time zone":
		return "time"
	case "character varying":
		if charMaxLength != nil {
			return fmt.Sprintf("varchar(%d)", *charMaxLength)
		}
		return varcharType
	case "character":
		if charMaxLength != nil {
			return fmt.Sprintf("char(%d)", *charMaxLength)
		}
		return "char"
	case "ARRAY":
		// udt_name has underscore prefix for arrays (e.g., "_text" for text[], "_int4" for integer[])
		if len(udtName) > 0 && udtName[0] == '_' {
			elementType := normalizeUdtName(udtName[1:])
			return fmt.Sprintf("%s[]", elementType)
		}
		return "array"
	case "USER-DEFINED":
		return udtName
	default:
		return dataType
	}
}

// normalizeUdtName converts PostgreSQL internal type names to more readable forms
func normalizeUdtName(udtName string) string {
	switch udtName {
	case "int4":
		return "integer"
	case "int8":
		return "bigint"
	case "int2":
		return "smallint"
	case "float4":
		return "real"
	case "float8":
		return "double precision"
	case "bool":
		return "boolean"
	case varcharType:
		return varcharType
	default:
		return udtName
	}
}

// Columns lists the table's columns in ordinal order
func (c *PostgresCatalog) Columns(ctx context.Context, t TableRow) ([]ColumnRow, error) {
	query := `
		SELECT
			c.column_name,
			c.data_type,
			c.udt_name,
			c.character_maximum_length::int,
			c.numeric_precision::int,
			c.numeric_scale::int,
			c.datetime_precision::int,
			c.is_nullable,
			c.column_default,
			COALESCE(col_description(format('%I.%I', c.table_schema, c.table_name)::regclass, c.ordinal_position::int), ''),
			c.is_identity
		FROM information_schema.columns c
		WHERE c.table_schema = $1 AND c.table_name = $2
		ORDER BY c.ordinal_position
	`

	rows, err := c.conn.Query(ctx, query, t.Schema, t.Name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []ColumnRow
	for rows.Next() {
		var col ColumnRow
		var dataType, udtName, nullable, identity string
		var charMaxLength, precision, scale, datetimePrecision *int

		if err := rows.Scan(&col.Name, &dataType, &udtName, &charMaxLength, &precision, &scale,
			&datetimePrecision, &nullable, &col.Default, &col.Remarks, &identity); err != nil {
			return nil, err
		}

		col.DataType = sqltype.FromPostgres(dataType)
		col.TypeName = normalizePostgresType(dataType, udtName, charMaxLength)
		col.Size = firstSet(charMaxLength, precision, datetimePrecision)
		col.DecimalDigits = firstSet(scale)
		col.Nullable = nullability(nullable)
		col.AutoIncrement = identity == "YES" ||
			(col.Default != nil && strings.HasPrefix(*col.Default, "nextval("))

		columns = append(columns, col)
	}

	return columns, rows.Err()
}

// PrimaryKeys lists the table's primary key columns
func (c *PostgresCatalog) PrimaryKeys(ctx context.Context, t TableRow) ([]PrimaryKeyRow, error) {
	query := `
		SELECT kcu.column_name, kcu.ordinal_position::int, kcu.constraint_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON tc.constraint_name = kcu.constraint_name
			AND tc.table_schema = kcu.table_schema
			AND tc.table_name = kcu.table_name
		WHERE tc.table_schema = $1
			AND tc.table_name = $2
			AND tc.constraint_type = 'PRIMARY KEY'
		ORDER BY kcu.ordinal_position
	`

	rows, err := c.conn.Query(ctx, query, t.Schema, t.Name)
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

// postgresKeyQuery pairs conkey with confkey so composite keys keep their
// column order. The WHERE clause is appended by the caller.
const postgresKeyQuery = `
	SELECT
		pn.nspname, pc.relname, pa.attname,
		fn.nspname, fc.relname, fa.attname,
		k.seq::int,
		con.confupdtype::text,
		con.confdeltype::text,
		con.conname,
		COALESCE((
			SELECT p.conname FROM pg_constraint p
			WHERE p.conindid = con.conindid AND p.contype IN ('p', 'u')
			LIMIT 1
		), '')
	FROM pg_constraint con
	CROSS JOIN LATERAL unnest(con.conkey, con.confkey) WITH ORDINALITY AS k(fk_attnum, pk_attnum, seq)
	JOIN pg_class fc ON fc.oid = con.conrelid
	JOIN pg_namespace fn ON fn.oid = fc.relnamespace
	JOIN pg_attribute fa ON fa.attrelid = con.conrelid AND fa.attnum = k.fk_attnum
	JOIN pg_class pc ON pc.oid = con.confrelid
	JOIN pg_namespace pn ON pn.oid = pc.relnamespace
	JOIN pg_attribute pa ON pa.attrelid = con.confrelid AND pa.attnum = k.pk_attnum
	WHERE con.contype = 'f'
`

// ImportedKeys lists the foreign key columns declared on the table
func (c *PostgresCatalog) ImportedKeys(ctx context.Context, t TableRow) ([]KeyRow, error) {
	query := postgresKeyQuery + `
		AND fn.nspname = $1 AND fc.relname = $2
		ORDER BY pc.relname, con.conname, k.seq
	`
	return c.keys(ctx, query, t)
}

// ExportedKeys lists the foreign key columns in other tables that point at the table
func (c *PostgresCatalog) ExportedKeys(ctx context.Context, t TableRow) ([]KeyRow, error) {
	query := postgresKeyQuery + `
		AND pn.nspname = $1 AND pc.relname = $2
		ORDER BY fc.relname, con.conname, k.seq
	`
	return c.keys(ctx, query, t)
}

func (c *PostgresCatalog) keys(ctx context.Context, query string, t TableRow) ([]KeyRow, error) {
	rows, err := c.conn.Query(ctx, query, t.Schema, t.Name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []KeyRow
	for rows.Next() {
		var r KeyRow
		var updateRule, deleteRule string
		if err := rows.Scan(&r.PKSchema, &r.PKTable, &r.PKColumn, &r.FKSchema, &r.FKTable, &r.FKColumn,
			&r.KeySeq, &updateRule, &deleteRule, &r.FKName, &r.PKName); err != nil {
			return nil, err
		}
		r.UpdateRule = postgresRule(updateRule)
		r.DeleteRule = postgresRule(deleteRule)
		keys = append(keys, r)
	}

	return keys, rows.Err()
}

// postgresRule maps pg_constraint action codes to rule codes
func postgresRule(action string) int {
	switch action {
	case "c":
		return sqltype.RuleCascade
	case "r":
		return sqltype.RuleRestrict
	case "n":
		return sqltype.RuleSetNull
	case "d":
		return sqltype.RuleSetDefault
	default:
		return sqltype.RuleNoAction
	}
}

// Indexes lists index columns, excluding the primary key index
func (c *PostgresCatalog) Indexes(ctx context.Context, t TableRow) ([]IndexRow, error) {
	query := `
		SELECT
			NOT ix.indisunique,
			i.relname,
			am.amname,
			ix.indisclustered,
			k.ord::int,
			COALESCE(a.attname, '')
		FROM pg_index ix
		JOIN pg_class t ON t.oid = ix.indrelid
		JOIN pg_namespace n ON n.oid = t.relnamespace
		JOIN pg_class i ON i.oid = ix.indexrelid
		JOIN pg_am am ON am.oid = i.relam
		CROSS JOIN LATERAL unnest(ix.indkey::int2[]) WITH ORDINALITY AS k(attnum, ord)
		LEFT JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = k.attnum AND k.attnum > 0
		WHERE n.nspname = $1
			AND t.relname = $2
			AND NOT ix.indisprimary
		ORDER BY i.relname, k.ord
	`

	rows, err := c.conn.Query(ctx, query, t.Schema, t.Name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var indexes []IndexRow
	for rows.Next() {
		var r IndexRow
		var method string
		var clustered bool
		if err := rows.Scan(&r.NonUnique, &r.IndexName, &method, &clustered, &r.OrdinalPosition, &r.ColumnName); err != nil {
			return nil, err
		}

		switch {
		case clustered:
			r.Type = sqltype.IndexClustered
		case method == "hash":
			r.Type = sqltype.IndexHashed
		default:
			r.Type = sqltype.IndexOther
		}
		indexes = append(indexes, r)
	}

	return indexes, rows.Err()
}

// firstSet returns the first non-nil value, or 0
func firstSet(values ...*int) int {
	for _, v := range values {
		if v != nil {
			return *v
		}
	}
	return 0
}

// nullability maps an information_schema is_nullable value to a nullability code
func nullability(isNullable string) int {
	switch strings.ToUpper(isNullable) {
	case "YES", "Y":
		return sqltype.ColumnNullable
	case "NO", "N":
		return sqltype.ColumnNoNulls
	default:
		return sqltype.ColumnNullableUnknown
	}
}
