package sqltype

import (
	"strconv"
	"strings"
)

var postgresTypes = map[string]int{
	"smallint":                    SmallInt,
	"int2":                        SmallInt,
	"integer":                     Integer,
	"int4":                        Integer,
	"bigint":                      BigInt,
	"int8":                        BigInt,
	"oid":                         BigInt,
	"numeric":                     Numeric,
	"decimal":                     Decimal,
	"money":                       Double,
	"real":                        Real,
	"float4":                      Real,
	"double precision":            Double,
	"float8":                      Double,
	"character varying":           VarChar,
	"varchar":                     VarChar,
	"character":                   Char,
	"char":                        Char,
	"bpchar":                      Char,
	"text":                        VarChar,
	"name":                        VarChar,
	"boolean":                     Boolean,
	"bool":                        Boolean,
	"bit":                         Bit,
	"date":                        Date,
	"time without time zone":      Time,
	"time with time zone":         TimeWithTimezone,
	"timestamp without time zone": Timestamp,
	"timestamp with time zone":    TimestampWithTimezone,
	"bytea":                       Binary,
	"xml":                         SQLXML,
	"array":                       Array,
	"refcursor":                   RefCursor,
}

// FromPostgres maps an information_schema data_type (or udt_name) to a type
// code. Anything unknown, including user-defined types, is Other.
func FromPostgres(dataType string) int {
	if code, ok := postgresTypes[strings.ToLower(strings.TrimSpace(dataType))]; ok {
		return code
	}
	return Other
}

var mysqlTypes = map[string]int{
	"bit":        Bit,
	"bool":       Bit,
	"boolean":    Bit,
	"tinyint":    TinyInt,
	"smallint":   SmallInt,
	"mediumint":  Integer,
	"int":        Integer,
	"integer":    Integer,
	"bigint":     BigInt,
	"decimal":    Decimal,
	"numeric":    Decimal,
	"float":      Real,
	"double":     Double,
	"real":       Double,
	"char":       Char,
	"varchar":    VarChar,
	"enum":       Char,
	"set":        Char,
	"tinytext":   LongVarChar,
	"text":       LongVarChar,
	"mediumtext": LongVarChar,
	"json":       LongVarChar,
	"longtext":   Clob,
	"date":       Date,
	"year":       Date,
	"time":       Time,
	"datetime":   Timestamp,
	"timestamp":  Timestamp,
	"binary":     Binary,
	"varbinary":  VarBinary,
	"tinyblob":   LongVarBinary,
	"blob":       LongVarBinary,
	"mediumblob": LongVarBinary,
	"longblob":   Blob,
}

// FromMySQL maps an information_schema DATA_TYPE to a type code.
func FromMySQL(dataType string) int {
	base, _, _ := ParseDeclared(dataType)
	if code, ok := mysqlTypes[base]; ok {
		return code
	}
	return Other
}

// FromSQLite maps a declared column type to a type code. SQLite accepts any
// declaration, so well-known names are matched first and the affinity rules
// decide the rest.
func FromSQLite(declared string) int {
	base, _, _ := ParseDeclared(declared)
	switch base {
	case "tinyint":
		return TinyInt
	case "smallint", "int2":
		return SmallInt
	case "bigint", "int8", "unsigned big int":
		return BigInt
	case "char", "nchar", "character":
		return Char
	case "boolean", "bool":
		return Boolean
	case "date":
		return Date
	case "time":
		return Time
	case "datetime", "timestamp":
		return Timestamp
	case "decimal", "numeric":
		return Numeric
	case "real", "float":
		return Real
	case "double", "double precision":
		return Double
	case "clob":
		return Clob
	case "blob", "":
		return Blob
	}

	switch {
	case strings.Contains(base, "int"):
		return Integer
	case strings.Contains(base, "char"), strings.Contains(base, "text"):
		return VarChar
	case strings.Contains(base, "real"), strings.Contains(base, "floa"), strings.Contains(base, "doub"):
		return Double
	default:
		return Numeric
	}
}

// FromOracle maps an ALL_TAB_COLUMNS DATA_TYPE to a type code.
func FromOracle(dataType string) int {
	t := strings.ToUpper(strings.TrimSpace(dataType))
	switch {
	case t == "VARCHAR2", t == "VARCHAR":
		return VarChar
	case t == "NVARCHAR2":
		return NVarChar
	case t == "CHAR":
		return Char
	case t == "NCHAR":
		return NChar
	case t == "NUMBER":
		return Numeric
	case t == "FLOAT":
		return Float
	case t == "BINARY_FLOAT":
		return Real
	case t == "BINARY_DOUBLE":
		return Double
	case t == "DATE":
		return Timestamp
	case strings.HasPrefix(t, "TIMESTAMP") && strings.HasSuffix(t, "TIME ZONE"):
		return TimestampWithTimezone
	case strings.HasPrefix(t, "TIMESTAMP"):
		return Timestamp
	case t == "CLOB":
		return Clob
	case t == "NCLOB":
		return NClob
	case t == "BLOB":
		return Blob
	case t == "RAW":
		return VarBinary
	case t == "LONG RAW":
		return LongVarBinary
	case t == "LONG":
		return LongVarChar
	case t == "ROWID", t == "UROWID":
		return RowID
	case t == "XMLTYPE":
		return SQLXML
	default:
		return Other
	}
}

// RuleFromString maps a referential action as spelled by the catalog views
// ("SET NULL", "no action", "SET_DEFAULT") to a rule code. Unknown spellings
// become RuleNoAction.
func RuleFromString(rule string) int {
	r := strings.ToUpper(strings.TrimSpace(rule))
	r = strings.ReplaceAll(r, "_", " ")
	switch r {
	case "CASCADE":
		return RuleCascade
	case "RESTRICT":
		return RuleRestrict
	case "SET NULL":
		return RuleSetNull
	case "SET DEFAULT":
		return RuleSetDefault
	default:
		return RuleNoAction
	}
}

// ParseDeclared splits a declared type such as "VARCHAR(255)" or
// "decimal(10,2) unsigned" into its lower-case base name and modifiers.
// Missing modifiers are returned as zero.
func ParseDeclared(declared string) (base string, size, scale int) {
	d := strings.ToLower(strings.TrimSpace(declared))
	open := strings.Index(d, "(")
	if open < 0 {
		return strings.TrimSpace(strings.TrimSuffix(d, " unsigned")), 0, 0
	}
	base = strings.TrimSpace(d[:open])

	end := strings.Index(d[open:], ")")
	if end < 0 {
		return base, 0, 0
	}
	args := strings.Split(d[open+1:open+end], ",")
	if n, err := strconv.Atoi(strings.TrimSpace(args[0])); err == nil {
		size = n
	}
	if len(args) > 1 {
		if n, err := strconv.Atoi(strings.TrimSpace(args[1])); err == nil {
			scale = n
		}
	}
	return base, size, scale
}
