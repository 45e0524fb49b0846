package schema

import (
	"reflect"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tordrt/schemagraph/internal/sqltype"
)

// LogicalType is the portable classification of a column's catalog type.
type LogicalType string

const (
	TypeText      LogicalType = "TEXT"
	TypeFixedText LogicalType = "FIXED_TEXT"
	TypeDecimal   LogicalType = "DECIMAL"
	TypeBoolean   LogicalType = "BOOLEAN"
	TypeShort     LogicalType = "SHORT"
	TypeInt       LogicalType = "INT"
	TypeLong      LogicalType = "LONG"
	TypeFloat     LogicalType = "FLOAT"
	TypeDouble    LogicalType = "DOUBLE"
	TypeBinary    LogicalType = "BINARY"
	TypeTemporal  LogicalType = "TEMPORAL"
	TypeClob      LogicalType = "CLOB"
	TypeBlob      LogicalType = "BLOB"
	TypeArray     LogicalType = "ARRAY"
	TypeReference LogicalType = "REFERENCE"
	TypeStruct    LogicalType = "STRUCT"
	TypeObject    LogicalType = "OBJECT"
	TypeOther     LogicalType = "OTHER"
)

// GoType is the Go type a code generator should use for a column.
type GoType struct {
	Name       string `yaml:"name"`
	ImportPath string `yaml:"import_path,omitempty"`
}

func goTypeOf(v any) GoType {
	t := reflect.TypeOf(v)
	return GoType{Name: t.String(), ImportPath: t.PkgPath()}
}

var goTypes = map[LogicalType]GoType{
	TypeText:      {Name: "string"},
	TypeFixedText: {Name: "string"},
	TypeDecimal:   goTypeOf(decimal.Decimal{}),
	TypeBoolean:   {Name: "bool"},
	TypeShort:     {Name: "int16"},
	TypeInt:       {Name: "int32"},
	TypeLong:      {Name: "int64"},
	TypeFloat:     {Name: "float32"},
	TypeDouble:    {Name: "float64"},
	TypeBinary:    {Name: "[]byte"},
	TypeTemporal:  goTypeOf(time.Time{}),
	TypeClob:      {Name: "string"},
	TypeBlob:      {Name: "[]byte"},
	TypeArray:     {Name: "[]any"},
	TypeReference: {Name: "any"},
	TypeStruct:    {Name: "any"},
	TypeObject:    {Name: "any"},
	TypeOther:     {Name: "any"},
}

// Column represents a table column
type Column struct {
	Name          string
	TypeCode      int
	TypeName      string
	Size          int
	Scale         int
	Description   string
	DefaultValue  *string
	PrimaryKey    bool
	Required      bool
	Unique        bool
	AutoIncrement bool

	logicalType LogicalType
	goType      GoType
}

// NewColumn creates a column and classifies its catalog type code.
func NewColumn(name string, typeCode int, typeName string, size, scale int) *Column {
	lt := Classify(typeCode, size)
	return &Column{
		Name:        name,
		TypeCode:    typeCode,
		TypeName:    typeName,
		Size:        size,
		Scale:       scale,
		logicalType: lt,
		goType:      goTypes[lt],
	}
}

// LogicalType returns the portable type of the column.
func (c *Column) LogicalType() LogicalType {
	return c.logicalType
}

// GoType returns the Go type hint for the column.
func (c *Column) GoType() GoType {
	return c.goType
}

// NumericDefault parses the default of a DECIMAL column. Catalogs report
// defaults as expressions, so wrapping parentheses, quotes and a trailing
// "::type" cast are removed first. It returns false for other columns and for
// defaults that are not a plain number.
func (c *Column) NumericDefault() (decimal.Decimal, bool) {
	if c.logicalType != TypeDecimal || c.DefaultValue == nil {
		return decimal.Decimal{}, false
	}

	v := strings.TrimSpace(*c.DefaultValue)
	for len(v) > 1 && v[0] == '(' && v[len(v)-1] == ')' {
		v = strings.TrimSpace(v[1 : len(v)-1])
	}
	if i := strings.Index(v, "::"); i >= 0 {
		v = v[:i]
	}
	v = strings.Trim(v, "'")

	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

// DefaultText returns the default as displayed: DECIMAL defaults are
// normalized to the column's scale, anything else is returned verbatim.
// It returns "" when the column has no default.
func (c *Column) DefaultText() string {
	if c.DefaultValue == nil {
		return ""
	}
	d, ok := c.NumericDefault()
	if !ok {
		return *c.DefaultValue
	}
	if c.Scale > 0 {
		return d.StringFixed(int32(c.Scale))
	}
	return d.String()
}

// Equal reports whether both columns have the same name.
func (c *Column) Equal(o *Column) bool {
	if c == nil || o == nil {
		return c == o
	}
	return c.Name == o.Name
}

// Classify maps a catalog type code to a logical type. It never fails:
// unknown codes are TEXT.
func Classify(typeCode, size int) LogicalType {
	switch typeCode {
	case sqltype.Char, sqltype.NChar:
		if size == 1 {
			return TypeFixedText
		}
		return TypeText
	case sqltype.VarChar, sqltype.NVarChar, sqltype.LongVarChar, sqltype.LongNVarChar,
		sqltype.SQLXML, sqltype.RowID, sqltype.DataLink:
		return TypeText
	case sqltype.Numeric, sqltype.Decimal:
		return TypeDecimal
	case sqltype.Bit, sqltype.Boolean:
		return TypeBoolean
	case sqltype.TinyInt:
		if size == 1 {
			return TypeBoolean
		}
		return TypeShort
	case sqltype.SmallInt:
		return TypeShort
	case sqltype.Integer:
		return TypeInt
	case sqltype.BigInt:
		return TypeLong
	case sqltype.Real:
		return TypeFloat
	case sqltype.Float, sqltype.Double:
		return TypeDouble
	case sqltype.Binary, sqltype.VarBinary, sqltype.LongVarBinary:
		return TypeBinary
	case sqltype.Date, sqltype.Time, sqltype.Timestamp,
		sqltype.TimeWithTimezone, sqltype.TimestampWithTimezone:
		return TypeTemporal
	case sqltype.Clob, sqltype.NClob:
		return TypeClob
	case sqltype.Blob:
		return TypeBlob
	case sqltype.Array:
		return TypeArray
	case sqltype.Ref, sqltype.RefCursor:
		return TypeReference
	case sqltype.Struct:
		return TypeStruct
	case sqltype.JavaObject:
		return TypeObject
	case sqltype.Other, sqltype.Distinct, sqltype.Null:
		return TypeOther
	default:
		return TypeText
	}
}
