// Package sqltype holds the portable catalog codes shared by every catalog
// source: column type codes, referential rule codes, index type codes and
// nullability codes. The numeric values match the classic catalog metadata
// result sets so rows from any dialect can be classified the same way.
package sqltype

// Column type codes.
const (
	Bit                   = -7
	TinyInt               = -6
	SmallInt              = 5
	Integer               = 4
	BigInt                = -5
	Float                 = 6
	Real                  = 7
	Double                = 8
	Numeric               = 2
	Decimal               = 3
	Char                  = 1
	VarChar               = 12
	LongVarChar           = -1
	Date                  = 91
	Time                  = 92
	Timestamp             = 93
	Binary                = -2
	VarBinary             = -3
	LongVarBinary         = -4
	Null                  = 0
	Other                 = 1111
	JavaObject            = 2000
	Distinct              = 2001
	Struct                = 2002
	Array                 = 2003
	Blob                  = 2004
	Clob                  = 2005
	Ref                   = 2006
	DataLink              = 70
	Boolean               = 16
	RowID                 = -8
	NChar                 = -15
	NVarChar              = -9
	LongNVarChar          = -16
	NClob                 = 2011
	SQLXML                = 2009
	RefCursor             = 2012
	TimeWithTimezone      = 2013
	TimestampWithTimezone = 2014
)

// Referential rule codes reported for UPDATE_RULE and DELETE_RULE.
const (
	RuleCascade    = 0
	RuleRestrict   = 1
	RuleSetNull    = 2
	RuleNoAction   = 3
	RuleSetDefault = 4
)

// Index type codes. Statistic rows describe the table, not an index.
const (
	IndexStatistic = 0
	IndexClustered = 1
	IndexHashed    = 2
	IndexOther     = 3
)

// Nullability codes.
const (
	ColumnNoNulls         = 0
	ColumnNullable        = 1
	ColumnNullableUnknown = 2
)
