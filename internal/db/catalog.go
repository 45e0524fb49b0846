package db

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// RecycleBinPrefix marks system tables (Oracle's recycle bin) that are never
// introspected.
const RecycleBinPrefix = "BIN$"

// ErrNoTables is returned when the catalog yields no table to introspect.
var ErrNoTables = errors.New("no tables found")

// Catalog is a read-only view of a database's structural metadata. Every
// method issues one request and fully drains the result before returning.
type Catalog interface {
	Tables(ctx context.Context, f Filter) ([]TableRow, error)
	Columns(ctx context.Context, t TableRow) ([]ColumnRow, error)
	PrimaryKeys(ctx context.Context, t TableRow) ([]PrimaryKeyRow, error)
	ImportedKeys(ctx context.Context, t TableRow) ([]KeyRow, error)
	ExportedKeys(ctx context.Context, t TableRow) ([]KeyRow, error)
	Indexes(ctx context.Context, t TableRow) ([]IndexRow, error)
	Close(ctx context.Context) error
}

// TableRow describes one catalog table.
type TableRow struct {
	Schema  string
	Name    string
	Remarks string
}

// ColumnRow describes one column. DataType is an sqltype code and Nullable
// an sqltype nullability code.
type ColumnRow struct {
	Name          string
	DataType      int
	TypeName      string
	Size          int
	DecimalDigits int
	Nullable      int
	Remarks       string
	Default       *string
	AutoIncrement bool
}

// PrimaryKeyRow is one primary key column. KeySeq starts at 1.
type PrimaryKeyRow struct {
	ColumnName string
	KeySeq     int
	Name       string
}

// KeyRow is one column of a foreign key, seen from either side. KeySeq
// starts at 1; rules are sqltype rule codes.
type KeyRow struct {
	PKSchema   string
	PKTable    string
	PKColumn   string
	FKSchema   string
	FKTable    string
	FKColumn   string
	KeySeq     int
	UpdateRule int
	DeleteRule int
	FKName     string
	PKName     string
}

// IndexRow is one column of an index. Type is an sqltype index type code.
type IndexRow struct {
	NonUnique       bool
	IndexName       string
	Type            int
	OrdinalPosition int
	ColumnName      string
}

// Filter narrows the tables visited by an Introspector.
type Filter struct {
	// Schema restricts tables to one schema. Blank means the catalog's
	// default (or every user schema where the catalog has no default).
	Schema string

	// TablePattern is a SQL LIKE pattern on table names: "%" and "_" are
	// wildcards and a backslash escapes them. Blank matches everything.
	TablePattern string

	// Tables, when set, lists the only table names to include.
	Tables []string

	// ExcludeTables lists table names to skip.
	ExcludeTables []string
}

// Pattern returns the LIKE pattern to push down to catalog queries.
func (f Filter) Pattern() string {
	if f.TablePattern == "" {
		return "%"
	}
	return f.TablePattern
}

// Match reports whether a table name passes the filter and the denylist.
func (f Filter) Match(name string) bool {
	if strings.HasPrefix(name, RecycleBinPrefix) {
		return false
	}
	for _, excluded := range f.ExcludeTables {
		if excluded == name {
			return false
		}
	}
	if len(f.Tables) > 0 && !contains(f.Tables, name) {
		return false
	}
	if f.TablePattern != "" && !likeToRegexp(f.TablePattern).MatchString(name) {
		return false
	}
	return true
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// likeToRegexp compiles a SQL LIKE pattern into an anchored regexp. A
// backslash makes the next character literal, as catalog queries use it for
// ESCAPE. Matching ignores case so it never rejects a table a
// case-insensitive LIKE (SQLite, MySQL) already returned.
func likeToRegexp(pattern string) *regexp.Regexp {
	var b strings.Builder
	b.WriteString("(?i)^")
	escaped := false
	for _, r := range pattern {
		switch {
		case escaped:
			b.WriteString(regexp.QuoteMeta(string(r)))
			escaped = false
		case r == '\\':
			escaped = true
		case r == '%':
			b.WriteString(".*")
		case r == '_':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	if escaped {
		b.WriteString(regexp.QuoteMeta(`\`))
	}
	b.WriteString("$")
	return regexp.MustCompile(b.String())
}

// CatalogError reports a failed catalog request. It aborts introspection.
type CatalogError struct {
	Op    string
	Table string
	Err   error
}

func (e *CatalogError) Error() string {
	if e.Table == "" {
		return fmt.Sprintf("failed to read %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("failed to read %s of table %s: %v", e.Op, e.Table, e.Err)
}

func (e *CatalogError) Unwrap() error {
	return e.Err
}
