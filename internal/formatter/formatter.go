package formatter

import (
	"fmt"
	"io"
	"strings"

	"github.com/tordrt/schemagraph/internal/schema"
)

// Output formats
const (
	FormatText     = "text"
	FormatMarkdown = "markdown"
	FormatYAML     = "yaml"
)

// Formatter renders a resolved database
type Formatter interface {
	Format(d *schema.Database) error
}

// New returns the single-stream formatter for format
func New(format string, w io.Writer) (Formatter, error) {
	switch format {
	case FormatText, "":
		return NewTextFormatter(w), nil
	case FormatMarkdown:
		return NewMarkdownFormatter(w), nil
	case FormatYAML:
		return NewYAMLFormatter(w), nil
	default:
		return nil, fmt.Errorf("invalid format: %s (must be 'text', 'markdown' or 'yaml')", format)
	}
}

// tableName qualifies the name with its schema only when the database spans
// several schemas.
func tableName(d *schema.Database, t *schema.Table) string {
	if d.MultipleSchemas() {
		return t.QualifiedName()
	}
	return t.Name
}

// foreignName names the other side of a key, falling back to the catalog
// names when the key is dangling.
func foreignName(d *schema.Database, fk *schema.ForeignKey) string {
	if fk.ForeignTable != nil {
		return tableName(d, fk.ForeignTable)
	}
	if d.MultipleSchemas() && fk.ForeignSchemaName != "" {
		return fk.ForeignSchemaName + "." + fk.ForeignTableName
	}
	return fk.ForeignTableName
}

// oneToOne reports whether cols identify at most one row of t: they are
// exactly its primary key, or a single unique column.
func oneToOne(t *schema.Table, cols []string) bool {
	if t == nil || len(cols) == 0 {
		return false
	}
	if len(cols) == 1 {
		if c := t.Column(cols[0]); c != nil && c.Unique {
			return true
		}
	}

	pk := t.PrimaryKeyColumns()
	if len(pk) != len(cols) {
		return false
	}
	set := make(map[string]bool, len(cols))
	for _, name := range cols {
		set[name] = true
	}
	for _, c := range pk {
		if !set[c.Name] {
			return false
		}
	}
	return true
}

// importedCardinality describes a key from the child's side
func importedCardinality(t *schema.Table, fk *schema.ForeignKey) string {
	if oneToOne(t, fk.LocalColumnNames()) {
		return "1:1"
	}
	return "N:1"
}

// exportedCardinality describes a key from the parent's side
func exportedCardinality(fk *schema.ForeignKey) string {
	if oneToOne(fk.ForeignTable, fk.ForeignColumnNames()) {
		return "1:1"
	}
	return "1:N"
}

func keyDetails(cardinality string, fk *schema.ForeignKey) string {
	parts := []string{cardinality}
	if fk.OnDelete != schema.ActionNone {
		parts = append(parts, "ON DELETE "+string(fk.OnDelete))
	}
	if fk.OnUpdate != schema.ActionNone {
		parts = append(parts, "ON UPDATE "+string(fk.OnUpdate))
	}
	if !fk.Resolved() {
		parts = append(parts, "unresolved")
	}
	return strings.Join(parts, ", ")
}

// reference renders "a → t.x" or "(a, b) → t(x, y)"
func reference(local []string, target string, foreign []string) string {
	if len(local) == 1 && len(foreign) == 1 {
		return fmt.Sprintf("%s → %s.%s", local[0], target, foreign[0])
	}
	return fmt.Sprintf("(%s) → %s(%s)", strings.Join(local, ", "), target, strings.Join(foreign, ", "))
}

func typeLabel(c *schema.Column) string {
	if c.TypeName != "" {
		return c.TypeName
	}
	return strings.ToLower(string(c.LogicalType()))
}

// constraints lists a column's flags in display order
func constraints(c *schema.Column) []string {
	var parts []string
	if c.PrimaryKey {
		parts = append(parts, "PK")
	}
	if c.Unique {
		parts = append(parts, "UNIQUE")
	}
	if c.Required {
		parts = append(parts, "NOT NULL")
	}
	if c.AutoIncrement {
		parts = append(parts, "AUTO_INCREMENT")
	}
	if c.DefaultValue != nil {
		parts = append(parts, "DEFAULT "+c.DefaultText())
	}
	return parts
}
