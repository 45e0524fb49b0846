package formatter

import (
	"fmt"
	"io"
	"strings"

	"github.com/tordrt/schemagraph/internal/schema"
)

// MarkdownFormatter formats the database as markdown
type MarkdownFormatter struct {
	writer io.Writer
}

// NewMarkdownFormatter creates a new markdown formatter
func NewMarkdownFormatter(w io.Writer) *MarkdownFormatter {
	return &MarkdownFormatter{writer: w}
}

// Format writes every table in markdown format
func (f *MarkdownFormatter) Format(d *schema.Database) error {
	_, _ = fmt.Fprintln(f.writer, "# Database Schema")
	_, _ = fmt.Fprintln(f.writer)

	for _, table := range d.Tables() {
		f.FormatTable(d, table)
	}
	return nil
}

// FormatTable formats a single table (exported for use by multifile formatter)
func (f *MarkdownFormatter) FormatTable(d *schema.Database, table *schema.Table) {
	// Table header
	_, _ = fmt.Fprintf(f.writer, "## %s\n\n", tableName(d, table))
	if table.Description != "" {
		_, _ = fmt.Fprintf(f.writer, "%s\n\n", table.Description)
	}
	if table.IsJoinTable() {
		_, _ = fmt.Fprintln(f.writer, "_Join table_")
		_, _ = fmt.Fprintln(f.writer)
	}

	// Columns
	_, _ = fmt.Fprintln(f.writer, "### Columns")
	_, _ = fmt.Fprintln(f.writer)

	for _, col := range table.Columns() {
		line := fmt.Sprintf("- **%s:** %s", col.Name, typeLabel(col))
		if c := constraints(col); len(c) > 0 {
			line += ", " + strings.Join(c, ", ")
		}
		if col.Description != "" {
			line += " (" + col.Description + ")"
		}
		_, _ = fmt.Fprintln(f.writer, line)
	}
	_, _ = fmt.Fprintln(f.writer)

	// Outgoing keys
	if keys := table.ImportedKeys(); len(keys) > 0 {
		_, _ = fmt.Fprintln(f.writer, "### References")
		_, _ = fmt.Fprintln(f.writer)
		for _, fk := range keys {
			_, _ = fmt.Fprintf(f.writer, "- %s (%s)\n",
				reference(fk.LocalColumnNames(), foreignName(d, fk), fk.ForeignColumnNames()),
				keyDetails(importedCardinality(table, fk), fk))
		}
		_, _ = fmt.Fprintln(f.writer)
	}

	// Incoming keys
	f.formatReferencedBy(d, table)

	// Indexes
	if indexes := table.Indexes(); len(indexes) > 0 {
		_, _ = fmt.Fprintln(f.writer, "### Indexes")
		_, _ = fmt.Fprintln(f.writer)
		for _, idx := range indexes {
			if idx.Unique {
				_, _ = fmt.Fprintf(f.writer, "- %s on (%s), unique\n",
					idx.Name,
					strings.Join(idx.ColumnNames(), ", "))
			} else {
				_, _ = fmt.Fprintf(f.writer, "- %s on (%s)\n",
					idx.Name,
					strings.Join(idx.ColumnNames(), ", "))
			}
		}
		_, _ = fmt.Fprintln(f.writer)
	}
}

func (f *MarkdownFormatter) formatReferencedBy(d *schema.Database, table *schema.Table) {
	keys := table.ExportedKeys()
	if len(keys) == 0 {
		return
	}

	_, _ = fmt.Fprintln(f.writer, "### Referenced by")
	_, _ = fmt.Fprintln(f.writer)
	for _, fk := range keys {
		child := foreignName(d, fk)
		_, _ = fmt.Fprintf(f.writer, "- %s (%s)\n",
			reference(qualify(child, fk.ForeignColumnNames()), tableName(d, table), fk.LocalColumnNames()),
			keyDetails(exportedCardinality(fk), fk))
	}
	_, _ = fmt.Fprintln(f.writer)
}

// qualify prefixes each column with its table name
func qualify(table string, cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = table + "." + c
	}
	return out
}
