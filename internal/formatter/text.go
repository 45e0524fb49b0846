package formatter

import (
	"fmt"
	"io"
	"strings"

	"github.com/tordrt/schemagraph/internal/schema"
)

// TextFormatter formats the database as compact text
type TextFormatter struct {
	writer io.Writer
}

// NewTextFormatter creates a new text formatter
func NewTextFormatter(w io.Writer) *TextFormatter {
	return &TextFormatter{writer: w}
}

// Format writes every table in compact text format
func (f *TextFormatter) Format(d *schema.Database) error {
	for i, table := range d.Tables() {
		if i > 0 {
			_, _ = fmt.Fprintln(f.writer) // Blank line between tables
		}

		f.FormatTable(d, table)
	}
	return nil
}

// FormatTable writes a single table
func (f *TextFormatter) FormatTable(d *schema.Database, table *schema.Table) {
	// Table header with primary key
	header := "TABLE " + tableName(d, table)
	if pk := table.PrimaryKeyColumns(); len(pk) > 0 {
		names := make([]string, len(pk))
		for i, c := range pk {
			names[i] = c.Name
		}
		header += fmt.Sprintf(" (PK: %s)", strings.Join(names, ", "))
	}
	if table.IsJoinTable() {
		header += " [JOIN]"
	}
	_, _ = fmt.Fprintln(f.writer, header)
	if table.Description != "" {
		_, _ = fmt.Fprintf(f.writer, "  # %s\n", table.Description)
	}

	// Columns
	for _, col := range table.Columns() {
		_, _ = fmt.Fprintf(f.writer, "  %s\n", f.formatColumn(col))
	}

	// Outgoing keys
	if keys := table.ImportedKeys(); len(keys) > 0 {
		_, _ = fmt.Fprintln(f.writer)
		_, _ = fmt.Fprintln(f.writer, "  REFERENCES:")
		for _, fk := range keys {
			_, _ = fmt.Fprintf(f.writer, "    %s (%s)\n",
				reference(fk.LocalColumnNames(), foreignName(d, fk), fk.ForeignColumnNames()),
				keyDetails(importedCardinality(table, fk), fk))
		}
	}

	// Incoming keys
	if keys := table.ExportedKeys(); len(keys) > 0 {
		_, _ = fmt.Fprintln(f.writer)
		_, _ = fmt.Fprintln(f.writer, "  REFERENCED BY:")
		for _, fk := range keys {
			_, _ = fmt.Fprintf(f.writer, "    %s (%s)\n",
				reference(qualify(foreignName(d, fk), fk.ForeignColumnNames()), tableName(d, table), fk.LocalColumnNames()),
				keyDetails(exportedCardinality(fk), fk))
		}
	}

	// Indexes
	if indexes := table.Indexes(); len(indexes) > 0 {
		_, _ = fmt.Fprintln(f.writer)
		_, _ = fmt.Fprintln(f.writer, "  INDEXES:")
		for _, idx := range indexes {
			unique := ""
			if idx.Unique {
				unique = " UNIQUE"
			}
			_, _ = fmt.Fprintf(f.writer, "    %s (%s)%s\n", idx.Name, strings.Join(idx.ColumnNames(), ", "), unique)
		}
	}
}

func (f *TextFormatter) formatColumn(col *schema.Column) string {
	parts := []string{col.Name + ":", typeLabel(col)}

	for _, c := range constraints(col) {
		// PK is already in the table header
		if c != "PK" {
			parts = append(parts, c)
		}
	}

	if col.Description != "" {
		parts = append(parts, "# "+col.Description)
	}

	return strings.Join(parts, " ")
}
