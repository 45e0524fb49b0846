package formatter

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tordrt/schemagraph/internal/schema"
)

// MultiFileFormatter writes the database to multiple files in a directory:
// an overview plus one file per table.
type MultiFileFormatter struct {
	OutputDir    string
	OutputFormat string // "text" or "markdown"
}

// NewMultiFileFormatter creates a new multi-file formatter
func NewMultiFileFormatter(outputDir, format string) *MultiFileFormatter {
	return &MultiFileFormatter{
		OutputDir:    outputDir,
		OutputFormat: format,
	}
}

// Format writes the overview and table files
func (f *MultiFileFormatter) Format(d *schema.Database) error {
	if f.OutputFormat == FormatYAML {
		return fmt.Errorf("yaml output cannot be split into multiple files")
	}

	// Create output directory if it doesn't exist
	if err := os.MkdirAll(f.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	// Write overview file
	if err := f.writeFile("_overview", func(w io.Writer) { f.writeOverview(w, d) }); err != nil {
		return fmt.Errorf("failed to write overview: %w", err)
	}

	// Write per-table files
	for _, table := range d.Tables() {
		err := f.writeFile(f.fileName(d, table), func(w io.Writer) {
			if f.OutputFormat == FormatMarkdown {
				NewMarkdownFormatter(w).FormatTable(d, table)
			} else {
				NewTextFormatter(w).FormatTable(d, table)
			}
		})
		if err != nil {
			return fmt.Errorf("failed to write table file for %s: %w", table.Name, err)
		}
	}

	return nil
}

func (f *MultiFileFormatter) writeFile(name string, write func(io.Writer)) error {
	file, err := os.Create(filepath.Join(f.OutputDir, name+f.getFileExtension()))
	if err != nil {
		return err
	}

	if err := writeBuffered(file, write); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

// writeBuffered runs write over a buffered w and returns the first error w
// reported.
func writeBuffered(w io.Writer, write func(io.Writer)) error {
	bw := bufio.NewWriter(w)
	write(bw)
	return bw.Flush()
}

// fileName is the table's qualified name when several schemas are present
func (f *MultiFileFormatter) fileName(d *schema.Database, table *schema.Table) string {
	return strings.ReplaceAll(tableName(d, table), string(filepath.Separator), "_")
}

func (f *MultiFileFormatter) writeOverview(w io.Writer, d *schema.Database) {
	ext := f.getFileExtension()
	if f.OutputFormat == FormatMarkdown {
		_, _ = fmt.Fprintf(w, "# Schema Overview\n\n")
		_, _ = fmt.Fprintf(w, "Each table has a corresponding file: `<table_name>%s`\n\n", ext)
		_, _ = fmt.Fprintf(w, "## Tables\n\n")
	} else {
		_, _ = fmt.Fprintf(w, "SCHEMA OVERVIEW\n")
		_, _ = fmt.Fprintf(w, "Each table has a file: <table_name>%s\n\n", ext)
	}

	// Sort tables alphabetically
	sorted := make([]*schema.Table, len(d.Tables()))
	copy(sorted, d.Tables())
	sort.Slice(sorted, func(i, j int) bool {
		return tableName(d, sorted[i]) < tableName(d, sorted[j])
	})

	for _, table := range sorted {
		name := tableName(d, table)
		if f.OutputFormat == FormatMarkdown {
			name = "**" + name + "**"
			_, _ = fmt.Fprint(w, "- ")
		}
		_, _ = fmt.Fprint(w, name)
		if table.IsJoinTable() {
			_, _ = fmt.Fprint(w, " [join]")
		}
		if targets := targetNames(d, table.ImportedKeys()); len(targets) > 0 {
			_, _ = fmt.Fprintf(w, " (references: %s)", strings.Join(targets, ", "))
		}
		if sources := targetNames(d, table.ExportedKeys()); len(sources) > 0 {
			_, _ = fmt.Fprintf(w, " (referenced by: %s)", strings.Join(sources, ", "))
		}
		_, _ = fmt.Fprintln(w)
	}
}

// targetNames lists the distinct tables on the other side of keys
func targetNames(d *schema.Database, keys []*schema.ForeignKey) []string {
	seen := make(map[string]bool)
	var names []string
	for _, fk := range keys {
		name := foreignName(d, fk)
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	return names
}

func (f *MultiFileFormatter) getFileExtension() string {
	if f.OutputFormat == FormatMarkdown {
		return ".md"
	}
	return ".txt"
}
