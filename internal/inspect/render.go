package inspect

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"
)

// Output formats.
const (
	FormatJSON  = "json"
	FormatYAML  = "yaml"
	FormatTable = "table"
)

// renderTables prints the catalog listing.
func renderTables(w io.Writer, format string, tables []string) error {
	if format != FormatTable {
		return renderStructured(w, format, tables)
	}
	if len(tables) == 0 {
		_, err := fmt.Fprintln(w, "(no tables)")
		return err
	}
	data := make([][]string, 0, len(tables))
	for _, t := range tables {
		data = append(data, []string{t})
	}
	return renderTable(w, []string{"table"}, data)
}

// renderRows prints one section's rows.
func renderRows(w io.Writer, format string, rows []Row) error {
	if format != FormatTable {
		return renderStructured(w, format, rows)
	}
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "(no rows)")
		return err
	}
	data := make([][]string, 0, len(rows))
	for _, r := range rows {
		cells := make([]string, 0, len(r.Values))
		for _, v := range r.Values {
			cells = append(cells, cellString(v))
		}
		data = append(data, cells)
	}
	return renderTable(w, rows[0].Columns, data)
}

// renderSchema prints PRAGMA table_info output as a bullet list.
func renderSchema(w io.Writer, cols []Column) error {
	if _, err := fmt.Fprintln(w, "Schema:"); err != nil {
		return err
	}
	for _, c := range cols {
		suffix := ""
		if c.PrimaryKey {
			suffix += " PRIMARY KEY"
		}
		if c.NotNull {
			suffix += " NOT NULL"
		}
		if _, err := fmt.Fprintf(w, "  - %s (%s)%s\n", c.Name, c.Type, suffix); err != nil {
			return err
		}
	}
	return nil
}

func renderStructured(w io.Writer, format string, v any) error {
	switch format {
	case FormatJSON:
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode json: %w", err)
		}
		_, err = fmt.Fprintf(w, "%s\n", data)
		return err
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("invalid format %q", format)
	}
}

func renderTable(w io.Writer, header []string, data [][]string) error {
	table := newTable(w, header)
	table.AppendBulk(data)
	table.Render()
	return nil
}

func newTable(w io.Writer, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeader(header)
	return table
}
