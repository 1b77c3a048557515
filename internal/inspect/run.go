package inspect

import (
	"context"
	"fmt"
	"io"
)

// Options controls what Run prints.
type Options struct {
	Format     string
	Sections   []Section
	ShowSchema bool
	ShowCount  bool
}

// DefaultSections are the agent tables dumped when nothing else is configured.
func DefaultSections(limit int) []Section {
	return []Section{
		{Table: "inbox_messages", OrderBy: "timestamp", Limit: limit},
		{Table: "turns", OrderBy: "timestamp", Limit: limit},
	}
}

// Run prints the table list and then every section. Query failures are
// printed in place and the next section still runs; only write and encode
// errors are returned.
func Run(ctx context.Context, ins *Inspector, opts Options, w io.Writer) error {
	format := opts.Format
	if format == "" {
		format = FormatJSON
	}

	if _, err := fmt.Fprintln(w, "=== Tables ==="); err != nil {
		return err
	}
	tables, err := ins.ListTables(ctx)
	if err != nil {
		if err := printError(w, err); err != nil {
			return err
		}
	} else if err := renderTables(w, format, tables); err != nil {
		return err
	}

	for _, s := range opts.Sections {
		if _, err := fmt.Fprintf(w, "\n=== %s ===\n", sectionTitle(s)); err != nil {
			return err
		}
		if err := runSection(ctx, ins, opts, format, s, w); err != nil {
			return err
		}
	}
	return nil
}

func runSection(ctx context.Context, ins *Inspector, opts Options, format string, s Section, w io.Writer) error {
	if opts.ShowSchema {
		cols, err := ins.DescribeTable(ctx, s.Table)
		if err != nil {
			return printError(w, err)
		}
		if err := renderSchema(w, cols); err != nil {
			return err
		}
	}

	if opts.ShowCount {
		count, err := ins.CountRows(ctx, s.Table)
		if err != nil {
			return printError(w, err)
		}
		if _, err := fmt.Fprintf(w, "Total rows: %d\n", count); err != nil {
			return err
		}
	}

	rows, err := ins.RecentRows(ctx, s)
	if err != nil {
		return printError(w, err)
	}
	return renderRows(w, format, rows)
}

func sectionTitle(s Section) string {
	if s.OrderBy == "" {
		return fmt.Sprintf("%s (first %d)", s.Table, s.Limit)
	}
	return fmt.Sprintf("%s (latest %d by %s)", s.Table, s.Limit, s.OrderBy)
}

func printError(w io.Writer, err error) error {
	_, werr := fmt.Fprintf(w, "Error: %v\n", err)
	return werr
}
