package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"nerdops/internal/config"
	"nerdops/internal/inspect"
	"nerdops/internal/logging"

	"github.com/spf13/cobra"
)

// openInspector is swapped out by tests that need the opened handle.
var openInspector = inspect.Open

type options struct {
	configPath string
	verbose    bool
	dbPath     string
	driver     string
	format     string
	limit      int
	tables     []string
	schema     bool
	count      bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "inspect-db",
		Short: "Dump the table list and the latest agent inbox messages and turns",
		Long: `Opens the local agent database read-only, lists every table from
sqlite_master, then prints the most recent rows of each configured table
(inbox_messages and turns by default, newest first by timestamp).

A failing query (for example a missing table) is printed in place and the
remaining sections still run.

Examples:
  inspect-db --db .nerd/agent.db
  inspect-db --format table --table turns --table events:created_at
  inspect-db --schema --count --limit 10`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(cmd, opts)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logging.Sync()
		},
	}

	cmd.Flags().StringVar(&opts.configPath, "config", config.DefaultConfigPath, "Path to nerdops.yaml")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable verbose logging")
	cmd.Flags().StringVar(&opts.dbPath, "db", "", "Database file (or set NERDOPS_DB env)")
	cmd.Flags().StringVar(&opts.driver, "driver", "", "sqlite driver: sqlite (pure Go) or sqlite3 (cgo)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "", "Output format: json, yaml, table")
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "Rows per table")
	cmd.Flags().StringArrayVarP(&opts.tables, "table", "t", nil, "Table to dump as name[:order_column] (repeatable)")
	cmd.Flags().BoolVar(&opts.schema, "schema", false, "Print each table's columns")
	cmd.Flags().BoolVar(&opts.count, "count", false, "Print each table's total row count")

	return cmd
}

func runInspect(cmd *cobra.Command, opts *options) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if err := applyFlags(cmd, opts, cfg); err != nil {
		return err
	}

	if err := logging.Initialize(cfg.Logging, opts.verbose); err != nil {
		return err
	}
	if err := cfg.ValidateInspect(); err != nil {
		return err
	}

	logging.Boot("inspect-db starting (config=%s)", opts.configPath)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	ins, err := openInspector(ctx, inspect.OpenOptions{
		Path:   cfg.Inspect.DatabasePath,
		Driver: cfg.Inspect.Driver,
	})
	if err != nil {
		_, werr := fmt.Fprintf(out, "Error: %v\n", err)
		return werr
	}
	defer func() {
		if err := ins.Close(); err != nil {
			logging.InspectWarn("Failed to close %s: %v", ins.Path(), err)
		}
	}()

	return inspect.Run(ctx, ins, inspect.Options{
		Format:     cfg.Inspect.Format,
		Sections:   sections(cfg.Inspect),
		ShowSchema: opts.schema,
		ShowCount:  opts.count,
	}, out)
}

// applyFlags layers explicitly set flags over the loaded config.
func applyFlags(cmd *cobra.Command, opts *options, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("db") {
		cfg.Inspect.DatabasePath = opts.dbPath
	}
	if flags.Changed("driver") {
		cfg.Inspect.Driver = opts.driver
	}
	if flags.Changed("format") {
		cfg.Inspect.Format = opts.format
	}
	if flags.Changed("limit") {
		cfg.Inspect.Limit = opts.limit
	}
	if flags.Changed("table") {
		cfg.Inspect.Sections = nil
		for _, value := range opts.tables {
			s, err := config.ParseSection(value)
			if err != nil {
				return err
			}
			cfg.Inspect.Sections = append(cfg.Inspect.Sections, s)
		}
	}
	return nil
}

func sections(ic config.InspectConfig) []inspect.Section {
	if len(ic.Sections) == 0 {
		return inspect.DefaultSections(ic.Limit)
	}
	out := make([]inspect.Section, 0, len(ic.Sections))
	for _, s := range ic.Sections {
		out = append(out, inspect.Section{Table: s.Table, OrderBy: s.OrderBy, Limit: ic.Limit})
	}
	return out
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
