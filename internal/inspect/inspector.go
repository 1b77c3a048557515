package inspect

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"nerdops/internal/logging"

	// Both sqlite drivers are registered: "sqlite" (modernc, pure Go) and "sqlite3" (mattn, cgo).
	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

// OpenOptions selects the database file and driver.
type OpenOptions struct {
	Path   string
	Driver string // "sqlite" or "sqlite3"; empty means "sqlite"
}

// Column describes one column as reported by PRAGMA table_info.
type Column struct {
	CID        int
	Name       string
	Type       string
	NotNull    bool
	PrimaryKey bool
}

// Section is one "most recent rows" query.
type Section struct {
	Table   string
	OrderBy string // Column sorted descending; empty leaves rows in storage order
	Limit   int
}

// Inspector runs read-only queries against a local sqlite file.
type Inspector struct {
	db     *sql.DB
	path   string
	driver string
}

// Open opens the database read-only. A missing file is an error rather than
// a freshly created empty database.
func Open(ctx context.Context, opts OpenOptions) (*Inspector, error) {
	timer := logging.StartTimer(logging.CategoryInspect, "Open")
	defer timer.Stop()

	driver := opts.Driver
	if driver == "" {
		driver = "sqlite"
	}

	abs, err := filepath.Abs(opts.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve database path: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("failed to open database: %s is a directory", abs)
	}

	db, err := sql.Open(driver, readOnlyDSN(abs))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	logging.Inspect("Opened %s with driver %s", abs, driver)
	return &Inspector{db: db, path: abs, driver: driver}, nil
}

// readOnlyDSN builds a sqlite URI filename understood by both drivers.
func readOnlyDSN(path string) string {
	escaped := strings.NewReplacer("%", "%25", "?", "%3f", "#", "%23").Replace(filepath.ToSlash(path))
	return "file:" + escaped + "?mode=ro"
}

// Path returns the absolute database path.
func (i *Inspector) Path() string {
	return i.path
}

// Close closes the database handle.
func (i *Inspector) Close() error {
	return i.db.Close()
}

// ListTables returns user and system table names from the catalog, sorted.
// An empty database yields an empty, non-nil slice.
func (i *Inspector) ListTables(ctx context.Context) ([]string, error) {
	rows, err := i.db.QueryContext(ctx, "SELECT name FROM sqlite_master WHERE type='table' ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer rows.Close()

	tables := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}

	logging.InspectDebug("Found %d tables", len(tables))
	return tables, nil
}

// RecentRows returns up to s.Limit rows of s.Table ordered by s.OrderBy descending.
func (i *Inspector) RecentRows(ctx context.Context, s Section) ([]Row, error) {
	timer := logging.StartTimer(logging.CategoryInspect, "RecentRows "+s.Table)
	defer timer.StopWithThreshold(time.Second)

	query := "SELECT * FROM " + quoteIdent(s.Table)
	if s.OrderBy != "" {
		query += " ORDER BY " + quoteIdent(s.OrderBy) + " DESC"
	}
	query += " LIMIT ?"

	logging.InspectDebug("Query: %s [limit=%d]", query, s.Limit)
	rows, err := i.db.QueryContext(ctx, query, s.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	result := []Row{}
	for rows.Next() {
		values := make([]any, len(cols))
		valuePtrs := make([]any, len(cols))
		for j := range values {
			valuePtrs[j] = &values[j]
		}
		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		for j, v := range values {
			values[j] = normalizeValue(v)
		}
		result = append(result, Row{Columns: cols, Values: values})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// CountRows returns the total number of rows in table.
func (i *Inspector) CountRows(ctx context.Context, table string) (int64, error) {
	var count int64
	if err := i.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+quoteIdent(table)).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// DescribeTable returns the column layout of table.
func (i *Inspector) DescribeTable(ctx context.Context, table string) ([]Column, error) {
	rows, err := i.db.QueryContext(ctx, "PRAGMA table_info("+quoteIdent(table)+")")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []Column
	for rows.Next() {
		var (
			c       Column
			notNull int
			dflt    any
			pk      int
		)
		if err := rows.Scan(&c.CID, &c.Name, &c.Type, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("failed to scan column info: %w", err)
		}
		c.NotNull = notNull != 0
		c.PrimaryKey = pk != 0
		cols = append(cols, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// PRAGMA table_info is silent for unknown tables
	if len(cols) == 0 {
		return nil, fmt.Errorf("no such table: %s", table)
	}
	return cols, nil
}

// quoteIdent quotes a sqlite identifier with backticks. Unlike double quotes,
// backticks never fall back to a string literal when the name is unknown.
func quoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// normalizeValue turns text held in []byte into a string so rows print verbatim.
func normalizeValue(v any) any {
	if b, ok := v.([]byte); ok && utf8.Valid(b) {
		return string(b)
	}
	return v
}
