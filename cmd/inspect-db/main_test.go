package main

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"nerdops/internal/inspect"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func fixtureDB(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "agent.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	for _, stmt := range []string{
		`CREATE TABLE turns (id INTEGER PRIMARY KEY, role TEXT, timestamp INTEGER)`,
		`INSERT INTO turns VALUES (1, 'user', 10), (2, 'assistant', 20), (3, 'user', 30)`,
		`CREATE TABLE events (id INTEGER PRIMARY KEY, kind TEXT, created_at INTEGER)`,
		`INSERT INTO events VALUES (1, 'boot', 5), (2, 'tick', 6)`,
	} {
		_, err := db.Exec(stmt)
		require.NoError(t, err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("NERDOPS_DB", "")

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", filepath.Join(t.TempDir(), "absent.yaml")}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestInspectDB_DefaultSections(t *testing.T) {
	out, err := execute(t, "--db", fixtureDB(t))
	require.NoError(t, err)

	assert.Contains(t, out, "=== Tables ===\n[\n  \"events\",\n  \"turns\"\n]\n")
	inbox := out[strings.Index(out, "=== inbox_messages"):strings.Index(out, "=== turns")]
	assert.Contains(t, inbox, "Error: ")

	turns := out[strings.Index(out, "=== turns"):]
	assert.Less(t, strings.Index(turns, `"id": 3`), strings.Index(turns, `"id": 1`))
}

func TestInspectDB_ClosesDatabaseAfterQueryErrors(t *testing.T) {
	var opened *inspect.Inspector
	t.Cleanup(func() { openInspector = inspect.Open })
	openInspector = func(ctx context.Context, o inspect.OpenOptions) (*inspect.Inspector, error) {
		ins, err := inspect.Open(ctx, o)
		opened = ins
		return ins, err
	}

	out, err := execute(t, "--db", fixtureDB(t))
	require.NoError(t, err)
	require.Contains(t, out, "Error: ")
	require.NotNil(t, opened)

	_, err = opened.ListTables(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database is closed")
}

func TestInspectDB_ClosesDatabaseWhenOutputFails(t *testing.T) {
	var opened *inspect.Inspector
	t.Cleanup(func() { openInspector = inspect.Open })
	openInspector = func(ctx context.Context, o inspect.OpenOptions) (*inspect.Inspector, error) {
		ins, err := inspect.Open(ctx, o)
		opened = ins
		return ins, err
	}

	t.Setenv("NERDOPS_DB", "")
	cmd := newRootCmd()
	cmd.SetOut(brokenPipe{})
	cmd.SetArgs([]string{"--config", filepath.Join(t.TempDir(), "absent.yaml"), "--db", fixtureDB(t)})
	require.Error(t, cmd.Execute())
	require.NotNil(t, opened)

	_, err := opened.ListTables(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database is closed")
}

type brokenPipe struct{}

func (brokenPipe) Write([]byte) (int, error) { return 0, errors.New("broken pipe") }

func TestInspectDB_TableFlagsAndLimit(t *testing.T) {
	out, err := execute(t, "--db", fixtureDB(t), "--table", "events:created_at", "--limit", "1", "--count")
	require.NoError(t, err)

	assert.NotContains(t, out, "=== turns")
	assert.Contains(t, out, "=== events (latest 1 by created_at) ===")
	assert.Contains(t, out, "Total rows: 2")
	assert.Contains(t, out, `"kind": "tick"`)
	assert.NotContains(t, out, `"kind": "boot"`)
}

func TestInspectDB_TableFormat(t *testing.T) {
	out, err := execute(t, "--db", fixtureDB(t), "--format", "table", "-t", "turns")
	require.NoError(t, err)
	assert.Contains(t, out, "| 2  | assistant | 20        |")
}

func TestInspectDB_MissingDatabasePrintsError(t *testing.T) {
	out, err := execute(t, "--db", filepath.Join(t.TempDir(), "nope.db"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "Error: failed to open database"), out)
}

func TestInspectDB_InvalidFlags(t *testing.T) {
	db := fixtureDB(t)

	_, err := execute(t, "--db", db, "--format", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")

	_, err = execute(t, "--db", db, "--driver", "postgres")
	require.Error(t, err)

	_, err = execute(t, "--db", db, "--limit", "0")
	require.Error(t, err)

	_, err = execute(t, "--db", db, "--table", ":timestamp")
	require.Error(t, err)
}
