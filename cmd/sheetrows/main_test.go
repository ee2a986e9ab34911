package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	sheetrows "github.com/ideamans/go-sheetrows"
)

func writeBooks(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	f := excelize.NewFile()
	require.NoError(t, f.SetSheetName("Sheet1", "Tasks"))
	for i, row := range [][]interface{}{
		{"title", "owner", "done"},
		{"write docs", "kim", "no"},
		{"fix login", "lee", "yes"},
		{"ship", "kim", "no"},
	} {
		row := row
		require.NoError(t, f.SetSheetRow("Tasks", fmt.Sprintf("A%d", i+1), &row))
	}
	require.NoError(t, f.SaveAs(filepath.Join(dir, "todo.xlsx")))
	require.NoError(t, f.Close())
	return dir
}

// run executes the CLI against the excel backend in dir
func run(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("SHEETROWS_BACKEND", "excel")
	t.Setenv("SHEETROWS_EXCEL_DIR", dir)

	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func runJSON(t *testing.T, dir string, out interface{}, args ...string) {
	t.Helper()
	stdout, err := run(t, dir, append([]string{"--json"}, args...)...)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(stdout), out), stdout)
}

func titles(rows []sheetrows.Row) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r["title"]
	}
	return out
}

func TestParseAssignments(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    sheetrows.Row
		wantErr bool
	}{
		{"single", []string{"a=1"}, sheetrows.Row{"a": "1"}, false},
		{"empty value", []string{"a="}, sheetrows.Row{"a": ""}, false},
		{"value with equals", []string{"expr=x=y"}, sheetrows.Row{"expr": "x=y"}, false},
		{"last wins", []string{"a=1", "a=2"}, sheetrows.Row{"a": "2"}, false},
		{"missing equals", []string{"a"}, nil, true},
		{"missing column", []string{"=1"}, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseAssignments(tt.args)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRowColumns(t *testing.T) {
	rows := []sheetrows.Row{
		{"b": "1", sheetrows.IDField: "x"},
		{"a": "2", "c": "3"},
	}
	assert.Equal(t, []string{sheetrows.IDField, "a", "b", "c"}, rowColumns(rows))
	assert.Equal(t, []string{"a"}, rowColumns([]sheetrows.Row{{"a": ""}}))
	assert.Empty(t, rowColumns(nil))
}

func TestLoadConfig(t *testing.T) {
	t.Run("defaults without file", func(t *testing.T) {
		wd, err := os.Getwd()
		require.NoError(t, err)
		require.NoError(t, os.Chdir(t.TempDir()))
		t.Cleanup(func() { _ = os.Chdir(wd) })
		t.Setenv("HOME", t.TempDir())

		v, err := loadConfig("")
		require.NoError(t, err)
		assert.Equal(t, backendGoogleSheets, v.GetString(cfgKeyBackend))
		assert.Equal(t, 3, v.GetInt(cfgKeyMaxRetries))
		assert.Equal(t, ":8080", v.GetString(cfgKeyServeAddr))
	})

	t.Run("file and environment", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "custom.toml")
		require.NoError(t, os.WriteFile(path, []byte("backend = \"excel\"\n[excel]\ndir = \"/data\"\n[google]\nmax_retries = 7\n"), 0o644))
		t.Setenv("SHEETROWS_EXCEL_DIR", "/override")

		v, err := loadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, backendExcel, v.GetString(cfgKeyBackend))
		assert.Equal(t, "/override", v.GetString(cfgKeyExcelDir))
		assert.Equal(t, 7, v.GetInt(cfgKeyMaxRetries))
	})

	t.Run("explicit missing file", func(t *testing.T) {
		_, err := loadConfig(filepath.Join(t.TempDir(), "absent.toml"))
		assert.Error(t, err)
	})
}

func TestNewFeedUnknownBackend(t *testing.T) {
	t.Setenv("SHEETROWS_BACKEND", "csv")
	v, err := loadConfig(filepath.Join(writeConfig(t), "sheetrows.toml"))
	require.NoError(t, err)

	_, err = newFeed(context.Background(), v, nil)
	assert.ErrorContains(t, err, `unknown backend "csv"`)
}

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, writeDefaultConfig(filepath.Join(dir, "sheetrows.toml"), false))
	return dir
}

func TestConfigInit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "conf", "sheetrows.toml")

	out, err := run(t, dir, "config", "init", path)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var got fileConfig
	require.NoError(t, toml.Unmarshal(data, &got))
	assert.Equal(t, defaultFileConfig(), got)

	_, err = run(t, dir, "config", "init", path)
	assert.ErrorContains(t, err, "already exists")

	_, err = run(t, dir, "config", "init", "--force", path)
	assert.NoError(t, err)
}

func TestDiscoveryCommands(t *testing.T) {
	dir := writeBooks(t)

	var books []sheetrows.SheetInfo
	runJSON(t, dir, &books, "spreadsheets")
	assert.Equal(t, []sheetrows.SheetInfo{{Title: "todo", Key: "todo.xlsx"}}, books)

	var sheets []sheetrows.SheetInfo
	runJSON(t, dir, &sheets, "worksheets", "todo.xlsx")
	assert.Equal(t, []sheetrows.SheetInfo{{Title: "Tasks", Key: "Tasks"}}, sheets)

	out, err := run(t, dir, "spreadsheets")
	require.NoError(t, err)
	assert.Contains(t, out, "todo.xlsx")
}

func TestRowsCommand(t *testing.T) {
	dir := writeBooks(t)

	tests := []struct {
		name string
		args []string
		want []string
	}{
		{"all", nil, []string{"write docs", "fix login", "ship"}},
		{"query", []string{"-q", "owner = kim"}, []string{"write docs", "ship"}},
		{"ordered", []string{"--order-by", "column:title"}, []string{"fix login", "ship", "write docs"}},
		{"reversed", []string{"--order-by", "column:title", "--reverse"}, []string{"write docs", "ship", "fix login"}},
		{"where", []string{"--where", "done=yes"}, []string{"fix login"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var rows []sheetrows.Row
			runJSON(t, dir, &rows, append([]string{"rows", "todo.xlsx", "Tasks"}, tt.args...)...)
			assert.Equal(t, tt.want, titles(rows))
		})
	}

	out, err := run(t, dir, "rows", "todo.xlsx", "Tasks")
	require.NoError(t, err)
	assert.Contains(t, out, sheetrows.IDField)
	assert.Contains(t, out, "3 rows")

	_, err = run(t, dir, "rows", "todo.xlsx", "Missing")
	assert.ErrorIs(t, err, sheetrows.ErrWorksheetNotFound)
}

func TestRowCommands(t *testing.T) {
	dir := writeBooks(t)
	book := []string{"todo.xlsx", "Tasks"}
	args := func(cmd string, rest ...string) []string {
		return append(append([]string{cmd}, book...), rest...)
	}

	var inserted []sheetrows.Row
	runJSON(t, dir, &inserted, args("insert", "title=review", "owner=lee", "done=no")...)
	require.Len(t, inserted, 1)
	id, ok := inserted[0].ID()
	require.True(t, ok)

	var got []sheetrows.Row
	runJSON(t, dir, &got, args("get", id)...)
	assert.Equal(t, "review", got[0]["title"])

	var updated []sheetrows.Row
	runJSON(t, dir, &updated, args("update", "--id", id, "done=yes")...)
	assert.Equal(t, "yes", updated[0]["done"])
	assert.Equal(t, "review", updated[0]["title"])

	runJSON(t, dir, &updated, args("update", "--index", "1", "-q", "owner = kim", "done=yes")...)
	assert.Equal(t, "ship", updated[0]["title"])

	_, err := run(t, dir, args("delete", "--id", id)...)
	require.NoError(t, err)
	_, err = run(t, dir, args("get", id)...)
	assert.ErrorIs(t, err, sheetrows.ErrRowNotFound)

	_, err = run(t, dir, args("delete", "--index", "0")...)
	require.NoError(t, err)

	_, err = run(t, dir, args("delete", "--index", "9")...)
	assert.ErrorIs(t, err, sheetrows.ErrIndexOutOfRange)

	_, err = run(t, dir, args("delete")...)
	assert.Error(t, err)

	var rows []sheetrows.Row
	runJSON(t, dir, &rows, args("rows")...)
	assert.Equal(t, []string{"fix login", "ship"}, titles(rows))
}

func TestDeleteAllCommand(t *testing.T) {
	dir := writeBooks(t)

	_, err := run(t, dir, "delete-all", "todo.xlsx", "Tasks", "-q", "owner = kim")
	assert.ErrorContains(t, err, "--yes")

	out, err := run(t, dir, "delete-all", "todo.xlsx", "Tasks", "-q", "owner = kim", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "deleted 2 rows")

	var rows []sheetrows.Row
	runJSON(t, dir, &rows, "rows", "todo.xlsx", "Tasks")
	assert.Equal(t, []string{"fix login"}, titles(rows))
}
