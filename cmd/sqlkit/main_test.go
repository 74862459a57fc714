package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/mitranim/sqlkit/dialect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSQL = `
create table teams (id bigint primary key, name text not null);
create table players (
	id bigint primary key,
	team_id bigint not null references teams (id),
	stats jsonb
);
`

func writeFile(tb testing.TB, name, body string) string {
	tb.Helper()
	path := filepath.Join(tb.TempDir(), name)
	require.NoError(tb, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func run(tb testing.TB, args ...string) (string, error) {
	tb.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func Test_codegen(t *testing.T) {
	path := writeFile(t, `schema.sql`, testSQL)

	out, err := run(t, `codegen`, `--package`, `store`, path)
	require.NoError(t, err)
	assert.Contains(t, out, "package store\n")
	assert.Contains(t, out, `Teams = schema.TryDefineTable(`)
	assert.Contains(t, out, `Players = schema.TryDefineTable(`)

	target := filepath.Join(t.TempDir(), `tables.go`)
	_, err = run(t, `codegen`, `-o`, target, path)
	require.NoError(t, err)

	body, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Contains(t, string(body), "package models\n")
}

func Test_ddl(t *testing.T) {
	path := writeFile(t, `schema.sql`, testSQL)

	out, err := run(t, `ddl`, `--dialect`, `postgres`, path)
	require.NoError(t, err)

	teams := bytes.Index([]byte(out), []byte(`CREATE TABLE "teams"`))
	players := bytes.Index([]byte(out), []byte(`CREATE TABLE "players"`))
	require.GreaterOrEqual(t, teams, 0)
	require.Greater(t, players, teams)
	assert.Contains(t, out, ";\n\n")
}

func Test_ddl_yaml(t *testing.T) {
	path := writeFile(t, `tables.yaml`, `
tables:
  - name: notes
    columns:
      - {name: id, type: integer, primaryKey: true, autoIncrement: true}
      - {name: body, type: text, notNull: true}
`)

	out, err := run(t, `ddl`, `--dialect`, `sqlite`, path)
	require.NoError(t, err)
	assert.Contains(t, out, `CREATE TABLE "notes"`)

	bad := writeFile(t, `bad.yaml`, "tables:\n  - name: x\n    colums: []\n")
	_, err = run(t, `ddl`, bad)
	require.Error(t, err)
}

func Test_validate(t *testing.T) {
	path := writeFile(t, `schema.sql`, testSQL)

	out, err := run(t, `validate`, `--dialect`, `postgres`, path)
	require.NoError(t, err)
	assert.Contains(t, out, `0 errors`)

	out, err = run(t, `validate`, `--dialect`, `dsql`, `--format`, `json`, path)
	require.Error(t, err)

	var report dialect.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	var rules []dialect.Rule
	for _, val := range report.Errors() {
		rules = append(rules, val.Rule)
	}
	assert.Contains(t, rules, dialect.RuleTypeJSON)

	out, err = run(t, `validate`, `--dialect`, `dsql`, `--format`, `yaml`, path)
	require.Error(t, err)
	assert.Contains(t, out, `rule: `)

	_, err = run(t, `validate`, `--format`, `xml`, path)
	require.Error(t, err)
}

func Test_unknown_dialect(t *testing.T) {
	path := writeFile(t, `schema.sql`, testSQL)
	_, err := run(t, `ddl`, `--dialect`, `oracle`, path)
	require.Error(t, err)
}

func Test_listen_sqlite(t *testing.T) {
	conf := writeFile(t, `sqlkit.yaml`, "dialect: sqlite\ndatabase: test.db\n")
	_, err := run(t, `--config`, conf, `listen`, `orders`)
	require.ErrorContains(t, err, `PostgreSQL-family`)
}

func Test_config_show(t *testing.T) {
	t.Setenv(`TEST_SQLKIT_PASSWORD`, `s3cret`)
	conf := writeFile(t, `sqlkit.yaml`, `
dialect: crdb
host: db.internal
database: shop
password: env:TEST_SQLKIT_PASSWORD
`)

	out, err := run(t, `--config`, conf, `config`, `show`)
	require.NoError(t, err)
	assert.Contains(t, out, `dialect: crdb`)
	assert.Contains(t, out, `host: db.internal`)
	assert.NotContains(t, out, `s3cret`)
}
