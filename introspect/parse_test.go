package introspect

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/mitranim/sqlkit"
	"github.com/stretchr/testify/require"
)

func Test_Parse_columns(t *testing.T) {
	tables, err := Parse(`
		-- users, with a comment containing CREATE TABLE fake (
		CREATE TABLE IF NOT EXISTS public.users (
			id         SERIAL PRIMARY KEY,
			email      VARCHAR(255) NOT NULL UNIQUE,
			"Nick, Name" text DEFAULT 'a, (b)',
			score      NUMERIC(10, 2) DEFAULT 0 NOT NULL,
			tags       INTEGER[],
			created_at TIMESTAMP WITH TIME ZONE DEFAULT now(),
			team_id    bigint REFERENCES teams (id) ON DELETE CASCADE ON UPDATE SET NULL,
			slug       text COLLATE "C" CHECK (slug <> ''),
			total      integer GENERATED ALWAYS AS (score * 2) STORED,
			seq        bigint GENERATED BY DEFAULT AS IDENTITY (START WITH 10),
			/* block comment */ flag boolean
		);
	`)
	require.NoError(t, err)
	require.Len(t, tables, 1)

	table := tables[0]
	require.Equal(t, `users`, table.Name)
	require.Equal(t, `public`, table.Schema)
	require.True(t, table.IfNotExists)

	require.Equal(t, []Column{
		{Name: `id`, Type: `serial`, PrimaryKey: true},
		{Name: `email`, Type: `varchar`, Params: []string{`255`}, NotNull: true, Unique: true},
		{Name: `Nick, Name`, Type: `text`, Default: `'a, (b)'`},
		{Name: `score`, Type: `numeric`, Params: []string{`10`, `2`}, Default: `0`, NotNull: true},
		{Name: `tags`, Type: `integer`, Array: true},
		{Name: `created_at`, Type: `timestamp with time zone`, Default: `now()`},
		{Name: `team_id`, Type: `bigint`, References: &Reference{Table: `teams`, Column: `id`, OnDelete: `CASCADE`, OnUpdate: `SET NULL`}},
		{Name: `slug`, Type: `text`, Collate: `C`, Check: `slug <> ''`},
		{Name: `total`, Type: `integer`, Generated: `score * 2`},
		{Name: `seq`, Type: `bigint`, Identity: `by default`},
		{Name: `flag`, Type: `boolean`},
	}, table.Columns)
}

func Test_Parse_table_constraints(t *testing.T) {
	tables := TryParse(`
		create table memberships (
			user_id integer not null,
			team_id integer not null,
			role text,
			primary key (user_id, team_id),
			unique (team_id, role),
			unique (role),
			foreign key (user_id) references users (id) on delete cascade,
			constraint fk_team foreign key (team_id) references teams (id),
			check (role in ('a', 'b')),
			exclude using gist (role with =)
		);
		create table other (id integer);
	`)
	require.Len(t, tables, 2)

	table := tables[0]
	require.Equal(t, []string{`user_id`, `team_id`}, table.PrimaryKey)
	require.Equal(t, [][]string{{`team_id`, `role`}}, table.Uniques)
	require.Equal(t, []string{`role in ('a', 'b')`}, table.Checks)

	role, ok := table.Column(`role`)
	require.True(t, ok)
	require.True(t, role.Unique)

	user, _ := table.Column(`user_id`)
	require.Equal(t, &Reference{Table: `users`, Column: `id`, OnDelete: `CASCADE`}, user.References)

	require.Equal(t, []ForeignKey{{
		Name:       `fk_team`,
		Columns:    []string{`team_id`},
		Table:      `teams`,
		RefColumns: []string{`id`},
	}}, table.ForeignKeys)

	require.Equal(t, `other`, tables[1].Name)
}

func Test_Parse_sqlite(t *testing.T) {
	tables := TryParse(`
		CREATE TEMP TABLE "kv" (
			k TEXT PRIMARY KEY,
			v ANY,
			n INTEGER PRIMARY KEY AUTOINCREMENT
		) STRICT, WITHOUT ROWID;
		CREATE UNLOGGED TABLE log (line text)
	`)
	require.Len(t, tables, 2)

	kv := tables[0]
	require.Equal(t, `kv`, kv.Name)
	require.True(t, kv.Temporary)
	require.True(t, kv.Strict)
	require.True(t, kv.WithoutRowID)

	n, _ := kv.Column(`n`)
	require.True(t, n.AutoIncrement)
	require.True(t, n.PrimaryKey)

	require.True(t, tables[1].Unlogged)
	require.False(t, tables[1].Strict)
}

func Test_Parse_errors(t *testing.T) {
	_, err := Parse(`CREATE TABLE broken (id integer`)
	require.ErrorIs(t, err, ErrParse{})

	_, err = Parse(`CREATE TABLE broken (id integer, name text CHECK (name <> ''`)
	var parseErr ErrParse
	require.ErrorAs(t, err, &parseErr)

	tables, err := Parse(`SELECT 1; DROP TABLE users;`)
	require.NoError(t, err)
	require.Empty(t, tables)
}

func Test_ErrParse_Format(t *testing.T) {
	_, err := Parse(`CREATE TABLE broken (id integer`)
	var parseErr ErrParse
	require.ErrorAs(t, err, &parseErr)

	msg := parseErr.Error()
	require.True(t, strings.HasPrefix(msg, `[sqlkit] parse error while parsing table "broken"`), msg)
	require.Equal(t, msg, fmt.Sprintf(`%v`, parseErr))

	out := fmt.Sprintf(`%+v`, parseErr)
	require.True(t, strings.HasPrefix(out, msg), out)
	require.Contains(t, out, "\n    table: broken")
	require.Contains(t, out, "\n    timestamp: ")
	require.NotContains(t, out, `[sqlkit] error`)

	body, err := json.Marshal(parseErr)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(body, &decoded))
	require.Equal(t, `ParseError`, decoded[`name`])
	require.Equal(t, msg, decoded[`message`])
	require.Equal(t, `broken`, decoded[`table`])
}

func Test_Column_SQLType(t *testing.T) {
	require.Equal(t, `numeric(10, 2)`, Column{Type: `numeric`, Params: []string{`10`, `2`}}.SQLType())
	require.Equal(t, `text[]`, Column{Type: `text`, Array: true}.SQLType())
}

func Test_Parse_uses_sqlkit_quoting(t *testing.T) {
	src := sqlkit.CreateTable(`a"b`).
		Column(sqlkit.ColumnDef{Name: `x"y`, Type: `text`, NotNull: true}).
		String()

	tables := TryParse(src)
	require.Len(t, tables, 1)
	require.Equal(t, `a"b`, tables[0].Name)
	require.Equal(t, []Column{{Name: `x"y`, Type: `text`, NotNull: true}}, tables[0].Columns)
}
