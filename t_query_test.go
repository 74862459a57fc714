package sqlkit

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_Count(t *testing.T) {
	testBuild(t, `SELECT COUNT(*) AS count FROM "users"`, Count(`users`))

	testBuild(
		t,
		`SELECT COUNT(*) FILTER (WHERE "status" = 'active') AS "active", COUNT(*) AS "total" FROM "users"`,
		Count(`users`).
			Group(`active`, func(q *Conds) { q.Equal(`status`, `active`) }).
			Group(`total`, nil),
	)

	testBuild(
		t,
		`SELECT COUNT(DISTINCT "email") AS "emails", SUM("amount") AS "revenue", MAX("amount") FILTER (WHERE "refunded" = false) AS "top" FROM "orders" WHERE "deleted_at" IS NULL`,
		Count(`orders`).
			Where(func(q *Conds) { q.IsNull(`deleted_at`) }).
			Group(`emails`, nil, CountOpt{Distinct: `email`}).
			Group(`revenue`, nil, CountOpt{Sum: `amount`}).
			Group(`top`, func(q *Conds) { q.Equal(`refunded`, false) }, CountOpt{Max: `amount`}),
	)

	testBuilderErr(t, `group name`, Count(`users`).Group(``, nil))
	testBuilderErr(t, `table`, Count(``))
}

func Test_With(t *testing.T) {
	out, err := With(`recent`, Select(`users`).Where(func(q *Conds) { q.Greater(`id`, 10) })).
		Render(`SELECT * FROM "recent"`)
	require.NoError(t, err)
	eq(t, `WITH "recent" AS (SELECT * FROM "users" WHERE "id" > 10) SELECT * FROM "recent"`, out)

	testBuild(
		t,
		`WITH "a" ("x") AS (SELECT 1), "b" AS MATERIALIZED (SELECT * FROM "a") SELECT * FROM "b"`,
		With(`a`, `SELECT 1`, CTEOpt{Columns: []string{`x`}}).
			And(`b`, Select(`a`), CTEOpt{Materialized: true}).
			Query(Select(`b`)),
	)

	testBuild(
		t,
		`WITH RECURSIVE "n" AS NOT MATERIALIZED (SELECT 1) SELECT * FROM "n"`,
		WithRecursive(`n`, `SELECT 1`, CTEOpt{NotMaterialized: true}).Query(Select(`n`)),
	)

	testBuilderErr(t, `main query`, With(`a`, `SELECT 1`))
	testBuilderErr(t, `query of a`, With(`a`, nil).Query(`SELECT 1`))
	testBuilderErr(t, `common table expressions`, new(CTEBuilder).Query(`SELECT 1`))

	panics(t, `expected Expr or string`, func() { With(`a`, 123) })
}

func Test_Window(t *testing.T) {
	eq(
		t,
		SqlExpr(`row_number() OVER (PARTITION BY "team" ORDER BY "score" DESC)`),
		Window().PartitionBy(`team`).OrderBy(`score`, DirDesc).RowNumber(),
	)

	eq(t, SqlExpr(`rank() OVER (ORDER BY "score" DESC)`), Window().OrderBy(`score`, DirDesc).Rank())
	eq(t, SqlExpr(`dense_rank() OVER ()`), Window().DenseRank())
	eq(t, SqlExpr(`lag("v", 1, 0) OVER (ORDER BY "d")`), Window().OrderBy(`d`, DirNone).Lag(`v`, 1, 0))
	eq(t, SqlExpr(`lead("v", 2) OVER (ORDER BY "d")`), Window().OrderBy(`d`, DirNone).Lead(`v`, 2))
	eq(t, SqlExpr(`first_value("v") OVER (PARTITION BY "g")`), Window().PartitionBy(`g`).FirstValue(`v`))
	eq(t, SqlExpr(`nth_value("v", 3) OVER ()`), Window().NthValue(`v`, 3))
	eq(t, SqlExpr(`sum(amount) OVER (PARTITION BY "team")`), Window().PartitionBy(`team`).Over(`sum(amount)`))

	testExpr(
		t,
		`ORDER BY "d" ASC ROWS BETWEEN 2 PRECEDING AND CURRENT ROW`,
		Window().OrderBy(`d`, DirAsc).Rows(Preceding(2), CurrentRow),
	)

	testExpr(
		t,
		`RANGE BETWEEN UNBOUNDED PRECEDING AND 1 FOLLOWING`,
		Window().Range(UnboundedPreceding, Following(1)),
	)

	testBuilderErr(t, `frame bound`, Window().Rows(Bound{}, CurrentRow))
}

func Test_Window_in_select(t *testing.T) {
	testBuild(
		t,
		`SELECT "name", row_number() OVER (ORDER BY "score" DESC) AS "rank" FROM "players"`,
		Select(`players`, `name`).Col(Window().OrderBy(`score`, DirDesc).RowNumber(), `rank`),
	)
}

func Test_helpers(t *testing.T) {
	testExpr(t, `1 + 2`, Add(1, 2))
	testExpr(t, `"a" - 1`, Subtract(Ident(`a`), 1))
	testExpr(t, `"a" * 2`, Multiply(Ident(`a`), 2))
	testExpr(t, `"a" / 2`, Divide(Ident(`a`), 2))
	testExpr(t, `COALESCE("a", 0)`, Coalesce(Ident(`a`), 0))
	testExpr(t, `LEAST(1, 2)`, Least(1, 2))
	testExpr(t, `lower("email")`, Lower(Ident(`email`)))
	testExpr(t, `upper('x')`, Upper(`x`))
	testExpr(t, `trim('x')`, Trim(`x`))
	testExpr(t, `'x'::text`, Cast(`x`, `text`))
	testExpr(t, `"a" || '-' || "b"`, Concat(Ident(`a`), `-`, Ident(`b`)))
	testExpr(t, `CURRENT_TIMESTAMP`, CurrentTimestamp())
	testExpr(t, `CURRENT_DATE`, CurrentDate())
	testExpr(t, `"public"."users"`, Identifier{`public`, `users`})
	testExpr(t, `EXCLUDED."a"`, Excluded(`a`))
	testExpr(t, `"t"."a"`, Ref(`t`, `a`))
}

func Test_Bui(t *testing.T) {
	var bui Bui
	bui.Str(`SELECT`)
	bui.Ident(`a`)
	bui.Raw(`,`)
	bui.Name(`t.b`)
	bui.Str(`FROM`)
	bui.Ident(`t`)
	bui.Str(`WHERE`)
	bui.Str(`x IN`)
	bui.Str(`(`)
	bui.Lit(1)
	bui.Raw(`,`)
	bui.Lit(`y`)
	bui.Str(`)`)
	eq(t, `SELECT "a", "t"."b" FROM "t" WHERE x IN (1, 'y')`, bui.String())

	bui = Bui{}
	bui.IdentList([]string{`a`, `b`})
	eq(t, `("a", "b")`, bui.String())

	bui = Bui{}
	bui.Str(`x =`)
	bui.Any(Select(`t`, `id`))
	eq(t, `x = (SELECT "id" FROM "t")`, bui.String())

	bui = Bui{}
	require.Error(t, bui.CatchExprs(Ident(``)))
}

func Test_Raw(t *testing.T) {
	testExpr(t, ``, Raw{})
	testExpr(t, `select 1`, Raw{Text: `select 1`})
	testExpr(t, `a = ANY('x','y')`, Raw{`a = ANY($1)`, []any{[]string{`x`, `y`}}})
	testExpr(t, `a IN (SELECT "id" FROM "t")`, Raw{`a IN $1`, []any{Select(`t`, `id`)}})
	testExpr(t, `a::text = 'b'`, Raw{`a::text = $1`, []any{`b`}})
	testExpr(t, `"$1" = 'b' -- $1`, Raw{`"$1" = $1 -- $1`, []any{`b`}})
}

func Test_Sub(t *testing.T) {
	testExpr(t, `"id" IN (SELECT 1)`, conds(func(q *Conds) { q.In(`id`, Sub{SqlExpr(`SELECT 1`)}) }))
}

func Test_StructCols(t *testing.T) {
	eq(t, []string{`id`, `name`}, StructCols(testUser{}))
	eq(t, []string{`id`, `name`}, StructCols((*[]testUser)(nil)))
	panics(t, `expected struct`, func() { StructCols(10) })

	eq(t, Vals{{`id`, 1}, {`name`, `A`}}, StructVals(testUser{Id: 1, Name: `A`}))
	eq(t, Vals(nil), StructVals((*testUser)(nil)))
}

func Test_Vals(t *testing.T) {
	var vals Vals
	vals.Add(`a`, 1).Add(`b`, 2)
	eq(t, []string{`a`, `b`}, vals.Keys())

	val, ok := vals.Get(`b`)
	eq(t, true, ok)
	eq(t, 2, val)

	_, ok = vals.Get(`c`)
	eq(t, false, ok)
}

func Test_ParseOrd(t *testing.T) {
	test := func(src string, exp Ord) {
		t.Helper()
		out, err := ParseOrd(src)
		require.NoError(t, err)
		eq(t, exp, out)
	}

	test(`id`, Ord{Expr: `id`})
	test(`id ASC`, Ord{Expr: `id`, Dir: DirAsc})
	test(`  u.id desc nulls first `, Ord{Expr: `u.id`, Dir: DirDesc, Nulls: NullsFirst})
	test(`id NULLS LAST`, Ord{Expr: `id`, Nulls: NullsLast})

	_, err := ParseOrd(`id; drop`)
	require.Error(t, err)

	testExpr(t, `"u"."id" DESC NULLS FIRST`, Ord{Expr: `u.id`, Dir: DirDesc, Nulls: NullsFirst})
}

func Test_Dir(t *testing.T) {
	eq(t, `ASC`, DirAsc.String())
	eq(t, `DESC`, DirDesc.String())
	eq(t, ``, DirNone.String())
	eq(t, `NULLS FIRST`, NullsFirst.String())
	eq(t, `NULLS LAST`, NullsLast.String())

	var dir Dir
	require.NoError(t, dir.UnmarshalText([]byte(`desc`)))
	eq(t, DirDesc, dir)
	require.Error(t, dir.Parse(`sideways`))
}

func Test_ParseDialect(t *testing.T) {
	test := func(src string, exp Dialect) {
		t.Helper()
		out, err := ParseDialect(src)
		require.NoError(t, err)
		eq(t, exp, out)
	}

	test(``, Postgres)
	test(`PostgreSQL`, Postgres)
	test(`pg`, Postgres)
	test(` crdb `, CockroachDB)
	test(`cockroach`, CockroachDB)
	test(`dsql`, AWSDSQL)
	test(`sqlite3`, SQLite)

	_, err := ParseDialect(`oracle`)
	require.ErrorIs(t, err, ErrConfig{})
	require.Contains(t, err.Error(), `unknown dialect "oracle"`)

	eq(t, true, CockroachDB.IsPostgresFamily())
	eq(t, false, SQLite.IsPostgresFamily())
	eq(t, Capabilities{JsonAsText: true}, CapabilitiesOf(AWSDSQL))
}
