package sqlkit

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_Select_projection(t *testing.T) {
	testBuild(t, `SELECT * FROM "users"`, Select(`users`))
	testBuild(t, `SELECT "id", "name" FROM "users"`, Select(`users`, `id`, `name`))
	testBuild(t, `SELECT * FROM "public"."users"`, Select(`public.users`))
	testBuild(t, `SELECT count(*) FROM "users"`, Select(`users`, `count(*)`))
	testBuild(t, `SELECT "id" AS "key" FROM "users"`, Select(`users`).Col(`id`, `key`))
	testBuild(t, `SELECT now() AS "at" FROM "users"`, Select(`users`).Col(Now(), `at`))
	testBuild(t, `SELECT DISTINCT "kind" FROM "users"`, Select(`users`, `kind`).Distinct())
	testBuild(t, `SELECT DISTINCT ON ("a") "a", "b" FROM "t"`, Select(`t`, `a`, `b`).DistinctOn(`a`))

	testBuilderErr(t, `columns`, Select(`users`).Cols())
}

func Test_Select_resolver(t *testing.T) {
	resolve := func(key string) string {
		if key == `firstName` {
			return `first_name`
		}
		return ``
	}

	testBuild(
		t,
		`SELECT "first_name" AS "firstName", "id" FROM "users" WHERE "first_name" = 'A' ORDER BY "first_name" ASC`,
		Select(`users`, `firstName`, `id`).
			Resolver(resolve).
			Where(func(q *Conds) { q.Equal(`firstName`, `A`) }).
			OrderBy(`firstName`, DirAsc),
	)
}

func Test_Select_where_ord_limit(t *testing.T) {
	testBuild(
		t,
		`SELECT "id", "name" FROM "users" WHERE "active" = true ORDER BY "name" ASC LIMIT 10`,
		Select(`users`, `id`, `name`).
			Where(func(q *Conds) { q.Equal(`active`, true) }).
			OrderBy(`name`, DirAsc).
			Limit(10),
	)

	testBuild(
		t,
		`SELECT * FROM "users" ORDER BY "created_at" DESC NULLS LAST, "id" LIMIT 5 OFFSET 10`,
		Select(`users`).
			OrderByNulls(`created_at`, DirDesc, NullsLast).
			OrderBy(`id`, DirNone).
			Limit(5).
			Offset(10),
	)

	testBuild(
		t,
		`SELECT * FROM "users" ORDER BY "created_at" DESC NULLS LAST`,
		Select(`users`).OrderByStr(`created_at desc nulls last`),
	)

	testBuild(
		t,
		`SELECT * FROM "users" WHERE "a" = 1 AND "b" = 2`,
		Select(`users`).
			Where(func(q *Conds) { q.Equal(`a`, 1) }).
			Where(func(q *Conds) { q.Equal(`b`, 2) }),
	)
}

func Test_Select_OrderByStr_malformed(t *testing.T) {
	_, err := Select(`users`).OrderByStr(`bad input!`).Build()
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrFormat{}))
}

func Test_Select_clause_order(t *testing.T) {
	// Method order must not affect rendering order.
	testBuild(
		t,
		`SELECT "kind", count(*) FROM "items" WHERE "price" > 0 GROUP BY "kind" HAVING count(*) > 1 ORDER BY "kind" ASC LIMIT 3`,
		Select(`items`, `kind`, `count(*)`).
			Limit(3).
			OrderBy(`kind`, DirAsc).
			Having(func(q *Conds) { q.Raw(`count(*) > 1`) }).
			GroupBy(`kind`).
			Where(func(q *Conds) { q.Greater(`price`, 0) }),
	)
}

func Test_Select_joins(t *testing.T) {
	testBuild(
		t,
		`SELECT "u".* FROM "users" AS "u" LEFT JOIN "posts" AS "p" ON p.user_id = u.id WHERE "u"."id" = 1`,
		Select(`users`).
			As(`u`).
			LeftJoin(`posts`, `p`, func(q *Conds) { q.Raw(`p.user_id = u.id`) }).
			Where(func(q *Conds) { q.Equal(`id`, 1) }),
	)

	testBuild(
		t,
		`SELECT "users".* FROM "users" INNER JOIN "teams" USING ("team_id")`,
		Select(`users`).Join(Join{Table: `teams`, Using: []string{`team_id`}}),
	)

	testBuild(
		t,
		`SELECT "a".* FROM "a" CROSS JOIN "b"`,
		Select(`a`).CrossJoin(`b`, ``),
	)

	testBuild(
		t,
		`SELECT "users".* FROM "users" JOIN posts p ON p.user_id = users.id`,
		Select(`users`).RawJoin(`JOIN posts p ON p.user_id = users.id`),
	)

	testBuilderErr(t, `condition`, Select(`a`).Join(Join{Table: `b`}))
	testBuilderErr(t, `table`, Select(`a`).Join(Join{Alias: `b`, On: conds(func(q *Conds) { q.Raw(`true`) })}))
}

func Test_Select_join_projection(t *testing.T) {
	testBuild(
		t,
		`SELECT "u".*, json_build_object('name', "t"."name") AS "team" FROM "users" AS "u" LEFT JOIN "teams" AS "t" ON t.id = u.team_id`,
		Select(`users`).As(`u`).Join(Join{
			Kind:  JoinLeft,
			Table: `teams`,
			Alias: `t`,
			On:    conds(func(q *Conds) { q.Raw(`t.id = u.team_id`) }),
			As:    `team`,
			Cols:  []JoinCol{{Prop: `name`, Column: `name`}},
		}),
	)

	testBuild(
		t,
		`SELECT "u".*, row_to_json("t".*) AS "team" FROM "users" AS "u" INNER JOIN "teams" AS "t" ON t.id = u.team_id`,
		Select(`users`).As(`u`).Join(Join{
			Table: `teams`,
			Alias: `t`,
			On:    conds(func(q *Conds) { q.Raw(`t.id = u.team_id`) }),
			As:    `team`,
		}),
	)

	testBuild(
		t,
		`SELECT "u".*, "l"."total" AS "total" FROM "users" AS "u" LEFT JOIN LATERAL (SELECT count(*) AS total FROM "posts") AS "l" ON TRUE`,
		Select(`users`).As(`u`).LeftJoinLateral(`l`, Select(`posts`, `count(*) AS total`), `total`),
	)
}

func Test_Select_Include(t *testing.T) {
	testBuild(
		t,
		`SELECT *, (SELECT COUNT(*) AS count FROM "posts") AS "post_count" FROM "users"`,
		Select(`users`).Include(`post_count`, Count(`posts`)),
	)
}

func Test_Select_locking(t *testing.T) {
	testBuild(t, `SELECT * FROM "jobs" FOR UPDATE`, Select(`jobs`).ForUpdate())
	testBuild(t, `SELECT * FROM "jobs" FOR SHARE`, Select(`jobs`).ForShare())
	testBuild(
		t,
		`SELECT * FROM "jobs" LIMIT 1 FOR UPDATE OF "jobs" SKIP LOCKED`,
		Select(`jobs`).Limit(1).Lock(LockUpdate, Lock{Of: []string{`jobs`}, Wait: LockSkipLocked}),
	)
	testBuild(
		t,
		`SELECT * FROM "jobs" FOR NO KEY UPDATE NOWAIT`,
		Select(`jobs`).Lock(LockNoKeyUpdate, Lock{Wait: LockNoWait}),
	)
}

func Test_Select_set_ops(t *testing.T) {
	testBuild(
		t,
		`SELECT "id" FROM "a" UNION SELECT "id" FROM "b" UNION ALL SELECT "id" FROM "c"`,
		Select(`a`, `id`).Union(Select(`b`, `id`)).UnionAll(Select(`c`, `id`)),
	)
	testBuild(t, `SELECT "id" FROM "a" INTERSECT SELECT "id" FROM "b"`, Select(`a`, `id`).Intersect(Select(`b`, `id`)))
	testBuild(t, `SELECT "id" FROM "a" EXCEPT SELECT "id" FROM "b"`, Select(`a`, `id`).Except(Select(`b`, `id`)))

	_, err := Select(`a`).Union(Select(`b`).Cols()).Build()
	require.Error(t, err)
}

func Test_Select_Count(t *testing.T) {
	query := Select(`users`).
		Where(func(q *Conds) { q.Equal(`active`, true) }).
		OrderBy(`id`, DirDesc).
		Limit(5).
		ForUpdate()

	eq(t, `SELECT COUNT(*) AS count FROM "users" WHERE "active" = true`, query.CountString())

	out, err := query.BuildCount()
	require.NoError(t, err)
	eq(t, query.CountString(), out)

	eq(t, `SELECT * FROM "users" WHERE "active" = true ORDER BY "id" DESC LIMIT 5 FOR UPDATE`, query.String())
}

func Test_Select_render_is_pure(t *testing.T) {
	query := Select(`users`, `id`).Where(func(q *Conds) { q.Equal(`id`, 1) })
	eq(t, query.String(), query.String())
}

func Test_Select_subquery_in_condition(t *testing.T) {
	testBuild(
		t,
		`SELECT * FROM "users" WHERE "id" IN (SELECT "user_id" FROM "posts" WHERE "published" = true)`,
		Select(`users`).Where(func(q *Conds) {
			q.In(`id`, Select(`posts`, `user_id`).Where(func(q *Conds) { q.Equal(`published`, true) }))
		}),
	)
}

func Test_Select_String_panics(t *testing.T) {
	panics(t, `columns`, func() { _ = Select(`users`).Cols().String() })
}

func Test_quoted_identifiers(t *testing.T) {
	test := func(exp string, val Builder) {
		t.Helper()
		testBuild(t, exp, val)
	}

	test(`SELECT * FROM "t" WHERE "first name" = 1`, Select(`t`).Where(func(q *Conds) { q.Equal(`first name`, 1) }))
	test(`SELECT * FROM "t" ORDER BY "first name" ASC`, Select(`t`).OrderBy(`first name`, DirAsc))
	test(`SELECT "first name" FROM "t"`, Select(`t`, `first name`))
	test(`SELECT "kind" FROM "t" GROUP BY "first name"`, Select(`t`, `kind`).GroupBy(`first name`))

	test(`SELECT "isDistinct", "lastName" FROM "t"`, Select(`t`, `isDistinct`, `lastName`))
	test(`SELECT "orderAs", "selection", "distinct_at" FROM "t"`, Select(`t`, `orderAs`, `selection`, `distinct_at`))
	test(`SELECT "Distinct Kind" FROM "t"`, Select(`t`, `Distinct Kind`))
	test(`SELECT * FROM "t" ORDER BY "isDistinct" DESC`, Select(`t`).OrderBy(`isDistinct`, DirDesc))

	test(`DELETE FROM "t" WHERE "isDistinct" = true RETURNING "first name"`,
		Delete(`t`).Where(func(q *Conds) { q.Equal(`isDistinct`, true) }).Returning(`first name`))
	test(`UPDATE "t" SET "a" = 1 RETURNING "first name"`,
		Update(`t`).Set(`a`, 1).Returning(`first name`))
	test(`INSERT INTO "t" ("first name") VALUES (1) RETURNING "first name"`,
		Insert(`t`).Row(Vals{{`first name`, 1}}).Returning(`first name`))

	test(`SELECT count(*) AS total FROM "t"`, Select(`t`, `count(*) AS total`))
}
