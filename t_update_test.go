package sqlkit

import (
	"testing"
)

func Test_Update(t *testing.T) {
	testBuild(
		t,
		`UPDATE "users" SET "name" = 'A', "age" = 30 WHERE "id" = 1`,
		Update(`users`).
			Set(`name`, `A`).
			Set(`age`, 30).
			Where(func(q *Conds) { q.Equal(`id`, 1) }),
	)

	testBuild(
		t,
		`UPDATE "users" SET "a" = 1, "b" = 2`,
		Update(`users`).SetMap(map[string]any{`b`: 2, `a`: 1}),
	)

	testBuild(
		t,
		`UPDATE "users" SET "id" = 1, "name" = 'A' RETURNING "id"`,
		Update(`users`).SetFrom(&testUser{Id: 1, Name: `A`}).Returning(`id`),
	)

	testBuild(
		t,
		`UPDATE "users" SET "updated_at" = now(), "deleted_at" = NULL`,
		Update(`users`).Set(`updated_at`, Now()).Set(`deleted_at`, nil),
	)

	testBuilderErr(t, `SET clause`, Update(`users`))
	testBuilderErr(t, `table`, Update(``).Set(`a`, 1))
}

func Test_Update_From(t *testing.T) {
	testBuild(
		t,
		`UPDATE "users" SET "x" = 1 FROM "teams" WHERE teams.id = users.team_id AND "users"."active" = true`,
		Update(`users`).
			Set(`x`, 1).
			From(`teams`).
			Where(func(q *Conds) {
				q.Raw(`teams.id = users.team_id`).Equal(`active`, true)
			}),
	)
}

func Test_Update_mutations(t *testing.T) {
	testBuild(
		t,
		`UPDATE "users" SET "settings" = jsonb_set(COALESCE("settings", '{}'::jsonb), '{theme}', '"dark"'::jsonb, true) WHERE "id" = 1`,
		Update(`users`).
			Set(`settings`, UpdateFunc(func(ops UpdateOps) Mutation {
				return ops.Jsonb.SetField(`theme`, `dark`)
			})).
			Where(func(q *Conds) { q.Equal(`id`, 1) }),
	)

	testBuild(
		t,
		`UPDATE "posts" SET "tags" = array_cat(COALESCE("tags", '{}'::text[]), ARRAY['x']::text[])`,
		Update(`posts`).Set(`tags`, UpdateOps{}.Array.Texts().Append(`x`)),
	)

	testBuild(
		t,
		`UPDATE "t" SET "n" = "n" + 1`,
		Update(`t`).Set(`n`, func(UpdateOps) Mutation {
			return MutationTemplate(ColumnPlaceholder + ` + 1`)
		}),
	)

	testBuild(
		t,
		`UPDATE "t" SET "n" = "n"`,
		Update(`t`).Set(`n`, Mutation{}),
	)
}

func Test_Update_TypeResolver(t *testing.T) {
	testBuild(
		t,
		`UPDATE "t" SET "meta" = '{"a":1}'::jsonb`,
		Update(`t`).
			TypeResolver(func(string) string { return `jsonb` }).
			Set(`meta`, map[string]int{`a`: 1}),
	)
}

func Test_Delete(t *testing.T) {
	testBuild(t, `DELETE FROM "users"`, Delete(`users`))

	testBuild(
		t,
		`DELETE FROM "users" WHERE "id" = 1 RETURNING *`,
		Delete(`users`).Where(func(q *Conds) { q.Equal(`id`, 1) }).Returning(`*`),
	)

	testBuild(
		t,
		`DELETE FROM "posts" USING "users" WHERE posts.user_id = users.id AND "posts"."banned" = true`,
		Delete(`posts`).
			Using(`users`).
			Where(func(q *Conds) {
				q.Raw(`posts.user_id = users.id`).Equal(`banned`, true)
			}),
	)

	testBuild(
		t,
		`DELETE FROM "users" WHERE "id" = 1`,
		Delete(`users`).
			Caps(Capabilities{DisableReturning: true}).
			Where(func(q *Conds) { q.Equal(`id`, 1) }).
			Returning(`*`),
	)

	testBuilderErr(t, `table`, Delete(``))
}
