package sqlkit_test

import (
	"fmt"

	"github.com/mitranim/sqlkit"
)

func ExampleSelect() {
	fmt.Println(
		sqlkit.Select(`users`, `a`, `b`).
			Where(func(q *sqlkit.Conds) { q.Equal(`id`, 5).Like(`name`, `%x%`) }).
			OrderBy(`id`, sqlkit.DirDesc).
			Limit(10),
	)
	// Output:
	// SELECT "a", "b" FROM "users" WHERE "id" = 5 AND "name" LIKE '%x%' ORDER BY "id" DESC LIMIT 10
}

func ExampleInsert_onConflict() {
	fmt.Println(
		sqlkit.Insert(`users`).
			Row(sqlkit.Vals{{`name`, `o'brien`}, {`tags`, []string{`a`, `b`}}}).
			OnConflict(`email`).DoUpdate(sqlkit.Vals{{`count`, sqlkit.IncrementBy(1)}}).
			Returning(`*`),
	)
	// Output:
	// INSERT INTO "users" ("name", "tags") VALUES ('o''brien', ARRAY['a','b']) ON CONFLICT ("email") DO UPDATE SET "count" = "users"."count" + 1 RETURNING *
}

func ExampleUpdate_jsonb() {
	fmt.Println(
		sqlkit.Update(`users`).
			Set(`settings`, sqlkit.UpdateFunc(func(ops sqlkit.UpdateOps) sqlkit.Mutation {
				return ops.Jsonb.SetField(`theme`, `dark`)
			})).
			Where(func(q *sqlkit.Conds) { q.Equal(`id`, 1) }),
	)
	// Output:
	// UPDATE "users" SET "settings" = jsonb_set(COALESCE("settings", '{}'::jsonb), '{theme}', '"dark"'::jsonb, true) WHERE "id" = 1
}

func ExampleCount() {
	fmt.Println(
		sqlkit.Count(`users`).
			Group(`active`, func(q *sqlkit.Conds) { q.Equal(`status`, `active`) }).
			Group(`total`, nil, sqlkit.CountOpt{Distinct: `email`}),
	)
	// Output:
	// SELECT COUNT(*) FILTER (WHERE "status" = 'active') AS "active", COUNT(DISTINCT "email") AS "total" FROM "users"
}

func ExampleWith() {
	text, err := sqlkit.With(`recent`, sqlkit.Select(`users`)).Render(`SELECT * FROM "recent"`)
	if err != nil {
		panic(err)
	}
	fmt.Println(text)
	// Output:
	// WITH "recent" AS (SELECT * FROM "users") SELECT * FROM "recent"
}

func ExampleCreateTable() {
	fmt.Println(
		sqlkit.CreateTable(`users`).
			Dialect(sqlkit.SQLite).
			Column(sqlkit.ColumnDef{Name: `id`, Type: `integer`, PrimaryKey: true, AutoIncrement: true}).
			Column(sqlkit.ColumnDef{Name: `name`, Type: `text`, NotNull: true}),
	)
	// Output:
	// CREATE TABLE "users" ("id" INTEGER PRIMARY KEY AUTOINCREMENT, "name" TEXT NOT NULL)
}

func ExampleFormat() {
	fmt.Println(sqlkit.TryFormat(`SELECT * FROM %I WHERE %I = %L AND note <> '100%%'`, `users`, `name`, `o'brien`))
	// Output:
	// SELECT * FROM "users" WHERE "name" = 'o''brien' AND note <> '100%'
}

func ExampleTransaction() {
	var tx sqlkit.Transaction

	begin, _ := tx.Begin(sqlkit.TxOpts{Isolation: sqlkit.IsolationSerializable})
	save, _ := tx.Savepoint(`before_import`)
	undo, _ := tx.RollbackTo(`before_import`)
	done, _ := tx.Commit()

	fmt.Println(begin)
	fmt.Println(save)
	fmt.Println(undo)
	fmt.Println(done)
	// Output:
	// BEGIN ISOLATION LEVEL SERIALIZABLE
	// SAVEPOINT "before_import"
	// ROLLBACK TO SAVEPOINT "before_import"
	// COMMIT
}
