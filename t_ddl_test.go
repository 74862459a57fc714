package sqlkit

import (
	"testing"
	"time"
)

func Test_CreateTable_sqlite(t *testing.T) {
	testBuild(
		t,
		`CREATE TABLE "users" ("id" INTEGER PRIMARY KEY AUTOINCREMENT, "name" TEXT NOT NULL)`,
		CreateTable(`users`).
			Dialect(SQLite).
			Column(ColumnDef{Name: `id`, Type: `integer`, PrimaryKey: true, AutoIncrement: true}).
			Column(ColumnDef{Name: `name`, Type: `text`, NotNull: true}),
	)

	testBuild(
		t,
		`CREATE TABLE "kv" ("k" TEXT PRIMARY KEY, "v" BLOB) STRICT, WITHOUT ROWID`,
		CreateTable(`kv`).
			Dialect(SQLite).
			Columns(ColumnDef{Name: `k`, Type: `text`, PrimaryKey: true}, ColumnDef{Name: `v`, Type: `blob`}).
			Strict().
			WithoutRowID(),
	)
}

func Test_CreateTable_postgres(t *testing.T) {
	testBuild(
		t,
		`CREATE TABLE IF NOT EXISTS "users" ("id" BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY, "email" TEXT NOT NULL UNIQUE, "created_at" TIMESTAMPTZ NOT NULL DEFAULT now(), "team_id" BIGINT REFERENCES "teams" ("id") ON DELETE CASCADE)`,
		CreateTable(`users`).
			IfNotExists().
			Column(ColumnDef{Name: `id`, Type: `bigint`, PrimaryKey: true, AutoIncrement: true}).
			Column(ColumnDef{Name: `email`, Type: `text`, NotNull: true, Unique: true}).
			Column(ColumnDef{Name: `created_at`, Type: `timestamptz`, NotNull: true, Default: Now()}).
			Column(ColumnDef{Name: `team_id`, Type: `bigint`, References: &Reference{Table: `teams`, Column: `id`, OnDelete: RefCascade}}),
	)

	testBuild(
		t,
		`CREATE TABLE "items" ("id" INTEGER GENERATED ALWAYS AS IDENTITY PRIMARY KEY, "status" text_status DEFAULT 'active', "price" NUMERIC NOT NULL, "qty" INT DEFAULT 1 CHECK (qty > 0), "total" NUMERIC GENERATED ALWAYS AS (price * qty) STORED)`,
		CreateTable(`items`).Columns(
			ColumnDef{Name: `id`, Type: `integer`, PrimaryKey: true, Identity: IdentityAlways},
			ColumnDef{Name: `status`, Type: `text_status`, Default: `active`},
			ColumnDef{Name: `price`, Type: `numeric`, NotNull: true},
			ColumnDef{Name: `qty`, Type: `int`, Default: 1, Check: `qty > 0`},
			ColumnDef{Name: `total`, Type: `numeric`, Generated: `price * qty`},
		),
	)

	testBuild(
		t,
		`CREATE TABLE "docs" ("title" VARCHAR(200) COLLATE "C", "body" TEXT STORAGE EXTERNAL COMPRESSION lz4)`,
		CreateTable(`docs`).Columns(
			ColumnDef{Name: `title`, Type: `varchar(200)`, Collate: `C`},
			ColumnDef{Name: `body`, Type: `text`, Storage: `external`, Compression: `lz4`},
		),
	)
}

func Test_CreateTable_constraints(t *testing.T) {
	testBuild(
		t,
		`CREATE TABLE "members" ("team_id" BIGINT, "user_id" BIGINT, CONSTRAINT "members_pk" PRIMARY KEY ("team_id", "user_id"), FOREIGN KEY ("team_id") REFERENCES "teams" ("id") ON DELETE SET NULL DEFERRABLE INITIALLY DEFERRED, CONSTRAINT "positive" CHECK (team_id > 0), UNIQUE ("user_id"))`,
		CreateTable(`members`).
			Column(ColumnDef{Name: `team_id`, Type: `bigint`}).
			Column(ColumnDef{Name: `user_id`, Type: `bigint`}).
			Constraint(TableConstraint{Name: `members_pk`, Kind: ConstraintPrimaryKey, Columns: []string{`team_id`, `user_id`}}).
			Constraint(TableConstraint{
				Kind:       ConstraintForeignKey,
				Columns:    []string{`team_id`},
				References: &Reference{Table: `teams`, OnDelete: RefSetNull, Deferrable: true, InitiallyDeferred: true},
				RefColumns: []string{`id`},
			}).
			Constraint(TableConstraint{Name: `positive`, Kind: ConstraintCheck, Expr: `team_id > 0`}).
			Constraint(TableConstraint{Kind: ConstraintUnique, Columns: []string{`user_id`}}),
	)

	testBuild(
		t,
		`CREATE TABLE "bookings" ("room" INT, "during" TSRANGE, EXCLUDE USING gist (room WITH =, during WITH &&))`,
		CreateTable(`bookings`).
			Column(ColumnDef{Name: `room`, Type: `int`}).
			Column(ColumnDef{Name: `during`, Type: `TSRANGE`}).
			Constraint(TableConstraint{Kind: ConstraintExclude, Expr: `USING gist (room WITH =, during WITH &&)`}),
	)

	testBuilderErr(t, `columns`, CreateTable(`t`).Column(ColumnDef{Name: `a`, Type: `int`}).Constraint(TableConstraint{Kind: ConstraintUnique}))
	testBuilderErr(t, `references`, CreateTable(`t`).Column(ColumnDef{Name: `a`, Type: `int`}).Constraint(TableConstraint{Kind: ConstraintForeignKey, Columns: []string{`a`}}))
	testBuilderErr(t, `check expression`, CreateTable(`t`).Column(ColumnDef{Name: `a`, Type: `int`}).Constraint(TableConstraint{Kind: ConstraintCheck}))
	testBuilderErr(t, `kind`, CreateTable(`t`).Column(ColumnDef{Name: `a`, Type: `int`}).Constraint(TableConstraint{}))
}

func Test_CreateTable_options(t *testing.T) {
	testBuild(
		t,
		`CREATE TABLE "events" ("id" BIGINT, "at" TIMESTAMPTZ NOT NULL) PARTITION BY RANGE ("at")`,
		CreateTable(`events`).
			Column(ColumnDef{Name: `id`, Type: `bigint`}).
			Column(ColumnDef{Name: `at`, Type: `timestamptz`, NotNull: true}).
			PartitionBy(PartitionBy{Method: PartitionRange, Columns: []string{`at`}}),
	)

	testBuild(
		t,
		`CREATE TABLE "shards" ("id" BIGINT) PARTITION BY HASH ((id % 16))`,
		CreateTable(`shards`).
			Column(ColumnDef{Name: `id`, Type: `bigint`}).
			PartitionBy(PartitionBy{Method: PartitionHash, Expr: `id % 16`}),
	)

	testBuild(
		t,
		`CREATE TABLE "child" ("x" INT) INHERITS ("parent", "other")`,
		CreateTable(`child`).Column(ColumnDef{Name: `x`, Type: `int`}).Inherits(`parent`, `other`),
	)

	testBuild(
		t,
		`CREATE UNLOGGED TABLE "cache" ("k" TEXT) WITH (fillfactor = 70, autovacuum_enabled = false) TABLESPACE "fast"`,
		CreateTable(`cache`).
			Unlogged().
			Column(ColumnDef{Name: `k`, Type: `text`}).
			With(`fillfactor`, 70).
			Autovacuum(`enabled`, false).
			Tablespace(`fast`),
	)

	testBuild(
		t,
		`CREATE TEMPORARY TABLE "scratch" ("v" TEXT)`,
		CreateTable(`scratch`).Temporary().Column(ColumnDef{Name: `v`, Type: `text`}),
	)
}

func Test_CreateTable_errors(t *testing.T) {
	col := ColumnDef{Name: `a`, Type: `int`}

	testBuilderErr(t, `name`, CreateTable(``).Column(col))
	testBuilderErr(t, `columns`, CreateTable(`t`))
	testBuilderErr(t, `type of a`, CreateTable(`t`).Column(ColumnDef{Name: `a`}))
	testBuilderErr(t, `both TEMPORARY and UNLOGGED`, CreateTable(`t`).Column(col).Temporary().Unlogged())
	testBuilderErr(t, `declares 2 primary keys`, CreateTable(`t`).
		Column(ColumnDef{Name: `a`, Type: `int`, PrimaryKey: true}).
		Constraint(TableConstraint{Kind: ConstraintPrimaryKey, Columns: []string{`a`}}))
	testBuilderErr(t, `identity requires an integer type`, CreateTable(`t`).Column(ColumnDef{Name: `a`, Type: `text`, AutoIncrement: true}))
	testBuilderErr(t, `generated column can't have a default`, CreateTable(`t`).Column(ColumnDef{Name: `a`, Type: `int`, Generated: `1`, Default: 2}))

	testBuilderErr(t, `UNLOGGED is not supported by sqlite`, CreateTable(`t`).Dialect(SQLite).Unlogged().Column(col))
	testBuilderErr(t, `PARTITION BY is not supported`, CreateTable(`t`).Dialect(SQLite).Column(col).PartitionBy(PartitionBy{Method: PartitionList, Columns: []string{`a`}}))
	testBuilderErr(t, `AUTOINCREMENT requires PRIMARY KEY`, CreateTable(`t`).Dialect(SQLite).Column(ColumnDef{Name: `a`, Type: `integer`, AutoIncrement: true}))
	testBuilderErr(t, `explicit primary key`, CreateTable(`t`).Dialect(SQLite).Column(col).WithoutRowID())
	testBuilderErr(t, `STRICT is not supported by postgres`, CreateTable(`t`).Column(col).Strict())
	testBuilderErr(t, `WITHOUT ROWID is not supported by cockroachdb`, CreateTable(`t`).Dialect(CockroachDB).Column(col).WithoutRowID())
	testBuilderErr(t, `method`, CreateTable(`t`).Column(col).PartitionBy(PartitionBy{Columns: []string{`a`}}))
	testBuilderErr(t, `key`, CreateTable(`t`).Column(col).PartitionBy(PartitionBy{Method: PartitionList}))
}

func Test_CreateIndex(t *testing.T) {
	testBuild(
		t,
		`CREATE UNIQUE INDEX "users_email_idx" ON "users" ("email")`,
		CreateIndex(`users_email_idx`, `users`).Columns(`email`).Unique(),
	)

	testBuild(
		t,
		`CREATE INDEX CONCURRENTLY IF NOT EXISTS "docs_data_idx" ON "docs" USING gin ((data) jsonb_path_ops)`,
		CreateIndex(`docs_data_idx`, `docs`).
			Concurrently().
			IfNotExists().
			Using(IndexGin).
			Expr(`data`).
			Opclass(`jsonb_path_ops`),
	)

	testBuild(
		t,
		`CREATE INDEX "i" ON ONLY "orders" ("user_id", "created_at" DESC NULLS LAST) INCLUDE ("total") WHERE "deleted_at" IS NULL`,
		CreateIndex(`i`, `orders`).
			Only().
			Columns(`user_id`).
			Column(IndexColumn{Name: `created_at`, Dir: DirDesc, Nulls: NullsLast}).
			Include(`total`).
			Where(func(q *Conds) { q.IsNull(`deleted_at`) }),
	)

	testBuild(
		t,
		`CREATE INDEX ON "t" USING hash ("a") WITH (fillfactor = 90) TABLESPACE "fast"`,
		CreateIndex(``, `t`).Columns(`a`).Using(IndexHash).With(`fillfactor`, 90).Tablespace(`fast`),
	)

	testBuild(
		t,
		`CREATE INDEX "i" ON "t" ("name" COLLATE "C" text_pattern_ops)`,
		CreateIndex(`i`, `t`).Column(IndexColumn{Name: `name`, Collate: `C`, Opclass: `text_pattern_ops`}),
	)

	testBuild(
		t,
		`CREATE INDEX "i" ON "t" ("a") USING HASH STORING ("b") WITH (bucket_count = 8)`,
		CreateIndex(`i`, `t`).Dialect(CockroachDB).Columns(`a`).UsingHash(8).Include(`b`),
	)

	testBuild(
		t,
		`CREATE INDEX "i" ON "t" ("a") USING HASH`,
		CreateIndex(`i`, `t`).Dialect(CockroachDB).Columns(`a`).UsingHash(0),
	)

	testBuild(
		t,
		`CREATE INDEX "i" ON "t" ((lower(email)))`,
		CreateIndex(`i`, `t`).Dialect(SQLite).Expr(`lower(email)`),
	)

	testBuilderErr(t, `table`, CreateIndex(`i`, ``).Columns(`a`))
	testBuilderErr(t, `columns`, CreateIndex(`i`, `t`))
	testBuilderErr(t, `USING HASH is not supported by postgres`, CreateIndex(`i`, `t`).Columns(`a`).UsingHash(4))
	testBuilderErr(t, `missing name`, CreateIndex(``, `t`).Dialect(SQLite).Columns(`a`))
	testBuilderErr(t, `USING gin is not supported by sqlite`, CreateIndex(`i`, `t`).Dialect(SQLite).Columns(`a`).Using(IndexGin))
	testBuilderErr(t, `CONCURRENTLY is not supported`, CreateIndex(`i`, `t`).Dialect(SQLite).Columns(`a`).Concurrently())
	testBuilderErr(t, `operator classes`, CreateIndex(`i`, `t`).Dialect(SQLite).Column(IndexColumn{Name: `a`, Opclass: `x`}))
	testBuilderErr(t, `column name or expression`, CreateIndex(`i`, `t`).Column(IndexColumn{}))

	testBuild(t, `DROP INDEX CONCURRENTLY IF EXISTS "a"`, DropIndex(`a`).Concurrently().IfExists())
}

func Test_CreatePartition(t *testing.T) {
	testBuild(
		t,
		`CREATE TABLE "events_2024" PARTITION OF "events" FOR VALUES FROM ('2024-01-01') TO ('2025-01-01')`,
		CreatePartition(`events_2024`, `events`).From(`2024-01-01`).To(`2025-01-01`),
	)

	testBuild(
		t,
		`CREATE TABLE IF NOT EXISTS "low" PARTITION OF "t" FOR VALUES FROM (MINVALUE, 0) TO (100, MAXVALUE)`,
		CreatePartition(`low`, `t`).IfNotExists().From(MinValue, 0).To(100, MaxValue),
	)

	testBuild(
		t,
		`CREATE TABLE "p" PARTITION OF "t" FOR VALUES IN ('a', 'b') PARTITION BY HASH ("id")`,
		CreatePartition(`p`, `t`).In(`a`, `b`).PartitionBy(PartitionBy{Method: PartitionHash, Columns: []string{`id`}}),
	)

	testBuild(
		t,
		`CREATE TABLE "p1" PARTITION OF "t" FOR VALUES WITH (MODULUS 4, REMAINDER 1)`,
		CreatePartition(`p1`, `t`).Modulus(4, 1),
	)

	testBuild(t, `CREATE TABLE "rest" PARTITION OF "t" DEFAULT`, CreatePartition(`rest`, `t`).Default())

	testBuilderErr(t, `remainder 4 must be in [0, 4)`, CreatePartition(`p`, `t`).Modulus(4, 4))
	testBuilderErr(t, `range bounds`, CreatePartition(`p`, `t`).From(1))
	testBuilderErr(t, `partition bound`, CreatePartition(`p`, `t`))
	testBuilderErr(t, `parent table`, CreatePartition(`p`, ``).Default())
}

func Test_AttachDetachPartition(t *testing.T) {
	testExpr(
		t,
		`ALTER TABLE "events" ATTACH PARTITION "e1" FOR VALUES IN (1)`,
		AttachPartition(`events`, `e1`, PartitionBound{In: []any{1}}),
	)

	testExpr(t, `ALTER TABLE "events" DETACH PARTITION "e1"`, DetachPartition(`events`, `e1`))
	testExpr(t, `ALTER TABLE "events" DETACH PARTITION "e1" CONCURRENTLY`, DetachPartition(`events`, `e1`).Concurrently())
	testExpr(t, `ALTER TABLE "events" DETACH PARTITION "e1" FINALIZE`, DetachPartition(`events`, `e1`).Finalize())

	testBuilderErr(t, `mutually exclusive`, DetachPartition(`events`, `e1`).Concurrently().Finalize())
	testBuilderErr(t, `table names`, AttachPartition(``, `e1`, PartitionBound{Default: true}))
}

func Test_CreateTrigger(t *testing.T) {
	testBuild(
		t,
		`CREATE TRIGGER "users_touch" BEFORE UPDATE ON "users" FOR EACH ROW EXECUTE FUNCTION "touch_updated_at"()`,
		CreateTrigger(`users_touch`).
			On(`users`).
			Before(TriggerUpdate).
			ForEachRow().
			Execute(`touch_updated_at`),
	)

	testBuild(
		t,
		`CREATE OR REPLACE TRIGGER "audit_orders" AFTER INSERT OR UPDATE OF "status" ON "orders" FOR EACH ROW WHEN (OLD.status IS DISTINCT FROM NEW.status) EXECUTE FUNCTION "audit"('orders', 1)`,
		CreateTrigger(`audit_orders`).
			OrReplace().
			On(`orders`).
			After(TriggerInsert, TriggerUpdate).
			UpdateOf(`status`).
			ForEachRow().
			When(`OLD.status IS DISTINCT FROM NEW.status`).
			Execute(`audit`, `orders`, 1),
	)

	testBuild(
		t,
		`CREATE TRIGGER "truncated" AFTER TRUNCATE ON "t" FOR EACH STATEMENT EXECUTE FUNCTION "on_truncate"()`,
		CreateTrigger(`truncated`).On(`t`).After(TriggerTruncate).Execute(`on_truncate`),
	)

	testBuild(
		t,
		`CREATE TRIGGER IF NOT EXISTS "count_users" AFTER INSERT ON "users" FOR EACH ROW BEGIN UPDATE counts SET n = n + 1; END`,
		CreateTrigger(`count_users`).
			Dialect(SQLite).
			IfNotExists().
			On(`users`).
			After(TriggerInsert).
			ForEachRow().
			Body(`UPDATE counts SET n = n + 1`),
	)

	testBuild(
		t,
		`CREATE TRIGGER "t" INSTEAD OF DELETE ON "v" BEGIN DELETE FROM base WHERE id = OLD.id; END`,
		CreateTrigger(`t`).Dialect(SQLite).On(`v`).InsteadOf(TriggerDelete).Body(` DELETE FROM base WHERE id = OLD.id; `),
	)

	testBuilderErr(t, `function`, CreateTrigger(`t`).On(`users`).Before(TriggerInsert))
	testBuilderErr(t, `timing`, CreateTrigger(`t`).On(`users`))
	testBuilderErr(t, `table`, CreateTrigger(`t`).Before(TriggerInsert))
	testBuilderErr(t, `UpdateOf requires the UPDATE event`, CreateTrigger(`t`).On(`users`).Before(TriggerInsert).UpdateOf(`a`).Execute(`f`))
	testBuilderErr(t, `multiple events is not supported`, CreateTrigger(`t`).Dialect(SQLite).On(`users`).After(TriggerInsert, TriggerDelete).Body(`SELECT 1`))
	testBuilderErr(t, `body`, CreateTrigger(`t`).Dialect(SQLite).On(`users`).After(TriggerInsert))
	testBuilderErr(t, `IF NOT EXISTS is not supported`, CreateTrigger(`t`).IfNotExists().On(`users`).After(TriggerInsert).Execute(`f`))

	testBuild(t, `DROP TRIGGER IF EXISTS "t" ON "users"`, DropTrigger(`t`, `users`).IfExists())
}

func Test_AlterTable(t *testing.T) {
	testBuild(
		t,
		`ALTER TABLE "users" ADD COLUMN "age" INTEGER, ALTER COLUMN "email" SET NOT NULL`,
		AlterTable(`users`).
			AddColumn(ColumnDef{Name: `age`, Type: `integer`}).
			SetNotNull(`email`),
	)

	testBuild(
		t,
		`ALTER TABLE IF EXISTS ONLY "users" DROP COLUMN IF EXISTS "legacy", ADD COLUMN IF NOT EXISTS "bio" TEXT`,
		AlterTable(`users`).
			IfExists().
			Only().
			DropColumnIfExists(`legacy`).
			AddColumnIfNotExists(ColumnDef{Name: `bio`, Type: `text`}),
	)

	testBuild(t, `ALTER TABLE "users" RENAME COLUMN "a" TO "b"`, AlterTable(`users`).RenameColumn(`a`, `b`))
	testBuild(t, `ALTER TABLE "users" DROP COLUMN "a"`, AlterTable(`users`).DropColumn(`a`))
	testBuild(t, `ALTER TABLE "t" ALTER COLUMN "n" TYPE BIGINT USING n::bigint`, AlterTable(`t`).AlterColumnType(`n`, `bigint`, `n::bigint`))
	testBuild(t, `ALTER TABLE "t" ALTER COLUMN "n" TYPE my_type`, AlterTable(`t`).AlterColumnType(`n`, `my_type`))
	testBuild(t, `ALTER TABLE "t" ALTER COLUMN "at" SET DEFAULT now()`, AlterTable(`t`).SetDefault(`at`, Now()))
	testBuild(t, `ALTER TABLE "t" ALTER COLUMN "n" SET DEFAULT 0, ALTER COLUMN "m" DROP DEFAULT`, AlterTable(`t`).SetDefault(`n`, 0).DropDefault(`m`))
	testBuild(t, `ALTER TABLE "t" ALTER COLUMN "n" DROP NOT NULL`, AlterTable(`t`).DropNotNull(`n`))

	testBuild(
		t,
		`ALTER TABLE "users" ADD CONSTRAINT "users_email_key" UNIQUE ("email")`,
		AlterTable(`users`).AddConstraint(TableConstraint{Name: `users_email_key`, Kind: ConstraintUnique, Columns: []string{`email`}}),
	)

	testBuild(t, `ALTER TABLE "t" DROP CONSTRAINT "c"`, AlterTable(`t`).DropConstraint(`c`))
	testBuild(t, `ALTER TABLE "t" DROP CONSTRAINT IF EXISTS "c"`, AlterTable(`t`).DropConstraintIfExists(`c`))
	testBuild(t, `ALTER TABLE "a" RENAME TO "b"`, AlterTable(`a`).RenameTo(`b`))
	testBuild(t, `ALTER TABLE "a" SET SCHEMA "archive"`, AlterTable(`a`).SetSchema(`archive`))
	testBuild(t, `ALTER TABLE "a" SET TABLESPACE "slow"`, AlterTable(`a`).SetTablespace(`slow`))
	testBuild(t, `ALTER TABLE "a" SET (fillfactor = 80)`, AlterTable(`a`).SetParam(`fillfactor`, 80))
	testBuild(t, `ALTER TABLE "a" ENABLE TRIGGER ALL, DISABLE TRIGGER "t"`, AlterTable(`a`).EnableTrigger(``).DisableTrigger(`t`))
	testBuild(t, `ALTER TABLE "a" ENABLE ROW LEVEL SECURITY`, AlterTable(`a`).EnableRowLevelSecurity())

	testBuild(
		t,
		`ALTER TABLE "users" ADD COLUMN "age" INTEGER`,
		AlterTable(`users`).Dialect(SQLite).AddColumn(ColumnDef{Name: `age`, Type: `integer`}),
	)

	testBuilderErr(t, `actions`, AlterTable(`users`))
	testBuilderErr(t, `name`, AlterTable(``).DropColumn(`a`))
	testBuilderErr(t, `multiple actions is not supported`, AlterTable(`users`).Dialect(SQLite).DropColumn(`a`).DropColumn(`b`))
	testBuilderErr(t, `ALTER COLUMN SET NOT NULL is not supported by sqlite`, AlterTable(`users`).Dialect(SQLite).SetNotNull(`a`))
}

func Test_CreateFunction(t *testing.T) {
	testBuild(
		t,
		`CREATE OR REPLACE FUNCTION "touch_updated_at"() RETURNS trigger LANGUAGE plpgsql AS $$BEGIN NEW.updated_at = now(); RETURN NEW; END;$$`,
		CreateFunction(`touch_updated_at`).
			OrReplace().
			Returns(`trigger`).
			Body(`BEGIN NEW.updated_at = now(); RETURN NEW; END;`),
	)

	testBuild(
		t,
		`CREATE FUNCTION "add"("a" INTEGER, "b" INTEGER DEFAULT 0) RETURNS integer LANGUAGE sql IMMUTABLE STRICT PARALLEL SAFE AS $$SELECT a + b$$`,
		CreateFunction(`add`).
			Args(FuncArg{Name: `a`, Type: `integer`}, FuncArg{Name: `b`, Type: `integer`, Default: 0}).
			Returns(`integer`).
			Language(`sql`).
			Immutable().
			Strict().
			Parallel(`safe`).
			Body(`SELECT a + b`),
	)

	testBuild(
		t,
		`CREATE FUNCTION "app"."split"(OUT "x" TEXT) RETURNS text LANGUAGE plpgsql STABLE SECURITY DEFINER AS $fn$SELECT '$$'$fn$`,
		CreateFunction(`app.split`).
			Arg(FuncArg{Name: `x`, Type: `text`, Mode: `out`}).
			Returns(`text`).
			Stable().
			SecurityDefiner().
			Body(`SELECT '$$'`),
	)

	eq(t, `$$`, dollarTag(`SELECT 1`))
	eq(t, `$fn$`, dollarTag(`$$`))
	eq(t, `$fn1$`, dollarTag(`$$ $fn$`))

	testBuilderErr(t, `return type`, CreateFunction(`f`).Body(`x`))
	testBuilderErr(t, `body`, CreateFunction(`f`).Returns(`int`))
	testBuilderErr(t, `unknown PARALLEL mode "SOMETIMES"`, CreateFunction(`f`).Returns(`int`).Body(`x`).Parallel(`sometimes`))
	testBuilderErr(t, `argument type`, CreateFunction(`f`).Arg(FuncArg{Name: `a`}).Returns(`int`).Body(`x`))

	testBuild(t, `DROP FUNCTION IF EXISTS "add"(integer, integer)`, DropFunction(`add`, `integer`, `integer`).IfExists())
	testBuild(t, `DROP FUNCTION "f"`, DropFunction(`f`))
}

func Test_CreateView(t *testing.T) {
	testBuild(
		t,
		`CREATE OR REPLACE VIEW "active_users" AS SELECT * FROM "users" WHERE "active" = true`,
		CreateView(`active_users`, Select(`users`).Where(func(q *Conds) { q.Equal(`active`, true) })).OrReplace(),
	)

	testBuild(
		t,
		`CREATE VIEW "v" ("x") AS SELECT 1 WITH LOCAL CHECK OPTION`,
		CreateView(`v`, `SELECT 1`).Columns(`x`).CheckOption(`local`),
	)

	testBuild(t, `CREATE TEMPORARY VIEW "v" AS SELECT 1`, CreateView(`v`, `SELECT 1`).Temporary())

	testBuild(
		t,
		`CREATE MATERIALIZED VIEW IF NOT EXISTS "stats" AS SELECT 1 WITH NO DATA`,
		CreateMaterializedView(`stats`, `SELECT 1`).IfNotExists().WithData(false),
	)

	testBuild(t, `CREATE MATERIALIZED VIEW "stats" AS SELECT 1 WITH DATA`, CreateMaterializedView(`stats`, `SELECT 1`).WithData(true))

	testBuilderErr(t, `query`, CreateView(`v`, nil))
	testBuilderErr(t, `can't be replaced`, CreateMaterializedView(`v`, `SELECT 1`).OrReplace())
	testBuilderErr(t, `only materialized views take WITH [NO] DATA`, CreateView(`v`, `SELECT 1`).WithData(true))
	testBuilderErr(t, `only materialized views take IF NOT EXISTS`, CreateView(`v`, `SELECT 1`).IfNotExists())
	testBuilderErr(t, `unknown check option "SOMETIMES"`, CreateView(`v`, `SELECT 1`).CheckOption(`sometimes`))

	testExpr(t, `REFRESH MATERIALIZED VIEW CONCURRENTLY "stats"`, RefreshMaterializedView(`stats`).Concurrently())
	testExpr(t, `REFRESH MATERIALIZED VIEW "stats" WITH NO DATA`, RefreshMaterializedView(`stats`).WithNoData())
	testBuilderErr(t, `CONCURRENTLY can't be combined`, RefreshMaterializedView(`stats`).Concurrently().WithNoData())

	testBuild(t, `DROP VIEW "a", "b"`, DropView(`a`, `b`))
	testBuild(t, `DROP MATERIALIZED VIEW "stats" CASCADE`, DropMaterializedView(`stats`).Cascade())
}

func Test_Sequence(t *testing.T) {
	testBuild(
		t,
		`CREATE SEQUENCE IF NOT EXISTS "order_seq" AS BIGINT INCREMENT BY 1 START WITH 1000 CACHE 10 NO CYCLE OWNED BY "orders"."id"`,
		CreateSequence(`order_seq`).
			IfNotExists().
			As(`bigint`).
			IncrementBy(1).
			Start(1000).
			Cache(10).
			Cycle(false).
			OwnedBy(`orders.id`),
	)

	testBuild(t, `CREATE TEMPORARY SEQUENCE "s" MINVALUE 1 NO MAXVALUE CYCLE`, CreateSequence(`s`).Temporary().MinValue(1).NoMaxValue().Cycle(true))

	testBuild(t, `ALTER SEQUENCE IF EXISTS "s" RESTART WITH 1`, AlterSequence(`s`).IfExists().Restart(1))
	testBuild(t, `ALTER SEQUENCE "s" RESTART`, AlterSequence(`s`).Restart())
	testBuild(t, `ALTER SEQUENCE "s" MAXVALUE 99 NO MINVALUE OWNED BY NONE`, AlterSequence(`s`).MaxValue(99).NoMinValue().OwnedBy(`none`))

	testBuilderErr(t, `options`, AlterSequence(`s`))
	testBuilderErr(t, `only ALTER SEQUENCE takes RESTART`, CreateSequence(`s`).Restart())
	testBuilderErr(t, `only CREATE SEQUENCE takes TEMPORARY`, AlterSequence(`s`).Temporary().Cache(1))
	testBuilderErr(t, `name`, CreateSequence(``))

	testBuild(t, `DROP SEQUENCE "a", "b"`, DropSequence(`a`, `b`))
}

func Test_Schema(t *testing.T) {
	testExpr(t, `CREATE SCHEMA "app"`, CreateSchema(`app`))
	testExpr(t, `CREATE SCHEMA IF NOT EXISTS "app" AUTHORIZATION "owner"`, CreateSchema(`app`).IfNotExists().Authorization(`owner`))
	testExpr(t, `CREATE SCHEMA AUTHORIZATION "joe"`, CreateSchema(``).Authorization(`joe`))
	testBuilderErr(t, `name`, CreateSchema(``))

	testBuild(t, `DROP SCHEMA IF EXISTS "app" CASCADE`, DropSchema(`app`).IfExists().Cascade())
}

func Test_Role(t *testing.T) {
	testBuild(
		t,
		`CREATE ROLE "app" WITH LOGIN PASSWORD 's''x' CONNECTION LIMIT 10 IN ROLE "readers", "writers"`,
		CreateRole(`app`).Login(true).Password(`s'x`).ConnectionLimit(10).InRole(`readers`, `writers`),
	)

	testBuild(t, `CREATE ROLE "ro"`, CreateRole(`ro`))
	testBuild(t, `CREATE ROLE "ro" WITH NOLOGIN PASSWORD NULL`, CreateRole(`ro`).Login(false).Password(``))

	testBuild(
		t,
		`CREATE ROLE "tmp" WITH VALID UNTIL '2030-01-02T03:04:05.000Z'`,
		CreateRole(`tmp`).ValidUntil(time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)),
	)

	testBuild(
		t,
		`ALTER ROLE "app" WITH NOSUPERUSER CREATEDB NOCREATEROLE INHERIT NOREPLICATION BYPASSRLS`,
		AlterRole(`app`).Superuser(false).CreateDB(true).CreateRole(false).Inherit(true).Replication(false).BypassRLS(true),
	)

	testBuild(t, `ALTER ROLE "app" RENAME TO "svc"`, AlterRole(`app`).RenameTo(`svc`))

	testBuilderErr(t, `can't be combined with other options`, AlterRole(`app`).RenameTo(`svc`).Login(true))
	testBuilderErr(t, `options`, AlterRole(`app`))
	testBuilderErr(t, `only ALTER ROLE takes RENAME TO`, CreateRole(`app`).RenameTo(`svc`))
	testBuilderErr(t, `use Grant`, AlterRole(`app`).InRole(`x`).Login(true))
	testBuilderErr(t, `name`, CreateRole(``))

	testBuild(t, `DROP ROLE IF EXISTS "app"`, DropRole(`app`).IfExists())
}

func Test_Grant(t *testing.T) {
	testBuild(
		t,
		`GRANT SELECT, INSERT ON TABLE "users" TO "app"`,
		Grant(`select`, `insert`).On(ObjectTable, `users`).To(`app`),
	)

	testBuild(
		t,
		`GRANT USAGE ON SCHEMA "app" TO PUBLIC WITH GRANT OPTION`,
		Grant(`USAGE`).On(ObjectSchema, `app`).To(`public`).WithGrantOption(),
	)

	testBuild(
		t,
		`GRANT SELECT ON ALL TABLES IN SCHEMA "public" TO "ro"`,
		Grant(`SELECT`).On(ObjectAllTablesIn, `public`).To(`ro`),
	)

	testBuild(
		t,
		`GRANT EXECUTE ON FUNCTION "add"(integer, integer) TO "app"`,
		Grant(`EXECUTE`).On(ObjectFunction, `add(integer, integer)`).To(`app`),
	)

	testBuild(
		t,
		`REVOKE ALL ON TABLE "a", "b" FROM "x", "y" CASCADE`,
		Revoke(`ALL`).On(ObjectTable, `a`, `b`).From(`x`, `y`).Cascade(),
	)

	testBuild(
		t,
		`REVOKE GRANT OPTION FOR SELECT ON TABLE "t" FROM "x"`,
		Revoke(`SELECT`).On(ObjectTable, `t`).From(`x`).WithGrantOption(),
	)

	testBuild(t, `GRANT "admin" TO "bob" WITH ADMIN OPTION`, GrantRole(`admin`).To(`bob`).WithGrantOption())
	testBuild(t, `REVOKE "admin" FROM "bob"`, RevokeRole(`admin`).From(`bob`))
	testBuild(t, `REVOKE ADMIN OPTION FOR "admin" FROM "bob"`, RevokeRole(`admin`).From(`bob`).WithGrantOption())

	testBuilderErr(t, `unknown privilege "fly"`, Grant(`fly`).On(ObjectTable, `t`).To(`x`))
	testBuilderErr(t, `grantees`, Grant(`SELECT`).On(ObjectTable, `t`))
	testBuilderErr(t, `objects`, Grant(`SELECT`).To(`x`))
	testBuilderErr(t, `privileges`, Grant().On(ObjectTable, `t`).To(`x`))
	testBuilderErr(t, `only REVOKE takes CASCADE`, Grant(`SELECT`).On(ObjectTable, `t`).To(`x`).Cascade())
}

func Test_CommentOn(t *testing.T) {
	testExpr(t, `COMMENT ON TABLE "users" IS 'People'`, CommentOn(ObjectTable, `users`, `People`))
	testExpr(t, `COMMENT ON COLUMN "users"."email" IS NULL`, CommentOn(ObjectColumn, `users.email`, nil))
	testExpr(t, `COMMENT ON CONSTRAINT "c" ON "users" IS 'it''s'`, CommentOnConstraint(`c`, `users`, `it's`))
	testExpr(t, `COMMENT ON FUNCTION "f"(int) IS 'x'`, CommentOn(ObjectFunction, `f(int)`, `x`))

	testBuilderErr(t, `expected string or nil, got int`, CommentOn(ObjectTable, `t`, 10))
	testBuilderErr(t, `table`, CommentOnConstraint(`c`, ``, `x`))
	testBuilderErr(t, `object kind`, CommentOn(``, `t`, `x`))
}

func Test_Drop(t *testing.T) {
	testBuild(t, `DROP TABLE IF EXISTS "a", "b" CASCADE`, DropTable(`a`, `b`).IfExists().Cascade())
	testBuild(t, `DROP TABLE "public"."users" RESTRICT`, DropTable(`public.users`).Restrict())

	testBuilderErr(t, `name`, DropTable())
	testBuilderErr(t, `mutually exclusive`, DropTable(`a`).Cascade().Restrict())
}

func Test_formatType(t *testing.T) {
	eq(t, `INTEGER`, formatType(`integer`))
	eq(t, `VARCHAR(20)`, formatType(` varchar(20) `))
	eq(t, `TEXT[]`, formatType(`text[]`))
	eq(t, `DOUBLE PRECISION`, formatType(`double precision`))
	eq(t, `mood`, formatType(`mood`))
	eq(t, `Mood[]`, formatType(`Mood[]`))
}
