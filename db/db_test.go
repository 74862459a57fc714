package db

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/mitranim/sqlkit"
	"github.com/mitranim/sqlkit/config"
	"github.com/mitranim/sqlkit/dialect"
	"github.com/mitranim/sqlkit/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSchema(tb testing.TB) *schema.Schema {
	tb.Helper()

	teams, err := schema.DefineTable(`teams`, schema.Cols{
		{Key: `id`, Column: schema.Integer().PrimaryKey().AutoIncrement()},
		{Key: `name`, Column: schema.Text().NotNull()},
	})
	require.NoError(tb, err)

	players, err := schema.DefineTable(`players`, schema.Cols{
		{Key: `id`, Column: schema.Integer().PrimaryKey().AutoIncrement()},
		{Key: `teamId`, Column: schema.Integer().Named(`team_id`).NotNull().References(`teams`, `id`)},
		{Key: `fullName`, Column: schema.Text().Named(`full_name`).NotNull()},
	}, schema.TableOpts{
		Indexes: []schema.Index{{Columns: []string{`teamId`}}},
	})
	require.NoError(tb, err)

	out, err := schema.NewSchema(teams, players)
	require.NoError(tb, err)
	return out
}

func testDB(tb testing.TB) *DB {
	tb.Helper()
	ctx := context.Background()

	conf := config.Config{
		Dialect:  `sqlite`,
		LogLevel: `warn`,
		Database: filepath.Join(tb.TempDir(), `test.db`),
	}
	out, err := Open(ctx, conf, testSchema(tb), nil)
	require.NoError(tb, err)
	tb.Cleanup(func() { _ = out.Close() })

	require.NoError(tb, out.Apply(ctx))
	return out
}

func text(val any) string {
	if val, ok := val.([]byte); ok {
		return string(val)
	}
	return fmt.Sprint(val)
}

func count(tb testing.TB, db *DB, table string) int {
	tb.Helper()
	rows, err := db.Find(context.Background(), table, nil)
	require.NoError(tb, err)
	return len(rows)
}

func Test_DB_crud(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)
	assert.Equal(t, sqlkit.SQLite, db.Dialect())

	team, err := db.Create(ctx, `teams`, Row{`name`: `Owls`})
	require.NoError(t, err)
	assert.Equal(t, int64(1), team[`id`])
	assert.Equal(t, `Owls`, text(team[`name`]))

	player, err := db.Create(ctx, `players`, Row{`teamId`: team[`id`], `fullName`: `Ann O'Neil`})
	require.NoError(t, err)
	assert.Equal(t, team[`id`], player[`teamId`])
	assert.Equal(t, `Ann O'Neil`, text(player[`fullName`]))

	found, ok, err := db.FindOne(ctx, `players`, func(val *sqlkit.Conds) { val.Equal(`teamId`, team[`id`]) })
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, found, 3)
	assert.Equal(t, player[`id`], found[`id`])

	affected, err := db.UpdateWhere(ctx, `players`, Row{`fullName`: `Ann Smith`}, func(val *sqlkit.Conds) {
		val.Equal(`id`, player[`id`])
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	_, ok, err = db.FindOne(ctx, `players`, func(val *sqlkit.Conds) { val.Equal(`fullName`, `nobody`) })
	require.NoError(t, err)
	assert.False(t, ok)

	affected, err = db.DeleteWhere(ctx, `players`, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	_, err = db.Create(ctx, `missing`, Row{})
	require.ErrorIs(t, err, sqlkit.ErrBuilder{})
	assert.Panics(t, func() { db.Select(`missing`) })
}

func Test_DB_builders(t *testing.T) {
	caps := dialect.For(sqlkit.AWSDSQL).WithReturning(false)
	db := New(nil, Options{Schema: testSchema(t), Caps: &caps})

	assert.Equal(
		t,
		`SELECT "full_name" AS "fullName" FROM "players" WHERE "team_id" = 7`,
		db.Select(`players`, `fullName`).Where(func(val *sqlkit.Conds) { val.Equal(`teamId`, 7) }).String(),
	)
	assert.Equal(
		t,
		`DELETE FROM "players" WHERE "id" = 1`,
		db.Delete(`players`).Where(func(val *sqlkit.Conds) { val.Equal(`id`, 1) }).Returning(`id`).String(),
	)
}

func Test_DB_Tx(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)
	errBoom := errors.New(`boom`)

	err := db.Tx(ctx, func(tx *Tx) error {
		assert.True(t, tx.InTx())
		_, err := tx.Create(ctx, `teams`, Row{`name`: `Ravens`})
		require.NoError(t, err)
		return errBoom
	})
	require.ErrorIs(t, err, errBoom)
	assert.Equal(t, 0, count(t, db, `teams`))

	err = db.Tx(ctx, func(tx *Tx) error {
		_, err := tx.Create(ctx, `teams`, Row{`name`: `Herons`})
		require.NoError(t, err)

		inner := tx.Tx(ctx, func(tx *Tx) error {
			_, err := tx.Create(ctx, `teams`, Row{`name`: `Discarded`})
			require.NoError(t, err)
			return errBoom
		})
		require.ErrorIs(t, inner, errBoom)
		assert.Equal(t, sqlkit.TxActive, tx.State())
		return nil
	})
	require.NoError(t, err)

	rows, err := db.Find(ctx, `teams`, nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, `Herons`, text(rows[0][`name`]))

	assert.Panics(t, func() {
		_ = db.Tx(ctx, func(tx *Tx) error {
			_, err := tx.Create(ctx, `teams`, Row{`name`: `Panicked`})
			require.NoError(t, err)
			panic(`unexpected`)
		})
	})
	assert.Equal(t, 1, count(t, db, `teams`))
}

func Test_DB_Tx_aborted(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)

	err := db.Tx(ctx, func(tx *Tx) error {
		_, err := tx.ExecSQL(ctx, `insert into missing_table default values`)
		require.ErrorIs(t, err, sqlkit.ErrQuery{})
		assert.Equal(t, sqlkit.TxAborted, tx.State())
		return nil
	})
	require.ErrorIs(t, err, sqlkit.ErrTransaction{})
}

type plainExecutor struct{}

func (plainExecutor) Exec(context.Context, string) (sqlkit.Result, error) {
	return sqlkit.Result{}, nil
}

func Test_DB_Tx_without_sessions(t *testing.T) {
	db := New(plainExecutor{}, Options{Schema: testSchema(t)})
	err := db.Tx(context.Background(), func(*Tx) error { return nil })
	require.ErrorIs(t, err, sqlkit.ErrTransaction{})
}

func Test_DB_CreateWith(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)

	out, err := db.CreateWith(ctx, `teams`, Row{`name`: `Falcons`}, Related{
		`players`: {
			{`fullName`: `Kim`},
			{`fullName`: `Lee`, `teamId`: 999},
		},
	})
	require.NoError(t, err)

	teamID := out.Row[`id`]
	require.NotNil(t, teamID)
	require.Len(t, out.Related[`players`], 2)
	for _, player := range out.Related[`players`] {
		assert.Equal(t, teamID, player[`teamId`])
	}

	out, err = db.CreateWith(ctx, `players`, Row{`fullName`: `Mo`}, Related{
		`teams`: {{`name`: `Kites`}},
	})
	require.NoError(t, err)
	require.Len(t, out.Related[`teams`], 1)
	assert.Equal(t, out.Related[`teams`][0][`id`], out.Row[`teamId`])
	assert.Equal(t, `Kites`, text(out.Related[`teams`][0][`name`]))

	_, err = db.CreateWith(ctx, `players`, Row{`fullName`: `Nu`}, Related{
		`teams`: {{`name`: `One`}, {`name`: `Two`}},
	})
	require.ErrorIs(t, err, sqlkit.ErrBuilder{})
	assert.Equal(t, 2, count(t, db, `teams`))

	_, err = db.CreateWith(ctx, `teams`, Row{`name`: `Solo`}, Related{`teams`: {{`name`: `x`}}})
	require.ErrorIs(t, err, sqlkit.ErrBuilder{})
}

func Test_DB_CreateWith_without_returning(t *testing.T) {
	caps := dialect.For(sqlkit.Postgres).WithReturning(false)
	db := New(plainExecutor{}, Options{Schema: testSchema(t), Caps: &caps})

	var builderErr sqlkit.ErrBuilder
	_, err := db.createWith(context.Background(), `teams`, Row{`name`: `x`}, nil)
	require.ErrorAs(t, err, &builderErr)
	assert.Equal(t, `returning`, builderErr.Missing)
}

func Test_Apply_invalid(t *testing.T) {
	table, err := schema.DefineTable(`events`, schema.Cols{
		{Key: `id`, Column: schema.BigInt().PrimaryKey()},
		{Key: `payload`, Column: schema.JSONB()},
	})
	require.NoError(t, err)

	caps := dialect.For(sqlkit.AWSDSQL)
	var executed []string
	db := New(recordingExecutor{&executed}, Options{Schema: schema.TryNewSchema(table), Caps: &caps})

	err = db.Apply(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `jsonb`)
	assert.Empty(t, executed)
}

type recordingExecutor struct{ out *[]string }

func (self recordingExecutor) Exec(_ context.Context, sql string) (sqlkit.Result, error) {
	*self.out = append(*self.out, sql)
	return sqlkit.Result{}, nil
}

func Test_Caps(t *testing.T) {
	off := false
	caps := Caps(config.Config{Dialect: `crdb`, Capabilities: config.CapabilitiesConfig{Returning: &off}})
	assert.Equal(t, sqlkit.CockroachDB, caps.Dialect)
	assert.False(t, caps.Returning)
	assert.True(t, dialect.For(sqlkit.CockroachDB).Returning)
}
