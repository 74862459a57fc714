/*
Package db is the schema-aware client: it binds statement builders to table
definitions, executes them through any `sqlkit.Executor`, runs transactions on
dedicated sessions, and inserts related rows through the relations graph.

	client, err := db.Open(ctx, conf, appSchema, log)
	if err != nil {
		return err
	}
	defer client.Close()

	user, err := client.Create(ctx, `users`, map[string]any{`email`: `a@b.c`})

Column names in rows and conditions are the programmatic keys of the schema;
results are keyed the same way.
*/
package db

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mitranim/sqlkit"
	"github.com/mitranim/sqlkit/config"
	"github.com/mitranim/sqlkit/dialect"
	"github.com/mitranim/sqlkit/pgxdb"
	"github.com/mitranim/sqlkit/schema"
	"github.com/mitranim/sqlkit/sqldb"
)

type Row = map[string]any

type Options struct {
	Schema *schema.Schema

	// Defaults to `dialect.For(sqlkit.Postgres)`.
	Caps *dialect.Capabilities

	// Defaults to a discarding logger.
	Logger *slog.Logger
}

/*
Schema-aware client. Safe for concurrent use when the executor is. Methods
taking a table name accept schema-qualified keys or bare table names, and
return `sqlkit.ErrBuilder` for unknown tables.
*/
type DB struct {
	exec   sqlkit.Executor
	schema *schema.Schema
	caps   dialect.Capabilities
	log    *slog.Logger
	close  func() error
	tx     *sqlkit.Transaction
}

func New(exec sqlkit.Executor, opts Options) *DB {
	out := &DB{exec: exec, schema: opts.Schema, log: opts.Logger}
	if opts.Caps != nil {
		out.caps = *opts.Caps
	} else {
		out.caps = dialect.For(sqlkit.Postgres)
	}
	if out.log == nil {
		out.log = slog.New(slog.DiscardHandler)
	}
	return out
}

/*
Connects with the driver matching the configured dialect: pgx for the
PostgreSQL family, "database/sql" with go-sqlite3 for SQLite. Capabilities come
from the dialect, with `capabilities.returning` of the config applied on top.
*/
func Open(ctx context.Context, conf config.Config, sch *schema.Schema, log *slog.Logger) (*DB, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}

	caps := Caps(conf)
	opts := Options{Schema: sch, Caps: &caps, Logger: log}

	if conf.SQLDialect() == sqlkit.SQLite {
		conn, err := sqldb.Open(ctx, conf, log)
		if err != nil {
			return nil, err
		}
		out := New(conn, opts)
		out.close = conn.Close
		return out, nil
	}

	pool, err := pgxdb.Open(ctx, conf, log)
	if err != nil {
		return nil, err
	}
	out := New(pool, opts)
	out.close = func() error {
		pool.Close()
		return nil
	}
	return out, nil
}

// Capabilities of the configured dialect with the overrides of the config.
func Caps(conf config.Config) dialect.Capabilities {
	out := dialect.For(conf.SQLDialect())
	if val := conf.Capabilities.Returning; val != nil {
		out = out.WithReturning(*val)
	}
	return out
}

// Closes the underlying connection when it was opened by `Open`.
func (self *DB) Close() error {
	if self.close == nil || self.tx != nil {
		return nil
	}
	return self.close()
}

func (self *DB) Executor() sqlkit.Executor { return self.exec }

func (self *DB) Schema() *schema.Schema { return self.schema }

func (self *DB) Caps() dialect.Capabilities { return self.caps }

func (self *DB) Dialect() sqlkit.Dialect { return self.caps.Dialect }

// True inside `Tx`.
func (self *DB) InTx() bool { return self.tx != nil }

func (self *DB) Table(name string) (*schema.Table, error) {
	if out := self.schema.Table(name); out != nil {
		return out, nil
	}
	return nil, sqlkit.ErrBuilder{
		Err:     sqlkit.MakeErr(`resolving table`, fmt.Errorf(`unknown table %q`, name)),
		Builder: `db`,
		Missing: name,
		Hint:    `register the table in the schema`,
	}
}

func (self *DB) mustTable(name string) *schema.Table {
	out, err := self.Table(name)
	if err != nil {
		panic(err)
	}
	return out
}

/*
Statement builders bound to the table's column resolvers and to the client's
capabilities. They panic on unknown tables; use `Table` to check first.
*/
func (self *DB) Select(table string, cols ...string) *sqlkit.SelectBuilder {
	return self.mustTable(table).Select(cols...)
}

func (self *DB) Insert(table string) *sqlkit.InsertBuilder {
	return self.mustTable(table).Insert().Caps(self.caps.Render())
}

func (self *DB) Update(table string) *sqlkit.UpdateBuilder {
	return self.mustTable(table).Update().Caps(self.caps.Render())
}

func (self *DB) Delete(table string) *sqlkit.DeleteBuilder {
	return self.mustTable(table).Delete().Caps(self.caps.Render())
}

func (self *DB) Count(table string) *sqlkit.CountBuilder {
	return self.mustTable(table).Count()
}

// Renders and executes the expression.
func (self *DB) Exec(ctx context.Context, val sqlkit.Expr) (sqlkit.Result, error) {
	return sqlkit.Exec(ctx, self.exec, val)
}

// Executes trusted SQL text as-is.
func (self *DB) ExecSQL(ctx context.Context, sql string) (sqlkit.Result, error) {
	return self.exec.Exec(ctx, sql)
}

/*
Validates the schema against the client's capabilities and executes its DDL in
dependency order. Validation errors abort before anything is executed;
warnings are logged.
*/
func (self *DB) Apply(ctx context.Context) error {
	if self.schema == nil {
		return nil
	}

	report := dialect.Validate(self.caps, self.schema)
	if err := report.Err(); err != nil {
		return err
	}
	for _, entry := range report.Warnings() {
		self.log.Warn(`schema warning`, `rule`, entry.Rule, `location`, entry.Location, `message`, entry.Message)
	}

	stmts, err := self.schema.Statements(self.Dialect())
	if err != nil {
		return err
	}
	for _, stmt := range stmts {
		if _, err := self.exec.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	self.log.Info(`schema applied`, `statements`, len(stmts), `checksum`, self.schema.Checksum())
	return nil
}

// Rows matching the conditions, with every column of the table.
func (self *DB) Find(ctx context.Context, table string, where func(*sqlkit.Conds)) ([]Row, error) {
	tab, err := self.Table(table)
	if err != nil {
		return nil, err
	}
	res, err := self.Exec(ctx, tab.Select(tab.Columns()...).Where(where))
	if err != nil {
		return nil, err
	}
	return res.Rows, nil
}

// First row matching the conditions. The boolean is false when nothing
// matches.
func (self *DB) FindOne(ctx context.Context, table string, where func(*sqlkit.Conds)) (Row, bool, error) {
	tab, err := self.Table(table)
	if err != nil {
		return nil, false, err
	}
	res, err := self.Exec(ctx, tab.Select(tab.Columns()...).Where(where).Limit(1))
	if err != nil || len(res.Rows) == 0 {
		return nil, false, err
	}
	return res.Rows[0], true, nil
}

/*
Inserts one row and returns it as stored, including defaults. Without
RETURNING support the input row is returned as-is.
*/
func (self *DB) Create(ctx context.Context, table string, row Row) (Row, error) {
	tab, err := self.Table(table)
	if err != nil {
		return nil, err
	}
	return self.create(ctx, tab, row)
}

func (self *DB) create(ctx context.Context, tab *schema.Table, row Row) (Row, error) {
	bui := tab.Insert().Caps(self.caps.Render()).Row(row)
	if self.caps.Returning {
		bui.Returning(tab.Columns()...)
	}

	res, err := self.Exec(ctx, bui)
	if err != nil {
		return nil, err
	}
	if len(res.Rows) > 0 {
		return res.Rows[0], nil
	}
	return copyRow(row), nil
}

// Sets the columns on matching rows; returns the affected row count.
func (self *DB) UpdateWhere(ctx context.Context, table string, set Row, where func(*sqlkit.Conds)) (int64, error) {
	tab, err := self.Table(table)
	if err != nil {
		return 0, err
	}
	res, err := self.Exec(ctx, tab.Update().Caps(self.caps.Render()).SetMap(set).Where(where))
	return res.RowCount, err
}

func (self *DB) DeleteWhere(ctx context.Context, table string, where func(*sqlkit.Conds)) (int64, error) {
	tab, err := self.Table(table)
	if err != nil {
		return 0, err
	}
	res, err := self.Exec(ctx, tab.Delete().Caps(self.caps.Render()).Where(where))
	return res.RowCount, err
}

func copyRow(src Row) Row {
	out := make(Row, len(src))
	for key, val := range src {
		out[key] = val
	}
	return out
}
