/*
Package sqldb adapts "database/sql" to `sqlkit.Executor` and
`sqlkit.SessionProvider`. `Open` uses the "postgres" driver of lib/pq for the
PostgreSQL family and the "sqlite3" driver of go-sqlite3 for SQLite. Importing
this package registers both.

	db, err := sqldb.Open(ctx, conf, log)
	if err != nil {
		return err
	}
	defer db.Close()

Statements that produce rows (SELECT, VALUES, WITH, EXPLAIN, PRAGMA, SHOW, or
anything with RETURNING) run through `QueryContext`; others through
`ExecContext`, which reports the affected row count and runs every statement
of a multi-statement text.
*/
package sqldb

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"
	"time"

	"github.com/mitranim/sqlkit"
	"github.com/mitranim/sqlkit/config"
	"github.com/mitranim/sqlp"
)

const (
	DriverPostgres = `postgres`
	DriverSQLite   = `sqlite3`
)

// Name of the "database/sql" driver used for the dialect.
func DriverName(dialect sqlkit.Dialect) string {
	if dialect == sqlkit.SQLite {
		return DriverSQLite
	}
	return DriverPostgres
}

// Executor over `*sql.DB`. Safe for concurrent use.
type DB struct {
	db      *sql.DB
	dialect sqlkit.Dialect
	log     *slog.Logger
	acquire time.Duration
}

var (
	_ sqlkit.Executor        = (*DB)(nil)
	_ sqlkit.SessionProvider = (*DB)(nil)
	_ sqlkit.Session         = (*Conn)(nil)
)

/*
Opens and pings a database for the dialect and DSN of the config, applying
its pool settings. In-memory SQLite databases are limited to one connection,
since every connection would otherwise see its own empty database.
*/
func Open(ctx context.Context, conf config.Config, log *slog.Logger) (*DB, error) {
	dialect := conf.SQLDialect()
	dsn := conf.DSN()

	db, err := sql.Open(DriverName(dialect), dsn)
	if err != nil {
		return nil, sqlkit.ErrConfig{
			Err:   sqlkit.MakeErr(`opening database`, err),
			Field: `connection_string`,
		}
	}

	pool := conf.Pool
	if pool.MaxConns > 0 {
		db.SetMaxOpenConns(pool.MaxConns)
	}
	if pool.MinConns > 0 {
		db.SetMaxIdleConns(pool.MinConns)
	}
	if pool.IdleTimeout > 0 {
		db.SetConnMaxIdleTime(pool.IdleTimeout)
	}
	if dialect == sqlkit.SQLite && isMemory(dsn) {
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, translate(dialect, err, ``)
	}

	out := New(db, dialect, log)
	out.acquire = pool.AcquireTimeout
	out.log.Debug(`connected`, `driver`, DriverName(dialect))
	return out, nil
}

// Wraps an existing database. A nil logger discards.
func New(db *sql.DB, dialect sqlkit.Dialect, log *slog.Logger) *DB {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &DB{db: db, dialect: dialect, log: log}
}

func isMemory(dsn string) bool {
	return dsn == `:memory:` || dsn == `` || strings.Contains(dsn, `mode=memory`)
}

func (self *DB) Inner() *sql.DB { return self.db }

func (self *DB) Dialect() sqlkit.Dialect { return self.dialect }

func (self *DB) Close() error { return self.db.Close() }

// Implement `sqlkit.Executor`.
func (self *DB) Exec(ctx context.Context, sql string) (sqlkit.Result, error) {
	return run(ctx, self.log, self.dialect, self.db, sql)
}

// Implement `sqlkit.SessionProvider`. The caller must release the session.
func (self *DB) Session(ctx context.Context) (sqlkit.Session, error) {
	conn, err := self.Conn(ctx)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// Like `Session` but returns the concrete type.
func (self *DB) Conn(ctx context.Context) (*Conn, error) {
	if self.acquire > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, self.acquire)
		defer cancel()
	}

	conn, err := self.db.Conn(ctx)
	if err != nil {
		if isDeadline(err) {
			stat := self.db.Stats()
			return nil, sqlkit.ErrPool{
				Err:      sqlkit.MakeErr(`acquiring connection`, err),
				PoolSize: stat.MaxOpenConnections,
				Active:   stat.InUse,
				Waiting:  int(stat.WaitCount),
			}
		}
		return nil, translate(self.dialect, err, ``)
	}
	return &Conn{conn: conn, dialect: self.dialect, log: self.log}, nil
}

// Session pinned to one connection of the pool.
type Conn struct {
	conn    *sql.Conn
	dialect sqlkit.Dialect
	log     *slog.Logger
}

func (self *Conn) Inner() *sql.Conn { return self.conn }

// Implement `sqlkit.Executor`.
func (self *Conn) Exec(ctx context.Context, sql string) (sqlkit.Result, error) {
	return run(ctx, self.log, self.dialect, self.conn, sql)
}

// Implement `sqlkit.Session`. Returns the connection to the pool.
func (self *Conn) Release() {
	if err := self.conn.Close(); err != nil {
		self.log.Warn(`failed to release connection`, `error`, err)
	}
}

type queryer interface {
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	ExecContext(context.Context, string, ...any) (sql.Result, error)
}

func run(ctx context.Context, log *slog.Logger, dialect sqlkit.Dialect, src queryer, text string) (_ sqlkit.Result, err error) {
	start := time.Now()
	defer func() {
		if err != nil {
			err = translate(dialect, err, text)
			log.Debug(`exec failed`, `sql`, text, `error`, err)
		} else {
			log.Debug(`exec`, `sql`, text, `took`, time.Since(start))
		}
	}()

	if !ReturnsRows(text) {
		res, err := src.ExecContext(ctx, text)
		if err != nil {
			return sqlkit.Result{}, err
		}
		count, err := res.RowsAffected()
		if err != nil {
			return sqlkit.Result{}, err
		}
		return sqlkit.Result{RowCount: count}, nil
	}

	rows, err := src.QueryContext(ctx, text)
	if err != nil {
		return sqlkit.Result{}, err
	}
	defer rows.Close()

	fields, err := rows.Columns()
	if err != nil {
		return sqlkit.Result{}, err
	}

	out := sqlkit.Result{Fields: fields}
	vals := make([]any, len(fields))
	ptrs := make([]any, len(fields))
	for ind := range vals {
		ptrs[ind] = &vals[ind]
	}

	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return sqlkit.Result{}, err
		}
		row := make(map[string]any, len(fields))
		for ind, key := range fields {
			row[key] = vals[ind]
		}
		out.Rows = append(out.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return sqlkit.Result{}, err
	}

	out.RowCount = int64(len(out.Rows))
	return out, nil
}

func translate(dialect sqlkit.Dialect, err error, text string) error {
	if dialect == sqlkit.SQLite {
		return TranslateSQLiteError(err, text)
	}
	return TranslateError(err, text)
}

var rowKeywords = map[string]bool{
	`SELECT`:  true,
	`VALUES`:  true,
	`WITH`:    true,
	`TABLE`:   true,
	`SHOW`:    true,
	`EXPLAIN`: true,
	`PRAGMA`:  true,
}

/*
True if the statement text produces a result set: it begins with a row-producing
keyword or contains RETURNING. Quoted text and comments are ignored.
*/
func ReturnsRows(src string) bool {
	tokenizer := sqlp.Tokenizer{Source: src}
	first := true

	for {
		node := tokenizer.Next()
		if node == nil {
			return false
		}

		text, ok := node.(sqlp.NodeText)
		if !ok {
			continue
		}

		for _, word := range strings.FieldsFunc(string(text), isDelim) {
			word = strings.ToUpper(word)
			if first {
				first = false
				if rowKeywords[word] {
					return true
				}
			}
			if word == `RETURNING` {
				return true
			}
		}
	}
}

func isDelim(char rune) bool {
	return !(char == '_' ||
		(char >= 'a' && char <= 'z') ||
		(char >= 'A' && char <= 'Z') ||
		(char >= '0' && char <= '9'))
}
