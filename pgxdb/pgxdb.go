/*
Package pgxdb adapts a pgx connection pool to `sqlkit.Executor` and
`sqlkit.SessionProvider`, and provides the dedicated connection used by
package "listen".

	pool, err := pgxdb.Open(ctx, conf, log)
	if err != nil {
		return err
	}
	defer pool.Close()

	res, err := sqlkit.Exec(ctx, pool, sqlkit.Select(`users`).Where(func(val *sqlkit.Conds) {
		val.Equal(`id`, 10)
	}))

SQL rendered by this module is fully interpolated, so every statement runs over
the simple query protocol. Text containing several statements is allowed.
*/
package pgxdb

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mitranim/sqlkit"
	"github.com/mitranim/sqlkit/config"
)

// Executor over a pgx pool. Safe for concurrent use.
type Pool struct {
	pool    *pgxpool.Pool
	log     *slog.Logger
	acquire time.Duration
}

var (
	_ sqlkit.Executor        = (*Pool)(nil)
	_ sqlkit.SessionProvider = (*Pool)(nil)
	_ sqlkit.Session         = (*Conn)(nil)
)

/*
Connects a pool using the DSN and pool settings of the config, and pings the
backend. A nil logger discards.
*/
func Open(ctx context.Context, conf config.Config, log *slog.Logger) (*Pool, error) {
	cfg, err := PoolConfig(conf)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, TranslateError(err, ``)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, TranslateError(err, ``)
	}

	out := New(pool, log)
	out.acquire = conf.Pool.AcquireTimeout
	out.log.Debug(`connected`, `host`, cfg.ConnConfig.Host, `database`, cfg.ConnConfig.Database)
	return out, nil
}

// Wraps an existing pool. A nil logger discards.
func New(pool *pgxpool.Pool, log *slog.Logger) *Pool {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Pool{pool: pool, log: log}
}

/*
Parses the DSN of the config and applies its pool settings. Zero values keep
the pgx defaults. The acquire timeout has no pgx counterpart; `Pool` applies it
per acquisition.
*/
func PoolConfig(conf config.Config) (*pgxpool.Config, error) {
	out, err := pgxpool.ParseConfig(conf.DSN())
	if err != nil {
		return nil, sqlkit.ErrConfig{
			Err:   sqlkit.MakeErr(`parsing connection string`, err),
			Field: `connection_string`,
		}
	}

	pool := conf.Pool
	if pool.MaxConns > 0 {
		out.MaxConns = int32(pool.MaxConns)
	}
	if pool.MinConns > 0 {
		out.MinConns = int32(pool.MinConns)
	}
	if pool.IdleTimeout > 0 {
		out.MaxConnIdleTime = pool.IdleTimeout
	}
	out.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol
	return out, nil
}

func (self *Pool) Inner() *pgxpool.Pool { return self.pool }

func (self *Pool) Close() { self.pool.Close() }

// Implement `sqlkit.Executor`.
func (self *Pool) Exec(ctx context.Context, sql string) (sqlkit.Result, error) {
	return run(ctx, self.log, self.pool, sql)
}

// Implement `sqlkit.SessionProvider`. The caller must release the session.
func (self *Pool) Session(ctx context.Context) (sqlkit.Session, error) {
	conn, err := self.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// Like `Session` but returns the concrete type.
func (self *Pool) Acquire(ctx context.Context) (*Conn, error) {
	if self.acquire > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, self.acquire)
		defer cancel()
	}

	conn, err := self.pool.Acquire(ctx)
	if err != nil {
		return nil, self.poolErr(err)
	}
	return &Conn{conn: conn, log: self.log}, nil
}

// An acquisition that times out with every connection in use is reported as
// pool exhaustion. pgxpool doesn't count waiters.
func (self *Pool) poolErr(err error) error {
	stat := self.pool.Stat()
	if isDeadline(err) && stat.AcquiredConns() >= stat.MaxConns() {
		return sqlkit.ErrPool{
			Err:      sqlkit.MakeErr(`acquiring connection`, err),
			PoolSize: int(stat.MaxConns()),
			Active:   int(stat.AcquiredConns()),
		}
	}
	return TranslateError(err, ``)
}

// Session pinned to one pooled connection.
type Conn struct {
	conn *pgxpool.Conn
	log  *slog.Logger
}

func (self *Conn) Inner() *pgxpool.Conn { return self.conn }

// Implement `sqlkit.Executor`.
func (self *Conn) Exec(ctx context.Context, sql string) (sqlkit.Result, error) {
	return run(ctx, self.log, self.conn, sql)
}

// Implement `sqlkit.Session`. Returns the connection to the pool.
func (self *Conn) Release() { self.conn.Release() }

type querier interface {
	Query(context.Context, string, ...any) (pgx.Rows, error)
}

func run(ctx context.Context, log *slog.Logger, src querier, sql string) (_ sqlkit.Result, err error) {
	start := time.Now()
	defer func() {
		if err != nil {
			log.Debug(`exec failed`, `sql`, sql, `error`, err)
		} else {
			log.Debug(`exec`, `sql`, sql, `took`, time.Since(start))
		}
	}()

	rows, err := src.Query(ctx, sql, pgx.QueryExecModeSimpleProtocol)
	if err != nil {
		return sqlkit.Result{}, TranslateError(err, sql)
	}
	defer rows.Close()

	var out sqlkit.Result
	for _, field := range rows.FieldDescriptions() {
		out.Fields = append(out.Fields, field.Name)
	}

	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return sqlkit.Result{}, TranslateError(err, sql)
		}
		row := make(map[string]any, len(vals))
		for ind, val := range vals {
			row[out.Fields[ind]] = val
		}
		out.Rows = append(out.Rows, row)
	}

	rows.Close()
	if err := rows.Err(); err != nil {
		return sqlkit.Result{}, TranslateError(err, sql)
	}

	out.RowCount = rows.CommandTag().RowsAffected()
	if out.RowCount == 0 {
		out.RowCount = int64(len(out.Rows))
	}
	return out, nil
}
