package pgxdb

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgconn/ctxwatch"
	"github.com/mitranim/sqlkit"
	"github.com/mitranim/sqlkit/listen"
)

/*
Dials dedicated connections for `listen.Listener`. Each dial parses the DSN
anew, so a rotated password in the environment is picked up on reconnect when
the DSN comes from `config.Config.DSN`.
*/
func Dialer(dsn string) listen.Dialer {
	return func(ctx context.Context) (listen.Conn, error) {
		cfg, err := ListenConfig(dsn)
		if err != nil {
			return nil, err
		}
		conn, err := pgx.ConnectConfig(ctx, cfg)
		if err != nil {
			return nil, TranslateError(err, ``)
		}
		return ListenConn{conn}, nil
	}
}

/*
Connection config for a listener. Cancelling a wait sets a deadline on the
socket instead of sending a cancel request and closing, so the connection
survives the interruption and can run LISTEN or UNLISTEN next.
*/
func ListenConfig(dsn string) (*pgx.ConnConfig, error) {
	out, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, sqlkit.ErrConfig{
			Err:   sqlkit.MakeErr(`parsing connection string`, err),
			Field: `connection_string`,
		}
	}
	out.BuildContextWatcherHandler = func(conn *pgconn.PgConn) ctxwatch.Handler {
		return &pgconn.DeadlineContextWatcherHandler{Conn: conn.Conn()}
	}
	return out, nil
}

// Implements `listen.Conn` over one pgx connection.
type ListenConn struct{ *pgx.Conn }

func (self ListenConn) Exec(ctx context.Context, sql string) error {
	_, err := self.Conn.Exec(ctx, sql, pgx.QueryExecModeSimpleProtocol)
	return TranslateError(err, sql)
}

func (self ListenConn) Receive(ctx context.Context) (listen.Message, error) {
	val, err := self.Conn.WaitForNotification(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return listen.Message{}, ctx.Err()
		}
		return listen.Message{}, TranslateError(err, ``)
	}
	return listen.Message{Channel: val.Channel, Payload: val.Payload}, nil
}

func (self ListenConn) Close(ctx context.Context) error { return self.Conn.Close(ctx) }
