package pgxdb

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mitranim/sqlkit"
)

// SQLSTATE of "query_canceled", raised by statement_timeout and cancellation.
const codeQueryCanceled = `57014`

/*
Re-types a pgx error as an error kind of package "sqlkit":

	* Errors that already are sqlkit kinds pass through.
	* SQLSTATE 57014 and deadline errors become `ErrTimeout`.
	* Connection failures and SQLSTATE class 08 become `ErrConnection`.
	* Everything else becomes `ErrQuery` carrying the SQL text.
*/
func TranslateError(err error, sql string) error {
	if err == nil || isKind(err) {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == codeQueryCanceled:
			return sqlkit.ErrTimeout{Err: sqlkit.MakeErr(`executing query`, err), Operation: `query`}
		case strings.HasPrefix(pgErr.Code, `08`):
			return sqlkit.ErrConnection{Err: sqlkit.MakeErr(`executing query`, err), Code: pgErr.Code}
		default:
			return sqlkit.ErrQuery{
				Err:    sqlkit.MakeErr(`executing query`, err),
				SQL:    sql,
				Code:   pgErr.Code,
				Detail: pgErr.Detail,
				Hint:   pgErr.Hint,
			}
		}
	}

	if isDeadline(err) {
		op := `query`
		if sql == `` {
			op = `connect`
		}
		return sqlkit.ErrTimeout{Err: sqlkit.MakeErr(`executing query`, err), Operation: op}
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		out := sqlkit.ErrConnection{Err: sqlkit.MakeErr(`connecting`, err)}
		if connErr.Config != nil {
			out.Host = connErr.Config.Host
			out.Port = int(connErr.Config.Port)
		}
		return out
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return sqlkit.ErrConnection{Err: sqlkit.MakeErr(`executing query`, err)}
	}

	return sqlkit.ErrQuery{Err: sqlkit.MakeErr(`executing query`, err), SQL: sql}
}

func isDeadline(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || pgconn.Timeout(err)
}

func isKind(err error) bool {
	return errors.Is(err, sqlkit.ErrConnection{}) ||
		errors.Is(err, sqlkit.ErrQuery{}) ||
		errors.Is(err, sqlkit.ErrTimeout{}) ||
		errors.Is(err, sqlkit.ErrPool{}) ||
		errors.Is(err, sqlkit.ErrConfig{})
}
