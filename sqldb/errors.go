package sqldb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"net"
	"strconv"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/mitranim/sqlkit"
)

/*
Re-types a lib/pq or "database/sql" error as an error kind of package
"sqlkit". SQLSTATE 57014 and deadlines become `ErrTimeout`, SQLSTATE class 08
and network failures become `ErrConnection`, everything else `ErrQuery`.
*/
func TranslateError(err error, text string) error {
	if err == nil || isKind(err) {
		return err
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		code := string(pqErr.Code)
		switch {
		case code == `57014`:
			return sqlkit.ErrTimeout{Err: sqlkit.MakeErr(`executing query`, err), Operation: `query`}
		case pqErr.Code.Class() == `08`:
			return sqlkit.ErrConnection{Err: sqlkit.MakeErr(`executing query`, err), Code: code}
		default:
			return sqlkit.ErrQuery{
				Err:    sqlkit.MakeErr(`executing query`, err),
				SQL:    text,
				Code:   code,
				Detail: pqErr.Detail,
				Hint:   pqErr.Hint,
			}
		}
	}
	return translateCommon(err, text)
}

/*
Re-types a go-sqlite3 error. Busy and locked databases become `ErrTimeout`,
since they surface once the busy timeout has elapsed. Unopenable files become
`ErrConnection`. The query error code is the extended result code.
*/
func TranslateSQLiteError(err error, text string) error {
	if err == nil || isKind(err) {
		return err
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code {
		case sqlite3.ErrBusy, sqlite3.ErrLocked:
			return sqlkit.ErrTimeout{Err: sqlkit.MakeErr(`executing query`, err), Operation: `lock`}
		case sqlite3.ErrCantOpen, sqlite3.ErrNotADB:
			return sqlkit.ErrConnection{
				Err:  sqlkit.MakeErr(`opening database`, err),
				Code: strconv.Itoa(int(liteErr.ExtendedCode)),
			}
		default:
			return sqlkit.ErrQuery{
				Err:    sqlkit.MakeErr(`executing query`, err),
				SQL:    text,
				Code:   strconv.Itoa(int(liteErr.ExtendedCode)),
				Detail: liteErr.Error(),
			}
		}
	}
	return translateCommon(err, text)
}

func translateCommon(err error, text string) error {
	if isDeadline(err) {
		return sqlkit.ErrTimeout{Err: sqlkit.MakeErr(`executing query`, err), Operation: `query`}
	}

	var netErr net.Error
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) || errors.As(err, &netErr) {
		return sqlkit.ErrConnection{Err: sqlkit.MakeErr(`executing query`, err)}
	}
	return sqlkit.ErrQuery{Err: sqlkit.MakeErr(`executing query`, err), SQL: text}
}

func isDeadline(err error) bool { return errors.Is(err, context.DeadlineExceeded) }

func isKind(err error) bool {
	return errors.Is(err, sqlkit.ErrConnection{}) ||
		errors.Is(err, sqlkit.ErrQuery{}) ||
		errors.Is(err, sqlkit.ErrTimeout{}) ||
		errors.Is(err, sqlkit.ErrPool{}) ||
		errors.Is(err, sqlkit.ErrConfig{})
}
