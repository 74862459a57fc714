package sqlkit

import (
	"context"
	"strings"
)

/*
Short for "expression". Defines an arbitrary SQL expression. The method appends
SQL text to the buffer, delimiting it from the preceding text with a space when
necessary. All SQL produced by this package is fully interpolated: there are no
parameters or arguments.

This method is allowed to panic. Use `Render` or the `Build` method of any
builder to convert panics to errors.

All `Expr` types in this package also implement `fmt.Stringer`.
*/
type Expr interface {
	AppendExpr([]byte) []byte
}

/*
Implemented by statement builders that may be nested inside other statements.
When used as a value, such expressions are parenthesized.
*/
type subquery interface {
	Expr
	subquery()
}

// Renders an arbitrary expression, converting panics to errors.
func Render(val Expr) (_ string, err error) {
	defer rec(&err)
	if val == nil {
		return ``, nil
	}
	return bytesToMutableString(val.AppendExpr(nil)), nil
}

// Variant of `Render` that panics on error.
func TryRender(val Expr) string { return try1(Render(val)) }

// Wraps an arbitrary expression so that it's parenthesized when used as a
// value, for example on the right side of `IN`.
type Sub struct{ Expr }

func (Sub) subquery() {}

// Implement the `fmt.Stringer` interface for debug purposes.
func (self Sub) String() string { return exprString(self) }

// SQL dialect. Selects default quoting rules, DDL variants, and the capability
// descriptor used for validation.
type Dialect string

const (
	Postgres    Dialect = `postgres`
	CockroachDB Dialect = `cockroachdb`
	AWSDSQL     Dialect = `awsdsql`
	SQLite      Dialect = `sqlite`
)

// All supported dialects in a stable order.
var Dialects = []Dialect{Postgres, CockroachDB, AWSDSQL, SQLite}

// Parses a dialect name, accepting common aliases case-insensitively.
func ParseDialect(src string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(src)) {
	case ``, `postgres`, `postgresql`, `pg`:
		return Postgres, nil
	case `cockroachdb`, `cockroach`, `crdb`:
		return CockroachDB, nil
	case `awsdsql`, `dsql`, `aurora-dsql`:
		return AWSDSQL, nil
	case `sqlite`, `sqlite3`:
		return SQLite, nil
	default:
		return ``, ErrConfig{
			Err:   makeErr(`parsing dialect`, errf(`unknown dialect %q`, src), 2),
			Field: `dialect`,
			Value: src,
		}
	}
}

// Implement `fmt.Stringer`.
func (self Dialect) String() string { return string(self) }

// True for dialects speaking the PostgreSQL wire protocol and DDL.
func (self Dialect) IsPostgresFamily() bool {
	return self == `` || self == Postgres || self == CockroachDB || self == AWSDSQL
}

/*
Per-dialect rendering overrides consulted by statement builders before
surfacing dialect-sensitive clauses.
*/
type Capabilities struct {
	// Omits RETURNING clauses.
	DisableReturning bool

	// Casts JSON values to TEXT instead of JSONB. Used for backends without
	// JSON column types.
	JsonAsText bool
}

// Default capability overrides for the dialect.
func CapabilitiesOf(dialect Dialect) Capabilities {
	switch dialect {
	case AWSDSQL:
		return Capabilities{JsonAsText: true}
	default:
		return Capabilities{}
	}
}

func (self Capabilities) jsonCast() string {
	if self.JsonAsText {
		return `::text`
	}
	return `::jsonb`
}

// Result of executing a statement.
type Result struct {
	Rows     []map[string]any
	RowCount int64
	Fields   []string
}

// Accepts fully rendered SQL text and returns the resulting rows.
type Executor interface {
	Exec(context.Context, string) (Result, error)
}

// Executor bound to one dedicated connection, required for transactions.
type Session interface {
	Executor
	Release()
}

// Hands out dedicated sessions.
type SessionProvider interface {
	Session(context.Context) (Session, error)
}

// Shortcut for rendering and executing an expression.
func Exec(ctx context.Context, exec Executor, val Expr) (Result, error) {
	text, err := Render(val)
	if err != nil {
		return Result{}, err
	}
	return exec.Exec(ctx, text)
}
