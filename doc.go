/*
Dialect-aware SQL builder for PostgreSQL, CockroachDB, AWS DSQL, and SQLite.
Renders complete SQL text with every value inlined as a safely quoted literal,
so the output can be executed by any driver without separate arguments.

Key Features

• Quoting primitives: `Format` with `%I`, `%L`, `%s`. Every other feature routes
identifiers and values through them.

• Conditions: `Conds` collects comparisons, ranges, lists, pattern matches,
JSONB and array operators, nested AND/OR/NOT groups, and raw fragments with
`$1..$N` placeholders inlined as literals.

• Statement builders: `Select`, `Insert` with `OnConflict`, `Update`, `Delete`,
`Count`, `With`, `Window`. Builders are pointer types with chainable methods.
`String` panics on misuse, `Build` returns `ErrBuilder`.

• Mutations: `UpdateOps` renders JSONB and typed-array updates as single
COALESCE-guarded expressions over the current column value.

• DDL and maintenance: tables, partitions, indexes, triggers, functions, views,
sequences, schemas, roles, grants, comments, COPY, EXPLAIN, VACUUM, ANALYZE,
TRUNCATE, LISTEN/NOTIFY, and transaction control with a `Transaction` tracker.

• Typed errors: every error kind embeds `Err` with a timestamp and a captured
stack, supports `errors.Is` by kind, JSON encoding, and `%+v` formatting.

Subpackages

"schema" declares typed tables and derives resolvers and DDL from them.
"dialect" validates schemas against dialect capabilities. "introspect" parses
CREATE TABLE statements and generates schema code. "listen" implements a
reconnecting LISTEN/NOTIFY listener. "config" loads settings. "pgxdb" and
"sqldb" adapt drivers to `Executor`. "db" ties them together. The "sqlkit"
command in "cmd/sqlkit" exposes code generation, DDL rendering, validation, and
a notification tail.

Examples

See `Select`, `Insert`, `Update`, `Count`, `With`, and `CreateTable`.
*/
package sqlkit
