package sqlkit

import (
	"strings"
)

// Represents an SQL identifier, always quoted. Panics on empty input.
type Ident string

// Implement the `Expr` interface, making this a sub-expression.
func (self Ident) AppendExpr(text []byte) []byte {
	text = maybeAppendSpace(text)
	return appendIdent(text, string(self))
}

// Implement the `fmt.Stringer` interface for debug purposes.
func (self Ident) String() string { return exprString(self) }

/*
Represents a nested SQL identifier where all elements are quoted and
dot-separated. Useful for schema-qualified names.
*/
type Identifier []string

// Implement the `Expr` interface, making this a sub-expression.
func (self Identifier) AppendExpr(text []byte) []byte {
	if len(self) == 0 {
		return text
	}
	text = maybeAppendSpace(text)
	for ind, val := range self {
		if ind > 0 {
			text = append(text, '.')
		}
		text = appendIdent(text, val)
	}
	return text
}

// Implement the `fmt.Stringer` interface for debug purposes.
func (self Identifier) String() string { return exprString(self) }

/*
Tag for raw SQL. Rendered verbatim, never re-quoted. Producers are responsible
for quoting any inner identifiers and literals, typically via `Format`.
*/
type SqlExpr string

// Implement the `Expr` interface, making this a sub-expression.
func (self SqlExpr) AppendExpr(text []byte) []byte {
	return appendMaybeSpaced(text, string(self))
}

// Implement the `fmt.Stringer` interface for debug purposes.
func (self SqlExpr) String() string { return string(self) }

/*
Tag for a column of a specific table. Inert until rendered. The table
"EXCLUDED" refers to the row proposed for insertion in ON CONFLICT clauses and
renders unquoted.
*/
type ColumnRef struct {
	Table  string
	Column string
}

// Reference to a column of the row proposed for insertion.
func Excluded(col string) ColumnRef { return ColumnRef{Table: tableExcluded, Column: col} }

// Reference to a column of a specific table.
func Ref(table, col string) ColumnRef { return ColumnRef{Table: table, Column: col} }

// Implement the `Expr` interface, making this a sub-expression.
func (self ColumnRef) AppendExpr(text []byte) []byte {
	text = maybeAppendSpace(text)
	switch self.Table {
	case ``:
	case tableExcluded:
		text = append(text, tableExcluded...)
		text = append(text, '.')
	default:
		text = appendDotted(text, self.Table)
		text = append(text, '.')
	}
	return appendIdent(text, self.Column)
}

// Implement the `fmt.Stringer` interface for debug purposes.
func (self ColumnRef) String() string { return exprString(self) }

// True if the reference points to the EXCLUDED pseudo-table.
func (self ColumnRef) IsExcluded() bool { return self.Table == tableExcluded }

/*
Renders a column name for conditions and clauses. A dotted name is split into
alias and column, each part quoted. A name containing quotes or
parens is treated as pre-formatted and passed through.
*/
func appendColumn(text []byte, name string) []byte {
	text = maybeAppendSpace(text)

	if name == `*` {
		return append(text, '*')
	}
	if isPreformatted(name) {
		return append(text, name...)
	}
	if strings.Contains(name, `.`) {
		return appendDotted(text, name)
	}
	return appendIdent(text, name)
}

// Quoted names and expressions such as "lower(email)" pass through.
func isPreformatted(name string) bool {
	return strings.ContainsAny(name, `"(`)
}

// Same as `appendColumn` but bare names are resolved and optionally qualified.
func appendResolvedColumn(text []byte, name string, resolve ColumnResolver, qualify string) []byte {
	if name == `*` {
		if qualify != `` {
			text = maybeAppendSpace(text)
			text = appendDotted(text, qualify)
			return append(text, `.*`...)
		}
		return appendColumn(text, name)
	}

	if isPreformatted(name) || strings.Contains(name, `.`) {
		return appendColumn(text, name)
	}

	name = resolveWith(resolve, name)
	text = maybeAppendSpace(text)
	if qualify != `` {
		text = appendDotted(text, qualify)
		text = append(text, '.')
	}
	return appendIdent(text, name)
}

// Maps programmatic column keys to SQL column names.
type ColumnResolver func(string) string

// Maps programmatic column keys to SQL types such as "text[]" or "jsonb".
// Returns "" for unknown columns.
type TypeResolver func(string) string
