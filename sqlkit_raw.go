package sqlkit

import (
	"github.com/mitranim/sqlp"
)

/*
Raw SQL with optional ordinal parameters such as "$1". The parameters are
replaced with the corresponding arguments, rendered via `%L` or verbatim for
`Expr` arguments. Parameters inside quoted strings, quoted identifiers, and
comments are left untouched. Named parameters are not supported.

	Raw{`created_at > $1 and kind = any($2)`, []any{someTime, []string{`a`, `b`}}}
*/
type Raw struct {
	Text string
	Args []any
}

// Implement the `Expr` interface, making this a sub-expression.
func (self Raw) AppendExpr(text []byte) []byte {
	if self.Text == `` {
		return text
	}

	text = maybeAppendSpace(text)
	if len(self.Args) == 0 {
		return append(text, self.Text...)
	}
	return appendInlined(text, self.Text, self.Args)
}

// Implement the `fmt.Stringer` interface for debug purposes.
func (self Raw) String() string { return exprString(self) }

func appendInlined(text []byte, src string, args []any) []byte {
	tokenizer := sqlp.Tokenizer{Source: src}
	used := make([]bool, len(args))

	for {
		node := tokenizer.Next()
		if node == nil {
			break
		}

		switch node := node.(type) {
		case sqlp.NodeOrdinalParam:
			index := node.Index()
			if index < 0 || index >= len(args) {
				panic(errFormat(src, errf(`ordinal parameter %v exceeds argument count %v`, node, len(args))))
			}
			used[index] = true
			text = appendInlineArg(text, args[index])

		case sqlp.NodeNamedParam:
			panic(errFormat(src, errf(`unexpected named parameter %q, expected only ordinal parameters`, string(node))))

		default:
			node.Append(&text)
		}
	}

	for ind, ok := range used {
		if !ok {
			panic(errFormat(src, errf(`unused argument %#v at index %v`, args[ind], ind)))
		}
	}
	return text
}

func appendInlineArg(text []byte, arg any) []byte {
	sub, _ := arg.(subquery)
	if sub != nil {
		text = append(text, '(')
		text = sub.AppendExpr(text)
		return append(text, ')')
	}

	expr, _ := arg.(Expr)
	if expr != nil {
		return expr.AppendExpr(text)
	}
	return appendLiteral(text, arg, true)
}
