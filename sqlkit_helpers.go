package sqlkit

/*
SQL helper functions. Each returns an inert `SqlExpr` tag. Arguments
implementing `Expr`, such as `ColumnRef` or another helper's output, are
rendered verbatim; sub-queries are parenthesized; anything else is rendered as
a literal via `%L`.
*/

// Renders a binary arithmetic expression: `a + b`.
func Add(a, b any) SqlExpr { return binary(a, `+`, b) }

// Renders a binary arithmetic expression: `a - b`.
func Subtract(a, b any) SqlExpr { return binary(a, `-`, b) }

// Renders a binary arithmetic expression: `a * b`.
func Multiply(a, b any) SqlExpr { return binary(a, `*`, b) }

// Renders a binary arithmetic expression: `a / b`.
func Divide(a, b any) SqlExpr { return binary(a, `/`, b) }

// Renders `COALESCE(args...)`.
func Coalesce(args ...any) SqlExpr { return Func(`COALESCE`, args...) }

// Renders `GREATEST(args...)`.
func Greatest(args ...any) SqlExpr { return Func(`GREATEST`, args...) }

// Renders `LEAST(args...)`.
func Least(args ...any) SqlExpr { return Func(`LEAST`, args...) }

// Renders `a || b || ...`.
func Concat(args ...any) SqlExpr {
	var bui Bui
	for ind, arg := range args {
		if ind > 0 {
			bui.Str(`||`)
		}
		bui.Any(arg)
	}
	return SqlExpr(bui.String())
}

// Renders `lower(arg)`.
func Lower(arg any) SqlExpr { return Func(`lower`, arg) }

// Renders `upper(arg)`.
func Upper(arg any) SqlExpr { return Func(`upper`, arg) }

// Renders `trim(arg)`.
func Trim(arg any) SqlExpr { return Func(`trim`, arg) }

// Renders `now()`.
func Now() SqlExpr { return `now()` }

// Renders `CURRENT_TIMESTAMP`.
func CurrentTimestamp() SqlExpr { return `CURRENT_TIMESTAMP` }

// Renders `CURRENT_DATE`.
func CurrentDate() SqlExpr { return `CURRENT_DATE` }

/*
Renders an arbitrary function call. The name is emitted verbatim and must be a
trusted constant.
*/
func Func(name string, args ...any) SqlExpr {
	var bui Bui
	bui.Raw(name)
	bui.Raw(`(`)
	for ind, arg := range args {
		if ind > 0 {
			bui.Raw(`, `)
		}
		bui.Any(arg)
	}
	bui.Raw(`)`)
	return SqlExpr(bui.String())
}

// Renders `val::typ`. The type is emitted verbatim.
func Cast(val any, typ string) SqlExpr {
	var bui Bui
	bui.Any(val)
	bui.Raw(`::`)
	bui.Raw(typ)
	return SqlExpr(bui.String())
}

func binary(a any, op string, b any) SqlExpr {
	var bui Bui
	bui.Any(a)
	bui.Str(op)
	bui.Any(b)
	return SqlExpr(bui.String())
}
