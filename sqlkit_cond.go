package sqlkit

// Discriminator of a condition node.
type CondMethod string

const (
	CondEq          CondMethod = `eq`
	CondNe          CondMethod = `ne`
	CondLt          CondMethod = `lt`
	CondLe          CondMethod = `le`
	CondGt          CondMethod = `gt`
	CondGe          CondMethod = `ge`
	CondLike        CondMethod = `like`
	CondNotLike     CondMethod = `notLike`
	CondIlike       CondMethod = `ilike`
	CondNotIlike    CondMethod = `notIlike`
	CondBetween     CondMethod = `between`
	CondNotBetween  CondMethod = `notBetween`
	CondIn          CondMethod = `in`
	CondNotIn       CondMethod = `notIn`
	CondIsNull      CondMethod = `isNull`
	CondIsNotNull   CondMethod = `isNotNull`
	CondContains    CondMethod = `contains`
	CondContainedBy CondMethod = `containedBy`
	CondOverlaps    CondMethod = `overlaps`
	CondHasKey      CondMethod = `hasKey`
	CondRaw         CondMethod = `raw`
	CondExists      CondMethod = `exists`
	CondAnd         CondMethod = `and`
	CondOr          CondMethod = `or`
	CondNot         CondMethod = `not`
)

var condOperators = map[CondMethod]string{
	CondEq:          `=`,
	CondNe:          `<>`,
	CondLt:          `<`,
	CondLe:          `<=`,
	CondGt:          `>`,
	CondGe:          `>=`,
	CondLike:        `LIKE`,
	CondNotLike:     `NOT LIKE`,
	CondIlike:       `ILIKE`,
	CondNotIlike:    `NOT ILIKE`,
	CondContains:    `@>`,
	CondContainedBy: `<@`,
	CondOverlaps:    `&&`,
	CondHasKey:      `?`,
}

/*
One node of a condition tree. Leaf nodes carry a column and values. Structural
nodes (`and`, `or`, `not`) carry nested nodes. Raw nodes carry SQL text with
optional ordinal parameters.
*/
type Cond struct {
	Method CondMethod
	Column string
	Values []any
	Nested Conds
	Raw    Raw
}

/*
Condition collector. Each fluent call appends one node; insertion order is
rendering order. Top-level nodes are joined with AND.

	var where sqlkit.Conds
	where.Equal(`id`, 5).Like(`name`, `%x%`)
	// "id" = 5 AND "name" LIKE '%x%'
*/
type Conds []Cond

// Implement the `Expr` interface, making this a sub-expression. Column names
// are neither resolved nor qualified.
func (self Conds) AppendExpr(text []byte) []byte {
	return self.appendWith(text, condCtx{})
}

// Implement the `fmt.Stringer` interface for debug purposes.
func (self Conds) String() string { return exprString(self) }

// True if rendering would produce no text.
func (self Conds) IsEmpty() bool {
	for _, val := range self {
		if !val.isEmpty() {
			return false
		}
	}
	return true
}

// Appends an arbitrary node.
func (self *Conds) Add(vals ...Cond) *Conds {
	*self = append(*self, vals...)
	return self
}

func (self *Conds) leaf(method CondMethod, col string, vals ...any) *Conds {
	return self.Add(Cond{Method: method, Column: col, Values: vals})
}

// `col = val`. A nil value renders `col IS NULL`.
func (self *Conds) Equal(col string, val any) *Conds { return self.leaf(CondEq, col, val) }

// `col <> val`. A nil value renders `col IS NOT NULL`.
func (self *Conds) NotEqual(col string, val any) *Conds { return self.leaf(CondNe, col, val) }

// `col < val`.
func (self *Conds) Less(col string, val any) *Conds { return self.leaf(CondLt, col, val) }

// `col <= val`.
func (self *Conds) LessOrEqual(col string, val any) *Conds { return self.leaf(CondLe, col, val) }

// `col > val`.
func (self *Conds) Greater(col string, val any) *Conds { return self.leaf(CondGt, col, val) }

// `col >= val`.
func (self *Conds) GreaterOrEqual(col string, val any) *Conds { return self.leaf(CondGe, col, val) }

// `col BETWEEN lo AND hi`.
func (self *Conds) Between(col string, lo, hi any) *Conds {
	return self.leaf(CondBetween, col, lo, hi)
}

// `col NOT BETWEEN lo AND hi`.
func (self *Conds) NotBetween(col string, lo, hi any) *Conds {
	return self.leaf(CondNotBetween, col, lo, hi)
}

/*
`col IN (vals)`. A single slice argument is expanded into its elements. A
single sub-query argument renders `col IN (SELECT ...)`. An empty set renders
`FALSE`.
*/
func (self *Conds) In(col string, vals ...any) *Conds {
	return self.leaf(CondIn, col, flattenValues(vals)...)
}

// `col NOT IN (vals)`. Same argument rules as `In`. An empty set renders
// `TRUE`.
func (self *Conds) NotIn(col string, vals ...any) *Conds {
	return self.leaf(CondNotIn, col, flattenValues(vals)...)
}

// `col IS NULL`.
func (self *Conds) IsNull(col string) *Conds { return self.leaf(CondIsNull, col) }

// `col IS NOT NULL`.
func (self *Conds) IsNotNull(col string) *Conds { return self.leaf(CondIsNotNull, col) }

// `col LIKE pattern`.
func (self *Conds) Like(col string, pattern any) *Conds {
	return self.leaf(CondLike, col, pattern)
}

// `col NOT LIKE pattern`.
func (self *Conds) NotLike(col string, pattern any) *Conds {
	return self.leaf(CondNotLike, col, pattern)
}

// `col ILIKE pattern`.
func (self *Conds) ILike(col string, pattern any) *Conds {
	return self.leaf(CondIlike, col, pattern)
}

// `col NOT ILIKE pattern`.
func (self *Conds) NotILike(col string, pattern any) *Conds {
	return self.leaf(CondNotIlike, col, pattern)
}

// `col @> val`, for arrays and JSONB.
func (self *Conds) Contains(col string, val any) *Conds {
	return self.leaf(CondContains, col, val)
}

// `col <@ val`, for arrays and JSONB.
func (self *Conds) ContainedBy(col string, val any) *Conds {
	return self.leaf(CondContainedBy, col, val)
}

// `col && val`, for arrays.
func (self *Conds) Overlaps(col string, val any) *Conds {
	return self.leaf(CondOverlaps, col, val)
}

// `col ? key`, for JSONB.
func (self *Conds) HasKey(col string, key string) *Conds {
	return self.leaf(CondHasKey, col, key)
}

/*
Raw SQL condition, never rewritten by column resolvers. Ordinal parameters
such as "$1" are replaced with the corresponding arguments, see `Raw`.
*/
func (self *Conds) Raw(sql string, args ...any) *Conds {
	return self.Add(Cond{Method: CondRaw, Raw: Raw{sql, args}})
}

// `EXISTS (query)`.
func (self *Conds) Exists(query Expr) *Conds {
	return self.Add(Cond{Method: CondExists, Values: []any{query}})
}

// Parenthesized AND group built by the callback.
func (self *Conds) And(fun func(*Conds)) *Conds { return self.nested(CondAnd, fun) }

// Parenthesized OR group built by the callback. A group with a single node
// renders as that node.
func (self *Conds) Or(fun func(*Conds)) *Conds { return self.nested(CondOr, fun) }

// `NOT (group)` built by the callback.
func (self *Conds) Not(fun func(*Conds)) *Conds { return self.nested(CondNot, fun) }

func (self *Conds) nested(method CondMethod, fun func(*Conds)) *Conds {
	var sub Conds
	if fun != nil {
		fun(&sub)
	}
	return self.Add(Cond{Method: method, Nested: sub})
}

// Rendering context supplied by statement builders.
type condCtx struct {
	resolve ColumnResolver
	qualify string
}

func (self Conds) appendWith(text []byte, ctx condCtx) []byte {
	return appendCondList(text, self, ctx, `AND`)
}

func appendCondList(text []byte, conds Conds, ctx condCtx, joiner string) []byte {
	var found bool
	for _, cond := range conds {
		if cond.isEmpty() {
			continue
		}
		if found {
			text = appendMaybeSpaced(text, joiner)
		}
		found = true
		text = cond.appendWith(text, ctx)
	}
	return text
}

func (self Cond) isEmpty() bool {
	switch self.Method {
	case CondAnd, CondOr, CondNot:
		return self.Nested.IsEmpty()
	case CondRaw:
		return self.Raw.Text == ``
	default:
		return false
	}
}

func (self Cond) count() (out int) {
	for _, val := range self.Nested {
		if !val.isEmpty() {
			out++
		}
	}
	return
}

func (self Cond) appendWith(text []byte, ctx condCtx) []byte {
	bui := Bui{text}

	switch self.Method {
	case CondAnd, CondOr:
		joiner := `AND`
		if self.Method == CondOr {
			joiner = `OR`
		}
		if self.count() == 1 {
			return appendCondList(bui.Text, self.Nested, ctx, joiner)
		}
		bui.Str(`(`)
		bui.Set(appendCondList(bui.Text, self.Nested, ctx, joiner))
		bui.Raw(`)`)
		return bui.Text

	case CondNot:
		bui.Str(`NOT (`)
		bui.Set(appendCondList(bui.Text, self.Nested, ctx, `AND`))
		bui.Raw(`)`)
		return bui.Text

	case CondRaw:
		bui.Expr(self.Raw)
		return bui.Text

	case CondExists:
		query, ok := self.value(0).(Expr)
		if !ok {
			panic(errBuilder(`condition`, `query`, `EXISTS needs a subquery expression`))
		}
		bui.Str(`EXISTS`)
		bui.Str(`(`)
		bui.Expr(query)
		bui.Raw(`)`)
		return bui.Text
	}

	if self.Column == `` {
		panic(errBuilder(`condition`, `column`, `every comparison needs a column name`))
	}

	bui.Set(appendResolvedColumn(bui.Text, self.Column, ctx.resolve, ctx.qualify))

	switch self.Method {
	case CondEq, CondNe:
		val := self.value(0)
		if isNil(val) {
			if self.Method == CondEq {
				bui.Str(`IS NULL`)
			} else {
				bui.Str(`IS NOT NULL`)
			}
			return bui.Text
		}
		bui.Str(condOperators[self.Method])
		bui.Any(val)

	case CondIsNull:
		bui.Str(`IS NULL`)

	case CondIsNotNull:
		bui.Str(`IS NOT NULL`)

	case CondBetween, CondNotBetween:
		if self.Method == CondNotBetween {
			bui.Str(`NOT`)
		}
		bui.Str(`BETWEEN`)
		bui.Any(self.value(0))
		bui.Str(`AND`)
		bui.Any(self.value(1))

	case CondIn, CondNotIn:
		return self.appendIn(text, bui, ctx)

	default:
		op, ok := condOperators[self.Method]
		if !ok {
			panic(errBuilderInvalid(`condition`, `method`, errf(`unknown condition method %q`, self.Method)))
		}
		bui.Str(op)
		bui.Any(self.value(0))
	}

	return bui.Text
}

func (self Cond) appendIn(prev []byte, bui Bui, ctx condCtx) []byte {
	if len(self.Values) == 0 {
		bui.Text = prev
		if self.Method == CondIn {
			bui.Str(`FALSE`)
		} else {
			bui.Str(`TRUE`)
		}
		return bui.Text
	}

	if self.Method == CondNotIn {
		bui.Str(`NOT IN`)
	} else {
		bui.Str(`IN`)
	}

	if len(self.Values) == 1 {
		sub, _ := self.Values[0].(subquery)
		if sub != nil {
			bui.SubExpr(sub)
			return bui.Text
		}
	}

	bui.Str(`(`)
	for ind, val := range self.Values {
		if ind > 0 {
			bui.Raw(`,`)
		}
		impl, _ := val.(Expr)
		if impl != nil {
			bui.Expr(impl)
		} else {
			bui.Text = appendLiteral(bui.Text, val, false)
		}
	}
	bui.Raw(`)`)
	return bui.Text
}

func (self Cond) value(ind int) any {
	if ind < len(self.Values) {
		return self.Values[ind]
	}
	panic(errBuilder(`condition`, `value`, errf(`%q expects at least %v values`, self.Method, ind+1).Error()))
}
