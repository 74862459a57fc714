package sqlkit

/*
Starts an INSERT statement.

	sqlkit.Insert(`users`).
		Row(map[string]any{`name`: `o'brien`, `tags`: []string{`a`, `b`}}).
		OnConflict(`email`).
		DoUpdate(sqlkit.Vals{{`count`, sqlkit.IncrementBy(1)}}).
		Returning(`*`)
*/
func Insert(table string) *InsertBuilder { return &InsertBuilder{table: table} }

/*
Stateful INSERT builder. Rows may be maps with string keys, `Vals`, or structs
with `db` tags. The column list is the union of keys across all rows, in order
of first appearance; a row missing a key contributes `DEFAULT` for it.
*/
type InsertBuilder struct {
	table         string
	rows          []Vals
	cleared       bool
	defaultValues bool
	fromCols      []string
	fromQuery     Expr
	conflict      *ConflictBuilder
	returning     returningClause
	resolve       ColumnResolver
	types         TypeResolver
	caps          Capabilities
	err           error
}

func (*InsertBuilder) subquery() {}

// Appends one row.
func (self *InsertBuilder) Row(src any) *InsertBuilder { return self.Rows(src) }

// Appends rows. A single slice argument is expanded into its elements.
func (self *InsertBuilder) Rows(src ...any) *InsertBuilder {
	for _, val := range flattenRows(src) {
		row, err := tryVals(`insert`, val)
		if err != nil {
			self.fail(err)
			continue
		}
		self.rows = append(self.rows, row)
	}
	return self
}

/*
Removes all rows and allows rendering without rows, in which case the statement
uses `DEFAULT VALUES`.
*/
func (self *InsertBuilder) Clear() *InsertBuilder {
	self.rows = nil
	self.cleared = true
	return self
}

// Inserts a single row of column defaults.
func (self *InsertBuilder) DefaultValues() *InsertBuilder {
	self.defaultValues = true
	return self
}

// Inserts the rows produced by a query: `INSERT INTO t (cols) SELECT ...`.
func (self *InsertBuilder) FromSelect(cols []string, query Expr) *InsertBuilder {
	self.fromCols = copyStrings(cols)
	self.fromQuery = query
	return self
}

// Starts an `ON CONFLICT (cols)` clause. Finish it with `DoNothing`,
// `DoUpdate`, `DoUpdateExcluded`, or `Done`.
func (self *InsertBuilder) OnConflict(cols ...string) *ConflictBuilder {
	self.conflict = &ConflictBuilder{insert: self, target: copyStrings(cols)}
	return self.conflict
}

// Starts an `ON CONFLICT ON CONSTRAINT name` clause.
func (self *InsertBuilder) OnConstraint(name string) *ConflictBuilder {
	self.conflict = &ConflictBuilder{insert: self, constraint: name}
	return self.conflict
}

// Configures the ON CONFLICT clause via callback, keeping the chain on the
// insert builder.
func (self *InsertBuilder) OnConflictWith(cols []string, fun func(*ConflictBuilder)) *InsertBuilder {
	conflict := self.OnConflict(cols...)
	if fun != nil {
		fun(conflict)
	}
	return self
}

// Appends RETURNING columns. "*" is passed through.
func (self *InsertBuilder) Returning(cols ...string) *InsertBuilder {
	self.returning.cols = append(self.returning.cols, cols...)
	return self
}

// Sets RETURNING to an arbitrary expression. Sub-queries are parenthesized.
func (self *InsertBuilder) ReturningExpr(expr Expr) *InsertBuilder {
	self.returning.expr = expr
	return self
}

/*
Returns the conditional counts of another table from the same statement,
rendered as `RETURNING (SELECT json_build_object('name', agg, ...) FROM ...)`.
*/
func (self *InsertBuilder) ReturningCount(count *CountBuilder) *InsertBuilder {
	self.returning.count = count
	return self
}

func (self *InsertBuilder) Resolver(fun ColumnResolver) *InsertBuilder {
	self.resolve = fun
	return self
}

// Sets the resolver of column types, used to render arrays and JSON.
func (self *InsertBuilder) TypeResolver(fun TypeResolver) *InsertBuilder {
	self.types = fun
	return self
}

func (self *InsertBuilder) Caps(val Capabilities) *InsertBuilder {
	self.caps = val
	return self
}

func (self *InsertBuilder) fail(err error) {
	if self.err == nil {
		self.err = err
	}
}

// Implement the `Expr` interface, making this a sub-expression.
func (self *InsertBuilder) AppendExpr(text []byte) []byte {
	if self.err != nil {
		panic(self.err)
	}
	if self.table == `` {
		panic(errBuilder(`insert`, `table`, `pass a table name to Insert`))
	}

	bui := Bui{text}
	bui.Str(`INSERT INTO`)
	bui.Name(self.table)

	switch {
	case self.fromQuery != nil:
		if len(self.fromCols) > 0 {
			bui.Str(`(`)
			self.appendColNames(&bui, self.fromCols)
			bui.Raw(`)`)
		}
		bui.Expr(self.fromQuery)

	case len(self.rows) > 0:
		self.appendRows(&bui)

	case self.defaultValues || self.cleared:
		bui.Str(`DEFAULT VALUES`)

	default:
		panic(errBuilder(`insert`, `rows`, `add rows via Row or Rows, use FromSelect or DefaultValues, or call Clear`))
	}

	if self.conflict != nil {
		self.conflict.append(&bui)
	}

	self.returning.append(&bui, self.resolve, self.caps)
	return bui.Text
}

// Implement the `fmt.Stringer` interface. Panics on misuse; see `Build`.
func (self *InsertBuilder) String() string { return exprString(self) }

// Renders the statement, converting misuse panics to errors.
func (self *InsertBuilder) Build() (string, error) { return Render(self) }

// Union of row keys in order of first appearance.
func (self *InsertBuilder) keys() []string {
	var out []string
	seen := map[string]bool{}
	for _, row := range self.rows {
		for _, val := range row {
			if !seen[val.Key] {
				seen[val.Key] = true
				out = append(out, val.Key)
			}
		}
	}
	return out
}

func (self *InsertBuilder) appendColNames(bui *Bui, keys []string) {
	for ind, key := range keys {
		if ind > 0 {
			bui.Raw(`, `)
		}
		bui.Ident(resolveWith(self.resolve, key))
	}
}

func (self *InsertBuilder) appendRows(bui *Bui) {
	keys := self.keys()
	if len(keys) == 0 {
		bui.Str(`DEFAULT VALUES`)
		return
	}

	bui.Str(`(`)
	self.appendColNames(bui, keys)
	bui.Raw(`)`)

	bui.Str(`VALUES`)
	for rowInd, row := range self.rows {
		if rowInd > 0 {
			bui.Raw(`,`)
		}
		bui.Str(`(`)
		for ind, key := range keys {
			if ind > 0 {
				bui.Raw(`, `)
			}
			val, ok := row.Get(key)
			if !ok {
				bui.Str(`DEFAULT`)
				continue
			}
			appendTypedValue(bui, val, self.typeOf(key), self.caps)
		}
		bui.Raw(`)`)
	}
}

func (self *InsertBuilder) typeOf(key string) string {
	if self.types == nil {
		return ``
	}
	return self.types(key)
}

func flattenRows(src []any) []any {
	if len(src) != 1 {
		return src
	}
	switch src[0].(type) {
	case Vals, *Vals:
		return src
	}
	return flattenValues(src)
}

// RETURNING clause shared by INSERT, UPDATE, and DELETE.
type returningClause struct {
	cols  []string
	expr  Expr
	count *CountBuilder
}

func (self returningClause) isEmpty() bool {
	return len(self.cols) == 0 && self.expr == nil && self.count == nil
}

func (self returningClause) append(bui *Bui, resolve ColumnResolver, caps Capabilities) {
	if self.isEmpty() || caps.DisableReturning {
		return
	}

	bui.Str(`RETURNING`)

	switch {
	case self.count != nil:
		bui.Str(`(`)
		self.count.appendJsonSelect(bui)
		bui.Raw(`)`)

	case self.expr != nil:
		bui.Any(self.expr)

	default:
		for ind, col := range self.cols {
			if ind > 0 {
				bui.Raw(`,`)
			}
			bui.Set(appendProjectedColumn(bui.Text, col, resolve, ``))
		}
	}
}
