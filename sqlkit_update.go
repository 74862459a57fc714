package sqlkit

/*
Starts an UPDATE statement.

	sqlkit.Update(`users`).
		Set(`settings`, sqlkit.UpdateFunc(func(ops sqlkit.UpdateOps) sqlkit.Mutation {
			return ops.Jsonb.SetField(`theme`, `dark`)
		})).
		Where(func(q *sqlkit.Conds) { q.Equal(`id`, 1) })
*/
func Update(table string) *UpdateBuilder { return &UpdateBuilder{table: table} }

/*
Stateful UPDATE builder. SET values may be literals, lists, `Expr` values such
as helper outputs, `Mutation` values, or `UpdateFunc` callbacks producing a
mutation of the current column value.
*/
type UpdateBuilder struct {
	table     string
	set       Vals
	from      []string
	where     Conds
	returning returningClause
	resolve   ColumnResolver
	types     TypeResolver
	caps      Capabilities
	err       error
}

func (*UpdateBuilder) subquery() {}

// Appends one assignment.
func (self *UpdateBuilder) Set(col string, val any) *UpdateBuilder {
	self.set = append(self.set, Val{col, val})
	return self
}

// Appends assignments from a map, in key order.
func (self *UpdateBuilder) SetMap(src map[string]any) *UpdateBuilder {
	return self.SetVals(toVals(`update`, src))
}

// Appends ordered assignments.
func (self *UpdateBuilder) SetVals(src Vals) *UpdateBuilder {
	self.set = append(self.set, src...)
	return self
}

// Appends assignments from a map, `Vals`, or a struct with `db` tags.
func (self *UpdateBuilder) SetFrom(src any) *UpdateBuilder {
	vals, err := tryVals(`update`, src)
	if err != nil {
		self.fail(err)
		return self
	}
	return self.SetVals(vals)
}

/*
Appends tables to the FROM clause. When present, bare column names in WHERE
are qualified with the target table.
*/
func (self *UpdateBuilder) From(tables ...string) *UpdateBuilder {
	self.from = append(self.from, tables...)
	return self
}

func (self *UpdateBuilder) Where(fun func(*Conds)) *UpdateBuilder {
	if fun != nil {
		fun(&self.where)
	}
	return self
}

func (self *UpdateBuilder) WhereConds(conds Conds) *UpdateBuilder {
	self.where = append(self.where, conds...)
	return self
}

func (self *UpdateBuilder) Returning(cols ...string) *UpdateBuilder {
	self.returning.cols = append(self.returning.cols, cols...)
	return self
}

func (self *UpdateBuilder) ReturningExpr(expr Expr) *UpdateBuilder {
	self.returning.expr = expr
	return self
}

func (self *UpdateBuilder) Resolver(fun ColumnResolver) *UpdateBuilder {
	self.resolve = fun
	return self
}

func (self *UpdateBuilder) TypeResolver(fun TypeResolver) *UpdateBuilder {
	self.types = fun
	return self
}

func (self *UpdateBuilder) Caps(val Capabilities) *UpdateBuilder {
	self.caps = val
	return self
}

func (self *UpdateBuilder) fail(err error) {
	if self.err == nil {
		self.err = err
	}
}

// Implement the `Expr` interface, making this a sub-expression.
func (self *UpdateBuilder) AppendExpr(text []byte) []byte {
	if self.err != nil {
		panic(self.err)
	}
	if self.table == `` {
		panic(errBuilder(`update`, `table`, `pass a table name to Update`))
	}
	if len(self.set) == 0 {
		panic(errBuilder(`update`, `SET clause`, `call Set, SetMap, or SetVals at least once`))
	}

	bui := Bui{text}
	bui.Str(`UPDATE`)
	bui.Name(self.table)
	bui.Str(`SET`)

	for ind, val := range self.set {
		if ind > 0 {
			bui.Raw(`,`)
		}
		col := resolveWith(self.resolve, val.Key)
		bui.Ident(col)
		bui.Str(`=`)
		self.appendValue(&bui, col, val)
	}

	var qualify string
	if len(self.from) > 0 {
		qualify = self.table
		bui.Str(`FROM`)
		for ind, table := range self.from {
			if ind > 0 {
				bui.Raw(`,`)
			}
			bui.Name(table)
		}
	}

	if !self.where.IsEmpty() {
		bui.Str(`WHERE`)
		bui.Set(self.where.appendWith(bui.Text, condCtx{self.resolve, qualify}))
	}

	self.returning.append(&bui, self.resolve, self.caps)
	return bui.Text
}

func (self *UpdateBuilder) appendValue(bui *Bui, col string, val Val) {
	var mut Mutation
	switch src := val.Value.(type) {
	case Mutation:
		mut = src
	case UpdateFunc:
		mut = src(UpdateOps{})
	case func(UpdateOps) Mutation:
		mut = src(UpdateOps{})
	default:
		var typ string
		if self.types != nil {
			typ = self.types(val.Key)
		}
		appendTypedValue(bui, src, typ, self.caps)
		return
	}

	bui.Str(mut.Render(QuoteIdent(col)))
}

// Implement the `fmt.Stringer` interface. Panics on misuse; see `Build`.
func (self *UpdateBuilder) String() string { return exprString(self) }

// Renders the statement, converting misuse panics to errors.
func (self *UpdateBuilder) Build() (string, error) { return Render(self) }

/*
Starts a DELETE statement. Without conditions, deletes every row.
*/
func Delete(table string) *DeleteBuilder { return &DeleteBuilder{table: table} }

// Stateful DELETE builder.
type DeleteBuilder struct {
	table     string
	using     []string
	where     Conds
	returning returningClause
	resolve   ColumnResolver
	caps      Capabilities
}

func (*DeleteBuilder) subquery() {}

// Appends tables to the USING clause. When present, bare column names in
// WHERE are qualified with the target table.
func (self *DeleteBuilder) Using(tables ...string) *DeleteBuilder {
	self.using = append(self.using, tables...)
	return self
}

func (self *DeleteBuilder) Where(fun func(*Conds)) *DeleteBuilder {
	if fun != nil {
		fun(&self.where)
	}
	return self
}

func (self *DeleteBuilder) WhereConds(conds Conds) *DeleteBuilder {
	self.where = append(self.where, conds...)
	return self
}

func (self *DeleteBuilder) Returning(cols ...string) *DeleteBuilder {
	self.returning.cols = append(self.returning.cols, cols...)
	return self
}

func (self *DeleteBuilder) ReturningExpr(expr Expr) *DeleteBuilder {
	self.returning.expr = expr
	return self
}

func (self *DeleteBuilder) Resolver(fun ColumnResolver) *DeleteBuilder {
	self.resolve = fun
	return self
}

func (self *DeleteBuilder) Caps(val Capabilities) *DeleteBuilder {
	self.caps = val
	return self
}

// Implement the `Expr` interface, making this a sub-expression.
func (self *DeleteBuilder) AppendExpr(text []byte) []byte {
	if self.table == `` {
		panic(errBuilder(`delete`, `table`, `pass a table name to Delete`))
	}

	bui := Bui{text}
	bui.Str(`DELETE FROM`)
	bui.Name(self.table)

	var qualify string
	if len(self.using) > 0 {
		qualify = self.table
		bui.Str(`USING`)
		for ind, table := range self.using {
			if ind > 0 {
				bui.Raw(`,`)
			}
			bui.Name(table)
		}
	}

	if !self.where.IsEmpty() {
		bui.Str(`WHERE`)
		bui.Set(self.where.appendWith(bui.Text, condCtx{self.resolve, qualify}))
	}

	self.returning.append(&bui, self.resolve, self.caps)
	return bui.Text
}

// Implement the `fmt.Stringer` interface. Panics on misuse; see `Build`.
func (self *DeleteBuilder) String() string { return exprString(self) }

// Renders the statement, converting misuse panics to errors.
func (self *DeleteBuilder) Build() (string, error) { return Render(self) }
