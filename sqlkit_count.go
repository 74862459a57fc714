package sqlkit

/*
Starts a conditional counting query. Each group renders one aggregate with an
optional FILTER clause. Without groups, the projection is `COUNT(*) AS count`.

	sqlkit.Count(`users`).
		Group(`active`, func(q *sqlkit.Conds) { q.Equal(`status`, `active`) }).
		Group(`total`, nil, sqlkit.CountOpt{Distinct: `email`})
*/
func Count(table string) *CountBuilder { return &CountBuilder{table: table} }

// Stateful conditional counting builder.
type CountBuilder struct {
	table   string
	where   Conds
	groups  []countGroup
	resolve ColumnResolver
}

/*
Selects the aggregate of a count group. At most one field should be set; the
first non-empty field in declaration order wins. The zero value counts rows.
*/
type CountOpt struct {
	Distinct string
	Sum      string
	Avg      string
	Min      string
	Max      string
}

func (self CountOpt) agg() (fun string, col string, distinct bool) {
	switch {
	case self.Distinct != ``:
		return `COUNT`, self.Distinct, true
	case self.Sum != ``:
		return `SUM`, self.Sum, false
	case self.Avg != ``:
		return `AVG`, self.Avg, false
	case self.Min != ``:
		return `MIN`, self.Min, false
	case self.Max != ``:
		return `MAX`, self.Max, false
	default:
		return `COUNT`, ``, false
	}
}

type countGroup struct {
	Name  string
	Conds Conds
	Opt   CountOpt
}

func (*CountBuilder) subquery() {}

func (self *CountBuilder) Where(fun func(*Conds)) *CountBuilder {
	if fun != nil {
		fun(&self.where)
	}
	return self
}

// Appends an aggregate named `name`, filtered by the conditions built by the
// callback. A nil callback or empty conditions render no FILTER.
func (self *CountBuilder) Group(name string, fun func(*Conds), opts ...CountOpt) *CountBuilder {
	group := countGroup{Name: name}
	if fun != nil {
		fun(&group.Conds)
	}
	if len(opts) > 0 {
		group.Opt = opts[0]
	}
	self.groups = append(self.groups, group)
	return self
}

func (self *CountBuilder) Resolver(fun ColumnResolver) *CountBuilder {
	self.resolve = fun
	return self
}

// Implement the `Expr` interface, making this a sub-expression.
func (self *CountBuilder) AppendExpr(text []byte) []byte {
	self.validate()

	bui := Bui{text}
	bui.Str(`SELECT`)

	if len(self.groups) == 0 {
		bui.Str(`COUNT(*) AS count`)
	}
	for ind, group := range self.groups {
		if ind > 0 {
			bui.Raw(`,`)
		}
		self.appendAgg(&bui, group)
		bui.Str(`AS`)
		bui.Ident(group.Name)
	}

	self.appendFrom(&bui)
	return bui.Text
}

// Implement the `fmt.Stringer` interface. Panics on misuse; see `Build`.
func (self *CountBuilder) String() string { return exprString(self) }

// Renders the statement, converting misuse panics to errors.
func (self *CountBuilder) Build() (string, error) { return Render(self) }

func (self *CountBuilder) validate() {
	if self.table == `` {
		panic(errBuilder(`count`, `table`, `pass a table name to Count`))
	}
	for _, group := range self.groups {
		if group.Name == `` {
			panic(errBuilder(`count`, `group name`, `every Group needs a name`))
		}
	}
}

// Renders `SELECT json_build_object('name', agg, ...) FROM ...`, used by
// RETURNING clauses.
func (self *CountBuilder) appendJsonSelect(bui *Bui) {
	self.validate()

	bui.Str(`SELECT json_build_object(`)
	if len(self.groups) == 0 {
		bui.Raw(`'count', COUNT(*)`)
	}
	for ind, group := range self.groups {
		if ind > 0 {
			bui.Raw(`, `)
		}
		bui.Lit(group.Name)
		bui.Raw(`, `)
		self.appendAgg(bui, group)
	}
	bui.Raw(`)`)
	self.appendFrom(bui)
}

func (self *CountBuilder) appendAgg(bui *Bui, group countGroup) {
	fun, col, distinct := group.Opt.agg()

	bui.Str(fun)
	bui.Raw(`(`)
	if col == `` {
		bui.Raw(`*`)
	} else {
		if distinct {
			bui.Raw(`DISTINCT `)
		}
		bui.Set(appendResolvedColumn(bui.Text, col, self.resolve, ``))
	}
	bui.Raw(`)`)

	if !group.Conds.IsEmpty() {
		bui.Str(`FILTER (WHERE`)
		bui.Set(group.Conds.appendWith(bui.Text, condCtx{resolve: self.resolve}))
		bui.Raw(`)`)
	}
}

func (self *CountBuilder) appendFrom(bui *Bui) {
	bui.Str(`FROM`)
	bui.Name(self.table)
	if !self.where.IsEmpty() {
		bui.Str(`WHERE`)
		bui.Set(self.where.appendWith(bui.Text, condCtx{resolve: self.resolve}))
	}
}
