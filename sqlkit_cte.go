package sqlkit

/*
Starts a WITH clause. The query may be any `Expr`, usually another builder, or
a string of trusted SQL. Compose the main query via `Query` or `Render`.

	sqlkit.With(`recent`, sqlkit.Select(`users`).Where(...)).
		Render(`SELECT * FROM "recent"`)
*/
func With(name string, query any, opts ...CTEOpt) *CTEBuilder {
	return new(CTEBuilder).With(name, query, opts...)
}

// Same as `With` but renders `WITH RECURSIVE`.
func WithRecursive(name string, query any, opts ...CTEOpt) *CTEBuilder {
	out := With(name, query, opts...)
	out.recursive = true
	return out
}

// Options of one common table expression.
type CTEOpt struct {
	Columns         []string
	Materialized    bool
	NotMaterialized bool
}

// Stateful WITH-clause builder.
type CTEBuilder struct {
	recursive bool
	entries   []cteEntry
	main      Expr
}

type cteEntry struct {
	Name  string
	Query Expr
	Opt   CTEOpt
}

func (*CTEBuilder) subquery() {}

// Appends another common table expression.
func (self *CTEBuilder) With(name string, query any, opts ...CTEOpt) *CTEBuilder {
	entry := cteEntry{Name: name, Query: toExpr(query)}
	if len(opts) > 0 {
		entry.Opt = opts[0]
	}
	self.entries = append(self.entries, entry)
	return self
}

// Synonym of `With` for chains that read better with a conjunction.
func (self *CTEBuilder) And(name string, query any, opts ...CTEOpt) *CTEBuilder {
	return self.With(name, query, opts...)
}

func (self *CTEBuilder) Recursive() *CTEBuilder {
	self.recursive = true
	return self
}

// Sets the main query following the WITH clause.
func (self *CTEBuilder) Query(main any) *CTEBuilder {
	self.main = toExpr(main)
	return self
}

// Sets the main query and renders the whole statement.
func (self *CTEBuilder) Render(main any) (string, error) {
	return self.Query(main).Build()
}

// Implement the `Expr` interface, making this a sub-expression.
func (self *CTEBuilder) AppendExpr(text []byte) []byte {
	if len(self.entries) == 0 {
		panic(errBuilder(`cte`, `common table expressions`, `start with With(name, query)`))
	}
	if self.main == nil {
		panic(errBuilder(`cte`, `main query`, `call Query or Render with the statement using the CTEs`))
	}

	bui := Bui{text}
	bui.Str(`WITH`)
	if self.recursive {
		bui.Str(`RECURSIVE`)
	}

	for ind, entry := range self.entries {
		if ind > 0 {
			bui.Raw(`,`)
		}
		if entry.Query == nil {
			panic(errBuilder(`cte`, `query of `+entry.Name, `every CTE needs a query`))
		}

		bui.Ident(entry.Name)
		if len(entry.Opt.Columns) > 0 {
			bui.IdentList(entry.Opt.Columns)
		}
		bui.Str(`AS`)
		switch {
		case entry.Opt.Materialized:
			bui.Str(`MATERIALIZED`)
		case entry.Opt.NotMaterialized:
			bui.Str(`NOT MATERIALIZED`)
		}
		bui.Str(`(`)
		bui.Set(entry.Query.AppendExpr(bui.Text))
		bui.Raw(`)`)
	}

	bui.Expr(self.main)
	return bui.Text
}

// Implement the `fmt.Stringer` interface. Panics on misuse; see `Build`.
func (self *CTEBuilder) String() string { return exprString(self) }

// Renders the statement, converting misuse panics to errors.
func (self *CTEBuilder) Build() (string, error) { return Render(self) }

// Strings are treated as trusted SQL.
func toExpr(val any) Expr {
	switch val := val.(type) {
	case nil:
		return nil
	case Expr:
		return val
	case string:
		return SqlExpr(val)
	default:
		panic(errBuilderInvalid(`expression`, `query`, errf(`expected Expr or string, got %T`, val)))
	}
}
