package sqlkit

import (
	"strconv"
	"strings"
)

/*
Starts a SELECT statement. Without columns, the projection defaults to `*`.

	sqlkit.Select(`users`, `a`, `b`).
		Where(func(q *sqlkit.Conds) { q.Equal(`id`, 5) }).
		OrderBy(`id`, sqlkit.DirDesc).
		Limit(10)
*/
func Select(table string, cols ...string) *SelectBuilder {
	out := &SelectBuilder{table: table}
	if len(cols) > 0 {
		out.Cols(cols...)
	}
	return out
}

/*
Stateful SELECT builder. Methods mutate the builder in place and return it for
chaining. Clauses are always rendered in grammatical order, regardless of the
order of method calls. Rendering never mutates the builder.
*/
type SelectBuilder struct {
	table      string
	alias      string
	cols       []selectCol
	colsSet    bool
	distinct   bool
	distinctOn []string
	where      Conds
	rawJoins   []Raw
	joins      []Join
	includes   []selectCol
	groupBy    []string
	having     Conds
	ords       []Ord
	limit      *int64
	offset     *int64
	lock       *lockClause
	setOps     []setOp
	resolve    ColumnResolver
	err        error
}

type selectCol struct {
	Expr  any
	Alias string
}

type setOp struct {
	Op  string
	SQL string
}

func (*SelectBuilder) subquery() {}

// Replaces the projection with the given columns. An explicit empty list is
// a builder error at render time.
func (self *SelectBuilder) Cols(cols ...string) *SelectBuilder {
	self.colsSet = true
	self.cols = self.cols[:0]
	for _, col := range cols {
		self.cols = append(self.cols, selectCol{Expr: col})
	}
	return self
}

// Appends an aliased column. The expression may be a column name or an `Expr`.
func (self *SelectBuilder) Col(expr any, alias string) *SelectBuilder {
	self.colsSet = true
	self.cols = append(self.cols, selectCol{expr, alias})
	return self
}

// Sets the table alias. Bare column names are qualified with the alias when
// joins are present.
func (self *SelectBuilder) As(alias string) *SelectBuilder {
	self.alias = alias
	return self
}

func (self *SelectBuilder) Distinct() *SelectBuilder {
	self.distinct = true
	return self
}

func (self *SelectBuilder) DistinctOn(cols ...string) *SelectBuilder {
	self.distinctOn = append(self.distinctOn, cols...)
	return self
}

// Appends WHERE conditions built by the callback.
func (self *SelectBuilder) Where(fun func(*Conds)) *SelectBuilder {
	if fun != nil {
		fun(&self.where)
	}
	return self
}

// Appends pre-built WHERE conditions.
func (self *SelectBuilder) WhereConds(conds Conds) *SelectBuilder {
	self.where = append(self.where, conds...)
	return self
}

// Appends a structured join.
func (self *SelectBuilder) Join(val Join) *SelectBuilder {
	self.joins = append(self.joins, val)
	return self
}

func (self *SelectBuilder) InnerJoin(table, alias string, on func(*Conds)) *SelectBuilder {
	return self.Join(makeJoin(JoinInner, table, alias, on))
}

func (self *SelectBuilder) LeftJoin(table, alias string, on func(*Conds)) *SelectBuilder {
	return self.Join(makeJoin(JoinLeft, table, alias, on))
}

func (self *SelectBuilder) RightJoin(table, alias string, on func(*Conds)) *SelectBuilder {
	return self.Join(makeJoin(JoinRight, table, alias, on))
}

func (self *SelectBuilder) FullJoin(table, alias string, on func(*Conds)) *SelectBuilder {
	return self.Join(makeJoin(JoinFull, table, alias, on))
}

func (self *SelectBuilder) CrossJoin(table, alias string) *SelectBuilder {
	return self.Join(Join{Kind: JoinCross, Table: table, Alias: alias})
}

// Appends a raw join clause, such as "JOIN posts p ON p.user_id = users.id".
// Rendered verbatim before structured joins.
func (self *SelectBuilder) RawJoin(sql string, args ...any) *SelectBuilder {
	self.rawJoins = append(self.rawJoins, Raw{sql, args})
	return self
}

/*
Appends `LEFT JOIN LATERAL (query) AS "alias" ON TRUE`. The query is rendered
immediately. When `as` is non-empty, the projection gains
`"alias"."as" AS "as"`.
*/
func (self *SelectBuilder) LeftJoinLateral(alias string, query Expr, as string) *SelectBuilder {
	text, err := Render(query)
	if err != nil {
		self.fail(err)
		return self
	}
	return self.Join(Join{Kind: JoinLeft, Lateral: text, Alias: alias, As: as})
}

// Appends an arbitrary expression to the projection under the given alias.
// Sub-queries are parenthesized.
func (self *SelectBuilder) Include(alias string, expr Expr) *SelectBuilder {
	self.includes = append(self.includes, selectCol{expr, alias})
	return self
}

func (self *SelectBuilder) GroupBy(cols ...string) *SelectBuilder {
	self.groupBy = append(self.groupBy, cols...)
	return self
}

// Appends HAVING conditions built by the callback.
func (self *SelectBuilder) Having(fun func(*Conds)) *SelectBuilder {
	if fun != nil {
		fun(&self.having)
	}
	return self
}

// Appends an ORDER BY item. The column may be a name or an `Expr`.
func (self *SelectBuilder) OrderBy(col any, dir Dir) *SelectBuilder {
	self.ords = append(self.ords, Ord{Expr: col, Dir: dir})
	return self
}

func (self *SelectBuilder) OrderByNulls(col any, dir Dir, nulls Nulls) *SelectBuilder {
	self.ords = append(self.ords, Ord{col, dir, nulls})
	return self
}

/*
Parses and appends an ordering such as "created_at desc nulls last". A
malformed input is reported when rendering.
*/
func (self *SelectBuilder) OrderByStr(src string) *SelectBuilder {
	ord, err := ParseOrd(src)
	if err != nil {
		self.fail(err)
		return self
	}
	self.ords = append(self.ords, ord)
	return self
}

func (self *SelectBuilder) Limit(val int64) *SelectBuilder {
	self.limit = &val
	return self
}

func (self *SelectBuilder) Offset(val int64) *SelectBuilder {
	self.offset = &val
	return self
}

func (self *SelectBuilder) ForUpdate() *SelectBuilder { return self.Lock(LockUpdate, Lock{}) }

func (self *SelectBuilder) ForShare() *SelectBuilder { return self.Lock(LockShare, Lock{}) }

// Sets the row locking clause, replacing any previous one.
func (self *SelectBuilder) Lock(mode LockMode, opt Lock) *SelectBuilder {
	self.lock = &lockClause{mode, opt}
	return self
}

func (self *SelectBuilder) Union(query Expr) *SelectBuilder { return self.setOp(`UNION`, query) }

func (self *SelectBuilder) UnionAll(query Expr) *SelectBuilder {
	return self.setOp(`UNION ALL`, query)
}

func (self *SelectBuilder) Intersect(query Expr) *SelectBuilder {
	return self.setOp(`INTERSECT`, query)
}

func (self *SelectBuilder) Except(query Expr) *SelectBuilder { return self.setOp(`EXCEPT`, query) }

func (self *SelectBuilder) setOp(op string, query Expr) *SelectBuilder {
	text, err := Render(query)
	if err != nil {
		self.fail(err)
		return self
	}
	self.setOps = append(self.setOps, setOp{op, text})
	return self
}

// Sets the resolver of programmatic column keys to SQL column names.
func (self *SelectBuilder) Resolver(fun ColumnResolver) *SelectBuilder {
	self.resolve = fun
	return self
}

func (self *SelectBuilder) fail(err error) {
	if self.err == nil {
		self.err = err
	}
}

// Implement the `Expr` interface, making this a sub-expression.
func (self *SelectBuilder) AppendExpr(text []byte) []byte {
	return self.appendSelect(text, false)
}

// Implement the `fmt.Stringer` interface. Panics on misuse; see `Build`.
func (self *SelectBuilder) String() string { return exprString(self) }

// Renders the statement, converting misuse panics to errors.
func (self *SelectBuilder) Build() (string, error) { return Render(self) }

/*
Renders the same FROM / JOIN / WHERE / GROUP BY / HAVING stanza with the
projection replaced by `COUNT(*) AS count`. Ordering, limits, locking, and set
operations are omitted. Panics on misuse.
*/
func (self *SelectBuilder) CountString() string {
	return bytesToMutableString(self.appendSelect(nil, true))
}

// Same as `CountString` but converts panics to errors.
func (self *SelectBuilder) BuildCount() (_ string, err error) {
	defer rec(&err)
	return self.CountString(), nil
}

func (self *SelectBuilder) hasJoins() bool {
	return len(self.joins) > 0 || len(self.rawJoins) > 0
}

func (self *SelectBuilder) tableRef() string {
	if self.alias != `` {
		return self.alias
	}
	return self.table
}

func (self *SelectBuilder) qualifier() string {
	if self.hasJoins() {
		return self.tableRef()
	}
	return ``
}

func (self *SelectBuilder) appendSelect(text []byte, count bool) []byte {
	if self.err != nil {
		panic(self.err)
	}
	if self.colsSet && len(self.cols) == 0 {
		panic(errBuilder(`select`, `columns`, `omit Cols() to select "*", or pass at least one column`))
	}

	bui := Bui{text}
	qualify := self.qualifier()

	bui.Str(`SELECT`)
	if count {
		bui.Str(`COUNT(*) AS count`)
	} else {
		self.appendDistinct(&bui, qualify)
		self.appendProjection(&bui, qualify)
	}

	self.appendFrom(&bui)

	ctx := condCtx{self.resolve, qualify}
	if !self.where.IsEmpty() {
		bui.Str(`WHERE`)
		bui.Set(self.where.appendWith(bui.Text, ctx))
	}

	if len(self.groupBy) > 0 {
		bui.Str(`GROUP BY`)
		for ind, col := range self.groupBy {
			if ind > 0 {
				bui.Raw(`,`)
			}
			bui.Set(appendResolvedColumn(bui.Text, col, self.resolve, qualify))
		}
	}

	if !self.having.IsEmpty() {
		bui.Str(`HAVING`)
		bui.Set(self.having.appendWith(bui.Text, ctx))
	}

	if count {
		return bui.Text
	}

	appendOrds(&bui, self.ords, self.resolve, qualify)

	if self.limit != nil {
		bui.Str(`LIMIT`)
		bui.Str(strconv.FormatInt(*self.limit, 10))
	}
	if self.offset != nil {
		bui.Str(`OFFSET`)
		bui.Str(strconv.FormatInt(*self.offset, 10))
	}

	if self.lock != nil {
		self.lock.append(&bui)
	}

	for _, val := range self.setOps {
		bui.Str(val.Op)
		bui.Str(val.SQL)
	}
	return bui.Text
}

func (self *SelectBuilder) appendDistinct(bui *Bui, qualify string) {
	if len(self.distinctOn) > 0 {
		bui.Str(`DISTINCT ON (`)
		for ind, col := range self.distinctOn {
			if ind > 0 {
				bui.Raw(`, `)
			}
			bui.Set(appendResolvedColumn(bui.Text, col, self.resolve, qualify))
		}
		bui.Raw(`)`)
		return
	}
	if self.distinct {
		bui.Str(`DISTINCT`)
	}
}

func (self *SelectBuilder) appendProjection(bui *Bui, qualify string) {
	var found bool
	next := func() {
		if found {
			bui.Raw(`,`)
		}
		found = true
	}

	if len(self.cols) == 0 {
		next()
		bui.Set(appendResolvedColumn(bui.Text, `*`, nil, qualify))
	}

	for _, col := range self.cols {
		next()
		self.appendCol(bui, col, qualify)
	}

	for _, val := range self.joins {
		if val.As == `` {
			continue
		}
		next()
		val.appendProjection(bui)
	}

	for _, col := range self.includes {
		next()
		bui.Any(col.Expr)
		bui.Str(`AS`)
		bui.Ident(col.Alias)
	}
}

func (self *SelectBuilder) appendCol(bui *Bui, col selectCol, qualify string) {
	switch expr := col.Expr.(type) {
	case string:
		if col.Alias == `` {
			bui.Set(appendProjectedColumn(bui.Text, expr, self.resolve, qualify))
			return
		}
		if isPreformattedProjection(expr) {
			bui.Str(expr)
		} else {
			bui.Set(appendResolvedColumn(bui.Text, expr, self.resolve, qualify))
		}
	default:
		bui.Any(expr)
	}

	if col.Alias != `` {
		bui.Str(`AS`)
		bui.Ident(col.Alias)
	}
}

/*
Renders one projected column name. Strings containing "(", "." or " AS ", or
starting with "DISTINCT ", are pre-formatted and pass through. A name changed by the resolver is
aliased back to its programmatic key.
*/
func appendProjectedColumn(text []byte, name string, resolve ColumnResolver, qualify string) []byte {
	if name == `*` {
		return appendResolvedColumn(text, name, nil, qualify)
	}
	if isPreformattedProjection(name) {
		return appendMaybeSpaced(text, name)
	}

	sqlName := resolveWith(resolve, name)
	text = appendResolvedColumn(text, sqlName, nil, qualify)
	if sqlName != name {
		text = appendMaybeSpaced(text, `AS`)
		text = maybeAppendSpace(text)
		text = appendIdent(text, name)
	}
	return text
}

func isPreformattedProjection(name string) bool {
	return strings.ContainsAny(name, `(."`) ||
		strings.HasPrefix(name, `DISTINCT `) ||
		strings.Contains(name, ` AS `)
}

func (self *SelectBuilder) appendFrom(bui *Bui) {
	if self.table != `` {
		bui.Str(`FROM`)
		bui.Name(self.table)
		if self.alias != `` {
			bui.Str(`AS`)
			bui.Ident(self.alias)
		}
	}

	for _, val := range self.rawJoins {
		bui.Expr(val)
	}
	for _, val := range self.joins {
		val.append(bui, self.resolve)
	}
}

// Join type keywords.
type JoinKind string

const (
	JoinInner JoinKind = `INNER JOIN`
	JoinLeft  JoinKind = `LEFT JOIN`
	JoinRight JoinKind = `RIGHT JOIN`
	JoinFull  JoinKind = `FULL JOIN`
	JoinCross JoinKind = `CROSS JOIN`
)

/*
Structured join. Either `Table` or `Lateral` must be set. `Lateral` holds the
rendered SQL of a sub-query joined with LATERAL.

When `As` is set, the joined row is also projected under that alias: as
`json_build_object(...)` over `Cols`, as a reference to the lateral column of
the same name, or as `row_to_json(...)` of the whole row.
*/
type Join struct {
	Kind    JoinKind
	Table   string
	Alias   string
	Lateral string
	On      Conds
	Using   []string
	As      string
	Cols    []JoinCol
}

// One property of a joined-row JSON object.
type JoinCol struct {
	Prop   string
	Column string
}

func makeJoin(kind JoinKind, table, alias string, on func(*Conds)) Join {
	out := Join{Kind: kind, Table: table, Alias: alias}
	if on != nil {
		on(&out.On)
	}
	return out
}

func (self Join) ref() string {
	if self.Alias != `` {
		return self.Alias
	}
	return self.Table
}

func (self Join) append(bui *Bui, resolve ColumnResolver) {
	kind := self.Kind
	if kind == `` {
		kind = JoinInner
	}
	bui.Str(string(kind))

	switch {
	case self.Lateral != ``:
		if self.Alias == `` {
			panic(errBuilder(`join`, `alias`, `lateral joins need an alias`))
		}
		bui.Str(`LATERAL (`)
		bui.Raw(self.Lateral)
		bui.Raw(`)`)
	case self.Table != ``:
		bui.Name(self.Table)
	default:
		panic(errBuilder(`join`, `table`, `set Join.Table or Join.Lateral`))
	}

	if self.Alias != `` {
		bui.Str(`AS`)
		bui.Ident(self.Alias)
	}

	if kind == JoinCross {
		return
	}

	switch {
	case len(self.Using) > 0:
		bui.Str(`USING`)
		bui.IdentList(self.Using)
	case !self.On.IsEmpty():
		bui.Str(`ON`)
		bui.Set(self.On.appendWith(bui.Text, condCtx{resolve: resolve}))
	case self.Lateral != ``:
		bui.Str(`ON TRUE`)
	default:
		panic(errBuilder(`join`, `condition`, `use Join.On or Join.Using, or CROSS JOIN`))
	}
}

func (self Join) appendProjection(bui *Bui) {
	ref := self.ref()

	switch {
	case len(self.Cols) > 0:
		bui.Str(`json_build_object(`)
		for ind, col := range self.Cols {
			if ind > 0 {
				bui.Raw(`, `)
			}
			bui.Lit(col.Prop)
			bui.Raw(`, `)
			bui.Name(ref)
			bui.Raw(`.`)
			bui.Text = appendIdent(bui.Text, col.Column)
		}
		bui.Raw(`)`)

	case self.Lateral != ``:
		bui.Name(ref)
		bui.Raw(`.`)
		bui.Text = appendIdent(bui.Text, self.As)

	default:
		bui.Str(`row_to_json(`)
		bui.Name(ref)
		bui.Raw(`.*)`)
	}

	bui.Str(`AS`)
	bui.Ident(self.As)
}

// Row locking strength.
type LockMode string

const (
	LockUpdate      LockMode = `FOR UPDATE`
	LockNoKeyUpdate LockMode = `FOR NO KEY UPDATE`
	LockShare       LockMode = `FOR SHARE`
	LockKeyShare    LockMode = `FOR KEY SHARE`
)

// Behavior when locked rows are encountered.
type LockWait string

const (
	LockWaitDefault LockWait = ``
	LockNoWait      LockWait = `NOWAIT`
	LockSkipLocked  LockWait = `SKIP LOCKED`
)

// Options of a row locking clause.
type Lock struct {
	Of   []string
	Wait LockWait
}

type lockClause struct {
	Mode LockMode
	Lock
}

func (self lockClause) append(bui *Bui) {
	bui.Str(string(self.Mode))
	if len(self.Of) > 0 {
		bui.Str(`OF`)
		for ind, name := range self.Of {
			if ind > 0 {
				bui.Raw(`, `)
			}
			bui.Name(name)
		}
	}
	if self.Wait != LockWaitDefault {
		bui.Str(string(self.Wait))
	}
}
