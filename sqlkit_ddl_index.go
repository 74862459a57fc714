package sqlkit

import (
	"strconv"
	"strings"
)

// Index access method. `IndexBtree` is the default and is never rendered.
type IndexMethod string

const (
	IndexBtree  IndexMethod = `btree`
	IndexHash   IndexMethod = `hash`
	IndexGin    IndexMethod = `gin`
	IndexGist   IndexMethod = `gist`
	IndexSpgist IndexMethod = `spgist`
	IndexBrin   IndexMethod = `brin`
)

// One element of an index key: a column or a trusted SQL expression.
type IndexColumn struct {
	Name    string
	Expr    string
	Collate string
	Opclass string
	Dir     Dir
	Nulls   Nulls
}

/*
Starts a CREATE INDEX statement.

	sqlkit.CreateIndex(`users_email_idx`, `users`).Columns(`email`).Unique()
*/
func CreateIndex(name, table string) *IndexBuilder {
	return &IndexBuilder{name: name, table: table}
}

type IndexBuilder struct {
	name         string
	table        string
	dialect      Dialect
	cols         []IndexColumn
	method       IndexMethod
	opclass      string
	include      []string
	with         Vals
	tablespace   string
	where        Conds
	hashBuckets  int
	unique       bool
	concurrently bool
	ifNotExists  bool
	only         bool
}

func (self *IndexBuilder) Dialect(val Dialect) *IndexBuilder {
	self.dialect = val
	return self
}

func (self *IndexBuilder) Columns(names ...string) *IndexBuilder {
	for _, name := range names {
		self.cols = append(self.cols, IndexColumn{Name: name})
	}
	return self
}

func (self *IndexBuilder) Column(val IndexColumn) *IndexBuilder {
	self.cols = append(self.cols, val)
	return self
}

// Appends a trusted SQL expression as a key element, such as "lower(email)".
func (self *IndexBuilder) Expr(sql string) *IndexBuilder {
	self.cols = append(self.cols, IndexColumn{Expr: sql})
	return self
}

func (self *IndexBuilder) Using(val IndexMethod) *IndexBuilder {
	self.method = val
	return self
}

// Operator class applied to every key element that doesn't declare its own.
func (self *IndexBuilder) Opclass(val string) *IndexBuilder {
	self.opclass = val
	return self
}

// Covering columns. Rendered as STORING on CockroachDB.
func (self *IndexBuilder) Include(cols ...string) *IndexBuilder {
	self.include = append(self.include, cols...)
	return self
}

func (self *IndexBuilder) With(key string, val any) *IndexBuilder {
	self.with.Add(key, val)
	return self
}

func (self *IndexBuilder) Tablespace(val string) *IndexBuilder {
	self.tablespace = val
	return self
}

// Partial index predicate.
func (self *IndexBuilder) Where(fun func(*Conds)) *IndexBuilder {
	if fun != nil {
		fun(&self.where)
	}
	return self
}

// CockroachDB hash-sharded index. Zero buckets use the server default.
func (self *IndexBuilder) UsingHash(buckets int) *IndexBuilder {
	self.hashBuckets = buckets
	if buckets == 0 {
		self.hashBuckets = -1
	}
	return self
}

func (self *IndexBuilder) Unique() *IndexBuilder {
	self.unique = true
	return self
}

func (self *IndexBuilder) Concurrently() *IndexBuilder {
	self.concurrently = true
	return self
}

func (self *IndexBuilder) IfNotExists() *IndexBuilder {
	self.ifNotExists = true
	return self
}

// Skips descendant partitions: `ON ONLY "table"`.
func (self *IndexBuilder) Only() *IndexBuilder {
	self.only = true
	return self
}

func (self *IndexBuilder) validate() {
	if self.table == `` {
		panic(errBuilder(`create index`, `table`, `pass a table name to CreateIndex`))
	}
	if len(self.cols) == 0 {
		panic(errBuilder(`create index`, `columns`, `call Columns, Column, or Expr`))
	}

	switch self.dialect {
	case SQLite:
		if self.name == `` {
			panic(errBuilder(`create index`, `name`, `SQLite requires index names`))
		}
		if self.method != `` && self.method != IndexBtree {
			panic(errUnsupported(`create index`, `USING `+string(self.method), self.dialect))
		}
		switch {
		case self.concurrently:
			panic(errUnsupported(`create index`, `CONCURRENTLY`, self.dialect))
		case len(self.include) > 0:
			panic(errUnsupported(`create index`, `INCLUDE`, self.dialect))
		case len(self.with) > 0:
			panic(errUnsupported(`create index`, `WITH storage parameters`, self.dialect))
		case self.tablespace != ``:
			panic(errUnsupported(`create index`, `TABLESPACE`, self.dialect))
		}
	case CockroachDB:
	default:
		if self.hashBuckets != 0 {
			panic(errUnsupported(`create index`, `USING HASH`, self.dialect))
		}
	}
}

// Implement the `Expr` interface, making this a sub-expression.
func (self *IndexBuilder) AppendExpr(text []byte) []byte {
	self.validate()

	bui := Bui{text}
	bui.Str(`CREATE`)
	if self.unique {
		bui.Str(`UNIQUE`)
	}
	bui.Str(`INDEX`)
	if self.concurrently {
		bui.Str(`CONCURRENTLY`)
	}
	if self.ifNotExists {
		bui.Str(`IF NOT EXISTS`)
	}
	if self.name != `` {
		bui.Ident(self.name)
	}
	bui.Str(`ON`)
	if self.only {
		bui.Str(`ONLY`)
	}
	bui.Name(self.table)

	if self.method != `` && self.method != IndexBtree && self.dialect != SQLite {
		bui.Str(`USING`)
		bui.Str(string(self.method))
	}

	bui.Str(`(`)
	for ind, col := range self.cols {
		if ind > 0 {
			bui.Raw(`,`)
		}
		self.appendColumn(&bui, col)
	}
	bui.Raw(`)`)

	if self.hashBuckets != 0 {
		bui.Str(`USING HASH`)
	}

	if len(self.include) > 0 {
		if self.dialect == CockroachDB {
			bui.Str(`STORING`)
		} else {
			bui.Str(`INCLUDE`)
		}
		bui.IdentList(self.include)
	}

	params := self.with
	if self.hashBuckets > 0 {
		params = append(Vals{{`bucket_count`, self.hashBuckets}}, params...)
	}
	appendStorageParams(&bui, params)

	if self.tablespace != `` {
		bui.Str(`TABLESPACE`)
		bui.Ident(self.tablespace)
	}
	if !self.where.IsEmpty() {
		bui.Str(`WHERE`)
		bui.Set(self.where.appendWith(bui.Text, condCtx{}))
	}
	return bui.Text
}

func (self *IndexBuilder) appendColumn(bui *Bui, col IndexColumn) {
	switch {
	case col.Expr != ``:
		bui.Str(`(`)
		bui.Raw(col.Expr)
		bui.Raw(`)`)
	case col.Name != ``:
		bui.Ident(col.Name)
	default:
		panic(errBuilder(`create index`, `column name or expression`, `set IndexColumn.Name or IndexColumn.Expr`))
	}

	if col.Collate != `` {
		bui.Str(`COLLATE`)
		bui.Ident(col.Collate)
	}

	opclass := col.Opclass
	if opclass == `` {
		opclass = self.opclass
	}
	if opclass != `` {
		if self.dialect == SQLite {
			panic(errUnsupported(`create index`, `operator classes`, self.dialect))
		}
		bui.Str(opclass)
	}

	if col.Dir != DirNone {
		bui.Str(col.Dir.String())
	}
	if col.Nulls != NullsNone {
		bui.Str(col.Nulls.String())
	}
}

// Implement the `fmt.Stringer` interface. Panics on misuse; see `Build`.
func (self *IndexBuilder) String() string { return exprString(self) }

// Renders the statement, converting misuse panics to errors.
func (self *IndexBuilder) Build() (string, error) { return Render(self) }

// Starts a DROP INDEX statement.
func DropIndex(names ...string) *DropBuilder { return newDrop(`INDEX`, names) }

/*
Partition bound shared by `CreatePartition` and `AttachPartition`. Bound values
render as literals; use `MinValue` and `MaxValue` for open range ends.
*/
type PartitionBound struct {
	From      []any
	To        []any
	In        []any
	Modulus   int
	Remainder int
	Default   bool
}

var (
	MinValue = SqlExpr(`MINVALUE`)
	MaxValue = SqlExpr(`MAXVALUE`)
)

func (self PartitionBound) append(bui *Bui, builder string) {
	switch {
	case self.Default:
		bui.Str(`DEFAULT`)

	case len(self.From) > 0 || len(self.To) > 0:
		if len(self.From) == 0 || len(self.To) == 0 {
			panic(errBuilder(builder, `range bounds`, `range partitions need both From and To`))
		}
		bui.Str(`FOR VALUES FROM`)
		appendBoundValues(bui, self.From)
		bui.Str(`TO`)
		appendBoundValues(bui, self.To)

	case len(self.In) > 0:
		bui.Str(`FOR VALUES IN`)
		appendBoundValues(bui, self.In)

	case self.Modulus > 0:
		if self.Remainder < 0 || self.Remainder >= self.Modulus {
			panic(errBuilderInvalid(builder, `remainder`, errf(`remainder %v must be in [0, %v)`, self.Remainder, self.Modulus)))
		}
		bui.Str(`FOR VALUES WITH (MODULUS`)
		bui.Raw(` ` + strconv.Itoa(self.Modulus) + `, REMAINDER ` + strconv.Itoa(self.Remainder) + `)`)

	default:
		panic(errBuilder(builder, `partition bound`, `use From/To, In, Modulus/Remainder, or Default`))
	}
}

func appendBoundValues(bui *Bui, vals []any) {
	bui.Str(`(`)
	for ind, val := range vals {
		if ind > 0 {
			bui.Raw(`, `)
		}
		bui.Any(val)
	}
	bui.Raw(`)`)
}

/*
Starts a CREATE TABLE ... PARTITION OF statement.

	sqlkit.CreatePartition(`events_2024`, `events`).
		Bound(sqlkit.PartitionBound{From: []any{`2024-01-01`}, To: []any{`2025-01-01`}})
*/
func CreatePartition(name, parent string) *PartitionBuilder {
	return &PartitionBuilder{name: name, parent: parent}
}

type PartitionBuilder struct {
	name        string
	parent      string
	bound       PartitionBound
	sub         *PartitionBy
	ifNotExists bool
}

func (self *PartitionBuilder) Bound(val PartitionBound) *PartitionBuilder {
	self.bound = val
	return self
}

func (self *PartitionBuilder) From(vals ...any) *PartitionBuilder {
	self.bound.From = vals
	return self
}

func (self *PartitionBuilder) To(vals ...any) *PartitionBuilder {
	self.bound.To = vals
	return self
}

func (self *PartitionBuilder) In(vals ...any) *PartitionBuilder {
	self.bound.In = vals
	return self
}

func (self *PartitionBuilder) Modulus(modulus, remainder int) *PartitionBuilder {
	self.bound.Modulus, self.bound.Remainder = modulus, remainder
	return self
}

func (self *PartitionBuilder) Default() *PartitionBuilder {
	self.bound.Default = true
	return self
}

// Makes the partition itself partitioned.
func (self *PartitionBuilder) PartitionBy(val PartitionBy) *PartitionBuilder {
	self.sub = &val
	return self
}

func (self *PartitionBuilder) IfNotExists() *PartitionBuilder {
	self.ifNotExists = true
	return self
}

// Implement the `Expr` interface, making this a sub-expression.
func (self *PartitionBuilder) AppendExpr(text []byte) []byte {
	if self.name == `` {
		panic(errBuilder(`create partition`, `name`, `pass a partition name to CreatePartition`))
	}
	if self.parent == `` {
		panic(errBuilder(`create partition`, `parent table`, `pass the parent table to CreatePartition`))
	}

	bui := Bui{text}
	bui.Str(`CREATE TABLE`)
	if self.ifNotExists {
		bui.Str(`IF NOT EXISTS`)
	}
	bui.Name(self.name)
	bui.Str(`PARTITION OF`)
	bui.Name(self.parent)
	self.bound.append(&bui, `create partition`)
	if self.sub != nil {
		self.sub.append(&bui)
	}
	return bui.Text
}

// Implement the `fmt.Stringer` interface. Panics on misuse; see `Build`.
func (self *PartitionBuilder) String() string { return exprString(self) }

// Renders the statement, converting misuse panics to errors.
func (self *PartitionBuilder) Build() (string, error) { return Render(self) }

// Renders `ALTER TABLE parent ATTACH PARTITION name <bound>`.
func AttachPartition(parent, name string, bound PartitionBound) AttachPartitionStmt {
	return AttachPartitionStmt{parent, name, bound}
}

type AttachPartitionStmt struct {
	Parent string
	Name   string
	Bound  PartitionBound
}

// Implement the `Expr` interface, making this a sub-expression.
func (self AttachPartitionStmt) AppendExpr(text []byte) []byte {
	if self.Parent == `` || self.Name == `` {
		panic(errBuilder(`attach partition`, `table names`, `pass both the parent and the partition`))
	}
	bui := Bui{text}
	bui.Str(`ALTER TABLE`)
	bui.Name(self.Parent)
	bui.Str(`ATTACH PARTITION`)
	bui.Name(self.Name)
	self.Bound.append(&bui, `attach partition`)
	return bui.Text
}

// Implement the `fmt.Stringer` interface. Panics on misuse.
func (self AttachPartitionStmt) String() string { return exprString(self) }

// Renders `ALTER TABLE parent DETACH PARTITION name`.
func DetachPartition(parent, name string) *DetachPartitionStmt {
	return &DetachPartitionStmt{Parent: parent, Name: name}
}

type DetachPartitionStmt struct {
	Parent       string
	Name         string
	Concurrent   bool
	FinalizeOnly bool
}

// Detaches without blocking concurrent queries.
func (self *DetachPartitionStmt) Concurrently() *DetachPartitionStmt {
	self.Concurrent = true
	return self
}

// Completes a previously interrupted concurrent detach.
func (self *DetachPartitionStmt) Finalize() *DetachPartitionStmt {
	self.FinalizeOnly = true
	return self
}

// Implement the `Expr` interface, making this a sub-expression.
func (self *DetachPartitionStmt) AppendExpr(text []byte) []byte {
	if self.Parent == `` || self.Name == `` {
		panic(errBuilder(`detach partition`, `table names`, `pass both the parent and the partition`))
	}
	if self.Concurrent && self.FinalizeOnly {
		panic(errBuilderInvalid(`detach partition`, `mode`, errf(`CONCURRENTLY and FINALIZE are mutually exclusive`)))
	}
	bui := Bui{text}
	bui.Str(`ALTER TABLE`)
	bui.Name(self.Parent)
	bui.Str(`DETACH PARTITION`)
	bui.Name(self.Name)
	if self.Concurrent {
		bui.Str(`CONCURRENTLY`)
	}
	if self.FinalizeOnly {
		bui.Str(`FINALIZE`)
	}
	return bui.Text
}

// Implement the `fmt.Stringer` interface. Panics on misuse.
func (self *DetachPartitionStmt) String() string { return exprString(self) }

// Trigger timing.
type TriggerTiming string

const (
	TriggerBefore    TriggerTiming = `BEFORE`
	TriggerAfter     TriggerTiming = `AFTER`
	TriggerInsteadOf TriggerTiming = `INSTEAD OF`
)

// Trigger event.
type TriggerEvent string

const (
	TriggerInsert   TriggerEvent = `INSERT`
	TriggerUpdate   TriggerEvent = `UPDATE`
	TriggerDelete   TriggerEvent = `DELETE`
	TriggerTruncate TriggerEvent = `TRUNCATE`
)

/*
Starts a CREATE TRIGGER statement. On PostgreSQL-family dialects the trigger
executes a function; on SQLite it runs the statements given to `Body`.

	sqlkit.CreateTrigger(`users_touch`).
		On(`users`).
		Before(sqlkit.TriggerUpdate).
		ForEachRow().
		Execute(`touch_updated_at`)
*/
func CreateTrigger(name string) *TriggerBuilder { return &TriggerBuilder{name: name} }

type TriggerBuilder struct {
	name        string
	table       string
	dialect     Dialect
	timing      TriggerTiming
	events      []TriggerEvent
	updateOf    []string
	forEachRow  bool
	when        string
	function    string
	args        []any
	body        string
	orReplace   bool
	ifNotExists bool
}

func (self *TriggerBuilder) Dialect(val Dialect) *TriggerBuilder {
	self.dialect = val
	return self
}

func (self *TriggerBuilder) On(table string) *TriggerBuilder {
	self.table = table
	return self
}

func (self *TriggerBuilder) Before(events ...TriggerEvent) *TriggerBuilder {
	return self.At(TriggerBefore, events...)
}

func (self *TriggerBuilder) After(events ...TriggerEvent) *TriggerBuilder {
	return self.At(TriggerAfter, events...)
}

func (self *TriggerBuilder) InsteadOf(events ...TriggerEvent) *TriggerBuilder {
	return self.At(TriggerInsteadOf, events...)
}

func (self *TriggerBuilder) At(timing TriggerTiming, events ...TriggerEvent) *TriggerBuilder {
	self.timing = timing
	self.events = append(self.events, events...)
	return self
}

// Restricts the UPDATE event to the given columns.
func (self *TriggerBuilder) UpdateOf(cols ...string) *TriggerBuilder {
	self.updateOf = append(self.updateOf, cols...)
	return self
}

func (self *TriggerBuilder) ForEachRow() *TriggerBuilder {
	self.forEachRow = true
	return self
}

func (self *TriggerBuilder) ForEachStatement() *TriggerBuilder {
	self.forEachRow = false
	return self
}

// Trusted SQL condition, such as "OLD.status IS DISTINCT FROM NEW.status".
func (self *TriggerBuilder) When(sql string) *TriggerBuilder {
	self.when = sql
	return self
}

// Function to execute. Arguments render as literals.
func (self *TriggerBuilder) Execute(function string, args ...any) *TriggerBuilder {
	self.function = function
	self.args = args
	return self
}

// SQLite trigger statements, without the surrounding BEGIN and END.
func (self *TriggerBuilder) Body(sql string) *TriggerBuilder {
	self.body = sql
	return self
}

func (self *TriggerBuilder) OrReplace() *TriggerBuilder {
	self.orReplace = true
	return self
}

// SQLite only.
func (self *TriggerBuilder) IfNotExists() *TriggerBuilder {
	self.ifNotExists = true
	return self
}

func (self *TriggerBuilder) validate() {
	switch {
	case self.name == ``:
		panic(errBuilder(`create trigger`, `name`, `pass a trigger name to CreateTrigger`))
	case self.table == ``:
		panic(errBuilder(`create trigger`, `table`, `call On(table)`))
	case self.timing == ``:
		panic(errBuilder(`create trigger`, `timing`, `call Before, After, or InsteadOf`))
	case len(self.events) == 0:
		panic(errBuilder(`create trigger`, `events`, `pass at least one TriggerEvent`))
	case len(self.updateOf) > 0 && !hasEvent(self.events, TriggerUpdate):
		panic(errBuilderInvalid(`create trigger`, `UPDATE OF`, errf(`UpdateOf requires the UPDATE event`)))
	}

	if self.dialect == SQLite {
		switch {
		case self.body == ``:
			panic(errBuilder(`create trigger`, `body`, `SQLite triggers need Body(statements)`))
		case len(self.events) > 1:
			panic(errUnsupported(`create trigger`, `multiple events`, self.dialect))
		case self.orReplace:
			panic(errUnsupported(`create trigger`, `OR REPLACE`, self.dialect))
		}
		return
	}
	if self.function == `` {
		panic(errBuilder(`create trigger`, `function`, `call Execute(function)`))
	}
	if self.ifNotExists {
		panic(errUnsupported(`create trigger`, `IF NOT EXISTS`, self.dialect))
	}
}

func hasEvent(events []TriggerEvent, val TriggerEvent) bool {
	for _, event := range events {
		if event == val {
			return true
		}
	}
	return false
}

// Implement the `Expr` interface, making this a sub-expression.
func (self *TriggerBuilder) AppendExpr(text []byte) []byte {
	self.validate()

	bui := Bui{text}
	bui.Str(`CREATE`)
	if self.orReplace {
		bui.Str(`OR REPLACE`)
	}
	bui.Str(`TRIGGER`)
	if self.ifNotExists {
		bui.Str(`IF NOT EXISTS`)
	}
	bui.Ident(self.name)
	bui.Str(string(self.timing))

	for ind, event := range self.events {
		if ind > 0 {
			bui.Str(`OR`)
		}
		bui.Str(string(event))
		if event == TriggerUpdate && len(self.updateOf) > 0 {
			bui.Str(`OF`)
			bui.Idents(self.updateOf)
		}
	}

	bui.Str(`ON`)
	bui.Name(self.table)

	if self.forEachRow {
		bui.Str(`FOR EACH ROW`)
	} else if self.dialect != SQLite {
		bui.Str(`FOR EACH STATEMENT`)
	}

	if self.when != `` {
		bui.Str(`WHEN (`)
		bui.Raw(self.when)
		bui.Raw(`)`)
	}

	if self.dialect == SQLite {
		bui.Str(`BEGIN`)
		bui.Str(strings.TrimSuffix(strings.TrimSpace(self.body), `;`) + `;`)
		bui.Str(`END`)
		return bui.Text
	}

	bui.Str(`EXECUTE FUNCTION`)
	bui.Name(self.function)
	bui.Raw(`(`)
	for ind, arg := range self.args {
		if ind > 0 {
			bui.Raw(`, `)
		}
		bui.Lit(arg)
	}
	bui.Raw(`)`)
	return bui.Text
}

// Implement the `fmt.Stringer` interface. Panics on misuse; see `Build`.
func (self *TriggerBuilder) String() string { return exprString(self) }

// Renders the statement, converting misuse panics to errors.
func (self *TriggerBuilder) Build() (string, error) { return Render(self) }

// Starts a DROP TRIGGER statement. PostgreSQL requires the table.
func DropTrigger(name, table string) *DropBuilder {
	out := newDrop(`TRIGGER`, []string{name})
	out.on = table
	return out
}
