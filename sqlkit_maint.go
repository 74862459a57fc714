package sqlkit

import (
	"strconv"
	"strings"
)

// Data format of COPY.
type CopyFormat string

const (
	CopyText   CopyFormat = `text`
	CopyCSV    CopyFormat = `csv`
	CopyBinary CopyFormat = `binary`
)

/*
Starts a `COPY table TO ...` statement. Defaults to STDOUT.

	sqlkit.CopyTo(`users`).Columns(`id`, `email`).Format(sqlkit.CopyCSV).Header(true)
*/
func CopyTo(table string) *CopyBuilder { return &CopyBuilder{table: table} }

// Starts a `COPY (query) TO ...` statement.
func CopyQueryTo(query Expr) *CopyBuilder { return &CopyBuilder{query: query} }

// Starts a `COPY table FROM ...` statement. Defaults to STDIN.
func CopyFrom(table string) *CopyBuilder { return &CopyBuilder{table: table, from: true} }

type CopyBuilder struct {
	table    string
	query    Expr
	from     bool
	cols     []string
	file     string
	program  string
	format   CopyFormat
	header   *bool
	freeze   bool
	opts     Vals
	forceQ   []string
	forceQA  bool
	forceNN  []string
	forceNul []string
	where    Conds
}

func (self *CopyBuilder) Columns(cols ...string) *CopyBuilder {
	self.cols = append(self.cols, cols...)
	return self
}

// Server-side file path. Requires superuser or pg_write_server_files.
func (self *CopyBuilder) File(path string) *CopyBuilder {
	self.file = path
	return self
}

// Server-side shell command.
func (self *CopyBuilder) Program(cmd string) *CopyBuilder {
	self.program = cmd
	return self
}

func (self *CopyBuilder) Format(val CopyFormat) *CopyBuilder {
	self.format = val
	return self
}

func (self *CopyBuilder) Header(val bool) *CopyBuilder {
	self.header = &val
	return self
}

// COPY FROM only.
func (self *CopyBuilder) Freeze() *CopyBuilder {
	self.freeze = true
	return self
}

func (self *CopyBuilder) Delimiter(val string) *CopyBuilder { return self.opt(`DELIMITER`, val) }
func (self *CopyBuilder) Null(val string) *CopyBuilder      { return self.opt(`NULL`, val) }
func (self *CopyBuilder) Default(val string) *CopyBuilder   { return self.opt(`DEFAULT`, val) }
func (self *CopyBuilder) Quote(val string) *CopyBuilder     { return self.opt(`QUOTE`, val) }
func (self *CopyBuilder) Escape(val string) *CopyBuilder    { return self.opt(`ESCAPE`, val) }
func (self *CopyBuilder) Encoding(val string) *CopyBuilder  { return self.opt(`ENCODING`, val) }

// COPY FROM only: "stop" or "ignore".
func (self *CopyBuilder) OnError(val string) *CopyBuilder {
	self.opts.Add(`ON_ERROR`, SqlExpr(strings.ToLower(val)))
	return self
}

func (self *CopyBuilder) opt(key, val string) *CopyBuilder {
	self.opts.Add(key, val)
	return self
}

// CSV COPY TO only.
func (self *CopyBuilder) ForceQuote(cols ...string) *CopyBuilder {
	self.forceQ = append(self.forceQ, cols...)
	return self
}

// CSV COPY TO only: `FORCE_QUOTE *`.
func (self *CopyBuilder) ForceQuoteAll() *CopyBuilder {
	self.forceQA = true
	return self
}

// CSV COPY FROM only.
func (self *CopyBuilder) ForceNotNull(cols ...string) *CopyBuilder {
	self.forceNN = append(self.forceNN, cols...)
	return self
}

// CSV COPY FROM only.
func (self *CopyBuilder) ForceNull(cols ...string) *CopyBuilder {
	self.forceNul = append(self.forceNul, cols...)
	return self
}

// COPY FROM only.
func (self *CopyBuilder) Where(fun func(*Conds)) *CopyBuilder {
	if fun != nil {
		fun(&self.where)
	}
	return self
}

func (self *CopyBuilder) validate() {
	builder := `copy to`
	if self.from {
		builder = `copy from`
	}
	switch {
	case self.table == `` && self.query == nil:
		panic(errBuilder(builder, `source`, `pass a table or a query`))
	case self.query != nil && len(self.cols) > 0:
		panic(errBuilderInvalid(builder, `columns`, errf(`query copies take their columns from the query`)))
	case self.file != `` && self.program != ``:
		panic(errBuilderInvalid(builder, `target`, errf(`File and Program are mutually exclusive`)))
	case self.format == CopyBinary && self.header != nil:
		panic(errBuilderInvalid(builder, `HEADER`, errf(`binary format doesn't take HEADER`)))
	}

	csv := self.format == CopyCSV
	if (len(self.forceQ) > 0 || self.forceQA || len(self.forceNN) > 0 || len(self.forceNul) > 0) && !csv {
		panic(errBuilderInvalid(builder, `FORCE options`, errf(`FORCE_* options require the csv format`)))
	}

	if self.from {
		if len(self.forceQ) > 0 || self.forceQA {
			panic(errBuilderInvalid(builder, `FORCE_QUOTE`, errf(`FORCE_QUOTE applies to COPY TO`)))
		}
		return
	}
	switch {
	case self.freeze:
		panic(errBuilderInvalid(builder, `FREEZE`, errf(`FREEZE applies to COPY FROM`)))
	case len(self.forceNN) > 0 || len(self.forceNul) > 0:
		panic(errBuilderInvalid(builder, `FORCE_NULL`, errf(`FORCE_NOT_NULL and FORCE_NULL apply to COPY FROM`)))
	case !self.where.IsEmpty():
		panic(errBuilderInvalid(builder, `WHERE`, errf(`WHERE applies to COPY FROM`)))
	}
	if _, ok := self.opts.Get(`ON_ERROR`); ok {
		panic(errBuilderInvalid(builder, `ON_ERROR`, errf(`ON_ERROR applies to COPY FROM`)))
	}
}

// Implement the `Expr` interface, making this a sub-expression.
func (self *CopyBuilder) AppendExpr(text []byte) []byte {
	self.validate()

	bui := Bui{text}
	bui.Str(`COPY`)
	if self.query != nil {
		bui.SubExpr(self.query)
	} else {
		bui.Name(self.table)
		if len(self.cols) > 0 {
			bui.IdentList(self.cols)
		}
	}

	if self.from {
		bui.Str(`FROM`)
	} else {
		bui.Str(`TO`)
	}
	switch {
	case self.file != ``:
		bui.Lit(self.file)
	case self.program != ``:
		bui.Str(`PROGRAM`)
		bui.Lit(self.program)
	case self.from:
		bui.Str(`STDIN`)
	default:
		bui.Str(`STDOUT`)
	}

	var opts []string
	if self.format != `` {
		opts = append(opts, `FORMAT `+string(self.format))
	}
	if self.freeze {
		opts = append(opts, `FREEZE true`)
	}
	if self.header != nil {
		opts = append(opts, `HEADER `+strconv.FormatBool(*self.header))
	}
	for _, val := range self.opts {
		opts = append(opts, val.Key+` `+bytesToMutableString(appendParamValue(nil, val.Value)))
	}
	if self.forceQA {
		opts = append(opts, `FORCE_QUOTE *`)
	} else if len(self.forceQ) > 0 {
		opts = append(opts, `FORCE_QUOTE `+identList(self.forceQ))
	}
	if len(self.forceNN) > 0 {
		opts = append(opts, `FORCE_NOT_NULL `+identList(self.forceNN))
	}
	if len(self.forceNul) > 0 {
		opts = append(opts, `FORCE_NULL `+identList(self.forceNul))
	}
	if len(opts) > 0 {
		bui.Str(`WITH (`)
		bui.Raw(strings.Join(opts, `, `))
		bui.Raw(`)`)
	}

	if !self.where.IsEmpty() {
		bui.Str(`WHERE`)
		bui.Set(self.where.appendWith(bui.Text, condCtx{}))
	}
	return bui.Text
}

func identList(names []string) string {
	var bui Bui
	bui.IdentList(names)
	return bui.String()
}

// Implement the `fmt.Stringer` interface. Panics on misuse; see `Build`.
func (self *CopyBuilder) String() string { return exprString(self) }

// Renders the statement, converting misuse panics to errors.
func (self *CopyBuilder) Build() (string, error) { return Render(self) }

// Output format of EXPLAIN.
type ExplainFormat string

const (
	ExplainText ExplainFormat = `TEXT`
	ExplainJSON ExplainFormat = `JSON`
	ExplainYAML ExplainFormat = `YAML`
	ExplainXML  ExplainFormat = `XML`
)

/*
Starts an EXPLAIN statement. BUFFERS, TIMING, and WAL imply ANALYZE.

	sqlkit.Explain(sqlkit.Select(`users`)).Buffers().Format(sqlkit.ExplainJSON)
	// EXPLAIN (ANALYZE, BUFFERS, FORMAT JSON) SELECT * FROM "users"
*/
func Explain(query Expr) *ExplainBuilder { return &ExplainBuilder{query: query} }

type ExplainBuilder struct {
	query    Expr
	analyze  bool
	verbose  bool
	costs    *bool
	settings bool
	buffers  bool
	wal      bool
	timing   bool
	summary  bool
	format   ExplainFormat
}

func (self *ExplainBuilder) Analyze() *ExplainBuilder {
	self.analyze = true
	return self
}

func (self *ExplainBuilder) Verbose() *ExplainBuilder {
	self.verbose = true
	return self
}

// Costs are on by default; only an explicit value is rendered.
func (self *ExplainBuilder) Costs(val bool) *ExplainBuilder {
	self.costs = &val
	return self
}

func (self *ExplainBuilder) Settings() *ExplainBuilder {
	self.settings = true
	return self
}

func (self *ExplainBuilder) Buffers() *ExplainBuilder {
	self.buffers = true
	return self
}

func (self *ExplainBuilder) WAL() *ExplainBuilder {
	self.wal = true
	return self
}

func (self *ExplainBuilder) Timing() *ExplainBuilder {
	self.timing = true
	return self
}

func (self *ExplainBuilder) Summary() *ExplainBuilder {
	self.summary = true
	return self
}

func (self *ExplainBuilder) Format(val ExplainFormat) *ExplainBuilder {
	self.format = val
	return self
}

// Implement the `Expr` interface, making this a sub-expression.
func (self *ExplainBuilder) AppendExpr(text []byte) []byte {
	if self.query == nil {
		panic(errBuilder(`explain`, `query`, `pass the statement to explain`))
	}

	var opts []string
	if self.analyze || self.buffers || self.timing || self.wal {
		opts = append(opts, `ANALYZE`)
	}
	if self.verbose {
		opts = append(opts, `VERBOSE`)
	}
	if self.costs != nil {
		opts = append(opts, `COSTS `+strconv.FormatBool(*self.costs))
	}
	if self.settings {
		opts = append(opts, `SETTINGS`)
	}
	if self.buffers {
		opts = append(opts, `BUFFERS`)
	}
	if self.wal {
		opts = append(opts, `WAL`)
	}
	if self.timing {
		opts = append(opts, `TIMING`)
	}
	if self.summary {
		opts = append(opts, `SUMMARY`)
	}
	if self.format != `` {
		opts = append(opts, `FORMAT `+strings.ToUpper(string(self.format)))
	}

	bui := Bui{text}
	bui.Str(`EXPLAIN`)
	if len(opts) > 0 {
		bui.Str(`(`)
		bui.Raw(strings.Join(opts, `, `))
		bui.Raw(`)`)
	}
	bui.Expr(self.query)
	return bui.Text
}

// Implement the `fmt.Stringer` interface. Panics on misuse; see `Build`.
func (self *ExplainBuilder) String() string { return exprString(self) }

// Renders the statement, converting misuse panics to errors.
func (self *ExplainBuilder) Build() (string, error) { return Render(self) }

/*
Starts a VACUUM statement. Without tables, vacuums the whole database. On
SQLite, options and tables are rejected.
*/
func Vacuum(tables ...string) *VacuumBuilder {
	return &VacuumBuilder{tables: copyStrings(tables)}
}

type VacuumBuilder struct {
	tables     []string
	dialect    Dialect
	full       bool
	freeze     bool
	verbose    bool
	analyze    bool
	skipLocked bool
	parallel   int
}

func (self *VacuumBuilder) Dialect(val Dialect) *VacuumBuilder {
	self.dialect = val
	return self
}

func (self *VacuumBuilder) Full() *VacuumBuilder {
	self.full = true
	return self
}

func (self *VacuumBuilder) Freeze() *VacuumBuilder {
	self.freeze = true
	return self
}

func (self *VacuumBuilder) Verbose() *VacuumBuilder {
	self.verbose = true
	return self
}

func (self *VacuumBuilder) Analyze() *VacuumBuilder {
	self.analyze = true
	return self
}

func (self *VacuumBuilder) SkipLocked() *VacuumBuilder {
	self.skipLocked = true
	return self
}

func (self *VacuumBuilder) Parallel(workers int) *VacuumBuilder {
	self.parallel = workers
	return self
}

// Implement the `Expr` interface, making this a sub-expression.
func (self *VacuumBuilder) AppendExpr(text []byte) []byte {
	var opts []string
	if self.full {
		opts = append(opts, `FULL`)
	}
	if self.freeze {
		opts = append(opts, `FREEZE`)
	}
	if self.verbose {
		opts = append(opts, `VERBOSE`)
	}
	if self.analyze {
		opts = append(opts, `ANALYZE`)
	}
	if self.skipLocked {
		opts = append(opts, `SKIP_LOCKED`)
	}
	if self.parallel > 0 {
		if self.full {
			panic(errBuilderInvalid(`vacuum`, `PARALLEL`, errf(`PARALLEL can't be combined with FULL`)))
		}
		opts = append(opts, `PARALLEL `+strconv.Itoa(self.parallel))
	}

	if self.dialect == SQLite && (len(opts) > 0 || len(self.tables) > 0) {
		panic(errUnsupported(`vacuum`, `VACUUM options and tables`, self.dialect))
	}

	bui := Bui{text}
	bui.Str(`VACUUM`)
	if len(opts) > 0 {
		bui.Str(`(`)
		bui.Raw(strings.Join(opts, `, `))
		bui.Raw(`)`)
	}
	appendNames(&bui, self.tables)
	return bui.Text
}

// Implement the `fmt.Stringer` interface. Panics on misuse.
func (self *VacuumBuilder) String() string { return exprString(self) }

// Starts an ANALYZE statement. Without tables, analyzes the whole database.
func Analyze(tables ...string) *AnalyzeBuilder {
	return &AnalyzeBuilder{tables: copyStrings(tables)}
}

type AnalyzeBuilder struct {
	tables     []string
	verbose    bool
	skipLocked bool
}

func (self *AnalyzeBuilder) Verbose() *AnalyzeBuilder {
	self.verbose = true
	return self
}

func (self *AnalyzeBuilder) SkipLocked() *AnalyzeBuilder {
	self.skipLocked = true
	return self
}

// Implement the `Expr` interface, making this a sub-expression.
func (self *AnalyzeBuilder) AppendExpr(text []byte) []byte {
	var opts []string
	if self.verbose {
		opts = append(opts, `VERBOSE`)
	}
	if self.skipLocked {
		opts = append(opts, `SKIP_LOCKED`)
	}

	bui := Bui{text}
	bui.Str(`ANALYZE`)
	if len(opts) > 0 {
		bui.Str(`(`)
		bui.Raw(strings.Join(opts, `, `))
		bui.Raw(`)`)
	}
	appendNames(&bui, self.tables)
	return bui.Text
}

// Implement the `fmt.Stringer` interface.
func (self *AnalyzeBuilder) String() string { return exprString(self) }

// Starts a TRUNCATE statement.
func Truncate(tables ...string) *TruncateBuilder {
	return &TruncateBuilder{tables: copyStrings(tables)}
}

type TruncateBuilder struct {
	tables          []string
	only            bool
	restartIdentity bool
	cascade         bool
}

func (self *TruncateBuilder) Only() *TruncateBuilder {
	self.only = true
	return self
}

func (self *TruncateBuilder) RestartIdentity() *TruncateBuilder {
	self.restartIdentity = true
	return self
}

func (self *TruncateBuilder) Cascade() *TruncateBuilder {
	self.cascade = true
	return self
}

// Implement the `Expr` interface, making this a sub-expression.
func (self *TruncateBuilder) AppendExpr(text []byte) []byte {
	if len(self.tables) == 0 {
		panic(errBuilder(`truncate`, `tables`, `pass at least one table`))
	}

	bui := Bui{text}
	bui.Str(`TRUNCATE`)
	if self.only {
		bui.Str(`ONLY`)
	}
	appendNames(&bui, self.tables)
	if self.restartIdentity {
		bui.Str(`RESTART IDENTITY`)
	}
	if self.cascade {
		bui.Str(`CASCADE`)
	}
	return bui.Text
}

// Implement the `fmt.Stringer` interface. Panics on misuse; see `Build`.
func (self *TruncateBuilder) String() string { return exprString(self) }

// Renders the statement, converting misuse panics to errors.
func (self *TruncateBuilder) Build() (string, error) { return Render(self) }

func appendNames(bui *Bui, names []string) {
	for ind, name := range names {
		if ind > 0 {
			bui.Raw(`,`)
		}
		bui.Name(name)
	}
}
