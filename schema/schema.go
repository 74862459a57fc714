package schema

import (
	"fmt"
	"sort"

	"github.com/mitranim/sqlkit"
	"github.com/zeebo/xxh3"
)

// Trigger attached to a table. SQLite triggers run `Body`; others execute
// `Function`.
type Trigger struct {
	Name       string
	Table      string
	Timing     sqlkit.TriggerTiming
	Events     []sqlkit.TriggerEvent
	ForEachRow bool
	When       string
	Function   string
	Body       string
}

func (self Trigger) Build(dialect sqlkit.Dialect) *sqlkit.TriggerBuilder {
	out := sqlkit.CreateTrigger(self.Name).Dialect(dialect).On(self.Table).At(self.Timing, self.Events...)
	if self.ForEachRow {
		out.ForEachRow()
	}
	if self.When != `` {
		out.When(self.When)
	}
	if self.Function != `` {
		out.Execute(self.Function)
	}
	if self.Body != `` {
		out.Body(self.Body)
	}
	return out
}

// Server-side function. An empty language means plpgsql.
type Function struct {
	Name     string
	Args     []sqlkit.FuncArg
	Returns  string
	Language string
	Body     string
}

func (self Function) Build() *sqlkit.FunctionBuilder {
	out := sqlkit.CreateFunction(self.Name).OrReplace().Args(self.Args...).Returns(self.Returns).Body(self.Body)
	if self.Language != `` {
		out.Language(self.Language)
	}
	return out
}

// Standalone sequence. Zero values use backend defaults.
type Sequence struct {
	Name      string
	Start     int64
	Increment int64
}

func (self Sequence) Build() *sqlkit.SequenceBuilder {
	out := sqlkit.CreateSequence(self.Name).IfNotExists()
	if self.Increment != 0 {
		out.IncrementBy(self.Increment)
	}
	if self.Start != 0 {
		out.Start(self.Start)
	}
	return out
}

type View struct {
	Name         string
	Query        sqlkit.Expr
	Materialized bool
}

func (self View) Build() *sqlkit.ViewBuilder {
	if self.Materialized {
		return sqlkit.CreateMaterializedView(self.Name, self.Query)
	}
	return sqlkit.CreateView(self.Name, self.Query).OrReplace()
}

type Extension struct{ Name string }

func (self Extension) Build() sqlkit.SqlExpr {
	return sqlkit.SqlExpr(sqlkit.TryFormat(`CREATE EXTENSION IF NOT EXISTS %I`, self.Name))
}

/*
Registry of table definitions and other schema objects. Foreign keys between
registered tables populate the relations graph.
*/
type Schema struct {
	tables     []*Table
	byKey      map[string]*Table
	relations  *Relations
	triggers   []Trigger
	functions  []Function
	sequences  []Sequence
	views      []View
	extensions []Extension
}

/*
Registers tables and validates foreign keys between them. A foreign key to an
unregistered table is an error, as is a key to an unknown column.
*/
func NewSchema(tables ...*Table) (*Schema, error) {
	out := &Schema{byKey: map[string]*Table{}, relations: NewRelations()}

	for _, table := range tables {
		if table == nil {
			continue
		}
		if _, ok := out.byKey[table.Key()]; ok {
			return nil, errSchema(table.Key(), fmt.Errorf(`table %q is registered twice`, table.Key()))
		}
		out.byKey[table.Key()] = table
		out.tables = append(out.tables, table)
	}

	for _, table := range out.tables {
		for _, fk := range table.ForeignKeys() {
			if err := out.declare(table, fk); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

// Variant of `NewSchema` that panics on error.
func TryNewSchema(tables ...*Table) *Schema {
	out, err := NewSchema(tables...)
	if err != nil {
		panic(err)
	}
	return out
}

func (self *Schema) declare(source *Table, fk ForeignKey) error {
	target := self.Table(fk.Table)
	if target == nil {
		return errSchema(source.Key(), fmt.Errorf(`foreign key %q references unknown table %q`, fk.Columns, fk.Table))
	}

	refCols := fk.RefColumns
	if len(refCols) == 0 {
		refCols = target.PrimaryKey()
	}
	if len(refCols) != len(fk.Columns) {
		return errSchema(source.Key(), fmt.Errorf(`foreign key %q doesn't match the key of table %q`, fk.Columns, target.Key()))
	}

	for ind, name := range refCols {
		ref, ok := target.resolve(name)
		if !ok {
			return errSchema(source.Key(), fmt.Errorf(`foreign key %q references unknown column %q of table %q`, fk.Columns, name, target.Key()))
		}
		self.relations.Declare(source.Key(), fk.Columns[ind], target.Key(), ref)
	}
	return nil
}

func errSchema(table string, cause error) sqlkit.ErrBuilder {
	return sqlkit.ErrBuilder{
		Err:     sqlkit.MakeErr(`registering schema`, cause),
		Builder: `schema`,
		Missing: table,
	}
}

// Finds a table by schema-qualified key, or by bare name.
func (self *Schema) Table(name string) *Table {
	if self == nil {
		return nil
	}
	if out := self.byKey[name]; out != nil {
		return out
	}
	for _, table := range self.tables {
		if table.Name() == name {
			return table
		}
	}
	return nil
}

// Tables in registration order.
func (self *Schema) Tables() []*Table { return append([]*Table(nil), self.tables...) }

func (self *Schema) Relations() *Relations { return self.relations }

func (self *Schema) AddTrigger(vals ...Trigger) *Schema {
	self.triggers = append(self.triggers, vals...)
	return self
}

func (self *Schema) AddFunction(vals ...Function) *Schema {
	self.functions = append(self.functions, vals...)
	return self
}

func (self *Schema) AddSequence(vals ...Sequence) *Schema {
	self.sequences = append(self.sequences, vals...)
	return self
}

func (self *Schema) AddView(vals ...View) *Schema {
	self.views = append(self.views, vals...)
	return self
}

func (self *Schema) AddExtension(vals ...Extension) *Schema {
	self.extensions = append(self.extensions, vals...)
	return self
}

func (self *Schema) Triggers() []Trigger     { return append([]Trigger(nil), self.triggers...) }
func (self *Schema) Functions() []Function   { return append([]Function(nil), self.functions...) }
func (self *Schema) Sequences() []Sequence   { return append([]Sequence(nil), self.sequences...) }
func (self *Schema) Views() []View           { return append([]View(nil), self.views...) }
func (self *Schema) Extensions() []Extension { return append([]Extension(nil), self.extensions...) }

/*
Tables ordered so that every table follows the tables it references.
Reference cycles keep registration order for the tables involved.
*/
func (self *Schema) Sorted() []*Table {
	done := map[string]bool{}
	visiting := map[string]bool{}
	var out []*Table

	var visit func(*Table)
	visit = func(table *Table) {
		key := table.Key()
		if done[key] || visiting[key] {
			return
		}
		visiting[key] = true
		for _, edge := range self.relations.Edges(key) {
			if edge.Direction == Forward && edge.Target != key {
				if target := self.byKey[edge.Target]; target != nil {
					visit(target)
				}
			}
		}
		visiting[key] = false
		done[key] = true
		out = append(out, table)
	}

	for _, table := range self.tables {
		visit(table)
	}
	return out
}

/*
Renders CREATE statements for the whole schema in dependency order:
extensions, sequences, functions, tables with their indexes and comments,
views, triggers. Dialect support is not checked here; see package "dialect".
*/
func (self *Schema) Statements(dialect sqlkit.Dialect) ([]string, error) {
	var out []string
	add := func(val sqlkit.Expr) error {
		text, err := sqlkit.Render(val)
		if err != nil {
			return err
		}
		out = append(out, text)
		return nil
	}

	for _, val := range self.extensions {
		if err := add(val.Build()); err != nil {
			return nil, err
		}
	}
	for _, val := range self.sequences {
		if err := add(val.Build()); err != nil {
			return nil, err
		}
	}
	for _, val := range self.functions {
		if err := add(val.Build()); err != nil {
			return nil, err
		}
	}
	for _, table := range self.Sorted() {
		stmts, err := table.Statements(dialect)
		if err != nil {
			return nil, err
		}
		out = append(out, stmts...)
	}
	for _, val := range self.views {
		if err := add(val.Build()); err != nil {
			return nil, err
		}
	}
	for _, val := range self.triggers {
		if err := add(val.Build(dialect)); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Digest over every table in key order. Other objects are not included.
func (self *Schema) Checksum() string {
	keys := make([]string, 0, len(self.tables))
	for _, table := range self.tables {
		keys = append(keys, table.Key())
	}
	sort.Strings(keys)

	hash := xxh3.New()
	for _, key := range keys {
		_, _ = hash.Write([]byte(key))
		_, _ = hash.Write([]byte{0})
		_, _ = hash.Write(self.byKey[key].snapshotJSON())
		_, _ = hash.Write([]byte{0})
	}
	return formatHash(hash.Sum64())
}
