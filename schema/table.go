package schema

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mitranim/sqlkit"
)

// Ordered column list keyed by programmatic name.
type Cols []Col

type Col struct {
	Key    string
	Column Column
}

// Table-level foreign key. Column lists accept keys or SQL names.
type ForeignKey struct {
	Name       string
	Columns    []string
	Table      string
	RefColumns []string
	OnDelete   sqlkit.RefAction
	OnUpdate   sqlkit.RefAction
	Deferrable bool
}

// Table-level CHECK constraint with a trusted expression.
type Check struct {
	Name string
	Expr string
}

/*
Secondary index created after the table, in the table's schema. `Where` is a
trusted predicate for partial indexes. An empty name is derived from the table
and columns.
*/
type Index struct {
	Name         string
	Columns      []string
	Expr         string
	Unique       bool
	Method       sqlkit.IndexMethod
	Where        string
	Include      []string
	Concurrently bool
	ID           string
}

// Options of `DefineTable`. Column lists accept keys or SQL names.
type TableOpts struct {
	Schema      string
	PrimaryKey  []string
	Uniques     [][]string
	ForeignKeys []ForeignKey
	Checks      []Check

	// Passed through verbatim, for constraints such as EXCLUDE.
	Constraints []sqlkit.TableConstraint

	Indexes    []Index
	Partition  *sqlkit.PartitionBy
	Inherits   []string
	With       map[string]any
	Tablespace string

	Temporary    bool
	Unlogged     bool
	Strict       bool
	WithoutRowID bool
	IfNotExists  bool

	Comment string
	ID      string
}

/*
Sealed table definition. Safe for concurrent use: nothing mutates a table after
`DefineTable` returns.
*/
type Table struct {
	name  string
	opts  TableOpts
	cols  []tableCol
	keys  map[string]int
	names map[string]int
	pk    []string
}

type tableCol struct {
	key  string
	name string
	Column
}

/*
Validates and seals a table definition. Violations are reported as
`sqlkit.ErrBuilder`.
*/
func DefineTable(name string, cols Cols, opts ...TableOpts) (*Table, error) {
	out := &Table{name: name, keys: map[string]int{}, names: map[string]int{}}
	if len(opts) > 0 {
		out.opts = opts[0]
	}
	if err := out.seal(cols); err != nil {
		return nil, err
	}
	return out, nil
}

// Variant of `DefineTable` that panics on invalid definitions.
func TryDefineTable(name string, cols Cols, opts ...TableOpts) *Table {
	out, err := DefineTable(name, cols, opts...)
	if err != nil {
		panic(err)
	}
	return out
}

func (self *Table) seal(cols Cols) error {
	if self.name == `` {
		return self.err(`name`, fmt.Errorf(`table name is empty`))
	}
	if len(cols) == 0 && self.opts.Partition == nil && len(self.opts.Inherits) == 0 {
		return self.err(`columns`, fmt.Errorf(`table has no columns`))
	}
	if self.opts.Temporary && self.opts.Unlogged {
		return self.err(`flags`, fmt.Errorf(`a table can't be both temporary and unlogged`))
	}

	var pkCols []string
	for _, val := range cols {
		if err := self.addCol(val); err != nil {
			return err
		}
		if val.Column.primaryKey {
			pkCols = append(pkCols, val.Key)
		}
	}

	switch {
	case len(pkCols) > 1:
		return self.err(`primary key`, fmt.Errorf(`columns %q are all marked as primary key; use TableOpts.PrimaryKey for a composite key`, pkCols))
	case len(pkCols) == 1 && len(self.opts.PrimaryKey) > 0:
		return self.err(`primary key`, fmt.Errorf(`column %q and TableOpts.PrimaryKey both declare a primary key`, pkCols[0]))
	case len(pkCols) == 1:
		self.pk = []string{self.cols[self.keys[pkCols[0]]].name}
	default:
		names, err := self.resolveAll(`primary key`, self.opts.PrimaryKey)
		if err != nil {
			return err
		}
		self.pk = names
	}

	for _, name := range self.pk {
		col := &self.cols[self.names[name]]
		col.notNull = true
	}

	if err := self.checkConstraints(); err != nil {
		return err
	}

	if self.opts.WithoutRowID {
		if len(self.pk) == 0 {
			return self.err(`primary key`, fmt.Errorf(`WITHOUT ROWID tables need a primary key`))
		}
		for _, col := range self.cols {
			if col.autoIncrement {
				return self.err(col.key, fmt.Errorf(`WITHOUT ROWID tables can't use autoincrement`))
			}
		}
	}
	return nil
}

func (self *Table) addCol(val Col) error {
	col := val.Column
	if val.Key == `` {
		return self.err(`column key`, fmt.Errorf(`every column needs a key`))
	}
	if _, ok := self.keys[val.Key]; ok {
		return self.err(val.Key, fmt.Errorf(`duplicate column key %q`, val.Key))
	}

	name := col.name
	if name == `` {
		name = val.Key
	}
	if _, ok := self.names[name]; ok {
		return self.err(val.Key, fmt.Errorf(`duplicate column name %q`, name))
	}

	if col.base == `` {
		return self.err(val.Key, fmt.Errorf(`column %q has no type`, val.Key))
	}
	if col.generated != `` && col.hasDefault {
		return self.err(val.Key, fmt.Errorf(`generated column %q can't have a default`, val.Key))
	}
	if col.generated != `` && col.identity != sqlkit.IdentityNone {
		return self.err(val.Key, fmt.Errorf(`generated column %q can't be an identity`, val.Key))
	}
	if col.identity != sqlkit.IdentityNone && (col.array || !isIntegerType(col.base)) {
		return self.err(val.Key, fmt.Errorf(`identity column %q needs an integer type, got %q`, val.Key, col.Type()))
	}
	if col.autoIncrement && col.hasDefault {
		return self.err(val.Key, fmt.Errorf(`autoincrement column %q can't have a default`, val.Key))
	}

	self.keys[val.Key] = len(self.cols)
	self.names[name] = len(self.cols)
	self.cols = append(self.cols, tableCol{key: val.Key, name: name, Column: col})
	return nil
}

func (self *Table) checkConstraints() error {
	for _, cols := range self.opts.Uniques {
		if len(cols) == 0 {
			return self.err(`unique`, fmt.Errorf(`unique constraint without columns`))
		}
		if _, err := self.resolveAll(`unique`, cols); err != nil {
			return err
		}
	}

	for _, fk := range self.opts.ForeignKeys {
		if len(fk.Columns) == 0 || fk.Table == `` {
			return self.err(`foreign key`, fmt.Errorf(`foreign keys need columns and a target table`))
		}
		if len(fk.RefColumns) > 0 && len(fk.RefColumns) != len(fk.Columns) {
			return self.err(`foreign key`, fmt.Errorf(`foreign key to %q has %v columns and %v target columns`, fk.Table, len(fk.Columns), len(fk.RefColumns)))
		}
		if _, err := self.resolveAll(`foreign key`, fk.Columns); err != nil {
			return err
		}
	}

	for _, val := range self.opts.Checks {
		if strings.TrimSpace(val.Expr) == `` {
			return self.err(`check`, fmt.Errorf(`check constraint %q has no expression`, val.Name))
		}
	}

	for _, val := range self.opts.Indexes {
		if len(val.Columns) == 0 && val.Expr == `` {
			return self.err(`index`, fmt.Errorf(`index %q has no columns`, val.Name))
		}
		if _, err := self.resolveAll(`index`, val.Columns); err != nil {
			return err
		}
		if _, err := self.resolveAll(`index`, val.Include); err != nil {
			return err
		}
	}
	return nil
}

// Resolves keys or SQL names to SQL names.
func (self *Table) resolveAll(field string, vals []string) ([]string, error) {
	if len(vals) == 0 {
		return nil, nil
	}
	out := make([]string, 0, len(vals))
	for _, val := range vals {
		name, ok := self.resolve(val)
		if !ok {
			return nil, self.err(field, fmt.Errorf(`unknown column %q`, val))
		}
		out = append(out, name)
	}
	return out, nil
}

func (self *Table) resolve(val string) (string, bool) {
	if ind, ok := self.keys[val]; ok {
		return self.cols[ind].name, true
	}
	if _, ok := self.names[val]; ok {
		return val, true
	}
	return ``, false
}

func (self *Table) mustResolve(vals []string) []string {
	out, _ := self.resolveAll(``, vals)
	return out
}

func (self *Table) err(field string, cause error) sqlkit.ErrBuilder {
	return sqlkit.ErrBuilder{
		Err:     sqlkit.MakeErr(`defining table `+strconv.Quote(self.name), cause),
		Builder: `define table`,
		Missing: field,
	}
}

// SQL name of the table, without the schema.
func (self *Table) Name() string { return self.name }

func (self *Table) Schema() string { return self.opts.Schema }

// Schema-qualified name, as rendered in statements: "app.users" or "users".
func (self *Table) Key() string {
	if self.opts.Schema != `` {
		return self.opts.Schema + `.` + self.name
	}
	return self.name
}

func (self *Table) Opts() TableOpts { return self.opts }

// Column keys in declaration order.
func (self *Table) Columns() []string {
	out := make([]string, len(self.cols))
	for ind, col := range self.cols {
		out[ind] = col.key
	}
	return out
}

// Describes the column with the given key or SQL name.
func (self *Table) Column(key string) (ColumnDesc, bool) {
	col, ok := self.col(key)
	if !ok {
		return ColumnDesc{}, false
	}
	out := col.Describe()
	out.Key = col.key
	out.Name = col.name
	return out, true
}

func (self *Table) col(key string) (tableCol, bool) {
	if ind, ok := self.keys[key]; ok {
		return self.cols[ind], true
	}
	if ind, ok := self.names[key]; ok {
		return self.cols[ind], true
	}
	return tableCol{}, false
}

// SQL name of the column, or "" for unknown keys.
func (self *Table) SQLName(key string) string {
	if ind, ok := self.keys[key]; ok {
		return self.cols[ind].name
	}
	return ``
}

/*
SQL type of the column such as "text[]", or "" for unknown keys. Enum arrays
report the enum name with the array suffix.
*/
func (self *Table) TypeOf(key string) string {
	col, ok := self.col(key)
	if !ok {
		return ``
	}
	return col.Type()
}

func (self *Table) Resolver() sqlkit.ColumnResolver { return self.SQLName }

func (self *Table) TypeResolver() sqlkit.TypeResolver { return self.TypeOf }

// SQL names of the primary key columns.
func (self *Table) PrimaryKey() []string { return append([]string(nil), self.pk...) }

func (self *Table) Indexes() []Index { return append([]Index(nil), self.opts.Indexes...) }

// Foreign keys declared by columns and by `TableOpts`, with SQL column names.
func (self *Table) ForeignKeys() []ForeignKey {
	var out []ForeignKey
	for _, col := range self.cols {
		if ref := col.ref; ref != nil {
			fk := ForeignKey{
				Columns:    []string{col.name},
				Table:      ref.Table,
				OnDelete:   ref.OnDelete,
				OnUpdate:   ref.OnUpdate,
				Deferrable: ref.Deferrable,
			}
			if ref.Column != `` {
				fk.RefColumns = []string{ref.Column}
			}
			out = append(out, fk)
		}
	}
	for _, fk := range self.opts.ForeignKeys {
		fk.Columns = self.mustResolve(fk.Columns)
		out = append(out, fk)
	}
	return out
}

// Builds CREATE TABLE for the dialect.
func (self *Table) CreateTable(dialect sqlkit.Dialect) *sqlkit.CreateTableBuilder {
	out := sqlkit.CreateTable(self.Key()).Dialect(dialect)

	for _, col := range self.cols {
		out.Column(col.def(col.name))
	}

	if len(self.pk) > 1 || (len(self.pk) == 1 && !self.cols[self.names[self.pk[0]]].primaryKey) {
		out.Constraint(sqlkit.TableConstraint{Kind: sqlkit.ConstraintPrimaryKey, Columns: self.pk})
	}
	for _, cols := range self.opts.Uniques {
		out.Constraint(sqlkit.TableConstraint{Kind: sqlkit.ConstraintUnique, Columns: self.mustResolve(cols)})
	}
	for _, fk := range self.opts.ForeignKeys {
		out.Constraint(sqlkit.TableConstraint{
			Name:       fk.Name,
			Kind:       sqlkit.ConstraintForeignKey,
			Columns:    self.mustResolve(fk.Columns),
			RefColumns: fk.RefColumns,
			References: &sqlkit.Reference{
				Table:      fk.Table,
				OnDelete:   fk.OnDelete,
				OnUpdate:   fk.OnUpdate,
				Deferrable: fk.Deferrable,
			},
		})
	}
	for _, val := range self.opts.Checks {
		out.Constraint(sqlkit.TableConstraint{Name: val.Name, Kind: sqlkit.ConstraintCheck, Expr: val.Expr})
	}
	for _, val := range self.opts.Constraints {
		out.Constraint(val)
	}

	if self.opts.Partition != nil {
		out.PartitionBy(*self.opts.Partition)
	}
	if len(self.opts.Inherits) > 0 {
		out.Inherits(self.opts.Inherits...)
	}
	for _, key := range sortedKeys(self.opts.With) {
		out.With(key, self.opts.With[key])
	}
	if self.opts.Tablespace != `` {
		out.Tablespace(self.opts.Tablespace)
	}
	if self.opts.Temporary {
		out.Temporary()
	}
	if self.opts.Unlogged {
		out.Unlogged()
	}
	if self.opts.IfNotExists {
		out.IfNotExists()
	}
	if self.opts.Strict {
		out.Strict()
	}
	if self.opts.WithoutRowID {
		out.WithoutRowID()
	}
	return out
}

// Renders CREATE TABLE for the dialect.
func (self *Table) ToSQL(dialect sqlkit.Dialect) (string, error) {
	return self.CreateTable(dialect).Build()
}

// Builds CREATE INDEX statements of secondary indexes.
func (self *Table) CreateIndexes(dialect sqlkit.Dialect) []*sqlkit.IndexBuilder {
	var out []*sqlkit.IndexBuilder
	for _, val := range self.opts.Indexes {
		cols := self.mustResolve(val.Columns)
		name := self.IndexName(val)

		bui := sqlkit.CreateIndex(name, self.Key()).Dialect(dialect).Columns(cols...)
		if val.Expr != `` {
			bui.Expr(val.Expr)
		}
		if val.Method != `` {
			bui.Using(val.Method)
		}
		if len(val.Include) > 0 {
			bui.Include(self.mustResolve(val.Include)...)
		}
		if val.Where != `` {
			where := val.Where
			bui.Where(func(q *sqlkit.Conds) { q.Raw(where) })
		}
		if val.Unique {
			bui.Unique()
		}
		if val.Concurrently {
			bui.Concurrently()
		}
		if self.opts.IfNotExists {
			bui.IfNotExists()
		}
		out = append(out, bui)
	}
	return out
}

/*
Name of the index as created: the declared name, or one derived from the table
and columns such as "users_email_key" for unique and "users_team_id_idx" for
other indexes.
*/
func (self *Table) IndexName(val Index) string {
	if val.Name != `` {
		return val.Name
	}
	cols := self.mustResolve(val.Columns)
	suffix := `idx`
	if val.Unique {
		suffix = `key`
	}
	parts := append([]string{self.name}, cols...)
	if len(cols) == 0 {
		parts = append(parts, `expr`)
	}
	return strings.Join(append(parts, suffix), `_`)
}

/*
Renders every statement needed to create the table: CREATE TABLE, then
secondary indexes, then COMMENT ON statements on dialects with comments.
*/
func (self *Table) Statements(dialect sqlkit.Dialect) (_ []string, err error) {
	var out []string
	add := func(val sqlkit.Expr) bool {
		var text string
		text, err = sqlkit.Render(val)
		out = append(out, text)
		return err == nil
	}

	if !add(self.CreateTable(dialect)) {
		return nil, err
	}
	for _, val := range self.CreateIndexes(dialect) {
		if !add(val) {
			return nil, err
		}
	}
	if dialect == sqlkit.SQLite {
		return out, nil
	}

	if self.opts.Comment != `` {
		if !add(sqlkit.CommentOn(sqlkit.ObjectTable, self.Key(), self.opts.Comment)) {
			return nil, err
		}
	}
	for _, col := range self.cols {
		if col.comment != `` {
			if !add(sqlkit.CommentOn(sqlkit.ObjectColumn, self.Key()+`.`+col.name, col.comment)) {
				return nil, err
			}
		}
	}
	return out, nil
}

func (self *Table) Select(cols ...string) *sqlkit.SelectBuilder {
	return sqlkit.Select(self.Key(), cols...).Resolver(self.Resolver())
}

func (self *Table) Insert() *sqlkit.InsertBuilder {
	return sqlkit.Insert(self.Key()).Resolver(self.Resolver()).TypeResolver(self.TypeResolver())
}

func (self *Table) Update() *sqlkit.UpdateBuilder {
	return sqlkit.Update(self.Key()).Resolver(self.Resolver()).TypeResolver(self.TypeResolver())
}

func (self *Table) Delete() *sqlkit.DeleteBuilder {
	return sqlkit.Delete(self.Key()).Resolver(self.Resolver())
}

func (self *Table) Count() *sqlkit.CountBuilder {
	return sqlkit.Count(self.Key()).Resolver(self.Resolver())
}
