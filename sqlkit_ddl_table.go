package sqlkit

import (
	"strconv"
	"strings"
)

/*
Column definition used by CREATE TABLE and ALTER TABLE ADD COLUMN. Rendering is
dialect-aware: autoincrement renders as `AUTOINCREMENT` on SQLite and as an
identity column on PostgreSQL-family dialects.
*/
type ColumnDef struct {
	Name          string
	Type          string
	NotNull       bool
	PrimaryKey    bool
	Unique        bool
	AutoIncrement bool

	// Literal value, or an `Expr` rendered verbatim, such as `Now()`.
	Default any

	// Expression of a stored generated column.
	Generated string

	Identity    Identity
	Collate     string
	Check       string
	References  *Reference
	Storage     string
	Compression string
}

// Kind of identity column.
type Identity string

const (
	IdentityNone      Identity = ``
	IdentityAlways    Identity = `ALWAYS`
	IdentityByDefault Identity = `BY DEFAULT`
)

// Foreign key target and referential actions.
type Reference struct {
	Table             string
	Column            string
	OnDelete          RefAction
	OnUpdate          RefAction
	Deferrable        bool
	InitiallyDeferred bool
}

// Referential action of a foreign key.
type RefAction string

const (
	RefNoAction   RefAction = `NO ACTION`
	RefRestrict   RefAction = `RESTRICT`
	RefCascade    RefAction = `CASCADE`
	RefSetNull    RefAction = `SET NULL`
	RefSetDefault RefAction = `SET DEFAULT`
)

// Base types rendered in upper case. Other types, such as enum names, are
// rendered as given.
var knownTypes = map[string]bool{
	`smallint`: true, `integer`: true, `int`: true, `int2`: true, `int4`: true,
	`int8`: true, `bigint`: true, `serial`: true, `smallserial`: true,
	`bigserial`: true, `real`: true, `float`: true, `float4`: true, `float8`: true,
	`double precision`: true, `numeric`: true, `decimal`: true, `text`: true,
	`varchar`: true, `character varying`: true, `char`: true, `character`: true,
	`citext`: true, `boolean`: true, `bool`: true, `uuid`: true, `date`: true,
	`time`: true, `timetz`: true, `timestamp`: true, `timestamptz`: true,
	`interval`: true, `json`: true, `jsonb`: true, `bytea`: true, `blob`: true,
	`inet`: true, `cidr`: true, `macaddr`: true, `money`: true, `tsvector`: true,
	`tsquery`: true, `xml`: true, `point`: true, `any`: true,
	`timestamp with time zone`: true, `timestamp without time zone`: true,
}

// Upper-cases known base types, preserving parameters and array suffixes.
func formatType(typ string) string {
	typ = strings.TrimSpace(typ)
	base := strings.ToLower(typ)
	if ind := strings.IndexAny(base, `([`); ind >= 0 {
		base = strings.TrimSpace(base[:ind])
	}
	if knownTypes[base] {
		return strings.ToUpper(typ)
	}
	return typ
}

func isIntegerType(typ string) bool {
	switch strings.ToLower(strings.TrimSpace(typ)) {
	case `smallint`, `integer`, `int`, `int2`, `int4`, `int8`, `bigint`:
		return true
	}
	return false
}

func appendColumnDef(bui *Bui, col ColumnDef, dialect Dialect) {
	if col.Name == `` {
		panic(errBuilder(`column definition`, `name`, `every column needs a name`))
	}
	if col.Type == `` {
		panic(errBuilder(`column definition`, `type of `+col.Name, `every column needs a type`))
	}
	if col.Generated != `` && col.Default != nil {
		panic(errBuilderInvalid(`column definition`, col.Name, errf(`a generated column can't have a default`)))
	}

	bui.Ident(col.Name)
	bui.Str(formatType(col.Type))

	if col.Collate != `` {
		bui.Str(`COLLATE`)
		bui.Ident(col.Collate)
	}

	if col.Generated != `` {
		bui.Str(`GENERATED ALWAYS AS (`)
		bui.Raw(col.Generated)
		bui.Raw(`) STORED`)
	}

	identity := col.Identity
	if dialect == SQLite {
		identity = IdentityNone
	} else if col.AutoIncrement && identity == IdentityNone {
		identity = IdentityByDefault
	}
	if identity != IdentityNone {
		if !isIntegerType(col.Type) {
			panic(errBuilderInvalid(`column definition`, col.Name, errf(`identity requires an integer type, got %q`, col.Type)))
		}
		bui.Str(`GENERATED`)
		bui.Str(string(identity))
		bui.Str(`AS IDENTITY`)
	}

	if col.PrimaryKey {
		bui.Str(`PRIMARY KEY`)
		if col.AutoIncrement && dialect == SQLite {
			bui.Str(`AUTOINCREMENT`)
		}
	} else if col.AutoIncrement && dialect == SQLite {
		panic(errBuilderInvalid(`column definition`, col.Name, errf(`SQLite AUTOINCREMENT requires PRIMARY KEY`)))
	}

	if col.NotNull && !col.PrimaryKey {
		bui.Str(`NOT NULL`)
	}
	if col.Unique {
		bui.Str(`UNIQUE`)
	}
	if col.Default != nil {
		bui.Str(`DEFAULT`)
		appendDefault(bui, col.Default)
	}
	if col.Check != `` {
		bui.Str(`CHECK (`)
		bui.Raw(col.Check)
		bui.Raw(`)`)
	}
	if col.References != nil {
		col.References.append(bui)
	}
	if col.Storage != `` && dialect != SQLite {
		bui.Str(`STORAGE`)
		bui.Str(strings.ToUpper(col.Storage))
	}
	if col.Compression != `` && dialect != SQLite {
		bui.Str(`COMPRESSION`)
		bui.Str(col.Compression)
	}
}

// Expressions render verbatim; anything else renders as a literal.
func appendDefault(bui *Bui, val any) {
	switch val := val.(type) {
	case Expr:
		bui.Expr(val)
	default:
		bui.Lit(val)
	}
}

func (self Reference) append(bui *Bui) {
	if self.Table == `` {
		panic(errBuilder(`reference`, `table`, `foreign keys need a target table`))
	}
	bui.Str(`REFERENCES`)
	bui.Name(self.Table)
	if self.Column != `` {
		bui.Str(`(`)
		bui.Ident(self.Column)
		bui.Raw(`)`)
	}
	bui.Set(appendRefActions(bui.Text, self))
}

// Kind of a table-level constraint.
type ConstraintKind string

const (
	ConstraintPrimaryKey ConstraintKind = `PRIMARY KEY`
	ConstraintUnique     ConstraintKind = `UNIQUE`
	ConstraintForeignKey ConstraintKind = `FOREIGN KEY`
	ConstraintCheck      ConstraintKind = `CHECK`
	ConstraintExclude    ConstraintKind = `EXCLUDE`
)

/*
Table-level constraint. Foreign keys use `References` with `RefColumns` for the
target columns. `Expr` holds the CHECK expression or the EXCLUDE body, such as
"USING gist (room WITH =, during WITH &&)".
*/
type TableConstraint struct {
	Name       string
	Kind       ConstraintKind
	Columns    []string
	References *Reference
	RefColumns []string
	Expr       string
}

func (self TableConstraint) append(bui *Bui) {
	if self.Name != `` {
		bui.Str(`CONSTRAINT`)
		bui.Ident(self.Name)
	}

	switch self.Kind {
	case ConstraintPrimaryKey, ConstraintUnique:
		self.requireCols()
		bui.Str(string(self.Kind))
		bui.IdentList(self.Columns)

	case ConstraintForeignKey:
		self.requireCols()
		if self.References == nil || self.References.Table == `` {
			panic(errBuilder(`constraint`, `references`, `foreign keys need TableConstraint.References`))
		}
		bui.Str(`FOREIGN KEY`)
		bui.IdentList(self.Columns)
		refCols := self.RefColumns
		if len(refCols) == 0 && self.References.Column != `` {
			refCols = []string{self.References.Column}
		}
		bui.Str(`REFERENCES`)
		bui.Name(self.References.Table)
		if len(refCols) > 0 {
			bui.IdentList(refCols)
		}
		bui.Set(appendRefActions(bui.Text, *self.References))

	case ConstraintCheck:
		if self.Expr == `` {
			panic(errBuilder(`constraint`, `check expression`, `set TableConstraint.Expr`))
		}
		bui.Str(`CHECK (`)
		bui.Raw(self.Expr)
		bui.Raw(`)`)

	case ConstraintExclude:
		if self.Expr == `` {
			panic(errBuilder(`constraint`, `exclude body`, `set TableConstraint.Expr`))
		}
		bui.Str(`EXCLUDE`)
		bui.Str(self.Expr)

	default:
		panic(errBuilder(`constraint`, `kind`, `use one of the Constraint* kinds`))
	}
}

func appendRefActions(text []byte, ref Reference) []byte {
	bui := Bui{text}
	if ref.OnDelete != `` {
		bui.Str(`ON DELETE`)
		bui.Str(string(ref.OnDelete))
	}
	if ref.OnUpdate != `` {
		bui.Str(`ON UPDATE`)
		bui.Str(string(ref.OnUpdate))
	}
	if ref.Deferrable {
		bui.Str(`DEFERRABLE`)
		if ref.InitiallyDeferred {
			bui.Str(`INITIALLY DEFERRED`)
		}
	}
	return bui.Text
}

func (self TableConstraint) requireCols() {
	if len(self.Columns) == 0 {
		panic(errBuilder(`constraint`, `columns`, string(self.Kind)+` needs at least one column`))
	}
}

// Partitioning strategy.
type PartitionMethod string

const (
	PartitionRange PartitionMethod = `RANGE`
	PartitionList  PartitionMethod = `LIST`
	PartitionHash  PartitionMethod = `HASH`
)

// Partition key of a partitioned table. `Expr` is an alternative to columns.
type PartitionBy struct {
	Method  PartitionMethod
	Columns []string
	Expr    string
}

func (self PartitionBy) append(bui *Bui) {
	if self.Method == `` {
		panic(errBuilder(`partition`, `method`, `use PartitionRange, PartitionList, or PartitionHash`))
	}
	bui.Str(`PARTITION BY`)
	bui.Str(string(self.Method))
	switch {
	case self.Expr != ``:
		bui.Str(`((`)
		bui.Raw(self.Expr)
		bui.Raw(`))`)
	case len(self.Columns) > 0:
		bui.IdentList(self.Columns)
	default:
		panic(errBuilder(`partition`, `key`, `set PartitionBy.Columns or PartitionBy.Expr`))
	}
}

/*
Starts a CREATE TABLE statement.

	sqlkit.CreateTable(`users`).
		Dialect(sqlkit.SQLite).
		Column(sqlkit.ColumnDef{Name: `id`, Type: `integer`, PrimaryKey: true, AutoIncrement: true}).
		Column(sqlkit.ColumnDef{Name: `name`, Type: `text`, NotNull: true})
*/
func CreateTable(name string) *CreateTableBuilder {
	return &CreateTableBuilder{name: name}
}

type CreateTableBuilder struct {
	name         string
	dialect      Dialect
	cols         []ColumnDef
	constraints  []TableConstraint
	partition    *PartitionBy
	inherits     []string
	with         Vals
	tablespace   string
	ifNotExists  bool
	temporary    bool
	unlogged     bool
	strict       bool
	withoutRowID bool
}

func (self *CreateTableBuilder) Dialect(val Dialect) *CreateTableBuilder {
	self.dialect = val
	return self
}

func (self *CreateTableBuilder) Column(val ColumnDef) *CreateTableBuilder {
	self.cols = append(self.cols, val)
	return self
}

func (self *CreateTableBuilder) Columns(vals ...ColumnDef) *CreateTableBuilder {
	self.cols = append(self.cols, vals...)
	return self
}

func (self *CreateTableBuilder) Constraint(val TableConstraint) *CreateTableBuilder {
	self.constraints = append(self.constraints, val)
	return self
}

func (self *CreateTableBuilder) PartitionBy(val PartitionBy) *CreateTableBuilder {
	self.partition = &val
	return self
}

func (self *CreateTableBuilder) Inherits(tables ...string) *CreateTableBuilder {
	self.inherits = append(self.inherits, tables...)
	return self
}

// Appends a storage parameter: `WITH (key = val)`.
func (self *CreateTableBuilder) With(key string, val any) *CreateTableBuilder {
	self.with.Add(key, val)
	return self
}

// Appends an autovacuum storage parameter, prefixing the key with
// "autovacuum_".
func (self *CreateTableBuilder) Autovacuum(key string, val any) *CreateTableBuilder {
	return self.With(`autovacuum_`+key, val)
}

func (self *CreateTableBuilder) Tablespace(val string) *CreateTableBuilder {
	self.tablespace = val
	return self
}

func (self *CreateTableBuilder) IfNotExists() *CreateTableBuilder {
	self.ifNotExists = true
	return self
}

func (self *CreateTableBuilder) Temporary() *CreateTableBuilder {
	self.temporary = true
	return self
}

func (self *CreateTableBuilder) Unlogged() *CreateTableBuilder {
	self.unlogged = true
	return self
}

// SQLite only.
func (self *CreateTableBuilder) Strict() *CreateTableBuilder {
	self.strict = true
	return self
}

// SQLite only. Requires a primary key and forbids autoincrement.
func (self *CreateTableBuilder) WithoutRowID() *CreateTableBuilder {
	self.withoutRowID = true
	return self
}

func (self *CreateTableBuilder) hasPrimaryKey() bool {
	for _, col := range self.cols {
		if col.PrimaryKey {
			return true
		}
	}
	for _, val := range self.constraints {
		if val.Kind == ConstraintPrimaryKey {
			return true
		}
	}
	return false
}

func (self *CreateTableBuilder) validate() {
	if self.name == `` {
		panic(errBuilder(`create table`, `name`, `pass a table name to CreateTable`))
	}
	if len(self.cols) == 0 && self.partition == nil && len(self.inherits) == 0 {
		panic(errBuilder(`create table`, `columns`, `add at least one column`))
	}
	if self.temporary && self.unlogged {
		panic(errBuilderInvalid(`create table`, `flags`, errf(`a table can't be both TEMPORARY and UNLOGGED`)))
	}

	var pks int
	for _, col := range self.cols {
		if col.PrimaryKey {
			pks++
		}
	}
	for _, val := range self.constraints {
		if val.Kind == ConstraintPrimaryKey {
			pks++
		}
	}
	if pks > 1 {
		panic(errBuilderInvalid(`create table`, `primary key`, errf(`table %q declares %v primary keys`, self.name, pks)))
	}

	if self.dialect == SQLite {
		switch {
		case self.unlogged:
			panic(errUnsupported(`create table`, `UNLOGGED`, self.dialect))
		case self.partition != nil:
			panic(errUnsupported(`create table`, `PARTITION BY`, self.dialect))
		case len(self.inherits) > 0:
			panic(errUnsupported(`create table`, `INHERITS`, self.dialect))
		case len(self.with) > 0:
			panic(errUnsupported(`create table`, `WITH storage parameters`, self.dialect))
		case self.tablespace != ``:
			panic(errUnsupported(`create table`, `TABLESPACE`, self.dialect))
		}
		if self.withoutRowID {
			if !self.hasPrimaryKey() {
				panic(errBuilder(`create table`, `primary key`, `WITHOUT ROWID tables need an explicit primary key`))
			}
			for _, col := range self.cols {
				if col.AutoIncrement {
					panic(errBuilderInvalid(`create table`, col.Name, errf(`WITHOUT ROWID tables can't use AUTOINCREMENT`)))
				}
			}
		}
		return
	}

	if self.strict {
		panic(errUnsupported(`create table`, `STRICT`, self.dialect))
	}
	if self.withoutRowID {
		panic(errUnsupported(`create table`, `WITHOUT ROWID`, self.dialect))
	}
}

func errUnsupported(builder, feature string, dialect Dialect) ErrBuilder {
	return ErrBuilder{
		Err:     makeErr(`rendering `+builder, errf(`%v is not supported by %v`, feature, dialectName(dialect)), 3),
		Builder: builder,
		Missing: feature,
		Hint:    `remove ` + feature + ` or choose another dialect`,
	}
}

func dialectName(val Dialect) Dialect {
	if val == `` {
		return Postgres
	}
	return val
}

// Implement the `Expr` interface, making this a sub-expression.
func (self *CreateTableBuilder) AppendExpr(text []byte) []byte {
	self.validate()

	bui := Bui{text}
	bui.Str(`CREATE`)
	if self.temporary {
		bui.Str(`TEMPORARY`)
	}
	if self.unlogged {
		bui.Str(`UNLOGGED`)
	}
	bui.Str(`TABLE`)
	if self.ifNotExists {
		bui.Str(`IF NOT EXISTS`)
	}
	bui.Name(self.name)

	bui.Str(`(`)
	var found bool
	for _, col := range self.cols {
		if found {
			bui.Raw(`,`)
		}
		found = true
		appendColumnDef(&bui, col, self.dialect)
	}
	for _, val := range self.constraints {
		if found {
			bui.Raw(`,`)
		}
		found = true
		val.append(&bui)
	}
	bui.Raw(`)`)

	if len(self.inherits) > 0 {
		bui.Str(`INHERITS (`)
		for ind, name := range self.inherits {
			if ind > 0 {
				bui.Raw(`, `)
			}
			bui.Name(name)
		}
		bui.Raw(`)`)
	}
	if self.partition != nil {
		self.partition.append(&bui)
	}
	appendStorageParams(&bui, self.with)
	if self.tablespace != `` {
		bui.Str(`TABLESPACE`)
		bui.Ident(self.tablespace)
	}

	switch {
	case self.strict && self.withoutRowID:
		bui.Str(`STRICT, WITHOUT ROWID`)
	case self.strict:
		bui.Str(`STRICT`)
	case self.withoutRowID:
		bui.Str(`WITHOUT ROWID`)
	}
	return bui.Text
}

// Implement the `fmt.Stringer` interface. Panics on misuse; see `Build`.
func (self *CreateTableBuilder) String() string { return exprString(self) }

// Renders the statement, converting misuse panics to errors.
func (self *CreateTableBuilder) Build() (string, error) { return Render(self) }

// Renders `WITH (key = val, ...)`. Keys are emitted verbatim and must be
// trusted parameter names.
func appendStorageParams(bui *Bui, params Vals) {
	if len(params) == 0 {
		return
	}
	bui.Str(`WITH (`)
	for ind, val := range params {
		if ind > 0 {
			bui.Raw(`, `)
		}
		bui.Raw(val.Key)
		bui.Raw(` = `)
		bui.Text = appendParamValue(bui.Text, val.Value)
	}
	bui.Raw(`)`)
}

func appendParamValue(text []byte, val any) []byte {
	switch val := val.(type) {
	case bool:
		return strconv.AppendBool(text, val)
	case Expr:
		return val.AppendExpr(text)
	default:
		return appendLiteral(text, val, false)
	}
}

/*
Starts a DROP TABLE statement for one or more tables.
*/
func DropTable(names ...string) *DropBuilder { return newDrop(`TABLE`, names) }

/*
Generic DROP statement builder shared by tables, indexes, triggers, functions,
views, sequences, schemas, and roles.
*/
type DropBuilder struct {
	kind         string
	names        []string
	on           string
	ifExists     bool
	cascade      bool
	restrict     bool
	concurrently bool
	args         map[string][]string
}

func newDrop(kind string, names []string) *DropBuilder {
	return &DropBuilder{kind: kind, names: copyStrings(names)}
}

func (self *DropBuilder) IfExists() *DropBuilder {
	self.ifExists = true
	return self
}

func (self *DropBuilder) Cascade() *DropBuilder {
	self.cascade = true
	return self
}

func (self *DropBuilder) Restrict() *DropBuilder {
	self.restrict = true
	return self
}

// DROP INDEX only.
func (self *DropBuilder) Concurrently() *DropBuilder {
	self.concurrently = true
	return self
}

// Implement the `Expr` interface, making this a sub-expression.
func (self *DropBuilder) AppendExpr(text []byte) []byte {
	builder := `drop ` + strings.ToLower(self.kind)
	if len(self.names) == 0 {
		panic(errBuilder(builder, `name`, `pass at least one name`))
	}
	if self.cascade && self.restrict {
		panic(errBuilderInvalid(builder, `behavior`, errf(`CASCADE and RESTRICT are mutually exclusive`)))
	}

	bui := Bui{text}
	bui.Str(`DROP`)
	bui.Str(self.kind)
	if self.concurrently {
		bui.Str(`CONCURRENTLY`)
	}
	if self.ifExists {
		bui.Str(`IF EXISTS`)
	}
	for ind, name := range self.names {
		if ind > 0 {
			bui.Raw(`,`)
		}
		bui.Name(name)
		if args, ok := self.args[name]; ok {
			bui.Raw(`(`)
			bui.Raw(strings.Join(args, `, `))
			bui.Raw(`)`)
		}
	}
	if self.on != `` {
		bui.Str(`ON`)
		bui.Name(self.on)
	}
	if self.cascade {
		bui.Str(`CASCADE`)
	}
	if self.restrict {
		bui.Str(`RESTRICT`)
	}
	return bui.Text
}

// Implement the `fmt.Stringer` interface. Panics on misuse; see `Build`.
func (self *DropBuilder) String() string { return exprString(self) }

// Renders the statement, converting misuse panics to errors.
func (self *DropBuilder) Build() (string, error) { return Render(self) }
