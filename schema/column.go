/*
Package schema declares tables in Go and renders them for any supported
dialect. A table definition doubles as the column resolver for statement
builders, mapping programmatic keys to SQL names:

	var Users = schema.TryDefineTable(`users`, schema.Cols{
		{Key: `id`, Column: schema.BigSerial().PrimaryKey()},
		{Key: `email`, Column: schema.Varchar(255).NotNull().Unique()},
		{Key: `createdAt`, Column: schema.Timestamptz().Named(`created_at`).DefaultNow()},
	})

	Users.Select(`id`, `createdAt`).Where(func(q *sqlkit.Conds) { q.Equal(`email`, email) })
*/
package schema

import (
	"strconv"
	"strings"

	"github.com/mitranim/sqlkit"
)

/*
Column descriptor. Values are immutable: every method returns an updated copy,
so a base descriptor can be shared between tables.
*/
type Column struct {
	base          string
	params        []string
	name          string
	array         bool
	enum          bool
	notNull       bool
	primaryKey    bool
	unique        bool
	autoIncrement bool
	hasDefault    bool
	dflt          any
	generated     string
	identity      sqlkit.Identity
	collate       string
	check         string
	comment       string
	id            string
	ref           *sqlkit.Reference
}

func SmallInt() Column        { return Column{base: `smallint`} }
func Integer() Column         { return Column{base: `integer`} }
func BigInt() Column          { return Column{base: `bigint`} }
func Serial() Column          { return Column{base: `serial`} }
func SmallSerial() Column     { return Column{base: `smallserial`} }
func BigSerial() Column       { return Column{base: `bigserial`} }
func Real() Column            { return Column{base: `real`} }
func DoublePrecision() Column { return Column{base: `double precision`} }
func Text() Column            { return Column{base: `text`} }
func Citext() Column          { return Column{base: `citext`} }
func Boolean() Column         { return Column{base: `boolean`} }
func UUID() Column            { return Column{base: `uuid`} }
func Date() Column            { return Column{base: `date`} }
func Time() Column            { return Column{base: `time`} }
func Timestamp() Column       { return Column{base: `timestamp`} }
func Timestamptz() Column     { return Column{base: `timestamptz`} }
func Interval() Column        { return Column{base: `interval`} }
func JSON() Column            { return Column{base: `json`} }
func JSONB() Column           { return Column{base: `jsonb`} }
func Bytea() Column           { return Column{base: `bytea`} }
func Blob() Column            { return Column{base: `blob`} }
func Inet() Column            { return Column{base: `inet`} }
func Cidr() Column            { return Column{base: `cidr`} }
func Macaddr() Column         { return Column{base: `macaddr`} }
func Money() Column           { return Column{base: `money`} }
func Tsvector() Column        { return Column{base: `tsvector`} }

// Zero length means unbounded.
func Varchar(length int) Column { return Column{base: `varchar`, params: intParams(length)} }

// Zero length means the backend default.
func Char(length int) Column { return Column{base: `char`, params: intParams(length)} }

// Zero precision means unconstrained; zero scale is omitted.
func Numeric(precision, scale int) Column {
	return Column{base: `numeric`, params: intParams(precision, scale)}
}

func Decimal(precision, scale int) Column {
	return Column{base: `decimal`, params: intParams(precision, scale)}
}

// Column of a user-defined enum type.
func Enum(name string) Column { return Column{base: name, enum: true} }

/*
Column of an arbitrary SQL type such as "numeric(10, 2)", "point" or "text[]".
Parameters and the array suffix are recognized.
*/
func Custom(typ string) Column {
	var out Column
	typ = strings.TrimSpace(typ)

	if strings.HasSuffix(typ, `[]`) {
		out.array = true
		typ = strings.TrimSpace(strings.TrimSuffix(typ, `[]`))
	}

	if ind := strings.IndexByte(typ, '('); ind >= 0 && strings.HasSuffix(typ, `)`) {
		for _, val := range strings.Split(typ[ind+1:len(typ)-1], `,`) {
			if val = strings.TrimSpace(val); val != `` {
				out.params = append(out.params, val)
			}
		}
		typ = strings.TrimSpace(typ[:ind])
	}

	out.base = typ
	return out
}

func intParams(vals ...int) []string {
	var out []string
	for _, val := range vals {
		if val <= 0 {
			break
		}
		out = append(out, strconv.Itoa(val))
	}
	return out
}

func (self Column) NotNull() Column {
	self.notNull = true
	return self
}

func (self Column) Nullable() Column {
	self.notNull = false
	return self
}

// Literal default, or an `sqlkit.Expr` rendered verbatim.
func (self Column) Default(val any) Column {
	self.hasDefault = true
	self.dflt = val
	return self
}

// Trusted SQL default expression such as "gen_random_uuid()".
func (self Column) DefaultSQL(sql string) Column { return self.Default(sqlkit.SqlExpr(sql)) }

func (self Column) DefaultNow() Column { return self.Default(sqlkit.Now()) }

// Implies NOT NULL once the table is defined.
func (self Column) PrimaryKey() Column {
	self.primaryKey = true
	return self
}

func (self Column) Unique() Column {
	self.unique = true
	return self
}

// Serial primary key: AUTOINCREMENT on SQLite, identity elsewhere.
func (self Column) AutoIncrement() Column {
	self.autoIncrement = true
	return self
}

/*
Foreign key to the given table and column SQL names. An empty column
references the target's primary key.
*/
func (self Column) References(table, col string) Column {
	self.ref = &sqlkit.Reference{Table: table, Column: col}
	return self
}

// Sets ON DELETE of the foreign key declared by `References`.
func (self Column) OnDelete(val sqlkit.RefAction) Column {
	return self.withRef(func(ref *sqlkit.Reference) { ref.OnDelete = val })
}

// Sets ON UPDATE of the foreign key declared by `References`.
func (self Column) OnUpdate(val sqlkit.RefAction) Column {
	return self.withRef(func(ref *sqlkit.Reference) { ref.OnUpdate = val })
}

func (self Column) Deferrable(initiallyDeferred bool) Column {
	return self.withRef(func(ref *sqlkit.Reference) {
		ref.Deferrable = true
		ref.InitiallyDeferred = initiallyDeferred
	})
}

func (self Column) withRef(fun func(*sqlkit.Reference)) Column {
	if self.ref == nil {
		return self
	}
	ref := *self.ref
	fun(&ref)
	self.ref = &ref
	return self
}

// Trusted CHECK expression.
func (self Column) Check(expr string) Column {
	self.check = expr
	return self
}

// Stored generated column computed from the trusted expression.
func (self Column) Generated(expr string) Column {
	self.generated = expr
	return self
}

func (self Column) IdentityAlways() Column {
	self.identity = sqlkit.IdentityAlways
	return self
}

func (self Column) IdentityByDefault() Column {
	self.identity = sqlkit.IdentityByDefault
	return self
}

func (self Column) Array() Column {
	self.array = true
	return self
}

func (self Column) Collate(val string) Column {
	self.collate = val
	return self
}

// Rendered as COMMENT ON COLUMN by dialects that support comments.
func (self Column) Comment(val string) Column {
	self.comment = val
	return self
}

// Tracking ID that survives renames.
func (self Column) ID(val string) Column {
	self.id = val
	return self
}

// Overrides the SQL name, which otherwise equals the key.
func (self Column) Named(name string) Column {
	self.name = name
	return self
}

// Full SQL type with parameters and the array suffix.
func (self Column) Type() string {
	out := self.base
	if len(self.params) > 0 {
		out += `(` + strings.Join(self.params, `, `) + `)`
	}
	if self.array {
		out += `[]`
	}
	return out
}

// Read-only view of a column descriptor.
type ColumnDesc struct {
	Key           string
	Name          string
	Type          string
	BaseType      string
	Params        []string
	Array         bool
	Enum          bool
	NotNull       bool
	PrimaryKey    bool
	Unique        bool
	AutoIncrement bool
	HasDefault    bool
	Default       any
	Generated     string
	Identity      sqlkit.Identity
	Collate       string
	Check         string
	Comment       string
	ID            string
	References    *sqlkit.Reference
}

/*
Describes the column. `Key` is empty and `Name` is empty unless overridden by
`Named`; columns obtained from a `Table` have both set.
*/
func (self Column) Describe() ColumnDesc {
	out := ColumnDesc{
		Name:          self.name,
		Type:          self.Type(),
		BaseType:      self.base,
		Params:        append([]string(nil), self.params...),
		Array:         self.array,
		Enum:          self.enum,
		NotNull:       self.notNull,
		PrimaryKey:    self.primaryKey,
		Unique:        self.unique,
		AutoIncrement: self.autoIncrement,
		HasDefault:    self.hasDefault,
		Default:       self.dflt,
		Generated:     self.generated,
		Identity:      self.identity,
		Collate:       self.collate,
		Check:         self.check,
		Comment:       self.comment,
		ID:            self.id,
	}
	if self.ref != nil {
		ref := *self.ref
		out.References = &ref
	}
	return out
}

func (self Column) def(name string) sqlkit.ColumnDef {
	out := sqlkit.ColumnDef{
		Name:          name,
		Type:          self.Type(),
		NotNull:       self.notNull,
		PrimaryKey:    self.primaryKey,
		Unique:        self.unique,
		AutoIncrement: self.autoIncrement,
		Generated:     self.generated,
		Identity:      self.identity,
		Collate:       self.collate,
		Check:         self.check,
	}
	if self.hasDefault {
		out.Default = self.dflt
		if out.Default == nil {
			out.Default = sqlkit.SqlExpr(`NULL`)
		}
	}
	if self.ref != nil {
		ref := *self.ref
		out.References = &ref
	}
	return out
}

func isIntegerType(typ string) bool {
	switch strings.ToLower(typ) {
	case `smallint`, `integer`, `int`, `int2`, `int4`, `int8`, `bigint`:
		return true
	}
	return false
}
