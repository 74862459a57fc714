package sqlkit

import (
	"strconv"
	"strings"
	"time"
)

// Argument of a function signature.
type FuncArg struct {
	Name    string
	Type    string
	Mode    string
	Default any
}

/*
Starts a CREATE FUNCTION statement. The body is quoted with a dollar tag that
doesn't occur in the body.

	sqlkit.CreateFunction(`touch_updated_at`).
		OrReplace().
		Returns(`trigger`).
		Body(`BEGIN NEW.updated_at = now(); RETURN NEW; END`)
*/
func CreateFunction(name string) *FunctionBuilder {
	return &FunctionBuilder{name: name, language: `plpgsql`}
}

type FunctionBuilder struct {
	name       string
	args       []FuncArg
	returns    string
	language   string
	body       string
	volatility string
	parallel   string
	orReplace  bool
	strict     bool
	definer    bool
}

func (self *FunctionBuilder) OrReplace() *FunctionBuilder {
	self.orReplace = true
	return self
}

func (self *FunctionBuilder) Arg(val FuncArg) *FunctionBuilder {
	self.args = append(self.args, val)
	return self
}

func (self *FunctionBuilder) Args(vals ...FuncArg) *FunctionBuilder {
	self.args = append(self.args, vals...)
	return self
}

// Return type such as "trigger", "integer", or "TABLE (id bigint)".
func (self *FunctionBuilder) Returns(typ string) *FunctionBuilder {
	self.returns = typ
	return self
}

// Defaults to "plpgsql".
func (self *FunctionBuilder) Language(val string) *FunctionBuilder {
	self.language = val
	return self
}

func (self *FunctionBuilder) Body(val string) *FunctionBuilder {
	self.body = val
	return self
}

func (self *FunctionBuilder) Immutable() *FunctionBuilder { return self.setVolatility(`IMMUTABLE`) }
func (self *FunctionBuilder) Stable() *FunctionBuilder    { return self.setVolatility(`STABLE`) }
func (self *FunctionBuilder) Volatile() *FunctionBuilder  { return self.setVolatility(`VOLATILE`) }

func (self *FunctionBuilder) setVolatility(val string) *FunctionBuilder {
	self.volatility = val
	return self
}

// One of "SAFE", "RESTRICTED", "UNSAFE".
func (self *FunctionBuilder) Parallel(val string) *FunctionBuilder {
	self.parallel = strings.ToUpper(val)
	return self
}

func (self *FunctionBuilder) Strict() *FunctionBuilder {
	self.strict = true
	return self
}

func (self *FunctionBuilder) SecurityDefiner() *FunctionBuilder {
	self.definer = true
	return self
}

// Implement the `Expr` interface, making this a sub-expression.
func (self *FunctionBuilder) AppendExpr(text []byte) []byte {
	switch {
	case self.name == ``:
		panic(errBuilder(`create function`, `name`, `pass a function name to CreateFunction`))
	case self.returns == ``:
		panic(errBuilder(`create function`, `return type`, `call Returns(type)`))
	case self.body == ``:
		panic(errBuilder(`create function`, `body`, `call Body(sql)`))
	}
	switch self.parallel {
	case ``, `SAFE`, `RESTRICTED`, `UNSAFE`:
	default:
		panic(errBuilderInvalid(`create function`, `parallel`, errf(`unknown PARALLEL mode %q`, self.parallel)))
	}

	bui := Bui{text}
	bui.Str(`CREATE`)
	if self.orReplace {
		bui.Str(`OR REPLACE`)
	}
	bui.Str(`FUNCTION`)
	bui.Name(self.name)
	bui.Raw(`(`)
	for ind, arg := range self.args {
		if ind > 0 {
			bui.Raw(`, `)
		}
		if arg.Type == `` {
			panic(errBuilder(`create function`, `argument type`, `every FuncArg needs a type`))
		}
		if arg.Mode != `` {
			bui.Str(strings.ToUpper(arg.Mode))
		}
		if arg.Name != `` {
			bui.Ident(arg.Name)
		}
		bui.Str(formatType(arg.Type))
		if arg.Default != nil {
			bui.Str(`DEFAULT`)
			appendDefault(&bui, arg.Default)
		}
	}
	bui.Raw(`)`)

	bui.Str(`RETURNS`)
	bui.Str(self.returns)
	bui.Str(`LANGUAGE`)
	bui.Str(self.language)
	if self.volatility != `` {
		bui.Str(self.volatility)
	}
	if self.strict {
		bui.Str(`STRICT`)
	}
	if self.definer {
		bui.Str(`SECURITY DEFINER`)
	}
	if self.parallel != `` {
		bui.Str(`PARALLEL`)
		bui.Str(self.parallel)
	}

	tag := dollarTag(self.body)
	bui.Str(`AS`)
	bui.Str(tag)
	bui.Raw(self.body)
	bui.Raw(tag)
	return bui.Text
}

// Returns "$$", or "$fn$", "$fn1$", ..., whichever doesn't occur in the body.
func dollarTag(body string) string {
	if !strings.Contains(body, `$$`) {
		return `$$`
	}
	for ind := 0; ; ind++ {
		tag := `$fn$`
		if ind > 0 {
			tag = `$fn` + strconv.Itoa(ind) + `$`
		}
		if !strings.Contains(body, tag) {
			return tag
		}
	}
}

// Implement the `fmt.Stringer` interface. Panics on misuse; see `Build`.
func (self *FunctionBuilder) String() string { return exprString(self) }

// Renders the statement, converting misuse panics to errors.
func (self *FunctionBuilder) Build() (string, error) { return Render(self) }

/*
Starts a DROP FUNCTION statement. Argument types, when provided, disambiguate
overloads: `"fn"(integer, text)`.
*/
func DropFunction(name string, argTypes ...string) *DropBuilder {
	out := newDrop(`FUNCTION`, []string{name})
	if len(argTypes) > 0 {
		out.args = map[string][]string{name: argTypes}
	}
	return out
}

/*
Starts a CREATE VIEW statement. The query may be any `Expr`, usually a
builder, or a string of trusted SQL.
*/
func CreateView(name string, query any) *ViewBuilder {
	return &ViewBuilder{name: name, query: toExpr(query)}
}

// Shortcut for `CreateView(name, query).Materialized()`.
func CreateMaterializedView(name string, query any) *ViewBuilder {
	return CreateView(name, query).Materialized()
}

type ViewBuilder struct {
	name         string
	query        Expr
	cols         []string
	check        string
	data         *bool
	orReplace    bool
	materialized bool
	temporary    bool
	ifNotExists  bool
}

func (self *ViewBuilder) OrReplace() *ViewBuilder {
	self.orReplace = true
	return self
}

func (self *ViewBuilder) Materialized() *ViewBuilder {
	self.materialized = true
	return self
}

func (self *ViewBuilder) Temporary() *ViewBuilder {
	self.temporary = true
	return self
}

// Materialized views only.
func (self *ViewBuilder) IfNotExists() *ViewBuilder {
	self.ifNotExists = true
	return self
}

func (self *ViewBuilder) Columns(cols ...string) *ViewBuilder {
	self.cols = append(self.cols, cols...)
	return self
}

// One of "LOCAL" or "CASCADED".
func (self *ViewBuilder) CheckOption(val string) *ViewBuilder {
	self.check = strings.ToUpper(val)
	return self
}

// Materialized views only: `WITH DATA` or `WITH NO DATA`.
func (self *ViewBuilder) WithData(val bool) *ViewBuilder {
	self.data = &val
	return self
}

// Implement the `Expr` interface, making this a sub-expression.
func (self *ViewBuilder) AppendExpr(text []byte) []byte {
	switch {
	case self.name == ``:
		panic(errBuilder(`create view`, `name`, `pass a view name to CreateView`))
	case self.query == nil:
		panic(errBuilder(`create view`, `query`, `pass a query to CreateView`))
	case self.materialized && self.orReplace:
		panic(errBuilderInvalid(`create view`, `OR REPLACE`, errf(`materialized views can't be replaced; drop and recreate`)))
	case self.materialized && self.check != ``:
		panic(errBuilderInvalid(`create view`, `CHECK OPTION`, errf(`materialized views don't support CHECK OPTION`)))
	case !self.materialized && self.data != nil:
		panic(errBuilderInvalid(`create view`, `WITH DATA`, errf(`only materialized views take WITH [NO] DATA`)))
	case !self.materialized && self.ifNotExists:
		panic(errBuilderInvalid(`create view`, `IF NOT EXISTS`, errf(`only materialized views take IF NOT EXISTS`)))
	}
	switch self.check {
	case ``, `LOCAL`, `CASCADED`:
	default:
		panic(errBuilderInvalid(`create view`, `CHECK OPTION`, errf(`unknown check option %q`, self.check)))
	}

	bui := Bui{text}
	bui.Str(`CREATE`)
	if self.orReplace {
		bui.Str(`OR REPLACE`)
	}
	if self.temporary {
		bui.Str(`TEMPORARY`)
	}
	if self.materialized {
		bui.Str(`MATERIALIZED`)
	}
	bui.Str(`VIEW`)
	if self.ifNotExists {
		bui.Str(`IF NOT EXISTS`)
	}
	bui.Name(self.name)
	if len(self.cols) > 0 {
		bui.IdentList(self.cols)
	}
	bui.Str(`AS`)
	bui.Expr(self.query)

	if self.data != nil {
		if *self.data {
			bui.Str(`WITH DATA`)
		} else {
			bui.Str(`WITH NO DATA`)
		}
	}
	if self.check != `` {
		bui.Str(`WITH`)
		bui.Str(self.check)
		bui.Str(`CHECK OPTION`)
	}
	return bui.Text
}

// Implement the `fmt.Stringer` interface. Panics on misuse; see `Build`.
func (self *ViewBuilder) String() string { return exprString(self) }

// Renders the statement, converting misuse panics to errors.
func (self *ViewBuilder) Build() (string, error) { return Render(self) }

// Starts a DROP VIEW statement.
func DropView(names ...string) *DropBuilder { return newDrop(`VIEW`, names) }

// Starts a DROP MATERIALIZED VIEW statement.
func DropMaterializedView(names ...string) *DropBuilder {
	return newDrop(`MATERIALIZED VIEW`, names)
}

// Renders `REFRESH MATERIALIZED VIEW name`.
func RefreshMaterializedView(name string) *RefreshStmt {
	return &RefreshStmt{Name: name}
}

type RefreshStmt struct {
	Name       string
	Concurrent bool
	NoData     bool
}

func (self *RefreshStmt) Concurrently() *RefreshStmt {
	self.Concurrent = true
	return self
}

func (self *RefreshStmt) WithNoData() *RefreshStmt {
	self.NoData = true
	return self
}

// Implement the `Expr` interface, making this a sub-expression.
func (self *RefreshStmt) AppendExpr(text []byte) []byte {
	if self.Name == `` {
		panic(errBuilder(`refresh materialized view`, `name`, `pass a view name`))
	}
	if self.Concurrent && self.NoData {
		panic(errBuilderInvalid(`refresh materialized view`, `WITH NO DATA`, errf(`CONCURRENTLY can't be combined with WITH NO DATA`)))
	}
	bui := Bui{text}
	bui.Str(`REFRESH MATERIALIZED VIEW`)
	if self.Concurrent {
		bui.Str(`CONCURRENTLY`)
	}
	bui.Name(self.Name)
	if self.NoData {
		bui.Str(`WITH NO DATA`)
	}
	return bui.Text
}

// Implement the `fmt.Stringer` interface. Panics on misuse.
func (self *RefreshStmt) String() string { return exprString(self) }

// Starts a CREATE SEQUENCE statement.
func CreateSequence(name string) *SequenceBuilder { return &SequenceBuilder{name: name} }

// Starts an ALTER SEQUENCE statement. At least one option is required.
func AlterSequence(name string) *SequenceBuilder {
	return &SequenceBuilder{name: name, alter: true}
}

type SequenceBuilder struct {
	name     string
	alter    bool
	exists   bool
	temp     bool
	opts     []string
	restart  *int64
	restarts bool
	ownedBy  string
}

// Renders `IF NOT EXISTS` on CREATE and `IF EXISTS` on ALTER.
func (self *SequenceBuilder) IfExists() *SequenceBuilder {
	self.exists = true
	return self
}

// Synonym of `IfExists`, reading better on CREATE.
func (self *SequenceBuilder) IfNotExists() *SequenceBuilder { return self.IfExists() }

func (self *SequenceBuilder) Temporary() *SequenceBuilder {
	self.temp = true
	return self
}

func (self *SequenceBuilder) opt(val string) *SequenceBuilder {
	self.opts = append(self.opts, val)
	return self
}

func (self *SequenceBuilder) As(typ string) *SequenceBuilder {
	return self.opt(`AS ` + formatType(typ))
}

func (self *SequenceBuilder) IncrementBy(val int64) *SequenceBuilder {
	return self.opt(`INCREMENT BY ` + strconv.FormatInt(val, 10))
}

func (self *SequenceBuilder) MinValue(val int64) *SequenceBuilder {
	return self.opt(`MINVALUE ` + strconv.FormatInt(val, 10))
}

func (self *SequenceBuilder) MaxValue(val int64) *SequenceBuilder {
	return self.opt(`MAXVALUE ` + strconv.FormatInt(val, 10))
}

func (self *SequenceBuilder) NoMinValue() *SequenceBuilder { return self.opt(`NO MINVALUE`) }
func (self *SequenceBuilder) NoMaxValue() *SequenceBuilder { return self.opt(`NO MAXVALUE`) }

func (self *SequenceBuilder) Start(val int64) *SequenceBuilder {
	return self.opt(`START WITH ` + strconv.FormatInt(val, 10))
}

func (self *SequenceBuilder) Cache(val int64) *SequenceBuilder {
	return self.opt(`CACHE ` + strconv.FormatInt(val, 10))
}

func (self *SequenceBuilder) Cycle(val bool) *SequenceBuilder {
	if val {
		return self.opt(`CYCLE`)
	}
	return self.opt(`NO CYCLE`)
}

// Column owning the sequence, as "table.column", or "NONE".
func (self *SequenceBuilder) OwnedBy(val string) *SequenceBuilder {
	self.ownedBy = val
	return self
}

// ALTER only. Without an argument, restarts from the start value.
func (self *SequenceBuilder) Restart(val ...int64) *SequenceBuilder {
	self.restarts = true
	if len(val) > 0 {
		self.restart = &val[0]
	}
	return self
}

// Implement the `Expr` interface, making this a sub-expression.
func (self *SequenceBuilder) AppendExpr(text []byte) []byte {
	builder := `create sequence`
	if self.alter {
		builder = `alter sequence`
	}
	if self.name == `` {
		panic(errBuilder(builder, `name`, `pass a sequence name`))
	}
	if self.alter {
		if len(self.opts) == 0 && !self.restarts && self.ownedBy == `` {
			panic(errBuilder(builder, `options`, `set at least one option such as IncrementBy or Restart`))
		}
		if self.temp {
			panic(errBuilderInvalid(builder, `TEMPORARY`, errf(`only CREATE SEQUENCE takes TEMPORARY`)))
		}
	} else if self.restarts {
		panic(errBuilderInvalid(builder, `RESTART`, errf(`only ALTER SEQUENCE takes RESTART`)))
	}

	bui := Bui{text}
	if self.alter {
		bui.Str(`ALTER`)
	} else {
		bui.Str(`CREATE`)
		if self.temp {
			bui.Str(`TEMPORARY`)
		}
	}
	bui.Str(`SEQUENCE`)
	if self.exists {
		if self.alter {
			bui.Str(`IF EXISTS`)
		} else {
			bui.Str(`IF NOT EXISTS`)
		}
	}
	bui.Name(self.name)

	for _, opt := range self.opts {
		bui.Str(opt)
	}
	if self.restarts {
		bui.Str(`RESTART`)
		if self.restart != nil {
			bui.Str(`WITH ` + strconv.FormatInt(*self.restart, 10))
		}
	}
	if self.ownedBy != `` {
		bui.Str(`OWNED BY`)
		if strings.EqualFold(self.ownedBy, `none`) {
			bui.Str(`NONE`)
		} else {
			bui.Name(self.ownedBy)
		}
	}
	return bui.Text
}

// Implement the `fmt.Stringer` interface. Panics on misuse; see `Build`.
func (self *SequenceBuilder) String() string { return exprString(self) }

// Renders the statement, converting misuse panics to errors.
func (self *SequenceBuilder) Build() (string, error) { return Render(self) }

// Starts a DROP SEQUENCE statement.
func DropSequence(names ...string) *DropBuilder { return newDrop(`SEQUENCE`, names) }

// Renders `CREATE SCHEMA name`.
func CreateSchema(name string) *SchemaStmt { return &SchemaStmt{Name: name} }

type SchemaStmt struct {
	Name          string
	Owner         string
	IfNotExistsOn bool
}

func (self *SchemaStmt) IfNotExists() *SchemaStmt {
	self.IfNotExistsOn = true
	return self
}

func (self *SchemaStmt) Authorization(role string) *SchemaStmt {
	self.Owner = role
	return self
}

// Implement the `Expr` interface, making this a sub-expression.
func (self *SchemaStmt) AppendExpr(text []byte) []byte {
	if self.Name == `` && self.Owner == `` {
		panic(errBuilder(`create schema`, `name`, `pass a schema name or an authorization role`))
	}
	bui := Bui{text}
	bui.Str(`CREATE SCHEMA`)
	if self.IfNotExistsOn {
		bui.Str(`IF NOT EXISTS`)
	}
	if self.Name != `` {
		bui.Ident(self.Name)
	}
	if self.Owner != `` {
		bui.Str(`AUTHORIZATION`)
		bui.Ident(self.Owner)
	}
	return bui.Text
}

// Implement the `fmt.Stringer` interface. Panics on misuse.
func (self *SchemaStmt) String() string { return exprString(self) }

// Starts a DROP SCHEMA statement.
func DropSchema(names ...string) *DropBuilder { return newDrop(`SCHEMA`, names) }

// Starts a CREATE ROLE statement.
func CreateRole(name string) *RoleBuilder { return &RoleBuilder{name: name} }

// Starts an ALTER ROLE statement. At least one option is required.
func AlterRole(name string) *RoleBuilder { return &RoleBuilder{name: name, alter: true} }

type RoleBuilder struct {
	name   string
	alter  bool
	opts   []string
	inRole []string
	rename string
}

func (self *RoleBuilder) flag(on bool, yes, no string) *RoleBuilder {
	if on {
		self.opts = append(self.opts, yes)
	} else {
		self.opts = append(self.opts, no)
	}
	return self
}

func (self *RoleBuilder) Login(val bool) *RoleBuilder {
	return self.flag(val, `LOGIN`, `NOLOGIN`)
}

func (self *RoleBuilder) Superuser(val bool) *RoleBuilder {
	return self.flag(val, `SUPERUSER`, `NOSUPERUSER`)
}

func (self *RoleBuilder) CreateDB(val bool) *RoleBuilder {
	return self.flag(val, `CREATEDB`, `NOCREATEDB`)
}

func (self *RoleBuilder) CreateRole(val bool) *RoleBuilder {
	return self.flag(val, `CREATEROLE`, `NOCREATEROLE`)
}

func (self *RoleBuilder) Inherit(val bool) *RoleBuilder {
	return self.flag(val, `INHERIT`, `NOINHERIT`)
}

func (self *RoleBuilder) Replication(val bool) *RoleBuilder {
	return self.flag(val, `REPLICATION`, `NOREPLICATION`)
}

func (self *RoleBuilder) BypassRLS(val bool) *RoleBuilder {
	return self.flag(val, `BYPASSRLS`, `NOBYPASSRLS`)
}

// Negative means no limit.
func (self *RoleBuilder) ConnectionLimit(val int) *RoleBuilder {
	self.opts = append(self.opts, `CONNECTION LIMIT `+strconv.Itoa(val))
	return self
}

// Empty password renders `PASSWORD NULL`.
func (self *RoleBuilder) Password(val string) *RoleBuilder {
	if val == `` {
		self.opts = append(self.opts, `PASSWORD NULL`)
	} else {
		self.opts = append(self.opts, `PASSWORD `+QuoteString(val))
	}
	return self
}

func (self *RoleBuilder) ValidUntil(val time.Time) *RoleBuilder {
	self.opts = append(self.opts, `VALID UNTIL `+bytesToMutableString(appendLiteral(nil, val, true)))
	return self
}

// CREATE only.
func (self *RoleBuilder) InRole(roles ...string) *RoleBuilder {
	self.inRole = append(self.inRole, roles...)
	return self
}

// ALTER only; can't be combined with other options.
func (self *RoleBuilder) RenameTo(name string) *RoleBuilder {
	self.rename = name
	return self
}

// Implement the `Expr` interface, making this a sub-expression.
func (self *RoleBuilder) AppendExpr(text []byte) []byte {
	builder := `create role`
	if self.alter {
		builder = `alter role`
	}
	if self.name == `` {
		panic(errBuilder(builder, `name`, `pass a role name`))
	}

	bui := Bui{text}
	if self.alter {
		if len(self.inRole) > 0 {
			panic(errBuilderInvalid(builder, `IN ROLE`, errf(`use Grant to add memberships to an existing role`)))
		}
		if self.rename != `` {
			if len(self.opts) > 0 {
				panic(errBuilderInvalid(builder, `RENAME TO`, errf(`RENAME TO can't be combined with other options`)))
			}
			bui.Str(`ALTER ROLE`)
			bui.Ident(self.name)
			bui.Str(`RENAME TO`)
			bui.Ident(self.rename)
			return bui.Text
		}
		if len(self.opts) == 0 {
			panic(errBuilder(builder, `options`, `set at least one option such as Login or Password`))
		}
		bui.Str(`ALTER ROLE`)
	} else {
		if self.rename != `` {
			panic(errBuilderInvalid(builder, `RENAME TO`, errf(`only ALTER ROLE takes RENAME TO`)))
		}
		bui.Str(`CREATE ROLE`)
	}
	bui.Ident(self.name)

	if len(self.opts) > 0 || len(self.inRole) > 0 {
		bui.Str(`WITH`)
	}
	for _, opt := range self.opts {
		bui.Str(opt)
	}
	if len(self.inRole) > 0 {
		bui.Str(`IN ROLE`)
		bui.Idents(self.inRole)
	}
	return bui.Text
}

// Implement the `fmt.Stringer` interface. Panics on misuse; see `Build`.
func (self *RoleBuilder) String() string { return exprString(self) }

// Renders the statement, converting misuse panics to errors.
func (self *RoleBuilder) Build() (string, error) { return Render(self) }

// Starts a DROP ROLE statement.
func DropRole(names ...string) *DropBuilder { return newDrop(`ROLE`, names) }

// Kind of object targeted by GRANT, REVOKE, and COMMENT ON.
type ObjectKind string

const (
	ObjectTable             ObjectKind = `TABLE`
	ObjectColumn            ObjectKind = `COLUMN`
	ObjectSequence          ObjectKind = `SEQUENCE`
	ObjectFunction          ObjectKind = `FUNCTION`
	ObjectSchema            ObjectKind = `SCHEMA`
	ObjectDatabase          ObjectKind = `DATABASE`
	ObjectView              ObjectKind = `VIEW`
	ObjectMaterializedView  ObjectKind = `MATERIALIZED VIEW`
	ObjectIndex             ObjectKind = `INDEX`
	ObjectType              ObjectKind = `TYPE`
	ObjectRole              ObjectKind = `ROLE`
	ObjectAllTablesIn       ObjectKind = `ALL TABLES IN SCHEMA`
	ObjectAllSequencesIn    ObjectKind = `ALL SEQUENCES IN SCHEMA`
	ObjectAllFunctionsIn    ObjectKind = `ALL FUNCTIONS IN SCHEMA`
	ObjectConstraintOnTable ObjectKind = `CONSTRAINT`
)

var privileges = map[string]bool{
	`SELECT`: true, `INSERT`: true, `UPDATE`: true, `DELETE`: true,
	`TRUNCATE`: true, `REFERENCES`: true, `TRIGGER`: true, `CREATE`: true,
	`CONNECT`: true, `TEMPORARY`: true, `TEMP`: true, `EXECUTE`: true,
	`USAGE`: true, `ALL`: true, `ALL PRIVILEGES`: true,
}

/*
Starts a GRANT statement for object privileges.

	sqlkit.Grant(`SELECT`, `INSERT`).On(sqlkit.ObjectTable, `users`).To(`app`)
*/
func Grant(privs ...string) *GrantBuilder { return &GrantBuilder{privs: privs} }

// Starts a REVOKE statement for object privileges.
func Revoke(privs ...string) *GrantBuilder {
	return &GrantBuilder{privs: privs, revoke: true}
}

// Starts a GRANT statement for role membership: `GRANT "admin" TO "bob"`.
func GrantRole(roles ...string) *GrantBuilder {
	return &GrantBuilder{roles: roles}
}

// Starts a REVOKE statement for role membership.
func RevokeRole(roles ...string) *GrantBuilder {
	return &GrantBuilder{roles: roles, revoke: true}
}

type GrantBuilder struct {
	privs       []string
	roles       []string
	kind        ObjectKind
	objects     []string
	grantees    []string
	revoke      bool
	grantOption bool
	cascade     bool
}

func (self *GrantBuilder) On(kind ObjectKind, names ...string) *GrantBuilder {
	self.kind = kind
	self.objects = append(self.objects, names...)
	return self
}

// Grantees or revokees. "PUBLIC" renders unquoted.
func (self *GrantBuilder) To(roles ...string) *GrantBuilder {
	self.grantees = append(self.grantees, roles...)
	return self
}

// Synonym of `To`, reading better on REVOKE.
func (self *GrantBuilder) From(roles ...string) *GrantBuilder { return self.To(roles...) }

// On GRANT renders `WITH GRANT OPTION` (or `WITH ADMIN OPTION` for roles). On
// REVOKE renders `GRANT OPTION FOR`.
func (self *GrantBuilder) WithGrantOption() *GrantBuilder {
	self.grantOption = true
	return self
}

// REVOKE only.
func (self *GrantBuilder) Cascade() *GrantBuilder {
	self.cascade = true
	return self
}

// Implement the `Expr` interface, making this a sub-expression.
func (self *GrantBuilder) AppendExpr(text []byte) []byte {
	builder := `grant`
	if self.revoke {
		builder = `revoke`
	}
	membership := len(self.roles) > 0

	if len(self.grantees) == 0 {
		panic(errBuilder(builder, `grantees`, `call To(roles...)`))
	}
	if !membership {
		if len(self.privs) == 0 {
			panic(errBuilder(builder, `privileges`, `pass at least one privilege`))
		}
		for _, priv := range self.privs {
			if !privileges[strings.ToUpper(priv)] {
				panic(errBuilderInvalid(builder, `privilege`, errf(`unknown privilege %q`, priv)))
			}
		}
		if self.kind == `` || len(self.objects) == 0 {
			panic(errBuilder(builder, `objects`, `call On(kind, names...)`))
		}
	}
	if self.cascade && !self.revoke {
		panic(errBuilderInvalid(builder, `CASCADE`, errf(`only REVOKE takes CASCADE`)))
	}

	bui := Bui{text}
	if self.revoke {
		bui.Str(`REVOKE`)
		if self.grantOption {
			if membership {
				bui.Str(`ADMIN OPTION FOR`)
			} else {
				bui.Str(`GRANT OPTION FOR`)
			}
		}
	} else {
		bui.Str(`GRANT`)
	}

	if membership {
		bui.Idents(self.roles)
	} else {
		for ind, priv := range self.privs {
			if ind > 0 {
				bui.Raw(`,`)
			}
			bui.Str(strings.ToUpper(priv))
		}
		bui.Str(`ON`)
		bui.Str(string(self.kind))
		for ind, name := range self.objects {
			if ind > 0 {
				bui.Raw(`,`)
			}
			appendObjectName(&bui, self.kind, name)
		}
	}

	if self.revoke {
		bui.Str(`FROM`)
	} else {
		bui.Str(`TO`)
	}
	for ind, role := range self.grantees {
		if ind > 0 {
			bui.Raw(`,`)
		}
		if strings.EqualFold(role, `public`) {
			bui.Str(`PUBLIC`)
		} else {
			bui.Ident(role)
		}
	}

	if self.grantOption && !self.revoke {
		if membership {
			bui.Str(`WITH ADMIN OPTION`)
		} else {
			bui.Str(`WITH GRANT OPTION`)
		}
	}
	if self.cascade {
		bui.Str(`CASCADE`)
	}
	return bui.Text
}

// Schema-wide objects name a schema. Functions may carry a signature such as
// "fn(integer)", rendered as `"fn"(integer)`.
func appendObjectName(bui *Bui, kind ObjectKind, name string) {
	switch kind {
	case ObjectAllTablesIn, ObjectAllSequencesIn, ObjectAllFunctionsIn:
		bui.Ident(name)
	case ObjectFunction:
		if ind := strings.IndexByte(name, '('); ind > 0 {
			bui.Name(name[:ind])
			bui.Raw(name[ind:])
			return
		}
		bui.Name(name)
	default:
		bui.Name(name)
	}
}

// Implement the `fmt.Stringer` interface. Panics on misuse; see `Build`.
func (self *GrantBuilder) String() string { return exprString(self) }

// Renders the statement, converting misuse panics to errors.
func (self *GrantBuilder) Build() (string, error) { return Render(self) }

/*
Renders `COMMENT ON <kind> name IS 'text'`. A nil comment renders `IS NULL`,
removing the comment. Column names use the "table.column" form. Constraints
use `CommentOnConstraint`.
*/
func CommentOn(kind ObjectKind, name string, comment any) CommentStmt {
	return CommentStmt{Kind: kind, Name: name, Comment: comment}
}

// Renders `COMMENT ON CONSTRAINT name ON table IS ...`.
func CommentOnConstraint(name, table string, comment any) CommentStmt {
	return CommentStmt{Kind: ObjectConstraintOnTable, Name: name, Table: table, Comment: comment}
}

type CommentStmt struct {
	Kind    ObjectKind
	Name    string
	Table   string
	Comment any
}

// Implement the `Expr` interface, making this a sub-expression.
func (self CommentStmt) AppendExpr(text []byte) []byte {
	if self.Kind == `` {
		panic(errBuilder(`comment`, `object kind`, `pass an ObjectKind`))
	}
	if self.Name == `` {
		panic(errBuilder(`comment`, `name`, `pass the object name`))
	}
	if self.Kind == ObjectConstraintOnTable && self.Table == `` {
		panic(errBuilder(`comment`, `table`, `constraint comments need the table`))
	}

	bui := Bui{text}
	bui.Str(`COMMENT ON`)
	bui.Str(string(self.Kind))
	appendObjectName(&bui, self.Kind, self.Name)
	if self.Kind == ObjectConstraintOnTable {
		bui.Str(`ON`)
		bui.Name(self.Table)
	}
	bui.Str(`IS`)
	switch val := self.Comment.(type) {
	case nil:
		bui.Str(`NULL`)
	case string:
		bui.Lit(val)
	case *string:
		bui.Lit(val)
	default:
		panic(errBuilderInvalid(`comment`, `comment`, errf(`expected string or nil, got %T`, val)))
	}
	return bui.Text
}

// Implement the `fmt.Stringer` interface. Panics on misuse.
func (self CommentStmt) String() string { return exprString(self) }
