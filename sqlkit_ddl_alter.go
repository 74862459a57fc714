package sqlkit

/*
Starts an ALTER TABLE statement. Actions render comma-separated, in call order.

	sqlkit.AlterTable(`users`).
		AddColumn(sqlkit.ColumnDef{Name: `age`, Type: `integer`}).
		SetNotNull(`email`)
*/
func AlterTable(name string) *AlterTableBuilder {
	return &AlterTableBuilder{name: name}
}

type AlterTableBuilder struct {
	name     string
	dialect  Dialect
	ifExists bool
	only     bool
	actions  []func(*Bui, Dialect)
}

func (self *AlterTableBuilder) Dialect(val Dialect) *AlterTableBuilder {
	self.dialect = val
	return self
}

func (self *AlterTableBuilder) IfExists() *AlterTableBuilder {
	self.ifExists = true
	return self
}

// Skips descendant tables: `ALTER TABLE ONLY "name"`.
func (self *AlterTableBuilder) Only() *AlterTableBuilder {
	self.only = true
	return self
}

func (self *AlterTableBuilder) action(fun func(*Bui, Dialect)) *AlterTableBuilder {
	self.actions = append(self.actions, fun)
	return self
}

func (self *AlterTableBuilder) AddColumn(col ColumnDef) *AlterTableBuilder {
	return self.action(func(bui *Bui, dialect Dialect) {
		bui.Str(`ADD COLUMN`)
		appendColumnDef(bui, col, dialect)
	})
}

func (self *AlterTableBuilder) AddColumnIfNotExists(col ColumnDef) *AlterTableBuilder {
	return self.action(func(bui *Bui, dialect Dialect) {
		bui.Str(`ADD COLUMN IF NOT EXISTS`)
		appendColumnDef(bui, col, dialect)
	})
}

func (self *AlterTableBuilder) DropColumn(name string) *AlterTableBuilder {
	return self.action(func(bui *Bui, _ Dialect) {
		bui.Str(`DROP COLUMN`)
		bui.Ident(name)
	})
}

func (self *AlterTableBuilder) DropColumnIfExists(name string) *AlterTableBuilder {
	return self.action(func(bui *Bui, _ Dialect) {
		bui.Str(`DROP COLUMN IF EXISTS`)
		bui.Ident(name)
	})
}

func (self *AlterTableBuilder) RenameColumn(from, to string) *AlterTableBuilder {
	return self.action(func(bui *Bui, _ Dialect) {
		bui.Str(`RENAME COLUMN`)
		bui.Ident(from)
		bui.Str(`TO`)
		bui.Ident(to)
	})
}

// Changes the column type. The optional USING expression is trusted SQL.
func (self *AlterTableBuilder) AlterColumnType(col, typ string, using ...string) *AlterTableBuilder {
	return self.pgAction(`ALTER COLUMN TYPE`, func(bui *Bui) {
		bui.Str(`ALTER COLUMN`)
		bui.Ident(col)
		bui.Str(`TYPE`)
		bui.Str(formatType(typ))
		if len(using) > 0 && using[0] != `` {
			bui.Str(`USING`)
			bui.Str(using[0])
		}
	})
}

// Default may be a literal or an `Expr`.
func (self *AlterTableBuilder) SetDefault(col string, val any) *AlterTableBuilder {
	return self.pgAction(`ALTER COLUMN SET DEFAULT`, func(bui *Bui) {
		bui.Str(`ALTER COLUMN`)
		bui.Ident(col)
		bui.Str(`SET DEFAULT`)
		appendDefault(bui, val)
	})
}

func (self *AlterTableBuilder) DropDefault(col string) *AlterTableBuilder {
	return self.pgAction(`ALTER COLUMN DROP DEFAULT`, func(bui *Bui) {
		bui.Str(`ALTER COLUMN`)
		bui.Ident(col)
		bui.Str(`DROP DEFAULT`)
	})
}

func (self *AlterTableBuilder) SetNotNull(col string) *AlterTableBuilder {
	return self.pgAction(`ALTER COLUMN SET NOT NULL`, func(bui *Bui) {
		bui.Str(`ALTER COLUMN`)
		bui.Ident(col)
		bui.Str(`SET NOT NULL`)
	})
}

func (self *AlterTableBuilder) DropNotNull(col string) *AlterTableBuilder {
	return self.pgAction(`ALTER COLUMN DROP NOT NULL`, func(bui *Bui) {
		bui.Str(`ALTER COLUMN`)
		bui.Ident(col)
		bui.Str(`DROP NOT NULL`)
	})
}

func (self *AlterTableBuilder) AddConstraint(val TableConstraint) *AlterTableBuilder {
	return self.pgAction(`ADD CONSTRAINT`, func(bui *Bui) {
		bui.Str(`ADD`)
		val.append(bui)
	})
}

func (self *AlterTableBuilder) DropConstraint(name string) *AlterTableBuilder {
	return self.pgAction(`DROP CONSTRAINT`, func(bui *Bui) {
		bui.Str(`DROP CONSTRAINT`)
		bui.Ident(name)
	})
}

func (self *AlterTableBuilder) DropConstraintIfExists(name string) *AlterTableBuilder {
	return self.pgAction(`DROP CONSTRAINT`, func(bui *Bui) {
		bui.Str(`DROP CONSTRAINT IF EXISTS`)
		bui.Ident(name)
	})
}

func (self *AlterTableBuilder) RenameTo(name string) *AlterTableBuilder {
	return self.action(func(bui *Bui, _ Dialect) {
		bui.Str(`RENAME TO`)
		bui.Ident(name)
	})
}

func (self *AlterTableBuilder) SetSchema(name string) *AlterTableBuilder {
	return self.pgAction(`SET SCHEMA`, func(bui *Bui) {
		bui.Str(`SET SCHEMA`)
		bui.Ident(name)
	})
}

func (self *AlterTableBuilder) SetTablespace(name string) *AlterTableBuilder {
	return self.pgAction(`SET TABLESPACE`, func(bui *Bui) {
		bui.Str(`SET TABLESPACE`)
		bui.Ident(name)
	})
}

// Sets storage parameters: `SET (key = val)`.
func (self *AlterTableBuilder) SetParam(key string, val any) *AlterTableBuilder {
	return self.pgAction(`SET storage parameters`, func(bui *Bui) {
		bui.Str(`SET (`)
		bui.Raw(key)
		bui.Raw(` = `)
		bui.Set(appendParamValue(bui.Text, val))
		bui.Raw(`)`)
	})
}

// Empty name enables all triggers.
func (self *AlterTableBuilder) EnableTrigger(name string) *AlterTableBuilder {
	return self.triggerAction(`ENABLE TRIGGER`, name)
}

// Empty name disables all triggers.
func (self *AlterTableBuilder) DisableTrigger(name string) *AlterTableBuilder {
	return self.triggerAction(`DISABLE TRIGGER`, name)
}

func (self *AlterTableBuilder) triggerAction(prefix, name string) *AlterTableBuilder {
	return self.pgAction(prefix, func(bui *Bui) {
		bui.Str(prefix)
		if name == `` {
			bui.Str(`ALL`)
		} else {
			bui.Ident(name)
		}
	})
}

func (self *AlterTableBuilder) EnableRowLevelSecurity() *AlterTableBuilder {
	return self.pgAction(`ENABLE ROW LEVEL SECURITY`, func(bui *Bui) {
		bui.Str(`ENABLE ROW LEVEL SECURITY`)
	})
}

// Actions without an SQLite equivalent.
func (self *AlterTableBuilder) pgAction(feature string, fun func(*Bui)) *AlterTableBuilder {
	return self.action(func(bui *Bui, dialect Dialect) {
		if dialect == SQLite {
			panic(errUnsupported(`alter table`, feature, dialect))
		}
		fun(bui)
	})
}

// Implement the `Expr` interface, making this a sub-expression.
func (self *AlterTableBuilder) AppendExpr(text []byte) []byte {
	if self.name == `` {
		panic(errBuilder(`alter table`, `name`, `pass a table name to AlterTable`))
	}
	if len(self.actions) == 0 {
		panic(errBuilder(`alter table`, `actions`, `add at least one action such as AddColumn`))
	}
	if self.dialect == SQLite && len(self.actions) > 1 {
		panic(errUnsupported(`alter table`, `multiple actions`, self.dialect))
	}

	bui := Bui{text}
	bui.Str(`ALTER TABLE`)
	if self.ifExists {
		bui.Str(`IF EXISTS`)
	}
	if self.only {
		bui.Str(`ONLY`)
	}
	bui.Name(self.name)

	for ind, fun := range self.actions {
		if ind > 0 {
			bui.Raw(`,`)
		}
		fun(&bui, self.dialect)
	}
	return bui.Text
}

// Implement the `fmt.Stringer` interface. Panics on misuse; see `Build`.
func (self *AlterTableBuilder) String() string { return exprString(self) }

// Renders the statement, converting misuse panics to errors.
func (self *AlterTableBuilder) Build() (string, error) { return Render(self) }
