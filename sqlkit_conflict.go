package sqlkit

/*
Builder of an `ON CONFLICT` clause, obtained from `InsertBuilder.OnConflict`
or `InsertBuilder.OnConstraint`. The action methods return the enclosing
insert builder.
*/
type ConflictBuilder struct {
	insert      *InsertBuilder
	target      []string
	constraint  string
	targetWhere Conds
	action      conflictAction
	set         Vals
	where       Conds
}

type conflictAction byte

const (
	conflictNone conflictAction = iota
	conflictNothing
	conflictUpdate
)

// Adds a predicate to the conflict target, for partial unique indexes:
// `ON CONFLICT (cols) WHERE ...`.
func (self *ConflictBuilder) TargetWhere(fun func(*Conds)) *ConflictBuilder {
	if fun != nil {
		fun(&self.targetWhere)
	}
	return self
}

func (self *ConflictBuilder) DoNothing() *InsertBuilder {
	self.action = conflictNothing
	return self.insert
}

/*
Sets the `DO UPDATE SET` assignments. Accepts the same inputs as insert rows.
Each value may be a literal, a list, a `ColumnRef` such as `Excluded(col)`, an
`Expr` such as a helper output, or a `ConflictFunc`.
*/
func (self *ConflictBuilder) DoUpdate(src any) *InsertBuilder {
	vals, err := tryVals(`conflict`, src)
	if err != nil {
		self.insert.fail(err)
	}
	self.action = conflictUpdate
	self.set = append(self.set, vals...)
	return self.insert
}

// Shortcut for `DoUpdate` assigning each column from `EXCLUDED`.
func (self *ConflictBuilder) DoUpdateExcluded(cols ...string) *InsertBuilder {
	vals := make(Vals, len(cols))
	for ind, col := range cols {
		vals[ind] = Val{col, UseExcluded()}
	}
	return self.DoUpdate(vals)
}

// Appends a raw `DO UPDATE ... WHERE` condition with optional ordinal
// parameters.
func (self *ConflictBuilder) Where(sql string, args ...any) *ConflictBuilder {
	self.where.Raw(sql, args...)
	return self
}

// Appends `DO UPDATE ... WHERE` conditions built by the callback. Bare column
// names are qualified with the target table.
func (self *ConflictBuilder) WhereFunc(fun func(*Conds)) *ConflictBuilder {
	if fun != nil {
		fun(&self.where)
	}
	return self
}

// Returns the enclosing insert builder, leaving the action as configured.
func (self *ConflictBuilder) Done() *InsertBuilder { return self.insert }

func (self *ConflictBuilder) append(bui *Bui) {
	ins := self.insert
	bui.Str(`ON CONFLICT`)

	hasTarget := len(self.target) > 0 || self.constraint != ``
	if self.constraint != `` {
		bui.Str(`ON CONSTRAINT`)
		bui.Ident(self.constraint)
	} else if len(self.target) > 0 {
		bui.Str(`(`)
		ins.appendColNames(bui, self.target)
		bui.Raw(`)`)
		if !self.targetWhere.IsEmpty() {
			bui.Str(`WHERE`)
			bui.Set(self.targetWhere.appendWith(bui.Text, condCtx{resolve: ins.resolve}))
		}
	}

	switch self.action {
	case conflictNothing:
		bui.Str(`DO NOTHING`)

	case conflictUpdate:
		if !hasTarget {
			panic(errBuilder(`conflict`, `target`, `DO UPDATE requires conflict columns or a constraint`))
		}
		if len(self.set) == 0 {
			panic(errBuilder(`conflict`, `assignments`, `pass at least one column to DoUpdate`))
		}

		bui.Str(`DO UPDATE SET`)
		for ind, val := range self.set {
			if ind > 0 {
				bui.Raw(`,`)
			}
			col := resolveWith(ins.resolve, val.Key)
			bui.Ident(col)
			bui.Str(`=`)

			scope := ConflictScope{Table: ins.table, Column: col}
			out := val.Value
			switch fun := out.(type) {
			case ConflictFunc:
				out = fun(scope)
			case func(ConflictScope) any:
				out = fun(scope)
			}
			appendTypedValue(bui, out, ins.typeOf(val.Key), ins.caps)
		}

		if !self.where.IsEmpty() {
			bui.Str(`WHERE`)
			bui.Set(self.where.appendWith(bui.Text, condCtx{ins.resolve, ins.table}))
		}

	default:
		panic(errBuilder(`conflict`, `action`, `finish OnConflict with DoNothing or DoUpdate`))
	}
}

// Computes a conflict assignment from the conflicting rows.
type ConflictFunc func(ConflictScope) any

/*
Context of one conflict assignment: the target table and the SQL name of the
assigned column. Methods return inert tags rendered by the enclosing builder.
*/
type ConflictScope struct {
	Table  string
	Column string
}

// Column of the row proposed for insertion. Empty means the assigned column.
func (self ConflictScope) Excluded(col string) ColumnRef {
	if col == `` {
		col = self.Column
	}
	return Excluded(col)
}

// Column of the existing row.
func (self ConflictScope) Row(col string) ColumnRef { return Ref(self.Table, col) }

// The assigned column of the existing row.
func (self ConflictScope) Self() ColumnRef { return self.Row(self.Column) }

// `"table"."col" + n`.
func (self ConflictScope) Increment(val any) SqlExpr { return Add(self.Self(), val) }

// `"table"."col" - n`.
func (self ConflictScope) Decrement(val any) SqlExpr { return Subtract(self.Self(), val) }

func IncrementBy(val any) ConflictFunc {
	return func(scope ConflictScope) any { return scope.Increment(val) }
}

func DecrementBy(val any) ConflictFunc {
	return func(scope ConflictScope) any { return scope.Decrement(val) }
}

// Assigns the proposed value: `col = EXCLUDED.col`.
func UseExcluded() ConflictFunc {
	return func(scope ConflictScope) any { return scope.Excluded(``) }
}
