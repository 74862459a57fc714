package sqlkit

import (
	"strconv"
)

/*
Starts a window definition, rendered as the contents of `OVER (...)`.

	sqlkit.Window().PartitionBy(`team`).OrderBy(`score`, sqlkit.DirDesc).RowNumber()
	// row_number() OVER (PARTITION BY "team" ORDER BY "score" DESC)
*/
func Window() *WindowBuilder { return &WindowBuilder{} }

// Stateful window definition builder.
type WindowBuilder struct {
	partition []string
	ords      []Ord
	frame     *windowFrame
	resolve   ColumnResolver
}

type windowFrame struct {
	Mode  string
	Start Bound
	End   Bound
}

// One end of a window frame.
type Bound struct{ text string }

var (
	CurrentRow         = Bound{`CURRENT ROW`}
	UnboundedPreceding = Bound{`UNBOUNDED PRECEDING`}
	UnboundedFollowing = Bound{`UNBOUNDED FOLLOWING`}
)

func Preceding(val int) Bound { return Bound{strconv.Itoa(val) + ` PRECEDING`} }

func Following(val int) Bound { return Bound{strconv.Itoa(val) + ` FOLLOWING`} }

func (self Bound) String() string { return self.text }

func (self *WindowBuilder) PartitionBy(cols ...string) *WindowBuilder {
	self.partition = append(self.partition, cols...)
	return self
}

func (self *WindowBuilder) OrderBy(col any, dir Dir) *WindowBuilder {
	self.ords = append(self.ords, Ord{Expr: col, Dir: dir})
	return self
}

func (self *WindowBuilder) OrderByNulls(col any, dir Dir, nulls Nulls) *WindowBuilder {
	self.ords = append(self.ords, Ord{col, dir, nulls})
	return self
}

// `ROWS BETWEEN start AND end`.
func (self *WindowBuilder) Rows(start, end Bound) *WindowBuilder {
	return self.setFrame(`ROWS`, start, end)
}

// `RANGE BETWEEN start AND end`.
func (self *WindowBuilder) Range(start, end Bound) *WindowBuilder {
	return self.setFrame(`RANGE`, start, end)
}

// `GROUPS BETWEEN start AND end`.
func (self *WindowBuilder) Groups(start, end Bound) *WindowBuilder {
	return self.setFrame(`GROUPS`, start, end)
}

func (self *WindowBuilder) setFrame(mode string, start, end Bound) *WindowBuilder {
	self.frame = &windowFrame{mode, start, end}
	return self
}

func (self *WindowBuilder) Resolver(fun ColumnResolver) *WindowBuilder {
	self.resolve = fun
	return self
}

// Implement the `Expr` interface, making this a sub-expression. Renders the
// window definition without the surrounding `OVER (...)`.
func (self *WindowBuilder) AppendExpr(text []byte) []byte {
	bui := Bui{text}

	if len(self.partition) > 0 {
		bui.Str(`PARTITION BY`)
		for ind, col := range self.partition {
			if ind > 0 {
				bui.Raw(`,`)
			}
			bui.Set(appendResolvedColumn(bui.Text, col, self.resolve, ``))
		}
	}

	appendOrds(&bui, self.ords, self.resolve, ``)

	if self.frame != nil {
		if self.frame.Start.text == `` || self.frame.End.text == `` {
			panic(errBuilder(`window`, `frame bound`, `use Preceding, Following, CurrentRow, or the Unbounded bounds`))
		}
		bui.Str(self.frame.Mode)
		bui.Str(`BETWEEN`)
		bui.Str(self.frame.Start.text)
		bui.Str(`AND`)
		bui.Str(self.frame.End.text)
	}
	return bui.Text
}

// Implement the `fmt.Stringer` interface for debug purposes.
func (self *WindowBuilder) String() string { return exprString(self) }

/*
Renders `fn OVER (window)`. The function may be an `Expr` such as a helper
output, or a string of trusted SQL such as "sum(amount)".
*/
func (self *WindowBuilder) Over(fn any) SqlExpr {
	var bui Bui
	bui.Expr(toExpr(fn))
	bui.Str(`OVER (`)
	bui.Set(self.AppendExpr(bui.Text))
	bui.Raw(`)`)
	return SqlExpr(bui.String())
}

func (self *WindowBuilder) RowNumber() SqlExpr { return self.Over(SqlExpr(`row_number()`)) }

func (self *WindowBuilder) Rank() SqlExpr { return self.Over(SqlExpr(`rank()`)) }

func (self *WindowBuilder) DenseRank() SqlExpr { return self.Over(SqlExpr(`dense_rank()`)) }

// `lag(col, offset, default) OVER (...)`. The default is optional.
func (self *WindowBuilder) Lag(col string, offset int, def ...any) SqlExpr {
	return self.Over(self.offsetFunc(`lag`, col, offset, def))
}

// `lead(col, offset, default) OVER (...)`. The default is optional.
func (self *WindowBuilder) Lead(col string, offset int, def ...any) SqlExpr {
	return self.Over(self.offsetFunc(`lead`, col, offset, def))
}

func (self *WindowBuilder) FirstValue(col string) SqlExpr {
	return self.Over(Func(`first_value`, self.column(col)))
}

func (self *WindowBuilder) LastValue(col string) SqlExpr {
	return self.Over(Func(`last_value`, self.column(col)))
}

func (self *WindowBuilder) NthValue(col string, nth int) SqlExpr {
	return self.Over(Func(`nth_value`, self.column(col), nth))
}

func (self *WindowBuilder) column(col string) SqlExpr {
	return SqlExpr(appendResolvedColumn(nil, col, self.resolve, ``))
}

func (self *WindowBuilder) offsetFunc(name, col string, offset int, def []any) SqlExpr {
	args := []any{self.column(col), offset}
	if len(def) > 0 {
		args = append(args, def[0])
	}
	return Func(name, args...)
}
