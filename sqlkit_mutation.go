package sqlkit

import (
	"strconv"
	"strings"
)

/*
In-place update expression with an unresolved column slot. The UPDATE renderer
fills the slot with the quoted target column, producing SQL such as
`jsonb_set(COALESCE("settings", '{}'::jsonb), ...)`.

Every mutation produced by `JsonbOps`, `JsonbArrayOps`, and `TypedArrayOps`
guards against NULL source values with COALESCE.
*/
type Mutation struct {
	fun func(string) string
}

// Makes a mutation from a function of the quoted column.
func MutationFunc(fun func(col string) string) Mutation { return Mutation{fun} }

/*
Makes a mutation from a template where every occurrence of `ColumnPlaceholder`
is replaced with the quoted column. The template is otherwise emitted verbatim.
*/
func MutationTemplate(tpl string) Mutation {
	return Mutation{func(col string) string {
		return strings.ReplaceAll(tpl, ColumnPlaceholder, col)
	}}
}

// Renders the mutation for the given quoted column. The zero mutation renders
// the column unchanged.
func (self Mutation) Render(col string) string {
	if self.fun == nil {
		return col
	}
	return self.fun(col)
}

// True if the mutation was never assigned.
func (self Mutation) IsZero() bool { return self.fun == nil }

// Applies the next mutation to the result of this one.
func (self Mutation) Chain(next Mutation) Mutation {
	return Mutation{func(col string) string { return next.Render(self.Render(col)) }}
}

// Implement the `fmt.Stringer` interface for debug purposes. Renders with
// `ColumnPlaceholder` in the column slot.
func (self Mutation) String() string { return self.Render(ColumnPlaceholder) }

// Computes the new value of one UPDATE column.
type UpdateFunc func(UpdateOps) Mutation

// Namespace of mutation DSLs passed to `UpdateFunc`.
type UpdateOps struct {
	Jsonb JsonbOps
	Array ArrayOps
}

// Namespace of typed array mutations.
type ArrayOps struct{}

func (ArrayOps) Texts() TypedArrayOps   { return TypedArrayOps{`text`} }
func (ArrayOps) Numbers() TypedArrayOps { return TypedArrayOps{`numeric`} }
func (ArrayOps) Bools() TypedArrayOps   { return TypedArrayOps{`boolean`} }
func (ArrayOps) UUIDs() TypedArrayOps   { return TypedArrayOps{`uuid`} }
func (ArrayOps) Dates() TypedArrayOps   { return TypedArrayOps{`date`} }
func (ArrayOps) Jsonbs() JsonbListOps   { return JsonbListOps{TypedArrayOps{`jsonb`}} }

// Array operations for a specific element type such as "integer".
func (ArrayOps) Of(typ string) TypedArrayOps { return TypedArrayOps{typ} }

/*
Renders a dotted path as a text array literal body such as "{a,b}". Segments
which would be ambiguous inside an array literal are double-quoted.
*/
func jsonPath(path string) string {
	var buf []byte
	buf = append(buf, '{')
	for ind, part := range strings.Split(path, `.`) {
		if ind > 0 {
			buf = append(buf, ',')
		}
		buf = appendArrayLiteralElem(buf, part)
	}
	return string(append(buf, '}'))
}

func jsonIndexPath(ind int) string { return `{` + strconv.Itoa(ind) + `}` }

func appendArrayLiteralElem(buf []byte, val string) []byte {
	if val != `` && !containsCharset(val, charsetArrayQuote) && !strings.EqualFold(val, `null`) {
		return append(buf, val...)
	}
	buf = append(buf, '"')
	for ind := 0; ind < len(val); ind++ {
		char := val[ind]
		if char == '"' || char == '\\' {
			buf = append(buf, '\\')
		}
		buf = append(buf, char)
	}
	return append(buf, '"')
}

func containsCharset(val string, set *charset) bool {
	for ind := 0; ind < len(val); ind++ {
		if set.has(val[ind]) {
			return true
		}
	}
	return false
}

func jsonText(val any) string { return string(jsonValue(val)) }
