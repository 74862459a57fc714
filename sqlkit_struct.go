package sqlkit

import (
	r "reflect"

	"github.com/mitranim/refut"
)

// One named value of an INSERT row or UPDATE SET clause.
type Val struct {
	Key   string
	Value any
}

/*
Ordered sequence of named values. Unlike a map, preserves the order of keys,
which becomes the column order of INSERT and UPDATE statements.
*/
type Vals []Val

// Appends a named value.
func (self *Vals) Add(key string, val any) *Vals {
	*self = append(*self, Val{key, val})
	return self
}

// Returns the keys in order.
func (self Vals) Keys() []string {
	out := make([]string, len(self))
	for ind, val := range self {
		out[ind] = val.Key
	}
	return out
}

// Returns the value of the first entry with the given key.
func (self Vals) Get(key string) (any, bool) {
	for _, val := range self {
		if val.Key == key {
			return val.Value, true
		}
	}
	return nil, false
}

/*
Scans a struct, accumulating fields tagged with `db` into ordered `Vals`. The
input must be a struct or a struct pointer. A nil pointer is fine and produces
nil. Panics on other inputs. Treats embedded structs as part of enclosing
structs.
*/
func StructVals(src any) Vals {
	var out Vals
	traverseStructDbFields(src, func(key string, val any) {
		out = append(out, Val{key, val})
	})
	return out
}

/*
Takes a struct and returns the names of its `db`-tagged fields, suitable for
`Select(...).Cols`. Also accepts struct pointers, struct slices and pointers to
struct slices. Nil slices and pointers are fine, as long as they carry a
struct type. Any other input causes a panic.
*/
func StructCols(src any) []string {
	typ := refut.RtypeDeref(r.TypeOf(src))
	if typ != nil && typ.Kind() == r.Slice {
		typ = refut.RtypeDeref(typ.Elem())
	}

	if !isStructType(typ) {
		panic(errBuilderInvalid(`struct columns`, `input`, errf(`expected struct, got %v`, typ)))
	}

	var out []string
	try(refut.TraverseStructRtype(typ, func(sfield r.StructField, _ []int) error {
		name := sfieldColumnName(sfield)
		if name != `` {
			out = append(out, name)
		}
		return nil
	}))
	return out
}

func sfieldColumnName(sfield r.StructField) string {
	return refut.TagIdent(sfield.Tag.Get(`db`))
}

func traverseStructDbFields(src any, fun func(string, any)) {
	val := r.ValueOf(src)
	typ := refut.RtypeDeref(val.Type())

	if typ.Kind() != r.Struct {
		panic(errBuilderInvalid(`struct values`, `input`, errf(`expected struct, got %v`, typ)))
	}
	if refut.IsRvalNil(val) {
		return
	}

	try(refut.TraverseStructRval(val, func(val r.Value, sfield r.StructField, _ []int) error {
		name := sfieldColumnName(sfield)
		if name != `` {
			fun(name, val.Interface())
		}
		return nil
	}))
}

func tryVals(builder string, src any) (_ Vals, err error) {
	defer rec(&err)
	return toVals(builder, src), nil
}

/*
Normalizes one INSERT row or SET source into ordered values. Accepts `Vals`,
`Val`, maps with string keys (sorted by key), and structs with `db` tags.
*/
func toVals(builder string, src any) Vals {
	switch src := src.(type) {
	case nil:
		return nil
	case Vals:
		return src
	case *Vals:
		if src == nil {
			return nil
		}
		return *src
	case Val:
		return Vals{src}
	case map[string]any:
		out := make(Vals, 0, len(src))
		for _, key := range sortedKeys(src) {
			out = append(out, Val{key, src[key]})
		}
		return out
	}

	val := valueOf(src)
	if !val.IsValid() {
		return nil
	}

	switch val.Kind() {
	case r.Map:
		if val.Type().Key().Kind() != r.String {
			panic(errBuilderInvalid(builder, `row`, errf(`map keys must be strings, got %v`, val.Type().Key())))
		}
		dict := make(map[string]any, val.Len())
		iter := val.MapRange()
		for iter.Next() {
			dict[iter.Key().String()] = iter.Value().Interface()
		}
		return toVals(builder, dict)

	case r.Struct:
		if isStructType(val.Type()) {
			return StructVals(val.Interface())
		}
	}

	panic(errBuilderInvalid(builder, `row`, errf(`expected map, struct, or Vals, got %T`, src)))
}
