package sqlkit

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	r "reflect"
	"regexp"
	"sort"
	"strings"
	"time"
	"unsafe"
)

const (
	quoteSingle = '\''
	quoteDouble = '"'

	// Column slot placeholder accepted by `MutationTemplate`.
	ColumnPlaceholder = `__COLUMN__`

	tableExcluded = `EXCLUDED`
)

var (
	typeTime        = r.TypeOf((*time.Time)(nil)).Elem()
	typeBytes       = r.TypeOf((*[]byte)(nil)).Elem()
	typeRawJson     = r.TypeOf((*json.RawMessage)(nil)).Elem()
	sqlScannerRtype = r.TypeOf((*sql.Scanner)(nil)).Elem()

	charsetSpace      = new(charset).addStr(" \t\v")
	charsetNewline    = new(charset).addStr("\r\n")
	charsetWhitespace = new(charset).addSet(charsetSpace).addSet(charsetNewline)
	charsetDelimStart = new(charset).addSet(charsetWhitespace).addStr(`([{.`)
	charsetDelimEnd   = new(charset).addSet(charsetWhitespace).addStr(`,}])`)
	charsetArrayQuote = new(charset).addSet(charsetWhitespace).addStr(`{}",\`)
)

type charset [256]bool

func (self *charset) has(val byte) bool { return self[val] }

func (self *charset) addStr(vals string) *charset {
	for _, val := range vals {
		self[val] = true
	}
	return self
}

func (self *charset) addSet(vals *charset) *charset {
	for ind, val := range vals {
		if val {
			self[ind] = true
		}
	}
	return self
}

/*
Allocation-free conversion. Reinterprets a byte slice as a string. Borrowed from
the standard library. Reasonably safe. Should not be used when the underlying
byte array is volatile.
*/
func bytesToMutableString(bytes []byte) string {
	return *(*string)(unsafe.Pointer(&bytes))
}

func isScannableRtype(typ r.Type) bool {
	typ = typeDeref(typ)
	return typ != nil && (typ == typeTime || r.PointerTo(typ).Implements(sqlScannerRtype))
}

func isStructType(typ r.Type) bool {
	return typ != nil && typ.Kind() == r.Struct && !isScannableRtype(typ)
}

func maybeAppendSpace(val []byte) []byte {
	if hasDelimSuffix(bytesToMutableString(val)) {
		return val
	}
	return append(val, ` `...)
}

func appendMaybeSpaced(text []byte, suffix string) []byte {
	if !hasDelimSuffix(bytesToMutableString(text)) && !hasDelimPrefix(suffix) {
		text = append(text, ` `...)
	}
	text = append(text, suffix...)
	return text
}

func hasDelimPrefix(text string) bool {
	return len(text) == 0 || charsetDelimEnd.has(text[0])
}

func hasDelimSuffix(text string) bool {
	return len(text) == 0 || charsetDelimStart.has(text[len(text)-1])
}

var ordReg = regexp.MustCompile(
	`^\s*((?:\w+\.)*\w+)(?i)(?:\s+(asc|desc))?(?:\s+nulls\s+(first|last))?\s*$`,
)

func try(err error) {
	if err != nil {
		panic(err)
	}
}

func try1[A any](val A, err error) A {
	try(err)
	return val
}

// Must be deferred.
func rec(ptr *error) {
	val := recover()
	if val == nil {
		return
	}

	err, _ := val.(error)
	if err != nil {
		*ptr = err
		return
	}

	panic(val)
}

func exprAppend[A Expr](expr A, text []byte) []byte {
	return expr.AppendExpr(text)
}

func exprString[A Expr](expr A) string {
	return bytesToMutableString(exprAppend(expr, nil))
}

func normNil(val any) any {
	if isNil(val) {
		return nil
	}
	return val
}

// Unwraps `driver.Valuer` implementations. Nil-valued valuers become nil.
func normValuer(val any) any {
	val = normNil(val)
	if val == nil {
		return nil
	}

	valuer, _ := val.(driver.Valuer)
	if valuer != nil {
		return normNil(try1(valuer.Value()))
	}
	return val
}

func isNil(val any) bool {
	return val == nil || isValueNil(r.ValueOf(val))
}

func isValueNil(val r.Value) bool {
	return !val.IsValid() || isNilable(val.Kind()) && val.IsNil()
}

func isNilable(kind r.Kind) bool {
	switch kind {
	case r.Chan, r.Func, r.Interface, r.Map, r.Ptr, r.Slice:
		return true
	default:
		return false
	}
}

func typeDeref(typ r.Type) r.Type {
	for typ != nil && typ.Kind() == r.Ptr {
		typ = typ.Elem()
	}
	return typ
}

func valueDeref(val r.Value) r.Value {
	for val.Kind() == r.Ptr || val.Kind() == r.Interface {
		if val.IsNil() {
			return r.Value{}
		}
		val = val.Elem()
	}
	return val
}

func valueOf(val any) r.Value { return valueDeref(r.ValueOf(val)) }

// True for slices and arrays that should be encoded element-wise, excluding
// byte strings and raw JSON.
func isListValue(val r.Value) bool {
	if !val.IsValid() {
		return false
	}
	typ := val.Type()
	switch typ.Kind() {
	case r.Slice, r.Array:
		return typ != typeRawJson && typ.Elem().Kind() != r.Uint8
	default:
		return false
	}
}

// Expands a single list argument into its elements. Other inputs are returned
// as-is.
func flattenValues(vals []any) []any {
	if len(vals) != 1 {
		return vals
	}

	val := valueOf(vals[0])
	if !isListValue(val) {
		return vals
	}
	return listElems(val)
}

func listElems(val r.Value) []any {
	out := make([]any, val.Len())
	for ind := range out {
		out[ind] = val.Index(ind).Interface()
	}
	return out
}

func sortedKeys[Val any](src map[string]Val) []string {
	out := make([]string, 0, len(src))
	for key := range src {
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}

func copyStrings(val []string) []string {
	if val == nil {
		return nil
	}
	out := make([]string, len(val))
	copy(out, val)
	return out
}

func errf(pat string, args ...any) error { return fmt.Errorf(pat, args...) }

func strDir(val string) Dir {
	if strings.EqualFold(val, `asc`) {
		return DirAsc
	}
	if strings.EqualFold(val, `desc`) {
		return DirDesc
	}
	return DirNone
}

func strNulls(val string) Nulls {
	if strings.EqualFold(val, `first`) {
		return NullsFirst
	}
	if strings.EqualFold(val, `last`) {
		return NullsLast
	}
	return NullsNone
}

// Resolves a key through an optional resolver.
func resolveWith(fun ColumnResolver, key string) string {
	if fun == nil {
		return key
	}
	out := fun(key)
	if out == `` {
		return key
	}
	return out
}
