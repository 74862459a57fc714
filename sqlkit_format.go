package sqlkit

import (
	"database/sql/driver"
	"encoding"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	r "reflect"
	"strconv"
	"strings"
	"time"
)

const timeLayout = `2006-01-02T15:04:05.000Z`

/*
Renders a template, consuming args left-to-right for each specifier:

	%I  identifier: double-quoted, embedded quotes doubled; lists comma-joined
	%L  literal: see `FormatLiteral`
	%s  raw text, no escaping
	%%  literal percent sign

This is the single place where SQL text gets quoted. Every builder in this
package routes through it.
*/
func Format(tpl string, args ...any) (_ string, err error) {
	defer rec(&err)
	return TryFormat(tpl, args...), nil
}

// Variant of `Format` that panics on error.
func TryFormat(tpl string, args ...any) string {
	return bytesToMutableString(appendFormat(nil, tpl, args))
}

// Single-value shortcut for `Format("%I", name)`.
func FormatIdent(name string) (_ string, err error) {
	defer rec(&err)
	return bytesToMutableString(appendIdent(nil, name)), nil
}

/*
Single-value shortcut for `Format("%L", val)`. Encoding rules:

	nil, nil pointers         NULL
	driver.Valuer             encodes the result of .Value()
	bool                      true / false
	integers, floats, big.*   decimal text, NaN and infinities quoted
	time.Time                 '2006-01-02T15:04:05.000Z' in UTC
	[]byte                    '\x<hex>'
	slices and arrays         comma-joined literals, nested lists parenthesized
	maps, structs, json.Marshaler   single-quoted JSON text
	strings, fmt.Stringer     single-quoted, embedded quotes doubled

Functions, channels and complex numbers are rejected.
*/
func FormatLiteral(val any) (_ string, err error) {
	defer rec(&err)
	return bytesToMutableString(appendLiteral(nil, val, true)), nil
}

// Returns the identifier quoted with `"`, embedded quotes doubled. Panics on
// an empty input.
func QuoteIdent(name string) string { return bytesToMutableString(appendIdent(nil, name)) }

// Returns the string quoted with `'`, embedded quotes doubled.
func QuoteString(val string) string { return bytesToMutableString(appendQuoted(nil, val)) }

func appendFormat(buf []byte, tpl string, args []any) []byte {
	src := tpl
	var ind int

	for len(src) > 0 {
		pos := strings.IndexByte(src, '%')
		if pos < 0 {
			buf = append(buf, src...)
			break
		}

		buf = append(buf, src[:pos]...)
		src = src[pos:]

		if len(src) < 2 {
			panic(errFormat(tpl, errf(`dangling "%%" at the end of the template`)))
		}

		spec := src[1]
		src = src[2:]

		if spec == '%' {
			buf = append(buf, '%')
			continue
		}

		if spec != 'I' && spec != 'L' && spec != 's' {
			panic(errFormat(tpl, errf(`unknown format specifier "%%%c"`, spec)))
		}

		if ind >= len(args) {
			panic(errFormat(tpl, errf(`missing argument for "%%%c" at position %v`, spec, ind)))
		}
		arg := args[ind]
		ind++

		switch spec {
		case 'I':
			buf = appendIdentArg(buf, tpl, arg)
		case 'L':
			buf = appendLiteral(buf, arg, true)
		case 's':
			buf = appendRawArg(buf, tpl, arg)
		}
	}

	return buf
}

func appendIdentArg(buf []byte, tpl string, val any) []byte {
	switch val := val.(type) {
	case string:
		return appendIdent(buf, val)
	case Ident:
		return appendIdent(buf, string(val))
	case []string:
		if len(val) == 0 {
			panic(errFormat(tpl, errf(`empty identifier list`)))
		}
		for ind, name := range val {
			if ind > 0 {
				buf = append(buf, `, `...)
			}
			buf = appendIdent(buf, name)
		}
		return buf
	case fmt.Stringer:
		return appendIdent(buf, val.String())
	default:
		panic(errFormat(tpl, errf(`unsupported identifier type %T`, val)))
	}
}

func appendIdent(buf []byte, name string) []byte {
	if name == `` {
		panic(errFormat(`%I`, errf(`empty identifier`)))
	}

	buf = append(buf, quoteDouble)
	for ind := 0; ind < len(name); ind++ {
		char := name[ind]
		if char == quoteDouble {
			buf = append(buf, quoteDouble)
		}
		buf = append(buf, char)
	}
	return append(buf, quoteDouble)
}

// Quotes each dot-separated part of a possibly qualified name. "*" parts
// stay bare.
func appendDotted(buf []byte, name string) []byte {
	for ind, part := range strings.Split(name, `.`) {
		if ind > 0 {
			buf = append(buf, '.')
		}
		if part == `*` {
			buf = append(buf, '*')
			continue
		}
		buf = appendIdent(buf, part)
	}
	return buf
}

func appendQuoted(buf []byte, val string) []byte {
	buf = append(buf, quoteSingle)
	for ind := 0; ind < len(val); ind++ {
		char := val[ind]
		if char == quoteSingle {
			buf = append(buf, quoteSingle)
		}
		buf = append(buf, char)
	}
	return append(buf, quoteSingle)
}

func appendRawArg(buf []byte, tpl string, val any) []byte {
	switch val := val.(type) {
	case nil:
		return buf
	case string:
		return append(buf, val...)
	case Expr:
		return val.AppendExpr(buf)
	}

	out, err := appendText(buf, val)
	if err != nil {
		panic(errFormat(tpl, err))
	}
	return out
}

func appendLiteral(buf []byte, src any, top bool) []byte {
	val := normValuer(src)
	if val == nil {
		return append(buf, `NULL`...)
	}

	switch val := val.(type) {
	case bool:
		return strconv.AppendBool(buf, val)
	case string:
		return appendQuoted(buf, val)
	case time.Time:
		return appendQuoted(buf, val.UTC().Format(timeLayout))
	case []byte:
		return appendBytesLiteral(buf, val)
	case json.RawMessage:
		return appendQuoted(buf, string(val))
	case *big.Int:
		return val.Append(buf, 10)
	case *big.Float:
		return val.Append(buf, 'f', -1)
	case Ident:
		return appendQuoted(buf, string(val))
	}

	rval := r.ValueOf(val)
	if rval.Kind() == r.Ptr {
		return appendLiteral(buf, rval.Elem().Interface(), top)
	}

	if impl, ok := val.(json.Marshaler); ok {
		return appendJsonLiteral(buf, impl)
	}

	switch rval.Kind() {
	case r.Bool:
		return strconv.AppendBool(buf, rval.Bool())

	case r.Int, r.Int8, r.Int16, r.Int32, r.Int64:
		return strconv.AppendInt(buf, rval.Int(), 10)

	case r.Uint, r.Uint8, r.Uint16, r.Uint32, r.Uint64, r.Uintptr:
		return strconv.AppendUint(buf, rval.Uint(), 10)

	case r.Float32, r.Float64:
		return appendFloatLiteral(buf, rval.Float())

	case r.String:
		return appendQuoted(buf, rval.String())

	case r.Slice, r.Array:
		if rval.Type().Elem().Kind() == r.Uint8 {
			bytes := make([]byte, rval.Len())
			r.Copy(r.ValueOf(bytes), rval)
			return appendBytesLiteral(buf, bytes)
		}
		return appendListLiteral(buf, rval, top)

	case r.Map, r.Struct:
		return appendJsonLiteral(buf, rval.Interface())

	case r.Func, r.Chan, r.UnsafePointer, r.Complex64, r.Complex128:
		panic(errFormat(`%L`, errf(`unsupported literal type %T`, val)))
	}

	if text, ok := val.(encoding.TextMarshaler); ok {
		return appendQuoted(buf, string(try1(text.MarshalText())))
	}
	if str, ok := val.(fmt.Stringer); ok {
		return appendQuoted(buf, str.String())
	}

	panic(errFormat(`%L`, errf(`unsupported literal type %T`, val)))
}

func appendFloatLiteral(buf []byte, val float64) []byte {
	switch {
	case math.IsNaN(val):
		return append(buf, `'NaN'`...)
	case math.IsInf(val, 1):
		return append(buf, `'Infinity'`...)
	case math.IsInf(val, -1):
		return append(buf, `'-Infinity'`...)
	default:
		return strconv.AppendFloat(buf, val, 'f', -1, 64)
	}
}

func appendBytesLiteral(buf []byte, val []byte) []byte {
	buf = append(buf, `'\x`...)
	buf = hex.AppendEncode(buf, val)
	return append(buf, quoteSingle)
}

func appendListLiteral(buf []byte, val r.Value, top bool) []byte {
	if !top {
		buf = append(buf, '(')
	}
	for ind := 0; ind < val.Len(); ind++ {
		if ind > 0 {
			buf = append(buf, ',')
		}
		buf = appendLiteral(buf, val.Index(ind).Interface(), false)
	}
	if !top {
		buf = append(buf, ')')
	}
	return buf
}

func appendJsonLiteral(buf []byte, val any) []byte {
	return appendQuoted(buf, string(marshalJson(val)))
}

func marshalJson(val any) []byte {
	out, err := json.Marshal(val)
	if err != nil {
		panic(errFormat(`%L`, err))
	}
	return out
}

/*
Appends the text representation of a value for `%s`. Supports only
"intentionally" encodable types: `fmt.Stringer`, `encoding.TextMarshaler`,
built-in primitives, and byte slices. Floats are encoded without the scientific
notation.
*/
func appendText(buf []byte, src any) ([]byte, error) {
	if src == nil {
		return buf, nil
	}

	stringer, _ := src.(fmt.Stringer)
	if stringer != nil {
		return append(buf, stringer.String()...), nil
	}

	marshaler, _ := src.(encoding.TextMarshaler)
	if marshaler != nil {
		chunk, err := marshaler.MarshalText()
		if err != nil {
			return buf, err
		}
		return append(buf, chunk...), nil
	}

	valuer, _ := src.(driver.Valuer)
	if valuer != nil {
		val, err := valuer.Value()
		if err != nil {
			return buf, err
		}
		return appendText(buf, val)
	}

	val := valueOf(src)
	if !val.IsValid() {
		return buf, nil
	}

	switch val.Kind() {
	case r.Int8, r.Int16, r.Int32, r.Int64, r.Int:
		return strconv.AppendInt(buf, val.Int(), 10), nil

	case r.Uint8, r.Uint16, r.Uint32, r.Uint64, r.Uint:
		return strconv.AppendUint(buf, val.Uint(), 10), nil

	case r.Float32, r.Float64:
		return strconv.AppendFloat(buf, val.Float(), 'f', -1, 64), nil

	case r.Bool:
		return strconv.AppendBool(buf, val.Bool()), nil

	case r.String:
		return append(buf, val.String()...), nil

	default:
		if val.Type().ConvertibleTo(typeBytes) {
			return append(buf, val.Bytes()...), nil
		}
		return buf, errf(`unsupported raw type %v`, val.Type())
	}
}
