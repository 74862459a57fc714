package sqlkit

import (
	"encoding/json"
	r "reflect"
	"strings"
	"time"
)

/*
Renders a value for an INSERT row, UPDATE SET clause, or conflict update.
Column types come from an optional `TypeResolver`:

	* "<type>[]" renders lists as `ARRAY[...]`, casting elements of types that
	  lack an implicit conversion from text, and empty lists as `'{}'::<type>[]`.
	* "json" and "jsonb" render the JSON encoding of the value, cast to JSONB
	  (or TEXT when `Capabilities.JsonAsText` is set).

Without a declared type, homogeneous scalar lists render as `ARRAY[...]`, while
maps, structs, and lists of objects or mixed kinds render as JSONB.
*/
func appendTypedValue(bui *Bui, val any, typ string, caps Capabilities) {
	if val == nil {
		bui.Str(`NULL`)
		return
	}

	switch val.(type) {
	case subquery, Expr:
		bui.Any(val)
		return
	}

	typ = strings.ToLower(strings.TrimSpace(typ))

	if elem, ok := strings.CutSuffix(typ, `[]`); ok {
		rval := valueOf(val)
		if isListValue(rval) {
			appendArrayValue(bui, listElems(rval), elem)
			return
		}
		bui.Lit(val)
		return
	}

	if isJsonType(typ) {
		appendJsonValue(bui, val, caps)
		return
	}

	rval := valueOf(val)
	if !rval.IsValid() {
		bui.Str(`NULL`)
		return
	}

	if isListValue(rval) {
		elems := listElems(rval)
		if len(elems) == 0 {
			bui.Str(`'{}'`)
			return
		}
		if isScalarList(elems) {
			appendArrayValue(bui, elems, ``)
			return
		}
		appendJsonValue(bui, val, caps)
		return
	}

	if isJsonObject(rval) {
		appendJsonValue(bui, val, caps)
		return
	}

	bui.Lit(val)
}

func isJsonType(typ string) bool { return typ == `json` || typ == `jsonb` }

func isJsonObject(val r.Value) bool {
	if !val.IsValid() {
		return false
	}
	switch val.Kind() {
	case r.Map:
		return true
	case r.Struct:
		return val.Type() != typeTime && !isScannableRtype(val.Type())
	default:
		return false
	}
}

func isScalarList(vals []any) bool {
	var kind r.Kind
	for _, val := range vals {
		rval := valueOf(normValuer(val))
		if !rval.IsValid() {
			continue
		}
		if isListValue(rval) || isJsonObject(rval) {
			return false
		}

		cur := scalarKind(rval)
		if kind == r.Invalid {
			kind = cur
		} else if kind != cur {
			return false
		}
	}
	return true
}

// Groups numeric kinds together so that mixed int and float lists still count
// as homogeneous.
func scalarKind(val r.Value) r.Kind {
	switch val.Kind() {
	case r.Int, r.Int8, r.Int16, r.Int32, r.Int64,
		r.Uint, r.Uint8, r.Uint16, r.Uint32, r.Uint64, r.Uintptr,
		r.Float32, r.Float64:
		return r.Float64
	case r.Struct:
		if val.Type() == typeTime {
			return r.UnsafePointer
		}
	}
	return val.Kind()
}

// Element types which need an explicit cast when written as quoted literals
// inside `ARRAY[...]`.
var castElemTypes = map[string]bool{
	`uuid`:        true,
	`date`:        true,
	`time`:        true,
	`timestamp`:   true,
	`timestamptz`: true,
	`interval`:    true,
	`json`:        true,
	`jsonb`:       true,
	`inet`:        true,
	`cidr`:        true,
	`macaddr`:     true,
	`citext`:      true,
	`bytea`:       true,
}

func appendArrayValue(bui *Bui, vals []any, elem string) {
	if len(vals) == 0 {
		bui.Str(`'{}'`)
		if elem != `` {
			bui.Raw(`::`)
			bui.Raw(elem)
			bui.Raw(`[]`)
		}
		return
	}

	cast := castElemTypes[elem]
	isJson := isJsonType(elem)

	bui.Str(`ARRAY[`)
	for ind, val := range vals {
		if ind > 0 {
			bui.Raw(`,`)
		}
		if isJson {
			bui.Text = appendQuoted(bui.Text, string(jsonValue(val)))
		} else {
			bui.Text = appendArrayElem(bui.Text, val)
		}
		if cast {
			bui.Raw(`::`)
			bui.Raw(elem)
		}
	}
	bui.Raw(`]`)
}

func appendArrayElem(text []byte, val any) []byte {
	expr, _ := val.(Expr)
	if expr != nil {
		return expr.AppendExpr(text)
	}
	return appendLiteral(text, val, false)
}

func appendJsonValue(bui *Bui, val any, caps Capabilities) {
	bui.Space()
	bui.Text = appendQuoted(bui.Text, string(jsonValue(val)))
	bui.Raw(caps.jsonCast())
}

// JSON encoding of a value. Raw JSON passes through. Times use the same layout
// as `%L`.
func jsonValue(val any) []byte {
	switch val := normValuer(val).(type) {
	case nil:
		return []byte(`null`)
	case json.RawMessage:
		return val
	case time.Time:
		return marshalJson(val.UTC().Format(timeLayout))
	default:
		return marshalJson(val)
	}
}
