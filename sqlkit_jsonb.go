package sqlkit

import (
	"strings"
)

/*
JSONB object mutations. Paths are dot-separated keys such as "prefs.theme".
The source value is coalesced to an empty object.

	sqlkit.Update(`users`).
		Set(`settings`, sqlkit.UpdateFunc(func(ops sqlkit.UpdateOps) sqlkit.Mutation {
			return ops.Jsonb.SetField(`theme`, `dark`)
		}))
*/
type JsonbOps struct{}

func jsonbObject(col string) string { return `COALESCE(` + col + `, '{}'::jsonb)` }

// Replaces the whole value.
func (JsonbOps) Set(val any) Mutation {
	return MutationFunc(func(string) string {
		return TryFormat(`%L::jsonb`, jsonText(val))
	})
}

// `jsonb_set(col, '{path}', val, true)`, creating the key when missing.
func (JsonbOps) SetField(path string, val any) Mutation {
	return MutationFunc(func(col string) string {
		return TryFormat(`jsonb_set(%s, %L, %L::jsonb, true)`, jsonbObject(col), jsonPath(path), jsonText(val))
	})
}

// Removes one key, or one nested path via `#-`.
func (JsonbOps) RemoveField(path string) Mutation {
	return MutationFunc(func(col string) string {
		if strings.Contains(path, `.`) {
			return TryFormat(`%s #- %L`, jsonbObject(col), jsonPath(path))
		}
		return TryFormat(`%s - %L`, jsonbObject(col), path)
	})
}

// Removes several top-level keys.
func (JsonbOps) RemoveFields(keys ...string) Mutation {
	return MutationFunc(func(col string) string {
		if len(keys) == 0 {
			return jsonbObject(col)
		}
		return TryFormat(`%s - ARRAY[%L]::text[]`, jsonbObject(col), keys)
	})
}

// Shallow merge via `||`. Keys of the input win.
func (JsonbOps) Merge(val any) Mutation {
	return MutationFunc(func(col string) string {
		return TryFormat(`%s || %L::jsonb`, jsonbObject(col), jsonText(val))
	})
}

/*
Recursive merge. Nested maps are merged key by key via nested `jsonb_set`
calls, preserving sibling keys at every level. Other values replace the
existing value at their path.
*/
func (JsonbOps) DeepMerge(val map[string]any) Mutation {
	return MutationFunc(func(col string) string {
		return deepMergeExpr(jsonbObject(col), val)
	})
}

func deepMergeExpr(base string, src map[string]any) string {
	out := base
	for _, key := range sortedKeys(src) {
		path := jsonPath(key)
		val := src[key]

		sub, ok := val.(map[string]any)
		if ok {
			inner := TryFormat(`COALESCE(%s -> %L, '{}'::jsonb)`, base, key)
			out = TryFormat(`jsonb_set(%s, %L, %s, true)`, out, path, deepMergeExpr(inner, sub))
			continue
		}
		out = TryFormat(`jsonb_set(%s, %L, %L::jsonb, true)`, out, path, jsonText(val))
	}
	return out
}

// Moves the value of one top-level key to another, if present.
func (JsonbOps) RenameField(from, to string) Mutation {
	return MutationFunc(func(col string) string {
		base := jsonbObject(col)
		return TryFormat(
			`CASE WHEN %s ? %L THEN (%s - %L) || jsonb_build_object(%L, %s -> %L) ELSE %s END`,
			base, from, base, from, to, base, from, base,
		)
	})
}

// Adds to a numeric field, treating a missing field as 0.
func (self JsonbOps) Increment(path string, val any) Mutation {
	return self.arith(path, `+`, val)
}

// Subtracts from a numeric field, treating a missing field as 0.
func (self JsonbOps) Decrement(path string, val any) Mutation {
	return self.arith(path, `-`, val)
}

// Multiplies a numeric field, treating a missing field as 0.
func (self JsonbOps) Multiply(path string, val any) Mutation {
	return self.arith(path, `*`, val)
}

func (JsonbOps) arith(path, op string, val any) Mutation {
	return MutationFunc(func(col string) string {
		base := jsonbObject(col)
		pathLit := jsonPath(path)
		return TryFormat(
			`jsonb_set(%s, %L, to_jsonb(COALESCE((%s #>> %L)::numeric, 0) %s %L), true)`,
			base, pathLit, base, pathLit, op, val,
		)
	})
}

// Negates a boolean field, treating a missing field as false.
func (JsonbOps) Toggle(path string) Mutation {
	return MutationFunc(func(col string) string {
		base := jsonbObject(col)
		pathLit := jsonPath(path)
		return TryFormat(
			`jsonb_set(%s, %L, to_jsonb(NOT COALESCE((%s #>> %L)::boolean, false)), true)`,
			base, pathLit, base, pathLit,
		)
	})
}

// Sets a field to the current timestamp.
func (JsonbOps) SetTimestamp(path string) Mutation {
	return MutationFunc(func(col string) string {
		return TryFormat(`jsonb_set(%s, %L, to_jsonb(now()), true)`, jsonbObject(col), jsonPath(path))
	})
}

// Appends to a string field, treating a missing field as "".
func (self JsonbOps) AppendString(path, val string) Mutation {
	return self.concat(path, val, false)
}

// Prepends to a string field, treating a missing field as "".
func (self JsonbOps) PrependString(path, val string) Mutation {
	return self.concat(path, val, true)
}

func (JsonbOps) concat(path, val string, prepend bool) Mutation {
	return MutationFunc(func(col string) string {
		base := jsonbObject(col)
		pathLit := jsonPath(path)
		cur := TryFormat(`COALESCE(%s #>> %L, '')`, base, pathLit)
		lit := TryFormat(`%L`, val)

		expr := cur + ` || ` + lit
		if prepend {
			expr = lit + ` || ` + cur
		}
		return TryFormat(`jsonb_set(%s, %L, to_jsonb(%s), true)`, base, pathLit, expr)
	})
}

// Mutations treating the column as a JSONB array.
func (JsonbOps) Array() JsonbArrayOps { return JsonbArrayOps{} }

/*
JSONB array mutations. The source value is coalesced to an empty array.
Rewrites go through `jsonb_array_elements(...) WITH ORDINALITY` and
`jsonb_agg(... ORDER BY idx)`, coalesced back to an empty array when no
elements remain.
*/
type JsonbArrayOps struct{}

func jsonbArray(col string) string { return `COALESCE(` + col + `, '[]'::jsonb)` }

func jsonbList(vals []any) string { return jsonText(flattenValues(vals)) }

// Renders a rewrite of the array elements.
func jsonbRewrite(col, agg, where string) string {
	out := `COALESCE((SELECT jsonb_agg(` + agg + `) FROM jsonb_array_elements(` +
		jsonbArray(col) + `) WITH ORDINALITY AS t(elem, idx)`
	if where != `` {
		out += ` WHERE ` + where
	}
	return out + `), '[]'::jsonb)`
}

func (JsonbArrayOps) Set(vals ...any) Mutation {
	return MutationFunc(func(string) string {
		return TryFormat(`%L::jsonb`, jsonbList(vals))
	})
}

func (JsonbArrayOps) Append(vals ...any) Mutation {
	return MutationFunc(func(col string) string {
		return TryFormat(`%s || %L::jsonb`, jsonbArray(col), jsonbList(vals))
	})
}

func (JsonbArrayOps) Prepend(vals ...any) Mutation {
	return MutationFunc(func(col string) string {
		return TryFormat(`%L::jsonb || %s`, jsonbList(vals), jsonbArray(col))
	})
}

// Concatenates another array, which may be a JSON-encodable list or an `Expr`
// such as another column.
func (JsonbArrayOps) Concat(val any) Mutation {
	return MutationFunc(func(col string) string {
		if expr, ok := val.(Expr); ok {
			return TryFormat(`%s || %s`, jsonbArray(col), expr)
		}
		return TryFormat(`%s || %L::jsonb`, jsonbArray(col), jsonText(val))
	})
}

// Inserts before the zero-based index. Negative indexes count from the end.
func (JsonbArrayOps) InsertAt(ind int, val any) Mutation {
	return MutationFunc(func(col string) string {
		return TryFormat(`jsonb_insert(%s, %L, %L::jsonb)`, jsonbArray(col), jsonIndexPath(ind), jsonText(val))
	})
}

// Removes the element at the zero-based index.
func (JsonbArrayOps) RemoveAt(ind int) Mutation {
	return MutationFunc(func(col string) string {
		return TryFormat(`%s - %L`, jsonbArray(col), ind)
	})
}

// Removes the first element.
func (self JsonbArrayOps) Shift() Mutation { return self.RemoveAt(0) }

// Removes the last element.
func (self JsonbArrayOps) Pop() Mutation { return self.RemoveAt(-1) }

// Removes object elements whose key equals the value.
func (JsonbArrayOps) RemoveWhere(key string, val any) Mutation {
	return MutationFunc(func(col string) string {
		return jsonbRewrite(col, `elem ORDER BY idx`,
			TryFormat(`elem -> %L IS DISTINCT FROM %L::jsonb`, key, jsonText(val)))
	})
}

// Removes object elements containing all the given key-value pairs.
func (JsonbArrayOps) RemoveWhereAll(match map[string]any) Mutation {
	return MutationFunc(func(col string) string {
		return jsonbRewrite(col, `elem ORDER BY idx`,
			TryFormat(`NOT (elem @> %L::jsonb)`, jsonText(match)))
	})
}

// Keeps only object elements whose key equals the value.
func (JsonbArrayOps) Filter(key string, val any) Mutation {
	return MutationFunc(func(col string) string {
		return jsonbRewrite(col, `elem ORDER BY idx`,
			TryFormat(`elem -> %L = %L::jsonb`, key, jsonText(val)))
	})
}

// Keeps only object elements containing all the given key-value pairs.
func (JsonbArrayOps) FilterAll(match map[string]any) Mutation {
	return MutationFunc(func(col string) string {
		return jsonbRewrite(col, `elem ORDER BY idx`,
			TryFormat(`elem @> %L::jsonb`, jsonText(match)))
	})
}

// Replaces the element at the zero-based index. Out-of-range indexes leave the
// array unchanged.
func (JsonbArrayOps) UpdateAt(ind int, val any) Mutation {
	return MutationFunc(func(col string) string {
		return TryFormat(`jsonb_set(%s, %L, %L::jsonb, false)`, jsonbArray(col), jsonIndexPath(ind), jsonText(val))
	})
}

// Shallow-merges the updates into every object element whose key equals the
// value.
func (JsonbArrayOps) UpdateWhere(key string, val any, updates map[string]any) Mutation {
	return MutationFunc(func(col string) string {
		agg := TryFormat(
			`CASE WHEN elem -> %L = %L::jsonb THEN elem || %L::jsonb ELSE elem END ORDER BY idx`,
			key, jsonText(val), jsonText(updates),
		)
		return jsonbRewrite(col, agg, ``)
	})
}

func (JsonbArrayOps) Reverse() Mutation {
	return MutationFunc(func(col string) string {
		return jsonbRewrite(col, `elem ORDER BY idx DESC`, ``)
	})
}

// Removes duplicate elements, keeping the first occurrence of each.
func (JsonbArrayOps) Unique() Mutation {
	return MutationFunc(func(col string) string {
		return `COALESCE((SELECT jsonb_agg(elem ORDER BY idx) FROM (SELECT elem, MIN(idx) AS idx FROM jsonb_array_elements(` +
			jsonbArray(col) + `) WITH ORDINALITY AS t(elem, idx) GROUP BY elem) AS u), '[]'::jsonb)`
	})
}

// Removes object elements with a duplicate key value, keeping the first
// occurrence of each.
func (JsonbArrayOps) UniqueBy(key string) Mutation {
	return MutationFunc(func(col string) string {
		return TryFormat(
			`COALESCE((SELECT jsonb_agg(elem ORDER BY idx) FROM (SELECT DISTINCT ON (elem -> %L) elem, idx FROM jsonb_array_elements(%s) WITH ORDINALITY AS t(elem, idx) ORDER BY elem -> %L, idx) AS u), '[]'::jsonb)`,
			key, jsonbArray(col), key,
		)
	})
}

// Sorts object elements by a key. `DirNone` sorts ascending.
func (JsonbArrayOps) SortBy(key string, dir Dir) Mutation {
	if dir == DirNone {
		dir = DirAsc
	}
	return MutationFunc(func(col string) string {
		return jsonbRewrite(col, TryFormat(`elem ORDER BY elem -> %L %s, idx`, key, dir.String()), ``)
	})
}

// Keeps elements in the zero-based half-open range [start, end).
func (JsonbArrayOps) Slice(start, end int) Mutation {
	return MutationFunc(func(col string) string {
		return jsonbRewrite(col, `elem ORDER BY idx`, TryFormat(`idx > %L AND idx <= %L`, start, end))
	})
}

// Keeps the first n elements.
func (JsonbArrayOps) Take(n int) Mutation {
	return MutationFunc(func(col string) string {
		return jsonbRewrite(col, `elem ORDER BY idx`, TryFormat(`idx <= %L`, n))
	})
}

// Drops the first n elements.
func (JsonbArrayOps) Skip(n int) Mutation {
	return MutationFunc(func(col string) string {
		return jsonbRewrite(col, `elem ORDER BY idx`, TryFormat(`idx > %L`, n))
	})
}

// Sets a key of every object element.
func (JsonbArrayOps) MapSet(key string, val any) Mutation {
	return MutationFunc(func(col string) string {
		agg := TryFormat(`jsonb_set(elem, %L, %L::jsonb, true) ORDER BY idx`, jsonPath(key), jsonText(val))
		return jsonbRewrite(col, agg, ``)
	})
}

// Adds to a numeric key of every object element.
func (self JsonbArrayOps) MapIncrement(key string, val any) Mutation {
	return self.mapArith(key, `+`, val)
}

// Subtracts from a numeric key of every object element.
func (self JsonbArrayOps) MapDecrement(key string, val any) Mutation {
	return self.mapArith(key, `-`, val)
}

func (JsonbArrayOps) mapArith(key, op string, val any) Mutation {
	return MutationFunc(func(col string) string {
		agg := TryFormat(
			`jsonb_set(elem, %L, to_jsonb(COALESCE((elem ->> %L)::numeric, 0) %s %L), true) ORDER BY idx`,
			jsonPath(key), key, op, val,
		)
		return jsonbRewrite(col, agg, ``)
	})
}
