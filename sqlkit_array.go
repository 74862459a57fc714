package sqlkit

/*
Mutations of a native array column with the given element type. The source
value is coalesced to an empty array of that type.
*/
type TypedArrayOps struct {
	Type string
}

func (self TypedArrayOps) arrayType() string { return self.Type + `[]` }

func (self TypedArrayOps) base(col string) string {
	return `COALESCE(` + col + `, '{}'::` + self.arrayType() + `)`
}

// Renders `ARRAY[...]::type[]`, or `'{}'::type[]` when empty.
func (self TypedArrayOps) literal(vals []any) string {
	vals = flattenValues(vals)
	if len(vals) == 0 {
		return `'{}'::` + self.arrayType()
	}

	bui := MakeBui(64)
	bui.Raw(`ARRAY[`)
	for ind, val := range vals {
		if ind > 0 {
			bui.Raw(`,`)
		}
		if isJsonType(self.Type) {
			bui.Text = appendQuoted(bui.Text, jsonText(val))
		} else {
			bui.Text = appendArrayElem(bui.Text, val)
		}
	}
	bui.Raw(`]::`)
	bui.Raw(self.arrayType())
	return bui.String()
}

func (self TypedArrayOps) elem(val any) string {
	if isJsonType(self.Type) {
		return TryFormat(`%L::%s`, jsonText(val), self.Type)
	}
	return TryFormat(`%L::%s`, val, self.Type)
}

// Replaces the whole array.
func (self TypedArrayOps) Set(vals ...any) Mutation {
	return MutationFunc(func(string) string { return self.literal(vals) })
}

func (self TypedArrayOps) Append(vals ...any) Mutation {
	return MutationFunc(func(col string) string {
		return `array_cat(` + self.base(col) + `, ` + self.literal(vals) + `)`
	})
}

func (self TypedArrayOps) Prepend(vals ...any) Mutation {
	return MutationFunc(func(col string) string {
		return `array_cat(` + self.literal(vals) + `, ` + self.base(col) + `)`
	})
}

// Removes every element equal to the value.
func (self TypedArrayOps) Remove(val any) Mutation {
	return MutationFunc(func(col string) string {
		return `array_remove(` + self.base(col) + `, ` + self.elem(val) + `)`
	})
}

// Concatenates another array, which may be a list or an `Expr` such as
// another column.
func (self TypedArrayOps) Concat(val any) Mutation {
	return MutationFunc(func(col string) string {
		if expr, ok := val.(Expr); ok {
			return TryFormat(`array_cat(%s, %s)`, self.base(col), expr)
		}
		return `array_cat(` + self.base(col) + `, ` + self.literal([]any{val}) + `)`
	})
}

/*
Mutations of a `jsonb[]` column: the typed array operations plus rewrites
matching object elements, via `unnest(...) WITH ORDINALITY`.
*/
type JsonbListOps struct {
	TypedArrayOps
}

func (self JsonbListOps) rewrite(col, elem, where string) string {
	out := `COALESCE(ARRAY(SELECT ` + elem + ` FROM unnest(` + self.base(col) +
		`) WITH ORDINALITY AS t(elem, idx)`
	if where != `` {
		out += ` WHERE ` + where
	}
	return out + ` ORDER BY idx), '{}'::jsonb[])`
}

// Removes elements whose key equals the value.
func (self JsonbListOps) RemoveWhere(key string, val any) Mutation {
	return MutationFunc(func(col string) string {
		return self.rewrite(col, `elem`, TryFormat(`elem -> %L IS DISTINCT FROM %L::jsonb`, key, jsonText(val)))
	})
}

// Removes elements containing all the given key-value pairs.
func (self JsonbListOps) RemoveWhereAll(match map[string]any) Mutation {
	return MutationFunc(func(col string) string {
		return self.rewrite(col, `elem`, TryFormat(`NOT (elem @> %L::jsonb)`, jsonText(match)))
	})
}

// Keeps only elements whose key equals the value.
func (self JsonbListOps) FilterWhere(key string, val any) Mutation {
	return MutationFunc(func(col string) string {
		return self.rewrite(col, `elem`, TryFormat(`elem -> %L = %L::jsonb`, key, jsonText(val)))
	})
}

// Shallow-merges the updates into every element whose key equals the value.
func (self JsonbListOps) UpdateWhere(key string, val any, updates map[string]any) Mutation {
	return MutationFunc(func(col string) string {
		elem := TryFormat(
			`CASE WHEN elem -> %L = %L::jsonb THEN elem || %L::jsonb ELSE elem END`,
			key, jsonText(val), jsonText(updates),
		)
		return self.rewrite(col, elem, ``)
	})
}
