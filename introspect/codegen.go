package introspect

import (
	"fmt"
	"go/format"
	"strconv"
	"strings"
	"unicode"
)

const schemaPkg = `schema`

// Factories without type parameters, keyed by canonical type name.
var plainFactories = map[string]string{
	`smallint`: `SmallInt`, `int2`: `SmallInt`,
	`integer`: `Integer`, `int`: `Integer`, `int4`: `Integer`,
	`bigint`: `BigInt`, `int8`: `BigInt`,
	`serial`: `Serial`, `serial4`: `Serial`,
	`smallserial`: `SmallSerial`, `serial2`: `SmallSerial`,
	`bigserial`: `BigSerial`, `serial8`: `BigSerial`,
	`real`: `Real`, `float4`: `Real`,
	`double precision`: `DoublePrecision`, `float8`: `DoublePrecision`, `float`: `DoublePrecision`,
	`text`: `Text`, `citext`: `Citext`,
	`boolean`: `Boolean`, `bool`: `Boolean`,
	`uuid`: `UUID`, `date`: `Date`,
	`time`: `Time`, `time without time zone`: `Time`,
	`timestamp`: `Timestamp`, `timestamp without time zone`: `Timestamp`,
	`timestamptz`: `Timestamptz`, `timestamp with time zone`: `Timestamptz`,
	`interval`: `Interval`, `json`: `JSON`, `jsonb`: `JSONB`,
	`bytea`: `Bytea`, `blob`: `Blob`, `inet`: `Inet`, `cidr`: `Cidr`,
	`macaddr`: `Macaddr`, `money`: `Money`, `tsvector`: `Tsvector`,
}

/*
Returns the canonical type factory call for the column, such as
`schema.Varchar(255)` for "VARCHAR(255)" or `schema.Integer().Array()` for
"INTEGER[]". Unknown types use `schema.Custom`.
*/
func TypeCode(col Column) string {
	out := typeFactory(col)
	if col.Array {
		out += `.Array()`
	}
	return out
}

func typeFactory(col Column) string {
	typ := strings.ToLower(strings.TrimSpace(col.Type))

	if name, ok := plainFactories[typ]; ok && (len(col.Params) == 0 || !hasPrecision(typ)) {
		return schemaPkg + `.` + name + `()`
	}

	switch typ {
	case `varchar`, `character varying`:
		if num, ok := intParam(col.Params, 0); ok {
			return fmt.Sprintf(`%v.Varchar(%v)`, schemaPkg, num)
		}
	case `char`, `character`, `bpchar`:
		if num, ok := intParam(col.Params, 0); ok {
			return fmt.Sprintf(`%v.Char(%v)`, schemaPkg, num)
		}
	case `numeric`, `decimal`:
		prec, ok0 := intParam(col.Params, 0)
		scale, ok1 := intParam(col.Params, 1)
		if ok0 && ok1 {
			name := `Numeric`
			if typ == `decimal` {
				name = `Decimal`
			}
			return fmt.Sprintf(`%v.%v(%v, %v)`, schemaPkg, name, prec, scale)
		}
	}

	custom := Column{Type: col.Type, Params: col.Params}
	return schemaPkg + `.Custom(` + goString(custom.SQLType()) + `)`
}

// Time-like types accept a precision the factories don't model.
func hasPrecision(typ string) bool {
	return strings.HasPrefix(typ, `time`) || typ == `interval` || typ == `float`
}

// Missing parameters count as zero, which the factories treat as "unset".
func intParam(params []string, ind int) (int, bool) {
	if ind >= len(params) {
		return 0, true
	}
	num, err := strconv.Atoi(strings.TrimSpace(params[ind]))
	return num, err == nil && num >= 0
}

// Returns the full column expression: the type factory followed by modifiers.
func ColumnCode(col Column) string {
	var buf strings.Builder
	buf.WriteString(TypeCode(col))

	if col.PrimaryKey {
		buf.WriteString(`.PrimaryKey()`)
	} else if col.NotNull {
		buf.WriteString(`.NotNull()`)
	}
	if col.Unique {
		buf.WriteString(`.Unique()`)
	}
	if col.AutoIncrement {
		buf.WriteString(`.AutoIncrement()`)
	}
	switch col.Identity {
	case `always`:
		buf.WriteString(`.IdentityAlways()`)
	case `by default`:
		buf.WriteString(`.IdentityByDefault()`)
	}
	if col.Default != `` {
		buf.WriteString(`.DefaultSQL(` + goString(col.Default) + `)`)
	}
	if col.Generated != `` {
		buf.WriteString(`.Generated(` + goString(col.Generated) + `)`)
	}
	if col.Check != `` {
		buf.WriteString(`.Check(` + goString(col.Check) + `)`)
	}
	if col.Collate != `` {
		buf.WriteString(`.Collate(` + goString(col.Collate) + `)`)
	}
	if ref := col.References; ref != nil {
		buf.WriteString(`.References(` + goString(ref.Table) + `, ` + goString(ref.Column) + `)`)
		if ref.OnDelete != `` {
			buf.WriteString(`.OnDelete(` + goString(ref.OnDelete) + `)`)
		}
		if ref.OnUpdate != `` {
			buf.WriteString(`.OnUpdate(` + goString(ref.OnUpdate) + `)`)
		}
	}
	return buf.String()
}

/*
Generates a gofmt-formatted Go file declaring one `schema.TryDefineTable`
variable per table. Variable names are derived from table names:
"order_items" becomes `OrderItems`.
*/
func Generate(pkg string, tables []Table) ([]byte, error) {
	if pkg == `` {
		pkg = `models`
	}

	var buf strings.Builder
	buf.WriteString("// Code generated by sqlkit codegen. DO NOT EDIT.\n\n")
	buf.WriteString(`package ` + pkg + "\n\n")
	buf.WriteString(`import "github.com/mitranim/sqlkit/schema"` + "\n")

	if len(tables) > 0 {
		buf.WriteString("\nvar (\n")
		seen := map[string]int{}
		for _, table := range tables {
			name := varName(table)
			seen[name]++
			if count := seen[name]; count > 1 {
				name += strconv.Itoa(count)
			}
			writeTable(&buf, name, table)
		}
		buf.WriteString(")\n")
	}

	out, err := format.Source([]byte(buf.String()))
	if err != nil {
		return nil, fmt.Errorf(`[sqlkit] failed to format generated code: %w`, err)
	}
	return out, nil
}

func writeTable(buf *strings.Builder, name string, table Table) {
	fmt.Fprintf(buf, "\t%v = %v.TryDefineTable(%v, %v.Cols{\n", name, schemaPkg, goString(table.Name), schemaPkg)
	for _, col := range table.Columns {
		fmt.Fprintf(buf, "\t\t{Key: %v, Column: %v},\n", goString(col.Name), ColumnCode(col))
	}
	buf.WriteString("\t}")

	if opts := tableOpts(table); opts != `` {
		buf.WriteString(`, ` + schemaPkg + `.TableOpts{` + opts + `}`)
	}
	buf.WriteString(")\n")
}

func tableOpts(table Table) string {
	var fields []string
	add := func(key, val string) { fields = append(fields, key+`: `+val) }

	if table.Schema != `` {
		add(`Schema`, goString(table.Schema))
	}
	if len(table.PrimaryKey) > 0 {
		add(`PrimaryKey`, goStrings(table.PrimaryKey))
	}
	if len(table.Uniques) > 0 {
		var vals []string
		for _, val := range table.Uniques {
			vals = append(vals, strings.TrimPrefix(goStrings(val), `[]string`))
		}
		add(`Uniques`, `[][]string{`+strings.Join(vals, `, `)+`}`)
	}
	if len(table.ForeignKeys) > 0 {
		var vals []string
		for _, fk := range table.ForeignKeys {
			vals = append(vals, foreignKeyCode(fk))
		}
		add(`ForeignKeys`, `[]`+schemaPkg+`.ForeignKey{`+strings.Join(vals, `, `)+`}`)
	}
	if len(table.Checks) > 0 {
		var vals []string
		for _, val := range table.Checks {
			vals = append(vals, `{Expr: `+goString(val)+`}`)
		}
		add(`Checks`, `[]`+schemaPkg+`.Check{`+strings.Join(vals, `, `)+`}`)
	}
	if table.Temporary {
		add(`Temporary`, `true`)
	}
	if table.Unlogged {
		add(`Unlogged`, `true`)
	}
	if table.IfNotExists {
		add(`IfNotExists`, `true`)
	}
	if table.Strict {
		add(`Strict`, `true`)
	}
	if table.WithoutRowID {
		add(`WithoutRowID`, `true`)
	}
	return strings.Join(fields, `, `)
}

func foreignKeyCode(fk ForeignKey) string {
	fields := []string{`Columns: ` + goStrings(fk.Columns), `Table: ` + goString(fk.Table)}
	if fk.Name != `` {
		fields = append([]string{`Name: ` + goString(fk.Name)}, fields...)
	}
	if len(fk.RefColumns) > 0 {
		fields = append(fields, `RefColumns: `+goStrings(fk.RefColumns))
	}
	if fk.OnDelete != `` {
		fields = append(fields, `OnDelete: `+goString(fk.OnDelete))
	}
	if fk.OnUpdate != `` {
		fields = append(fields, `OnUpdate: `+goString(fk.OnUpdate))
	}
	return `{` + strings.Join(fields, `, `) + `}`
}

func varName(table Table) string {
	name := table.Name
	if table.Schema != `` && table.Schema != `public` {
		name = table.Schema + `_` + name
	}
	return exportedName(name)
}

// Converts "order_items" or "order-items" to "OrderItems".
func exportedName(src string) string {
	var buf strings.Builder
	upper := true
	for _, char := range src {
		if !unicode.IsLetter(char) && !unicode.IsDigit(char) {
			upper = true
			continue
		}
		if buf.Len() == 0 && unicode.IsDigit(char) {
			buf.WriteString(`T`)
		}
		if upper {
			char = unicode.ToUpper(char)
			upper = false
		}
		buf.WriteRune(char)
	}
	if buf.Len() == 0 {
		return `Table`
	}
	return buf.String()
}

// Go string literal, preferring raw strings.
func goString(src string) string {
	if !strconv.CanBackquote(src) {
		return strconv.Quote(src)
	}
	return "`" + src + "`"
}

func goStrings(vals []string) string {
	out := make([]string, len(vals))
	for ind, val := range vals {
		out[ind] = goString(val)
	}
	return `[]string{` + strings.Join(out, `, `) + `}`
}
