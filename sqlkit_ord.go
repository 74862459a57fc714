package sqlkit

const (
	DirNone Dir = 0
	DirAsc  Dir = 1
	DirDesc Dir = 2
)

// Short for "direction". Enum for ordering direction: none, "ASC", "DESC".
type Dir byte

// Appends the keyword, space-delimited, or nothing for `DirNone`.
func (self Dir) Append(text []byte) []byte {
	if self == DirNone {
		return text
	}
	return appendMaybeSpaced(text, self.String())
}

// Implement `fmt.Stringer`.
func (self Dir) String() string {
	switch self {
	case DirAsc:
		return `ASC`
	case DirDesc:
		return `DESC`
	default:
		return ``
	}
}

// Parses a direction case-insensitively: "", "asc", or "desc".
func (self *Dir) Parse(src string) error {
	if src == `` {
		*self = DirNone
		return nil
	}
	out := strDir(src)
	if out == DirNone {
		return errFormat(src, errf(`unrecognized order direction %q`, src))
	}
	*self = out
	return nil
}

// Implement `encoding.TextUnmarshaler`.
func (self *Dir) UnmarshalText(src []byte) error { return self.Parse(string(src)) }

// Implement `encoding.TextMarshaler`.
func (self Dir) MarshalText() ([]byte, error) { return []byte(self.String()), nil }

// Implement `fmt.GoStringer` for debug purposes. Returns valid Go code
// representing this value.
func (self Dir) GoString() string {
	switch self {
	case DirAsc:
		return `sqlkit.DirAsc`
	case DirDesc:
		return `sqlkit.DirDesc`
	default:
		return `sqlkit.DirNone`
	}
}

const (
	NullsNone  Nulls = 0
	NullsFirst Nulls = 1
	NullsLast  Nulls = 2
)

// Enum for nulls handling in ordering: none, "NULLS FIRST", "NULLS LAST".
type Nulls byte

// Appends the keywords, space-delimited, or nothing for `NullsNone`.
func (self Nulls) Append(text []byte) []byte {
	if self == NullsNone {
		return text
	}
	return appendMaybeSpaced(text, self.String())
}

// Implement `fmt.Stringer`.
func (self Nulls) String() string {
	switch self {
	case NullsFirst:
		return `NULLS FIRST`
	case NullsLast:
		return `NULLS LAST`
	default:
		return ``
	}
}

// Implement `fmt.GoStringer` for debug purposes. Returns valid Go code
// representing this value.
func (self Nulls) GoString() string {
	switch self {
	case NullsFirst:
		return `sqlkit.NullsFirst`
	case NullsLast:
		return `sqlkit.NullsLast`
	default:
		return `sqlkit.NullsNone`
	}
}

/*
One element of an ORDER BY clause. `Expr` is either a column name, resolved
and qualified by the enclosing builder, or an arbitrary `Expr` rendered
verbatim.
*/
type Ord struct {
	Expr  any
	Dir   Dir
	Nulls Nulls
}

/*
Parses an ordering string such as "created_at desc nulls last". The column may
be dot-qualified. Direction and nulls placement are optional and
case-insensitive.
*/
func ParseOrd(src string) (Ord, error) {
	match := ordReg.FindStringSubmatch(src)
	if match == nil {
		return Ord{}, errFormat(src, errf(`malformed ordering %q, expected "<column> [asc|desc] [nulls first|last]"`, src))
	}
	return Ord{Expr: match[1], Dir: strDir(match[2]), Nulls: strNulls(match[3])}, nil
}

// Implement the `Expr` interface, making this a sub-expression. Column names
// are neither resolved nor qualified.
func (self Ord) AppendExpr(text []byte) []byte {
	return self.appendWith(text, nil, ``)
}

// Implement the `fmt.Stringer` interface for debug purposes.
func (self Ord) String() string { return exprString(self) }

func (self Ord) appendWith(text []byte, resolve ColumnResolver, qualify string) []byte {
	switch val := self.Expr.(type) {
	case nil:
		return text
	case string:
		text = appendResolvedColumn(text, val, resolve, qualify)
	case Expr:
		text = maybeAppendSpace(text)
		text = val.AppendExpr(text)
	default:
		panic(errFormat(`ORDER BY`, errf(`unsupported ordering expression %T`, val)))
	}
	text = self.Dir.Append(text)
	text = self.Nulls.Append(text)
	return text
}

func appendOrds(bui *Bui, ords []Ord, resolve ColumnResolver, qualify string) {
	if len(ords) == 0 {
		return
	}
	bui.Str(`ORDER BY`)
	for ind, ord := range ords {
		if ind > 0 {
			bui.Raw(`,`)
		}
		bui.Set(ord.appendWith(bui.Get(), resolve, qualify))
	}
}
