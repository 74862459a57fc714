package introspect

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/mitranim/sqlkit"
	"github.com/mitranim/sqlp"
)

// Malformed input, such as an unbalanced column list.
type ErrParse struct {
	sqlkit.Err
	Table string
	Pos   int
}

func (self ErrParse) Error() string { return self.Message(`parse error`) }

func (self ErrParse) Format(out fmt.State, verb rune) {
	self.FormatKind(out, verb, self.Error(), `table`, self.Table, `position`, self.Pos)
}

func (self ErrParse) MarshalJSON() ([]byte, error) {
	return self.MarshalKind(`ParseError`, self.Error(), `table`, self.Table, `position`, self.Pos)
}

func (self ErrParse) Is(err error) bool {
	_, ok := err.(ErrParse)
	return ok
}

func errParse(table string, pos int, cause error) ErrParse {
	while := `parsing SQL`
	if table != `` {
		while = fmt.Sprintf(`parsing table %q`, table)
	}
	return ErrParse{Err: sqlkit.MakeErr(while, cause), Table: table, Pos: pos}
}

var createTableReg = regexp.MustCompile(
	`(?is)\bcreate\s+(?:(?:global|local)\s+)?(temporary\s+|temp\s+|unlogged\s+)?table\s+(if\s+not\s+exists\s+)?((?:"(?:[^"]|"")+"|[\w$]+)(?:\s*\.\s*(?:"(?:[^"]|"")+"|[\w$]+))?)\s*\(`,
)

/*
Parses every CREATE TABLE statement in the source. Other statements are
ignored. Comments are skipped; quoted strings and identifiers may contain
parens and commas.

Single-column table-level constraints are folded into the column, so that
"PRIMARY KEY (id)" and "id integer PRIMARY KEY" produce the same AST.
*/
func Parse(src string) (_ []Table, err error) {
	defer recParse(&err)

	src = stripComments(src)
	var out []Table

	for cursor := 0; cursor < len(src); {
		loc := createTableReg.FindStringSubmatchIndex(src[cursor:])
		if loc == nil {
			break
		}
		for ind := range loc {
			if loc[ind] >= 0 {
				loc[ind] += cursor
			}
		}

		table := Table{}
		if loc[2] >= 0 {
			switch strings.ToLower(strings.TrimSpace(src[loc[2]:loc[3]])) {
			case `unlogged`:
				table.Unlogged = true
			default:
				table.Temporary = true
			}
		}
		table.IfNotExists = loc[4] >= 0
		table.Schema, table.Name = splitQualified(src[loc[6]:loc[7]])

		open := loc[1] - 1
		end, err := closeParen(src, open)
		if err != nil {
			return nil, errParse(table.Name, open, err)
		}

		parseBody(&table, src[open+1:end])

		suffixEnd := strings.IndexByte(src[end:], ';')
		if suffixEnd < 0 {
			suffixEnd = len(src)
		} else {
			suffixEnd += end
		}
		parseSuffix(&table, src[end+1:suffixEnd])

		out = append(out, table)
		cursor = suffixEnd
	}
	return out, nil
}

// Variant of `Parse` that panics on error.
func TryParse(src string) []Table {
	out, err := Parse(src)
	if err != nil {
		panic(err)
	}
	return out
}

func recParse(ptr *error) {
	val := recover()
	if val == nil {
		return
	}
	err, _ := val.(error)
	if err == nil {
		panic(val)
	}
	if !errors.As(err, new(ErrParse)) {
		err = errParse(``, 0, err)
	}
	*ptr = err
}

// Replaces comments with a single space. Quoted text is preserved as-is.
func stripComments(src string) string {
	tokenizer := sqlp.Tokenizer{Source: src}
	out := make([]byte, 0, len(src))

	for {
		node := tokenizer.Next()
		if node == nil {
			break
		}

		switch node.(type) {
		case sqlp.NodeCommentLine, sqlp.NodeCommentBlock:
			out = append(out, ' ')
		default:
			node.Append(&out)
		}
	}
	return string(out)
}

// Returns the index of the paren closing the one at `open`.
func closeParen(src string, open int) (int, error) {
	depth := 0
	for ind := open; ind < len(src); ind++ {
		switch src[ind] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return ind, nil
			}
		case '\'', '"':
			ind = skipQuoted(src, ind)
		}
	}
	return 0, fmt.Errorf(`unbalanced parenthesis at offset %v`, open)
}

// Returns the index of the closing quote matching the one at `start`.
// Doubled quotes are escapes.
func skipQuoted(src string, start int) int {
	quote := src[start]
	for ind := start + 1; ind < len(src); ind++ {
		if src[ind] != quote {
			continue
		}
		if ind+1 < len(src) && src[ind+1] == quote {
			ind++
			continue
		}
		return ind
	}
	return len(src) - 1
}

// Splits by commas outside of parens, brackets, and quotes.
func splitTop(src string) []string {
	var out []string
	depth := 0
	last := 0

	for ind := 0; ind < len(src); ind++ {
		switch src[ind] {
		case '(', '[':
			depth++
		case ')', ']':
			depth--
		case '\'', '"':
			ind = skipQuoted(src, ind)
		case ',':
			if depth == 0 {
				out = appendPart(out, src[last:ind])
				last = ind + 1
			}
		}
	}
	return appendPart(out, src[last:])
}

func appendPart(out []string, part string) []string {
	part = strings.TrimSpace(part)
	if part == `` {
		return out
	}
	return append(out, part)
}

var (
	strictReg       = regexp.MustCompile(`(?i)\bstrict\b`)
	withoutRowIDReg = regexp.MustCompile(`(?i)\bwithout\s+rowid\b`)
)

func parseSuffix(table *Table, src string) {
	table.Strict = strictReg.MatchString(src)
	table.WithoutRowID = withoutRowIDReg.MatchString(src)
}

type tableLevel struct {
	name  string
	kind  string
	cols  []string
	ref   *ForeignKey
	check string
}

func parseBody(table *Table, body string) {
	var constraints []tableLevel

	for _, part := range splitTop(body) {
		toks := lex(part)
		if len(toks) == 0 {
			continue
		}

		var name string
		if toks[0].is(`CONSTRAINT`) && len(toks) > 2 {
			name = unquote(toks[1].text)
			toks = toks[2:]
		}

		switch {
		case toks[0].is(`PRIMARY`):
			constraints = append(constraints, tableLevel{name: name, kind: `pk`, cols: groupNames(toks, 2)})
		case toks[0].is(`UNIQUE`):
			constraints = append(constraints, tableLevel{name: name, kind: `unique`, cols: groupNames(toks, 1)})
		case toks[0].is(`FOREIGN`):
			constraints = append(constraints, parseForeignKey(name, toks))
		case toks[0].is(`CHECK`):
			if len(toks) > 1 && toks[1].isGroup() {
				constraints = append(constraints, tableLevel{name: name, kind: `check`, check: toks[1].inner()})
			}
		case toks[0].is(`EXCLUDE`), toks[0].is(`LIKE`):
		default:
			if name == `` {
				table.Columns = append(table.Columns, parseColumn(part, toks))
			}
		}
	}

	for _, val := range constraints {
		applyConstraint(table, val)
	}
}

func applyConstraint(table *Table, val tableLevel) {
	switch val.kind {
	case `pk`:
		if len(val.cols) == 1 && markColumn(table, val.cols[0], func(col *Column) { col.PrimaryKey = true }) {
			return
		}
		table.PrimaryKey = val.cols

	case `unique`:
		if len(val.cols) == 1 && markColumn(table, val.cols[0], func(col *Column) { col.Unique = true }) {
			return
		}
		if len(val.cols) > 0 {
			table.Uniques = append(table.Uniques, val.cols)
		}

	case `fk`:
		fk := val.ref
		if len(fk.Columns) == 1 && len(fk.RefColumns) <= 1 && fk.Name == `` {
			ref := &Reference{Table: fk.Table, OnDelete: fk.OnDelete, OnUpdate: fk.OnUpdate}
			if len(fk.RefColumns) == 1 {
				ref.Column = fk.RefColumns[0]
			}
			if markColumn(table, fk.Columns[0], func(col *Column) { col.References = ref }) {
				return
			}
		}
		table.ForeignKeys = append(table.ForeignKeys, *fk)

	case `check`:
		table.Checks = append(table.Checks, val.check)
	}
}

func markColumn(table *Table, name string, fun func(*Column)) bool {
	for ind := range table.Columns {
		if table.Columns[ind].Name == name {
			fun(&table.Columns[ind])
			return true
		}
	}
	return false
}

func parseForeignKey(name string, toks []token) tableLevel {
	fk := &ForeignKey{Name: name, Columns: groupNames(toks, 2)}
	ind := 2
	if ind < len(toks) && toks[ind].isGroup() {
		ind++
	}
	if ind < len(toks) && toks[ind].is(`REFERENCES`) {
		ind++
		ref, _ := parseReference(toks, ind)
		fk.Table = ref.Table
		fk.OnDelete = ref.OnDelete
		fk.OnUpdate = ref.OnUpdate
		if ind+1 < len(toks) && toks[ind+1].isGroup() {
			fk.RefColumns = splitNames(toks[ind+1].inner())
		}
	}
	return tableLevel{name: name, kind: `fk`, ref: fk}
}

// Column names inside the group token at `ind`, if any.
func groupNames(toks []token, ind int) []string {
	if ind < len(toks) && toks[ind].isGroup() {
		return splitNames(toks[ind].inner())
	}
	return nil
}

func splitNames(src string) []string {
	var out []string
	for _, part := range splitTop(src) {
		toks := lex(part)
		if len(toks) > 0 {
			out = append(out, unquote(toks[0].text))
		}
	}
	return out
}

var columnModifiers = map[string]bool{
	`NOT`: true, `NULL`: true, `PRIMARY`: true, `UNIQUE`: true,
	`REFERENCES`: true, `DEFAULT`: true, `CHECK`: true, `COLLATE`: true,
	`GENERATED`: true, `CONSTRAINT`: true, `AUTOINCREMENT`: true,
	`AUTO_INCREMENT`: true,
}

func isModifier(tok token) bool {
	return !tok.isGroup() && columnModifiers[strings.ToUpper(tok.text)]
}

func parseColumn(src string, toks []token) Column {
	col := Column{Name: unquote(toks[0].text)}
	ind := 1

	var words []string
	for ; ind < len(toks) && !isModifier(toks[ind]); ind++ {
		tok := toks[ind]
		switch {
		case tok.isGroup():
			col.Params = splitTop(tok.inner())
		case strings.HasPrefix(tok.text, `[`):
			col.Array = true
		case tok.is(`ARRAY`):
			col.Array = true
		default:
			words = append(words, strings.ToLower(tok.text))
		}
	}
	col.Type = strings.Join(words, ` `)

	for ind < len(toks) {
		tok := toks[ind]
		ind++

		switch {
		case tok.is(`NOT`):
			if ind < len(toks) && toks[ind].is(`NULL`) {
				col.NotNull = true
				ind++
			}

		case tok.is(`PRIMARY`):
			col.PrimaryKey = true
			if ind < len(toks) && toks[ind].is(`KEY`) {
				ind++
			}

		case tok.is(`UNIQUE`):
			col.Unique = true

		case tok.is(`AUTOINCREMENT`), tok.is(`AUTO_INCREMENT`):
			col.AutoIncrement = true

		case tok.is(`DEFAULT`):
			if ind >= len(toks) {
				break
			}
			start := ind
			ind++
			for ind < len(toks) && !isModifier(toks[ind]) {
				ind++
			}
			col.Default = strings.TrimSpace(src[toks[start].start:toks[ind-1].end])

		case tok.is(`REFERENCES`):
			ref, next := parseReference(toks, ind)
			col.References = &ref
			ind = next

		case tok.is(`CHECK`):
			if ind < len(toks) && toks[ind].isGroup() {
				col.Check = toks[ind].inner()
				ind++
			}

		case tok.is(`COLLATE`):
			if ind < len(toks) {
				col.Collate = unquote(toks[ind].text)
				ind++
			}

		case tok.is(`GENERATED`):
			ind = parseGenerated(&col, toks, ind)

		case tok.is(`CONSTRAINT`):
			ind++
		}
	}
	return col
}

// Parses the tail of "GENERATED ...". Returns the index after it.
func parseGenerated(col *Column, toks []token, ind int) int {
	identity := ``
	switch {
	case ind < len(toks) && toks[ind].is(`ALWAYS`):
		identity = `always`
		ind++
	case ind+1 < len(toks) && toks[ind].is(`BY`) && toks[ind+1].is(`DEFAULT`):
		identity = `by default`
		ind += 2
	}
	if ind < len(toks) && toks[ind].is(`AS`) {
		ind++
	}
	if ind >= len(toks) {
		return ind
	}

	if toks[ind].is(`IDENTITY`) {
		col.Identity = identity
		ind++
		if ind < len(toks) && toks[ind].isGroup() {
			ind++
		}
		return ind
	}

	if toks[ind].isGroup() {
		col.Generated = toks[ind].inner()
		ind++
		if ind < len(toks) && (toks[ind].is(`STORED`) || toks[ind].is(`VIRTUAL`)) {
			ind++
		}
	}
	return ind
}

// Parses "table [(col)] [ON DELETE action] [ON UPDATE action]" starting at
// the table name. Returns the index after it.
func parseReference(toks []token, ind int) (Reference, int) {
	var ref Reference
	if ind >= len(toks) {
		return ref, ind
	}

	schema, name := splitQualified(toks[ind].text)
	ref.Table = name
	if schema != `` {
		ref.Table = schema + `.` + name
	}
	ind++

	if ind < len(toks) && toks[ind].isGroup() {
		names := splitNames(toks[ind].inner())
		if len(names) > 0 {
			ref.Column = names[0]
		}
		ind++
	}

	for ind+1 < len(toks) && toks[ind].is(`ON`) {
		event := strings.ToUpper(toks[ind+1].text)
		action, next := parseAction(toks, ind+2)
		switch event {
		case `DELETE`:
			ref.OnDelete = action
		case `UPDATE`:
			ref.OnUpdate = action
		}
		ind = next
	}
	return ref, ind
}

func parseAction(toks []token, ind int) (string, int) {
	if ind >= len(toks) {
		return ``, ind
	}
	word := strings.ToUpper(toks[ind].text)
	switch word {
	case `SET`, `NO`:
		if ind+1 < len(toks) {
			return word + ` ` + strings.ToUpper(toks[ind+1].text), ind + 2
		}
	}
	return word, ind + 1
}

// Splits "schema.name" into its parts, unquoting each.
func splitQualified(src string) (string, string) {
	parts := splitDotted(strings.TrimSpace(src))
	switch len(parts) {
	case 0:
		return ``, ``
	case 1:
		return ``, unquote(parts[0])
	default:
		return unquote(parts[len(parts)-2]), unquote(parts[len(parts)-1])
	}
}

func splitDotted(src string) []string {
	var out []string
	last := 0
	for ind := 0; ind < len(src); ind++ {
		switch src[ind] {
		case '"':
			ind = skipQuoted(src, ind)
		case '.':
			out = append(out, strings.TrimSpace(src[last:ind]))
			last = ind + 1
		}
	}
	return append(out, strings.TrimSpace(src[last:]))
}

func unquote(src string) string {
	if len(src) >= 2 && src[0] == '"' && src[len(src)-1] == '"' {
		return strings.ReplaceAll(src[1:len(src)-1], `""`, `"`)
	}
	return src
}
