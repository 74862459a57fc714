package introspect

import "strings"

// Word, quoted text, or a balanced group such as "(10, 2)" or "[]".
type token struct {
	text  string
	start int
	end   int
}

func (self token) is(word string) bool { return strings.EqualFold(self.text, word) }

func (self token) isGroup() bool { return strings.HasPrefix(self.text, `(`) }

// Content of a group without the outer parens.
func (self token) inner() string {
	if !self.isGroup() || len(self.text) < 2 {
		return ``
	}
	return strings.TrimSpace(self.text[1 : len(self.text)-1])
}

/*
Splits one column or constraint definition into tokens. Qualified names such
as `public."Users"` are one token. Groups are kept whole, including nested
groups and quoted text.
*/
func lex(src string) []token {
	var out []token

	for ind := 0; ind < len(src); {
		char := src[ind]

		switch {
		case isSpace(char):
			ind++
			continue

		case char == '(':
			end := groupEnd(src, ind, '(', ')')
			out = append(out, token{src[ind:end], ind, end})
			ind = end

		case char == '[':
			end := groupEnd(src, ind, '[', ']')
			out = append(out, token{src[ind:end], ind, end})
			ind = end

		case char == '\'':
			end := skipQuoted(src, ind) + 1
			out = append(out, token{src[ind:end], ind, end})
			ind = end

		case char == ':' && strings.HasPrefix(src[ind:], `::`):
			out = append(out, token{`::`, ind, ind + 2})
			ind += 2

		case char == ',':
			out = append(out, token{`,`, ind, ind + 1})
			ind++

		default:
			end := nameEnd(src, ind)
			if end == ind {
				end++
			}
			out = append(out, token{src[ind:end], ind, end})
			ind = end
		}
	}
	return out
}

func isSpace(char byte) bool {
	return char == ' ' || char == '\t' || char == '\n' || char == '\r' || char == '\f' || char == '\v'
}

func isNameDelim(char byte) bool {
	return isSpace(char) || strings.IndexByte(`()[],':`, char) >= 0
}

// End of a possibly qualified, possibly quoted name or bare word.
func nameEnd(src string, ind int) int {
	for ind < len(src) {
		switch {
		case src[ind] == '"':
			ind = skipQuoted(src, ind) + 1
		case isNameDelim(src[ind]):
			return ind
		default:
			ind++
		}
	}
	return ind
}

func groupEnd(src string, start int, open, close byte) int {
	depth := 0
	for ind := start; ind < len(src); ind++ {
		switch src[ind] {
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return ind + 1
			}
		case '\'', '"':
			ind = skipQuoted(src, ind)
		}
	}
	return len(src)
}
