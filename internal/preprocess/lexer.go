package preprocess

import (
	"github.com/brettmayson/hemtt-core/internal/token"
)

// lex tokenizes a whole file's text into a token.Stream. It is deliberately
// generic (not aware of config or SQF syntax) because the preprocessor is
// shared infrastructure consumed by both downstream grammars (§4.1).
func lex(path, src string) token.Stream {
	var out token.Stream
	line, col := 1, 1
	i := 0
	n := len(src)

	pos := func(start, end int) token.Position {
		return token.Position{Path: path, Start: start, End: end, Line: line, Column: col}
	}
	advance := func(s string) {
		for _, r := range s {
			if r == '\n' {
				line++
				col = 1
			} else {
				col++
			}
		}
	}

	isIdentStart := func(c byte) bool {
		return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
	}
	isIdentCont := func(c byte) bool {
		return isIdentStart(c) || (c >= '0' && c <= '9')
	}
	isDigit := func(c byte) bool { return c >= '0' && c <= '9' }

	for i < n {
		c := src[i]
		switch {
		case c == '\n':
			out = append(out, token.New(token.SymbolNewline, "\n", pos(i, i+1)))
			advance("\n")
			i++
		case c == ' ' || c == '\t' || c == '\r':
			j := i
			for j < n && (src[j] == ' ' || src[j] == '\t' || src[j] == '\r') {
				j++
			}
			out = append(out, token.New(token.SymbolWhitespace, src[i:j], pos(i, j)))
			advance(src[i:j])
			i = j
		case c == '\\' && i+1 < n && src[i+1] == '\n':
			out = append(out, token.New(token.SymbolEscape, "\\\n", pos(i, i+2)))
			advance("\\\n")
			i += 2
		case c == '\\' && i+2 < n && src[i+1] == '\r' && src[i+2] == '\n':
			out = append(out, token.New(token.SymbolEscape, "\\\r\n", pos(i, i+3)))
			advance("\\\r\n")
			i += 3
		case c == '#' && i+1 < n && src[i+1] == '#':
			out = append(out, token.New(token.SymbolJoin, "##", pos(i, i+2)))
			i += 2
			col += 2
		case c == '#' && (col == 1 || onlyWhitespaceSince(out)):
			j := i + 1
			for j < n && (isIdentCont(src[j])) {
				j++
			}
			out = append(out, token.New(token.SymbolDirective, src[i:j], pos(i, j)))
			col += j - i
			i = j
		case c == '#':
			out = append(out, token.New(token.SymbolHash, "#", pos(i, i+1)))
			i++
			col++
		case c == '"':
			j := i + 1
			for j < n {
				if src[j] == '"' {
					if j+1 < n && src[j+1] == '"' {
						j += 2
						continue
					}
					j++
					break
				}
				j++
			}
			text := src[i:j]
			out = append(out, token.New(token.SymbolDoubleQuote, text, pos(i, j)))
			advance(text)
			i = j
		case c == '\'':
			j := i + 1
			for j < n && src[j] != '\'' {
				j++
			}
			if j < n {
				j++
			}
			text := src[i:j]
			out = append(out, token.New(token.SymbolSingleQuote, text, pos(i, j)))
			advance(text)
			i = j
		case c == '/' && i+1 < n && src[i+1] == '/':
			j := i
			for j < n && src[j] != '\n' {
				j++
			}
			out = append(out, token.New(token.SymbolComment, src[i:j], pos(i, j)))
			col += j - i
			i = j
		case c == '/' && i+1 < n && src[i+1] == '*':
			j := i + 2
			for j+1 < n && !(src[j] == '*' && src[j+1] == '/') {
				j++
			}
			if j+1 < n {
				j += 2
			} else {
				j = n
			}
			text := src[i:j]
			out = append(out, token.New(token.SymbolComment, text, pos(i, j)))
			advance(text)
			i = j
		case isIdentStart(c):
			j := i + 1
			for j < n && isIdentCont(src[j]) {
				j++
			}
			out = append(out, token.New(token.SymbolWord, src[i:j], pos(i, j)))
			col += j - i
			i = j
		case isDigit(c):
			j := i + 1
			for j < n && isDigit(src[j]) {
				j++
			}
			out = append(out, token.New(token.SymbolDigit, src[i:j], pos(i, j)))
			col += j - i
			i = j
		case c == ',':
			out = append(out, token.New(token.SymbolComma, ",", pos(i, i+1)))
			i++
			col++
		case c == '{':
			out = append(out, token.New(token.SymbolLeftBrace, "{", pos(i, i+1)))
			i++
			col++
		case c == '}':
			out = append(out, token.New(token.SymbolRightBrace, "}", pos(i, i+1)))
			i++
			col++
		case c == '(':
			out = append(out, token.New(token.SymbolLeftParenthesis, "(", pos(i, i+1)))
			i++
			col++
		case c == ')':
			out = append(out, token.New(token.SymbolRightParenthesis, ")", pos(i, i+1)))
			i++
			col++
		case c == '[':
			out = append(out, token.New(token.SymbolLeftBracket, "[", pos(i, i+1)))
			i++
			col++
		case c == ']':
			out = append(out, token.New(token.SymbolRightBracket, "]", pos(i, i+1)))
			i++
			col++
		case c == '=':
			out = append(out, token.New(token.SymbolEquals, "=", pos(i, i+1)))
			i++
			col++
		case c == ':':
			out = append(out, token.New(token.SymbolColon, ":", pos(i, i+1)))
			i++
			col++
		case c == ';':
			out = append(out, token.New(token.SymbolSemicolon, ";", pos(i, i+1)))
			i++
			col++
		default:
			out = append(out, token.New(token.SymbolPunctuation, string(c), pos(i, i+1)))
			i++
			col++
		}
	}
	out = append(out, token.New(token.SymbolEOI, "", pos(n, n)))
	return out
}

// onlyWhitespaceSince reports whether the tail of `out` since the last
// newline is only whitespace, i.e. a '#' here still starts a directive line
// even though it isn't in column 1 (leading indentation before a directive
// is legal).
func onlyWhitespaceSince(out token.Stream) bool {
	for i := len(out) - 1; i >= 0; i-- {
		switch out[i].Symbol {
		case token.SymbolNewline:
			return true
		case token.SymbolWhitespace:
			continue
		default:
			return false
		}
	}
	return true
}

// splitLines groups a token stream into logical lines, treating an Escape
// token (backslash-newline) as a continuation that merges two physical
// lines into one logical line rather than ending it.
func splitLines(s token.Stream) []token.Stream {
	var lines []token.Stream
	var cur token.Stream
	for _, t := range s {
		switch t.Symbol {
		case token.SymbolEscape:
			// continuation: drop the marker, keep reading onto this logical line
			continue
		case token.SymbolNewline:
			cur = append(cur, t)
			lines = append(lines, cur)
			cur = nil
		default:
			cur = append(cur, t)
		}
	}
	if len(cur) > 0 {
		lines = append(lines, cur)
	}
	return lines
}

// firstSignificant returns the first token that is not whitespace or a
// newline, and false if the line has none.
func firstSignificant(line token.Stream) (token.Token, bool) {
	for _, t := range line {
		if t.Symbol == token.SymbolWhitespace || t.Symbol == token.SymbolNewline {
			continue
		}
		return t, true
	}
	return token.Token{}, false
}

// stripLeadingWhitespace drops leading whitespace tokens.
func stripLeadingWhitespace(line token.Stream) token.Stream {
	i := 0
	for i < len(line) && line[i].Symbol == token.SymbolWhitespace {
		i++
	}
	return line[i:]
}
