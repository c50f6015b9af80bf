package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/brettmayson/hemtt-core/internal/diag"
	"github.com/brettmayson/hemtt-core/internal/token"
)

// Parser is a recursive-descent reader over a preprocessed token stream
// (§4.2 Parsing).
type Parser struct {
	tokens token.Stream
	pos    int
	report *diag.Report
}

// Parse reads a whole preprocessed config file. Top-level properties are
// the implicit root class's children — HEMTT configs have no enclosing
// `class {}` wrapper.
func Parse(tokens token.Stream, report *diag.Report) (*Config, error) {
	p := &Parser{tokens: tokens, report: report}
	props, err := p.parseProperties(token.SymbolEOI)
	if err != nil {
		return nil, err
	}
	return &Config{Root: props}, nil
}

func (p *Parser) peek() token.Token {
	if p.pos >= len(p.tokens) {
		return token.Token{Symbol: token.SymbolEOI}
	}
	return p.tokens[p.pos]
}

func (p *Parser) next() token.Token {
	t := p.peek()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return t
}

func insignificant(sym token.Symbol) bool {
	switch sym {
	case token.SymbolWhitespace, token.SymbolNewline, token.SymbolComment:
		return true
	}
	return false
}

func (p *Parser) skip() {
	for insignificant(p.peek().Symbol) {
		p.pos++
	}
}

func (p *Parser) expect(sym token.Symbol, what string) (token.Token, error) {
	p.skip()
	t := p.peek()
	if t.Symbol != sym {
		return t, p.unexpected(t, what)
	}
	return p.next(), nil
}

func (p *Parser) unexpected(t token.Token, expected string) error {
	msg := fmt.Sprintf("unexpected token %q, expected %s", t.Word, expected)
	if p.report != nil {
		p.report.Push(&diag.Diagnostic{
			Ident:    "unexpected-token",
			Severity: diag.SeverityError,
			Message:  msg,
			Labels:   []diag.Label{{Path: t.Pos.Path, Start: t.Pos.Start, End: t.Pos.End, Message: msg}},
		})
	}
	return fmt.Errorf("config: %s", msg)
}

// parseProperties reads a sequence of properties until `terminator` (either
// RightBrace for a class body, or EOI for the implicit root).
func (p *Parser) parseProperties(terminator token.Symbol) ([]Property, error) {
	var props []Property
	seen := make(map[string]token.Position)
	for {
		p.skip()
		t := p.peek()
		if t.Symbol == terminator {
			return props, nil
		}
		if t.Symbol == token.SymbolEOI {
			return props, p.unexpected(t, "'}' or end of properties")
		}
		if t.Symbol != token.SymbolWord {
			return props, p.unexpected(t, "an identifier, 'class', or 'delete'")
		}

		var prop Property
		var err error
		switch strings.ToLower(t.Word) {
		case "class":
			prop, err = p.parseClass()
		case "delete":
			prop, err = p.parseDelete()
		default:
			prop, err = p.parseEntry()
		}
		if err != nil {
			return props, err
		}

		if prior, dup := seen[strings.ToLower(prop.Name)]; dup {
			p.warnDuplicate(prop.Name, prior)
		} else {
			seen[strings.ToLower(prop.Name)] = propertyPos(prop)
		}
		props = append(props, prop)

		if _, err := p.expect(token.SymbolSemicolon, "';'"); err != nil {
			return props, err
		}
	}
}

func propertyPos(p Property) token.Position {
	if p.Kind == PropertyClass {
		return p.Class.Pos
	}
	return p.Entry.Pos
}

func (p *Parser) warnDuplicate(name string, prior token.Position) {
	if p.report == nil {
		return
	}
	msg := fmt.Sprintf("%q is already defined at %s", name, prior.String())
	p.report.Push(&diag.Diagnostic{
		Ident:    "duplicate-property",
		Severity: diag.SeverityWarning,
		Message:  msg,
	})
}

// parseClass reads `class NAME [: PARENT] [{ children }]`.
func (p *Parser) parseClass() (Property, error) {
	kw := p.next() // "class"
	p.skip()
	name, err := p.expect(token.SymbolWord, "a class name")
	if err != nil {
		return Property{}, err
	}
	p.skip()

	parent := ""
	if p.peek().Symbol == token.SymbolColon {
		p.next()
		p.skip()
		parentTok, err := p.expect(token.SymbolWord, "a parent class name")
		if err != nil {
			return Property{}, err
		}
		parent = parentTok.Word
	}
	p.skip()

	class := &Class{Name: name.Word, Parent: parent, Pos: kw.Pos}
	if p.peek().Symbol == token.SymbolLeftBrace {
		p.next()
		children, err := p.parseProperties(token.SymbolRightBrace)
		if err != nil {
			return Property{}, err
		}
		if _, err := p.expect(token.SymbolRightBrace, "'}'"); err != nil {
			return Property{}, err
		}
		class.Kind = ClassDefined
		class.Children = children
	} else {
		class.Kind = ClassExternal
	}
	return Property{Name: class.Name, Kind: PropertyClass, Class: class}, nil
}

// parseDelete reads `delete NAME`, a statement that removes a
// previously-defined class or entry of that name from the rapified output
// (§4.2: tag 4, deletion).
func (p *Parser) parseDelete() (Property, error) {
	kw := p.next() // "delete"
	p.skip()
	name, err := p.expect(token.SymbolWord, "a name to delete")
	if err != nil {
		return Property{}, err
	}
	return Property{
		Name: name.Word,
		Kind: PropertyClass,
		Class: &Class{Name: name.Word, Kind: ClassDeleted, Pos: kw.Pos},
	}, nil
}

// parseEntry reads `NAME = value` or `NAME[] = {...}` / `NAME[] += {...}`.
func (p *Parser) parseEntry() (Property, error) {
	name := p.next()
	p.skip()

	entry := &Entry{Name: name.Word, Pos: name.Pos}

	isArray := false
	expand := false
	if p.peek().Symbol == token.SymbolLeftBracket {
		isArray = true
		p.next()
		if _, err := p.expect(token.SymbolRightBracket, "']'"); err != nil {
			return Property{}, err
		}
		p.skip()
		if p.peek().Symbol == token.SymbolPunctuation && p.peek().Word == "+" {
			expand = true
			p.next()
		}
		p.skip()
	}

	if _, err := p.expect(token.SymbolEquals, "'='"); err != nil {
		return Property{}, err
	}
	p.skip()

	if isArray {
		arr, err := p.parseArray()
		if err != nil {
			return Property{}, err
		}
		entry.Array = arr
		if expand {
			entry.Kind = EntryArrayExpand
		} else {
			entry.Kind = EntryArray
		}
	} else {
		val, err := p.parseValue()
		if err != nil {
			return Property{}, err
		}
		entry.Kind = EntryScalar
		entry.Value = val
	}

	return Property{Name: entry.Name, Kind: PropertyEntry, Entry: entry}, nil
}

func (p *Parser) parseArray() (*Array, error) {
	if _, err := p.expect(token.SymbolLeftBrace, "'{'"); err != nil {
		return nil, err
	}
	arr := &Array{}
	for {
		p.skip()
		if p.peek().Symbol == token.SymbolRightBrace {
			p.next()
			return arr, nil
		}
		el, err := p.parseArrayElement()
		if err != nil {
			return nil, err
		}
		arr.Elements = append(arr.Elements, el)
		p.skip()
		if p.peek().Symbol == token.SymbolComma {
			p.next()
			continue
		}
		if _, err := p.expect(token.SymbolRightBrace, "',' or '}'"); err != nil {
			return nil, err
		}
		return arr, nil
	}
}

func (p *Parser) parseArrayElement() (ArrayElement, error) {
	p.skip()
	if p.peek().Symbol == token.SymbolLeftBrace {
		nested, err := p.parseArray()
		if err != nil {
			return ArrayElement{}, err
		}
		return ArrayElement{Nested: nested}, nil
	}
	val, err := p.parseValue()
	if err != nil {
		return ArrayElement{}, err
	}
	return ArrayElement{Value: val}, nil
}

// parseValue reads a scalar: a quoted string or a numeric literal (§4.2
// "Values recognized").
func (p *Parser) parseValue() (Value, error) {
	p.skip()
	t := p.peek()
	switch t.Symbol {
	case token.SymbolDoubleQuote:
		p.next()
		return Value{Kind: KindString, Str: unquoteConfigString(t.Word)}, nil
	case token.SymbolDigit, token.SymbolWord:
		return p.parseNumber()
	case token.SymbolPunctuation:
		if t.Word == "-" || t.Word == "+" {
			return p.parseNumber()
		}
	}
	return Value{}, p.unexpected(t, "a string or number")
}

func unquoteConfigString(raw string) string {
	if len(raw) >= 2 {
		raw = raw[1 : len(raw)-1]
	}
	return strings.ReplaceAll(raw, `""`, `"`)
}

// parseNumber scans a maximal run of digit/sign/exponent/decimal-point
// tokens that are lexically adjacent (no whitespace between them), which
// the generic tokenizer hands us as separate Digit/Word/Punctuation
// tokens, and parses the combined text as an int32 or float32.
func (p *Parser) parseNumber() (Value, error) {
	start := p.peek().Pos
	var b strings.Builder
	isFloat := false
	prevEnd := -1
	for {
		t := p.peek()
		if prevEnd >= 0 && t.Pos.Start != prevEnd {
			break
		}
		switch {
		case t.Symbol == token.SymbolDigit:
			b.WriteString(t.Word)
		case t.Symbol == token.SymbolPunctuation && (t.Word == "." || t.Word == "-" || t.Word == "+"):
			if t.Word == "." {
				isFloat = true
			}
			b.WriteString(t.Word)
		case t.Symbol == token.SymbolWord && (t.Word == "e" || t.Word == "E"):
			isFloat = true
			b.WriteString(t.Word)
		default:
			goto done
		}
		prevEnd = t.Pos.End
		p.next()
	}
done:
	text := b.String()
	if text == "" {
		return Value{}, p.unexpected(p.peek(), "a number")
	}
	if isFloat {
		f, err := strconv.ParseFloat(text, 32)
		if err != nil {
			return Value{}, fmt.Errorf("config: invalid float %q at %s", text, start.String())
		}
		return Value{Kind: KindFloat32, Float: float32(f)}, nil
	}
	n, err := strconv.ParseInt(text, 10, 32)
	if err != nil {
		f, ferr := strconv.ParseFloat(text, 32)
		if ferr == nil {
			return Value{Kind: KindFloat32, Float: float32(f)}, nil
		}
		return Value{}, fmt.Errorf("config: invalid number %q at %s", text, start.String())
	}
	return Value{Kind: KindInt32, Int: int32(n)}, nil
}
