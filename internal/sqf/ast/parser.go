package ast

import (
	"strconv"
	"strings"

	"github.com/brettmayson/hemtt-core/internal/diag"
	lex "github.com/brettmayson/hemtt-core/internal/sqf/lexer"
	"github.com/brettmayson/hemtt-core/internal/token"
)

// Parse turns a lexed SQF token stream into a Statements tree (spec §4.3
// "produce an AST with precedence-correct unary/binary/nular command
// expressions"). source is the whole file's text, used only to slice out
// each Statements block's verbatim source (spec §3 "SQF AST" /
// `Statements::source`).
func Parse(tokens []lex.Token, source string, db *Database, report *diag.Report) (Statements, error) {
	p := &parser{toks: tokens, source: source, db: db, report: report}
	return p.parseStatements(p.pos, len(p.toks)-1), nil
}

type parser struct {
	toks   []lex.Token
	source string
	db     *Database
	report *diag.Report
	pos    int
}

func (p *parser) peek() lex.Token {
	if p.pos >= len(p.toks) {
		return lex.Token{Kind: lex.KindEOF}
	}
	return p.toks[p.pos]
}

func (p *parser) advance() lex.Token {
	t := p.peek()
	if p.pos < len(p.toks) {
		p.pos++
	}
	return t
}

func (p *parser) atEOF() bool {
	return p.peek().Kind == lex.KindEOF
}

func (p *parser) isOp(text string) bool {
	t := p.peek()
	return t.Kind == lex.KindOperator && t.Text == text
}

func (p *parser) errorf(pos token.Position, ident, msg string) {
	if p.report == nil {
		return
	}
	p.report.Push(&diag.Diagnostic{
		Ident:    "L-SQF" + strings.ToUpper(ident),
		Severity: diag.SeverityError,
		Message:  msg,
		Labels:   []diag.Label{{Path: pos.Path, Start: pos.Start, End: pos.End}},
	})
}

// parseStatements parses semicolon-separated statements until end (an
// exclusive token index), used both for the top-level script and for the
// body of `{ ... }` code blocks.
func (p *parser) parseStatements(start, end int) Statements {
	startPos := token.Position{}
	if start < len(p.toks) {
		startPos = p.toks[start].Pos
	}
	var content []Statement
	for p.pos < end && !p.atEOF() {
		stmt := p.parseStatement()
		content = append(content, stmt)
		if p.isOp(";") {
			p.advance()
		} else {
			break
		}
	}
	endPos := startPos
	if p.pos > 0 && p.pos-1 < len(p.toks) {
		endPos = p.toks[p.pos-1].Pos
	}
	var src string
	if startPos.Start <= endPos.End && endPos.End <= len(p.source) {
		src = p.source[startPos.Start:endPos.End]
	}
	return Statements{
		Content: content,
		Source:  src,
		Pos:     token.Position{Path: startPos.Path, Start: startPos.Start, End: endPos.End, Line: startPos.Line, Column: startPos.Column},
	}
}

// parseStatement parses one `name = expr`, `private _name = expr`-style
// assignment, or a bare expression statement.
func (p *parser) parseStatement() Statement {
	startTok := p.peek()
	if startTok.Kind == lex.KindIdent {
		// Look ahead for `ident = expr` (assignment) vs. an expression
		// that merely begins with an identifier (e.g. a command call).
		save := p.pos
		name := startTok.Text
		p.advance()
		if strings.EqualFold(name, "private") && p.peek().Kind == lex.KindIdent {
			name = p.peek().Text
			p.advance()
		}
		if p.isOp("=") {
			p.advance()
			expr := p.parseExpression(PrecElse)
			kind := StmtAssignGlobal
			if strings.HasPrefix(name, "_") {
				kind = StmtAssignLocal
			}
			return Statement{Kind: kind, Name: name, Expression: expr, Pos: spanFrom(startTok.Pos, p.lastPos())}
		}
		p.pos = save
	}
	expr := p.parseExpression(PrecElse)
	return Statement{Kind: StmtExpression, Expression: expr, Pos: spanFrom(startTok.Pos, p.lastPos())}
}

func (p *parser) lastPos() token.Position {
	if p.pos == 0 {
		return token.Position{}
	}
	return p.toks[p.pos-1].Pos
}

// parseExpression implements precedence-climbing over the binary command
// tiers (spec §4.3): parseUnary (which consumes any prefix unary command
// before its primary) is the atom; parseExpression repeatedly absorbs binary
// operators whose precedence is >= minPrec.
func (p *parser) parseExpression(minPrec int) Expression {
	left := p.parseUnary()
	for {
		t := p.peek()
		name, ok := p.binaryOperatorName(t)
		if !ok {
			break
		}
		prec := p.db.BinaryPrecedence(name)
		if prec < minPrec {
			break
		}
		opPos := t.Pos
		p.advance()
		right := p.parseExpression(prec + 1)
		l, r := left, right
		left = Expression{
			Kind:    ExprBinaryCommand,
			Command: name,
			Left:    &l,
			Right:   &r,
			Pos:     spanFrom(opPos, r.Pos),
		}
	}
	return left
}

// binaryOperatorName returns the command name a token represents in
// binary position: operator tokens use their literal text; identifier
// tokens are binary commands exactly when the database knows them as
// such (e.g. "else", "mod", "and", "or", "foreach").
func (p *parser) binaryOperatorName(t lex.Token) (string, bool) {
	switch t.Kind {
	case lex.KindOperator:
		switch t.Text {
		case ")", "]", "}", ",", ";", ":":
			return "", false
		}
		return t.Text, true
	case lex.KindIdent:
		if p.db.IsKnownBinary(t.Text) {
			return t.Text, true
		}
		return "", false
	default:
		return "", false
	}
}

// parseUnary consumes an optional prefix unary command and then a primary
// expression. A leading "-" or "+" operator (SQF's sign-negation prefix,
// distinct from the binary "-"/"+" commands of the same spelling) is
// folded in here too, since it occupies the same grammatical slot as a
// named unary command and the database only models named commands.
func (p *parser) parseUnary() Expression {
	t := p.peek()
	if t.Kind == lex.KindOperator && (t.Text == "-" || t.Text == "+") {
		p.advance()
		operand := p.parseUnary()
		return Expression{Kind: ExprUnaryCommand, Command: t.Text, Right: &operand, Pos: spanFrom(t.Pos, operand.Pos)}
	}
	if t.Kind == lex.KindIdent && p.db.IsKnownUnary(t.Text) && !p.nextStartsNewStatement() {
		p.advance()
		operand := p.parseUnary()
		return Expression{Kind: ExprUnaryCommand, Command: t.Text, Right: &operand, Pos: spanFrom(t.Pos, operand.Pos)}
	}
	return p.parsePrimary()
}

// nextStartsNewStatement guards against treating a unary-command-named
// identifier as a prefix operator when nothing meaningful follows it
// (end of statement/block) — it is then a bare nular reference instead.
func (p *parser) nextStartsNewStatement() bool {
	next := p.toks[min(p.pos+1, len(p.toks)-1)]
	if next.Kind == lex.KindEOF {
		return true
	}
	if next.Kind == lex.KindOperator {
		switch next.Text {
		case ";", ")", "]", "}", ",":
			return true
		}
	}
	return false
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// parsePrimary parses a number, string, boolean, variable/nular-command
// identifier, parenthesized expression, code block, or array literal.
func (p *parser) parsePrimary() Expression {
	t := p.peek()
	switch {
	case t.Kind == lex.KindNumber:
		p.advance()
		return Expression{Kind: ExprNumber, Number: parseSQFNumber(t.Text), Pos: t.Pos}

	case t.Kind == lex.KindString:
		p.advance()
		quote := QuoteDouble
		if len(t.Text) > 0 && t.Text[0] == '\'' {
			quote = QuoteSingle
		}
		return Expression{Kind: ExprString, Str: t.Value, Quote: quote, Pos: t.Pos}

	case t.Kind == lex.KindIdent && strings.EqualFold(t.Text, "true"):
		p.advance()
		return Expression{Kind: ExprBoolean, Bool: true, Pos: t.Pos}

	case t.Kind == lex.KindIdent && strings.EqualFold(t.Text, "false"):
		p.advance()
		return Expression{Kind: ExprBoolean, Bool: false, Pos: t.Pos}

	case t.Kind == lex.KindOperator && t.Text == "(":
		p.advance()
		inner := p.parseExpression(PrecElse)
		if p.isOp(")") {
			p.advance()
		}
		return inner

	case t.Kind == lex.KindOperator && t.Text == "{":
		return p.parseCode()

	case t.Kind == lex.KindOperator && t.Text == "[":
		return p.parseArray()

	case t.Kind == lex.KindIdent:
		p.advance()
		if _, ok := p.db.Lookup(t.Text); ok {
			return Expression{Kind: ExprNularCommand, Command: t.Text, Pos: t.Pos}
		}
		if strings.HasPrefix(t.Text, "_") {
			return Expression{Kind: ExprVariable, Name: t.Text, Pos: t.Pos}
		}
		// An unrecognized bare identifier is ambiguous between a global
		// variable read and an unknown nular command; SQF treats both
		// identically at the value level, so this is modeled as a
		// NularCommand (matching the reference AST, which has no
		// separate "unknown global" case).
		return Expression{Kind: ExprNularCommand, Command: t.Text, Pos: t.Pos}

	default:
		p.errorf(t.Pos, "E01", "expected an expression")
		p.advance()
		return Expression{Kind: ExprNularCommand, Command: "", Pos: t.Pos}
	}
}

func (p *parser) parseCode() Expression {
	openPos := p.advance().Pos // consume '{'
	end := p.matchingBrace(p.pos-1, "{", "}")
	body := p.parseStatements(p.pos, end)
	if p.pos < end {
		p.pos = end
	}
	if p.isOp("}") {
		p.advance()
	}
	closePos := openPos
	if p.pos-1 >= 0 && p.pos-1 < len(p.toks) {
		closePos = p.toks[p.pos-1].Pos
	}
	return Expression{Kind: ExprCode, Code: body, Pos: spanFrom(openPos, closePos)}
}

func (p *parser) parseArray() Expression {
	openPos := p.advance().Pos // consume '['
	var elements []Expression
	for !p.isOp("]") && !p.atEOF() {
		elements = append(elements, p.parseExpression(PrecElse))
		if p.isOp(",") {
			p.advance()
			continue
		}
		break
	}
	closePos := openPos
	if p.isOp("]") {
		closePos = p.peek().Pos
		p.advance()
	}
	return Expression{Kind: ExprArray, Elements: elements, Pos: spanFrom(openPos, closePos)}
}

// matchingBrace scans forward from a '{'/'['/'(' at index openIdx and
// returns the index of its balanced closer, or len(toks)-1 (EOF) if
// unterminated.
func (p *parser) matchingBrace(openIdx int, open, close string) int {
	depth := 0
	for i := openIdx; i < len(p.toks); i++ {
		t := p.toks[i]
		if t.Kind != lex.KindOperator {
			continue
		}
		switch t.Text {
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return len(p.toks) - 1
}

func spanFrom(a, b token.Position) token.Position {
	return token.Position{Path: a.Path, Start: a.Start, End: b.End, Line: a.Line, Column: a.Column}
}

// parseSQFNumber parses a lexer-merged number token ("123", "1.5", "1e3",
// "0x1A") into its float32 value.
func parseSQFNumber(text string) float32 {
	if len(text) > 1 && (text[1] == 'x' || text[1] == 'X') {
		v, err := strconv.ParseInt(text[2:], 16, 64)
		if err != nil {
			return 0
		}
		return float32(v)
	}
	v, err := strconv.ParseFloat(text, 32)
	if err != nil {
		return 0
	}
	return float32(v)
}
