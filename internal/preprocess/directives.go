package preprocess

import (
	"strings"

	"github.com/brettmayson/hemtt-core/internal/token"
	"github.com/brettmayson/hemtt-core/internal/workspace"
)

// conditionalDirectives always run their stack bookkeeping, even inside a
// currently-inactive branch, so nesting stays consistent; every other
// directive is a no-op while inactive.
var conditionalDirectives = map[string]bool{
	"#if": true, "#ifdef": true, "#ifndef": true, "#else": true, "#endif": true,
}

func (p *Processor) dispatch(line token.Stream) error {
	sig, rest := splitDirective(line)
	keyword := strings.ToLower(sig.Word)

	if !conditionalDirectives[keyword] && !p.active() {
		return nil
	}

	switch keyword {
	case "#define":
		p.doDefine(rest)
	case "#undef":
		if name, ok := nextWord(rest); ok {
			p.defines.Undef(name)
		}
	case "#include":
		return p.doInclude(rest)
	case "#if":
		parentActive := p.active()
		cond := parentActive && p.evalCondition(trimEnds(rest))
		p.ifstack = append(p.ifstack, ifFrame{parentActive: parentActive, branchTrue: cond})
	case "#ifdef":
		name, _ := nextWord(rest)
		_, defined := p.defines.Lookup(name)
		p.pushIf(defined)
	case "#ifndef":
		name, _ := nextWord(rest)
		_, defined := p.defines.Lookup(name)
		p.pushIf(!defined)
	case "#else":
		p.doElse()
	case "#endif":
		p.doEndif()
	case "#pragma":
		p.doPragma(rest)
	default:
		p.warnf(p.curFile, sig.Pos.Start, "unknown-directive", "unrecognized directive "+sig.Word)
	}
	return nil
}

// splitDirective returns the directive token itself and everything after
// it on the logical line.
func splitDirective(line token.Stream) (token.Token, token.Stream) {
	for i, t := range line {
		if t.Symbol == token.SymbolDirective {
			return t, line[i+1:]
		}
	}
	return token.Token{}, nil
}

func nextWord(s token.Stream) (string, bool) {
	s = stripLeadingWhitespace(s)
	if len(s) == 0 || s[0].Symbol != token.SymbolWord {
		return "", false
	}
	return s[0].Word, true
}

// trimEnds drops leading/trailing whitespace, comment, and newline tokens.
func trimEnds(s token.Stream) token.Stream {
	start := 0
	for start < len(s) {
		switch s[start].Symbol {
		case token.SymbolWhitespace, token.SymbolNewline, token.SymbolComment:
			start++
			continue
		}
		break
	}
	end := len(s)
	for end > start {
		switch s[end-1].Symbol {
		case token.SymbolWhitespace, token.SymbolNewline, token.SymbolComment:
			end--
			continue
		}
		break
	}
	if start >= end {
		return token.Stream{}
	}
	return s[start:end]
}

func (p *Processor) pushIf(cond bool) {
	parentActive := p.active()
	branchTrue := cond && parentActive
	if !parentActive {
		branchTrue = false
	}
	p.ifstack = append(p.ifstack, ifFrame{parentActive: parentActive, branchTrue: branchTrue})
}

func (p *Processor) doElse() {
	if len(p.ifstack) == 0 {
		p.errorf(p.curFile, p.curLine, "mismatched-else", "#else without matching #if")
		return
	}
	top := &p.ifstack[len(p.ifstack)-1]
	if top.sawElse {
		p.errorf(p.curFile, p.curLine, "duplicate-else", "duplicate #else for the same #if")
		return
	}
	top.sawElse = true
	top.branchTrue = !top.branchTrue
}

func (p *Processor) doEndif() {
	if len(p.ifstack) == 0 {
		p.errorf(p.curFile, p.curLine, "mismatched-endif", "#endif without matching #if")
		return
	}
	p.ifstack = p.ifstack[:len(p.ifstack)-1]
}

func (p *Processor) doDefine(rest token.Stream) {
	rest = stripLeadingWhitespace(rest)
	if len(rest) == 0 || rest[0].Symbol != token.SymbolWord {
		p.errorf(p.curFile, p.curLine, "malformed-define", "#define requires a macro name")
		return
	}
	name := rest[0]
	afterName := rest[1:]

	var def *Definition
	if len(afterName) > 0 && afterName[0].Symbol == token.SymbolLeftParenthesis {
		params, body, ok := parseParamList(afterName[1:])
		if !ok {
			p.errorf(p.curFile, p.curLine, "malformed-define", "unterminated parameter list in function macro")
			return
		}
		def = &Definition{Kind: DefinitionFunction, Params: params, Body: trimWhitespace(trimEnds(body)), Pos: name.Pos}
	} else {
		body := trimWhitespace(trimEnds(afterName))
		kind := DefinitionValue
		if len(body) == 0 {
			kind = DefinitionUnit
		}
		def = &Definition{Kind: kind, Body: body, Pos: name.Pos}
	}

	switch p.defines.Define(name.Word, def) {
	case DefineRedefined:
		p.warnf(p.curFile, name.Pos.Start, "macro-redefined", "macro "+name.Word+" redefined")
	case DefineRejectedBuiltin:
		p.errorf(p.curFile, name.Pos.Start, "redefine-builtin", "cannot redefine built-in macro "+name.Word)
	}
}

// parseParamList reads a flat (non-nested) comma-separated parameter list
// up to its closing paren, returning the parameter names and the remaining
// tokens as the macro body.
func parseParamList(s token.Stream) (params []string, body token.Stream, ok bool) {
	for i, t := range s {
		if t.Symbol == token.SymbolRightParenthesis {
			return params, s[i+1:], true
		}
		if t.Symbol == token.SymbolWord {
			params = append(params, t.Word)
		}
	}
	return nil, nil, false
}

func (p *Processor) doInclude(rest token.Stream) error {
	specPath, angled, ok := extractIncludeSpec(rest)
	if !ok {
		p.errorf(p.curFile, p.curLine, "malformed-include", "#include requires a quoted or angle-bracketed path")
		return nil
	}

	var candidates []string
	if !angled {
		candidates = append(candidates, joinLogical(dirOf(p.curFile), specPath))
	}
	candidates = append(candidates, specPath)

	var lastErr error
	for _, c := range candidates {
		if err := p.processFile(workspace.New(c)); err == nil {
			return nil
		} else {
			lastErr = err
		}
	}
	p.errorf(p.curFile, p.curLine, "include-not-found", "could not resolve include "+specPath+": "+errString(lastErr))
	return nil
}

func errString(err error) string {
	if err == nil {
		return "no candidate path"
	}
	return err.Error()
}

// extractIncludeSpec pulls the file name out of a `"quoted"` or `<angled>`
// include spec.
func extractIncludeSpec(rest token.Stream) (path string, angled bool, ok bool) {
	rest = stripLeadingWhitespace(rest)
	if len(rest) == 0 {
		return "", false, false
	}
	if rest[0].Symbol == token.SymbolDoubleQuote {
		return unquote(rest[0].Word), false, true
	}
	if rest[0].Symbol == token.SymbolPunctuation && rest[0].Word == "<" {
		var b strings.Builder
		for i := 1; i < len(rest); i++ {
			if rest[i].Symbol == token.SymbolPunctuation && rest[i].Word == ">" {
				return b.String(), true, true
			}
			b.WriteString(rest[i].Word)
		}
	}
	return "", false, false
}

func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	return strings.ReplaceAll(s, `""`, `"`)
}

func dirOf(logical string) string {
	if i := strings.LastIndexByte(logical, '/'); i >= 0 {
		return logical[:i]
	}
	return ""
}

func joinLogical(dir, name string) string {
	if dir == "" {
		return name
	}
	return dir + "/" + name
}

func (p *Processor) doPragma(rest token.Stream) {
	word, ok := nextWord(rest)
	if !ok {
		return
	}
	switch strings.ToLower(word) {
	case "allow_has_include":
		p.pragma.allowHasInclude = true
	case "suppress", "unsuppress":
		ident, ok := pragmaParenArg(rest)
		if !ok {
			p.warnf(p.curFile, p.curLine, "malformed-pragma", "#pragma "+word+" requires (lint_ident)")
			return
		}
		if strings.EqualFold(word, "suppress") {
			p.pragma.suppress(ident)
		} else {
			p.pragma.unsuppress(ident)
		}
	default:
		p.warnf(p.curFile, p.curLine, "unknown-pragma", "unrecognized pragma "+word)
	}
}

func pragmaParenArg(rest token.Stream) (string, bool) {
	rest = stripLeadingWhitespace(rest)
	// skip the keyword word token itself
	if len(rest) == 0 || rest[0].Symbol != token.SymbolWord {
		return "", false
	}
	rest = stripLeadingWhitespace(rest[1:])
	if len(rest) == 0 || rest[0].Symbol != token.SymbolLeftParenthesis {
		return "", false
	}
	for _, t := range rest[1:] {
		if t.Symbol == token.SymbolRightParenthesis {
			break
		}
		if t.Symbol == token.SymbolWord {
			return t.Word, true
		}
	}
	return "", false
}
