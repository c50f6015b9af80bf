package preprocess

import (
	"strconv"
	"strings"

	"github.com/brettmayson/hemtt-core/internal/token"
	"github.com/brettmayson/hemtt-core/internal/workspace"
)

// evalCondition resolves a `#if` expression to a boolean. Operands are
// either numeric literals or macro references, which must resolve to value
// macros or the evaluation is an error (reported, condition treated as
// false). A bare `#if FOO` is equivalent to `#if FOO==1` (§4.1).
func (p *Processor) evalCondition(expr token.Stream) bool {
	sig := significantOnly(expr)
	if len(sig) == 0 {
		p.errorf(p.curFile, p.curLine, "empty-condition", "#if with an empty condition")
		return false
	}

	if sig[0].Word == "__has_include" {
		return p.evalHasInclude(sig)
	}

	lhs, op, rhs, hasOp := splitOperator(sig)
	if !hasOp {
		val, ok := p.resolveOperand(lhs, true)
		if !ok {
			return false
		}
		return val == "1"
	}

	lval, ok := p.resolveOperand(lhs, true)
	if !ok {
		return false
	}
	rval, ok := p.resolveOperand(rhs, false)
	if !ok {
		return false
	}
	return compareValues(lval, op, rval)
}

func significantOnly(s token.Stream) []token.Token {
	var out []token.Token
	for _, t := range s {
		switch t.Symbol {
		case token.SymbolWhitespace, token.SymbolNewline, token.SymbolComment:
			continue
		}
		out = append(out, t)
	}
	return out
}

// splitOperator finds the first top-level comparison operator among
// `==`, `!=`, `<=`, `>=`, `<`, `>`, built from single-char punctuation
// tokens since the lexer does not special-case multi-char operators.
func splitOperator(sig []token.Token) (lhs []token.Token, op string, rhs []token.Token, ok bool) {
	for i := 0; i < len(sig); i++ {
		t := sig[i]
		if i+1 < len(sig) {
			pair := t.Word + sig[i+1].Word
			switch pair {
			case "==", "!=", "<=", ">=":
				return sig[:i], pair, sig[i+2:], true
			}
		}
		if t.Word == "<" || t.Word == ">" {
			return sig[:i], t.Word, sig[i+1:], true
		}
	}
	return sig, "", nil, false
}

// resolveOperand turns an operand's tokens into its comparison text: a
// digit literal's own text, or a defined value macro's expanded, trimmed
// body. `mustBeDefined` is true for the left-hand operand, matching the
// rule that an undefined macro there is an error rather than treated as
// text.
func (p *Processor) resolveOperand(toks []token.Token, mustBeDefined bool) (string, bool) {
	if len(toks) == 0 {
		p.errorf(p.curFile, p.curLine, "empty-operand", "#if condition is missing an operand")
		return "", false
	}
	if len(toks) == 1 && toks[0].Symbol == token.SymbolWord {
		def, found := p.defines.Lookup(toks[0].Word)
		if !found {
			if mustBeDefined {
				p.errorf(p.curFile, p.curLine, "undefined-in-condition", "undefined macro "+toks[0].Word+" used in #if condition")
				return "", false
			}
			return toks[0].Word, true
		}
		expanded := p.expand(def.Body)
		return strings.TrimSpace(expanded.Text()), true
	}
	var b strings.Builder
	for _, t := range toks {
		b.WriteString(t.Word)
	}
	return strings.TrimSpace(b.String()), true
}

func compareValues(lhs, op, rhs string) bool {
	lf, lerr := strconv.ParseFloat(lhs, 64)
	rf, rerr := strconv.ParseFloat(rhs, 64)
	if lerr == nil && rerr == nil {
		switch op {
		case "==":
			return lf == rf
		case "!=":
			return lf != rf
		case "<":
			return lf < rf
		case "<=":
			return lf <= rf
		case ">":
			return lf > rf
		case ">=":
			return lf >= rf
		}
	}
	cmp := strings.Compare(lhs, rhs)
	switch op {
	case "==":
		return cmp == 0
	case "!=":
		return cmp != 0
	case "<":
		return cmp < 0
	case "<=":
		return cmp <= 0
	case ">":
		return cmp > 0
	case ">=":
		return cmp >= 0
	}
	return false
}

// evalHasInclude implements `__has_include("path")` inside a condition.
// HEMTT treats an unguarded use of it as an error, because the result
// depends on the filesystem layout rather than only macro text, making the
// config unsafe to rapify from a cached/processed form (§4.1). A file must
// first opt in with `#pragma allow_has_include`.
func (p *Processor) evalHasInclude(sig []token.Token) bool {
	if !p.pragma.allowHasInclude {
		p.errorf(p.curFile, p.curLine, "has-include-not-permitted",
			"__has_include is not permitted without #pragma allow_has_include")
		p.nonRapifiable = true
		return false
	}
	rest := token.Stream(sig[1:])
	if len(rest) > 0 && rest[0].Symbol == token.SymbolLeftParenthesis {
		rest = rest[1:]
	}
	spec, angled, ok := extractIncludeSpec(rest)
	if !ok {
		p.errorf(p.curFile, p.curLine, "malformed-has-include", "__has_include requires a quoted or angle-bracketed path")
		return false
	}
	candidates := []string{spec}
	if !angled {
		candidates = append([]string{joinLogical(dirOf(p.curFile), spec)}, candidates...)
	}
	for _, c := range candidates {
		if _, err := p.vfs.Locate(workspace.New(c)); err == nil {
			return true
		}
	}
	return false
}
