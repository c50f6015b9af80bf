package preprocess

import (
	"strings"

	"github.com/brettmayson/hemtt-core/internal/token"
)

// expand performs iterative macro expansion over a token stream: every word
// token is checked against the definitions table; a match that is either a
// value macro, or a function macro immediately followed by "(...)", is
// replaced by its (recursively expanded) body. Re-entrant expansion of a
// macro from within its own body is suppressed by Table's name guard, so a
// direct or indirect cycle like `#define A B` / `#define B A` terminates
// with the un-expandable occurrence left verbatim (§4.1, §9, testable
// property in §8).
func (p *Processor) expand(in token.Stream) token.Stream {
	var out token.Stream
	for i := 0; i < len(in); i++ {
		t := in[i]
		if t.Symbol != token.SymbolWord {
			out = append(out, t)
			continue
		}
		def, ok := p.defines.Lookup(t.Word)
		if !ok {
			out = append(out, t)
			continue
		}
		switch def.Kind {
		case DefinitionVoid:
			out = append(out, t)
		case DefinitionUnit:
			// flag-only macro: expands to nothing
		case DefinitionValue:
			if !p.defines.Enter(t.Word) {
				out = append(out, t) // re-entrant reference: left unexpanded
				continue
			}
			out = append(out, p.expand(def.Body)...)
			p.defines.Leave(t.Word)
		case DefinitionFunction:
			args, consumed, found := p.tryReadCall(in[i+1:])
			if !found {
				out = append(out, t) // not invoked as a call: plain identifier
				continue
			}
			if !p.defines.Enter(t.Word) {
				out = append(out, t)
				i += consumed
				continue
			}
			body := p.substituteFunctionBody(def, args)
			out = append(out, p.expand(body)...)
			p.defines.Leave(t.Word)
			i += consumed
		}
	}
	return out
}

// tryReadCall looks for "(args...)" immediately following a function-macro
// name (whitespace before the opening paren is tolerated), returning the
// raw, unexpanded argument streams, how many tokens of `rest` were
// consumed (through the closing paren), and whether a call was found at
// all.
func (p *Processor) tryReadCall(rest token.Stream) (args []token.Stream, consumed int, found bool) {
	i := 0
	for i < len(rest) && rest[i].Symbol == token.SymbolWhitespace {
		i++
	}
	if i >= len(rest) || rest[i].Symbol != token.SymbolLeftParenthesis {
		return nil, 0, false
	}
	i++ // consume '('
	depth := 1
	var cur token.Stream
	for i < len(rest) {
		t := rest[i]
		switch t.Symbol {
		case token.SymbolLeftParenthesis:
			depth++
			cur = append(cur, t)
		case token.SymbolRightParenthesis:
			depth--
			if depth == 0 {
				args = append(args, trimWhitespace(cur))
				i++
				return args, i, true
			}
			cur = append(cur, t)
		case token.SymbolComma:
			if depth == 1 {
				args = append(args, trimWhitespace(cur))
				cur = nil
			} else {
				cur = append(cur, t)
			}
		default:
			cur = append(cur, t)
		}
		i++
	}
	// unterminated call: treat as not a call (caller will fall back to
	// verbatim identifier; an unterminated-parenthesis diagnostic is the
	// directive layer's concern when it hits the line/file boundary)
	return nil, 0, false
}

func trimWhitespace(s token.Stream) token.Stream {
	start := 0
	for start < len(s) && s[start].IsWhitespace() {
		start++
	}
	end := len(s)
	for end > start && s[end-1].IsWhitespace() {
		end--
	}
	if start == end && len(s) > 0 {
		return token.Stream{}
	}
	return s[start:end]
}

// substituteFunctionBody binds `def`'s parameters to `args` and resolves
// any `#param` stringize or `##` token-join markers, producing the token
// stream to recursively expand (§4.1 Quoting).
func (p *Processor) substituteFunctionBody(def *Definition, args []token.Stream) token.Stream {
	boundArgs := make([]token.Stream, len(def.Params))
	for idx := range def.Params {
		if idx < len(args) {
			boundArgs[idx] = args[idx]
		} else {
			boundArgs[idx] = token.Stream{}
			if p.report != nil {
				p.warnPaddedArgument(def, idx)
			}
		}
	}

	segments := splitByJoin(def.Body)
	hasPaste := len(segments) > 1

	expandedArgs := boundArgs
	if !hasPaste {
		expandedArgs = make([]token.Stream, len(boundArgs))
		for idx, a := range boundArgs {
			expandedArgs[idx] = p.expand(a)
		}
	}

	resolved := make([]token.Stream, len(segments))
	for si, seg := range segments {
		resolved[si] = p.substituteParamsInSegment(seg, def.Params, boundArgs, expandedArgs)
	}

	result := resolved[0]
	for si := 1; si < len(resolved); si++ {
		seg := resolved[si]
		if len(result) > 0 && len(seg) > 0 {
			last := result[len(result)-1]
			first := seg[0]
			merged := token.New(token.SymbolWord, last.Word+first.Word, last.Pos)
			result = append(result[:len(result)-1], merged)
			result = append(result, seg[1:]...)
		} else {
			result = append(result, seg...)
		}
	}
	return result
}

// splitByJoin splits a token stream on SymbolJoin ("##") markers, dropping
// the markers themselves. A body with no "##" at all yields a single
// segment equal to the whole body.
func splitByJoin(body token.Stream) []token.Stream {
	var segments []token.Stream
	var cur token.Stream
	for _, t := range body {
		if t.Symbol == token.SymbolJoin {
			segments = append(segments, cur)
			cur = nil
			continue
		}
		cur = append(cur, t)
	}
	segments = append(segments, cur)
	return segments
}

// substituteParamsInSegment replaces parameter references within one
// paste-segment. A "#paramName" pair stringizes the (always expanded)
// argument value into a single quoted token; a bare parameter reference
// uses `rawArgs` if this body contains any "##" (paste requires literal,
// unexpanded text) or `expandedArgs` otherwise.
func (p *Processor) substituteParamsInSegment(seg token.Stream, params []string, rawArgs, expandedArgs []token.Stream) token.Stream {
	var out token.Stream
	for i := 0; i < len(seg); i++ {
		t := seg[i]
		if t.Symbol == token.SymbolHash && i+1 < len(seg) && seg[i+1].Symbol == token.SymbolWord {
			if idx := paramIndex(params, seg[i+1].Word); idx >= 0 {
				out = append(out, quoteStream(expandedArgs[idx]))
				i++
				continue
			}
		}
		if t.Symbol == token.SymbolWord {
			if idx := paramIndex(params, t.Word); idx >= 0 {
				if samePointerFamily(rawArgs, expandedArgs) {
					out = append(out, rawArgs[idx]...)
				} else {
					out = append(out, expandedArgs[idx]...)
				}
				continue
			}
		}
		out = append(out, t)
	}
	return out
}

// samePointerFamily reports whether rawArgs and expandedArgs are the very
// same slice header passed twice (substituteFunctionBody's paste path,
// which builds no expanded copy), meaning raw substitution is used.
func samePointerFamily(rawArgs, expandedArgs []token.Stream) bool {
	if len(rawArgs) == 0 && len(expandedArgs) == 0 {
		return true
	}
	if len(rawArgs) != len(expandedArgs) {
		return false
	}
	return &rawArgs[0] == &expandedArgs[0]
}

func paramIndex(params []string, name string) int {
	for i, p := range params {
		if strings.EqualFold(p, name) {
			return i
		}
	}
	return -1
}

// quoteStream renders an argument's token text as a single double-quoted
// token, collapsing internal newlines to spaces (§4.1 Quoting: "newlines
// inside the body are counted but collapsed").
func quoteStream(s token.Stream) token.Token {
	var b strings.Builder
	for _, t := range s {
		if t.Symbol == token.SymbolNewline {
			b.WriteByte(' ')
			continue
		}
		b.WriteString(t.Word)
	}
	text := strings.TrimSpace(b.String())
	text = strings.ReplaceAll(text, `"`, `""`)
	var pos token.Position
	if len(s) > 0 {
		pos = s[0].Pos
	}
	return token.New(token.SymbolDoubleQuote, `"`+text+`"`, pos)
}
