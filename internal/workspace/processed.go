package workspace

import (
	"strings"

	"github.com/brettmayson/hemtt-core/internal/token"
)

// Origin maps one output line back to the original source it came from
// (spec §3: "every output token carries a position that refers to *some*
// original source file, not the generated text").
type Origin struct {
	Line int
	Path string
}

// Processed is the preprocessor's output: a flat token sequence plus a
// line-origin table. Downstream consumers (the config parser, the SQF
// lexer) only ever see Tokens; diagnostics are rendered by walking back
// through Origins to recover the original file and line.
type Processed struct {
	Tokens  token.Stream
	Origins []Origin // Origins[i] describes output line i+1
}

// Text reconstructs the full processed source text.
func (p *Processed) Text() string {
	return p.Tokens.Text()
}

// Line returns the 1-based line and column for a byte offset into the
// processed text, along with the line's text, suitable for diagnostic
// rendering via diag.Diagnostic.Render.
func (p *Processed) Line(byteOffset int) (line, column int, text string) {
	full := p.Text()
	if byteOffset < 0 || byteOffset > len(full) {
		return 0, 0, ""
	}
	line = 1 + strings.Count(full[:byteOffset], "\n")
	lastNL := strings.LastIndexByte(full[:byteOffset], '\n')
	column = byteOffset - lastNL
	lineStart := lastNL + 1
	lineEnd := strings.IndexByte(full[lineStart:], '\n')
	if lineEnd == -1 {
		text = full[lineStart:]
	} else {
		text = full[lineStart : lineStart+lineEnd]
	}
	return line, column, text
}

// OriginOf returns the original (path, line) that produced output line
// `outputLine` (1-based), or (ok=false) if out of range.
func (p *Processed) OriginOf(outputLine int) (Origin, bool) {
	idx := outputLine - 1
	if idx < 0 || idx >= len(p.Origins) {
		return Origin{}, false
	}
	return p.Origins[idx], true
}
