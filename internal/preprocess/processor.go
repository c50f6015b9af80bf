// Package preprocess implements the C-style preprocessor shared by the
// config parser and the SQF pipeline: tokenizing, macro definition and
// expansion, conditional compilation, and include resolution over the
// layered workspace.VFS (§4.1).
package preprocess

import (
	"fmt"

	"github.com/brettmayson/hemtt-core/internal/diag"
	"github.com/brettmayson/hemtt-core/internal/token"
	"github.com/brettmayson/hemtt-core/internal/workspace"
)

// ifFrame is one level of the #if/#ifdef/#ifndef conditional stack.
// active() is true only when both this frame's own branch holds and every
// enclosing frame is active — a disabled branch disables everything nested
// inside it regardless of the nested condition's own truth.
type ifFrame struct {
	parentActive bool
	branchTrue   bool
	sawElse      bool
}

func (f ifFrame) active() bool { return f.parentActive && f.branchTrue }

// Processor runs the preprocessor over a workspace rooted at a VFS,
// accumulating a flat output token stream, a report of diagnostics, and a
// record of whether any construct was seen that makes the result unsafe to
// rapify (§4.1's __has_include gate).
type Processor struct {
	vfs     *workspace.VFS
	defines *Table
	report  *diag.Report

	ifstack   []ifFrame
	fileStack []string // for cycle detection and relative include resolution

	pragma *Pragma

	curFile string
	curLine int

	nonRapifiable bool

	out     token.Stream
	origins []workspace.Origin
}

// New creates a Processor bound to vfs, with an empty definitions table and
// a fresh diagnostics report.
func New(vfs *workspace.VFS) *Processor {
	return &Processor{
		vfs:     vfs,
		defines: NewTable(),
		report:  diag.NewReport(),
		pragma:  NewPragma(),
	}
}

// NonRapifiable reports whether processing encountered a construct (such as
// an unguarded __has_include) that makes the resulting config unsafe to
// binarize (§4.1).
func (p *Processor) NonRapifiable() bool { return p.nonRapifiable }

// Run preprocesses the file at root and everything it transitively
// includes, returning the flattened token stream with its line-origin map.
func (p *Processor) Run(root workspace.Path) (*workspace.Processed, *diag.Report, error) {
	if err := p.processFile(root); err != nil {
		return nil, p.report, err
	}
	if len(p.ifstack) > 0 {
		p.errorf(root.String(), 0, "unterminated-conditional", "unterminated #if at end of file")
	}
	return &workspace.Processed{Tokens: p.out, Origins: p.origins}, p.report, nil
}

func (p *Processor) processFile(path workspace.Path) error {
	for _, f := range p.fileStack {
		if f == path.String() {
			return fmt.Errorf("preprocess: include cycle detected at %q", path.String())
		}
	}
	loc, err := p.vfs.Locate(path)
	if err != nil {
		return err
	}
	if loc.CaseIssue != nil {
		p.warnf(path.String(), 0, "include-case-mismatch",
			fmt.Sprintf("include %q resolved only by case-insensitive match to %q", loc.CaseIssue.Requested, loc.CaseIssue.Actual))
	}
	data, err := p.vfs.Read(loc)
	if err != nil {
		return err
	}

	p.fileStack = append(p.fileStack, path.String())
	defer func() { p.fileStack = p.fileStack[:len(p.fileStack)-1] }()

	prevFile := p.curFile
	p.curFile = path.String()
	defer func() { p.curFile = prevFile }()

	tokens := lex(path.String(), string(data))
	for _, line := range splitLines(tokens) {
		if err := p.processLine(line); err != nil {
			return err
		}
	}
	return nil
}

func (p *Processor) processLine(line token.Stream) error {
	p.curLine = lineNumber(line)

	sig, ok := firstSignificant(line)
	if ok && sig.Symbol == token.SymbolDirective {
		return p.dispatch(line)
	}

	if !p.active() {
		return nil
	}

	expanded := p.expand(p.substituteBuiltins(line))
	p.emit(expanded)
	return nil
}

// substituteBuiltins resolves the position-dependent built-ins __LINE__ and
// __FILE__, which are lexical rather than table-driven (§4.1 Definition
// Void entries).
func (p *Processor) substituteBuiltins(line token.Stream) token.Stream {
	out := make(token.Stream, 0, len(line))
	for _, t := range line {
		switch {
		case t.Symbol == token.SymbolWord && t.Word == "__LINE__":
			out = append(out, token.New(token.SymbolDigit, fmt.Sprintf("%d", p.curLine), t.Pos))
		case t.Symbol == token.SymbolWord && t.Word == "__FILE__":
			out = append(out, token.New(token.SymbolDoubleQuote, `"`+p.curFile+`"`, t.Pos))
		default:
			out = append(out, t)
		}
	}
	return out
}

// emit appends tokens to the processed output, recording a line-origin
// entry each time a newline is written so Origins stays aligned with the
// output's own line numbering regardless of how expansion reshaped lines.
func (p *Processor) emit(tokens token.Stream) {
	for _, t := range tokens {
		p.out = append(p.out, t)
		if t.Symbol == token.SymbolNewline {
			p.origins = append(p.origins, workspace.Origin{Line: p.curLine, Path: p.curFile})
		}
	}
}

func (p *Processor) active() bool {
	if len(p.ifstack) == 0 {
		return true
	}
	return p.ifstack[len(p.ifstack)-1].active()
}

func lineNumber(line token.Stream) int {
	for _, t := range line {
		if t.Symbol != token.SymbolWhitespace {
			return t.Pos.Line
		}
	}
	if len(line) > 0 {
		return line[0].Pos.Line
	}
	return 0
}

func (p *Processor) errorf(path string, byteOffset int, code, msg string) {
	p.report.Push(&diag.Diagnostic{
		Ident:    code,
		Severity: diag.SeverityError,
		Message:  msg,
		Labels:   []diag.Label{{Path: path, Start: byteOffset, End: byteOffset, Message: msg}},
	})
}

func (p *Processor) warnf(path string, byteOffset int, code, msg string) {
	p.report.Push(&diag.Diagnostic{
		Ident:    code,
		Severity: diag.SeverityWarning,
		Message:  msg,
		Labels:   []diag.Label{{Path: path, Start: byteOffset, End: byteOffset, Message: msg}},
	})
}

func (p *Processor) warnPaddedArgument(def *Definition, idx int) {
	name := "?"
	if idx < len(def.Params) {
		name = def.Params[idx]
	}
	p.warnf(p.curFile, def.Pos.Start, "padded-argument",
		fmt.Sprintf("macro call is missing argument %q, padded with an empty value", name))
}
