package optimizer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/brettmayson/hemtt-core/internal/diag"
	"github.com/brettmayson/hemtt-core/internal/preprocess"
	"github.com/brettmayson/hemtt-core/internal/sqf/ast"
	lex "github.com/brettmayson/hemtt-core/internal/sqf/lexer"
	"github.com/brettmayson/hemtt-core/internal/workspace"
)

func parseSource(t *testing.T, src string) ast.Statements {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "main.sqf"), []byte(src), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	vfs := workspace.NewVFS(workspace.Layer{Kind: workspace.LayerSource, Root: dir})
	proc := preprocess.New(vfs)
	processed, report, err := proc.Run(workspace.New("main.sqf"))
	if err != nil {
		t.Fatalf("preprocess run: %v", err)
	}
	if report != nil && report.HasErrors() {
		t.Fatalf("preprocess reported errors for %q", src)
	}
	toks := lex.Lex(processed.Tokens)
	db := ast.NewDatabase()
	r := diag.NewReport()
	stmts, err := ast.Parse(toks, src, db, r)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return stmts
}

func TestOptimizeConstantFoldsArithmetic(t *testing.T) {
	stmts := Optimize(parseSource(t, `_x = 1 + 2 * 3;`))
	e := stmts.Content[0].Expression
	if e.Kind != ast.ExprNumber || e.Number != 7 {
		t.Fatalf("expected folded constant 7, got %+v", e)
	}
}

func TestOptimizeFoldsNegation(t *testing.T) {
	stmts := Optimize(parseSource(t, `hint str (-5);`))
	top := stmts.Content[0].Expression
	// top is UnaryCommand "hint" -> UnaryCommand "str" -> Number -5
	if top.Kind != ast.ExprUnaryCommand || top.Command != "hint" {
		t.Fatalf("expected outer 'hint', got %+v", top)
	}
	inner := top.Right
	if inner.Kind != ast.ExprUnaryCommand || inner.Command != "str" {
		t.Fatalf("expected inner 'str', got %+v", inner)
	}
	if inner.Right.Kind != ast.ExprNumber || inner.Right.Number != -5 {
		t.Fatalf("expected folded -5, got %+v", inner.Right)
	}
}

func TestOptimizeFoldsStringCase(t *testing.T) {
	stmts := Optimize(parseSource(t, `_x = toUpper "abc";`))
	e := stmts.Content[0].Expression
	if e.Kind != ast.ExprString || e.Str != "ABC" {
		t.Fatalf("expected folded string ABC, got %+v", e)
	}
}

func TestOptimizeMarksParamsConsumeable(t *testing.T) {
	stmts := Optimize(parseSource(t, `params ["_a", "_b"];`))
	e := stmts.Content[0].Expression
	if e.Kind != ast.ExprUnaryCommand || e.Command != "params" {
		t.Fatalf("expected unary 'params', got %+v", e)
	}
	if e.Right.Kind != ast.ExprConsumeableArray {
		t.Fatalf("expected params argument marked consumeable, got %+v", e.Right)
	}
}

func TestOptimizeLeavesParamsWithDescriptorsAlone(t *testing.T) {
	stmts := Optimize(parseSource(t, `params [["_a", 1]];`))
	e := stmts.Content[0].Expression
	if e.Right.Kind == ast.ExprConsumeableArray {
		t.Fatalf("did not expect consumeable marking for descriptor-form params, got %+v", e.Right)
	}
}

func TestOptimizeRecursesIntoCodeBlocks(t *testing.T) {
	stmts := Optimize(parseSource(t, `_f = { 1 + 1 };`))
	code := stmts.Content[0].Expression
	if code.Kind != ast.ExprCode {
		t.Fatalf("expected code block, got %+v", code)
	}
	inner := code.Code.Content[0].Expression
	if inner.Kind != ast.ExprNumber || inner.Number != 2 {
		t.Fatalf("expected folded 2 inside code block, got %+v", inner)
	}
}
