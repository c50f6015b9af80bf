package ast

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/brettmayson/hemtt-core/internal/diag"
	"github.com/brettmayson/hemtt-core/internal/preprocess"
	lex "github.com/brettmayson/hemtt-core/internal/sqf/lexer"
	"github.com/brettmayson/hemtt-core/internal/workspace"
)

func parseSource(t *testing.T, src string) (Statements, *diag.Report) {
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
	toks := lex.Lex(processed.Tokens)
	db := NewDatabase()
	r := diag.NewReport()
	stmts, err := Parse(toks, src, db, r)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return stmts, r
}

func TestParseAssignment(t *testing.T) {
	stmts, r := parseSource(t, `_x = 1 + 2;`)
	if r.HasErrors() {
		t.Fatalf("unexpected errors: %v", r.Diagnostics())
	}
	if len(stmts.Content) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(stmts.Content))
	}
	s := stmts.Content[0]
	if s.Kind != StmtAssignLocal || s.Name != "_x" {
		t.Fatalf("expected local assignment to _x, got %+v", s)
	}
	if s.Expression.Kind != ExprBinaryCommand || s.Expression.Command != "+" {
		t.Fatalf("expected '+' binary expression, got %+v", s.Expression)
	}
}

func TestParseGlobalAssignment(t *testing.T) {
	stmts, r := parseSource(t, `GVAR = 5;`)
	if r.HasErrors() {
		t.Fatalf("unexpected errors: %v", r.Diagnostics())
	}
	if stmts.Content[0].Kind != StmtAssignGlobal {
		t.Fatalf("expected global assignment, got %+v", stmts.Content[0])
	}
}

func TestParsePrecedence(t *testing.T) {
	// "1 + 2 * 3" must parse as "1 + (2 * 3)" since * binds tighter than +.
	stmts, r := parseSource(t, `1 + 2 * 3;`)
	if r.HasErrors() {
		t.Fatalf("unexpected errors: %v", r.Diagnostics())
	}
	top := stmts.Content[0].Expression
	if top.Kind != ExprBinaryCommand || top.Command != "+" {
		t.Fatalf("expected top-level '+', got %+v", top)
	}
	if top.Right.Kind != ExprBinaryCommand || top.Right.Command != "*" {
		t.Fatalf("expected rhs '*', got %+v", top.Right)
	}
	if top.Left.Kind != ExprNumber || top.Left.Number != 1 {
		t.Fatalf("expected lhs 1, got %+v", top.Left)
	}
}

func TestParseAndOrLowerThanCompare(t *testing.T) {
	// "1 == 1 && 2 == 2" must parse as "(1==1) && (2==2)".
	stmts, r := parseSource(t, `1 == 1 && 2 == 2;`)
	if r.HasErrors() {
		t.Fatalf("unexpected errors: %v", r.Diagnostics())
	}
	top := stmts.Content[0].Expression
	if top.Kind != ExprBinaryCommand || top.Command != "&&" {
		t.Fatalf("expected top-level '&&', got %+v", top)
	}
	if top.Left.Command != "==" || top.Right.Command != "==" {
		t.Fatalf("expected both operands to be '==', got left=%+v right=%+v", top.Left, top.Right)
	}
}

func TestParseUnaryCommand(t *testing.T) {
	stmts, r := parseSource(t, `hint str 5;`)
	if r.HasErrors() {
		t.Fatalf("unexpected errors: %v", r.Diagnostics())
	}
	top := stmts.Content[0].Expression
	if top.Kind != ExprUnaryCommand || top.Command != "hint" {
		t.Fatalf("expected unary 'hint', got %+v", top)
	}
	if top.Right.Kind != ExprUnaryCommand || top.Right.Command != "str" {
		t.Fatalf("expected nested unary 'str', got %+v", top.Right)
	}
}

func TestParseCodeBlockAndArray(t *testing.T) {
	stmts, r := parseSource(t, `_f = { [1,2,3] };`)
	if r.HasErrors() {
		t.Fatalf("unexpected errors: %v", r.Diagnostics())
	}
	e := stmts.Content[0].Expression
	if e.Kind != ExprCode {
		t.Fatalf("expected code block, got %+v", e)
	}
	if len(e.Code.Content) != 1 {
		t.Fatalf("expected one statement inside code block, got %d", len(e.Code.Content))
	}
	arr := e.Code.Content[0].Expression
	if arr.Kind != ExprArray || len(arr.Elements) != 3 {
		t.Fatalf("expected a 3-element array, got %+v", arr)
	}
}

func TestParseMultipleStatements(t *testing.T) {
	stmts, r := parseSource(t, `_a = 1; _b = 2; hint "done";`)
	if r.HasErrors() {
		t.Fatalf("unexpected errors: %v", r.Diagnostics())
	}
	if len(stmts.Content) != 3 {
		t.Fatalf("expected 3 statements, got %d: %+v", len(stmts.Content), stmts.Content)
	}
}
