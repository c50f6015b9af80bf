package sqfc

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/brettmayson/hemtt-core/internal/diag"
	"github.com/brettmayson/hemtt-core/internal/preprocess"
	"github.com/brettmayson/hemtt-core/internal/sqf/ast"
	lex "github.com/brettmayson/hemtt-core/internal/sqf/lexer"
	"github.com/brettmayson/hemtt-core/internal/sqf/optimizer"
	"github.com/brettmayson/hemtt-core/internal/workspace"
)

func compile(t *testing.T, src string) *Compiled {
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
	if r.HasErrors() {
		t.Fatalf("parse reported errors for %q: %v", src, r.Diagnostics())
	}
	stmts = optimizer.Optimize(stmts)
	c, err := NewCompiler().Compile(stmts)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	return c
}

func TestCompileAndSerializeRoundTrip(t *testing.T) {
	original := compile(t, `_x = 1 + 2; hint str _x;`)

	var buf bytes.Buffer
	if err := original.Serialize(&buf); err != nil {
		t.Fatalf("serialize: %v", err)
	}

	got, err := Deserialize(buf.Bytes())
	if err != nil {
		t.Fatalf("deserialize: %v", err)
	}

	if got.EntryPoint != original.EntryPoint {
		t.Errorf("entry point: got %d, want %d", got.EntryPoint, original.EntryPoint)
	}
	if len(got.NamesCache) != len(original.NamesCache) {
		t.Fatalf("names cache length: got %d, want %d", len(got.NamesCache), len(original.NamesCache))
	}
	for i, name := range original.NamesCache {
		if got.NamesCache[i] != name {
			t.Errorf("name %d: got %q, want %q", i, got.NamesCache[i], name)
		}
	}
	if len(got.ConstantsCache) != len(original.ConstantsCache) {
		t.Fatalf("constants cache length: got %d, want %d", len(got.ConstantsCache), len(original.ConstantsCache))
	}
	entry, ok := got.GetEntryPoint()
	if !ok {
		t.Fatalf("deserialized entry point did not resolve to a Code constant")
	}
	if len(entry.Contents) == 0 {
		t.Fatalf("deserialized entry point has no instructions")
	}
}

func TestCompileFoldsConstantArithmetic(t *testing.T) {
	// the optimizer folds "1 + 2" to a single literal 3 before compile,
	// so the entry point contains exactly one Push + AssignToLocal +
	// EndStatement (no CallBinary for "+").
	c := compile(t, `_x = 1 + 2;`)
	entry, ok := c.GetEntryPoint()
	if !ok {
		t.Fatalf("entry point did not resolve")
	}
	for _, instr := range entry.Contents {
		if instr.Op == OpCallBinary {
			t.Fatalf("expected constant folding to eliminate the binary '+' call, found one: %+v", entry.Contents)
		}
	}
	if len(entry.Contents) != 3 || entry.Contents[0].Op != OpPush || entry.Contents[1].Op != OpAssignToLocal || entry.Contents[2].Op != OpEndStatement {
		t.Fatalf("expected Push, AssignToLocal, EndStatement, got %+v", entry.Contents)
	}
}

func TestCompileDeduplicatesConstantsAndNames(t *testing.T) {
	c := compile(t, `hint "same"; hint "same";`)
	count := 0
	for _, k := range c.ConstantsCache {
		if k.Kind == ConstString && k.Str == "same" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("expected the string constant \"same\" to be deduplicated to 1 entry, found %d", count)
	}
	hintCount := 0
	for _, n := range c.NamesCache {
		if n == "hint" {
			hintCount++
		}
	}
	if hintCount != 1 {
		t.Errorf("expected the name \"hint\" to be deduplicated to 1 entry, found %d", hintCount)
	}
}

func TestSerializeRejectsUnknownVersionOnDeserialize(t *testing.T) {
	_, err := Deserialize([]byte{2, 0, 0, 0})
	if err == nil {
		t.Fatal("expected an error for an unsupported version")
	}
}

func TestCompileArrayAndMakeArray(t *testing.T) {
	c := compile(t, `_x = [1, 2, 3];`)
	entry, _ := c.GetEntryPoint()
	found := false
	for _, instr := range entry.Contents {
		if instr.Op == OpMakeArray && instr.ArrayLen == 3 {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a MakeArray(3) instruction, got %+v", entry.Contents)
	}
}
