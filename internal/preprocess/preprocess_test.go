package preprocess_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brettmayson/hemtt-core/internal/preprocess"
	"github.com/brettmayson/hemtt-core/internal/workspace"
)

func run(t *testing.T, files map[string]string, entry string) (string, *preprocess.Processor) {
	t.Helper()
	raw := make(map[string][]byte, len(files))
	for name, content := range files {
		raw[name] = []byte(content)
	}
	vfs := workspace.NewVFS(workspace.Layer{Kind: workspace.LayerMemory, Files: raw})
	p := preprocess.New(vfs)
	processed, report, err := p.Run(workspace.New(entry))
	require.NoError(t, err)
	assert.False(t, report.HasErrors(), "unexpected errors: %+v", report.Diagnostics())
	return processed.Text(), p
}

func TestValueMacroExpansion(t *testing.T) {
	out, _ := run(t, map[string]string{
		"main.hpp": "#define VERSION 5\nversion = VERSION;\n",
	}, "main.hpp")
	assert.Contains(t, out, "version = 5;")
}

func TestFunctionMacroExpansion(t *testing.T) {
	out, _ := run(t, map[string]string{
		"main.hpp": "#define QUOTE(x) #x\nname = QUOTE(hello);\n",
	}, "main.hpp")
	assert.Contains(t, out, `name = "hello";`)
}

func TestTokenPaste(t *testing.T) {
	out, _ := run(t, map[string]string{
		"main.hpp": "#define GLUE(a,b) a##b\nvalue = GLUE(fo,o);\n",
	}, "main.hpp")
	assert.Contains(t, out, "value = foo;")
}

func TestRecursiveMacroGuard(t *testing.T) {
	out, _ := run(t, map[string]string{
		"main.hpp": "#define A B\n#define B A\nresult = A;\n",
	}, "main.hpp")
	assert.True(t, strings.Contains(out, "result = A;") || strings.Contains(out, "result = B;"),
		"expected expansion to terminate leaving one un-expandable name, got %q", out)
}

func TestIfdefBranch(t *testing.T) {
	out, _ := run(t, map[string]string{
		"main.hpp": "#define DEBUG\n#ifdef DEBUG\nmode = 1;\n#else\nmode = 0;\n#endif\n",
	}, "main.hpp")
	assert.Contains(t, out, "mode = 1;")
	assert.NotContains(t, out, "mode = 0;")
}

func TestIfExpressionComparison(t *testing.T) {
	out, _ := run(t, map[string]string{
		"main.hpp": "#define LEVEL 3\n#if LEVEL > 2\nhigh = 1;\n#else\nhigh = 0;\n#endif\n",
	}, "main.hpp")
	assert.Contains(t, out, "high = 1;")
}

func TestBareConditionIsEqualsOne(t *testing.T) {
	out, _ := run(t, map[string]string{
		"main.hpp": "#define FLAG 1\n#if FLAG\non = 1;\n#endif\n",
	}, "main.hpp")
	assert.Contains(t, out, "on = 1;")
}

func TestNestedConditionalsDisableInnerRegardlessOfCondition(t *testing.T) {
	out, _ := run(t, map[string]string{
		"main.hpp": "#define INNER 1\n#if 0\n#if INNER\nvalue = 1;\n#endif\n#endif\nafter = 1;\n",
	}, "main.hpp")
	assert.NotContains(t, out, "value = 1;")
	assert.Contains(t, out, "after = 1;")
}

func TestIncludeResolution(t *testing.T) {
	out, _ := run(t, map[string]string{
		"main.hpp":    "#include \"parts/shared.hpp\"\ndone = 1;\n",
		"parts/shared.hpp": "shared = 1;\n",
	}, "main.hpp")
	assert.Contains(t, out, "shared = 1;")
	assert.Contains(t, out, "done = 1;")
}

func TestRedefinitionWarns(t *testing.T) {
	raw := map[string][]byte{
		"main.hpp": []byte("#define X 1\n#define X 2\nvalue = X;\n"),
	}
	vfs := workspace.NewVFS(workspace.Layer{Kind: workspace.LayerMemory, Files: raw})
	p := preprocess.New(vfs)
	processed, report, err := p.Run(workspace.New("main.hpp"))
	require.NoError(t, err)
	found := false
	for _, d := range report.Diagnostics() {
		if d.Ident == "macro-redefined" {
			found = true
		}
	}
	assert.True(t, found, "expected a macro-redefined diagnostic")
	assert.Contains(t, processed.Text(), "value = 2;")
}

func TestUndefRemovesMacro(t *testing.T) {
	out, _ := run(t, map[string]string{
		"main.hpp": "#define X 1\n#undef X\n#ifdef X\nyes = 1;\n#else\nno = 1;\n#endif\n",
	}, "main.hpp")
	assert.Contains(t, out, "no = 1;")
}

func TestHasIncludeRejectedWithoutPragma(t *testing.T) {
	raw := map[string][]byte{
		"main.hpp": []byte("#if __has_include(\"other.hpp\")\nyes = 1;\n#endif\n"),
	}
	vfs := workspace.NewVFS(workspace.Layer{Kind: workspace.LayerMemory, Files: raw})
	p := preprocess.New(vfs)
	_, report, err := p.Run(workspace.New("main.hpp"))
	require.NoError(t, err)
	assert.True(t, report.HasErrors())
	assert.True(t, p.NonRapifiable())
}

func TestPaddedArgumentWarns(t *testing.T) {
	raw := map[string][]byte{
		"main.hpp": []byte("#define TWO(a,b) a b\nvalue = TWO(1);\n"),
	}
	vfs := workspace.NewVFS(workspace.Layer{Kind: workspace.LayerMemory, Files: raw})
	p := preprocess.New(vfs)
	processed, report, err := p.Run(workspace.New("main.hpp"))
	require.NoError(t, err)
	found := false
	for _, d := range report.Diagnostics() {
		if d.Ident == "padded-argument" {
			found = true
		}
	}
	assert.True(t, found, "expected a padded-argument diagnostic")
	assert.Contains(t, processed.Text(), "value = 1")
}
