package analyze

import (
	"github.com/brettmayson/hemtt-core/internal/diag"
	"github.com/brettmayson/hemtt-core/internal/sqf/ast"
)

// compareArrayLint flags `==`/`!=` used with an array literal operand,
// suggesting `isEqualTo`/`isNotEqualTo` instead. SQF's `==` on arrays is
// defined (element-wise recursive equality) but the engine documents
// `isEqualTo` as the array-safe spelling, since plain `==` silently
// returns false for mismatched nested types rather than erroring; this
// mirrors the family of "use the safer named command" lints the
// reference groups under s02_event_handlers.rs's module shape (spec
// §4.6's "isEqualTo-vs-count" lint), generalized here to any `==`/`!=`
// against an array rather than only a `count ... == 0` pattern, since
// the array-equality footgun is the broader instance of the same
// mistake.
type compareArrayLint struct{}

func (compareArrayLint) Ident() string    { return "compare_array_equality" }
func (compareArrayLint) Sort() uint32     { return 30 }
func (compareArrayLint) DocIdent() string { return "03AE" }
func (compareArrayLint) Description() string {
	return "Checks for == or != compared against an array literal"
}
func (compareArrayLint) Documentation() string {
	return `### Example

**Incorrect**
` + "```sqf" + `
if (_positions == []) then { ... };
` + "```" + `
**Correct**
` + "```sqf" + `
if (_positions isEqualTo []) then { ... };
` + "```" + `
`
}
func (compareArrayLint) DefaultSeverity() diag.Severity { return diag.SeverityWarning }

func (l compareArrayLint) Run(stmts ast.Statements, _ *ast.Database) []*diag.Diagnostic {
	var out []*diag.Diagnostic
	var walkExpr func(ast.Expression)
	var walk func(ast.Statements)
	walkExpr = func(e ast.Expression) {
		switch e.Kind {
		case ast.ExprCode:
			walk(e.Code)
		case ast.ExprArray, ast.ExprConsumeableArray:
			for _, el := range e.Elements {
				walkExpr(el)
			}
		case ast.ExprUnaryCommand:
			if e.Right != nil {
				walkExpr(*e.Right)
			}
		case ast.ExprBinaryCommand:
			if e.Left != nil {
				walkExpr(*e.Left)
			}
			if e.Right != nil {
				walkExpr(*e.Right)
			}
			if e.Command != "==" && e.Command != "!=" {
				return
			}
			if (e.Left != nil && e.Left.Kind == ast.ExprArray) || (e.Right != nil && e.Right.Kind == ast.ExprArray) {
				suggest := "isEqualTo"
				if e.Command == "!=" {
					suggest = "isNotEqualTo"
				}
				out = append(out, &diag.Diagnostic{
					Ident:    "L-03AE",
					Severity: l.DefaultSeverity(),
					Message:  "prefer \"" + suggest + "\" when comparing arrays",
					Labels:   []diag.Label{{Path: e.Pos.Path, Start: e.Pos.Start, End: e.Pos.End}},
				})
			}
		}
	}
	walk = func(s ast.Statements) {
		for _, stmt := range s.Content {
			walkExpr(stmt.Expression)
		}
	}
	walk(stmts)
	return out
}
