package analyze

import (
	"strings"

	"github.com/brettmayson/hemtt-core/internal/diag"
	"github.com/brettmayson/hemtt-core/internal/sqf/ast"
	"github.com/brettmayson/hemtt-core/internal/token"
)

// magicVars are local variables SQF provides implicitly depending on
// context (spec §4.6 names this as the inspector's `VarSource::Magic`
// case, which `skip_errors()` — never reported undefined or unused).
var magicVars = map[string]bool{
	"_this": true, "_x": true, "_foreachindex": true, "_exception": true,
	"_thiseventhandler": true, "_thisscript": true, "_thisfsm": true,
	"_thisargs": true,
}

func isMagic(name string) bool {
	return magicVars[strings.ToLower(name)]
}

// varInfo is a narrowed stand-in for the reference's VarHolder: it
// tracks declaration site and use-count but not a GameValue possible-
// value set (see package doc for why that's dropped here).
type varInfo struct {
	declaredAt token.Position
	usage      int
	magic      bool
}

// scope is one nesting level's variable table, matching the reference's
// `Stack` (one IndexMap<String, VarHolder> per code-block level).
type scope map[string]*varInfo

// scopeLint is the variable-presence checker: undefined-variable reads
// and unused-variable declarations, grounded on the reference
// Inspector's `var_assign`/`var_retrieve`/`stack_pop` (Issue::Undefined
// / Issue::Unused).
type scopeLint struct{}

func (scopeLint) Ident() string   { return "undefined_variable" }
func (scopeLint) Sort() uint32    { return 1 }
func (scopeLint) DocIdent() string { return "01VU" }
func (scopeLint) Description() string {
	return "Checks for reads of undefined local variables and declarations that are never used"
}
func (scopeLint) Documentation() string {
	return `### Example

**Incorrect**
` + "```sqf" + `
hint _foo;
` + "```" + `
**Correct**
` + "```sqf" + `
private _foo = "bar";
hint _foo;
` + "```" + `
`
}
func (scopeLint) DefaultSeverity() diag.Severity { return diag.SeverityWarning }

func (l scopeLint) Run(stmts ast.Statements, _ *ast.Database) []*diag.Diagnostic {
	i := &inspector{}
	i.pushScope()
	i.walkStatements(stmts)
	i.popScope()
	return i.diags
}

type inspector struct {
	scopes []scope
	diags  []*diag.Diagnostic
}

func (i *inspector) pushScope() {
	i.scopes = append(i.scopes, scope{})
}

func (i *inspector) popScope() {
	top := i.scopes[len(i.scopes)-1]
	i.scopes = i.scopes[:len(i.scopes)-1]
	for name, v := range top {
		if v.magic || v.usage > 0 {
			continue
		}
		i.diags = append(i.diags, &diag.Diagnostic{
			Ident:    "L-01VU",
			Severity: diag.SeverityWarning,
			Message:  "local variable \"" + name + "\" is never used",
			Labels:   []diag.Label{{Path: v.declaredAt.Path, Start: v.declaredAt.Start, End: v.declaredAt.End}},
		})
	}
}

func (i *inspector) declare(name string, pos token.Position, magic bool) {
	lower := strings.ToLower(name)
	top := i.scopes[len(i.scopes)-1]
	top[lower] = &varInfo{declaredAt: pos, magic: magic}
}

func (i *inspector) use(name string, pos token.Position) {
	lower := strings.ToLower(name)
	if !strings.HasPrefix(lower, "_") {
		return // globals are assumed always defined (reference: vars_global, no undefined check)
	}
	for idx := len(i.scopes) - 1; idx >= 0; idx-- {
		if v, ok := i.scopes[idx][lower]; ok {
			v.usage++
			return
		}
	}
	if isMagic(name) {
		return
	}
	i.diags = append(i.diags, &diag.Diagnostic{
		Ident:    "L-01VU",
		Severity: diag.SeverityError,
		Message:  "undefined variable \"" + name + "\"",
		Labels:   []diag.Label{{Path: pos.Path, Start: pos.Start, End: pos.End}},
	})
}

func (i *inspector) walkStatements(stmts ast.Statements) {
	for _, stmt := range stmts.Content {
		i.walkStatement(stmt)
	}
}

func (i *inspector) walkStatement(stmt ast.Statement) {
	switch stmt.Kind {
	case ast.StmtAssignLocal:
		i.walkExpr(stmt.Expression)
		i.declare(stmt.Name, stmt.Pos, false)
	case ast.StmtAssignGlobal:
		i.walkExpr(stmt.Expression)
	default:
		i.walkExpr(stmt.Expression)
	}
}

func (i *inspector) walkExpr(e ast.Expression) {
	switch e.Kind {
	case ast.ExprVariable:
		i.use(e.Name, e.Pos)
	case ast.ExprCode:
		i.pushScope()
		i.walkStatements(e.Code)
		i.popScope()
	case ast.ExprArray, ast.ExprConsumeableArray:
		for _, el := range e.Elements {
			i.walkExpr(el)
		}
	case ast.ExprUnaryCommand:
		switch strings.ToLower(e.Command) {
		case "private":
			i.declarePrivate(e.Right)
			return
		case "params", "param":
			if e.Right != nil {
				i.walkExpr(*e.Right)
			}
			i.declareParams(e.Right)
			return
		}
		if e.Right != nil {
			i.walkExpr(*e.Right)
		}
	case ast.ExprBinaryCommand:
		if e.Left != nil {
			i.walkExpr(*e.Left)
		}
		if strings.EqualFold(e.Command, "foreach") && e.Left != nil && e.Left.Kind == ast.ExprCode {
			// _x/_forEachIndex are available for the lifetime of the loop body
			// only; they're already in magicVars so no extra scoping needed.
		}
		if e.Right != nil {
			i.walkExpr(*e.Right)
		}
	}
}

// declarePrivate implements `private "_x"` / `private ["_x", "_y"]`
// (spec §4.6, reference VarSource::Private).
func (i *inspector) declarePrivate(right *ast.Expression) {
	if right == nil {
		return
	}
	switch right.Kind {
	case ast.ExprString:
		i.declare(right.Str, right.Pos, false)
	case ast.ExprArray, ast.ExprConsumeableArray:
		for _, el := range right.Elements {
			if el.Kind == ast.ExprString {
				i.declare(el.Str, el.Pos, false)
			}
		}
	}
}

// declareParams implements `params ["_a", ["_b", 1]]` / `param ["_a"]`
// (spec §4.6, reference VarSource::Params): a plain string element
// declares that name; a nested array's first element is the name for a
// `[name, default, ...]` descriptor.
func (i *inspector) declareParams(right *ast.Expression) {
	if right == nil {
		return
	}
	elements := right.Elements
	if right.Kind != ast.ExprArray && right.Kind != ast.ExprConsumeableArray {
		if right.Kind == ast.ExprString {
			i.declare(right.Str, right.Pos, false)
		}
		return
	}
	for _, el := range elements {
		switch el.Kind {
		case ast.ExprString:
			i.declare(el.Str, el.Pos, false)
		case ast.ExprArray, ast.ExprConsumeableArray:
			if len(el.Elements) > 0 && el.Elements[0].Kind == ast.ExprString {
				i.declare(el.Elements[0].Str, el.Elements[0].Pos, false)
			}
		}
	}
}
