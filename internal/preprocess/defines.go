package preprocess

import (
	"github.com/brettmayson/hemtt-core/internal/token"
)

// DefinitionKind tags the four shapes a macro Definition can take (§3
// Definition).
type DefinitionKind int

const (
	DefinitionUnit DefinitionKind = iota
	DefinitionValue
	DefinitionFunction
	DefinitionVoid
)

// Definition is a stored macro. Value and Function definitions carry their
// unexpanded body tokens; Function additionally carries its parameter
// names. Void marks the reserved built-ins (__LINE__, __FILE__, __EXEC,
// __EVAL): expand leaves such a name in place, and __LINE__/__FILE__ are
// substituted separately.
type Definition struct {
	Kind    DefinitionKind
	Params  []string
	Body    token.Stream
	Pos     token.Position
	BuiltIn bool
}

// frame is one level of the defines stack: either the global table of
// user/built-in macros, or an argument-binding frame pushed while expanding
// a function macro's body.
type frame map[string]*Definition

// Table is the preprocessor's definition store: a global frame plus a
// stack of argument frames, and a name-guard set used to block re-entrant
// expansion of a macro from within its own body (§4.1, §9).
type Table struct {
	global    frame
	argStack  []frame
	expanding map[string]bool
}

// NewTable creates an empty Table seeded with HEMTT's built-in placeholders.
func NewTable() *Table {
	t := &Table{global: make(frame), expanding: make(map[string]bool)}
	for _, name := range []string{"__LINE__", "__FILE__", "__EXEC", "__EVAL"} {
		t.global[name] = &Definition{Kind: DefinitionVoid, BuiltIn: true}
	}
	return t
}

// Lookup searches argument frames (innermost first) then the global frame.
func (t *Table) Lookup(name string) (*Definition, bool) {
	for i := len(t.argStack) - 1; i >= 0; i-- {
		if d, ok := t.argStack[i][name]; ok {
			return d, true
		}
	}
	d, ok := t.global[name]
	return d, ok
}

// DefineResult reports what happened when defining a macro, so the caller
// can turn "redefined" into a warning diagnostic (§3 Definition invariant).
type DefineResult int

const (
	DefineNew DefineResult = iota
	DefineRedefined
	DefineRejectedBuiltin
)

// Define installs a macro in the global frame. Redefining a built-in is
// rejected; redefining a user macro succeeds but is reported back as
// DefineRedefined so the caller can warn.
func (t *Table) Define(name string, def *Definition) DefineResult {
	if existing, ok := t.global[name]; ok {
		if existing.BuiltIn {
			return DefineRejectedBuiltin
		}
		t.global[name] = def
		return DefineRedefined
	}
	t.global[name] = def
	return DefineNew
}

// Undef removes a user macro. Undefining a built-in or an unknown name is a
// no-op (directives.go decides whether that warrants a diagnostic).
func (t *Table) Undef(name string) {
	if d, ok := t.global[name]; ok && d.BuiltIn {
		return
	}
	delete(t.global, name)
}

// PushArgs enters a new function-macro argument scope.
func (t *Table) PushArgs(f frame) { t.argStack = append(t.argStack, f) }

// PopArgs leaves the innermost argument scope.
func (t *Table) PopArgs() {
	if len(t.argStack) > 0 {
		t.argStack = t.argStack[:len(t.argStack)-1]
	}
}

// Enter marks `name` as currently expanding, returning false if it already
// is (the caller then leaves the name itself unexpanded rather than
// recurse — this is the name-guard described in §4.1/§9).
func (t *Table) Enter(name string) bool {
	if t.expanding[name] {
		return false
	}
	t.expanding[name] = true
	return true
}

// Leave clears the in-progress guard for `name`.
func (t *Table) Leave(name string) {
	delete(t.expanding, name)
}
