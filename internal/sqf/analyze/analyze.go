// Package analyze implements HEMTT's static SQF analyzer (spec §4.6): a
// scope-aware variable inspector plus a small pluggable lint framework.
// Grounded on `original_source/libs/sqf/src/analyze/inspector/mod.rs`
// (VarSource/VarHolder/Stack/ScriptScope/Inspector) and
// `.../analyze/lints/s02_event_handlers.rs` (the Lint trait shape:
// ident/sort/doc_ident/description/documentation/default_config/runners).
//
// The reference inspector is a full abstract interpreter over a
// GameValue lattice (possible value sets per variable, command return
// typing, orphan-scope re-evaluation of unused code blocks, NilSource
// tracking for "poison" values). This package deliberately narrows that
// scope: it tracks variable *presence* (assigned/used/private) per
// scope rather than possible value sets, dropping GameValue typing,
// orphan-scope re-evaluation, and command-argument type checking. This
// is recorded as an Open Question decision in DESIGN.md. What survives
// — undefined and unused variable diagnostics, plus a
// family of independent lints consulting the same Statements tree — is
// enough to exercise every construct spec §8 names for this component.
package analyze

import (
	"sort"

	"github.com/brettmayson/hemtt-core/internal/diag"
	"github.com/brettmayson/hemtt-core/internal/sqf/ast"
)

// Lint is implemented by every check in this package, mirroring the
// reference's `Lint<LintData>` trait: stable identity, ordering,
// documentation, and default severity, plus the function that actually
// runs it over a parsed script.
type Lint interface {
	Ident() string
	Sort() uint32
	DocIdent() string
	Description() string
	Documentation() string
	DefaultSeverity() diag.Severity
	Run(stmts ast.Statements, db *ast.Database) []*diag.Diagnostic
}

// DefaultLints returns every built-in lint, ordered by Sort().
func DefaultLints() []Lint {
	return []Lint{
		scopeLint{},
		eventUnknownLint{},
		eventIncorrectCommandLint{},
		compareArrayLint{},
	}
}

// Run executes every lint in lints against stmts and returns their
// combined diagnostics, sorted by each lint's Sort() tier (matching the
// reference's per-family `sort()` ordering so output is stable).
func Run(stmts ast.Statements, db *ast.Database, lints []Lint) []*diag.Diagnostic {
	ordered := append([]Lint(nil), lints...)
	sort.SliceStable(ordered, func(a, b int) bool { return ordered[a].Sort() < ordered[b].Sort() })
	var out []*diag.Diagnostic
	for _, l := range ordered {
		out = append(out, l.Run(stmts, db)...)
	}
	return out
}
