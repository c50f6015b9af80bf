// Package ast implements the SQF abstract syntax tree (spec §3 "SQF AST")
// and the command database the parser and later analysis passes consult
// for arity/precedence (spec §4.3's "produce an AST with precedence-
// correct unary/binary/nular command expressions" and §4.6's "Each
// command consults the command database to derive (cmd_return_set,
// expected_lhs, expected_rhs)"). Grounded on
// `original_source/libs/sqf/src/lib.rs`'s Statement/Expression shape,
// translated from its Arc<str>/Range<usize> fields into plain strings and
// `token.Position` spans (Go's GC removes the need for Arc sharing, noted
// the way `internal/token` already notes it for the lexer's own tokens).
package ast

import "github.com/brettmayson/hemtt-core/internal/token"

// Statements is a code block: an ordered sequence of Statement plus the
// verbatim source text of that block (SQF surfaces this text in runtime
// error messages, so it is preserved even though the AST doesn't need it
// for evaluation).
type Statements struct {
	Content []Statement
	Source  string
	Pos     token.Position
}

// StatementKind distinguishes the three statement forms (spec §3 "SQF
// AST").
type StatementKind int

const (
	StmtAssignGlobal StatementKind = iota
	StmtAssignLocal
	StmtExpression
)

// Statement is one semicolon-terminated unit inside a Statements block.
type Statement struct {
	Kind       StatementKind
	Name       string // set for StmtAssignGlobal/StmtAssignLocal
	Expression Expression
	Pos        token.Position
}

// ExpressionKind tags which variant of Expression is populated.
type ExpressionKind int

const (
	ExprCode ExpressionKind = iota
	ExprString
	ExprNumber
	ExprBoolean
	ExprArray
	ExprConsumeableArray // optimizer-only, per spec §3 invariant
	ExprNularCommand
	ExprUnaryCommand
	ExprBinaryCommand
	ExprVariable
)

// StringQuote records which quote character wrapped a string literal, so
// the serializer/formatter can round-trip it.
type StringQuote int

const (
	QuoteDouble StringQuote = iota
	QuoteSingle
)

// Expression is a tagged union over every SQF expression form. Exactly
// the fields relevant to Kind are populated; this mirrors the Rust enum
// from the grounding source as a single flat struct (the idiomatic Go
// shape `internal/config.Value`/`Array` already established in this
// tree) rather than an interface-per-variant hierarchy.
type Expression struct {
	Kind ExpressionKind

	Code Statements // ExprCode

	Str   string      // ExprString: the unescaped value
	Quote StringQuote // ExprString

	Number float32 // ExprNumber

	Bool bool // ExprBoolean

	Elements []Expression // ExprArray / ExprConsumeableArray

	Command string // ExprNularCommand / ExprUnaryCommand / ExprBinaryCommand, original source casing

	Right *Expression // ExprUnaryCommand (operand) / ExprBinaryCommand (rhs)
	Left  *Expression // ExprBinaryCommand (lhs)

	Name string // ExprVariable

	Pos token.Position
}

// IsBinary reports whether this expression is itself a BinaryCommand,
// used by source-reconstruction to decide whether to parenthesize it as
// an operand of another binary command.
func (e Expression) IsBinary() bool {
	return e.Kind == ExprBinaryCommand
}

// CommandArity classifies a command's call shape, used both by the
// parser (to decide what to expect around an identifier) and by the
// database below.
type CommandArity int

const (
	ArityNular CommandArity = iota
	ArityUnary
	ArityBinary
)

// GameValueKind enumerates the lattice spec §4.6 ("GameValue lattice")
// describes: Anything (top), Nothing, Number, Boolean, String, Array,
// Code. Used for the command database's expected/returned type sets.
type GameValueKind int

const (
	ValAnything GameValueKind = iota
	ValNothing
	ValNumber
	ValBoolean
	ValString
	ValArray
	ValCode
)

// CommandInfo is one command database entry: its arity, precedence (for
// binary commands; unary commands all bind tighter than any binary
// precedence level per SQF grammar), and expected/returned type sets.
type CommandInfo struct {
	Name       string
	Arity      CommandArity
	Precedence int // binary commands only; higher binds tighter
	Returns    []GameValueKind
	ExpectLHS  []GameValueKind // binary only
	ExpectRHS  []GameValueKind // unary/binary
}

// Database is a lookup table from lowercase command name to CommandInfo,
// consulted by the parser for arity and precedence; the analyzer's lints
// receive it but do not read it. It is intentionally a representative
// seed of real SQF commands across every precedence tier rather than a
// verbatim transcription of the full Arma 3 command wiki (tens of
// thousands of entries, far outside this component's scope) — enough
// for every construct spec §8's testable properties exercise, and
// structured so more entries can be added without touching the parser.
type Database struct {
	commands map[string]CommandInfo
}

// NewDatabase builds the seeded command database.
func NewDatabase() *Database {
	d := &Database{commands: make(map[string]CommandInfo, len(seedCommands))}
	for _, c := range seedCommands {
		d.commands[lower(c.Name)] = c
	}
	return d
}

// Lookup returns a command's info and whether it is known at all. An
// unknown identifier used as a command (not a local/global variable) is
// still parsed as a NularCommand by the parser; typing passes treat an
// absent Database entry as "unknown, assume Anything".
func (d *Database) Lookup(name string) (CommandInfo, bool) {
	c, ok := d.commands[lower(name)]
	return c, ok
}

// BinaryPrecedence returns a binary command's precedence tier, or the
// lowest tier (0, "else"-level) if the name isn't a known binary command
// — matching the reference parser's behavior of treating any
// non-reserved word used in binary position as a user-defined binary
// command at the lowest precedence.
func (d *Database) BinaryPrecedence(name string) int {
	if c, ok := d.Lookup(name); ok && c.Arity == ArityBinary {
		return c.Precedence
	}
	return 0
}

// IsKnownUnary/IsKnownBinary report whether name is a seeded command of
// that arity. The parser uses them to decide whether an identifier is a
// prefix unary command or a binary operator.
func (d *Database) IsKnownUnary(name string) bool {
	c, ok := d.Lookup(name)
	return ok && c.Arity == ArityUnary
}

func (d *Database) IsKnownBinary(name string) bool {
	c, ok := d.Lookup(name)
	return ok && c.Arity == ArityBinary
}

func lower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

// Precedence tiers, highest-binds-tightest, matching the canonical SQF
// operator precedence table (select/exponent bind tightest, "else"
// binds loosest).
const (
	PrecSelect  = 6 // '#'
	PrecPow     = 5 // '^'
	PrecMulDiv  = 4 // * / % mod atan2
	PrecAddSub  = 3 // + - min max
	PrecCompare = 2 // == != > < >= <= >>
	PrecAndOr   = 1 // && and || or
	PrecElse    = 0 // else
)

var seedCommands = []CommandInfo{
	// Nular
	{Name: "true", Arity: ArityNular, Returns: []GameValueKind{ValBoolean}},
	{Name: "false", Arity: ArityNular, Returns: []GameValueKind{ValBoolean}},
	{Name: "player", Arity: ArityNular, Returns: []GameValueKind{ValAnything}},
	{Name: "west", Arity: ArityNular, Returns: []GameValueKind{ValAnything}},
	{Name: "east", Arity: ArityNular, Returns: []GameValueKind{ValAnything}},
	{Name: "diag_log", Arity: ArityNular, Returns: []GameValueKind{ValNothing}},

	// Unary
	{Name: "hint", Arity: ArityUnary, Returns: []GameValueKind{ValNothing}, ExpectRHS: []GameValueKind{ValString}},
	{Name: "str", Arity: ArityUnary, Returns: []GameValueKind{ValString}, ExpectRHS: []GameValueKind{ValAnything}},
	{Name: "count", Arity: ArityUnary, Returns: []GameValueKind{ValNumber}, ExpectRHS: []GameValueKind{ValArray}},
	{Name: "not", Arity: ArityUnary, Returns: []GameValueKind{ValBoolean}, ExpectRHS: []GameValueKind{ValBoolean}},
	{Name: "call", Arity: ArityUnary, Returns: []GameValueKind{ValAnything}, ExpectRHS: []GameValueKind{ValCode, ValArray}},
	{Name: "private", Arity: ArityUnary, Returns: []GameValueKind{ValNothing}, ExpectRHS: []GameValueKind{ValString, ValArray}},
	{Name: "exitwith", Arity: ArityUnary, Returns: []GameValueKind{ValNothing}, ExpectRHS: []GameValueKind{ValCode}},
	{Name: "waituntil", Arity: ArityUnary, Returns: []GameValueKind{ValNothing}, ExpectRHS: []GameValueKind{ValCode}},
	{Name: "isequalto", Arity: ArityBinary, Precedence: PrecCompare, Returns: []GameValueKind{ValBoolean}, ExpectRHS: []GameValueKind{ValArray}},
	{Name: "isnotequalto", Arity: ArityBinary, Precedence: PrecCompare, Returns: []GameValueKind{ValBoolean}, ExpectRHS: []GameValueKind{ValArray}},
	{Name: "params", Arity: ArityUnary, Returns: []GameValueKind{ValBoolean}, ExpectRHS: []GameValueKind{ValArray}},
	{Name: "param", Arity: ArityUnary, Returns: []GameValueKind{ValBoolean}, ExpectRHS: []GameValueKind{ValArray}},
	{Name: "sqrt", Arity: ArityUnary, Returns: []GameValueKind{ValNumber}, ExpectRHS: []GameValueKind{ValNumber}},
	{Name: "toLower", Arity: ArityUnary, Returns: []GameValueKind{ValString}, ExpectRHS: []GameValueKind{ValString}},
	{Name: "toUpper", Arity: ArityUnary, Returns: []GameValueKind{ValString}, ExpectRHS: []GameValueKind{ValString}},
	{Name: "positionCameraToWorld", Arity: ArityUnary, Returns: []GameValueKind{ValArray}, ExpectRHS: []GameValueKind{ValArray}},
	{Name: "random", Arity: ArityUnary, Returns: []GameValueKind{ValNumber}, ExpectRHS: []GameValueKind{ValNumber, ValArray}},
	{Name: "if", Arity: ArityUnary, Returns: []GameValueKind{ValAnything}, ExpectRHS: []GameValueKind{ValBoolean}},
	{Name: "foreach", Arity: ArityBinary, Returns: []GameValueKind{ValAnything},
		ExpectLHS: []GameValueKind{ValCode}, ExpectRHS: []GameValueKind{ValArray}, Precedence: PrecAndOr},

	// Binary — arithmetic.
	{Name: "+", Arity: ArityBinary, Precedence: PrecAddSub, Returns: []GameValueKind{ValAnything}},
	{Name: "-", Arity: ArityBinary, Precedence: PrecAddSub, Returns: []GameValueKind{ValAnything}},
	{Name: "min", Arity: ArityBinary, Precedence: PrecAddSub, Returns: []GameValueKind{ValNumber}},
	{Name: "max", Arity: ArityBinary, Precedence: PrecAddSub, Returns: []GameValueKind{ValNumber}},
	{Name: "*", Arity: ArityBinary, Precedence: PrecMulDiv, Returns: []GameValueKind{ValNumber}},
	{Name: "/", Arity: ArityBinary, Precedence: PrecMulDiv, Returns: []GameValueKind{ValNumber}},
	{Name: "%", Arity: ArityBinary, Precedence: PrecMulDiv, Returns: []GameValueKind{ValNumber}},
	{Name: "mod", Arity: ArityBinary, Precedence: PrecMulDiv, Returns: []GameValueKind{ValNumber}},
	{Name: "atan2", Arity: ArityBinary, Precedence: PrecMulDiv, Returns: []GameValueKind{ValNumber}},
	{Name: "^", Arity: ArityBinary, Precedence: PrecPow, Returns: []GameValueKind{ValNumber}},
	{Name: "#", Arity: ArityBinary, Precedence: PrecSelect, Returns: []GameValueKind{ValAnything}},

	// Binary — comparison.
	{Name: "==", Arity: ArityBinary, Precedence: PrecCompare, Returns: []GameValueKind{ValBoolean}},
	{Name: "!=", Arity: ArityBinary, Precedence: PrecCompare, Returns: []GameValueKind{ValBoolean}},
	{Name: ">", Arity: ArityBinary, Precedence: PrecCompare, Returns: []GameValueKind{ValBoolean}},
	{Name: "<", Arity: ArityBinary, Precedence: PrecCompare, Returns: []GameValueKind{ValBoolean}},
	{Name: ">=", Arity: ArityBinary, Precedence: PrecCompare, Returns: []GameValueKind{ValBoolean}},
	{Name: "<=", Arity: ArityBinary, Precedence: PrecCompare, Returns: []GameValueKind{ValBoolean}},
	{Name: ">>", Arity: ArityBinary, Precedence: PrecCompare, Returns: []GameValueKind{ValAnything}},

	// Binary — logical.
	{Name: "&&", Arity: ArityBinary, Precedence: PrecAndOr, Returns: []GameValueKind{ValBoolean}},
	{Name: "and", Arity: ArityBinary, Precedence: PrecAndOr, Returns: []GameValueKind{ValBoolean}},
	{Name: "||", Arity: ArityBinary, Precedence: PrecAndOr, Returns: []GameValueKind{ValBoolean}},
	{Name: "or", Arity: ArityBinary, Precedence: PrecAndOr, Returns: []GameValueKind{ValBoolean}},

	// Binary — control flow / else.
	{Name: "else", Arity: ArityBinary, Precedence: PrecElse, Returns: []GameValueKind{ValCode}},
	{Name: "then", Arity: ArityBinary, Precedence: PrecElse, Returns: []GameValueKind{ValAnything}},

	// Binary — assignment-adjacent array ops (spec §4.6's "invalidate the
	// lvalue back to generic array" commands).
	{Name: "set", Arity: ArityBinary, Precedence: PrecAndOr, Returns: []GameValueKind{ValNothing}},
	{Name: "pushback", Arity: ArityBinary, Precedence: PrecAndOr, Returns: []GameValueKind{ValNumber}},
	{Name: "append", Arity: ArityBinary, Precedence: PrecAndOr, Returns: []GameValueKind{ValNothing}},
	{Name: "resize", Arity: ArityBinary, Precedence: PrecAndOr, Returns: []GameValueKind{ValNothing}},

	// Event handlers (spec §4.6 event-handler-validity lint's subjects).
	{Name: "addeventhandler", Arity: ArityBinary, Precedence: PrecAndOr, Returns: []GameValueKind{ValNumber}},
	{Name: "addmpeventhandler", Arity: ArityBinary, Precedence: PrecAndOr, Returns: []GameValueKind{ValNumber}},
	{Name: "ctrladdeventhandler", Arity: ArityBinary, Precedence: PrecAndOr, Returns: []GameValueKind{ValNumber}},
	{Name: "displayaddeventhandler", Arity: ArityBinary, Precedence: PrecAndOr, Returns: []GameValueKind{ValNumber}},
}
