// Package optimizer implements the SQF optimizer pass (spec §4.4):
// constant folding over literal operands, and marking arrays that are
// safely consumable in place (`ExprConsumeableArray`, spec §3's
// "Invariant: ConsumeableArray appears only after the optimizer pass").
// Grounded on
// `original_source/libs/sqf/src/compiler/optimizer/mod.rs`'s recursive
// `Statements::optimize`/`Expression::optimize` walk and its specific
// per-command consumable-array rules (`params` consumes its array
// argument when every element is a literal default value rather than a
// `[name, default]` pair, `param` when its first element is;
// `positionCameraToWorld`/`random` always consume). Arithmetic/string-case
// folding is limited to the operators and unary named commands the
// reference source itself optimizes (`-` negation, `sqrt`,
// `toLower`/`toUpper` family, plus the binary operators
// `+ - * / ^ min max == != > < >= <=` and the logical `&& and || or`), not
// reimplemented as a general SQF interpreter.
package optimizer

import (
	"math"
	"strings"

	"github.com/brettmayson/hemtt-core/internal/sqf/ast"
	"github.com/brettmayson/hemtt-core/internal/token"
)

// Optimize returns an optimized copy of stmts.
func Optimize(stmts ast.Statements) ast.Statements {
	out := make([]ast.Statement, len(stmts.Content))
	for i, s := range stmts.Content {
		out[i] = optimizeStatement(s)
	}
	stmts.Content = out
	return stmts
}

func optimizeStatement(s ast.Statement) ast.Statement {
	s.Expression = optimizeExpr(s.Expression)
	return s
}

func optimizeExpr(e ast.Expression) ast.Expression {
	switch e.Kind {
	case ast.ExprCode:
		e.Code = Optimize(e.Code)
		return e

	case ast.ExprArray:
		elems := make([]ast.Expression, len(e.Elements))
		for i, el := range e.Elements {
			elems[i] = optimizeExpr(el)
		}
		e.Elements = elems
		return e

	case ast.ExprUnaryCommand:
		right := optimizeExpr(*e.Right)
		if folded, ok := foldUnary(e.Command, right); ok {
			return folded
		}
		if consumable, ok := consumableForUnary(e.Command, right); ok {
			right = consumable
		}
		e.Right = &right
		return e

	case ast.ExprBinaryCommand:
		left := optimizeExpr(*e.Left)
		right := optimizeExpr(*e.Right)
		if folded, ok := foldBinary(e.Command, left, right); ok {
			return folded
		}
		e.Left = &left
		e.Right = &right
		return e

	default:
		return e
	}
}

// foldUnary evaluates a known unary command against a literal operand,
// mirroring the reference's `op_uni_float`/`op_uni_string` helpers.
func foldUnary(cmd string, right ast.Expression) (ast.Expression, bool) {
	switch strings.ToLower(cmd) {
	case "-":
		if right.Kind == ast.ExprNumber {
			return numberExpr(-right.Number, right.Pos), true
		}
	case "sqrt":
		if right.Kind == ast.ExprNumber && right.Number >= 0 {
			return numberExpr(float32(math.Sqrt(float64(right.Number))), right.Pos), true
		}
	case "tolower", "toloweransi":
		if right.Kind == ast.ExprString {
			e := right
			e.Str = strings.ToLower(right.Str)
			return e, true
		}
	case "toupper", "toupperansi":
		if right.Kind == ast.ExprString {
			e := right
			e.Str = strings.ToUpper(right.Str)
			return e, true
		}
	}
	return ast.Expression{}, false
}

// foldBinary evaluates a known binary operator against two literal
// operands.
func foldBinary(cmd string, left, right ast.Expression) (ast.Expression, bool) {
	if left.Kind == ast.ExprNumber && right.Kind == ast.ExprNumber {
		l, r := left.Number, right.Number
		switch cmd {
		case "+":
			return numberExpr(l+r, left.Pos), true
		case "-":
			return numberExpr(l-r, left.Pos), true
		case "*":
			return numberExpr(l*r, left.Pos), true
		case "/":
			if r != 0 {
				return numberExpr(l/r, left.Pos), true
			}
		case "^":
			return numberExpr(float32(math.Pow(float64(l), float64(r))), left.Pos), true
		case "min":
			return numberExpr(float32(math.Min(float64(l), float64(r))), left.Pos), true
		case "max":
			return numberExpr(float32(math.Max(float64(l), float64(r))), left.Pos), true
		case "==":
			return boolExpr(l == r, left.Pos), true
		case "!=":
			return boolExpr(l != r, left.Pos), true
		case ">":
			return boolExpr(l > r, left.Pos), true
		case "<":
			return boolExpr(l < r, left.Pos), true
		case ">=":
			return boolExpr(l >= r, left.Pos), true
		case "<=":
			return boolExpr(l <= r, left.Pos), true
		}
	}
	if left.Kind == ast.ExprString && right.Kind == ast.ExprString {
		switch cmd {
		case "+":
			e := left
			e.Str = left.Str + right.Str
			return e, true
		case "==":
			return boolExpr(left.Str == right.Str, left.Pos), true
		case "!=":
			return boolExpr(left.Str != right.Str, left.Pos), true
		}
	}
	if left.Kind == ast.ExprBoolean && right.Kind == ast.ExprBoolean {
		switch strings.ToLower(cmd) {
		case "&&", "and":
			return boolExpr(left.Bool && right.Bool, left.Pos), true
		case "||", "or":
			return boolExpr(left.Bool || right.Bool, left.Pos), true
		}
	}
	return ast.Expression{}, false
}

// consumableForUnary marks the right-hand array of a handful of commands
// as an ExprConsumeableArray, per the reference's three cases: "params"
// consumes its array only when every element is a plain default value
// (not a `[name, default]`/`[name, default, valid...]` pair the runtime
// needs to inspect), "param" only when its first element is, while
// "positionCameraToWorld"/"random" unconditionally consume their array
// argument.
func consumableForUnary(cmd string, right ast.Expression) (ast.Expression, bool) {
	if right.Kind != ast.ExprArray {
		return ast.Expression{}, false
	}
	switch strings.ToLower(cmd) {
	case "params":
		if allDirectValues(right.Elements) {
			return toConsumeable(right), true
		}
	case "param":
		if len(right.Elements) > 0 && isDirectValue(right.Elements[0]) {
			return toConsumeable(right), true
		}
	case "positioncameratoworld", "random":
		return toConsumeable(right), true
	}
	return ast.Expression{}, false
}

// isDirectValue reports whether e is a plain value rather than a nested
// `[name, default, ...]` descriptor array — the reference's
// `is_not_array_default_value`.
func isDirectValue(e ast.Expression) bool {
	return e.Kind != ast.ExprArray
}

func allDirectValues(elems []ast.Expression) bool {
	for _, e := range elems {
		if !isDirectValue(e) {
			return false
		}
	}
	return true
}

func toConsumeable(e ast.Expression) ast.Expression {
	e.Kind = ast.ExprConsumeableArray
	return e
}

func numberExpr(v float32, pos token.Position) ast.Expression {
	return ast.Expression{Kind: ast.ExprNumber, Number: v, Pos: pos}
}

func boolExpr(v bool, pos token.Position) ast.Expression {
	return ast.Expression{Kind: ast.ExprBoolean, Bool: v, Pos: pos}
}
