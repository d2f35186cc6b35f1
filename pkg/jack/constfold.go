package jack

import (
	"strconv"

	"go.n2t.dev/toolchain/pkg/vm"
)

// FoldExpression attempts to evaluate 'expr' to a single 16-bit signed constant
// at compile time, using the same value encoding the lowerer uses for keyword
// constants (true = -1, false/null = 0). 'constants' is consulted for the
// Extended variant (a VarName with a recorded constant value, populated by
// folding the right-hand side of a 'let x = ...' where x is an int-typed
// class static) — a nil map simply never matches, so existing call sites
// that don't track static constants can pass nil. Returns ok=false as soon
// as any sub-term isn't foldable (an unrecorded variable reference, a
// subroutine call, a string literal, a comparison operator, ...) or a binary
// '/' would divide by zero — in both cases the caller falls back to emitting
// the expression as usual.
func FoldExpression(expr Expression, constants map[string]int16) (int16, bool) {
	switch e := expr.(type) {
	case LiteralExpr:
		return foldLiteral(e)

	case VarExpr:
		value, ok := constants[e.Var]
		return value, ok

	case UnaryExpr:
		rhs, ok := FoldExpression(e.Rhs, constants)
		if !ok {
			return 0, false
		}
		switch e.Type {
		case Minus:
			return -rhs, true
		case BoolNot:
			return ^rhs, true
		default:
			return 0, false
		}

	case BinaryExpr:
		lhs, ok := FoldExpression(e.Lhs, constants)
		if !ok {
			return 0, false
		}
		rhs, ok := FoldExpression(e.Rhs, constants)
		if !ok {
			return 0, false
		}

		switch e.Type {
		case Plus:
			return lhs + rhs, true
		case Minus:
			return lhs - rhs, true
		case Multiply:
			return lhs * rhs, true
		case Divide:
			if rhs == 0 {
				return 0, false
			}
			return lhs / rhs, true // Go's '/' on signed integers already truncates toward zero.
		case BoolAnd:
			return lhs & rhs, true
		case BoolOr:
			return lhs | rhs, true
		default:
			// Comparisons/equality produce a 0/-1 word the VM has to compute via
			// 'eq'/'lt'/'gt'; folding those here would duplicate the emitter's logic.
			return 0, false
		}

	default:
		return 0, false
	}
}

func foldLiteral(expr LiteralExpr) (int16, bool) {
	switch expr.Type.Main {
	case Int:
		value, err := strconv.ParseUint(expr.Value, 10, 16)
		if err != nil {
			return 0, false
		}
		return int16(value), true

	case Bool:
		if expr.Value == "true" {
			return -1, true
		}
		return 0, true

	case Object:
		if expr.Value == "null" {
			return 0, true
		}
		return 0, false

	default:
		return 0, false // Char/String literals, and 'this', are never foldable.
	}
}

// EmitConstant lowers an already-folded value to the 'push constant'/'neg' pair
// HandleLiteralExpr would have produced for an equivalent source literal.
func EmitConstant(value int16) []vm.Operation {
	if value < 0 {
		return []vm.Operation{
			vm.MemoryOp{Operation: vm.Push, Segment: vm.Constant, Offset: uint16(-int32(value))},
			vm.ArithmeticOp{Operation: vm.Neg},
		}
	}
	return []vm.Operation{vm.MemoryOp{Operation: vm.Push, Segment: vm.Constant, Offset: uint16(value)}}
}
