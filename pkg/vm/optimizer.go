package vm

// ----------------------------------------------------------------------------
// Peephole Optimizer

// Runs a single left-to-right pass over a module with one-instruction lookahead,
// collapsing a handful of redundant instruction pairs emitted by the lowerer
// (double negation, and a goto immediately followed by its own target label).
//
// The pass is intentionally shallow: it looks only at the current and next
// instruction, consumes both on a match, otherwise emits the current one and
// advances by one. A label is also checked against the last emitted instruction,
// so a goto that a dropped 'not; not' pair leaves right before its own label is
// removed in the same pass. Running it twice over an already-optimized module is
// therefore a no-op.
func Optimize(program Program) Program {
	optimized := make(Program, len(program))
	for name, module := range program {
		optimized[name] = optimizeModule(module)
	}
	return optimized
}

func optimizeModule(module Module) Module {
	result := make(Module, 0, len(module))

	for i := 0; i < len(module); i++ {
		if i+1 < len(module) && isDoubleNegation(module[i], module[i+1]) {
			i++ // consume both 'not' instructions, emit neither
			continue
		}

		if i+1 < len(module) && isRedundantGoto(module[i], module[i+1]) {
			result = append(result, module[i+1]) // drop the goto, keep the label
			i++                                  // already emitted module[i+1], skip past it
			continue
		}

		if label, ok := module[i].(LabelDecl); ok && len(result) > 0 && isRedundantGoto(result[len(result)-1], label) {
			result[len(result)-1] = label // drop the goto already emitted right before its label
			continue
		}

		result = append(result, module[i])
	}

	return result
}

// Matches "not ; not", which cancels out to a no-op on the stack top.
func isDoubleNegation(a, b Operation) bool {
	first, ok := a.(ArithmeticOp)
	if !ok || first.Operation != Not {
		return false
	}
	second, ok := b.(ArithmeticOp)
	return ok && second.Operation == Not
}

// Matches "goto L ; label L", where the jump is immediately followed by its own
// target — the jump never changes control flow, so it can be dropped.
func isRedundantGoto(a, b Operation) bool {
	jump, ok := a.(GotoOp)
	if !ok || jump.Jump != Unconditional {
		return false
	}
	label, ok := b.(LabelDecl)
	return ok && label.Name == jump.Label
}
