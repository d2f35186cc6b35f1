package asm

// ----------------------------------------------------------------------------
// Bootstrap

// Builds the whole-program bootstrap sequence: initialize the stack pointer to 256
// and call Sys.init with zero arguments. This is emitted exactly once per program,
// at offset 0, ahead of every module's lowered instructions (see the module lowering
// driver) — never once per module.
//
// Written directly against the Assembler primitives (rather than composed from a
// 'vm.FuncCallOp' lowered through pkg/vm) to avoid an asm -> vm -> asm import cycle;
// the call sequence mirrors what 'vm.Lowerer.handleFuncCallOp' would produce for
// "call Sys.init 0", except that the return label is named "Bootstrap$ret.0".
func Bootstrap() Program {
	const returnLabel = "Bootstrap$ret.0"

	program := Program{
		AInstruction{Location: "256"},
		CInstruction{Dest: "D", Comp: "A"},
		AInstruction{Location: "SP"},
		CInstruction{Dest: "M", Comp: "D"},
	}

	// call Sys.init 0
	program = append(program,
		AInstruction{Location: returnLabel},
		CInstruction{Dest: "D", Comp: "A"},
	)
	program = append(program, pushD()...)

	for _, segment := range []string{"LCL", "ARG", "THIS", "THAT"} {
		program = append(program,
			AInstruction{Location: segment},
			CInstruction{Dest: "D", Comp: "M"},
		)
		program = append(program, pushD()...)
	}

	program = append(program,
		// ARG = SP - 5 - 0
		AInstruction{Location: "5"},
		CInstruction{Dest: "D", Comp: "A"},
		AInstruction{Location: "SP"},
		CInstruction{Dest: "D", Comp: "M-D"},
		AInstruction{Location: "ARG"},
		CInstruction{Dest: "M", Comp: "D"},

		// LCL = SP
		AInstruction{Location: "SP"},
		CInstruction{Dest: "D", Comp: "M"},
		AInstruction{Location: "LCL"},
		CInstruction{Dest: "M", Comp: "D"},

		AInstruction{Location: "Sys.init"},
		CInstruction{Comp: "0", Jump: "JMP"},

		LabelDecl{Name: returnLabel},
	)

	return program
}

// Pushes the value currently in D onto the stack, mirroring the private helper of
// the same shape in pkg/vm's lowerer (duplicated here since asm cannot import vm).
func pushD() Program {
	return Program{
		AInstruction{Location: "SP"},
		CInstruction{Dest: "A", Comp: "M"},
		CInstruction{Dest: "M", Comp: "D"},
		AInstruction{Location: "SP"},
		CInstruction{Dest: "M", Comp: "M+1"},
	}
}
