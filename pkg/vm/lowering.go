package vm

import (
	"fmt"
	"sort"

	"go.n2t.dev/toolchain/pkg/asm"
)

// Named base-pointer locations for the four pointer-backed segments.
var segmentBase = map[SegmentType]string{
	Local:    "LCL",
	Argument: "ARG",
	This:     "THIS",
	That:     "THAT",
}

// ----------------------------------------------------------------------------
// Vm Lowerer

// The Lowerer takes a typed 'vm.Program' (one or more modules, each a flat list of
// VM operations) and produces its 'asm.Program' counterpart, following the templates
// in the assembly emitter: every segment's push/pop, every arithmetic op, control
// flow, and the full call/return calling convention.
//
// Modules are visited in sorted name order so that label suffixes (and therefore the
// generated assembly itself) are reproducible across runs of the same input.
type Lowerer struct {
	program    Program
	cmdIndex   int // Running command index, for EQ/GT/LT label uniqueness
	callSeqNum int // Running counter for call-site return label uniqueness
}

// Initializes and returns to the caller a brand new 'Lowerer' struct.
func NewLowerer(p Program) Lowerer {
	return Lowerer{program: p}
}

// Lowers every module of the program into a single, flat 'asm.Program', in sorted
// module-name order, prefixed with nothing (bootstrap is the caller's responsibility,
// see asm.Bootstrap, since it is emitted once per program rather than per module).
func (l *Lowerer) Lower() (asm.Program, error) {
	names := make([]string, 0, len(l.program))
	for name := range l.program {
		names = append(names, name)
	}
	sort.Strings(names)

	program := asm.Program{}
	for _, name := range names {
		lowered, err := l.lowerModule(name, l.program[name])
		if err != nil {
			return nil, fmt.Errorf("module '%s': %w", name, err)
		}
		program = append(program, lowered...)
	}

	return program, nil
}

func (l *Lowerer) lowerModule(name string, module Module) (asm.Program, error) {
	program := asm.Program{}

	for _, operation := range module {
		var lowered asm.Program
		var err error

		switch op := operation.(type) {
		case MemoryOp:
			lowered, err = l.handleMemoryOp(name, op)
		case ArithmeticOp:
			lowered, err = l.handleArithmeticOp(op)
		case LabelDecl:
			lowered, err = l.handleLabelDecl(op)
		case GotoOp:
			lowered, err = l.handleGotoOp(op)
		case FuncDecl:
			lowered, err = l.handleFuncDecl(op)
		case FuncCallOp:
			lowered, err = l.handleFuncCallOp(op)
		case ReturnOp:
			lowered, err = l.handleReturnOp(op)
		default:
			err = fmt.Errorf("unrecognized operation %T", operation)
		}

		if err != nil {
			return nil, err
		}

		l.cmdIndex++
		program = append(program, lowered...)
	}

	return program, nil
}

// ----------------------------------------------------------------------------
// Stack push/pop helpers

// Appends the instructions that push the value currently in D onto the stack.
func pushD() asm.Program {
	return asm.Program{
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "A", Comp: "M"},
		asm.CInstruction{Dest: "M", Comp: "D"},
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "M", Comp: "M+1"},
	}
}

// Appends the instructions that pop the stack top into D.
func popD() asm.Program {
	return asm.Program{
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "AM", Comp: "M-1"},
		asm.CInstruction{Dest: "D", Comp: "M"},
	}
}

// Specialized function to convert a 'MemoryOp' operation to its 'asm.Program' counterpart.
func (l *Lowerer) handleMemoryOp(module string, op MemoryOp) (asm.Program, error) {
	switch op.Operation {
	case Push:
		return l.handlePush(module, op)
	case Pop:
		return l.handlePop(module, op)
	default:
		return nil, fmt.Errorf("unrecognized OperationType '%s'", op.Operation)
	}
}

func (l *Lowerer) handlePush(module string, op MemoryOp) (asm.Program, error) {
	switch op.Segment {
	case Constant:
		program := asm.Program{
			asm.AInstruction{Location: fmt.Sprint(op.Offset)},
			asm.CInstruction{Dest: "D", Comp: "A"},
		}
		return append(program, pushD()...), nil

	case Local, Argument, This, That:
		program := asm.Program{
			asm.AInstruction{Location: fmt.Sprint(op.Offset)},
			asm.CInstruction{Dest: "D", Comp: "A"},
			asm.AInstruction{Location: segmentBase[op.Segment]},
			asm.CInstruction{Dest: "A", Comp: "D+M"},
			asm.CInstruction{Dest: "D", Comp: "M"},
		}
		return append(program, pushD()...), nil

	case Temp:
		if op.Offset > 7 {
			return nil, fmt.Errorf("invalid 'temp' offset, got %d", op.Offset)
		}
		program := asm.Program{
			asm.AInstruction{Location: fmt.Sprint(op.Offset)},
			asm.CInstruction{Dest: "D", Comp: "A"},
			asm.AInstruction{Location: "5"},
			asm.CInstruction{Dest: "A", Comp: "D+A"},
			asm.CInstruction{Dest: "D", Comp: "M"},
		}
		return append(program, pushD()...), nil

	case Pointer:
		if op.Offset > 1 {
			return nil, fmt.Errorf("invalid 'pointer' offset, got %d", op.Offset)
		}
		target := "THIS"
		if op.Offset == 1 {
			target = "THAT"
		}
		program := asm.Program{
			asm.AInstruction{Location: target},
			asm.CInstruction{Dest: "D", Comp: "M"},
		}
		return append(program, pushD()...), nil

	case Static:
		program := asm.Program{
			asm.AInstruction{Location: fmt.Sprintf("%s.%d", module, op.Offset)},
			asm.CInstruction{Dest: "D", Comp: "M"},
		}
		return append(program, pushD()...), nil

	default:
		return nil, fmt.Errorf("unrecognized SegmentType '%s'", op.Segment)
	}
}

func (l *Lowerer) handlePop(module string, op MemoryOp) (asm.Program, error) {
	switch op.Segment {
	case Constant:
		return nil, fmt.Errorf("cannot 'pop' into the 'constant' segment")

	case Local, Argument, This, That:
		program := asm.Program{
			asm.AInstruction{Location: fmt.Sprint(op.Offset)},
			asm.CInstruction{Dest: "D", Comp: "A"},
			asm.AInstruction{Location: segmentBase[op.Segment]},
			asm.CInstruction{Dest: "D", Comp: "D+M"},
			asm.AInstruction{Location: "R13"},
			asm.CInstruction{Dest: "M", Comp: "D"},
		}
		program = append(program, popD()...)
		return append(program,
			asm.AInstruction{Location: "R13"},
			asm.CInstruction{Dest: "A", Comp: "M"},
			asm.CInstruction{Dest: "M", Comp: "D"},
		), nil

	case Temp:
		if op.Offset > 7 {
			return nil, fmt.Errorf("invalid 'temp' offset, got %d", op.Offset)
		}
		program := asm.Program{
			asm.AInstruction{Location: fmt.Sprint(op.Offset)},
			asm.CInstruction{Dest: "D", Comp: "A"},
			asm.AInstruction{Location: "5"},
			asm.CInstruction{Dest: "D", Comp: "D+A"},
			asm.AInstruction{Location: "R13"},
			asm.CInstruction{Dest: "M", Comp: "D"},
		}
		program = append(program, popD()...)
		return append(program,
			asm.AInstruction{Location: "R13"},
			asm.CInstruction{Dest: "A", Comp: "M"},
			asm.CInstruction{Dest: "M", Comp: "D"},
		), nil

	case Pointer:
		if op.Offset > 1 {
			return nil, fmt.Errorf("invalid 'pointer' offset, got %d", op.Offset)
		}
		target := "THIS"
		if op.Offset == 1 {
			target = "THAT"
		}
		program := popD()
		return append(program,
			asm.AInstruction{Location: target},
			asm.CInstruction{Dest: "M", Comp: "D"},
		), nil

	case Static:
		program := popD()
		return append(program,
			asm.AInstruction{Location: fmt.Sprintf("%s.%d", module, op.Offset)},
			asm.CInstruction{Dest: "M", Comp: "D"},
		), nil

	default:
		return nil, fmt.Errorf("unrecognized SegmentType '%s'", op.Segment)
	}
}

// Specialized function to convert an 'ArithmeticOp' operation to its 'asm.Program' counterpart.
func (l *Lowerer) handleArithmeticOp(op ArithmeticOp) (asm.Program, error) {
	switch op.Operation {
	case Add:
		return binaryOp("D+M"), nil
	case Sub:
		return binaryOp("M-D"), nil
	case And:
		return binaryOp("D&M"), nil
	case Or:
		return binaryOp("D|M"), nil

	case Neg:
		return unaryOp("-M"), nil
	case Not:
		return unaryOp("!M"), nil

	case Eq:
		return l.comparisonOp("JEQ", "EQ"), nil
	case Gt:
		return l.comparisonOp("JGT", "JGT"), nil
	case Lt:
		return l.comparisonOp("JLT", "JLT"), nil

	default:
		return nil, fmt.Errorf("unrecognized ArithOpType '%s'", op.Operation)
	}
}

// add/sub/and/or: pop two operands, combine with 'comp' (which references the
// second-popped operand as M and the first-popped as D), push the single result.
func binaryOp(comp string) asm.Program {
	return asm.Program{
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "AM", Comp: "M-1"},
		asm.CInstruction{Dest: "D", Comp: "M"},
		asm.CInstruction{Dest: "A", Comp: "A-1"},
		asm.CInstruction{Dest: "M", Comp: comp},
	}
}

// neg/not: mutate the stack top in place, stack depth is unchanged.
func unaryOp(comp string) asm.Program {
	return asm.Program{
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "A", Comp: "M-1"},
		asm.CInstruction{Dest: "M", Comp: comp},
	}
}

// eq/gt/lt: subtract the two operands and branch on 'jump', pushing -1 (true) or
// 0 (false) in place of the two consumed operands. Labels are qualified by the
// running command index so that repeated comparisons in a program never collide.
func (l *Lowerer) comparisonOp(jump, prefix string) asm.Program {
	trueLabel := fmt.Sprintf("%s_LABEL_%d", prefix, l.cmdIndex)
	contLabel := fmt.Sprintf("%s_LABEL_%d_CONT", prefix, l.cmdIndex)

	return asm.Program{
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "AM", Comp: "M-1"},
		asm.CInstruction{Dest: "D", Comp: "M"},
		asm.CInstruction{Dest: "A", Comp: "A-1"},
		asm.CInstruction{Dest: "D", Comp: "M-D"},

		asm.AInstruction{Location: trueLabel},
		asm.CInstruction{Comp: "D", Jump: jump},

		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "A", Comp: "M-1"},
		asm.CInstruction{Dest: "M", Comp: "0"},
		asm.AInstruction{Location: contLabel},
		asm.CInstruction{Comp: "0", Jump: "JMP"},

		asm.LabelDecl{Name: trueLabel},
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "A", Comp: "M-1"},
		asm.CInstruction{Dest: "M", Comp: "-1"},

		asm.LabelDecl{Name: contLabel},
	}
}

// ----------------------------------------------------------------------------
// Control flow & functions

func (Lowerer) handleLabelDecl(op LabelDecl) (asm.Program, error) {
	if op.Name == "" {
		return nil, fmt.Errorf("unable to lower empty label declaration")
	}
	return asm.Program{asm.LabelDecl{Name: op.Name}}, nil
}

func (Lowerer) handleGotoOp(op GotoOp) (asm.Program, error) {
	if op.Label == "" {
		return nil, fmt.Errorf("unable to lower jump with empty label")
	}

	if op.Jump == Unconditional {
		return asm.Program{
			asm.AInstruction{Location: op.Label},
			asm.CInstruction{Comp: "0", Jump: "JMP"},
		}, nil
	}

	program := popD()
	return append(program,
		asm.AInstruction{Location: op.Label},
		asm.CInstruction{Comp: "D", Jump: "JNE"},
	), nil
}

func (Lowerer) handleFuncDecl(op FuncDecl) (asm.Program, error) {
	if op.Name == "" {
		return nil, fmt.Errorf("unable to lower function declaration with empty name")
	}

	program := asm.Program{asm.LabelDecl{Name: op.Name}}
	for i := uint8(0); i < op.NLocal; i++ {
		program = append(program,
			asm.AInstruction{Location: "0"},
			asm.CInstruction{Dest: "D", Comp: "A"},
		)
		program = append(program, pushD()...)
	}
	return program, nil
}

func (l *Lowerer) handleFuncCallOp(op FuncCallOp) (asm.Program, error) {
	if op.Name == "" {
		return nil, fmt.Errorf("unable to lower function call with empty name")
	}

	returnLabel := fmt.Sprintf("%s$ret.%d", op.Name, l.callSeqNum)
	l.callSeqNum++

	program := asm.Program{
		asm.AInstruction{Location: returnLabel},
		asm.CInstruction{Dest: "D", Comp: "A"},
	}
	program = append(program, pushD()...)

	for _, segment := range []string{"LCL", "ARG", "THIS", "THAT"} {
		program = append(program,
			asm.AInstruction{Location: segment},
			asm.CInstruction{Dest: "D", Comp: "M"},
		)
		program = append(program, pushD()...)
	}

	program = append(program,
		asm.AInstruction{Location: fmt.Sprint(int(op.NArgs) + 5)},
		asm.CInstruction{Dest: "D", Comp: "A"},
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "D", Comp: "M-D"},
		asm.AInstruction{Location: "ARG"},
		asm.CInstruction{Dest: "M", Comp: "D"},

		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "D", Comp: "M"},
		asm.AInstruction{Location: "LCL"},
		asm.CInstruction{Dest: "M", Comp: "D"},

		asm.AInstruction{Location: op.Name},
		asm.CInstruction{Comp: "0", Jump: "JMP"},

		asm.LabelDecl{Name: returnLabel},
	)

	return program, nil
}

// returnFrameOffset loads D = *(R14 - n), i.e. the value n slots below endFrame.
func returnFrameOffset(n int) asm.Program {
	return asm.Program{
		asm.AInstruction{Location: "R14"},
		asm.CInstruction{Dest: "D", Comp: "M"},
		asm.AInstruction{Location: fmt.Sprint(n)},
		asm.CInstruction{Dest: "A", Comp: "D-A"},
		asm.CInstruction{Dest: "D", Comp: "M"},
	}
}

func (Lowerer) handleReturnOp(ReturnOp) (asm.Program, error) {
	program := asm.Program{
		// endFrame (R14) = LCL
		asm.AInstruction{Location: "LCL"},
		asm.CInstruction{Dest: "D", Comp: "M"},
		asm.AInstruction{Location: "R14"},
		asm.CInstruction{Dest: "M", Comp: "D"},

		// returnValue (R15) = stack top, read before SP/ARG are touched
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "A", Comp: "M-1"},
		asm.CInstruction{Dest: "D", Comp: "M"},
		asm.AInstruction{Location: "R15"},
		asm.CInstruction{Dest: "M", Comp: "D"},
	}

	// Stash the return address *(endFrame-5) in R13 before *ARG is written: with zero
	// arguments ARG points at that very slot, so the write below overwrites it.
	program = append(program, returnFrameOffset(5)...)
	program = append(program, asm.AInstruction{Location: "R13"}, asm.CInstruction{Dest: "M", Comp: "D"})

	program = append(program,
		// SP = ARG + 1 (reclaim the caller's argument slots)
		asm.AInstruction{Location: "ARG"},
		asm.CInstruction{Dest: "D", Comp: "M"},
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "M", Comp: "D+1"},

		// *ARG = returnValue
		asm.AInstruction{Location: "R15"},
		asm.CInstruction{Dest: "D", Comp: "M"},
		asm.AInstruction{Location: "ARG"},
		asm.CInstruction{Dest: "A", Comp: "M"},
		asm.CInstruction{Dest: "M", Comp: "D"},
	)

	program = append(program, returnFrameOffset(1)...)
	program = append(program, asm.AInstruction{Location: "THAT"}, asm.CInstruction{Dest: "M", Comp: "D"})

	program = append(program, returnFrameOffset(2)...)
	program = append(program, asm.AInstruction{Location: "THIS"}, asm.CInstruction{Dest: "M", Comp: "D"})

	program = append(program, returnFrameOffset(3)...)
	program = append(program, asm.AInstruction{Location: "ARG"}, asm.CInstruction{Dest: "M", Comp: "D"})

	program = append(program, returnFrameOffset(4)...)
	program = append(program, asm.AInstruction{Location: "LCL"}, asm.CInstruction{Dest: "M", Comp: "D"})

	// Jump to the return address stashed in R13 above
	program = append(program,
		asm.AInstruction{Location: "R13"},
		asm.CInstruction{Dest: "A", Comp: "M"},
		asm.CInstruction{Comp: "0", Jump: "JMP"},
	)

	return program, nil
}
